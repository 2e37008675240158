package dataprocessing

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	tracenoop "go.opentelemetry.io/otel/trace/noop"

	apperrors "retailetl/internal/errors"
	"retailetl/internal/infrastructure"
	"retailetl/pkg/contracts/domain"
)

// Pipeline stage names, used for spans, metrics and logs.
const (
	StageValidate  = "validate"
	StageDerive    = "derive"
	StageAggregate = "aggregate"
	StageDensify   = "densify"
)

// Input holds the tables of one run. Inventory is nil when not supplied.
type Input struct {
	Sales     *Table
	Inventory *Table
}

// Options tunes a pipeline.
type Options struct {
	ConflictPolicy ConflictPolicy
	// MaxGridRows bounds days x series. Zero or less means unbounded.
	MaxGridRows int64
}

// RunStats describes a finished run.
type RunStats struct {
	RunID                string
	SalesRows            int
	InventoryRows        int
	DroppedInventoryRows int
	Conflicts            int
	SeriesCount          int
	Days                 int
	GridRows             int
	Duration             time.Duration
}

// Pipeline turns sales and optional inventory tables into a dense grid.
// A Pipeline holds no per-run state and may be shared between goroutines.
type Pipeline struct {
	opts    Options
	logger  *slog.Logger
	tracer  trace.Tracer
	metrics *infrastructure.BusinessMetrics
}

// NewPipeline creates a pipeline. tracer and metrics may be nil.
func NewPipeline(opts Options, logger *slog.Logger, tracer trace.Tracer, metrics *infrastructure.BusinessMetrics) *Pipeline {
	if tracer == nil {
		tracer = tracenoop.NewTracerProvider().Tracer(infrastructure.InstrumentationName)
	}
	return &Pipeline{
		opts:    opts,
		logger:  infrastructure.WithComponent(logger, "pipeline"),
		tracer:  tracer,
		metrics: metrics,
	}
}

// runState is the data passed between stages of one run.
type runState struct {
	sales     []domain.SalesRecord
	snapshots []domain.InventorySnapshot
	catalog   *SeriesCatalog
	salesAgg  map[SeriesDayKey]domain.SeriesDaySales
	invAgg    map[SeriesDayKey]domain.SeriesDayInventory
	grid      *domain.Grid
}

// Run executes every stage in order. It returns either a complete grid or
// an error, never both.
func (p *Pipeline) Run(ctx context.Context, in Input) (*domain.Grid, *RunStats, error) {
	start := time.Now()
	stats := &RunStats{RunID: uuid.NewString()}
	logger := p.logger.With(slog.String("run_id", stats.RunID))

	ctx, span := p.tracer.Start(ctx, "etl.pipeline",
		trace.WithAttributes(
			attribute.String("etl.run_id", stats.RunID),
			attribute.Bool("etl.inventory", in.Inventory != nil),
		))
	defer span.End()

	infrastructure.RecordActiveRunChange(ctx, p.metrics, 1)
	defer infrastructure.RecordActiveRunChange(ctx, p.metrics, -1)

	grid, err := p.run(ctx, logger, in, stats)
	stats.Duration = time.Since(start)

	if err != nil {
		kind := string(apperrors.TypeOf(err))
		infrastructure.RecordError(ctx, err)
		infrastructure.RecordPipelineRun(ctx, p.metrics, kind, stats.Duration)
		logger.WarnContext(ctx, "pipeline run failed",
			slog.String("error", err.Error()),
			slog.String("error_kind", kind),
			slog.Duration("duration", stats.Duration))
		return nil, nil, err
	}

	infrastructure.RecordPipelineRun(ctx, p.metrics, "", stats.Duration)
	infrastructure.RecordGridSize(ctx, p.metrics, stats.GridRows, grid.HasInventory)
	span.SetAttributes(attribute.Int("etl.grid_rows", stats.GridRows))
	logger.InfoContext(ctx, "pipeline run complete",
		slog.Int("sales_rows", stats.SalesRows),
		slog.Int("inventory_rows", stats.InventoryRows),
		slog.Int("series", stats.SeriesCount),
		slog.Int("days", stats.Days),
		slog.Int("grid_rows", stats.GridRows),
		slog.Duration("duration", stats.Duration))

	return grid, stats, nil
}

func (p *Pipeline) run(ctx context.Context, logger *slog.Logger, in Input, stats *RunStats) (*domain.Grid, error) {
	st := &runState{}

	stages := []struct {
		name string
		fn   func() error
	}{
		{StageValidate, func() error {
			if err := ValidateInput(in); err != nil {
				return err
			}
			stats.SalesRows = in.Sales.Len()
			infrastructure.RecordInputRows(ctx, p.metrics, TableSales, stats.SalesRows)
			if in.Inventory != nil {
				stats.InventoryRows = in.Inventory.Len()
				infrastructure.RecordInputRows(ctx, p.metrics, TableInventory, stats.InventoryRows)
			}
			return nil
		}},
		{StageDerive, func() error {
			var err error
			if st.sales, err = ParseSalesRecords(in.Sales); err != nil {
				return err
			}
			if st.catalog, err = BuildSeriesCatalog(st.sales, p.opts.ConflictPolicy); err != nil {
				return err
			}
			stats.Conflicts = st.catalog.Conflicts
			stats.SeriesCount = len(st.catalog.Series())
			if stats.Conflicts > 0 {
				logger.WarnContext(ctx, "items mapped to more than one series, keeping the last",
					slog.Int("items", stats.Conflicts))
			}
			if in.Inventory != nil {
				st.snapshots, err = ParseInventorySnapshots(in.Inventory)
			}
			return err
		}},
		{StageAggregate, func() error {
			st.salesAgg = AggregateSales(st.sales)
			if in.Inventory != nil {
				res := AggregateInventory(st.snapshots, st.catalog)
				st.invAgg = res.Aggregates
				stats.DroppedInventoryRows = res.Dropped
			}
			return nil
		}},
		{StageDensify, func() error {
			first, last, _ := DateRange(st.sales)
			grid, err := Densify(GridInput{
				First:        first,
				Last:         last,
				Series:       st.catalog.Series(),
				Sales:        st.salesAgg,
				Inventory:    st.invAgg,
				HasInventory: in.Inventory != nil,
			}, p.opts.MaxGridRows)
			if err != nil {
				return err
			}
			st.grid = grid
			stats.Days = grid.Days
			stats.GridRows = len(grid.Rows)
			return nil
		}},
	}

	for _, stage := range stages {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if err := p.stage(ctx, logger, stage.name, stage.fn); err != nil {
			return nil, err
		}
	}
	return st.grid, nil
}

// stage runs fn inside a span and records its duration.
func (p *Pipeline) stage(ctx context.Context, logger *slog.Logger, name string, fn func() error) error {
	ctx, span := p.tracer.Start(ctx, "etl."+name)
	defer span.End()

	start := time.Now()
	err := fn()
	elapsed := time.Since(start)
	infrastructure.RecordStageDuration(ctx, p.metrics, name, elapsed)

	if err != nil {
		infrastructure.RecordError(ctx, err)
		return err
	}
	logger.DebugContext(ctx, "pipeline stage complete",
		slog.String("stage", name),
		slog.Duration("duration", elapsed))
	return nil
}
