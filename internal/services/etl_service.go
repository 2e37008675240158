package services

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/semaphore"

	"retailetl/internal/config"
	"retailetl/internal/dataprocessing"
	apperrors "retailetl/internal/errors"
	"retailetl/internal/exporter"
	"retailetl/internal/infrastructure"
	"retailetl/internal/validation"
)

// ContentTypeCSV is the media type of the produced file.
const ContentTypeCSV = "text/csv; charset=utf-8"

// FileInput is one uploaded or local input file.
type FileInput struct {
	Filename string
	Size     int64
	Reader   io.Reader
}

// ProcessRequest carries the inputs of one run. Inventory is optional.
type ProcessRequest struct {
	Sales     *FileInput
	Inventory *FileInput
}

// ProcessResult is a fully rendered training file.
type ProcessResult struct {
	Filename    string
	ContentType string
	Body        []byte
	Stats       *dataprocessing.RunStats
}

// ETLService runs the pipeline for uploads, bounding how many runs may be
// in flight at once.
type ETLService struct {
	pipeline  *dataprocessing.Pipeline
	writer    *exporter.CSVWriter
	validator *validation.FileValidator
	slots     *semaphore.Weighted
	capacity  int64
	active    atomic.Int64
	bom       bool
	tracer    trace.Tracer
	metrics   *infrastructure.BusinessMetrics
	logger    *slog.Logger
}

// NewETLService creates the service from pipeline configuration. providers
// and metrics may be nil.
func NewETLService(cfg config.PipelineConfig, providers *infrastructure.OTelProviders, metrics *infrastructure.BusinessMetrics, logger *slog.Logger) (*ETLService, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if providers == nil {
		providers = infrastructure.NoopProviders(logger)
	}

	policy, err := dataprocessing.ParseConflictPolicy(cfg.ConflictPolicy)
	if err != nil {
		return nil, err
	}
	slots := cfg.MaxConcurrentRuns
	if slots <= 0 {
		slots = config.DefaultMaxConcurrentRuns
	}

	logger = logger.With(slog.String("component", "etl_service"))
	logger.Info("ETLService initialized",
		slog.String("conflict_policy", policy.String()),
		slog.Int64("max_grid_rows", cfg.MaxGridRows),
		slog.Int64("max_concurrent_runs", slots))

	return &ETLService{
		pipeline: dataprocessing.NewPipeline(dataprocessing.Options{
			ConflictPolicy: policy,
			MaxGridRows:    cfg.MaxGridRows,
		}, logger, providers.Tracer, metrics),
		writer:    exporter.NewCSVWriter(logger),
		validator: validation.NewFileValidator(logger),
		slots:     semaphore.NewWeighted(slots),
		capacity:  slots,
		bom:       cfg.CSVBOM,
		tracer:    providers.Tracer,
		metrics:   metrics,
		logger:    logger,
	}, nil
}

// Process validates and reads the inputs, runs the pipeline and renders the
// grid into memory. No result is returned unless every step succeeded.
func (s *ETLService) Process(ctx context.Context, req ProcessRequest) (*ProcessResult, error) {
	ctx, span := s.tracer.Start(ctx, "etl.process")
	defer span.End()

	if req.Sales == nil {
		return nil, apperrors.NewMissingInputError(config.SalesFileField)
	}
	if err := s.validator.ValidateUpload(validation.Upload{
		Field: config.SalesFileField, Filename: req.Sales.Filename, Size: req.Sales.Size,
	}); err != nil {
		return nil, err
	}
	if req.Inventory != nil {
		if err := s.validator.ValidateUpload(validation.Upload{
			Field: config.InventoryFileField, Filename: req.Inventory.Filename, Size: req.Inventory.Size,
		}); err != nil {
			return nil, err
		}
	}

	waitStart := time.Now()
	if err := s.slots.Acquire(ctx, 1); err != nil {
		return nil, fmt.Errorf("waiting for a run slot: %w", err)
	}
	defer s.slots.Release(1)
	s.active.Add(1)
	defer s.active.Add(-1)
	if wait := time.Since(waitStart); wait > time.Second {
		s.logger.InfoContext(ctx, "run waited for a free slot", slog.Duration("wait", wait))
	}

	in, err := s.readInputs(req)
	if err != nil {
		return nil, err
	}

	grid, stats, err := s.pipeline.Run(ctx, in)
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	if err := s.writer.WriteGrid(&buf, grid, s.bom); err != nil {
		infrastructure.RecordSystemError(ctx, s.metrics, "serialize", "etl_service")
		return nil, apperrors.NewInternalAppError("failed to render training file", err)
	}
	infrastructure.RecordOutputBytes(ctx, s.metrics, buf.Len())
	span.SetAttributes(
		attribute.Int("etl.output_bytes", buf.Len()),
		attribute.Int("etl.grid_rows", stats.GridRows),
	)

	s.logger.InfoContext(ctx, "training file produced",
		slog.String("run_id", stats.RunID),
		slog.String("sales_file", req.Sales.Filename),
		slog.Bool("inventory", req.Inventory != nil),
		slog.Int("grid_rows", stats.GridRows),
		slog.Int("dropped_inventory_rows", stats.DroppedInventoryRows),
		slog.Int("output_bytes", buf.Len()),
		slog.Duration("duration", stats.Duration))

	return &ProcessResult{
		Filename:    config.OutputFilename,
		ContentType: ContentTypeCSV,
		Body:        buf.Bytes(),
		Stats:       stats,
	}, nil
}

// ActiveRuns returns the number of runs holding a slot.
func (s *ETLService) ActiveRuns() int64 {
	return s.active.Load()
}

// Capacity returns the maximum number of concurrent runs.
func (s *ETLService) Capacity() int64 {
	return s.capacity
}

func (s *ETLService) readInputs(req ProcessRequest) (dataprocessing.Input, error) {
	var in dataprocessing.Input
	var err error

	in.Sales, err = dataprocessing.ReadTable(dataprocessing.TableSales, req.Sales.Filename, req.Sales.Reader)
	if err != nil {
		return in, err
	}
	if req.Inventory != nil {
		in.Inventory, err = dataprocessing.ReadTable(dataprocessing.TableInventory, req.Inventory.Filename, req.Inventory.Reader)
		if err != nil {
			return in, err
		}
	}
	return in, nil
}
