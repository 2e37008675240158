// Command etl builds the training file from local sales and inventory files
// without starting the server.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"retailetl/internal/config"
	"retailetl/internal/dataprocessing"
	apperrors "retailetl/internal/errors"
	"retailetl/internal/exporter"
	"retailetl/internal/infrastructure"
	"retailetl/internal/validation"
	"retailetl/pkg/contracts"
)

// stdoutPath writes the grid to standard output.
const stdoutPath = "-"

type options struct {
	sales       string
	inventory   string
	out         string
	conflict    string
	maxGridRows int64
	bom         bool
	logLevel    string
	version     bool
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stdout); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			os.Exit(0)
		}
		slog.Error("ETL run failed", slog.String("error", err.Error()))
		os.Exit(exitCode(err))
	}
}

// exitCode is 2 for problems with the inputs and 1 for everything else.
func exitCode(err error) int {
	switch apperrors.TypeOf(err) {
	case apperrors.ErrTypeMissingInput, apperrors.ErrTypeSchema, apperrors.ErrTypeParsing,
		apperrors.ErrTypeValidation, apperrors.ErrTypeConflict:
		return 2
	default:
		return 1
	}
}

func parseFlags(args []string, defaults config.PipelineConfig) (options, error) {
	opts := options{}
	fs := flag.NewFlagSet("etl", flag.ContinueOnError)
	fs.StringVar(&opts.sales, "sales", "", "sales file (.csv, .txt or .xlsx), required")
	fs.StringVar(&opts.inventory, "inventory", "", "inventory file (.csv, .txt or .xlsx), optional")
	fs.StringVar(&opts.out, "out", config.OutputFilename, `output CSV path, "-" for stdout`)
	fs.StringVar(&opts.conflict, "conflict", defaults.ConflictPolicy, "item to series conflict policy: last_write_wins or error")
	fs.Int64Var(&opts.maxGridRows, "max-grid-rows", defaults.MaxGridRows, "largest grid (days x series) to build")
	fs.BoolVar(&opts.bom, "bom", defaults.CSVBOM, "prefix the output with a UTF-8 byte order mark")
	fs.StringVar(&opts.logLevel, "log-level", "", "log level: debug, info, warn or error")
	fs.BoolVar(&opts.version, "version", false, "print the version and exit")

	if err := fs.Parse(args); err != nil {
		return opts, err
	}
	if fs.NArg() > 0 {
		return opts, fmt.Errorf("unexpected arguments: %v", fs.Args())
	}
	if opts.version {
		return opts, nil
	}
	if opts.sales == "" {
		return opts, apperrors.NewMissingInputError(config.SalesFileField).
			WithContext("flag", "-sales")
	}
	return opts, nil
}

func run(ctx context.Context, args []string, stdout io.Writer) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	opts, err := parseFlags(args, cfg.Pipeline)
	if err != nil {
		return err
	}
	if opts.version {
		fmt.Fprintln(stdout, contracts.GetFullVersionString())
		return nil
	}

	policy, err := dataprocessing.ParseConflictPolicy(opts.conflict)
	if err != nil {
		return err
	}

	// Standard output may carry the CSV, so logs always go to stderr.
	logCfg := cfg.Logging
	logCfg.Output = "stderr"
	if opts.logLevel != "" {
		logCfg.Level = opts.logLevel
	}
	logger, closer, err := infrastructure.InitializeLogger(logCfg)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer closer.Close()
	ctx = infrastructure.EnsureTraceID(ctx)

	validator := validation.NewFileValidator(logger)
	if _, err := validator.ValidateFile(config.SalesFileField, opts.sales); err != nil {
		return err
	}
	if opts.inventory != "" {
		if _, err := validator.ValidateFile(config.InventoryFileField, opts.inventory); err != nil {
			return err
		}
	}
	if opts.out != stdoutPath {
		if err := validator.ValidateOutputDirectory(filepath.Dir(opts.out)); err != nil {
			return err
		}
	}

	in := dataprocessing.Input{}
	if in.Sales, err = readTable(dataprocessing.TableSales, opts.sales); err != nil {
		return err
	}
	if opts.inventory != "" {
		if in.Inventory, err = readTable(dataprocessing.TableInventory, opts.inventory); err != nil {
			return err
		}
	}

	pipeline := dataprocessing.NewPipeline(dataprocessing.Options{
		ConflictPolicy: policy,
		MaxGridRows:    opts.maxGridRows,
	}, logger, nil, nil)

	grid, stats, err := pipeline.Run(ctx, in)
	if err != nil {
		return err
	}

	writer := exporter.NewCSVWriter(logger)
	if opts.out == stdoutPath {
		return writer.WriteGrid(stdout, grid, opts.bom)
	}
	if err := writer.WriteFile(opts.out, grid, opts.bom); err != nil {
		return err
	}

	fmt.Fprintf(stdout, "wrote %d rows (%d series x %d days) to %s\n",
		stats.GridRows, stats.SeriesCount, stats.Days, opts.out)
	return nil
}

func readTable(name, path string) (*dataprocessing.Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, apperrors.NewInternalAppError(fmt.Sprintf("failed to open %s", path), err)
	}
	defer f.Close()
	return dataprocessing.ReadTable(name, path, f)
}
