// Package pipeline runs the harvest: fetch the catalog, download CSV
// resources into a dated directory, then validate every downloaded file.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"irve/internal/config"
	"irve/internal/crawler"
	"irve/internal/logger"
	"irve/internal/metrics"
	"irve/internal/models"
	"irve/internal/parser"
	"irve/internal/validator"
)

// ErrNoDayDir is returned when the directory to validate does not exist.
var ErrNoDayDir = errors.New("run directory not found")

// Catalog lists the datasets to harvest.
type Catalog interface {
	FetchDatasets(ctx context.Context) ([]models.Dataset, error)
}

// CatalogFunc adapts a function to Catalog.
type CatalogFunc func(ctx context.Context) ([]models.Dataset, error)

// FetchDatasets calls f(ctx).
func (f CatalogFunc) FetchDatasets(ctx context.Context) ([]models.Dataset, error) {
	return f(ctx)
}

// SchemaChecker validates one file against the schema. An error means the
// check could not run, not that the file is invalid.
type SchemaChecker interface {
	Validate(ctx context.Context, source, encoding string) (*validator.Report, error)
}

// Runner executes harvest runs.
type Runner struct {
	cfg        *config.Config
	catalog    Catalog
	downloader func(dayDir string) *crawler.Downloader
	checker    SchemaChecker
	dataRoot   string
	out        io.Writer
	base       *logger.Logger
	logger     *logger.Logger
	metrics    *metrics.Metrics
	now        func() time.Time
	parseOpts  parser.ParseOptions
	showErrors int
}

// NewRunner wires a runner from configuration. The schema is loaded on
// first use so that download-only runs do not need it.
func NewRunner(cfg *config.Config, dataRoot string, out io.Writer, log *logger.Logger, m *metrics.Metrics) *Runner {
	scraper := crawler.NewScraperWithTimeout(cfg.Timeout())
	client := crawler.NewClientWithDeps(scraper, cfg.Default.Domain, cfg.Default.Tag, cfg.Default.PageSize, log, m)

	return NewRunnerWithDeps(cfg, client, scraper, NewLazySchema(cfg.Default.SchemaPath), dataRoot, out, log, m)
}

// NewRunnerWithDeps creates a runner with injected dependencies.
func NewRunnerWithDeps(
	cfg *config.Config,
	catalog Catalog,
	scraper *crawler.Scraper,
	checker SchemaChecker,
	dataRoot string,
	out io.Writer,
	log *logger.Logger,
	m *metrics.Metrics,
) *Runner {
	if log == nil {
		log = logger.Nop()
	}

	if out == nil {
		out = io.Discard
	}

	r := &Runner{
		cfg:       cfg,
		catalog:   catalog,
		checker:   checker,
		dataRoot:  dataRoot,
		out:       out,
		base:      log,
		logger:    log,
		metrics:   m,
		now:       time.Now,
		parseOpts: parser.DefaultParseOptions(),
	}

	r.downloader = func(dayDir string) *crawler.Downloader {
		return crawler.NewDownloader(scraper, dayDir, cfg.Default.DatasetID, r.logger, m)
	}

	return r
}

// WithCatalog replaces the dataset source, e.g. with a saved listing.
func (r *Runner) WithCatalog(catalog Catalog) *Runner {
	r.catalog = catalog

	return r
}

// WithClock replaces the clock used to name the day directory.
func (r *Runner) WithClock(now func() time.Time) *Runner {
	r.now = now

	return r
}

// WithShowErrors prints up to n schema errors under each failing file.
func (r *Runner) WithShowErrors(n int) *Runner {
	r.showErrors = n

	return r
}

// DayDir returns the directory a run started now writes to.
func (r *Runner) DayDir() string {
	return config.DayDir(r.dataRoot, r.now())
}

// Run fetches, downloads and validates, then prints the summary table and
// records run metrics. Only catalog failures and cancellation are errors.
func (r *Runner) Run(ctx context.Context) (*RunSummary, error) {
	summary, err := r.Download(ctx)
	if err != nil {
		return summary, err
	}

	files, err := r.Validate(ctx, summary.DayDir)
	summary.Files = files

	if err != nil {
		return summary, err
	}

	r.Finish(ctx, summary)

	return summary, nil
}

// Download fetches the catalog and writes CSV resources to the day
// directory, then prints the resource tally.
func (r *Runner) Download(ctx context.Context) (*RunSummary, error) {
	summary := &RunSummary{
		RunID:     uuid.NewString(),
		StartedAt: r.now(),
	}
	summary.DayDir = config.DayDir(r.dataRoot, summary.StartedAt)

	r.logger = r.base.With("run_id", summary.RunID)
	r.logger.Info("🚀 harvest started", "day_dir", summary.DayDir)

	if err := os.MkdirAll(summary.DayDir, 0o755); err != nil {
		return summary, fmt.Errorf("failed to create run directory: %w", err)
	}

	datasets, err := r.catalog.FetchDatasets(ctx)
	if err != nil {
		return summary, fmt.Errorf("failed to fetch catalog: %w", err)
	}

	r.logger.Info(fmt.Sprintf("📥 %d datasets in catalog", len(datasets)))

	stats, err := r.downloader(summary.DayDir).Download(ctx, datasets)
	summary.Download = stats

	if err != nil {
		return summary, err
	}

	fmt.Fprintf(r.out, "✅✅✅ Done %d %d\n", stats.TotalResources, stats.DownloadedResources)
	r.logger.Info(stats.String())

	return summary, nil
}

// Validate checks every *.csv file in the dataset subdirectories of dayDir,
// in name order, printing one line per file.
func (r *Runner) Validate(ctx context.Context, dayDir string) ([]models.FileResult, error) {
	entries, err := os.ReadDir(dayDir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrNoDayDir, dayDir)
		}

		return nil, fmt.Errorf("failed to list %s: %w", dayDir, err)
	}

	var results []models.FileResult

	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}

		files, err := filepath.Glob(filepath.Join(dayDir, entry.Name(), "*.csv"))
		if err != nil {
			return results, fmt.Errorf("failed to list %s: %w", entry.Name(), err)
		}

		for _, path := range files {
			if err := ctx.Err(); err != nil {
				return results, fmt.Errorf("validation interrupted: %w", err)
			}

			result, err := r.validateFile(ctx, path, entry.Name())
			if err != nil {
				return results, err
			}

			results = append(results, result)
			r.metrics.FileValidated(string(result.Status), result.SchemaErrors)
		}
	}

	return results, nil
}

func (r *Runner) validateFile(ctx context.Context, path, dataset string) (models.FileResult, error) {
	result := models.FileResult{Path: path, Dataset: dataset}

	content, err := os.ReadFile(path)
	if err != nil {
		result.Status = models.StatusParseError
		result.Error = err.Error()
		fmt.Fprintf(r.out, "❌ CSV parse error for %s (%v)\n", path, err)

		return result, nil
	}

	opts := r.parseOpts
	opts.Encoding = parser.DetectEncoding(content)
	result.Encoding = opts.Encoding

	table, err := parser.Parse(content, opts)
	if err != nil {
		result.Status = models.StatusParseError
		result.Error = err.Error()
		fmt.Fprintf(r.out, "❌ CSV parse error for %s (%v)\n", path, err)

		return result, nil
	}

	result.RowCount = table.RowCount()

	if missing := validator.MissingPivots(table.Columns); len(missing) > 0 {
		result.Status = models.StatusMissingPivot
		result.MissingPivots = missing
		fmt.Fprintf(r.out, "😨 Missing pivot %s (%s)\n", path, strings.Join(missing, ", "))

		return result, nil
	}

	report, err := r.checker.Validate(ctx, path, result.Encoding)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return result, fmt.Errorf("validation interrupted: %w", ctxErr)
		}

		result.Status = models.StatusValidatorError
		result.Error = err.Error()
		r.logger.Warn("⚠️  schema validation could not run", "file", path, "error", err.Error())

		return result, nil
	}

	result.SchemaErrors = report.Stats.ErrorCount

	if report.Valid {
		result.Status = models.StatusPass
		fmt.Fprintf(r.out, "✅ %s (%d rows)\n", path, result.RowCount)

		return result, nil
	}

	result.Status = models.StatusFail
	fmt.Fprintf(r.out, "🛑 %s (%d rows)\n", path, result.RowCount)
	r.logger.Debug(report.String(), "file", path)

	if r.showErrors > 0 {
		report.PrintErrors(r.out, r.showErrors)
	}

	return result, nil
}

// Finish prints the summary table, records run metrics and pushes them
// when a Pushgateway is configured. A failed push is only logged.
func (r *Runner) Finish(ctx context.Context, summary *RunSummary) {
	summary.Duration = r.now().Sub(summary.StartedAt)

	fmt.Fprint(r.out, summary.Table(r.dataRoot).String())
	r.logger.Info("🏁 harvest finished", "duration", summary.Duration.String(),
		"passed", summary.Count(models.StatusPass), "failed", summary.Count(models.StatusFail))

	r.metrics.RunFinished(summary.Duration, r.now())

	if r.cfg == nil || r.cfg.Metrics.PushgatewayURL == "" {
		return
	}

	if err := r.metrics.Push(ctx, r.cfg.Metrics.PushgatewayURL, r.cfg.Metrics.Job); err != nil {
		r.logger.Warn("⚠️  metrics push failed", "error", err.Error())
	}
}
