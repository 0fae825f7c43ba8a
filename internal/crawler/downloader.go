package crawler

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"irve/internal/logger"
	"irve/internal/metrics"
	"irve/internal/models"
	"irve/pkg/utils"
)

// ErrEmptyDatasetSlug is returned for a dataset that cannot be given a directory.
var ErrEmptyDatasetSlug = errors.New("dataset slug is empty")

// DownloadStats accumulates the outcome of one download pass.
type DownloadStats struct {
	Downloaded          []string
	Datasets            int
	SkippedDatasets     int
	TotalResources      int
	DownloadedResources int
	SkippedResources    int
	FailedResources     int
}

// String returns the end-of-run tally.
func (s *DownloadStats) String() string {
	return fmt.Sprintf(
		"Datasets: %d (%d skipped) | Resources: %d total, %d downloaded, %d skipped, %d failed",
		s.Datasets,
		s.SkippedDatasets,
		s.TotalResources,
		s.DownloadedResources,
		s.SkippedResources,
		s.FailedResources,
	)
}

// Downloader writes the CSV resources of catalog datasets under a day directory.
type Downloader struct {
	scraper       *Scraper
	logger        *logger.Logger
	metrics       *metrics.Metrics
	dayDir        string
	selfDatasetID string
}

// NewDownloader creates a downloader writing below dayDir. Datasets whose id
// equals selfDatasetID are ignored.
func NewDownloader(scraper *Scraper, dayDir, selfDatasetID string, log *logger.Logger, m *metrics.Metrics) *Downloader {
	if log == nil {
		log = logger.Nop()
	}

	return &Downloader{
		scraper:       scraper,
		logger:        log,
		metrics:       m,
		dayDir:        dayDir,
		selfDatasetID: selfDatasetID,
	}
}

// Download processes datasets in order, one resource at a time. Failures of
// individual resources are logged and counted; only cancellation of ctx
// stops the pass early.
func (d *Downloader) Download(ctx context.Context, datasets []models.Dataset) (*DownloadStats, error) {
	stats := &DownloadStats{}

	for i := range datasets {
		ds := &datasets[i]
		stats.Datasets++
		d.metrics.DatasetSeen()

		if ds.IsOrphan() {
			d.logger.Warn(fmt.Sprintf("❌ orphan dataset %s", ds.Slug), "dataset_id", ds.ID.String())
			d.metrics.DatasetSkipped(metrics.ReasonOrphan)
			stats.SkippedDatasets++

			continue
		}

		if d.selfDatasetID != "" && ds.ID.String() == d.selfDatasetID {
			d.logger.Warn("⚠️  ignored our own dataset", "dataset", ds.Slug)
			d.metrics.DatasetSkipped(metrics.ReasonSelf)
			stats.SkippedDatasets++

			continue
		}

		dsLog := d.logger.With("dataset", ds.Slug, "publisher", ds.Publisher())

		for _, res := range ds.Resources {
			if err := ctx.Err(); err != nil {
				return stats, fmt.Errorf("download interrupted: %w", err)
			}

			stats.TotalResources++
			d.metrics.ResourceSeen()

			filename, ext := DeriveFilename(res.URL)
			if !IsCSV(ext) {
				dsLog.Info(fmt.Sprintf("⚠️  ignored file %s", res.URL), "resource_id", res.ID.String())
				d.metrics.ResourceSkipped(metrics.ReasonNotCSV)
				stats.SkippedResources++

				continue
			}

			written, size, err := d.downloadResource(ctx, ds.Slug, res, ext)
			if err != nil {
				if ctxErr := ctx.Err(); ctxErr != nil {
					return stats, fmt.Errorf("download interrupted: %w", ctxErr)
				}

				dsLog.Error(fmt.Sprintf("❌ download failed [%s] %s: %v", filename, res.URL, err), "resource_id", res.ID.String())
				d.metrics.ResourceSkipped(metrics.ReasonDownload)
				stats.FailedResources++

				continue
			}

			stats.DownloadedResources++
			stats.Downloaded = append(stats.Downloaded, filename)
			d.metrics.ResourceWritten(size)

			dsLog.Info(fmt.Sprintf("✅ downloaded file [%s] %s", filename, res.URL), "path", written, "bytes", size)
		}
	}

	return stats, nil
}

// downloadResource fetches one resource and writes it, returning (path, size, error).
func (d *Downloader) downloadResource(ctx context.Context, slug string, res models.Resource, ext string) (string, int, error) {
	if slug == "" {
		return "", 0, ErrEmptyDatasetSlug
	}

	if err := CheckPathSegment(slug); err != nil {
		return "", 0, fmt.Errorf("dataset slug: %w", err)
	}

	if err := CheckPathSegment(res.ID.String()); err != nil {
		return "", 0, fmt.Errorf("resource id: %w", err)
	}

	content, err := d.scraper.Fetch(ctx, res.URL)
	if err != nil {
		return "", 0, err
	}

	path := ResourcePath(d.dayDir, slug, res.ID.String(), ext)

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", 0, fmt.Errorf("failed to create dataset directory: %w", err)
	}

	// Same id within a dataset: last write wins.
	if err := os.WriteFile(path, content, 0o644); err != nil {
		return "", 0, fmt.Errorf("failed to write file: %w", err)
	}

	d.logger.Debug("resource written", "path", path, "sha256", utils.SHA256Hex(content))

	return path, len(content), nil
}
