// Package crawler discovers catalog datasets and downloads their CSV resources.
package crawler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"irve/internal/logger"
	"irve/internal/metrics"
	"irve/internal/models"
)

// Catalog listing defaults.
const (
	DefaultTag      = "irve"
	DefaultPageSize = 1000
	datasetsPath    = "/api/1/datasets/"
)

// ErrInvalidCatalog is returned when the catalog body cannot be decoded.
var ErrInvalidCatalog = errors.New("invalid catalog response")

// Client queries the dataset catalog.
type Client struct {
	scraper  *Scraper
	logger   *logger.Logger
	metrics  *metrics.Metrics
	baseURL  string
	tag      string
	pageSize int
}

// NewClient creates a catalog client for domain with default tag and page size.
// The domain may be a bare host ("www.data.gouv.fr") or a full base URL.
func NewClient(domain string, log *logger.Logger) *Client {
	return NewClientWithDeps(NewScraper(), domain, DefaultTag, DefaultPageSize, log, nil)
}

// NewClientWithDeps creates a catalog client with injected dependencies.
func NewClientWithDeps(scraper *Scraper, domain, tag string, pageSize int, log *logger.Logger, m *metrics.Metrics) *Client {
	if tag == "" {
		tag = DefaultTag
	}

	if pageSize < 1 {
		pageSize = DefaultPageSize
	}

	if log == nil {
		log = logger.Nop()
	}

	return &Client{
		scraper:  scraper,
		logger:   log,
		metrics:  m,
		baseURL:  baseURL(domain),
		tag:      tag,
		pageSize: pageSize,
	}
}

func baseURL(domain string) string {
	domain = strings.TrimRight(domain, "/")
	if strings.Contains(domain, "://") {
		return domain
	}

	return "https://" + domain
}

// DatasetsURL returns the listing URL for the configured tag and page size.
func (c *Client) DatasetsURL() string {
	return fmt.Sprintf("%s%s?tag=%s&page_size=%s",
		c.baseURL, datasetsPath, url.QueryEscape(c.tag), strconv.Itoa(c.pageSize))
}

// FetchDatasets fetches the first page of datasets matching the tag.
// Further pages are not requested; when the catalog reports more results
// than one page holds, the omitted count is logged and recorded.
func (c *Client) FetchDatasets(ctx context.Context) ([]models.Dataset, error) {
	listURL := c.DatasetsURL()

	body, statusCode, duration, err := c.scraper.FetchWithMetrics(ctx, listURL)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch catalog %s: %w", listURL, err)
	}

	c.logger.Debug("catalog fetched", "url", listURL, "status", statusCode, "duration", duration.String())

	return c.decode(body)
}

// FetchDatasetsFromFile decodes a catalog listing saved to disk.
func (c *Client) FetchDatasetsFromFile(path string) ([]models.Dataset, error) {
	body, _, _, err := c.scraper.ReadLocalFileWithMetrics(path)
	if err != nil {
		return nil, err
	}

	return c.decode(body)
}

func (c *Client) decode(body []byte) ([]models.Dataset, error) {
	var page models.CatalogPage
	if err := json.Unmarshal(body, &page); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidCatalog, err)
	}

	if omitted := page.Total - len(page.Data); page.Total > c.pageSize && omitted > 0 {
		c.logger.Warn(fmt.Sprintf("⚠️  catalog lists %d datasets, only the first %d were fetched", page.Total, len(page.Data)),
			"omitted", omitted)
		c.metrics.CatalogOmitted(omitted)
	}

	return page.Data, nil
}
