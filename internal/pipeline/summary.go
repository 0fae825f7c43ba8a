package pipeline

import (
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"irve/internal/crawler"
	"irve/internal/formatter"
	"irve/internal/models"
	"irve/pkg/utils"
)

// detailWidth bounds the Detail column of the summary table.
const detailWidth = 60

// RunSummary is the outcome of one run.
type RunSummary struct {
	RunID     string
	DayDir    string
	StartedAt time.Time
	Duration  time.Duration
	Download  *crawler.DownloadStats
	Files     []models.FileResult
}

// Count returns how many files ended with status.
func (s *RunSummary) Count(status models.FileStatus) int {
	n := 0

	for i := range s.Files {
		if s.Files[i].Status == status {
			n++
		}
	}

	return n
}

// Table renders the per-file results, with paths relative to root.
func (s *RunSummary) Table(root string) *formatter.Table {
	strs := utils.NewStringHelper()
	table := formatter.NewTable("File", "Encoding", "Rows", "Status", "Detail")

	for i := range s.Files {
		f := &s.Files[i]

		path := f.Path
		if rel, err := filepath.Rel(root, f.Path); err == nil {
			path = rel
		}

		rows := ""
		if f.Status != models.StatusParseError {
			rows = strconv.Itoa(f.RowCount)
		}

		table.Append(path, f.Encoding, rows, statusLabel(f.Status), strs.TruncateString(detail(f), detailWidth))
	}

	return table
}

func statusLabel(status models.FileStatus) string {
	switch status {
	case models.StatusPass:
		return "✅ pass"
	case models.StatusFail:
		return "🛑 fail"
	case models.StatusMissingPivot:
		return "😨 missing pivot"
	case models.StatusParseError:
		return "❌ parse error"
	case models.StatusValidatorError:
		return "⚠️ skipped"
	default:
		return string(status)
	}
}

func detail(f *models.FileResult) string {
	switch f.Status {
	case models.StatusFail:
		return strconv.Itoa(f.SchemaErrors) + " schema errors"
	case models.StatusMissingPivot:
		return strings.Join(f.MissingPivots, ", ")
	case models.StatusParseError, models.StatusValidatorError:
		return utils.NewStringHelper().NormalizeWhitespace(f.Error)
	default:
		return ""
	}
}
