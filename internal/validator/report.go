package validator

import (
	"fmt"
	"io"

	"irve/pkg/utils"
)

// Error codes, named after the goodtables checks they mirror.
const (
	CodeSourceError        = "source-error"
	CodeBlankHeader        = "blank-header"
	CodeMissingHeader      = "missing-header"
	CodeExtraHeader        = "extra-header"
	CodeBlankRow           = "blank-row"
	CodeExtraValue         = "extra-value"
	CodeMissingValue       = "missing-value"
	CodeTypeOrFormatError  = "type-or-format-error"
	CodeRequiredConstraint = "required-constraint"
	CodeUniqueConstraint   = "unique-constraint"
)

// ValidationError represents a validation error with context.
type ValidationError struct {
	Code    string
	Field   string
	Value   string
	Message string
	Row     int
	Column  int
}

// Report contains the schema validation result for one file.
type Report struct {
	Source   string
	Encoding string
	Headers  []string
	Errors   []ValidationError
	Stats    ReportStats
	Valid    bool
	// Truncated is set once the error limit stopped error collection.
	Truncated bool
}

// ReportStats contains validation statistics.
type ReportStats struct {
	TotalRows   int
	ValidRows   int
	InvalidRows int
	ErrorCount  int
}

func (r *Report) addError(limit int, verr ValidationError) {
	r.Valid = false
	r.Stats.ErrorCount++

	if limit > 0 && len(r.Errors) >= limit {
		r.Truncated = true

		return
	}

	r.Errors = append(r.Errors, verr)
}

// String returns string representation of the report.
func (r *Report) String() string {
	status := "✅ VALID"
	if !r.Valid {
		status = "❌ INVALID"
	}

	return fmt.Sprintf(
		"%s | Rows: %d | Valid: %d | Invalid: %d | Errors: %d",
		status,
		r.Stats.TotalRows,
		r.Stats.ValidRows,
		r.Stats.InvalidRows,
		r.Stats.ErrorCount,
	)
}

// CountByCode groups collected errors by code.
func (r *Report) CountByCode() map[string]int {
	counts := make(map[string]int)
	for _, verr := range r.Errors {
		counts[verr.Code]++
	}

	return counts
}

// PrintErrors writes up to limit errors in readable form; limit <= 0 prints all.
func (r *Report) PrintErrors(w io.Writer, limit int) {
	if len(r.Errors) == 0 {
		return
	}

	strs := utils.NewStringHelper()

	fmt.Fprintln(w, "❌ Validation Errors:")

	for i, verr := range r.Errors {
		if limit > 0 && i >= limit {
			fmt.Fprintf(w, "  ... %d more\n", r.Stats.ErrorCount-limit)

			break
		}

		if verr.Row > 0 {
			fmt.Fprintf(w, "  Row %d, Col %d", verr.Row, verr.Column)
		} else {
			fmt.Fprint(w, " ")
		}

		if verr.Field != "" {
			fmt.Fprintf(w, " [%s]", verr.Field)
		}

		fmt.Fprintf(w, " %s: %s\n", verr.Code, verr.Message)

		if verr.Value != "" {
			fmt.Fprintf(w, "    Found: %q\n", strs.TruncateString(verr.Value, 50))
		}
	}
}
