// Package validator checks parsed CSV files against the consolidation rules:
// pivot column presence and conformance to a Table Schema document.
package validator

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/frictionlessdata/tableschema-go/schema"

	"irve/internal/parser"
)

// DefaultErrorLimit caps the errors collected per file.
const DefaultErrorLimit = 1000

// ctxCheckEvery is how many rows are read between cancellation checks.
const ctxCheckEvery = 1000

// Schema validator errors.
var (
	ErrSchemaLoad  = errors.New("failed to load table schema")
	ErrSchemaEmpty = errors.New("table schema declares no fields")
	ErrSourceRead  = errors.New("failed to read source")
)

// SchemaValidator validates CSV files against a Table Schema. It reads each
// file itself; it does not reuse tables built by the parser package.
type SchemaValidator struct {
	schema        *schema.Schema
	missingValues map[string]bool
	path          string
	errorLimit    int
}

// NewSchemaValidator loads the Table Schema JSON document at schemaPath.
func NewSchemaValidator(schemaPath string) (*SchemaValidator, error) {
	sch, err := schema.LoadFromFile(schemaPath)
	if err != nil {
		return nil, fmt.Errorf("%w %s: %w", ErrSchemaLoad, schemaPath, err)
	}

	return NewSchemaValidatorFromSchema(sch, schemaPath)
}

// NewSchemaValidatorFromSchema wraps an already loaded schema.
func NewSchemaValidatorFromSchema(sch *schema.Schema, path string) (*SchemaValidator, error) {
	if sch == nil || len(sch.Fields) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrSchemaEmpty, path)
	}

	missing := sch.MissingValues
	if len(missing) == 0 {
		missing = []string{""}
	}

	v := &SchemaValidator{
		schema:        sch,
		missingValues: make(map[string]bool, len(missing)),
		path:          path,
		errorLimit:    DefaultErrorLimit,
	}

	for _, mv := range missing {
		v.missingValues[mv] = true
	}

	return v, nil
}

// WithErrorLimit sets how many errors are kept per file; <= 0 keeps all.
func (v *SchemaValidator) WithErrorLimit(limit int) *SchemaValidator {
	v.errorLimit = limit

	return v
}

// SchemaPath returns the path the schema was loaded from.
func (v *SchemaValidator) SchemaPath() string {
	return v.path
}

// FieldNames returns the schema field names in declaration order.
func (v *SchemaValidator) FieldNames() []string {
	names := make([]string, len(v.schema.Fields))
	for i, field := range v.schema.Fields {
		names[i] = field.Name
	}

	return names
}

// Validate reads source with the given encoding and checks it against the
// schema. An error is returned only when validation could not run (the
// file cannot be opened, the encoding is unknown, ctx is done); content
// problems are reported in the Report.
func (v *SchemaValidator) Validate(ctx context.Context, source, encoding string) (*Report, error) {
	f, err := os.Open(source)
	if err != nil {
		return nil, fmt.Errorf("%w %s: %w", ErrSourceRead, source, err)
	}

	defer func() {
		_ = f.Close()
	}()

	decoded, err := parser.NewDecodingReader(f, encoding)
	if err != nil {
		return nil, fmt.Errorf("%w %s: %w", ErrSourceRead, source, err)
	}

	reader := parser.NewCSVReader(decoded, ',')

	report := &Report{
		Source:   source,
		Encoding: encoding,
		Valid:    true,
	}

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		report.addError(v.errorLimit, ValidationError{Code: CodeSourceError, Message: "file is empty"})

		return report, nil
	}

	if err != nil {
		report.addError(v.errorLimit, ValidationError{Code: CodeSourceError, Message: err.Error()})

		return report, nil
	}

	header = trimBOM(header)
	report.Headers = header
	fieldIndex := v.checkHeader(report, header)

	seen := make([]map[string]int, len(v.schema.Fields))
	for i, field := range v.schema.Fields {
		if field.Constraints.Unique {
			seen[i] = make(map[string]int)
		}
	}

	// Row numbers follow goodtables: the header is row 1.
	for rowNum := 2; ; rowNum++ {
		if rowNum%ctxCheckEvery == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}

		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}

		if err != nil {
			report.addError(v.errorLimit, ValidationError{Code: CodeSourceError, Row: rowNum, Message: err.Error()})

			break
		}

		report.Stats.TotalRows++
		before := report.Stats.ErrorCount

		v.checkRow(report, rowNum, len(header), record, fieldIndex, seen)

		if report.Stats.ErrorCount > before {
			report.Stats.InvalidRows++
		} else {
			report.Stats.ValidRows++
		}
	}

	return report, nil
}

// checkHeader reports header problems and returns, for each schema field,
// its column index in header or -1.
func (v *SchemaValidator) checkHeader(report *Report, header []string) []int {
	position := make(map[string]int, len(header))

	for i, name := range header {
		if strings.TrimSpace(name) == "" {
			report.addError(v.errorLimit, ValidationError{
				Code:    CodeBlankHeader,
				Row:     1,
				Column:  i + 1,
				Message: fmt.Sprintf("header in column %d is blank", i+1),
			})

			continue
		}

		if _, ok := position[name]; !ok {
			position[name] = i
		}
	}

	declared := make(map[string]bool, len(v.schema.Fields))
	fieldIndex := make([]int, len(v.schema.Fields))

	for i, field := range v.schema.Fields {
		declared[field.Name] = true

		idx, ok := position[field.Name]
		if !ok {
			fieldIndex[i] = -1

			report.addError(v.errorLimit, ValidationError{
				Code:    CodeMissingHeader,
				Field:   field.Name,
				Message: fmt.Sprintf("there is a missing header in the column for field %q", field.Name),
			})

			continue
		}

		fieldIndex[i] = idx
	}

	for i, name := range header {
		if strings.TrimSpace(name) == "" || declared[name] {
			continue
		}

		report.addError(v.errorLimit, ValidationError{
			Code:    CodeExtraHeader,
			Row:     1,
			Column:  i + 1,
			Value:   name,
			Message: fmt.Sprintf("there is an extra header %q in column %d", name, i+1),
		})
	}

	return fieldIndex
}

func (v *SchemaValidator) checkRow(report *Report, rowNum, width int, record []string, fieldIndex []int, seen []map[string]int) {
	if isBlank(record) {
		report.addError(v.errorLimit, ValidationError{
			Code:    CodeBlankRow,
			Row:     rowNum,
			Message: fmt.Sprintf("row %d is completely blank", rowNum),
		})

		return
	}

	if len(record) > width {
		report.addError(v.errorLimit, ValidationError{
			Code:    CodeExtraValue,
			Row:     rowNum,
			Column:  width + 1,
			Message: fmt.Sprintf("row %d has %d values for %d columns", rowNum, len(record), width),
		})
	} else if len(record) < width {
		report.addError(v.errorLimit, ValidationError{
			Code:    CodeMissingValue,
			Row:     rowNum,
			Column:  len(record) + 1,
			Message: fmt.Sprintf("row %d has %d values for %d columns", rowNum, len(record), width),
		})
	}

	for i := range v.schema.Fields {
		idx := fieldIndex[i]
		if idx < 0 || idx >= len(record) {
			continue
		}

		field := &v.schema.Fields[i]
		value := record[idx]

		if v.missingValues[value] {
			if field.Constraints.Required {
				report.addError(v.errorLimit, ValidationError{
					Code:    CodeRequiredConstraint,
					Field:   field.Name,
					Row:     rowNum,
					Column:  idx + 1,
					Message: fmt.Sprintf("field %q is required", field.Name),
				})
			}

			continue
		}

		if _, err := field.Cast(value); err != nil {
			report.addError(v.errorLimit, ValidationError{
				Code:    CodeTypeOrFormatError,
				Field:   field.Name,
				Value:   value,
				Row:     rowNum,
				Column:  idx + 1,
				Message: fmt.Sprintf("value does not conform to type %q: %v", field.Type, err),
			})

			continue
		}

		if seen[i] == nil {
			continue
		}

		if first, dup := seen[i][value]; dup {
			report.addError(v.errorLimit, ValidationError{
				Code:    CodeUniqueConstraint,
				Field:   field.Name,
				Value:   value,
				Row:     rowNum,
				Column:  idx + 1,
				Message: fmt.Sprintf("value duplicates row %d", first),
			})

			continue
		}

		seen[i][value] = rowNum
	}
}

func isBlank(record []string) bool {
	for _, cell := range record {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}

	return true
}

func trimBOM(header []string) []string {
	if len(header) > 0 {
		header[0] = strings.TrimPrefix(header[0], "\uFEFF")
	}

	return header
}
