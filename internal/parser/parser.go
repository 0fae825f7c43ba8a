// Package parser reads downloaded CSV files into text-only tables.
//
// Files come from many publishers, so the byte encoding is detected
// statistically and the dialect is fixed: comma delimiter, double-quote
// quoting, lazy quotes and ragged rows tolerated. No column type inference
// is done; every cell stays a string.
package parser

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"unicode/utf8"

	"github.com/saintfish/chardet"
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/htmlindex"
	"golang.org/x/text/encoding/ianaindex"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// FallbackEncoding is used when detection gives no answer.
const FallbackEncoding = "UTF-8"

// Parse errors.
var (
	ErrEmptyFile           = errors.New("file has no header row")
	ErrRowTooLong          = errors.New("row has more values than there are columns")
	ErrInvalidEncoding     = errors.New("content is not valid in the detected encoding")
	ErrUnsupportedEncoding = errors.New("unsupported encoding")
)

// chardet names that the WHATWG and IANA indexes spell differently.
var encodingAliases = map[string]string{
	"gb-18030": "gb18030",
}

// ParseOptions configures a single parse call.
type ParseOptions struct {
	// Encoding is the source encoding label; empty means detect.
	Encoding string
	// Delimiter defaults to ','.
	Delimiter rune
	// SuppressHeaderWarnings drops the notices about renamed unnamed or
	// duplicate header cells. Renaming happens either way.
	SuppressHeaderWarnings bool
}

// DefaultParseOptions returns the dialect used for downloaded resources.
func DefaultParseOptions() ParseOptions {
	return ParseOptions{
		Delimiter:              ',',
		SuppressHeaderWarnings: true,
	}
}

// Table is an in-memory text table.
type Table struct {
	Columns  []string
	Rows     [][]string
	Warnings []string
	Encoding string
}

// RowCount returns the number of data rows.
func (t *Table) RowCount() int {
	return len(t.Rows)
}

// HasColumn reports whether a column with that exact name exists.
func (t *Table) HasColumn(name string) bool {
	for _, col := range t.Columns {
		if col == name {
			return true
		}
	}

	return false
}

// DetectEncoding returns the best-guess charset label for content.
// Valid UTF-8 without NUL bytes (which rules out UTF-16) is reported as
// UTF-8 directly.
func DetectEncoding(content []byte) string {
	if len(content) == 0 {
		return FallbackEncoding
	}

	if utf8.Valid(content) && bytes.IndexByte(content, 0) < 0 {
		return FallbackEncoding
	}

	result, err := chardet.NewTextDetector().DetectBest(content)
	if err != nil || result == nil || result.Charset == "" {
		return FallbackEncoding
	}

	return result.Charset
}

// LookupEncoding resolves a charset label. UTF-8 decoding strips a leading BOM.
func LookupEncoding(label string) (encoding.Encoding, error) {
	name := strings.ToLower(strings.TrimSpace(label))
	if alias, ok := encodingAliases[name]; ok {
		name = alias
	}

	switch name {
	case "", "utf-8", "utf8", "ascii", "us-ascii":
		return unicode.UTF8BOM, nil
	}

	if enc, err := htmlindex.Get(name); err == nil {
		return enc, nil
	}

	if enc, err := ianaindex.IANA.Encoding(name); err == nil && enc != nil {
		return enc, nil
	}

	return nil, fmt.Errorf("%w: %s", ErrUnsupportedEncoding, label)
}

// NewDecodingReader wraps r so it yields UTF-8 text decoded from label.
func NewDecodingReader(r io.Reader, label string) (io.Reader, error) {
	enc, err := LookupEncoding(label)
	if err != nil {
		return nil, err
	}

	return transform.NewReader(r, enc.NewDecoder()), nil
}

// NewCSVReader returns a csv.Reader configured with the loose dialect.
func NewCSVReader(r io.Reader, delimiter rune) *csv.Reader {
	if delimiter == 0 {
		delimiter = ','
	}

	reader := csv.NewReader(r)
	reader.Comma = delimiter
	reader.LazyQuotes = true
	reader.FieldsPerRecord = -1

	return reader
}

// ParseFile reads and parses path. The detected (or given) encoding is
// stored on the returned table.
func ParseFile(path string, opts ParseOptions) (*Table, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}

	return Parse(content, opts)
}

// Parse parses raw CSV bytes.
func Parse(content []byte, opts ParseOptions) (*Table, error) {
	label := opts.Encoding
	if label == "" {
		label = DetectEncoding(content)
	}

	enc, err := LookupEncoding(label)
	if err != nil {
		return nil, err
	}

	if enc == unicode.UTF8BOM && !utf8.Valid(content) {
		return nil, fmt.Errorf("%w: %s", ErrInvalidEncoding, label)
	}

	reader := NewCSVReader(transform.NewReader(bytes.NewReader(content), enc.NewDecoder()), opts.Delimiter)

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return nil, ErrEmptyFile
	}

	if err != nil {
		return nil, fmt.Errorf("failed to read header: %w", err)
	}

	columns, warnings := normalizeHeader(header)

	table := &Table{
		Columns:  columns,
		Encoding: label,
	}

	if !opts.SuppressHeaderWarnings {
		table.Warnings = warnings
	}

	lastLine := recordEndLine(reader, header)

	for rowNum := 1; ; rowNum++ {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}

		if err != nil {
			return nil, fmt.Errorf("failed to read row %d: %w", rowNum, err)
		}

		// encoding/csv drops empty lines; they are kept as all-empty rows.
		startLine, _ := reader.FieldPos(0)
		for ; lastLine+1 < startLine; lastLine++ {
			table.Rows = append(table.Rows, make([]string, len(columns)))
			rowNum++
		}

		lastLine = recordEndLine(reader, record)

		if len(record) > len(columns) {
			return nil, fmt.Errorf("%w: row %d has %d values, table has %d columns",
				ErrRowTooLong, rowNum, len(record), len(columns))
		}

		for len(record) < len(columns) {
			record = append(record, "")
		}

		table.Rows = append(table.Rows, record)
	}

	return table, nil
}

// recordEndLine returns the line the record just read ends on, counting
// newlines inside its last quoted field.
func recordEndLine(reader *csv.Reader, record []string) int {
	last := len(record) - 1
	line, _ := reader.FieldPos(last)

	return line + strings.Count(record[last], "\n")
}

// normalizeHeader names unnamed columns by position (a, b, ... z, aa, bb)
// and suffixes duplicates with _2, _3. It returns one warning per change.
func normalizeHeader(header []string) ([]string, []string) {
	columns := make([]string, len(header))
	seen := make(map[string]bool, len(header))

	var warnings []string

	for i, name := range header {
		if strings.TrimSpace(name) == "" {
			name = letterName(i)
			warnings = append(warnings, fmt.Sprintf("column %d has no name, using %q", i+1, name))
		}

		if seen[name] {
			original := name

			for n := 2; seen[name]; n++ {
				name = fmt.Sprintf("%s_%d", original, n)
			}

			warnings = append(warnings, fmt.Sprintf("duplicate column name %q renamed to %q", original, name))
		}

		seen[name] = true
		columns[i] = name
	}

	return columns, warnings
}

func letterName(index int) string {
	const letters = "abcdefghijklmnopqrstuvwxyz"

	return strings.Repeat(string(letters[index%len(letters)]), index/len(letters)+1)
}
