package models

// FileStatus is the terminal state of one downloaded CSV file.
type FileStatus string

// File validation outcomes.
const (
	StatusPass           FileStatus = "pass"
	StatusFail           FileStatus = "fail"
	StatusParseError     FileStatus = "parse_error"
	StatusMissingPivot   FileStatus = "missing_pivot"
	StatusValidatorError FileStatus = "validator_error"
)

// FileResult is the validation outcome for one downloaded file.
type FileResult struct {
	Path          string
	Dataset       string
	Encoding      string
	Status        FileStatus
	Error         string
	MissingPivots []string
	RowCount      int
	SchemaErrors  int
}

// Valid reports whether the file passed schema validation.
func (r *FileResult) Valid() bool {
	return r.Status == StatusPass
}

// Reported reports whether the file reached the pass/fail report step.
func (r *FileResult) Reported() bool {
	return r.Status == StatusPass || r.Status == StatusFail
}
