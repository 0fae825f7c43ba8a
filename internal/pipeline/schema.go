package pipeline

import (
	"context"
	"sync"

	"irve/internal/validator"
)

// LazySchema loads the schema validator on first use. A load failure is
// kept and returned for every file.
type LazySchema struct {
	path string
	once sync.Once
	v    *validator.SchemaValidator
	err  error
}

// NewLazySchema creates a checker for the schema at path.
func NewLazySchema(path string) *LazySchema {
	return &LazySchema{path: path}
}

// Validate implements SchemaChecker.
func (l *LazySchema) Validate(ctx context.Context, source, encoding string) (*validator.Report, error) {
	l.once.Do(func() {
		l.v, l.err = validator.NewSchemaValidator(l.path)
	})

	if l.err != nil {
		return nil, l.err
	}

	return l.v.Validate(ctx, source, encoding)
}
