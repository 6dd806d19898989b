package adapter

import (
	"fmt"

	"socialstats/internal/model"
)

// RecordError reports one malformed record. The record is skipped and
// extraction continues.
type RecordError struct {
	Entry  string
	Record string
	Err    error
}

func (e *RecordError) Error() string {
	if e.Record == "" {
		return fmt.Sprintf("%s: %v", e.Entry, e.Err)
	}
	return fmt.Sprintf("%s: record %s: %v", e.Entry, e.Record, e.Err)
}

func (e *RecordError) Unwrap() error { return e.Err }

// StructureError reports a missing or unreadable required file. No stats are
// produced for the package.
type StructureError struct {
	Platform model.Platform
	Path     string
	Err      error
}

func (e *StructureError) Error() string {
	return fmt.Sprintf("%s package %s: %v", e.Platform, e.Path, e.Err)
}

func (e *StructureError) Unwrap() error { return e.Err }

func structural(p model.Platform, path string, err error) error {
	return &StructureError{Platform: p, Path: path, Err: err}
}
