package model

import (
	"errors"
	"fmt"
	"strings"
)

// MappingIncompleteError reports a required canonical field that did not
// resolve on one or both sides. It aborts a session before aggregation.
type MappingIncompleteError struct {
	Field Field
	Sides []Side
}

func (e *MappingIncompleteError) Error() string {
	sides := make([]string, len(e.Sides))
	for i, s := range e.Sides {
		sides[i] = string(s)
	}
	return fmt.Sprintf("mapping incomplete: required field %q is unmapped for %s", e.Field, strings.Join(sides, " and "))
}

// FileFormatError reports an input file that could not be parsed.
type FileFormatError struct {
	File   string
	Reason string
	Err    error
}

func (e *FileFormatError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("file %s: %s: %v", e.File, e.Reason, e.Err)
	}
	return fmt.Sprintf("file %s: %s", e.File, e.Reason)
}

func (e *FileFormatError) Unwrap() error {
	return e.Err
}

// UnknownFieldError reports a mapping target outside the canonical set.
type UnknownFieldError struct {
	Name string
}

func (e *UnknownFieldError) Error() string {
	return fmt.Sprintf("unknown canonical field %q", e.Name)
}

// ColumnNotFoundError reports a mapping that names a column the file lacks.
type ColumnNotFoundError struct {
	Field  Field
	Side   Side
	Column string
}

func (e *ColumnNotFoundError) Error() string {
	return fmt.Sprintf("field %q: %s file has no column %q", e.Field, e.Side, e.Column)
}

// ErrSessionNotFound is returned by session stores for unknown IDs.
var ErrSessionNotFound = errors.New("session not found")

// IsMappingError reports whether err stems from an unusable field mapping.
func IsMappingError(err error) bool {
	var mi *MappingIncompleteError
	var uf *UnknownFieldError
	var cn *ColumnNotFoundError
	return errors.As(err, &mi) || errors.As(err, &uf) || errors.As(err, &cn)
}

// IsFileFormatError reports whether err stems from an unparseable file.
func IsFileFormatError(err error) bool {
	var ff *FileFormatError
	return errors.As(err, &ff)
}
