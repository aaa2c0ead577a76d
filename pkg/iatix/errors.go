package iatix

import (
	"errors"
	"fmt"

	"github.com/Ramsey-B/fern/pkg/codelists"
)

// XMLError is a malformed token stream. It is fatal for the whole
// document; no partial results are produced.
type XMLError struct {
	Err error
}

func (e *XMLError) Error() string {
	return fmt.Sprintf("invalid xml document: %v", e.Err)
}

func (e *XMLError) Unwrap() error {
	return e.Err
}

// MissingValueError is a required value absent from an element. It is
// fatal for a single activity only when raised for the identifier
// field; everywhere else it is recovered with a default.
type MissingValueError struct {
	Path string
	Tag  string
}

func (e *MissingValueError) Error() string {
	return fmt.Sprintf("missing %q from %s", e.Path, e.Tag)
}

type InvalidDateError struct {
	Text string
}

func (e *InvalidDateError) Error() string {
	return fmt.Sprintf("could not parse %q as date", e.Text)
}

// IsRecoverable reports whether err is a recoverable standard
// violation, as opposed to a fatal document-level failure.
func IsRecoverable(err error) bool {
	var missing *MissingValueError
	var invalidDate *InvalidDateError
	var codelist *codelists.CodelistError
	return errors.As(err, &missing) || errors.As(err, &invalidDate) || errors.As(err, &codelist)
}
