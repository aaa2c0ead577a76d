package models

import "fmt"

// Warning records a recovered field-level failure during parsing or
// reconciliation. Warnings never abort an activity; the offending field
// is substituted with its empty value and processing continues.
type Warning struct {
	Field          string
	IATIIdentifier string
	DatasetID      string
	ResourceURL    string
	Err            error
}

func (w Warning) String() string {
	return fmt.Sprintf("failed to import a valid %s in activity %s: %v", w.Field, w.IATIIdentifier, w.Err)
}
