// Package codelists resolves IATI controlled-vocabulary codes to typed
// values, keyed by the major version of the reporting standard.
package codelists

import (
	"database/sql/driver"
	"fmt"
)

type Name string

const (
	ActivityStatus      Name = "ActivityStatus"
	AidType             Name = "AidType"
	BudgetType          Name = "BudgetType"
	CollaborationType   Name = "CollaborationType"
	Country             Name = "Country"
	Currency            Name = "Currency"
	DisbursementChannel Name = "DisbursementChannel"
	FinanceType         Name = "FinanceType"
	FlowType            Name = "FlowType"
	Language            Name = "Language"
	OrganisationRole    Name = "OrganisationRole"
	OrganisationType    Name = "OrganisationType"
	PolicyMarker        Name = "PolicyMarker"
	PolicySignificance  Name = "PolicySignificance"
	Region              Name = "Region"
	Sector              Name = "Sector"
	TiedStatus          Name = "TiedStatus"
	TransactionType     Name = "TransactionType"
	Vocabulary          Name = "Vocabulary"
)

// Value is a resolved codelist entry. Label is empty for codelists that
// are validated structurally rather than against an embedded table.
type Value struct {
	Code  string
	Label string
}

func (v Value) String() string {
	return v.Code
}

func (v Value) Value() (driver.Value, error) {
	return v.Code, nil
}

func (v *Value) Scan(src any) error {
	switch s := src.(type) {
	case nil:
		v.Code = ""
		v.Label = ""
		return nil
	case string:
		v.Code = s
		return nil
	case []byte:
		v.Code = string(s)
		return nil
	default:
		return fmt.Errorf("codelists.Value.Scan: expected string, got %T", src)
	}
}

type CodelistError struct {
	Codelist     Name
	MajorVersion string
	Code         string
}

func (e *CodelistError) Error() string {
	if e.Code == "" {
		return fmt.Sprintf("no code given for codelist %s (major version %s)", e.Codelist, e.MajorVersion)
	}
	return fmt.Sprintf("%q is not a valid code for codelist %s (major version %s)", e.Code, e.Codelist, e.MajorVersion)
}

// Resolve maps a raw code string to a codelist value. It returns a
// *CodelistError when the code is empty or unknown for the given
// codelist and major version.
func Resolve(majorVersion string, list Name, code string) (*Value, error) {
	if code == "" {
		return nil, &CodelistError{Codelist: list, MajorVersion: majorVersion, Code: code}
	}

	tables, ok := registry[majorVersion]
	if !ok {
		return nil, &CodelistError{Codelist: list, MajorVersion: majorVersion, Code: code}
	}

	m, ok := tables[list]
	if !ok {
		return nil, &CodelistError{Codelist: list, MajorVersion: majorVersion, Code: code}
	}

	if m.codes != nil {
		if label, ok := m.codes[code]; ok {
			return &Value{Code: code, Label: label}, nil
		}
	}
	if m.pattern != nil && m.pattern.MatchString(code) {
		return &Value{Code: code}, nil
	}

	return nil, &CodelistError{Codelist: list, MajorVersion: majorVersion, Code: code}
}
