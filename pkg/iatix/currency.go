package iatix

import "time"

// Converter turns an amount in the given currency on the given date
// into another currency. A nil result means no rate is available.
type Converter func(amount float64, date time.Time, currency string) *float64

// Conversions holds the converters applied to transaction values.
// Either converter may be nil, in which case the converted column is
// left empty.
type Conversions struct {
	USD Converter
	EUR Converter
}
