package iatix

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

// textPath is the per-major-version location of human readable text
// inside an element. Version 1 keeps text directly on the element,
// version 2 nests it in narrative children.
var textPath = map[string]string{
	"1": "text()",
	"2": "narrative/text()",
}

// Val returns the first string the path matches within ele. When the
// path matches nothing, the optional default is returned; with no
// default the field is reported missing.
func Val(ele *Element, path string, def ...string) (string, error) {
	values := ele.Strings(path)
	if len(values) > 0 {
		return values[0], nil
	}
	if len(def) > 0 {
		return def[0], nil
	}
	return "", &MissingValueError{Path: path, Tag: ele.Tag}
}

var dateLayouts = []string{
	"2006-01-02",
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05",
	"2006-01-02Z07:00",
	"02 Jan 2006",
	"January 2, 2006",
	"02/01/2006",
}

var embeddedISODate = regexp.MustCompile(`\d{4}-\d{2}-\d{2}`)

// ParseDate parses the loose date formats seen in published documents.
// An empty string is not a date and yields nil; a non-empty string that
// cannot be read fails with *InvalidDateError.
func ParseDate(text string) (*time.Time, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, nil
	}

	for _, layout := range dateLayouts {
		if parsed, err := time.Parse(layout, text); err == nil {
			day := time.Date(parsed.Year(), parsed.Month(), parsed.Day(), 0, 0, 0, 0, time.UTC)
			return &day, nil
		}
	}

	// Salvage an ISO date embedded in surrounding noise.
	if match := embeddedISODate.FindString(text); match != "" {
		if parsed, err := time.Parse("2006-01-02", match); err == nil {
			day := time.Date(parsed.Year(), parsed.Month(), parsed.Day(), 0, 0, 0, 0, time.UTC)
			return &day, nil
		}
	}

	return nil, &InvalidDateError{Text: text}
}

// Date resolves path to a string and parses it as a date. A path with
// no match yields nil.
func Date(ele *Element, path string) (*time.Time, error) {
	text, err := Val(ele, path, "")
	if err != nil {
		return nil, err
	}
	return ParseDate(text)
}

// ParseDecimal reads a decimal number, tolerating thousands separators.
func ParseDecimal(text string) (float64, error) {
	return strconv.ParseFloat(strings.ReplaceAll(strings.TrimSpace(text), ",", ""), 64)
}

// ParseInt reads an integer, tolerating thousands separators.
func ParseInt(text string) (int, error) {
	return strconv.Atoi(strings.ReplaceAll(strings.TrimSpace(text), ",", ""))
}

// DecimalVal resolves path to a string and parses it as a decimal. A
// path with no match or an empty match yields nil.
func DecimalVal(ele *Element, path string) (*float64, error) {
	text, err := Val(ele, path, "")
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(text) == "" {
		return nil, nil
	}
	value, err := ParseDecimal(text)
	if err != nil {
		return nil, err
	}
	return &value, nil
}

// IntVal resolves path to a string and parses it as an integer. A path
// with no match or an empty match yields nil.
func IntVal(ele *Element, path string) (*int, error) {
	text, err := Val(ele, path, "")
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(text) == "" {
		return nil, nil
	}
	value, err := ParseInt(text)
	if err != nil {
		return nil, err
	}
	return &value, nil
}
