package iatix

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func element(tag string, attrs map[string]string, text string, children ...*Element) *Element {
	if attrs == nil {
		attrs = map[string]string{}
	}
	return &Element{Tag: tag, Attrs: attrs, Text: text, Children: children}
}

func TestValReturnsFirstMatch(t *testing.T) {
	ele := element("iati-activity", nil, "",
		element("iati-identifier", nil, "GB-1"),
		element("iati-identifier", nil, "GB-2"),
	)

	value, err := Val(ele, "./iati-identifier/text()")
	require.NoError(t, err)
	assert.Equal(t, "GB-1", value)
}

func TestValMissingWithoutDefault(t *testing.T) {
	ele := element("iati-activity", nil, "")

	_, err := Val(ele, "./iati-identifier/text()")
	require.Error(t, err)

	var missing *MissingValueError
	require.ErrorAs(t, err, &missing)
	assert.Equal(t, "./iati-identifier/text()", missing.Path)
	assert.Equal(t, "iati-activity", missing.Tag)
}

func TestValMissingWithDefault(t *testing.T) {
	ele := element("iati-activity", nil, "")

	value, err := Val(ele, "./title/text()", "fallback")
	require.NoError(t, err)
	assert.Equal(t, "fallback", value)
}

func TestValWhitespaceOnlyTextIsMissing(t *testing.T) {
	ele := element("iati-activity", nil, "",
		element("title", nil, "   \n\t  "),
	)

	_, err := Val(ele, "./title/text()")
	assert.Error(t, err)
}

func TestValAttributeFilter(t *testing.T) {
	ele := element("iati-activity", nil, "",
		element("activity-date", map[string]string{"type": "1", "iso-date": "2023-01-15"}, ""),
		element("activity-date", map[string]string{"type": "2", "iso-date": "2023-02-01"}, ""),
	)

	value, err := Val(ele, "./activity-date[@type='2']/@iso-date")
	require.NoError(t, err)
	assert.Equal(t, "2023-02-01", value)
}

func TestParseDate(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  *time.Time
		fails bool
	}{
		{name: "iso date", input: "2023-06-15", want: date(2023, time.June, 15)},
		{name: "rfc3339 truncates to day", input: "2023-06-15T13:45:00Z", want: date(2023, time.June, 15)},
		{name: "datetime without zone", input: "2023-06-15T13:45:00", want: date(2023, time.June, 15)},
		{name: "day month year", input: "31 Dec 2016", want: date(2016, time.December, 31)},
		{name: "surrounding whitespace", input: "  2023-06-15  ", want: date(2023, time.June, 15)},
		{name: "iso date embedded in noise", input: "approx. 2023-06-15 (estimated)", want: date(2023, time.June, 15)},
		{name: "empty is not a date", input: "", want: nil},
		{name: "whitespace only is not a date", input: "   ", want: nil},
		{name: "unreadable", input: "next spring", fails: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseDate(tt.input)
			if tt.fails {
				require.Error(t, err)
				var invalid *InvalidDateError
				assert.ErrorAs(t, err, &invalid)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseDecimalToleratesSeparators(t *testing.T) {
	value, err := ParseDecimal(" 1,500,000.25 ")
	require.NoError(t, err)
	assert.Equal(t, 1500000.25, value)

	_, err = ParseDecimal("one million")
	assert.Error(t, err)
}

func TestDecimalValEmptyIsNil(t *testing.T) {
	ele := element("transaction", nil, "",
		element("value", nil, "  "),
	)

	value, err := DecimalVal(ele, "value/text()")
	require.NoError(t, err)
	assert.Nil(t, value)
}

func TestIntVal(t *testing.T) {
	ele := element("iati-activity", map[string]string{"hierarchy": "2"}, "")

	value, err := IntVal(ele, "@hierarchy")
	require.NoError(t, err)
	require.NotNil(t, value)
	assert.Equal(t, 2, *value)

	missing, err := IntVal(ele, "@missing")
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestToMapShapes(t *testing.T) {
	ele := element("iati-activity", map[string]string{"hierarchy": "1"}, "",
		element("iati-identifier", nil, "GB-1"),
		element("sector", map[string]string{"code": "14030"}, ""),
		element("sector", map[string]string{"code": "14050"}, ""),
	)

	m, ok := ele.ToMap().(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "1", m["hierarchy"])
	assert.Equal(t, "GB-1", m["iati-identifier"])

	sectors, ok := m["sector"].([]any)
	require.True(t, ok)
	require.Len(t, sectors, 2)
	first, ok := sectors[0].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "14030", first["code"])
}
