package iatix

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/Ramsey-B/fern/pkg/codelists"
)

func TestIsRecoverable(t *testing.T) {
	assert.True(t, IsRecoverable(&MissingValueError{Path: "@ref", Tag: "reporting-org"}))
	assert.True(t, IsRecoverable(&InvalidDateError{Text: "next spring"}))
	assert.True(t, IsRecoverable(&codelists.CodelistError{Codelist: codelists.Currency, MajorVersion: "2", Code: "XXXX"}))

	assert.False(t, IsRecoverable(&XMLError{Err: errors.New("unexpected EOF")}))
	assert.False(t, IsRecoverable(errors.New("connection refused")))
}

func TestXMLErrorUnwraps(t *testing.T) {
	inner := errors.New("unexpected EOF")
	err := &XMLError{Err: inner}

	assert.ErrorIs(t, err, inner)
	assert.Contains(t, err.Error(), "unexpected EOF")
}
