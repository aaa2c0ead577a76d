package iatix

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/Ramsey-B/fern/pkg/database"
	"github.com/Ramsey-B/fern/pkg/models"
)

func TestSelectTitle(t *testing.T) {
	act := &models.Activity{
		Title: "column title",
		TitleAll: database.NewJSONB(map[string]string{
			"default": "default title",
			"fr":      "titre",
		}),
	}

	assert.Equal(t, "titre", SelectTitle(act, "fr"))
	assert.Equal(t, "default title", SelectTitle(act, "en"))

	bare := &models.Activity{Title: "column title"}
	assert.Equal(t, "column title", SelectTitle(bare, "en"))
}

func TestSelectDescription(t *testing.T) {
	act := &models.Activity{
		Description: "column description",
		DescriptionAll: database.NewJSONB(map[string]map[string]string{
			"default": {
				"1": "general text",
				"2": "objectives text",
			},
			"fr": {
				"2": "objectifs",
			},
		}),
	}

	// Default type picks the lowest numeric type code.
	assert.Equal(t, "general text", SelectDescription(act, "en", "default"))
	assert.Equal(t, "objectives text", SelectDescription(act, "en", "objectives"))
	assert.Equal(t, "objectifs", SelectDescription(act, "fr", "objectives"))
	assert.Equal(t, "", SelectDescription(act, "en", "other"))

	bare := &models.Activity{Description: "column description"}
	assert.Equal(t, "column description", SelectDescription(bare, "en", "default"))
}
