package iatix

import (
	"strconv"

	"github.com/Ramsey-B/fern/pkg/models"
)

// descriptionTypeCodes maps reader-facing description type names onto
// the coded keys the builders store.
var descriptionTypeCodes = map[string]string{
	"default":       "0",
	"general":       "1",
	"objectives":    "2",
	"target_groups": "3",
	"other":         "4",
}

// SelectTitle picks the most appropriate stored title for a locale:
// the locale's own entry, then the document default, then the plain
// title column.
func SelectTitle(act *models.Activity, locale string) string {
	titles := act.TitleAll.Data
	if title, ok := titles[locale]; ok {
		return title
	}
	if title, ok := titles["default"]; ok {
		return title
	}
	return act.Title
}

// SelectDescription picks the most appropriate stored description for a
// locale and description type name ("default", "general", "objectives",
// "target_groups", "other"). Asking for the default type selects the
// most general description published, lowest numeric type code first.
func SelectDescription(act *models.Activity, locale, descTypeName string) string {
	all := act.DescriptionAll.Data
	if byType, ok := all[locale]; ok {
		return selectDescriptionType(byType, descTypeName)
	}
	if byType, ok := all["default"]; ok {
		return selectDescriptionType(byType, descTypeName)
	}
	return act.Description
}

func selectDescriptionType(byType map[string]string, descTypeName string) string {
	if descTypeName == "default" {
		return mostGeneralDescription(byType)
	}
	code, ok := descriptionTypeCodes[descTypeName]
	if !ok {
		return ""
	}
	return byType[code]
}

// mostGeneralDescription returns the entry with the lowest numeric type
// code; non-numeric type codes are ignored unless nothing else matches.
func mostGeneralDescription(byType map[string]string) string {
	var bestKey string
	bestCode := 0
	found := false
	for key := range byType {
		code, err := strconv.Atoi(key)
		if err != nil {
			if !found && bestKey == "" {
				bestKey = key
			}
			continue
		}
		if !found || code < bestCode {
			bestKey = key
			bestCode = code
			found = true
		}
	}
	return byType[bestKey]
}
