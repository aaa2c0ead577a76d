package iatix

import (
	"regexp"
	"strings"
)

// Element is one parsed XML element. The tree keeps only what the
// record builders consume: tag, attributes, text and child order.
type Element struct {
	Tag      string
	Attrs    map[string]string
	Text     string
	Children []*Element
}

// Find returns the first direct child with the given tag.
func (e *Element) Find(tag string) *Element {
	for _, child := range e.Children {
		if child.Tag == tag {
			return child
		}
	}
	return nil
}

// FindAll returns all direct children with the given tag, in document
// order.
func (e *Element) FindAll(tag string) []*Element {
	var out []*Element
	for _, child := range e.Children {
		if child.Tag == tag {
			out = append(out, child)
		}
	}
	return out
}

// Attr returns the named attribute and whether it is present.
func (e *Element) Attr(name string) (string, bool) {
	value, ok := e.Attrs[name]
	return value, ok
}

var segmentFilter = regexp.MustCompile(`^([^\[\]]+)\[@([^=]+)='([^']*)'\]$`)

// Strings evaluates a restricted xpath-like expression against the
// element and returns every matching string value in document order.
// Supported steps: child tags, tag[@attr='value'] filters, a trailing
// @attr, and a trailing text().
func (e *Element) Strings(path string) []string {
	segments := strings.Split(strings.TrimPrefix(path, "./"), "/")
	return matchStrings(e, segments)
}

func matchStrings(e *Element, segments []string) []string {
	if len(segments) == 0 {
		return nil
	}

	head := segments[0]
	rest := segments[1:]

	switch {
	case head == "text()":
		if strings.TrimSpace(e.Text) == "" {
			return nil
		}
		return []string{e.Text}
	case strings.HasPrefix(head, "@"):
		if value, ok := e.Attrs[head[1:]]; ok {
			return []string{value}
		}
		return nil
	}

	tag := head
	var filterAttr, filterValue string
	if m := segmentFilter.FindStringSubmatch(head); m != nil {
		tag = m[1]
		filterAttr = m[2]
		filterValue = m[3]
	}

	var out []string
	for _, child := range e.Children {
		if child.Tag != tag {
			continue
		}
		if filterAttr != "" {
			if value, ok := child.Attrs[filterAttr]; !ok || value != filterValue {
				continue
			}
		}
		out = append(out, matchStrings(child, rest)...)
	}
	return out
}

// ToMap converts the element subtree into the generic mapping shape
// used for the raw JSON column: attributes become plain keys, character
// data becomes a "text" key, repeated children become lists, and
// childless attribute-less elements collapse to their text.
func (e *Element) ToMap() any {
	if len(e.Attrs) == 0 && len(e.Children) == 0 {
		text := strings.TrimSpace(e.Text)
		if text == "" {
			return nil
		}
		return text
	}

	m := map[string]any{}
	for k, v := range e.Attrs {
		m[k] = v
	}
	if text := strings.TrimSpace(e.Text); text != "" {
		m["text"] = text
	}
	for _, child := range e.Children {
		value := child.ToMap()
		existing, ok := m[child.Tag]
		if !ok {
			m[child.Tag] = value
			continue
		}
		if list, ok := existing.([]any); ok {
			m[child.Tag] = append(list, value)
		} else {
			m[child.Tag] = []any{existing, value}
		}
	}
	return m
}
