package iatix

import (
	"bytes"
	"encoding/xml"
	"errors"
	"io"
	"strings"

	"github.com/Gobusters/ectologger"
	"github.com/Ramsey-B/fern/pkg/database"
	"github.com/Ramsey-B/fern/pkg/models"
)

// ActivityReader is a forward-only cursor over the iati-activity
// elements of one document. Each call to Next consumes one activity
// subtree and releases it before returning.
//
// Next returns io.EOF at the end of the document and *XMLError on a
// malformed token stream. Activities whose identifier is missing are
// logged and skipped; all other field failures degrade to warnings.
type ActivityReader struct {
	data    []byte
	decoder *xml.Decoder
	builder *builder
	res     models.ResourceContext
	logger  ectologger.Logger
	started bool
}

func NewActivityReader(data []byte, res models.ResourceContext, conv Conversions, logger ectologger.Logger) *ActivityReader {
	return &ActivityReader{
		data:    data,
		decoder: xml.NewDecoder(bytes.NewReader(data)),
		builder: newBuilder(res, conv, logger),
		res:     res,
		logger:  logger,
	}
}

// Warnings returns every field-level warning recorded so far.
func (r *ActivityReader) Warnings() []models.Warning {
	return r.builder.warnings
}

func (r *ActivityReader) Next() (*models.Activity, error) {
	for {
		preOffset := r.decoder.InputOffset()
		token, err := r.decoder.Token()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil, io.EOF
			}
			return nil, &XMLError{Err: err}
		}

		start, ok := token.(xml.StartElement)
		if !ok {
			continue
		}

		switch start.Name.Local {
		case "iati-activities":
			if !r.started {
				r.started = true
				for _, attr := range start.Attr {
					if attr.Name.Local == "version" {
						version := attr.Value
						r.builder.version = &version
						if strings.HasPrefix(version, "2.") {
							r.builder.major = "2"
						}
					}
				}
			}
		case "iati-activity":
			rawStart := rawElementStart(r.data, preOffset)
			ele, err := r.readElement(start)
			if err != nil {
				return nil, &XMLError{Err: err}
			}
			rawEnd := r.decoder.InputOffset()
			raw := string(r.data[rawStart:rawEnd])

			act, buildErr := r.builder.buildActivity(ele)
			if buildErr != nil {
				if r.logger != nil {
					r.logger.WithFields(map[string]any{
						"channel":  "failed_activity",
						"dataset":  r.res.DatasetID,
						"resource": r.res.URL,
					}).WithError(buildErr).Errorf("failed to import a valid activity: %v", buildErr)
				}
				continue
			}

			act.RawXML = raw
			act.RawJSON = database.NewJSONB(rawJSON(ele, r.builder.version))
			return act, nil
		}
	}
}

// readElement consumes the subtree rooted at start into an Element.
func (r *ActivityReader) readElement(start xml.StartElement) (*Element, error) {
	ele := &Element{
		Tag:   start.Name.Local,
		Attrs: make(map[string]string, len(start.Attr)),
	}
	for _, attr := range start.Attr {
		ele.Attrs[attrKey(attr.Name)] = attr.Value
	}

	for {
		token, err := r.decoder.Token()
		if err != nil {
			return nil, err
		}
		switch t := token.(type) {
		case xml.StartElement:
			child, err := r.readElement(t)
			if err != nil {
				return nil, err
			}
			ele.Children = append(ele.Children, child)
		case xml.CharData:
			ele.Text += string(t)
		case xml.EndElement:
			return ele, nil
		}
	}
}

const xmlNamespace = "http://www.w3.org/XML/1998/namespace"

func attrKey(name xml.Name) string {
	switch name.Space {
	case "":
		return name.Local
	case "xml", xmlNamespace:
		return "xml:" + name.Local
	default:
		return name.Space + ":" + name.Local
	}
}

// rawElementStart finds the byte offset of the '<' that opens the
// element whose token ended at the decoder position following
// tokenStart.
func rawElementStart(data []byte, tokenStart int64) int {
	idx := bytes.IndexByte(data[tokenStart:], '<')
	if idx < 0 {
		return int(tokenStart)
	}
	return int(tokenStart) + idx
}

// rawJSON is the generic mapping representation of one activity,
// annotated with the document version it was declared under.
func rawJSON(ele *Element, version *string) map[string]any {
	out := map[string]any{
		ele.Tag: ele.ToMap(),
	}
	if version != nil {
		out["iati-extra:version"] = *version
	} else {
		out["iati-extra:version"] = nil
	}
	return out
}

// ReadAll drains the reader, returning every activity in document
// order. A fatal *XMLError aborts with no partial results.
func (r *ActivityReader) ReadAll() ([]*models.Activity, error) {
	var out []*models.Activity
	for {
		act, err := r.Next()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return out, nil
			}
			return nil, err
		}
		out = append(out, act)
	}
}

// DocumentMetadata extracts the declared standard version from the
// document root without building any records. It returns nil when no
// version is declared or the root never appears.
func DocumentMetadata(data []byte) *string {
	decoder := xml.NewDecoder(bytes.NewReader(data))
	for {
		token, err := decoder.Token()
		if err != nil {
			return nil
		}
		if start, ok := token.(xml.StartElement); ok {
			if start.Name.Local != "iati-activities" {
				continue
			}
			for _, attr := range start.Attr {
				if attr.Name.Local == "version" {
					version := attr.Value
					return &version
				}
			}
			return nil
		}
	}
}
