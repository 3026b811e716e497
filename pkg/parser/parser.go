// Package parser turns raw IATI XML documents into lightweight activity
// candidates for preview, or one fully-parsed activity on demand.
//
// The document is tokenized once into per-activity byte spans (an
// arena+index split): metadata extraction decodes each span into a shallow
// structure, and the full nested parse re-decodes only the requested span.
// Large documents never hold every activity's full structure in memory.
package parser

import (
	"bytes"
	"encoding/xml"
	"io"
	"strconv"
	"strings"

	"github.com/openaid/aidsync/pkg/errors"
	"github.com/openaid/aidsync/pkg/iati"
)

// rootElement is the required document root for an activities file.
const rootElement = "iati-activities"

// activityElement is the per-activity container element.
const activityElement = "iati-activity"

// span is the byte range of one activity element in the source document.
type span struct {
	start int64
	end   int64
}

// Document is a loaded import document with its per-activity index.
// A Document is immutable after Load and safe for concurrent reads.
type Document struct {
	data  []byte
	spans []span

	// Version is the iati-activities version attribute, when present.
	Version string
}

// Load reads the whole document and builds the per-activity span index.
// The document must be well-formed XML rooted at iati-activities; a
// document-level failure returns a ParseError with index -1.
func Load(r io.Reader) (*Document, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, errors.NewParseError(-1, "reading document", err)
	}
	return LoadBytes(data)
}

// LoadBytes builds a Document from in-memory content, for pasted
// fragments and tests.
func LoadBytes(data []byte) (*Document, error) {
	doc := &Document{data: data}

	// Non-strict tokenization lets the span scan ride over activity-local
	// garbage such as unknown entities; the per-activity decode is strict,
	// so that garbage fails exactly one candidate instead of the document.
	dec := xml.NewDecoder(bytes.NewReader(data))
	dec.Strict = false
	depth := 0
	sawRoot := false
	var current span
	inActivity := false

	for {
		// The offset before the next token is where that token starts;
		// any leading whitespace is consumed as a separate CharData token.
		offset := dec.InputOffset()
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			if !sawRoot {
				return nil, errors.NewParseError(-1, "malformed XML", err)
			}
			// Keep the spans indexed so far; the truncated remainder is
			// reported as a document-level error alongside them.
			return doc, errors.NewParseError(len(doc.spans), "document truncated or malformed after this activity", err)
		}

		switch t := tok.(type) {
		case xml.StartElement:
			if depth == 0 {
				if t.Name.Local != rootElement {
					return nil, errors.NewParseError(-1, "root element is <"+t.Name.Local+">, expected <"+rootElement+">", nil)
				}
				sawRoot = true
				for _, attr := range t.Attr {
					if attr.Name.Local == "version" {
						doc.Version = attr.Value
					}
				}
			}
			if depth == 1 && t.Name.Local == activityElement {
				inActivity = true
				current = span{start: offset}
			}
			depth++
		case xml.EndElement:
			depth--
			if depth == 1 && inActivity && t.Name.Local == activityElement {
				current.end = dec.InputOffset()
				doc.spans = append(doc.spans, current)
				inActivity = false
			}
		}
	}

	if !sawRoot {
		return nil, errors.NewParseError(-1, "empty document", nil)
	}
	return doc, nil
}

// Count returns the number of activity elements in the document.
func (d *Document) Count() int {
	return len(d.spans)
}

// Count structurally scans a document and returns the number of activity
// elements without building an index or parsing any activity content.
func Count(r io.Reader) (int, error) {
	dec := xml.NewDecoder(r)
	dec.Strict = false
	depth := 0
	count := 0
	sawRoot := false

	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return 0, errors.NewParseError(-1, "malformed XML", err)
		}

		switch t := tok.(type) {
		case xml.StartElement:
			if depth == 0 {
				if t.Name.Local != rootElement {
					return 0, errors.NewParseError(-1, "root element is <"+t.Name.Local+">, expected <"+rootElement+">", nil)
				}
				sawRoot = true
			}
			if depth == 1 && t.Name.Local == activityElement {
				count++
			}
			depth++
		case xml.EndElement:
			depth--
		}
	}

	if !sawRoot {
		return 0, errors.NewParseError(-1, "empty document", nil)
	}
	return count, nil
}

// activity returns the raw bytes of one activity element.
func (d *Document) activity(index int) ([]byte, error) {
	if index < 0 || index >= len(d.spans) {
		return nil, errors.NewParseError(index, "activity index out of range", nil)
	}
	s := d.spans[index]
	return d.data[s.start:s.end], nil
}

// parseAmount fills Value.Amount from the raw element text. A raw value
// that does not parse as a decimal leaves Amount nil: absent, not zero.
func parseAmount(v *iati.Value) {
	raw := strings.TrimSpace(v.Raw)
	if raw == "" {
		return
	}
	amount, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return
	}
	v.Amount = &amount
}
