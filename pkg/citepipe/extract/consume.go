package extract

import (
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strings"

	"golang.org/x/net/html/charset"
)

// Consume reads the article XML from r and drives the extractor with its
// element and text events. The decoder is deliberately lax: archive files
// carry HTML entities, mixed namespaces and occasional malformed markup.
func (e *Extractor) Consume(r io.Reader) error {
	dec := xml.NewDecoder(r)
	dec.Strict = false
	dec.AutoClose = xml.HTMLAutoClose
	dec.Entity = xml.HTMLEntity
	dec.CharsetReader = charset.NewReaderLabel

	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			return e.EndDocument()
		}
		if err != nil {
			return fmt.Errorf("decoding %s: %w", e.doc.File, err)
		}
		switch t := tok.(type) {
		case xml.StartElement:
			attrs := make(map[string]string, len(t.Attr))
			for _, a := range t.Attr {
				attrs[a.Name.Local] = a.Value
			}
			if err := e.StartElement(elementName(t.Name), attrs); err != nil {
				return err
			}
		case xml.EndElement:
			if err := e.EndElement(elementName(t.Name)); err != nil {
				return err
			}
		case xml.CharData:
			e.Text(string(t))
		}
	}
}

// elementName flattens the decoder's namespace handling back to the
// prefixed form the handlers expect. Only MathML matters in practice;
// the namespace may arrive as the bare prefix when its declaration is
// missing, which archive files often get wrong.
func elementName(n xml.Name) string {
	if n.Space == "mml" || strings.HasSuffix(n.Space, "/Math/MathML") {
		return "mml:" + n.Local
	}
	return n.Local
}
