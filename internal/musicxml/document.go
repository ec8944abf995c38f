package musicxml

import (
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
)

const xmlHeader = `<?xml version="1.0" encoding="UTF-8"?>` + "\n"

// Document is the in-memory score tree for one transposition call plus the
// prolog needed to write it back out. The engine owns no persistent copy;
// callers re-parse before reusing a document after a rewrite.
type Document struct {
	Path    string
	Doctype string
	Root    *Element
}

// Parse reads and decodes a score document from disk.
func Parse(path string) (*Document, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open score document: %w", err)
	}
	defer file.Close()

	doc, err := ParseReader(file)
	if err != nil {
		var formatErr *DocumentFormatError
		if errors.As(err, &formatErr) {
			formatErr.Path = path
		}
		return nil, err
	}
	doc.Path = path
	return doc, nil
}

// ParseReader decodes a score document from a stream. Malformed input is
// reported as a DocumentFormatError.
func ParseReader(r io.Reader) (*Document, error) {
	decoder := xml.NewDecoder(r)
	doc := &Document{}
	for {
		token, err := decoder.Token()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil, &DocumentFormatError{Err: errors.New("document has no root element")}
			}
			return nil, &DocumentFormatError{Err: err}
		}
		switch tok := token.(type) {
		case xml.Directive:
			directive := strings.TrimSpace(string(tok))
			if strings.HasPrefix(directive, "DOCTYPE") {
				doc.Doctype = directive
			}
		case xml.StartElement:
			root := &Element{}
			if err := root.UnmarshalXML(decoder, tok); err != nil {
				return nil, &DocumentFormatError{Err: err}
			}
			doc.Root = root
			return doc, nil
		}
	}
}

// Encode serializes the document, UTF-8 with a leading XML declaration and
// the original DOCTYPE when one was present.
func (d *Document) Encode(w io.Writer) error {
	if d == nil || d.Root == nil {
		return errors.New("document has no root element")
	}
	var buf bytes.Buffer
	buf.WriteString(xmlHeader)
	if d.Doctype != "" {
		buf.WriteString("<!")
		buf.WriteString(d.Doctype)
		buf.WriteString(">\n")
	}
	encoder := xml.NewEncoder(&buf)
	encoder.Indent("", "  ")
	if err := d.Root.MarshalXML(encoder, xml.StartElement{}); err != nil {
		return fmt.Errorf("encode score document: %w", err)
	}
	if err := encoder.Flush(); err != nil {
		return fmt.Errorf("flush score document: %w", err)
	}
	buf.WriteByte('\n')
	_, err := w.Write(buf.Bytes())
	return err
}

// WriteFile serializes the document to a new file at path.
func (d *Document) WriteFile(path string) error {
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return fmt.Errorf("create output document: %w", err)
	}
	if err := d.Encode(file); err != nil {
		_ = file.Close()
		return err
	}
	if err := file.Close(); err != nil {
		return fmt.Errorf("close output document: %w", err)
	}
	return nil
}
