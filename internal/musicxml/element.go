package musicxml

import (
	"encoding/xml"
	"strings"
)

// Element is one node of the score document tree. Child order is
// significant and preserved across a parse/serialize round trip.
type Element struct {
	Name     string
	Attrs    []xml.Attr
	Text     string
	Children []*Element
}

// NewElement constructs a leaf element with the given text value.
func NewElement(name, text string) *Element {
	return &Element{Name: name, Text: text}
}

// Value returns the element's character data with surrounding whitespace
// trimmed.
func (e *Element) Value() string {
	return strings.TrimSpace(e.Text)
}

// SetValue replaces the element's character data.
func (e *Element) SetValue(text string) {
	e.Text = text
}

// Child returns the first direct child with the given local name, or nil.
func (e *Element) Child(name string) *Element {
	if e == nil {
		return nil
	}
	for _, child := range e.Children {
		if child.Name == name {
			return child
		}
	}
	return nil
}

// ChildIndex returns the index of the first direct child with the given
// name, or -1 when absent.
func (e *Element) ChildIndex(name string) int {
	if e == nil {
		return -1
	}
	for i, child := range e.Children {
		if child.Name == name {
			return i
		}
	}
	return -1
}

// ChildValue returns the trimmed text of the named direct child, or "".
func (e *Element) ChildValue(name string) string {
	child := e.Child(name)
	if child == nil {
		return ""
	}
	return child.Value()
}

// InsertChild places child at position i, clamping i into range.
func (e *Element) InsertChild(i int, child *Element) {
	if i < 0 {
		i = 0
	}
	if i > len(e.Children) {
		i = len(e.Children)
	}
	e.Children = append(e.Children, nil)
	copy(e.Children[i+1:], e.Children[i:])
	e.Children[i] = child
}

// RemoveChild deletes the first occurrence of child, reporting whether it
// was present.
func (e *Element) RemoveChild(child *Element) bool {
	for i, candidate := range e.Children {
		if candidate == child {
			e.Children = append(e.Children[:i], e.Children[i+1:]...)
			return true
		}
	}
	return false
}

// Walk visits the element and every descendant in document order. The
// visitor returns false to prune the subtree below the current element.
func (e *Element) Walk(visit func(*Element) bool) {
	if e == nil {
		return
	}
	if !visit(e) {
		return
	}
	for _, child := range e.Children {
		child.Walk(visit)
	}
}

// FindAll collects every descendant (including e itself) with the given
// local name, in document order.
func (e *Element) FindAll(name string) []*Element {
	var found []*Element
	e.Walk(func(el *Element) bool {
		if el.Name == name {
			found = append(found, el)
		}
		return true
	})
	return found
}

// FindFirst returns the first descendant with the given name, or nil.
func (e *Element) FindFirst(name string) *Element {
	var found *Element
	e.Walk(func(el *Element) bool {
		if found != nil {
			return false
		}
		if el.Name == name {
			found = el
			return false
		}
		return true
	})
	return found
}

// UnmarshalXML decodes an element and its subtree, matching names by
// their local part and accumulating character data.
func (e *Element) UnmarshalXML(d *xml.Decoder, start xml.StartElement) error {
	e.Name = start.Name.Local
	if len(start.Attr) > 0 {
		e.Attrs = make([]xml.Attr, 0, len(start.Attr))
		for _, attr := range start.Attr {
			if attr.Name.Space == "xmlns" || attr.Name.Local == "xmlns" {
				continue
			}
			e.Attrs = append(e.Attrs, xml.Attr{Name: xml.Name{Local: attr.Name.Local}, Value: attr.Value})
		}
	}
	for {
		token, err := d.Token()
		if err != nil {
			return err
		}
		switch tok := token.(type) {
		case xml.StartElement:
			child := &Element{}
			if err := child.UnmarshalXML(d, tok); err != nil {
				return err
			}
			e.Children = append(e.Children, child)
		case xml.CharData:
			e.Text += string(tok)
		case xml.EndElement:
			return nil
		}
	}
}

// MarshalXML encodes the element and its subtree. Leaf text is emitted
// trimmed; container whitespace is left to the encoder's indentation.
func (e *Element) MarshalXML(enc *xml.Encoder, _ xml.StartElement) error {
	start := xml.StartElement{Name: xml.Name{Local: e.Name}, Attr: e.Attrs}
	if err := enc.EncodeToken(start); err != nil {
		return err
	}
	if text := strings.TrimSpace(e.Text); text != "" {
		if err := enc.EncodeToken(xml.CharData(text)); err != nil {
			return err
		}
	}
	for _, child := range e.Children {
		if err := child.MarshalXML(enc, xml.StartElement{}); err != nil {
			return err
		}
	}
	return enc.EncodeToken(xml.EndElement{Name: start.Name})
}
