package client

import (
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strings"
)

// Element is one node of a parsed Solr XML response.
type Element struct {
	Tag      string
	Attrs    map[string]string
	Text     string
	Children []*Element
}

// Value returns the trimmed text content of the element and its descendants.
func (e *Element) Value() string {
	if e == nil {
		return ""
	}
	if len(e.Children) == 0 {
		return strings.TrimSpace(e.Text)
	}
	var sb strings.Builder
	sb.WriteString(e.Text)
	for _, c := range e.Children {
		sb.WriteString(c.Value())
	}
	return strings.TrimSpace(sb.String())
}

// Response is a parsed Solr XML response document.
type Response struct {
	Root *Element
}

// ParseResponse builds an element tree from an XML document.
func ParseResponse(body []byte) (*Response, error) {
	dec := xml.NewDecoder(bytes.NewReader(body))

	var (
		root  *Element
		stack []*Element
	)
	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}
		switch t := tok.(type) {
		case xml.StartElement:
			el := &Element{Tag: t.Name.Local, Attrs: make(map[string]string, len(t.Attr))}
			for _, a := range t.Attr {
				el.Attrs[a.Name.Local] = a.Value
			}
			if len(stack) > 0 {
				parent := stack[len(stack)-1]
				parent.Children = append(parent.Children, el)
			} else if root == nil {
				root = el
			}
			stack = append(stack, el)
		case xml.EndElement:
			if len(stack) > 0 {
				stack = stack[:len(stack)-1]
			}
		case xml.CharData:
			if len(stack) > 0 {
				stack[len(stack)-1].Text += string(t)
			}
		}
	}
	if root == nil {
		return nil, fmt.Errorf("empty XML document")
	}
	return &Response{Root: root}, nil
}

// Descendants returns every element with the given tag in document order,
// including the root.
func (r *Response) Descendants(tag string) []*Element {
	if r == nil || r.Root == nil {
		return nil
	}
	var out []*Element
	var walk func(e *Element)
	walk = func(e *Element) {
		if e.Tag == tag {
			out = append(out, e)
		}
		for _, c := range e.Children {
			walk(c)
		}
	}
	walk(r.Root)
	return out
}

// Find returns the first element with the given tag whose name attribute
// matches name. Names are compared after trimming surrounding whitespace.
func (r *Response) Find(tag, name string) *Element {
	name = strings.TrimSpace(name)
	for _, e := range r.Descendants(tag) {
		if v, ok := e.Attrs["name"]; ok && strings.TrimSpace(v) == name {
			return e
		}
	}
	return nil
}

// Value returns the text of the element found by Find, or "" when absent.
func (r *Response) Value(tag, name string) string {
	return r.Find(tag, name).Value()
}

// Attr returns attribute attr of the element found by Find, or "" when absent.
func (r *Response) Attr(tag, name, attr string) string {
	e := r.Find(tag, name)
	if e == nil {
		return ""
	}
	return e.Attrs[attr]
}
