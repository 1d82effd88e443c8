package transform

import (
	"bytes"
	"encoding/xml"
	"io"
	"strings"

	"github.com/Xhuk/ContinuityBridge.poc-sub005/internal/domain"
)

// element is a generic XML tree node. The transformer works on this shape so
// mapping paths can address any vendor document without a schema.
type element struct {
	name     string
	attrs    map[string]string
	children []*element
	text     string
}

// parseXML walks the token stream into an element tree rooted at the
// document element.
func parseXML(raw []byte) (*element, error) {
	decoder := xml.NewDecoder(bytes.NewReader(raw))

	var root *element
	var stack []*element

	for {
		token, err := decoder.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, &domain.ValidationError{Field: "xml", Reason: err.Error()}
		}

		switch t := token.(type) {
		case xml.StartElement:
			el := &element{name: t.Name.Local}
			if len(t.Attr) > 0 {
				el.attrs = make(map[string]string, len(t.Attr))
				for _, attr := range t.Attr {
					el.attrs[attr.Name.Local] = attr.Value
				}
			}
			if len(stack) == 0 {
				if root != nil {
					return nil, &domain.ValidationError{Field: "xml", Reason: "multiple document elements"}
				}
				root = el
			} else {
				parent := stack[len(stack)-1]
				parent.children = append(parent.children, el)
			}
			stack = append(stack, el)
		case xml.EndElement:
			if len(stack) == 0 {
				return nil, &domain.ValidationError{Field: "xml", Reason: "unbalanced end element"}
			}
			stack = stack[:len(stack)-1]
		case xml.CharData:
			if len(stack) > 0 {
				stack[len(stack)-1].text += string(t)
			}
		}
	}

	if root == nil {
		return nil, &domain.ValidationError{Field: "xml", Reason: "document has no elements"}
	}
	if len(stack) != 0 {
		return nil, &domain.ValidationError{Field: "xml", Reason: "unclosed elements"}
	}
	return root, nil
}

// lookup resolves a slash-separated path against the tree. The leading
// segment may name the root element or the first child; a final "@name"
// segment addresses an attribute. Returns the trimmed text content.
func (e *element) lookup(path string) (string, bool) {
	segments := strings.Split(path, "/")
	if len(segments) == 0 {
		return "", false
	}

	current := e
	start := 0
	if segments[0] == e.name {
		start = 1
	}

	for i := start; i < len(segments); i++ {
		segment := segments[i]

		if strings.HasPrefix(segment, "@") {
			if i != len(segments)-1 {
				return "", false
			}
			value, ok := current.attrs[segment[1:]]
			return value, ok
		}

		child := current.childByName(segment)
		if child == nil {
			return "", false
		}
		current = child
	}

	return strings.TrimSpace(current.text), true
}

func (e *element) childByName(name string) *element {
	for _, child := range e.children {
		if child.name == name {
			return child
		}
	}
	return nil
}
