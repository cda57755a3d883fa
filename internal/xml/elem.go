package xml

import (
	"sort"

	"github.com/beevik/etree"
)

// Elem is a caller-supplied XML fragment: MKCOL/MKCALENDAR property values
// and other bodies whose shape the library does not know in advance.
type Elem struct {
	Name     string
	Attrs    map[string]string
	Text     string
	CDATA    string
	Children []Elem
}

// NewElem builds an element with optional children.
func NewElem(name string, children ...Elem) Elem {
	return Elem{Name: name, Children: children}
}

// TextElem builds a leaf element holding character data.
func TextElem(name, text string) Elem {
	return Elem{Name: name, Text: text}
}

// CDATAElem builds a leaf element holding a CDATA section.
func CDATAElem(name, data string) Elem {
	return Elem{Name: name, CDATA: data}
}

// appendTo renders the fragment under parent, resolving namespace prefixes
// the same way request builders do. Attributes are emitted in sorted order
// so documents are reproducible.
func (e Elem) appendTo(parent *etree.Element, defaultPrefix string) *etree.Element {
	elem := CreateElementWithNS(parent, e.Name, defaultPrefix)
	keys := make([]string, 0, len(e.Attrs))
	for k := range e.Attrs {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		elem.CreateAttr(k, e.Attrs[k])
	}
	if e.CDATA != "" {
		elem.CreateCData(e.CDATA)
	} else if e.Text != "" {
		elem.SetText(e.Text)
	}
	for _, child := range e.Children {
		child.appendTo(elem, defaultPrefix)
	}
	return elem
}
