package xml

import "github.com/beevik/etree"

// PropfindRequest represents a PROPFIND request
type PropfindRequest struct {
	Prop      []string
	PropNames bool
	AllProp   bool
	Include   []string
}

// ToXML converts a PropfindRequest to an XML document
func (r *PropfindRequest) ToXML() *etree.Document {
	doc := newDocument()
	root := doc.CreateElement("propfind")
	root.Space = "d"
	AddSelectedNamespaces(doc, DAV, CalDAV, CardDAV, CalendarServer, AppleICal)

	if r.PropNames {
		CreateElementWithNS(root, "propname", "d")
	} else if r.AllProp {
		CreateElementWithNS(root, "allprop", "d")
		if len(r.Include) > 0 {
			include := CreateElementWithNS(root, "include", "d")
			for _, name := range r.Include {
				CreateElementWithNS(include, name, "d")
			}
		}
	} else {
		prop := CreateElementWithNS(root, "prop", "d")
		for _, name := range r.Prop {
			CreateElementWithNS(prop, name, "d")
		}
	}

	return doc
}

// MkcolRequest represents an extended MKCOL request (RFC 5689). With no
// props the request is sent with an empty body instead.
type MkcolRequest struct {
	Props []Elem
}

// ToXML converts a MkcolRequest to an XML document, or nil when no props
// are set.
func (r *MkcolRequest) ToXML() *etree.Document {
	if len(r.Props) == 0 {
		return nil
	}
	doc := newDocument()
	root := doc.CreateElement("mkcol")
	root.Space = "d"
	AddSelectedNamespaces(doc, DAV, CalDAV, CardDAV, CalendarServer, AppleICal)

	set := CreateElementWithNS(root, "set", "d")
	prop := CreateElementWithNS(set, "prop", "d")
	for _, p := range r.Props {
		p.appendTo(prop, "d")
	}
	return doc
}

// MkcalendarRequest represents a MKCALENDAR request (RFC 4791 §5.3.1)
type MkcalendarRequest struct {
	Props []Elem
}

// ToXML converts a MkcalendarRequest to an XML document
func (r *MkcalendarRequest) ToXML() *etree.Document {
	doc := newDocument()
	root := doc.CreateElement("mkcalendar")
	root.Space = "c"
	AddSelectedNamespaces(doc, DAV, CalDAV, CalendarServer, AppleICal)

	if len(r.Props) > 0 {
		set := CreateElementWithNS(root, "set", "d")
		prop := CreateElementWithNS(set, "prop", "d")
		for _, p := range r.Props {
			p.appendTo(prop, "c")
		}
	}
	return doc
}

// SyncCollectionRequest represents a sync-collection REPORT request
// (RFC 6578). An empty SyncToken asks for the initial full listing.
type SyncCollectionRequest struct {
	SyncToken string
	SyncLevel string
	Prop      []string
}

// ToXML converts a SyncCollectionRequest to an XML document
func (r *SyncCollectionRequest) ToXML() *etree.Document {
	doc := newDocument()
	root := doc.CreateElement("sync-collection")
	root.Space = "d"
	AddSelectedNamespaces(doc, DAV, CalDAV, CardDAV)

	token := CreateElementWithNS(root, "sync-token", "d")
	token.SetText(r.SyncToken)

	level := CreateElementWithNS(root, "sync-level", "d")
	if r.SyncLevel != "" {
		level.SetText(r.SyncLevel)
	} else {
		level.SetText("1")
	}

	if len(r.Prop) > 0 {
		prop := CreateElementWithNS(root, "prop", "d")
		for _, name := range r.Prop {
			CreateElementWithNS(prop, name, "d")
		}
	}

	return doc
}
