package xml

import (
	"strings"

	"github.com/beevik/etree"
)

// Namespace definitions for WebDAV, CalDAV and CardDAV
const (
	// DAV is the WebDAV namespace
	DAV = "DAV:"
	// CalDAV is the CalDAV namespace
	CalDAV = "urn:ietf:params:xml:ns:caldav"
	// CardDAV is the CardDAV namespace
	CardDAV = "urn:ietf:params:xml:ns:carddav"
	// CalendarServer is the Calendar Server namespace (used by some implementations)
	CalendarServer = "http://calendarserver.org/ns/"
	// AppleICal is the Apple iCal namespace (calendar-color and friends)
	AppleICal = "http://apple.com/ns/ical/"
)

// NamespacePrefix maps each namespace URI to the prefix used in request
// documents.
var NamespacePrefix = map[string]string{
	DAV:            "d",
	CalDAV:         "c",
	CardDAV:        "card",
	CalendarServer: "cs",
	AppleICal:      "ca",
}

// PropPrefixMap assigns the well-known DAV property and element names to
// their namespace prefix. Names missing from the map fall back to the
// default prefix of the enclosing document.
var PropPrefixMap = map[string]string{
	// WebDAV (d: prefix)
	"displayname":                "d",
	"resourcetype":               "d",
	"getetag":                    "d",
	"getlastmodified":            "d",
	"getcontenttype":             "d",
	"owner":                      "d",
	"current-user-principal":     "d",
	"principal-url":              "d",
	"supported-report-set":       "d",
	"current-user-privilege-set": "d",
	"sync-token":                 "d",
	"sync-level":                 "d",
	"collection":                 "d",
	"principal":                  "d",
	"href":                       "d",
	"prop":                       "d",
	"propname":                   "d",
	"allprop":                    "d",
	"include":                    "d",
	"set":                        "d",
	"remove":                     "d",

	// CalDAV (c: prefix)
	"calendar-description":             "c",
	"calendar-timezone":                "c",
	"calendar-data":                    "c",
	"supported-calendar-component-set": "c",
	"supported-calendar-data":          "c",
	"calendar-home-set":                "c",
	"calendar":                         "c",
	"comp":                             "c",
	"expand":                           "c",

	// CardDAV (card: prefix)
	"addressbook-home-set": "card",
	"addressbook":          "card",
	"address-data":         "card",

	// CalendarServer extensions (cs: prefix)
	"getctag": "cs",

	// Apple extensions (ca: prefix)
	"calendar-color": "ca",
}

// AddSelectedNamespaces declares the given namespaces on the document root.
func AddSelectedNamespaces(doc *etree.Document, namespaces ...string) {
	root := doc.Root()
	if root == nil {
		return
	}
	for _, ns := range namespaces {
		prefix, ok := NamespacePrefix[ns]
		if !ok {
			continue
		}
		root.CreateAttr("xmlns:"+prefix, ns)
	}
}

// CreateElementWithNS creates a child element, resolving the namespace
// prefix. A name that already carries a prefix is used verbatim; otherwise
// the prefix comes from PropPrefixMap, falling back to defaultPrefix.
func CreateElementWithNS(parent *etree.Element, name, defaultPrefix string) *etree.Element {
	if prefix, local, ok := strings.Cut(name, ":"); ok {
		elem := parent.CreateElement(local)
		elem.Space = prefix
		return elem
	}
	elem := parent.CreateElement(name)
	if prefix, ok := PropPrefixMap[strings.ToLower(name)]; ok {
		elem.Space = prefix
	} else if defaultPrefix != "" {
		elem.Space = defaultPrefix
	}
	return elem
}

// FindElementWithNS finds a direct child by local name, ignoring its prefix.
func FindElementWithNS(parent *etree.Element, name string) *etree.Element {
	for _, child := range parent.ChildElements() {
		if child.Tag == name {
			return child
		}
	}
	return nil
}

// newDocument creates a document with the standard XML declaration.
func newDocument() *etree.Document {
	doc := etree.NewDocument()
	doc.CreateProcInst("xml", `version="1.0" encoding="utf-8"`)
	return doc
}
