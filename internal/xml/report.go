package xml

import "github.com/beevik/etree"

// TimeRange holds a CalDAV time range in the compressed ISO-8601 basic
// format (YYYYMMDDTHHMMSSZ) the wire expects.
type TimeRange struct {
	Start string
	End   string
}

// Expand asks the server to expand recurring components into instances
// within the range (RFC 4791 §9.6.5).
type Expand struct {
	Start string
	End   string
}

// TextMatch matches property text content (RFC 4791 §9.7.5)
type TextMatch struct {
	Value     string
	Collation string
	Negate    bool
}

// PropFilter filters on a calendar or vCard property (RFC 4791 §9.7.2,
// RFC 6352 §10.5.1)
type PropFilter struct {
	Name         string
	Test         string
	IsNotDefined bool
	TextMatch    *TextMatch
}

// CompFilter filters on a calendar component (RFC 4791 §9.7.1)
type CompFilter struct {
	Name        string
	Test        string
	TimeRange   *TimeRange
	PropFilters []PropFilter
	Nested      []CompFilter
}

// CalendarQuery is a calendar-query REPORT (RFC 4791 §7.8)
type CalendarQuery struct {
	Props  []string
	Filter CompFilter
	Expand *Expand
}

// CalendarMultiGet is a calendar-multiget REPORT (RFC 4791 §7.9)
type CalendarMultiGet struct {
	Props  []string
	Hrefs  []string
	Expand *Expand
}

// FreeBusyQuery is a free-busy-query REPORT (RFC 4791 §7.10)
type FreeBusyQuery struct {
	TimeRange TimeRange
}

// AddressbookQuery is an addressbook-query REPORT (RFC 6352 §8.6)
type AddressbookQuery struct {
	Props       []string
	PropFilters []PropFilter
	Test        string
}

// AddressbookMultiGet is an addressbook-multiget REPORT (RFC 6352 §8.7)
type AddressbookMultiGet struct {
	Props []string
	Hrefs []string
}

// ReportRequest represents a REPORT request; exactly one variant is set.
type ReportRequest struct {
	Query           *CalendarQuery
	MultiGet        *CalendarMultiGet
	FreeBusy        *FreeBusyQuery
	AddressQuery    *AddressbookQuery
	AddressMultiGet *AddressbookMultiGet
}

// ToXML converts a ReportRequest to an XML document
func (r *ReportRequest) ToXML() *etree.Document {
	doc := newDocument()
	var root *etree.Element

	switch {
	case r.Query != nil:
		root = doc.CreateElement("calendar-query")
		root.Space = "c"
		AddSelectedNamespaces(doc, DAV, CalDAV)
		r.addQueryElements(root)
	case r.MultiGet != nil:
		root = doc.CreateElement("calendar-multiget")
		root.Space = "c"
		AddSelectedNamespaces(doc, DAV, CalDAV)
		r.addMultigetElements(root)
	case r.FreeBusy != nil:
		root = doc.CreateElement("free-busy-query")
		root.Space = "c"
		AddSelectedNamespaces(doc, DAV, CalDAV)
		r.addFreeBusyElements(root)
	case r.AddressQuery != nil:
		root = doc.CreateElement("addressbook-query")
		root.Space = "card"
		AddSelectedNamespaces(doc, DAV, CardDAV)
		r.addAddressQueryElements(root)
	case r.AddressMultiGet != nil:
		root = doc.CreateElement("addressbook-multiget")
		root.Space = "card"
		AddSelectedNamespaces(doc, DAV, CardDAV)
		r.addAddressMultigetElements(root)
	}

	return doc
}

// addPropElements emits the prop list, nesting an expand request inside
// calendar-data when asked for.
func addPropElements(root *etree.Element, props []string, expand *Expand) {
	if len(props) == 0 {
		return
	}
	prop := CreateElementWithNS(root, "prop", "d")
	for _, name := range props {
		elem := CreateElementWithNS(prop, name, "d")
		if name == "calendar-data" && expand != nil {
			exp := CreateElementWithNS(elem, "expand", "c")
			exp.CreateAttr("start", expand.Start)
			exp.CreateAttr("end", expand.End)
		}
	}
}

func (f *CompFilter) appendTo(parent *etree.Element) {
	compFilter := CreateElementWithNS(parent, "comp-filter", "c")
	compFilter.CreateAttr("name", f.Name)
	if f.Test != "" {
		compFilter.CreateAttr("test", f.Test)
	}
	if f.TimeRange != nil {
		timeRange := CreateElementWithNS(compFilter, "time-range", "c")
		if f.TimeRange.Start != "" {
			timeRange.CreateAttr("start", f.TimeRange.Start)
		}
		if f.TimeRange.End != "" {
			timeRange.CreateAttr("end", f.TimeRange.End)
		}
	}
	for _, pf := range f.PropFilters {
		pf.appendTo(compFilter, "c")
	}
	for i := range f.Nested {
		f.Nested[i].appendTo(compFilter)
	}
}

func (f *PropFilter) appendTo(parent *etree.Element, prefix string) {
	propFilter := CreateElementWithNS(parent, prefix+":prop-filter", "")
	propFilter.CreateAttr("name", f.Name)
	if f.Test != "" {
		propFilter.CreateAttr("test", f.Test)
	}
	if f.IsNotDefined {
		CreateElementWithNS(propFilter, prefix+":is-not-defined", "")
		return
	}
	if f.TextMatch != nil {
		textMatch := CreateElementWithNS(propFilter, prefix+":text-match", "")
		if f.TextMatch.Collation != "" {
			textMatch.CreateAttr("collation", f.TextMatch.Collation)
		}
		if f.TextMatch.Negate {
			textMatch.CreateAttr("negate-condition", "yes")
		}
		textMatch.SetText(f.TextMatch.Value)
	}
}

func (r *ReportRequest) addQueryElements(root *etree.Element) {
	addPropElements(root, r.Query.Props, r.Query.Expand)
	filter := CreateElementWithNS(root, "filter", "c")
	r.Query.Filter.appendTo(filter)
}

func (r *ReportRequest) addMultigetElements(root *etree.Element) {
	addPropElements(root, r.MultiGet.Props, r.MultiGet.Expand)
	for _, href := range r.MultiGet.Hrefs {
		h := CreateElementWithNS(root, "href", "d")
		h.SetText(href)
	}
}

func (r *ReportRequest) addFreeBusyElements(root *etree.Element) {
	timeRange := CreateElementWithNS(root, "time-range", "c")
	if r.FreeBusy.TimeRange.Start != "" {
		timeRange.CreateAttr("start", r.FreeBusy.TimeRange.Start)
	}
	if r.FreeBusy.TimeRange.End != "" {
		timeRange.CreateAttr("end", r.FreeBusy.TimeRange.End)
	}
}

func (r *ReportRequest) addAddressQueryElements(root *etree.Element) {
	addPropElements(root, r.AddressQuery.Props, nil)
	filter := CreateElementWithNS(root, "card:filter", "")
	if r.AddressQuery.Test != "" {
		filter.CreateAttr("test", r.AddressQuery.Test)
	}
	for _, pf := range r.AddressQuery.PropFilters {
		pf.appendTo(filter, "card")
	}
}

func (r *ReportRequest) addAddressMultigetElements(root *etree.Element) {
	addPropElements(root, r.AddressMultiGet.Props, nil)
	for _, href := range r.AddressMultiGet.Hrefs {
		h := CreateElementWithNS(root, "href", "d")
		h.SetText(href)
	}
}
