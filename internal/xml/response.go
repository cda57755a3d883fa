package xml

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/beevik/etree"
	"github.com/samber/mo"
)

// statusLineRe splits a DAV status line like "HTTP/1.1 404 Not Found".
var statusLineRe = regexp.MustCompile(`^\S+\s(\d+)\s(.+)$`)

// Propstat is one propstat block of a response, with its own status and the
// decoded prop children.
type Propstat struct {
	Status     int
	StatusText string
	Props      map[string]any
	Raw        *etree.Element
}

// Response is the normalized per-resource envelope of a multistatus body.
// Props holds the shallow merge of all propstat blocks (later blocks win);
// Propstats keeps the per-block detail for callers that need per-prop
// status. Raw points at the original response element, RawText carries the
// body of a degenerate non-XML response.
type Response struct {
	Href                string
	Status              int
	StatusText          string
	OK                  bool
	Error               bool
	ResponseDescription string
	Props               map[string]any
	Propstats           []Propstat
	Raw                 *etree.Element
	RawText             string
}

// Multistatus is a decoded multistatus document.
type Multistatus struct {
	SyncToken string
	Responses []Response
}

// CamelCase lowercases an element local name and camel-cases it on hyphen
// and underscore boundaries: "sync-token" becomes "syncToken".
func CamelCase(name string) string {
	parts := strings.FieldsFunc(strings.ToLower(name), func(r rune) bool {
		return r == '-' || r == '_'
	})
	if len(parts) == 0 {
		return ""
	}
	var b strings.Builder
	b.WriteString(parts[0])
	for _, part := range parts[1:] {
		b.WriteString(strings.ToUpper(part[:1]))
		b.WriteString(part[1:])
	}
	return b.String()
}

// coerce turns element text into a number or boolean when it parses as one.
func coerce(text string) any {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return text
	}
	if i, err := strconv.ParseInt(trimmed, 10, 64); err == nil {
		return i
	}
	if f, err := strconv.ParseFloat(trimmed, 64); err == nil {
		return f
	}
	switch strings.ToLower(trimmed) {
	case "true":
		return true
	case "false":
		return false
	}
	return text
}

// hasCData reports whether the element's character data came from a CDATA
// section.
func hasCData(elem *etree.Element) bool {
	for _, child := range elem.Child {
		if cd, ok := child.(*etree.CharData); ok && cd.IsCData() {
			return true
		}
	}
	return false
}

// elementValue decodes an element into the compact value form: element
// children become a nested map (repeated names collect into a slice),
// attributes land under "_attributes", CDATA under "_cdata", and plain
// leaves coerce to scalar.
func elementValue(elem *etree.Element) any {
	children := elem.ChildElements()
	attrs := map[string]any{}
	for _, attr := range elem.Attr {
		if attr.Space == "xmlns" || attr.Key == "xmlns" {
			continue
		}
		attrs[attr.Key] = coerce(attr.Value)
	}

	if len(children) == 0 {
		if hasCData(elem) {
			value := map[string]any{"_cdata": elem.Text()}
			if len(attrs) > 0 {
				value["_attributes"] = attrs
			}
			return value
		}
		if len(attrs) > 0 {
			value := map[string]any{"_attributes": attrs}
			if text := elem.Text(); strings.TrimSpace(text) != "" {
				value["_text"] = coerce(text)
			}
			return value
		}
		return coerce(elem.Text())
	}

	value := map[string]any{}
	if len(attrs) > 0 {
		value["_attributes"] = attrs
	}
	for _, child := range children {
		key := CamelCase(child.Tag)
		childValue := elementValue(child)
		switch existing := value[key].(type) {
		case nil:
			value[key] = childValue
		case []any:
			value[key] = append(existing, childValue)
		default:
			value[key] = []any{existing, childValue}
		}
	}
	return value
}

// parseStatusLine extracts code and text from a DAV status line; ok is
// false when the line does not match.
func parseStatusLine(line string) (int, string, bool) {
	m := statusLineRe.FindStringSubmatch(strings.TrimSpace(line))
	if m == nil {
		return 0, "", false
	}
	code, err := strconv.Atoi(m[1])
	if err != nil {
		return 0, "", false
	}
	return code, m[2], true
}

// ParseMultistatus decodes a multistatus body. fallbackStatus and
// fallbackStatusText fill responses that carry no parseable status line of
// their own. A body whose root is not multistatus is an error; the caller
// builds the degenerate envelope.
func ParseMultistatus(body []byte, fallbackStatus int, fallbackStatusText string) (*Multistatus, error) {
	doc := etree.NewDocument()
	doc.ReadSettings.PreserveCData = true
	if err := doc.ReadFromBytes(body); err != nil {
		return nil, fmt.Errorf("failed to parse multistatus body: %w", err)
	}
	root := doc.Root()
	if root == nil || root.Tag != "multistatus" {
		return nil, fmt.Errorf("unexpected root element %q", rootTag(root))
	}

	ms := &Multistatus{}
	if token := FindElementWithNS(root, "sync-token"); token != nil {
		ms.SyncToken = strings.TrimSpace(token.Text())
	}

	for _, respElem := range root.SelectElements("response") {
		resp := Response{
			Status:     fallbackStatus,
			StatusText: fallbackStatusText,
			Props:      map[string]any{},
			Raw:        respElem,
		}

		if hrefElem := respElem.SelectElement("href"); hrefElem != nil {
			resp.Href = strings.TrimSpace(hrefElem.Text())
		}
		if respElem.SelectElement("error") != nil {
			resp.Error = true
		}
		if desc := respElem.SelectElement("responsedescription"); desc != nil {
			resp.ResponseDescription = strings.TrimSpace(desc.Text())
		}
		if statusElem := respElem.SelectElement("status"); statusElem != nil {
			if code, text, ok := parseStatusLine(statusElem.Text()); ok {
				resp.Status = code
				resp.StatusText = text
			}
		}

		for _, propstatElem := range respElem.SelectElements("propstat") {
			ps := Propstat{
				Status:     fallbackStatus,
				StatusText: fallbackStatusText,
				Props:      map[string]any{},
				Raw:        propstatElem,
			}
			if statusElem := propstatElem.SelectElement("status"); statusElem != nil {
				if code, text, ok := parseStatusLine(statusElem.Text()); ok {
					ps.Status = code
					ps.StatusText = text
				}
			}
			if propElem := propstatElem.SelectElement("prop"); propElem != nil {
				for _, p := range propElem.ChildElements() {
					ps.Props[CamelCase(p.Tag)] = elementValue(p)
				}
			}
			resp.Propstats = append(resp.Propstats, ps)
			// later propstat blocks win on key collision
			for k, v := range ps.Props {
				resp.Props[k] = v
			}
		}

		// a response with propstats but no own status line reports the
		// first propstat's status
		if respElem.SelectElement("status") == nil && len(resp.Propstats) > 0 {
			resp.Status = resp.Propstats[0].Status
			resp.StatusText = resp.Propstats[0].StatusText
		}

		resp.OK = !resp.Error
		ms.Responses = append(ms.Responses, resp)
	}

	return ms, nil
}

func rootTag(root *etree.Element) string {
	if root == nil {
		return ""
	}
	return root.Tag
}

// PropString looks a property up by camelCased name and renders it as a
// string: scalars format naturally, compact maps prefer _cdata, then
// _text. Nested elements such as href are not searched; use PropHref.
func (r *Response) PropString(name string) mo.Option[string] {
	v, ok := r.Props[name]
	if !ok || v == nil {
		return mo.None[string]()
	}
	if s, ok := flattenPropValue(v); ok {
		return mo.Some(s)
	}
	return mo.None[string]()
}

// PropHref extracts the href child of a property such as
// current-user-principal or calendar-home-set.
func (r *Response) PropHref(name string) mo.Option[string] {
	v, ok := r.Props[name]
	if !ok {
		return mo.None[string]()
	}
	m, ok := v.(map[string]any)
	if !ok {
		return mo.None[string]()
	}
	href, ok := m["href"]
	if !ok {
		return mo.None[string]()
	}
	if list, ok := href.([]any); ok {
		if len(list) == 0 {
			return mo.None[string]()
		}
		href = list[0]
	}
	if s, ok := flattenPropValue(href); ok {
		return mo.Some(s)
	}
	return mo.None[string]()
}

func flattenPropValue(v any) (string, bool) {
	switch value := v.(type) {
	case string:
		return value, true
	case int64:
		return strconv.FormatInt(value, 10), true
	case float64:
		return strconv.FormatFloat(value, 'f', -1, 64), true
	case bool:
		return strconv.FormatBool(value), true
	case map[string]any:
		if cdata, ok := value["_cdata"]; ok {
			return flattenPropValue(cdata)
		}
		if text, ok := value["_text"]; ok {
			return flattenPropValue(text)
		}
		return "", false
	default:
		return "", false
	}
}

// FirstKey returns an arbitrary-but-stable first key of a compact map:
// the lexicographically smallest non-reserved key.
func FirstKey(v any) string {
	m, ok := v.(map[string]any)
	if !ok {
		return ""
	}
	best := ""
	for k := range m {
		if strings.HasPrefix(k, "_") {
			continue
		}
		if best == "" || k < best {
			best = k
		}
	}
	return best
}
