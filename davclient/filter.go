package davclient

import (
	"strconv"

	"github.com/benfviney/tsdav/internal/xml"
)

// QueryFilter builds a calendar-query filter fluently:
//
//	opts := NewQueryFilter().
//		ObjectType("VTODO").
//		NotStatus("COMPLETED").
//		Limit(20).
//		Options()
//
// Options feeds FetchCalendarObjects directly; Build yields just the
// filter tree for callers assembling their own options.
type QueryFilter struct {
	objectType  string
	timeRange   *xml.TimeRange
	propFilters []xml.PropFilter
	limit       int
}

// NewQueryFilter starts a filter matching VEVENT components.
func NewQueryFilter() *QueryFilter {
	return &QueryFilter{objectType: "VEVENT"}
}

// ObjectType selects the component to match (VEVENT, VTODO, ...).
func (f *QueryFilter) ObjectType(objType string) *QueryFilter {
	f.objectType = objType
	return f
}

// TimeRange bounds matches to the range, already in wire format.
func (f *QueryFilter) TimeRange(start, end string) *QueryFilter {
	f.timeRange = &xml.TimeRange{Start: start, End: end}
	return f
}

// Summary matches SUMMARY text.
func (f *QueryFilter) Summary(summary string) *QueryFilter {
	return f.textProp("SUMMARY", summary, false)
}

// Description matches DESCRIPTION text.
func (f *QueryFilter) Description(desc string) *QueryFilter {
	return f.textProp("DESCRIPTION", desc, false)
}

// Location matches LOCATION text.
func (f *QueryFilter) Location(location string) *QueryFilter {
	return f.textProp("LOCATION", location, false)
}

// Organizer matches ORGANIZER text.
func (f *QueryFilter) Organizer(organizer string) *QueryFilter {
	return f.textProp("ORGANIZER", organizer, false)
}

// Status matches STATUS text.
func (f *QueryFilter) Status(status string) *QueryFilter {
	return f.textProp("STATUS", status, false)
}

// NotStatus excludes components whose STATUS matches.
func (f *QueryFilter) NotStatus(status string) *QueryFilter {
	return f.textProp("STATUS", status, true)
}

// Categories matches CATEGORIES text, one prop-filter per entry.
func (f *QueryFilter) Categories(categories ...string) *QueryFilter {
	for _, category := range categories {
		f.textProp("CATEGORIES", category, false)
	}
	return f
}

// Priority matches PRIORITY.
func (f *QueryFilter) Priority(priority int) *QueryFilter {
	return f.textProp("PRIORITY", strconv.Itoa(priority), false)
}

// Limit caps the number of objects the fetch returns; zero means no cap.
func (f *QueryFilter) Limit(limit int) *QueryFilter {
	f.limit = limit
	return f
}

func (f *QueryFilter) textProp(name, value string, negate bool) *QueryFilter {
	f.propFilters = append(f.propFilters, xml.PropFilter{
		Name:      name,
		TextMatch: &xml.TextMatch{Value: value, Negate: negate},
	})
	return f
}

// Build compiles the filter into the VCALENDAR-rooted comp-filter tree.
func (f *QueryFilter) Build() []xml.CompFilter {
	return []xml.CompFilter{{
		Name: "VCALENDAR",
		Nested: []xml.CompFilter{{
			Name:        f.objectType,
			TimeRange:   f.timeRange,
			PropFilters: f.propFilters,
		}},
	}}
}

// Options compiles the filter into fetch options, carrying the limit.
func (f *QueryFilter) Options() FetchCalendarObjectsOptions {
	return FetchCalendarObjectsOptions{
		Filters: f.Build(),
		Limit:   f.limit,
	}
}
