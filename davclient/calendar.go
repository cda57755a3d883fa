package davclient

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/benfviney/tsdav/internal/xml"
	"golang.org/x/sync/errgroup"
)

// calendarPropfindProps is the default property set requested when
// enumerating calendars.
var calendarPropfindProps = []string{
	"calendar-description",
	"calendar-timezone",
	"displayname",
	"calendar-color",
	"getctag",
	"resourcetype",
	"supported-calendar-component-set",
	"sync-token",
}

// FetchCalendars enumerates the calendar collections under the account's
// home set. Collections whose supported component set shares nothing with
// KnownComponents are dropped; each surviving calendar gets its supported
// report set attached.
func (c *Client) FetchCalendars(ctx context.Context, account Account) ([]Calendar, error) {
	if err := requireAccountFields(account); err != nil {
		return nil, err
	}

	ms, err := c.davRequest(ctx, davRequestOptions{
		Method: "PROPFIND",
		URL:    account.HomeURL,
		Depth:  "1",
		Doc:    (&xml.PropfindRequest{Prop: calendarPropfindProps}).ToXML(),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to fetch calendars: %w", err)
	}

	var calendars []Calendar
	for _, response := range ms.Responses {
		resourceTypes := resourceTypeTags(response)
		if !containsString(resourceTypes, "calendar") {
			continue
		}
		components := supportedComponents(response)
		if len(intersect(components, KnownComponents)) == 0 {
			c.logger.Debug("skipping non-iCal calendar", "href", response.Href)
			continue
		}

		calendarURL, err := resolveHref(account.RootURL, response.Href)
		if err != nil {
			return nil, err
		}
		calendars = append(calendars, Calendar{
			Collection: Collection{
				URL:          calendarURL,
				Ctag:         response.PropString("getctag").OrElse(""),
				SyncToken:    response.PropString("syncToken").OrElse(""),
				DisplayName:  response.PropString("displayname").OrElse(""),
				ResourceType: resourceTypes,
			},
			Description: response.PropString("calendarDescription").OrElse(""),
			Timezone:    response.PropString("calendarTimezone").OrElse(""),
			Color:       response.PropString("calendarColor").OrElse(""),
			Components:  components,
		})
	}

	g, gctx := errgroup.WithContext(ctx)
	for i := range calendars {
		g.Go(func() error {
			reports, err := c.SupportedReportSet(gctx, calendars[i].URL)
			if err != nil {
				return err
			}
			calendars[i].Reports = reports
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("failed to fetch calendars: %w", err)
	}

	c.logger.Debug("fetched calendars", "count", len(calendars))
	return calendars, nil
}

// FetchCalendarObjectsOptions narrows a calendar object fetch. With no
// ObjectURLs a calendar-query runs first to collect hrefs.
type FetchCalendarObjectsOptions struct {
	ObjectURLs []string
	Filters    []xml.CompFilter
	TimeRange  *TimeRange
	// Expand asks the server to expand recurrences within TimeRange.
	Expand bool
	// URLFilter keeps matching hrefs; defaults to strings.Contains(".ics").
	URLFilter func(string) bool
	// Limit caps the number of returned objects; zero means no cap.
	Limit int
}

// FetchCalendarObjects fetches objects of a calendar via calendar-query
// plus calendar-multiget.
func (c *Client) FetchCalendarObjects(ctx context.Context, calendar Calendar, opts FetchCalendarObjectsOptions) ([]CalendarObject, error) {
	var timeRange *xml.TimeRange
	if opts.TimeRange != nil {
		if !opts.TimeRange.Valid() {
			return nil, &InvalidTimeRangeError{Start: opts.TimeRange.Start, End: opts.TimeRange.End}
		}
		start, err := toBasicFormat(opts.TimeRange.Start)
		if err != nil {
			return nil, &InvalidTimeRangeError{Start: opts.TimeRange.Start, End: opts.TimeRange.End}
		}
		end, err := toBasicFormat(opts.TimeRange.End)
		if err != nil {
			return nil, &InvalidTimeRangeError{Start: opts.TimeRange.Start, End: opts.TimeRange.End}
		}
		timeRange = &xml.TimeRange{Start: start, End: end}
	}

	urlFilter := opts.URLFilter
	if urlFilter == nil {
		urlFilter = func(href string) bool { return strings.Contains(href, ".ics") }
	}

	objectURLs := opts.ObjectURLs
	if objectURLs == nil {
		filters := opts.Filters
		if filters == nil {
			filters = []xml.CompFilter{{
				Name: "VCALENDAR",
				Nested: []xml.CompFilter{{
					Name:      "VEVENT",
					TimeRange: timeRange,
				}},
			}}
		}
		report := &xml.ReportRequest{Query: &xml.CalendarQuery{
			Props:  []string{"getetag"},
			Filter: filters[0],
		}}
		responses, err := c.CollectionQuery(ctx, calendar.URL, report.ToXML(), "1")
		if err != nil {
			return nil, fmt.Errorf("calendar query failed: %w", err)
		}
		for _, response := range responses {
			if response.Href != "" && urlFilter(response.Href) {
				objectURLs = append(objectURLs, response.Href)
			}
		}
	}

	hrefs, err := toPathnames(calendar.URL, objectURLs)
	if err != nil {
		return nil, err
	}
	if len(hrefs) == 0 {
		return nil, nil
	}

	multiget := &xml.CalendarMultiGet{
		Props: []string{"getetag", "calendar-data"},
		Hrefs: hrefs,
	}
	if opts.Expand && timeRange != nil {
		multiget.Expand = &xml.Expand{Start: timeRange.Start, End: timeRange.End}
	}
	responses, err := c.CollectionQuery(ctx, calendar.URL, (&xml.ReportRequest{MultiGet: multiget}).ToXML(), "1")
	if err != nil {
		return nil, fmt.Errorf("calendar multiget failed: %w", err)
	}

	objects, err := objectsFromResponses(calendar.URL, responses, "calendarData")
	if err != nil {
		return nil, err
	}
	if opts.Limit > 0 && len(objects) > opts.Limit {
		objects = objects[:opts.Limit]
	}
	return objects, nil
}

// FreeBusyQuery issues a free-busy-query REPORT and returns the first
// response.
func (c *Client) FreeBusyQuery(ctx context.Context, calendarURL string, timeRange TimeRange) (*DAVResponse, error) {
	if !timeRange.Valid() {
		return nil, &InvalidTimeRangeError{Start: timeRange.Start, End: timeRange.End}
	}
	start, err := toBasicFormat(timeRange.Start)
	if err != nil {
		return nil, &InvalidTimeRangeError{Start: timeRange.Start, End: timeRange.End}
	}
	end, err := toBasicFormat(timeRange.End)
	if err != nil {
		return nil, &InvalidTimeRangeError{Start: timeRange.Start, End: timeRange.End}
	}

	report := &xml.ReportRequest{FreeBusy: &xml.FreeBusyQuery{
		TimeRange: xml.TimeRange{Start: start, End: end},
	}}
	ms, err := c.davRequest(ctx, davRequestOptions{
		Method: "REPORT",
		URL:    calendarURL,
		Depth:  "0",
		Doc:    report.ToXML(),
	})
	if err != nil {
		return nil, fmt.Errorf("free-busy query failed: %w", err)
	}
	if len(ms.Responses) == 0 {
		return nil, fmt.Errorf("free-busy query returned no responses for %s", calendarURL)
	}
	return &ms.Responses[0], nil
}

func requireAccountFields(account Account) error {
	var missing []string
	if account.HomeURL == "" {
		missing = append(missing, "HomeURL")
	}
	if account.RootURL == "" {
		missing = append(missing, "RootURL")
	}
	if len(missing) > 0 {
		return &MissingFieldError{Fields: missing}
	}
	return nil
}

// resourceTypeTags lists the camelCased child names of DAV resourcetype.
func resourceTypeTags(response DAVResponse) []string {
	rt, ok := response.Props["resourcetype"].(map[string]any)
	if !ok {
		return nil
	}
	var tags []string
	for key := range rt {
		if !strings.HasPrefix(key, "_") {
			tags = append(tags, key)
		}
	}
	return tags
}

// supportedComponents extracts the comp name attributes of
// supported-calendar-component-set.
func supportedComponents(response DAVResponse) []string {
	set, ok := response.Props["supportedCalendarComponentSet"].(map[string]any)
	if !ok {
		return nil
	}
	comps, ok := set["comp"].([]any)
	if !ok {
		if set["comp"] == nil {
			return nil
		}
		comps = []any{set["comp"]}
	}
	var names []string
	for _, comp := range comps {
		m, ok := comp.(map[string]any)
		if !ok {
			continue
		}
		attrs, ok := m["_attributes"].(map[string]any)
		if !ok {
			continue
		}
		if name, ok := attrs["name"].(string); ok {
			names = append(names, name)
		}
	}
	return names
}

func containsString(list []string, want string) bool {
	for _, item := range list {
		if item == want {
			return true
		}
	}
	return false
}

func intersect(a, b []string) []string {
	var out []string
	for _, item := range a {
		if containsString(b, item) {
			out = append(out, item)
		}
	}
	return out
}

// toPathnames maps hrefs to server-relative paths: relative hrefs resolve
// against the collection URL first, absolute ones are preserved, then all
// reduce to their pathname.
func toPathnames(collectionURL string, hrefs []string) ([]string, error) {
	var out []string
	for _, href := range hrefs {
		if href == "" {
			continue
		}
		absolute := href
		if !strings.HasPrefix(href, "http://") && !strings.HasPrefix(href, "https://") {
			resolved, err := resolveHref(collectionURL, href)
			if err != nil {
				return nil, err
			}
			absolute = resolved
		}
		parsed, err := url.Parse(absolute)
		if err != nil {
			return nil, fmt.Errorf("failed to parse object URL %q: %w", absolute, err)
		}
		out = append(out, parsed.Path)
	}
	return out, nil
}

// objectsFromResponses maps multiget responses to objects, preferring the
// CDATA form of the payload when the server wraps it.
func objectsFromResponses(collectionURL string, responses []DAVResponse, dataProp string) ([]DAVObject, error) {
	var objects []DAVObject
	for _, response := range responses {
		if response.Href == "" {
			continue
		}
		objectURL, err := resolveHref(collectionURL, response.Href)
		if err != nil {
			return nil, err
		}
		objects = append(objects, DAVObject{
			URL:  objectURL,
			ETag: response.PropString("getetag").OrElse(""),
			Data: response.PropString(dataProp).OrElse(""),
		})
	}
	return objects, nil
}
