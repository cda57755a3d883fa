package davclient

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFetchCalendarsRequiresFields(t *testing.T) {
	client := testClient("https://ex.com")
	_, err := client.FetchCalendars(context.Background(), Account{AccountType: AccountTypeCalDAV})

	var missing *MissingFieldError
	require.ErrorAs(t, err, &missing)
	assert.ElementsMatch(t, []string{"HomeURL", "RootURL"}, missing.Fields)
}

func TestFetchCalendarsFiltersNonICal(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body := requestBody(r)
		if strings.Contains(body, "supported-report-set") {
			w.WriteHeader(http.StatusMultiStatus)
			fmt.Fprint(w, `<?xml version="1.0" encoding="utf-8"?>
<d:multistatus xmlns:d="DAV:">
  <d:response>
    <d:href>/calendars/alice/journal/</d:href>
    <d:propstat>
      <d:prop>
        <d:supported-report-set>
          <d:supported-report><d:report><d:sync-collection/></d:report></d:supported-report>
          <d:supported-report><d:report><d:calendar-multiget xmlns:d="urn:ietf:params:xml:ns:caldav"/></d:report></d:supported-report>
        </d:supported-report-set>
      </d:prop>
      <d:status>HTTP/1.1 200 OK</d:status>
    </d:propstat>
  </d:response>
</d:multistatus>`)
			return
		}
		w.WriteHeader(http.StatusMultiStatus)
		fmt.Fprint(w, `<?xml version="1.0" encoding="utf-8"?>
<d:multistatus xmlns:d="DAV:" xmlns:c="urn:ietf:params:xml:ns:caldav" xmlns:cs="http://calendarserver.org/ns/" xmlns:ca="http://apple.com/ns/ical/">
  <d:response>
    <d:href>/calendars/alice/</d:href>
    <d:propstat>
      <d:prop><d:resourcetype><d:collection/></d:resourcetype></d:prop>
      <d:status>HTTP/1.1 200 OK</d:status>
    </d:propstat>
  </d:response>
  <d:response>
    <d:href>/calendars/alice/journal/</d:href>
    <d:propstat>
      <d:prop>
        <d:displayname>Journal</d:displayname>
        <ca:calendar-color>#BADA55</ca:calendar-color>
        <cs:getctag>ctag-7</cs:getctag>
        <d:sync-token>sync-7</d:sync-token>
        <d:resourcetype><d:collection/><c:calendar/></d:resourcetype>
        <c:supported-calendar-component-set><c:comp name="VJOURNAL"/></c:supported-calendar-component-set>
      </d:prop>
      <d:status>HTTP/1.1 200 OK</d:status>
    </d:propstat>
  </d:response>
  <d:response>
    <d:href>/calendars/alice/mail/</d:href>
    <d:propstat>
      <d:prop>
        <d:displayname>Mail Drop</d:displayname>
        <d:resourcetype><d:collection/><c:calendar/></d:resourcetype>
        <c:supported-calendar-component-set><c:comp name="VMESSAGE"/></c:supported-calendar-component-set>
      </d:prop>
      <d:status>HTTP/1.1 200 OK</d:status>
    </d:propstat>
  </d:response>
</d:multistatus>`)
	}))
	defer server.Close()

	client := testClient(server.URL)
	calendars, err := client.FetchCalendars(context.Background(), Account{
		AccountType: AccountTypeCalDAV,
		RootURL:     server.URL + "/",
		HomeURL:     server.URL + "/calendars/alice/",
	})
	require.NoError(t, err)

	// the home collection itself and the VMESSAGE-only calendar are gone
	require.Len(t, calendars, 1)
	calendar := calendars[0]
	assert.Equal(t, server.URL+"/calendars/alice/journal/", calendar.URL)
	assert.Equal(t, "Journal", calendar.DisplayName)
	assert.Equal(t, "#BADA55", calendar.Color)
	assert.Equal(t, "ctag-7", calendar.Ctag)
	assert.Equal(t, "sync-7", calendar.SyncToken)
	assert.Equal(t, []string{"VJOURNAL"}, calendar.Components)
	assert.ElementsMatch(t, []string{"syncCollection", "calendarMultiget"}, calendar.Reports)
}

func TestFetchCalendarObjectsRejectsBadTimeRange(t *testing.T) {
	client := testClient("https://ex.com")
	_, err := client.FetchCalendarObjects(context.Background(),
		Calendar{Collection: Collection{URL: "https://ex.com/cal/"}},
		FetchCalendarObjectsOptions{TimeRange: &TimeRange{Start: "yesterday", End: "2024-01-01T00:00:00Z"}})

	var invalid *InvalidTimeRangeError
	require.ErrorAs(t, err, &invalid)
	assert.Equal(t, "yesterday", invalid.Start)
}

func TestFetchCalendarObjects(t *testing.T) {
	var queryBody, multigetBody string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "REPORT", r.Method)
		body := requestBody(r)
		switch {
		case strings.Contains(body, "calendar-query"):
			queryBody = body
			w.WriteHeader(http.StatusMultiStatus)
			fmt.Fprint(w, `<?xml version="1.0" encoding="utf-8"?>
<d:multistatus xmlns:d="DAV:">
  <d:response>
    <d:href>/cal/1.ics</d:href>
    <d:propstat><d:prop><d:getetag>"e1"</d:getetag></d:prop><d:status>HTTP/1.1 200 OK</d:status></d:propstat>
  </d:response>
  <d:response>
    <d:href>/cal/readme.txt</d:href>
    <d:propstat><d:prop><d:getetag>"x"</d:getetag></d:prop><d:status>HTTP/1.1 200 OK</d:status></d:propstat>
  </d:response>
</d:multistatus>`)
		case strings.Contains(body, "calendar-multiget"):
			multigetBody = body
			w.WriteHeader(http.StatusMultiStatus)
			fmt.Fprint(w, `<?xml version="1.0" encoding="utf-8"?>
<d:multistatus xmlns:d="DAV:" xmlns:c="urn:ietf:params:xml:ns:caldav">
  <d:response>
    <d:href>/cal/1.ics</d:href>
    <d:propstat>
      <d:prop>
        <d:getetag>"e1"</d:getetag>
        <c:calendar-data>BEGIN:VCALENDAR
END:VCALENDAR</c:calendar-data>
      </d:prop>
      <d:status>HTTP/1.1 200 OK</d:status>
    </d:propstat>
  </d:response>
</d:multistatus>`)
		default:
			t.Errorf("unexpected REPORT body: %s", body)
		}
	}))
	defer server.Close()

	client := testClient(server.URL)
	objects, err := client.FetchCalendarObjects(context.Background(),
		Calendar{Collection: Collection{URL: server.URL + "/cal/"}},
		FetchCalendarObjectsOptions{
			TimeRange: &TimeRange{Start: "2024-01-01T00:00:00Z", End: "2024-02-01T00:00:00Z"},
		})
	require.NoError(t, err)

	// the default filter and the wire-format time range ride in the query
	assert.Contains(t, queryBody, `name="VEVENT"`)
	assert.Contains(t, queryBody, `start="20240101T000000Z"`)
	// the non-.ics href was filtered before the multiget
	assert.Contains(t, multigetBody, "/cal/1.ics")
	assert.NotContains(t, multigetBody, "readme.txt")

	require.Len(t, objects, 1)
	assert.Equal(t, server.URL+"/cal/1.ics", objects[0].URL)
	assert.Equal(t, `"e1"`, objects[0].ETag)
	assert.Contains(t, objects[0].Data, "BEGIN:VCALENDAR")
}

func TestFetchCalendarObjectsLimit(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "REPORT", r.Method)
		body := requestBody(r)
		switch {
		case strings.Contains(body, "calendar-query"):
			w.WriteHeader(http.StatusMultiStatus)
			fmt.Fprint(w, `<?xml version="1.0" encoding="utf-8"?>
<d:multistatus xmlns:d="DAV:">
  <d:response>
    <d:href>/cal/1.ics</d:href>
    <d:propstat><d:prop><d:getetag>"e1"</d:getetag></d:prop><d:status>HTTP/1.1 200 OK</d:status></d:propstat>
  </d:response>
  <d:response>
    <d:href>/cal/2.ics</d:href>
    <d:propstat><d:prop><d:getetag>"e2"</d:getetag></d:prop><d:status>HTTP/1.1 200 OK</d:status></d:propstat>
  </d:response>
</d:multistatus>`)
		case strings.Contains(body, "calendar-multiget"):
			w.WriteHeader(http.StatusMultiStatus)
			fmt.Fprint(w, `<?xml version="1.0" encoding="utf-8"?>
<d:multistatus xmlns:d="DAV:" xmlns:c="urn:ietf:params:xml:ns:caldav">
  <d:response>
    <d:href>/cal/1.ics</d:href>
    <d:propstat><d:prop><d:getetag>"e1"</d:getetag><c:calendar-data>ONE</c:calendar-data></d:prop><d:status>HTTP/1.1 200 OK</d:status></d:propstat>
  </d:response>
  <d:response>
    <d:href>/cal/2.ics</d:href>
    <d:propstat><d:prop><d:getetag>"e2"</d:getetag><c:calendar-data>TWO</c:calendar-data></d:prop><d:status>HTTP/1.1 200 OK</d:status></d:propstat>
  </d:response>
</d:multistatus>`)
		default:
			t.Errorf("unexpected REPORT body: %s", body)
		}
	}))
	defer server.Close()

	client := testClient(server.URL)
	objects, err := client.FetchCalendarObjects(context.Background(),
		Calendar{Collection: Collection{URL: server.URL + "/cal/"}},
		NewQueryFilter().Limit(1).Options())
	require.NoError(t, err)

	require.Len(t, objects, 1)
	assert.Equal(t, server.URL+"/cal/1.ics", objects[0].URL)
}

func TestFreeBusyQuery(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "REPORT", r.Method)
		assert.Contains(t, requestBody(r), "free-busy-query")
		w.WriteHeader(http.StatusOK)
		fmt.Fprint(w, "BEGIN:VCALENDAR\nBEGIN:VFREEBUSY\nEND:VFREEBUSY\nEND:VCALENDAR")
	}))
	defer server.Close()

	client := testClient(server.URL)
	response, err := client.FreeBusyQuery(context.Background(), server.URL+"/cal/",
		TimeRange{Start: "2024-01-01T00:00:00Z", End: "2024-01-02T00:00:00Z"})
	require.NoError(t, err)
	assert.Contains(t, response.RawText, "VFREEBUSY")
}
