package davclient

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/emersion/go-ical"
	"github.com/emersion/go-vcard"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateObjectHeaders(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "PUT", r.Method)
		assert.Equal(t, "*", r.Header.Get("If-None-Match"))
		assert.Equal(t, contentTypeCalendar, r.Header.Get("Content-Type"))
		assert.Equal(t, "BEGIN:VCALENDAR", requestBody(r))
		w.Header().Set("ETag", `"fresh"`)
		w.WriteHeader(http.StatusCreated)
	}))
	defer server.Close()

	client := testClient(server.URL)
	result, err := client.CreateObject(context.Background(), server.URL+"/c/x.ics", "BEGIN:VCALENDAR", contentTypeCalendar)
	require.NoError(t, err)
	assert.Equal(t, http.StatusCreated, result.Status)
	assert.Equal(t, `"fresh"`, result.Header.Get("ETag"))
}

func TestUpdateObjectHeaders(t *testing.T) {
	tests := []struct {
		name     string
		etag     string
		wantSent bool
	}{
		{name: "etag rides in If-Match", etag: `"v1"`, wantSent: true},
		{name: "missing etag omits the header", etag: "", wantSent: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, "PUT", r.Method)
				if tt.wantSent {
					assert.Equal(t, tt.etag, r.Header.Get("If-Match"))
				} else {
					assert.Empty(t, r.Header.Get("If-Match"))
				}
				w.WriteHeader(http.StatusNoContent)
			}))
			defer server.Close()

			client := testClient(server.URL)
			_, err := client.UpdateObject(context.Background(), DAVObject{
				URL:  server.URL + "/c/x.ics",
				ETag: tt.etag,
				Data: "BEGIN:VCALENDAR",
			}, contentTypeCalendar)
			require.NoError(t, err)
		})
	}
}

func TestDeleteObjectHeaders(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "DELETE", r.Method)
		assert.Equal(t, `"v1"`, r.Header.Get("If-Match"))
		w.WriteHeader(http.StatusNoContent)
	}))
	defer server.Close()

	client := testClient(server.URL)
	result, err := client.DeleteObject(context.Background(), server.URL+"/c/x.ics", `"v1"`)
	require.NoError(t, err)
	assert.Equal(t, http.StatusNoContent, result.Status)
}

func TestCreateCalendarObject(t *testing.T) {
	var putPath string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "PUT", r.Method)
		putPath = r.URL.Path
		assert.Contains(t, requestBody(r), "BEGIN:VCALENDAR")
		w.Header().Set("ETag", `"created"`)
		w.WriteHeader(http.StatusCreated)
	}))
	defer server.Close()

	cal := ical.NewCalendar()
	cal.Props.SetText(ical.PropProductID, "-//benfviney//tsdav//EN")
	cal.Props.SetText(ical.PropVersion, "2.0")
	event := ical.NewEvent()
	event.Props.SetText(ical.PropUID, "uid-1")
	event.Props.SetDateTime(ical.PropDateTimeStamp, time.Unix(1700000000, 0).UTC())
	event.Props.SetDateTime(ical.PropDateTimeStart, time.Unix(1700000000, 0).UTC())
	cal.Children = append(cal.Children, event.Component)

	client := testClient(server.URL)
	objectURL, etag, err := client.CreateCalendarObject(context.Background(),
		Calendar{Collection: Collection{URL: server.URL + "/cal/default/"}}, cal)
	require.NoError(t, err)

	assert.Equal(t, `"created"`, etag)
	assert.True(t, strings.HasPrefix(putPath, "/cal/default/"))
	assert.True(t, strings.HasSuffix(objectURL, ".ics"))

	name := strings.TrimSuffix(strings.TrimPrefix(putPath, "/cal/default/"), ".ics")
	_, err = uuid.Parse(name)
	assert.NoError(t, err)
}

func TestCreateVCardObject(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "PUT", r.Method)
		assert.Equal(t, contentTypeVCard, r.Header.Get("Content-Type"))
		assert.Contains(t, requestBody(r), "BEGIN:VCARD")
		w.Header().Set("ETag", `"card-1"`)
		w.WriteHeader(http.StatusCreated)
	}))
	defer server.Close()

	card := vcard.Card{}
	card.SetValue(vcard.FieldFormattedName, "Alice Example")
	vcard.ToV4(card)

	client := testClient(server.URL)
	objectURL, etag, err := client.CreateVCardObject(context.Background(),
		AddressBook{Collection: Collection{URL: server.URL + "/ab/default/"}}, card)
	require.NoError(t, err)
	assert.Equal(t, `"card-1"`, etag)
	assert.True(t, strings.HasSuffix(objectURL, ".vcf"))
}

func TestCreateObjectEtagFallback(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == "PUT" {
			w.WriteHeader(http.StatusCreated)
			return
		}
		require.Equal(t, "PROPFIND", r.Method)
		w.WriteHeader(http.StatusMultiStatus)
		fmt.Fprintf(w, `<?xml version="1.0" encoding="utf-8"?>
<d:multistatus xmlns:d="DAV:">
  <d:response>
    <d:href>%s</d:href>
    <d:propstat><d:prop><d:getetag>"via-propfind"</d:getetag></d:prop><d:status>HTTP/1.1 200 OK</d:status></d:propstat>
  </d:response>
</d:multistatus>`, r.URL.Path)
	}))
	defer server.Close()

	cal := ical.NewCalendar()
	cal.Props.SetText(ical.PropProductID, "-//benfviney//tsdav//EN")
	cal.Props.SetText(ical.PropVersion, "2.0")
	event := ical.NewEvent()
	event.Props.SetText(ical.PropUID, "uid-1")
	event.Props.SetDateTime(ical.PropDateTimeStamp, time.Unix(1700000000, 0).UTC())
	event.Props.SetDateTime(ical.PropDateTimeStart, time.Unix(1700000000, 0).UTC())
	cal.Children = append(cal.Children, event.Component)

	client := testClient(server.URL)
	_, etag, err := client.CreateCalendarObject(context.Background(),
		Calendar{Collection: Collection{URL: server.URL + "/cal/default/"}}, cal)
	require.NoError(t, err)
	assert.Equal(t, `"via-propfind"`, etag)
}
