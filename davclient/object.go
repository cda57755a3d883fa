package davclient

import (
	"bytes"
	"context"
	"fmt"
	"net/url"

	"github.com/benfviney/tsdav/internal/httpclient"
	"github.com/benfviney/tsdav/internal/xml"
	"github.com/emersion/go-ical"
	"github.com/emersion/go-vcard"
	"github.com/google/uuid"
)

const (
	contentTypeCalendar = "text/calendar; charset=utf-8"
	contentTypeVCard    = "text/vcard; charset=utf-8"
)

// CreateObject PUTs a new object. If-None-Match: * guarantees the request
// fails rather than overwrite an existing resource.
func (c *Client) CreateObject(ctx context.Context, objectURL, data, contentType string) (*httpclient.Result, error) {
	return c.davRequestRaw(ctx, davRequestOptions{
		Method:  "PUT",
		URL:     objectURL,
		RawBody: []byte(data),
		Headers: map[string]string{
			"Content-Type":  contentType,
			"If-None-Match": "*",
		},
	})
}

// UpdateObject PUTs over an existing object. The etag, when known, rides
// in If-Match so a concurrent server-side change fails the update.
func (c *Client) UpdateObject(ctx context.Context, object DAVObject, contentType string) (*httpclient.Result, error) {
	headers := map[string]string{
		"Content-Type": contentType,
	}
	if object.ETag != "" {
		headers["If-Match"] = object.ETag
	}
	return c.davRequestRaw(ctx, davRequestOptions{
		Method:  "PUT",
		URL:     object.URL,
		RawBody: []byte(object.Data),
		Headers: headers,
	})
}

// DeleteObject deletes an object, with If-Match when an etag is in hand.
func (c *Client) DeleteObject(ctx context.Context, objectURL, etag string) (*httpclient.Result, error) {
	headers := map[string]string{}
	if etag != "" {
		headers["If-Match"] = etag
	}
	return c.davRequestRaw(ctx, davRequestOptions{
		Method:  "DELETE",
		URL:     objectURL,
		Headers: headers,
	})
}

// CreateCalendarObject encodes the calendar and creates it under the
// collection with a generated UUID filename. Returns the object URL and
// its etag, fetched separately when the server omits the ETag header.
func (c *Client) CreateCalendarObject(ctx context.Context, calendar Calendar, cal *ical.Calendar) (string, string, error) {
	var buf bytes.Buffer
	if err := ical.NewEncoder(&buf).Encode(cal); err != nil {
		return "", "", fmt.Errorf("failed to encode calendar object: %w", err)
	}

	objectURL, err := memberURL(calendar.URL, uuid.New().String()+".ics")
	if err != nil {
		return "", "", err
	}

	result, err := c.CreateObject(ctx, objectURL, buf.String(), contentTypeCalendar)
	if err != nil {
		return "", "", fmt.Errorf("failed to create calendar object: %w", err)
	}
	if !result.OK {
		return "", "", fmt.Errorf("failed to create calendar object: status %d", result.Status)
	}

	etag, err := c.etagAfterWrite(ctx, objectURL, result)
	if err != nil {
		return objectURL, "", err
	}
	return objectURL, etag, nil
}

// CreateVCardObject encodes the card and creates it under the address
// book with a generated UUID filename.
func (c *Client) CreateVCardObject(ctx context.Context, book AddressBook, card vcard.Card) (string, string, error) {
	var buf bytes.Buffer
	enc := vcard.NewEncoder(&buf)
	if err := enc.Encode(card); err != nil {
		return "", "", fmt.Errorf("failed to encode vcard: %w", err)
	}

	objectURL, err := memberURL(book.URL, uuid.New().String()+".vcf")
	if err != nil {
		return "", "", err
	}

	result, err := c.CreateObject(ctx, objectURL, buf.String(), contentTypeVCard)
	if err != nil {
		return "", "", fmt.Errorf("failed to create vcard: %w", err)
	}
	if !result.OK {
		return "", "", fmt.Errorf("failed to create vcard: status %d", result.Status)
	}

	etag, err := c.etagAfterWrite(ctx, objectURL, result)
	if err != nil {
		return objectURL, "", err
	}
	return objectURL, etag, nil
}

// etagAfterWrite prefers the ETag response header and falls back to a
// PROPFIND when the server does not return one.
func (c *Client) etagAfterWrite(ctx context.Context, objectURL string, result *httpclient.Result) (string, error) {
	if etag := result.Header.Get("ETag"); etag != "" {
		return etag, nil
	}
	ms, err := c.davRequest(ctx, davRequestOptions{
		Method: "PROPFIND",
		URL:    objectURL,
		Depth:  "0",
		Doc:    (&xml.PropfindRequest{Prop: []string{"getetag"}}).ToXML(),
	})
	if err != nil {
		return "", fmt.Errorf("failed to fetch etag after write: %w", err)
	}
	for _, response := range ms.Responses {
		if etag := response.PropString("getetag").OrElse(""); etag != "" {
			return etag, nil
		}
	}
	return "", nil
}

func memberURL(collectionURL, name string) (string, error) {
	base, err := url.Parse(collectionURL)
	if err != nil {
		return "", fmt.Errorf("failed to parse collection URL %q: %w", collectionURL, err)
	}
	ref, err := url.Parse(name)
	if err != nil {
		return "", fmt.Errorf("failed to parse object name %q: %w", name, err)
	}
	return base.ResolveReference(ref).String(), nil
}
