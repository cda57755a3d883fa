package davclient

import (
	"context"
	"fmt"

	"github.com/beevik/etree"
	"github.com/benfviney/tsdav/internal/xml"
)

// CollectionQuery issues a generic REPORT against a collection. A sole
// response without a decoded body yields an empty list.
func (c *Client) CollectionQuery(ctx context.Context, collectionURL string, doc *etree.Document, depth string) ([]DAVResponse, error) {
	ms, err := c.davRequest(ctx, davRequestOptions{
		Method: "REPORT",
		URL:    collectionURL,
		Depth:  depth,
		Doc:    doc,
	})
	if err != nil {
		return nil, fmt.Errorf("collection query failed: %w", err)
	}
	if len(ms.Responses) == 1 && ms.Responses[0].Raw == nil {
		return nil, nil
	}
	return ms.Responses, nil
}

// MakeCollection issues MKCOL; props, when present, are sent as an
// extended MKCOL set body.
func (c *Client) MakeCollection(ctx context.Context, collectionURL string, props []Elem, depth string) ([]DAVResponse, error) {
	req := &xml.MkcolRequest{Props: props}
	ms, err := c.davRequest(ctx, davRequestOptions{
		Method: "MKCOL",
		URL:    collectionURL,
		Depth:  depth,
		Doc:    req.ToXML(),
	})
	if err != nil {
		return nil, fmt.Errorf("mkcol failed: %w", err)
	}
	return ms.Responses, nil
}

// MakeCalendar issues MKCALENDAR with the CalDAV body shape.
func (c *Client) MakeCalendar(ctx context.Context, calendarURL string, props []Elem, depth string) ([]DAVResponse, error) {
	req := &xml.MkcalendarRequest{Props: props}
	ms, err := c.davRequest(ctx, davRequestOptions{
		Method: "MKCALENDAR",
		URL:    calendarURL,
		Depth:  depth,
		Doc:    req.ToXML(),
	})
	if err != nil {
		return nil, fmt.Errorf("mkcalendar failed: %w", err)
	}
	return ms.Responses, nil
}

// SupportedReportSet fetches the reports a collection advertises, as
// camelCased names ("syncCollection", "calendarMultiget", ...).
func (c *Client) SupportedReportSet(ctx context.Context, collectionURL string) ([]string, error) {
	ms, err := c.davRequest(ctx, davRequestOptions{
		Method: "PROPFIND",
		URL:    collectionURL,
		Depth:  "0",
		Doc:    (&xml.PropfindRequest{Prop: []string{"supported-report-set"}}).ToXML(),
	})
	if err != nil {
		return nil, fmt.Errorf("supported-report-set lookup failed: %w", err)
	}

	var reports []string
	for _, response := range ms.Responses {
		set, ok := response.Props["supportedReportSet"].(map[string]any)
		if !ok {
			continue
		}
		supported := set["supportedReport"]
		entries, ok := supported.([]any)
		if !ok {
			if supported == nil {
				continue
			}
			entries = []any{supported}
		}
		for _, entry := range entries {
			m, ok := entry.(map[string]any)
			if !ok {
				continue
			}
			if name := xml.FirstKey(m["report"]); name != "" {
				reports = append(reports, name)
			}
		}
	}
	return reports, nil
}

// IsCollectionDirty compares the collection's ctag against the server's.
// The returned ctag is the server's current value regardless of dirtiness.
func (c *Client) IsCollectionDirty(ctx context.Context, collection Collection) (bool, string, error) {
	ms, err := c.davRequest(ctx, davRequestOptions{
		Method: "PROPFIND",
		URL:    collection.URL,
		Depth:  "0",
		Doc:    (&xml.PropfindRequest{Prop: []string{"getctag"}}).ToXML(),
	})
	if err != nil {
		return false, "", fmt.Errorf("ctag lookup failed: %w", err)
	}

	for _, response := range ms.Responses {
		if !URLContains(collection.URL, response.Href) {
			continue
		}
		newCtag := response.PropString("getctag").OrElse("")
		return collection.Ctag != newCtag, newCtag, nil
	}
	return false, "", fmt.Errorf("%w: %s", ErrCollectionNotFound, collection.URL)
}

// SyncCollection issues a sync-collection REPORT (RFC 6578). An empty
// syncToken requests the initial listing; the response carries the next
// token in Multistatus.SyncToken.
func (c *Client) SyncCollection(ctx context.Context, collectionURL string, props []string, syncLevel, syncToken string) (*xml.Multistatus, error) {
	req := &xml.SyncCollectionRequest{
		SyncToken: syncToken,
		SyncLevel: syncLevel,
		Prop:      props,
	}
	ms, err := c.davRequest(ctx, davRequestOptions{
		Method: "REPORT",
		URL:    collectionURL,
		Depth:  "1",
		Doc:    req.ToXML(),
	})
	if err != nil {
		return nil, fmt.Errorf("sync-collection failed: %w", err)
	}
	return ms, nil
}
