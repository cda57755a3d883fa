package davclient

import (
	"context"
	"fmt"

	"github.com/beevik/etree"
	"github.com/benfviney/tsdav/internal/httpclient"
	"github.com/benfviney/tsdav/internal/xml"
)

// davRequestOptions describes one DAV request. Doc takes precedence over
// RawBody.
type davRequestOptions struct {
	Method     string
	URL        string
	Depth      string
	Headers    map[string]string
	Doc        *etree.Document
	RawBody    []byte
	NoRedirect bool
}

// davRequestRaw executes the request and returns the transport envelope
// without touching the body.
func (c *Client) davRequestRaw(ctx context.Context, opts davRequestOptions) (*httpclient.Result, error) {
	body := opts.RawBody
	if opts.Doc != nil {
		var err error
		body, err = opts.Doc.WriteToBytes()
		if err != nil {
			return nil, fmt.Errorf("failed to serialize request body: %w", err)
		}
	}
	headers := map[string]string{}
	if opts.Depth != "" {
		headers["Depth"] = opts.Depth
	}
	for k, v := range opts.Headers {
		headers[k] = v
	}
	return c.http.Do(ctx, httpclient.RequestOptions{
		Method:     opts.Method,
		URL:        opts.URL,
		Headers:    headers,
		Body:       body,
		NoRedirect: opts.NoRedirect,
	})
}

// davRequest executes the request and decodes the body as multistatus.
// A body that is not a multistatus document yields a single synthetic
// envelope carrying the transport status and the body text; non-2xx
// statuses never become errors here.
func (c *Client) davRequest(ctx context.Context, opts davRequestOptions) (*xml.Multistatus, error) {
	result, err := c.davRequestRaw(ctx, opts)
	if err != nil {
		return nil, err
	}
	ms, err := xml.ParseMultistatus(result.Body, result.Status, result.StatusText)
	if err != nil {
		c.logger.Debug("response is not multistatus, returning synthetic envelope",
			"url", opts.URL,
			"status", result.Status,
			"error", err)
		return &xml.Multistatus{
			Responses: []xml.Response{{
				Href:       result.URL,
				Status:     result.Status,
				StatusText: result.StatusText,
				OK:         result.OK,
				RawText:    string(result.Body),
			}},
		}, nil
	}
	return ms, nil
}
