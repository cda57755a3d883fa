package davclient

import (
	"io"
	"log/slog"
	"net/http"

	"github.com/benfviney/tsdav/internal/httpclient"
)

// Options configures a Client.
type Options struct {
	// ServerURL is the endpoint the account bootstrap starts from.
	ServerURL string
	// AccountType selects caldav or carddav; caldav when empty.
	AccountType AccountType
	// Transport supplies authentication, typically *auth.BasicAuthTransport
	// or *auth.OAuthTransport. Ignored when Client is set.
	Transport http.RoundTripper
	// Client overrides the whole HTTP client.
	Client *http.Client
	// ProxyPrefix is prepended to every outbound URL (string concatenation,
	// not rewriting).
	ProxyPrefix string
	// Headers are default headers merged under per-request ones.
	Headers map[string]string
	Logger  *slog.Logger
}

// Client is the CalDAV/CardDAV client facade. It binds the server URL,
// account type and default headers to the underlying operations. All
// methods are safe for concurrent use; every sync pass consumes immutable
// inputs and returns new values.
type Client struct {
	http        *httpclient.Client
	serverURL   string
	accountType AccountType
	logger      *slog.Logger
}

// New creates a Client.
func New(opts Options) *Client {
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	accountType := opts.AccountType
	if accountType == "" {
		accountType = AccountTypeCalDAV
	}
	hc := opts.Client
	if hc == nil {
		hc = &http.Client{Transport: opts.Transport}
	}
	return &Client{
		http: httpclient.New(httpclient.Options{
			Client:         hc,
			ProxyPrefix:    opts.ProxyPrefix,
			DefaultHeaders: opts.Headers,
			Logger:         logger,
		}),
		serverURL:   opts.ServerURL,
		accountType: accountType,
		logger:      logger,
	}
}

// ServerURL returns the configured server endpoint.
func (c *Client) ServerURL() string { return c.serverURL }

// AccountType returns the configured account type.
func (c *Client) AccountType() AccountType { return c.accountType }
