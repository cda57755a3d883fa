// Package auth provides http.RoundTripper implementations that attach
// Basic or OAuth credentials to outgoing WebDAV requests.
package auth

import (
	"io"
	"log/slog"
	"net/http"
)

// BasicAuthTransport implements http.RoundTripper, attaching an
// Authorization: Basic header to every outgoing request. Both credential
// fields must be set; an empty one fails the request with a
// ConfigMissingError before anything goes on the wire.
type BasicAuthTransport struct {
	Username  string
	Password  string
	Transport http.RoundTripper
	Logger    *slog.Logger
}

// NewBasicAuthTransport creates a BasicAuthTransport. A nil transport
// falls back to http.DefaultTransport at request time; a nil logger
// discards.
func NewBasicAuthTransport(username, password string, transport http.RoundTripper, logger *slog.Logger) *BasicAuthTransport {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &BasicAuthTransport{
		Username:  username,
		Password:  password,
		Transport: transport,
		Logger:    logger,
	}
}

// RoundTrip implements http.RoundTripper.
func (t *BasicAuthTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if err := t.checkCredentials(); err != nil {
		return nil, err
	}
	t.Logger.Debug("attaching basic auth",
		"method", req.Method,
		"url", req.URL.String(),
		"username", t.Username)
	req.SetBasicAuth(t.Username, t.Password)
	return t.transport().RoundTrip(req)
}

func (t *BasicAuthTransport) checkCredentials() error {
	var missing []string
	if t.Username == "" {
		missing = append(missing, "Username")
	}
	if t.Password == "" {
		missing = append(missing, "Password")
	}
	if len(missing) > 0 {
		return &ConfigMissingError{Fields: missing}
	}
	return nil
}

func (t *BasicAuthTransport) transport() http.RoundTripper {
	if t.Transport == nil {
		return http.DefaultTransport
	}
	return t.Transport
}
