package davclient

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/benfviney/tsdav/internal/xml"
	"golang.org/x/sync/errgroup"
)

// ServiceDiscovery probes the .well-known endpoint for the account type
// with redirects disabled and returns the discovered root URL. Discovery
// failures are not fatal: the server URL is returned unchanged.
func (c *Client) ServiceDiscovery(ctx context.Context, account Account) (string, error) {
	endpoint, err := url.Parse(account.ServerURL)
	if err != nil {
		return "", fmt.Errorf("failed to parse server URL %q: %w", account.ServerURL, err)
	}

	wellKnown := fmt.Sprintf("%s://%s/.well-known/%s", endpoint.Scheme, endpoint.Host, account.AccountType)
	result, err := c.davRequestRaw(ctx, davRequestOptions{
		Method:     "PROPFIND",
		URL:        wellKnown,
		Depth:      "0",
		Doc:        (&xml.PropfindRequest{Prop: []string{"current-user-principal"}}).ToXML(),
		NoRedirect: true,
	})
	if err != nil {
		c.logger.Debug("service discovery failed, falling back to server url",
			"url", wellKnown, "error", err)
		return account.ServerURL, nil
	}

	if result.Status >= 300 && result.Status < 400 {
		location := result.Header.Get("Location")
		if location != "" {
			redirect, err := url.Parse(location)
			if err != nil {
				c.logger.Debug("service discovery returned unparseable location",
					"location", location, "error", err)
				return account.ServerURL, nil
			}
			resolved := endpoint.ResolveReference(redirect)
			// keep the original port when the redirect names the same host
			// without one, and always keep the original scheme
			if resolved.Port() == "" && endpoint.Port() != "" && resolved.Hostname() == endpoint.Hostname() {
				resolved.Host = resolved.Hostname() + ":" + endpoint.Port()
			}
			resolved.Scheme = endpoint.Scheme
			return resolved.String(), nil
		}
	}

	return account.ServerURL, nil
}

// FetchPrincipalURL looks up the current-user-principal under the account
// root. An HTTP 401 means the credentials were rejected.
func (c *Client) FetchPrincipalURL(ctx context.Context, account Account) (string, error) {
	ms, err := c.davRequest(ctx, davRequestOptions{
		Method: "PROPFIND",
		URL:    account.RootURL,
		Depth:  "0",
		Doc:    (&xml.PropfindRequest{Prop: []string{"current-user-principal"}}).ToXML(),
	})
	if err != nil {
		return "", err
	}
	if len(ms.Responses) == 0 {
		return "", fmt.Errorf("empty principal response for %s", account.RootURL)
	}
	response := ms.Responses[0]
	if response.Status == http.StatusUnauthorized {
		return "", ErrInvalidCredentials
	}
	principal := response.PropHref("currentUserPrincipal").OrElse("")
	resolved, err := resolveHref(account.RootURL, principal)
	if err != nil {
		return "", err
	}
	c.logger.Debug("found principal url", "principal_url", resolved)
	return resolved, nil
}

// FetchHomeURL looks up the calendar or address-book home set under the
// principal URL.
func (c *Client) FetchHomeURL(ctx context.Context, account Account) (string, error) {
	homeProp := "calendar-home-set"
	homeKey := "calendarHomeSet"
	if account.AccountType == AccountTypeCardDAV {
		homeProp = "addressbook-home-set"
		homeKey = "addressbookHomeSet"
	}

	ms, err := c.davRequest(ctx, davRequestOptions{
		Method: "PROPFIND",
		URL:    account.PrincipalURL,
		Depth:  "0",
		Doc:    (&xml.PropfindRequest{Prop: []string{homeProp}}).ToXML(),
	})
	if err != nil {
		return "", err
	}

	for _, response := range ms.Responses {
		if !URLContains(account.PrincipalURL, response.Href) {
			continue
		}
		home := response.PropHref(homeKey).OrElse("")
		if home == "" {
			continue
		}
		resolved, err := resolveHref(account.RootURL, home)
		if err != nil {
			return "", err
		}
		c.logger.Debug("found home url", "home_url", resolved)
		return resolved, nil
	}

	return "", fmt.Errorf("%w: no response matched %s", ErrHomeURLNotFound, account.PrincipalURL)
}

// CreateAccountOptions controls how much of the account CreateAccount
// populates beyond the discovered URLs.
type CreateAccountOptions struct {
	LoadCollections bool
	LoadObjects     bool
}

// CreateAccount bootstraps an account: service discovery, principal
// lookup and home lookup run in order, then collections and their object
// snapshots load on demand. Loading objects implies loading collections.
func (c *Client) CreateAccount(ctx context.Context, account Account, opts CreateAccountOptions) (Account, error) {
	if account.ServerURL == "" {
		account.ServerURL = c.serverURL
	}
	if account.AccountType == "" {
		account.AccountType = c.accountType
	}

	rootURL, err := c.ServiceDiscovery(ctx, account)
	if err != nil {
		return account, fmt.Errorf("account creation failed: %w", err)
	}
	account.RootURL = rootURL

	account.PrincipalURL, err = c.FetchPrincipalURL(ctx, account)
	if err != nil {
		return account, fmt.Errorf("account creation failed: %w", err)
	}

	account.HomeURL, err = c.FetchHomeURL(ctx, account)
	if err != nil {
		return account, fmt.Errorf("account creation failed: %w", err)
	}

	if !opts.LoadCollections && !opts.LoadObjects {
		return account, nil
	}

	switch account.AccountType {
	case AccountTypeCardDAV:
		books, err := c.FetchAddressBooks(ctx, account)
		if err != nil {
			return account, fmt.Errorf("account creation failed: %w", err)
		}
		if opts.LoadObjects {
			g, gctx := errgroup.WithContext(ctx)
			for i := range books {
				g.Go(func() error {
					objects, err := c.FetchVCards(gctx, books[i], FetchVCardsOptions{})
					if err != nil {
						return err
					}
					books[i].Objects = objects
					return nil
				})
			}
			if err := g.Wait(); err != nil {
				return account, fmt.Errorf("account creation failed: %w", err)
			}
		}
		account.AddressBooks = books
	default:
		calendars, err := c.FetchCalendars(ctx, account)
		if err != nil {
			return account, fmt.Errorf("account creation failed: %w", err)
		}
		if opts.LoadObjects {
			g, gctx := errgroup.WithContext(ctx)
			for i := range calendars {
				g.Go(func() error {
					objects, err := c.FetchCalendarObjects(gctx, calendars[i], FetchCalendarObjectsOptions{})
					if err != nil {
						return err
					}
					calendars[i].Objects = objects
					return nil
				})
			}
			if err := g.Wait(); err != nil {
				return account, fmt.Errorf("account creation failed: %w", err)
			}
		}
		account.Calendars = calendars
	}

	return account, nil
}
