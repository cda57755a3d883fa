package davclient

import (
	"context"
	"fmt"
	"strings"

	"github.com/benfviney/tsdav/internal/xml"
	"golang.org/x/sync/errgroup"
)

// addressBookPropfindProps is the default property set requested when
// enumerating address books.
var addressBookPropfindProps = []string{
	"displayname",
	"getctag",
	"resourcetype",
	"sync-token",
}

// FetchAddressBooks enumerates the address-book collections under the
// account's home set and attaches each one's supported report set.
func (c *Client) FetchAddressBooks(ctx context.Context, account Account) ([]AddressBook, error) {
	if err := requireAccountFields(account); err != nil {
		return nil, err
	}

	ms, err := c.davRequest(ctx, davRequestOptions{
		Method: "PROPFIND",
		URL:    account.HomeURL,
		Depth:  "1",
		Doc:    (&xml.PropfindRequest{Prop: addressBookPropfindProps}).ToXML(),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to fetch address books: %w", err)
	}

	var books []AddressBook
	for _, response := range ms.Responses {
		resourceTypes := resourceTypeTags(response)
		if !containsString(resourceTypes, "addressbook") {
			continue
		}
		bookURL, err := resolveHref(account.RootURL, response.Href)
		if err != nil {
			return nil, err
		}
		books = append(books, AddressBook{
			Collection: Collection{
				URL:          bookURL,
				Ctag:         response.PropString("getctag").OrElse(""),
				SyncToken:    response.PropString("syncToken").OrElse(""),
				DisplayName:  response.PropString("displayname").OrElse(""),
				ResourceType: resourceTypes,
			},
		})
	}

	g, gctx := errgroup.WithContext(ctx)
	for i := range books {
		g.Go(func() error {
			reports, err := c.SupportedReportSet(gctx, books[i].URL)
			if err != nil {
				return err
			}
			books[i].Reports = reports
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("failed to fetch address books: %w", err)
	}

	c.logger.Debug("fetched address books", "count", len(books))
	return books, nil
}

// FetchVCardsOptions narrows a vCard fetch. With no ObjectURLs an
// addressbook-query runs first to collect hrefs.
type FetchVCardsOptions struct {
	ObjectURLs  []string
	PropFilters []xml.PropFilter
	// URLFilter keeps matching hrefs; defaults to strings.Contains(".vcf").
	URLFilter func(string) bool
}

// FetchVCards fetches the members of an address book via
// addressbook-query plus addressbook-multiget.
func (c *Client) FetchVCards(ctx context.Context, book AddressBook, opts FetchVCardsOptions) ([]VCard, error) {
	urlFilter := opts.URLFilter
	if urlFilter == nil {
		urlFilter = func(href string) bool { return strings.Contains(href, ".vcf") }
	}

	objectURLs := opts.ObjectURLs
	if objectURLs == nil {
		propFilters := opts.PropFilters
		if propFilters == nil {
			propFilters = []xml.PropFilter{{Name: "FN"}}
		}
		report := &xml.ReportRequest{AddressQuery: &xml.AddressbookQuery{
			Props:       []string{"getetag"},
			PropFilters: propFilters,
		}}
		responses, err := c.CollectionQuery(ctx, book.URL, report.ToXML(), "1")
		if err != nil {
			return nil, fmt.Errorf("addressbook query failed: %w", err)
		}
		for _, response := range responses {
			if response.Href != "" && urlFilter(response.Href) {
				objectURLs = append(objectURLs, response.Href)
			}
		}
	}

	hrefs, err := toPathnames(book.URL, objectURLs)
	if err != nil {
		return nil, err
	}
	if len(hrefs) == 0 {
		return nil, nil
	}

	report := &xml.ReportRequest{AddressMultiGet: &xml.AddressbookMultiGet{
		Props: []string{"getetag", "address-data"},
		Hrefs: hrefs,
	}}
	responses, err := c.CollectionQuery(ctx, book.URL, report.ToXML(), "1")
	if err != nil {
		return nil, fmt.Errorf("addressbook multiget failed: %w", err)
	}

	return objectsFromResponses(book.URL, responses, "addressData")
}
