package davclient

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"golang.org/x/sync/errgroup"
)

// SyncMethod selects the reconciliation strategy.
type SyncMethod string

const (
	// SyncMethodWebDAV walks the collection with sync-collection tokens
	// (RFC 6578).
	SyncMethodWebDAV SyncMethod = "webdav"
	// SyncMethodBasic compares ctags and refetches the whole collection.
	SyncMethodBasic SyncMethod = "basic"
)

// ObjectFetcher is the capability the sync engine needs from a collection
// type: batch-fetch named members and fetch the full membership.
type ObjectFetcher interface {
	MultiGet(ctx context.Context, collection Collection, hrefs []string) ([]DAVObject, error)
	FetchAll(ctx context.Context, collection Collection) ([]DAVObject, error)
}

// CollectionDiff partitions the objects of one sync pass. Deleted objects
// carry only their URL.
type CollectionDiff struct {
	Created   []DAVObject
	Updated   []DAVObject
	Deleted   []DAVObject
	Unchanged []DAVObject
}

// SyncResult is the outcome of SmartCollectionSync: a new collection value
// with refreshed ctag/sync-token, plus the diff when Detailed was set.
// Without Detailed the collection's Objects are the merged snapshot
// (unchanged + created + updated).
type SyncResult struct {
	Collection Collection
	Changed    bool
	Diff       *CollectionDiff
}

// SmartSyncOptions configures SmartCollectionSync.
type SmartSyncOptions struct {
	// Method overrides strategy selection; by default webdav is chosen
	// iff the collection advertises the syncCollection report.
	Method SyncMethod
	// Detailed asks for the created/updated/deleted partition instead of
	// the merged snapshot.
	Detailed bool
	// Fetcher overrides the account-type default capability.
	Fetcher ObjectFetcher
}

// SmartCollectionSync reconciles the local collection snapshot with the
// server and returns a new collection value; the input is never mutated.
func (c *Client) SmartCollectionSync(ctx context.Context, collection Collection, account Account, opts SmartSyncOptions) (*SyncResult, error) {
	var missing []string
	if account.AccountType == "" {
		missing = append(missing, "AccountType")
	}
	if account.HomeURL == "" {
		missing = append(missing, "HomeURL")
	}
	if len(missing) > 0 {
		return nil, &MissingFieldError{Fields: missing}
	}

	fetcher := opts.Fetcher
	if fetcher == nil {
		fetcher = c.fetcherFor(account.AccountType)
	}

	method := opts.Method
	if method == "" {
		method = SyncMethodBasic
		if containsString(collection.Reports, "syncCollection") {
			method = SyncMethodWebDAV
		}
	}

	c.logger.Debug("starting collection sync",
		"url", collection.URL,
		"method", string(method))

	switch method {
	case SyncMethodWebDAV:
		return c.webdavSync(ctx, collection, account, fetcher, opts.Detailed)
	default:
		return c.basicSync(ctx, collection, fetcher, opts.Detailed)
	}
}

// webdavSync walks the collection with the stored sync token, multigets
// the changed members, and diffs against the local snapshot.
func (c *Client) webdavSync(ctx context.Context, collection Collection, account Account, fetcher ObjectFetcher, detailed bool) (*SyncResult, error) {
	dataProp := "calendar-data"
	extension := ".ics"
	if account.AccountType == AccountTypeCardDAV {
		dataProp = "address-data"
		extension = ".vcf"
	}

	ms, err := c.SyncCollection(ctx, collection.URL,
		[]string{"getetag", dataProp, "displayname"}, "1", collection.SyncToken)
	if err != nil {
		return nil, fmt.Errorf("collection sync failed: %w", err)
	}

	var changedHrefs, deletedHrefs []string
	for _, response := range ms.Responses {
		if !strings.HasSuffix(strings.TrimSpace(response.Href), extension) {
			continue
		}
		if response.Status == http.StatusNotFound {
			deletedHrefs = append(deletedHrefs, response.Href)
		} else {
			changedHrefs = append(changedHrefs, response.Href)
		}
	}

	var remote []DAVObject
	if len(changedHrefs) > 0 {
		remote, err = fetcher.MultiGet(ctx, collection, changedHrefs)
		if err != nil {
			return nil, fmt.Errorf("collection sync failed: %w", err)
		}
	}

	// locals at a deleted href leave the snapshot; locals the delta never
	// mentioned carry forward as unchanged
	liveLocals := make([]DAVObject, 0, len(collection.Objects))
	for _, localObject := range collection.Objects {
		deleted := false
		for _, href := range deletedHrefs {
			if URLContains(localObject.URL, href) {
				deleted = true
				break
			}
		}
		if !deleted {
			liveLocals = append(liveLocals, localObject)
		}
	}

	diff := diffObjects(liveLocals, remote, false)
	for _, href := range deletedHrefs {
		diff.Deleted = append(diff.Deleted, DAVObject{URL: href})
	}

	synced := collection
	if ms.SyncToken != "" {
		synced.SyncToken = ms.SyncToken
	}

	changed := len(diff.Created)+len(diff.Updated)+len(diff.Deleted) > 0
	return buildSyncResult(synced, diff, changed, detailed), nil
}

// basicSync compares ctags, always refetches the membership for diffing,
// and only emits a new collection when the ctag moved.
func (c *Client) basicSync(ctx context.Context, collection Collection, fetcher ObjectFetcher, detailed bool) (*SyncResult, error) {
	isDirty, newCtag, err := c.IsCollectionDirty(ctx, collection)
	if err != nil {
		return nil, fmt.Errorf("collection sync failed: %w", err)
	}

	remote, err := fetcher.FetchAll(ctx, collection)
	if err != nil {
		return nil, fmt.Errorf("collection sync failed: %w", err)
	}

	if !isDirty {
		result := &SyncResult{Collection: collection}
		if detailed {
			result.Diff = &CollectionDiff{}
		}
		return result, nil
	}

	diff := diffObjects(collection.Objects, remote, true)
	synced := collection
	synced.Ctag = newCtag
	return buildSyncResult(synced, diff, true, detailed), nil
}

func buildSyncResult(collection Collection, diff *CollectionDiff, changed, detailed bool) *SyncResult {
	result := &SyncResult{Collection: collection, Changed: changed}
	if detailed {
		result.Diff = diff
		result.Collection.Objects = nil
		return result
	}
	merged := make([]DAVObject, 0, len(diff.Unchanged)+len(diff.Created)+len(diff.Updated))
	merged = append(merged, diff.Unchanged...)
	merged = append(merged, diff.Created...)
	merged = append(merged, diff.Updated...)
	result.Collection.Objects = merged
	return result
}

// diffObjects partitions remote objects against the local snapshot by
// URLContains identity and etag equality. With inferDeleted, locals with
// no remote counterpart count as deleted (basic strategy, where remote is
// the full membership); without it they stay unchanged (webdav strategy,
// where remote holds only the delta and deletions arrive as 404 entries).
func diffObjects(local, remote []DAVObject, inferDeleted bool) *CollectionDiff {
	diff := &CollectionDiff{}

	for _, remoteObject := range remote {
		matched := false
		for _, localObject := range local {
			if URLContains(localObject.URL, remoteObject.URL) {
				matched = true
				break
			}
		}
		if !matched {
			diff.Created = append(diff.Created, remoteObject)
		}
	}

	for _, localObject := range local {
		var match *DAVObject
		for i := range remote {
			if URLContains(localObject.URL, remote[i].URL) {
				match = &remote[i]
				break
			}
		}
		switch {
		case match == nil:
			if inferDeleted {
				diff.Deleted = append(diff.Deleted, DAVObject{URL: localObject.URL})
			} else {
				diff.Unchanged = append(diff.Unchanged, localObject)
			}
		case match.ETag != "" && match.ETag != localObject.ETag:
			diff.Updated = append(diff.Updated, *match)
		default:
			diff.Unchanged = append(diff.Unchanged, localObject)
		}
	}

	return diff
}

// calendarFetcher adapts the CalDAV operations to ObjectFetcher.
type calendarFetcher struct {
	client *Client
}

func (f calendarFetcher) MultiGet(ctx context.Context, collection Collection, hrefs []string) ([]DAVObject, error) {
	return f.client.FetchCalendarObjects(ctx, Calendar{Collection: collection},
		FetchCalendarObjectsOptions{ObjectURLs: hrefs})
}

func (f calendarFetcher) FetchAll(ctx context.Context, collection Collection) ([]DAVObject, error) {
	return f.client.FetchCalendarObjects(ctx, Calendar{Collection: collection}, FetchCalendarObjectsOptions{})
}

// addressBookFetcher adapts the CardDAV operations to ObjectFetcher.
type addressBookFetcher struct {
	client *Client
}

func (f addressBookFetcher) MultiGet(ctx context.Context, collection Collection, hrefs []string) ([]DAVObject, error) {
	return f.client.FetchVCards(ctx, AddressBook{Collection: collection},
		FetchVCardsOptions{ObjectURLs: hrefs})
}

func (f addressBookFetcher) FetchAll(ctx context.Context, collection Collection) ([]DAVObject, error) {
	return f.client.FetchVCards(ctx, AddressBook{Collection: collection}, FetchVCardsOptions{})
}

func (c *Client) fetcherFor(accountType AccountType) ObjectFetcher {
	if accountType == AccountTypeCardDAV {
		return addressBookFetcher{client: c}
	}
	return calendarFetcher{client: c}
}

// CalendarsDiff partitions an account's calendar list.
type CalendarsDiff struct {
	Created   []Calendar
	Updated   []Calendar
	Deleted   []Calendar
	Unchanged []Calendar
}

// SyncCalendarsOptions configures SyncCalendars.
type SyncCalendarsOptions struct {
	// OldCalendars is the local calendar snapshot; the account's cached
	// list when nil.
	OldCalendars []Calendar
	Detailed     bool
}

// CalendarsSyncResult is the outcome of SyncCalendars. Without Detailed,
// Calendars is the merged list (unchanged + created + updated-with-objects)
// and Diff is nil.
type CalendarsSyncResult struct {
	Calendars []Calendar
	Diff      *CalendarsDiff
}

// SyncCalendars diffs the account's calendar list against the server and
// re-syncs every matched calendar whose ctag or sync token moved, in
// parallel.
func (c *Client) SyncCalendars(ctx context.Context, account Account, opts SyncCalendarsOptions) (*CalendarsSyncResult, error) {
	if account.HomeURL == "" {
		return nil, &MissingFieldError{Fields: []string{"HomeURL"}}
	}

	oldCalendars := opts.OldCalendars
	if oldCalendars == nil {
		oldCalendars = account.Calendars
	}

	remoteCalendars, err := c.FetchCalendars(ctx, account)
	if err != nil {
		return nil, fmt.Errorf("calendar sync failed: %w", err)
	}

	diff := &CalendarsDiff{}
	var changed []Calendar
	for _, remote := range remoteCalendars {
		var local *Calendar
		for i := range oldCalendars {
			if URLContains(oldCalendars[i].URL, remote.URL) {
				local = &oldCalendars[i]
				break
			}
		}
		switch {
		case local == nil:
			diff.Created = append(diff.Created, remote)
		case local.SyncToken != remote.SyncToken || local.Ctag != remote.Ctag:
			carried := remote
			carried.SyncToken = local.SyncToken
			carried.Ctag = local.Ctag
			carried.Objects = local.Objects
			changed = append(changed, carried)
		default:
			keep := *local
			diff.Unchanged = append(diff.Unchanged, keep)
		}
	}
	for _, local := range oldCalendars {
		matched := false
		for _, remote := range remoteCalendars {
			if URLContains(local.URL, remote.URL) {
				matched = true
				break
			}
		}
		if !matched {
			diff.Deleted = append(diff.Deleted, local)
		}
	}

	updated := make([]Calendar, len(changed))
	g, gctx := errgroup.WithContext(ctx)
	for i := range changed {
		g.Go(func() error {
			result, err := c.SmartCollectionSync(gctx, changed[i].Collection, account, SmartSyncOptions{
				Method: SyncMethodWebDAV,
			})
			if err != nil {
				return err
			}
			synced := changed[i]
			synced.Collection = result.Collection
			updated[i] = synced
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("calendar sync failed: %w", err)
	}
	diff.Updated = updated

	if opts.Detailed {
		return &CalendarsSyncResult{Diff: diff}, nil
	}
	merged := make([]Calendar, 0, len(diff.Unchanged)+len(diff.Created)+len(diff.Updated))
	merged = append(merged, diff.Unchanged...)
	merged = append(merged, diff.Created...)
	merged = append(merged, diff.Updated...)
	return &CalendarsSyncResult{Calendars: merged}, nil
}
