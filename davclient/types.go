// Package davclient implements a CalDAV (RFC 4791) and CardDAV (RFC 6352)
// client on top of WebDAV (RFC 4918): account discovery, collection and
// object operations, and incremental collection sync.
package davclient

import "github.com/benfviney/tsdav/internal/xml"

// AccountType selects the DAV flavor of an account.
type AccountType string

const (
	AccountTypeCalDAV  AccountType = "caldav"
	AccountTypeCardDAV AccountType = "carddav"
)

// Account describes one server-side account. ServerURL is caller-supplied;
// RootURL, PrincipalURL and HomeURL are discovered by CreateAccount.
type Account struct {
	AccountType  AccountType
	ServerURL    string
	RootURL      string
	PrincipalURL string
	HomeURL      string
	Calendars    []Calendar
	AddressBooks []AddressBook
}

// DAVObject is one member resource of a collection. Data is the raw
// iCalendar or vCard payload; the library never parses it.
type DAVObject struct {
	URL  string
	ETag string
	Data string
}

// CalendarObject is a DAVObject whose Data is iCalendar text.
type CalendarObject = DAVObject

// VCard is a DAVObject whose Data is vCard text.
type VCard = DAVObject

// Collection is the common base of calendars and address books. URL is
// absolute; Objects is the local snapshot the sync engine diffs against.
type Collection struct {
	URL          string
	Ctag         string
	SyncToken    string
	DisplayName  string
	ResourceType []string
	Reports      []string
	Objects      []DAVObject
}

// Calendar is a CalDAV calendar collection.
type Calendar struct {
	Collection
	Description string
	Timezone    string
	Color       string
	Components  []string
}

// AddressBook is a CardDAV address book collection.
type AddressBook struct {
	Collection
}

// KnownComponents are the iCalendar component names a calendar must
// advertise at least one of to be usable.
var KnownComponents = []string{"VEVENT", "VTODO", "VJOURNAL", "VFREEBUSY", "VTIMEZONE", "VALARM"}

// DAVResponse is the normalized per-resource envelope of a multistatus
// response: flattened camelCased Props, per-propstat detail in Propstats,
// and the raw decoded element for rare fallbacks.
type DAVResponse = xml.Response

// Elem is a caller-supplied XML fragment, used for MKCOL and MKCALENDAR
// property values.
type Elem = xml.Elem
