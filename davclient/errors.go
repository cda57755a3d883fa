package davclient

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrInvalidCredentials is returned when the principal lookup is
	// rejected with HTTP 401.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrHomeURLNotFound is returned when no home-set response matches the
	// principal URL.
	ErrHomeURLNotFound = errors.New("home url not found")
	// ErrCollectionNotFound is returned when a ctag probe has no response
	// matching the collection URL.
	ErrCollectionNotFound = errors.New("collection not found")
)

// MissingFieldError reports account or collection fields an operation
// requires but found empty.
type MissingFieldError struct {
	Fields []string
}

func (e *MissingFieldError) Error() string {
	return fmt.Sprintf("missing required fields: %s", strings.Join(e.Fields, ", "))
}

// InvalidTimeRangeError reports a time range that is not ISO-8601.
type InvalidTimeRangeError struct {
	Start string
	End   string
}

func (e *InvalidTimeRangeError) Error() string {
	return fmt.Sprintf("invalid time range: start=%q end=%q", e.Start, e.End)
}
