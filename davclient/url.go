package davclient

import (
	"fmt"
	"net/url"
	"strings"
)

// URLEquals compares two resource URLs up to surrounding whitespace and a
// trailing slash.
func URLEquals(a, b string) bool {
	a = strings.TrimSuffix(strings.TrimSpace(a), "/")
	b = strings.TrimSuffix(strings.TrimSpace(b), "/")
	return a == b
}

// URLContains is the URL identity the sync engine uses: true iff either
// normalized URL contains the other, so absolute URLs and server-relative
// hrefs of the same resource match.
func URLContains(a, b string) bool {
	a = strings.TrimSuffix(strings.TrimSpace(a), "/")
	b = strings.TrimSuffix(strings.TrimSpace(b), "/")
	if a == "" && b == "" {
		return true
	}
	if a == "" || b == "" {
		return false
	}
	return strings.Contains(a, b) || strings.Contains(b, a)
}

// resolveHref resolves an href from a response against a base URL.
// Absolute hrefs come back unchanged.
func resolveHref(base, href string) (string, error) {
	baseURL, err := url.Parse(base)
	if err != nil {
		return "", fmt.Errorf("failed to parse base URL %q: %w", base, err)
	}
	ref, err := url.Parse(href)
	if err != nil {
		return "", fmt.Errorf("failed to parse href %q: %w", href, err)
	}
	return baseURL.ResolveReference(ref).String(), nil
}
