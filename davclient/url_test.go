package davclient

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestURLEquals(t *testing.T) {
	tests := []struct {
		name string
		a    string
		b    string
		want bool
	}{
		{name: "identical", a: "https://ex.com/cal/", b: "https://ex.com/cal/", want: true},
		{name: "trailing slash ignored", a: "https://ex.com/cal", b: "https://ex.com/cal/", want: true},
		{name: "whitespace ignored", a: " https://ex.com/cal ", b: "https://ex.com/cal", want: true},
		{name: "different", a: "https://ex.com/cal", b: "https://ex.com/other", want: false},
		{name: "both empty", a: "", b: "", want: true},
		{name: "one empty", a: "https://ex.com", b: "", want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, URLEquals(tt.a, tt.b))
			assert.Equal(t, tt.want, URLEquals(tt.b, tt.a))
		})
	}
}

func TestURLContains(t *testing.T) {
	tests := []struct {
		name string
		a    string
		b    string
		want bool
	}{
		{name: "path against absolute", a: "https://ex.com/cal/1.ics", b: "/cal/1.ics", want: true},
		{name: "equal", a: "/cal/1.ics", b: "/cal/1.ics", want: true},
		{name: "trailing slash", a: "/cal/", b: "/cal", want: true},
		{name: "unrelated", a: "/cal/1.ics", b: "/cal/2.ics", want: false},
		{name: "both empty", a: "", b: "", want: true},
		{name: "one empty", a: "/cal/", b: "", want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// symmetric by construction
			assert.Equal(t, tt.want, URLContains(tt.a, tt.b))
			assert.Equal(t, tt.want, URLContains(tt.b, tt.a))
		})
	}
}

func TestResolveHref(t *testing.T) {
	resolved, err := resolveHref("https://ex.com/dav/", "/cal/home/")
	assert.NoError(t, err)
	assert.Equal(t, "https://ex.com/cal/home/", resolved)

	resolved, err = resolveHref("https://ex.com/dav/", "https://other.example.com/cal/")
	assert.NoError(t, err)
	assert.Equal(t, "https://other.example.com/cal/", resolved)
}
