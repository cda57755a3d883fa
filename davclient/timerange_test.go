package davclient

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTimeRangeValid(t *testing.T) {
	tests := []struct {
		name  string
		value string
		want  bool
	}{
		{name: "full zulu", value: "2024-01-01T00:00:00Z", want: true},
		{name: "fractional seconds", value: "2024-01-01T00:00:00.123Z", want: true},
		{name: "offset", value: "2024-01-01T00:00:00+02:00", want: true},
		{name: "no zone", value: "2024-01-01T00:00:00", want: true},
		{name: "date only", value: "2024-01-01", want: true},
		{name: "words", value: "yesterday", want: false},
		{name: "empty", value: "", want: false},
		{name: "basic format is not accepted as input", value: "20240101T000000Z", want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := TimeRange{Start: tt.value, End: "2024-01-01T00:00:00Z"}
			assert.Equal(t, tt.want, r.Valid())
		})
	}
}

func TestToBasicFormat(t *testing.T) {
	tests := []struct {
		name  string
		value string
		want  string
	}{
		{name: "zulu", value: "2024-01-02T03:04:05Z", want: "20240102T030405Z"},
		{name: "offset converts to utc", value: "2024-01-02T03:04:05+02:00", want: "20240102T010405Z"},
		{name: "date only", value: "2024-01-02", want: "20240102T000000Z"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := toBasicFormat(tt.value)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	_, err := toBasicFormat("not a date")
	assert.Error(t, err)
}
