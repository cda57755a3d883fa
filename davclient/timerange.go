package davclient

import (
	"regexp"
	"time"
)

// TimeRange bounds a calendar query. Start and End accept ISO-8601 in
// full date-time form (fractional seconds and zone offset optional), the
// same form without seconds, or the shorter date-only variants
// (YYYY-MM-DD, YYYY-MM, YYYY).
type TimeRange struct {
	Start string
	End   string
}

var (
	iso8601FullRe = regexp.MustCompile(`^\d{4}(-\d\d(-\d\d(T\d\d:\d\d(:\d\d)?(\.\d+)?(([+-]\d\d:\d\d)|Z)?)?)?)?$`)
	iso8601Re     = regexp.MustCompile(`^\d{4}-\d\d-\d\dT\d\d:\d\d:\d\d(\.\d+)?(([+-]\d\d:\d\d)|Z)?$`)
)

func validISO8601(value string) bool {
	return iso8601Re.MatchString(value) || iso8601FullRe.MatchString(value)
}

// Valid reports whether both endpoints are acceptable ISO-8601.
func (r TimeRange) Valid() bool {
	return validISO8601(r.Start) && validISO8601(r.End)
}

var timeLayouts = []string{
	"2006-01-02T15:04:05.999999999Z07:00",
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04:05Z07:00",
	"2006-01-02T15:04:05",
	"2006-01-02T15:04.999999999Z07:00",
	"2006-01-02T15:04.999999999",
	"2006-01-02",
	"2006-01",
	"2006",
}

// toBasicFormat renders an accepted ISO-8601 string in the compressed
// UTC basic format the CalDAV wire expects (YYYYMMDDTHHMMSSZ).
func toBasicFormat(value string) (string, error) {
	var parsed time.Time
	var err error
	for _, layout := range timeLayouts {
		parsed, err = time.Parse(layout, value)
		if err == nil {
			return parsed.UTC().Format("20060102T150405Z"), nil
		}
	}
	return "", err
}
