package alerts

import (
	"strconv"
	"strings"
	"time"
)

// layouts tried for free-form date strings, most specific first
var dateLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// NormalizeSourceDate converts a heterogeneous source timestamp into a
// time.Time. Different upstream senders format timestamps inconsistently:
//   - nil / empty → now
//   - number → unix seconds
//   - numeric string (optionally with a decimal part) → unix seconds
//   - any other string → generic date parsing, falling back to now
//
// It never fails; an unparseable value yields the current time.
func NormalizeSourceDate(value interface{}) time.Time {
	now := time.Now().UTC()

	switch v := value.(type) {
	case nil:
		return now
	case float64:
		return unixSeconds(v)
	case int64:
		return unixSeconds(float64(v))
	case int:
		return unixSeconds(float64(v))
	case string:
		s := strings.TrimSpace(v)
		if s == "" {
			return now
		}
		if secs, err := strconv.ParseFloat(s, 64); err == nil {
			return unixSeconds(secs)
		}
		for _, layout := range dateLayouts {
			if t, err := time.Parse(layout, s); err == nil {
				return t.UTC()
			}
		}
		return now
	default:
		return now
	}
}

func unixSeconds(secs float64) time.Time {
	millis := int64(secs * 1000)
	return time.UnixMilli(millis).UTC()
}
