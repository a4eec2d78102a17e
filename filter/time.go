package filter

import "time"

// TimeLayout is the form timestamps are compared in: UTC with a fixed-width
// fraction, so lexical order is chronological order.
const TimeLayout = "2006-01-02T15:04:05.000000000Z"

// FormatTime renders t in TimeLayout.
func FormatTime(t time.Time) string {
	return t.UTC().Format(TimeLayout)
}

// Canonical rewrites RFC 3339 timestamps inside a JSON-decoded value into
// TimeLayout. Maps and slices are rewritten in place.
func Canonical(v any) any {
	switch v := v.(type) {
	case string:
		return canonicalTime(v)
	case map[string]any:
		for k, e := range v {
			v[k] = Canonical(e)
		}
		return v
	case []any:
		for i, e := range v {
			v[i] = Canonical(e)
		}
		return v
	}
	return v
}

func canonicalTime(s string) string {
	if len(s) < len("2006-01-02T15:04:05Z") || s[4] != '-' || s[10] != 'T' {
		return s
	}
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return s
	}
	return FormatTime(t)
}
