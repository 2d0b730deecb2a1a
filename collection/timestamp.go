package collection

import (
	"encoding/json"
	"math"
	"time"
)

// Keys of the tagged wrapper TimeStamp values are rendered as.
const (
	TypeTagKey   = "__type"
	TypeTagValue = "value"
)

// TaggedTimeStamp wraps t so that consumers can tell timestamps from strings:
// {"__type": "TimeStamp", "value": "<RFC3339>"}.
func TaggedTimeStamp(t time.Time) map[string]any {
	return map[string]any{
		TypeTagKey:   string(TimeStamp),
		TypeTagValue: t.UTC().Format(time.RFC3339Nano),
	}
}

// ParseTimeStamp converts any accepted TimeStamp input into a time.Time.
// Accepted forms are an RFC3339 string, the tagged wrapper produced by
// TaggedTimeStamp, and a number of seconds since the Unix epoch.
func ParseTimeStamp(v any) (time.Time, bool) {
	switch t := v.(type) {
	case string:
		parsed, err := time.Parse(time.RFC3339Nano, t)
		if err != nil {
			return time.Time{}, false
		}
		return parsed, true
	case map[string]any:
		if !isTaggedTimeStamp(t) {
			return time.Time{}, false
		}
		return ParseTimeStamp(t[TypeTagValue])
	}

	secs, ok := toFloat64(v)
	if !ok || math.IsNaN(secs) || math.IsInf(secs, 0) {
		return time.Time{}, false
	}
	whole, frac := math.Modf(secs)
	return time.Unix(int64(whole), int64(frac*1e9)).UTC(), true
}

func isTaggedTimeStamp(v any) bool {
	m, ok := v.(map[string]any)
	if !ok {
		return false
	}
	tag, _ := m[TypeTagKey].(string)
	_, hasValue := m[TypeTagValue].(string)
	return tag == string(TimeStamp) && hasValue
}

// toFloat64 widens every JSON number representation to float64.
func toFloat64(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	case int:
		return float64(n), true
	case int8:
		return float64(n), true
	case int16:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint:
		return float64(n), true
	case uint8:
		return float64(n), true
	case uint16:
		return float64(n), true
	case uint32:
		return float64(n), true
	case uint64:
		return float64(n), true
	}
	return 0, false
}

// ToFloat64 returns v as a float64 if it is any JSON number representation.
func ToFloat64(v any) (float64, bool) { return toFloat64(v) }
