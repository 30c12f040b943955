package catalog

import (
	"time"
)

// Metadata field names accepted on the wire.
const (
	MetaDuration       = "duration"
	MetaStreak         = "streak"
	MetaComplexity     = "complexity"
	MetaIsWeekend      = "is_weekend"
	MetaIsFirstTask    = "is_first_task"
	MetaCurrentStreak  = "current_streak"
	MetaCompletionTime = "completion_time"
	MetaSpecialEvent   = "special_event_multiplier"
)

// ParseMeta converts a loosely typed metadata bag (as decoded from JSON) into
// an EventMeta. Malformed or missing fields fall back to their zero value and
// never produce an error: the point calculation must stay total.
func ParseMeta(raw map[string]interface{}) EventMeta {
	if raw == nil {
		return EventMeta{}
	}

	meta := EventMeta{
		DurationMinutes: intField(raw, MetaDuration),
		Streak:          intField(raw, MetaStreak),
		Complexity:      intField(raw, MetaComplexity),
		IsWeekend:       boolField(raw, MetaIsWeekend),
		IsFirstTask:     boolField(raw, MetaIsFirstTask),
		CurrentStreak:   intField(raw, MetaCurrentStreak),
		SpecialEvent:    floatField(raw, MetaSpecialEvent),
	}

	if ts := timeField(raw, MetaCompletionTime); ts != nil {
		meta.CompletionTime = ts
	}

	return meta
}

func intField(raw map[string]interface{}, key string) int {
	switch v := raw[key].(type) {
	case float64: // JSON numbers decode as float64
		return int(v)
	case int:
		return v
	case int64:
		return int(v)
	default:
		return 0
	}
}

func floatField(raw map[string]interface{}, key string) float64 {
	switch v := raw[key].(type) {
	case float64:
		return v
	case int:
		return float64(v)
	default:
		return 0
	}
}

func boolField(raw map[string]interface{}, key string) bool {
	v, _ := raw[key].(bool)
	return v
}

func timeField(raw map[string]interface{}, key string) *time.Time {
	switch v := raw[key].(type) {
	case time.Time:
		return &v
	case string:
		if ts, err := time.Parse(time.RFC3339, v); err == nil {
			return &ts
		}
		return nil
	default:
		return nil
	}
}
