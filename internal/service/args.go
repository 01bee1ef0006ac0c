package service

import (
	"encoding/json"
	"math"
)

// Argument values arrive as decoded JSON, so numbers are float64 and every
// lookup needs a typed coercion with a default. These helpers mirror the
// loose typing the gateway actually sends.

// stringArg returns the string value at key, or def when absent or not a
// string.
func stringArg(m map[string]any, key, def string) string {
	if s, ok := m[key].(string); ok && s != "" {
		return s
	}
	return def
}

// intArg returns the integer value at key, tolerating JSON's numeric
// representations, or def when absent or unusable.
func intArg(m map[string]any, key string, def int) int {
	switch v := m[key].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	case json.Number:
		if n, err := v.Int64(); err == nil {
			return int(n)
		}
	}
	return def
}

// floatArg returns the float value at key, or def when absent or unusable.
func floatArg(m map[string]any, key string, def float64) float64 {
	switch v := m[key].(type) {
	case float64:
		return v
	case int:
		return float64(v)
	case int64:
		return float64(v)
	case json.Number:
		if f, err := v.Float64(); err == nil {
			return f
		}
	}
	return def
}

// mapArg returns the mapping value at key, or nil when absent.
func mapArg(m map[string]any, key string) map[string]any {
	if v, ok := m[key].(map[string]any); ok {
		return v
	}
	return nil
}

// clampMax caps v at max. There is no lower clamp; the upstream rejects
// non-positive bounds with a validation fault of its own.
func clampMax(v, max int) int {
	if v > max {
		return max
	}
	return v
}

// roundScore rounds a relevance score to 4 decimal places.
func roundScore(s float64) float64 {
	return math.Round(s*1e4) / 1e4
}

// truncate shortens s to limit characters, appending an ellipsis marker
// when anything was cut. Counts runes, not bytes, so multi-byte text is
// never split mid-character.
func truncate(s string, limit int) string {
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit]) + "..."
}
