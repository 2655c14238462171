// Package llmjson recovers JSON objects from model output that was asked to be
// JSON but may carry prose, code fences, or trailing commentary.
package llmjson

import (
	"encoding/json"
	"errors"
	"math"
	"strconv"
	"strings"
)

// ErrNoObject is returned when no stage of the decoder produced a JSON object.
var ErrNoObject = errors.New("no JSON object in response")

// Object decodes raw into a generic object. Stages, in order: strict parse of
// the trimmed text, the first balanced {...} span, then the span from the first
// '{' to the last '}'.
func Object(raw string) (map[string]any, error) {
	trimmed := strings.TrimSpace(raw)
	if m, ok := decode(trimmed); ok {
		return m, nil
	}
	if span, ok := balancedSpan(trimmed); ok {
		if m, ok := decode(span); ok {
			return m, nil
		}
	}
	start := strings.IndexByte(trimmed, '{')
	end := strings.LastIndexByte(trimmed, '}')
	if start >= 0 && end > start {
		if m, ok := decode(trimmed[start : end+1]); ok {
			return m, nil
		}
	}
	return nil, ErrNoObject
}

func decode(s string) (map[string]any, bool) {
	if s == "" {
		return nil, false
	}
	var m map[string]any
	if err := json.Unmarshal([]byte(s), &m); err != nil || m == nil {
		return nil, false
	}
	return m, true
}

// balancedSpan returns the first brace-balanced object span, skipping braces
// that appear inside JSON strings.
func balancedSpan(s string) (string, bool) {
	start := strings.IndexByte(s, '{')
	if start < 0 {
		return "", false
	}
	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(s); i++ {
		c := s[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return s[start : i+1], true
			}
		}
	}
	return "", false
}

// Bool reads key as a boolean. Strings "true"/"yes" are accepted.
func Bool(m map[string]any, key string, def bool) bool {
	switch v := m[key].(type) {
	case bool:
		return v
	case string:
		switch strings.ToLower(strings.TrimSpace(v)) {
		case "true", "yes":
			return true
		case "false", "no":
			return false
		}
	}
	return def
}

// Float reads key as a number. Numeric strings are accepted.
func Float(m map[string]any, key string, def float64) float64 {
	switch v := m[key].(type) {
	case float64:
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return def
		}
		return v
	case string:
		if f, err := strconv.ParseFloat(strings.TrimSpace(v), 64); err == nil && !math.IsNaN(f) && !math.IsInf(f, 0) {
			return f
		}
	}
	return def
}

// Int reads key as a whole number, rounding fractional values.
func Int(m map[string]any, key string, def int) int {
	f := Float(m, key, math.NaN())
	if math.IsNaN(f) {
		return def
	}
	return int(math.Round(f))
}

func String(m map[string]any, key string, def string) string {
	if v, ok := m[key].(string); ok {
		return v
	}
	return def
}

// Strings reads key as a list of non-empty strings, keeping at most max items
// (max <= 0 keeps all). A bare string is treated as a one-item list.
func Strings(m map[string]any, key string, max int) []string {
	var out []string
	switch v := m[key].(type) {
	case []any:
		for _, item := range v {
			s, ok := item.(string)
			if !ok {
				continue
			}
			if s = strings.TrimSpace(s); s != "" {
				out = append(out, s)
			}
		}
	case string:
		if s := strings.TrimSpace(v); s != "" {
			out = append(out, s)
		}
	}
	if max > 0 && len(out) > max {
		out = out[:max]
	}
	return out
}

// Map reads key as a nested object.
func Map(m map[string]any, key string) map[string]any {
	if v, ok := m[key].(map[string]any); ok {
		return v
	}
	return nil
}
