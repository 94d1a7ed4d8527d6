// Package jsonx recovers JSON objects from free-form model output.
//
// Model responses are an untyped external boundary: they arrive as text that
// is expected to contain one JSON object, often wrapped in code fences or
// surrounded by prose. The helpers here strip fences, locate the first
// balanced object and decode it into a loosely-typed map that callers then
// validate against their fixed schemas.
package jsonx

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// ErrNoObject means no balanced JSON object was found in the text.
var ErrNoObject = errors.New("no JSON object found in response")

// StripCodeFences removes markdown code-fence markers (``` and ```json)
// while leaving the fenced content intact.
func StripCodeFences(s string) string {
	var b strings.Builder
	for _, line := range strings.Split(s, "\n") {
		if strings.HasPrefix(strings.TrimSpace(line), "```") {
			continue
		}
		b.WriteString(line)
		b.WriteString("\n")
	}
	return strings.TrimSpace(b.String())
}

// FirstObject returns the first balanced {...} span in s. Braces inside JSON
// strings (and escaped quotes inside those) are not counted.
func FirstObject(s string) (string, bool) {
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

// ExtractObject strips code fences, locates the first balanced object and
// decodes it into a map. This is the shared parse path for every model
// response in the system.
func ExtractObject(raw string) (map[string]any, error) {
	cleaned := StripCodeFences(raw)
	span, ok := FirstObject(cleaned)
	if !ok {
		return nil, ErrNoObject
	}

	var obj map[string]any
	if err := json.Unmarshal([]byte(span), &obj); err != nil {
		return nil, fmt.Errorf("decode extracted object: %w", err)
	}
	return obj, nil
}

// OptionalString reads a nullable string field. JSON null, a missing key,
// a blank string and the literal "null" all come back as nil.
func OptionalString(obj map[string]any, key string) *string {
	v, ok := obj[key]
	if !ok || v == nil {
		return nil
	}
	s, ok := v.(string)
	if !ok {
		return nil
	}
	s = strings.TrimSpace(s)
	if s == "" || strings.EqualFold(s, "null") {
		return nil
	}
	return &s
}

// String reads a string field, returning "" when absent or mistyped.
func String(obj map[string]any, key string) string {
	if s := OptionalString(obj, key); s != nil {
		return *s
	}
	return ""
}

// Number reads a numeric field. JSON numbers decode as float64; numeric
// strings are tolerated because models emit them.
func Number(obj map[string]any, key string) (float64, bool) {
	v, ok := obj[key]
	if !ok {
		return 0, false
	}
	switch n := v.(type) {
	case float64:
		return n, true
	case string:
		var f float64
		if _, err := fmt.Sscanf(strings.TrimSpace(n), "%g", &f); err == nil {
			return f, true
		}
	}
	return 0, false
}

// StringSlice reads an array-of-strings field, skipping non-string elements.
// Absent or mistyped fields come back as an empty, non-nil slice.
func StringSlice(obj map[string]any, key string) []string {
	out := []string{}
	v, ok := obj[key]
	if !ok {
		return out
	}
	arr, ok := v.([]any)
	if !ok {
		return out
	}
	for _, el := range arr {
		if s, ok := el.(string); ok {
			s = strings.TrimSpace(s)
			if s != "" {
				out = append(out, s)
			}
		}
	}
	return out
}

// HasKeys reports whether obj contains every one of the given keys. Used as
// the schema presence check before a parsed payload is trusted.
func HasKeys(obj map[string]any, keys ...string) bool {
	for _, k := range keys {
		if _, ok := obj[k]; !ok {
			return false
		}
	}
	return true
}
