// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package normalize coerces raw reasoner output into canonical hypothesis
// records: ids are made unique, missing fields are filled with fallback text,
// citations are sanitized against the catalog, and every hypothesis ends up
// with exactly three objections and three replies.
package normalize

import (
	"fmt"
	"strings"
)

// maxHypotheses bounds the normalized hypothesis list.
const maxHypotheses = 5

// asText returns the trimmed string value, or fallback when the value is not
// a non-empty string.
func asText(value any, fallback string) string {
	if s, ok := value.(string); ok && strings.TrimSpace(s) != "" {
		return strings.TrimSpace(s)
	}
	return fallback
}

// textList coerces a raw list into trimmed non-empty strings, or a one-item
// fallback list.
func textList(value any, fallback string) []string {
	if raw, ok := value.([]any); ok {
		var cleaned []string
		for _, item := range raw {
			if s := strings.TrimSpace(fmt.Sprint(item)); s != "" {
				cleaned = append(cleaned, s)
			}
		}
		if len(cleaned) > 0 {
			return cleaned
		}
	}
	return []string{fallback}
}

// intValue reports whether the raw JSON value is an integer. Decoded JSON
// numbers arrive as float64, so integral floats are accepted.
func intValue(value any) (int, bool) {
	switch v := value.(type) {
	case int:
		return v, true
	case float64:
		if v == float64(int(v)) {
			return int(v), true
		}
	}
	return 0, false
}
