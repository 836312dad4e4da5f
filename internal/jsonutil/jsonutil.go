// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package jsonutil recovers a JSON object from noisy generative-model output.
package jsonutil

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
)

var (
	leadingFence  = regexp.MustCompile("^```(?:json|markdown|md)?[ \t]*\n?")
	trailingFence = regexp.MustCompile("\n?[ \t]*```$")
)

// StripFences removes a leading triple-backtick fence (optionally tagged) and
// the matching trailing fence from s.
func StripFences(s string) string {
	text := strings.TrimSpace(s)
	text = leadingFence.ReplaceAllString(text, "")
	text = trailingFence.ReplaceAllString(text, "")
	return strings.TrimSpace(text)
}

// ExtractObject parses a single JSON object out of raw model output. It strips
// code fences, attempts a strict parse, and on failure falls back to the
// substring between the first "{" and the last "}". A top-level non-object
// parse is an error.
func ExtractObject(raw string) (map[string]any, error) {
	text := StripFences(raw)

	var payload any
	if err := json.Unmarshal([]byte(text), &payload); err != nil {
		start := strings.Index(text, "{")
		end := strings.LastIndex(text, "}")
		if start < 0 || end <= start {
			return nil, fmt.Errorf("no JSON object found in stage output: %s", snippet(raw))
		}
		if err := json.Unmarshal([]byte(text[start:end+1]), &payload); err != nil {
			return nil, fmt.Errorf("no JSON object found in stage output: %s", snippet(raw))
		}
	}

	obj, ok := payload.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("stage output must be a JSON object")
	}
	return obj, nil
}

// snippet returns a one-line prefix of raw for error messages.
func snippet(raw string) string {
	s := strings.ReplaceAll(raw, "\n", " ")
	if len(s) > 260 {
		s = s[:260]
	}
	return s
}
