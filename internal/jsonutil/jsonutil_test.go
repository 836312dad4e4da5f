// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package jsonutil

import (
	"strings"
	"testing"
)

func TestStripFences(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"no fences", `{"a":1}`, `{"a":1}`},
		{"plain fence", "```\n{\"a\":1}\n```", `{"a":1}`},
		{"json fence", "```json\n{\"a\":1}\n```", `{"a":1}`},
		{"markdown fence", "```markdown\ntext\n```", "text"},
		{"md fence", "```md\ntext\n```", "text"},
		{"surrounding whitespace", "  \n```json\n{\"a\":1}\n```  \n", `{"a":1}`},
		{"fence with trailing spaces", "```json  \n{\"a\":1}\n  ```", `{"a":1}`},
		{"empty", "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := StripFences(tt.in); got != tt.want {
				t.Errorf("StripFences(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestExtractObject(t *testing.T) {
	tests := []struct {
		name    string
		in      string
		wantKey string
		wantVal any
		wantErr string
	}{
		{
			name:    "strict object",
			in:      `{"statement": "x"}`,
			wantKey: "statement",
			wantVal: "x",
		},
		{
			name:    "fenced object",
			in:      "```json\n{\"statement\": \"x\"}\n```",
			wantKey: "statement",
			wantVal: "x",
		},
		{
			name:    "object embedded in prose",
			in:      `Sure, here is the JSON you asked for: {"id": "h1"} hope it helps`,
			wantKey: "id",
			wantVal: "h1",
		},
		{
			name:    "nested braces through fallback",
			in:      `prefix {"outer": {"inner": 1}} suffix`,
			wantKey: "outer",
			wantVal: map[string]any{"inner": float64(1)},
		},
		{
			name:    "no object at all",
			in:      "I could not produce any structured output.",
			wantErr: "no JSON object found in stage output",
		},
		{
			name:    "top-level array",
			in:      `[1, 2, 3]`,
			wantErr: "stage output must be a JSON object",
		},
		{
			name:    "empty input",
			in:      "",
			wantErr: "no JSON object found in stage output",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ExtractObject(tt.in)
			if tt.wantErr != "" {
				if err == nil {
					t.Fatalf("ExtractObject(%q) expected error containing %q, got %v", tt.in, tt.wantErr, got)
				}
				if !strings.Contains(err.Error(), tt.wantErr) {
					t.Errorf("error = %q, want it to contain %q", err.Error(), tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("ExtractObject(%q): %v", tt.in, err)
			}
			val, ok := got[tt.wantKey]
			if !ok {
				t.Fatalf("result %v missing key %q", got, tt.wantKey)
			}
			switch want := tt.wantVal.(type) {
			case string:
				if val != want {
					t.Errorf("got[%q] = %v, want %v", tt.wantKey, val, want)
				}
			case map[string]any:
				inner, ok := val.(map[string]any)
				if !ok {
					t.Fatalf("got[%q] = %T, want map", tt.wantKey, val)
				}
				for k, v := range want {
					if inner[k] != v {
						t.Errorf("inner[%q] = %v, want %v", k, inner[k], v)
					}
				}
			}
		})
	}
}

func TestExtractObjectSnippetIsOneLine(t *testing.T) {
	in := "line one\nline two\nline three"
	_, err := ExtractObject(in)
	if err == nil {
		t.Fatal("expected error")
	}
	if strings.Contains(err.Error(), "\n") {
		t.Errorf("error message should be one line, got %q", err.Error())
	}
}
