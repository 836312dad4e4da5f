// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package prompt holds the agent and task definitions for each reasoner
// stage and renders their templates.
package prompt

import (
	"sort"
	"strings"
)

// Render substitutes {name} placeholders in template with the input values.
// Substitution is literal and keyed only by the declared input names: task
// prompts contain literal JSON examples and scientific notation with stray
// braces, so general format-string interpolation is unsafe here. Keys are
// applied in sorted order so rendering is deterministic.
func Render(template string, inputs map[string]string) string {
	keys := make([]string, 0, len(inputs))
	for key := range inputs {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	rendered := template
	for _, key := range keys {
		rendered = strings.ReplaceAll(rendered, "{"+key+"}", inputs[key])
	}
	return rendered
}
