// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package normalize

import (
	"fmt"
	"strings"

	"github.com/pdiddy/summa-engine/pkg/types"
)

// EnsureObjections coerces raw objection data into exactly three objections
// numbered 1, 2, 3. Entries with a non-integer number, a number outside the
// triplet, or empty text are dropped; placeholders fill the gaps.
func EnsureObjections(raw any) []types.Objection {
	var parsed []types.Objection
	if items, ok := raw.([]any); ok {
		for _, item := range items {
			entry, ok := item.(map[string]any)
			if !ok {
				continue
			}
			number, ok := intValue(entry["number"])
			if !ok {
				continue
			}
			text, ok := entry["text"].(string)
			if !ok || strings.TrimSpace(text) == "" {
				continue
			}
			parsed = append(parsed, types.Objection{Number: number, Text: strings.TrimSpace(text)})
		}
	}
	return FillObjections(parsed)
}

// FillObjections enforces the objection triplet invariant on typed records.
// For each n in 1..3 the first objection with that number wins; missing slots
// get a placeholder. The result is always numbered 1, 2, 3 in order, so the
// operation is idempotent.
func FillObjections(objections []types.Objection) []types.Objection {
	filled := make([]types.Objection, 0, 3)
	for n := 1; n <= 3; n++ {
		found := false
		for _, o := range objections {
			if o.Number == n && strings.TrimSpace(o.Text) != "" {
				filled = append(filled, types.Objection{Number: n, Text: strings.TrimSpace(o.Text)})
				found = true
				break
			}
		}
		if !found {
			filled = append(filled, types.Objection{
				Number: n,
				Text:   fmt.Sprintf("Objection %d was not explicitly provided; further critique required.", n),
			})
		}
	}
	return filled
}

// EnsureReplies is the reply-side counterpart of EnsureObjections, keyed by
// objection_number.
func EnsureReplies(raw any) []types.Reply {
	var parsed []types.Reply
	if items, ok := raw.([]any); ok {
		for _, item := range items {
			entry, ok := item.(map[string]any)
			if !ok {
				continue
			}
			number, ok := intValue(entry["objection_number"])
			if !ok {
				continue
			}
			text, ok := entry["text"].(string)
			if !ok || strings.TrimSpace(text) == "" {
				continue
			}
			parsed = append(parsed, types.Reply{ObjectionNumber: number, Text: strings.TrimSpace(text)})
		}
	}
	return FillReplies(parsed)
}

// FillReplies enforces the reply triplet invariant on typed records.
func FillReplies(replies []types.Reply) []types.Reply {
	filled := make([]types.Reply, 0, 3)
	for n := 1; n <= 3; n++ {
		found := false
		for _, r := range replies {
			if r.ObjectionNumber == n && strings.TrimSpace(r.Text) != "" {
				filled = append(filled, types.Reply{ObjectionNumber: n, Text: strings.TrimSpace(r.Text)})
				found = true
				break
			}
		}
		if !found {
			filled = append(filled, types.Reply{
				ObjectionNumber: n,
				Text:            fmt.Sprintf("Reply to objection %d requires further elaboration.", n),
			})
		}
	}
	return filled
}

// EnsureTriplets applies the objection and reply invariants to every
// hypothesis in the list.
func EnsureTriplets(hypotheses []types.Hypothesis) []types.Hypothesis {
	out := make([]types.Hypothesis, len(hypotheses))
	for i, h := range hypotheses {
		h.Objections = FillObjections(h.Objections)
		h.Replies = FillReplies(h.Replies)
		out[i] = h
	}
	return out
}
