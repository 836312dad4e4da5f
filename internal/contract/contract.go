// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package contract enforces the output invariants of a pipeline run: field
// shapes, id cross-references, objection/reply triplets, score consistency,
// and citation grounding.
package contract

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/pdiddy/summa-engine/pkg/types"
)

// overallTolerance is the permitted drift between the stored overall score
// and the weighted formula, absorbing the per-dimension rounding.
const overallTolerance = 0.06

// ValidationError reports a payload that violates the output contract.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

func validationErrorf(format string, args ...any) *ValidationError {
	return &ValidationError{Message: fmt.Sprintf(format, args...)}
}

// ValidatePayload checks a final payload against the output contract. When a
// catalog is supplied every citation must resolve into it; a nil catalog
// skips the grounding check. A payload that passes is returned unchanged.
func ValidatePayload(payload types.Payload, catalog []types.Paper) error {
	if err := validateShape(payload); err != nil {
		return err
	}
	if err := validateHypothesisIDs(payload); err != nil {
		return err
	}
	if err := validateTriplets(payload); err != nil {
		return err
	}
	if err := validatePairwiseReferences(payload); err != nil {
		return err
	}
	if err := validateScoreFormula(payload); err != nil {
		return err
	}
	if catalog != nil {
		if err := validateCitationGrounding(payload, catalog); err != nil {
			return err
		}
	}
	return nil
}

// ValidatePartialFailure checks the reduced contract for terminal-failure
// payloads.
func ValidatePartialFailure(payload types.Payload) error {
	if strings.TrimSpace(payload.Question) == "" {
		return validationErrorf("field 'question' must be a non-empty string")
	}
	if strings.TrimSpace(payload.Domain) == "" {
		return validationErrorf("field 'domain' must be a non-empty string")
	}
	if payload.Error == nil {
		return validationErrorf("field 'error' must be an object")
	}
	if strings.TrimSpace(payload.Error.Stage) == "" {
		return validationErrorf("field 'error.stage' must be a non-empty string")
	}
	if strings.TrimSpace(payload.Error.Message) == "" {
		return validationErrorf("field 'error.message' must be a non-empty string")
	}
	return nil
}

// BuildPartialFailure assembles and validates a terminal-failure payload
// carrying whatever the pipeline produced before the failing stage.
func BuildPartialFailure(question, domain string, pipelineErr types.PipelineError, stageOutputs map[string]any, hypotheses []types.Hypothesis, rankedIDs []string, rendering string) (types.Payload, error) {
	if hypotheses == nil {
		hypotheses = []types.Hypothesis{}
	}
	if rankedIDs == nil {
		rankedIDs = []string{}
	}
	if stageOutputs == nil {
		stageOutputs = map[string]any{}
	}
	payload := types.Payload{
		Question:            question,
		Domain:              domain,
		Hypotheses:          hypotheses,
		RankedHypothesisIDs: rankedIDs,
		SummaRendering:      rendering,
		StageOutputs:        stageOutputs,
		Error:               &pipelineErr,
	}
	if err := ValidatePartialFailure(payload); err != nil {
		return types.Payload{}, err
	}
	return payload, nil
}

func validateShape(payload types.Payload) error {
	if strings.TrimSpace(payload.Question) == "" {
		return validationErrorf("field 'question' must be a non-empty string")
	}
	if strings.TrimSpace(payload.Domain) == "" {
		return validationErrorf("field 'domain' must be a non-empty string")
	}
	if len(payload.Hypotheses) == 0 {
		return validationErrorf("field 'hypotheses' must be a non-empty list")
	}
	for _, h := range payload.Hypotheses {
		if strings.TrimSpace(h.ID) == "" {
			return validationErrorf("every hypothesis must carry a non-empty id")
		}
		for _, field := range []struct{ name, value string }{
			{"title", h.Title},
			{"statement", h.Statement},
			{"novelty_rationale", h.NoveltyRationale},
			{"plausibility_rationale", h.PlausibilityRationale},
			{"testability_rationale", h.TestabilityRationale},
		} {
			if strings.TrimSpace(field.value) == "" {
				return validationErrorf("hypothesis %s is missing field %q", h.ID, field.name)
			}
		}
		if len(h.FalsifiablePredictions) == 0 {
			return validationErrorf("hypothesis %s must list at least one falsifiable prediction", h.ID)
		}
		if len(h.MinimalExperiments) == 0 {
			return validationErrorf("hypothesis %s must list at least one minimal experiment", h.ID)
		}
		for _, s := range []struct {
			name  string
			value float64
		}{
			{"novelty", h.Scores.Novelty},
			{"plausibility", h.Scores.Plausibility},
			{"testability", h.Scores.Testability},
			{"overall", h.Scores.Overall},
		} {
			if s.value < 1.0 || s.value > 5.0 {
				return validationErrorf("hypothesis %s score %q out of range [1,5]: %g", h.ID, s.name, s.value)
			}
		}
		for _, cmp := range h.PairwiseRecord.Comparisons {
			for _, winnerValue := range []string{cmp.WinnerNovelty, cmp.WinnerPlausibility, cmp.WinnerTestability} {
				switch winnerValue {
				case types.WinnerA, types.WinnerB, types.WinnerTie:
				default:
					return validationErrorf("hypothesis %s pairwise comparison has invalid winner value %q", h.ID, winnerValue)
				}
			}
		}
	}
	return nil
}

func validateHypothesisIDs(payload types.Payload) error {
	seen := make(map[string]bool, len(payload.Hypotheses))
	for _, h := range payload.Hypotheses {
		if seen[h.ID] {
			return validationErrorf("duplicate hypothesis id found: %s", h.ID)
		}
		seen[h.ID] = true
	}

	rankedSet := make(map[string]bool, len(payload.RankedHypothesisIDs))
	for _, id := range payload.RankedHypothesisIDs {
		rankedSet[id] = true
	}
	if len(rankedSet) != len(seen) {
		return validationErrorf("ranked_hypothesis_ids must contain exactly the hypothesis ids")
	}
	for id := range seen {
		if !rankedSet[id] {
			return validationErrorf("ranked_hypothesis_ids must contain exactly the hypothesis ids")
		}
	}
	return nil
}

func validateTriplets(payload types.Payload) error {
	for _, h := range payload.Hypotheses {
		objections := make([]int, 0, len(h.Objections))
		for _, o := range h.Objections {
			objections = append(objections, o.Number)
		}
		replies := make([]int, 0, len(h.Replies))
		for _, r := range h.Replies {
			replies = append(replies, r.ObjectionNumber)
		}
		if !isOneTwoThree(objections) {
			return validationErrorf("hypothesis %s objections must be numbered 1,2,3", h.ID)
		}
		if !isOneTwoThree(replies) {
			return validationErrorf("hypothesis %s replies must target objections 1,2,3", h.ID)
		}
	}
	return nil
}

func isOneTwoThree(numbers []int) bool {
	if len(numbers) != 3 {
		return false
	}
	sorted := append([]int(nil), numbers...)
	sort.Ints(sorted)
	return sorted[0] == 1 && sorted[1] == 2 && sorted[2] == 3
}

func validatePairwiseReferences(payload types.Payload) error {
	valid := make(map[string]bool, len(payload.Hypotheses))
	for _, h := range payload.Hypotheses {
		valid[h.ID] = true
	}
	for _, h := range payload.Hypotheses {
		for _, cmp := range h.PairwiseRecord.Comparisons {
			if !valid[cmp.HypothesisAID] || !valid[cmp.HypothesisBID] {
				return validationErrorf("hypothesis %s pairwise comparison references unknown hypothesis ids", h.ID)
			}
			if cmp.HypothesisAID == cmp.HypothesisBID {
				return validationErrorf("hypothesis %s pairwise comparison must involve two distinct ids", h.ID)
			}
		}
	}
	return nil
}

func validateScoreFormula(payload types.Payload) error {
	for _, h := range payload.Hypotheses {
		expected := 0.35*h.Scores.Novelty + 0.30*h.Scores.Plausibility + 0.35*h.Scores.Testability
		if math.Abs(h.Scores.Overall-expected) > overallTolerance {
			return validationErrorf("hypothesis %s has inconsistent overall score formula", h.ID)
		}
	}
	return nil
}

func validateCitationGrounding(payload types.Payload, catalog []types.Paper) error {
	ids := types.CatalogIDs(catalog)
	dois := types.CatalogDOIs(catalog)
	for _, h := range payload.Hypotheses {
		if issues := citationIssues(h.Citations, ids, dois); len(issues) > 0 {
			return validationErrorf("hypothesis %s has invalid citation grounding: %s", h.ID, strings.Join(issues, " | "))
		}
	}
	return nil
}

// citationIssues lists grounding problems per citation, numbered from 1.
func citationIssues(citations []types.Citation, ids, dois map[string]bool) []string {
	var issues []string
	for idx, citation := range citations {
		n := idx + 1
		if strings.TrimSpace(citation.Title) == "" {
			issues = append(issues, fmt.Sprintf("citation[%d] missing non-empty title", n))
			continue
		}
		if len(citation.Authors) == 0 {
			issues = append(issues, fmt.Sprintf("citation[%d] missing authors list", n))
			continue
		}
		if citation.Year == 0 {
			issues = append(issues, fmt.Sprintf("citation[%d] missing integer year", n))
			continue
		}

		paperID := strings.TrimSpace(citation.PaperID)
		doi := strings.TrimSpace(citation.DOI)
		if paperID == "" && doi == "" {
			issues = append(issues, fmt.Sprintf("citation[%d] missing paper_id/doi", n))
			continue
		}

		grounded := false
		if paperID != "" && ids[paperID] {
			grounded = true
		}
		if doi != "" && dois[types.NormalizeDOI(doi)] {
			grounded = true
		}
		if !grounded {
			issues = append(issues, fmt.Sprintf("citation[%d] not grounded in retrieved papers", n))
		}
	}
	return issues
}
