// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"testing"

	"github.com/pdiddy/summa-engine/internal/prompt"
	"github.com/pdiddy/summa-engine/internal/reasoner"
	"github.com/pdiddy/summa-engine/internal/stage"
	"github.com/pdiddy/summa-engine/internal/summa"
	"github.com/pdiddy/summa-engine/pkg/types"
)

// scriptedOracle replays canned stage outputs in invocation order.
type scriptedOracle struct {
	responses []string
	prompts   []reasoner.Prompt
}

func (o *scriptedOracle) Invoke(ctx context.Context, p reasoner.Prompt) (string, error) {
	o.prompts = append(o.prompts, p)
	if len(o.prompts) > len(o.responses) {
		return "", fmt.Errorf("oracle script exhausted after %d invocations", len(o.responses))
	}
	return o.responses[len(o.prompts)-1], nil
}

// stubRetriever returns a fixed catalog.
type stubRetriever struct {
	result types.RetrievalResult
}

func (r *stubRetriever) RetrieveGroundedPapers(ctx context.Context, question, refinedQuery string) types.RetrievalResult {
	return r.result
}

func groundedResult() types.RetrievalResult {
	return types.RetrievalResult{
		Status:  types.RetrievalOK,
		Message: "retrieved 2 grounded papers",
		Queries: []string{"why do tides occur"},
		Papers: []types.Paper{
			{PaperID: "p1", Title: "Lunar tidal forcing", Authors: []string{"A. Author"}, Year: 2019},
			{PaperID: "p2", Title: "Ocean basin resonance", Authors: []string{"B. Author"}, Year: 2021},
		},
		Errors: []string{},
	}
}

// generatorJSON builds a generator stage response with one bare hypothesis per
// id; normalization fills the remaining fields.
func generatorJSON(ids ...string) string {
	items := make([]map[string]any, 0, len(ids))
	for _, id := range ids {
		items = append(items, map[string]any{
			"id":        id,
			"title":     "Hypothesis " + id,
			"statement": "Statement for " + id,
		})
	}
	encoded, _ := json.Marshal(map[string]any{"hypotheses": items})
	return string(encoded)
}

const rankerJSON = `{"comparisons": [{
	"hypothesis_a_id": "h1", "hypothesis_b_id": "h2",
	"winner_novelty": "a", "winner_plausibility": "a", "winner_testability": "a"
}]}`

func newEngine(t *testing.T, oracle *scriptedOracle, retriever Retriever) *Engine {
	t.Helper()
	library, err := prompt.Load()
	if err != nil {
		t.Fatalf("prompt.Load: %v", err)
	}
	settings := types.Settings{
		DefaultDomain:    "general science",
		DefaultObjective: "novel falsifiable hypotheses",
	}
	return New(settings, oracle, retriever, library, nil)
}

func TestRunHappyPath(t *testing.T) {
	oracle := &scriptedOracle{responses: []string{
		`{"refined_query": "lunar tidal forcing"}`,
		`{"key_findings": ["gravity gradients drive tides"]}`,
		generatorJSON("h1", "h2", "h3"),
		`{}`,
		rankerJSON,
		`{"summa_rendering": "a draft the renderer will replace"}`,
	}}
	engine := newEngine(t, oracle, &stubRetriever{result: groundedResult()})

	payload, err := engine.Run(context.Background(), Request{Question: "why do tides occur", Top: 1})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if payload.IsPartialFailure() {
		t.Fatalf("unexpected partial failure: %+v", payload.Error)
	}
	if payload.StageOutputs != nil {
		t.Error("final payload must not carry stage outputs")
	}
	if payload.Domain != "general science" {
		t.Errorf("domain = %q, want the settings default", payload.Domain)
	}

	// h1 wins its real comparison against h2; synthetic ties leave h3 at 3.0.
	wantRanked := []string{"h1", "h3", "h2"}
	if fmt.Sprint(payload.RankedHypothesisIDs) != fmt.Sprint(wantRanked) {
		t.Errorf("ranked ids = %v, want %v", payload.RankedHypothesisIDs, wantRanked)
	}
	for _, h := range payload.Hypotheses {
		if h.ID == "h1" && h.Scores.Overall != 4.0 {
			t.Errorf("h1 overall = %v, want 4.0", h.Scores.Overall)
		}
		if len(h.Citations) == 0 {
			t.Errorf("hypothesis %s has no grounded citations", h.ID)
		}
		if len(h.Objections) != 3 || len(h.Replies) != 3 {
			t.Errorf("hypothesis %s objections/replies = %d/%d", h.ID, len(h.Objections), len(h.Replies))
		}
	}

	if !summa.IsValidRendering(payload.SummaRendering, 1) {
		t.Errorf("invalid rendering:\n%s", payload.SummaRendering)
	}
	if !strings.Contains(payload.SummaRendering, "Question: why do tides occur") {
		t.Errorf("rendering missing question:\n%s", payload.SummaRendering)
	}

	if len(oracle.prompts) != 6 {
		t.Errorf("oracle invoked %d times, want 6", len(oracle.prompts))
	}
}

func TestRunStageFailureBecomesPartialPayload(t *testing.T) {
	oracle := &scriptedOracle{responses: []string{
		`{"refined_query": "lunar tidal forcing"}`,
		"not json",
		"still not json",
	}}
	engine := newEngine(t, oracle, &stubRetriever{result: groundedResult()})

	payload, err := engine.Run(context.Background(), Request{Question: "why do tides occur", Top: 3})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if !payload.IsPartialFailure() {
		t.Fatal("want a partial-failure payload")
	}
	if payload.Error.Stage != "literature_scout" || !payload.Error.RetryAttempted {
		t.Errorf("error = %+v", payload.Error)
	}
	if _, ok := payload.StageOutputs["problem_framer"]; !ok {
		t.Error("stage outputs missing problem_framer")
	}
	if _, ok := payload.StageOutputs["retrieval"]; !ok {
		t.Error("stage outputs missing retrieval")
	}
	if payload.Hypotheses == nil || len(payload.Hypotheses) != 0 {
		t.Errorf("hypotheses = %#v, want non-nil empty", payload.Hypotheses)
	}
	if payload.RankedHypothesisIDs == nil || len(payload.RankedHypothesisIDs) != 0 {
		t.Errorf("ranked ids = %#v, want non-nil empty", payload.RankedHypothesisIDs)
	}
	if payload.SummaRendering != "" {
		t.Errorf("rendering = %q, want empty", payload.SummaRendering)
	}
}

func TestRunDiversityRetryRecoversFinalPayload(t *testing.T) {
	oracle := &scriptedOracle{responses: []string{
		`{"refined_query": "lunar tidal forcing"}`,
		`{"key_findings": []}`,
		generatorJSON("h1", "h2"),
		generatorJSON("h1", "h2", "h3"),
		`{}`,
		rankerJSON,
		`{"summa_rendering": "draft"}`,
	}}
	engine := newEngine(t, oracle, &stubRetriever{result: groundedResult()})

	payload, err := engine.Run(context.Background(), Request{Question: "why do tides occur", Top: 3})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if payload.IsPartialFailure() {
		t.Fatalf("unexpected partial failure: %+v", payload.Error)
	}
	if len(payload.Hypotheses) != 3 {
		t.Errorf("hypotheses = %d, want 3 after diversity retry", len(payload.Hypotheses))
	}

	// Invocation 4 is the diversity retry with the hardened objective.
	if len(oracle.prompts) != 7 {
		t.Fatalf("oracle invoked %d times, want 7", len(oracle.prompts))
	}
	if !strings.Contains(oracle.prompts[3].Description, "Hard constraint") {
		t.Error("diversity retry prompt missing the hardened objective")
	}
	if strings.Contains(oracle.prompts[2].Description, "Hard constraint") {
		t.Error("first generator prompt must not carry the hardened objective")
	}
}

func TestRunDiversityRetryStillShortIsPartial(t *testing.T) {
	oracle := &scriptedOracle{responses: []string{
		`{"refined_query": "lunar tidal forcing"}`,
		`{"key_findings": []}`,
		generatorJSON("h1", "h2"),
		generatorJSON("h1", "h2"),
	}}
	engine := newEngine(t, oracle, &stubRetriever{result: groundedResult()})

	payload, err := engine.Run(context.Background(), Request{Question: "why do tides occur", Top: 1})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if !payload.IsPartialFailure() {
		t.Fatal("want a partial-failure payload")
	}
	if payload.Error.Stage != "hypothesis_generator_diversity_retry" || !payload.Error.RetryAttempted {
		t.Errorf("error = %+v", payload.Error)
	}
	if payload.Error.Message != "Diversity retry still produced fewer than 3 distinct hypotheses." {
		t.Errorf("message = %q", payload.Error.Message)
	}
	// The pre-retry hypotheses are still reported.
	if len(payload.Hypotheses) != 2 {
		t.Errorf("hypotheses = %d, want the 2 pre-retry ones", len(payload.Hypotheses))
	}
	if _, ok := payload.StageOutputs["hypothesis_generator_diversity_retry"]; !ok {
		t.Error("stage outputs missing the diversity retry output")
	}
}

func TestRunComposerFailureIsPartial(t *testing.T) {
	oracle := &scriptedOracle{responses: []string{
		`{"refined_query": "lunar tidal forcing"}`,
		`{"key_findings": []}`,
		generatorJSON("h1", "h2", "h3"),
		`{}`,
		rankerJSON,
		"",
		"",
	}}
	engine := newEngine(t, oracle, &stubRetriever{result: groundedResult()})

	payload, err := engine.Run(context.Background(), Request{Question: "why do tides occur", Top: 1})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if !payload.IsPartialFailure() {
		t.Fatal("want a partial-failure payload")
	}
	if payload.Error.Stage != "summa_composer" || !payload.Error.RetryAttempted {
		t.Errorf("error = %+v", payload.Error)
	}
	if !strings.Contains(payload.Error.Message, "empty output") {
		t.Errorf("message = %q", payload.Error.Message)
	}
	// Everything up to the composer survived into the partial payload.
	if len(payload.Hypotheses) != 3 || len(payload.RankedHypothesisIDs) != 3 {
		t.Errorf("hypotheses = %d, ranked = %d", len(payload.Hypotheses), len(payload.RankedHypothesisIDs))
	}
}

func TestRunCriticRebuildsHypotheses(t *testing.T) {
	criticRewrite, _ := json.Marshal(map[string]any{
		"hypotheses": []map[string]any{
			{"id": "h2", "title": "Refined h2", "statement": "s2"},
			{"id": "h1", "title": "Refined h1", "statement": "s1"},
			{"id": "h3", "title": "Refined h3", "statement": "s3"},
		},
	})
	oracle := &scriptedOracle{responses: []string{
		`{"refined_query": "lunar tidal forcing"}`,
		`{"key_findings": []}`,
		generatorJSON("h1", "h2", "h3"),
		string(criticRewrite),
		rankerJSON,
		`{"summa_rendering": "draft"}`,
	}}
	engine := newEngine(t, oracle, &stubRetriever{result: groundedResult()})

	payload, err := engine.Run(context.Background(), Request{Question: "why do tides occur", Top: 1})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if payload.IsPartialFailure() {
		t.Fatalf("unexpected partial failure: %+v", payload.Error)
	}
	if payload.Hypotheses[0].Title != "Refined h2" {
		t.Errorf("critic rewrite not applied, first hypothesis = %+v", payload.Hypotheses[0])
	}
}

func TestRunEmptyCatalogStillValidates(t *testing.T) {
	oracle := &scriptedOracle{responses: []string{
		`{"refined_query": "lunar tidal forcing"}`,
		`{"key_findings": []}`,
		generatorJSON("h1", "h2", "h3"),
		`{}`,
		rankerJSON,
		`{"summa_rendering": "draft"}`,
	}}
	empty := types.RetrievalResult{
		Status:  types.RetrievalNoCitations,
		Message: "no grounded citations found",
		Queries: []string{"why do tides occur"},
		Papers:  []types.Paper{},
		Errors:  []string{},
	}
	engine := newEngine(t, oracle, &stubRetriever{result: empty})

	payload, err := engine.Run(context.Background(), Request{Question: "why do tides occur", Top: 1})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if payload.IsPartialFailure() {
		t.Fatalf("unexpected partial failure: %+v", payload.Error)
	}
	for _, h := range payload.Hypotheses {
		if len(h.Citations) != 0 {
			t.Errorf("hypothesis %s has citations with an empty catalog", h.ID)
		}
	}
}

// scoredHypothesis builds a fully populated hypothesis with all-tie scores,
// consistent with the shared tie comparison between h1 and h2.
func scoredHypothesis(id string) types.Hypothesis {
	return types.Hypothesis{
		ID:                     id,
		Title:                  "Hypothesis " + id,
		Statement:              "Statement for " + id,
		NoveltyRationale:       "novel mechanism",
		PlausibilityRationale:  "consistent with observations",
		TestabilityRationale:   "directly measurable",
		FalsifiablePredictions: []string{"prediction"},
		MinimalExperiments:     []string{"experiment"},
		Citations:              []types.Citation{},
		Objections: []types.Objection{
			{Number: 1, Text: "o1"}, {Number: 2, Text: "o2"}, {Number: 3, Text: "o3"},
		},
		Replies: []types.Reply{
			{ObjectionNumber: 1, Text: "r1"}, {ObjectionNumber: 2, Text: "r2"}, {ObjectionNumber: 3, Text: "r3"},
		},
		PairwiseRecord: types.PairwiseRecord{
			Comparisons: []types.Comparison{{
				HypothesisAID:      "h1",
				HypothesisBID:      "h2",
				WinnerNovelty:      types.WinnerTie,
				WinnerPlausibility: types.WinnerTie,
				WinnerTestability:  types.WinnerTie,
			}},
		},
		Scores: types.Scores{Novelty: 3.0, Plausibility: 3.0, Testability: 3.0, Overall: 3.0},
	}
}

func newRankedRunState(t *testing.T, oracle *scriptedOracle) *runState {
	t.Helper()
	engine := newEngine(t, oracle, &stubRetriever{result: groundedResult()})
	return &runState{
		engine:       engine,
		runner:       &stage.Runner{Oracle: oracle, Library: engine.Library, Progress: io.Discard},
		question:     "why do tides occur",
		domain:       "oceanography",
		objective:    "objective",
		top:          1,
		stageOutputs: map[string]any{},
		hypotheses:   []types.Hypothesis{scoredHypothesis("h1"), scoredHypothesis("h2")},
		rankedIDs:    []string{"h1", "h2"},
	}
}

func statePayload(s *runState) types.Payload {
	return types.Payload{
		Question:            s.question,
		Domain:              s.domain,
		Hypotheses:          s.hypotheses,
		RankedHypothesisIDs: s.rankedIDs,
		SummaRendering:      "stale rendering",
	}
}

func TestRevalidateComposerRetryRecovers(t *testing.T) {
	oracle := &scriptedOracle{responses: []string{`{"summa_rendering": "draft"}`}}
	s := newRankedRunState(t, oracle)
	payload := statePayload(s)

	got, err := s.revalidateWithComposerRetry(context.Background(), payload, []types.Paper{},
		s.composerInputs(), errors.New("rendering failed structural checks"))
	if err != nil {
		t.Fatalf("revalidateWithComposerRetry: %v", err)
	}

	if !summa.IsValidRendering(got.SummaRendering, 1) {
		t.Errorf("invalid rendering after re-render:\n%s", got.SummaRendering)
	}
	if !strings.Contains(got.SummaRendering, "Question: why do tides occur") {
		t.Errorf("rendering missing question:\n%s", got.SummaRendering)
	}
	if _, ok := s.stageOutputs["summa_composer_retry"]; !ok {
		t.Error("stage outputs missing the composer retry output")
	}

	if len(oracle.prompts) != 1 {
		t.Fatalf("oracle invoked %d times, want 1", len(oracle.prompts))
	}
	if !strings.Contains(oracle.prompts[0].Description, "Final payload validation failed") {
		t.Error("composer retry prompt missing the validation failure message")
	}
}

func TestRevalidateComposerRetrySecondFailureIsPartial(t *testing.T) {
	oracle := &scriptedOracle{responses: []string{`{"summa_rendering": "draft"}`}}
	s := newRankedRunState(t, oracle)

	// Off-formula overall score: no re-render can repair it.
	s.hypotheses[0].Scores.Overall = 5.0
	payload := statePayload(s)

	_, err := s.revalidateWithComposerRetry(context.Background(), payload, []types.Paper{},
		s.composerInputs(), errors.New("inconsistent overall score formula for hypothesis h1"))

	var failure *stage.Failure
	if !errors.As(err, &failure) {
		t.Fatalf("err = %v, want *stage.Failure", err)
	}
	if failure.Stage != "summa_composer" || !failure.RetryAttempted {
		t.Errorf("failure = %+v", failure)
	}
	if !strings.Contains(failure.Message, "overall score formula") {
		t.Errorf("message = %q", failure.Message)
	}
	if _, ok := s.stageOutputs["summa_composer_retry"]; !ok {
		t.Error("stage outputs missing the composer retry output")
	}

	partial, perr := s.partialFailure(*failure)
	if perr != nil {
		t.Fatalf("partialFailure: %v", perr)
	}
	if !partial.IsPartialFailure() || partial.Error.Stage != "summa_composer" {
		t.Errorf("partial error = %+v", partial.Error)
	}
	if len(partial.Hypotheses) != 2 || len(partial.RankedHypothesisIDs) != 2 {
		t.Errorf("hypotheses = %d, ranked = %d", len(partial.Hypotheses), len(partial.RankedHypothesisIDs))
	}
}

func TestRevalidateComposerRetryEmptyOutputIsPartial(t *testing.T) {
	oracle := &scriptedOracle{responses: []string{""}}
	s := newRankedRunState(t, oracle)
	payload := statePayload(s)

	_, err := s.revalidateWithComposerRetry(context.Background(), payload, []types.Paper{},
		s.composerInputs(), errors.New("rendering failed structural checks"))

	var failure *stage.Failure
	if !errors.As(err, &failure) {
		t.Fatalf("err = %v, want *stage.Failure", err)
	}
	if failure.Stage != "summa_composer" || !failure.RetryAttempted {
		t.Errorf("failure = %+v", failure)
	}
	if !strings.Contains(failure.Message, "empty output") {
		t.Errorf("message = %q", failure.Message)
	}
}

func TestRunRejectsInvalidArguments(t *testing.T) {
	engine := newEngine(t, &scriptedOracle{}, &stubRetriever{result: groundedResult()})

	if _, err := engine.Run(context.Background(), Request{Question: "   ", Top: 1}); err == nil {
		t.Error("empty question accepted")
	}
	_, err := engine.Run(context.Background(), Request{Question: "q", Top: 2})
	if err == nil || !strings.Contains(err.Error(), "top must be 1 or 3") {
		t.Errorf("err = %v", err)
	}
}
