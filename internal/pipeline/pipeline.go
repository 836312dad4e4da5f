// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package pipeline drives a full run: problem framing, paper retrieval,
// literature scouting, hypothesis generation, critique, pairwise ranking, and
// the final Summa rendering. Every reasoner-backed stage retries once; a
// stage that fails after its retry turns the run into a partial-failure
// payload instead of an error.
package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/pdiddy/summa-engine/internal/contract"
	"github.com/pdiddy/summa-engine/internal/normalize"
	"github.com/pdiddy/summa-engine/internal/prompt"
	"github.com/pdiddy/summa-engine/internal/rank"
	"github.com/pdiddy/summa-engine/internal/reasoner"
	"github.com/pdiddy/summa-engine/internal/stage"
	"github.com/pdiddy/summa-engine/internal/summa"
	"github.com/pdiddy/summa-engine/pkg/types"
)

// minDistinctHypotheses is the floor below which the generator is re-run with
// a hardened diversity objective.
const minDistinctHypotheses = 3

// diversityConstraint is appended to the objective on the diversity retry.
const diversityConstraint = " Hard constraint: produce at least 3 genuinely distinct hypotheses across mechanism, empirical domain, or theoretical framework."

// Retriever fetches the grounded paper catalog. Retrieval failures are
// recorded inside the result and never abort a run.
type Retriever interface {
	RetrieveGroundedPapers(ctx context.Context, question, refinedQuery string) types.RetrievalResult
}

// Request is one pipeline invocation. Domain and Objective fall back to the
// settings defaults when blank. Top must be 1 or 3.
type Request struct {
	Question  string
	Domain    string
	Objective string
	Top       int
}

// Engine wires the stage runner, the retriever, and the settings into a
// runnable pipeline. Engines hold no per-run state and are safe for
// concurrent use.
type Engine struct {
	Settings  types.Settings
	Oracle    reasoner.Oracle
	Retriever Retriever
	Library   *prompt.Library
	Progress  io.Writer
}

// New builds an Engine. A nil progress writer discards progress output.
func New(settings types.Settings, oracle reasoner.Oracle, retriever Retriever, library *prompt.Library, progress io.Writer) *Engine {
	if progress == nil {
		progress = io.Discard
	}
	return &Engine{
		Settings:  settings,
		Oracle:    oracle,
		Retriever: retriever,
		Library:   library,
		Progress:  progress,
	}
}

// Run executes the pipeline. It returns an error only for invalid arguments;
// every other failure mode is folded into the returned payload, which is
// either a validated final payload or a partial-failure payload.
func (e *Engine) Run(ctx context.Context, req Request) (types.Payload, error) {
	question := strings.TrimSpace(req.Question)
	if question == "" {
		return types.Payload{}, fmt.Errorf("question cannot be empty")
	}
	if req.Top != 1 && req.Top != 3 {
		return types.Payload{}, fmt.Errorf("top must be 1 or 3, got %d", req.Top)
	}
	domain := strings.TrimSpace(req.Domain)
	if domain == "" {
		domain = e.Settings.DefaultDomain
	}
	objective := strings.TrimSpace(req.Objective)
	if objective == "" {
		objective = e.Settings.DefaultObjective
	}

	run := &runState{
		engine: e,
		runner: &stage.Runner{Oracle: e.Oracle, Library: e.Library, Progress: e.Progress},

		question:  question,
		domain:    domain,
		objective: objective,
		top:       req.Top,

		stageOutputs: map[string]any{},
	}
	payload, err := run.execute(ctx)
	if err == nil {
		return payload, nil
	}

	var failure *stage.Failure
	if errors.As(err, &failure) {
		return run.partialFailure(*failure)
	}
	return types.Payload{}, err
}

// runState carries the intermediate products of one invocation so that a
// stage failure anywhere can still emit everything produced so far.
type runState struct {
	engine *Engine
	runner *stage.Runner

	question  string
	domain    string
	objective string
	top       int

	stageOutputs map[string]any
	hypotheses   []types.Hypothesis
	rankedIDs    []string
	rendering    string
}

func (s *runState) execute(ctx context.Context) (types.Payload, error) {
	problemMemo, err := s.runner.RunJSON(ctx, "problem_framer", "problem_framer", map[string]string{
		"question":  s.question,
		"domain":    s.domain,
		"objective": s.objective,
	})
	if err != nil {
		return types.Payload{}, err
	}
	s.stageOutputs["problem_framer"] = problemMemo

	refinedQuery, _ := problemMemo["refined_query"].(string)
	retrieval := s.engine.Retriever.RetrieveGroundedPapers(ctx, s.question, refinedQuery)
	s.stageOutputs["retrieval"] = retrieval
	fmt.Fprintf(s.engine.Progress, "retrieval: %s\n", retrieval.Message)

	problemMemoJSON := asJSON(problemMemo)
	retrievalJSON := asJSON(retrieval)

	evidenceMemo, err := s.runner.RunJSON(ctx, "literature_scout", "literature_scout", map[string]string{
		"domain":            s.domain,
		"problem_memo_json": problemMemoJSON,
		"retrieval_json":    retrievalJSON,
	})
	if err != nil {
		return types.Payload{}, err
	}
	s.stageOutputs["literature_scout"] = evidenceMemo
	evidenceMemoJSON := asJSON(evidenceMemo)

	generatorOutput, err := s.runner.RunJSON(ctx, "hypothesis_generator", "hypothesis_generator", map[string]string{
		"question":           s.question,
		"domain":             s.domain,
		"objective":          s.objective,
		"problem_memo_json":  problemMemoJSON,
		"evidence_memo_json": evidenceMemoJSON,
		"retrieval_json":     retrievalJSON,
	})
	if err != nil {
		return types.Payload{}, err
	}
	s.stageOutputs["hypothesis_generator"] = generatorOutput

	s.hypotheses, err = normalize.GeneratorHypotheses(generatorOutput, retrieval.Papers)
	if err != nil {
		return types.Payload{}, &stage.Failure{Stage: "hypothesis_generator", Message: err.Error()}
	}
	if len(s.hypotheses) < minDistinctHypotheses {
		if err := s.regenerateForDiversity(ctx, problemMemoJSON, evidenceMemoJSON, retrievalJSON, retrieval.Papers); err != nil {
			return types.Payload{}, err
		}
	}

	criticOutput, err := s.runner.RunJSON(ctx, "critic", "critic", map[string]string{
		"question":        s.question,
		"domain":          s.domain,
		"hypotheses_json": asJSON(map[string]any{"hypotheses": s.hypotheses}),
	})
	if err != nil {
		return types.Payload{}, err
	}
	s.stageOutputs["critic"] = criticOutput

	s.hypotheses, err = normalize.CriticHypotheses(criticOutput, s.hypotheses, retrieval.Papers)
	if err != nil {
		return types.Payload{}, &stage.Failure{Stage: "critic", Message: err.Error()}
	}
	if len(s.hypotheses) < minDistinctHypotheses {
		if err := s.regenerateForDiversity(ctx, problemMemoJSON, evidenceMemoJSON, retrievalJSON, retrieval.Papers); err != nil {
			return types.Payload{}, err
		}
	}

	distinctness, ok := criticOutput["distinctness_matrix"]
	if !ok {
		distinctness = []any{}
	}
	rankerOutput, err := s.runner.RunJSON(ctx, "ranker", "ranker", map[string]string{
		"domain": s.domain,
		"critic_json": asJSON(map[string]any{
			"hypotheses":          s.hypotheses,
			"distinctness_matrix": distinctness,
		}),
	})
	if err != nil {
		return types.Payload{}, err
	}
	s.stageOutputs["ranker"] = rankerOutput

	rankedIDs, rankedHypotheses, err := rank.ApplyPairwise(s.hypotheses, rankerOutput)
	if err != nil {
		return types.Payload{}, &stage.Failure{Stage: "ranker", Message: err.Error()}
	}
	s.rankedIDs = rankedIDs
	s.hypotheses = normalize.EnsureTriplets(rankedHypotheses)

	composerInputs := s.composerInputs()
	composerOutput, err := s.runner.RunComposer(ctx, "summa_composer", "summa_composer", composerInputs)
	if err != nil {
		return types.Payload{}, err
	}
	s.stageOutputs["summa_composer"] = composerOutput

	rawRendering, err := stage.RequireNonEmptyString(composerOutput, "summa_rendering")
	if err != nil {
		return types.Payload{}, &stage.Failure{Stage: "summa_composer", Message: err.Error(), RetryAttempted: true}
	}
	s.rendering = summa.EnsureRendering(rawRendering, s.question, s.hypotheses, s.rankedIDs, s.top)

	payload := types.Payload{
		Question:            s.question,
		Domain:              s.domain,
		Hypotheses:          s.hypotheses,
		RankedHypothesisIDs: s.rankedIDs,
		SummaRendering:      s.rendering,
	}

	catalog := retrieval.Papers
	if catalog == nil {
		catalog = []types.Paper{}
	}
	if err := contract.ValidatePayload(payload, catalog); err != nil {
		payload, err = s.revalidateWithComposerRetry(ctx, payload, catalog, composerInputs, err)
		if err != nil {
			return types.Payload{}, err
		}
	}
	return payload, nil
}

// revalidateWithComposerRetry gives the composer one more attempt after a
// contract violation. A second violation terminates the run as a
// summa_composer stage failure.
func (s *runState) revalidateWithComposerRetry(ctx context.Context, payload types.Payload, catalog []types.Paper, composerInputs map[string]string, validationErr error) (types.Payload, error) {
	fmt.Fprintf(s.engine.Progress, "stage summa_composer: re-rendering after validation failure: %v\n", validationErr)

	retryOutput, err := s.runner.ComposerOnce(ctx, "summa_composer", composerInputs,
		"Final payload validation failed: "+validationErr.Error())
	if err != nil {
		return types.Payload{}, &stage.Failure{Stage: "summa_composer", Message: err.Error(), RetryAttempted: true}
	}
	s.stageOutputs["summa_composer_retry"] = retryOutput

	rawRendering, err := stage.RequireNonEmptyString(retryOutput, "summa_rendering")
	if err != nil {
		return types.Payload{}, &stage.Failure{Stage: "summa_composer", Message: err.Error(), RetryAttempted: true}
	}
	s.rendering = summa.EnsureRendering(rawRendering, s.question, s.hypotheses, s.rankedIDs, s.top)
	payload.SummaRendering = s.rendering

	if err := contract.ValidatePayload(payload, catalog); err != nil {
		return types.Payload{}, &stage.Failure{Stage: "summa_composer", Message: err.Error(), RetryAttempted: true}
	}
	return payload, nil
}

// regenerateForDiversity re-runs the generator under its own stage name with
// a hardened objective. Fewer than three distinct hypotheses after the retry
// is terminal.
func (s *runState) regenerateForDiversity(ctx context.Context, problemMemoJSON, evidenceMemoJSON, retrievalJSON string, catalog []types.Paper) error {
	regenerated, err := s.runner.RunJSON(ctx, "hypothesis_generator_diversity_retry", "hypothesis_generator", map[string]string{
		"question":           s.question,
		"domain":             s.domain,
		"objective":          s.objective + diversityConstraint,
		"problem_memo_json":  problemMemoJSON,
		"evidence_memo_json": evidenceMemoJSON,
		"retrieval_json":     retrievalJSON,
	})
	if err != nil {
		return err
	}
	s.stageOutputs["hypothesis_generator_diversity_retry"] = regenerated

	normalized, err := normalize.GeneratorHypotheses(regenerated, catalog)
	if err != nil {
		return &stage.Failure{Stage: "hypothesis_generator_diversity_retry", Message: err.Error(), RetryAttempted: true}
	}
	if len(normalized) < minDistinctHypotheses {
		return &stage.Failure{
			Stage:          "hypothesis_generator_diversity_retry",
			Message:        "Diversity retry still produced fewer than 3 distinct hypotheses.",
			RetryAttempted: true,
		}
	}
	s.hypotheses = normalized
	return nil
}

func (s *runState) composerInputs() map[string]string {
	topHypotheses := summa.TopHypotheses(s.hypotheses, s.rankedIDs, s.top)
	if topHypotheses == nil {
		topHypotheses = []types.Hypothesis{}
	}
	return map[string]string{
		"question":            s.question,
		"domain":              s.domain,
		"top_hypotheses_json": asJSON(topHypotheses),
		"ranking_json":        asJSON(map[string]any{"ranked_hypothesis_ids": s.rankedIDs}),
		"top_count":           fmt.Sprintf("%d", s.top),
	}
}

func (s *runState) partialFailure(failure stage.Failure) (types.Payload, error) {
	fmt.Fprintf(s.engine.Progress, "pipeline failed at stage %s: %s\n", failure.Stage, failure.Message)
	return contract.BuildPartialFailure(
		s.question,
		s.domain,
		types.PipelineError{
			Stage:          failure.Stage,
			Message:        failure.Message,
			RetryAttempted: failure.RetryAttempted,
		},
		s.stageOutputs,
		s.hypotheses,
		s.rankedIDs,
		s.rendering,
	)
}

// asJSON compact-encodes a stage input. The encoded values are maps and
// structs built by this package, so encoding cannot fail.
func asJSON(value any) string {
	encoded, err := json.Marshal(value)
	if err != nil {
		return "{}"
	}
	return string(encoded)
}
