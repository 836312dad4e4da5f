// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

// PipelineError describes the terminal failure of a pipeline stage after its
// allowed retry.
type PipelineError struct {
	Stage          string `json:"stage" yaml:"stage"`
	Message        string `json:"message" yaml:"message"`
	RetryAttempted bool   `json:"retry_attempted" yaml:"retry_attempted"`
}

// Payload is the pipeline result document. A successful run populates the
// hypothesis fields and leaves Error nil; a partial failure carries the same
// shape (possibly with empty lists and strings) plus the Error object and the
// stage outputs captured before the failure.
type Payload struct {
	Question            string         `json:"question" yaml:"question"`
	Domain              string         `json:"domain" yaml:"domain"`
	Hypotheses          []Hypothesis   `json:"hypotheses" yaml:"hypotheses"`
	RankedHypothesisIDs []string       `json:"ranked_hypothesis_ids" yaml:"ranked_hypothesis_ids"`
	SummaRendering      string         `json:"summa_rendering" yaml:"summa_rendering"`
	StageOutputs        map[string]any `json:"stage_outputs,omitempty" yaml:"stage_outputs,omitempty"`
	Error               *PipelineError `json:"error,omitempty" yaml:"error,omitempty"`
}

// IsPartialFailure reports whether the payload records a stage failure.
func (p *Payload) IsPartialFailure() bool {
	return p.Error != nil
}
