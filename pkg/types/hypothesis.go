// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

// Objection is one numbered objection raised against a hypothesis. Every
// hypothesis carries exactly three, numbered 1, 2, 3.
type Objection struct {
	Number int    `json:"number" yaml:"number"`
	Text   string `json:"text" yaml:"text"`
}

// Reply answers the objection with the matching number.
type Reply struct {
	ObjectionNumber int    `json:"objection_number" yaml:"objection_number"`
	Text            string `json:"text" yaml:"text"`
}

// Citation is a grounded reference to a paper in the retrieved catalog.
// Either PaperID or DOI anchors it.
type Citation struct {
	Title   string   `json:"title" yaml:"title"`
	Authors []string `json:"authors" yaml:"authors"`
	Year    int      `json:"year" yaml:"year"`
	PaperID string   `json:"paper_id,omitempty" yaml:"paper_id,omitempty"`
	DOI     string   `json:"doi,omitempty" yaml:"doi,omitempty"`
}

// Winner values for pairwise comparisons.
const (
	WinnerA   = "a"
	WinnerB   = "b"
	WinnerTie = "tie"
)

// Comparison records one pairwise judgment between two hypotheses across the
// three ranking dimensions.
type Comparison struct {
	HypothesisAID      string `json:"hypothesis_a_id" yaml:"hypothesis_a_id"`
	HypothesisBID      string `json:"hypothesis_b_id" yaml:"hypothesis_b_id"`
	WinnerNovelty      string `json:"winner_novelty" yaml:"winner_novelty"`
	WinnerPlausibility string `json:"winner_plausibility" yaml:"winner_plausibility"`
	WinnerTestability  string `json:"winner_testability" yaml:"winner_testability"`
}

// WinCounts tallies outright wins per dimension. Informational only: ranking
// is driven by the point totals, not these counts.
type WinCounts struct {
	Novelty      int `json:"novelty" yaml:"novelty"`
	Plausibility int `json:"plausibility" yaml:"plausibility"`
	Testability  int `json:"testability" yaml:"testability"`
}

// PairwiseRecord is the subset of comparisons a hypothesis participated in,
// plus its win counts.
type PairwiseRecord struct {
	Comparisons     []Comparison `json:"comparisons" yaml:"comparisons"`
	WinsByDimension WinCounts    `json:"wins_by_dimension" yaml:"wins_by_dimension"`
}

// Scores holds the per-dimension scores in [1.0, 5.0] and the weighted
// overall score (0.35 novelty + 0.30 plausibility + 0.35 testability).
type Scores struct {
	Novelty      float64 `json:"novelty" yaml:"novelty"`
	Plausibility float64 `json:"plausibility" yaml:"plausibility"`
	Testability  float64 `json:"testability" yaml:"testability"`
	Overall      float64 `json:"overall" yaml:"overall"`
}

// Hypothesis is a candidate research claim with rationales, predictions,
// a minimal experiment plan, grounded citations, the scholastic objection and
// reply triplets, and its pairwise ranking record.
type Hypothesis struct {
	ID                     string         `json:"id" yaml:"id"`
	Title                  string         `json:"title" yaml:"title"`
	Statement              string         `json:"statement" yaml:"statement"`
	NoveltyRationale       string         `json:"novelty_rationale" yaml:"novelty_rationale"`
	PlausibilityRationale  string         `json:"plausibility_rationale" yaml:"plausibility_rationale"`
	TestabilityRationale   string         `json:"testability_rationale" yaml:"testability_rationale"`
	FalsifiablePredictions []string       `json:"falsifiable_predictions" yaml:"falsifiable_predictions"`
	MinimalExperiments     []string       `json:"minimal_experiments" yaml:"minimal_experiments"`
	Citations              []Citation     `json:"citations" yaml:"citations"`
	Objections             []Objection    `json:"objections" yaml:"objections"`
	Replies                []Reply        `json:"replies" yaml:"replies"`
	PairwiseRecord         PairwiseRecord `json:"pairwise_record" yaml:"pairwise_record"`
	Scores                 Scores         `json:"scores" yaml:"scores"`
}
