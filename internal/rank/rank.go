// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package rank converts the ranker stage's pairwise comparisons into
// per-dimension scores and a total order over hypotheses.
package rank

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/pdiddy/summa-engine/pkg/types"
)

// Score weights for the overall score.
const (
	weightNovelty      = 0.35
	weightPlausibility = 0.30
	weightTestability  = 0.35
)

// dimensionPoints accumulates tie-aware points per dimension.
type dimensionPoints struct {
	novelty      float64
	plausibility float64
	testability  float64
}

// ApplyPairwise normalizes the ranker output, fills in synthetic all-tie
// comparisons for uncovered pairs, computes scores, and returns the ranked id
// list plus the hypotheses with their pairwise records and scores populated.
//
// Scores per dimension are 1 + 4·points/D with D = max(N-1, 1), points being
// 1.0 per win and 0.5 per tie, all rounded to 3 decimals. Ordering is
// descending by (overall, novelty, testability, plausibility) with input
// order breaking full ties.
func ApplyPairwise(hypotheses []types.Hypothesis, rankerOutput map[string]any) ([]string, []types.Hypothesis, error) {
	rawComparisons, ok := rankerOutput["comparisons"].([]any)
	if !ok {
		return nil, nil, fmt.Errorf("ranker output must contain a comparisons array")
	}

	ids := make([]string, len(hypotheses))
	known := make(map[string]bool, len(hypotheses))
	for i, h := range hypotheses {
		ids[i] = h.ID
		known[h.ID] = true
	}

	comparisons, seenPairs := normalizeComparisons(rawComparisons, known)
	comparisons = append(comparisons, syntheticTies(ids, seenPairs)...)

	wins := make(map[string]types.WinCounts, len(ids))
	points := make(map[string]dimensionPoints, len(ids))
	for _, id := range ids {
		wins[id] = types.WinCounts{}
		points[id] = dimensionPoints{}
	}
	for _, cmp := range comparisons {
		accumulate(wins, points, cmp)
	}

	divisor := float64(len(ids) - 1)
	if divisor < 1 {
		divisor = 1
	}

	scores := make(map[string]types.Scores, len(ids))
	for _, id := range ids {
		p := points[id]
		novelty := 1 + 4*p.novelty/divisor
		plausibility := 1 + 4*p.plausibility/divisor
		testability := 1 + 4*p.testability/divisor
		overall := weightNovelty*novelty + weightPlausibility*plausibility + weightTestability*testability
		scores[id] = types.Scores{
			Novelty:      round3(novelty),
			Plausibility: round3(plausibility),
			Testability:  round3(testability),
			Overall:      round3(overall),
		}
	}

	ranked := make([]string, len(ids))
	copy(ranked, ids)
	sort.SliceStable(ranked, func(i, j int) bool {
		a, b := scores[ranked[i]], scores[ranked[j]]
		if a.Overall != b.Overall {
			return a.Overall > b.Overall
		}
		if a.Novelty != b.Novelty {
			return a.Novelty > b.Novelty
		}
		if a.Testability != b.Testability {
			return a.Testability > b.Testability
		}
		return a.Plausibility > b.Plausibility
	})

	updated := make([]types.Hypothesis, len(hypotheses))
	for i, h := range hypotheses {
		var own []types.Comparison
		for _, cmp := range comparisons {
			if cmp.HypothesisAID == h.ID || cmp.HypothesisBID == h.ID {
				own = append(own, cmp)
			}
		}
		h.PairwiseRecord = types.PairwiseRecord{
			Comparisons:     own,
			WinsByDimension: wins[h.ID],
		}
		h.Scores = scores[h.ID]
		updated[i] = h
	}

	return ranked, updated, nil
}

// normalizeComparisons drops malformed items (missing ids, self-pairs,
// unknown ids) and deduplicates on the unordered pair.
func normalizeComparisons(raw []any, known map[string]bool) ([]types.Comparison, map[[2]string]bool) {
	var comparisons []types.Comparison
	seen := make(map[[2]string]bool)

	for _, entry := range raw {
		item, ok := entry.(map[string]any)
		if !ok {
			continue
		}
		a := trimmedString(item["hypothesis_a_id"])
		b := trimmedString(item["hypothesis_b_id"])
		if a == "" || b == "" || a == b || !known[a] || !known[b] {
			continue
		}
		pair := orderedPair(a, b)
		if seen[pair] {
			continue
		}
		seen[pair] = true
		comparisons = append(comparisons, types.Comparison{
			HypothesisAID:      a,
			HypothesisBID:      b,
			WinnerNovelty:      winner(item["winner_novelty"]),
			WinnerPlausibility: winner(item["winner_plausibility"]),
			WinnerTestability:  winner(item["winner_testability"]),
		})
	}
	return comparisons, seen
}

// syntheticTies builds all-tie comparisons for every expected pair not
// covered by the ranker, appended in lexicographic pair order so the output
// is deterministic.
func syntheticTies(ids []string, seen map[[2]string]bool) []types.Comparison {
	var missing [][2]string
	for i := 0; i < len(ids); i++ {
		for j := i + 1; j < len(ids); j++ {
			pair := orderedPair(ids[i], ids[j])
			if !seen[pair] {
				seen[pair] = true
				missing = append(missing, pair)
			}
		}
	}
	sort.Slice(missing, func(i, j int) bool {
		if missing[i][0] != missing[j][0] {
			return missing[i][0] < missing[j][0]
		}
		return missing[i][1] < missing[j][1]
	})

	ties := make([]types.Comparison, 0, len(missing))
	for _, pair := range missing {
		ties = append(ties, types.Comparison{
			HypothesisAID:      pair[0],
			HypothesisBID:      pair[1],
			WinnerNovelty:      types.WinnerTie,
			WinnerPlausibility: types.WinnerTie,
			WinnerTestability:  types.WinnerTie,
		})
	}
	return ties
}

// accumulate applies one comparison to the win counts and the point totals.
// Wins feed the observable wins_by_dimension record; points feed the scores.
func accumulate(wins map[string]types.WinCounts, points map[string]dimensionPoints, cmp types.Comparison) {
	a, b := cmp.HypothesisAID, cmp.HypothesisBID
	apply := func(winnerValue string, winCount func(*types.WinCounts) *int, point func(*dimensionPoints) *float64) {
		wa, wb := wins[a], wins[b]
		pa, pb := points[a], points[b]
		switch winnerValue {
		case types.WinnerA:
			*winCount(&wa)++
			*point(&pa) += 1.0
		case types.WinnerB:
			*winCount(&wb)++
			*point(&pb) += 1.0
		default:
			*point(&pa) += 0.5
			*point(&pb) += 0.5
		}
		wins[a], wins[b] = wa, wb
		points[a], points[b] = pa, pb
	}

	apply(cmp.WinnerNovelty,
		func(w *types.WinCounts) *int { return &w.Novelty },
		func(p *dimensionPoints) *float64 { return &p.novelty })
	apply(cmp.WinnerPlausibility,
		func(w *types.WinCounts) *int { return &w.Plausibility },
		func(p *dimensionPoints) *float64 { return &p.plausibility })
	apply(cmp.WinnerTestability,
		func(w *types.WinCounts) *int { return &w.Testability },
		func(p *dimensionPoints) *float64 { return &p.testability })
}

// winner normalizes a raw winner value; anything unrecognized is a tie.
func winner(value any) string {
	switch strings.ToLower(strings.TrimSpace(fmt.Sprint(value))) {
	case types.WinnerA:
		return types.WinnerA
	case types.WinnerB:
		return types.WinnerB
	}
	return types.WinnerTie
}

func trimmedString(value any) string {
	s, _ := value.(string)
	return strings.TrimSpace(s)
}

func orderedPair(a, b string) [2]string {
	if a > b {
		a, b = b, a
	}
	return [2]string{a, b}
}

// round3 rounds half away from zero to 3 decimal places.
func round3(x float64) float64 {
	return math.Round(x*1000) / 1000
}
