// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package normalize

import (
	"fmt"
	"strings"

	"github.com/pdiddy/summa-engine/pkg/types"
)

// fallbackCitationLimit caps the number of catalog entries substituted when a
// hypothesis arrives with no grounded citations.
const fallbackCitationLimit = 3

// SanitizeCitations validates candidate citations against the catalog. A
// candidate survives only with a non-empty title, a non-empty author list, an
// integer year, and an anchor (paper_id or DOI) that resolves into the
// catalog. Survivors are deduplicated on the resolved anchor. An ungrounded
// citation is never passed through.
func SanitizeCitations(raw any, catalog []types.Paper) []types.Citation {
	items, ok := raw.([]any)
	if !ok {
		return nil
	}

	validIDs := types.CatalogIDs(catalog)
	validDOIs := types.CatalogDOIs(catalog)

	var sanitized []types.Citation
	seen := make(map[string]bool)
	for _, item := range items {
		candidate, ok := item.(map[string]any)
		if !ok {
			continue
		}

		title, ok := candidate["title"].(string)
		if !ok || strings.TrimSpace(title) == "" {
			continue
		}
		rawAuthors, ok := candidate["authors"].([]any)
		if !ok || len(rawAuthors) == 0 {
			continue
		}
		year, ok := intValue(candidate["year"])
		if !ok {
			continue
		}

		paperID, _ := candidate["paper_id"].(string)
		doi, _ := candidate["doi"].(string)
		paperID = strings.TrimSpace(paperID)

		groundedID := paperID != "" && validIDs[paperID]
		groundedDOI := doi != "" && validDOIs[types.NormalizeDOI(doi)]
		if !groundedID && !groundedDOI {
			continue
		}

		key := paperID
		if !groundedID {
			key = "doi:" + types.NormalizeDOI(doi)
		}
		if seen[key] {
			continue
		}
		seen[key] = true

		var authors []string
		for _, author := range rawAuthors {
			if name := strings.TrimSpace(fmt.Sprint(author)); name != "" {
				authors = append(authors, name)
			}
		}

		citation := types.Citation{
			Title:   strings.TrimSpace(title),
			Authors: authors,
			Year:    year,
		}
		if groundedID {
			citation.PaperID = paperID
		}
		if groundedDOI {
			citation.DOI = strings.TrimSpace(doi)
		}
		sanitized = append(sanitized, citation)
	}
	return sanitized
}

// FallbackCitations returns up to three catalog entries usable as grounding
// when the reasoner cited nothing that survived sanitization.
func FallbackCitations(catalog []types.Paper) []types.Citation {
	var fallback []types.Citation
	seen := make(map[string]bool)
	for _, paper := range catalog {
		if paper.Title == "" || len(paper.Authors) == 0 {
			continue
		}
		if paper.Year < 1800 || paper.Year > 2100 {
			continue
		}
		if paper.PaperID == "" && paper.DOI == "" {
			continue
		}

		key := paper.PaperID
		if key == "" {
			key = "doi:" + types.NormalizeDOI(paper.DOI)
		}
		if seen[key] {
			continue
		}
		seen[key] = true

		fallback = append(fallback, paper.Citation())
		if len(fallback) >= fallbackCitationLimit {
			break
		}
	}
	return fallback
}
