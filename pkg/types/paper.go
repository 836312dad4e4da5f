// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import (
	"fmt"
	"strings"
)

// Paper is one record from the paper-search catalog. At least one of PaperID
// or DOI must be present for the paper to anchor a citation.
type Paper struct {
	// PaperID is the search service's opaque paper identifier.
	PaperID string `json:"paper_id,omitempty" yaml:"paper_id,omitempty"`

	// DOI is the paper's DOI as returned by the search service.
	DOI string `json:"doi,omitempty" yaml:"doi,omitempty"`

	// Title is the paper title.
	Title string `json:"title" yaml:"title"`

	// Authors lists author display names in source order.
	Authors []string `json:"authors" yaml:"authors"`

	// Year is the publication year.
	Year int `json:"year" yaml:"year"`

	// Abstract is the paper abstract, possibly empty.
	Abstract string `json:"abstract" yaml:"abstract"`

	// CitationCount is the citation count if the service reported one.
	CitationCount *int `json:"citation_count,omitempty" yaml:"citation_count,omitempty"`

	// URL is the landing-page URL, if any.
	URL string `json:"url,omitempty" yaml:"url,omitempty"`

	// SourceQuery records which query retrieved this paper.
	SourceQuery string `json:"source_query" yaml:"source_query"`
}

// DedupeKey returns the catalog deduplication key, preferring paper id, then
// normalized DOI, then lowercase title plus year.
func (p Paper) DedupeKey() string {
	if p.PaperID != "" {
		return "paper_id:" + p.PaperID
	}
	if p.DOI != "" {
		return "doi:" + NormalizeDOI(p.DOI)
	}
	return fmt.Sprintf("title_year:%s::%d", strings.ToLower(p.Title), p.Year)
}

// Citation converts the paper into a canonical citation record.
func (p Paper) Citation() Citation {
	return Citation{
		Title:   p.Title,
		Authors: p.Authors,
		Year:    p.Year,
		PaperID: p.PaperID,
		DOI:     p.DOI,
	}
}

// NormalizeDOI lowercases a DOI and strips any "doi:" prefix so catalog
// membership checks compare like with like.
func NormalizeDOI(value string) string {
	normalized := strings.ToLower(strings.TrimSpace(value))
	if strings.HasPrefix(normalized, "doi:") {
		normalized = strings.TrimSpace(normalized[4:])
	}
	return normalized
}

// CatalogIDs returns the set of non-empty paper ids in the catalog.
func CatalogIDs(papers []Paper) map[string]bool {
	ids := make(map[string]bool, len(papers))
	for _, p := range papers {
		if p.PaperID != "" {
			ids[p.PaperID] = true
		}
	}
	return ids
}

// CatalogDOIs returns the set of normalized DOIs in the catalog.
func CatalogDOIs(papers []Paper) map[string]bool {
	dois := make(map[string]bool, len(papers))
	for _, p := range papers {
		if p.DOI != "" {
			dois[NormalizeDOI(p.DOI)] = true
		}
	}
	return dois
}

// Retrieval status values.
const (
	RetrievalOK          = "ok"
	RetrievalNoCitations = "no_grounded_citations_found"
)

// RetrievalResult is the outcome of the paper-retrieval stage. Retrieval never
// fails the pipeline: transport errors are recorded and an empty catalog is a
// valid result.
type RetrievalResult struct {
	// Status is RetrievalOK when at least one paper was retrieved,
	// RetrievalNoCitations otherwise.
	Status string `json:"status" yaml:"status"`

	// Message is a human-readable summary of the outcome.
	Message string `json:"message" yaml:"message"`

	// Queries lists the executed search queries in order.
	Queries []string `json:"queries" yaml:"queries"`

	// Papers is the deduplicated catalog in first-seen order.
	Papers []Paper `json:"papers" yaml:"papers"`

	// Errors records per-query transport failures.
	Errors []string `json:"errors" yaml:"errors"`
}
