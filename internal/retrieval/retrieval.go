// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package retrieval queries the paper-search API and returns a deduplicated,
// bounded catalog for citation grounding. Retrieval never aborts the
// pipeline: transport errors are recorded and an empty catalog is a valid
// outcome downstream stages must handle.
package retrieval

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/pdiddy/summa-engine/internal/httputil"
	"github.com/pdiddy/summa-engine/pkg/types"
)

// searchFields is the field list requested from the paper-search API.
const searchFields = "paperId,title,authors,year,abstract,citationCount,externalIds,url"

// defaultPerQueryLimit bounds results per query.
const defaultPerQueryLimit = 10

// Client searches the Semantic Scholar graph API.
type Client struct {
	// BaseURL is the API root (default types.DefaultSearchAPIBaseURL).
	BaseURL string

	// APIKey is optional; when set it is sent as x-api-key.
	APIKey string

	// Timeout bounds each search request.
	Timeout time.Duration

	// PerQueryLimit caps results per query (default 10, API maximum 100).
	PerQueryLimit int

	// HTTPClient defaults to http.DefaultClient.
	HTTPClient *http.Client
}

// NewClient builds a search client from settings.
func NewClient(settings types.Settings) *Client {
	return &Client{
		BaseURL: settings.SearchAPIBaseURL,
		APIKey:  settings.SearchAPIKey,
		Timeout: settings.SearchTimeout,
	}
}

// BuildQueryPlan returns the query list [question, refinedQuery] with empty
// and duplicate entries removed, preserving order.
func BuildQueryPlan(question, refinedQuery string) []string {
	var queries []string
	for _, candidate := range []string{strings.TrimSpace(question), strings.TrimSpace(refinedQuery)} {
		if candidate == "" {
			continue
		}
		duplicate := false
		for _, q := range queries {
			if q == candidate {
				duplicate = true
				break
			}
		}
		if !duplicate {
			queries = append(queries, candidate)
		}
	}
	return queries
}

// RetrieveGroundedPapers runs the query plan and merges the results into one
// catalog, deduplicated by paper id, then normalized DOI, then title+year.
func (c *Client) RetrieveGroundedPapers(ctx context.Context, question, refinedQuery string) types.RetrievalResult {
	queries := BuildQueryPlan(question, refinedQuery)
	if len(queries) == 0 {
		return types.RetrievalResult{
			Status:  types.RetrievalNoCitations,
			Message: "no grounded citations found",
			Queries: []string{},
			Papers:  []types.Paper{},
			Errors:  []string{"question/refined_query are empty"},
		}
	}

	seen := make(map[string]bool)
	papers := []types.Paper{}
	errs := []string{}

	for _, query := range queries {
		found, err := c.Search(ctx, query)
		if err != nil {
			errs = append(errs, err.Error())
			continue
		}
		for _, paper := range found {
			key := paper.DedupeKey()
			if seen[key] {
				continue
			}
			seen[key] = true
			papers = append(papers, paper)
		}
	}

	if len(papers) == 0 {
		message := "no grounded citations found"
		if len(errs) > 0 {
			message += " (API failure or empty results)"
		}
		return types.RetrievalResult{
			Status:  types.RetrievalNoCitations,
			Message: message,
			Queries: queries,
			Papers:  []types.Paper{},
			Errors:  errs,
		}
	}

	return types.RetrievalResult{
		Status:  types.RetrievalOK,
		Message: fmt.Sprintf("retrieved %d grounded papers", len(papers)),
		Queries: queries,
		Papers:  papers,
		Errors:  errs,
	}
}

// Search issues one search request and parses the records that carry enough
// metadata to anchor a citation (title, authors, integer year).
func (c *Client) Search(ctx context.Context, query string) ([]types.Paper, error) {
	if strings.TrimSpace(query) == "" {
		return nil, nil
	}

	limit := c.PerQueryLimit
	if limit <= 0 {
		limit = defaultPerQueryLimit
	}
	if limit > 100 {
		limit = 100
	}

	base := c.BaseURL
	if base == "" {
		base = types.DefaultSearchAPIBaseURL
	}

	params := url.Values{
		"query":  {query},
		"limit":  {fmt.Sprintf("%d", limit)},
		"fields": {searchFields},
	}
	reqURL := strings.TrimRight(base, "/") + "/graph/v1/paper/search?" + params.Encode()

	if c.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.Timeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if strings.TrimSpace(c.APIKey) != "" {
		req.Header.Set("x-api-key", strings.TrimSpace(c.APIKey))
	}

	client := c.HTTPClient
	if client == nil {
		client = http.DefaultClient
	}

	resp, err := httputil.DoWithRetry(ctx, client, req, 0)
	if err != nil {
		return nil, fmt.Errorf("paper search network error for query %q: %w", query, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("paper search HTTP %d for query %q: %s", resp.StatusCode, query, strings.TrimSpace(string(body)))
	}

	var parsed searchResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("parsing paper search response for query %q: %w", query, err)
	}

	var papers []types.Paper
	for _, record := range parsed.Data {
		if paper, ok := parseRecord(record, query); ok {
			papers = append(papers, paper)
		}
	}
	return papers, nil
}

// Paper-search API JSON structures.
type searchResponse struct {
	Total  int            `json:"total"`
	Offset int            `json:"offset"`
	Data   []searchRecord `json:"data"`
}

type searchRecord struct {
	PaperID       string         `json:"paperId"`
	Title         string         `json:"title"`
	Abstract      string         `json:"abstract"`
	Year          *int           `json:"year"`
	CitationCount *int           `json:"citationCount"`
	URL           string         `json:"url"`
	Authors       []searchAuthor `json:"authors"`
	ExternalIDs   struct {
		DOI string `json:"DOI"`
	} `json:"externalIds"`
}

type searchAuthor struct {
	AuthorID string `json:"authorId"`
	Name     string `json:"name"`
}

// parseRecord converts one API record into a Paper. Records without a title,
// an integer year, or at least one named author are unusable as citation
// anchors and are dropped.
func parseRecord(record searchRecord, sourceQuery string) (types.Paper, bool) {
	title := strings.TrimSpace(record.Title)
	if title == "" || record.Year == nil {
		return types.Paper{}, false
	}

	var authors []string
	for _, author := range record.Authors {
		if name := strings.TrimSpace(author.Name); name != "" {
			authors = append(authors, name)
		}
	}
	if len(authors) == 0 {
		return types.Paper{}, false
	}

	return types.Paper{
		PaperID:       strings.TrimSpace(record.PaperID),
		DOI:           strings.TrimSpace(record.ExternalIDs.DOI),
		Title:         title,
		Authors:       authors,
		Year:          *record.Year,
		Abstract:      strings.TrimSpace(record.Abstract),
		CitationCount: record.CitationCount,
		URL:           strings.TrimSpace(record.URL),
		SourceQuery:   sourceQuery,
	}, true
}
