// Package search sequences the catalog search functions into the fallback
// pipeline used when the model answers a turn without calling any tool, and
// provides the (optionally cached) executor that tool calls run through.
package search

import (
	"context"

	"github.com/Thomaz-Klifson/car-search/internal/catalog"
)

// Executor runs catalog searches. Implementations never fail: a search that
// cannot be answered reports found=false.
type Executor interface {
	Search(ctx context.Context, criteria catalog.Criteria) catalog.SearchResult
	Similar(ctx context.Context, req catalog.SimilarRequest) catalog.SimilarityResult
}

// Extractor recovers criteria from a free-text utterance.
type Extractor interface {
	ParseQuery(utterance string) catalog.Criteria
}

// CatalogExecutor runs searches directly against an in-memory catalog.
type CatalogExecutor struct {
	catalog *catalog.Catalog
}

// NewCatalogExecutor creates an executor over c.
func NewCatalogExecutor(c *catalog.Catalog) *CatalogExecutor {
	return &CatalogExecutor{catalog: c}
}

func (e *CatalogExecutor) Search(_ context.Context, criteria catalog.Criteria) catalog.SearchResult {
	return e.catalog.Search(criteria)
}

func (e *CatalogExecutor) Similar(_ context.Context, req catalog.SimilarRequest) catalog.SimilarityResult {
	return e.catalog.Similar(req)
}
