package api

import (
	"github.com/starford/jotter/internal/index"
	"github.com/starford/jotter/internal/noteservice"
)

// DocumentDetail is the full document response type (aliased from the domain layer).
type DocumentDetail = noteservice.DocumentDetail

// DocumentListItem is a lightweight item in a list response (aliased from the domain layer).
type DocumentListItem = noteservice.DocumentListItem

// KeywordCount is one keyword with its document count (aliased from the domain layer).
type KeywordCount = noteservice.KeywordCount

// Finding is one unresolved citation (aliased from the domain layer).
type Finding = noteservice.Finding

// SearchResult is a single search hit in the API response.
type SearchResult = index.SearchResult

// CitekeysResponse wraps the citekey listing.
type CitekeysResponse struct {
	Citekeys []string `json:"citekeys" validate:"required"`
}

// KeywordsResponse wraps the keyword listing.
type KeywordsResponse struct {
	Keywords []KeywordCount `json:"keywords" validate:"required"`
}

// KeywordDocumentsResponse lists the documents carrying one keyword.
type KeywordDocumentsResponse struct {
	Keyword   string             `json:"keyword" example:"physics" validate:"required"`
	Documents []DocumentListItem `json:"documents" validate:"required"`
}

// SearchResponse wraps search results.
type SearchResponse struct {
	Results []SearchResult `json:"results" validate:"required"`
}

// CheckResponse wraps the unresolved citations of the tree.
type CheckResponse struct {
	Findings []Finding `json:"findings" validate:"required"`
}
