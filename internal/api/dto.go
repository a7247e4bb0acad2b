package api

import (
	"github.com/starford/ansuz/internal/docservice"
	"github.com/starford/ansuz/internal/index"
)

// CreateDocumentRequest is the request body for creating a document.
type CreateDocumentRequest struct {
	Path    string `json:"path" example:"notes/hello.md" validate:"required"`
	Content string `json:"content" example:"# Hello\nWorld" validate:"required"`
}

// UpdateDocumentRequest is the request body for updating a document.
type UpdateDocumentRequest struct {
	Content string `json:"content" example:"# Updated\nContent" validate:"required"`
}

// MoveDocumentRequest is the request body for renaming a document.
type MoveDocumentRequest struct {
	From string `json:"from" example:"notes/old.md" validate:"required"`
	To   string `json:"to" example:"archive/new.md" validate:"required"`
}

// DocumentDetail is the full document response type (aliased from the domain layer).
type DocumentDetail = docservice.DocumentDetail

// DocumentListItem is a lightweight item in a list response (aliased from the domain layer).
type DocumentListItem = docservice.DocumentListItem

// DocumentListResponse wraps paginated document listings.
type DocumentListResponse struct {
	Documents []DocumentListItem `json:"documents" validate:"required"`
	Total     int                `json:"total" example:"42" validate:"required"`
}

// QueryResponse wraps structured query results.
type QueryResponse struct {
	Results []index.Result `json:"results" validate:"required"`
	Total   int            `json:"total" example:"7" validate:"required"`
}

// BacklinksResponse wraps the backlink list of one document.
type BacklinksResponse struct {
	Path      string   `json:"path" example:"notes/hello.md" validate:"required"`
	Backlinks []string `json:"backlinks" validate:"required"`
}

// GraphResponse wraps the link graph snapshot.
type GraphResponse = index.GraphSnapshot
