package docservice

import (
	"context"
	"errors"
	"os"
	"time"

	"github.com/starford/ansuz/internal/apperr"
	"github.com/starford/ansuz/internal/checksum"
	"github.com/starford/ansuz/internal/index"
	"github.com/starford/ansuz/internal/models"
	"github.com/starford/ansuz/internal/parser"
	"github.com/starford/ansuz/internal/storage"
)

// DocumentDetail is the full representation of a vault document.
type DocumentDetail struct {
	Path        string           `json:"path"`
	Title       string           `json:"title"`
	Content     string           `json:"content"`
	Fingerprint string           `json:"fingerprint"`
	Frontmatter map[string]any   `json:"frontmatter,omitempty"`
	Headings    []models.Heading `json:"headings,omitempty"`
	Backlinks   []string         `json:"backlinks"`
	Outgoing    []models.Link    `json:"outgoing"`
	UpdatedAt   time.Time        `json:"updated_at"`
}

// DocumentListItem is a lightweight item in a list response.
type DocumentListItem struct {
	Path        string    `json:"path"`
	Title       string    `json:"title"`
	Fingerprint string    `json:"fingerprint"`
	Size        int64     `json:"size"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Service coordinates storage and index operations. Storage stays the source
// of truth: every write goes to disk first and only then into the index.
type Service struct {
	store storage.Provider
	ix    index.VaultIndex
}

// NewService creates a new document service.
func NewService(store storage.Provider, ix index.VaultIndex) *Service {
	return &Service{store: store, ix: ix}
}

// Get reads a document from storage, parses it, and enriches it with the
// index's link data.
func (s *Service) Get(_ context.Context, path string) (*DocumentDetail, error) {
	data, err := s.store.Read(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, apperr.ErrNotFound
		}
		return nil, err
	}
	return s.buildDetail(path, data)
}

// Create writes a new document and indexes it.
func (s *Service) Create(_ context.Context, path string, content []byte) (*DocumentDetail, error) {
	if _, err := s.store.Stat(path); err == nil {
		return nil, apperr.ErrAlreadyExists
	}
	if err := s.store.Write(path, content); err != nil {
		return nil, err
	}
	if err := s.indexContent(path, content); err != nil {
		return nil, err
	}
	return s.buildDetail(path, content)
}

// Update writes updated content with optimistic concurrency: a non-empty
// ifMatch must equal the current content fingerprint.
func (s *Service) Update(_ context.Context, path string, content []byte, ifMatch string) (*DocumentDetail, error) {
	existing, err := s.store.Read(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, apperr.ErrNotFound
		}
		return nil, err
	}
	if ifMatch != "" && ifMatch != checksum.Sum(existing) {
		return nil, apperr.ErrConflict
	}
	if err := s.store.Write(path, content); err != nil {
		return nil, err
	}
	if err := s.indexContent(path, content); err != nil {
		return nil, err
	}
	return s.buildDetail(path, content)
}

// Delete removes a document from storage and index. Links pointing at the
// removed path survive as a ghost node until their sources change.
func (s *Service) Delete(_ context.Context, path string) error {
	if err := s.store.Delete(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return apperr.ErrNotFound
		}
		return err
	}
	_, err := s.ix.Remove(path)
	return err
}

// Rename moves a document to a new path. The index treats this as a removal
// of the old identity plus a creation of the new one inside a single
// transition, so links by alias re-resolve to the new path.
func (s *Service) Rename(_ context.Context, oldPath, newPath string) (*DocumentDetail, error) {
	if _, ok := s.ix.Get(oldPath); !ok {
		return nil, apperr.ErrNotFound
	}
	if _, err := s.store.Stat(newPath); err == nil {
		return nil, apperr.ErrAlreadyExists
	}
	if err := s.store.Move(oldPath, newPath); err != nil {
		return nil, err
	}
	data, err := s.store.Read(newPath)
	if err != nil {
		return nil, err
	}
	meta, err := s.store.Stat(newPath)
	if err != nil {
		return nil, err
	}
	res, err := parser.Parse(data)
	if err != nil {
		return nil, err
	}
	if err := s.ix.Rename(oldPath, newPath, index.SourceFromParse(res, data, meta.Size, meta.UpdatedAt)); err != nil {
		return nil, err
	}
	return s.buildDetail(newPath, data)
}

// Query runs a structured query against the index.
func (s *Service) Query(_ context.Context, q index.Query) ([]index.Result, error) {
	return s.ix.Execute(q)
}

// List returns the indexed documents in insertion order, windowed by limit
// and offset. limit <= 0 means no limit.
func (s *Service) List(_ context.Context, limit, offset int) ([]DocumentListItem, int, error) {
	docs := s.ix.Documents()
	total := len(docs)

	if offset < 0 {
		offset = 0
	}
	if offset > total {
		offset = total
	}
	docs = docs[offset:]
	if limit > 0 && len(docs) > limit {
		docs = docs[:limit]
	}

	items := make([]DocumentListItem, len(docs))
	for i, d := range docs {
		items[i] = DocumentListItem{
			Path:        d.Path,
			Title:       d.Title,
			Fingerprint: d.Fingerprint,
			Size:        d.Size,
			UpdatedAt:   d.MTime,
		}
	}
	return items, total, nil
}

// Backlinks returns the paths of documents linking to target.
func (s *Service) Backlinks(_ context.Context, target string) ([]string, error) {
	return nonNilSlice(s.ix.Backlinks(target)), nil
}

// Outgoing returns the outgoing links of path in source order.
func (s *Service) Outgoing(_ context.Context, path string) ([]models.Link, error) {
	return nonNilSlice(s.ix.Outgoing(path)), nil
}

// Graph returns the full link graph snapshot for visualization.
func (s *Service) Graph(_ context.Context) (index.GraphSnapshot, error) {
	return s.ix.Graph(), nil
}

func (s *Service) indexContent(path string, data []byte) error {
	meta, err := s.store.Stat(path)
	if err != nil {
		return err
	}
	return index.IndexFile(s.ix, path, data, meta.Size, meta.UpdatedAt)
}

// buildDetail constructs a DocumentDetail from raw data without re-reading
// the file.
func (s *Service) buildDetail(path string, data []byte) (*DocumentDetail, error) {
	res, err := parser.Parse(data)
	if err != nil {
		return nil, err
	}
	return &DocumentDetail{
		Path:        path,
		Title:       res.Title,
		Content:     string(data),
		Fingerprint: checksum.Sum(data),
		Frontmatter: res.Frontmatter,
		Headings:    res.Headings,
		Backlinks:   nonNilSlice(s.ix.Backlinks(path)),
		Outgoing:    nonNilSlice(s.ix.Outgoing(path)),
		UpdatedAt:   time.Now(),
	}, nil
}

func nonNilSlice[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
