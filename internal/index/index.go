// Package index implements the in-memory vault index: the document store,
// the link graph, the secondary indexes, the query engine, and the update
// pipeline that keeps them consistent.
//
// Concurrency model: single writer, many readers. Every update-pipeline
// transition runs under the write lock and leaves all invariants intact, so
// a query, which runs entirely under the read lock, observes either the
// state before or after any one mutation, never a mix. Nothing in this
// package performs I/O; parsing and file access happen upstream.
package index

import (
	"sync"

	"github.com/starford/ansuz/internal/models"
)

// VaultIndex defines the interface for vault indexing operations. Consumers
// should depend on this interface rather than the concrete *Index type to
// facilitate testing with fakes.
type VaultIndex interface {
	Upsert(path string, src Source) error
	Remove(path string) (bool, error)
	Rename(oldPath, newPath string, src Source) error

	Execute(q Query) ([]Result, error)
	Get(path string) (*models.Document, bool)
	Documents() []*models.Document
	Len() int
	Fingerprint(path string) string
	AllFingerprints() map[string]string

	Backlinks(path string) []string
	Outgoing(path string) []models.Link
	IsGhost(path string) bool
	Graph() GraphSnapshot
}

// Verify *Index satisfies VaultIndex at compile time.
var _ VaultIndex = (*Index)(nil)

// Index is the in-memory vault index.
type Index struct {
	mu       sync.RWMutex
	store    *docStore
	graph    *linkGraph
	fields   *fieldIndexes
	resolver Resolver
	aliases  *pathResolver // non-nil when the default resolver is in use
}

// Option configures an Index.
type Option func(*Index)

// WithResolver installs a custom link resolver. Without it the index uses
// its built-in alias-table resolver.
func WithResolver(r Resolver) Option {
	return func(ix *Index) {
		ix.resolver = r
		ix.aliases = nil
	}
}

// New creates an empty index.
func New(opts ...Option) *Index {
	aliases := newPathResolver()
	ix := &Index{
		store:    newDocStore(),
		graph:    newLinkGraph(),
		fields:   newFieldIndexes(),
		resolver: aliases,
		aliases:  aliases,
	}
	for _, opt := range opts {
		opt(ix)
	}
	return ix
}

// Get returns the document record for path, if indexed.
func (ix *Index) Get(path string) (*models.Document, bool) {
	p, err := NormalizePath(path)
	if err != nil {
		return nil, false
	}
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return ix.store.get(p)
}

// Documents returns the indexed documents in insertion order. The records
// are immutable; the slice is the caller's.
func (ix *Index) Documents() []*models.Document {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	out := make([]*models.Document, 0, ix.store.len())
	for doc := range ix.store.all() {
		out = append(out, doc)
	}
	return out
}

// Len returns the number of indexed documents.
func (ix *Index) Len() int {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return ix.store.len()
}

// Fingerprint returns the stored fingerprint for path, or empty string if
// the path is not indexed.
func (ix *Index) Fingerprint(path string) string {
	if doc, ok := ix.Get(path); ok {
		return doc.Fingerprint
	}
	return ""
}

// AllFingerprints returns path → fingerprint for every indexed document.
func (ix *Index) AllFingerprints() map[string]string {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	out := make(map[string]string, ix.store.len())
	for doc := range ix.store.all() {
		out[doc.Path] = doc.Fingerprint
	}
	return out
}

// Backlinks returns the sorted paths of documents linking to path.
func (ix *Index) Backlinks(path string) []string {
	p, err := NormalizePath(path)
	if err != nil {
		return nil
	}
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return ix.graph.backlinks(p)
}

// Outgoing returns the outgoing link entries of path in source order.
func (ix *Index) Outgoing(path string) []models.Link {
	p, err := NormalizePath(path)
	if err != nil {
		return nil
	}
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return ix.graph.outgoing(p)
}

// IsGhost reports whether path is referenced by links without being indexed.
func (ix *Index) IsGhost(path string) bool {
	p, err := NormalizePath(path)
	if err != nil {
		return false
	}
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return ix.graph.isGhost(p)
}

// GraphNode is one node in a graph snapshot.
type GraphNode struct {
	ID    string `json:"id"`
	Title string `json:"title,omitempty"`
	Ghost bool   `json:"ghost,omitempty"`
}

// GraphEdge is one resolved edge in a graph snapshot.
type GraphEdge struct {
	Source string `json:"source"`
	Target string `json:"target"`
}

// GraphSnapshot is a point-in-time copy of the link graph for callers
// building visualizations or integrity checks.
type GraphSnapshot struct {
	Nodes []GraphNode `json:"nodes"`
	Links []GraphEdge `json:"links"`
}

// Graph returns a snapshot of every document node, ghost node, and resolved
// edge.
func (ix *Index) Graph() GraphSnapshot {
	ix.mu.RLock()
	defer ix.mu.RUnlock()

	var snap GraphSnapshot
	for doc := range ix.store.all() {
		snap.Nodes = append(snap.Nodes, GraphNode{ID: doc.Path, Title: doc.Title})
	}
	for _, ghost := range ix.graph.ghosts() {
		snap.Nodes = append(snap.Nodes, GraphNode{ID: ghost, Ghost: true})
	}
	for doc := range ix.store.all() {
		for _, l := range ix.graph.outgoing(doc.Path) {
			if l.Resolved() {
				snap.Links = append(snap.Links, GraphEdge{Source: l.Source, Target: l.Target})
			}
		}
	}
	return snap
}
