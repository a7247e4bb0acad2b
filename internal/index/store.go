package index

import (
	"iter"

	"github.com/starford/ansuz/internal/models"
)

// docStore owns the canonical per-document records. Records are immutable
// once published: an update replaces the whole *models.Document, so a reader
// holding a pointer keeps a consistent view of the old state.
type docStore struct {
	docs  map[string]*models.Document
	order []string       // insertion order of live paths
	pos   map[string]int // path → position in order
}

func newDocStore() *docStore {
	return &docStore{
		docs: make(map[string]*models.Document),
		pos:  make(map[string]int),
	}
}

// upsert stores doc under its path. When a record with the same fingerprint
// already exists the call is a guaranteed no-op and the existing record is
// returned. prev is the replaced record, if any.
func (s *docStore) upsert(doc *models.Document) (prev *models.Document, changed bool) {
	existing, ok := s.docs[doc.Path]
	if ok && existing.Fingerprint == doc.Fingerprint {
		return existing, false
	}
	if !ok {
		s.pos[doc.Path] = len(s.order)
		s.order = append(s.order, doc.Path)
	}
	s.docs[doc.Path] = doc
	return existing, true
}

// remove deletes the record for path. Removing an absent path is a no-op.
func (s *docStore) remove(path string) (*models.Document, bool) {
	doc, ok := s.docs[path]
	if !ok {
		return nil, false
	}
	delete(s.docs, path)

	at := s.pos[path]
	delete(s.pos, path)
	s.order = append(s.order[:at], s.order[at+1:]...)
	for i := at; i < len(s.order); i++ {
		s.pos[s.order[i]] = i
	}
	return doc, true
}

func (s *docStore) get(path string) (*models.Document, bool) {
	doc, ok := s.docs[path]
	return doc, ok
}

func (s *docStore) has(path string) bool {
	_, ok := s.docs[path]
	return ok
}

func (s *docStore) len() int { return len(s.docs) }

// position returns the insertion rank of path, used as the stable sort
// tie-breaker. Unknown paths sort last.
func (s *docStore) position(path string) int {
	if p, ok := s.pos[path]; ok {
		return p
	}
	return len(s.order)
}

// all iterates the live documents in insertion order. The sequence is
// restartable and finite.
func (s *docStore) all() iter.Seq[*models.Document] {
	return func(yield func(*models.Document) bool) {
		for _, p := range s.order {
			if doc, ok := s.docs[p]; ok {
				if !yield(doc) {
					return
				}
			}
		}
	}
}
