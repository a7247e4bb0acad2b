package index

import (
	"time"

	"github.com/starford/ansuz/internal/models"
)

// Source carries the pre-parsed content of one vault entry into the update
// pipeline. It is produced upstream (parser + storage); the pipeline does
// no parsing or file access of its own.
type Source struct {
	Frontmatter     map[string]any
	FrontmatterKeys []string
	Title           string
	Headings        []models.Heading
	Links           []models.RawLink
	Size            int64
	MTime           time.Time
	Fingerprint     string
}

// Upsert applies an add or modify event for path. An upsert with an
// unchanged fingerprint is a guaranteed no-op. A changed fingerprint
// replaces the record atomically: old index entries and outgoing links are
// removed and the new ones applied under one write lock, so no query
// observes a partial update. Indexing a path other documents already link
// to promotes its ghost node transparently.
func (ix *Index) Upsert(path string, src Source) error {
	p, err := NormalizePath(path)
	if err != nil {
		return err
	}
	ix.mu.Lock()
	defer ix.mu.Unlock()
	ix.upsertLocked(p, src)
	return nil
}

// Remove applies a delete event for path. It reports whether a document was
// actually removed; removing an absent path is a no-op, not an error. The
// document's node is demoted to a ghost while other documents still link to
// it, and erased entirely otherwise.
func (ix *Index) Remove(path string) (bool, error) {
	p, err := NormalizePath(path)
	if err != nil {
		return false, err
	}
	ix.mu.Lock()
	defer ix.mu.Unlock()
	return ix.removeLocked(p), nil
}

// Rename applies a rename event: delete under the old path, create under
// the new one, then re-resolve so links that referred to the entry by a
// matching alias follow it. Both paths are normalized up front; a rename
// with an invalid path touches nothing. Links addressing the old path
// literally keep pointing at its ghost until their sources are re-indexed.
func (ix *Index) Rename(oldPath, newPath string, src Source) error {
	from, err := NormalizePath(oldPath)
	if err != nil {
		return err
	}
	to, err := NormalizePath(newPath)
	if err != nil {
		return err
	}
	ix.mu.Lock()
	defer ix.mu.Unlock()
	ix.removeLocked(from)
	ix.upsertLocked(to, src)
	return nil
}

func (ix *Index) upsertLocked(path string, src Source) {
	existing, exists := ix.store.get(path)
	if exists && existing.Fingerprint == src.Fingerprint {
		return
	}

	if !exists && ix.aliases != nil {
		ix.aliases.add(path)
	}

	links := make([]models.Link, 0, len(src.Links))
	for _, raw := range src.Links {
		l := models.Link{Source: path, Raw: raw.Target, Line: raw.Line}
		if target, ok := ix.resolver.Resolve(raw.Target, path); ok {
			l.Target = target
		}
		links = append(links, l)
	}

	doc := &models.Document{
		Path:            path,
		Title:           src.Title,
		Frontmatter:     src.Frontmatter,
		FrontmatterKeys: src.FrontmatterKeys,
		Size:            src.Size,
		MTime:           src.MTime,
		Fingerprint:     src.Fingerprint,
		Headings:        src.Headings,
		Links:           links,
	}

	if exists {
		ix.fields.deindex(existing)
	} else {
		ix.graph.addNode(path)
	}
	ix.store.upsert(doc)
	ix.graph.setLinks(path, links)
	ix.fields.index(doc)

	if !exists {
		// A new path may satisfy resolutions that previously failed or
		// landed on a ghost.
		ix.graph.reresolve(ix.resolver.Resolve)
	}
}

func (ix *Index) removeLocked(path string) bool {
	doc, ok := ix.store.remove(path)
	if !ok {
		return false
	}
	ix.fields.deindex(doc)
	ix.graph.removeLinksFrom(path)
	ix.graph.removeNode(path)
	if ix.aliases != nil {
		ix.aliases.remove(path)
	}
	return true
}
