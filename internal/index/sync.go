package index

import (
	"log/slog"
	"time"

	"github.com/starford/ansuz/internal/checksum"
	"github.com/starford/ansuz/internal/parser"
	"github.com/starford/ansuz/internal/storage"
)

// Sync walks the vault and brings the index up to date:
//   - new/changed files are parsed and upserted
//   - files removed from disk are removed from the index
//
// Every file is one pipeline transition, so queries running concurrently
// with a sync always see a consistent index.
func Sync(ix VaultIndex, store storage.Provider, logger *slog.Logger) error {
	metas, err := store.List("")
	if err != nil {
		return err
	}

	fingerprints := ix.AllFingerprints()

	disk := make(map[string]struct{}, len(metas))
	for _, m := range metas {
		disk[m.Path] = struct{}{}

		if fingerprints[m.Path] == m.Fingerprint {
			continue
		}

		data, err := store.Read(m.Path)
		if err != nil {
			logger.Warn("sync: read failed", slog.String("path", m.Path), slog.String("error", err.Error()))
			continue
		}
		if err := IndexFile(ix, m.Path, data, m.Size, m.UpdatedAt); err != nil {
			logger.Warn("sync: index failed", slog.String("path", m.Path), slog.String("error", err.Error()))
		} else {
			logger.Debug("sync: indexed", slog.String("path", m.Path))
		}
	}

	// Remove stale entries.
	for p := range fingerprints {
		if _, ok := disk[p]; !ok {
			if _, err := ix.Remove(p); err != nil {
				logger.Warn("sync: remove failed", slog.String("path", p), slog.String("error", err.Error()))
			} else {
				logger.Debug("sync: removed stale", slog.String("path", p))
			}
		}
	}

	return nil
}

// IndexFile parses data and upserts it through the pipeline. Exported so
// the watcher and the document service reuse the same path into the index.
func IndexFile(ix VaultIndex, path string, data []byte, size int64, mtime time.Time) error {
	res, err := parser.Parse(data)
	if err != nil {
		return err
	}
	return ix.Upsert(path, SourceFromParse(res, data, size, mtime))
}

// SourceFromParse assembles the pipeline input from a parse result.
func SourceFromParse(res *parser.Result, data []byte, size int64, mtime time.Time) Source {
	if size == 0 {
		size = int64(len(data))
	}
	return Source{
		Frontmatter:     res.Frontmatter,
		FrontmatterKeys: res.FrontmatterKeys,
		Title:           res.Title,
		Headings:        res.Headings,
		Links:           res.Links,
		Size:            size,
		MTime:           mtime,
		Fingerprint:     checksum.Sum(data),
	}
}
