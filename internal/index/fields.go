package index

import (
	"iter"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/starford/ansuz/internal/models"
)

type pathSet map[string]struct{}

func (s pathSet) clone() pathSet {
	out := make(pathSet, len(s))
	for p := range s {
		out[p] = struct{}{}
	}
	return out
}

// fieldIndexes holds the secondary indexes: one inverted index per queried
// frontmatter field and a sorted path slice for prefix lookups. Inverted
// indexes are built lazily on the first lookup against a field and kept
// up to date incrementally afterwards. They are an optimization only; a
// full scan over the store gives the same answers.
//
// The struct carries its own mutex because lazy builds mutate state during
// reads; the critical sections only touch maps, never evaluate predicates.
type fieldIndexes struct {
	mu    sync.Mutex
	built map[string]map[string]pathSet // field → value key → paths
	paths []string                      // sorted live paths
}

func newFieldIndexes() *fieldIndexes {
	return &fieldIndexes{built: make(map[string]map[string]pathSet)}
}

// index registers doc in the path range and in every already-built field
// index.
func (f *fieldIndexes) index(doc *models.Document) {
	f.mu.Lock()
	defer f.mu.Unlock()

	at := sort.SearchStrings(f.paths, doc.Path)
	if at == len(f.paths) || f.paths[at] != doc.Path {
		f.paths = append(f.paths, "")
		copy(f.paths[at+1:], f.paths[at:])
		f.paths[at] = doc.Path
	}

	for field, inv := range f.built {
		for _, key := range valueKeysOf(doc.Frontmatter[field]) {
			set, ok := inv[key]
			if !ok {
				set = make(pathSet)
				inv[key] = set
			}
			set[doc.Path] = struct{}{}
		}
	}
}

// deindex removes every entry of doc. The previous record must be supplied
// so its old frontmatter values can be unmapped.
func (f *fieldIndexes) deindex(doc *models.Document) {
	f.mu.Lock()
	defer f.mu.Unlock()

	at := sort.SearchStrings(f.paths, doc.Path)
	if at < len(f.paths) && f.paths[at] == doc.Path {
		f.paths = append(f.paths[:at], f.paths[at+1:]...)
	}

	for field, inv := range f.built {
		for _, key := range valueKeysOf(doc.Frontmatter[field]) {
			if set, ok := inv[key]; ok {
				delete(set, doc.Path)
				if len(set) == 0 {
					delete(inv, key)
				}
			}
		}
	}
}

// lookupEquals returns the paths whose top-level frontmatter field equals
// value. docs feeds the lazy build on first use of a field. The returned
// set is a copy the caller may mutate.
func (f *fieldIndexes) lookupEquals(field string, value any, docs iter.Seq[*models.Document]) pathSet {
	key, ok := valueKey(value)
	if !ok {
		return nil
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	inv, ok := f.built[field]
	if !ok {
		inv = make(map[string]pathSet)
		for doc := range docs {
			for _, k := range valueKeysOf(doc.Frontmatter[field]) {
				set, ok := inv[k]
				if !ok {
					set = make(pathSet)
					inv[k] = set
				}
				set[doc.Path] = struct{}{}
			}
		}
		f.built[field] = inv
	}

	set, ok := inv[key]
	if !ok {
		return pathSet{}
	}
	return set.clone()
}

// pathsWithPrefix returns the live paths starting with prefix, using the
// sorted range. Cost is O(matches + log n).
func (f *fieldIndexes) pathsWithPrefix(prefix string) []string {
	f.mu.Lock()
	defer f.mu.Unlock()

	from := sort.SearchStrings(f.paths, prefix)
	var out []string
	for i := from; i < len(f.paths); i++ {
		if !strings.HasPrefix(f.paths[i], prefix) {
			break
		}
		out = append(out, f.paths[i])
	}
	return out
}

// valueKey canonicalizes a scalar into an index key. Keys are type-tagged
// so e.g. the string "true" and the boolean true never collide. Numbers
// share one numeric space: 3 and 3.0 index identically.
func valueKey(v any) (string, bool) {
	switch x := v.(type) {
	case string:
		return "s:" + x, true
	case bool:
		return "b:" + strconv.FormatBool(x), true
	case int:
		return numKey(float64(x)), true
	case int64:
		return numKey(float64(x)), true
	case float64:
		return numKey(x), true
	case time.Time:
		return "t:" + x.UTC().Format(time.RFC3339Nano), true
	case nil:
		return "", false
	default:
		return "", false
	}
}

func numKey(f float64) string {
	return "n:" + strconv.FormatFloat(f, 'g', -1, 64)
}

// valueKeysOf expands a frontmatter value into its index keys: scalars give
// one key, arrays one per scalar element, everything else none.
func valueKeysOf(v any) []string {
	switch x := v.(type) {
	case []any:
		var out []string
		seen := make(map[string]struct{}, len(x))
		for _, el := range x {
			if key, ok := valueKey(el); ok {
				if _, dup := seen[key]; !dup {
					seen[key] = struct{}{}
					out = append(out, key)
				}
			}
		}
		return out
	default:
		if key, ok := valueKey(v); ok {
			return []string{key}
		}
		return nil
	}
}
