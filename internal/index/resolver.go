package index

import (
	"path"
	"sort"
	"strings"
)

// Resolver turns a raw link target as written in a document into a vault
// path. The second return is false when the target is not path-like at all
// (the edge then stays unresolved). A resolver may return a path that no
// document currently occupies; that is how ghost targets come to exist.
type Resolver interface {
	Resolve(raw, source string) (string, bool)
}

// pathResolver is the default Resolver. It keeps an alias table over the
// indexed paths (full path, extension-less path, basename, basename stem)
// so wikilink shorthand like [[Note]] or [[folder/note]] finds the file,
// and falls back to a normalized candidate path for unknown targets.
type pathResolver struct {
	paths map[string]struct{}
	alias map[string]map[string]struct{} // lowercase alias → candidate paths
}

func newPathResolver() *pathResolver {
	return &pathResolver{
		paths: make(map[string]struct{}),
		alias: make(map[string]map[string]struct{}),
	}
}

func (r *pathResolver) add(p string) {
	r.paths[p] = struct{}{}
	for _, a := range aliasesFor(p) {
		set, ok := r.alias[a]
		if !ok {
			set = make(map[string]struct{})
			r.alias[a] = set
		}
		set[p] = struct{}{}
	}
}

func (r *pathResolver) remove(p string) {
	delete(r.paths, p)
	for _, a := range aliasesFor(p) {
		if set, ok := r.alias[a]; ok {
			delete(set, p)
			if len(set) == 0 {
				delete(r.alias, a)
			}
		}
	}
}

// Resolve maps raw to a vault path. Lookup order: exact path, path with .md
// appended, alias table, source-relative path, then a normalized ghost
// candidate.
func (r *pathResolver) Resolve(raw, source string) (string, bool) {
	cleaned := strings.TrimSpace(strings.ReplaceAll(raw, "\\", "/"))
	if i := strings.Index(cleaned, "#"); i >= 0 {
		cleaned = cleaned[:i]
	}
	cleaned = strings.Trim(cleaned, "/")
	if cleaned == "" || strings.Contains(cleaned, "://") {
		return "", false
	}

	candidate, err := NormalizePath(cleaned)
	if err != nil {
		return "", false
	}

	if _, ok := r.paths[candidate]; ok {
		return candidate, true
	}
	if _, ok := r.paths[candidate+".md"]; ok {
		return candidate + ".md", true
	}
	if hit, ok := r.lookupAlias(candidate); ok {
		return hit, true
	}
	if source != "" {
		joined := path.Join(path.Dir(source), candidate)
		if _, ok := r.paths[joined]; ok {
			return joined, true
		}
		if _, ok := r.paths[joined+".md"]; ok {
			return joined + ".md", true
		}
	}

	// No document matches; commit to a candidate so the graph can hold a
	// ghost entry until one appears.
	if path.Ext(candidate) == "" {
		candidate += ".md"
	}
	return candidate, true
}

// lookupAlias returns the alias hit for key, picking the lexicographically
// first path when several documents share a shorthand.
func (r *pathResolver) lookupAlias(key string) (string, bool) {
	set, ok := r.alias[strings.ToLower(key)]
	if !ok || len(set) == 0 {
		return "", false
	}
	best := ""
	for p := range set {
		if best == "" || p < best {
			best = p
		}
	}
	return best, true
}

func aliasesFor(p string) []string {
	lower := strings.ToLower(p)
	base := path.Base(lower)
	set := map[string]struct{}{lower: {}, base: {}}
	if ext := path.Ext(lower); ext != "" {
		set[strings.TrimSuffix(lower, ext)] = struct{}{}
		set[strings.TrimSuffix(base, ext)] = struct{}{}
	}
	out := make([]string, 0, len(set))
	for a := range set {
		out = append(out, a)
	}
	sort.Strings(out)
	return out
}
