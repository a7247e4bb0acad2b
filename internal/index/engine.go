package index

import (
	"sort"
	"strings"
	"time"

	"github.com/starford/ansuz/internal/models"
)

// Result is one query hit. Doc is the immutable document record; Fields is
// the projected view and is only populated when the query names projection
// fields. Results never alias mutable index state.
type Result struct {
	Path   string           `json:"path"`
	Doc    *models.Document `json:"document,omitempty"`
	Fields map[string]any   `json:"fields,omitempty"`
}

// Execute runs a query against the current index state. The whole execution
// happens under the read lock, so results are consistent with exactly one
// index state; concurrent queries proceed in parallel.
func (ix *Index) Execute(q Query) ([]Result, error) {
	if err := q.validate(); err != nil {
		return nil, err
	}

	ix.mu.RLock()
	defer ix.mu.RUnlock()

	type scanCond struct {
		cond Condition
		ref  fieldRef
	}

	var (
		indexed []pathSet
		scans   []scanCond
	)
	for _, c := range q.Conditions {
		ref, _ := parseFieldRef(c.Field) // already validated
		if !ref.known {
			return []Result{}, nil
		}
		if set, ok := ix.indexedSet(c, ref); ok {
			indexed = append(indexed, set)
			continue
		}
		scans = append(scans, scanCond{cond: c, ref: ref})
	}

	// Candidate gathering: smallest indexed set drives, the rest intersect.
	var candidates []*models.Document
	if len(indexed) > 0 {
		sort.Slice(indexed, func(i, j int) bool { return len(indexed[i]) < len(indexed[j]) })
		driving := indexed[0]
		for _, other := range indexed[1:] {
			for p := range driving {
				if _, ok := other[p]; !ok {
					delete(driving, p)
				}
			}
		}
		paths := make([]string, 0, len(driving))
		for p := range driving {
			paths = append(paths, p)
		}
		sort.Slice(paths, func(i, j int) bool {
			return ix.store.position(paths[i]) < ix.store.position(paths[j])
		})
		for _, p := range paths {
			if doc, ok := ix.store.get(p); ok {
				candidates = append(candidates, doc)
			}
		}
	} else {
		for doc := range ix.store.all() {
			candidates = append(candidates, doc)
		}
	}

	// Scan-only predicates in declaration order, first failure rejects.
	matched := candidates[:0:0]
	for _, doc := range candidates {
		ok := true
		for _, sc := range scans {
			if !ix.evalCondition(doc, sc.cond, sc.ref) {
				ok = false
				break
			}
		}
		if ok {
			matched = append(matched, doc)
		}
	}

	if len(q.Sort) > 0 {
		ix.sortDocs(matched, q.Sort)
	}
	if q.Limit > 0 && len(matched) > q.Limit {
		matched = matched[:q.Limit]
	}

	out := make([]Result, 0, len(matched))
	for _, doc := range matched {
		r := Result{Path: doc.Path, Doc: doc}
		if len(q.Project) > 0 {
			r.Doc = nil
			r.Fields = ix.project(doc, q.Project)
		}
		out = append(out, r)
	}
	return out, nil
}

// indexedSet resolves a condition through the secondary indexes or the link
// graph. ok is false when the condition needs a per-document scan.
func (ix *Index) indexedSet(c Condition, ref fieldRef) (pathSet, bool) {
	switch ref.ns {
	case nsFM:
		if c.Op != OpEq || ref.nested() {
			return nil, false
		}
		return ix.fields.lookupEquals(ref.key, c.Value, ix.store.all()), true

	case nsFS:
		if ref.key != "path" || c.Op != OpEq {
			return nil, false
		}
		pattern, _ := c.Value.(string)
		if !strings.ContainsRune(pattern, '*') {
			set := pathSet{}
			if ix.store.has(pattern) {
				set[pattern] = struct{}{}
			}
			return set, true
		}
		set := pathSet{}
		for _, p := range ix.fields.pathsWithPrefix(literalPrefix(pattern)) {
			if matchGlob(pattern, p) {
				set[p] = struct{}{}
			}
		}
		return set, true

	case nsLink:
		if c.Op != OpEq && c.Op != OpContains {
			return nil, false
		}
		value, _ := c.Value.(string)
		target, err := NormalizePath(value)
		if err != nil {
			return pathSet{}, true
		}
		set := pathSet{}
		switch ref.key {
		case "outgoing":
			// Documents whose outgoing set contains target = the backward
			// adjacency of target.
			for _, source := range ix.graph.backlinks(target) {
				if ix.store.has(source) {
					set[source] = struct{}{}
				}
			}
		case "backlinks":
			// Documents whose backlink set contains value = the resolved
			// forward targets of value.
			for _, l := range ix.graph.outgoing(target) {
				if l.Resolved() && ix.store.has(l.Target) {
					set[l.Target] = struct{}{}
				}
			}
		}
		return set, true
	}
	return nil, false
}

// evalCondition evaluates a scan-only condition against one document.
// Array values match when any element matches; a document lacking the field
// matches nothing but OpExists' negation space (i.e. it simply fails).
func (ix *Index) evalCondition(doc *models.Document, c Condition, ref fieldRef) bool {
	val, present := ix.fieldValue(doc, ref)
	if c.Op == OpExists {
		return present
	}
	if !present {
		return false
	}

	switch c.Op {
	case OpEq:
		return anyElement(val, func(v any) bool { return equalScalars(v, c.Value) })
	case OpNe:
		return !anyElement(val, func(v any) bool { return equalScalars(v, c.Value) })
	case OpGt:
		return anyElement(val, func(v any) bool { cmp, ok := compareScalars(v, c.Value); return ok && cmp > 0 })
	case OpGte:
		return anyElement(val, func(v any) bool { cmp, ok := compareScalars(v, c.Value); return ok && cmp >= 0 })
	case OpLt:
		return anyElement(val, func(v any) bool { cmp, ok := compareScalars(v, c.Value); return ok && cmp < 0 })
	case OpLte:
		return anyElement(val, func(v any) bool { cmp, ok := compareScalars(v, c.Value); return ok && cmp <= 0 })
	case OpContains:
		if s, ok := val.(string); ok {
			sub, _ := c.Value.(string)
			return sub != "" && strings.Contains(s, sub)
		}
		return anyElement(val, func(v any) bool { return equalScalars(v, c.Value) })
	}
	return false
}

// fieldValue resolves a field reference against one document. The read lock
// must be held: link fields consult the graph.
func (ix *Index) fieldValue(doc *models.Document, ref fieldRef) (any, bool) {
	switch ref.ns {
	case nsFS:
		switch ref.key {
		case "path":
			return doc.Path, true
		case "size":
			return doc.Size, true
		case "mtime":
			return doc.MTime, true
		}
		return nil, false

	case nsFM:
		cur, ok := doc.Frontmatter[ref.path[0]]
		if !ok {
			return nil, false
		}
		for _, key := range ref.path[1:] {
			m, isMap := cur.(map[string]any)
			if !isMap {
				return nil, false
			}
			cur, ok = m[key]
			if !ok {
				return nil, false
			}
		}
		return cur, true

	case nsLink:
		switch ref.key {
		case "backlinks":
			bl := ix.graph.backlinks(doc.Path)
			return stringsToAny(bl), len(bl) > 0
		case "outgoing":
			edges := ix.graph.outgoing(doc.Path)
			targets := make([]any, 0, len(edges))
			for _, l := range edges {
				if l.Resolved() {
					targets = append(targets, l.Target)
				} else {
					targets = append(targets, l.Raw)
				}
			}
			return targets, len(targets) > 0
		}
	}
	return nil, false
}

func anyElement(val any, pred func(any) bool) bool {
	switch vs := val.(type) {
	case []any:
		for _, v := range vs {
			if pred(v) {
				return true
			}
		}
		return false
	default:
		return pred(val)
	}
}

func stringsToAny(in []string) []any {
	out := make([]any, len(in))
	for i, s := range in {
		out[i] = s
	}
	return out
}

// sortDocs applies a stable multi-key sort. Missing values order after
// present ones; ties keep insertion order (the incoming slice is already in
// insertion order).
func (ix *Index) sortDocs(docs []*models.Document, keys []SortKey) {
	refs := make([]fieldRef, len(keys))
	for i, k := range keys {
		refs[i], _ = parseFieldRef(k.Field)
	}
	sort.SliceStable(docs, func(i, j int) bool {
		for k, key := range keys {
			va, pa := ix.fieldValue(docs[i], refs[k])
			vb, pb := ix.fieldValue(docs[j], refs[k])
			if !pa && !pb {
				continue
			}
			if !pa {
				return false
			}
			if !pb {
				return true
			}
			cmp, ok := compareScalars(sortScalar(va), sortScalar(vb))
			if !ok || cmp == 0 {
				continue
			}
			if key.Desc {
				return cmp > 0
			}
			return cmp < 0
		}
		return false
	})
}

// sortScalar reduces an array value to its first element for ordering.
func sortScalar(v any) any {
	if vs, ok := v.([]any); ok {
		if len(vs) == 0 {
			return nil
		}
		return vs[0]
	}
	return v
}

// project copies the named fields into a transient view, deep-copying
// container values so callers can never reach the document's own state.
func (ix *Index) project(doc *models.Document, fields []string) map[string]any {
	out := make(map[string]any, len(fields))
	for _, f := range fields {
		ref, err := parseFieldRef(f)
		if err != nil || !ref.known {
			continue
		}
		if v, ok := ix.fieldValue(doc, ref); ok {
			out[f] = cloneValue(v)
		}
	}
	return out
}

func cloneValue(v any) any {
	switch x := v.(type) {
	case []any:
		out := make([]any, len(x))
		for i, el := range x {
			out[i] = cloneValue(el)
		}
		return out
	case map[string]any:
		out := make(map[string]any, len(x))
		for k, el := range x {
			out[k] = cloneValue(el)
		}
		return out
	case time.Time:
		return x
	default:
		return x
	}
}
