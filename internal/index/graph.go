package index

import (
	"sort"

	"github.com/starford/ansuz/internal/models"
)

// linkGraph holds the forward/backward link adjacency for the vault. It is
// keyed by normalized path only, with no ownership references between records,
// so cycles and self-links need no special handling.
//
// A ghost is a target path that appears in the backward adjacency without a
// corresponding node. Ghost entries are garbage collected as soon as the
// last referencing link disappears.
type linkGraph struct {
	nodes    map[string]struct{}            // paths present in the document store
	forward  map[string][]models.Link       // source → outgoing edges, source order
	backward map[string]map[string]struct{} // resolved target → set of sources
	pending  map[string]map[string]struct{} // unresolved raw target → set of sources
}

func newLinkGraph() *linkGraph {
	return &linkGraph{
		nodes:    make(map[string]struct{}),
		forward:  make(map[string][]models.Link),
		backward: make(map[string]map[string]struct{}),
		pending:  make(map[string]map[string]struct{}),
	}
}

func (g *linkGraph) addNode(path string) {
	g.nodes[path] = struct{}{}
}

// removeNode forgets the document at path. Its backward entry survives as a
// ghost while other documents still link to it.
func (g *linkGraph) removeNode(path string) {
	delete(g.nodes, path)
	g.gcTarget(path)
}

// setLinks replaces every outgoing edge of source with the given entries.
func (g *linkGraph) setLinks(source string, links []models.Link) {
	g.removeLinksFrom(source)
	if len(links) == 0 {
		return
	}
	edges := make([]models.Link, len(links))
	copy(edges, links)
	g.forward[source] = edges
	for _, l := range edges {
		if l.Resolved() {
			g.addBackward(l.Target, source)
		} else {
			g.addPending(l.Raw, source)
		}
	}
}

// removeLinksFrom drops all outgoing edges of source and prunes any target
// whose only referencing source was it.
func (g *linkGraph) removeLinksFrom(source string) {
	edges, ok := g.forward[source]
	if !ok {
		return
	}
	delete(g.forward, source)
	for _, l := range edges {
		if l.Resolved() {
			if set, ok := g.backward[l.Target]; ok {
				delete(set, source)
				g.gcTarget(l.Target)
			}
		} else if set, ok := g.pending[l.Raw]; ok {
			delete(set, source)
			if len(set) == 0 {
				delete(g.pending, l.Raw)
			}
		}
	}
}

// backlinks returns the sorted source paths of every resolved edge into path.
func (g *linkGraph) backlinks(path string) []string {
	set, ok := g.backward[path]
	if !ok || len(set) == 0 {
		return nil
	}
	out := make([]string, 0, len(set))
	for s := range set {
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}

// outgoing returns a copy of the outgoing edges of path in source order.
func (g *linkGraph) outgoing(path string) []models.Link {
	edges, ok := g.forward[path]
	if !ok {
		return nil
	}
	out := make([]models.Link, len(edges))
	copy(out, edges)
	return out
}

// isGhost reports whether path is referenced by at least one link but has
// no document behind it.
func (g *linkGraph) isGhost(path string) bool {
	if _, ok := g.nodes[path]; ok {
		return false
	}
	set, ok := g.backward[path]
	return ok && len(set) > 0
}

// ghosts returns every ghost target, sorted.
func (g *linkGraph) ghosts() []string {
	var out []string
	for target, set := range g.backward {
		if len(set) == 0 {
			continue
		}
		if _, ok := g.nodes[target]; !ok {
			out = append(out, target)
		}
	}
	sort.Strings(out)
	return out
}

// reresolve retries resolution for every unresolved edge and for every edge
// currently pointing at a ghost. The pipeline calls it after an upsert so a
// freshly indexed path promotes transparently.
func (g *linkGraph) reresolve(resolve func(raw, source string) (string, bool)) {
	// Unresolved raw targets first.
	type pendingEdge struct{ raw, source string }
	var retry []pendingEdge
	for raw, sources := range g.pending {
		for source := range sources {
			retry = append(retry, pendingEdge{raw, source})
		}
	}
	for _, e := range retry {
		target, ok := resolve(e.raw, e.source)
		if !ok {
			continue
		}
		g.retarget(e.source, e.raw, "", target)
	}

	// Edges pointing at ghosts may resolve elsewhere now (e.g. a stem alias
	// that gained a real file).
	type ghostEdge struct{ target, source string }
	var ghostRetry []ghostEdge
	for target, sources := range g.backward {
		if _, ok := g.nodes[target]; ok {
			continue
		}
		for source := range sources {
			ghostRetry = append(ghostRetry, ghostEdge{target, source})
		}
	}
	for _, e := range ghostRetry {
		for _, l := range g.forward[e.source] {
			if l.Target != e.target {
				continue
			}
			next, ok := resolve(l.Raw, e.source)
			if ok && next != e.target {
				g.retarget(e.source, l.Raw, e.target, next)
			}
		}
	}
}

// retarget moves the edges of source identified by (raw, oldTarget) to
// newTarget, updating both adjacency directions.
func (g *linkGraph) retarget(source, raw, oldTarget, newTarget string) {
	edges := g.forward[source]
	moved := false
	for i := range edges {
		if edges[i].Raw != raw || edges[i].Target != oldTarget {
			continue
		}
		edges[i].Target = newTarget
		moved = true
	}
	if !moved {
		return
	}
	if oldTarget == "" {
		if set, ok := g.pending[raw]; ok {
			delete(set, source)
			if len(set) == 0 {
				delete(g.pending, raw)
			}
		}
	} else if set, ok := g.backward[oldTarget]; ok {
		delete(set, source)
		g.gcTarget(oldTarget)
	}
	g.addBackward(newTarget, source)
}

func (g *linkGraph) addBackward(target, source string) {
	set, ok := g.backward[target]
	if !ok {
		set = make(map[string]struct{})
		g.backward[target] = set
	}
	set[source] = struct{}{}
}

func (g *linkGraph) addPending(raw, source string) {
	set, ok := g.pending[raw]
	if !ok {
		set = make(map[string]struct{})
		g.pending[raw] = set
	}
	set[source] = struct{}{}
}

// gcTarget deletes the backward entry for target once its source set is
// empty. An empty set and a missing entry are equivalent; dropping the map
// entry is what erases a dangling ghost.
func (g *linkGraph) gcTarget(target string) {
	if set, ok := g.backward[target]; ok && len(set) == 0 {
		delete(g.backward, target)
	}
}
