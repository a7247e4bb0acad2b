package index

import (
	"errors"
	"testing"

	"github.com/starford/ansuz/internal/apperr"
)

func fixture(t *testing.T) *Index {
	t.Helper()
	ix := New()
	mustUpsert(t, ix, "a.md", src(map[string]any{"status": "active", "prio": 2, "tags": []any{"work", "go"}}, "b.md"))
	mustUpsert(t, ix, "b.md", src(map[string]any{"status": "done", "prio": 1, "meta": map[string]any{"owner": "rune"}}))
	mustUpsert(t, ix, "proj/x.md", src(map[string]any{"status": "active", "prio": 3}, "a.md"))
	mustUpsert(t, ix, "other/y.md", src(map[string]any{"prio": 2}))
	return ix
}

func paths(res []Result) []string {
	out := make([]string, len(res))
	for i, r := range res {
		out[i] = r.Path
	}
	return out
}

func equalPaths(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestExecuteEquality(t *testing.T) {
	ix := fixture(t)
	res, err := ix.Execute(Query{Conditions: []Condition{{Field: "fm:status", Op: OpEq, Value: "active"}}})
	if err != nil {
		t.Fatal(err)
	}
	if got := paths(res); !equalPaths(got, []string{"a.md", "proj/x.md"}) {
		t.Errorf("paths = %v, want [a.md proj/x.md]", got)
	}
}

func TestExecuteEmptyQueryReturnsAllInInsertionOrder(t *testing.T) {
	ix := fixture(t)
	res, err := ix.Execute(Query{})
	if err != nil {
		t.Fatal(err)
	}
	if got := paths(res); !equalPaths(got, []string{"a.md", "b.md", "proj/x.md", "other/y.md"}) {
		t.Errorf("paths = %v, want insertion order", got)
	}
}

func TestExecutePathGlob(t *testing.T) {
	ix := fixture(t)
	res, err := ix.Execute(Query{Conditions: []Condition{{Field: "fs:path", Op: OpEq, Value: "proj/*"}}})
	if err != nil {
		t.Fatal(err)
	}
	if got := paths(res); !equalPaths(got, []string{"proj/x.md"}) {
		t.Errorf("paths = %v, want [proj/x.md]", got)
	}
}

func TestExecuteUnknownFieldMatchesNothing(t *testing.T) {
	ix := fixture(t)
	for _, field := range []string{"fm:never-set", "fs:owner", "link:siblings"} {
		res, err := ix.Execute(Query{Conditions: []Condition{{Field: field, Op: OpEq, Value: "x"}}})
		if err != nil {
			t.Fatalf("%s: unexpected error %v", field, err)
		}
		if len(res) != 0 {
			t.Errorf("%s: matches = %v, want none", field, paths(res))
		}
	}
}

func TestExecuteArrayFrontmatterAnyElement(t *testing.T) {
	ix := fixture(t)
	res, err := ix.Execute(Query{Conditions: []Condition{{Field: "fm:tags", Op: OpEq, Value: "go"}}})
	if err != nil {
		t.Fatal(err)
	}
	if got := paths(res); !equalPaths(got, []string{"a.md"}) {
		t.Errorf("paths = %v, want [a.md]", got)
	}
}

func TestExecuteNestedFrontmatterScan(t *testing.T) {
	ix := fixture(t)
	res, err := ix.Execute(Query{Conditions: []Condition{{Field: "fm:meta.owner", Op: OpEq, Value: "rune"}}})
	if err != nil {
		t.Fatal(err)
	}
	if got := paths(res); !equalPaths(got, []string{"b.md"}) {
		t.Errorf("paths = %v, want [b.md]", got)
	}
}

func TestExecuteInequalityAndRange(t *testing.T) {
	ix := fixture(t)

	res, err := ix.Execute(Query{Conditions: []Condition{{Field: "fm:prio", Op: OpGte, Value: 2}}})
	if err != nil {
		t.Fatal(err)
	}
	if got := paths(res); !equalPaths(got, []string{"a.md", "proj/x.md", "other/y.md"}) {
		t.Errorf("gte paths = %v", got)
	}

	res, err = ix.Execute(Query{Conditions: []Condition{{Field: "fm:status", Op: OpNe, Value: "active"}}})
	if err != nil {
		t.Fatal(err)
	}
	// other/y.md has no status at all: absent fields never match.
	if got := paths(res); !equalPaths(got, []string{"b.md"}) {
		t.Errorf("ne paths = %v, want [b.md]", got)
	}
}

func TestExecuteConjunction(t *testing.T) {
	ix := fixture(t)
	res, err := ix.Execute(Query{Conditions: []Condition{
		{Field: "fm:status", Op: OpEq, Value: "active"},
		{Field: "fm:prio", Op: OpGt, Value: 2},
	}})
	if err != nil {
		t.Fatal(err)
	}
	if got := paths(res); !equalPaths(got, []string{"proj/x.md"}) {
		t.Errorf("paths = %v, want [proj/x.md]", got)
	}
}

func TestExecuteLinkConditions(t *testing.T) {
	ix := fixture(t)

	// Documents linking to b.md.
	res, err := ix.Execute(Query{Conditions: []Condition{{Field: "link:outgoing", Op: OpEq, Value: "b.md"}}})
	if err != nil {
		t.Fatal(err)
	}
	if got := paths(res); !equalPaths(got, []string{"a.md"}) {
		t.Errorf("outgoing paths = %v, want [a.md]", got)
	}

	// Documents with proj/x.md in their backlinks, i.e. targets of proj/x.md.
	res, err = ix.Execute(Query{Conditions: []Condition{{Field: "link:backlinks", Op: OpEq, Value: "proj/x.md"}}})
	if err != nil {
		t.Fatal(err)
	}
	if got := paths(res); !equalPaths(got, []string{"a.md"}) {
		t.Errorf("backlinks paths = %v, want [a.md]", got)
	}
}

func TestExecuteSort(t *testing.T) {
	ix := fixture(t)
	res, err := ix.Execute(Query{Sort: []SortKey{
		{Field: "fm:prio", Desc: true},
		{Field: "fs:path"},
	}})
	if err != nil {
		t.Fatal(err)
	}
	// prio: x=3, a=2, y=2, b=1; tie between a and y broken by path.
	if got := paths(res); !equalPaths(got, []string{"proj/x.md", "a.md", "other/y.md", "b.md"}) {
		t.Errorf("sorted paths = %v", got)
	}
}

func TestExecuteSortMissingValuesLast(t *testing.T) {
	ix := fixture(t)
	res, err := ix.Execute(Query{Sort: []SortKey{{Field: "fm:status"}}})
	if err != nil {
		t.Fatal(err)
	}
	got := paths(res)
	if got[len(got)-1] != "other/y.md" {
		t.Errorf("document without status should sort last, got %v", got)
	}
}

func TestExecuteProjection(t *testing.T) {
	ix := fixture(t)
	res, err := ix.Execute(Query{
		Conditions: []Condition{{Field: "fs:path", Op: OpEq, Value: "a.md"}},
		Project:    []string{"fm:status", "fm:tags", "fs:size"},
	})
	if err != nil {
		t.Fatal(err)
	}
	if len(res) != 1 {
		t.Fatalf("results = %d, want 1", len(res))
	}
	r := res[0]
	if r.Doc != nil {
		t.Error("projected result should not expose the full document")
	}
	if r.Fields["fm:status"] != "active" {
		t.Errorf("fm:status = %v", r.Fields["fm:status"])
	}
	tags, ok := r.Fields["fm:tags"].([]any)
	if !ok || len(tags) != 2 {
		t.Fatalf("fm:tags = %v", r.Fields["fm:tags"])
	}

	// The view is transient: mutating it must not reach the document.
	tags[0] = "mutated"
	doc, _ := ix.Get("a.md")
	if doc.Frontmatter["tags"].([]any)[0] != "work" {
		t.Error("projection aliased the document's frontmatter")
	}
}

func TestExecuteLimit(t *testing.T) {
	ix := fixture(t)
	res, err := ix.Execute(Query{Limit: 2})
	if err != nil {
		t.Fatal(err)
	}
	if got := paths(res); !equalPaths(got, []string{"a.md", "b.md"}) {
		t.Errorf("limited paths = %v", got)
	}
}

func TestExecuteInvalidQuery(t *testing.T) {
	ix := fixture(t)
	bad := []Query{
		{Conditions: []Condition{{Field: "status", Op: OpEq, Value: "x"}}},           // no namespace
		{Conditions: []Condition{{Field: "fm:status", Op: "like", Value: "x"}}},      // unknown operator
		{Conditions: []Condition{{Field: "fm:status", Op: OpEq, Value: []any{"x"}}}}, // non-scalar value
		{Conditions: []Condition{{Field: "fs:size", Op: OpGt, Value: "big"}}},        // non-numeric size
		{Conditions: []Condition{{Field: "link:outgoing", Op: OpGt, Value: "a.md"}}}, // ordering on a link set
		{Sort: []SortKey{{Field: "link:backlinks"}}},                                 // link sort
		{Limit: -1},
	}
	for i, q := range bad {
		if _, err := ix.Execute(q); !errors.Is(err, apperr.ErrInvalidQuery) {
			t.Errorf("case %d: err = %v, want ErrInvalidQuery", i, err)
		}
	}
}

func TestExecuteFSConditions(t *testing.T) {
	ix := fixture(t)

	res, err := ix.Execute(Query{Conditions: []Condition{{Field: "fs:size", Op: OpEq, Value: 42}}})
	if err != nil {
		t.Fatal(err)
	}
	if len(res) != 4 {
		t.Errorf("fs:size eq 42 matched %d, want 4", len(res))
	}

	res, err = ix.Execute(Query{Conditions: []Condition{{Field: "fs:mtime", Op: OpGte, Value: "2025-01-01"}}})
	if err != nil {
		t.Fatal(err)
	}
	if len(res) != 4 {
		t.Errorf("fs:mtime gte matched %d, want 4", len(res))
	}

	res, err = ix.Execute(Query{Conditions: []Condition{{Field: "fs:path", Op: OpContains, Value: "/"}}})
	if err != nil {
		t.Fatal(err)
	}
	if got := paths(res); !equalPaths(got, []string{"proj/x.md", "other/y.md"}) {
		t.Errorf("contains paths = %v", got)
	}
}

func TestExecuteExists(t *testing.T) {
	ix := fixture(t)
	res, err := ix.Execute(Query{Conditions: []Condition{{Field: "fm:status", Op: OpExists}}})
	if err != nil {
		t.Fatal(err)
	}
	if got := paths(res); !equalPaths(got, []string{"a.md", "b.md", "proj/x.md"}) {
		t.Errorf("exists paths = %v", got)
	}
}

func TestMatchGlob(t *testing.T) {
	cases := []struct {
		pattern, s string
		want       bool
	}{
		{"proj/*", "proj/x.md", true},
		{"proj/*", "proj/sub/x.md", false},
		{"proj/**", "proj/sub/x.md", true},
		{"*.md", "a.md", true},
		{"*.md", "proj/x.md", false},
		{"**/x.md", "proj/sub/x.md", true},
		{"a.md", "a.md", true},
		{"a.md", "b.md", false},
		{"*", "a.md", true},
		{"*", "proj/x.md", false},
	}
	for _, c := range cases {
		if got := matchGlob(c.pattern, c.s); got != c.want {
			t.Errorf("matchGlob(%q, %q) = %v, want %v", c.pattern, c.s, got, c.want)
		}
	}
}
