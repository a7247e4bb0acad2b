package index

import (
	"fmt"
	"strings"
	"time"

	"github.com/starford/ansuz/internal/apperr"
)

// Op is a condition operator.
type Op string

// Condition operators. Only equality is index-accelerated; the others are
// evaluated per candidate document.
const (
	OpEq       Op = "eq"
	OpNe       Op = "ne"
	OpGt       Op = "gt"
	OpGte      Op = "gte"
	OpLt       Op = "lt"
	OpLte      Op = "lte"
	OpContains Op = "contains"
	OpExists   Op = "exists"
)

// Condition is one conjunct of a query. Field carries a namespace prefix:
// fs:path, fs:size, fs:mtime for filesystem metadata, fm:<key> (dotted for
// nesting) for frontmatter, link:backlinks / link:outgoing for relations.
type Condition struct {
	Field string `json:"field"`
	Op    Op     `json:"op"`
	Value any    `json:"value,omitempty"`
}

// SortKey orders results by a fs: or fm: field.
type SortKey struct {
	Field string `json:"field"`
	Desc  bool   `json:"desc,omitempty"`
}

// Query is an immutable conjunction of conditions with optional sort keys,
// projection fields, and a result limit (0 = unlimited). Execution never
// mutates a Query.
type Query struct {
	Conditions []Condition `json:"conditions,omitempty"`
	Sort       []SortKey   `json:"sort,omitempty"`
	Project    []string    `json:"project,omitempty"`
	Limit      int         `json:"limit,omitempty"`
}

type namespace int

const (
	nsFS namespace = iota
	nsFM
	nsLink
)

// fieldRef is a parsed field path. known is false for a syntactically valid
// field that names nothing (e.g. fs:owner); such conditions match nothing
// rather than failing, per the unknown-field rule.
type fieldRef struct {
	ns    namespace
	key   string   // fs subfield, link relation, or first fm key
	path  []string // full fm key path (len > 1 ⇒ nested)
	known bool
}

func (r fieldRef) nested() bool { return r.ns == nsFM && len(r.path) > 1 }

func parseFieldRef(field string) (fieldRef, error) {
	switch {
	case strings.HasPrefix(field, "fs:"):
		key := strings.TrimPrefix(field, "fs:")
		known := key == "path" || key == "size" || key == "mtime"
		return fieldRef{ns: nsFS, key: key, known: known}, nil
	case strings.HasPrefix(field, "fm:"):
		rest := strings.TrimPrefix(field, "fm:")
		if rest == "" {
			return fieldRef{}, fmt.Errorf("index: empty frontmatter key: %w", apperr.ErrInvalidQuery)
		}
		parts := strings.Split(rest, ".")
		return fieldRef{ns: nsFM, key: parts[0], path: parts, known: true}, nil
	case strings.HasPrefix(field, "link:"):
		key := strings.TrimPrefix(field, "link:")
		known := key == "backlinks" || key == "outgoing"
		return fieldRef{ns: nsLink, key: key, known: known}, nil
	default:
		return fieldRef{}, fmt.Errorf("index: field %q has no namespace: %w", field, apperr.ErrInvalidQuery)
	}
}

// validate checks a query without executing anything. A query that fails
// validation leaves the index untouched and returns apperr.ErrInvalidQuery.
func (q Query) validate() error {
	for _, c := range q.Conditions {
		if err := c.validate(); err != nil {
			return err
		}
	}
	for _, s := range q.Sort {
		ref, err := parseFieldRef(s.Field)
		if err != nil {
			return err
		}
		if ref.ns == nsLink {
			return fmt.Errorf("index: cannot sort by %q: %w", s.Field, apperr.ErrInvalidQuery)
		}
	}
	for _, p := range q.Project {
		if _, err := parseFieldRef(p); err != nil {
			return err
		}
	}
	if q.Limit < 0 {
		return fmt.Errorf("index: negative limit: %w", apperr.ErrInvalidQuery)
	}
	return nil
}

func (c Condition) validate() error {
	ref, err := parseFieldRef(c.Field)
	if err != nil {
		return err
	}

	switch c.Op {
	case OpEq, OpNe, OpGt, OpGte, OpLt, OpLte, OpContains:
		if !isScalar(c.Value) {
			return fmt.Errorf("index: %s %s needs a scalar value: %w", c.Field, c.Op, apperr.ErrInvalidQuery)
		}
	case OpExists:
		if c.Value != nil {
			return fmt.Errorf("index: %s exists takes no value: %w", c.Field, apperr.ErrInvalidQuery)
		}
	default:
		return fmt.Errorf("index: unknown operator %q: %w", c.Op, apperr.ErrInvalidQuery)
	}

	if ref.ns == nsLink && ref.known {
		switch c.Op {
		case OpEq, OpContains, OpExists:
		default:
			return fmt.Errorf("index: %s does not support %s: %w", c.Field, c.Op, apperr.ErrInvalidQuery)
		}
	}
	if ref.ns == nsFS && ref.known {
		switch ref.key {
		case "path":
			if c.Op != OpExists {
				if _, ok := c.Value.(string); !ok {
					return fmt.Errorf("index: fs:path needs a string value: %w", apperr.ErrInvalidQuery)
				}
			}
		case "size":
			if c.Op != OpExists {
				if _, ok := toFloat(c.Value); !ok {
					return fmt.Errorf("index: fs:size needs a numeric value: %w", apperr.ErrInvalidQuery)
				}
			}
		case "mtime":
			if c.Op != OpExists {
				if _, ok := toTime(c.Value); !ok {
					return fmt.Errorf("index: fs:mtime needs an RFC 3339 value: %w", apperr.ErrInvalidQuery)
				}
			}
		}
	}
	return nil
}

func isScalar(v any) bool {
	switch v.(type) {
	case string, bool, int, int64, float64, time.Time:
		return true
	default:
		return false
	}
}

func toFloat(v any) (float64, bool) {
	switch x := v.(type) {
	case int:
		return float64(x), true
	case int64:
		return float64(x), true
	case float64:
		return x, true
	default:
		return 0, false
	}
}

func toTime(v any) (time.Time, bool) {
	switch x := v.(type) {
	case time.Time:
		return x, true
	case string:
		if t, err := time.Parse(time.RFC3339, x); err == nil {
			return t, true
		}
		if t, err := time.Parse("2006-01-02", x); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// compareScalars orders two scalar values. Numbers compare numerically,
// times chronologically (RFC 3339 strings coerce), strings and bools
// lexically. Cross-type comparisons report false.
func compareScalars(a, b any) (int, bool) {
	if fa, ok := toFloat(a); ok {
		if fb, ok := toFloat(b); ok {
			switch {
			case fa < fb:
				return -1, true
			case fa > fb:
				return 1, true
			default:
				return 0, true
			}
		}
		return 0, false
	}
	if ta, ok := a.(time.Time); ok {
		if tb, ok := toTime(b); ok {
			return ta.Compare(tb), true
		}
		return 0, false
	}
	if sa, ok := a.(string); ok {
		if tb, ok := b.(time.Time); ok {
			if ta, ok := toTime(sa); ok {
				return ta.Compare(tb), true
			}
			return 0, false
		}
		if sb, ok := b.(string); ok {
			return strings.Compare(sa, sb), true
		}
		return 0, false
	}
	if ba, ok := a.(bool); ok {
		if bb, ok := b.(bool); ok {
			switch {
			case ba == bb:
				return 0, true
			case !ba:
				return -1, true
			default:
				return 1, true
			}
		}
	}
	return 0, false
}

func equalScalars(a, b any) bool {
	c, ok := compareScalars(a, b)
	return ok && c == 0
}

// matchGlob matches s against pattern where '*' spans any characters within
// one path segment and "**" spans across segments.
func matchGlob(pattern, s string) bool {
	for len(pattern) > 0 {
		if pattern[0] != '*' {
			if len(s) == 0 || pattern[0] != s[0] {
				return false
			}
			pattern, s = pattern[1:], s[1:]
			continue
		}
		if strings.HasPrefix(pattern, "**") {
			rest := strings.TrimPrefix(pattern, "**")
			for i := 0; i <= len(s); i++ {
				if matchGlob(rest, s[i:]) {
					return true
				}
			}
			return false
		}
		rest := pattern[1:]
		for i := 0; i <= len(s); i++ {
			if i > 0 && s[i-1] == '/' {
				break
			}
			if matchGlob(rest, s[i:]) {
				return true
			}
		}
		return false
	}
	return len(s) == 0
}

// literalPrefix returns the pattern text before the first wildcard; it is
// what drives the path-prefix index.
func literalPrefix(pattern string) string {
	if i := strings.IndexByte(pattern, '*'); i >= 0 {
		return pattern[:i]
	}
	return pattern
}
