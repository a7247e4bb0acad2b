// Package parser extracts frontmatter, links, and headings from Markdown
// content. It is the upstream collaborator of the index: all parsing happens
// here, the index only receives the already-computed values.
package parser

import (
	"bytes"
	"regexp"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	gmtext "github.com/yuin/goldmark/text"
	"gopkg.in/yaml.v3"

	"github.com/starford/ansuz/internal/models"
)

var (
	wikilinkRe = regexp.MustCompile(`\[\[(.*?)\]\]`)
	mdLinkRe   = regexp.MustCompile(`\[[^\]]*\]\(([^)]+)\)`)
)

// Result holds the output of parsing a Markdown file.
type Result struct {
	Frontmatter     map[string]any
	FrontmatterKeys []string // key order as written in the source
	Body            string
	Headings        []models.Heading
	Links           []models.RawLink
	Title           string
}

var md = goldmark.New()

// Parse extracts frontmatter, body, links, and headings from raw Markdown
// bytes. Invalid YAML frontmatter is tolerated: the whole content becomes
// the body.
func Parse(data []byte) (*Result, error) {
	fm, keys, body, bodyLine := splitFrontmatter(data)

	res := &Result{
		Frontmatter:     fm,
		FrontmatterKeys: keys,
		Body:            body,
		Links:           extractLinks(body, bodyLine),
		Headings:        extractHeadings(body, bodyLine),
	}
	res.Title = deriveTitle(fm, res.Headings)
	return res, nil
}

// splitFrontmatter separates YAML frontmatter (between leading --- delimiters)
// from the Markdown body. bodyLine is the 1-based line the body starts on in
// the original file.
func splitFrontmatter(data []byte) (map[string]any, []string, string, int) {
	const delim = "---"
	trimmed := bytes.TrimLeft(data, "\n\r")
	leading := countLines(data[:len(data)-len(trimmed)])

	if !bytes.HasPrefix(trimmed, []byte(delim)) {
		return nil, nil, string(data), 1
	}

	rest := trimmed[len(delim):]
	idx := bytes.Index(rest, []byte("\n"+delim))
	if idx < 0 {
		// No closing delimiter, treat everything as body.
		return nil, nil, string(data), 1
	}

	yamlBlock := rest[:idx]
	afterDelim := rest[idx+1+len(delim):]
	if nl := bytes.IndexByte(afterDelim, '\n'); nl >= 0 {
		afterDelim = afterDelim[nl+1:]
	} else {
		afterDelim = nil
	}
	body := string(afterDelim)

	fm, keys, err := decodeFrontmatter(yamlBlock)
	if err != nil {
		return nil, nil, string(data), 1
	}

	// opening ---, yaml lines, closing ---.
	bodyLine := leading + 1 + countLines(yamlBlock) + 1 + 1
	return fm, keys, body, bodyLine
}

// decodeFrontmatter unmarshals the YAML mapping while preserving the key
// order the author wrote.
func decodeFrontmatter(block []byte) (map[string]any, []string, error) {
	var root yaml.Node
	if err := yaml.Unmarshal(block, &root); err != nil {
		return nil, nil, err
	}
	if root.Kind != yaml.DocumentNode || len(root.Content) == 0 {
		return nil, nil, nil
	}
	mapping := root.Content[0]
	if mapping.Kind != yaml.MappingNode {
		return nil, nil, nil
	}

	fm := make(map[string]any, len(mapping.Content)/2)
	keys := make([]string, 0, len(mapping.Content)/2)
	for i := 0; i+1 < len(mapping.Content); i += 2 {
		key := mapping.Content[i].Value
		var value any
		if err := mapping.Content[i+1].Decode(&value); err != nil {
			return nil, nil, err
		}
		if _, dup := fm[key]; dup {
			continue
		}
		fm[key] = value
		keys = append(keys, key)
	}
	return fm, keys, nil
}

// extractLinks returns wikilink and inline Markdown link targets with their
// line numbers. Aliases ([[Target|Alias]]) are normalised to the target;
// external URLs are skipped.
func extractLinks(body string, bodyLine int) []models.RawLink {
	var out []models.RawLink
	seen := make(map[string]struct{})

	add := func(target string, line int) {
		target = strings.TrimSpace(target)
		if i := strings.Index(target, "|"); i >= 0 {
			target = strings.TrimSpace(target[:i])
		}
		if i := strings.Index(target, "#"); i >= 0 {
			target = strings.TrimSpace(target[:i])
		}
		if target == "" || strings.Contains(target, "://") || strings.HasPrefix(target, "mailto:") {
			return
		}
		if _, dup := seen[target]; dup {
			return
		}
		seen[target] = struct{}{}
		out = append(out, models.RawLink{Target: target, Line: line})
	}

	for i, line := range strings.Split(body, "\n") {
		n := bodyLine + i
		for _, m := range wikilinkRe.FindAllStringSubmatch(line, -1) {
			add(m[1], n)
		}
		for _, m := range mdLinkRe.FindAllStringSubmatch(line, -1) {
			add(m[1], n)
		}
	}
	return out
}

// extractHeadings walks the goldmark AST and returns every heading with its
// level and line number in the original file.
func extractHeadings(body string, bodyLine int) []models.Heading {
	source := []byte(body)
	doc := md.Parser().Parse(gmtext.NewReader(source))

	var out []models.Heading
	_ = ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering || n.Kind() != ast.KindHeading {
			return ast.WalkContinue, nil
		}
		h := n.(*ast.Heading)
		var offset = -1
		if lines := h.Lines(); lines.Len() > 0 {
			offset = lines.At(0).Start
		}
		line := bodyLine
		if offset >= 0 {
			line = bodyLine + countLines(source[:offset])
		}
		out = append(out, models.Heading{
			Level: h.Level,
			Text:  string(headingText(h, source)),
			Line:  line,
		})
		return ast.WalkContinue, nil
	})
	return out
}

func headingText(h *ast.Heading, source []byte) []byte {
	var buf bytes.Buffer
	for c := h.FirstChild(); c != nil; c = c.NextSibling() {
		if t, ok := c.(*ast.Text); ok {
			buf.Write(t.Segment.Value(source))
		} else {
			_ = ast.Walk(c, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
				if entering {
					if t, ok := n.(*ast.Text); ok {
						buf.Write(t.Segment.Value(source))
					}
				}
				return ast.WalkContinue, nil
			})
		}
	}
	return buf.Bytes()
}

// deriveTitle returns the frontmatter "title" if present, otherwise the
// first H1 heading, otherwise empty string.
func deriveTitle(fm map[string]any, headings []models.Heading) string {
	if fm != nil {
		if t, ok := fm["title"]; ok {
			if s, ok := t.(string); ok && s != "" {
				return s
			}
		}
	}
	for _, h := range headings {
		if h.Level == 1 {
			return h.Text
		}
	}
	return ""
}

func countLines(b []byte) int {
	return bytes.Count(b, []byte("\n"))
}
