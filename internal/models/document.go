// Package models defines the domain types for Ansuz.
package models

import "time"

// Document represents one indexed vault entry. A Document value published
// by the index is immutable; updates replace the whole record.
type Document struct {
	Path            string         `json:"path"`
	Title           string         `json:"title,omitempty"`
	Frontmatter     map[string]any `json:"frontmatter,omitempty"`
	FrontmatterKeys []string       `json:"-"`
	Size            int64          `json:"size"`
	MTime           time.Time      `json:"mtime"`
	Fingerprint     string         `json:"fingerprint"`
	Headings        []Heading      `json:"headings,omitempty"`
	Links           []Link         `json:"links,omitempty"`
}

// Heading is one heading within a document, ordered by position.
type Heading struct {
	Level int    `json:"level"` // 1..6
	Text  string `json:"text"`
	Line  int    `json:"line"` // 1-based
}

// Link is a directed edge extracted from a document body.
// Target is the resolved vault path, or empty while unresolved.
type Link struct {
	Source string `json:"source"`
	Raw    string `json:"raw"`
	Target string `json:"target,omitempty"`
	Line   int    `json:"line"`
}

// Resolved reports whether the link points at a known vault path.
func (l Link) Resolved() bool { return l.Target != "" }

// RawLink is an outgoing link target as written in the source, before any
// resolution against the vault.
type RawLink struct {
	Target string `json:"target"`
	Line   int    `json:"line"`
}

// DocumentMetadata is a lightweight representation returned by list operations.
type DocumentMetadata struct {
	Path        string    `json:"path"`
	Fingerprint string    `json:"fingerprint"`
	Size        int64     `json:"size"`
	UpdatedAt   time.Time `json:"updated_at"`
}
