package mcpserver

// QueryFormatContract describes the structured query format that LLM
// consumers must follow when calling query_vault.
const QueryFormatContract = `# Ansuz Query Format Contract

A query is a JSON object. All top-level keys are optional; an empty object
matches every document.

## Structure

` + "```" + `json
{
  "conditions": [
    {"field": "fm:status", "op": "eq", "value": "active"},
    {"field": "fs:path", "op": "eq", "value": "projects/*"}
  ],
  "sort": [
    {"field": "fm:priority", "desc": true},
    {"field": "fs:path"}
  ],
  "project": ["fs:path", "fm:title"],
  "limit": 20
}
` + "```" + `

## Field namespaces

Every field name carries a namespace prefix:

- ` + "`" + `fs:path` + "`" + `, ` + "`" + `fs:size` + "`" + `, ` + "`" + `fs:mtime` + "`" + `: file metadata.
  ` + "`" + `fs:path` + "`" + ` equality supports globs: ` + "`" + `*` + "`" + ` matches within one path
  segment, ` + "`" + `**` + "`" + ` across segments.
- ` + "`" + `fm:<key>` + "`" + `: frontmatter. Dotted keys reach into nested maps
  (` + "`" + `fm:meta.owner` + "`" + `). Array values match when any element matches.
- ` + "`" + `link:backlinks` + "`" + `, ` + "`" + `link:outgoing` + "`" + `: link relations.
  Only ` + "`" + `eq` + "`" + `, ` + "`" + `contains` + "`" + `, and ` + "`" + `exists` + "`" + ` apply.

## Operators

` + "`" + `eq` + "`" + `, ` + "`" + `ne` + "`" + `, ` + "`" + `gt` + "`" + `, ` + "`" + `gte` + "`" + `, ` + "`" + `lt` + "`" + `, ` + "`" + `lte` + "`" + `, ` + "`" + `contains` + "`" + `, ` + "`" + `exists` + "`" + `.
Values must be scalars (string, number, bool, RFC 3339 timestamp).
` + "`" + `exists` + "`" + ` takes no value.

## Rules

1. Conditions combine with AND.
2. A field without a namespace prefix is rejected as invalid.
3. A well-formed field that names nothing (e.g. a frontmatter key no document
   has) matches nothing; it is not an error.
4. Documents missing a sort field order after documents that have it.
5. Without sort keys, results keep the index's insertion order.
6. ` + "`" + `project` + "`" + ` replaces full documents in the results with just the named
   fields.

## Examples

All active project notes, newest first:

` + "```" + `json
{
  "conditions": [
    {"field": "fm:status", "op": "eq", "value": "active"},
    {"field": "fs:path", "op": "eq", "value": "projects/**"}
  ],
  "sort": [{"field": "fs:mtime", "desc": true}]
}
` + "```" + `

Documents that link to a specific note:

` + "```" + `json
{
  "conditions": [
    {"field": "link:outgoing", "op": "contains", "value": "projects/roadmap.md"}
  ],
  "project": ["fs:path", "fm:title"]
}
` + "```" + `
`
