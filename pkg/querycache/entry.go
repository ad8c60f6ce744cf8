// Package querycache memoizes warehouse results under two independent
// indices: the normalized user question and the normalized SQL text.
package querycache

// Row is one result row keyed by column name
type Row map[string]any

// Entry is a stored query result. Entries are never mutated after Store.
type Entry struct {
	SQL      string   `json:"sql"`
	Columns  []string `json:"columns"`
	Rows     []Row    `json:"rows"`
	RowCount int      `json:"row_count"` //nolint:tagliatelle // matches the public result shape
}

// IndexName identifies one of the two cache indices
type IndexName string

// Cache indices
const (
	IndexQuestion IndexName = "question"
	IndexSQL      IndexName = "sql"
)

// Source reports which index satisfied a lookup
type Source string

// Lookup sources
const (
	SourceNone     Source = ""
	SourceQuestion Source = "question"
	SourceSQL      Source = "sql"
)
