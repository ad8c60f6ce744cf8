package querycache

import "strings"

// NormalizeSQL canonicalizes a SQL statement into a cache key
func NormalizeSQL(sql string) string {
	return normalize(sql)
}

// NormalizeQuestion canonicalizes a natural-language question into a cache key
func NormalizeQuestion(question string) string {
	return normalize(question)
}

// normalize lower-cases s and collapses whitespace runs into single spaces.
// strings.Fields drops leading and trailing whitespace.
func normalize(s string) string {
	if s == "" {
		return ""
	}

	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}
