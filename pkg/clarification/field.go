// Package clarification tracks multi-turn clarification rounds per base
// question and decides when to keep asking, accept or give up.
package clarification

import (
	"errors"
	"fmt"
	"sort"
)

// ErrUnknownField is returned when parsing an unrecognized field tag
var ErrUnknownField = errors.New("unknown clarification field")

// Field is the kind of information a clarification solicits
type Field string

// Clarification fields
const (
	FieldNone                       Field = "none"
	FieldMissingDate                Field = "missing_date"
	FieldMissingCriticalField       Field = "missing_critical_field"
	FieldMissingAggregationOrFilter Field = "missing_aggregation_or_filter"
)

// Fields lists every field that can be solicited
func Fields() []Field {
	return []Field{FieldMissingDate, FieldMissingCriticalField, FieldMissingAggregationOrFilter}
}

// ParseField converts a wire tag into a Field. The empty string is FieldNone.
func ParseField(s string) (Field, error) {
	switch Field(s) {
	case "", FieldNone:
		return FieldNone, nil
	case FieldMissingDate, FieldMissingCriticalField, FieldMissingAggregationOrFilter:
		return Field(s), nil
	default:
		return FieldNone, fmt.Errorf("%w: %q", ErrUnknownField, s)
	}
}

func (f Field) String() string {
	if f == "" {
		return string(FieldNone)
	}

	return string(f)
}

// FieldSet is a sorted set of fields
type FieldSet []Field

// Add inserts f, keeping the set sorted and unique
func (s *FieldSet) Add(f Field) {
	if f == FieldNone || f == "" || s.Has(f) {
		return
	}

	*s = append(*s, f)
	sort.Slice(*s, func(i, j int) bool { return (*s)[i] < (*s)[j] })
}

// Has reports whether f is in the set
func (s FieldSet) Has(f Field) bool {
	for _, v := range s {
		if v == f {
			return true
		}
	}

	return false
}

// Clone returns an independent copy
func (s FieldSet) Clone() FieldSet {
	out := make(FieldSet, len(s))
	copy(out, s)

	return out
}
