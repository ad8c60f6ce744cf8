package clarification

import (
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
)

func mustRegexp(t *testing.T, pattern string) *regexp.Regexp {
	t.Helper()

	return regexp.MustCompile(pattern)
}

func TestCompose(t *testing.T) {
	tests := []struct {
		name     string
		base     string
		answer   string
		field    Field
		expected string
	}{
		{
			name:     "date",
			base:     "How many clicks?",
			answer:   "October 2025",
			field:    FieldMissingDate,
			expected: "How many clicks for October 2025",
		},
		{
			name:     "critical field",
			base:     "How many clicks?",
			answer:   "by media source",
			field:    FieldMissingCriticalField,
			expected: "How many clicks filtered by media source",
		},
		{
			name:     "aggregation",
			base:     "Clicks for app X",
			answer:   "  sum  ",
			field:    FieldMissingAggregationOrFilter,
			expected: "Clicks for app X with aggregation sum",
		},
		{
			name:     "no field appends",
			base:     "Clicks",
			answer:   "something else",
			field:    FieldNone,
			expected: "Clicks something else",
		},
		{
			name:     "empty answer keeps base",
			base:     " How many clicks? ",
			answer:   " ",
			field:    FieldMissingDate,
			expected: "How many clicks?",
		},
		{
			name:     "empty base uses answer",
			base:     "",
			answer:   "October 2025",
			field:    FieldMissingDate,
			expected: "October 2025",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, Compose(tt.base, tt.answer, tt.field))
		})
	}
}

func TestCompose_ContainsAnswerMarkers(t *testing.T) {
	assert.Contains(t, Compose("clicks", "25.10.2025", FieldMissingDate), "25.10.2025")
	assert.Contains(t, Compose("clicks", "media source", FieldMissingCriticalField), "filtered by")
	assert.Contains(t, Compose("clicks", "total", FieldMissingAggregationOrFilter), "aggregation")
}
