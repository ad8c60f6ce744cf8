package querycache

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsCacheable(t *testing.T) {
	tests := []struct {
		name     string
		sql      string
		expected bool
		rule     string
	}{
		{
			name:     "current date is relative",
			sql:      "SELECT * FROM t WHERE d = CURRENT_DATE()",
			expected: false,
			rule:     RuleRelativeTime,
		},
		{
			name:     "now with interval is relative",
			sql:      "SELECT count() FROM t WHERE event_time > now() - INTERVAL 1 DAY",
			expected: false,
			rule:     RuleRelativeTime,
		},
		{
			name:     "relative marker wins over date literal",
			sql:      "SELECT * FROM t WHERE d BETWEEN '2025-01-01' AND today()",
			expected: false,
			rule:     RuleRelativeTime,
		},
		{
			name:     "limit",
			sql:      "SELECT * FROM t LIMIT 5",
			expected: false,
			rule:     RuleRowLimit,
		},
		{
			name:     "limit wins over date literal",
			sql:      "SELECT * FROM t WHERE d = '2025-01-01' LIMIT 10",
			expected: false,
			rule:     RuleRowLimit,
		},
		{
			name:     "top n",
			sql:      "SELECT TOP 10 site_id FROM t WHERE d = '2025-01-01'",
			expected: false,
			rule:     RuleRowLimit,
		},
		{
			name:     "iso date",
			sql:      "SELECT * FROM t WHERE d='2025-01-01'",
			expected: true,
			rule:     RuleDateLiteral,
		},
		{
			name:     "us date",
			sql:      "SELECT * FROM t WHERE d = '01/15/2025'",
			expected: true,
			rule:     RuleDateLiteral,
		},
		{
			name:     "slashed iso date",
			sql:      "SELECT * FROM t WHERE d = '2025/01/15'",
			expected: true,
			rule:     RuleDateLiteral,
		},
		{
			name:     "compact date",
			sql:      "SELECT * FROM t WHERE hr_key = 20250115",
			expected: true,
			rule:     RuleDateLiteral,
		},
		{
			name:     "english month name",
			sql:      "SELECT * FROM t WHERE month_name = 'October'",
			expected: true,
			rule:     RuleMonthName,
		},
		{
			name:     "hebrew month name",
			sql:      "SELECT * FROM t WHERE month_name = 'אוקטובר'",
			expected: true,
			rule:     RuleMonthName,
		},
		{
			name:     "between with year",
			sql:      "SELECT count() FROM t WHERE toYear(event_time) BETWEEN 2024 AND 2025",
			expected: true,
			rule:     RuleBetweenYear,
		},
		{
			name:     "extract year and month",
			sql:      "SELECT count() FROM t WHERE EXTRACT(YEAR FROM event_time) = 2025 AND EXTRACT(MONTH FROM event_time) = 10",
			expected: true,
			rule:     RuleExtractPeriod,
		},
		{
			name:     "extract year only",
			sql:      "SELECT count() FROM t WHERE EXTRACT(YEAR FROM event_time) = 2025",
			expected: false,
			rule:     RuleDefault,
		},
		{
			name:     "no period at all",
			sql:      "SELECT count() FROM t",
			expected: false,
			rule:     RuleDefault,
		},
		{
			name:     "empty",
			sql:      "",
			expected: false,
			rule:     RuleDefault,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, IsCacheable(tt.sql))

			cacheable, rule := Explain(tt.sql)
			assert.Equal(t, tt.expected, cacheable)
			assert.Equal(t, tt.rule, rule)
		})
	}
}

func TestClassifier_WithMonthNames(t *testing.T) {
	sql := "SELECT * FROM t WHERE m = 'octobre'"

	base := NewClassifier(EnglishMonthNames)
	assert.False(t, base.IsCacheable(sql))

	extended := base.WithMonthNames("Octobre")
	assert.True(t, extended.IsCacheable(sql))
	assert.True(t, extended.IsCacheable("SELECT * FROM t WHERE m = 'March'"))

	// The original table is left untouched
	assert.False(t, base.IsCacheable(sql))
}

func TestConfig_Classifier(t *testing.T) {
	cfg := &Config{}
	assert.Same(t, defaultClassifier, cfg.Classifier())

	cfg.ExtraMonthNames = []string{"Janvier"}
	c := cfg.Classifier()

	assert.True(t, c.IsCacheable("SELECT count() FROM t WHERE month = 'janvier'"))
	assert.True(t, c.IsCacheable("SELECT count() FROM t WHERE month = 'march'"))
	assert.False(t, defaultClassifier.IsCacheable("SELECT count() FROM t WHERE month = 'janvier'"))
}
