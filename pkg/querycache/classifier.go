package querycache

import (
	"regexp"
	"strings"
)

// Rule names reported by Classifier.Explain
const (
	RuleRelativeTime  = "relative_time"
	RuleRowLimit      = "row_limit"
	RuleDateLiteral   = "date_literal"
	RuleMonthName     = "month_name"
	RuleBetweenYear   = "between_year"
	RuleExtractPeriod = "extract_year_month"
	RuleDefault       = "default"
)

//nolint:gochecknoglobals // Fixed rule inputs compiled once
var (
	relativeTimeMarkers = []string{
		"today",
		"yesterday",
		"now()",
		"current_timestamp",
		"current_date",
		"this month",
		"this year",
		"this week",
		"last month",
		"last year",
		"last week",
		"interval",
		"date_add",
		"date_sub",
	}

	topNPattern = regexp.MustCompile(`\btop\s+\d+`)

	datePatterns = []*regexp.Regexp{
		regexp.MustCompile(`\d{4}-\d{2}-\d{2}`),
		regexp.MustCompile(`\d{2}/\d{2}/\d{4}`),
		regexp.MustCompile(`\d{4}/\d{2}/\d{2}`),
		regexp.MustCompile(`\b\d{8}\b`),
	}

	yearPattern         = regexp.MustCompile(`\d{4}`)
	extractYearPattern  = regexp.MustCompile(`extract\s*\(\s*year\s+from\s+\w+\s*\)\s*=\s*\d{4}`)
	extractMonthPattern = regexp.MustCompile(`extract\s*\(\s*month\s+from\s+\w+\s*\)\s*=\s*\d{1,2}`)

	// EnglishMonthNames are matched against lower-cased SQL
	EnglishMonthNames = []string{
		"january", "february", "march", "april", "may", "june",
		"july", "august", "september", "october", "november", "december",
	}

	// HebrewMonthNames are matched against lower-cased SQL
	HebrewMonthNames = []string{
		"ינואר", "פברואר", "מרץ", "אפריל", "מאי", "יוני",
		"יולי", "אוגוסט", "ספטמבר", "אוקטובר", "נובמבר", "דצמבר",
	}

	defaultClassifier = NewClassifier(EnglishMonthNames, HebrewMonthNames)
)

// rule is one row of the classifier table. The first rule whose match
// function reports true decides the verdict.
type rule struct {
	name      string
	cacheable bool
	match     func(sql string) bool
}

// Classifier decides whether the result of a SQL statement may be memoized.
// A statement is cacheable only when it pins an absolute period and does not
// depend on the wall clock or on a row limit.
type Classifier struct {
	rules []rule
}

// NewClassifier builds the rule table. Each variant is a list of month names
// for one language.
func NewClassifier(monthVariants ...[]string) *Classifier {
	var months []string

	for _, variant := range monthVariants {
		for _, m := range variant {
			months = append(months, strings.ToLower(m))
		}
	}

	return &Classifier{
		rules: []rule{
			{name: RuleRelativeTime, cacheable: false, match: containsAny(relativeTimeMarkers)},
			{name: RuleRowLimit, cacheable: false, match: func(sql string) bool {
				return strings.Contains(sql, "limit") || topNPattern.MatchString(sql)
			}},
			{name: RuleDateLiteral, cacheable: true, match: func(sql string) bool {
				for _, p := range datePatterns {
					if p.MatchString(sql) {
						return true
					}
				}

				return false
			}},
			{name: RuleMonthName, cacheable: true, match: containsAny(months)},
			{name: RuleBetweenYear, cacheable: true, match: func(sql string) bool {
				return strings.Contains(sql, "between") && yearPattern.MatchString(sql)
			}},
			{name: RuleExtractPeriod, cacheable: true, match: func(sql string) bool {
				return extractYearPattern.MatchString(sql) && extractMonthPattern.MatchString(sql)
			}},
		},
	}
}

// WithMonthNames returns a copy of the classifier that also recognizes the
// given month names.
func (c *Classifier) WithMonthNames(names ...string) *Classifier {
	lowered := make([]string, 0, len(names))
	for _, n := range names {
		lowered = append(lowered, strings.ToLower(n))
	}

	rules := make([]rule, len(c.rules))
	copy(rules, c.rules)

	for i, r := range rules {
		if r.name != RuleMonthName {
			continue
		}

		prev := r.match
		extra := containsAny(lowered)
		rules[i].match = func(sql string) bool {
			return prev(sql) || extra(sql)
		}
	}

	return &Classifier{rules: rules}
}

// IsCacheable reports whether the result of sql may be stored
func (c *Classifier) IsCacheable(sql string) bool {
	ok, _ := c.Explain(sql)

	return ok
}

// Explain returns the verdict for sql together with the name of the rule
// that produced it.
func (c *Classifier) Explain(sql string) (cacheable bool, ruleName string) {
	lowered := strings.ToLower(sql)

	for _, r := range c.rules {
		if r.match(lowered) {
			return r.cacheable, r.name
		}
	}

	return false, RuleDefault
}

// IsCacheable reports whether sql is cacheable using the default rule table
func IsCacheable(sql string) bool {
	return defaultClassifier.IsCacheable(sql)
}

// Explain explains the default rule table's verdict for sql
func Explain(sql string) (bool, string) {
	return defaultClassifier.Explain(sql)
}

func containsAny(needles []string) func(string) bool {
	return func(sql string) bool {
		for _, n := range needles {
			if strings.Contains(sql, n) {
				return true
			}
		}

		return false
	}
}
