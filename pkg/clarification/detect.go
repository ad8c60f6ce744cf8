package clarification

import (
	"regexp"
	"slices"
	"strings"
)

// Rule maps a pattern to the field a matching reply supplies
type Rule struct {
	Field   Field
	Locale  string
	Pattern *regexp.Regexp
}

// Detector classifies free-form replies against an ordered rule table
type Detector struct {
	rules []Rule
}

//nolint:gochecknoglobals // Default rule table compiled once
var defaultDetector = NewDetector(DefaultRules()...)

// DefaultRules returns the English and Hebrew rule table. Order matters: when
// a reply matches several fields, the first rule naming a field other than
// the awaited one decides.
func DefaultRules() []Rule {
	return []Rule{
		// Dates
		{Field: FieldMissingDate, Locale: "any", Pattern: regexp.MustCompile(`\d{4}-\d{1,2}-\d{1,2}`)},
		{Field: FieldMissingDate, Locale: "any", Pattern: regexp.MustCompile(`\d{1,2}[./-]\d{1,2}[./-]\d{2,4}`)},
		{Field: FieldMissingDate, Locale: "any", Pattern: regexp.MustCompile(`\d{4}/\d{1,2}/\d{1,2}`)},
		{Field: FieldMissingDate, Locale: "en", Pattern: regexp.MustCompile(
			`\b(january|february|march|april|may|june|july|august|september|october|november|december|jan|feb|mar|apr|jun|jul|aug|sep|sept|oct|nov|dec)\b`)},
		{Field: FieldMissingDate, Locale: "en", Pattern: regexp.MustCompile(
			`\b(today|yesterday|tomorrow|date|dates|day|days|daily|week|weeks|weekly|month|months|monthly|quarter|year|years|yearly)\b`)},
		{Field: FieldMissingDate, Locale: "any", Pattern: regexp.MustCompile(`\b(19|20)\d{2}\b`)},
		{Field: FieldMissingDate, Locale: "he", Pattern: regexp.MustCompile(
			`(ינואר|פברואר|מרץ|אפריל|מאי|יוני|יולי|אוגוסט|ספטמבר|אוקטובר|נובמבר|דצמבר)`)},
		{Field: FieldMissingDate, Locale: "he", Pattern: regexp.MustCompile(`(היום|אתמול|שלשום|שבוע|חודש|שנה|תאריך|ימים)`)},

		// Critical dimensions
		{Field: FieldMissingCriticalField, Locale: "en", Pattern: regexp.MustCompile(
			`\b(media[_ ]?sources?|partners?|app[_ ]?ids?|apps?|applications?|site[_ ]?ids?|sites?)\b`)},
		{Field: FieldMissingCriticalField, Locale: "he", Pattern: regexp.MustCompile(
			`(מדיה סורס|מדיה|פרטנר|שותף|שותפים|אפליקציה|אפליקציות|אתר|אתרים|סייט)`)},

		// Aggregations and filters
		{Field: FieldMissingAggregationOrFilter, Locale: "en", Pattern: regexp.MustCompile(
			`\b(sum|count|total|totals|average|avg|mean|max|maximum|min|minimum|top\s*\d*|how many|number of|group by|per|distinct|unique)\b`)},
		{Field: FieldMissingAggregationOrFilter, Locale: "he", Pattern: regexp.MustCompile(
			`(סה"כ|סה״כ|סהכ|סך הכל|כמה|ממוצע|סכום|ספירה|מקסימום|מינימום|טופ)`)},
	}
}

// RulesForLocales returns the default rules for the given locales, keeping
// locale-neutral rules and the original order
func RulesForLocales(locales ...string) []Rule {
	var rules []Rule

	for _, r := range DefaultRules() {
		if r.Locale == "any" || slices.Contains(locales, r.Locale) {
			rules = append(rules, r)
		}
	}

	return rules
}

// NewDetector creates a detector over rules, evaluated in order
func NewDetector(rules ...Rule) *Detector {
	return &Detector{rules: rules}
}

// Matches returns the fields whose patterns match reply, in rule order and
// without duplicates.
func (d *Detector) Matches(reply string) []Field {
	lowered := strings.ToLower(reply)

	var fields []Field

	for _, r := range d.rules {
		if !r.Pattern.MatchString(lowered) {
			continue
		}

		seen := false
		for _, f := range fields {
			if f == r.Field {
				seen = true

				break
			}
		}

		if !seen {
			fields = append(fields, r.Field)
		}
	}

	return fields
}

// Detect returns the field a reply supplies. A match on a field other than
// awaited wins; otherwise the reply is taken as an answer to awaited, even
// when nothing matched.
func (d *Detector) Detect(reply string, awaited Field) Field {
	matches := d.Matches(reply)

	for _, f := range matches {
		if f != awaited {
			return f
		}
	}

	for _, f := range matches {
		if f == awaited {
			return awaited
		}
	}

	return awaited
}

// DetectProvidedField classifies reply with the default rule table
func DetectProvidedField(reply string, awaited Field) Field {
	return defaultDetector.Detect(reply, awaited)
}
