package clarification

import (
	"bytes"
	"strings"
	"text/template"

	"github.com/Masterminds/sprig/v3"
)

const (
	// stripLead drops a leading preposition so "by media source" reads well
	// after "filtered by".
	stripLead = `{{ regexReplaceAll "(?i)^(by|for|per|in|on)\\s+" (trim .Answer) "" }}`
	baseText  = `{{ .Base | trim | trimSuffix "?" | trim }}`
)

//nolint:gochecknoglobals // Templates parsed once
var (
	composeTemplates = map[Field]*template.Template{
		FieldMissingDate:                mustTemplate("date", baseText+" for "+stripLead),
		FieldMissingCriticalField:       mustTemplate("critical", baseText+" filtered by "+stripLead),
		FieldMissingAggregationOrFilter: mustTemplate("aggregation", baseText+" with aggregation "+stripLead),
	}

	fallbackTemplate = mustTemplate("fallback", baseText+" "+`{{ trim .Answer }}`)
)

func mustTemplate(name, text string) *template.Template {
	return template.Must(template.New(name).Funcs(sprig.TxtFuncMap()).Parse(text))
}

// Compose folds a clarification answer into the question it clarifies
func Compose(base, answer string, field Field) string {
	if strings.TrimSpace(answer) == "" {
		return strings.TrimSpace(base)
	}

	if strings.TrimSpace(base) == "" {
		return strings.TrimSpace(answer)
	}

	tmpl, ok := composeTemplates[field]
	if !ok {
		tmpl = fallbackTemplate
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, struct{ Base, Answer string }{base, answer}); err != nil {
		return strings.TrimSpace(base) + " " + strings.TrimSpace(answer)
	}

	return strings.Join(strings.Fields(buf.String()), " ")
}
