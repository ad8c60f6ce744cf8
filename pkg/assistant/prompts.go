package assistant

import (
	"bytes"
	"fmt"
	"text/template"
	"time"

	"github.com/Masterminds/sprig/v3"
)

const intentPrompt = `You are an assistant for analyzing digital advertising click data.
You receive the raw conversation transcript as plain text, one user message per line.
Later messages modify, continue or clarify the latest analytical question unless the
user explicitly starts a new one. Reply in the language of the user's latest message.

Data lives in table {{ .Schema.Table }}.
Fields: {{ .Schema.ColumnNames | join ", " }}
Critical fields (at least one required): {{ .Critical | join ", " }}

Rules:
1. A date or date range is required. If missing: needs_clarification, missing_date.
2. Aggregations need a critical field. If missing: needs_clarification, missing_critical_field.
3. An aggregation or breakdown is required. If missing: needs_clarification, missing_aggregation_or_filter.
4. Questions about anomalies, spikes, volatility, outliers or abnormal hourly behavior
   are anomaly intent: status anomaly, no date or field requirements.
5. Only questions unrelated to ads or clicks are not_relevant.

Respond with JSON only:
{"status": "{{ .Statuses | join "|" }}", "message_to_user": "...", "final_question": "... or null", "clarification_type": "{{ .Fields | join "|" }} or null"}
final_question is set only when status is improved or anomaly.`

const validationPrompt = `You validate analytical questions before SQL conversion. You never talk to users.

Anomaly detection questions are always approved.
Otherwise the question must contain:
1. A date or date range, else rejected with missing_date.
2. At least one of {{ .Critical | join ", " }}, else rejected with missing_critical_field.
3. An aggregation or meaningful filter, else rejected with missing_aggregation_or_filter.

Available fields: {{ .Schema.ColumnNames | join ", " }}

Respond with JSON only:
{"status": "approved|rejected", "clarification_type": "... or null", "message": "... or null"}`

const generationPrompt = `Convert the question into ONE safe, efficient, read-only ClickHouse SQL query.
Today is {{ .Today }}.

Table: {{ .Schema.Table }} ({{ .Schema.Description }})
Columns:
{{- range .Schema.Columns }}
- {{ .Name }} {{ .Type }}: {{ .Description }}
{{- end }}

Rules:
- Only SELECT. Anything else returns {{ .Fallback | quote }}.
- Always filter by toDate(event_time).
- Count clicks with sum(total_events) and is_engaged_view = false.
- Never select _rid or *, never use engagement_type, at most 5 columns.
- Anomaly questions may materialize results with CREATE TABLE statements;
  list every created table in output_tables.

Respond with JSON only:
{"sql_query": "SELECT ...", "output_tables": []}`

type promptData struct {
	Schema   TableSchema
	Critical []string
	Statuses []string
	Fields   []string
	Fallback string
	Today    string
}

//nolint:gochecknoglobals // Templates parsed once
var (
	intentTemplate     = mustPrompt("intent", intentPrompt)
	validationTemplate = mustPrompt("validation", validationPrompt)
	generationTemplate = mustPrompt("generation", generationPrompt)
)

func mustPrompt(name, text string) *template.Template {
	return template.Must(template.New(name).Funcs(sprig.TxtFuncMap()).Parse(text))
}

func renderPrompt(tmpl *template.Template, now time.Time) (string, error) {
	data := promptData{
		Schema:   Schema,
		Critical: CriticalFields,
		Statuses: []string{
			string(IntentNotRelevant), string(IntentNeedsClarification),
			string(IntentImproved), string(IntentAnomaly),
		},
		Fields:   []string{"missing_date", "missing_critical_field", "missing_aggregation_or_filter"},
		Fallback: FallbackNoExecution,
		Today:    now.UTC().Format(time.DateOnly),
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("failed to render %s prompt: %w", tmpl.Name(), err)
	}

	return buf.String(), nil
}
