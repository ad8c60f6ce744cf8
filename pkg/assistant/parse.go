package assistant

import (
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/ethpandaops/clickguard/pkg/clarification"
)

var (
	// ErrUnparseableOutput is returned when model output holds no JSON object
	ErrUnparseableOutput = errors.New("model output is not a JSON object")
	// ErrUnknownStatus is returned when the output carries an unexpected status
	ErrUnknownStatus = errors.New("unknown status")
)

//nolint:gochecknoglobals // Compiled once
var fencedBlock = regexp.MustCompile("(?s)```(?:json)?\\s*(.*?)\\s*```")

// ParseOutput extracts a JSON object from raw model output. Plain JSON and
// fenced code blocks (with or without a json tag) are accepted.
func ParseOutput(raw string) (map[string]any, error) {
	text := strings.TrimSpace(raw)
	if text == "" {
		return nil, ErrUnparseableOutput
	}

	if m := fencedBlock.FindStringSubmatch(text); m != nil {
		text = strings.TrimSpace(m[1])
	}

	out := map[string]any{}
	if err := json.Unmarshal([]byte(text), &out); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUnparseableOutput, err)
	}

	return out, nil
}

// ParseIntent decodes intent resolver output
func ParseIntent(raw string) (*Intent, error) {
	out, err := ParseOutput(raw)
	if err != nil {
		return nil, err
	}

	intent := &Intent{
		Status:        IntentStatus(stringField(out, "status")),
		MessageToUser: stringField(out, "message_to_user"),
		FinalQuestion: stringField(out, "final_question"),
	}

	if !intent.Status.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrUnknownStatus, intent.Status)
	}

	if intent.ClarificationType, err = clarification.ParseField(stringField(out, "clarification_type")); err != nil {
		return nil, err
	}

	return intent, nil
}

// ParseValidation decodes validator output
func ParseValidation(raw string) (*Validation, error) {
	out, err := ParseOutput(raw)
	if err != nil {
		return nil, err
	}

	v := &Validation{
		Status:  ValidationStatus(stringField(out, "status")),
		Message: stringField(out, "message"),
	}

	if v.Status == "not_valid" {
		v.Status = ValidationRejected
	}

	if v.Status != ValidationApproved && v.Status != ValidationRejected {
		return nil, fmt.Errorf("%w: %q", ErrUnknownStatus, v.Status)
	}

	if v.ClarificationType, err = clarification.ParseField(stringField(out, "clarification_type")); err != nil {
		return nil, err
	}

	return v, nil
}

// ParseGeneration decodes generator output. A missing query is reported as
// FallbackNoExecution.
func ParseGeneration(raw string) (*Generation, error) {
	out, err := ParseOutput(raw)
	if err != nil {
		return nil, err
	}

	gen := &Generation{SQL: strings.TrimSpace(stringField(out, "sql_query"))}
	if gen.SQL == "" {
		gen.SQL = FallbackNoExecution
	}

	if tables, ok := out["output_tables"].([]any); ok {
		for _, t := range tables {
			if s, ok := t.(string); ok && strings.TrimSpace(s) != "" {
				gen.OutputTables = append(gen.OutputTables, strings.TrimSpace(s))
			}
		}
	}

	return gen, nil
}

// stringField returns out[key] as a string, treating null and non-strings as empty
func stringField(out map[string]any, key string) string {
	s, _ := out[key].(string)

	return s
}
