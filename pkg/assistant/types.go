// Package assistant holds the language-model collaborators that turn a
// conversation into an executable question and a question into SQL.
package assistant

import (
	"context"

	"github.com/ethpandaops/clickguard/pkg/clarification"
)

// IntentStatus is the intent resolver's verdict on a transcript
type IntentStatus string

const (
	// IntentNotRelevant means the conversation is not about click data
	IntentNotRelevant IntentStatus = "not_relevant"
	// IntentNeedsClarification means a required part of the question is missing
	IntentNeedsClarification IntentStatus = "needs_clarification"
	// IntentImproved means a complete question was formed
	IntentImproved IntentStatus = "improved"
	// IntentAnomaly means the user asked for anomaly detection
	IntentAnomaly IntentStatus = "anomaly"
)

// Valid reports whether s is a known status
func (s IntentStatus) Valid() bool {
	switch s {
	case IntentNotRelevant, IntentNeedsClarification, IntentImproved, IntentAnomaly:
		return true
	}

	return false
}

// Executable reports whether the intent carries a question ready for SQL generation
func (s IntentStatus) Executable() bool {
	return s == IntentImproved || s == IntentAnomaly
}

// ValidationStatus is the validator's verdict on a final question
type ValidationStatus string

const (
	// ValidationApproved lets the question through to SQL generation
	ValidationApproved ValidationStatus = "approved"
	// ValidationRejected sends the question back for clarification
	ValidationRejected ValidationStatus = "rejected"
)

// FallbackNoExecution is returned by the generator when no safe query exists
const FallbackNoExecution = "FALLBACK_NO_EXECUTION"

// Intent is the outcome of reading the transcript
type Intent struct {
	Status            IntentStatus        `json:"status"`
	MessageToUser     string              `json:"message_to_user"`
	FinalQuestion     string              `json:"final_question,omitempty"`
	ClarificationType clarification.Field `json:"clarification_type,omitempty"`
}

// Validation is the outcome of validating a final question
type Validation struct {
	Status            ValidationStatus    `json:"status"`
	Message           string              `json:"message,omitempty"`
	ClarificationType clarification.Field `json:"clarification_type,omitempty"`
}

// Approved reports whether the question may be turned into SQL
func (v *Validation) Approved() bool {
	return v.Status == ValidationApproved
}

// Generation is the SQL produced for a final question
type Generation struct {
	SQL string `json:"sql_query"`
	// OutputTables is set when the query materializes tables that are
	// previewed instead of returning rows directly
	OutputTables []string `json:"output_tables,omitempty"`
}

// Executable reports whether the generation produced a runnable query
func (g *Generation) Executable() bool {
	return g != nil && g.SQL != "" && g.SQL != FallbackNoExecution
}

// IntentResolver reads a conversation transcript and decides what the user wants
type IntentResolver interface {
	Resolve(ctx context.Context, transcript []string) (*Intent, error)
}

// Validator checks that a final question has every required component
type Validator interface {
	Validate(ctx context.Context, question string) (*Validation, error)
}

// Generator converts a final question into SQL
type Generator interface {
	Generate(ctx context.Context, question string) (*Generation, error)
}

// Assistant bundles the three collaborators
type Assistant interface {
	IntentResolver
	Validator
	Generator
}
