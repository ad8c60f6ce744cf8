// Package conversation drives one chat turn from the user's message to a
// formatted answer or a clarification request.
package conversation

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jellydator/ttlcache/v3"
	"github.com/sirupsen/logrus"

	"github.com/ethpandaops/clickguard/pkg/answer"
	"github.com/ethpandaops/clickguard/pkg/assistant"
	"github.com/ethpandaops/clickguard/pkg/clarification"
	"github.com/ethpandaops/clickguard/pkg/gateway"
	"github.com/ethpandaops/clickguard/pkg/observability"
)

const (
	// UnableToGenerate is returned when no safe query could be produced
	UnableToGenerate = "Unable to generate a valid SQL query for your request."
	// ExhaustedFormat is returned when the clarification ceiling is reached
	ExhaustedFormat = "Sorry, I was unable to resolve your request after %d clarification attempts. Please start again with a new question."
	// DefaultClarificationMessage is used when a rejection carries no message
	DefaultClarificationMessage = "Could you add more detail to your question?"
	// TablesCreatedHeader introduces the tables a table-producing query wrote
	TablesCreatedHeader = "**Anomaly detection completed successfully.**\n\n**Created tables:**"
	// PreviewFailedFormat replaces the rows of a table that could not be read
	PreviewFailedFormat = "Could not fetch table data: %v"
)

// ErrEmptyMessage is returned for a blank chat message
var ErrEmptyMessage = errors.New("message is required")

// Executor runs SQL and previews materialized tables
type Executor interface {
	Execute(ctx context.Context, sql, question string) (*gateway.Result, error)
	PreviewTable(ctx context.Context, table string) (*gateway.Result, error)
}

// Clarifier tracks clarification rounds per base question
type Clarifier interface {
	Update(ctx context.Context, base, reply string, requested clarification.Field) (clarification.Decision, error)
	Clear(ctx context.Context, base string) error
	MaxAttempts() int
}

// Reply is the outcome of one turn
type Reply struct {
	SessionID     string                  `json:"session_id"`
	Status        assistant.IntentStatus  `json:"status"`
	Message       string                  `json:"message"`
	FinalQuestion string                  `json:"final_question,omitempty"`
	SQL           string                  `json:"sql,omitempty"`
	FromCache     bool                    `json:"from_cache"`
	Clarification *clarification.Decision `json:"clarification,omitempty"`
}

// Service handles chat turns
type Service struct {
	log           logrus.FieldLogger
	assistant     assistant.Assistant
	clarifier     Clarifier
	executor      Executor
	formatter     *answer.Formatter
	sessions      *ttlcache.Cache[string, *session]
	maxTranscript int
}

// NewService creates a conversation service
func NewService(log logrus.FieldLogger, cfg *Config, asst assistant.Assistant, clarifier Clarifier, executor Executor, formatter *answer.Formatter) *Service {
	if formatter == nil {
		formatter = answer.New(answer.DefaultMaxRows)
	}

	return &Service{
		log:       log.WithField("component", "conversation"),
		assistant: asst,
		clarifier: clarifier,
		executor:  executor,
		formatter: formatter,
		sessions: ttlcache.New(
			ttlcache.WithTTL[string, *session](cfg.SessionTTL),
		),
		maxTranscript: cfg.MaxTranscript,
	}
}

// Start begins evicting idle sessions
func (s *Service) Start() {
	go s.sessions.Start()
}

// Stop halts session eviction
func (s *Service) Stop() {
	s.sessions.Stop()
}

// Sessions returns the number of live sessions
func (s *Service) Sessions() int {
	return s.sessions.Len()
}

// EndSession forgets a session
func (s *Service) EndSession(sessionID string) {
	s.sessions.Delete(sessionID)
}

// HandleTurn processes one user message. An empty sessionID starts a new session.
func (s *Service) HandleTurn(ctx context.Context, sessionID, message string) (*Reply, error) {
	message = strings.TrimSpace(message)
	if message == "" {
		return nil, ErrEmptyMessage
	}

	if sessionID == "" {
		sessionID = uuid.NewString()
	}

	item, _ := s.sessions.GetOrSet(sessionID, &session{})
	sess := item.Value()

	sess.mu.Lock()
	defer sess.mu.Unlock()

	sess.append(message, s.maxTranscript)

	reply, err := s.turn(ctx, sess, message)
	if err != nil {
		observability.RecordChatTurn("error")

		return nil, err
	}

	reply.SessionID = sessionID
	observability.RecordChatTurn(string(reply.Status))

	s.log.WithFields(logrus.Fields{
		"session": sessionID,
		"status":  reply.Status,
	}).Debug("Handled chat turn")

	return reply, nil
}

func (s *Service) turn(ctx context.Context, sess *session, message string) (*Reply, error) {
	intent, err := s.assistant.Resolve(ctx, sess.snapshot())
	if err != nil {
		return nil, fmt.Errorf("failed to resolve intent: %w", err)
	}

	switch intent.Status {
	case assistant.IntentNotRelevant:
		return &Reply{Status: intent.Status, Message: intent.MessageToUser}, nil
	case assistant.IntentNeedsClarification:
		return s.clarify(ctx, sess, message, intent.ClarificationType, intent.MessageToUser)
	case assistant.IntentImproved, assistant.IntentAnomaly:
		return s.answer(ctx, sess, message, intent)
	default:
		return nil, fmt.Errorf("%w: %q", assistant.ErrUnknownStatus, intent.Status)
	}
}

// clarify records a clarification round against the pending base question
func (s *Service) clarify(ctx context.Context, sess *session, message string, requested clarification.Field, prompt string) (*Reply, error) {
	if sess.pendingBase == "" {
		sess.pendingBase = message
	}

	decision, err := s.clarifier.Update(ctx, sess.pendingBase, message, requested)
	if err != nil {
		return nil, fmt.Errorf("failed to update clarification: %w", err)
	}

	reply := &Reply{
		Status:        assistant.IntentNeedsClarification,
		Message:       prompt,
		Clarification: &decision,
	}

	switch decision.Outcome {
	case clarification.OutcomeExhausted:
		reply.Message = fmt.Sprintf(ExhaustedFormat, s.clarifier.MaxAttempts())
		sess.reset()
	case clarification.OutcomeResolved:
		sess.pendingBase = ""
	}

	if reply.Message == "" {
		reply.Message = DefaultClarificationMessage
	}

	return reply, nil
}

// answer validates, generates and executes the final question
func (s *Service) answer(ctx context.Context, sess *session, message string, intent *assistant.Intent) (*Reply, error) {
	question := strings.TrimSpace(intent.FinalQuestion)
	if question == "" {
		return &Reply{Status: intent.Status, Message: UnableToGenerate}, nil
	}

	validation, err := s.assistant.Validate(ctx, question)
	if err != nil {
		return nil, fmt.Errorf("failed to validate question: %w", err)
	}

	if !validation.Approved() {
		if sess.pendingBase == "" {
			sess.pendingBase = question
		}

		return s.clarify(ctx, sess, message, validation.ClarificationType, validation.Message)
	}

	if sess.pendingBase != "" {
		if err := s.clarifier.Clear(ctx, sess.pendingBase); err != nil {
			return nil, fmt.Errorf("failed to clear clarification: %w", err)
		}

		sess.pendingBase = ""
	}

	gen, err := s.assistant.Generate(ctx, question)
	if err != nil {
		return nil, fmt.Errorf("failed to generate sql: %w", err)
	}

	reply := &Reply{Status: intent.Status, FinalQuestion: question}

	if !gen.Executable() {
		reply.Message = UnableToGenerate

		return reply, nil
	}

	reply.SQL = gen.SQL

	res, err := s.executor.Execute(ctx, gen.SQL, question)
	if err != nil {
		return nil, err
	}

	reply.FromCache = res.FromCache

	if len(gen.OutputTables) == 0 {
		reply.Message = s.formatter.Format(res)

		return reply, nil
	}

	reply.Message = s.previewTables(ctx, gen.OutputTables)

	return reply, nil
}

// previewTables lists the created tables and renders a preview of each. A
// table that cannot be read gets its error in place of rows.
func (s *Service) previewTables(ctx context.Context, tables []string) string {
	listed := make([]string, 0, len(tables))
	for _, table := range tables {
		listed = append(listed, "- "+table)
	}

	sections := make([]string, 0, len(tables)+1)
	sections = append(sections, TablesCreatedHeader+"\n"+strings.Join(listed, "\n"))

	for _, table := range tables {
		var body string

		preview, err := s.executor.PreviewTable(ctx, table)
		if err != nil {
			s.log.WithError(err).WithField("table", table).Warn("Failed to preview output table")

			body = fmt.Sprintf(PreviewFailedFormat, err)
		} else {
			body = s.formatter.Format(preview)
		}

		sections = append(sections, fmt.Sprintf("### %s\n\n%s", table, body))
	}

	return strings.Join(sections, "\n\n")
}
