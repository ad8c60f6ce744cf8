package conversation

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ethpandaops/clickguard/pkg/assistant"
	"github.com/ethpandaops/clickguard/pkg/clarification"
	"github.com/ethpandaops/clickguard/pkg/gateway"
	"github.com/ethpandaops/clickguard/pkg/querycache"
)

// scriptedAssistant replays intents in order and delegates the rest to funcs
type scriptedAssistant struct {
	mu          sync.Mutex
	intents     []*assistant.Intent
	transcripts [][]string
	validateFn  func(question string) *assistant.Validation
	generateFn  func(question string) *assistant.Generation
}

func (a *scriptedAssistant) Resolve(_ context.Context, transcript []string) (*assistant.Intent, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.transcripts = append(a.transcripts, transcript)

	if len(a.intents) == 0 {
		return nil, errors.New("no scripted intent")
	}

	next := a.intents[0]
	a.intents = a.intents[1:]

	return next, nil
}

func (a *scriptedAssistant) Validate(_ context.Context, question string) (*assistant.Validation, error) {
	if a.validateFn == nil {
		return &assistant.Validation{Status: assistant.ValidationApproved}, nil
	}

	return a.validateFn(question), nil
}

func (a *scriptedAssistant) Generate(_ context.Context, question string) (*assistant.Generation, error) {
	if a.generateFn == nil {
		return &assistant.Generation{SQL: "SELECT media_source, sum(total_events) AS clicks FROM clicks GROUP BY media_source"}, nil
	}

	return a.generateFn(question), nil
}

// fakeExecutor records executions and previews
type fakeExecutor struct {
	mu         sync.Mutex
	executed   []string
	questions  []string
	previewed  []string
	err        error
	previewErr map[string]error
}

func (e *fakeExecutor) Execute(_ context.Context, sql, question string) (*gateway.Result, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.executed = append(e.executed, sql)
	e.questions = append(e.questions, question)

	if e.err != nil {
		return nil, e.err
	}

	return &gateway.Result{
		SQL:     sql,
		Columns: []string{"media_source", "clicks"},
		Rows: []querycache.Row{
			{"media_source": "facebook", "clicks": json.Number("1200")},
			{"media_source": "google", "clicks": json.Number("800")},
		},
		RowCount: 2,
	}, nil
}

func (e *fakeExecutor) PreviewTable(_ context.Context, table string) (*gateway.Result, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.previewed = append(e.previewed, table)

	if err := e.previewErr[table]; err != nil {
		return nil, err
	}

	return &gateway.Result{
		SQL:      "SELECT * FROM " + table + " LIMIT 20",
		Columns:  []string{"media_source", "cv"},
		Rows:     []querycache.Row{{"media_source": "facebook", "cv": json.Number("0.93")}},
		RowCount: 1,
	}, nil
}

func newTestService(t *testing.T, asst assistant.Assistant, exec Executor, maxAttempts int) (*Service, *clarification.Tracker) {
	t.Helper()

	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)

	tracker := clarification.NewTracker(logger, &clarification.Config{MaxAttempts: maxAttempts}, clarification.NewMemoryStore())

	cfg := &Config{}
	cfg.SetDefaults()

	svc := NewService(logger, cfg, asst, tracker, exec, nil)
	svc.Start()
	t.Cleanup(svc.Stop)

	return svc, tracker
}

func ask(field clarification.Field, msg string) *assistant.Intent {
	return &assistant.Intent{Status: assistant.IntentNeedsClarification, ClarificationType: field, MessageToUser: msg}
}

func TestHandleTurn_NotRelevant(t *testing.T) {
	asst := &scriptedAssistant{intents: []*assistant.Intent{
		{Status: assistant.IntentNotRelevant, MessageToUser: "I can only help with click data."},
	}}
	exec := &fakeExecutor{}
	svc, _ := newTestService(t, asst, exec, 3)

	reply, err := svc.HandleTurn(context.Background(), "s1", "what's the weather?")
	require.NoError(t, err)
	assert.Equal(t, assistant.IntentNotRelevant, reply.Status)
	assert.Equal(t, "I can only help with click data.", reply.Message)
	assert.Equal(t, "s1", reply.SessionID)
	assert.Empty(t, exec.executed)
}

func TestHandleTurn_ClarificationThenAnswer(t *testing.T) {
	const final = "How many clicks by media source in October 2025?"

	asst := &scriptedAssistant{intents: []*assistant.Intent{
		ask(clarification.FieldMissingCriticalField, "Which dimension?"),
		ask(clarification.FieldMissingDate, "Which dates?"),
		{Status: assistant.IntentImproved, FinalQuestion: final},
	}}
	exec := &fakeExecutor{}
	svc, tracker := newTestService(t, asst, exec, 3)
	ctx := context.Background()

	reply, err := svc.HandleTurn(ctx, "s1", "How many clicks?")
	require.NoError(t, err)
	assert.Equal(t, "Which dimension?", reply.Message)
	require.NotNil(t, reply.Clarification)
	assert.Equal(t, clarification.OutcomeAsk, reply.Clarification.Outcome)

	reply, err = svc.HandleTurn(ctx, "s1", "by media source")
	require.NoError(t, err)
	assert.Equal(t, "Which dates?", reply.Message)
	assert.Equal(t, clarification.FieldMissingCriticalField, reply.Clarification.Detected)

	st, err := tracker.Get(ctx, "How many clicks?")
	require.NoError(t, err)
	assert.Equal(t, 0, st.TotalAttempts)
	assert.Equal(t, clarification.FieldMissingDate, st.AwaitingField)
	assert.True(t, st.SatisfiedFields.Has(clarification.FieldMissingCriticalField))
	assert.Equal(t, "How many clicks filtered by media source", st.ClarifiedQuestion)

	reply, err = svc.HandleTurn(ctx, "s1", "October 2025")
	require.NoError(t, err)
	assert.Equal(t, assistant.IntentImproved, reply.Status)
	assert.Equal(t, final, reply.FinalQuestion)
	assert.Contains(t, reply.Message, "**Query returned 2 rows**")
	assert.Contains(t, reply.Message, "facebook")
	assert.Equal(t, []string{final}, exec.questions)

	st, err = tracker.Get(ctx, "How many clicks?")
	require.NoError(t, err)
	assert.Equal(t, clarification.FieldNone, st.AwaitingField)
	assert.Equal(t, 0, st.TotalAttempts)

	assert.Equal(t, []string{"How many clicks?", "by media source", "October 2025"}, asst.transcripts[2])
}

func TestHandleTurn_Exhaustion(t *testing.T) {
	asst := &scriptedAssistant{intents: []*assistant.Intent{
		ask(clarification.FieldMissingDate, "Which dates?"),
		ask(clarification.FieldMissingDate, "Which dates?"),
		ask(clarification.FieldMissingDate, "Which dates?"),
		{Status: assistant.IntentNotRelevant, MessageToUser: "fresh"},
	}}
	svc, tracker := newTestService(t, asst, &fakeExecutor{}, 2)
	ctx := context.Background()

	_, err := svc.HandleTurn(ctx, "s1", "clicks by partner")
	require.NoError(t, err)

	reply, err := svc.HandleTurn(ctx, "s1", "hmm")
	require.NoError(t, err)
	assert.Equal(t, clarification.OutcomeAsk, reply.Clarification.Outcome)
	assert.Equal(t, 1, reply.Clarification.State.TotalAttempts)

	reply, err = svc.HandleTurn(ctx, "s1", "dunno")
	require.NoError(t, err)
	assert.Equal(t, clarification.OutcomeExhausted, reply.Clarification.Outcome)
	assert.Equal(t, fmt.Sprintf(ExhaustedFormat, 2), reply.Message)
	assert.Contains(t, reply.Message, "unable to resolve your request after 2 clarification attempts")

	st, err := tracker.Get(ctx, "clicks by partner")
	require.NoError(t, err)
	assert.Equal(t, clarification.FieldNone, st.AwaitingField)

	_, err = svc.HandleTurn(ctx, "s1", "new question")
	require.NoError(t, err)
	assert.Equal(t, []string{"new question"}, asst.transcripts[3])
}

func TestHandleTurn_ValidationRejected(t *testing.T) {
	const final = "How many clicks in October 2025?"

	asst := &scriptedAssistant{
		intents: []*assistant.Intent{{Status: assistant.IntentImproved, FinalQuestion: final}},
		validateFn: func(string) *assistant.Validation {
			return &assistant.Validation{
				Status:            assistant.ValidationRejected,
				ClarificationType: clarification.FieldMissingCriticalField,
				Message:           "Please specify media_source, app_id, partner, or site_id.",
			}
		},
	}
	exec := &fakeExecutor{}
	svc, tracker := newTestService(t, asst, exec, 3)
	ctx := context.Background()

	reply, err := svc.HandleTurn(ctx, "s1", "clicks in october 2025")
	require.NoError(t, err)
	assert.Equal(t, assistant.IntentNeedsClarification, reply.Status)
	assert.Equal(t, "Please specify media_source, app_id, partner, or site_id.", reply.Message)
	assert.Empty(t, exec.executed)

	st, err := tracker.Get(ctx, final)
	require.NoError(t, err)
	assert.Equal(t, clarification.FieldMissingCriticalField, st.AwaitingField)
}

func TestHandleTurn_Fallback(t *testing.T) {
	tests := []struct {
		name string
		gen  *assistant.Generation
	}{
		{name: "sentinel", gen: &assistant.Generation{SQL: assistant.FallbackNoExecution}},
		{name: "empty", gen: &assistant.Generation{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			asst := &scriptedAssistant{
				intents:    []*assistant.Intent{{Status: assistant.IntentImproved, FinalQuestion: "delete all clicks yesterday by partner"}},
				generateFn: func(string) *assistant.Generation { return tt.gen },
			}
			exec := &fakeExecutor{}
			svc, _ := newTestService(t, asst, exec, 3)

			reply, err := svc.HandleTurn(context.Background(), "s1", "delete all clicks")
			require.NoError(t, err)
			assert.Equal(t, UnableToGenerate, reply.Message)
			assert.Empty(t, exec.executed)
		})
	}
}

func TestHandleTurn_OutputTables(t *testing.T) {
	asst := &scriptedAssistant{
		intents: []*assistant.Intent{{Status: assistant.IntentAnomaly, FinalQuestion: "Hourly click anomaly detection by media_source"}},
		generateFn: func(string) *assistant.Generation {
			return &assistant.Generation{
				SQL:          "CREATE TABLE scores AS SELECT 1",
				OutputTables: []string{"db.scores", "db.details"},
			}
		},
	}
	exec := &fakeExecutor{}
	svc, _ := newTestService(t, asst, exec, 3)

	reply, err := svc.HandleTurn(context.Background(), "s1", "any anomalies?")
	require.NoError(t, err)
	assert.Equal(t, assistant.IntentAnomaly, reply.Status)
	assert.Equal(t, []string{"CREATE TABLE scores AS SELECT 1"}, exec.executed)
	assert.Equal(t, []string{"db.scores", "db.details"}, exec.previewed)
	assert.Contains(t, reply.Message, "### db.scores")
	assert.Contains(t, reply.Message, "### db.details")
	assert.Contains(t, reply.Message, "0.93")
	assert.True(t, strings.HasPrefix(reply.Message, TablesCreatedHeader+"\n- db.scores\n- db.details"))
}

func TestHandleTurn_OutputTablePreviewFailure(t *testing.T) {
	asst := &scriptedAssistant{
		intents: []*assistant.Intent{{Status: assistant.IntentAnomaly, FinalQuestion: "Hourly click anomaly detection by media_source"}},
		generateFn: func(string) *assistant.Generation {
			return &assistant.Generation{
				SQL:          "CREATE TABLE scores AS SELECT 1",
				OutputTables: []string{"db.scores", "db.details"},
			}
		},
	}
	exec := &fakeExecutor{previewErr: map[string]error{"db.details": errors.New("table not found")}}
	svc, _ := newTestService(t, asst, exec, 3)

	reply, err := svc.HandleTurn(context.Background(), "s1", "any anomalies?")
	require.NoError(t, err)
	assert.Equal(t, []string{"db.scores", "db.details"}, exec.previewed)

	scores := strings.Index(reply.Message, "### db.scores")
	details := strings.Index(reply.Message, "### db.details")
	require.GreaterOrEqual(t, scores, 0)
	require.Greater(t, details, scores)

	assert.Contains(t, reply.Message[scores:details], "0.93")
	assert.Contains(t, reply.Message[details:], "Could not fetch table data: table not found")
}

func TestHandleTurn_ExecutionError(t *testing.T) {
	asst := &scriptedAssistant{intents: []*assistant.Intent{
		{Status: assistant.IntentImproved, FinalQuestion: "clicks by partner yesterday"},
	}}
	execErr := &gateway.ExecutionError{Kind: gateway.KindPermission, Err: errors.New("denied")}
	svc, _ := newTestService(t, asst, &fakeExecutor{err: execErr}, 3)

	_, err := svc.HandleTurn(context.Background(), "s1", "clicks by partner yesterday")
	require.Error(t, err)

	kind, ok := gateway.KindOf(err)
	require.True(t, ok)
	assert.Equal(t, gateway.KindPermission, kind)
}

func TestHandleTurn_EmptyMessage(t *testing.T) {
	svc, _ := newTestService(t, &scriptedAssistant{}, &fakeExecutor{}, 3)

	_, err := svc.HandleTurn(context.Background(), "s1", "   ")
	require.ErrorIs(t, err, ErrEmptyMessage)
}

func TestHandleTurn_NewSessionID(t *testing.T) {
	asst := &scriptedAssistant{intents: []*assistant.Intent{
		{Status: assistant.IntentNotRelevant, MessageToUser: "a"},
		{Status: assistant.IntentNotRelevant, MessageToUser: "b"},
	}}
	svc, _ := newTestService(t, asst, &fakeExecutor{}, 3)
	ctx := context.Background()

	first, err := svc.HandleTurn(ctx, "", "hello")
	require.NoError(t, err)
	second, err := svc.HandleTurn(ctx, "", "hello again")
	require.NoError(t, err)

	assert.NotEmpty(t, first.SessionID)
	assert.NotEqual(t, first.SessionID, second.SessionID)
	assert.Equal(t, 2, svc.Sessions())
	assert.Equal(t, []string{"hello again"}, asst.transcripts[1])

	svc.EndSession(first.SessionID)
	assert.Equal(t, 1, svc.Sessions())
}

func TestHandleTurn_TranscriptLimit(t *testing.T) {
	asst := &scriptedAssistant{}
	for range 4 {
		asst.intents = append(asst.intents, &assistant.Intent{Status: assistant.IntentNotRelevant})
	}

	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)
	tracker := clarification.NewTracker(logger, &clarification.Config{}, clarification.NewMemoryStore())
	svc := NewService(logger, &Config{SessionTTL: time.Minute, MaxTranscript: 2}, asst, tracker, &fakeExecutor{}, nil)

	for _, msg := range []string{"one", "two", "three", "four"} {
		_, err := svc.HandleTurn(context.Background(), "s1", msg)
		require.NoError(t, err)
	}

	assert.Equal(t, []string{"three", "four"}, asst.transcripts[3])
}

func TestHandleTurn_SessionsSerialized(t *testing.T) {
	asst := &scriptedAssistant{}
	for range 20 {
		asst.intents = append(asst.intents, &assistant.Intent{Status: assistant.IntentNotRelevant})
	}

	svc, _ := newTestService(t, asst, &fakeExecutor{}, 3)

	var wg sync.WaitGroup

	for i := range 20 {
		wg.Add(1)

		go func() {
			defer wg.Done()

			_, err := svc.HandleTurn(context.Background(), "shared", fmt.Sprintf("message %d", i))
			assert.NoError(t, err)
		}()
	}

	wg.Wait()

	lengths := make(map[int]bool)
	for _, tr := range asst.transcripts {
		lengths[len(tr)] = true
	}

	assert.Len(t, lengths, 20)
}
