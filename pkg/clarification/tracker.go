package clarification

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ethpandaops/clickguard/pkg/keylock"
	"github.com/ethpandaops/clickguard/pkg/observability"
	"github.com/ethpandaops/clickguard/pkg/querycache"
	"github.com/jonboulle/clockwork"
	"github.com/sirupsen/logrus"
)

// ErrEmptyBaseQuestion is returned when a base question normalizes to nothing
var ErrEmptyBaseQuestion = errors.New("base question is required")

// Outcome is what the caller should do after an update
type Outcome string

// Update outcomes
const (
	// OutcomeAsk means a clarification is still outstanding
	OutcomeAsk Outcome = "ask"
	// OutcomeResolved means nothing is missing any more
	OutcomeResolved Outcome = "resolved"
	// OutcomeExhausted means the attempt ceiling was reached. The caller
	// must stop asking and answer with a terminal message.
	OutcomeExhausted Outcome = "exhausted"
)

// Decision is the result of one Update
type Decision struct {
	Outcome   Outcome `json:"outcome"`
	Requested Field   `json:"requested"`
	Detected  Field   `json:"detected"`
	State     State   `json:"state"`
}

// Option configures a Tracker
type Option func(*Tracker)

// WithClock replaces the wall clock
func WithClock(clock clockwork.Clock) Option {
	return func(t *Tracker) {
		t.clock = clock
	}
}

// WithDetector replaces the default rule table
func WithDetector(d *Detector) Option {
	return func(t *Tracker) {
		t.detector = d
	}
}

// Tracker holds clarification state per base question. Updates for the same
// question are serialized; different questions never share state.
type Tracker struct {
	log         logrus.FieldLogger
	store       StateStore
	detector    *Detector
	clock       clockwork.Clock
	locks       *keylock.Striped
	maxAttempts int
	stateTTL    time.Duration
}

// NewTracker creates a tracker persisting through store
func NewTracker(log logrus.FieldLogger, cfg *Config, store StateStore, opts ...Option) *Tracker {
	cfg.SetDefaults()

	t := &Tracker{
		log:         log.WithField("component", "clarification"),
		store:       store,
		detector:    defaultDetector,
		clock:       clockwork.NewRealClock(),
		locks:       keylock.New(cfg.LockStripes),
		maxAttempts: cfg.MaxAttempts,
		stateTTL:    cfg.StateTTL,
	}

	for _, opt := range opts {
		opt(t)
	}

	return t
}

// MaxAttempts returns the same-field attempt ceiling
func (t *Tracker) MaxAttempts() int {
	return t.maxAttempts
}

// DetectProvidedField classifies a reply against the awaited field
func (t *Tracker) DetectProvidedField(reply string, awaited Field) Field {
	return t.detector.Detect(reply, awaited)
}

// Get returns the state for base, or the zero state when none is outstanding
func (t *Tracker) Get(ctx context.Context, base string) (State, error) {
	key, err := stateKey(base)
	if err != nil {
		return State{}, err
	}

	unlock := t.locks.Lock(key)
	defer unlock()

	st, err := t.load(ctx, key)
	if err != nil {
		return State{}, err
	}

	if st == nil {
		return zeroState(base), nil
	}

	return *st, nil
}

// Update applies one conversation turn. requested is the field the intent
// step still reports missing after reply; FieldNone means nothing is.
func (t *Tracker) Update(ctx context.Context, base, reply string, requested Field) (Decision, error) {
	key, err := stateKey(base)
	if err != nil {
		return Decision{}, err
	}

	unlock := t.locks.Lock(key)
	defer unlock()

	st, err := t.load(ctx, key)
	if err != nil {
		return Decision{}, err
	}

	now := t.clock.Now()

	if st == nil {
		return t.begin(ctx, key, base, requested, now)
	}

	detected := t.detector.Detect(reply, st.AwaitingField)

	if requested != st.PreviousClarificationType {
		st.TotalAttempts = 0
	}

	if detected != requested {
		st.SatisfiedFields.Add(detected)
	} else {
		st.TotalAttempts++
	}

	st.ClarifiedQuestion = Compose(st.ClarifiedQuestion, reply, detected)
	st.AwaitingField = requested
	st.PreviousClarificationType = requested
	st.UpdatedAt = now

	decision := Decision{Requested: requested, Detected: detected}

	log := t.log.WithFields(logrus.Fields{
		"question":  key,
		"requested": requested,
		"detected":  detected,
		"attempts":  st.TotalAttempts,
	})

	switch {
	case requested == FieldNone:
		decision.Outcome = OutcomeResolved

		log.Debug("Clarification resolved")
	case st.TotalAttempts >= t.maxAttempts:
		decision.Outcome = OutcomeExhausted

		log.Info("Clarification attempts exhausted")
	default:
		decision.Outcome = OutcomeAsk

		if err := t.store.Save(ctx, key, st); err != nil {
			return Decision{}, fmt.Errorf("failed to save clarification state: %w", err)
		}

		log.Debug("Clarification still outstanding")
	}

	if decision.Outcome != OutcomeAsk {
		if err := t.store.Delete(ctx, key); err != nil {
			return Decision{}, fmt.Errorf("failed to delete clarification state: %w", err)
		}
	}

	decision.State = *st
	observability.RecordClarificationOutcome(string(decision.Outcome), requested.String())

	return decision, nil
}

// Clear deletes the state for base. Clearing a missing state is a no-op.
func (t *Tracker) Clear(ctx context.Context, base string) error {
	key, err := stateKey(base)
	if err != nil {
		return err
	}

	unlock := t.locks.Lock(key)
	defer unlock()

	return t.store.Delete(ctx, key)
}

// begin records the first request for a base question. The message that
// triggered it is the question itself, so nothing is detected.
func (t *Tracker) begin(ctx context.Context, key, base string, requested Field, now time.Time) (Decision, error) {
	st := zeroState(base)

	if requested == FieldNone {
		return Decision{Outcome: OutcomeResolved, Requested: FieldNone, Detected: FieldNone, State: st}, nil
	}

	st.AwaitingField = requested
	st.PreviousClarificationType = requested
	st.UpdatedAt = now

	if err := t.store.Save(ctx, key, &st); err != nil {
		return Decision{}, fmt.Errorf("failed to save clarification state: %w", err)
	}

	t.log.WithFields(logrus.Fields{
		"question":  key,
		"requested": requested,
	}).Debug("Clarification started")

	observability.RecordClarificationOutcome(string(OutcomeAsk), requested.String())

	return Decision{Outcome: OutcomeAsk, Requested: requested, Detected: FieldNone, State: st}, nil
}

// load returns the stored state, dropping it when it outlived the state TTL
func (t *Tracker) load(ctx context.Context, key string) (*State, error) {
	st, err := t.store.Load(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("failed to load clarification state: %w", err)
	}

	if st == nil {
		return nil, nil
	}

	if t.stateTTL > 0 && t.clock.Since(st.UpdatedAt) > t.stateTTL {
		if err := t.store.Delete(ctx, key); err != nil {
			return nil, fmt.Errorf("failed to delete clarification state: %w", err)
		}

		return nil, nil
	}

	if st.SatisfiedFields == nil {
		st.SatisfiedFields = FieldSet{}
	}

	return st, nil
}

func zeroState(base string) State {
	return State{
		BaseQuestion:      base,
		AwaitingField:     FieldNone,
		SatisfiedFields:   FieldSet{},
		ClarifiedQuestion: base,
	}
}

func stateKey(base string) (string, error) {
	key := querycache.NormalizeQuestion(base)
	if key == "" {
		return "", ErrEmptyBaseQuestion
	}

	return key, nil
}
