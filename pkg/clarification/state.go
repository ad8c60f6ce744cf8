package clarification

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// State is the clarification progress for one base question
type State struct {
	BaseQuestion              string    `json:"base_question"`                          //nolint:tagliatelle // persisted shape
	TotalAttempts             int       `json:"total_clarification_attempts"`           //nolint:tagliatelle // persisted shape
	AwaitingField             Field     `json:"awaiting_field"`                         //nolint:tagliatelle // persisted shape
	SatisfiedFields           FieldSet  `json:"satisfied_fields"`                       //nolint:tagliatelle // persisted shape
	PreviousClarificationType Field     `json:"previous_clarification_type,omitempty"` //nolint:tagliatelle // persisted shape
	ClarifiedQuestion         string    `json:"clarified_question"`                     //nolint:tagliatelle // persisted shape
	UpdatedAt                 time.Time `json:"updated_at"`                             //nolint:tagliatelle // persisted shape
}

// Clone returns a copy that shares no memory with s
func (s *State) Clone() *State {
	out := *s
	out.SatisfiedFields = s.SatisfiedFields.Clone()

	return &out
}

// StateStore persists clarification state by normalized base question.
// Load returns nil, nil when nothing is stored.
type StateStore interface {
	Load(ctx context.Context, key string) (*State, error)
	Save(ctx context.Context, key string, state *State) error
	Delete(ctx context.Context, key string) error
}

// MemoryStore is a process-local StateStore
type MemoryStore struct {
	mu     sync.RWMutex
	states map[string]*State
}

var _ StateStore = (*MemoryStore)(nil)

// NewMemoryStore creates an empty in-memory state store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{states: make(map[string]*State)}
}

// Load implements StateStore
func (m *MemoryStore) Load(_ context.Context, key string) (*State, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	st, ok := m.states[key]
	if !ok {
		return nil, nil
	}

	return st.Clone(), nil
}

// Save implements StateStore
func (m *MemoryStore) Save(_ context.Context, key string, state *State) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.states[key] = state.Clone()

	return nil
}

// Delete implements StateStore
func (m *MemoryStore) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.states, key)

	return nil
}

// RedisStore persists state as JSON strings that expire after ttl
type RedisStore struct {
	redisClient *redis.Client
	keyPrefix   string
	ttl         time.Duration
}

var _ StateStore = (*RedisStore)(nil)

// NewRedisStore creates a redis-backed state store
func NewRedisStore(redisClient *redis.Client, keyPrefix string, ttl time.Duration) *RedisStore {
	return &RedisStore{
		redisClient: redisClient,
		keyPrefix:   keyPrefix + "clarification:",
		ttl:         ttl,
	}
}

// Load implements StateStore
func (r *RedisStore) Load(ctx context.Context, key string) (*State, error) {
	data, err := r.redisClient.Get(ctx, r.keyPrefix+key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil // Nothing outstanding
		}

		return nil, err
	}

	var st State
	if err := json.Unmarshal([]byte(data), &st); err != nil {
		return nil, err
	}

	return &st, nil
}

// Save implements StateStore
func (r *RedisStore) Save(ctx context.Context, key string, state *State) error {
	data, err := json.Marshal(state)
	if err != nil {
		return err
	}

	return r.redisClient.Set(ctx, r.keyPrefix+key, data, r.ttl).Err()
}

// Delete implements StateStore
func (r *RedisStore) Delete(ctx context.Context, key string) error {
	return r.redisClient.Del(ctx, r.keyPrefix+key).Err()
}
