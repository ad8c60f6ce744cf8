package querycache

import (
	"context"
	"time"

	"github.com/ethpandaops/clickguard/pkg/keylock"
	"github.com/ethpandaops/clickguard/pkg/observability"
	"github.com/jonboulle/clockwork"
	"github.com/sirupsen/logrus"
)

// Stats is a read-only snapshot of both indices
type Stats struct {
	QuestionCacheSize  int      `json:"question_cache_size"`  //nolint:tagliatelle // public stats shape
	SQLCacheSize       int      `json:"sql_cache_size"`       //nolint:tagliatelle // public stats shape
	SampleQuestionKeys []string `json:"sample_question_keys"` //nolint:tagliatelle // public stats shape
	SampleSQLKeys      []string `json:"sample_sql_keys"`      //nolint:tagliatelle // public stats shape
}

// Option configures a Store
type Option func(*Store)

// WithClock replaces the wall clock used for stored-at times and expiry
func WithClock(clock clockwork.Clock) Option {
	return func(s *Store) {
		s.clock = clock
	}
}

// WithClassifier replaces the default cacheability rule table
func WithClassifier(c *Classifier) Option {
	return func(s *Store) {
		s.classifier = c
	}
}

// Store is the dual-index result cache. The question index is consulted
// before the SQL index. Backend failures are logged and treated as misses,
// so callers never see an error from a lookup.
type Store struct {
	log        logrus.FieldLogger
	ttl        time.Duration
	clock      clockwork.Clock
	classifier *Classifier
	locks      *keylock.Striped
	indices    map[IndexName]Index
}

// NewStore creates a cache store over the two indices
func NewStore(log logrus.FieldLogger, cfg *Config, byQuestion, bySQL Index, opts ...Option) *Store {
	cfg.SetDefaults()

	s := &Store{
		log:        log.WithField("component", "querycache"),
		ttl:        cfg.TTL,
		clock:      clockwork.NewRealClock(),
		classifier: defaultClassifier,
		locks:      keylock.New(cfg.LockStripes),
		indices: map[IndexName]Index{
			IndexQuestion: byQuestion,
			IndexSQL:      bySQL,
		},
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// NewMemoryStore creates a store backed by two in-memory indices
func NewMemoryStore(log logrus.FieldLogger, cfg *Config, opts ...Option) *Store {
	return NewStore(log, cfg, NewMemoryIndex(), NewMemoryIndex(), opts...)
}

// TTL returns the configured maximum entry age
func (s *Store) TTL() time.Duration {
	return s.ttl
}

// IsCacheable reports whether sql would be stored
func (s *Store) IsCacheable(sql string) bool {
	return s.classifier.IsCacheable(sql)
}

// Explain reports the verdict and the rule that decided it
func (s *Store) Explain(sql string) (bool, string) {
	return s.classifier.Explain(sql)
}

// Lookup returns a cached entry for question, falling back to sql. Stale
// keys found along the way are evicted before the map is consulted.
func (s *Store) Lookup(ctx context.Context, sql, question string) (*Entry, Source, bool) {
	if key := NormalizeQuestion(question); key != "" {
		if entry, ok := s.lookup(ctx, IndexQuestion, key); ok {
			observability.RecordCacheLookup("hit", string(SourceQuestion))

			return entry, SourceQuestion, true
		}
	}

	if key := NormalizeSQL(sql); key != "" {
		if entry, ok := s.lookup(ctx, IndexSQL, key); ok {
			observability.RecordCacheLookup("hit", string(SourceSQL))

			return entry, SourceSQL, true
		}
	}

	observability.RecordCacheLookup("miss", "")

	return nil, SourceNone, false
}

// Store saves entry under sql and, if question is non-empty, under question.
// Non-cacheable SQL is ignored.
func (s *Store) Store(ctx context.Context, sql, question string, entry *Entry) {
	if entry == nil || !s.classifier.IsCacheable(sql) {
		return
	}

	now := s.clock.Now()

	if key := NormalizeSQL(sql); key != "" {
		s.put(ctx, IndexSQL, key, entry, now)
	}

	if key := NormalizeQuestion(question); key != "" {
		s.put(ctx, IndexQuestion, key, entry, now)
	}
}

// ExpireIfStale removes key from index when it is older than the TTL at now.
// It reports whether a removal happened.
func (s *Store) ExpireIfStale(ctx context.Context, index IndexName, key string, now time.Time) bool {
	idx, ok := s.indices[index]
	if !ok {
		return false
	}

	unlock := s.locks.Lock(lockKey(index, key))
	defer unlock()

	return s.expireLocked(ctx, idx, index, key, now)
}

// Stats returns the size of each index and a few sample keys
func (s *Store) Stats(ctx context.Context) Stats {
	stats := Stats{
		SampleQuestionKeys: []string{},
		SampleSQLKeys:      []string{},
	}

	stats.QuestionCacheSize, stats.SampleQuestionKeys = s.indexStats(ctx, IndexQuestion)
	stats.SQLCacheSize, stats.SampleSQLKeys = s.indexStats(ctx, IndexSQL)

	return stats
}

// Clear removes every entry from both indices
func (s *Store) Clear(ctx context.Context) error {
	for name, idx := range s.indices {
		if err := idx.Flush(ctx); err != nil {
			return err
		}

		s.log.WithField("index", name).Info("Flushed cache index")
	}

	return nil
}

func (s *Store) lookup(ctx context.Context, index IndexName, key string) (*Entry, bool) {
	idx := s.indices[index]

	unlock := s.locks.Lock(lockKey(index, key))
	defer unlock()

	entry, storedAt, ok, err := idx.Get(ctx, key)
	if err != nil {
		s.backendError(err, "get", index, key)

		return nil, false
	}

	if !ok {
		return nil, false
	}

	if s.isStale(storedAt, s.clock.Now()) {
		s.remove(ctx, idx, index, key)

		return nil, false
	}

	s.log.WithFields(logrus.Fields{"index": index, "key": key}).Debug("Cache hit")

	return entry, true
}

func (s *Store) put(ctx context.Context, index IndexName, key string, entry *Entry, now time.Time) {
	unlock := s.locks.Lock(lockKey(index, key))
	defer unlock()

	if err := s.indices[index].Put(ctx, key, entry, now); err != nil {
		s.backendError(err, "put", index, key)

		return
	}

	observability.RecordCacheStore(string(index))
}

func (s *Store) expireLocked(ctx context.Context, idx Index, index IndexName, key string, now time.Time) bool {
	storedAt, ok, err := idx.StoredAt(ctx, key)
	if err != nil {
		s.backendError(err, "stored_at", index, key)

		return false
	}

	if !ok || !s.isStale(storedAt, now) {
		return false
	}

	return s.remove(ctx, idx, index, key)
}

func (s *Store) remove(ctx context.Context, idx Index, index IndexName, key string) bool {
	if err := idx.Remove(ctx, key); err != nil {
		s.backendError(err, "remove", index, key)

		return false
	}

	observability.RecordCacheEviction(string(index))
	s.log.WithFields(logrus.Fields{"index": index, "key": key}).Debug("Evicted stale cache entry")

	return true
}

func (s *Store) isStale(storedAt, now time.Time) bool {
	return now.Sub(storedAt) > s.ttl
}

func (s *Store) indexStats(ctx context.Context, index IndexName) (int, []string) {
	idx := s.indices[index]

	size, err := idx.Len(ctx)
	if err != nil {
		s.backendError(err, "len", index, "")
	}

	keys, err := idx.SampleKeys(ctx, sampleKeyLimit)
	if err != nil {
		s.backendError(err, "sample", index, "")
	}

	if keys == nil {
		keys = []string{}
	}

	return size, keys
}

func (s *Store) backendError(err error, op string, index IndexName, key string) {
	observability.RecordCacheBackendError(op)
	s.log.WithError(err).WithFields(logrus.Fields{
		"op":    op,
		"index": index,
		"key":   key,
	}).Warn("Cache backend failure, treating as miss")
}

func lockKey(index IndexName, key string) string {
	return string(index) + "\x00" + key
}
