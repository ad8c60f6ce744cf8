package querycache

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisIndex persists an Index in Redis as a hash of serialized entries and
// a sorted set scoring each key by its stored-at time in milliseconds. Both
// structures are written and trimmed in one MULTI/EXEC transaction.
type RedisIndex struct {
	client    *redis.Client
	valuesKey string
	storedKey string
}

var _ Index = (*RedisIndex)(nil)

// NewRedisIndex creates an index stored under keyPrefix
func NewRedisIndex(client *redis.Client, keyPrefix string, name IndexName) *RedisIndex {
	return &RedisIndex{
		client:    client,
		valuesKey: fmt.Sprintf("%scache:%s:values", keyPrefix, name),
		storedKey: fmt.Sprintf("%scache:%s:stored", keyPrefix, name),
	}
}

// Get implements Index
func (r *RedisIndex) Get(ctx context.Context, key string) (*Entry, time.Time, bool, error) {
	var (
		valueCmd *redis.StringCmd
		scoreCmd *redis.FloatCmd
	)

	_, err := r.client.Pipelined(ctx, func(pipe redis.Pipeliner) error {
		valueCmd = pipe.HGet(ctx, r.valuesKey, key)
		scoreCmd = pipe.ZScore(ctx, r.storedKey, key)

		return nil
	})
	if err != nil && !errors.Is(err, redis.Nil) {
		return nil, time.Time{}, false, err
	}

	data, valueErr := valueCmd.Bytes()
	score, scoreErr := scoreCmd.Result()

	switch {
	case errors.Is(valueErr, redis.Nil) && errors.Is(scoreErr, redis.Nil):
		return nil, time.Time{}, false, nil
	case errors.Is(valueErr, redis.Nil) || errors.Is(scoreErr, redis.Nil):
		// Half-written key; drop both sides so the maps stay paired
		return nil, time.Time{}, false, r.Remove(ctx, key)
	case valueErr != nil:
		return nil, time.Time{}, false, valueErr
	case scoreErr != nil:
		return nil, time.Time{}, false, scoreErr
	}

	entry, err := decodeEntry(data)
	if err != nil {
		return nil, time.Time{}, false, fmt.Errorf("failed to decode entry %q: %w", key, err)
	}

	return entry, time.UnixMilli(int64(score)), true, nil
}

// StoredAt implements Index
func (r *RedisIndex) StoredAt(ctx context.Context, key string) (time.Time, bool, error) {
	score, err := r.client.ZScore(ctx, r.storedKey, key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return time.Time{}, false, nil
		}

		return time.Time{}, false, err
	}

	return time.UnixMilli(int64(score)), true, nil
}

// Put implements Index
func (r *RedisIndex) Put(ctx context.Context, key string, entry *Entry, storedAt time.Time) error {
	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("failed to encode entry %q: %w", key, err)
	}

	_, err = r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, r.valuesKey, key, data)
		pipe.ZAdd(ctx, r.storedKey, redis.Z{Score: float64(storedAt.UnixMilli()), Member: key})

		return nil
	})

	return err
}

// Remove implements Index
func (r *RedisIndex) Remove(ctx context.Context, key string) error {
	_, err := r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HDel(ctx, r.valuesKey, key)
		pipe.ZRem(ctx, r.storedKey, key)

		return nil
	})

	return err
}

// Len implements Index
func (r *RedisIndex) Len(ctx context.Context) (int, error) {
	n, err := r.client.HLen(ctx, r.valuesKey).Result()

	return int(n), err
}

// SampleKeys implements Index
func (r *RedisIndex) SampleKeys(ctx context.Context, n int) ([]string, error) {
	if n <= 0 {
		return nil, nil
	}

	return r.client.ZRange(ctx, r.storedKey, 0, int64(n-1)).Result()
}

// Flush implements Index
func (r *RedisIndex) Flush(ctx context.Context) error {
	return r.client.Del(ctx, r.valuesKey, r.storedKey).Err()
}

// decodeEntry keeps numbers as json.Number so integer counts survive the
// round trip without float conversion.
func decodeEntry(data []byte) (*Entry, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var entry Entry
	if err := dec.Decode(&entry); err != nil {
		return nil, err
	}

	return &entry, nil
}
