package store

import (
	"context"
	"encoding/json"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/fbecker/strategraph/pkg/errors"
)

// RedisStore persists documents in Redis. Each document is a JSON value
// under prefix+ID, with a sorted-set index scored by update time so
// cleanup can range over stale entries without scanning every key.
type RedisStore struct {
	client *redis.Client
	prefix string
}

type RedisOption func(*RedisStore)

// WithRedisPrefix overrides the key prefix.
func WithRedisPrefix(prefix string) RedisOption {
	return func(s *RedisStore) { s.prefix = prefix }
}

// NewRedisStore connects to Redis at address. The connection is lazy;
// the first operation reports connectivity errors.
func NewRedisStore(address, password string, db int, opts ...RedisOption) *RedisStore {
	client := redis.NewClient(&redis.Options{
		Addr:     address,
		Password: password,
		DB:       db,
	})
	return NewRedisStoreFromClient(client, opts...)
}

// NewRedisStoreFromClient wraps an existing client.
func NewRedisStoreFromClient(client *redis.Client, opts ...RedisOption) *RedisStore {
	s := &RedisStore{
		client: client,
		prefix: "strategraph:doc:",
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *RedisStore) key(id string) string { return s.prefix + id }
func (s *RedisStore) indexKey() string     { return s.prefix + "index" }

func (s *RedisStore) Get(ctx context.Context, id string) (*Document, error) {
	if err := validateID(id); err != nil {
		return nil, err
	}

	raw, err := s.client.Get(ctx, s.key(id)).Result()
	if err != nil {
		if err == redis.Nil {
			return nil, notFound(id)
		}
		return nil, errors.Wrap(errors.ErrCodeStore, err, "read document %s", id)
	}

	var doc Document
	if err := json.Unmarshal([]byte(raw), &doc); err != nil {
		return nil, errors.Wrap(errors.ErrCodeStore, err, "parse document %s", id)
	}
	return &doc, nil
}

func (s *RedisStore) Put(ctx context.Context, doc *Document) error {
	if err := stamp(doc); err != nil {
		return err
	}
	raw, err := json.Marshal(doc)
	if err != nil {
		return errors.Wrap(errors.ErrCodeStore, err, "encode document %s", doc.ID)
	}

	pipe := s.client.Pipeline()
	pipe.Set(ctx, s.key(doc.ID), raw, 0)
	pipe.ZAdd(ctx, s.indexKey(), redis.Z{
		Score:  float64(doc.UpdatedAt.UnixMilli()),
		Member: doc.ID,
	})
	if _, err := pipe.Exec(ctx); err != nil {
		return errors.Wrap(errors.ErrCodeStore, err, "write document %s", doc.ID)
	}
	return nil
}

func (s *RedisStore) Delete(ctx context.Context, id string) error {
	if err := validateID(id); err != nil {
		return err
	}

	pipe := s.client.Pipeline()
	pipe.Del(ctx, s.key(id))
	pipe.ZRem(ctx, s.indexKey(), id)
	if _, err := pipe.Exec(ctx); err != nil {
		return errors.Wrap(errors.ErrCodeStore, err, "delete document %s", id)
	}
	return nil
}

func (s *RedisStore) List(ctx context.Context) ([]Summary, error) {
	ids, err := s.client.ZRange(ctx, s.indexKey(), 0, -1).Result()
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeStore, err, "list documents")
	}
	if len(ids) == 0 {
		return []Summary{}, nil
	}

	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = s.key(id)
	}
	values, err := s.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeStore, err, "fetch documents")
	}

	out := make([]Summary, 0, len(values))
	for _, v := range values {
		raw, ok := v.(string)
		if !ok {
			// Index entry with no value, removed out of band.
			continue
		}
		var doc Document
		if err := json.Unmarshal([]byte(raw), &doc); err != nil {
			continue
		}
		out = append(out, summarize(&doc))
	}
	sortSummaries(out)
	return out, nil
}

func (s *RedisStore) Cleanup(ctx context.Context, olderThan time.Duration) error {
	if olderThan <= 0 {
		return nil
	}
	cutoff := time.Now().Add(-olderThan)

	ids, err := s.client.ZRangeByScore(ctx, s.indexKey(), &redis.ZRangeBy{
		Min: "-inf",
		Max: strconv.FormatInt(cutoff.UnixMilli(), 10),
	}).Result()
	if err != nil {
		return errors.Wrap(errors.ErrCodeStore, err, "scan stale documents")
	}

	for _, id := range ids {
		doc, err := s.Get(ctx, id)
		if err != nil {
			if IsNotFound(err) {
				s.client.ZRem(ctx, s.indexKey(), id)
				continue
			}
			return err
		}
		if doc.Draft() {
			if err := s.Delete(ctx, id); err != nil {
				return err
			}
		}
	}
	return nil
}

func (s *RedisStore) Close() error { return s.client.Close() }

var _ Store = (*RedisStore)(nil)
