package task

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	keyPrefix      = "bookgraph:task:"
	maxTxAttempts  = 10
	defaultTaskTTL = 24 * time.Hour
)

// RedisStore shares tasks between the API server and workers. Each task is
// one JSON value that expires after the TTL.
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
}

var _ Store = (*RedisStore)(nil)

// NewRedisStore returns a store on client. A ttl of zero keeps tasks for a day.
func NewRedisStore(client *redis.Client, ttl time.Duration) *RedisStore {
	if ttl <= 0 {
		ttl = defaultTaskTTL
	}
	return &RedisStore{client: client, ttl: ttl}
}

func (s *RedisStore) Create(ctx context.Context) (Task, error) {
	t := newTask(time.Now())
	data, err := json.Marshal(t)
	if err != nil {
		return Task{}, err
	}
	if err := s.client.Set(ctx, keyPrefix+t.ID, data, s.ttl).Err(); err != nil {
		return Task{}, fmt.Errorf("failed to create task: %w", err)
	}
	return t, nil
}

func (s *RedisStore) Get(ctx context.Context, id string) (Task, error) {
	data, err := s.client.Get(ctx, keyPrefix+id).Bytes()
	if err == redis.Nil {
		return Task{}, ErrNotFound
	}
	if err != nil {
		return Task{}, fmt.Errorf("failed to get task: %w", err)
	}
	var t Task
	if err := json.Unmarshal(data, &t); err != nil {
		return Task{}, fmt.Errorf("failed to unmarshal task: %w", err)
	}
	return t, nil
}

// Update reads, mutates and writes the task under WATCH so concurrent
// writers retry instead of overwriting each other.
func (s *RedisStore) Update(ctx context.Context, id string, fn Mutation) (Task, error) {
	key := keyPrefix + id
	var updated Task

	txf := func(tx *redis.Tx) error {
		data, err := tx.Get(ctx, key).Bytes()
		if err == redis.Nil {
			return ErrNotFound
		}
		if err != nil {
			return err
		}
		var t Task
		if err := json.Unmarshal(data, &t); err != nil {
			return fmt.Errorf("failed to unmarshal task: %w", err)
		}
		if err := fn(&t); err != nil {
			return err
		}
		t.UpdatedAt = time.Now()
		out, err := json.Marshal(t)
		if err != nil {
			return err
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, out, s.ttl)
			return nil
		})
		if err == nil {
			updated = t
		}
		return err
	}

	for range maxTxAttempts {
		err := s.client.Watch(ctx, txf, key)
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		if err != nil {
			return Task{}, err
		}
		return updated, nil
	}
	return Task{}, fmt.Errorf("update task %s: too much contention", id)
}
