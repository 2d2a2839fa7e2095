package task

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func stores(t *testing.T) map[string]Store {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	return map[string]Store{
		"memory": NewMemoryStore(),
		"redis":  NewRedisStore(client, time.Hour),
	}
}

func TestStoreLifecycle(t *testing.T) {
	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			created, err := s.Create(ctx)
			require.NoError(t, err)
			assert.NotEmpty(t, created.ID)
			assert.Equal(t, StatusProcessing, created.Status)
			assert.Equal(t, 0, created.Progress)
			assert.Equal(t, "Starting...", created.Message)

			_, err = s.Update(ctx, created.ID, Progress(42, "Analyzing chunk batch 2/4"))
			require.NoError(t, err)
			// going backwards keeps the percentage
			got, err := s.Update(ctx, created.ID, Progress(10, "late message"))
			require.NoError(t, err)
			assert.Equal(t, 42, got.Progress)
			assert.Equal(t, "late message", got.Message)

			done, err := s.Update(ctx, created.ID, Complete(map[string]int{"nodes": 3}))
			require.NoError(t, err)
			assert.Equal(t, StatusCompleted, done.Status)
			assert.Equal(t, 100, done.Progress)
			assert.JSONEq(t, `{"nodes": 3}`, string(done.Result))

			_, err = s.Update(ctx, created.ID, Fail(errors.New("too late")))
			require.ErrorIs(t, err, ErrFinished)

			fetched, err := s.Get(ctx, created.ID)
			require.NoError(t, err)
			assert.Equal(t, StatusCompleted, fetched.Status)
			assert.Empty(t, fetched.Error)
		})
	}
}

func TestStoreFail(t *testing.T) {
	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			created, err := s.Create(ctx)
			require.NoError(t, err)
			_, err = s.Update(ctx, created.ID, Progress(10, "Ingesting"))
			require.NoError(t, err)

			got, err := s.Update(ctx, created.ID, Fail(errors.New("Failed to extract text from file.")))
			require.NoError(t, err)
			assert.Equal(t, StatusFailed, got.Status)
			assert.Equal(t, "Failed to extract text from file.", got.Error)
			assert.Equal(t, 10, got.Progress)
		})
	}
}

func TestStoreUnknownTask(t *testing.T) {
	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			_, err := s.Get(ctx, "does-not-exist")
			require.ErrorIs(t, err, ErrNotFound)
			_, err = s.Update(ctx, "does-not-exist", Progress(5, "x"))
			require.ErrorIs(t, err, ErrNotFound)
		})
	}
}

func TestStoreConcurrentUpdates(t *testing.T) {
	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			created, err := s.Create(ctx)
			require.NoError(t, err)

			var wg sync.WaitGroup
			for p := 1; p <= 20; p++ {
				wg.Add(1)
				go func() {
					defer wg.Done()
					_, err := s.Update(ctx, created.ID, Progress(p, "step"))
					assert.NoError(t, err)
				}()
			}
			wg.Wait()

			got, err := s.Get(ctx, created.ID)
			require.NoError(t, err)
			assert.Equal(t, 20, got.Progress)
		})
	}
}

func TestRedisTaskExpires(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	s := NewRedisStore(client, time.Minute)
	created, err := s.Create(context.Background())
	require.NoError(t, err)

	mr.FastForward(2 * time.Minute)
	_, err = s.Get(context.Background(), created.ID)
	require.ErrorIs(t, err, ErrNotFound)
}
