package cache

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func openTestStore(t *testing.T) (*Store, *time.Time) {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "cache.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	now := time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return now }
	return s, &now
}

func TestOpen_RequiresPath(t *testing.T) {
	_, err := Open("  ")
	require.Error(t, err)
}

func TestStore_SetGetExpire(t *testing.T) {
	ctx := context.Background()
	s, now := openTestStore(t)

	_, ok, err := s.Get(ctx, "event:1")
	require.NoError(t, err)
	require.False(t, ok)

	require.NoError(t, s.Set(ctx, "event:1", []byte(`{"id":"1"}`), time.Minute))
	got, ok, err := s.Get(ctx, "event:1")
	require.NoError(t, err)
	require.True(t, ok)
	require.JSONEq(t, `{"id":"1"}`, string(got))

	// Overwrite keeps a single row with the new payload.
	require.NoError(t, s.Set(ctx, "event:1", []byte(`{"id":"2"}`), time.Minute))
	got, _, err = s.Get(ctx, "event:1")
	require.NoError(t, err)
	require.JSONEq(t, `{"id":"2"}`, string(got))

	*now = now.Add(time.Minute)
	_, ok, err = s.Get(ctx, "event:1")
	require.NoError(t, err)
	require.False(t, ok)

	n, err := s.PurgeExpired(ctx)
	require.NoError(t, err)
	require.Equal(t, int64(1), n)
}

func TestStore_Delete(t *testing.T) {
	ctx := context.Background()
	s, _ := openTestStore(t)

	for _, k := range []string{"event:1", "event:stats:1", "events:upcoming"} {
		require.NoError(t, s.Set(ctx, k, []byte("x"), time.Hour))
	}
	require.NoError(t, s.Delete(ctx, "event:1", "event:stats:1", "never-set"))
	require.NoError(t, s.Delete(ctx))

	_, ok, err := s.Get(ctx, "event:1")
	require.NoError(t, err)
	require.False(t, ok)
	_, ok, err = s.Get(ctx, "events:upcoming")
	require.NoError(t, err)
	require.True(t, ok)
}

func TestStore_SetRejectsBadInput(t *testing.T) {
	ctx := context.Background()
	s, _ := openTestStore(t)
	require.Error(t, s.Set(ctx, "", []byte("x"), time.Minute))
	require.Error(t, s.Set(ctx, "k", []byte("x"), 0))
}

func TestStore_RunJanitor(t *testing.T) {
	s, now := openTestStore(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	require.NoError(t, s.Set(ctx, "event:1", []byte("x"), time.Second))
	*now = now.Add(time.Hour)

	done := make(chan struct{})
	go func() {
		s.RunJanitor(ctx, 10*time.Millisecond, slog.New(slog.NewTextHandler(io.Discard, nil)))
		close(done)
	}()

	require.Eventually(t, func() bool {
		var n int
		if err := s.sqlDB.QueryRow(`SELECT COUNT(*) FROM cache_entries`).Scan(&n); err != nil {
			return false
		}
		return n == 0
	}, 2*time.Second, 10*time.Millisecond)

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("janitor did not stop after cancel")
	}
}

func TestStore_Pragmas(t *testing.T) {
	s, _ := openTestStore(t)

	var mode string
	require.NoError(t, s.sqlDB.QueryRow(`PRAGMA journal_mode`).Scan(&mode))
	require.Equal(t, "wal", mode)

	var timeout int
	require.NoError(t, s.sqlDB.QueryRow(`PRAGMA busy_timeout`).Scan(&timeout))
	require.Equal(t, 5000, timeout)
}

func TestStore_ConcurrentSetDelete(t *testing.T) {
	ctx := context.Background()
	s, _ := openTestStore(t)

	const workers, rounds = 16, 100
	errs := make(chan error, workers*rounds*2)
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < rounds; i++ {
				key := fmt.Sprintf("event:%d", (w+i)%4)
				if err := s.Set(ctx, key, []byte("x"), time.Hour); err != nil {
					errs <- err
				}
				if err := s.Delete(ctx, key); err != nil {
					errs <- err
				}
			}
		}(w)
	}
	wg.Wait()
	close(errs)

	var failed []error
	for err := range errs {
		failed = append(failed, err)
	}
	require.Empty(t, failed)
}
