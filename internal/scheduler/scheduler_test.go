package scheduler

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestScheduler(registry KeyRegistry) *Scheduler {
	return New(registry, zap.NewNop(), Options{JobTimeout: time.Second, KeyTTL: time.Minute})
}

type mockKeyRegistry struct {
	ReserveFunc func(ctx context.Context, key string, ttl time.Duration) (bool, error)
	ReleaseFunc func(ctx context.Context, key string) error
}

func (m *mockKeyRegistry) Reserve(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	return m.ReserveFunc(ctx, key, ttl)
}

func (m *mockKeyRegistry) Release(ctx context.Context, key string) error {
	return m.ReleaseFunc(ctx, key)
}

func TestSchedule_RunsJobAtTime(t *testing.T) {
	s := newTestScheduler(nil)
	defer s.Shutdown(context.Background())

	var ran atomic.Int32
	ok, err := s.Schedule(context.Background(), "order:1:being_prepared", time.Now().Add(10*time.Millisecond), func(ctx context.Context) error {
		ran.Add(1)
		return nil
	})
	require.NoError(t, err)
	assert.True(t, ok)

	require.Eventually(t, func() bool { return ran.Load() == 1 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, 0, s.Len())
}

func TestSchedule_PastTimeRunsImmediately(t *testing.T) {
	s := newTestScheduler(nil)
	defer s.Shutdown(context.Background())

	done := make(chan struct{})
	_, err := s.Schedule(context.Background(), "order:2:being_prepared", time.Now().Add(-time.Minute), func(ctx context.Context) error {
		close(done)
		return nil
	})
	require.NoError(t, err)

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("job did not run")
	}
}

func TestSchedule_DuplicateKeyIsNoop(t *testing.T) {
	s := newTestScheduler(nil)
	defer s.Shutdown(context.Background())

	runAt := time.Now().Add(time.Hour)
	noop := func(ctx context.Context) error { return nil }

	first, err := s.Schedule(context.Background(), "order:3:delivered", runAt, noop)
	require.NoError(t, err)
	second, err := s.Schedule(context.Background(), "order:3:delivered", runAt.Add(time.Minute), noop)
	require.NoError(t, err)

	assert.True(t, first)
	assert.False(t, second)

	pendingAt, ok := s.Pending("order:3:delivered")
	assert.True(t, ok)
	assert.Equal(t, runAt, pendingAt)
}

func TestCancel_PreventsRun(t *testing.T) {
	s := newTestScheduler(nil)
	defer s.Shutdown(context.Background())

	var ran atomic.Bool
	_, err := s.Schedule(context.Background(), "order:4:being_delivered", time.Now().Add(30*time.Millisecond), func(ctx context.Context) error {
		ran.Store(true)
		return nil
	})
	require.NoError(t, err)

	assert.True(t, s.Cancel(context.Background(), "order:4:being_delivered"))
	assert.False(t, s.Cancel(context.Background(), "order:4:being_delivered"))

	time.Sleep(80 * time.Millisecond)
	assert.False(t, ran.Load())
}

func TestCancel_FreesKeyForReschedule(t *testing.T) {
	s := newTestScheduler(nil)
	defer s.Shutdown(context.Background())

	noop := func(ctx context.Context) error { return nil }
	_, err := s.Schedule(context.Background(), "order:5:delivered", time.Now().Add(time.Hour), noop)
	require.NoError(t, err)
	s.Cancel(context.Background(), "order:5:delivered")

	ok, err := s.Schedule(context.Background(), "order:5:delivered", time.Now().Add(time.Hour), noop)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestJob_CanRescheduleOwnKey(t *testing.T) {
	s := newTestScheduler(nil)
	defer s.Shutdown(context.Background())

	var runs atomic.Int32
	var job Job
	job = func(ctx context.Context) error {
		if runs.Add(1) == 1 {
			ok, err := s.Schedule(ctx, "order:6:being_delivered", time.Now().Add(5*time.Millisecond), job)
			if err != nil || !ok {
				return errors.New("reschedule rejected")
			}
		}
		return nil
	}

	_, err := s.Schedule(context.Background(), "order:6:being_delivered", time.Now(), job)
	require.NoError(t, err)

	require.Eventually(t, func() bool { return runs.Load() == 2 }, time.Second, 5*time.Millisecond)
}

func TestJob_ErrorIsNotRetried(t *testing.T) {
	s := newTestScheduler(nil)
	defer s.Shutdown(context.Background())

	var runs atomic.Int32
	_, err := s.Schedule(context.Background(), "order:7:delivered", time.Now(), func(ctx context.Context) error {
		runs.Add(1)
		return errors.New("database unavailable")
	})
	require.NoError(t, err)

	require.Eventually(t, func() bool { return runs.Load() == 1 }, time.Second, 5*time.Millisecond)
	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, int32(1), runs.Load())
	assert.Equal(t, 0, s.Len())
}

func TestSchedule_RegistryRejects(t *testing.T) {
	registry := &mockKeyRegistry{
		ReserveFunc: func(ctx context.Context, key string, ttl time.Duration) (bool, error) {
			return false, nil
		},
		ReleaseFunc: func(ctx context.Context, key string) error { return nil },
	}
	s := newTestScheduler(registry)
	defer s.Shutdown(context.Background())

	ok, err := s.Schedule(context.Background(), "order:8:being_prepared", time.Now(), func(ctx context.Context) error { return nil })
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, 0, s.Len())
}

func TestSchedule_RegistryError(t *testing.T) {
	registry := &mockKeyRegistry{
		ReserveFunc: func(ctx context.Context, key string, ttl time.Duration) (bool, error) {
			return false, errors.New("redis down")
		},
		ReleaseFunc: func(ctx context.Context, key string) error { return nil },
	}
	s := newTestScheduler(registry)
	defer s.Shutdown(context.Background())

	ok, err := s.Schedule(context.Background(), "order:9:being_prepared", time.Now(), func(ctx context.Context) error { return nil })
	assert.Error(t, err)
	assert.False(t, ok)
}

func TestSchedule_SlowRegistryDoesNotBlockOtherKeys(t *testing.T) {
	entered := make(chan struct{})
	unblock := make(chan struct{})
	registry := &mockKeyRegistry{
		ReserveFunc: func(ctx context.Context, key string, ttl time.Duration) (bool, error) {
			if key == "order:20:being_delivered" {
				close(entered)
				<-unblock
			}
			return true, nil
		},
		ReleaseFunc: func(ctx context.Context, key string) error { return nil },
	}
	s := newTestScheduler(registry)
	defer s.Shutdown(context.Background())

	_, err := s.Schedule(context.Background(), "order:21:delivered", time.Now().Add(time.Hour), func(ctx context.Context) error { return nil })
	require.NoError(t, err)

	scheduled := make(chan bool, 1)
	go func() {
		ok, _ := s.Schedule(context.Background(), "order:20:being_delivered", time.Now().Add(time.Hour), func(ctx context.Context) error { return nil })
		scheduled <- ok
	}()
	<-entered

	done := make(chan struct{})
	go func() {
		_, _ = s.Pending("order:21:delivered")
		s.Cancel(context.Background(), "order:21:delivered")
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("cancel blocked while another key was being reserved")
	}

	close(unblock)
	assert.True(t, <-scheduled)
	_, pending := s.Pending("order:20:being_delivered")
	assert.True(t, pending)
}

func TestSchedule_ShutdownDuringReserveReleasesKey(t *testing.T) {
	entered := make(chan struct{})
	unblock := make(chan struct{})
	var released atomic.Bool
	registry := &mockKeyRegistry{
		ReserveFunc: func(ctx context.Context, key string, ttl time.Duration) (bool, error) {
			close(entered)
			<-unblock
			return true, nil
		},
		ReleaseFunc: func(ctx context.Context, key string) error {
			released.Store(true)
			return nil
		},
	}
	s := newTestScheduler(registry)

	errCh := make(chan error, 1)
	go func() {
		_, err := s.Schedule(context.Background(), "order:22:delivered", time.Now(), func(ctx context.Context) error { return nil })
		errCh <- err
	}()
	<-entered

	require.NoError(t, s.Shutdown(context.Background()))
	close(unblock)

	assert.ErrorIs(t, <-errCh, ErrClosed)
	assert.True(t, released.Load())
	assert.Equal(t, 0, s.Len())
}

func TestShutdown_WaitsForRunningJob(t *testing.T) {
	s := newTestScheduler(nil)

	started := make(chan struct{})
	var finished atomic.Bool
	_, err := s.Schedule(context.Background(), "order:10:delivered", time.Now(), func(ctx context.Context) error {
		close(started)
		time.Sleep(30 * time.Millisecond)
		finished.Store(true)
		return nil
	})
	require.NoError(t, err)
	<-started

	require.NoError(t, s.Shutdown(context.Background()))
	assert.True(t, finished.Load())

	_, err = s.Schedule(context.Background(), "order:11:delivered", time.Now(), func(ctx context.Context) error { return nil })
	assert.ErrorIs(t, err, ErrClosed)
}

func TestShutdown_DropsPendingJobs(t *testing.T) {
	var released sync.Map
	registry := &mockKeyRegistry{
		ReserveFunc: func(ctx context.Context, key string, ttl time.Duration) (bool, error) { return true, nil },
		ReleaseFunc: func(ctx context.Context, key string) error {
			released.Store(key, true)
			return nil
		},
	}
	s := newTestScheduler(registry)

	_, err := s.Schedule(context.Background(), "order:12:delivered", time.Now().Add(time.Hour), func(ctx context.Context) error { return nil })
	require.NoError(t, err)

	require.NoError(t, s.Shutdown(context.Background()))
	assert.Equal(t, 0, s.Len())
	_, ok := released.Load("order:12:delivered")
	assert.True(t, ok)
}

func TestLocalKeyRegistry_Expiry(t *testing.T) {
	r := NewLocalKeyRegistry()
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	r.now = func() time.Time { return now }

	ok, _ := r.Reserve(context.Background(), "k", time.Minute)
	assert.True(t, ok)
	ok, _ = r.Reserve(context.Background(), "k", time.Minute)
	assert.False(t, ok)

	now = now.Add(2 * time.Minute)
	ok, _ = r.Reserve(context.Background(), "k", time.Minute)
	assert.True(t, ok)
}
