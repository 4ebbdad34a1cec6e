package scheduler

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"
)

var ErrClosed = errors.New("scheduler is shut down")

// Job runs once when its timer fires. A returned error is logged and the job
// is dropped.
type Job func(ctx context.Context) error

type KeyRegistry interface {
	Reserve(ctx context.Context, key string, ttl time.Duration) (bool, error)
	Release(ctx context.Context, key string) error
}

type Options struct {
	JobTimeout time.Duration
	KeyTTL     time.Duration
}

type entry struct {
	key   string
	runAt time.Time
	timer *time.Timer
}

// Scheduler is a single-shot deferred executor keyed by job name. Scheduling
// a key that is already pending is a no-op, so callers can register the same
// transition more than once without duplicating work.
type Scheduler struct {
	registry KeyRegistry
	logger   *zap.Logger
	opts     Options
	now      func() time.Time

	mu      sync.Mutex
	pending map[string]*entry
	closed  bool
	running sync.WaitGroup

	baseCtx context.Context
	cancel  context.CancelFunc
}

func New(registry KeyRegistry, logger *zap.Logger, opts Options) *Scheduler {
	if opts.JobTimeout <= 0 {
		opts.JobTimeout = 30 * time.Second
	}
	if opts.KeyTTL <= 0 {
		opts.KeyTTL = 24 * time.Hour
	}
	if registry == nil {
		registry = NewLocalKeyRegistry()
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Scheduler{
		registry: registry,
		logger:   logger,
		opts:     opts,
		now:      time.Now,
		pending:  make(map[string]*entry),
		baseCtx:  ctx,
		cancel:   cancel,
	}
}

// Schedule registers job under key to run at runAt. It reports false when the
// key is already pending here or reserved by another process.
func (s *Scheduler) Schedule(ctx context.Context, key string, runAt time.Time, job Job) (bool, error) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return false, ErrClosed
	}
	if _, ok := s.pending[key]; ok {
		s.mu.Unlock()
		return false, nil
	}
	s.mu.Unlock()

	// The registry may be remote; it is not consulted under s.mu.
	ttl := s.opts.KeyTTL
	if until := runAt.Sub(s.now()); until+s.opts.JobTimeout > ttl {
		ttl = until + s.opts.JobTimeout
	}
	reserved, err := s.registry.Reserve(ctx, key, ttl)
	if err != nil {
		return false, err
	}
	if !reserved {
		s.logger.Debug("job key already reserved", zap.String("jobKey", key))
		return false, nil
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		s.release(ctx, key)
		return false, ErrClosed
	}
	if _, ok := s.pending[key]; ok {
		// The concurrent caller's entry now owns the reservation.
		s.mu.Unlock()
		return false, nil
	}

	delay := runAt.Sub(s.now())
	if delay < 0 {
		delay = 0
	}

	e := &entry{key: key, runAt: runAt}
	s.pending[key] = e
	e.timer = time.AfterFunc(delay, func() { s.fire(e, job) })
	s.mu.Unlock()

	s.logger.Debug("job scheduled", zap.String("jobKey", key), zap.Time("runAt", runAt))
	return true, nil
}

func (s *Scheduler) release(ctx context.Context, key string) {
	if err := s.registry.Release(ctx, key); err != nil {
		s.logger.Warn("failed to release job key", zap.String("jobKey", key), zap.Error(err))
	}
}

// Cancel removes a pending job. It reports whether one was pending.
func (s *Scheduler) Cancel(ctx context.Context, key string) bool {
	s.mu.Lock()
	e, ok := s.pending[key]
	if ok {
		delete(s.pending, key)
		e.timer.Stop()
	}
	s.mu.Unlock()

	if !ok {
		return false
	}

	s.release(ctx, key)
	s.logger.Debug("job cancelled", zap.String("jobKey", key))
	return true
}

func (s *Scheduler) Pending(key string) (time.Time, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.pending[key]
	if !ok {
		return time.Time{}, false
	}
	return e.runAt, true
}

func (s *Scheduler) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.pending)
}

func (s *Scheduler) fire(e *entry, job Job) {
	s.mu.Lock()
	if s.closed || s.pending[e.key] != e {
		s.mu.Unlock()
		return
	}
	delete(s.pending, e.key)
	s.running.Add(1)
	s.mu.Unlock()

	defer s.running.Done()

	// Release first so the job can re-register its own key.
	s.release(s.baseCtx, e.key)

	ctx, cancel := context.WithTimeout(s.baseCtx, s.opts.JobTimeout)
	defer cancel()

	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("job panicked", zap.String("jobKey", e.key), zap.Any("panic", r))
		}
	}()

	if err := job(ctx); err != nil {
		s.logger.Error("job failed", zap.String("jobKey", e.key), zap.Error(err))
		return
	}
	s.logger.Debug("job completed", zap.String("jobKey", e.key))
}

// Shutdown stops pending timers and waits for running jobs until ctx is done.
// Pending jobs are dropped.
func (s *Scheduler) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	dropped := make([]string, 0, len(s.pending))
	for key, e := range s.pending {
		e.timer.Stop()
		dropped = append(dropped, key)
	}
	s.pending = make(map[string]*entry)
	s.mu.Unlock()

	for _, key := range dropped {
		s.release(ctx, key)
	}
	if len(dropped) > 0 {
		s.logger.Info("dropped pending jobs", zap.Int("count", len(dropped)))
	}

	done := make(chan struct{})
	go func() {
		s.running.Wait()
		close(done)
	}()

	select {
	case <-done:
		s.cancel()
		return nil
	case <-ctx.Done():
		s.cancel()
		return ctx.Err()
	}
}
