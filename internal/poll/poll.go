package poll

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"
)

// Fetcher retrieves one snapshot of server state.
type Fetcher[T any] func(ctx context.Context) (T, error)

// Clock is the time source of a subscription. NewTimer returns the timer's
// channel and a function that stops it.
type Clock interface {
	Now() time.Time
	NewTimer(d time.Duration) (<-chan time.Time, func() bool)
}

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

func (realClock) NewTimer(d time.Duration) (<-chan time.Time, func() bool) {
	t := time.NewTimer(d)
	return t.C, t.Stop
}

// Status describes the health of a subscription.
type Status struct {
	// LastSuccess is when the last fetch succeeded; zero if none has.
	LastSuccess time.Time

	// LastError is the error of the most recent failed fetch. It is cleared
	// by the next success.
	LastError error

	// Failures counts consecutive failed fetches.
	Failures int

	// Stale is true when the last fetch failed or nothing has succeeded
	// for more than two intervals.
	Stale bool
}

type config struct {
	clock   Clock
	logger  *slog.Logger
	name    string
	onData  any
	onError func(error)
}

// Option configures a subscription.
type Option func(*config)

// WithClock sets the clock. Tests use a fake one.
func WithClock(c Clock) Option {
	return func(cfg *config) { cfg.clock = c }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(cfg *config) { cfg.logger = l }
}

// WithName labels the subscription in logs.
func WithName(name string) Option {
	return func(cfg *config) { cfg.name = name }
}

// OnData registers the callback that receives every successful fetch.
// T must match the subscription's value type.
func OnData[T any](fn func(T)) Option {
	return func(cfg *config) { cfg.onData = fn }
}

// OnError registers the callback that receives every failed fetch.
func OnError(fn func(error)) Option {
	return func(cfg *config) { cfg.onError = fn }
}

// Subscription is a running polling loop.
type Subscription[T any] struct {
	fetch    Fetcher[T]
	interval time.Duration
	clock    Clock
	logger   *slog.Logger
	onData   func(T)
	onError  func(error)

	cancel  context.CancelFunc
	refresh chan struct{}
	done    chan struct{}

	// deliver is held while results are stored and callbacks run.
	deliver    sync.Mutex
	delivering atomic.Bool
	cancelled  atomic.Bool

	mu         sync.Mutex
	started    time.Time
	latest     T
	hasData    bool
	lastOK     time.Time
	lastErr    error
	failures   int
	lastFailed bool
}

// Start begins polling fetch every interval until ctx is done or Cancel is
// called. The first fetch happens immediately.
//
// Start panics if interval is not positive or an OnData callback was
// registered for a different value type.
func Start[T any](ctx context.Context, fetch Fetcher[T], interval time.Duration, opts ...Option) *Subscription[T] {
	if interval <= 0 {
		panic(fmt.Sprintf("poll: non-positive interval %v", interval))
	}
	cfg := config{clock: realClock{}, logger: slog.Default(), name: "poll"}
	for _, opt := range opts {
		opt(&cfg)
	}

	s := &Subscription[T]{
		fetch:    fetch,
		interval: interval,
		clock:    cfg.clock,
		logger:   cfg.logger.With("subscription", cfg.name),
		onError:  cfg.onError,
		refresh:  make(chan struct{}, 1),
		done:     make(chan struct{}),
	}
	if cfg.onData != nil {
		fn, ok := cfg.onData.(func(T))
		if !ok {
			panic(fmt.Sprintf("poll: OnData callback %T does not accept %T", cfg.onData, *new(T)))
		}
		s.onData = fn
	}
	s.started = s.clock.Now()

	ctx, s.cancel = context.WithCancel(ctx)
	go s.run(ctx)
	return s
}

// Cancel stops the subscription. It is safe to call more than once and
// from inside a callback. Once Cancel returns no further callback starts
// and no further result is stored.
func (s *Subscription[T]) Cancel() {
	s.cancelled.Store(true)
	s.cancel()
	if s.delivering.Load() {
		// Either we are inside a callback, or one began before Cancel.
		return
	}
	// Wait out a delivery that has not reached its cancel check yet.
	s.deliver.Lock()
	s.deliver.Unlock()
}

// Refresh asks for an immediate fetch. Requests made while a fetch is in
// flight collapse into a single follow-up fetch.
func (s *Subscription[T]) Refresh() {
	select {
	case s.refresh <- struct{}{}:
	default:
	}
}

// Done is closed when the loop has exited.
func (s *Subscription[T]) Done() <-chan struct{} {
	return s.done
}

// Latest returns the last successfully fetched value. ok is false until a
// fetch has succeeded.
func (s *Subscription[T]) Latest() (value T, ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.latest, s.hasData
}

// Status reports the subscription's health.
func (s *Subscription[T]) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()

	since := s.started
	if !s.lastOK.IsZero() {
		since = s.lastOK
	}
	return Status{
		LastSuccess: s.lastOK,
		LastError:   s.lastErr,
		Failures:    s.failures,
		Stale:       s.lastFailed || s.clock.Now().Sub(since) > 2*s.interval,
	}
}

func (s *Subscription[T]) run(ctx context.Context) {
	defer close(s.done)
	for {
		s.tick(ctx)
		timer, stop := s.clock.NewTimer(s.interval)
		select {
		case <-ctx.Done():
			stop()
			return
		case <-s.refresh:
			stop()
		case <-timer:
		}
	}
}

func (s *Subscription[T]) tick(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}
	v, err := s.fetch(ctx)

	s.deliver.Lock()
	defer s.deliver.Unlock()
	s.delivering.Store(true)
	defer s.delivering.Store(false)

	if s.cancelled.Load() || ctx.Err() != nil {
		s.logger.Debug("discarding result after cancel")
		return
	}

	if err != nil {
		s.mu.Lock()
		s.lastErr = err
		s.failures++
		s.lastFailed = true
		failures := s.failures
		s.mu.Unlock()

		s.logger.Warn("poll failed", "failures", failures, "error", err)
		if s.onError != nil {
			s.onError(err)
		}
		return
	}

	s.mu.Lock()
	s.latest = v
	s.hasData = true
	s.lastOK = s.clock.Now()
	s.lastErr = nil
	s.failures = 0
	s.lastFailed = false
	s.mu.Unlock()

	if s.onData != nil {
		s.onData(v)
	}
}
