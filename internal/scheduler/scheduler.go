package scheduler

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"
)

var (
	ErrInterval = errors.New("scheduler: interval must be > 0")
	ErrNoJob    = errors.New("scheduler: job must not be nil")
)

// Status is a point-in-time view of a Scheduler. Ticks counts job runs that
// returned normally; Panics counts the ones that did not.
type Status struct {
	Running  bool
	Ticks    uint64
	Panics   uint64
	LastTick time.Time
}

// Scheduler runs one job in its own goroutine: once right after Start, then
// again each interval after the previous run returns. Runs never overlap.
type Scheduler struct {
	name     string
	interval time.Duration
	job      func(context.Context)
	log      *slog.Logger

	mu   sync.Mutex
	halt context.CancelFunc
	done chan struct{}

	running  atomic.Bool
	ticks    atomic.Uint64
	panics   atomic.Uint64
	lastTick atomic.Int64
}

func New(name string, interval time.Duration, job func(context.Context)) (*Scheduler, error) {
	switch {
	case interval <= 0:
		return nil, ErrInterval
	case job == nil:
		return nil, ErrNoJob
	}
	return &Scheduler{
		name:     name,
		interval: interval,
		job:      job,
		log:      slog.With("component", "scheduler", "job", name),
	}, nil
}

// Start launches the loop and reports false if it was already running.
func (s *Scheduler) Start() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.halt != nil {
		return false
	}

	ctx, cancel := context.WithCancel(context.Background())
	s.halt, s.done = cancel, make(chan struct{})
	s.running.Store(true)
	go s.loop(ctx, s.done)

	s.log.Info("scheduler started", "interval", s.interval.String())
	return true
}

// Stop cancels the context handed to the job and blocks until the current
// run, if any, has returned. It reports false if nothing was running.
func (s *Scheduler) Stop() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.halt == nil {
		return false
	}

	s.halt()
	<-s.done
	s.halt, s.done = nil, nil
	s.running.Store(false)

	s.log.Info("scheduler stopped", "ticks", s.ticks.Load(), "panics", s.panics.Load())
	return true
}

func (s *Scheduler) Status() Status {
	st := Status{
		Running: s.running.Load(),
		Ticks:   s.ticks.Load(),
		Panics:  s.panics.Load(),
	}
	if ns := s.lastTick.Load(); ns != 0 {
		st.LastTick = time.Unix(0, ns)
	}
	return st
}

func (s *Scheduler) loop(ctx context.Context, done chan<- struct{}) {
	defer close(done)

	next := time.NewTimer(0)
	defer next.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-next.C:
			s.run(ctx)
			next.Reset(s.interval)
		}
	}
}

func (s *Scheduler) run(ctx context.Context) {
	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			s.panics.Add(1)
			s.log.Error("scheduled job panicked", "panic", r)
			return
		}
		s.ticks.Add(1)
		s.lastTick.Store(time.Now().UnixNano())
		s.log.Debug("scheduled job finished", "took", time.Since(start))
	}()
	s.job(ctx)
}
