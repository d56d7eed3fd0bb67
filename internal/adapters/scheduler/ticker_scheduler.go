package scheduler

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/mikey/mail-sorter/internal/core"
)

// HandlerFunc is the work a trigger runs
type HandlerFunc func(ctx context.Context) error

type job struct {
	interval time.Duration
	cancel   context.CancelFunc
	done     chan struct{}
}

// TickerScheduler runs registered handlers on tickers inside the process.
// Runs of one handler never overlap.
type TickerScheduler struct {
	logger   *zap.Logger
	base     context.Context
	mu       sync.Mutex
	handlers map[string]HandlerFunc
	jobs     map[string]*job
}

// NewTickerScheduler creates a scheduler whose jobs stop when ctx is done
func NewTickerScheduler(ctx context.Context, logger *zap.Logger) *TickerScheduler {
	return &TickerScheduler{
		logger:   logger,
		base:     ctx,
		handlers: make(map[string]HandlerFunc),
		jobs:     make(map[string]*job),
	}
}

// Register makes a handler schedulable by name
func (s *TickerScheduler) Register(name string, fn HandlerFunc) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.handlers[name] = fn
}

// ListScheduled returns the running triggers sorted by name
func (s *TickerScheduler) ListScheduled(ctx context.Context) ([]core.ScheduledHandler, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]core.ScheduledHandler, 0, len(s.jobs))
	for name, j := range s.jobs {
		out = append(out, core.ScheduledHandler{HandlerName: name, Interval: j.interval})
	}
	sort.Slice(out, func(i, k int) bool { return out[i].HandlerName < out[k].HandlerName })
	return out, nil
}

// Schedule starts running a registered handler every interval,
// replacing any previous trigger for it
func (s *TickerScheduler) Schedule(ctx context.Context, name string, interval time.Duration) error {
	if interval <= 0 {
		return fmt.Errorf("invalid interval %s for %s", interval, name)
	}

	s.mu.Lock()
	fn, ok := s.handlers[name]
	if !ok {
		s.mu.Unlock()
		return fmt.Errorf("unknown handler %q", name)
	}
	previous := s.jobs[name]
	jobCtx, cancel := context.WithCancel(s.base)
	j := &job{interval: interval, cancel: cancel, done: make(chan struct{})}
	s.jobs[name] = j
	s.mu.Unlock()

	if previous != nil {
		previous.cancel()
		<-previous.done
	}

	go s.run(jobCtx, name, fn, j)
	s.logger.Info("Handler scheduled", zap.String("handler", name), zap.Duration("interval", interval))
	return nil
}

// Unschedule stops a trigger; unknown names are ignored
func (s *TickerScheduler) Unschedule(ctx context.Context, name string) error {
	s.mu.Lock()
	j, ok := s.jobs[name]
	delete(s.jobs, name)
	s.mu.Unlock()

	if ok {
		j.cancel()
		<-j.done
		s.logger.Info("Handler unscheduled", zap.String("handler", name))
	}
	return nil
}

// Stop cancels every trigger and waits for running handlers
func (s *TickerScheduler) Stop() {
	s.mu.Lock()
	jobs := s.jobs
	s.jobs = make(map[string]*job)
	s.mu.Unlock()

	for _, j := range jobs {
		j.cancel()
		<-j.done
	}
}

func (s *TickerScheduler) run(ctx context.Context, name string, fn HandlerFunc, j *job) {
	defer close(j.done)

	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			start := time.Now()
			if err := fn(ctx); err != nil {
				s.logger.Error("Scheduled handler failed", zap.String("handler", name), zap.Error(err))
				continue
			}
			s.logger.Debug("Scheduled handler finished",
				zap.String("handler", name),
				zap.Duration("elapsed", time.Since(start)))
		case <-ctx.Done():
			return
		}
	}
}
