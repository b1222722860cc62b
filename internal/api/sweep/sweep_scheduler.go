package sweep

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// Scheduler runs the retention sweep on a fixed interval. Start and Stop are
// idempotent so a sloppy shutdown path cannot double-start or double-stop it.
type Scheduler struct {
	logger   *slog.Logger
	service  SweepService
	interval time.Duration

	mu      sync.Mutex
	cancel  context.CancelFunc
	done    chan struct{}
	running bool
}

func NewScheduler(service SweepService, interval time.Duration, logger *slog.Logger) *Scheduler {
	if interval <= 0 {
		interval = 24 * time.Hour
	}
	return &Scheduler{
		logger:   logger,
		service:  service,
		interval: interval,
	}
}

func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return
	}

	ctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.done = make(chan struct{})
	s.running = true

	s.logger.Info("Retention sweep scheduler started", slog.Duration("interval", s.interval))
	go s.loop(ctx)
}

func (s *Scheduler) loop(ctx context.Context) {
	defer close(s.done)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("Retention sweep scheduler stopped")
			return
		case <-ticker.C:
			if _, err := s.service.RunSweep(ctx); err != nil {
				s.logger.Error("Scheduled sweep run failed", slog.Any("error", err))
			}
		}
	}
}

// Stop cancels the loop and waits for an in-flight run to finish.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	cancel, done := s.cancel, s.done
	s.mu.Unlock()

	cancel()
	<-done
}
