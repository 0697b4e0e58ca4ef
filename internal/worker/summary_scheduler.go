package worker

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/isnex/invoice-loader/internal/application/port"
)

// SummarySender sends the digests of one UTC day for every tenant
type SummarySender interface {
	SendAll(ctx context.Context, day time.Time) ([]*port.DailySummary, error)
}

// SummaryScheduler sends the daily summary once a day at a fixed UTC time
type SummaryScheduler struct {
	sender  SummarySender
	at      time.Duration // offset from UTC midnight
	timeout time.Duration
	now     func() time.Time
	logger  *zap.Logger

	mu      sync.Mutex
	running bool
	cancel  context.CancelFunc
	done    chan struct{}
}

// NewSummaryScheduler creates a scheduler firing at the given "HH:MM" UTC
func NewSummaryScheduler(sender SummarySender, at string, logger *zap.Logger) (*SummaryScheduler, error) {
	offset, err := ParseTimeOfDay(at)
	if err != nil {
		return nil, err
	}
	return &SummaryScheduler{
		sender:  sender,
		at:      offset,
		timeout: 2 * time.Minute,
		now:     time.Now,
		logger:  logger,
	}, nil
}

// ParseTimeOfDay converts "HH:MM" into an offset from midnight
func ParseTimeOfDay(s string) (time.Duration, error) {
	t, err := time.Parse("15:04", s)
	if err != nil {
		return 0, fmt.Errorf("invalid time of day %q, want HH:MM", s)
	}
	return time.Duration(t.Hour())*time.Hour + time.Duration(t.Minute())*time.Minute, nil
}

// Name returns the worker name for identification
func (s *SummaryScheduler) Name() string {
	return "SummaryScheduler"
}

// Start launches the schedule loop
func (s *SummaryScheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return fmt.Errorf("summary scheduler is already running")
	}

	ctx, s.cancel = context.WithCancel(ctx)
	s.done = make(chan struct{})
	s.running = true

	next := s.nextRun(s.now())
	s.logger.Info("SummaryScheduler started", zap.Time("next_run", next))

	go s.loop(ctx, next)
	return nil
}

// Stop cancels the loop and waits for a running send to finish
func (s *SummaryScheduler) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	s.cancel()
	done := s.done
	s.mu.Unlock()

	<-done
	s.logger.Info("SummaryScheduler stopped")
}

// nextRun returns the first scheduled instant strictly after now
func (s *SummaryScheduler) nextRun(now time.Time) time.Time {
	now = now.UTC()
	midnight := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	next := midnight.Add(s.at)
	if !next.After(now) {
		next = midnight.AddDate(0, 0, 1).Add(s.at)
	}
	return next
}

func (s *SummaryScheduler) loop(ctx context.Context, next time.Time) {
	defer close(s.done)

	timer := time.NewTimer(time.Until(next))
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-timer.C:
			s.fire(ctx, next)
			next = s.nextRun(s.now())
			timer.Reset(time.Until(next))
		}
	}
}

// fire sends the summaries of the day containing the scheduled instant
func (s *SummaryScheduler) fire(ctx context.Context, scheduled time.Time) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	summaries, err := s.sender.SendAll(ctx, scheduled)
	if err != nil {
		s.logger.Error("Scheduled daily summary failed",
			zap.Time("day", scheduled),
			zap.Int("sent", len(summaries)),
			zap.Error(err))
		return
	}
	s.logger.Info("Scheduled daily summary sent",
		zap.Time("day", scheduled),
		zap.Int("tenants", len(summaries)))
}
