// Package scheduler runs the background jobs of the bookings service.
package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/ahmadyateem/meeting-room-reservation/internal/logger"
	"github.com/ahmadyateem/meeting-room-reservation/internal/repository"
	queue_publisher "github.com/ahmadyateem/meeting-room-reservation/internal/service"
)

// Sweeper periodically closes out bookings whose end time has passed:
// confirmed bookings become completed and pending ones become no_show.
// Closed-out bookings leave the active set, so stale rows can never
// block a new reservation.
type Sweeper struct {
	bookings *repository.BookingRepo
	cron     *cron.Cron
}

// NewSweeper builds a sweeper over the booking repository.
func NewSweeper(bookings *repository.BookingRepo) *Sweeper {
	return &Sweeper{
		bookings: bookings,
		cron:     cron.New(),
	}
}

// Start registers the sweep job and launches the scheduler. The sweep
// is idempotent, so overlapping runs across service instances are
// harmless.
func (s *Sweeper) Start() error {
	if _, err := s.cron.AddFunc("@every 1m", s.sweep); err != nil {
		return err
	}
	s.cron.Start()
	logger.Info("completion sweeper started", map[string]any{"interval": "1m"})
	return nil
}

// Stop halts the scheduler and waits for a running sweep to finish.
func (s *Sweeper) Stop() {
	<-s.cron.Stop().Done()
}

func (s *Sweeper) sweep() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	completed, noShow, err := s.bookings.SweepFinished(ctx, time.Now().UTC())
	if err != nil {
		logger.Error("completion sweep failed", map[string]any{"error": err.Error()})
		_ = queue_publisher.PublishSystemAlert(ctx, fmt.Sprintf("booking completion sweep failed: %v", err))
		return
	}
	if completed > 0 || noShow > 0 {
		logger.Info("completion sweep", map[string]any{
			"completed": completed,
			"no_show":   noShow,
		})
	}
}
