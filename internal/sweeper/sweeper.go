// Package sweeper periodically completes active bookings whose end time has
// passed.
package sweeper

import (
	"context"
	"log"
	"time"

	"parking-share-backend/config"
)

// Sweeper completes expired active bookings and reports how many moved.
type Sweeper interface {
	SweepExpiredActive(ctx context.Context) (int64, error)
}

// Service runs a Sweeper on a fixed interval.
type Service struct {
	cfg     config.SweeperConfig
	sweeper Sweeper
	onSwept func(n int64)
}

// NewService creates a sweeper service.
func NewService(cfg config.SweeperConfig, s Sweeper) *Service {
	return &Service{cfg: cfg, sweeper: s}
}

// OnSwept registers fn to run after every sweep that completed bookings.
func (s *Service) OnSwept(fn func(n int64)) *Service {
	s.onSwept = fn
	return s
}

// Run sweeps once immediately and then on every interval until ctx is done.
func (s *Service) Run(ctx context.Context) {
	if !s.cfg.Enabled {
		log.Println("Booking sweeper is disabled. Not starting.")
		return
	}
	log.Printf("Starting booking sweeper, interval %s", s.cfg.Interval)

	s.SweepOnce(ctx)

	timer := time.NewTimer(s.cfg.Interval)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Println("Booking sweeper shutting down.")
			return
		case <-timer.C:
			s.SweepOnce(ctx)
			timer.Reset(s.cfg.Interval)
		}
	}
}

// SweepOnce runs a single sweep. Failures are logged and retried on the
// next tick.
func (s *Service) SweepOnce(ctx context.Context) int64 {
	n, err := s.sweeper.SweepExpiredActive(ctx)
	if err != nil {
		log.Printf("Error completing expired bookings: %v", err)
		return 0
	}
	if n > 0 {
		log.Printf("Completed %d expired bookings", n)
		if s.onSwept != nil {
			s.onSwept(n)
		}
	}
	return n
}
