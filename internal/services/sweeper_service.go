package services

import (
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"

	"github.com/staysync/booking-backend/internal/config"
	"github.com/staysync/booking-backend/internal/database"
)

// SweeperService runs the scheduled stay-completion sweep: confirmed
// bookings whose check-out has passed are moved to completed so stale
// confirmed rows never keep blocking availability.
type SweeperService struct {
	bookingRepo *database.BookingRepository
	config      config.SweeperConfig
	logger      *logrus.Logger
	cron        *cron.Cron
}

// NewSweeperService creates a new SweeperService
func NewSweeperService(bookingRepo *database.BookingRepository, cfg config.SweeperConfig, logger *logrus.Logger) *SweeperService {
	// Seconds-precision schedule expressions
	c := cron.New(cron.WithSeconds())

	return &SweeperService{
		bookingRepo: bookingRepo,
		config:      cfg,
		logger:      logger,
		cron:        c,
	}
}

// Start schedules the sweep job
func (s *SweeperService) Start() error {
	if !s.config.Enabled {
		s.logger.Info("Stay-completion sweeper disabled")
		return nil
	}

	_, err := s.cron.AddFunc(s.config.Schedule, s.sweepJob)
	if err != nil {
		return fmt.Errorf("failed to schedule stay-completion sweep: %w", err)
	}

	s.cron.Start()
	s.logger.WithField("schedule", s.config.Schedule).Info("Stay-completion sweeper started")
	return nil
}

// Stop stops the scheduler and waits for a running sweep to finish
func (s *SweeperService) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	s.logger.Info("Stay-completion sweeper stopped")
}

func (s *SweeperService) sweepJob() {
	startTime := time.Now()

	completed, err := s.Sweep()
	if err != nil {
		s.logger.WithError(err).Error("Stay-completion sweep failed")
		return
	}

	s.logger.WithFields(logrus.Fields{
		"completed": completed,
		"duration":  time.Since(startTime).String(),
	}).Info("Stay-completion sweep finished")
}

// Sweep completes all confirmed bookings whose stay is over and returns how
// many rows were moved. Also callable one-shot from the maintenance CLI.
func (s *SweeperService) Sweep() (int64, error) {
	return s.bookingRepo.CompletePastStays(time.Now().UTC())
}
