package services

import (
	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

// Schedules use six-field cron expressions (with seconds).
const (
	checkInSchedule     = "0 0 * * * *"   // hourly, on the hour
	checkOutSchedule    = "0 59 23 * * *" // daily, end of day
	offerExpirySchedule = "0 59 23 * * *" // daily, end of day
)

// LifecycleCronService runs the scheduled booking transitions: hourly
// check-in of due bookings and the end-of-day checkout and offer expiry
// pass.
type LifecycleCronService struct {
	cron     *cron.Cron
	bookings *BookingService
	logger   *logrus.Logger
}

// NewLifecycleCronService creates a new LifecycleCronService
func NewLifecycleCronService(bookings *BookingService, logger *logrus.Logger) *LifecycleCronService {
	return &LifecycleCronService{
		cron:     cron.New(cron.WithSeconds()),
		bookings: bookings,
		logger:   logger,
	}
}

// Start registers the jobs and starts the scheduler.
func (s *LifecycleCronService) Start() error {
	if _, err := s.cron.AddFunc(checkInSchedule, func() {
		s.bookings.CheckInDueBookings()
	}); err != nil {
		return err
	}
	if _, err := s.cron.AddFunc(checkOutSchedule, func() {
		s.bookings.CheckOutDueBookings()
	}); err != nil {
		return err
	}
	if _, err := s.cron.AddFunc(offerExpirySchedule, func() {
		s.bookings.ExpireStaleOffers()
	}); err != nil {
		return err
	}
	s.cron.Start()
	s.logger.Info("lifecycle cron jobs started")
	return nil
}

// Stop stops the scheduler and waits for running jobs to finish.
func (s *LifecycleCronService) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	s.logger.Info("lifecycle cron jobs stopped")
}
