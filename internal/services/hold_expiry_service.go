package services

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/sirupsen/logrus"

	"github.com/grandstay/hotel-booking-backend/internal/cache"
	"github.com/grandstay/hotel-booking-backend/internal/database"
	"github.com/grandstay/hotel-booking-backend/internal/models"
)

// HoldExpiryService releases HELD rooms whose hold window has lapsed and
// expires the bookings that referenced them. Each tick runs in a single
// transaction; a failed tick is logged and retried on the next one.
type HoldExpiryService struct {
	db           *sqlx.DB
	roomRepo     *database.RoomRepository
	bookingRepo  *database.BookingRepository
	availability *cache.AvailabilityCache
	logger       *logrus.Logger
	interval     time.Duration
	stopCh       chan struct{}
	doneCh       chan struct{}
}

// NewHoldExpiryService creates a new HoldExpiryService
func NewHoldExpiryService(
	db *sqlx.DB,
	roomRepo *database.RoomRepository,
	bookingRepo *database.BookingRepository,
	availability *cache.AvailabilityCache,
	logger *logrus.Logger,
	interval time.Duration,
) *HoldExpiryService {
	return &HoldExpiryService{
		db:           db,
		roomRepo:     roomRepo,
		bookingRepo:  bookingRepo,
		availability: availability,
		logger:       logger,
		interval:     interval,
		stopCh:       make(chan struct{}),
		doneCh:       make(chan struct{}),
	}
}

// Start launches the sweep loop on its own goroutine.
func (s *HoldExpiryService) Start() {
	s.logger.WithField("interval", s.interval).Info("hold expiry sweep started")
	go s.run()
}

// Stop signals the loop to exit and waits for the current tick to finish.
func (s *HoldExpiryService) Stop() {
	close(s.stopCh)
	<-s.doneCh
	s.logger.Info("hold expiry sweep stopped")
}

func (s *HoldExpiryService) run() {
	defer close(s.doneCh)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stopCh:
			return
		case <-ticker.C:
			if err := s.Sweep(time.Now()); err != nil {
				s.logger.WithError(err).Error("hold expiry sweep failed")
			}
		}
	}
}

// Sweep runs one pass: expired HELD rooms go back to AVAILABLE and the
// bookings holding them are marked EXPIRED.
func (s *HoldExpiryService) Sweep(now time.Time) error {
	tx, err := s.db.Beginx()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	rooms, err := s.roomRepo.ExpiredHeldRoomsTx(tx, now)
	if err != nil {
		return err
	}
	if len(rooms) == 0 {
		return nil
	}

	roomIDs := make([]uuid.UUID, 0, len(rooms))
	typeIDs := make([]uuid.UUID, 0, len(rooms))
	for _, room := range rooms {
		roomIDs = append(roomIDs, room.ID)
		typeIDs = append(typeIDs, room.RoomTypeID)
	}

	bookingIDs, err := s.bookingRepo.ActiveBookingIDsByRoomsTx(tx, roomIDs)
	if err != nil {
		return err
	}

	// An expiring booking surrenders every room it still holds, including
	// rooms that moved to BOOKED through an accepted edit swap.
	releaseIDs := roomIDs
	seen := make(map[uuid.UUID]struct{}, len(roomIDs))
	for _, id := range roomIDs {
		seen[id] = struct{}{}
	}
	for _, bookingID := range bookingIDs {
		maps, err := s.bookingRepo.ActiveRoomMapsTx(tx, bookingID)
		if err != nil {
			return err
		}
		for _, m := range maps {
			if _, ok := seen[m.RoomID]; ok {
				continue
			}
			seen[m.RoomID] = struct{}{}
			releaseIDs = append(releaseIDs, m.RoomID)
			typeIDs = append(typeIDs, m.RoomTypeID)
		}
	}

	if err := s.roomRepo.ReleaseManyTx(tx, releaseIDs); err != nil {
		return err
	}
	for _, bookingID := range bookingIDs {
		if err := s.bookingRepo.DeactivateRoomMapsTx(tx, bookingID); err != nil {
			return err
		}
		if err := s.bookingRepo.UpdateStatusTx(tx, bookingID, models.BookingStatusExpired); err != nil {
			return err
		}
	}
	if err := tx.Commit(); err != nil {
		return err
	}

	s.availability.Invalidate(context.Background(), typeIDs...)
	s.logger.WithFields(logrus.Fields{
		"rooms":    len(releaseIDs),
		"bookings": len(bookingIDs),
	}).Info("expired holds released")
	return nil
}
