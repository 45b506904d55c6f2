package services

import (
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/sirupsen/logrus"

	"github.com/grandstay/hotel-booking-backend/internal/database"
	"github.com/grandstay/hotel-booking-backend/internal/models"
)

// EditUnlockService expires edits the customer never answered. Each expired
// edit is handled in its own transaction so one bad row cannot stall the
// sweep.
type EditUnlockService struct {
	db          *sqlx.DB
	editRepo    *database.BookingEditRepository
	bookingRepo *database.BookingRepository
	roomRepo    *database.RoomRepository
	logger      *logrus.Logger
	interval    time.Duration
	stopCh      chan struct{}
	doneCh      chan struct{}
}

// NewEditUnlockService creates a new EditUnlockService
func NewEditUnlockService(
	db *sqlx.DB,
	editRepo *database.BookingEditRepository,
	bookingRepo *database.BookingRepository,
	roomRepo *database.RoomRepository,
	logger *logrus.Logger,
	interval time.Duration,
) *EditUnlockService {
	return &EditUnlockService{
		db:          db,
		editRepo:    editRepo,
		bookingRepo: bookingRepo,
		roomRepo:    roomRepo,
		logger:      logger,
		interval:    interval,
		stopCh:      make(chan struct{}),
		doneCh:      make(chan struct{}),
	}
}

// Start launches the sweep loop on its own goroutine.
func (s *EditUnlockService) Start() {
	s.logger.WithField("interval", s.interval).Info("edit unlock sweep started")
	go s.run()
}

// Stop signals the loop to exit and waits for the current tick to finish.
func (s *EditUnlockService) Stop() {
	close(s.stopCh)
	<-s.doneCh
	s.logger.Info("edit unlock sweep stopped")
}

func (s *EditUnlockService) run() {
	defer close(s.doneCh)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stopCh:
			return
		case <-ticker.C:
			s.Sweep(time.Now())
		}
	}
}

// Sweep expires every AWAITING edit whose lock has lapsed, returning the
// number of edits expired.
func (s *EditUnlockService) Sweep(now time.Time) int {
	edits, err := s.editRepo.ExpiredAwaitingEdits(now)
	if err != nil {
		s.logger.WithError(err).Error("failed to list expired edits")
		return 0
	}
	expired := 0
	for i := range edits {
		if err := s.expireEdit(&edits[i]); err != nil {
			s.logger.WithError(err).WithField("edit_id", edits[i].ID).Error("failed to expire edit")
			continue
		}
		expired++
	}
	if expired > 0 {
		s.logger.WithField("count", expired).Info("stale edits expired")
	}
	return expired
}

// expireEdit closes one lapsed edit: suggested rooms that were frozen or
// held for it go back to AVAILABLE, suggestions are cleared and the edit is
// marked EXPIRED.
func (s *EditUnlockService) expireEdit(edit *models.BookingEdit) error {
	tx, err := s.db.Beginx()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	locked, err := s.editRepo.GetByIDTx(tx, edit.ID)
	if err != nil {
		return err
	}
	// A concurrent decision may have closed the edit already.
	if locked.EditStatus != models.EditStatusAwaitingCustomer {
		return nil
	}

	maps, err := s.bookingRepo.ActiveRoomMapsTx(tx, edit.BookingID)
	if err != nil {
		return err
	}
	var suggested []uuid.UUID
	for _, m := range maps {
		for _, id := range m.EditSuggestedRooms {
			roomID, err := uuid.Parse(id)
			if err != nil {
				continue
			}
			suggested = append(suggested, roomID)
		}
	}
	if len(suggested) > 0 {
		if err := s.roomRepo.ReleaseSuggestedTx(tx, suggested); err != nil {
			return err
		}
	}
	if err := s.bookingRepo.ClearSuggestionsTx(tx, edit.BookingID); err != nil {
		return err
	}
	if err := s.editRepo.UpdateStatusTx(tx, edit.ID, models.EditStatusExpired); err != nil {
		return err
	}
	return tx.Commit()
}
