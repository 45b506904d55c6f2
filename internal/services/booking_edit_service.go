package services

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/sirupsen/logrus"

	"github.com/grandstay/hotel-booking-backend/internal/apperrors"
	"github.com/grandstay/hotel-booking-backend/internal/cache"
	"github.com/grandstay/hotel-booking-backend/internal/database"
	"github.com/grandstay/hotel-booking-backend/internal/models"
	"github.com/grandstay/hotel-booking-backend/internal/queue"
	"github.com/grandstay/hotel-booking-backend/pkg/permissions"
)

// BookingEditService drives the edit negotiation: customer request, admin
// review under a timed lock, customer per-room decision, settlement.
type BookingEditService struct {
	db           *sqlx.DB
	editRepo     *database.BookingEditRepository
	bookingRepo  *database.BookingRepository
	roomRepo     *database.RoomRepository
	roomTypeRepo *database.RoomTypeRepository
	refundRepo   *database.RefundRepository
	permChecker  PermissionChecker
	notifier     *Notifier
	availability *cache.AvailabilityCache
	logger       *logrus.Logger
	lockTTL      time.Duration
}

// NewBookingEditService creates a new BookingEditService
func NewBookingEditService(
	db *sqlx.DB,
	editRepo *database.BookingEditRepository,
	bookingRepo *database.BookingRepository,
	roomRepo *database.RoomRepository,
	roomTypeRepo *database.RoomTypeRepository,
	refundRepo *database.RefundRepository,
	permChecker PermissionChecker,
	notifier *Notifier,
	availability *cache.AvailabilityCache,
	logger *logrus.Logger,
	lockTTL time.Duration,
) *BookingEditService {
	return &BookingEditService{
		db:           db,
		editRepo:     editRepo,
		bookingRepo:  bookingRepo,
		roomRepo:     roomRepo,
		roomTypeRepo: roomTypeRepo,
		refundRepo:   refundRepo,
		permChecker:  permChecker,
		notifier:     notifier,
		availability: availability,
		logger:       logger,
		lockTTL:      lockTTL,
	}
}

// editTypeFor derives PRE or POST from the booking's check-in date. An edit
// requested on the check-in day itself is POST.
func editTypeFor(checkIn, now time.Time) models.EditType {
	y1, m1, d1 := checkIn.Date()
	y2, m2, d2 := now.Date()
	checkInDay := time.Date(y1, m1, d1, 0, 0, 0, 0, time.UTC)
	today := time.Date(y2, m2, d2, 0, 0, 0, 0, time.UTC)
	if today.Before(checkInDay) {
		return models.EditTypePre
	}
	return models.EditTypePost
}

// RequestEdit opens an edit negotiation for a booking. Only one open edit
// may exist per booking at a time. Room changes are accepted on PRE edits
// only.
func (s *BookingEditService) RequestEdit(bookingID, userID uuid.UUID, req *models.RequestEditRequest) (*models.BookingEdit, error) {
	booking, err := s.bookingRepo.GetByID(bookingID)
	if err != nil {
		return nil, err
	}
	if booking.UserID != userID {
		return nil, apperrors.Forbidden("booking %s belongs to another user", bookingID)
	}
	if booking.BookingStatus != models.BookingStatusConfirmed &&
		booking.BookingStatus != models.BookingStatusCheckedIn {
		return nil, apperrors.BadRequest("booking in status %s cannot be edited", booking.BookingStatus)
	}

	open, err := s.editRepo.OpenEditExists(bookingID)
	if err != nil {
		return nil, apperrors.Internal(err, "failed to check open edits")
	}
	if open {
		return nil, apperrors.Conflict("booking %s already has an edit under negotiation", bookingID)
	}

	editType := editTypeFor(booking.CheckIn, time.Now())
	if editType == models.EditTypePost && len(req.RoomChanges) > 0 {
		return nil, apperrors.BadRequest("room changes are only allowed before check-in")
	}

	tx, err := s.db.Beginx()
	if err != nil {
		return nil, apperrors.Internal(err, "failed to begin transaction")
	}
	defer tx.Rollback()

	maps, err := s.bookingRepo.ActiveRoomMapsTx(tx, bookingID)
	if err != nil {
		return nil, apperrors.Internal(err, "failed to load booking rooms")
	}
	mapsByRoom := make(map[uuid.UUID]models.BookingRoomMap, len(maps))
	for _, m := range maps {
		mapsByRoom[m.RoomID] = m
	}

	// Project the booking total with the requested type changes applied.
	nights := booking.Nights()
	typePrices := make(map[uuid.UUID]float64)
	priceOf := func(typeID uuid.UUID) (float64, error) {
		if price, ok := typePrices[typeID]; ok {
			return price, nil
		}
		roomType, err := s.roomTypeRepo.GetByIDTx(tx, typeID)
		if err != nil {
			return 0, err
		}
		typePrices[typeID] = roomType.PricePerNight
		return roomType.PricePerNight, nil
	}

	var projected float64
	for _, m := range maps {
		typeID := m.RoomTypeID
		if desired, ok := req.RoomChanges[m.RoomID]; ok {
			typeID = desired
		}
		price, err := priceOf(typeID)
		if err != nil {
			return nil, err
		}
		projected += price * float64(nights)
	}
	for roomID := range req.RoomChanges {
		if _, ok := mapsByRoom[roomID]; !ok {
			return nil, apperrors.BadRequest("room %s is not active on booking %s", roomID, bookingID)
		}
	}

	if req.CustomerName != nil || req.CustomerPhone != nil || req.CustomerEmail != nil {
		if err := s.bookingRepo.UpdateContactTx(tx, bookingID, req.CustomerName, req.CustomerPhone, req.CustomerEmail); err != nil {
			return nil, apperrors.Internal(err, "failed to update contact details")
		}
	}

	edit := &models.BookingEdit{
		BookingID:            bookingID,
		UserID:               userID,
		RequestedRoomChanges: req.RoomChanges,
		EditType:             editType,
		EditStatus:           models.EditStatusPending,
		TotalPrice:           projected,
	}
	if err := s.editRepo.CreateTx(tx, edit); err != nil {
		return nil, apperrors.Internal(err, "failed to persist edit request")
	}
	if err := tx.Commit(); err != nil {
		return nil, apperrors.Internal(err, "failed to commit edit request")
	}

	s.logger.WithFields(logrus.Fields{
		"edit_id":    edit.ID,
		"booking_id": bookingID,
		"edit_type":  editType,
	}).Info("booking edit requested")

	return edit, nil
}

// Review records the admin's candidate rooms for each room under
// negotiation and locks the edit for the customer's response. Inventory is
// not touched until the customer decides. A rejection closes the edit
// immediately.
func (s *BookingEditService) Review(editID, reviewerID uuid.UUID, reviewerPerms []string, req *models.ReviewEditRequest) (*models.BookingEdit, error) {
	if !s.permChecker.Has(reviewerPerms, permissions.ResourceRoomManagement, permissions.ActionWrite) {
		return nil, apperrors.Forbidden("edit review requires room management access")
	}
	if err := req.Validate(); err != nil {
		return nil, apperrors.BadRequest("%s", err.Error())
	}

	tx, err := s.db.Beginx()
	if err != nil {
		return nil, apperrors.Internal(err, "failed to begin transaction")
	}
	defer tx.Rollback()

	edit, err := s.editRepo.GetByIDTx(tx, editID)
	if err != nil {
		return nil, err
	}
	if edit.EditStatus != models.EditStatusPending {
		return nil, apperrors.Conflict("edit %s is %s, only PENDING edits can be reviewed", editID, edit.EditStatus)
	}

	if req.Reject {
		if err := s.editRepo.UpdateStatusTx(tx, editID, models.EditStatusRejected); err != nil {
			return nil, apperrors.Internal(err, "failed to reject edit")
		}
		if err := tx.Commit(); err != nil {
			return nil, apperrors.Internal(err, "failed to commit edit rejection")
		}
		edit.EditStatus = models.EditStatusRejected
		s.logger.WithField("edit_id", editID).Info("booking edit rejected")
		return edit, nil
	}

	maps, err := s.bookingRepo.ActiveRoomMapsTx(tx, edit.BookingID)
	if err != nil {
		return nil, apperrors.Internal(err, "failed to load booking rooms")
	}
	activeRooms := make(map[uuid.UUID]struct{}, len(maps))
	for _, m := range maps {
		activeRooms[m.RoomID] = struct{}{}
	}

	for roomID, candidates := range req.Suggestions {
		if _, ok := activeRooms[roomID]; !ok {
			return nil, apperrors.BadRequest("room %s is not active on booking %s", roomID, edit.BookingID)
		}
		for _, candidateID := range candidates {
			candidate, err := s.roomRepo.GetByIDTx(tx, candidateID)
			if err != nil {
				return nil, err
			}
			if candidate.Status != models.RoomStatusAvailable {
				return nil, apperrors.Conflict("suggested room %s is %s", candidateID, candidate.Status)
			}
		}
		if err := s.bookingRepo.SetSuggestedRoomsTx(tx, edit.BookingID, roomID, candidates); err != nil {
			return nil, apperrors.Internal(err, "failed to store suggestions")
		}
	}

	lockExpiresAt := time.Now().Add(s.lockTTL)
	if err := s.editRepo.MarkAwaitingTx(tx, editID, reviewerID, lockExpiresAt); err != nil {
		return nil, apperrors.Internal(err, "failed to lock edit for review")
	}
	if err := tx.Commit(); err != nil {
		return nil, apperrors.Internal(err, "failed to commit edit review")
	}

	edit.EditStatus = models.EditStatusAwaitingCustomer
	edit.ReviewedBy = &reviewerID
	edit.LockExpiresAt = &lockExpiresAt

	s.notifier.TrySend(queue.QueueEditReviewed, edit.UserID,
		"Edit reviewed",
		"Your booking edit has been reviewed. Please respond within the review window.",
		edit.ID.String())

	s.logger.WithFields(logrus.Fields{
		"edit_id":         editID,
		"reviewed_by":     reviewerID,
		"lock_expires_at": lockExpiresAt,
	}).Info("booking edit under customer review")

	return edit, nil
}

// Decide applies the customer's per-room decisions: ACCEPT swaps to a
// suggested room, KEEP leaves the room untouched, REFUND releases the room
// and accrues a refund. The booking total is reconciled and a single
// PARTIAL refund record covers all refunded rooms.
func (s *BookingEditService) Decide(editID, userID uuid.UUID, req *models.DecideEditRequest) (*models.EditSettlement, error) {
	if err := req.Validate(); err != nil {
		return nil, apperrors.BadRequest("%s", err.Error())
	}

	tx, err := s.db.Beginx()
	if err != nil {
		return nil, apperrors.Internal(err, "failed to begin transaction")
	}
	defer tx.Rollback()

	edit, err := s.editRepo.GetByIDTx(tx, editID)
	if err != nil {
		return nil, err
	}
	if edit.UserID != userID {
		return nil, apperrors.Forbidden("edit %s belongs to another user", editID)
	}
	if edit.EditStatus != models.EditStatusAwaitingCustomer {
		return nil, apperrors.Conflict("edit %s is %s, no decision expected", editID, edit.EditStatus)
	}
	now := time.Now()
	if edit.LockExpiresAt != nil && now.After(*edit.LockExpiresAt) {
		return nil, apperrors.Conflict("review window for edit %s has expired", editID)
	}

	booking, err := s.bookingRepo.GetByIDTx(tx, edit.BookingID)
	if err != nil {
		return nil, err
	}
	maps, err := s.bookingRepo.ActiveRoomMapsTx(tx, edit.BookingID)
	if err != nil {
		return nil, apperrors.Internal(err, "failed to load booking rooms")
	}

	suggested := make(map[uuid.UUID]models.BookingRoomMap)
	for _, m := range maps {
		if len(m.EditSuggestedRooms) > 0 {
			suggested[m.RoomID] = m
		}
	}
	for roomID := range suggested {
		if _, ok := req.Decisions[roomID]; !ok {
			return nil, apperrors.BadRequest("missing decision for room %s", roomID)
		}
	}
	for roomID := range req.Decisions {
		if _, ok := suggested[roomID]; !ok {
			return nil, apperrors.BadRequest("room %s is not under negotiation", roomID)
		}
	}

	nights := booking.Nights()
	elapsedDays := int(now.Sub(booking.CreatedAt).Hours() / 24)
	if elapsedDays < 1 {
		elapsedDays = 1
	}

	typePrices := make(map[uuid.UUID]float64)
	priceOf := func(typeID uuid.UUID) (float64, error) {
		if price, ok := typePrices[typeID]; ok {
			return price, nil
		}
		roomType, err := s.roomTypeRepo.GetByIDTx(tx, typeID)
		if err != nil {
			return 0, err
		}
		typePrices[typeID] = roomType.PricePerNight
		return roomType.PricePerNight, nil
	}

	var (
		refunded    float64
		priceDelta  float64
		accepted    int
		kept        int
		refundRooms []models.RefundRoomMap
	)
	touchedTypes := make([]uuid.UUID, 0, len(req.Decisions))

	for roomID, decision := range req.Decisions {
		m := suggested[roomID]

		switch decision.Action {
		case models.DecisionKeep:
			kept++

		case models.DecisionAccept:
			targetID := *decision.TargetRoomID
			if !containsUUID(m.EditSuggestedRooms, targetID) {
				return nil, apperrors.BadRequest("room %s was not suggested for room %s", targetID, roomID)
			}
			target, err := s.roomRepo.GetByIDTx(tx, targetID)
			if err != nil {
				return nil, err
			}
			// Suggested rooms may have been frozen by the admin to hold
			// them through the review window. MarkBookedTx clears the
			// freeze along with the hold.
			if target.Status != models.RoomStatusAvailable && target.Status != models.RoomStatusFrozen {
				return nil, apperrors.Conflict("suggested room %s is no longer available", targetID)
			}
			if err := s.roomRepo.MarkBookedTx(tx, []uuid.UUID{targetID}); err != nil {
				return nil, apperrors.Internal(err, "failed to book replacement room")
			}
			if err := s.roomRepo.ReleaseTx(tx, roomID); err != nil {
				return nil, apperrors.Internal(err, "failed to release replaced room")
			}
			if err := s.bookingRepo.MarkPreEditedTx(tx, m.ID); err != nil {
				return nil, apperrors.Internal(err, "failed to retire replaced room map")
			}
			newMap := &models.BookingRoomMap{
				BookingID:        edit.BookingID,
				RoomID:           targetID,
				RoomTypeID:       target.RoomTypeID,
				Adults:           m.Adults,
				Children:         m.Children,
				IsRoomActive:     true,
				IsPostEditedRoom: true,
			}
			if err := s.bookingRepo.CreateRoomMapTx(tx, newMap); err != nil {
				return nil, apperrors.Internal(err, "failed to create replacement room map")
			}
			oldPrice, err := priceOf(m.RoomTypeID)
			if err != nil {
				return nil, err
			}
			newPrice, err := priceOf(target.RoomTypeID)
			if err != nil {
				return nil, err
			}
			priceDelta += (newPrice - oldPrice) * float64(nights)
			touchedTypes = append(touchedTypes, m.RoomTypeID, target.RoomTypeID)
			accepted++

		case models.DecisionRefund:
			if edit.EditType != models.EditTypePre {
				return nil, apperrors.BadRequest("per-room refunds are only allowed before check-in")
			}
			price, err := priceOf(m.RoomTypeID)
			if err != nil {
				return nil, err
			}
			amount := float64(elapsedDays) * price
			if err := s.roomRepo.ReleaseTx(tx, roomID); err != nil {
				return nil, apperrors.Internal(err, "failed to release refunded room")
			}
			if err := s.bookingRepo.DeactivateRoomMapTx(tx, m.ID); err != nil {
				return nil, apperrors.Internal(err, "failed to deactivate refunded room map")
			}
			refunded += amount
			refundRooms = append(refundRooms, models.RefundRoomMap{RoomID: roomID, Amount: amount})
			touchedTypes = append(touchedTypes, m.RoomTypeID)
		}
	}

	if err := s.bookingRepo.ClearSuggestionsTx(tx, edit.BookingID); err != nil {
		return nil, apperrors.Internal(err, "failed to clear suggestions")
	}

	finalStatus := models.EditStatusNoChange
	switch {
	case (accepted > 0 || refunded > 0) && kept > 0:
		finalStatus = models.EditStatusPartiallyApproved
	case accepted > 0 || refunded > 0:
		finalStatus = models.EditStatusApproved
	}

	newTotal := booking.TotalPrice + priceDelta - refunded
	if newTotal != booking.TotalPrice {
		if err := s.bookingRepo.UpdateTotalPriceTx(tx, edit.BookingID, newTotal); err != nil {
			return nil, apperrors.Internal(err, "failed to reconcile booking total")
		}
	}
	if err := s.editRepo.UpdateTotalPriceTx(tx, editID, newTotal); err != nil {
		return nil, apperrors.Internal(err, "failed to record edit total")
	}
	if err := s.editRepo.UpdateStatusTx(tx, editID, finalStatus); err != nil {
		return nil, apperrors.Internal(err, "failed to close edit")
	}

	var refundID *uuid.UUID
	if refunded > 0 {
		refund := &models.Refund{
			BookingID:    edit.BookingID,
			UserID:       edit.UserID,
			RefundType:   models.RefundTypePartial,
			RefundAmount: refunded,
		}
		if err := s.refundRepo.CreateTx(tx, refund); err != nil {
			return nil, apperrors.Internal(err, "failed to create refund")
		}
		for i := range refundRooms {
			refundRooms[i].RefundID = refund.ID
			if err := s.refundRepo.CreateRoomMapTx(tx, &refundRooms[i]); err != nil {
				return nil, apperrors.Internal(err, "failed to create refund room map")
			}
		}
		refundID = &refund.ID
	}

	if err := tx.Commit(); err != nil {
		return nil, apperrors.Internal(err, "failed to commit edit decision")
	}

	s.availability.Invalidate(context.Background(), touchedTypes...)
	if refundID != nil {
		s.notifier.TrySend(queue.QueueRefundInitiated, edit.UserID,
			"Refund initiated",
			"A refund for your booking edit has been initiated.",
			refundID.String())
	}

	s.logger.WithFields(logrus.Fields{
		"edit_id":     editID,
		"booking_id":  edit.BookingID,
		"edit_status": finalStatus,
		"refunded":    refunded,
		"new_total":   newTotal,
	}).Info("booking edit decided")

	return &models.EditSettlement{
		EditID:         editID,
		EditStatus:     finalStatus,
		OriginalAmount: booking.TotalPrice,
		RefundedAmount: refunded,
		NewTotalAmount: newTotal,
		RefundID:       refundID,
	}, nil
}

// Get returns an edit, visible to its owner or to booking management.
func (s *BookingEditService) Get(editID, requesterID uuid.UUID, requesterPerms []string) (*models.BookingEdit, error) {
	edit, err := s.editRepo.GetByID(editID)
	if err != nil {
		return nil, err
	}
	if edit.UserID != requesterID &&
		!s.permChecker.Has(requesterPerms, permissions.ResourceBookingManagement, permissions.ActionRead) {
		return nil, apperrors.Forbidden("edit %s belongs to another user", editID)
	}
	return edit, nil
}

func containsUUID(ids models.UUIDArray, id uuid.UUID) bool {
	for _, candidate := range ids {
		if candidate == id.String() {
			return true
		}
	}
	return false
}
