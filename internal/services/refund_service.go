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

// RefundService owns cancellations and the payout trail of refunds.
type RefundService struct {
	db           *sqlx.DB
	refundRepo   *database.RefundRepository
	bookingRepo  *database.BookingRepository
	roomRepo     *database.RoomRepository
	roomTypeRepo *database.RoomTypeRepository
	permChecker  PermissionChecker
	methods      PaymentMethodCatalog
	notifier     *Notifier
	availability *cache.AvailabilityCache
	logger       *logrus.Logger
}

// NewRefundService creates a new RefundService
func NewRefundService(
	db *sqlx.DB,
	refundRepo *database.RefundRepository,
	bookingRepo *database.BookingRepository,
	roomRepo *database.RoomRepository,
	roomTypeRepo *database.RoomTypeRepository,
	permChecker PermissionChecker,
	methods PaymentMethodCatalog,
	notifier *Notifier,
	availability *cache.AvailabilityCache,
	logger *logrus.Logger,
) *RefundService {
	return &RefundService{
		db:           db,
		refundRepo:   refundRepo,
		bookingRepo:  bookingRepo,
		roomRepo:     roomRepo,
		roomTypeRepo: roomTypeRepo,
		permChecker:  permChecker,
		methods:      methods,
		notifier:     notifier,
		availability: availability,
		logger:       logger,
	}
}

// CancelBooking cancels a booking fully or for a subset of its rooms. A
// full cancel refunds the booking total, releases every active room and
// sets the booking CANCELLED. A partial cancel refunds price_per_night ×
// nights for the named rooms and leaves the booking status untouched.
func (s *RefundService) CancelBooking(bookingID, requesterID uuid.UUID, requesterPerms []string, req *models.CancelBookingRequest) (*models.RefundDetail, error) {
	if err := req.Validate(); err != nil {
		return nil, apperrors.BadRequest("%s", err.Error())
	}

	tx, err := s.db.Beginx()
	if err != nil {
		return nil, apperrors.Internal(err, "failed to begin transaction")
	}
	defer tx.Rollback()

	booking, err := s.bookingRepo.GetByIDTx(tx, bookingID)
	if err != nil {
		return nil, err
	}
	if booking.UserID != requesterID &&
		!s.permChecker.Has(requesterPerms, permissions.ResourceBookingManagement, permissions.ActionWrite) {
		return nil, apperrors.Forbidden("booking %s belongs to another user", bookingID)
	}
	switch booking.BookingStatus {
	case models.BookingStatusCancelled:
		return nil, apperrors.BadRequest("booking %s is already cancelled", bookingID)
	case models.BookingStatusCheckedOut, models.BookingStatusExpired:
		return nil, apperrors.BadRequest("booking in status %s cannot be cancelled", booking.BookingStatus)
	}

	maps, err := s.bookingRepo.ActiveRoomMapsTx(tx, bookingID)
	if err != nil {
		return nil, apperrors.Internal(err, "failed to load booking rooms")
	}
	mapsByRoom := make(map[uuid.UUID]models.BookingRoomMap, len(maps))
	for _, m := range maps {
		mapsByRoom[m.RoomID] = m
	}

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

	targets := maps
	if !req.Full {
		// A room named twice must not be refunded twice.
		targets = make([]models.BookingRoomMap, 0, len(req.RoomIDs))
		seen := make(map[uuid.UUID]struct{}, len(req.RoomIDs))
		for _, roomID := range req.RoomIDs {
			if _, dup := seen[roomID]; dup {
				continue
			}
			seen[roomID] = struct{}{}
			m, ok := mapsByRoom[roomID]
			if !ok {
				return nil, apperrors.BadRequest("room %s is not active on booking %s", roomID, bookingID)
			}
			targets = append(targets, m)
		}
	}

	var refundAmount float64
	refundRooms := make([]models.RefundRoomMap, 0, len(targets))
	touchedTypes := make([]uuid.UUID, 0, len(targets))
	for _, m := range targets {
		price, err := priceOf(m.RoomTypeID)
		if err != nil {
			return nil, err
		}
		amount := price * float64(nights)
		refundAmount += amount
		refundRooms = append(refundRooms, models.RefundRoomMap{RoomID: m.RoomID, Amount: amount})
		touchedTypes = append(touchedTypes, m.RoomTypeID)

		if err := s.roomRepo.ReleaseTx(tx, m.RoomID); err != nil {
			return nil, apperrors.Internal(err, "failed to release room")
		}
		if err := s.bookingRepo.DeactivateRoomMapTx(tx, m.ID); err != nil {
			return nil, apperrors.Internal(err, "failed to deactivate room map")
		}
	}

	refundType := models.RefundTypePartialCancel
	if req.Full {
		refundType = models.RefundTypeCancellation
		// The full-cancel refund covers whatever was actually charged,
		// including prior edit reconciliation.
		refundAmount = booking.TotalPrice
		if err := s.bookingRepo.UpdateStatusTx(tx, bookingID, models.BookingStatusCancelled); err != nil {
			return nil, apperrors.Internal(err, "failed to cancel booking")
		}
	} else {
		if err := s.bookingRepo.UpdateTotalPriceTx(tx, bookingID, booking.TotalPrice-refundAmount); err != nil {
			return nil, apperrors.Internal(err, "failed to reconcile booking total")
		}
	}

	refund := &models.Refund{
		BookingID:    bookingID,
		UserID:       booking.UserID,
		RefundType:   refundType,
		RefundAmount: refundAmount,
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

	if err := tx.Commit(); err != nil {
		return nil, apperrors.Internal(err, "failed to commit cancellation")
	}

	s.availability.Invalidate(context.Background(), touchedTypes...)
	s.notifier.TrySend(queue.QueueRefundInitiated, booking.UserID,
		"Refund initiated",
		"A refund for your cancellation has been initiated.",
		refund.ID.String())

	s.logger.WithFields(logrus.Fields{
		"booking_id":    bookingID,
		"refund_id":     refund.ID,
		"refund_type":   refundType,
		"refund_amount": refundAmount,
		"rooms":         len(refundRooms),
	}).Info("booking cancelled")

	return &models.RefundDetail{Refund: *refund, Rooms: refundRooms}, nil
}

// UpdateTransaction fills payout details in on a refund. The status only
// moves forward; INITIATED -> PROCESSED -> COMPLETED, stamping the matching
// timestamps as it advances.
func (s *RefundService) UpdateTransaction(refundID uuid.UUID, requesterPerms []string, req *models.UpdateRefundTransactionRequest) (*models.Refund, error) {
	if !s.permChecker.Has(requesterPerms, permissions.ResourceRefundManagement, permissions.ActionWrite) {
		return nil, apperrors.Forbidden("refund updates require refund management access")
	}

	refund, err := s.refundRepo.GetByID(refundID)
	if err != nil {
		return nil, err
	}

	if req.TransactionMethodID != nil {
		exists, err := s.methods.Exists(*req.TransactionMethodID)
		if err != nil {
			return nil, apperrors.Internal(err, "failed to look up payment method")
		}
		if !exists {
			return nil, apperrors.BadRequest("payment method %s is unknown or inactive", *req.TransactionMethodID)
		}
		refund.TransactionMethodID = req.TransactionMethodID
	}
	if req.TransactionNumber != nil {
		refund.TransactionNumber = req.TransactionNumber
	}

	if req.Status != nil {
		next := *req.Status
		if !next.Valid() {
			return nil, apperrors.BadRequest("unknown refund status %s", next)
		}
		if !refund.RefundStatus.CanTransitionTo(next) {
			return nil, apperrors.Conflict("refund status cannot move from %s to %s", refund.RefundStatus, next)
		}
		now := time.Now()
		switch next {
		case models.RefundStatusProcessed:
			refund.ProcessedAt = &now
		case models.RefundStatusCompleted:
			if refund.ProcessedAt == nil {
				refund.ProcessedAt = &now
			}
			refund.CompletedAt = &now
		}
		refund.RefundStatus = next
	}

	if err := s.refundRepo.UpdateTransaction(refund); err != nil {
		return nil, apperrors.Internal(err, "failed to update refund")
	}

	s.logger.WithFields(logrus.Fields{
		"refund_id":     refundID,
		"refund_status": refund.RefundStatus,
	}).Info("refund transaction updated")

	return refund, nil
}

// Get returns a refund with its room rows, visible to its owner or to
// refund management.
func (s *RefundService) Get(refundID, requesterID uuid.UUID, requesterPerms []string) (*models.RefundDetail, error) {
	refund, err := s.refundRepo.GetByID(refundID)
	if err != nil {
		return nil, err
	}
	if refund.UserID != requesterID &&
		!s.permChecker.Has(requesterPerms, permissions.ResourceRefundManagement, permissions.ActionRead) {
		return nil, apperrors.Forbidden("refund %s belongs to another user", refundID)
	}
	rooms, err := s.refundRepo.RoomMaps(refundID)
	if err != nil {
		return nil, apperrors.Internal(err, "failed to load refund rooms")
	}
	return &models.RefundDetail{Refund: *refund, Rooms: rooms}, nil
}
