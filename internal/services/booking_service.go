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

// Tax bands applied to a booking's total price.
const (
	taxFreeBelow    = 1000.0
	taxMidThreshold = 7500.0
	taxRateMid      = 12.0
	taxRateHigh     = 18.0
)

// TaxRateFor returns the tax rate (percent) for a booking total.
func TaxRateFor(total float64) float64 {
	switch {
	case total < taxFreeBelow:
		return 0
	case total <= taxMidThreshold:
		return taxRateMid
	default:
		return taxRateHigh
	}
}

// BookingService owns the booking lifecycle: creation with transactional
// room allocation, scheduler-driven status transitions and the read side.
type BookingService struct {
	db           *sqlx.DB
	bookingRepo  *database.BookingRepository
	roomRepo     *database.RoomRepository
	roomTypeRepo *database.RoomTypeRepository
	users        UserDirectory
	permChecker  PermissionChecker
	notifier     *Notifier
	availability *cache.AvailabilityCache
	logger       *logrus.Logger
}

// NewBookingService creates a new BookingService
func NewBookingService(
	db *sqlx.DB,
	bookingRepo *database.BookingRepository,
	roomRepo *database.RoomRepository,
	roomTypeRepo *database.RoomTypeRepository,
	users UserDirectory,
	permChecker PermissionChecker,
	notifier *Notifier,
	availability *cache.AvailabilityCache,
	logger *logrus.Logger,
) *BookingService {
	return &BookingService{
		db:           db,
		bookingRepo:  bookingRepo,
		roomRepo:     roomRepo,
		roomTypeRepo: roomTypeRepo,
		users:        users,
		permChecker:  permChecker,
		notifier:     notifier,
		availability: availability,
		logger:       logger,
	}
}

// nightsBetween returns the stay length in nights, never below one.
func nightsBetween(checkIn, checkOut time.Time) int {
	nights := int(checkOut.Sub(checkIn).Hours() / 24)
	if nights < 1 {
		nights = 1
	}
	return nights
}

// Create validates the request, allocates rooms per type inside one
// transaction, computes the tax band and persists the booking with its room
// and tax maps. Under-supply of any type rolls the whole allocation back.
// The booking-confirmed notification is sent after commit, best-effort.
func (s *BookingService) Create(userID uuid.UUID, req *models.CreateBookingRequest, bookingSource, deviceInfo *string) (*models.BookingDetail, error) {
	if err := req.Validate(); err != nil {
		return nil, apperrors.BadRequest("%s", err.Error())
	}

	nights := nightsBetween(req.CheckIn, req.CheckOut)

	customerName := req.CustomerName
	if customerName == nil {
		user, err := s.users.GetByID(userID)
		if err != nil {
			return nil, err
		}
		customerName = &user.FullName
	}

	// Group requested rooms by type, keeping request order within a type.
	typeOrder := make([]uuid.UUID, 0, len(req.Rooms))
	byType := make(map[uuid.UUID][]models.BookingRoomRequest)
	for _, room := range req.Rooms {
		if _, seen := byType[room.RoomTypeID]; !seen {
			typeOrder = append(typeOrder, room.RoomTypeID)
		}
		byType[room.RoomTypeID] = append(byType[room.RoomTypeID], room)
	}

	tx, err := s.db.Beginx()
	if err != nil {
		return nil, apperrors.Internal(err, "failed to begin transaction")
	}
	defer tx.Rollback()

	var holdExpiresAt *time.Time
	target := models.RoomStatusBooked
	if req.HoldMinutes > 0 {
		expiry := time.Now().Add(time.Duration(req.HoldMinutes) * time.Minute)
		holdExpiresAt = &expiry
		target = models.RoomStatusHeld
	}

	booking := &models.Booking{
		UserID:        userID,
		RoomCount:     len(req.Rooms),
		CheckIn:       req.CheckIn,
		CheckOut:      req.CheckOut,
		BookingStatus: models.BookingStatusConfirmed,
		OfferID:       req.OfferID,
		CustomerName:  customerName,
		CustomerPhone: req.CustomerPhone,
		CustomerEmail: req.CustomerEmail,
		BookingSource: bookingSource,
		DeviceInfo:    deviceInfo,
	}

	type allocation struct {
		roomID  uuid.UUID
		request models.BookingRoomRequest
	}

	var total float64
	var allocations []allocation
	for _, typeID := range typeOrder {
		requests := byType[typeID]
		roomType, err := s.roomTypeRepo.GetByIDTx(tx, typeID)
		if err != nil {
			return nil, err
		}
		roomIDs, err := s.roomRepo.AllocateRoomsTx(tx, typeID, len(requests), target, holdExpiresAt)
		if err != nil {
			return nil, err
		}
		for i, roomID := range roomIDs {
			allocations = append(allocations, allocation{roomID: roomID, request: requests[i]})
			total += roomType.PricePerNight * float64(nights)
		}
	}

	booking.TotalPrice = total
	if err := s.bookingRepo.CreateTx(tx, booking); err != nil {
		return nil, apperrors.Internal(err, "failed to persist booking")
	}

	for _, alloc := range allocations {
		roomMap := &models.BookingRoomMap{
			BookingID:    booking.ID,
			RoomID:       alloc.roomID,
			RoomTypeID:   alloc.request.RoomTypeID,
			Adults:       alloc.request.Adults,
			Children:     alloc.request.Children,
			IsRoomActive: true,
		}
		if err := s.bookingRepo.CreateRoomMapTx(tx, roomMap); err != nil {
			return nil, apperrors.Internal(err, "failed to persist booking room map")
		}
	}

	taxRate := TaxRateFor(total)
	taxMap := &models.BookingTaxMap{
		BookingID: booking.ID,
		TaxRate:   taxRate,
		TaxAmount: total * taxRate / 100,
	}
	if err := s.bookingRepo.CreateTaxMapTx(tx, taxMap); err != nil {
		return nil, apperrors.Internal(err, "failed to persist booking tax map")
	}

	if req.Payment != nil {
		payment := &models.Payment{
			BookingID:        booking.ID,
			Amount:           total + taxMap.TaxAmount,
			PaymentMethod:    req.Payment.PaymentMethod,
			PaymentReference: req.Payment.PaymentReference,
		}
		if err := s.bookingRepo.CreatePaymentTx(tx, payment); err != nil {
			return nil, apperrors.Internal(err, "failed to persist payment")
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, apperrors.Internal(err, "failed to commit booking")
	}

	s.availability.Invalidate(context.Background(), typeOrder...)
	s.notifier.TrySend(queue.QueueBookingConfirmed, userID,
		"Booking confirmed",
		"Your booking has been confirmed.",
		booking.ID.String())

	s.logger.WithFields(logrus.Fields{
		"booking_id": booking.ID,
		"user_id":    userID,
		"rooms":      len(allocations),
		"total":      total,
	}).Info("booking created")

	return s.hydrate(booking)
}

// hydrate attaches room and tax maps to a booking.
func (s *BookingService) hydrate(booking *models.Booking) (*models.BookingDetail, error) {
	rooms, err := s.bookingRepo.RoomMaps(booking.ID)
	if err != nil {
		return nil, apperrors.Internal(err, "failed to load booking rooms")
	}
	taxes, err := s.bookingRepo.TaxMaps(booking.ID)
	if err != nil {
		return nil, apperrors.Internal(err, "failed to load booking taxes")
	}
	return &models.BookingDetail{Booking: *booking, Rooms: rooms, Taxes: taxes}, nil
}

// Get returns a hydrated booking. Callers see only their own bookings
// unless they hold booking management read permission.
func (s *BookingService) Get(bookingID, requesterID uuid.UUID, requesterPerms []string) (*models.BookingDetail, error) {
	booking, err := s.bookingRepo.GetByID(bookingID)
	if err != nil {
		return nil, err
	}
	if booking.UserID != requesterID &&
		!s.permChecker.Has(requesterPerms, permissions.ResourceBookingManagement, permissions.ActionRead) {
		return nil, apperrors.Forbidden("booking %s belongs to another user", bookingID)
	}
	return s.hydrate(booking)
}

// ListByUser returns the caller's bookings.
func (s *BookingService) ListByUser(userID uuid.UUID) ([]models.Booking, error) {
	return s.bookingRepo.ListByUser(userID)
}

// Query returns bookings matching admin filters; requires booking
// management read permission.
func (s *BookingService) Query(q models.BookingQuery, requesterPerms []string) ([]models.Booking, error) {
	if !s.permChecker.Has(requesterPerms, permissions.ResourceBookingManagement, permissions.ActionRead) {
		return nil, apperrors.Forbidden("booking query requires booking management access")
	}
	return s.bookingRepo.Query(q)
}

// Availability returns the AVAILABLE room count of a type, served from the
// cache when fresh.
func (s *BookingService) Availability(ctx context.Context, roomTypeID uuid.UUID) (int, error) {
	if count, ok := s.availability.GetCount(ctx, roomTypeID); ok {
		return count, nil
	}
	count, err := s.roomRepo.CountAvailableByType(roomTypeID)
	if err != nil {
		return 0, apperrors.Internal(err, "failed to count availability")
	}
	s.availability.SetCount(ctx, roomTypeID, count)
	return count, nil
}

// CheckInDueBookings flips CONFIRMED bookings whose check-in date is today
// to CHECKED_IN. Each booking runs in its own transaction; one failure is
// logged and does not stop the sweep. Room status is re-asserted to BOOKED
// in case it drifted.
func (s *BookingService) CheckInDueBookings() int {
	due, err := s.bookingRepo.DueForCheckIn()
	if err != nil {
		s.logger.WithError(err).Error("failed to list bookings due for check-in")
		return 0
	}
	processed := 0
	for i := range due {
		if err := s.checkInBooking(due[i].ID); err != nil {
			s.logger.WithError(err).WithField("booking_id", due[i].ID).Error("check-in transition failed")
			continue
		}
		processed++
	}
	if processed > 0 {
		s.logger.WithField("count", processed).Info("bookings checked in")
	}
	return processed
}

func (s *BookingService) checkInBooking(bookingID uuid.UUID) error {
	tx, err := s.db.Beginx()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	booking, err := s.bookingRepo.GetByIDTx(tx, bookingID)
	if err != nil {
		return err
	}
	// Re-check under lock; a cancel may have won the race.
	if booking.BookingStatus != models.BookingStatusConfirmed {
		return nil
	}

	maps, err := s.bookingRepo.ActiveRoomMapsTx(tx, bookingID)
	if err != nil {
		return err
	}
	roomIDs := make([]uuid.UUID, 0, len(maps))
	for _, m := range maps {
		roomIDs = append(roomIDs, m.RoomID)
	}
	if err := s.roomRepo.MarkBookedTx(tx, roomIDs); err != nil {
		return err
	}
	if err := s.bookingRepo.UpdateStatusTx(tx, bookingID, models.BookingStatusCheckedIn); err != nil {
		return err
	}
	return tx.Commit()
}

// CheckOutDueBookings flips CHECKED_IN bookings whose check-out date is
// today to CHECKED_OUT and releases their rooms. Per-booking transaction,
// catch-and-continue.
func (s *BookingService) CheckOutDueBookings() int {
	due, err := s.bookingRepo.DueForCheckOut()
	if err != nil {
		s.logger.WithError(err).Error("failed to list bookings due for check-out")
		return 0
	}
	processed := 0
	for i := range due {
		if err := s.checkOutBooking(due[i].ID); err != nil {
			s.logger.WithError(err).WithField("booking_id", due[i].ID).Error("check-out transition failed")
			continue
		}
		processed++
	}
	if processed > 0 {
		s.logger.WithField("count", processed).Info("bookings checked out")
	}
	return processed
}

func (s *BookingService) checkOutBooking(bookingID uuid.UUID) error {
	tx, err := s.db.Beginx()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	booking, err := s.bookingRepo.GetByIDTx(tx, bookingID)
	if err != nil {
		return err
	}
	if booking.BookingStatus != models.BookingStatusCheckedIn {
		return nil
	}

	maps, err := s.bookingRepo.ActiveRoomMapsTx(tx, bookingID)
	if err != nil {
		return err
	}
	roomIDs := make([]uuid.UUID, 0, len(maps))
	typeIDs := make([]uuid.UUID, 0, len(maps))
	for _, m := range maps {
		roomIDs = append(roomIDs, m.RoomID)
		typeIDs = append(typeIDs, m.RoomTypeID)
	}
	if err := s.roomRepo.ReleaseManyTx(tx, roomIDs); err != nil {
		return err
	}
	if err := s.bookingRepo.DeactivateRoomMapsTx(tx, bookingID); err != nil {
		return err
	}
	if err := s.bookingRepo.UpdateStatusTx(tx, bookingID, models.BookingStatusCheckedOut); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	s.availability.Invalidate(context.Background(), typeIDs...)
	return nil
}

// ExpireStaleOffers deactivates offers past their validity window.
func (s *BookingService) ExpireStaleOffers() {
	count, err := s.bookingRepo.ExpireStaleOffers(time.Now())
	if err != nil {
		s.logger.WithError(err).Error("failed to expire offers")
		return
	}
	if count > 0 {
		s.logger.WithField("count", count).Info("stale offers deactivated")
	}
}
