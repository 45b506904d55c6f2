package database

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/grandstay/hotel-booking-backend/internal/apperrors"
	"github.com/grandstay/hotel-booking-backend/internal/models"
)

// BookingRepository handles booking, room map, tax map and payment rows.
type BookingRepository struct {
	db *sqlx.DB
}

// NewBookingRepository creates a new BookingRepository
func NewBookingRepository(db *sqlx.DB) *BookingRepository {
	return &BookingRepository{db: db}
}

const bookingColumns = `id, user_id, room_count, check_in, check_out, total_price, booking_status,
	offer_id, customer_name, customer_phone, customer_email, booking_source, device_info,
	created_at, updated_at`

const roomMapColumns = `id, booking_id, room_id, room_type_id, adults, children, is_room_active,
	is_pre_edited_room, is_post_edited_room, edit_suggested_rooms, created_at, updated_at`

// CreateTx inserts a booking inside the caller's transaction.
func (r *BookingRepository) CreateTx(tx *sqlx.Tx, booking *models.Booking) error {
	booking.ID = uuid.New()
	booking.CreatedAt = time.Now()
	booking.UpdatedAt = booking.CreatedAt

	_, err := tx.Exec(`
		INSERT INTO bookings (
			id, user_id, room_count, check_in, check_out, total_price, booking_status,
			offer_id, customer_name, customer_phone, customer_email, booking_source, device_info,
			created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)`,
		booking.ID, booking.UserID, booking.RoomCount, booking.CheckIn, booking.CheckOut,
		booking.TotalPrice, booking.BookingStatus, booking.OfferID,
		booking.CustomerName, booking.CustomerPhone, booking.CustomerEmail,
		booking.BookingSource, booking.DeviceInfo,
		booking.CreatedAt, booking.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create booking: %w", err)
	}
	return nil
}

// CreateRoomMapTx inserts one booking room map row.
func (r *BookingRepository) CreateRoomMapTx(tx *sqlx.Tx, m *models.BookingRoomMap) error {
	m.ID = uuid.New()
	m.CreatedAt = time.Now()
	m.UpdatedAt = m.CreatedAt

	_, err := tx.Exec(`
		INSERT INTO booking_room_maps (
			id, booking_id, room_id, room_type_id, adults, children, is_room_active,
			is_pre_edited_room, is_post_edited_room, edit_suggested_rooms, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		m.ID, m.BookingID, m.RoomID, m.RoomTypeID, m.Adults, m.Children, m.IsRoomActive,
		m.IsPreEditedRoom, m.IsPostEditedRoom, m.EditSuggestedRooms, m.CreatedAt, m.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create booking room map: %w", err)
	}
	return nil
}

// CreateTaxMapTx inserts the tax band row for a booking.
func (r *BookingRepository) CreateTaxMapTx(tx *sqlx.Tx, t *models.BookingTaxMap) error {
	t.ID = uuid.New()
	t.CreatedAt = time.Now()

	_, err := tx.Exec(`
		INSERT INTO booking_tax_maps (id, booking_id, tax_rate, tax_amount, created_at)
		VALUES ($1, $2, $3, $4, $5)`,
		t.ID, t.BookingID, t.TaxRate, t.TaxAmount, t.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create booking tax map: %w", err)
	}
	return nil
}

// CreatePaymentTx inserts an optional payment captured at booking time.
func (r *BookingRepository) CreatePaymentTx(tx *sqlx.Tx, p *models.Payment) error {
	p.ID = uuid.New()
	p.CreatedAt = time.Now()

	_, err := tx.Exec(`
		INSERT INTO payments (id, booking_id, amount, payment_method, payment_reference, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		p.ID, p.BookingID, p.Amount, p.PaymentMethod, p.PaymentReference, p.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create payment: %w", err)
	}
	return nil
}

// GetByID retrieves a booking
func (r *BookingRepository) GetByID(bookingID uuid.UUID) (*models.Booking, error) {
	var booking models.Booking
	err := r.db.Get(&booking, `SELECT `+bookingColumns+` FROM bookings WHERE id = $1`, bookingID)
	if err == nil {
		return &booking, nil
	}
	if isNoRows(err) {
		return nil, apperrors.NotFound("booking %s not found", bookingID)
	}
	return nil, fmt.Errorf("failed to get booking: %w", err)
}

// GetByIDTx retrieves a booking with a row lock so concurrent cancel/edit
// requests serialize on the booking.
func (r *BookingRepository) GetByIDTx(tx *sqlx.Tx, bookingID uuid.UUID) (*models.Booking, error) {
	var booking models.Booking
	err := tx.Get(&booking, `SELECT `+bookingColumns+` FROM bookings WHERE id = $1 FOR UPDATE`, bookingID)
	if err == nil {
		return &booking, nil
	}
	if isNoRows(err) {
		return nil, apperrors.NotFound("booking %s not found", bookingID)
	}
	return nil, fmt.Errorf("failed to get booking: %w", err)
}

// RoomMaps returns all room map rows of a booking.
func (r *BookingRepository) RoomMaps(bookingID uuid.UUID) ([]models.BookingRoomMap, error) {
	var maps []models.BookingRoomMap
	err := r.db.Select(&maps, `
		SELECT `+roomMapColumns+` FROM booking_room_maps WHERE booking_id = $1 ORDER BY created_at`,
		bookingID)
	if err != nil {
		return nil, fmt.Errorf("failed to list booking room maps: %w", err)
	}
	return maps, nil
}

// ActiveRoomMapsTx returns the active room map rows of a booking, locked.
func (r *BookingRepository) ActiveRoomMapsTx(tx *sqlx.Tx, bookingID uuid.UUID) ([]models.BookingRoomMap, error) {
	var maps []models.BookingRoomMap
	err := tx.Select(&maps, `
		SELECT `+roomMapColumns+` FROM booking_room_maps
		WHERE booking_id = $1 AND is_room_active = TRUE
		ORDER BY created_at
		FOR UPDATE`,
		bookingID)
	if err != nil {
		return nil, fmt.Errorf("failed to list active booking room maps: %w", err)
	}
	return maps, nil
}

// TaxMaps returns the tax rows of a booking.
func (r *BookingRepository) TaxMaps(bookingID uuid.UUID) ([]models.BookingTaxMap, error) {
	var taxes []models.BookingTaxMap
	err := r.db.Select(&taxes, `
		SELECT id, booking_id, tax_rate, tax_amount, created_at
		FROM booking_tax_maps WHERE booking_id = $1`,
		bookingID)
	if err != nil {
		return nil, fmt.Errorf("failed to list booking tax maps: %w", err)
	}
	return taxes, nil
}

// ListByUser returns a user's bookings, newest first.
func (r *BookingRepository) ListByUser(userID uuid.UUID) ([]models.Booking, error) {
	var bookings []models.Booking
	err := r.db.Select(&bookings, `
		SELECT `+bookingColumns+` FROM bookings WHERE user_id = $1 ORDER BY created_at DESC`,
		userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list bookings: %w", err)
	}
	return bookings, nil
}

// Query returns bookings matching the admin filters.
func (r *BookingRepository) Query(q models.BookingQuery) ([]models.Booking, error) {
	query := `SELECT ` + bookingColumns + ` FROM bookings WHERE 1=1`
	args := []interface{}{}
	idx := 1
	if q.UserID != nil {
		query += fmt.Sprintf(" AND user_id = $%d", idx)
		args = append(args, *q.UserID)
		idx++
	}
	if q.Status != nil {
		query += fmt.Sprintf(" AND booking_status = $%d", idx)
		args = append(args, *q.Status)
		idx++
	}
	query += " ORDER BY created_at DESC"
	limit := q.Limit
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	query += fmt.Sprintf(" LIMIT $%d", idx)
	args = append(args, limit)
	idx++
	if q.Offset > 0 {
		query += fmt.Sprintf(" OFFSET $%d", idx)
		args = append(args, q.Offset)
	}

	var bookings []models.Booking
	if err := r.db.Select(&bookings, query, args...); err != nil {
		return nil, fmt.Errorf("failed to query bookings: %w", err)
	}
	return bookings, nil
}

// UpdateStatusTx advances a booking's status.
func (r *BookingRepository) UpdateStatusTx(tx *sqlx.Tx, bookingID uuid.UUID, status models.BookingStatus) error {
	_, err := tx.Exec(`
		UPDATE bookings SET booking_status = $2, updated_at = now() WHERE id = $1`,
		bookingID, status)
	if err != nil {
		return fmt.Errorf("failed to update booking status: %w", err)
	}
	return nil
}

// UpdateTotalPriceTx reconciles a booking's total after an edit settlement.
func (r *BookingRepository) UpdateTotalPriceTx(tx *sqlx.Tx, bookingID uuid.UUID, total float64) error {
	_, err := tx.Exec(`
		UPDATE bookings SET total_price = $2, updated_at = now() WHERE id = $1`,
		bookingID, total)
	if err != nil {
		return fmt.Errorf("failed to update booking total: %w", err)
	}
	return nil
}

// DeactivateRoomMapTx soft-removes one room map row.
func (r *BookingRepository) DeactivateRoomMapTx(tx *sqlx.Tx, mapID uuid.UUID) error {
	_, err := tx.Exec(`
		UPDATE booking_room_maps SET is_room_active = FALSE, updated_at = now() WHERE id = $1`,
		mapID)
	if err != nil {
		return fmt.Errorf("failed to deactivate booking room map: %w", err)
	}
	return nil
}

// DeactivateRoomMapsTx soft-removes every active room map row of a booking,
// freeing the rooms for re-allocation once they are released.
func (r *BookingRepository) DeactivateRoomMapsTx(tx *sqlx.Tx, bookingID uuid.UUID) error {
	_, err := tx.Exec(`
		UPDATE booking_room_maps SET is_room_active = FALSE, updated_at = now()
		WHERE booking_id = $1 AND is_room_active = TRUE`,
		bookingID)
	if err != nil {
		return fmt.Errorf("failed to deactivate booking room maps: %w", err)
	}
	return nil
}

// UpdateContactTx refreshes the customer contact fields supplied with an
// edit request. Nil fields keep their current value.
func (r *BookingRepository) UpdateContactTx(tx *sqlx.Tx, bookingID uuid.UUID, name, phone, email *string) error {
	_, err := tx.Exec(`
		UPDATE bookings
		SET customer_name  = COALESCE($2, customer_name),
		    customer_phone = COALESCE($3, customer_phone),
		    customer_email = COALESCE($4, customer_email),
		    updated_at     = now()
		WHERE id = $1`,
		bookingID, name, phone, email)
	if err != nil {
		return fmt.Errorf("failed to update booking contact: %w", err)
	}
	return nil
}

// MarkPreEditedTx retires a room map row replaced by an edit swap, keeping
// it for history with the pre-edited flag set.
func (r *BookingRepository) MarkPreEditedTx(tx *sqlx.Tx, mapID uuid.UUID) error {
	_, err := tx.Exec(`
		UPDATE booking_room_maps
		SET is_room_active = FALSE, is_pre_edited_room = TRUE, updated_at = now()
		WHERE id = $1`,
		mapID)
	if err != nil {
		return fmt.Errorf("failed to mark room map pre-edited: %w", err)
	}
	return nil
}

// SetSuggestedRoomsTx stores admin candidate rooms on a room map row during
// edit review.
func (r *BookingRepository) SetSuggestedRoomsTx(tx *sqlx.Tx, bookingID, roomID uuid.UUID, suggested []uuid.UUID) error {
	_, err := tx.Exec(`
		UPDATE booking_room_maps
		SET edit_suggested_rooms = $3, updated_at = now()
		WHERE booking_id = $1 AND room_id = $2`,
		bookingID, roomID, models.UUIDArray(uuidStrings(suggested)))
	if err != nil {
		return fmt.Errorf("failed to set suggested rooms: %w", err)
	}
	return nil
}

// ClearSuggestionsTx drops all suggestions for a booking once the edit
// reaches a terminal state.
func (r *BookingRepository) ClearSuggestionsTx(tx *sqlx.Tx, bookingID uuid.UUID) error {
	_, err := tx.Exec(`
		UPDATE booking_room_maps
		SET edit_suggested_rooms = NULL, updated_at = now()
		WHERE booking_id = $1`,
		bookingID)
	if err != nil {
		return fmt.Errorf("failed to clear suggested rooms: %w", err)
	}
	return nil
}

// DueForCheckIn returns CONFIRMED bookings whose check-in date is today.
func (r *BookingRepository) DueForCheckIn() ([]models.Booking, error) {
	var bookings []models.Booking
	err := r.db.Select(&bookings, `
		SELECT `+bookingColumns+` FROM bookings
		WHERE booking_status = 'CONFIRMED' AND check_in::date = CURRENT_DATE`)
	if err != nil {
		return nil, fmt.Errorf("failed to list bookings due for check-in: %w", err)
	}
	return bookings, nil
}

// DueForCheckOut returns CHECKED_IN bookings whose check-out date is today.
func (r *BookingRepository) DueForCheckOut() ([]models.Booking, error) {
	var bookings []models.Booking
	err := r.db.Select(&bookings, `
		SELECT `+bookingColumns+` FROM bookings
		WHERE booking_status = 'CHECKED_IN' AND check_out::date = CURRENT_DATE`)
	if err != nil {
		return nil, fmt.Errorf("failed to list bookings due for check-out: %w", err)
	}
	return bookings, nil
}

// ActiveBookingIDsByRoomsTx returns ids of non-final bookings holding any of
// the given rooms through an active room map.
func (r *BookingRepository) ActiveBookingIDsByRoomsTx(tx *sqlx.Tx, roomIDs []uuid.UUID) ([]uuid.UUID, error) {
	if len(roomIDs) == 0 {
		return nil, nil
	}
	var ids []uuid.UUID
	err := tx.Select(&ids, `
		SELECT DISTINCT b.id
		FROM bookings b
		JOIN booking_room_maps m ON m.booking_id = b.id
		WHERE m.room_id = ANY($1)
		  AND m.is_room_active = TRUE
		  AND b.booking_status IN ('CONFIRMED', 'CHECKED_IN')`,
		pq.Array(uuidStrings(roomIDs)))
	if err != nil {
		return nil, fmt.Errorf("failed to find bookings by rooms: %w", err)
	}
	return ids, nil
}

// ExpireStaleOffers deactivates offers whose validity window has passed.
// Returns the number of offers touched.
func (r *BookingRepository) ExpireStaleOffers(now time.Time) (int64, error) {
	res, err := r.db.Exec(`
		UPDATE offers SET is_active = FALSE, updated_at = now()
		WHERE is_active = TRUE AND valid_until < $1`,
		now)
	if err != nil {
		return 0, fmt.Errorf("failed to expire offers: %w", err)
	}
	return res.RowsAffected()
}
