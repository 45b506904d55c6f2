package database

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/grandstay/hotel-booking-backend/internal/apperrors"
	"github.com/grandstay/hotel-booking-backend/internal/models"
)

// BookingEditRepository persists edit negotiations. The requested room
// changes map is stored as JSONB.
type BookingEditRepository struct {
	db *sqlx.DB
}

// NewBookingEditRepository creates a new BookingEditRepository
func NewBookingEditRepository(db *sqlx.DB) *BookingEditRepository {
	return &BookingEditRepository{db: db}
}

const editColumns = `id, booking_id, user_id, requested_room_changes, edit_type, edit_status,
	reviewed_by, lock_expires_at, total_price, created_at, updated_at`

// editRow is the scan target; requested_room_changes needs JSON decoding.
type editRow struct {
	ID                   uuid.UUID         `db:"id"`
	BookingID            uuid.UUID         `db:"booking_id"`
	UserID               uuid.UUID         `db:"user_id"`
	RequestedRoomChanges sql.NullString    `db:"requested_room_changes"`
	EditType             models.EditType   `db:"edit_type"`
	EditStatus           models.EditStatus `db:"edit_status"`
	ReviewedBy           *uuid.UUID        `db:"reviewed_by"`
	LockExpiresAt        *time.Time        `db:"lock_expires_at"`
	TotalPrice           float64           `db:"total_price"`
	CreatedAt            time.Time         `db:"created_at"`
	UpdatedAt            time.Time         `db:"updated_at"`
}

func (row *editRow) toModel() (*models.BookingEdit, error) {
	edit := &models.BookingEdit{
		ID:            row.ID,
		BookingID:     row.BookingID,
		UserID:        row.UserID,
		EditType:      row.EditType,
		EditStatus:    row.EditStatus,
		ReviewedBy:    row.ReviewedBy,
		LockExpiresAt: row.LockExpiresAt,
		TotalPrice:    row.TotalPrice,
		CreatedAt:     row.CreatedAt,
		UpdatedAt:     row.UpdatedAt,
	}
	if row.RequestedRoomChanges.Valid && row.RequestedRoomChanges.String != "" {
		if err := json.Unmarshal([]byte(row.RequestedRoomChanges.String), &edit.RequestedRoomChanges); err != nil {
			return nil, fmt.Errorf("failed to unmarshal requested_room_changes: %w", err)
		}
	}
	return edit, nil
}

// CreateTx inserts a new edit in PENDING state.
func (r *BookingEditRepository) CreateTx(tx *sqlx.Tx, edit *models.BookingEdit) error {
	edit.ID = uuid.New()
	edit.CreatedAt = time.Now()
	edit.UpdatedAt = edit.CreatedAt

	var changesJSON interface{}
	if len(edit.RequestedRoomChanges) > 0 {
		data, err := json.Marshal(edit.RequestedRoomChanges)
		if err != nil {
			return fmt.Errorf("failed to marshal requested_room_changes: %w", err)
		}
		changesJSON = string(data)
	}

	_, err := tx.Exec(`
		INSERT INTO booking_edits (
			id, booking_id, user_id, requested_room_changes, edit_type, edit_status,
			reviewed_by, lock_expires_at, total_price, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		edit.ID, edit.BookingID, edit.UserID, changesJSON, edit.EditType, edit.EditStatus,
		edit.ReviewedBy, edit.LockExpiresAt, edit.TotalPrice, edit.CreatedAt, edit.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create booking edit: %w", err)
	}
	return nil
}

// GetByID retrieves an edit
func (r *BookingEditRepository) GetByID(editID uuid.UUID) (*models.BookingEdit, error) {
	var row editRow
	err := r.db.Get(&row, `SELECT `+editColumns+` FROM booking_edits WHERE id = $1`, editID)
	if err != nil {
		if isNoRows(err) {
			return nil, apperrors.NotFound("booking edit %s not found", editID)
		}
		return nil, fmt.Errorf("failed to get booking edit: %w", err)
	}
	return row.toModel()
}

// GetByIDTx retrieves an edit with a row lock.
func (r *BookingEditRepository) GetByIDTx(tx *sqlx.Tx, editID uuid.UUID) (*models.BookingEdit, error) {
	var row editRow
	err := tx.Get(&row, `SELECT `+editColumns+` FROM booking_edits WHERE id = $1 FOR UPDATE`, editID)
	if err != nil {
		if isNoRows(err) {
			return nil, apperrors.NotFound("booking edit %s not found", editID)
		}
		return nil, fmt.Errorf("failed to get booking edit: %w", err)
	}
	return row.toModel()
}

// OpenEditExists reports whether the booking already has an edit in
// PENDING or AWAITING_CUSTOMER_RESPONSE state.
func (r *BookingEditRepository) OpenEditExists(bookingID uuid.UUID) (bool, error) {
	var count int
	err := r.db.Get(&count, `
		SELECT COUNT(*) FROM booking_edits
		WHERE booking_id = $1 AND edit_status IN ('PENDING', 'AWAITING_CUSTOMER_RESPONSE')`,
		bookingID)
	if err != nil {
		return false, fmt.Errorf("failed to check open edits: %w", err)
	}
	return count > 0, nil
}

// MarkAwaitingTx moves a PENDING edit to AWAITING_CUSTOMER_RESPONSE under a
// review lock.
func (r *BookingEditRepository) MarkAwaitingTx(tx *sqlx.Tx, editID, reviewedBy uuid.UUID, lockExpiresAt time.Time) error {
	_, err := tx.Exec(`
		UPDATE booking_edits
		SET edit_status = 'AWAITING_CUSTOMER_RESPONSE', reviewed_by = $2, lock_expires_at = $3, updated_at = now()
		WHERE id = $1`,
		editID, reviewedBy, lockExpiresAt)
	if err != nil {
		return fmt.Errorf("failed to mark edit awaiting customer: %w", err)
	}
	return nil
}

// UpdateStatusTx sets a terminal edit status.
func (r *BookingEditRepository) UpdateStatusTx(tx *sqlx.Tx, editID uuid.UUID, status models.EditStatus) error {
	_, err := tx.Exec(`
		UPDATE booking_edits SET edit_status = $2, updated_at = now() WHERE id = $1`,
		editID, status)
	if err != nil {
		return fmt.Errorf("failed to update edit status: %w", err)
	}
	return nil
}

// UpdateTotalPriceTx stores the recalculated total on the edit.
func (r *BookingEditRepository) UpdateTotalPriceTx(tx *sqlx.Tx, editID uuid.UUID, total float64) error {
	_, err := tx.Exec(`
		UPDATE booking_edits SET total_price = $2, updated_at = now() WHERE id = $1`,
		editID, total)
	if err != nil {
		return fmt.Errorf("failed to update edit total: %w", err)
	}
	return nil
}

// ExpiredAwaitingEdits returns edits still awaiting the customer past their
// lock expiry. The unlock sweep processes each edit in its own transaction.
func (r *BookingEditRepository) ExpiredAwaitingEdits(now time.Time) ([]models.BookingEdit, error) {
	var rows []editRow
	err := r.db.Select(&rows, `
		SELECT `+editColumns+` FROM booking_edits
		WHERE edit_status = 'AWAITING_CUSTOMER_RESPONSE' AND lock_expires_at < $1`,
		now)
	if err != nil {
		return nil, fmt.Errorf("failed to list expired edits: %w", err)
	}
	edits := make([]models.BookingEdit, 0, len(rows))
	for i := range rows {
		edit, convErr := rows[i].toModel()
		if convErr != nil {
			return nil, convErr
		}
		edits = append(edits, *edit)
	}
	return edits, nil
}
