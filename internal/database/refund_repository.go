package database

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/grandstay/hotel-booking-backend/internal/apperrors"
	"github.com/grandstay/hotel-booking-backend/internal/models"
)

// RefundRepository persists refunds and their per-room detail rows.
type RefundRepository struct {
	db *sqlx.DB
}

// NewRefundRepository creates a new RefundRepository
func NewRefundRepository(db *sqlx.DB) *RefundRepository {
	return &RefundRepository{db: db}
}

const refundColumns = `id, booking_id, user_id, refund_type, refund_status, refund_amount,
	transaction_method_id, transaction_number, initiated_at, processed_at, completed_at,
	created_at, updated_at`

// CreateTx inserts a refund in INITIATED state.
func (r *RefundRepository) CreateTx(tx *sqlx.Tx, refund *models.Refund) error {
	refund.ID = uuid.New()
	refund.RefundStatus = models.RefundStatusInitiated
	refund.InitiatedAt = time.Now()
	refund.CreatedAt = refund.InitiatedAt
	refund.UpdatedAt = refund.InitiatedAt

	_, err := tx.Exec(`
		INSERT INTO refunds (
			id, booking_id, user_id, refund_type, refund_status, refund_amount,
			transaction_method_id, transaction_number, initiated_at, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		refund.ID, refund.BookingID, refund.UserID, refund.RefundType, refund.RefundStatus,
		refund.RefundAmount, refund.TransactionMethodID, refund.TransactionNumber,
		refund.InitiatedAt, refund.CreatedAt, refund.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create refund: %w", err)
	}
	return nil
}

// CreateRoomMapTx inserts one per-room refund row.
func (r *RefundRepository) CreateRoomMapTx(tx *sqlx.Tx, m *models.RefundRoomMap) error {
	m.ID = uuid.New()
	m.CreatedAt = time.Now()

	_, err := tx.Exec(`
		INSERT INTO refund_room_maps (id, refund_id, room_id, amount, created_at)
		VALUES ($1, $2, $3, $4, $5)`,
		m.ID, m.RefundID, m.RoomID, m.Amount, m.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create refund room map: %w", err)
	}
	return nil
}

// GetByID retrieves a refund
func (r *RefundRepository) GetByID(refundID uuid.UUID) (*models.Refund, error) {
	var refund models.Refund
	err := r.db.Get(&refund, `SELECT `+refundColumns+` FROM refunds WHERE id = $1`, refundID)
	if err == nil {
		return &refund, nil
	}
	if isNoRows(err) {
		return nil, apperrors.NotFound("refund %s not found", refundID)
	}
	return nil, fmt.Errorf("failed to get refund: %w", err)
}

// RoomMaps returns the per-room rows of a refund.
func (r *RefundRepository) RoomMaps(refundID uuid.UUID) ([]models.RefundRoomMap, error) {
	var maps []models.RefundRoomMap
	err := r.db.Select(&maps, `
		SELECT id, refund_id, room_id, amount, created_at
		FROM refund_room_maps WHERE refund_id = $1 ORDER BY created_at`,
		refundID)
	if err != nil {
		return nil, fmt.Errorf("failed to list refund room maps: %w", err)
	}
	return maps, nil
}

// UpdateTransaction stores payout details and status timestamps filled in by
// an admin.
func (r *RefundRepository) UpdateTransaction(refund *models.Refund) error {
	refund.UpdatedAt = time.Now()
	_, err := r.db.Exec(`
		UPDATE refunds
		SET refund_status = $2, transaction_method_id = $3, transaction_number = $4,
		    processed_at = $5, completed_at = $6, updated_at = $7
		WHERE id = $1`,
		refund.ID, refund.RefundStatus, refund.TransactionMethodID, refund.TransactionNumber,
		refund.ProcessedAt, refund.CompletedAt, refund.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to update refund transaction: %w", err)
	}
	return nil
}
