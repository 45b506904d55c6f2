package database

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/grandstay/hotel-booking-backend/internal/apperrors"
	"github.com/grandstay/hotel-booking-backend/internal/models"
)

// RoomTypeRepository reads room type catalog data (nightly rates).
type RoomTypeRepository struct {
	db *sqlx.DB
}

// NewRoomTypeRepository creates a new RoomTypeRepository
func NewRoomTypeRepository(db *sqlx.DB) *RoomTypeRepository {
	return &RoomTypeRepository{db: db}
}

const roomTypeColumns = `id, name, price_per_night, capacity, created_at, updated_at`

// GetByID retrieves a room type
func (r *RoomTypeRepository) GetByID(roomTypeID uuid.UUID) (*models.RoomType, error) {
	var rt models.RoomType
	err := r.db.Get(&rt, `SELECT `+roomTypeColumns+` FROM room_types WHERE id = $1`, roomTypeID)
	if err == nil {
		return &rt, nil
	}
	if isNoRows(err) {
		return nil, apperrors.NotFound("room type %s not found", roomTypeID)
	}
	return nil, fmt.Errorf("failed to get room type: %w", err)
}

// GetByIDTx retrieves a room type inside a transaction.
func (r *RoomTypeRepository) GetByIDTx(tx *sqlx.Tx, roomTypeID uuid.UUID) (*models.RoomType, error) {
	var rt models.RoomType
	err := tx.Get(&rt, `SELECT `+roomTypeColumns+` FROM room_types WHERE id = $1`, roomTypeID)
	if err == nil {
		return &rt, nil
	}
	if isNoRows(err) {
		return nil, apperrors.NotFound("room type %s not found", roomTypeID)
	}
	return nil, fmt.Errorf("failed to get room type: %w", err)
}
