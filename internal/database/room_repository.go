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

// RoomRepository is the room inventory. All status transitions of a room
// go through this type so the HELD <-> hold_expires_at invariant is kept
// in one place.
type RoomRepository struct {
	db *sqlx.DB
}

// NewRoomRepository creates a new RoomRepository
func NewRoomRepository(db *sqlx.DB) *RoomRepository {
	return &RoomRepository{db: db}
}

// uuidStrings converts ids for use with pq.Array.
func uuidStrings(ids []uuid.UUID) []string {
	out := make([]string, len(ids))
	for i, id := range ids {
		out[i] = id.String()
	}
	return out
}

// AllocateRoomsTx selects count AVAILABLE rooms of the given type and moves
// them to target (BOOKED, or HELD with holdExpiresAt) inside the caller's
// transaction. The selection uses FOR UPDATE SKIP LOCKED so two concurrent
// allocations can never pick the same row; under-supply returns
// InsufficientInventory and the caller's rollback releases everything.
func (r *RoomRepository) AllocateRoomsTx(tx *sqlx.Tx, roomTypeID uuid.UUID, count int, target models.RoomStatus, holdExpiresAt *time.Time) ([]uuid.UUID, error) {
	if count <= 0 {
		return nil, apperrors.BadRequest("room count must be positive")
	}
	if target != models.RoomStatusBooked && target != models.RoomStatusHeld {
		return nil, apperrors.BadRequest("rooms can only be allocated as BOOKED or HELD")
	}
	if target == models.RoomStatusHeld && holdExpiresAt == nil {
		return nil, apperrors.BadRequest("a HELD allocation requires an expiry")
	}
	if target == models.RoomStatusBooked {
		holdExpiresAt = nil
	}

	var ids []uuid.UUID
	err := tx.Select(&ids, `
		SELECT id FROM rooms
		WHERE room_type_id = $1 AND status = 'AVAILABLE'
		ORDER BY room_number
		LIMIT $2
		FOR UPDATE SKIP LOCKED`,
		roomTypeID, count)
	if err != nil {
		return nil, fmt.Errorf("failed to select available rooms: %w", err)
	}
	if len(ids) < count {
		return nil, apperrors.InsufficientInventory(
			"room type %s has %d available rooms, %d requested", roomTypeID, len(ids), count)
	}

	_, err = tx.Exec(`
		UPDATE rooms
		SET status = $1, hold_expires_at = $2, updated_at = now()
		WHERE id = ANY($3)`,
		target, holdExpiresAt, pq.Array(uuidStrings(ids)))
	if err != nil {
		return nil, fmt.Errorf("failed to mark rooms %s: %w", target, err)
	}
	return ids, nil
}

// ReleaseTx returns a room to AVAILABLE and clears its hold expiry and
// freeze reason. Releasing an AVAILABLE room is a no-op.
func (r *RoomRepository) ReleaseTx(tx *sqlx.Tx, roomID uuid.UUID) error {
	_, err := tx.Exec(`
		UPDATE rooms
		SET status = 'AVAILABLE', hold_expires_at = NULL, freeze_reason = NULL, updated_at = now()
		WHERE id = $1`,
		roomID)
	if err != nil {
		return fmt.Errorf("failed to release room %s: %w", roomID, err)
	}
	return nil
}

// ReleaseManyTx releases a batch of rooms in one statement.
func (r *RoomRepository) ReleaseManyTx(tx *sqlx.Tx, roomIDs []uuid.UUID) error {
	if len(roomIDs) == 0 {
		return nil
	}
	_, err := tx.Exec(`
		UPDATE rooms
		SET status = 'AVAILABLE', hold_expires_at = NULL, freeze_reason = NULL, updated_at = now()
		WHERE id = ANY($1)`,
		pq.Array(uuidStrings(roomIDs)))
	if err != nil {
		return fmt.Errorf("failed to release rooms: %w", err)
	}
	return nil
}

// MarkBookedTx asserts a room is BOOKED (used at check-in and when a
// customer accepts a suggested room).
func (r *RoomRepository) MarkBookedTx(tx *sqlx.Tx, roomIDs []uuid.UUID) error {
	if len(roomIDs) == 0 {
		return nil
	}
	_, err := tx.Exec(`
		UPDATE rooms
		SET status = 'BOOKED', hold_expires_at = NULL, freeze_reason = NULL, updated_at = now()
		WHERE id = ANY($1)`,
		pq.Array(uuidStrings(roomIDs)))
	if err != nil {
		return fmt.Errorf("failed to mark rooms booked: %w", err)
	}
	return nil
}

// GetByID retrieves a room
func (r *RoomRepository) GetByID(roomID uuid.UUID) (*models.Room, error) {
	var room models.Room
	err := r.db.Get(&room, `
		SELECT id, room_type_id, room_number, status, hold_expires_at, freeze_reason, created_at, updated_at
		FROM rooms
		WHERE id = $1`,
		roomID)
	if err == nil {
		return &room, nil
	}
	if isNoRows(err) {
		return nil, apperrors.NotFound("room %s not found", roomID)
	}
	return nil, fmt.Errorf("failed to get room: %w", err)
}

// GetByIDTx retrieves a room with a row lock inside the transaction.
func (r *RoomRepository) GetByIDTx(tx *sqlx.Tx, roomID uuid.UUID) (*models.Room, error) {
	var room models.Room
	err := tx.Get(&room, `
		SELECT id, room_type_id, room_number, status, hold_expires_at, freeze_reason, created_at, updated_at
		FROM rooms
		WHERE id = $1
		FOR UPDATE`,
		roomID)
	if err == nil {
		return &room, nil
	}
	if isNoRows(err) {
		return nil, apperrors.NotFound("room %s not found", roomID)
	}
	return nil, fmt.Errorf("failed to get room: %w", err)
}

// Lock freezes an AVAILABLE room so edit negotiation can suggest it without
// it being taken by another allocation.
func (r *RoomRepository) Lock(roomID uuid.UUID, reason string) error {
	res, err := r.db.Exec(`
		UPDATE rooms
		SET status = 'FROZEN', freeze_reason = $2, updated_at = now()
		WHERE id = $1 AND status = 'AVAILABLE'`,
		roomID, reason)
	if err != nil {
		return fmt.Errorf("failed to lock room %s: %w", roomID, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read lock result: %w", err)
	}
	if affected == 0 {
		room, getErr := r.GetByID(roomID)
		if getErr != nil {
			return getErr
		}
		return apperrors.Conflict("room %s is %s and cannot be frozen", roomID, room.Status)
	}
	return nil
}

// Unlock releases a FROZEN room back to AVAILABLE.
func (r *RoomRepository) Unlock(roomID uuid.UUID) error {
	res, err := r.db.Exec(`
		UPDATE rooms
		SET status = 'AVAILABLE', freeze_reason = NULL, updated_at = now()
		WHERE id = $1 AND status = 'FROZEN'`,
		roomID)
	if err != nil {
		return fmt.Errorf("failed to unlock room %s: %w", roomID, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read unlock result: %w", err)
	}
	if affected == 0 {
		room, getErr := r.GetByID(roomID)
		if getErr != nil {
			return getErr
		}
		return apperrors.BadRequest("room %s is %s, not FROZEN", roomID, room.Status)
	}
	return nil
}

// ExpiredHeldRoomsTx returns HELD rooms whose hold lapsed before now, locked
// for the sweep transaction. SKIP LOCKED keeps concurrent sweeps and request
// transactions from stalling each other.
func (r *RoomRepository) ExpiredHeldRoomsTx(tx *sqlx.Tx, now time.Time) ([]models.Room, error) {
	var rooms []models.Room
	err := tx.Select(&rooms, `
		SELECT id, room_type_id, room_number, status, hold_expires_at, freeze_reason, created_at, updated_at
		FROM rooms
		WHERE status = 'HELD' AND hold_expires_at < $1
		FOR UPDATE SKIP LOCKED`,
		now)
	if err != nil {
		return nil, fmt.Errorf("failed to select expired held rooms: %w", err)
	}
	return rooms, nil
}

// ReleaseSuggestedTx releases suggested rooms that are still parked in a
// non-final state (FROZEN while awaiting the customer, or HELD). Rooms that
// became BOOKED in the meantime are left alone.
func (r *RoomRepository) ReleaseSuggestedTx(tx *sqlx.Tx, roomIDs []uuid.UUID) error {
	if len(roomIDs) == 0 {
		return nil
	}
	_, err := tx.Exec(`
		UPDATE rooms
		SET status = 'AVAILABLE', hold_expires_at = NULL, freeze_reason = NULL, updated_at = now()
		WHERE id = ANY($1) AND status IN ('FROZEN', 'HELD')`,
		pq.Array(uuidStrings(roomIDs)))
	if err != nil {
		return fmt.Errorf("failed to release suggested rooms: %w", err)
	}
	return nil
}

// CountAvailableByType returns how many rooms of a type are AVAILABLE.
func (r *RoomRepository) CountAvailableByType(roomTypeID uuid.UUID) (int, error) {
	var count int
	err := r.db.Get(&count, `
		SELECT COUNT(*) FROM rooms
		WHERE room_type_id = $1 AND status = 'AVAILABLE'`,
		roomTypeID)
	if err != nil {
		return 0, fmt.Errorf("failed to count available rooms: %w", err)
	}
	return count, nil
}
