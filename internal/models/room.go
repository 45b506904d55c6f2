package models

import (
	"time"

	"github.com/google/uuid"
)

// RoomStatus represents the disposition of a room. Exactly one status
// describes a room at any time.
type RoomStatus string

const (
	RoomStatusAvailable   RoomStatus = "AVAILABLE"
	RoomStatusBooked      RoomStatus = "BOOKED"
	RoomStatusHeld        RoomStatus = "HELD"
	RoomStatusFrozen      RoomStatus = "FROZEN"
	RoomStatusMaintenance RoomStatus = "MAINTENANCE"
)

// Valid reports whether s is a known room status.
func (s RoomStatus) Valid() bool {
	switch s {
	case RoomStatusAvailable, RoomStatusBooked, RoomStatusHeld, RoomStatusFrozen, RoomStatusMaintenance:
		return true
	}
	return false
}

// RoomType describes a sellable category of rooms with a nightly rate.
type RoomType struct {
	ID            uuid.UUID `json:"id" db:"id"`
	Name          string    `json:"name" db:"name"`
	PricePerNight float64   `json:"price_per_night" db:"price_per_night"`
	Capacity      int       `json:"capacity" db:"capacity"`
	CreatedAt     time.Time `json:"created_at" db:"created_at"`
	UpdatedAt     time.Time `json:"updated_at" db:"updated_at"`
}

// Room is a physical room tracked by the inventory.
// Invariant: Status == HELD requires HoldExpiresAt to be set; every other
// status requires it to be null.
type Room struct {
	ID            uuid.UUID  `json:"id" db:"id"`
	RoomTypeID    uuid.UUID  `json:"room_type_id" db:"room_type_id"`
	RoomNumber    string     `json:"room_number" db:"room_number"`
	Status        RoomStatus `json:"status" db:"status"`
	HoldExpiresAt *time.Time `json:"hold_expires_at,omitempty" db:"hold_expires_at"`
	FreezeReason  *string    `json:"freeze_reason,omitempty" db:"freeze_reason"`
	CreatedAt     time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at" db:"updated_at"`
}

// LockRoomRequest is the admin request to freeze a room during edit
// negotiation.
type LockRoomRequest struct {
	Reason string `json:"reason" binding:"required"`
}
