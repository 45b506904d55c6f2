package models

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// BookingStatus represents the lifecycle state of a booking. Status is
// advanced only by schedulers or the cancellation flow and never moves
// backwards.
type BookingStatus string

const (
	BookingStatusConfirmed  BookingStatus = "CONFIRMED"
	BookingStatusCheckedIn  BookingStatus = "CHECKED_IN"
	BookingStatusCheckedOut BookingStatus = "CHECKED_OUT"
	BookingStatusCancelled  BookingStatus = "CANCELLED"
	BookingStatusExpired    BookingStatus = "EXPIRED"
)

// Valid reports whether s is a known booking status.
func (s BookingStatus) Valid() bool {
	switch s {
	case BookingStatusConfirmed, BookingStatusCheckedIn, BookingStatusCheckedOut,
		BookingStatusCancelled, BookingStatusExpired:
		return true
	}
	return false
}

// Booking represents a confirmed stay covering one or more rooms.
type Booking struct {
	ID            uuid.UUID     `json:"id" db:"id"`
	UserID        uuid.UUID     `json:"user_id" db:"user_id"`
	RoomCount     int           `json:"room_count" db:"room_count"`
	CheckIn       time.Time     `json:"check_in" db:"check_in"`
	CheckOut      time.Time     `json:"check_out" db:"check_out"`
	TotalPrice    float64       `json:"total_price" db:"total_price"`
	BookingStatus BookingStatus `json:"booking_status" db:"booking_status"`
	OfferID       *uuid.UUID    `json:"offer_id,omitempty" db:"offer_id"`
	CustomerName  *string       `json:"customer_name,omitempty" db:"customer_name"`
	CustomerPhone *string       `json:"customer_phone,omitempty" db:"customer_phone"`
	CustomerEmail *string       `json:"customer_email,omitempty" db:"customer_email"`
	BookingSource *string       `json:"booking_source,omitempty" db:"booking_source"`
	DeviceInfo    *string       `json:"device_info,omitempty" db:"device_info"`
	CreatedAt     time.Time     `json:"created_at" db:"created_at"`
	UpdatedAt     time.Time     `json:"updated_at" db:"updated_at"`
}

// Nights returns the length of the stay in nights, never below one.
func (b *Booking) Nights() int {
	nights := int(b.CheckOut.Sub(b.CheckIn).Hours() / 24)
	if nights < 1 {
		nights = 1
	}
	return nights
}

// BookingRoomMap binds a booking to one allocated room. A room id may
// appear active in at most one booking's map at any time.
type BookingRoomMap struct {
	ID                 uuid.UUID `json:"id" db:"id"`
	BookingID          uuid.UUID `json:"booking_id" db:"booking_id"`
	RoomID             uuid.UUID `json:"room_id" db:"room_id"`
	RoomTypeID         uuid.UUID `json:"room_type_id" db:"room_type_id"`
	Adults             int       `json:"adults" db:"adults"`
	Children           int       `json:"children" db:"children"`
	IsRoomActive       bool      `json:"is_room_active" db:"is_room_active"`
	IsPreEditedRoom    bool      `json:"is_pre_edited_room" db:"is_pre_edited_room"`
	IsPostEditedRoom   bool      `json:"is_post_edited_room" db:"is_post_edited_room"`
	EditSuggestedRooms UUIDArray `json:"edit_suggested_rooms,omitempty" db:"edit_suggested_rooms"`
	CreatedAt          time.Time `json:"created_at" db:"created_at"`
	UpdatedAt          time.Time `json:"updated_at" db:"updated_at"`
}

// BookingTaxMap records the tax band applied to a booking's total price.
type BookingTaxMap struct {
	ID        uuid.UUID `json:"id" db:"id"`
	BookingID uuid.UUID `json:"booking_id" db:"booking_id"`
	TaxRate   float64   `json:"tax_rate" db:"tax_rate"`
	TaxAmount float64   `json:"tax_amount" db:"tax_amount"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// Payment records an optional payment captured at booking time.
type Payment struct {
	ID               uuid.UUID `json:"id" db:"id"`
	BookingID        uuid.UUID `json:"booking_id" db:"booking_id"`
	Amount           float64   `json:"amount" db:"amount"`
	PaymentMethod    string    `json:"payment_method" db:"payment_method"`
	PaymentReference *string   `json:"payment_reference,omitempty" db:"payment_reference"`
	CreatedAt        time.Time `json:"created_at" db:"created_at"`
}

// Offer is a promotional discount with a validity window. Stale offers are
// deactivated by the nightly scheduler.
type Offer struct {
	ID              uuid.UUID `json:"id" db:"id"`
	Title           string    `json:"title" db:"title"`
	DiscountPercent float64   `json:"discount_percent" db:"discount_percent"`
	ValidUntil      time.Time `json:"valid_until" db:"valid_until"`
	IsActive        bool      `json:"is_active" db:"is_active"`
	CreatedAt       time.Time `json:"created_at" db:"created_at"`
	UpdatedAt       time.Time `json:"updated_at" db:"updated_at"`
}

// BookingRoomRequest describes one requested room in a create request.
type BookingRoomRequest struct {
	RoomTypeID uuid.UUID `json:"room_type_id" binding:"required"`
	Adults     int       `json:"adults" binding:"required,min=1"`
	Children   int       `json:"children"`
}

// PaymentRequest is the optional payment block of a create request.
type PaymentRequest struct {
	PaymentMethod    string  `json:"payment_method" binding:"required"`
	PaymentReference *string `json:"payment_reference,omitempty"`
}

// CreateBookingRequest represents the request to create a booking.
type CreateBookingRequest struct {
	Rooms         []BookingRoomRequest `json:"rooms" binding:"required"`
	CheckIn       time.Time            `json:"check_in" binding:"required"`
	CheckOut      time.Time            `json:"check_out" binding:"required"`
	OfferID       *uuid.UUID           `json:"offer_id,omitempty"`
	CustomerName  *string              `json:"customer_name,omitempty"`
	CustomerPhone *string              `json:"customer_phone,omitempty"`
	CustomerEmail *string              `json:"customer_email,omitempty"`
	Payment       *PaymentRequest      `json:"payment,omitempty"`
	// HoldMinutes, when positive, places the rooms on a timed hold instead
	// of booking them outright. Held rooms are released by the hold expiry
	// sweep if the hold lapses.
	HoldMinutes int `json:"hold_minutes,omitempty"`
}

// Validate validates the create booking request.
func (r *CreateBookingRequest) Validate() error {
	if len(r.Rooms) == 0 {
		return errors.New("at least one room must be requested")
	}
	for _, room := range r.Rooms {
		if room.RoomTypeID == uuid.Nil {
			return errors.New("room_type_id is required for every room")
		}
		if room.Adults < 1 {
			return errors.New("every room requires at least one adult")
		}
		if room.Children < 0 {
			return errors.New("children cannot be negative")
		}
	}
	if !r.CheckOut.After(r.CheckIn) {
		return errors.New("check_out must be after check_in")
	}
	if r.HoldMinutes < 0 {
		return errors.New("hold_minutes cannot be negative")
	}
	return nil
}

// BookingDetail is the hydrated booking returned to the API layer.
type BookingDetail struct {
	Booking Booking          `json:"booking"`
	Rooms   []BookingRoomMap `json:"rooms"`
	Taxes   []BookingTaxMap  `json:"taxes"`
}

// BookingQuery carries the admin list filters.
type BookingQuery struct {
	UserID *uuid.UUID     `form:"user_id"`
	Status *BookingStatus `form:"status"`
	Limit  int            `form:"limit"`
	Offset int            `form:"offset"`
}
