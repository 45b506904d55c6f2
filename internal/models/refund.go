package models

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// RefundType distinguishes how a refund was produced.
type RefundType string

const (
	// RefundTypeCancellation covers a full booking cancellation.
	RefundTypeCancellation RefundType = "CANCELLATION"
	// RefundTypePartialCancel covers cancelling a subset of rooms.
	RefundTypePartialCancel RefundType = "PARTIAL_CANCEL"
	// RefundTypePartial covers per-room refunds from an edit decision.
	RefundTypePartial RefundType = "PARTIAL"
)

// RefundStatus tracks the payout progress of a refund. It only moves
// forward: INITIATED -> PROCESSED -> COMPLETED.
type RefundStatus string

const (
	RefundStatusInitiated RefundStatus = "INITIATED"
	RefundStatusProcessed RefundStatus = "PROCESSED"
	RefundStatusCompleted RefundStatus = "COMPLETED"
)

// rank orders refund statuses for forward-only transitions.
func (s RefundStatus) rank() int {
	switch s {
	case RefundStatusInitiated:
		return 0
	case RefundStatusProcessed:
		return 1
	case RefundStatusCompleted:
		return 2
	}
	return -1
}

// Valid reports whether s is a known refund status.
func (s RefundStatus) Valid() bool { return s.rank() >= 0 }

// CanTransitionTo reports whether moving from s to next is a legal
// forward transition.
func (s RefundStatus) CanTransitionTo(next RefundStatus) bool {
	return next.Valid() && next.rank() > s.rank()
}

// Refund records money owed back to a customer, with per-room detail in
// RefundRoomMap rows.
type Refund struct {
	ID                  uuid.UUID    `json:"id" db:"id"`
	BookingID           uuid.UUID    `json:"booking_id" db:"booking_id"`
	UserID              uuid.UUID    `json:"user_id" db:"user_id"`
	RefundType          RefundType   `json:"refund_type" db:"refund_type"`
	RefundStatus        RefundStatus `json:"refund_status" db:"refund_status"`
	RefundAmount        float64      `json:"refund_amount" db:"refund_amount"`
	TransactionMethodID *uuid.UUID   `json:"transaction_method_id,omitempty" db:"transaction_method_id"`
	TransactionNumber   *string      `json:"transaction_number,omitempty" db:"transaction_number"`
	InitiatedAt         time.Time    `json:"initiated_at" db:"initiated_at"`
	ProcessedAt         *time.Time   `json:"processed_at,omitempty" db:"processed_at"`
	CompletedAt         *time.Time   `json:"completed_at,omitempty" db:"completed_at"`
	CreatedAt           time.Time    `json:"created_at" db:"created_at"`
	UpdatedAt           time.Time    `json:"updated_at" db:"updated_at"`
}

// RefundRoomMap records the refunded amount attributed to one room.
type RefundRoomMap struct {
	ID        uuid.UUID `json:"id" db:"id"`
	RefundID  uuid.UUID `json:"refund_id" db:"refund_id"`
	RoomID    uuid.UUID `json:"room_id" db:"room_id"`
	Amount    float64   `json:"amount" db:"amount"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// PaymentMethod is a payout channel an admin can attach to a refund.
type PaymentMethod struct {
	ID       uuid.UUID `json:"id" db:"id"`
	Name     string    `json:"name" db:"name"`
	IsActive bool      `json:"is_active" db:"is_active"`
}

// CancelBookingRequest represents the request to cancel a booking fully or
// for a subset of rooms.
type CancelBookingRequest struct {
	Full    bool        `json:"full"`
	RoomIDs []uuid.UUID `json:"room_ids,omitempty"`
}

// Validate validates the cancel request.
func (r *CancelBookingRequest) Validate() error {
	if !r.Full && len(r.RoomIDs) == 0 {
		return errors.New("partial cancellation requires a non-empty room_ids list")
	}
	return nil
}

// UpdateRefundTransactionRequest is the admin request filling in payout
// details on a refund.
type UpdateRefundTransactionRequest struct {
	Status              *RefundStatus `json:"status,omitempty"`
	TransactionMethodID *uuid.UUID    `json:"transaction_method_id,omitempty"`
	TransactionNumber   *string       `json:"transaction_number,omitempty"`
}

// RefundDetail is a refund with its per-room rows.
type RefundDetail struct {
	Refund Refund          `json:"refund"`
	Rooms  []RefundRoomMap `json:"rooms"`
}
