package models

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// EditType indicates whether an edit was requested before or after the
// booking's check-in date. Room swaps and per-room refunds are only legal
// for PRE edits.
type EditType string

const (
	EditTypePre  EditType = "PRE"
	EditTypePost EditType = "POST"
)

// EditStatus represents the negotiation state of a booking edit.
type EditStatus string

const (
	EditStatusPending           EditStatus = "PENDING"
	EditStatusAwaitingCustomer  EditStatus = "AWAITING_CUSTOMER_RESPONSE"
	EditStatusApproved          EditStatus = "APPROVED"
	EditStatusPartiallyApproved EditStatus = "PARTIALLY_APPROVED"
	EditStatusNoChange          EditStatus = "NO_CHANGE"
	EditStatusRejected          EditStatus = "REJECTED"
	EditStatusExpired           EditStatus = "EXPIRED"
)

// Open reports whether the edit still blocks new edit requests for its
// booking.
func (s EditStatus) Open() bool {
	return s == EditStatusPending || s == EditStatusAwaitingCustomer
}

// RoomChangeMap maps a currently booked room id to the desired room type id.
type RoomChangeMap map[uuid.UUID]uuid.UUID

// BookingEdit is a customer-initiated request to modify the rooms of an
// existing booking, reviewed by an admin under a 30-minute lock.
type BookingEdit struct {
	ID                   uuid.UUID     `json:"id" db:"id"`
	BookingID            uuid.UUID     `json:"booking_id" db:"booking_id"`
	UserID               uuid.UUID     `json:"user_id" db:"user_id"`
	RequestedRoomChanges RoomChangeMap `json:"requested_room_changes,omitempty" db:"-"`
	EditType             EditType      `json:"edit_type" db:"edit_type"`
	EditStatus           EditStatus    `json:"edit_status" db:"edit_status"`
	ReviewedBy           *uuid.UUID    `json:"reviewed_by,omitempty" db:"reviewed_by"`
	LockExpiresAt        *time.Time    `json:"lock_expires_at,omitempty" db:"lock_expires_at"`
	TotalPrice           float64       `json:"total_price" db:"total_price"`
	CreatedAt            time.Time     `json:"created_at" db:"created_at"`
	UpdatedAt            time.Time     `json:"updated_at" db:"updated_at"`
}

// RequestEditRequest is the customer request opening an edit negotiation.
type RequestEditRequest struct {
	RoomChanges   RoomChangeMap `json:"room_changes,omitempty"`
	CustomerName  *string       `json:"customer_name,omitempty"`
	CustomerPhone *string       `json:"customer_phone,omitempty"`
	CustomerEmail *string       `json:"customer_email,omitempty"`
}

// ReviewEditRequest carries the admin's per-room candidate suggestions, or
// an outright rejection of the edit.
type ReviewEditRequest struct {
	Suggestions map[uuid.UUID][]uuid.UUID `json:"suggestions,omitempty"`
	Reject      bool                      `json:"reject,omitempty"`
}

// Validate validates the review request.
func (r *ReviewEditRequest) Validate() error {
	if r.Reject {
		return nil
	}
	if len(r.Suggestions) == 0 {
		return errors.New("at least one room suggestion is required")
	}
	for roomID, candidates := range r.Suggestions {
		if roomID == uuid.Nil {
			return errors.New("suggestion keys must be valid room ids")
		}
		if len(candidates) == 0 {
			return errors.New("every suggested room needs at least one candidate")
		}
	}
	return nil
}

// DecisionAction is the customer's choice for one room under negotiation.
type DecisionAction string

const (
	DecisionAccept DecisionAction = "ACCEPT"
	DecisionKeep   DecisionAction = "KEEP"
	DecisionRefund DecisionAction = "REFUND"
)

// Valid reports whether a is a known decision action.
func (a DecisionAction) Valid() bool {
	return a == DecisionAccept || a == DecisionKeep || a == DecisionRefund
}

// RoomDecision is the customer's decision for a single room.
type RoomDecision struct {
	Action       DecisionAction `json:"action" binding:"required"`
	TargetRoomID *uuid.UUID     `json:"target_room_id,omitempty"`
}

// DecideEditRequest carries the customer's per-room decisions.
type DecideEditRequest struct {
	Decisions map[uuid.UUID]RoomDecision `json:"decisions" binding:"required"`
}

// Validate validates the decision request.
func (r *DecideEditRequest) Validate() error {
	if len(r.Decisions) == 0 {
		return errors.New("at least one room decision is required")
	}
	for roomID, d := range r.Decisions {
		if roomID == uuid.Nil {
			return errors.New("decision keys must be valid room ids")
		}
		if !d.Action.Valid() {
			return errors.New("decision action must be ACCEPT, KEEP or REFUND")
		}
		if d.Action == DecisionAccept && (d.TargetRoomID == nil || *d.TargetRoomID == uuid.Nil) {
			return errors.New("ACCEPT decisions require target_room_id")
		}
	}
	return nil
}

// EditSettlement is the financial breakdown returned after a decision.
type EditSettlement struct {
	EditID         uuid.UUID  `json:"edit_id"`
	EditStatus     EditStatus `json:"edit_status"`
	OriginalAmount float64    `json:"original_amount"`
	RefundedAmount float64    `json:"refunded_amount"`
	NewTotalAmount float64    `json:"new_total_amount"`
	RefundID       *uuid.UUID `json:"refund_id,omitempty"`
}
