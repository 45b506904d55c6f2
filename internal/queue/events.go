// Package queue defines notification payloads exchanged over the message
// broker and the publisher that delivers them.
package queue

// Queue names used by downstream notification consumers.
const (
	QueueBookingConfirmed = "booking.confirmed"
	QueueRefundInitiated  = "refund.initiated"
	QueueEditReviewed     = "booking.edit_reviewed"
)

// NotificationEvent is the generic payload published for user-facing
// notifications. It carries enough for downstream consumers to notify or
// log without querying the primary database.
type NotificationEvent struct {
	UserID    string `json:"user_id"`
	Title     string `json:"title"`
	Message   string `json:"message"`
	EntityRef string `json:"entity_ref"`
	SentAt    string `json:"sent_at"`
}
