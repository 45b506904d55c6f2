package services

import (
	"context"

	"github.com/google/uuid"

	"github.com/grandstay/hotel-booking-backend/internal/models"
)

// Collaborator interfaces consumed by the core. Implementations are glue
// (repositories, broker publisher, permission evaluator) and are injected
// in main.

// UserDirectory resolves user records for ownership checks.
type UserDirectory interface {
	GetByID(userID uuid.UUID) (*models.User, error)
}

// PermissionChecker gates admin actions on the caller's opaque permission
// set.
type PermissionChecker interface {
	Has(userPermissions []string, resource, action string) bool
}

// NotificationSink delivers user-facing notifications. Delivery is
// fire-and-forget; use Notifier to enforce the best-effort contract.
type NotificationSink interface {
	Send(ctx context.Context, queueName string, userID uuid.UUID, title, message, entityRef string) error
}

// PaymentMethodCatalog validates payout channels before a refund
// transaction update.
type PaymentMethodCatalog interface {
	Exists(methodID uuid.UUID) (bool, error)
}
