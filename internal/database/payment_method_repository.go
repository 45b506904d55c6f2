package database

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

// PaymentMethodRepository is the PaymentMethodCatalog backing store.
type PaymentMethodRepository struct {
	db *sqlx.DB
}

// NewPaymentMethodRepository creates a new PaymentMethodRepository
func NewPaymentMethodRepository(db *sqlx.DB) *PaymentMethodRepository {
	return &PaymentMethodRepository{db: db}
}

// Exists reports whether an active payment method with the id exists.
func (r *PaymentMethodRepository) Exists(methodID uuid.UUID) (bool, error) {
	var count int
	err := r.db.Get(&count, `
		SELECT COUNT(*) FROM payment_methods WHERE id = $1 AND is_active = TRUE`,
		methodID)
	if err != nil {
		return false, fmt.Errorf("failed to check payment method: %w", err)
	}
	return count > 0, nil
}
