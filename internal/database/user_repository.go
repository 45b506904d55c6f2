package database

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/grandstay/hotel-booking-backend/internal/apperrors"
	"github.com/grandstay/hotel-booking-backend/internal/models"
)

// UserRepository is the UserDirectory backing store. Only the slim read
// path lives here; user management is another service's concern.
type UserRepository struct {
	db *sqlx.DB
}

// NewUserRepository creates a new UserRepository
func NewUserRepository(db *sqlx.DB) *UserRepository {
	return &UserRepository{db: db}
}

// GetByID retrieves a user record for ownership checks.
func (r *UserRepository) GetByID(userID uuid.UUID) (*models.User, error) {
	var user models.User
	err := r.db.Get(&user, `
		SELECT id, full_name, role_id, created_at FROM users WHERE id = $1`,
		userID)
	if err == nil {
		return &user, nil
	}
	if isNoRows(err) {
		return nil, apperrors.NotFound("user %s not found", userID)
	}
	return nil, fmt.Errorf("failed to get user: %w", err)
}
