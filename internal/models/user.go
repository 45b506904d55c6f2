package models

import (
	"time"

	"github.com/google/uuid"
)

// User is the slim directory record consumed for ownership checks. User
// management itself lives in another service.
type User struct {
	ID        uuid.UUID `json:"id" db:"id"`
	FullName  string    `json:"full_name" db:"full_name"`
	RoleID    uuid.UUID `json:"role_id" db:"role_id"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}
