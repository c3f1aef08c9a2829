package domain

import (
	"time"

	"github.com/google/uuid"
)

// User is keyed by email. PasswordHash is nil for accounts created through Google.
type User struct {
	ID           uuid.UUID `json:"id" gorm:"type:uuid;primaryKey"`
	Email        string    `json:"email" gorm:"uniqueIndex;not null"`
	PasswordHash *string   `json:"-"`
	FullName     *string   `json:"full_name"`
	GoogleID     *string   `json:"google_id" gorm:"index"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

func (u *User) HasPassword() bool {
	return u.PasswordHash != nil && *u.PasswordHash != ""
}

func (u *User) HasGoogleID() bool {
	return u.GoogleID != nil && *u.GoogleID != ""
}
