package model

import (
	"time"

	"github.com/google/uuid"
)

// User mirrors the identity of an authenticated account. Rows are created
// on first authenticated request.
type User struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	Email     string    `gorm:"not null;size:255;uniqueIndex" json:"email"`
	FirstName string    `gorm:"size:150" json:"first_name,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName specifies the table name for GORM
func (User) TableName() string {
	return "users"
}
