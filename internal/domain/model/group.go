package model

import (
	"time"

	"github.com/google/uuid"
)

// Group is a named permission set. Plans grant groups to their subscribers.
type Group struct {
	ID        int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	Name      string    `gorm:"not null;size:150;uniqueIndex" json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

// TableName specifies the table name for GORM
func (Group) TableName() string {
	return "access_groups"
}

// PlanGroup links a plan to a group it grants.
type PlanGroup struct {
	PlanID  int64 `gorm:"primaryKey"`
	GroupID int64 `gorm:"primaryKey;index"`
}

// TableName specifies the table name for GORM
func (PlanGroup) TableName() string {
	return "plan_groups"
}

// UserGroup records a user's membership in a group.
type UserGroup struct {
	UserID  uuid.UUID `gorm:"type:uuid;primaryKey"`
	GroupID int64     `gorm:"primaryKey;index"`
}

// TableName specifies the table name for GORM
func (UserGroup) TableName() string {
	return "user_groups"
}
