package model

import (
	"time"

	"gorm.io/gorm"
)

// UserInvitation is a single-use invitation to join a tenant. The token is
// an opaque value embedded in the accept link; it is dead once accepted_at
// is set or expires_at has passed.
type UserInvitation struct {
	ID         uint           `json:"id" gorm:"primaryKey"`
	TenantID   uint           `json:"tenant_id" gorm:"index;not null"`
	Email      string         `json:"email" gorm:"type:varchar(100);not null"`
	Name       string         `json:"name" gorm:"type:varchar(100)"`
	Role       string         `json:"role" gorm:"type:varchar(50);default:'member'"`
	Token      string         `json:"-" gorm:"type:varchar(64);uniqueIndex;not null"`
	InvitedBy  uint           `json:"invited_by"`
	ExpiresAt  time.Time      `json:"expires_at"`
	AcceptedAt *time.Time     `json:"accepted_at,omitempty"`
	CreatedAt  time.Time      `json:"created_at"`
	UpdatedAt  time.Time      `json:"updated_at"`
	DeletedAt  gorm.DeletedAt `json:"-" gorm:"index"`
}
