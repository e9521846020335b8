package model

import (
	"time"

	"gorm.io/gorm"
)

// FilterPreset is a named, saved combination of list-view filter criteria
// belonging to one user.
type FilterPreset struct {
	ID        uint           `json:"id" gorm:"primaryKey"`
	TenantID  uint           `json:"tenant_id" gorm:"index;not null"`
	UserID    uint           `json:"user_id" gorm:"index;not null"`
	Name      string         `json:"name" gorm:"type:varchar(100);not null"`
	Page      string         `json:"page" gorm:"type:varchar(50);not null"` // list view the preset applies to, e.g. "inventory"
	Criteria  string         `json:"criteria" gorm:"type:jsonb;not null"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `json:"-" gorm:"index"`
}
