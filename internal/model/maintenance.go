package model

import (
	"time"

	"gorm.io/gorm"
)

// PMSchedule is a recurring preventive maintenance plan for an asset
type PMSchedule struct {
	ID             uint           `json:"id" gorm:"primaryKey"`
	TenantID       uint           `json:"tenant_id" gorm:"index;not null"`
	Name           string         `json:"name" gorm:"type:varchar(200);not null"`
	AssetID        *uint          `json:"asset_id,omitempty" gorm:"index"`
	FrequencyValue int            `json:"frequency_value" gorm:"default:1"`
	FrequencyUnit  string         `json:"frequency_unit" gorm:"type:varchar(20);default:'month'"` // day, week, month, year
	NextDueDate    *time.Time     `json:"next_due_date,omitempty"`
	AssignedTo     *uint          `json:"assigned_to,omitempty" gorm:"index"`
	ChecklistItems string         `json:"checklist_items" gorm:"type:jsonb"`
	IsActive       bool           `json:"is_active" gorm:"default:true"`
	CreatedAt      time.Time      `json:"created_at"`
	UpdatedAt      time.Time      `json:"updated_at"`
	DeletedAt      gorm.DeletedAt `json:"-" gorm:"index"`

	Asset *Asset `json:"asset,omitempty" gorm:"foreignKey:AssetID"`
}

// ChecklistRecord is a reusable set of inspection items
type ChecklistRecord struct {
	ID          uint           `json:"id" gorm:"primaryKey"`
	TenantID    uint           `json:"tenant_id" gorm:"index;not null"`
	Name        string         `json:"name" gorm:"type:varchar(200);not null"`
	Description string         `json:"description" gorm:"type:text"`
	Items       string         `json:"items" gorm:"type:jsonb"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
	DeletedAt   gorm.DeletedAt `json:"-" gorm:"index"`
}
