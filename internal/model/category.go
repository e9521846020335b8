package model

import (
	"time"

	"gorm.io/gorm"
)

// Category groups assets and asset tag prefixes
type Category struct {
	ID          uint           `json:"id" gorm:"primaryKey"`
	TenantID    uint           `json:"tenant_id" gorm:"index;not null;uniqueIndex:idx_category_tenant_name"`
	Name        string         `json:"name" gorm:"type:varchar(100);not null;uniqueIndex:idx_category_tenant_name"`
	Description string         `json:"description" gorm:"type:text"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
	DeletedAt   gorm.DeletedAt `json:"-" gorm:"index"`
}

// AssetPrefix defines an asset tag prefix: a single letter plus a numeric
// code (1-999), unique per tenant, optionally linked to a category.
type AssetPrefix struct {
	ID           uint           `json:"id" gorm:"primaryKey"`
	TenantID     uint           `json:"tenant_id" gorm:"index;not null;uniqueIndex:idx_prefix_tenant_combo"`
	PrefixLetter string         `json:"prefix_letter" gorm:"type:varchar(1);not null;uniqueIndex:idx_prefix_tenant_combo"`
	NumberCode   int            `json:"number_code" gorm:"not null;uniqueIndex:idx_prefix_tenant_combo"`
	CategoryID   *uint          `json:"category_id,omitempty" gorm:"index"`
	Description  string         `json:"description" gorm:"type:text"`
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
	DeletedAt    gorm.DeletedAt `json:"-" gorm:"index"`

	Category *Category `json:"category,omitempty" gorm:"foreignKey:CategoryID"`
}
