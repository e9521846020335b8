package model

import (
	"time"

	"gorm.io/gorm"
)

// Asset statuses and priorities accepted by validation
const (
	AssetStatusActive   = "Active"
	AssetStatusInactive = "Inactive"
	AssetStatusRetired  = "Retired"
)

// Asset is a maintained piece of equipment. ParentAssetID supports
// parent/child hierarchies (a pump inside an HVAC unit).
type Asset struct {
	ID            uint           `json:"id" gorm:"primaryKey"`
	TenantID      uint           `json:"tenant_id" gorm:"index;not null"`
	Name          string         `json:"name" gorm:"type:varchar(150);not null"`
	AssetTag      string         `json:"asset_tag" gorm:"type:varchar(50);index"`
	CategoryID    *uint          `json:"category_id,omitempty" gorm:"index"`
	LocationID    *uint          `json:"location_id,omitempty" gorm:"index"`
	DepartmentID  *uint          `json:"department_id,omitempty" gorm:"index"`
	ParentAssetID *uint          `json:"parent_asset_id,omitempty" gorm:"index"`
	Status        string         `json:"status" gorm:"type:varchar(20);default:'Active'"`
	Priority      string         `json:"priority" gorm:"type:varchar(20);default:'Medium'"`
	Description   string         `json:"description" gorm:"type:text"`
	Manufacturer  string         `json:"manufacturer" gorm:"type:varchar(100)"`
	ModelNumber   string         `json:"model_number" gorm:"type:varchar(100)"`
	SerialNumber  string         `json:"serial_number" gorm:"type:varchar(100)"`
	PurchaseCost  *float64       `json:"purchase_cost,omitempty"`
	PurchaseDate  *time.Time     `json:"purchase_date,omitempty"`
	CreatedAt     time.Time      `json:"created_at"`
	UpdatedAt     time.Time      `json:"updated_at"`
	DeletedAt     gorm.DeletedAt `json:"-" gorm:"index"`

	Category *Category `json:"category,omitempty" gorm:"foreignKey:CategoryID"`
	Location *Location `json:"location,omitempty" gorm:"foreignKey:LocationID"`
}
