package model

import (
	"time"

	"gorm.io/gorm"
)

// InventoryPart is a stocked spare part. LastAlertSentAt drives the
// low-stock alert cooldown.
type InventoryPart struct {
	ID               uint           `json:"id" gorm:"primaryKey"`
	TenantID         uint           `json:"tenant_id" gorm:"index;not null"`
	Name             string         `json:"name" gorm:"type:varchar(150);not null"`
	SKU              string         `json:"sku" gorm:"type:varchar(50);index"`
	Category         string         `json:"category" gorm:"type:varchar(100)"`
	QuantityInStock  int            `json:"quantity_in_stock" gorm:"default:0"`
	ReorderThreshold int            `json:"reorder_threshold" gorm:"default:0"`
	UnitOfMeasure    string         `json:"unit_of_measure" gorm:"type:varchar(30)"`
	UnitCost         *float64       `json:"unit_cost,omitempty"`
	SupplierID       *uint          `json:"supplier_id,omitempty" gorm:"index"` // references an address flagged as supplier
	StorageLocation  string         `json:"storage_location" gorm:"type:varchar(100)"`
	LastAlertSentAt  *time.Time     `json:"last_alert_sent_at,omitempty"`
	CreatedAt        time.Time      `json:"created_at"`
	UpdatedAt        time.Time      `json:"updated_at"`
	DeletedAt        gorm.DeletedAt `json:"-" gorm:"index"`

	Supplier *Address `json:"supplier,omitempty" gorm:"foreignKey:SupplierID"`
}
