package model

import (
	"time"

	"gorm.io/gorm"
)

// Address is an address-book entry: a supplier, manufacturer, contractor or
// site address belonging to one tenant.
type Address struct {
	ID             uint           `json:"id" gorm:"primaryKey"`
	TenantID       uint           `json:"tenant_id" gorm:"index;not null"`
	CompanyName    string         `json:"company_name" gorm:"type:varchar(150)"`
	AddressLine1   string         `json:"address_line_1" gorm:"type:varchar(200);not null"`
	AddressLine2   string         `json:"address_line_2" gorm:"type:varchar(200)"`
	City           string         `json:"city" gorm:"type:varchar(100)"`
	Postcode       string         `json:"postcode" gorm:"type:varchar(20)"`
	Country        string         `json:"country" gorm:"type:varchar(100)"`
	ContactName    string         `json:"contact_name" gorm:"type:varchar(100)"`
	Email          string         `json:"email" gorm:"type:varchar(100)"`
	Phone          string         `json:"phone" gorm:"type:varchar(30)"`
	Website        string         `json:"website" gorm:"type:varchar(200)"`
	Notes          string         `json:"notes" gorm:"type:text"`
	IsSupplier     bool           `json:"is_supplier" gorm:"default:false"`
	IsManufacturer bool           `json:"is_manufacturer" gorm:"default:false"`
	CreatedAt      time.Time      `json:"created_at"`
	UpdatedAt      time.Time      `json:"updated_at"`
	DeletedAt      gorm.DeletedAt `json:"-" gorm:"index"`
}

// AddressContact is a person attached to an address. At most one contact
// per address carries is_primary; mutations that set it clear the flag on
// siblings in the same transaction.
type AddressContact struct {
	ID        uint           `json:"id" gorm:"primaryKey"`
	TenantID  uint           `json:"tenant_id" gorm:"index;not null"`
	AddressID uint           `json:"address_id" gorm:"index;not null"`
	Name      string         `json:"name" gorm:"type:varchar(100);not null"`
	Title     string         `json:"title" gorm:"type:varchar(50)"`
	JobRole   string         `json:"job_role" gorm:"type:varchar(100)"`
	Phone     string         `json:"phone" gorm:"type:varchar(30)"`
	Mobile    string         `json:"mobile" gorm:"type:varchar(30)"`
	Email     string         `json:"email" gorm:"type:varchar(100)"`
	Notes     string         `json:"notes" gorm:"type:text"`
	IsPrimary bool           `json:"is_primary" gorm:"default:false"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `json:"-" gorm:"index"`

	Address Address `json:"address,omitempty" gorm:"foreignKey:AddressID"`
}
