package model

import (
	"time"

	"gorm.io/gorm"
)

// ServiceContract is a vendor maintenance contract. When
// EmailReminderEnabled is set and ReminderDaysBefore is non-nil, tenant
// admins are emailed once the reminder date arrives.
type ServiceContract struct {
	ID                   uint           `json:"id" gorm:"primaryKey"`
	TenantID             uint           `json:"tenant_id" gorm:"index;not null"`
	ContractTitle        string         `json:"contract_title" gorm:"type:varchar(200);not null"`
	VendorName           string         `json:"vendor_name" gorm:"type:varchar(150)"`
	AddressID            *uint          `json:"address_id,omitempty" gorm:"index"`
	StartDate            *time.Time     `json:"start_date,omitempty"`
	EndDate              time.Time      `json:"end_date" gorm:"not null"`
	Cost                 *float64       `json:"cost,omitempty"`
	ReminderDaysBefore   *int           `json:"reminder_days_before,omitempty"`
	EmailReminderEnabled bool           `json:"email_reminder_enabled" gorm:"default:false"`
	Notes                string         `json:"notes" gorm:"type:text"`
	CreatedAt            time.Time      `json:"created_at"`
	UpdatedAt            time.Time      `json:"updated_at"`
	DeletedAt            gorm.DeletedAt `json:"-" gorm:"index"`
}

// ContractReminderLog records one reminder delivered to one user
type ContractReminderLog struct {
	ID             uint      `json:"id" gorm:"primaryKey"`
	TenantID       uint      `json:"tenant_id" gorm:"index;not null"`
	ContractID     uint      `json:"contract_id" gorm:"index;not null"`
	UserID         uint      `json:"user_id" gorm:"index;not null"`
	DeliveryMethod string    `json:"delivery_method" gorm:"type:varchar(20);default:'email'"`
	CreatedAt      time.Time `json:"created_at"`
}
