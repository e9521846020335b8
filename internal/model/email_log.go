package model

import (
	"time"
)

// EmailLog records the outcome of one notification email. Background jobs
// never retry; a failed row is the only trace of a failed send.
type EmailLog struct {
	ID           uint      `json:"id" gorm:"primaryKey"`
	TenantID     *uint     `json:"tenant_id,omitempty" gorm:"index"`
	Recipient    string    `json:"recipient" gorm:"type:varchar(100);not null"`
	Subject      string    `json:"subject" gorm:"type:varchar(255)"`
	EmailType    string    `json:"email_type" gorm:"type:varchar(50)"` // low_stock_alert, contract_reminder, user_invitation
	Status       string    `json:"status" gorm:"type:varchar(20)"`     // sent, failed
	ProviderID   string    `json:"provider_id" gorm:"type:varchar(100)"`
	ErrorMessage string    `json:"error_message" gorm:"type:text"`
	CreatedAt    time.Time `json:"created_at"`
}
