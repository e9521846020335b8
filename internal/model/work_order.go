package model

import (
	"time"

	"gorm.io/gorm"
)

// WorkOrder is a maintenance task raised against an asset
type WorkOrder struct {
	ID              uint           `json:"id" gorm:"primaryKey"`
	TenantID        uint           `json:"tenant_id" gorm:"index;not null;uniqueIndex:idx_tenant_wo_number"`
	WorkOrderNumber string         `json:"work_order_number" gorm:"type:varchar(30);uniqueIndex:idx_tenant_wo_number"`
	Title           string         `json:"title" gorm:"type:varchar(200);not null"`
	Description     string         `json:"description" gorm:"type:text"`
	AssetID         *uint          `json:"asset_id,omitempty" gorm:"index"`
	AssignedTo      *uint          `json:"assigned_to,omitempty" gorm:"index"`
	CreatedBy       uint           `json:"created_by"`
	Status          string         `json:"status" gorm:"type:varchar(20);default:'open'"`      // open, in_progress, completed, cancelled
	Priority        string         `json:"priority" gorm:"type:varchar(20);default:'medium'"`  // low, medium, high, urgent
	WorkType        string         `json:"work_type" gorm:"type:varchar(20);default:'corrective'"` // corrective, preventive, emergency, inspection
	EstimatedHours  *float64       `json:"estimated_hours,omitempty"`
	ActualHours     *float64       `json:"actual_hours,omitempty"`
	EstimatedCost   *float64       `json:"estimated_cost,omitempty"`
	ActualCost      *float64       `json:"actual_cost,omitempty"`
	DueDate         *time.Time     `json:"due_date,omitempty"`
	CompletedAt     *time.Time     `json:"completed_at,omitempty"`
	CreatedAt       time.Time      `json:"created_at"`
	UpdatedAt       time.Time      `json:"updated_at"`
	DeletedAt       gorm.DeletedAt `json:"-" gorm:"index"`

	Asset *Asset `json:"asset,omitempty" gorm:"foreignKey:AssetID"`
}

// WorkOrderComment is an activity-log entry on a work order
type WorkOrderComment struct {
	ID          uint           `json:"id" gorm:"primaryKey"`
	TenantID    uint           `json:"tenant_id" gorm:"index;not null"`
	WorkOrderID uint           `json:"work_order_id" gorm:"index;not null"`
	UserID      uint           `json:"user_id" gorm:"index;not null"`
	Comment     string         `json:"comment" gorm:"type:text;not null"`
	CommentType string         `json:"comment_type" gorm:"type:varchar(20);default:'comment'"` // comment, status_change, assignment, time_log
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
	DeletedAt   gorm.DeletedAt `json:"-" gorm:"index"`
}

// TimeRecord logs hours worked against a work order, PM schedule or asset.
// At least one parent reference must be set; the handler enforces it.
type TimeRecord struct {
	ID           uint           `json:"id" gorm:"primaryKey"`
	TenantID     uint           `json:"tenant_id" gorm:"index;not null"`
	WorkOrderID  *uint          `json:"work_order_id,omitempty" gorm:"index"`
	PMScheduleID *uint          `json:"pm_schedule_id,omitempty" gorm:"index"`
	AssetID      *uint          `json:"asset_id,omitempty" gorm:"index"`
	UserID       uint           `json:"user_id" gorm:"index;not null"`
	WorkDate     time.Time      `json:"work_date" gorm:"not null"`
	HoursWorked  float64        `json:"hours_worked" gorm:"not null"`
	StartTime    string         `json:"start_time,omitempty" gorm:"type:varchar(8)"`
	EndTime      string         `json:"end_time,omitempty" gorm:"type:varchar(8)"`
	Description  string         `json:"description" gorm:"type:text;not null"`
	WorkType     string         `json:"work_type,omitempty" gorm:"type:varchar(30)"`
	CreatedBy    *uint          `json:"created_by,omitempty"`
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
	DeletedAt    gorm.DeletedAt `json:"-" gorm:"index"`
}
