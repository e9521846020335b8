package model

import (
	"time"

	"gorm.io/gorm"
)

// LocationLevel names a tier in the location hierarchy (site, building,
// floor, room).
type LocationLevel struct {
	ID        uint           `json:"id" gorm:"primaryKey"`
	TenantID  uint           `json:"tenant_id" gorm:"index;not null"`
	Name      string         `json:"name" gorm:"type:varchar(100);not null"`
	Code      string         `json:"code" gorm:"type:varchar(20)"`
	IsActive  bool           `json:"is_active" gorm:"default:true"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `json:"-" gorm:"index"`
}

// Department is an organizational unit that locations and assets link to
type Department struct {
	ID          uint           `json:"id" gorm:"primaryKey"`
	TenantID    uint           `json:"tenant_id" gorm:"index;not null"`
	Name        string         `json:"name" gorm:"type:varchar(100);not null"`
	Description string         `json:"description" gorm:"type:text"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
	DeletedAt   gorm.DeletedAt `json:"-" gorm:"index"`
}

// Location is a physical place in the tenant's hierarchy. ParentLocationID
// is self-referential and may be nil for top-level locations.
type Location struct {
	ID               uint           `json:"id" gorm:"primaryKey"`
	TenantID         uint           `json:"tenant_id" gorm:"index;not null"`
	Name             string         `json:"name" gorm:"type:varchar(150);not null"`
	LocationCode     string         `json:"location_code" gorm:"type:varchar(50);not null"`
	LocationLevelID  *uint          `json:"location_level_id,omitempty" gorm:"index"`
	DepartmentID     *uint          `json:"department_id,omitempty" gorm:"index"`
	ParentLocationID *uint          `json:"parent_location_id,omitempty" gorm:"index"`
	Description      string         `json:"description" gorm:"type:text"`
	CreatedAt        time.Time      `json:"created_at"`
	UpdatedAt        time.Time      `json:"updated_at"`
	DeletedAt        gorm.DeletedAt `json:"-" gorm:"index"`

	LocationLevel  *LocationLevel `json:"location_level,omitempty" gorm:"foreignKey:LocationLevelID"`
	Department     *Department    `json:"department,omitempty" gorm:"foreignKey:DepartmentID"`
	ParentLocation *Location      `json:"parent_location,omitempty" gorm:"foreignKey:ParentLocationID"`
}
