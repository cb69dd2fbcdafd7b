package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// BaseModel audit columns embedded by every business model.
type BaseModel struct {
	CreatedAt time.Time `gorm:"not null" json:"created_at"`
	CreatedBy *string   `gorm:"type:uuid" json:"created_by,omitempty"`
	UpdatedAt time.Time `gorm:"not null" json:"updated_at"`
	UpdatedBy *string   `gorm:"type:uuid" json:"updated_by,omitempty"`
}

// SoftDeleteModel audit columns with soft delete.
type SoftDeleteModel struct {
	BaseModel
	DeletedAt gorm.DeletedAt `gorm:"index"     json:"deleted_at,omitempty"`
	DeletedBy *string        `gorm:"type:uuid" json:"deleted_by,omitempty"`
}

// VersionedModel adds the optimistic lock column. Every state-changing
// update filters on the version it read and increments it.
type VersionedModel struct {
	BaseModel
	Version int `gorm:"not null" json:"version"`
}

// newID fills an empty primary key and starts the version counter.
func newID(id *string, version *int) {
	if *id == "" {
		*id = uuid.NewString()
	}
	if version != nil && *version == 0 {
		*version = 1
	}
}
