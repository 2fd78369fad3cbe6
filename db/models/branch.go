package models

import (
	"time"

	"github.com/google/uuid"
)

// Branch is a service branch office. Its natural key is the lower-cased name.
type Branch struct {
	ID              uuid.UUID `gorm:"type:uuid;primary_key;" json:"id"`
	Name            string    `gorm:"not null" json:"name"`
	State           string    `gorm:"not null;index" json:"state"`
	City            string    `json:"city"`
	BranchShortCode string    `gorm:"not null" json:"branchShortCode"`
	Status          string    `gorm:"default:'Active'" json:"status"`
	CreatedAt       time.Time `json:"createdAt"`
	ModifiedAt      time.Time `json:"modifiedAt"`
}
