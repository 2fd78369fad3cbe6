package models

import (
	"time"

	"github.com/google/uuid"
)

// Product carries the maintenance frequency code for a material (part) number.
type Product struct {
	ID                 uuid.UUID `gorm:"type:uuid;primary_key;" json:"id"`
	Partnoid           string    `gorm:"uniqueIndex;not null" json:"partnoid"`
	Productdescription string    `json:"productdescription"`
	Frequency          string    `json:"frequency"`
	Status             string    `gorm:"default:'Active'" json:"status"`
	CreatedAt          time.Time `gorm:"autoCreateTime" json:"createdAt"`
	ModifiedAt         time.Time `gorm:"autoUpdateTime" json:"modifiedAt"`
}
