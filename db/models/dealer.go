package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// PersonResponsible pairs a dealer contact with their employee id.
type PersonResponsible struct {
	Name       string `json:"name"`
	EmployeeID string `json:"employeeid"`
}

type Dealer struct {
	ID                uuid.UUID                              `gorm:"type:uuid;primary_key;" json:"id"`
	Name              string                                 `gorm:"not null" json:"name"`
	PersonResponsible datatypes.JSONSlice[PersonResponsible] `json:"personresponsible"`
	Email             string                                 `json:"email"`
	Dealercode        string                                 `gorm:"not null" json:"dealercode"`
	State             datatypes.JSONSlice[string]            `json:"state"`
	City              datatypes.JSONSlice[string]            `json:"city"`
	Address           string                                 `json:"address"`
	Pincode           string                                 `json:"pincode"`
	Status            string                                 `gorm:"default:'Active'" json:"status"`
	CreatedAt         time.Time                              `json:"createdAt"`
	ModifiedAt        time.Time                              `json:"modifiedAt"`
}
