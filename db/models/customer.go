package models

import (
	"time"

	"github.com/google/uuid"
)

type Customer struct {
	ID             uuid.UUID `gorm:"type:uuid;primary_key;" json:"id"`
	Customercodeid string    `gorm:"not null" json:"customercodeid"`
	Customername   string    `gorm:"not null" json:"customername"`
	Hospitalname   string    `json:"hospitalname"`
	Street         string    `json:"street"`
	City           string    `gorm:"index" json:"city"`
	Postalcode     string    `json:"postalcode"`
	District       string    `json:"district"`
	State          string    `json:"state"`
	Region         string    `gorm:"index" json:"region"`
	Country        string    `json:"country"`
	Telephone      string    `json:"telephone"`
	Taxnumber1     string    `json:"taxnumber1"`
	Taxnumber2     string    `json:"taxnumber2"`
	Email          string    `json:"email"`
	Customertype   string    `json:"customertype"`
	Status         string    `gorm:"default:'Active'" json:"status"`
	CreatedAt      time.Time `json:"createdAt"`
	ModifiedAt     time.Time `json:"modifiedAt"`
}
