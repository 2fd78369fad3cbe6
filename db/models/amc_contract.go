package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Contract sub-type codes carried in satypeZDRC_ZDRN.
const (
	ComprehensiveContractCode    = "ZDRC"
	NonComprehensiveContractCode = "ZDRN"
)

// AMCContract is an annual maintenance contract covering one serial number.
type AMCContract struct {
	ID             uuid.UUID        `gorm:"type:uuid;primary_key;" json:"id"`
	Salesdoc       string           `gorm:"not null" json:"salesdoc"`
	SatypeZDRCZDRN string           `gorm:"column:satype_zdrc_zdrn" json:"satypeZDRC_ZDRN"`
	Startdate      *time.Time       `gorm:"type:date" json:"startdate"`
	Enddate        *time.Time       `gorm:"type:date" json:"enddate"`
	Serialnumber   string           `gorm:"not null;index" json:"serialnumber"`
	Materialcode   string           `json:"materialcode"`
	Contractvalue  *decimal.Decimal `gorm:"type:decimal(18,2)" json:"contractvalue"`
	Status         string           `gorm:"default:'Active'" json:"status"`
	CreatedAt      time.Time        `json:"createdAt"`
	ModifiedAt     time.Time        `json:"modifiedAt"`
}

func (AMCContract) TableName() string {
	return "amc_contracts"
}
