package models

import (
	"time"

	"github.com/google/uuid"
)

// Equipment is an installed device tracked by serial number. Warranty ranges on
// it drive the preventive-maintenance schedule.
type Equipment struct {
	ID                      uuid.UUID  `gorm:"type:uuid;primary_key;" json:"id"`
	Serialnumber            string     `gorm:"not null" json:"serialnumber"`
	Materialcode            string     `gorm:"not null;index" json:"materialcode"`
	Materialdescription     string     `json:"materialdescription"`
	Status                  string     `gorm:"default:'Active'" json:"status"`
	Currentcustomer         string     `gorm:"index" json:"currentcustomer"`
	Endcustomer             string     `json:"endcustomer"`
	CustWarrantystartdate   *time.Time `gorm:"column:cust_warrantystartdate;type:date" json:"custWarrantystartdate"`
	CustWarrantyenddate     *time.Time `gorm:"column:cust_warrantyenddate;type:date" json:"custWarrantyenddate"`
	Dealerwarrantystartdate *time.Time `gorm:"column:dealerwarrantystartdate;type:date" json:"dealerwarrantystartdate"`
	Dealerwarrantyenddate   *time.Time `gorm:"column:dealerwarrantyenddate;type:date" json:"dealerwarrantyenddate"`
	Dealer                  string     `json:"dealer"`
	Palnumber               string     `json:"palnumber"`
	Installationreportno    string     `json:"installationreportno"`
	CreatedAt               time.Time  `json:"createdAt"`
	ModifiedAt              time.Time  `json:"modifiedAt"`
}

func (Equipment) TableName() string {
	return "equipment"
}
