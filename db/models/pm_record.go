package models

import (
	"time"

	"github.com/google/uuid"
)

type PMStatus string

const (
	PMStatusDue       PMStatus = "Due"
	PMStatusOverdue   PMStatus = "Overdue"
	PMStatusLapsed    PMStatus = "Lapsed"
	PMStatusCompleted PMStatus = "Completed"
)

// PMRecord is one scheduled preventive-maintenance visit. PmType is the type
// prefix plus sequence, e.g. "WPM01".
type PMRecord struct {
	ID                  uuid.UUID `gorm:"type:uuid;primary_key;" json:"id"`
	PmType              string    `gorm:"not null" json:"pmType"`
	Serialnumber        string    `gorm:"not null;index" json:"serialnumber"`
	Materialcode        string    `json:"materialcode"`
	Materialdescription string    `json:"materialdescription"`
	Customercode        string    `gorm:"index" json:"customercode"`
	Customername        string    `json:"customername"`
	Region              string    `json:"region"`
	City                string    `json:"city"`
	PmDueMonth          string    `gorm:"index" json:"pmDueMonth"` // MM/YYYY
	PmDueDate           time.Time `gorm:"type:date" json:"pmDueDate"`
	PmStatus            PMStatus  `gorm:"index" json:"pmStatus"`
	CreatedAt           time.Time `json:"createdAt"`
	ModifiedAt          time.Time `json:"modifiedAt"`
}

func (PMRecord) TableName() string {
	return "pms"
}
