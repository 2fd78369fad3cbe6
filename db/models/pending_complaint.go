package models

import (
	"time"

	"github.com/google/uuid"
)

type PendingComplaint struct {
	ID                      uuid.UUID  `gorm:"type:uuid;primary_key;" json:"id"`
	NotificationComplaintid string     `gorm:"column:notification_complaintid;not null" json:"notification_complaintid"`
	Notificationtype        string     `json:"notificationtype"`
	Notificationdate        *time.Time `gorm:"type:date" json:"notificationdate"`
	Userstatus              string     `json:"userstatus"`
	Materialdescription     string     `json:"materialdescription"`
	Serialnumber            string     `gorm:"not null;index" json:"serialnumber"`
	Devicedata              string     `json:"devicedata"`
	Salesoffice             string     `json:"salesoffice"`
	Materialcode            string     `json:"materialcode"`
	Reportedproblem         string     `json:"reportedproblem"`
	Dealercode              string     `json:"dealercode"`
	Customercode            string     `json:"customercode"`
	Partnerresponsible      string     `json:"partnerresponsible"`
	Breakdown               string     `json:"breakdown"`
	Status                  string     `gorm:"default:'Open'" json:"status"`
	CreatedAt               time.Time  `json:"createdAt"`
	ModifiedAt              time.Time  `json:"modifiedAt"`
}
