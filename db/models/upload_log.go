package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// BulkUploadErrorType classifies why a row did not make it into the store.
type BulkUploadErrorType string

const (
	DuplicateErrorType   BulkUploadErrorType = "Duplicate"
	MissingDataErrorType BulkUploadErrorType = "Missing Data"
	WriteErrorType       BulkUploadErrorType = "Write Error"
)

type UploadLogStatus string

const (
	UploadCompleted UploadLogStatus = "Completed"
	UploadFailed    UploadLogStatus = "Failed"
)

// UploadLog is the persisted summary of one bulk upload.
type UploadLog struct {
	ID               uuid.UUID        `gorm:"type:uuid;primary_key;" json:"id"`
	JobID            string           `gorm:"index" json:"job_id"`
	Entity           string           `gorm:"not null;index" json:"entity"`
	FileName         string           `json:"file_name"`
	FileChecksum     string           `gorm:"index" json:"file_checksum"`
	RequestedBy      string           `json:"requested_by"`
	TotalRecords     int              `json:"total_records"`
	Created          int              `json:"created"`
	Updated          int              `json:"updated"`
	Failed           int              `json:"failed"`
	Skipped          int              `json:"skipped"`
	DuplicatesInFile int              `json:"duplicates_in_file"`
	NoChangesSkipped int              `json:"no_changes_skipped"`
	Breakdown        datatypes.JSON   `json:"breakdown"`
	Message          string           `gorm:"type:text" json:"message"`
	ReportLink       string           `json:"report_link"`
	Status           UploadLogStatus  `json:"status"`
	Error            string           `gorm:"type:text" json:"error"`
	StartedAt        time.Time        `json:"started_at"`
	FinishedAt       time.Time        `json:"finished_at"`
	RowErrors        []UploadRowError `gorm:"foreignKey:UploadLogID" json:"row_errors,omitempty"`
}

// UploadRowError records a Failed or duplicate row of an upload.
type UploadRowError struct {
	ID          uuid.UUID           `gorm:"type:uuid;primary_key;" json:"id"`
	UploadLogID uuid.UUID           `gorm:"type:uuid;index" json:"upload_log_id"`
	RowNumber   int                 `json:"row_number"`
	RecordKey   string              `json:"record_key"`
	Reason      string              `gorm:"type:text" json:"reason"`
	ErrorType   BulkUploadErrorType `json:"error_type"`
	CreatedAt   time.Time           `gorm:"autoCreateTime" json:"created_at"`
}
