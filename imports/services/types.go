package services

import (
	"time"
)

// RowStatus is the terminal outcome of one uploaded row.
type RowStatus string

const (
	StatusCreated RowStatus = "Created"
	StatusUpdated RowStatus = "Updated"
	StatusSkipped RowStatus = "Skipped"
	StatusFailed  RowStatus = "Failed"
)

// Fixed row actions. Created and updated rows carry an entity specific action.
const (
	ActionDuplicate   = "Skipped duplicate"
	ActionNoChange    = "No changes detected"
	ActionValidation  = "Validation failed"
	ActionWriteFailed = "Write failed"
	ActionNotRun      = "Not processed"
)

// UploadRow is one parsed data row. Cells are aligned with ParsedFile.Headers.
// Number is the 1-based line of the row in the source sheet (header is line 1).
type UploadRow struct {
	Number int
	Cells  []any
}

// ParsedFile is the output of the tabular parser.
type ParsedFile struct {
	Headers []string
	Rows    []UploadRow
}

// Record is a cleaned or stored record keyed by canonical field name. Values are
// string, []string, time.Time, decimal.Decimal or []models.PersonResponsible.
type Record map[string]any

// Clone returns a shallow copy of the record.
func (r Record) Clone() Record {
	out := make(Record, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}

// Canonical bookkeeping fields shared by every entity.
const (
	FieldID         = "id"
	FieldCreatedAt  = "createdAt"
	FieldModifiedAt = "modifiedAt"
)

// FieldChange is one entry of a ChangeSet.
type FieldChange struct {
	Field string `json:"field"`
	Old   any    `json:"old"`
	New   any    `json:"new"`
}

// ChangeSet lists the provided fields whose stored value differs from the upload.
type ChangeSet []FieldChange

// RowResult is the per-row outcome reported to the caller.
type RowResult struct {
	Row           int               `json:"row"`
	Key           string            `json:"key,omitempty"`
	Fields        map[string]string `json:"fields,omitempty"`
	Status        RowStatus         `json:"status"`
	Action        string            `json:"action"`
	Error         string            `json:"error,omitempty"`
	Warnings      []string          `json:"warnings,omitempty"`
	Changes       ChangeSet         `json:"changes,omitempty"`
	StatusChanged bool              `json:"statusChanged,omitempty"`
}

// Summary holds the running totals of an upload.
type Summary struct {
	TotalRecords     int            `json:"totalRecords"`
	Processed        int            `json:"processed"`
	Created          int            `json:"created"`
	Updated          int            `json:"updated"`
	Failed           int            `json:"failed"`
	Skipped          int            `json:"skipped"`
	DuplicatesInFile int            `json:"duplicatesInFile"`
	NoChangesSkipped int            `json:"noChangesSkipped"`
	StatusChanged    int            `json:"statusChanged"`
	Breakdown        map[string]int `json:"breakdown,omitempty"`
}

// Report is the final structured result of an upload.
type Report struct {
	JobID           string       `json:"jobId,omitempty"`
	Entity          string       `json:"entity"`
	FileName        string       `json:"fileName,omitempty"`
	RequestedBy     string       `json:"requestedBy,omitempty"`
	Success         bool         `json:"success"`
	Message         string       `json:"message"`
	Error           string       `json:"error,omitempty"`
	Summary         Summary      `json:"summary"`
	FieldMapping    FieldMapping `json:"fieldMapping"`
	UnmappedHeaders []string     `json:"unmappedHeaders,omitempty"`
	MissingHeaders  []string     `json:"missingHeaders,omitempty"`
	SeenHeaders     []string     `json:"seenHeaders,omitempty"`
	Rows            []RowResult  `json:"rows"`
	ReportLink      string       `json:"reportLink,omitempty"`
	StartedAt       time.Time    `json:"startedAt"`
	FinishedAt      time.Time    `json:"finishedAt"`
}

// ConfirmedRecord is a record known to be in the store after a batch was
// written: created, updated, or matched with no changes.
type ConfirmedRecord struct {
	Row    int
	Key    string
	Status RowStatus
	Values Record
}
