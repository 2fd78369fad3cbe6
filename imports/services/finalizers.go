package services

import (
	"context"
	"encoding/json"
	"fmt"
	"html"
	"path/filepath"
	"strings"

	"go.uber.org/zap"
	"gorm.io/datatypes"

	"medequip-backend/config"
	"medequip-backend/db/models"
	"medequip-backend/utils"
)

// WorkbookWriter writes a workbook to dir and returns its file name.
type WorkbookWriter func(dir, taskName string, headers []string, rows [][]interface{}) (string, error)

// FailedRowsReport writes the failed rows of an upload to a workbook and
// links it from the report.
type FailedRowsReport struct {
	Dir     string
	BaseURL string
	Write   WorkbookWriter
}

func (f *FailedRowsReport) Finalize(_ context.Context, _ *PreparedUpload, report *Report) {
	if report.Summary.Failed == 0 {
		return
	}
	rows := make([][]interface{}, 0, report.Summary.Failed)
	for _, r := range report.Rows {
		if r.Status != StatusFailed {
			continue
		}
		rows = append(rows, []interface{}{r.Row, r.Key, r.Action, r.Error})
	}

	name := fmt.Sprintf("%s_failed_rows_%s", report.Entity, report.JobID)
	fileName, err := f.Write(f.Dir, name, []string{"Row", "Key", "Action", "Error"}, rows)
	if err != nil {
		config.Logger.Warn("failed to write failed-rows report",
			zap.String("entity", report.Entity),
			zap.String("jobId", report.JobID),
			zap.Error(err),
		)
		return
	}
	report.ReportLink = strings.TrimRight(f.BaseURL, "/") + "/files/" + fileName
}

// ReportPath returns the local path of a report linked by FailedRowsReport.
func (f *FailedRowsReport) ReportPath(link string) string {
	if link == "" {
		return ""
	}
	return filepath.Join(f.Dir, filepath.Base(link))
}

// UploadLogWriter persists finished uploads.
type UploadLogWriter interface {
	Create(ctx context.Context, log *models.UploadLog) error
}

// UploadLogRecorder stores an UploadLog with one UploadRowError per failed row.
type UploadLogRecorder struct {
	Logs UploadLogWriter
}

func (u *UploadLogRecorder) Finalize(ctx context.Context, upload *PreparedUpload, report *Report) {
	entry := BuildUploadLog(upload, report)
	if err := u.Logs.Create(ctx, entry); err != nil {
		config.Logger.Warn("failed to persist upload log",
			zap.String("entity", report.Entity),
			zap.String("jobId", report.JobID),
			zap.Error(err),
		)
	}
}

// BuildUploadLog converts a report into its persisted form.
func BuildUploadLog(upload *PreparedUpload, report *Report) *models.UploadLog {
	s := report.Summary
	entry := &models.UploadLog{
		JobID:            report.JobID,
		Entity:           report.Entity,
		FileName:         upload.Request.FileName,
		FileChecksum:     utils.FileChecksum(upload.Request.Data),
		RequestedBy:      upload.Request.RequestedBy,
		TotalRecords:     s.TotalRecords,
		Created:          s.Created,
		Updated:          s.Updated,
		Failed:           s.Failed,
		Skipped:          s.Skipped,
		DuplicatesInFile: s.DuplicatesInFile,
		NoChangesSkipped: s.NoChangesSkipped,
		Message:          report.Message,
		ReportLink:       report.ReportLink,
		Error:            report.Error,
		StartedAt:        report.StartedAt,
		FinishedAt:       report.FinishedAt,
		Status:           models.UploadCompleted,
	}
	if !report.Success {
		entry.Status = models.UploadFailed
	}
	if len(s.Breakdown) > 0 {
		if raw, err := json.Marshal(s.Breakdown); err == nil {
			entry.Breakdown = datatypes.JSON(raw)
		}
	}
	for _, r := range report.Rows {
		if r.Status != StatusFailed && r.Action != ActionDuplicate {
			continue
		}
		entry.RowErrors = append(entry.RowErrors, models.UploadRowError{
			RowNumber: r.Row,
			RecordKey: r.Key,
			Reason:    r.Error,
			ErrorType: rowErrorType(r),
		})
	}
	return entry
}

func rowErrorType(r RowResult) models.BulkUploadErrorType {
	switch r.Action {
	case ActionDuplicate:
		return models.DuplicateErrorType
	case ActionValidation:
		return models.MissingDataErrorType
	}
	return models.WriteErrorType
}

// MailFunc sends one email.
type MailFunc func(to, subject, textBody, htmlBody, attachmentPath string) error

// ReportMailer emails the summary and failed-rows link to the uploader.
type ReportMailer struct {
	Send    MailFunc
	Reports *FailedRowsReport
}

func (m *ReportMailer) Finalize(_ context.Context, upload *PreparedUpload, report *Report) {
	to := upload.Request.RequesterEmail
	if to == "" || m.Send == nil {
		return
	}
	subject := fmt.Sprintf("%s import %s", strings.ToUpper(report.Entity[:1])+report.Entity[1:], statusWord(report))

	text := report.Message
	body := "<p>" + html.EscapeString(report.Message) + "</p>"
	attachment := ""
	if report.ReportLink != "" {
		text += "\n\nFailed rows: " + report.ReportLink
		body += fmt.Sprintf(`<p><a href="%s">Download the failed rows report</a></p>`, html.EscapeString(report.ReportLink))
		if m.Reports != nil {
			attachment = m.Reports.ReportPath(report.ReportLink)
		}
	}
	if err := m.Send(to, subject, text, body, attachment); err != nil {
		config.Logger.Warn("failed to email import report",
			zap.String("to", to),
			zap.String("jobId", report.JobID),
			zap.Error(err),
		)
	}
}

func statusWord(r *Report) string {
	switch {
	case !r.Success:
		return "failed"
	case r.Summary.Failed > 0:
		return "completed with errors"
	}
	return "completed"
}
