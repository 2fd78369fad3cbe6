package repositories

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"medequip-backend/db/models"
)

// UploadLogRepository persists and lists finished uploads.
type UploadLogRepository interface {
	Create(ctx context.Context, log *models.UploadLog) error
	GetFilteredUploadLogs(ctx context.Context, filters map[string]string, limit, offset int) ([]models.UploadLog, int64, error)
	GetByJobID(ctx context.Context, jobID string) (*models.UploadLog, error)
}

type uploadLogRepository struct {
	db *gorm.DB
}

func NewUploadLogRepository(db *gorm.DB) UploadLogRepository {
	return &uploadLogRepository{db: db}
}

// Create stores the log and its row errors in one transaction.
func (r *uploadLogRepository) Create(ctx context.Context, log *models.UploadLog) error {
	if log.ID == uuid.Nil {
		log.ID = uuid.New()
	}
	for i := range log.RowErrors {
		if log.RowErrors[i].ID == uuid.Nil {
			log.RowErrors[i].ID = uuid.New()
		}
		log.RowErrors[i].UploadLogID = log.ID
	}
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		rowErrors := log.RowErrors
		if err := tx.Omit("RowErrors").Create(log).Error; err != nil {
			return err
		}
		if len(rowErrors) == 0 {
			return nil
		}
		return tx.CreateInBatches(rowErrors, 500).Error
	})
}

// uploadLogQueryBuilder builds filtered upload log queries.
type uploadLogQueryBuilder struct {
	query   *gorm.DB
	filters map[string]string
}

func newUploadLogQueryBuilder(db *gorm.DB, filters map[string]string) *uploadLogQueryBuilder {
	return &uploadLogQueryBuilder{
		query:   db.Model(&models.UploadLog{}),
		filters: filters,
	}
}

func (q *uploadLogQueryBuilder) applyBasicFilters() *uploadLogQueryBuilder {
	if entity, ok := q.filters["entity"]; ok && entity != "" {
		q.query = q.query.Where("entity = ?", entity)
	}
	if status, ok := q.filters["status"]; ok && status != "" {
		q.query = q.query.Where("status = ?", status)
	}
	if by, ok := q.filters["requested_by"]; ok && by != "" {
		q.query = q.query.Where("requested_by = ?", by)
	}
	return q
}

func (q *uploadLogQueryBuilder) applyDateRangeFilter() *uploadLogQueryBuilder {
	startDate := q.filters["start_date"]
	endDate := q.filters["end_date"]
	if startDate != "" && startDate != "null" && endDate != "" && endDate != "null" {
		q.query = q.query.Where("DATE(started_at) BETWEEN DATE(?) AND DATE(?)", startDate, endDate)
	}
	return q
}

func (r *uploadLogRepository) GetFilteredUploadLogs(ctx context.Context, filters map[string]string, limit, offset int) ([]models.UploadLog, int64, error) {
	var total int64
	if err := newUploadLogQueryBuilder(r.db.WithContext(ctx), filters).
		applyBasicFilters().applyDateRangeFilter().
		query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var logs []models.UploadLog
	err := newUploadLogQueryBuilder(r.db.WithContext(ctx), filters).
		applyBasicFilters().applyDateRangeFilter().
		query.Order("started_at DESC").Limit(limit).Offset(offset).
		Find(&logs).Error
	if err != nil {
		return nil, 0, err
	}
	return logs, total, nil
}

func (r *uploadLogRepository) GetByJobID(ctx context.Context, jobID string) (*models.UploadLog, error) {
	var log models.UploadLog
	err := r.db.WithContext(ctx).
		Preload("RowErrors", func(db *gorm.DB) *gorm.DB { return db.Order("row_number ASC") }).
		Where("job_id = ?", jobID).
		First(&log).Error
	if err != nil {
		return nil, err
	}
	return &log, nil
}
