package repositories

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"medequip-backend/config"
	"medequip-backend/db/models"
	"medequip-backend/pm/services"
)

type pmRepository struct {
	db *gorm.DB
}

func NewPMRepository(db *gorm.DB) services.PMStore {
	return &pmRepository{db: db}
}

func (r *pmRepository) FindProducts(ctx context.Context, materialCodes []string) (map[string]models.Product, error) {
	out := make(map[string]models.Product)
	if len(materialCodes) == 0 {
		return out, nil
	}
	var products []models.Product
	if err := r.db.WithContext(ctx).
		Where("LOWER(partnoid) IN ?", dedupe(materialCodes)).
		Find(&products).Error; err != nil {
		return nil, err
	}
	for _, p := range products {
		out[strings.ToLower(p.Partnoid)] = p
	}
	return out, nil
}

func (r *pmRepository) FindLatestContracts(ctx context.Context, serials []string) (map[string]models.AMCContract, error) {
	out := make(map[string]models.AMCContract)
	if len(serials) == 0 {
		return out, nil
	}
	var contracts []models.AMCContract
	if err := r.db.WithContext(ctx).
		Where("LOWER(serialnumber) IN ?", dedupe(serials)).
		Where("startdate IS NOT NULL AND enddate IS NOT NULL").
		Order("enddate ASC").
		Find(&contracts).Error; err != nil {
		return nil, err
	}
	// ascending order leaves the latest end date per serial in the map
	for _, c := range contracts {
		out[strings.ToLower(c.Serialnumber)] = c
	}
	return out, nil
}

func (r *pmRepository) FindCustomers(ctx context.Context, codes []string) (map[string]models.Customer, error) {
	out := make(map[string]models.Customer)
	if len(codes) == 0 {
		return out, nil
	}
	var customers []models.Customer
	if err := r.db.WithContext(ctx).
		Where("LOWER(customercodeid) IN ?", dedupe(codes)).
		Find(&customers).Error; err != nil {
		return nil, err
	}
	for _, c := range customers {
		out[strings.ToLower(c.Customercodeid)] = c
	}
	return out, nil
}

func (r *pmRepository) FindCompletedTypes(ctx context.Context, serials []string) (map[string]map[string]bool, error) {
	out := make(map[string]map[string]bool)
	if len(serials) == 0 {
		return out, nil
	}
	var rows []struct {
		Serialnumber string
		PmType       string
	}
	if err := r.db.WithContext(ctx).
		Model(&models.PMRecord{}).
		Select("serialnumber, pm_type").
		Where("LOWER(serialnumber) IN ? AND pm_status = ?", dedupe(serials), models.PMStatusCompleted).
		Scan(&rows).Error; err != nil {
		return nil, err
	}
	for _, row := range rows {
		key := strings.ToLower(row.Serialnumber)
		if out[key] == nil {
			out[key] = make(map[string]bool)
		}
		out[key][row.PmType] = true
	}
	return out, nil
}

func (r *pmRepository) DeleteOpen(ctx context.Context, serials []string) (int64, error) {
	if len(serials) == 0 {
		return 0, nil
	}
	res := r.db.WithContext(ctx).
		Where("LOWER(serialnumber) IN ? AND pm_status <> ?", dedupe(serials), models.PMStatusCompleted).
		Delete(&models.PMRecord{})
	return res.RowsAffected, res.Error
}

func (r *pmRepository) InsertPMs(ctx context.Context, records []models.PMRecord) (map[int]string, error) {
	failed := make(map[int]string)
	if len(records) == 0 {
		return failed, nil
	}
	err := r.db.WithContext(ctx).Create(&records).Error
	if err == nil {
		return failed, nil
	}
	if ctx.Err() != nil {
		return nil, err
	}

	// Each record is tried once more on its own so that only the records that
	// cannot be written are reported; nothing is retried after that.
	config.Logger.Warn("bulk PM insert failed, retrying per record",
		zap.Int("records", len(records)),
		zap.Error(err),
	)
	for i := range records {
		if err := r.db.WithContext(ctx).Create(&records[i]).Error; err != nil {
			if ctx.Err() != nil {
				return nil, err
			}
			failed[i] = err.Error()
		}
	}
	if len(failed) == len(records) {
		return nil, fmt.Errorf("insert PM records: %w", err)
	}
	return failed, nil
}

func (r *pmRepository) FindOpenAfter(ctx context.Context, after uuid.UUID, limit int) ([]models.PMRecord, error) {
	var page []models.PMRecord
	err := r.db.WithContext(ctx).
		Where("pm_status <> ? AND id > ?", models.PMStatusCompleted, after).
		Order("id ASC").
		Limit(limit).
		Find(&page).Error
	return page, err
}

func (r *pmRepository) SetStatus(ctx context.Context, ids []uuid.UUID, status models.PMStatus) error {
	if len(ids) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).
		Model(&models.PMRecord{}).
		Where("id IN ?", ids).
		Updates(map[string]interface{}{"pm_status": status, "modified_at": time.Now()}).Error
}

func dedupe(values []string) []string {
	seen := make(map[string]struct{}, len(values))
	out := make([]string, 0, len(values))
	for _, v := range values {
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}
