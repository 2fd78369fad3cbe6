package repositories

import (
	"context"

	"go.uber.org/zap"

	"medequip-backend/config"
	imports "medequip-backend/imports/services"
)

// CacheInvalidator drops cached search results of an entity.
type CacheInvalidator interface {
	Invalidate(ctx context.Context, resource string) error
}

// RecordIndexer keeps an entity's search index in step with each import batch.
type RecordIndexer struct {
	repo  BleveRepositoryInterface
	cfg   *imports.EntityConfig
	cache CacheInvalidator
}

// NewRecordIndexer builds the hook. cache may be nil.
func NewRecordIndexer(repo BleveRepositoryInterface, cfg *imports.EntityConfig, cache CacheInvalidator) *RecordIndexer {
	return &RecordIndexer{repo: repo, cfg: cfg, cache: cache}
}

func (i *RecordIndexer) Name() string {
	return "Search indexing"
}

// AfterBatch indexes created and updated records; unchanged rows are already current.
func (i *RecordIndexer) AfterBatch(ctx context.Context, records []imports.ConfirmedRecord) (imports.HookOutcome, error) {
	changed := make([]imports.Record, 0, len(records))
	for _, rec := range records {
		if rec.Status == imports.StatusCreated || rec.Status == imports.StatusUpdated {
			changed = append(changed, rec.Values)
		}
	}
	if len(changed) == 0 {
		return imports.HookOutcome{}, nil
	}
	if err := i.repo.IndexRecords(i.cfg, changed); err != nil {
		return imports.HookOutcome{}, err
	}
	if i.cache != nil {
		if err := i.cache.Invalidate(ctx, i.cfg.Slug); err != nil {
			config.Logger.Warn("Failed to invalidate search cache", zap.String("entity", i.cfg.Slug), zap.Error(err))
		}
	}
	return imports.HookOutcome{Breakdown: map[string]int{"indexed": len(changed)}}, nil
}
