package bootstrap

import (
	"context"

	"go.uber.org/zap"
	"gorm.io/gorm"

	bleveRepositories "medequip-backend/bleve/repositories"
	"medequip-backend/config"
	importRepositories "medequip-backend/imports/repositories"
	imports "medequip-backend/imports/services"
)

const reindexPageSize = 500

// IndexBleveData rebuilds every entity's search index from the database.
func IndexBleveData(ctx context.Context, db *gorm.DB, registry *imports.Registry, bleveRepo bleveRepositories.BleveRepositoryInterface) error {
	if err := bleveRepo.DeleteAllIndices(ctx); err != nil {
		return err
	}

	for _, slug := range registry.Entities() {
		engine, err := registry.Get(slug)
		if err != nil {
			return err
		}
		cfg := engine.Config()

		indexed := 0
		err = importRepositories.NewRecordScanner(db, cfg).Each(ctx, reindexPageSize, func(page []imports.Record) error {
			indexed += len(page)
			return bleveRepo.IndexRecords(cfg, page)
		})
		if err != nil {
			config.Logger.Error("Failed to index records into Bleve",
				zap.String("entity", slug),
				zap.Error(err))
			continue
		}
		config.Logger.Info("Indexed records into Bleve",
			zap.String("entity", slug),
			zap.Int("count", indexed))
	}
	return nil
}
