package repositories

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"medequip-backend/db/models"
)

func setupMockDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	t.Helper()
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { sqlDB.Close() })

	db, err := gorm.Open(postgres.New(postgres.Config{Conn: sqlDB}), &gorm.Config{
		SkipDefaultTransaction: true,
		Logger:                 logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	return db, mock
}

func TestFindLatestContractsKeepsLatestEndDate(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewPMRepository(db)
	early := time.Date(2023, 12, 31, 0, 0, 0, 0, time.UTC)
	late := time.Date(2025, 12, 31, 0, 0, 0, 0, time.UTC)

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "amc_contracts" WHERE LOWER(serialnumber) IN ($1) AND (startdate IS NOT NULL AND enddate IS NOT NULL) ORDER BY enddate ASC`)).
		WithArgs("sn1").
		WillReturnRows(sqlmock.NewRows([]string{"salesdoc", "serialnumber", "satype_zdrc_zdrn", "startdate", "enddate"}).
			AddRow("S1", "SN1", "ZDRC", early.AddDate(-1, 0, 1), early).
			AddRow("S2", "SN1", "ZDRN", late.AddDate(-1, 0, 1), late))

	found, err := repo.FindLatestContracts(context.Background(), []string{"sn1", "sn1"})

	require.NoError(t, err)
	require.Contains(t, found, "sn1")
	assert.Equal(t, "S2", found["sn1"].Salesdoc)
	assert.Equal(t, models.NonComprehensiveContractCode, found["sn1"].SatypeZDRCZDRN)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDeleteOpenSparesCompleted(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewPMRepository(db)

	mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM "pms" WHERE LOWER(serialnumber) IN ($1,$2) AND pm_status <> $3`)).
		WithArgs("sn1", "sn2", models.PMStatusCompleted).
		WillReturnResult(sqlmock.NewResult(0, 5))

	deleted, err := repo.DeleteOpen(context.Background(), []string{"sn1", "sn2"})

	require.NoError(t, err)
	assert.Equal(t, int64(5), deleted)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestEmptyInputsSkipQueries(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewPMRepository(db)
	ctx := context.Background()

	products, err := repo.FindProducts(ctx, nil)
	require.NoError(t, err)
	assert.Empty(t, products)

	deleted, err := repo.DeleteOpen(ctx, nil)
	require.NoError(t, err)
	assert.Zero(t, deleted)

	assert.NoError(t, repo.SetStatus(ctx, nil, models.PMStatusDue))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestInsertPMsReportsOnlyFailingRecords(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewPMRepository(db)
	insert := regexp.QuoteMeta(`INSERT INTO "pms"`)

	mock.ExpectExec(insert).WillReturnError(errors.New("duplicate key value"))
	mock.ExpectExec(insert).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(insert).WillReturnError(errors.New("duplicate key value"))

	failed, err := repo.InsertPMs(context.Background(), []models.PMRecord{
		{PmType: "WPM01", Serialnumber: "SN1"},
		{PmType: "WPM02", Serialnumber: "SN1"},
	})

	require.NoError(t, err)
	assert.Equal(t, map[int]string{1: "duplicate key value"}, failed)
	assert.NoError(t, mock.ExpectationsWereMet())
}
