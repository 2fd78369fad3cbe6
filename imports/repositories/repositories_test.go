package repositories

import (
	"context"
	"errors"
	"net"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"medequip-backend/imports/services"
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

func setupRedis(t *testing.T) (*redis.Client, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return client, mr
}

func TestFindByKeysDecodesRows(t *testing.T) {
	db, mock := setupMockDB(t)
	store := NewRecordStoreRepository(db, services.DealerConfig())
	created := time.Date(2023, 5, 1, 8, 0, 0, 0, time.UTC)

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "dealers" WHERE LOWER(dealercode) IN ($1,$2)`)).
		WithArgs("d100", "d200").
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "dealercode", "state", "city", "person_responsible", "status", "created_at"}).
			AddRow("0b8f6a52-8d0c-4a57-9a4a-53b1c2b1b001", "Acme", "D100", []byte(`["KA","KL"]`), []byte(`["BLR"]`),
				[]byte(`[{"name":"Ravi","employeeid":"E1"}]`), "Active", created))

	found, err := store.FindByKeys(context.Background(), []string{"d100", "d200"})

	require.NoError(t, err)
	require.Contains(t, found, "d100")
	rec := found["d100"]
	assert.Equal(t, "Acme", rec["name"])
	assert.Equal(t, []string{"KA", "KL"}, rec["state"])
	assert.Equal(t, created, rec[services.FieldCreatedAt])
	assert.NotContains(t, found, "d200")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFindByKeysPropagatesErrors(t *testing.T) {
	db, mock := setupMockDB(t)
	store := NewRecordStoreRepository(db, services.BranchConfig())

	mock.ExpectQuery(`SELECT \* FROM "branches"`).WillReturnError(errors.New("boom"))

	_, err := store.FindByKeys(context.Background(), []string{"central"})
	assert.ErrorContains(t, err, "boom")
}

func TestBulkWriteUpdateReportsMissingRow(t *testing.T) {
	db, mock := setupMockDB(t)
	store := NewRecordStoreRepository(db, services.BranchConfig())

	mock.ExpectExec(`UPDATE "branches" SET`).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`UPDATE "branches" SET`).WillReturnResult(sqlmock.NewResult(0, 0))

	errs, err := store.BulkWrite(context.Background(), []services.WriteOp{
		{Kind: services.OpUpdate, Key: "central", Values: services.Record{"state": "KA", services.FieldModifiedAt: time.Now()}},
		{Kind: services.OpUpdate, Key: "gone", Values: services.Record{"state": "TN", services.FieldModifiedAt: time.Now()}},
	})

	require.NoError(t, err)
	require.Len(t, errs, 1)
	assert.Equal(t, 1, errs[0].Index)
	assert.Equal(t, "gone", errs[0].Key)
	assert.Equal(t, "Record no longer exists", errs[0].Message)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBulkWriteStopsOnConnectionError(t *testing.T) {
	db, mock := setupMockDB(t)
	store := NewRecordStoreRepository(db, services.BranchConfig())

	mock.ExpectExec(`UPDATE "branches" SET`).WillReturnError(&net.OpError{Op: "read", Err: errors.New("connection reset")})

	errs, err := store.BulkWrite(context.Background(), []services.WriteOp{
		{Kind: services.OpUpdate, Key: "a", Values: services.Record{"state": "KA"}},
		{Kind: services.OpUpdate, Key: "b", Values: services.Record{"state": "KA"}},
	})

	require.Error(t, err)
	assert.Len(t, errs, 2)
}

func TestIsConnectionError(t *testing.T) {
	assert.True(t, isConnectionError(context.DeadlineExceeded))
	assert.True(t, isConnectionError(&net.OpError{Op: "dial", Err: errors.New("refused")}))
	assert.False(t, isConnectionError(errors.New("value too long for type character varying(20)")))
	assert.False(t, isConnectionError(nil))
}

func TestUploadLockIsExclusive(t *testing.T) {
	client, mr := setupRedis(t)
	locker := NewUploadLocker(client, time.Minute)
	ctx := context.Background()

	first, err := locker.Acquire(ctx, "dealers")
	require.NoError(t, err)
	require.NotNil(t, first)

	second, err := locker.Acquire(ctx, "dealers")
	require.NoError(t, err)
	assert.Nil(t, second)

	other, err := locker.Acquire(ctx, "branches")
	require.NoError(t, err)
	assert.NotNil(t, other)

	// a stale holder cannot release someone else's lock
	require.NoError(t, locker.Resume("dealers", "not-the-owner").Release(ctx))
	assert.True(t, mr.Exists("lock:import:dealers"))

	require.NoError(t, locker.Resume("dealers", first.Token()).Release(ctx))
	assert.False(t, mr.Exists("lock:import:dealers"))

	mr.FastForward(2 * time.Minute)
	assert.False(t, mr.Exists("lock:import:branches"))
}

func TestUploadLockExtendChecksOwner(t *testing.T) {
	client, mr := setupRedis(t)
	locker := NewUploadLocker(client, time.Minute)
	ctx := context.Background()

	lock, err := locker.Acquire(ctx, "equipment")
	require.NoError(t, err)
	require.NotNil(t, lock)

	mr.FastForward(50 * time.Second)
	held, err := lock.Extend(ctx)
	require.NoError(t, err)
	assert.True(t, held)
	assert.Equal(t, time.Minute, mr.TTL("lock:import:equipment"))

	held, err = locker.Resume("equipment", "not-the-owner").Extend(ctx)
	require.NoError(t, err)
	assert.False(t, held)
}

func TestUploadLockKeepAliveRefreshesUntilStopped(t *testing.T) {
	client, mr := setupRedis(t)
	ttl := 30 * time.Millisecond
	locker := NewUploadLocker(client, ttl)
	ctx := context.Background()

	lock, err := locker.Acquire(ctx, "customers")
	require.NoError(t, err)
	require.NotNil(t, lock)

	stop := locker.KeepAlive(ctx, "customers", lock.Token())
	mr.SetTTL("lock:import:customers", time.Millisecond)
	assert.Eventually(t, func() bool {
		return mr.TTL("lock:import:customers") == ttl
	}, time.Second, 5*time.Millisecond)

	stop()
	mr.SetTTL("lock:import:customers", time.Millisecond)
	time.Sleep(4 * ttl / 3)
	assert.Equal(t, time.Millisecond, mr.TTL("lock:import:customers"))
}

func TestJobStoreAppliesEvents(t *testing.T) {
	client, mr := setupRedis(t)
	store := NewJobStore(client, time.Hour)
	ctx := context.Background()

	state := &JobState{ID: "job-1", Entity: "branches", State: JobQueued}
	require.NoError(t, store.Save(ctx, state))

	require.NoError(t, store.Apply(ctx, state, services.Event{Type: services.EventProgress, Summary: &services.Summary{TotalRecords: 3, Processed: 1}}))
	got, err := store.Get(ctx, "job-1")
	require.NoError(t, err)
	assert.Equal(t, JobRunning, got.State)
	assert.Equal(t, 1, got.Summary.Processed)

	report := &services.Report{Entity: "branches", Success: true, Message: "done"}
	require.NoError(t, store.Apply(ctx, state, services.Event{Type: services.EventResult, Summary: &report.Summary, Result: report}))
	got, err = store.Get(ctx, "job-1")
	require.NoError(t, err)
	assert.Equal(t, JobCompleted, got.State)
	assert.Equal(t, "done", got.Result.Message)

	assert.Greater(t, mr.TTL("import:job:job-1"), time.Duration(0))

	_, err = store.Get(ctx, "missing")
	assert.ErrorIs(t, err, ErrJobNotFound)
}
