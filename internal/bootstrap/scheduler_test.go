package bootstrap

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type flakyRefresher struct {
	failures int
	calls    int
}

func (r *flakyRefresher) Refresh(context.Context) (int, error) {
	r.calls++
	if r.calls <= r.failures {
		return 0, errors.New("db unavailable")
	}
	return 4, nil
}

func TestRefreshRetriesUntilSuccess(t *testing.T) {
	r := &flakyRefresher{failures: 2}
	refreshPMStatuses(SchedulerConfig{PMRefresher: r, RetryDelay: time.Millisecond})
	assert.Equal(t, 3, r.calls)
}

func TestRefreshGivesUpAfterMaxRetries(t *testing.T) {
	r := &flakyRefresher{failures: 10}
	refreshPMStatuses(SchedulerConfig{PMRefresher: r, RetryDelay: time.Millisecond})
	assert.Equal(t, maxRetries, r.calls)
}

func TestCleanupRemovesExpiredFiles(t *testing.T) {
	dir := t.TempDir()
	old := filepath.Join(dir, "old.xlsx")
	fresh := filepath.Join(dir, "fresh.xlsx")
	require.NoError(t, os.WriteFile(old, []byte("x"), 0o644))
	require.NoError(t, os.WriteFile(fresh, []byte("x"), 0o644))
	past := time.Now().Add(-48 * time.Hour)
	require.NoError(t, os.Chtimes(old, past, past))

	cleanupFiles(SchedulerConfig{CleanupDirs: []string{dir}, FileTTL: 24 * time.Hour, RetryDelay: time.Millisecond})

	assert.NoFileExists(t, old)
	assert.FileExists(t, fresh)
}

func TestStartSchedulerRegistersJobs(t *testing.T) {
	c, err := StartScheduler(SchedulerConfig{
		PMRefresher: &flakyRefresher{},
		CleanupDirs: []string{t.TempDir()},
		FileTTL:     time.Hour,
	})
	require.NoError(t, err)
	defer c.Stop()
	assert.Len(t, c.Entries(), 2)
}

func TestStartSchedulerRejectsBadSpec(t *testing.T) {
	_, err := StartScheduler(SchedulerConfig{PMRefresher: &flakyRefresher{}, Schedule: "not a cron"})
	assert.Error(t, err)
}
