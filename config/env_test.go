package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestEnvHelpers(t *testing.T) {
	t.Setenv("TEST_INT", "12")
	t.Setenv("TEST_BAD_INT", "twelve")
	t.Setenv("TEST_DURATION", "90s")
	t.Setenv("TEST_LIST", " a, ,b ,")

	assert.Equal(t, 12, GetEnvInt("TEST_INT", 3))
	assert.Equal(t, 3, GetEnvInt("TEST_BAD_INT", 3))
	assert.Equal(t, 3, GetEnvInt("TEST_UNSET_INT", 3))
	assert.Equal(t, 90*time.Second, GetEnvDuration("TEST_DURATION", time.Minute))
	assert.Equal(t, []string{"a", "b"}, GetEnvList("TEST_LIST"))
	assert.Empty(t, GetEnvList("TEST_UNSET_LIST"))
	assert.Equal(t, "fallback", GetEnvOrDefault("TEST_UNSET", "fallback"))
}

func TestLoadImportSettingsDefaults(t *testing.T) {
	t.Setenv("IMPORT_BATCH_SIZE", "")
	t.Setenv("IMPORT_MAX_UPLOAD_MB", "2")

	s := LoadImportSettings()
	assert.Equal(t, 500, s.BatchSize)
	assert.Equal(t, int64(2*1024*1024), s.MaxUploadBytes)
	assert.Equal(t, 30*time.Minute, s.LockTTL)
}
