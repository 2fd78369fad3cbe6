package config

import "time"

// ImportSettings holds the process-wide tuning knobs of the bulk import engine.
// Entity configurations may override chunk size and batch concurrency.
type ImportSettings struct {
	BatchSize            int
	MaxConcurrentBatches int
	ChunkSize            int
	NestedChunkSize      int
	ParseTimeout         time.Duration
	MaxUploadBytes       int64
	LockTTL              time.Duration
	JobTTL               time.Duration
	TmpDir               string
	ReportsDir           string
	BaseURL              string
}

func LoadImportSettings() ImportSettings {
	return ImportSettings{
		BatchSize:            GetEnvInt("IMPORT_BATCH_SIZE", 500),
		MaxConcurrentBatches: GetEnvInt("IMPORT_MAX_CONCURRENT_BATCHES", 3),
		ChunkSize:            GetEnvInt("IMPORT_CHUNK_SIZE", 200),
		NestedChunkSize:      GetEnvInt("IMPORT_NESTED_CHUNK_SIZE", 50),
		ParseTimeout:         GetEnvDuration("IMPORT_PARSE_TIMEOUT", 60*time.Second),
		MaxUploadBytes:       int64(GetEnvInt("IMPORT_MAX_UPLOAD_MB", 50)) * 1024 * 1024,
		LockTTL:              GetEnvDuration("IMPORT_LOCK_TTL", 30*time.Minute),
		JobTTL:               GetEnvDuration("IMPORT_JOB_TTL", 24*time.Hour),
		TmpDir:               GetEnvOrDefault("UPLOAD_TMP_DIR", "./tmp/uploads"),
		ReportsDir:           GetEnvOrDefault("REPORTS_DIR", "./public/files"),
		BaseURL:              GetEnvOrDefault("BASE_URL", "http://localhost:8080"),
	}
}
