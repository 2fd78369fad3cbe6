package utils

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	"medequip-backend/config"
)

// CleanupExpiredFiles removes regular files in dir older than ttl and returns
// how many were deleted. A missing directory is not an error.
func CleanupExpiredFiles(dir string, ttl time.Duration) (int, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, nil
		}
		return 0, fmt.Errorf("error reading directory %s: %w", dir, err)
	}

	removed := 0
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		if time.Since(info.ModTime()) <= ttl {
			continue
		}
		path := filepath.Join(dir, entry.Name())
		if err := os.Remove(path); err != nil {
			config.Logger.Warn("error deleting expired file", zap.String("file", path), zap.Error(err))
			continue
		}
		removed++
	}
	return removed, nil
}

// CleanupAllExpired sweeps every directory and logs the totals.
func CleanupAllExpired(dirs []string, ttl time.Duration) error {
	var firstErr error
	for _, dir := range dirs {
		n, err := CleanupExpiredFiles(dir, ttl)
		if err != nil {
			config.Logger.Error("cleanup failed", zap.String("dir", dir), zap.Error(err))
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		if n > 0 {
			config.Logger.Info("expired files removed", zap.String("dir", dir), zap.Int("count", n))
		}
	}
	return firstErr
}
