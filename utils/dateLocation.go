package utils

import (
	"time"

	"go.uber.org/zap"

	"medequip-backend/config"
)

// DateLocation is the application's timezone. It stays UTC until
// InitializeDateLocation runs.
var DateLocation = time.UTC

// InitializeDateLocation loads the timezone named by DB_TIMEZONE.
func InitializeDateLocation() error {
	timezone := config.GetEnvOrDefault("DB_TIMEZONE", "Asia/Kolkata")
	loc, err := time.LoadLocation(timezone)
	if err != nil {
		config.Logger.Warn("Invalid DB_TIMEZONE, keeping UTC", zap.String("timezone", timezone), zap.Error(err))
		return err
	}
	DateLocation = loc
	return nil
}

// NormalizeDate converts a time.Time to midnight in the application timezone.
func NormalizeDate(t time.Time) time.Time {
	year, month, day := t.In(DateLocation).Date()
	return time.Date(year, month, day, 0, 0, 0, 0, DateLocation)
}

// Today returns today's date at midnight in the application timezone.
func Today() time.Time {
	return NormalizeDate(time.Now())
}

// MonthsBetween counts calendar months from a to b, ignoring days. It is
// negative when b is before a.
func MonthsBetween(a, b time.Time) int {
	return (b.Year()-a.Year())*12 + int(b.Month()) - int(a.Month())
}
