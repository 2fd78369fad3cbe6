package services

import (
	"fmt"
	"time"

	"medequip-backend/db/models"
	"medequip-backend/utils"
)

// PM type prefixes by date-range source.
const (
	WarrantyPrefix         = "W"
	ExtendedWarrantyPrefix = "E"
	ContractPrefix         = "C"
	NonComprehensivePrefix = "N"
)

// DateRange is one coverage window that yields PM occurrences.
type DateRange struct {
	Prefix string
	Start  time.Time
	End    time.Time
}

// Occurrence is one computed PM due slot.
type Occurrence struct {
	Type string
	Due  time.Time
}

// Occurrences spreads a range into interval-month slots. The number of slots is
// the inclusive month span divided by the interval; slot i falls on the first
// of the start month plus (i-1) intervals.
func Occurrences(r DateRange, interval int) []Occurrence {
	if interval <= 0 || r.Start.IsZero() || r.End.IsZero() {
		return nil
	}
	totalMonths := utils.MonthsBetween(r.Start, r.End) + 1
	if totalMonths <= 0 {
		return nil
	}
	count := totalMonths / interval
	out := make([]Occurrence, 0, count)
	for i := 1; i <= count; i++ {
		due := time.Date(r.Start.Year(), r.Start.Month()+time.Month((i-1)*interval), 1, 0, 0, 0, 0, time.UTC)
		out = append(out, Occurrence{Type: fmt.Sprintf("%sPM%02d", r.Prefix, i), Due: due})
	}
	return out
}

// ClassifyStatus compares a due month against the current month.
func ClassifyStatus(due, now time.Time) models.PMStatus {
	switch behind := utils.MonthsBetween(due, now); {
	case behind <= 0:
		return models.PMStatusDue
	case behind == 1:
		return models.PMStatusOverdue
	default:
		return models.PMStatusLapsed
	}
}

// DueMonth renders the MM/YYYY month key of a due date.
func DueMonth(due time.Time) string {
	return due.Format("01/2006")
}
