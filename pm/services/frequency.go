package services

import (
	"strings"
	"unicode"
)

// DefaultIntervalMonths applies to unknown or missing frequency codes.
const DefaultIntervalMonths = 6

var intervalByFrequency = map[string]int{
	"monthly":      1,
	"m":            1,
	"1m":           1,
	"bimonthly":    2,
	"2m":           2,
	"quarterly":    3,
	"q":            3,
	"3m":           3,
	"thriceyearly": 4,
	"triannual":    4,
	"triannually":  4,
	"4m":           4,
	"halfyearly":   6,
	"semiannual":   6,
	"semiannually": 6,
	"biannual":     6,
	"twiceyearly":  6,
	"h":            6,
	"6m":           6,
	"yearly":       12,
	"annual":       12,
	"annually":     12,
	"y":            12,
	"12m":          12,
}

// IntervalForFrequency maps a product frequency code to its interval in months.
func IntervalForFrequency(code string) int {
	key := strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			return unicode.ToLower(r)
		}
		return -1
	}, code)
	if months, ok := intervalByFrequency[key]; ok {
		return months
	}
	return DefaultIntervalMonths
}
