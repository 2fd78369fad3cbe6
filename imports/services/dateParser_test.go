package services

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDate(t *testing.T) {
	want := time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC)
	cases := map[string]any{
		"iso":          "2024-01-01",
		"day first":    "01/01/2024",
		"single digit": "1/1/2024",
		"excel serial": 45292.0,
		"serial text":  "45292",
		"named month":  "01-Jan-2024",
		"native":       time.Date(2024, time.January, 1, 15, 30, 0, 0, time.UTC),
	}
	for name, in := range cases {
		t.Run(name, func(t *testing.T) {
			got, ok := ParseDate(in)
			require.True(t, ok)
			assert.True(t, want.Equal(got), "got %s", got)
		})
	}
}

func TestParseDateAmbiguousResolvesDayFirst(t *testing.T) {
	got, ok := ParseDate("03/04/2024")
	require.True(t, ok)
	assert.Equal(t, time.April, got.Month())
	assert.Equal(t, 3, got.Day())
}

func TestParseDateFallsBackToMonthFirst(t *testing.T) {
	got, ok := ParseDate("12/31/2024")
	require.True(t, ok)
	assert.Equal(t, "2024-12-31", FormatDate(got))
}

func TestParseDateRejectsGarbage(t *testing.T) {
	for _, in := range []any{"", "not a date", "31/31/2024", -5.0, nil} {
		_, ok := ParseDate(in)
		assert.False(t, ok, "%v", in)
	}
}
