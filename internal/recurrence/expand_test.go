package recurrence

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func d(year int, month time.Month, day int) time.Time {
	return Date(year, month, day)
}

func TestWeeklyOccurrencesKeepWeekday(t *testing.T) {
	rule := WeeklyOn(time.Wednesday)
	got := rule.Expand(d(2024, 1, 3), d(2024, 1, 1), d(2024, 6, 30), Unbounded)

	assert.Len(t, got, 26)
	for _, occ := range got {
		assert.Equal(t, time.Wednesday, occ.Weekday())
		assert.False(t, occ.Before(d(2024, 1, 3)))
	}
	assert.Equal(t, d(2024, 1, 3), got[0])
}

func TestMonthlyDayClampsToMonthLength(t *testing.T) {
	got := MonthlyOnDay(31).Expand(d(2024, 1, 31), d(2024, 1, 1), d(2024, 3, 31), Unbounded)
	assert.Equal(t, []time.Time{d(2024, 1, 31), d(2024, 2, 29), d(2024, 3, 31)}, got)
}

func TestMonthlyNthWeekday(t *testing.T) {
	got := MonthlyOnNthWeekday(time.Tuesday, 2).Expand(d(2024, 1, 9), d(2024, 1, 1), d(2024, 3, 31), Unbounded)
	assert.Equal(t, []time.Time{d(2024, 1, 9), d(2024, 2, 13), d(2024, 3, 12)}, got)
}

func TestMonthlyFifthWeekdaySkipsShortMonths(t *testing.T) {
	got := MonthlyOnNthWeekday(time.Monday, 5).Expand(d(2024, 1, 29), d(2024, 1, 1), d(2024, 4, 30), Unbounded)
	assert.Equal(t, []time.Time{d(2024, 1, 29), d(2024, 4, 29)}, got)
}

func TestMonthlyLastWeekday(t *testing.T) {
	got := MonthlyOnNthWeekday(time.Friday, LastWeek).Expand(d(2024, 1, 1), d(2024, 1, 1), d(2024, 2, 29), Unbounded)
	assert.Equal(t, []time.Time{d(2024, 1, 26), d(2024, 2, 23)}, got)
}

func TestIntervalIsAnchorAligned(t *testing.T) {
	cases := []struct {
		name   string
		rule   Rule
		anchor time.Time
		from   time.Time
		to     time.Time
		want   []time.Time
	}{
		{
			name:   "daily every third day",
			rule:   Daily().Every(3),
			anchor: d(2024, 1, 1), from: d(2024, 1, 5), to: d(2024, 1, 12),
			want: []time.Time{d(2024, 1, 7), d(2024, 1, 10)},
		},
		{
			name:   "fortnightly monday",
			rule:   WeeklyOn(time.Monday).Every(2),
			anchor: d(2024, 1, 1), from: d(2024, 1, 10), to: d(2024, 2, 5),
			want: []time.Time{d(2024, 1, 15), d(2024, 1, 29)},
		},
		{
			name:   "bi-monthly on the 15th",
			rule:   MonthlyOnDay(15).Every(2),
			anchor: d(2024, 1, 15), from: d(2024, 2, 1), to: d(2024, 6, 30),
			want: []time.Time{d(2024, 3, 15), d(2024, 5, 15)},
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, tc.rule.Expand(tc.anchor, tc.from, tc.to, Unbounded))
		})
	}
}

func TestWeeklySeveralDaysStartsAtAnchor(t *testing.T) {
	got := WeeklyOn(time.Wednesday, time.Monday).Expand(d(2024, 1, 3), d(2024, 1, 1), d(2024, 1, 10), Unbounded)
	assert.Equal(t, []time.Time{d(2024, 1, 3), d(2024, 1, 8), d(2024, 1, 10)}, got)
}

func TestExpandLimitAndEmptyWindows(t *testing.T) {
	rule := WeeklyOn(time.Monday)
	assert.Equal(t, []time.Time{d(2024, 1, 1), d(2024, 1, 8)}, rule.Expand(d(2024, 1, 1), d(2024, 1, 1), d(2024, 12, 31), 2))
	assert.Empty(t, rule.Expand(d(2024, 1, 1), d(2024, 1, 1), d(2024, 12, 31), 0))
	assert.Empty(t, rule.Expand(d(2024, 6, 1), d(2024, 1, 1), d(2024, 5, 31), Unbounded))
	assert.Empty(t, Rule{}.Expand(d(2024, 1, 1), d(2024, 1, 1), d(2024, 12, 31), Unbounded))
}

func TestExpandNormalisesTimes(t *testing.T) {
	jakarta := time.FixedZone("WIB", 7*3600)
	from := time.Date(2024, 1, 1, 23, 30, 0, 0, jakarta)
	got := Daily().Expand(d(2024, 1, 1), from, d(2024, 1, 2), Unbounded)
	assert.Equal(t, []time.Time{d(2024, 1, 1), d(2024, 1, 2)}, got)
}

func TestCountBefore(t *testing.T) {
	rule := WeeklyOn(time.Monday)
	assert.Equal(t, 4, rule.CountBefore(d(2024, 1, 1), d(2024, 1, 29)))
	assert.Equal(t, 5, rule.CountBefore(d(2024, 1, 1), d(2024, 1, 30)))
	assert.Equal(t, 0, rule.CountBefore(d(2024, 1, 1), d(2024, 1, 1)))
	assert.Equal(t, 0, rule.CountBefore(d(2024, 1, 1), d(2023, 12, 1)))
}

func TestEachStopsWhenCallbackDeclines(t *testing.T) {
	calls := 0
	Daily().Each(d(2024, 1, 1), d(2024, 1, 1), d(2024, 12, 31), func(time.Time) bool {
		calls++
		return calls < 3
	})
	assert.Equal(t, 3, calls)
}
