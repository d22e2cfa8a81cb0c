// Package recurrence expands typed recurrence rules into calendar dates.
//
// Rules are parsed once from their textual descriptor and then expanded against
// an anchor date. Every rule is anchor aligned: an interval of n selects every
// n-th day, week or month counted from the anchor's own cycle, and no
// occurrence is ever produced before the anchor.
package recurrence

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

// Kind identifies the recurrence variant.
type Kind int

const (
	KindDaily Kind = iota + 1
	KindWeekly
	KindMonthlyDay
	KindMonthlyNthWeekday
)

// LastWeek is the ordinal for "last <weekday> of the month".
const LastWeek = -1

// Rule is a parsed recurrence descriptor.
type Rule struct {
	Kind     Kind
	Interval int
	// Weekdays holds the BYDAY days for weekly rules, Monday first.
	Weekdays []time.Weekday
	// Weekday and Ordinal are set for monthly n-th weekday rules.
	Weekday  time.Weekday
	Ordinal  int
	MonthDay int
}

// Daily repeats every day.
func Daily() Rule {
	return Rule{Kind: KindDaily, Interval: 1}
}

// WeeklyOn repeats every week on the given days.
func WeeklyOn(days ...time.Weekday) Rule {
	return Rule{Kind: KindWeekly, Interval: 1, Weekdays: normalizeWeekdays(days)}
}

// MonthlyOnDay repeats on the given day of the month, clamped to the month length.
func MonthlyOnDay(day int) Rule {
	return Rule{Kind: KindMonthlyDay, Interval: 1, MonthDay: day}
}

// MonthlyOnNthWeekday repeats on the n-th weekday of the month (LastWeek for the last one).
func MonthlyOnNthWeekday(day time.Weekday, ordinal int) Rule {
	return Rule{Kind: KindMonthlyNthWeekday, Interval: 1, Weekday: day, Ordinal: ordinal}
}

// Every returns a copy of the rule repeating every n cycles.
func (r Rule) Every(n int) Rule {
	if n < 1 {
		n = 1
	}
	r.Interval = n
	return r
}

// Validate reports structural problems with the rule.
func (r Rule) Validate() error {
	if r.Interval < 1 {
		return fmt.Errorf("%w: interval must be positive", ErrInvalidRule)
	}
	switch r.Kind {
	case KindDaily:
	case KindWeekly:
		if len(r.Weekdays) == 0 {
			return fmt.Errorf("%w: weekly rule without weekdays", ErrInvalidRule)
		}
	case KindMonthlyDay:
		if r.MonthDay < 1 || r.MonthDay > 31 {
			return fmt.Errorf("%w: month day %d out of range", ErrInvalidRule, r.MonthDay)
		}
	case KindMonthlyNthWeekday:
		if r.Ordinal != LastWeek && (r.Ordinal < 1 || r.Ordinal > 5) {
			return fmt.Errorf("%w: weekday ordinal %d out of range", ErrInvalidRule, r.Ordinal)
		}
	default:
		return fmt.Errorf("%w: unknown kind %d", ErrInvalidRule, r.Kind)
	}
	return nil
}

// String renders the rule in RRULE form.
func (r Rule) String() string {
	parts := make([]string, 0, 3)
	switch r.Kind {
	case KindDaily:
		parts = append(parts, "FREQ=DAILY")
	case KindWeekly:
		codes := make([]string, 0, len(r.Weekdays))
		for _, d := range r.Weekdays {
			codes = append(codes, weekdayCodes[d])
		}
		parts = append(parts, "FREQ=WEEKLY", "BYDAY="+strings.Join(codes, ","))
	case KindMonthlyDay:
		parts = append(parts, "FREQ=MONTHLY", fmt.Sprintf("BYMONTHDAY=%d", r.MonthDay))
	case KindMonthlyNthWeekday:
		parts = append(parts, "FREQ=MONTHLY", fmt.Sprintf("BYDAY=%d%s", r.Ordinal, weekdayCodes[r.Weekday]))
	default:
		return ""
	}
	if r.Interval > 1 {
		parts = append(parts, fmt.Sprintf("INTERVAL=%d", r.Interval))
	}
	return strings.Join(parts, ";")
}

func normalizeWeekdays(days []time.Weekday) []time.Weekday {
	seen := make(map[time.Weekday]struct{}, len(days))
	out := make([]time.Weekday, 0, len(days))
	for _, d := range days {
		if _, ok := seen[d]; ok {
			continue
		}
		seen[d] = struct{}{}
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return isoIndex(out[i]) < isoIndex(out[j]) })
	return out
}

// isoIndex orders weekdays Monday=0 .. Sunday=6.
func isoIndex(d time.Weekday) int {
	return (int(d) + 6) % 7
}

var weekdayCodes = map[time.Weekday]string{
	time.Monday:    "MO",
	time.Tuesday:   "TU",
	time.Wednesday: "WE",
	time.Thursday:  "TH",
	time.Friday:    "FR",
	time.Saturday:  "SA",
	time.Sunday:    "SU",
}
