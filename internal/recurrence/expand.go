package recurrence

import "time"

// Unbounded disables the occurrence limit of Expand.
const Unbounded = -1

// Each calls fn for every occurrence in [max(anchor, from), to] in ascending
// order, stopping early when fn returns false. Invalid rules yield nothing.
func (r Rule) Each(anchor, from, to time.Time, fn func(time.Time) bool) {
	if r.Validate() != nil {
		return
	}
	anchor = DateOf(anchor)
	lower := MaxDate(anchor, DateOf(from))
	upper := DateOf(to)
	if lower.After(upper) {
		return
	}

	switch r.Kind {
	case KindDaily:
		r.eachDaily(anchor, lower, upper, fn)
	case KindWeekly:
		r.eachWeekly(anchor, lower, upper, fn)
	case KindMonthlyDay, KindMonthlyNthWeekday:
		r.eachMonthly(anchor, lower, upper, fn)
	}
}

// Expand returns up to limit occurrences in [max(anchor, from), to].
func (r Rule) Expand(anchor, from, to time.Time, limit int) []time.Time {
	out := make([]time.Time, 0)
	if limit == 0 {
		return out
	}
	r.Each(anchor, from, to, func(d time.Time) bool {
		out = append(out, d)
		return limit == Unbounded || len(out) < limit
	})
	return out
}

// CountBefore counts occurrences on or after the anchor and strictly before the given date.
func (r Rule) CountBefore(anchor, before time.Time) int {
	anchor = DateOf(anchor)
	before = DateOf(before)
	if !before.After(anchor) {
		return 0
	}
	count := 0
	r.Each(anchor, anchor, before.AddDate(0, 0, -1), func(time.Time) bool {
		count++
		return true
	})
	return count
}

func (r Rule) eachDaily(anchor, lower, upper time.Time, fn func(time.Time) bool) {
	offset := daysBetween(anchor, lower)
	steps := (offset + r.Interval - 1) / r.Interval
	for d := anchor.AddDate(0, 0, steps*r.Interval); !d.After(upper); d = d.AddDate(0, 0, r.Interval) {
		if !fn(d) {
			return
		}
	}
}

func (r Rule) eachWeekly(anchor, lower, upper time.Time, fn func(time.Time) bool) {
	anchorWeek := weekStart(anchor)
	week := weekStart(lower)
	if rem := (daysBetween(anchorWeek, week) / 7) % r.Interval; rem != 0 {
		week = week.AddDate(0, 0, 7*(r.Interval-rem))
	}
	for ; !week.After(upper); week = week.AddDate(0, 0, 7*r.Interval) {
		for _, wd := range r.Weekdays {
			d := week.AddDate(0, 0, isoIndex(wd))
			if d.Before(lower) {
				continue
			}
			if d.After(upper) || !fn(d) {
				return
			}
		}
	}
}

func (r Rule) eachMonthly(anchor, lower, upper time.Time, fn func(time.Time) bool) {
	month := monthIndex(lower)
	if rem := (month - monthIndex(anchor)) % r.Interval; rem != 0 {
		month += r.Interval - rem
	}
	for ; ; month += r.Interval {
		year, mon := month/12, time.Month(month%12+1)
		if Date(year, mon, 1).After(upper) {
			return
		}
		d, ok := r.dayIn(year, mon)
		if !ok || d.Before(lower) {
			continue
		}
		if d.After(upper) || !fn(d) {
			return
		}
	}
}

func (r Rule) dayIn(year int, month time.Month) (time.Time, bool) {
	length := daysIn(year, month)
	if r.Kind == KindMonthlyDay {
		day := r.MonthDay
		if day > length {
			day = length
		}
		return Date(year, month, day), true
	}

	if r.Ordinal == LastWeek {
		last := Date(year, month, length)
		back := (int(last.Weekday()) - int(r.Weekday) + 7) % 7
		return last.AddDate(0, 0, -back), true
	}
	first := Date(year, month, 1)
	offset := (int(r.Weekday) - int(first.Weekday()) + 7) % 7
	day := 1 + offset + (r.Ordinal-1)*7
	if day > length {
		return time.Time{}, false
	}
	return Date(year, month, day), true
}

func weekStart(t time.Time) time.Time {
	return t.AddDate(0, 0, -isoIndex(t.Weekday()))
}

func monthIndex(t time.Time) int {
	return t.Year()*12 + int(t.Month()) - 1
}

// NthWeekdayOrdinal returns which occurrence of its weekday the date is within its month.
func NthWeekdayOrdinal(t time.Time) int {
	return (t.Day()-1)/7 + 1
}
