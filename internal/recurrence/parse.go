package recurrence

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

var (
	// ErrInvalidRule marks a descriptor that cannot be parsed.
	ErrInvalidRule = errors.New("invalid recurrence rule")
	// ErrUnsupportedFrequency marks a well-formed descriptor with a frequency the engine does not expand.
	ErrUnsupportedFrequency = errors.New("unsupported recurrence frequency")
)

// ParseOptions controls compatibility behaviour of the parsers.
type ParseOptions struct {
	// LegacyFallback maps unknown schedule frequencies and keywords to a weekly
	// rule on the anchor's weekday and ignores unknown RRULE attributes.
	LegacyFallback bool
}

type attributes struct {
	freq       string
	interval   int
	byDay      []string
	byMonthDay int
}

// ParseSchedule parses a class schedule descriptor. An empty descriptor means
// weekly on the nominal day; the nominal day falls back to the anchor's weekday
// when it cannot be read.
func ParseSchedule(text, nominalDay string, anchor time.Time, opts ParseOptions) (Rule, error) {
	anchor = DateOf(anchor)
	nominal, ok := ParseWeekday(nominalDay)
	if !ok {
		nominal = anchor.Weekday()
	}

	text = strings.TrimSpace(text)
	if text == "" {
		return WeeklyOn(nominal), nil
	}

	if !isRRule(text) {
		switch strings.ToLower(text) {
		case "daily":
			return Daily(), nil
		case "weekly":
			return WeeklyOn(nominal), nil
		case "monthly":
			return MonthlyOnDay(anchor.Day()), nil
		}
		if opts.LegacyFallback {
			return WeeklyOn(anchor.Weekday()), nil
		}
		return Rule{}, fmt.Errorf("%w: %q", ErrUnsupportedFrequency, text)
	}

	attrs, err := parseAttributes(text, opts)
	if err != nil {
		return Rule{}, err
	}
	if attrs.freq == "" {
		attrs.freq = "WEEKLY"
	}

	var rule Rule
	switch attrs.freq {
	case "DAILY":
		rule = Daily()
	case "WEEKLY":
		rule, err = weeklyRule(attrs, nominal)
	case "MONTHLY":
		rule, err = monthlyRule(attrs, anchor, MonthlyOnNthWeekday(anchor.Weekday(), NthWeekdayOrdinal(anchor)))
	default:
		if !opts.LegacyFallback {
			return Rule{}, fmt.Errorf("%w: %s", ErrUnsupportedFrequency, attrs.freq)
		}
		rule = WeeklyOn(anchor.Weekday())
	}
	if err != nil {
		return Rule{}, err
	}
	return finish(rule.Every(attrs.interval))
}

// ParseBilling parses a billing descriptor. Only the FREQ form is accepted and
// a missing FREQ means monthly on the anchor's day of month.
func ParseBilling(text string, anchor time.Time, opts ParseOptions) (Rule, error) {
	anchor = DateOf(anchor)
	text = strings.TrimSpace(text)
	if text == "" {
		return Rule{}, fmt.Errorf("%w: empty billing rule", ErrInvalidRule)
	}
	if !isRRule(text) {
		return Rule{}, fmt.Errorf("%w: %q", ErrUnsupportedFrequency, text)
	}

	attrs, err := parseAttributes(text, opts)
	if err != nil {
		return Rule{}, err
	}
	if attrs.freq == "" {
		attrs.freq = "MONTHLY"
	}

	var rule Rule
	switch attrs.freq {
	case "DAILY":
		rule = Daily()
	case "WEEKLY":
		rule, err = weeklyRule(attrs, anchor.Weekday())
	case "MONTHLY":
		rule, err = monthlyRule(attrs, anchor, MonthlyOnDay(anchor.Day()))
	default:
		return Rule{}, fmt.Errorf("%w: %s", ErrUnsupportedFrequency, attrs.freq)
	}
	if err != nil {
		return Rule{}, err
	}
	return finish(rule.Every(attrs.interval))
}

func finish(rule Rule) (Rule, error) {
	if err := rule.Validate(); err != nil {
		return Rule{}, err
	}
	return rule, nil
}

func weeklyRule(attrs attributes, fallback time.Weekday) (Rule, error) {
	if len(attrs.byDay) == 0 {
		return WeeklyOn(fallback), nil
	}
	days := make([]time.Weekday, 0, len(attrs.byDay))
	for _, token := range attrs.byDay {
		ordinal, day, err := parseByDay(token)
		if err != nil {
			return Rule{}, err
		}
		if ordinal != 0 {
			return Rule{}, fmt.Errorf("%w: ordinal BYDAY %q in weekly rule", ErrInvalidRule, token)
		}
		days = append(days, day)
	}
	return WeeklyOn(days...), nil
}

func monthlyRule(attrs attributes, anchor time.Time, fallback Rule) (Rule, error) {
	if attrs.byMonthDay != 0 {
		if len(attrs.byDay) > 0 {
			return Rule{}, fmt.Errorf("%w: BYDAY and BYMONTHDAY together", ErrInvalidRule)
		}
		return MonthlyOnDay(attrs.byMonthDay), nil
	}
	switch len(attrs.byDay) {
	case 0:
		return fallback, nil
	case 1:
		ordinal, day, err := parseByDay(attrs.byDay[0])
		if err != nil {
			return Rule{}, err
		}
		if ordinal == 0 {
			ordinal = NthWeekdayOrdinal(anchor)
		}
		return MonthlyOnNthWeekday(day, ordinal), nil
	default:
		return Rule{}, fmt.Errorf("%w: monthly rule with several BYDAY values", ErrInvalidRule)
	}
}

func isRRule(text string) bool {
	upper := strings.ToUpper(text)
	return strings.HasPrefix(upper, "RRULE:") || strings.Contains(upper, "=")
}

func parseAttributes(text string, opts ParseOptions) (attributes, error) {
	attrs := attributes{interval: 1}
	upper := strings.TrimPrefix(strings.ToUpper(text), "RRULE:")
	for _, part := range strings.Split(upper, ";") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		key, value, found := strings.Cut(part, "=")
		key, value = strings.TrimSpace(key), strings.TrimSpace(value)
		if !found || value == "" {
			return attributes{}, fmt.Errorf("%w: malformed part %q", ErrInvalidRule, part)
		}
		switch key {
		case "FREQ":
			attrs.freq = value
		case "INTERVAL":
			n, err := strconv.Atoi(value)
			if err != nil || n < 1 {
				return attributes{}, fmt.Errorf("%w: INTERVAL %q", ErrInvalidRule, value)
			}
			attrs.interval = n
		case "BYMONTHDAY":
			n, err := strconv.Atoi(value)
			if err != nil || n < 1 || n > 31 {
				return attributes{}, fmt.Errorf("%w: BYMONTHDAY %q", ErrInvalidRule, value)
			}
			attrs.byMonthDay = n
		case "BYDAY":
			for _, token := range strings.Split(value, ",") {
				if token = strings.TrimSpace(token); token != "" {
					attrs.byDay = append(attrs.byDay, token)
				}
			}
		default:
			if !opts.LegacyFallback {
				return attributes{}, fmt.Errorf("%w: unsupported attribute %s", ErrInvalidRule, key)
			}
		}
	}
	return attrs, nil
}

// parseByDay reads MO, MONDAY, 2TU, +1FR or -1SU.
func parseByDay(token string) (int, time.Weekday, error) {
	token = strings.ToUpper(strings.TrimSpace(token))
	split := strings.IndexFunc(token, func(r rune) bool { return r >= 'A' && r <= 'Z' })
	if split < 0 {
		return 0, 0, fmt.Errorf("%w: BYDAY %q", ErrInvalidRule, token)
	}
	ordinal := 0
	if split > 0 {
		n, err := strconv.Atoi(token[:split])
		if err != nil || n == 0 || n < LastWeek || n > 5 {
			return 0, 0, fmt.Errorf("%w: BYDAY ordinal %q", ErrInvalidRule, token)
		}
		ordinal = n
	}
	day, ok := byDayNames[token[split:]]
	if !ok {
		return 0, 0, fmt.Errorf("%w: BYDAY %q", ErrInvalidRule, token)
	}
	return ordinal, day, nil
}

// ParseWeekday reads a weekday name such as "mon", "Tues" or "thursday".
func ParseWeekday(raw string) (time.Weekday, bool) {
	day, ok := weekdayNames[strings.ToLower(strings.TrimSpace(raw))]
	return day, ok
}

var weekdayNames = map[string]time.Weekday{
	"monday": time.Monday, "mon": time.Monday,
	"tuesday": time.Tuesday, "tue": time.Tuesday, "tues": time.Tuesday,
	"wednesday": time.Wednesday, "wed": time.Wednesday,
	"thursday": time.Thursday, "thu": time.Thursday, "thurs": time.Thursday,
	"friday": time.Friday, "fri": time.Friday,
	"saturday": time.Saturday, "sat": time.Saturday,
	"sunday": time.Sunday, "sun": time.Sunday,
}

var byDayNames = map[string]time.Weekday{
	"MO": time.Monday, "MONDAY": time.Monday,
	"TU": time.Tuesday, "TUESDAY": time.Tuesday,
	"WE": time.Wednesday, "WEDNESDAY": time.Wednesday,
	"TH": time.Thursday, "THURSDAY": time.Thursday,
	"FR": time.Friday, "FRIDAY": time.Friday,
	"SA": time.Saturday, "SATURDAY": time.Saturday,
	"SU": time.Sunday, "SUNDAY": time.Sunday,
}
