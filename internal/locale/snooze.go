package locale

import (
	"fmt"
	"time"
)

const (
	OptionLaterToday  = "later_today"
	OptionTomorrow    = "tomorrow"
	OptionThisWeekend = "this_weekend"
	OptionNextWeek    = "next_week"
	OptionNextMonth   = "next_month"
)

// Re-surfaced tasks come back at a civil morning hour rather than at the
// exact moment the option was computed.
const resurfaceHour = 9

type SnoozeOption struct {
	Key   string
	Label string
	Until time.Time
}

type SnoozeSettings struct {
	Locale    string
	Location  *time.Location
	WeekStart time.Weekday
}

func DefaultSnoozeSettings() SnoozeSettings {
	return SnoozeSettings{
		Locale:    DefaultLocale,
		Location:  time.UTC,
		WeekStart: time.Monday,
	}
}

// SnoozeOptions computes the locale-aware re-surface dates relative to now.
// "Later today" is omitted when +3h crosses midnight, "this weekend" when now
// is already on a weekend.
func SnoozeOptions(now time.Time, settings SnoozeSettings) []SnoozeOption {
	if settings.Location == nil {
		settings.Location = time.UTC
	}
	now = now.In(settings.Location)

	var options []SnoozeOption
	add := func(key string, until time.Time) {
		options = append(options, SnoozeOption{
			Key:   key,
			Label: Label(settings.Locale, key),
			Until: until,
		})
	}

	laterToday := now.Add(3 * time.Hour)
	if laterToday.Day() == now.Day() && laterToday.Month() == now.Month() {
		add(OptionLaterToday, laterToday)
	}

	add(OptionTomorrow, morningOf(now.AddDate(0, 0, 1)))

	if now.Weekday() != time.Saturday && now.Weekday() != time.Sunday {
		daysUntilSaturday := (int(time.Saturday) - int(now.Weekday()) + 7) % 7
		add(OptionThisWeekend, morningOf(now.AddDate(0, 0, daysUntilSaturday)))
	}

	daysUntilWeekStart := (int(settings.WeekStart) - int(now.Weekday()) + 7) % 7
	if daysUntilWeekStart == 0 {
		daysUntilWeekStart = 7
	}
	add(OptionNextWeek, morningOf(now.AddDate(0, 0, daysUntilWeekStart)))

	firstOfNextMonth := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, settings.Location).AddDate(0, 1, 0)
	add(OptionNextMonth, morningOf(firstOfNextMonth))

	return options
}

// ResolveSnoozeOption maps an option key to its concrete timestamp.
func ResolveSnoozeOption(now time.Time, settings SnoozeSettings, key string) (time.Time, error) {
	for _, option := range SnoozeOptions(now, settings) {
		if option.Key == key {
			return option.Until, nil
		}
	}
	return time.Time{}, fmt.Errorf("unknown snooze option %q", key)
}

// ParseWeekStart accepts the stored week-start setting; anything
// unrecognized falls back to Monday.
func ParseWeekStart(s string) time.Weekday {
	switch s {
	case "sunday", "SUNDAY", "Sunday":
		return time.Sunday
	case "saturday", "SATURDAY", "Saturday":
		return time.Saturday
	default:
		return time.Monday
	}
}

func morningOf(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), resurfaceHour, 0, 0, 0, t.Location())
}
