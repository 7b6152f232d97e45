package locale_test

import (
	"testing"
	"time"

	"upkeep-backend/internal/locale"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNegotiate(t *testing.T) {
	// Explicit preference wins over the header.
	assert.Equal(t, "de", locale.Negotiate("de", "fr-FR, fr;q=0.9"))

	// Header matching, including regional variants collapsing to a base.
	assert.Equal(t, "es", locale.Negotiate("", "es-MX, es;q=0.9, en;q=0.5"))
	assert.Equal(t, "en-GB", locale.Negotiate("", "en-GB"))
	assert.Equal(t, "pt", locale.Negotiate("", "pt-BR"))

	// Unknown languages fall back to the default.
	assert.Equal(t, "en", locale.Negotiate("", "ja-JP"))
	assert.Equal(t, "en", locale.Negotiate("", ""))
	assert.Equal(t, "en", locale.Negotiate("", "not a header"))
}

func TestIsSupported(t *testing.T) {
	assert.True(t, locale.IsSupported("en"))
	assert.True(t, locale.IsSupported("en-GB"))
	assert.True(t, locale.IsSupported("fr"))
	assert.False(t, locale.IsSupported("ja"))
	assert.False(t, locale.IsSupported(""))
	assert.False(t, locale.IsSupported("not a tag!"))
}

func TestLabel(t *testing.T) {
	assert.Equal(t, "Tomorrow", locale.Label("en", "tomorrow"))
	assert.Equal(t, "Mañana", locale.Label("es", "tomorrow"))
	assert.Equal(t, "Nächste Woche", locale.Label("de", "next_week"))

	// Unknown locales fall back to English, unknown keys to the key itself.
	assert.Equal(t, "Tomorrow", locale.Label("ja", "tomorrow"))
	assert.Equal(t, "someday", locale.Label("en", "someday"))
}

func optionKeys(options []locale.SnoozeOption) []string {
	keys := make([]string, 0, len(options))
	for _, option := range options {
		keys = append(keys, option.Key)
	}
	return keys
}

func findOption(t *testing.T, options []locale.SnoozeOption, key string) locale.SnoozeOption {
	for _, option := range options {
		if option.Key == key {
			return option
		}
	}
	t.Fatalf("option %s not found", key)
	return locale.SnoozeOption{}
}

func TestSnoozeOptionsMidweekMorning(t *testing.T) {
	// Wednesday 10:00 UTC.
	now := time.Date(2026, time.March, 4, 10, 0, 0, 0, time.UTC)
	options := locale.SnoozeOptions(now, locale.DefaultSnoozeSettings())

	assert.ElementsMatch(t,
		[]string{"later_today", "tomorrow", "this_weekend", "next_week", "next_month"},
		optionKeys(options))

	assert.Equal(t, now.Add(3*time.Hour), findOption(t, options, "later_today").Until)

	tomorrow := findOption(t, options, "tomorrow").Until
	assert.Equal(t, time.Date(2026, time.March, 5, 9, 0, 0, 0, time.UTC), tomorrow)

	weekend := findOption(t, options, "this_weekend").Until
	assert.Equal(t, time.Saturday, weekend.Weekday())
	assert.Equal(t, time.Date(2026, time.March, 7, 9, 0, 0, 0, time.UTC), weekend)

	nextWeek := findOption(t, options, "next_week").Until
	assert.Equal(t, time.Monday, nextWeek.Weekday())
	assert.Equal(t, time.Date(2026, time.March, 9, 9, 0, 0, 0, time.UTC), nextWeek)

	nextMonth := findOption(t, options, "next_month").Until
	assert.Equal(t, time.Date(2026, time.April, 1, 9, 0, 0, 0, time.UTC), nextMonth)
}

func TestSnoozeOptionsLateEvening(t *testing.T) {
	// 22:30, +3h crosses midnight so later_today disappears.
	now := time.Date(2026, time.March, 4, 22, 30, 0, 0, time.UTC)
	options := locale.SnoozeOptions(now, locale.DefaultSnoozeSettings())

	assert.NotContains(t, optionKeys(options), "later_today")
}

func TestSnoozeOptionsOnWeekend(t *testing.T) {
	// Saturday: no this_weekend option.
	now := time.Date(2026, time.March, 7, 10, 0, 0, 0, time.UTC)
	options := locale.SnoozeOptions(now, locale.DefaultSnoozeSettings())

	assert.NotContains(t, optionKeys(options), "this_weekend")
}

func TestSnoozeOptionsWeekStart(t *testing.T) {
	// Wednesday with a Sunday week start.
	now := time.Date(2026, time.March, 4, 10, 0, 0, 0, time.UTC)
	settings := locale.DefaultSnoozeSettings()
	settings.WeekStart = time.Sunday

	nextWeek := findOption(t, locale.SnoozeOptions(now, settings), "next_week").Until
	assert.Equal(t, time.Sunday, nextWeek.Weekday())
	assert.Equal(t, time.Date(2026, time.March, 8, 9, 0, 0, 0, time.UTC), nextWeek)

	// On the week-start day itself, next_week means a full week ahead.
	monday := time.Date(2026, time.March, 2, 10, 0, 0, 0, time.UTC)
	nextWeek = findOption(t, locale.SnoozeOptions(monday, locale.DefaultSnoozeSettings()), "next_week").Until
	assert.Equal(t, time.Date(2026, time.March, 9, 9, 0, 0, 0, time.UTC), nextWeek)
}

func TestSnoozeOptionsTimezone(t *testing.T) {
	berlin, err := time.LoadLocation("Europe/Berlin")
	require.NoError(t, err)

	// 23:30 UTC on Wednesday is already Thursday morning in Berlin.
	now := time.Date(2026, time.March, 4, 23, 30, 0, 0, time.UTC)
	settings := locale.DefaultSnoozeSettings()
	settings.Location = berlin

	tomorrow := findOption(t, locale.SnoozeOptions(now, settings), "tomorrow").Until
	assert.Equal(t, time.Date(2026, time.March, 6, 9, 0, 0, 0, berlin), tomorrow)
}

func TestResolveSnoozeOption(t *testing.T) {
	now := time.Date(2026, time.March, 4, 10, 0, 0, 0, time.UTC)

	until, err := locale.ResolveSnoozeOption(now, locale.DefaultSnoozeSettings(), "tomorrow")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, time.March, 5, 9, 0, 0, 0, time.UTC), until)

	_, err = locale.ResolveSnoozeOption(now, locale.DefaultSnoozeSettings(), "whenever")
	assert.Error(t, err)
}

func TestParseWeekStart(t *testing.T) {
	assert.Equal(t, time.Monday, locale.ParseWeekStart("monday"))
	assert.Equal(t, time.Sunday, locale.ParseWeekStart("sunday"))
	assert.Equal(t, time.Saturday, locale.ParseWeekStart("saturday"))
	assert.Equal(t, time.Monday, locale.ParseWeekStart(""))
	assert.Equal(t, time.Monday, locale.ParseWeekStart("wednesday"))
}
