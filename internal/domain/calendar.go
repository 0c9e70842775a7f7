package domain

import (
	"fmt"
	"time"
)

const (
	DayKeyLayout   = "2006-01-02"
	MonthKeyLayout = "2006-01"
)

var monthAbbrev = [...]string{"jan", "fev", "mar", "abr", "mai", "jun", "jul", "ago", "set", "out", "nov", "dez"}

// Calendar buckets timestamps by the local calendar of a fixed zone.
// Keys are always derived from the wall clock in Location, never from UTC.
type Calendar struct {
	Location *time.Location
}

// NewCalendar returns a calendar for the given zone (UTC when nil).
func NewCalendar(loc *time.Location) Calendar {
	if loc == nil {
		loc = time.UTC
	}
	return Calendar{Location: loc}
}

func (c Calendar) loc() *time.Location {
	if c.Location == nil {
		return time.UTC
	}
	return c.Location
}

// DayKey returns the local "YYYY-MM-DD" of t.
func (c Calendar) DayKey(t time.Time) string {
	return t.In(c.loc()).Format(DayKeyLayout)
}

// MonthKey returns the local "YYYY-MM" of t.
func (c Calendar) MonthKey(t time.Time) string {
	return t.In(c.loc()).Format(MonthKeyLayout)
}

// StartOfDay returns local midnight of t's calendar day.
func (c Calendar) StartOfDay(t time.Time) time.Time {
	l := t.In(c.loc())
	return time.Date(l.Year(), l.Month(), l.Day(), 0, 0, 0, 0, c.loc())
}

// EndOfDay returns the last nanosecond of t's local calendar day.
func (c Calendar) EndOfDay(t time.Time) time.Time {
	return c.StartOfDay(t).AddDate(0, 0, 1).Add(-time.Nanosecond)
}

// StartOfMonth returns local midnight of the first day of t's month.
func (c Calendar) StartOfMonth(t time.Time) time.Time {
	l := t.In(c.loc())
	return time.Date(l.Year(), l.Month(), 1, 0, 0, 0, 0, c.loc())
}

// DayRange lists every local calendar day from start to end, inclusive.
// Days are stepped with calendar arithmetic so DST transitions neither skip
// nor repeat a day. It returns nil when end precedes start.
func (c Calendar) DayRange(start, end time.Time) []string {
	first := c.StartOfDay(start)
	last := c.StartOfDay(end)
	if last.Before(first) {
		return nil
	}
	keys := make([]string, 0, int(last.Sub(first).Hours()/24)+2)
	for i := 0; ; i++ {
		d := time.Date(first.Year(), first.Month(), first.Day()+i, 0, 0, 0, 0, c.loc())
		if d.After(last) {
			break
		}
		keys = append(keys, d.Format(DayKeyLayout))
	}
	return keys
}

// MonthRange lists every local calendar month from start to end, inclusive,
// each one anchored on its first day.
func (c Calendar) MonthRange(start, end time.Time) []string {
	first := c.StartOfMonth(start)
	last := c.StartOfMonth(end)
	if last.Before(first) {
		return nil
	}
	var keys []string
	for i := 0; ; i++ {
		m := time.Date(first.Year(), first.Month()+time.Month(i), 1, 0, 0, 0, 0, c.loc())
		if m.After(last) {
			break
		}
		keys = append(keys, m.Format(MonthKeyLayout))
	}
	return keys
}

// ParseDayKey parses "YYYY-MM-DD" as local midnight. Longer date strings
// (view rows such as "2025-08-01T00:00:00") are truncated to the first ten
// characters, never reinterpreted through UTC.
func (c Calendar) ParseDayKey(key string) (time.Time, error) {
	if len(key) > len(DayKeyLayout) {
		key = key[:len(DayKeyLayout)]
	}
	return time.ParseInLocation(DayKeyLayout, key, c.loc())
}

// ParseMonthKey parses "YYYY-MM" (or a longer date) as the first local day
// of that month.
func (c Calendar) ParseMonthKey(key string) (time.Time, error) {
	if len(key) > len(MonthKeyLayout) {
		key = key[:len(MonthKeyLayout)]
	}
	return time.ParseInLocation(MonthKeyLayout, key, c.loc())
}

// ParseTimestamp accepts RFC3339 or a bare day key (local midnight).
func (c Calendar) ParseTimestamp(s string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	if t, err := time.ParseInLocation(DayKeyLayout, s, c.loc()); err == nil {
		return t, nil
	}
	return time.Time{}, fmt.Errorf("invalid date %q", s)
}

// DayLabel renders a day key as "DD/MM".
func DayLabel(key string) string {
	if len(key) < len(DayKeyLayout) {
		return key
	}
	return key[8:10] + "/" + key[5:7]
}

// MonthLabel renders a month key as the abbreviated pt-BR month and
// two-digit year, e.g. "ago/25".
func MonthLabel(key string) string {
	t, err := time.Parse(MonthKeyLayout, key[:min(len(key), len(MonthKeyLayout))])
	if err != nil {
		return key
	}
	return fmt.Sprintf("%s/%02d", monthAbbrev[t.Month()-1], t.Year()%100)
}

// TimeAgo renders a compact relative age ("agora", "há 5 min", "há 3 h",
// "há 2 d") for entry lists.
func TimeAgo(t, now time.Time) string {
	diff := now.Sub(t)
	if diff < time.Minute {
		return "agora"
	}
	m := int(diff / time.Minute)
	if m < 60 {
		return fmt.Sprintf("há %d min", m)
	}
	h := m / 60
	if h < 24 {
		return fmt.Sprintf("há %d h", h)
	}
	return fmt.Sprintf("há %d d", h/24)
}
