package filter

import "time"

// dayLayout is the date-only wire format (YYYY-MM-DD).
const dayLayout = "2006-01-02"

// DayRange is a half-open instant range [Start, End) covering one or more
// whole calendar days.
type DayRange struct {
	Start time.Time // inclusive
	End   time.Time // exclusive
}

// Contains reports whether t falls inside the range.
func (r DayRange) Contains(t time.Time) bool {
	return !t.Before(r.Start) && t.Before(r.End)
}

// IsDayString reports whether s is a bare date-only value (YYYY-MM-DD).
// Values carrying a time-of-day or timezone are not date-only and are
// compared raw by both consumers.
func IsDayString(s string) bool {
	if len(s) != len(dayLayout) {
		return false
	}
	_, err := time.Parse(dayLayout, s)
	return err == nil
}

// LocalDayRange resolves a date-only string to the instant range of that
// calendar day in loc. Callers choose local or UTC semantics explicitly;
// there is no silent default. A nil loc means time.Local.
// Returns ok=false if day is not a date-only string.
func LocalDayRange(day string, loc *time.Location) (DayRange, bool) {
	if loc == nil {
		loc = time.Local
	}
	t, err := time.ParseInLocation(dayLayout, day, loc)
	if err != nil {
		return DayRange{}, false
	}
	return DayRange{Start: t, End: t.AddDate(0, 0, 1)}, true
}

// UTCDayRange resolves a date-only string to the instant range of that
// calendar day in UTC. Used when comparing against UTC-stored instants
// rather than local wall-clock intent.
func UTCDayRange(day string) (DayRange, bool) {
	return LocalDayRange(day, time.UTC)
}

// Today returns the date-only string for now in loc.
func Today(now time.Time, loc *time.Location) string {
	if loc == nil {
		loc = time.Local
	}
	return now.In(loc).Format(dayLayout)
}

// TodayRange resolves today's calendar day in loc to local-day bounds.
func TodayRange(now time.Time, loc *time.Location) DayRange {
	r, _ := LocalDayRange(Today(now, loc), loc)
	return r
}

// NextDaysRange resolves the window [today 00:00, (today+n+1) 00:00) in
// loc: inclusive of today and the next n days. Requires n >= 0; a negative
// n returns ok=false and callers treat the condition as a no-op filter.
func NextDaysRange(now time.Time, n int, loc *time.Location) (DayRange, bool) {
	if n < 0 {
		return DayRange{}, false
	}
	today := TodayRange(now, loc)
	return DayRange{Start: today.Start, End: today.Start.AddDate(0, 0, n+1)}, true
}

// resolveToday substitutes the dynamic TokenToday value with today's
// date-only string. Applied immediately before use in both consumers and
// never cached, so "today" is resolved at run time rather than at tree
// construction.
func resolveToday(value any, now time.Time, loc *time.Location) any {
	switch v := value.(type) {
	case string:
		if v == TokenToday {
			return Today(now, loc)
		}
	case DateRange:
		if v.Start == TokenToday {
			v.Start = Today(now, loc)
		}
		if v.End == TokenToday {
			v.End = Today(now, loc)
		}
		return v
	}
	return value
}
