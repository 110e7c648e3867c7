// Package timeparse extracts calendar dates and times of day from free-text
// patient messages. All functions are pure and deterministic given the
// reference instant, so callers pin "now" in tests.
package timeparse

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// Clock is a time of day in 24-hour form.
type Clock struct {
	Hour   int
	Minute int
}

// String renders the clock as "15:04".
func (c Clock) String() string {
	return fmt.Sprintf("%02d:%02d", c.Hour, c.Minute)
}

var (
	slashDateRE = regexp.MustCompile(`\b(\d{1,2})/(\d{1,2})(?:/(\d{2,4}))?\b`)
	monthDayRE  = regexp.MustCompile(`\b(\d{1,2})\s+(?:de\s+|of\s+)?([a-z]+)\b`)
	dayMonthRE  = regexp.MustCompile(`\b([a-z]+)\s+(\d{1,2})\b`)

	hourMinuteRE = regexp.MustCompile(`\b(\d{1,2})[:h](\d{2})\b`)
	hourOnlyRE   = regexp.MustCompile(`\b(\d{1,2})h\b`)
	bareNumberRE = regexp.MustCompile(`\b(\d{1,2})\b`)
)

var monthsByName = map[string]time.Month{
	"january":   time.January,
	"february":  time.February,
	"march":     time.March,
	"april":     time.April,
	"may":       time.May,
	"june":      time.June,
	"july":      time.July,
	"august":    time.August,
	"september": time.September,
	"october":   time.October,
	"november":  time.November,
	"december":  time.December,
}

var weekdaysByName = []struct {
	name string
	day  time.Weekday
}{
	{"sunday", time.Sunday},
	{"monday", time.Monday},
	{"tuesday", time.Tuesday},
	{"wednesday", time.Wednesday},
	{"thursday", time.Thursday},
	{"friday", time.Friday},
	{"saturday", time.Saturday},
}

// ParseDate extracts a calendar date from text, relative to now's location.
// Recognized patterns, in priority order: relative day words ("day after
// tomorrow" before "tomorrow" so the substring doesn't shadow it), explicit
// D/M[/Y] dates, "<day> de <month>" / "<month> <day>" in the reference year,
// and bare weekday names. Weekday names resolve to the NEXT occurrence: the
// offset is always at least one day, so naming today's weekday means next
// week. Returns midnight in now's location.
func ParseDate(text string, now time.Time) (time.Time, bool) {
	text = strings.ToLower(text)

	if strings.Contains(text, "day after tomorrow") {
		return midnight(now.AddDate(0, 0, 2)), true
	}
	if strings.Contains(text, "tomorrow") {
		return midnight(now.AddDate(0, 0, 1)), true
	}
	if strings.Contains(text, "today") {
		return midnight(now), true
	}

	if m := slashDateRE.FindStringSubmatch(text); m != nil {
		day, _ := strconv.Atoi(m[1])
		month, _ := strconv.Atoi(m[2])
		year := now.Year()
		if m[3] != "" {
			year, _ = strconv.Atoi(m[3])
			if year < 100 {
				year += 2000
			}
		}
		if d, ok := buildDate(year, time.Month(month), day, now.Location()); ok {
			return d, true
		}
	}

	if m := monthDayRE.FindStringSubmatch(text); m != nil {
		if month, ok := monthsByName[m[2]]; ok {
			day, _ := strconv.Atoi(m[1])
			if d, ok := buildDate(now.Year(), month, day, now.Location()); ok {
				return d, true
			}
		}
	}
	if m := dayMonthRE.FindStringSubmatch(text); m != nil {
		if month, ok := monthsByName[m[1]]; ok {
			day, _ := strconv.Atoi(m[2])
			if d, ok := buildDate(now.Year(), month, day, now.Location()); ok {
				return d, true
			}
		}
	}

	// When several weekday names appear, the one mentioned first wins.
	matchIdx := -1
	var matchDay time.Weekday
	for _, w := range weekdaysByName {
		if idx := strings.Index(text, w.name); idx >= 0 && (matchIdx == -1 || idx < matchIdx) {
			matchIdx = idx
			matchDay = w.day
		}
	}
	if matchIdx >= 0 {
		offset := (int(matchDay) - int(now.Weekday()) + 7) % 7
		if offset == 0 {
			offset = 7
		}
		return midnight(now.AddDate(0, 0, offset)), true
	}

	return time.Time{}, false
}

// ParseClock extracts a time of day from text. Recognized: "H:MM"/"HhMM",
// "Hh" (top of the hour), and a bare 1-2 digit number. The bare-number
// fallback only applies when the text carries no slash date pattern and the
// value falls in business-plausible hours [7,20], otherwise "14/3" would be
// read as 14:00.
func ParseClock(text string) (Clock, bool) {
	return parseClock(text, true)
}

// ParseClockExplicit is ParseClock without the bare-number fallback, for
// contexts where a lone number more likely belongs to a date ("december 12").
func ParseClockExplicit(text string) (Clock, bool) {
	return parseClock(text, false)
}

func parseClock(text string, allowBare bool) (Clock, bool) {
	text = strings.ToLower(text)

	if m := hourMinuteRE.FindStringSubmatch(text); m != nil {
		hour, _ := strconv.Atoi(m[1])
		minute, _ := strconv.Atoi(m[2])
		if validClock(hour, minute) {
			return Clock{Hour: hour, Minute: minute}, true
		}
	}

	if m := hourOnlyRE.FindStringSubmatch(text); m != nil {
		hour, _ := strconv.Atoi(m[1])
		if validClock(hour, 0) {
			return Clock{Hour: hour}, true
		}
	}

	if allowBare && !slashDateRE.MatchString(text) {
		if m := bareNumberRE.FindStringSubmatch(text); m != nil {
			hour, _ := strconv.Atoi(m[1])
			if hour >= 7 && hour <= 20 {
				return Clock{Hour: hour}, true
			}
		}
	}

	return Clock{}, false
}

func validClock(hour, minute int) bool {
	return hour >= 0 && hour <= 23 && minute >= 0 && minute <= 59
}

// buildDate validates the calendar components by round-tripping through
// time.Date, which normalizes overflow (Feb 31 becomes Mar 3).
func buildDate(year int, month time.Month, day int, loc *time.Location) (time.Time, bool) {
	if day < 1 || day > 31 || month < time.January || month > time.December {
		return time.Time{}, false
	}
	d := time.Date(year, month, day, 0, 0, 0, 0, loc)
	if d.Day() != day || d.Month() != month {
		return time.Time{}, false
	}
	return d, true
}

func midnight(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}
