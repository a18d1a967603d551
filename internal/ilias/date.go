package ilias

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

var relativeDays = map[string]int{
	"Gestern":   -1,
	"Yesterday": -1,
	"Heute":     0,
	"Today":     0,
	"Morgen":    1,
	"Tomorrow":  1,
}

// month abbreviations as rendered by the german and english portal locales
var monthNames = map[string]time.Month{
	"Jan": time.January,
	"Feb": time.February,
	"Mär": time.March,
	"Mar": time.March,
	"Mrz": time.March,
	"Apr": time.April,
	"Mai": time.May,
	"May": time.May,
	"Jun": time.June,
	"Jul": time.July,
	"Aug": time.August,
	"Sep": time.September,
	"Okt": time.October,
	"Oct": time.October,
	"Nov": time.November,
	"Dez": time.December,
	"Dec": time.December,
}

var (
	absoluteDateRegex = regexp.MustCompile(`^(\d{1,2})\.\s*(\S+?)\.?\s+(\d{4})$`)
	clockTimeRegex    = regexp.MustCompile(`^(\d{1,2}):(\d{2})(?::(\d{2}))?$`)
)

// ParseDate parses a portal date such as "5. Apr 2023, 12:00" or
// "Heute, 14:30:00" into an instant in the location of now. Relative day
// names are resolved against the calendar date of now.
//
// Wall clock times that occur twice resolve to the earlier instant, times
// that do not exist in the location are an error.
func ParseDate(text string, now time.Time) (time.Time, error) {
	fail := func(reason string) (time.Time, error) {
		return time.Time{}, &DateParseError{Text: text, Reason: reason}
	}

	datePart, timePart, ok := strings.Cut(strings.TrimSpace(text), ",")
	if !ok {
		return fail("expected '<date>, <time>'")
	}
	datePart = strings.TrimSpace(datePart)
	timePart = strings.TrimSpace(timePart)

	hour, minute, second, ok := parseClockTime(timePart)
	if !ok {
		return fail("invalid time of day " + strconv.Quote(timePart))
	}

	var year, day int
	var month time.Month
	if offset, relative := relativeDays[datePart]; relative {
		// noon keeps the day arithmetic clear of daylight saving shifts
		date := time.Date(now.Year(), now.Month(), now.Day()+offset, 12, 0, 0, 0, now.Location())
		year, month, day = date.Date()
	} else {
		groups := absoluteDateRegex.FindStringSubmatch(datePart)
		if groups == nil {
			return fail("unrecognized date " + strconv.Quote(datePart))
		}
		day, _ = strconv.Atoi(groups[1])
		month, ok = monthNames[groups[2]]
		if !ok {
			return fail("unknown month " + strconv.Quote(groups[2]))
		}
		year, _ = strconv.Atoi(groups[3])
	}

	t, ok := localTime(year, month, day, hour, minute, second, now.Location())
	if !ok {
		return fail("date does not exist in " + now.Location().String())
	}
	return t, nil
}

func parseClockTime(s string) (hour, minute, second int, ok bool) {
	groups := clockTimeRegex.FindStringSubmatch(s)
	if groups == nil {
		return 0, 0, 0, false
	}
	hour, _ = strconv.Atoi(groups[1])
	minute, _ = strconv.Atoi(groups[2])
	if groups[3] != "" {
		second, _ = strconv.Atoi(groups[3])
	}
	if hour > 23 || minute > 59 || second > 59 {
		return 0, 0, 0, false
	}
	return hour, minute, second, true
}

// localTime is time.Date without normalization: calendar dates that do not
// exist (31. Feb) or wall clock times skipped by a daylight saving
// transition report false.
func localTime(year int, month time.Month, day, hour, minute, second int, loc *time.Location) (time.Time, bool) {
	matches := func(t time.Time) bool {
		y, mo, d := t.Date()
		h, mi, s := t.Clock()
		return y == year && mo == month && d == day &&
			h == hour && mi == minute && s == second
	}

	t := time.Date(year, month, day, hour, minute, second, 0, loc)
	if !matches(t) {
		return time.Time{}, false
	}
	for _, shift := range []time.Duration{time.Hour, 30 * time.Minute} {
		if earlier := t.Add(-shift); matches(earlier) {
			return earlier, true
		}
	}
	return t, true
}
