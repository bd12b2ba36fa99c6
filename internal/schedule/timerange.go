// Package schedule turns a match's stored date and "HH:MM-HH:MM" time range into concrete
// instants, and decides when a match has finished.
//
// Nothing in this package returns an error for bad input. A time range that cannot be
// parsed is reported with ok == false, and every caller has a fallback for that case
// (keep the current status, skip the record, count zero hours).
package schedule

import (
	"strconv"
	"strings"
	"time"
)

const minutesPerDay = 24 * 60

// TimeRange is a parsed "HH:MM-HH:MM" string.
type TimeRange struct {
	StartHour, StartMinute int
	EndHour, EndMinute     int

	// DurationMinutes is always positive. A range whose end is at or before its start is
	// read as crossing midnight, so "22:00-02:00" lasts 240 minutes and "10:00-10:00"
	// lasts a full 1440.
	DurationMinutes int
	CrossesMidnight bool
}

// ParseTimeRange parses s in the form "HH:MM-HH:MM".
// It returns ok == false when s is empty, does not contain exactly one "-", or any of the
// four components is not an integer clock value (hour 0-23, minute 0-59).
// Whitespace around each side of the dash is ignored.
func ParseTimeRange(s string) (TimeRange, bool) {
	parts := strings.Split(strings.TrimSpace(s), "-")
	if len(parts) != 2 {
		return TimeRange{}, false
	}

	startH, startM, ok := parseClock(parts[0])
	if !ok {
		return TimeRange{}, false
	}
	endH, endM, ok := parseClock(parts[1])
	if !ok {
		return TimeRange{}, false
	}

	tr := TimeRange{
		StartHour:   startH,
		StartMinute: startM,
		EndHour:     endH,
		EndMinute:   endM,
	}
	tr.DurationMinutes = (endH*60 + endM) - (startH*60 + startM)
	if tr.DurationMinutes <= 0 {
		tr.DurationMinutes += minutesPerDay
		tr.CrossesMidnight = true
	}
	return tr, true
}

// parseClock parses "HH:MM". Single-digit hours ("9:30") are accepted, minutes always
// take two digits, and signs are rejected.
func parseClock(s string) (hour, minute int, ok bool) {
	hm := strings.Split(strings.TrimSpace(s), ":")
	if len(hm) != 2 || !allDigits(hm[0], 1, 2) || !allDigits(hm[1], 2, 2) {
		return 0, 0, false
	}
	hour, err := strconv.Atoi(hm[0])
	if err != nil || hour > 23 {
		return 0, 0, false
	}
	minute, err = strconv.Atoi(hm[1])
	if err != nil || minute > 59 {
		return 0, 0, false
	}
	return hour, minute, true
}

// allDigits reports whether s is between minLen and maxLen ASCII digits long.
func allDigits(s string, minLen, maxLen int) bool {
	if len(s) < minLen || len(s) > maxLen {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}

// DurationHours returns the length of the range in hours.
func (tr TimeRange) DurationHours() float64 {
	return float64(tr.DurationMinutes) / 60
}

// Duration returns the length of the range as a time.Duration.
func (tr TimeRange) Duration() time.Duration {
	return time.Duration(tr.DurationMinutes) * time.Minute
}

// StartAt returns the instant the range starts on the calendar day of date, in loc.
// Only the year, month and day of date are used.
func (tr TimeRange) StartAt(date time.Time, loc *time.Location) time.Time {
	y, m, d := date.Date()
	return time.Date(y, m, d, tr.StartHour, tr.StartMinute, 0, 0, loc)
}

// EndAt returns the instant the range ends when it starts on the calendar day of date, in loc.
// For ranges that cross midnight the end falls on the following day.
func (tr TimeRange) EndAt(date time.Time, loc *time.Location) time.Time {
	y, m, d := date.Date()
	if tr.CrossesMidnight {
		d++ // time.Date normalizes day overflow into the next month/year
	}
	return time.Date(y, m, d, tr.EndHour, tr.EndMinute, 0, 0, loc)
}

// String formats the range back into zero-padded "HH:MM-HH:MM".
func (tr TimeRange) String() string {
	return pad2(tr.StartHour) + ":" + pad2(tr.StartMinute) + "-" + pad2(tr.EndHour) + ":" + pad2(tr.EndMinute)
}

func pad2(n int) string {
	if n < 10 {
		return "0" + strconv.Itoa(n)
	}
	return strconv.Itoa(n)
}
