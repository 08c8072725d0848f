// Package bizdate resolves human-entered "date analyzed" tokens into
// business-day calendar dates. Weekends are skipped; holidays are not
// modelled.
package bizdate

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

// Layout is the ISO date layout used for cache keys and API paths.
const Layout = "2006-01-02"

// FallbackDays is how far before today an unparseable token resolves.
const FallbackDays = 2

var months = map[string]time.Month{
	"jan": time.January, "feb": time.February, "mar": time.March, "apr": time.April,
	"may": time.May, "jun": time.June, "jul": time.July, "aug": time.August,
	"sep": time.September, "oct": time.October, "nov": time.November, "dec": time.December,
}

var (
	numericRe = regexp.MustCompile(`^(\d{1,2})[/\-](\d{1,2})(?:[/\-](\d{2}|\d{4}))?$`)
	monthRe   = regexp.MustCompile(`(?i)^(\d{1,2})[\-/ ]([a-z]{3})(?:[\-/ ](\d{2}|\d{4}))?$`)
	isoRe     = regexp.MustCompile(`^(\d{4})-(\d{1,2})-(\d{1,2})$`)
)

// Day truncates t to midnight UTC of its calendar day.
func Day(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// Format renders t with Layout.
func Format(t time.Time) string { return t.Format(Layout) }

// IsWeekend reports whether t falls on Saturday or Sunday.
func IsWeekend(t time.Time) bool {
	wd := t.Weekday()
	return wd == time.Saturday || wd == time.Sunday
}

// OnOrBefore walks t back to the nearest weekday (t itself if it is one).
func OnOrBefore(t time.Time) time.Time {
	d := Day(t)
	for IsWeekend(d) {
		d = d.AddDate(0, 0, -1)
	}
	return d
}

// Prev returns the business day strictly before t.
func Prev(t time.Time) time.Time {
	d := Day(t).AddDate(0, 0, -1)
	for IsWeekend(d) {
		d = d.AddDate(0, 0, -1)
	}
	return d
}

// DaysAgo walks n business days back from t.
func DaysAgo(t time.Time, n int) time.Time {
	d := Day(t)
	for i := 0; i < n; i++ {
		d = Prev(d)
	}
	return d
}

// Parse resolves a raw token relative to today. ok is false when the token
// matched no accepted shape; the returned date is then the fallback.
//
// Accepted: M/D, MM/DD, D-Mon, DD-Mon (each with optional 2- or 4-digit
// year), and YYYY-MM-DD. Dates in the future move back one year; weekend
// dates walk back to Friday.
func Parse(raw string, today time.Time) (time.Time, bool) {
	today = Day(today)
	d, ok := parseCalendar(strings.TrimSpace(raw), today.Year())
	if !ok {
		return OnOrBefore(today.AddDate(0, 0, -FallbackDays)), false
	}
	if d.After(today) {
		d = d.AddDate(-1, 0, 0)
	}
	return OnOrBefore(d), true
}

// Normalize is Parse rendered with Layout, for use as a cache key.
func Normalize(raw string, today time.Time) string {
	d, _ := Parse(raw, today)
	return Format(d)
}

func parseCalendar(s string, year int) (time.Time, bool) {
	if s == "" {
		return time.Time{}, false
	}
	if m := isoRe.FindStringSubmatch(s); m != nil {
		return build(atoi(m[1]), atoi(m[2]), atoi(m[3]))
	}
	if m := numericRe.FindStringSubmatch(s); m != nil {
		return build(yearOr(m[3], year), atoi(m[1]), atoi(m[2]))
	}
	if m := monthRe.FindStringSubmatch(s); m != nil {
		mon, ok := months[strings.ToLower(m[2])]
		if !ok {
			return time.Time{}, false
		}
		return build(yearOr(m[3], year), int(mon), atoi(m[1]))
	}
	return time.Time{}, false
}

// build rejects impossible dates (e.g. 2/30) instead of letting time.Date
// roll them into the next month.
func build(y, m, d int) (time.Time, bool) {
	if m < 1 || m > 12 || d < 1 || d > 31 {
		return time.Time{}, false
	}
	t := time.Date(y, time.Month(m), d, 0, 0, 0, 0, time.UTC)
	if t.Month() != time.Month(m) || t.Day() != d {
		return time.Time{}, false
	}
	return t, true
}

func yearOr(s string, def int) int {
	if s == "" {
		return def
	}
	y := atoi(s)
	if len(s) == 2 {
		y += 2000
	}
	return y
}

func atoi(s string) int {
	n, _ := strconv.Atoi(s)
	return n
}
