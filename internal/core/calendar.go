package core

import (
	"fmt"
	"time"
)

var frenchMonths = [...]string{
	"janvier", "février", "mars", "avril", "mai", "juin",
	"juillet", "août", "septembre", "octobre", "novembre", "décembre",
}

// FrenchMonthName returns the lowercase French name of month (1-12).
func FrenchMonthName(month int) string {
	if month < 1 || month > 12 {
		return ""
	}
	return frenchMonths[month-1]
}

// MonthLabel returns a capitalized label such as "Janvier 2026".
func MonthLabel(year, month int) string {
	name := []rune(FrenchMonthName(month))
	if len(name) == 0 {
		return ""
	}
	name[0] = toUpperLatin(name[0])
	return fmt.Sprintf("%s %d", string(name), year)
}

// FormatLongDate renders t as "19 octobre 2026".
func FormatLongDate(t time.Time) string {
	return fmt.Sprintf("%d %s %d", t.Day(), FrenchMonthName(int(t.Month())), t.Year())
}

// MonthRange returns the first and last day of the month.
func MonthRange(year, month int) (Date, Date) {
	start := NewDate(year, month, 1)
	end := Date{Time: start.AddDate(0, 1, -1)}
	return start, end
}

// PreviousMonth returns the year and month before the given one.
func PreviousMonth(year, month int) (int, int) {
	if month <= 1 {
		return year - 1, 12
	}
	return year, month - 1
}

// DaysInMonth returns the number of days of the month.
func DaysInMonth(year, month int) int {
	_, end := MonthRange(year, month)
	return end.Day()
}

// ValidateYearMonth checks a year/month pair used to address a report.
func ValidateYearMonth(year, month int) error {
	if month < 1 || month > 12 {
		return ErrInvalidMonth
	}
	if year < 1970 || year > 9999 {
		return fmt.Errorf("%w %d", ErrInvalidYear, year)
	}
	return nil
}

func toUpperLatin(r rune) rune {
	switch {
	case r >= 'a' && r <= 'z':
		return r - ('a' - 'A')
	case r == 'é':
		return 'É'
	case r == 'è':
		return 'È'
	}
	return r
}
