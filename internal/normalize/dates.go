package normalize

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// DateParts is a provider date; zero fields mean "not given".
type DateParts struct {
	Year  int
	Month int
	Day   int
}

// FormatDate renders d as "Mon YYYY", or "YYYY" when the month is missing or
// out of range. A nil date or a zero year renders as "".
func FormatDate(d *DateParts) string {
	if d == nil || d.Year == 0 {
		return ""
	}
	if d.Month >= 1 && d.Month <= 12 {
		return fmt.Sprintf("%s %d", time.Month(d.Month).String()[:3], d.Year)
	}
	return strconv.Itoa(d.Year)
}

// FormatDuration renders "start - end (X yrs, Y mos)". A missing end renders
// as "Present" without a span. The span counts both boundary months.
func FormatDuration(start, end *DateParts) string {
	startStr := FormatDate(start)
	if startStr == "" {
		return ""
	}
	endStr := FormatDate(end)
	if endStr == "" {
		endStr = "Present"
	}
	out := startStr + " - " + endStr

	if end == nil || end.Year == 0 {
		return out
	}

	startMonth, endMonth := monthOrJanuary(start.Month), monthOrJanuary(end.Month)
	if end.Year < start.Year || (end.Year == start.Year && endMonth < startMonth) {
		return out
	}

	months := (end.Year-start.Year)*12 + (endMonth - startMonth) + 1
	if months <= 0 {
		months = 1
	}
	return out + " (" + spanString(months) + ")"
}

func monthOrJanuary(m int) int {
	if m > 0 {
		return m
	}
	return 1
}

func spanString(months int) string {
	years, rem := months/12, months%12
	var parts []string
	if years > 0 {
		parts = append(parts, plural(years, "yr"))
	}
	if rem > 0 {
		parts = append(parts, plural(rem, "mo"))
	}
	if len(parts) == 0 {
		return "1 mo"
	}
	return strings.Join(parts, ", ")
}

func plural(n int, unit string) string {
	if n > 1 {
		return fmt.Sprintf("%d %ss", n, unit)
	}
	return fmt.Sprintf("%d %s", n, unit)
}
