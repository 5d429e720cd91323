package reports

import (
	"errors"
	"time"
)

// ReportType selects the calendar window resolution.
type ReportType string

const (
	ReportDaily   ReportType = "daily"
	ReportWeekly  ReportType = "weekly"
	ReportMonthly ReportType = "monthly"
	ReportYearly  ReportType = "yearly"
)

// ErrInvalidReportType indicates an unknown report type.
var ErrInvalidReportType = errors.New("reports: invalid report type")

// ResolveDateRange truncates the given date to the calendar window of the
// report type. Weeks start on Sunday.
func ResolveDateRange(reportType ReportType, date time.Time) (time.Time, time.Time, error) {
	y, m, d := date.Date()
	loc := date.Location()
	day := time.Date(y, m, d, 0, 0, 0, 0, loc)
	switch reportType {
	case ReportDaily:
		return day, day.AddDate(0, 0, 1).Add(-time.Nanosecond), nil
	case ReportWeekly:
		start := day.AddDate(0, 0, -int(day.Weekday()))
		return start, start.AddDate(0, 0, 7).Add(-time.Nanosecond), nil
	case ReportMonthly:
		start := time.Date(y, m, 1, 0, 0, 0, 0, loc)
		return start, start.AddDate(0, 1, 0).Add(-time.Nanosecond), nil
	case ReportYearly:
		start := time.Date(y, time.January, 1, 0, 0, 0, 0, loc)
		return start, start.AddDate(1, 0, 0).Add(-time.Nanosecond), nil
	default:
		return time.Time{}, time.Time{}, ErrInvalidReportType
	}
}
