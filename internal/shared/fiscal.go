package shared

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Indian fiscal year: April 1 through March 31.
const fiscalYearStartMonth = time.April

// ErrInvalidFiscalYear indicates a malformed fiscal year code.
var ErrInvalidFiscalYear = errors.New("invalid fiscal year")

// FiscalYearOf returns the fiscal year code ("2024-2025") covering the date.
func FiscalYearOf(date time.Time) string {
	year := date.Year()
	if date.Month() < fiscalYearStartMonth {
		year--
	}
	return fmt.Sprintf("%d-%d", year, year+1)
}

// CurrentFiscalYear returns the fiscal year code for the current date.
func CurrentFiscalYear() string {
	return FiscalYearOf(time.Now())
}

// FiscalYearWindow resolves a fiscal year code into its start and end instants.
// The window is inclusive of April 1 00:00:00 and the whole of March 31.
func FiscalYearWindow(code string) (time.Time, time.Time, error) {
	parts := strings.SplitN(code, "-", 2)
	if len(parts) != 2 {
		return time.Time{}, time.Time{}, ErrInvalidFiscalYear
	}
	start, err := strconv.Atoi(parts[0])
	if err != nil {
		return time.Time{}, time.Time{}, ErrInvalidFiscalYear
	}
	end, err := strconv.Atoi(parts[1])
	if err != nil || end != start+1 {
		return time.Time{}, time.Time{}, ErrInvalidFiscalYear
	}
	from := time.Date(start, fiscalYearStartMonth, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(end, time.March, 31, 23, 59, 59, 999999999, time.UTC)
	return from, to, nil
}
