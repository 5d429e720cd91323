package shared

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestFiscalYearOf(t *testing.T) {
	cases := []struct {
		date time.Time
		want string
	}{
		{time.Date(2024, time.March, 31, 23, 59, 0, 0, time.UTC), "2023-2024"},
		{time.Date(2024, time.April, 1, 0, 0, 0, 0, time.UTC), "2024-2025"},
		{time.Date(2024, time.December, 15, 12, 0, 0, 0, time.UTC), "2024-2025"},
		{time.Date(2025, time.January, 2, 0, 0, 0, 0, time.UTC), "2024-2025"},
	}
	for _, tc := range cases {
		require.Equal(t, tc.want, FiscalYearOf(tc.date), tc.date.String())
	}
}

func TestFiscalYearWindow(t *testing.T) {
	from, to, err := FiscalYearWindow("2024-2025")
	require.NoError(t, err)
	require.Equal(t, time.Date(2024, time.April, 1, 0, 0, 0, 0, time.UTC), from)
	require.Equal(t, 2025, to.Year())
	require.Equal(t, time.March, to.Month())
	require.Equal(t, 31, to.Day())

	require.Equal(t, "2024-2025", FiscalYearOf(from))
	require.Equal(t, "2024-2025", FiscalYearOf(to))
}

func TestFiscalYearWindowRejectsMalformedCodes(t *testing.T) {
	for _, code := range []string{"", "2024", "2024-2026", "abcd-efgh", "2024/2025"} {
		_, _, err := FiscalYearWindow(code)
		require.ErrorIs(t, err, ErrInvalidFiscalYear, code)
	}
}
