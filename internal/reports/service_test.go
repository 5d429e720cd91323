package reports

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/mandibook/mandibook/internal/lots"
	"github.com/mandibook/mandibook/internal/tenant"
)

type memoryLotSource struct {
	lots []lots.Lot
	bags map[int64][]lots.Bag
}

func (s *memoryLotSource) CompletedInRange(ctx context.Context, tenantID int64, from, to time.Time) ([]lots.Lot, error) {
	return s.lots, nil
}

func (s *memoryLotSource) Bags(ctx context.Context, lotID int64) ([]lots.Bag, error) {
	return s.bags[lotID], nil
}

type fixedRates struct{}

func (fixedRates) Rates(ctx context.Context, tenantID int64) (tenant.RateSettings, error) {
	return tenant.DefaultRates, nil
}

func weightPtr(v float64) *float64 { return &v }

func fiveQuintalLot(lotID int64) (lots.Lot, []lots.Bag) {
	lot := lots.Lot{ID: lotID, TenantID: 1, LotNumber: "L-101", FarmerID: 7, LotPrice: 2000, Status: lots.LotStatusCompleted}
	bags := make([]lots.Bag, 0, 10)
	for i := 1; i <= 10; i++ {
		bags = append(bags, lots.Bag{ID: int64(i), LotID: lotID, BagNumber: i, Weight: weightPtr(50)})
	}
	return lot, bags
}

func reportFixture() *Service {
	lot, bags := fiveQuintalLot(1)
	source := &memoryLotSource{
		lots: []lots.Lot{lot, {ID: 2, LotNumber: "L-102", Status: lots.LotStatusCompleted}},
		bags: map[int64][]lots.Bag{1: bags},
	}
	return NewService(source, fixedRates{}, nil, nil)
}

func TestGenerateTaxReport(t *testing.T) {
	svc := reportFixture()
	start := time.Date(2024, time.June, 12, 0, 0, 0, 0, time.UTC)
	end := start.AddDate(0, 0, 1).Add(-time.Nanosecond)

	report, err := svc.GenerateTaxReport(context.Background(), 1, start, end, ReportDaily)
	require.NoError(t, err)

	// The unpriced second lot is excluded.
	require.Len(t, report.Rows, 1)
	row := report.Rows[0]
	require.Equal(t, 10000.0, row.BasicAmount)
	require.Equal(t, 60.0, row.Cess)
	require.Equal(t, 10360.0, row.Taxable)
	require.Equal(t, 259.0, row.SGST)
	require.Equal(t, 259.0, row.CGST)
	require.Equal(t, 10878.0, row.TotalAmount)

	require.Equal(t, 1, report.Summary.Lots)
	require.Equal(t, 578.0, report.Summary.TotalTax)
	require.Equal(t, 10878.0, report.Summary.TotalAmount)
}

func TestGenerateCessReport(t *testing.T) {
	svc := reportFixture()
	start := time.Date(2024, time.June, 1, 0, 0, 0, 0, time.UTC)
	end := start.AddDate(0, 1, 0).Add(-time.Nanosecond)

	report, err := svc.GenerateCessReport(context.Background(), 1, start, end, ReportMonthly)
	require.NoError(t, err)
	require.Equal(t, KindCess, report.Kind)
	require.Equal(t, 60.0, report.Summary.TotalTax)
}

func TestGenerateGSTReport(t *testing.T) {
	svc := reportFixture()
	start := time.Date(2024, time.June, 1, 0, 0, 0, 0, time.UTC)
	end := start.AddDate(0, 1, 0).Add(-time.Nanosecond)

	report, err := svc.GenerateGSTReport(context.Background(), 1, start, end, ReportMonthly)
	require.NoError(t, err)
	require.Equal(t, KindGST, report.Kind)
	require.Equal(t, 518.0, report.Summary.TotalTax)
	require.Equal(t, 259.0, report.Summary.SGST)
	require.Equal(t, 259.0, report.Summary.CGST)
}

func TestGenerateReportEmptyWindow(t *testing.T) {
	svc := NewService(&memoryLotSource{}, fixedRates{}, nil, nil)
	report, err := svc.GenerateTaxReport(context.Background(), 1, time.Now(), time.Now(), ReportDaily)
	require.NoError(t, err)
	require.Empty(t, report.Rows)
	require.Zero(t, report.Summary.TotalTax)
}
