package finacct

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/mandibook/mandibook/internal/ledger"
)

type stubLedger struct {
	totals map[ledger.AccountHead]ledger.HeadTotals
}

func (s stubLedger) SumByAccountHead(ctx context.Context, tenantID int64, from, to time.Time) (map[ledger.AccountHead]ledger.HeadTotals, error) {
	return s.totals, nil
}

type stubTrading struct {
	inv  invoiceAggregates
	bill billAggregates
}

func (s stubTrading) InvoiceAggregates(ctx context.Context, tenantID int64, start, end time.Time) (invoiceAggregates, error) {
	return s.inv, nil
}

func (s stubTrading) BillAggregates(ctx context.Context, tenantID int64, start, end time.Time) (billAggregates, error) {
	return s.bill, nil
}

type stubGST struct {
	out GSTLiability
}

func (s stubGST) GSTLiability(ctx context.Context, tenantID int64, start, end time.Time) (GSTLiability, error) {
	return s.out, nil
}

// singleSaleTotals is the ledger trail of one farmer bill (10000 purchase)
// and one tax invoice (10878 total with 360 of service charges).
func singleSaleTotals() map[ledger.AccountHead]ledger.HeadTotals {
	return map[ledger.AccountHead]ledger.HeadTotals{
		ledger.HeadPurchases:          {Debit: 10000},
		ledger.HeadAccountsPayable:    {Credit: 10000},
		ledger.HeadSales:              {Credit: 10000},
		ledger.HeadAccountsReceivable: {Debit: 10878},
		ledger.HeadServiceCharges:     {Credit: 360},
	}
}

func fyWindow(t *testing.T) (time.Time, time.Time) {
	t.Helper()
	start := time.Date(2024, time.April, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2025, time.March, 31, 0, 0, 0, 0, time.UTC)
	return start, end
}

func TestLedgerStrategyProfitLoss(t *testing.T) {
	strategy := NewLedgerStrategy(stubLedger{totals: singleSaleTotals()})
	start, end := fyWindow(t)

	pl, err := strategy.ProfitLoss(context.Background(), 1, start, end)
	require.NoError(t, err)
	require.Equal(t, 10000.0, pl.TotalSales)
	require.Equal(t, 10000.0, pl.TotalPurchases)
	require.Equal(t, 360.0, pl.ServiceCharges)
	require.Equal(t, 0.0, pl.GrossProfit)
	require.Equal(t, 10360.0, pl.TotalIncome)
	require.Equal(t, 360.0, pl.NetProfit)
}

func TestLedgerStrategyBalanceSheet(t *testing.T) {
	strategy := NewLedgerStrategy(stubLedger{totals: singleSaleTotals()})
	start, end := fyWindow(t)

	bs, err := strategy.BalanceSheet(context.Background(), 1, start, end)
	require.NoError(t, err)
	require.Equal(t, 10878.0, bs.AccountsReceivable)
	require.Equal(t, 10000.0, bs.AccountsPayable)
	require.Equal(t, 10878.0, bs.TotalAssets)
	require.Equal(t, 10000.0, bs.TotalLiabilities)
	require.Equal(t, 878.0, bs.NetWorth)
}

func TestLedgerStrategyCashFlow(t *testing.T) {
	strategy := NewLedgerStrategy(stubLedger{totals: map[ledger.AccountHead]ledger.HeadTotals{
		ledger.HeadCash: {Debit: 5000, Credit: 1200},
		ledger.HeadBank: {Debit: 10878, Credit: 9700},
	}})
	start, end := fyWindow(t)

	cf, err := strategy.CashFlow(context.Background(), 1, start, end)
	require.NoError(t, err)
	require.Equal(t, 15878.0, cf.Inflows)
	require.Equal(t, 10900.0, cf.Outflows)
	require.Equal(t, 4978.0, cf.Net)
}

func TestTradingStrategyNetProfitIsDeductions(t *testing.T) {
	strategy := NewTradingStrategy(stubTrading{
		inv:  invoiceAggregates{Count: 1, TotalAmount: 10878, SGST: 259, CGST: 259, Cess: 60},
		bill: billAggregates{Count: 1, TotalAmount: 10000, TotalDeductions: 300, NetPayable: 9700},
	})
	start, end := fyWindow(t)

	pl, err := strategy.ProfitLoss(context.Background(), 1, start, end)
	require.NoError(t, err)
	require.Equal(t, 300.0, pl.NetProfit)
	require.Equal(t, 10878.0, pl.TotalSales)
	require.Equal(t, 9700.0, pl.FarmerPayments)

	summary, err := strategy.Summary(context.Background(), 1, start, end)
	require.NoError(t, err)
	require.Equal(t, 1, summary.InvoiceCount)
	require.Equal(t, 578.0, summary.TotalGST)
	require.Equal(t, 300.0, summary.NetProfit)
}

func TestWindowResolvesFiscalYear(t *testing.T) {
	fy, start, end, err := Window("2024-2025", time.Time{}, time.Time{})
	require.NoError(t, err)
	require.Equal(t, "2024-2025", fy)
	require.Equal(t, time.Date(2024, time.April, 1, 0, 0, 0, 0, time.UTC), start)
	require.Equal(t, 2025, end.Year())

	explicitFrom := time.Date(2024, time.June, 1, 0, 0, 0, 0, time.UTC)
	explicitTo := time.Date(2024, time.June, 30, 0, 0, 0, 0, time.UTC)
	fy, start, end, err = Window("", explicitFrom, explicitTo)
	require.NoError(t, err)
	require.Empty(t, fy)
	require.Equal(t, explicitFrom, start)
	require.Equal(t, explicitTo, end)
}

func TestReconcileFlagsDrift(t *testing.T) {
	ledgerStrategy := NewLedgerStrategy(stubLedger{totals: singleSaleTotals()})
	trading := NewTradingStrategy(stubTrading{
		bill: billAggregates{TotalDeductions: 300},
	})
	svc := NewService(ledgerStrategy, trading, stubGST{}, nil)

	rec, err := svc.Reconcile(context.Background(), 1, "2024-2025", time.Time{}, time.Time{})
	require.NoError(t, err)
	require.Equal(t, 360.0, rec.LedgerNetProfit)
	require.Equal(t, 300.0, rec.TradingNetProfit)
	require.Equal(t, 60.0, rec.Difference)
	require.False(t, rec.Matched)
}

func TestReconcileMatchesWithinTolerance(t *testing.T) {
	ledgerStrategy := NewLedgerStrategy(stubLedger{totals: singleSaleTotals()})
	trading := NewTradingStrategy(stubTrading{
		bill: billAggregates{TotalDeductions: 360.004},
	})
	svc := NewService(ledgerStrategy, trading, stubGST{}, nil)

	rec, err := svc.Reconcile(context.Background(), 1, "2024-2025", time.Time{}, time.Time{})
	require.NoError(t, err)
	require.True(t, rec.Matched)
}

func TestServiceStatementsWithNilCache(t *testing.T) {
	ledgerStrategy := NewLedgerStrategy(stubLedger{totals: singleSaleTotals()})
	trading := NewTradingStrategy(stubTrading{})
	svc := NewService(ledgerStrategy, trading, stubGST{out: GSTLiability{SGST: 259, CGST: 259}}, nil)
	ctx := context.Background()

	pl, err := svc.ProfitLoss(ctx, 1, "2024-2025", time.Time{}, time.Time{})
	require.NoError(t, err)
	require.Equal(t, "2024-2025", pl.FiscalYear)
	require.Equal(t, 360.0, pl.NetProfit)

	bs, err := svc.BalanceSheet(ctx, 1, "2024-2025", time.Time{}, time.Time{})
	require.NoError(t, err)
	require.Equal(t, 10878.0, bs.AccountsReceivable)

	cf, err := svc.CashFlow(ctx, 1, "2024-2025", time.Time{}, time.Time{})
	require.NoError(t, err)
	require.Equal(t, "2024-2025", cf.FiscalYear)

	gst, err := svc.CalculateGSTLiability(ctx, 1, time.Time{}, time.Time{})
	require.NoError(t, err)
	require.Equal(t, 259.0, gst.SGST)

	_, err = svc.CalculateGSTLiability(ctx, 0, time.Time{}, time.Time{})
	require.ErrorIs(t, err, ErrTenantRequired)
}
