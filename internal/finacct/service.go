package finacct

import (
	"context"
	"fmt"
	"math"
	"strconv"
	"time"

	"github.com/mandibook/mandibook/internal/reports"
	"github.com/mandibook/mandibook/internal/shared"
)

// reconcileTolerance is the rupee gap below which the two strategies are
// considered to agree.
const reconcileTolerance = 0.01

// GSTPort reads GST liability straight from invoices.
type GSTPort interface {
	GSTLiability(ctx context.Context, tenantID int64, start, end time.Time) (GSTLiability, error)
}

// Service exposes final accounts over both strategies.
type Service struct {
	ledger  FinalAccountsStrategy
	trading *TradingStrategy
	gst     GSTPort
	cache   *reports.Cache
}

// NewService constructs the final accounts service. cache may be nil.
func NewService(ledgerStrategy FinalAccountsStrategy, trading *TradingStrategy, gst GSTPort, cache *reports.Cache) *Service {
	return &Service{ledger: ledgerStrategy, trading: trading, gst: gst, cache: cache}
}

// Window resolves a fiscal year code or an explicit range into instants. An
// empty code with zero range means the current fiscal year.
func Window(fiscalYear string, from, to time.Time) (string, time.Time, time.Time, error) {
	if !from.IsZero() && !to.IsZero() {
		return "", from, to, nil
	}
	if fiscalYear == "" {
		fiscalYear = shared.CurrentFiscalYear()
	}
	start, end, err := shared.FiscalYearWindow(fiscalYear)
	if err != nil {
		return "", time.Time{}, time.Time{}, err
	}
	return fiscalYear, start, end, nil
}

func (s *Service) cached(ctx context.Context, name string, tenantID int64, start, end time.Time, dest interface{}, loader func(context.Context) (interface{}, error)) error {
	key, err := s.cache.BuildKey(ctx, "finacct", name, strconv.FormatInt(tenantID, 10),
		start.Format("2006-01-02"), end.Format("2006-01-02"))
	if err != nil {
		return err
	}
	return s.cache.FetchJSON(ctx, key, dest, loader)
}

// ProfitLoss returns the ledger-based income statement.
func (s *Service) ProfitLoss(ctx context.Context, tenantID int64, fiscalYear string, from, to time.Time) (ProfitLoss, error) {
	fy, start, end, err := Window(fiscalYear, from, to)
	if err != nil {
		return ProfitLoss{}, err
	}
	var pl ProfitLoss
	err = s.cached(ctx, "pl", tenantID, start, end, &pl, func(ctx context.Context) (interface{}, error) {
		out, err := s.ledger.ProfitLoss(ctx, tenantID, start, end)
		if err != nil {
			return nil, err
		}
		out.FiscalYear = fy
		return out, nil
	})
	return pl, err
}

// BalanceSheet returns the ledger-based balance sheet.
func (s *Service) BalanceSheet(ctx context.Context, tenantID int64, fiscalYear string, from, to time.Time) (BalanceSheet, error) {
	fy, start, end, err := Window(fiscalYear, from, to)
	if err != nil {
		return BalanceSheet{}, err
	}
	var bs BalanceSheet
	err = s.cached(ctx, "bs", tenantID, start, end, &bs, func(ctx context.Context) (interface{}, error) {
		out, err := s.ledger.BalanceSheet(ctx, tenantID, start, end)
		if err != nil {
			return nil, err
		}
		out.FiscalYear = fy
		return out, nil
	})
	return bs, err
}

// CashFlow returns the ledger-based cash flow statement.
func (s *Service) CashFlow(ctx context.Context, tenantID int64, fiscalYear string, from, to time.Time) (CashFlow, error) {
	fy, start, end, err := Window(fiscalYear, from, to)
	if err != nil {
		return CashFlow{}, err
	}
	var cf CashFlow
	err = s.cached(ctx, "cf", tenantID, start, end, &cf, func(ctx context.Context) (interface{}, error) {
		out, err := s.ledger.CashFlow(ctx, tenantID, start, end)
		if err != nil {
			return nil, err
		}
		out.FiscalYear = fy
		return out, nil
	})
	return cf, err
}

// TradingDetails returns the raw invoice/bill view.
func (s *Service) TradingDetails(ctx context.Context, tenantID int64, fiscalYear string, from, to time.Time) (TradingSummary, error) {
	_, start, end, err := Window(fiscalYear, from, to)
	if err != nil {
		return TradingSummary{}, err
	}
	return s.trading.Summary(ctx, tenantID, start, end)
}

// CalculateGSTLiability sums GST components from tax invoices.
func (s *Service) CalculateGSTLiability(ctx context.Context, tenantID int64, start, end time.Time) (GSTLiability, error) {
	if tenantID <= 0 {
		return GSTLiability{}, ErrTenantRequired
	}
	return s.gst.GSTLiability(ctx, tenantID, start, end)
}

// Reconcile runs both strategies over the same window and reports whether
// their net profit figures agree. A mismatch is expected when the ledger and
// document tables have drifted; this surfaces it rather than hiding it.
func (s *Service) Reconcile(ctx context.Context, tenantID int64, fiscalYear string, from, to time.Time) (Reconciliation, error) {
	_, start, end, err := Window(fiscalYear, from, to)
	if err != nil {
		return Reconciliation{}, err
	}
	ledgerPL, err := s.ledger.ProfitLoss(ctx, tenantID, start, end)
	if err != nil {
		return Reconciliation{}, fmt.Errorf("finacct: ledger strategy: %w", err)
	}
	tradingPL, err := s.trading.ProfitLoss(ctx, tenantID, start, end)
	if err != nil {
		return Reconciliation{}, fmt.Errorf("finacct: trading strategy: %w", err)
	}
	diff := round2(ledgerPL.NetProfit - tradingPL.NetProfit)
	return Reconciliation{
		Start:            start,
		End:              end,
		LedgerNetProfit:  ledgerPL.NetProfit,
		TradingNetProfit: tradingPL.NetProfit,
		Difference:       diff,
		Matched:          math.Abs(diff) < reconcileTolerance,
	}, nil
}
