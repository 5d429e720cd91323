package finacct

import (
	"context"
	"time"
)

// TradingPort reads the raw invoice and bill aggregates.
type TradingPort interface {
	InvoiceAggregates(ctx context.Context, tenantID int64, start, end time.Time) (invoiceAggregates, error)
	BillAggregates(ctx context.Context, tenantID int64, start, end time.Time) (billAggregates, error)
}

// TradingStrategy derives statements from tax_invoices and farmer_bills
// directly, bypassing the ledger. Net profit here is the sum of farmer bill
// deductions, the trading margin retained by the trader.
type TradingStrategy struct {
	repo TradingPort
}

// NewTradingStrategy constructs TradingStrategy.
func NewTradingStrategy(repo TradingPort) *TradingStrategy {
	return &TradingStrategy{repo: repo}
}

func (s *TradingStrategy) aggregates(ctx context.Context, tenantID int64, start, end time.Time) (invoiceAggregates, billAggregates, error) {
	inv, err := s.repo.InvoiceAggregates(ctx, tenantID, start, end)
	if err != nil {
		return invoiceAggregates{}, billAggregates{}, err
	}
	bill, err := s.repo.BillAggregates(ctx, tenantID, start, end)
	if err != nil {
		return invoiceAggregates{}, billAggregates{}, err
	}
	return inv, bill, nil
}

// ProfitLoss maps the raw document sums onto the statement shape.
func (s *TradingStrategy) ProfitLoss(ctx context.Context, tenantID int64, start, end time.Time) (ProfitLoss, error) {
	inv, bill, err := s.aggregates(ctx, tenantID, start, end)
	if err != nil {
		return ProfitLoss{}, err
	}
	pl := ProfitLoss{
		Start:          start,
		End:            end,
		TotalSales:     round2(inv.TotalAmount),
		TotalPurchases: round2(bill.TotalAmount),
		RokIncome:      round2(bill.RokIncome),
		FarmerPayments: round2(bill.NetPayable),
	}
	pl.GrossProfit = round2(pl.TotalSales - pl.TotalPurchases)
	pl.TotalIncome = pl.TotalSales
	pl.NetProfit = round2(bill.TotalDeductions)
	return pl, nil
}

// BalanceSheet approximates positions from the open document values.
func (s *TradingStrategy) BalanceSheet(ctx context.Context, tenantID int64, start, end time.Time) (BalanceSheet, error) {
	inv, bill, err := s.aggregates(ctx, tenantID, start, end)
	if err != nil {
		return BalanceSheet{}, err
	}
	bs := BalanceSheet{
		Start:              start,
		End:                end,
		AccountsReceivable: round2(inv.TotalAmount),
		AccountsPayable:    round2(bill.NetPayable),
		GSTPayable:         round2(inv.SGST + inv.CGST),
		CessPayable:        round2(inv.Cess),
	}
	bs.TotalAssets = bs.AccountsReceivable
	bs.TotalLiabilities = round2(bs.AccountsPayable + bs.GSTPayable + bs.CessPayable)
	bs.NetWorth = round2(bs.TotalAssets - bs.TotalLiabilities)
	return bs, nil
}

// CashFlow from documents alone only sees committed values, not settlements.
func (s *TradingStrategy) CashFlow(ctx context.Context, tenantID int64, start, end time.Time) (CashFlow, error) {
	inv, bill, err := s.aggregates(ctx, tenantID, start, end)
	if err != nil {
		return CashFlow{}, err
	}
	cf := CashFlow{
		Start:    start,
		End:      end,
		Inflows:  round2(inv.TotalAmount),
		Outflows: round2(bill.NetPayable),
	}
	cf.Net = round2(cf.Inflows - cf.Outflows)
	return cf, nil
}

// Summary exposes the raw trading view used by the trading details endpoint.
func (s *TradingStrategy) Summary(ctx context.Context, tenantID int64, start, end time.Time) (TradingSummary, error) {
	inv, bill, err := s.aggregates(ctx, tenantID, start, end)
	if err != nil {
		return TradingSummary{}, err
	}
	return TradingSummary{
		Start:           start,
		End:             end,
		InvoiceCount:    inv.Count,
		BillCount:       bill.Count,
		TotalSales:      round2(inv.TotalAmount),
		TotalPurchases:  round2(bill.TotalAmount),
		TotalGST:        round2(inv.SGST + inv.CGST + inv.Cess),
		TotalDeductions: round2(bill.TotalDeductions),
		FarmerPayable:   round2(bill.NetPayable),
		NetProfit:       round2(bill.TotalDeductions),
	}, nil
}
