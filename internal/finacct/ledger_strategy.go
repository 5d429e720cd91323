package finacct

import (
	"context"
	"time"

	"github.com/mandibook/mandibook/internal/ledger"
)

// LedgerPort reads aggregated head totals from the ledger.
type LedgerPort interface {
	SumByAccountHead(ctx context.Context, tenantID int64, from, to time.Time) (map[ledger.AccountHead]ledger.HeadTotals, error)
}

// LedgerStrategy derives statements from the double-entry ledger.
type LedgerStrategy struct {
	ledger LedgerPort
}

// NewLedgerStrategy constructs LedgerStrategy.
func NewLedgerStrategy(port LedgerPort) *LedgerStrategy {
	return &LedgerStrategy{ledger: port}
}

func creditNet(totals map[ledger.AccountHead]ledger.HeadTotals, head ledger.AccountHead) float64 {
	t := totals[head]
	return t.Credit - t.Debit
}

func debitNet(totals map[ledger.AccountHead]ledger.HeadTotals, head ledger.AccountHead) float64 {
	t := totals[head]
	return t.Debit - t.Credit
}

// ProfitLoss sums income and expense heads over the window.
func (s *LedgerStrategy) ProfitLoss(ctx context.Context, tenantID int64, start, end time.Time) (ProfitLoss, error) {
	totals, err := s.ledger.SumByAccountHead(ctx, tenantID, start, end)
	if err != nil {
		return ProfitLoss{}, err
	}
	pl := ProfitLoss{
		Start:            start,
		End:              end,
		TotalSales:       round2(creditNet(totals, ledger.HeadSales)),
		TotalPurchases:   round2(debitNet(totals, ledger.HeadPurchases)),
		CommissionIncome: round2(creditNet(totals, ledger.HeadCommissionIncome)),
		ServiceCharges:   round2(creditNet(totals, ledger.HeadServiceCharges)),
		RokIncome:        round2(creditNet(totals, ledger.HeadRokIncome)),
		TotalExpenses:    round2(debitNet(totals, ledger.HeadExpenses)),
		// Farmer payments are the settled side of accounts payable.
		FarmerPayments: round2(totals[ledger.HeadAccountsPayable].Debit),
	}
	pl.GrossProfit = round2(pl.TotalSales - pl.TotalPurchases)
	pl.TotalIncome = round2(pl.TotalSales + pl.CommissionIncome + pl.ServiceCharges)
	pl.NetProfit = round2(pl.TotalIncome - pl.TotalPurchases - pl.TotalExpenses - pl.FarmerPayments)
	return pl, nil
}

// BalanceSheet nets asset heads debit-credit and liability heads
// credit-debit.
func (s *LedgerStrategy) BalanceSheet(ctx context.Context, tenantID int64, start, end time.Time) (BalanceSheet, error) {
	totals, err := s.ledger.SumByAccountHead(ctx, tenantID, start, end)
	if err != nil {
		return BalanceSheet{}, err
	}
	bs := BalanceSheet{
		Start:              start,
		End:                end,
		Cash:               round2(debitNet(totals, ledger.HeadCash)),
		Bank:               round2(debitNet(totals, ledger.HeadBank)),
		AccountsReceivable: round2(debitNet(totals, ledger.HeadAccountsReceivable)),
		AccountsPayable:    round2(creditNet(totals, ledger.HeadAccountsPayable)),
		GSTPayable:         round2(creditNet(totals, ledger.HeadGSTPayable)),
		CessPayable:        round2(creditNet(totals, ledger.HeadCessPayable)),
	}
	bs.TotalAssets = round2(bs.Cash + bs.Bank + bs.AccountsReceivable)
	bs.TotalLiabilities = round2(bs.AccountsPayable + bs.GSTPayable + bs.CessPayable)
	bs.NetWorth = round2(bs.TotalAssets - bs.TotalLiabilities)
	return bs, nil
}

// CashFlow tracks the debit and credit sides of the cash and bank heads.
func (s *LedgerStrategy) CashFlow(ctx context.Context, tenantID int64, start, end time.Time) (CashFlow, error) {
	totals, err := s.ledger.SumByAccountHead(ctx, tenantID, start, end)
	if err != nil {
		return CashFlow{}, err
	}
	cash, bank := totals[ledger.HeadCash], totals[ledger.HeadBank]
	cf := CashFlow{
		Start:    start,
		End:      end,
		Inflows:  round2(cash.Debit + bank.Debit),
		Outflows: round2(cash.Credit + bank.Credit),
	}
	cf.Net = round2(cf.Inflows - cf.Outflows)
	return cf, nil
}
