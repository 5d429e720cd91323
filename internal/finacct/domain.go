package finacct

import (
	"context"
	"errors"
	"math"
	"time"
)

// ProfitLoss is the income statement over a window.
type ProfitLoss struct {
	FiscalYear       string    `json:"fiscalYear,omitempty"`
	Start            time.Time `json:"startDate"`
	End              time.Time `json:"endDate"`
	TotalSales       float64   `json:"totalSales"`
	TotalPurchases   float64   `json:"totalPurchases"`
	CommissionIncome float64   `json:"commissionIncome"`
	ServiceCharges   float64   `json:"serviceCharges"`
	RokIncome        float64   `json:"rokIncome"`
	GrossProfit      float64   `json:"grossProfit"`
	TotalIncome      float64   `json:"totalIncome"`
	TotalExpenses    float64   `json:"totalExpenses"`
	FarmerPayments   float64   `json:"farmerPayments"`
	NetProfit        float64   `json:"netProfit"`
}

// BalanceSheet nets asset heads debit-credit and liability heads
// credit-debit as of the window end.
type BalanceSheet struct {
	FiscalYear         string    `json:"fiscalYear,omitempty"`
	Start              time.Time `json:"startDate"`
	End                time.Time `json:"endDate"`
	Cash               float64   `json:"cash"`
	Bank               float64   `json:"bank"`
	AccountsReceivable float64   `json:"accountsReceivable"`
	TotalAssets        float64   `json:"totalAssets"`
	AccountsPayable    float64   `json:"accountsPayable"`
	GSTPayable         float64   `json:"gstPayable"`
	CessPayable        float64   `json:"cessPayable"`
	TotalLiabilities   float64   `json:"totalLiabilities"`
	NetWorth           float64   `json:"netWorth"`
}

// CashFlow tracks money movement through the cash and bank heads.
type CashFlow struct {
	FiscalYear string    `json:"fiscalYear,omitempty"`
	Start      time.Time `json:"startDate"`
	End        time.Time `json:"endDate"`
	Inflows    float64   `json:"inflows"`
	Outflows   float64   `json:"outflows"`
	Net        float64   `json:"netCashFlow"`
}

// GSTLiability sums the GST components straight from tax invoices.
type GSTLiability struct {
	Start    time.Time `json:"startDate"`
	End      time.Time `json:"endDate"`
	SGST     float64   `json:"sgst"`
	CGST     float64   `json:"cgst"`
	Cess     float64   `json:"cess"`
	TotalGST float64   `json:"totalGst"`
}

// TradingSummary is the raw invoice/bill view behind the trading strategy.
type TradingSummary struct {
	Start           time.Time `json:"startDate"`
	End             time.Time `json:"endDate"`
	InvoiceCount    int       `json:"invoiceCount"`
	BillCount       int       `json:"billCount"`
	TotalSales      float64   `json:"totalSales"`
	TotalPurchases  float64   `json:"totalPurchases"`
	TotalGST        float64   `json:"totalGst"`
	TotalDeductions float64   `json:"totalDeductions"`
	FarmerPayable   float64   `json:"farmerPayable"`
	NetProfit       float64   `json:"netProfit"`
}

// Reconciliation compares the two strategies' net profit.
type Reconciliation struct {
	Start            time.Time `json:"startDate"`
	End              time.Time `json:"endDate"`
	LedgerNetProfit  float64   `json:"ledgerNetProfit"`
	TradingNetProfit float64   `json:"tradingNetProfit"`
	Difference       float64   `json:"difference"`
	Matched          bool      `json:"matched"`
}

// FinalAccountsStrategy produces the three core statements. Two
// implementations exist: one over the ledger, one over the raw invoice and
// bill tables. Their net profit definitions differ and Reconcile surfaces
// the gap.
type FinalAccountsStrategy interface {
	ProfitLoss(ctx context.Context, tenantID int64, start, end time.Time) (ProfitLoss, error)
	BalanceSheet(ctx context.Context, tenantID int64, start, end time.Time) (BalanceSheet, error)
	CashFlow(ctx context.Context, tenantID int64, start, end time.Time) (CashFlow, error)
}

// ErrTenantRequired indicates a missing tenant scope.
var ErrTenantRequired = errors.New("finacct: tenant required")

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
