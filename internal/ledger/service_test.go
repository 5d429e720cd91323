package ledger

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type memoryLedgerRepo struct {
	entries  []Entry
	bankTxns []BankTransaction
	expenses []Expense
	nextID   int64
}

func newMemoryLedgerRepo() *memoryLedgerRepo {
	return &memoryLedgerRepo{}
}

func (r *memoryLedgerRepo) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	// Snapshot so a failed callback leaves no partial writes, matching the
	// database transaction semantics the service relies on.
	entries, bankTxns, expenses := len(r.entries), len(r.bankTxns), len(r.expenses)
	if err := fn(ctx, r); err != nil {
		r.entries = r.entries[:entries]
		r.bankTxns = r.bankTxns[:bankTxns]
		r.expenses = r.expenses[:expenses]
		return err
	}
	return nil
}

func (r *memoryLedgerRepo) InsertEntry(ctx context.Context, in EntryInput, fiscalYear string) (Entry, error) {
	r.nextID++
	entry := Entry{
		ID:              r.nextID,
		TenantID:        in.TenantID,
		TransactionType: in.TransactionType,
		EntityType:      in.EntityType,
		EntityID:        in.EntityID,
		ReferenceType:   in.ReferenceType,
		ReferenceID:     in.ReferenceID,
		Debit:           in.Debit,
		Credit:          in.Credit,
		Description:     in.Description,
		AccountHead:     in.AccountHead,
		FiscalYear:      fiscalYear,
		TransactionDate: in.TransactionDate,
		CreatedBy:       in.CreatedBy,
		CreatedAt:       time.Now(),
	}
	r.entries = append(r.entries, entry)
	return entry, nil
}

func (r *memoryLedgerRepo) InsertBankTransaction(ctx context.Context, txn BankTransaction) error {
	r.bankTxns = append(r.bankTxns, txn)
	return nil
}

func (r *memoryLedgerRepo) InsertExpense(ctx context.Context, expense Expense) (Expense, error) {
	r.nextID++
	expense.ID = r.nextID
	expense.CreatedAt = time.Now()
	r.expenses = append(r.expenses, expense)
	return expense, nil
}

func (r *memoryLedgerRepo) ListEntries(ctx context.Context, tenantID int64, filter EntryFilter) ([]Entry, error) {
	return r.entries, nil
}

func (r *memoryLedgerRepo) ListExpenses(ctx context.Context, tenantID int64, from, to time.Time) ([]Expense, error) {
	return r.expenses, nil
}

func (r *memoryLedgerRepo) ExpenseSummary(ctx context.Context, tenantID int64, from, to time.Time) (map[string]float64, error) {
	out := make(map[string]float64)
	for _, e := range r.expenses {
		out[e.Category] += e.Amount
	}
	return out, nil
}

func (r *memoryLedgerRepo) totalsByHead() map[AccountHead]HeadTotals {
	out := make(map[AccountHead]HeadTotals)
	for _, e := range r.entries {
		t := out[e.AccountHead]
		t.Debit += e.Debit
		t.Credit += e.Credit
		out[e.AccountHead] = t
	}
	return out
}

func testService(repo *memoryLedgerRepo) *Service {
	svc := NewService(repo, nil)
	svc.WithNow(func() time.Time {
		return time.Date(2024, time.June, 10, 11, 0, 0, 0, time.UTC)
	})
	return svc
}

func TestRecordTransactionDerivesFiscalYear(t *testing.T) {
	repo := newMemoryLedgerRepo()
	svc := testService(repo)

	entry, err := svc.RecordTransaction(context.Background(), EntryInput{
		TenantID:        1,
		TransactionType: TxnIncome,
		AccountHead:     HeadCommissionIncome,
		Credit:          100,
	})
	require.NoError(t, err)
	require.Equal(t, "2024-2025", entry.FiscalYear)
	require.False(t, entry.TransactionDate.IsZero())
}

func TestRecordBalancedEntriesRejectsUnbalancedSets(t *testing.T) {
	repo := newMemoryLedgerRepo()
	svc := testService(repo)
	ctx := context.Background()

	_, err := svc.RecordBalancedEntries(ctx, []EntryInput{
		{TenantID: 1, TransactionType: TxnExpense, AccountHead: HeadExpenses, Debit: 100},
	})
	require.ErrorIs(t, err, ErrTooFewEntries)

	_, err = svc.RecordBalancedEntries(ctx, []EntryInput{
		{TenantID: 1, TransactionType: TxnExpense, AccountHead: HeadExpenses, Debit: 100},
		{TenantID: 1, TransactionType: TxnExpense, AccountHead: HeadCash, Credit: 99},
	})
	require.ErrorIs(t, err, ErrUnbalanced)
	require.Empty(t, repo.entries)

	_, err = svc.RecordBalancedEntries(ctx, []EntryInput{
		{TenantID: 1, TransactionType: TxnExpense, AccountHead: HeadExpenses, Debit: -5},
		{TenantID: 1, TransactionType: TxnExpense, AccountHead: HeadCash, Credit: -5},
	})
	require.ErrorIs(t, err, ErrNegativeAmount)
}

func TestRecordFarmerBillTransaction(t *testing.T) {
	repo := newMemoryLedgerRepo()
	svc := testService(repo)

	entries, err := svc.RecordFarmerBillTransaction(context.Background(), FarmerBillTxn{
		TenantID:    1,
		FarmerID:    7,
		BillID:      42,
		PattiNumber: "PT-20240610-007",
		TotalAmount: 10000,
		Rok:         150,
		Date:        time.Date(2024, time.June, 10, 0, 0, 0, 0, time.UTC),
		UserID:      3,
	})
	require.NoError(t, err)
	require.Len(t, entries, 3)

	totals := repo.totalsByHead()
	require.Equal(t, 10000.0, totals[HeadPurchases].Debit)
	require.Equal(t, 10000.0, totals[HeadAccountsPayable].Credit)
	require.Equal(t, 150.0, totals[HeadRokIncome].Credit)
	for _, e := range repo.entries {
		require.Equal(t, "farmer_bill", e.ReferenceType)
		require.Equal(t, "2024-2025", e.FiscalYear)
	}
}

func TestRecordFarmerBillTransactionSkipsRokWhenZero(t *testing.T) {
	repo := newMemoryLedgerRepo()
	svc := testService(repo)

	entries, err := svc.RecordFarmerBillTransaction(context.Background(), FarmerBillTxn{
		TenantID: 1, FarmerID: 7, BillID: 42, PattiNumber: "PT-20240610-007", TotalAmount: 10000,
	})
	require.NoError(t, err)
	require.Len(t, entries, 2)
}

func TestRecordTaxInvoiceTransaction(t *testing.T) {
	repo := newMemoryLedgerRepo()
	svc := testService(repo)

	entries, err := svc.RecordTaxInvoiceTransaction(context.Background(), TaxInvoiceTxn{
		TenantID:      1,
		BuyerID:       9,
		InvoiceID:     11,
		InvoiceNumber: "INV-20240610-009",
		BasicAmount:   10000,
		TotalCharges:  360,
		TotalAmount:   10878,
	})
	require.NoError(t, err)
	require.Len(t, entries, 3)

	totals := repo.totalsByHead()
	require.Equal(t, 10000.0, totals[HeadSales].Credit)
	require.Equal(t, 10878.0, totals[HeadAccountsReceivable].Debit)
	require.Equal(t, 360.0, totals[HeadServiceCharges].Credit)
}

func TestRecordPaymentReceivedCash(t *testing.T) {
	repo := newMemoryLedgerRepo()
	svc := testService(repo)

	entries, err := svc.RecordPaymentReceived(context.Background(), PaymentInput{
		TenantID: 1, EntityID: 9, Amount: 5000, Method: MethodCash,
	})
	require.NoError(t, err)
	require.Len(t, entries, 2)

	totals := repo.totalsByHead()
	require.Equal(t, 5000.0, totals[HeadCash].Debit)
	require.Equal(t, 5000.0, totals[HeadAccountsReceivable].Credit)
	require.Empty(t, repo.bankTxns)
	require.Equal(t, EntityBuyer, repo.entries[0].EntityType)
}

func TestRecordPaymentMadeBankLeavesAuditRow(t *testing.T) {
	repo := newMemoryLedgerRepo()
	svc := testService(repo)

	entries, err := svc.RecordPaymentMade(context.Background(), PaymentInput{
		TenantID: 1, EntityID: 7, Amount: 9700, Method: "bank_transfer", ReferenceNumber: "NEFT-1",
	})
	require.NoError(t, err)
	require.Len(t, entries, 2)

	totals := repo.totalsByHead()
	require.Equal(t, 9700.0, totals[HeadAccountsPayable].Debit)
	require.Equal(t, 9700.0, totals[HeadBank].Credit)
	require.Len(t, repo.bankTxns, 1)
	require.Equal(t, "debit", repo.bankTxns[0].Direction)
	require.Equal(t, EntityFarmer, repo.bankTxns[0].EntityType)
}

func TestRecordPaymentRejectsInvalidInput(t *testing.T) {
	svc := testService(newMemoryLedgerRepo())
	ctx := context.Background()

	_, err := svc.RecordPaymentReceived(ctx, PaymentInput{EntityID: 1, Amount: 10, Method: MethodCash})
	require.ErrorIs(t, err, ErrTenantRequired)

	_, err = svc.RecordPaymentReceived(ctx, PaymentInput{TenantID: 1, EntityID: 1, Method: MethodCash})
	require.Error(t, err)

	_, err = svc.RecordPaymentMade(ctx, PaymentInput{TenantID: 1, EntityID: 1, Amount: 10})
	require.Error(t, err)
}

func TestRecordExpenseMirrorsIntoLedger(t *testing.T) {
	repo := newMemoryLedgerRepo()
	svc := testService(repo)

	expense, err := svc.RecordExpense(context.Background(), ExpenseInput{
		TenantID:    1,
		Category:    "electricity",
		Description: "shop meter",
		Amount:      1200,
	})
	require.NoError(t, err)
	require.NotZero(t, expense.ID)
	require.Equal(t, MethodCash, expense.PaymentMethod)

	totals := repo.totalsByHead()
	require.Equal(t, 1200.0, totals[HeadExpenses].Debit)
	require.Equal(t, 1200.0, totals[HeadCash].Credit)

	summary, err := svc.ExpenseSummary(context.Background(), 1, time.Time{}, time.Time{})
	require.NoError(t, err)
	require.Equal(t, 1200.0, summary["electricity"])
}

func TestFiscalYearStampingAtBoundary(t *testing.T) {
	repo := newMemoryLedgerRepo()
	svc := NewService(repo, nil)
	svc.WithNow(func() time.Time {
		return time.Date(2024, time.March, 31, 23, 0, 0, 0, time.UTC)
	})

	entry, err := svc.RecordTransaction(context.Background(), EntryInput{
		TenantID: 1, TransactionType: TxnIncome, AccountHead: HeadRokIncome, Credit: 10,
	})
	require.NoError(t, err)
	require.Equal(t, "2023-2024", entry.FiscalYear)
}
