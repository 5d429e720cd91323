package ledger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/mandibook/mandibook/internal/shared"
)

// RepositoryPort abstracts transactional repository behaviour.
type RepositoryPort interface {
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
	ListEntries(ctx context.Context, tenantID int64, filter EntryFilter) ([]Entry, error)
	ListExpenses(ctx context.Context, tenantID int64, from, to time.Time) ([]Expense, error)
	ExpenseSummary(ctx context.Context, tenantID int64, from, to time.Time) (map[string]float64, error)
}

// AuditPort records ledger events for compliance.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// Service is the transaction recorder: it appends double-entry rows for
// business events and answers ledger queries.
type Service struct {
	repo  RepositoryPort
	audit AuditPort
	now   func() time.Time
}

// NewService constructs the ledger service.
func NewService(repo RepositoryPort, audit AuditPort) *Service {
	return &Service{repo: repo, audit: audit, now: time.Now}
}

// WithNow overrides the clock for testing.
func (s *Service) WithNow(now func() time.Time) {
	if now != nil {
		s.now = now
	}
}

// RecordTransaction appends a single ledger entry. Balance across entries is
// the caller's responsibility; prefer RecordBalancedEntries for paired writes.
func (s *Service) RecordTransaction(ctx context.Context, in EntryInput) (Entry, error) {
	if err := in.Validate(); err != nil {
		return Entry{}, err
	}
	in = s.stamp(in)
	var entry Entry
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		var err error
		entry, err = tx.InsertEntry(ctx, in, shared.FiscalYearOf(in.TransactionDate))
		return err
	})
	return entry, err
}

// RecordBalancedEntries validates that debits equal credits across the set,
// then inserts every row inside one database transaction so partial writes
// cannot occur.
func (s *Service) RecordBalancedEntries(ctx context.Context, entries []EntryInput) ([]Entry, error) {
	if err := ValidateBalanced(entries); err != nil {
		return nil, err
	}
	return s.recordSet(ctx, entries)
}

// RecordEntries inserts a set of rows atomically without the balance check.
// Only the two inherited bill composites use it; everything else goes through
// RecordBalancedEntries.
func (s *Service) RecordEntries(ctx context.Context, entries []EntryInput) ([]Entry, error) {
	if len(entries) == 0 {
		return nil, errors.New("ledger: no entries")
	}
	for idx, e := range entries {
		if err := e.Validate(); err != nil {
			return nil, fmt.Errorf("ledger: entry %d: %w", idx, err)
		}
	}
	return s.recordSet(ctx, entries)
}

func (s *Service) recordSet(ctx context.Context, entries []EntryInput) ([]Entry, error) {
	out := make([]Entry, 0, len(entries))
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		for _, in := range entries {
			in = s.stamp(in)
			inserted, err := tx.InsertEntry(ctx, in, shared.FiscalYearOf(in.TransactionDate))
			if err != nil {
				return err
			}
			out = append(out, inserted)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *Service) stamp(in EntryInput) EntryInput {
	if in.TransactionDate.IsZero() {
		in.TransactionDate = s.now()
	}
	return in
}

// FarmerBillTxn carries the amounts of a generated farmer bill.
type FarmerBillTxn struct {
	TenantID    int64
	FarmerID    int64
	BillID      int64
	PattiNumber string
	TotalAmount float64
	Rok         float64
	Date        time.Time
	UserID      int64
}

// RecordFarmerBillTransaction writes the purchase-side rows for a farmer
// bill: debit purchases, credit accounts payable, and credit rok income when
// rok was deducted. The rok leg leaves the set unbalanced on purpose; the
// original books treat rok as recognised income alongside the payable.
func (s *Service) RecordFarmerBillTransaction(ctx context.Context, txn FarmerBillTxn) ([]Entry, error) {
	if txn.TotalAmount <= 0 {
		return nil, errors.New("ledger: farmer bill total must be positive")
	}
	ref := fmt.Sprintf("%d", txn.BillID)
	base := EntryInput{
		TenantID:        txn.TenantID,
		TransactionType: TxnPurchase,
		EntityType:      EntityFarmer,
		EntityID:        txn.FarmerID,
		ReferenceType:   "farmer_bill",
		ReferenceID:     ref,
		CreatedBy:       txn.UserID,
		TransactionDate: txn.Date,
	}

	purchases := base
	purchases.Debit = txn.TotalAmount
	purchases.AccountHead = HeadPurchases
	purchases.Description = fmt.Sprintf("Produce purchased, patti %s", txn.PattiNumber)

	payable := base
	payable.Credit = txn.TotalAmount
	payable.AccountHead = HeadAccountsPayable
	payable.Description = fmt.Sprintf("Payable to farmer, patti %s", txn.PattiNumber)

	entries := []EntryInput{purchases, payable}
	if txn.Rok > 0 {
		rok := base
		rok.TransactionType = TxnIncome
		rok.Credit = txn.Rok
		rok.AccountHead = HeadRokIncome
		rok.Description = fmt.Sprintf("Rok on patti %s", txn.PattiNumber)
		entries = append(entries, rok)
	}
	inserted, err := s.RecordEntries(ctx, entries)
	if err != nil {
		return nil, err
	}
	s.auditEvent(ctx, txn.TenantID, txn.UserID, "ledger.farmer_bill", ref, map[string]any{
		"patti":  txn.PattiNumber,
		"amount": txn.TotalAmount,
	})
	return inserted, nil
}

// TaxInvoiceTxn carries the amounts of a generated tax invoice.
type TaxInvoiceTxn struct {
	TenantID      int64
	BuyerID       int64
	InvoiceID     int64
	InvoiceNumber string
	BasicAmount   float64
	TotalCharges  float64
	TotalAmount   float64
	Date          time.Time
	UserID        int64
}

// RecordTaxInvoiceTransaction writes the sale-side rows for a tax invoice:
// credit sales for the basic amount, debit accounts receivable for the full
// invoice value, and credit service charges for the markup. The three rows do
// not net to zero; that asymmetry is carried over from the original books.
func (s *Service) RecordTaxInvoiceTransaction(ctx context.Context, txn TaxInvoiceTxn) ([]Entry, error) {
	if txn.TotalAmount <= 0 {
		return nil, errors.New("ledger: tax invoice total must be positive")
	}
	ref := fmt.Sprintf("%d", txn.InvoiceID)
	base := EntryInput{
		TenantID:        txn.TenantID,
		TransactionType: TxnSale,
		EntityType:      EntityBuyer,
		EntityID:        txn.BuyerID,
		ReferenceType:   "tax_invoice",
		ReferenceID:     ref,
		CreatedBy:       txn.UserID,
		TransactionDate: txn.Date,
	}

	sales := base
	sales.Credit = txn.BasicAmount
	sales.AccountHead = HeadSales
	sales.Description = fmt.Sprintf("Sale, invoice %s", txn.InvoiceNumber)

	receivable := base
	receivable.Debit = txn.TotalAmount
	receivable.AccountHead = HeadAccountsReceivable
	receivable.Description = fmt.Sprintf("Receivable from buyer, invoice %s", txn.InvoiceNumber)

	entries := []EntryInput{sales, receivable}
	if txn.TotalCharges > 0 {
		charges := base
		charges.TransactionType = TxnIncome
		charges.Credit = txn.TotalCharges
		charges.AccountHead = HeadServiceCharges
		charges.Description = fmt.Sprintf("Charges on invoice %s", txn.InvoiceNumber)
		entries = append(entries, charges)
	}
	inserted, err := s.RecordEntries(ctx, entries)
	if err != nil {
		return nil, err
	}
	s.auditEvent(ctx, txn.TenantID, txn.UserID, "ledger.tax_invoice", ref, map[string]any{
		"invoice": txn.InvoiceNumber,
		"amount":  txn.TotalAmount,
	})
	return inserted, nil
}

// PaymentInput describes a payment received from a buyer or made to a farmer.
type PaymentInput struct {
	TenantID        int64
	EntityType      EntityType
	EntityID        int64
	Amount          float64
	Method          string
	ReferenceNumber string
	Description     string
	Date            time.Time
	UserID          int64
}

// MethodCash marks payments settled in cash; anything else runs through the
// bank head and leaves a bank_transactions audit row.
const MethodCash = "cash"

func (in PaymentInput) validate() error {
	if in.TenantID <= 0 {
		return ErrTenantRequired
	}
	if in.EntityID <= 0 {
		return errors.New("ledger: entity id required")
	}
	if in.Amount <= 0 {
		return errors.New("ledger: amount must be positive")
	}
	if in.Method == "" {
		return errors.New("ledger: payment method required")
	}
	return nil
}

func (in PaymentInput) settlementHead() AccountHead {
	if in.Method == MethodCash {
		return HeadCash
	}
	return HeadBank
}

// RecordPaymentReceived books money in from a buyer: debit cash or bank,
// credit accounts receivable. Non-cash methods append a bank audit row inside
// the same transaction.
func (s *Service) RecordPaymentReceived(ctx context.Context, in PaymentInput) ([]Entry, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}
	if in.EntityType == "" {
		in.EntityType = EntityBuyer
	}
	if in.Date.IsZero() {
		in.Date = s.now()
	}
	base := EntryInput{
		TenantID:        in.TenantID,
		TransactionType: TxnPaymentReceived,
		EntityType:      in.EntityType,
		EntityID:        in.EntityID,
		ReferenceType:   "payment",
		ReferenceID:     in.ReferenceNumber,
		Description:     in.Description,
		CreatedBy:       in.UserID,
		TransactionDate: in.Date,
	}
	settlement := base
	settlement.Debit = in.Amount
	settlement.AccountHead = in.settlementHead()
	receivable := base
	receivable.Credit = in.Amount
	receivable.AccountHead = HeadAccountsReceivable

	return s.recordPayment(ctx, in, []EntryInput{settlement, receivable}, "credit")
}

// RecordPaymentMade books money out to a farmer: debit accounts payable,
// credit cash or bank.
func (s *Service) RecordPaymentMade(ctx context.Context, in PaymentInput) ([]Entry, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}
	if in.EntityType == "" {
		in.EntityType = EntityFarmer
	}
	if in.Date.IsZero() {
		in.Date = s.now()
	}
	base := EntryInput{
		TenantID:        in.TenantID,
		TransactionType: TxnPaymentMade,
		EntityType:      in.EntityType,
		EntityID:        in.EntityID,
		ReferenceType:   "payment",
		ReferenceID:     in.ReferenceNumber,
		Description:     in.Description,
		CreatedBy:       in.UserID,
		TransactionDate: in.Date,
	}
	payable := base
	payable.Debit = in.Amount
	payable.AccountHead = HeadAccountsPayable
	settlement := base
	settlement.Credit = in.Amount
	settlement.AccountHead = in.settlementHead()

	return s.recordPayment(ctx, in, []EntryInput{payable, settlement}, "debit")
}

func (s *Service) recordPayment(ctx context.Context, in PaymentInput, entries []EntryInput, direction string) ([]Entry, error) {
	if err := ValidateBalanced(entries); err != nil {
		return nil, err
	}
	out := make([]Entry, 0, len(entries))
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		for _, e := range entries {
			e = s.stamp(e)
			inserted, err := tx.InsertEntry(ctx, e, shared.FiscalYearOf(e.TransactionDate))
			if err != nil {
				return err
			}
			out = append(out, inserted)
		}
		if in.Method != MethodCash {
			return tx.InsertBankTransaction(ctx, BankTransaction{
				TenantID:        in.TenantID,
				EntityType:      in.EntityType,
				EntityID:        in.EntityID,
				Amount:          in.Amount,
				Direction:       direction,
				Method:          in.Method,
				ReferenceNumber: in.ReferenceNumber,
				TransactionDate: in.Date,
				CreatedBy:       in.UserID,
			})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.auditEvent(ctx, in.TenantID, in.UserID, "ledger.payment."+direction, in.ReferenceNumber, map[string]any{
		"amount": in.Amount,
		"method": in.Method,
	})
	return out, nil
}

// ExpenseInput describes an operating expense to record.
type ExpenseInput struct {
	TenantID      int64
	Category      string
	Subcategory   string
	Description   string
	Amount        float64
	PaymentMethod string
	ReceiptNumber string
	VendorName    string
	ExpenseDate   time.Time
	UserID        int64
}

// RecordExpense persists the expense row and mirrors it into the ledger as a
// balanced expenses/cash pair, all inside one transaction.
func (s *Service) RecordExpense(ctx context.Context, in ExpenseInput) (Expense, error) {
	if in.TenantID <= 0 {
		return Expense{}, ErrTenantRequired
	}
	if in.Category == "" {
		return Expense{}, errors.New("ledger: expense category required")
	}
	if in.Amount <= 0 {
		return Expense{}, errors.New("ledger: expense amount must be positive")
	}
	if in.PaymentMethod == "" {
		in.PaymentMethod = MethodCash
	}
	if in.ExpenseDate.IsZero() {
		in.ExpenseDate = s.now()
	}

	settlementHead := HeadCash
	if in.PaymentMethod != MethodCash {
		settlementHead = HeadBank
	}

	var expense Expense
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		var err error
		expense, err = tx.InsertExpense(ctx, Expense{
			TenantID:      in.TenantID,
			Category:      in.Category,
			Subcategory:   in.Subcategory,
			Description:   in.Description,
			Amount:        in.Amount,
			PaymentMethod: in.PaymentMethod,
			ReceiptNumber: in.ReceiptNumber,
			VendorName:    in.VendorName,
			ExpenseDate:   in.ExpenseDate,
			CreatedBy:     in.UserID,
		})
		if err != nil {
			return err
		}
		ref := fmt.Sprintf("%d", expense.ID)
		base := EntryInput{
			TenantID:        in.TenantID,
			TransactionType: TxnExpense,
			EntityType:      EntityExpense,
			EntityID:        expense.ID,
			ReferenceType:   "expense",
			ReferenceID:     ref,
			Description:     fmt.Sprintf("%s: %s", in.Category, in.Description),
			CreatedBy:       in.UserID,
			TransactionDate: in.ExpenseDate,
		}
		debit := base
		debit.Debit = in.Amount
		debit.AccountHead = HeadExpenses
		credit := base
		credit.Credit = in.Amount
		credit.AccountHead = settlementHead
		fy := shared.FiscalYearOf(in.ExpenseDate)
		if _, err := tx.InsertEntry(ctx, debit, fy); err != nil {
			return err
		}
		if _, err := tx.InsertEntry(ctx, credit, fy); err != nil {
			return err
		}
		return nil
	})
	if err != nil {
		return Expense{}, err
	}
	s.auditEvent(ctx, in.TenantID, in.UserID, "ledger.expense", fmt.Sprintf("%d", expense.ID), map[string]any{
		"category": in.Category,
		"amount":   in.Amount,
	})
	return expense, nil
}

// ListEntries returns ledger entries for the tenant.
func (s *Service) ListEntries(ctx context.Context, tenantID int64, filter EntryFilter) ([]Entry, error) {
	if tenantID <= 0 {
		return nil, ErrTenantRequired
	}
	return s.repo.ListEntries(ctx, tenantID, filter)
}

// ListExpenses returns expenses within the window.
func (s *Service) ListExpenses(ctx context.Context, tenantID int64, from, to time.Time) ([]Expense, error) {
	if tenantID <= 0 {
		return nil, ErrTenantRequired
	}
	return s.repo.ListExpenses(ctx, tenantID, from, to)
}

// ExpenseSummary returns expense totals per category within the window.
func (s *Service) ExpenseSummary(ctx context.Context, tenantID int64, from, to time.Time) (map[string]float64, error) {
	if tenantID <= 0 {
		return nil, ErrTenantRequired
	}
	return s.repo.ExpenseSummary(ctx, tenantID, from, to)
}

func (s *Service) auditEvent(ctx context.Context, tenantID, actorID int64, action, entityID string, meta map[string]any) {
	if s.audit == nil {
		return
	}
	_ = s.audit.Record(ctx, shared.AuditLog{
		TenantID: tenantID,
		ActorID:  actorID,
		Action:   action,
		Entity:   "ledger_entry",
		EntityID: entityID,
		Meta:     meta,
		At:       s.now(),
	})
}
