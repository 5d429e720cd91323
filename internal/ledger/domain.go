package ledger

import (
	"errors"
	"fmt"
	"time"
)

// TransactionType enumerates the business events recorded in the ledger.
type TransactionType string

const (
	TxnPurchase        TransactionType = "purchase"
	TxnSale            TransactionType = "sale"
	TxnIncome          TransactionType = "income"
	TxnPaymentReceived TransactionType = "payment_received"
	TxnPaymentMade     TransactionType = "payment_made"
	TxnExpense         TransactionType = "expense"
)

// EntityType enumerates counterparty kinds.
type EntityType string

const (
	EntityFarmer  EntityType = "farmer"
	EntityBuyer   EntityType = "buyer"
	EntityExpense EntityType = "expense"
)

// AccountHead enumerates ledger account heads.
type AccountHead string

const (
	HeadSales              AccountHead = "sales"
	HeadPurchases          AccountHead = "purchases"
	HeadAccountsReceivable AccountHead = "accounts_receivable"
	HeadAccountsPayable    AccountHead = "accounts_payable"
	HeadCommissionIncome   AccountHead = "commission_income"
	HeadServiceCharges     AccountHead = "service_charges"
	HeadRokIncome          AccountHead = "rok_income"
	HeadCash               AccountHead = "cash"
	HeadBank               AccountHead = "bank"
	HeadExpenses           AccountHead = "expenses"
	HeadGSTPayable         AccountHead = "gst_payable"
	HeadCessPayable        AccountHead = "cess_payable"
)

// Entry is one immutable double-entry ledger row. Entries are only ever
// appended; corrections are made via offsetting entries.
type Entry struct {
	ID              int64
	TenantID        int64
	TransactionType TransactionType
	EntityType      EntityType
	EntityID        int64
	ReferenceType   string
	ReferenceID     string
	Debit           float64
	Credit          float64
	Description     string
	AccountHead     AccountHead
	FiscalYear      string
	TransactionDate time.Time
	CreatedBy       int64
	CreatedAt       time.Time
}

// EntryInput describes a ledger row to append. A zero TransactionDate means
// now; FiscalYear is always derived, never supplied.
type EntryInput struct {
	TenantID        int64
	TransactionType TransactionType
	EntityType      EntityType
	EntityID        int64
	ReferenceType   string
	ReferenceID     string
	Debit           float64
	Credit          float64
	Description     string
	AccountHead     AccountHead
	CreatedBy       int64
	TransactionDate time.Time
}

// BankTransaction is the audit row written alongside non-cash payments.
type BankTransaction struct {
	ID              int64
	TenantID        int64
	EntityType      EntityType
	EntityID        int64
	Amount          float64
	Direction       string
	Method          string
	ReferenceNumber string
	TransactionDate time.Time
	CreatedBy       int64
	CreatedAt       time.Time
}

// Expense models a recorded operating expense. Every insertion mirrors into
// the ledger under the expenses head.
type Expense struct {
	ID            int64
	TenantID      int64
	Category      string
	Subcategory   string
	Description   string
	Amount        float64
	PaymentMethod string
	ReceiptNumber string
	VendorName    string
	ExpenseDate   time.Time
	CreatedBy     int64
	CreatedAt     time.Time
}

// EntryFilter narrows ledger listings.
type EntryFilter struct {
	FiscalYear  string
	AccountHead AccountHead
	EntityType  EntityType
	EntityID    int64
	From        time.Time
	To          time.Time
	Limit       int
}

// HeadTotals aggregates debit and credit sums for one account head.
type HeadTotals struct {
	Debit  float64
	Credit float64
}

var (
	// ErrTooFewEntries indicates a composite write with fewer than two rows.
	ErrTooFewEntries = errors.New("ledger: balanced write requires at least two entries")
	// ErrUnbalanced indicates debits != credits across a balanced write.
	ErrUnbalanced = errors.New("ledger: entries must balance")
	// ErrNegativeAmount indicates a negative debit or credit.
	ErrNegativeAmount = errors.New("ledger: amounts must be non-negative")
	// ErrTenantRequired indicates a missing tenant scope.
	ErrTenantRequired = errors.New("ledger: tenant required")
)

// Validate checks a single entry input.
func (in EntryInput) Validate() error {
	if in.TenantID <= 0 {
		return ErrTenantRequired
	}
	if in.Debit < 0 || in.Credit < 0 {
		return ErrNegativeAmount
	}
	if in.AccountHead == "" {
		return errors.New("ledger: account head required")
	}
	if in.TransactionType == "" {
		return errors.New("ledger: transaction type required")
	}
	return nil
}

// ValidateBalanced checks a set of entries for a balanced composite write:
// at least two rows, all non-negative, debits equal credits to two decimals.
func ValidateBalanced(entries []EntryInput) error {
	if len(entries) < 2 {
		return ErrTooFewEntries
	}
	var debit, credit float64
	for idx, e := range entries {
		if err := e.Validate(); err != nil {
			return fmt.Errorf("ledger: entry %d: %w", idx, err)
		}
		debit += e.Debit
		credit += e.Credit
	}
	if fmt.Sprintf("%.2f", debit) != fmt.Sprintf("%.2f", credit) {
		return ErrUnbalanced
	}
	return nil
}
