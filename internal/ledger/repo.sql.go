package ledger

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/mandibook/mandibook/internal/platform/db"
)

// Repository persists ledger entities.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// TxRepository exposes transactional operations.
type TxRepository interface {
	InsertEntry(ctx context.Context, in EntryInput, fiscalYear string) (Entry, error)
	InsertBankTransaction(ctx context.Context, txn BankTransaction) error
	InsertExpense(ctx context.Context, exp Expense) (Expense, error)
}

type txRepository struct {
	tx pgx.Tx
}

// WithTx executes fn within a repeatable-read transaction.
func (r *Repository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	if r == nil {
		return errors.New("ledger repository not initialised")
	}
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(ctx, &txRepository{tx: tx})
	})
}

func (r *txRepository) InsertEntry(ctx context.Context, in EntryInput, fiscalYear string) (Entry, error) {
	row := r.tx.QueryRow(ctx, `INSERT INTO ledger_entries
(tenant_id, transaction_type, entity_type, entity_id, reference_type, reference_id, debit_amount, credit_amount, description, account_head, fiscal_year, transaction_date, created_by)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13) RETURNING id, created_at`,
		in.TenantID, in.TransactionType, in.EntityType, in.EntityID, in.ReferenceType, in.ReferenceID,
		toNumeric(in.Debit), toNumeric(in.Credit), in.Description, in.AccountHead, fiscalYear, in.TransactionDate, nullInt(in.CreatedBy))
	entry := Entry{
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
	}
	if err := row.Scan(&entry.ID, &entry.CreatedAt); err != nil {
		return Entry{}, err
	}
	return entry, nil
}

func (r *txRepository) InsertBankTransaction(ctx context.Context, txn BankTransaction) error {
	_, err := r.tx.Exec(ctx, `INSERT INTO bank_transactions
(tenant_id, entity_type, entity_id, amount, direction, method, reference_number, transaction_date, created_by)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)`,
		txn.TenantID, txn.EntityType, txn.EntityID, toNumeric(txn.Amount), txn.Direction, txn.Method,
		txn.ReferenceNumber, txn.TransactionDate, nullInt(txn.CreatedBy))
	return err
}

func (r *txRepository) InsertExpense(ctx context.Context, exp Expense) (Expense, error) {
	row := r.tx.QueryRow(ctx, `INSERT INTO expenses
(tenant_id, category, subcategory, description, amount, payment_method, receipt_number, vendor_name, expense_date, created_by)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10) RETURNING id, created_at`,
		exp.TenantID, exp.Category, nullStr(exp.Subcategory), exp.Description, toNumeric(exp.Amount),
		exp.PaymentMethod, nullStr(exp.ReceiptNumber), nullStr(exp.VendorName), exp.ExpenseDate, nullInt(exp.CreatedBy))
	if err := row.Scan(&exp.ID, &exp.CreatedAt); err != nil {
		return Expense{}, err
	}
	return exp, nil
}

// ListEntries returns ledger entries for a tenant, newest first.
func (r *Repository) ListEntries(ctx context.Context, tenantID int64, filter EntryFilter) ([]Entry, error) {
	query := strings.Builder{}
	query.WriteString(`SELECT id, tenant_id, transaction_type, entity_type, entity_id, reference_type, reference_id,
debit_amount, credit_amount, description, account_head, fiscal_year, transaction_date, COALESCE(created_by, 0), created_at
FROM ledger_entries WHERE tenant_id=$1`)
	args := []any{tenantID}
	if filter.FiscalYear != "" {
		args = append(args, filter.FiscalYear)
		fmt.Fprintf(&query, " AND fiscal_year=$%d", len(args))
	}
	if filter.AccountHead != "" {
		args = append(args, filter.AccountHead)
		fmt.Fprintf(&query, " AND account_head=$%d", len(args))
	}
	if filter.EntityType != "" {
		args = append(args, filter.EntityType)
		fmt.Fprintf(&query, " AND entity_type=$%d", len(args))
	}
	if filter.EntityID > 0 {
		args = append(args, filter.EntityID)
		fmt.Fprintf(&query, " AND entity_id=$%d", len(args))
	}
	if !filter.From.IsZero() {
		args = append(args, filter.From)
		fmt.Fprintf(&query, " AND transaction_date >= $%d", len(args))
	}
	if !filter.To.IsZero() {
		args = append(args, filter.To)
		fmt.Fprintf(&query, " AND transaction_date <= $%d", len(args))
	}
	query.WriteString(" ORDER BY transaction_date DESC, id DESC")
	if filter.Limit > 0 {
		args = append(args, filter.Limit)
		fmt.Fprintf(&query, " LIMIT $%d", len(args))
	}

	rows, err := r.pool.Query(ctx, query.String(), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var entries []Entry
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.ID, &e.TenantID, &e.TransactionType, &e.EntityType, &e.EntityID, &e.ReferenceType, &e.ReferenceID,
			&e.Debit, &e.Credit, &e.Description, &e.AccountHead, &e.FiscalYear, &e.TransactionDate, &e.CreatedBy, &e.CreatedAt); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// SumByAccountHead aggregates debit and credit totals per account head over a
// date window.
func (r *Repository) SumByAccountHead(ctx context.Context, tenantID int64, from, to time.Time) (map[AccountHead]HeadTotals, error) {
	rows, err := r.pool.Query(ctx, `SELECT account_head, COALESCE(SUM(debit_amount),0), COALESCE(SUM(credit_amount),0)
FROM ledger_entries WHERE tenant_id=$1 AND transaction_date >= $2 AND transaction_date <= $3
GROUP BY account_head`, tenantID, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	totals := make(map[AccountHead]HeadTotals)
	for rows.Next() {
		var head AccountHead
		var t HeadTotals
		if err := rows.Scan(&head, &t.Debit, &t.Credit); err != nil {
			return nil, err
		}
		totals[head] = t
	}
	return totals, rows.Err()
}

// ListExpenses returns expenses for a tenant within a window, newest first.
func (r *Repository) ListExpenses(ctx context.Context, tenantID int64, from, to time.Time) ([]Expense, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, tenant_id, category, COALESCE(subcategory,''), description, amount,
payment_method, COALESCE(receipt_number,''), COALESCE(vendor_name,''), expense_date, COALESCE(created_by,0), created_at
FROM expenses WHERE tenant_id=$1 AND expense_date >= $2 AND expense_date <= $3 ORDER BY expense_date DESC, id DESC`,
		tenantID, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var expenses []Expense
	for rows.Next() {
		var e Expense
		if err := rows.Scan(&e.ID, &e.TenantID, &e.Category, &e.Subcategory, &e.Description, &e.Amount,
			&e.PaymentMethod, &e.ReceiptNumber, &e.VendorName, &e.ExpenseDate, &e.CreatedBy, &e.CreatedAt); err != nil {
			return nil, err
		}
		expenses = append(expenses, e)
	}
	return expenses, rows.Err()
}

// ExpenseSummary aggregates expense totals per category over a window.
func (r *Repository) ExpenseSummary(ctx context.Context, tenantID int64, from, to time.Time) (map[string]float64, error) {
	rows, err := r.pool.Query(ctx, `SELECT category, COALESCE(SUM(amount),0)
FROM expenses WHERE tenant_id=$1 AND expense_date >= $2 AND expense_date <= $3 GROUP BY category`, tenantID, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	summary := make(map[string]float64)
	for rows.Next() {
		var category string
		var total float64
		if err := rows.Scan(&category, &total); err != nil {
			return nil, err
		}
		summary[category] = total
	}
	return summary, rows.Err()
}

// UnbalancedReference identifies a business event whose ledger rows do not
// net to zero.
type UnbalancedReference struct {
	TenantID      int64
	ReferenceType string
	ReferenceID   string
	Debit         float64
	Credit        float64
}

// ListUnbalancedReferences scans the ledger grouped by reference and returns
// references whose debits and credits disagree by more than a paisa.
func (r *Repository) ListUnbalancedReferences(ctx context.Context, since time.Time) ([]UnbalancedReference, error) {
	rows, err := r.pool.Query(ctx, `SELECT tenant_id, reference_type, reference_id, SUM(debit_amount), SUM(credit_amount)
FROM ledger_entries WHERE transaction_date >= $1 AND reference_type NOT IN ('farmer_bill', 'tax_invoice')
GROUP BY tenant_id, reference_type, reference_id
HAVING ABS(SUM(debit_amount) - SUM(credit_amount)) > 0.01`, since)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var refs []UnbalancedReference
	for rows.Next() {
		var ref UnbalancedReference
		if err := rows.Scan(&ref.TenantID, &ref.ReferenceType, &ref.ReferenceID, &ref.Debit, &ref.Credit); err != nil {
			return nil, err
		}
		refs = append(refs, ref)
	}
	return refs, rows.Err()
}

func nullInt(val int64) any {
	if val == 0 {
		return nil
	}
	return val
}

func nullStr(val string) any {
	if val == "" {
		return nil
	}
	return val
}

func toNumeric(v float64) any {
	return fmt.Sprintf("%.2f", v)
}
