package finacct

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository reads the raw tax_invoices and farmer_bills tables for the
// trading strategy and GST liability.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// invoiceAggregates holds the buyer-side sums for a window.
type invoiceAggregates struct {
	Count       int
	TotalAmount float64
	SGST        float64
	CGST        float64
	Cess        float64
}

// billAggregates holds the farmer-side sums for a window.
type billAggregates struct {
	Count           int
	TotalAmount     float64
	TotalDeductions float64
	NetPayable      float64
	RokIncome       float64
}

func (r *Repository) InvoiceAggregates(ctx context.Context, tenantID int64, start, end time.Time) (invoiceAggregates, error) {
	var agg invoiceAggregates
	err := r.pool.QueryRow(ctx, `SELECT COUNT(*), COALESCE(SUM(total_amount),0), COALESCE(SUM(sgst),0),
COALESCE(SUM(cgst),0), COALESCE(SUM(cess),0)
FROM tax_invoices WHERE tenant_id=$1 AND invoice_date >= $2 AND invoice_date <= $3`, tenantID, start, end).
		Scan(&agg.Count, &agg.TotalAmount, &agg.SGST, &agg.CGST, &agg.Cess)
	return agg, err
}

func (r *Repository) BillAggregates(ctx context.Context, tenantID int64, start, end time.Time) (billAggregates, error) {
	var agg billAggregates
	err := r.pool.QueryRow(ctx, `SELECT COUNT(*), COALESCE(SUM(total_amount),0), COALESCE(SUM(total_deductions),0),
COALESCE(SUM(net_payable),0), COALESCE(SUM(rok),0)
FROM farmer_bills WHERE tenant_id=$1 AND bill_date >= $2 AND bill_date <= $3`, tenantID, start, end).
		Scan(&agg.Count, &agg.TotalAmount, &agg.TotalDeductions, &agg.NetPayable, &agg.RokIncome)
	return agg, err
}

// GSTLiability sums sgst, cgst and cess from tax invoices. Independent of the
// ledger.
func (r *Repository) GSTLiability(ctx context.Context, tenantID int64, start, end time.Time) (GSTLiability, error) {
	out := GSTLiability{Start: start, End: end}
	err := r.pool.QueryRow(ctx, `SELECT COALESCE(SUM(sgst),0), COALESCE(SUM(cgst),0), COALESCE(SUM(cess),0)
FROM tax_invoices WHERE tenant_id=$1 AND invoice_date >= $2 AND invoice_date <= $3`, tenantID, start, end).
		Scan(&out.SGST, &out.CGST, &out.Cess)
	if err != nil {
		return GSTLiability{}, err
	}
	out.SGST = round2(out.SGST)
	out.CGST = round2(out.CGST)
	out.Cess = round2(out.Cess)
	out.TotalGST = round2(out.SGST + out.CGST + out.Cess)
	return out, nil
}
