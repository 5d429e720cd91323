package billing

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository persists bills and invoices and reads counterparty master data.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// GetFarmer returns the farmer identity block.
func (r *Repository) GetFarmer(ctx context.Context, tenantID, farmerID int64) (Farmer, error) {
	var f Farmer
	err := r.pool.QueryRow(ctx, `SELECT id, name, COALESCE(village,''), COALESCE(mobile,'')
FROM farmers WHERE id=$1 AND tenant_id=$2`, farmerID, tenantID).
		Scan(&f.ID, &f.Name, &f.Village, &f.Mobile)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Farmer{}, ErrBillNotFound
		}
		return Farmer{}, err
	}
	return f, nil
}

// GetBuyer returns the buyer identity block.
func (r *Repository) GetBuyer(ctx context.Context, tenantID, buyerID int64) (Buyer, error) {
	var b Buyer
	err := r.pool.QueryRow(ctx, `SELECT id, name, COALESCE(address,''), COALESCE(mobile,''), COALESCE(gstin,'')
FROM buyers WHERE id=$1 AND tenant_id=$2`, buyerID, tenantID).
		Scan(&b.ID, &b.Name, &b.Address, &b.Mobile, &b.GSTIN)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Buyer{}, ErrBillNotFound
		}
		return Buyer{}, err
	}
	return b, nil
}

// GetTrader returns the tenant's own letterhead block.
func (r *Repository) GetTrader(ctx context.Context, tenantID int64) (Trader, error) {
	var t Trader
	err := r.pool.QueryRow(ctx, `SELECT name, COALESCE(apmc_name,''), COALESCE(address,''), COALESCE(mobile,''), COALESCE(gstin,'')
FROM tenants WHERE id=$1`, tenantID).
		Scan(&t.Name, &t.APMCName, &t.Address, &t.Mobile, &t.GSTIN)
	return t, err
}

// FarmerBillExistsForDay reports whether the farmer already has a bill on the
// calendar day.
func (r *Repository) FarmerBillExistsForDay(ctx context.Context, tenantID, farmerID int64, date time.Time) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM farmer_bills
WHERE tenant_id=$1 AND farmer_id=$2 AND bill_date::date = $3::date)`, tenantID, farmerID, date).Scan(&exists)
	return exists, err
}

// InsertFarmerBill stores the computed bill document plus flattened columns.
// The unique patti_number constraint backstops the same-day existence check.
func (r *Repository) InsertFarmerBill(ctx context.Context, bill *FarmerBill) error {
	doc, err := json.Marshal(bill)
	if err != nil {
		return err
	}
	row := r.pool.QueryRow(ctx, `INSERT INTO farmer_bills
(tenant_id, patti_number, farmer_id, bill_date, total_bags, total_weight, total_amount, hamali, vehicle_rent,
 empty_bag_charges, advance, rok, other_charges, total_deductions, net_payable, lot_ids, document)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17) RETURNING id, created_at`,
		bill.TenantID, bill.PattiNumber, bill.FarmerID, bill.BillDate, bill.TotalBags, bill.TotalWeight,
		bill.TotalAmount, bill.Hamali, bill.VehicleRent, bill.EmptyBagCharges, bill.Advance, bill.Rok,
		bill.OtherCharges, bill.TotalDeductions, bill.NetPayable, bill.LotIDs, doc)
	if err := row.Scan(&bill.ID, &bill.CreatedAt); err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicateBill
		}
		return err
	}
	return nil
}

// ListFarmerBills returns bills within the window, newest first.
func (r *Repository) ListFarmerBills(ctx context.Context, tenantID int64, from, to time.Time) ([]FarmerBill, error) {
	rows, err := r.pool.Query(ctx, `SELECT document FROM farmer_bills
WHERE tenant_id=$1 AND bill_date >= $2 AND bill_date <= $3 ORDER BY bill_date DESC, id DESC`, tenantID, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var bills []FarmerBill
	for rows.Next() {
		var doc []byte
		if err := rows.Scan(&doc); err != nil {
			return nil, err
		}
		var bill FarmerBill
		if err := json.Unmarshal(doc, &bill); err != nil {
			return nil, err
		}
		bills = append(bills, bill)
	}
	return bills, rows.Err()
}

// TaxInvoiceExistsForDay reports whether the buyer already has an invoice on
// the calendar day.
func (r *Repository) TaxInvoiceExistsForDay(ctx context.Context, tenantID, buyerID int64, date time.Time) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM tax_invoices
WHERE tenant_id=$1 AND buyer_id=$2 AND invoice_date::date = $3::date)`, tenantID, buyerID, date).Scan(&exists)
	return exists, err
}

// InvoicedLotNumbers collects the lot numbers referenced by the buyer's
// existing invoices for the day, used for duplicate-lot prevention.
func (r *Repository) InvoicedLotNumbers(ctx context.Context, tenantID, buyerID int64, date time.Time) (map[string]struct{}, error) {
	rows, err := r.pool.Query(ctx, `SELECT UNNEST(lot_numbers) FROM tax_invoices
WHERE tenant_id=$1 AND buyer_id=$2 AND invoice_date::date = $3::date`, tenantID, buyerID, date)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	seen := make(map[string]struct{})
	for rows.Next() {
		var number string
		if err := rows.Scan(&number); err != nil {
			return nil, err
		}
		seen[number] = struct{}{}
	}
	return seen, rows.Err()
}

// InsertTaxInvoice stores the computed invoice document plus flattened
// columns. The unique invoice_number constraint backstops the existence check.
func (r *Repository) InsertTaxInvoice(ctx context.Context, inv *TaxInvoice) error {
	doc, err := json.Marshal(inv)
	if err != nil {
		return err
	}
	row := r.pool.QueryRow(ctx, `INSERT INTO tax_invoices
(tenant_id, invoice_number, buyer_id, invoice_date, total_bags, total_weight, basic_amount, packaging, hamali,
 weighing_charges, commission, cess, taxable_amount, sgst, cgst, igst, total_gst, total_amount, lot_ids, lot_numbers, document)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19,$20,$21) RETURNING id, created_at`,
		inv.TenantID, inv.InvoiceNumber, inv.BuyerID, inv.InvoiceDate, inv.TotalBags, inv.TotalWeight,
		inv.BasicAmount, inv.Packaging, inv.Hamali, inv.WeighingCharges, inv.Commission, inv.Cess,
		inv.TaxableAmount, inv.SGST, inv.CGST, inv.IGST, inv.TotalGST, inv.TotalAmount, inv.LotIDs, inv.LotNumbers, doc)
	if err := row.Scan(&inv.ID, &inv.CreatedAt); err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicateInvoice
		}
		return err
	}
	return nil
}

// ListTaxInvoices returns invoices within the window, newest first.
func (r *Repository) ListTaxInvoices(ctx context.Context, tenantID int64, from, to time.Time) ([]TaxInvoice, error) {
	rows, err := r.pool.Query(ctx, `SELECT document FROM tax_invoices
WHERE tenant_id=$1 AND invoice_date >= $2 AND invoice_date <= $3 ORDER BY invoice_date DESC, id DESC`, tenantID, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var invoices []TaxInvoice
	for rows.Next() {
		var doc []byte
		if err := rows.Scan(&doc); err != nil {
			return nil, err
		}
		var inv TaxInvoice
		if err := json.Unmarshal(doc, &inv); err != nil {
			return nil, err
		}
		invoices = append(invoices, inv)
	}
	return invoices, rows.Err()
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return false
}
