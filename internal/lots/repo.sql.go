package lots

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository reads and mutates lot and bag rows.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const lotColumns = `id, tenant_id, lot_number, farmer_id, number_of_bags, COALESCE(lot_price, 0), buyer_id,
status, bill_generated, payment_status, COALESCE(amount_due, 0), COALESCE(amount_paid, 0), created_at, updated_at`

func scanLot(row pgx.Row) (Lot, error) {
	var l Lot
	err := row.Scan(&l.ID, &l.TenantID, &l.LotNumber, &l.FarmerID, &l.NumberOfBags, &l.LotPrice, &l.BuyerID,
		&l.Status, &l.BillGenerated, &l.PaymentStatus, &l.AmountDue, &l.AmountPaid, &l.CreatedAt, &l.UpdatedAt)
	return l, err
}

// Get returns one lot scoped by tenant.
func (r *Repository) Get(ctx context.Context, lotID, tenantID int64) (Lot, error) {
	lot, err := scanLot(r.pool.QueryRow(ctx, `SELECT `+lotColumns+` FROM lots WHERE id=$1 AND tenant_id=$2`, lotID, tenantID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Lot{}, ErrLotNotFound
		}
		return Lot{}, err
	}
	return lot, nil
}

// BagCounts returns total bags and bags with a recorded positive weight.
func (r *Repository) BagCounts(ctx context.Context, lotID int64) (total int, weighed int, err error) {
	err = r.pool.QueryRow(ctx, `SELECT COUNT(*), COUNT(*) FILTER (WHERE weight IS NOT NULL AND weight > 0)
FROM bags WHERE lot_id=$1`, lotID).Scan(&total, &weighed)
	return total, weighed, err
}

// MarkCompleted transitions a lot to completed. The WHERE clause keeps the
// transition one-way.
func (r *Repository) MarkCompleted(ctx context.Context, lotID, tenantID int64) error {
	_, err := r.pool.Exec(ctx, `UPDATE lots SET status='completed', updated_at=NOW()
WHERE id=$1 AND tenant_id=$2 AND status='active'`, lotID, tenantID)
	return err
}

func (r *Repository) listLots(ctx context.Context, query string, args ...any) ([]Lot, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Lot
	for rows.Next() {
		lot, err := scanLot(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, lot)
	}
	return out, rows.Err()
}

// CompletedForFarmerOnDate returns the farmer's completed, priced lots
// created on the given calendar day.
func (r *Repository) CompletedForFarmerOnDate(ctx context.Context, tenantID, farmerID int64, date time.Time) ([]Lot, error) {
	return r.listLots(ctx, `SELECT `+lotColumns+` FROM lots
WHERE tenant_id=$1 AND farmer_id=$2 AND status='completed' AND lot_price > 0 AND created_at::date = $3::date
ORDER BY lot_number`, tenantID, farmerID, date)
}

// CompletedForBuyerOnDate returns the buyer's completed lots for the day,
// merging direct ownership with bag-level allocation and de-duplicating by
// lot number.
func (r *Repository) CompletedForBuyerOnDate(ctx context.Context, tenantID, buyerID int64, date time.Time) ([]BuyerLot, error) {
	direct, err := r.listLots(ctx, `SELECT `+lotColumns+` FROM lots
WHERE tenant_id=$1 AND buyer_id=$2 AND status='completed' AND lot_price > 0 AND created_at::date = $3::date
ORDER BY lot_number`, tenantID, buyerID, date)
	if err != nil {
		return nil, err
	}
	allocated, err := r.listLots(ctx, `SELECT DISTINCT `+lotColumns+` FROM lots
WHERE tenant_id=$1 AND status='completed' AND lot_price > 0 AND created_at::date = $3::date
AND id IN (SELECT lot_id FROM bags WHERE buyer_id=$2)
ORDER BY lot_number`, tenantID, buyerID, date)
	if err != nil {
		return nil, err
	}

	seen := make(map[string]struct{}, len(direct)+len(allocated))
	out := make([]BuyerLot, 0, len(direct)+len(allocated))
	for _, lot := range direct {
		seen[lot.LotNumber] = struct{}{}
		out = append(out, BuyerLot{Lot: lot, Allocation: AllocationSingle})
	}
	for _, lot := range allocated {
		if _, ok := seen[lot.LotNumber]; ok {
			continue
		}
		seen[lot.LotNumber] = struct{}{}
		out = append(out, BuyerLot{Lot: lot, Allocation: AllocationMulti})
	}
	return out, nil
}

// CompletedInRange returns completed lots created within the window.
func (r *Repository) CompletedInRange(ctx context.Context, tenantID int64, from, to time.Time) ([]Lot, error) {
	return r.listLots(ctx, `SELECT `+lotColumns+` FROM lots
WHERE tenant_id=$1 AND status='completed' AND created_at >= $2 AND created_at <= $3
ORDER BY created_at`, tenantID, from, to)
}

func (r *Repository) listBags(ctx context.Context, query string, args ...any) ([]Bag, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Bag
	for rows.Next() {
		var b Bag
		if err := rows.Scan(&b.ID, &b.LotID, &b.BagNumber, &b.Weight, &b.BuyerID, &b.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

// Bags returns all bags of a lot.
func (r *Repository) Bags(ctx context.Context, lotID int64) ([]Bag, error) {
	return r.listBags(ctx, `SELECT id, lot_id, bag_number, weight, buyer_id, created_at
FROM bags WHERE lot_id=$1 ORDER BY bag_number`, lotID)
}

// BagsForBuyer returns only the bags of a lot assigned to the buyer.
func (r *Repository) BagsForBuyer(ctx context.Context, lotID, buyerID int64) ([]Bag, error) {
	return r.listBags(ctx, `SELECT id, lot_id, bag_number, weight, buyer_id, created_at
FROM bags WHERE lot_id=$1 AND buyer_id=$2 ORDER BY bag_number`, lotID, buyerID)
}

// MarkBillGenerated flags a lot as billed and records its share of the
// invoice value as amount due.
func (r *Repository) MarkBillGenerated(ctx context.Context, tenantID, lotID int64, amountDue float64, at time.Time) error {
	_, err := r.pool.Exec(ctx, `UPDATE lots SET bill_generated=TRUE, bill_generated_at=$3, amount_due=$4, updated_at=NOW()
WHERE id=$1 AND tenant_id=$2`, lotID, tenantID, at, amountDue)
	return err
}

// MarkBilled flags a lot as billed without touching the buyer-side amount
// due; used by farmer bill generation.
func (r *Repository) MarkBilled(ctx context.Context, tenantID, lotID int64, at time.Time) error {
	_, err := r.pool.Exec(ctx, `UPDATE lots SET bill_generated=TRUE, bill_generated_at=$3, updated_at=NOW()
WHERE id=$1 AND tenant_id=$2`, lotID, tenantID, at)
	return err
}
