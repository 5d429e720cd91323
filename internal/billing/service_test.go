package billing

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/mandibook/mandibook/internal/ledger"
	"github.com/mandibook/mandibook/internal/lots"
	"github.com/mandibook/mandibook/internal/shared"
	"github.com/mandibook/mandibook/internal/tenant"
)

type memoryBillingRepo struct {
	bills          []FarmerBill
	invoices       []TaxInvoice
	invoiced       map[string]struct{}
	lotNumberScans int
	nextID         int64
}

func newMemoryBillingRepo() *memoryBillingRepo {
	return &memoryBillingRepo{invoiced: make(map[string]struct{})}
}

func (r *memoryBillingRepo) GetFarmer(ctx context.Context, tenantID, farmerID int64) (Farmer, error) {
	return Farmer{ID: farmerID, Name: "Ramesh", Village: "Kelwad"}, nil
}

func (r *memoryBillingRepo) GetBuyer(ctx context.Context, tenantID, buyerID int64) (Buyer, error) {
	return Buyer{ID: buyerID, Name: "Shree Traders", GSTIN: "27ABCDE1234F1Z5"}, nil
}

func (r *memoryBillingRepo) GetTrader(ctx context.Context, tenantID int64) (Trader, error) {
	return Trader{Name: "Mandi House", APMCName: "Nagpur APMC"}, nil
}

func (r *memoryBillingRepo) FarmerBillExistsForDay(ctx context.Context, tenantID, farmerID int64, date time.Time) (bool, error) {
	for _, b := range r.bills {
		if b.FarmerID == farmerID && b.BillDate.Format("20060102") == date.Format("20060102") {
			return true, nil
		}
	}
	return false, nil
}

func (r *memoryBillingRepo) InsertFarmerBill(ctx context.Context, bill *FarmerBill) error {
	r.nextID++
	bill.ID = r.nextID
	r.bills = append(r.bills, *bill)
	return nil
}

func (r *memoryBillingRepo) ListFarmerBills(ctx context.Context, tenantID int64, from, to time.Time) ([]FarmerBill, error) {
	return r.bills, nil
}

func (r *memoryBillingRepo) TaxInvoiceExistsForDay(ctx context.Context, tenantID, buyerID int64, date time.Time) (bool, error) {
	for _, inv := range r.invoices {
		if inv.BuyerID == buyerID && inv.InvoiceDate.Format("20060102") == date.Format("20060102") {
			return true, nil
		}
	}
	return false, nil
}

func (r *memoryBillingRepo) InvoicedLotNumbers(ctx context.Context, tenantID, buyerID int64, date time.Time) (map[string]struct{}, error) {
	r.lotNumberScans++
	return r.invoiced, nil
}

func (r *memoryBillingRepo) InsertTaxInvoice(ctx context.Context, inv *TaxInvoice) error {
	r.nextID++
	inv.ID = r.nextID
	r.invoices = append(r.invoices, *inv)
	for _, n := range inv.LotNumbers {
		r.invoiced[n] = struct{}{}
	}
	return nil
}

func (r *memoryBillingRepo) ListTaxInvoices(ctx context.Context, tenantID int64, from, to time.Time) ([]TaxInvoice, error) {
	return r.invoices, nil
}

type memoryLotSource struct {
	farmerLots []lots.Lot
	buyerLots  []lots.BuyerLot
	bags       map[int64][]lots.Bag
	billed     []int64
	amountDue  map[int64]float64
}

func (s *memoryLotSource) CompletedForFarmerOnDate(ctx context.Context, tenantID, farmerID int64, date time.Time) ([]lots.Lot, error) {
	return s.farmerLots, nil
}

func (s *memoryLotSource) CompletedForBuyerOnDate(ctx context.Context, tenantID, buyerID int64, date time.Time) ([]lots.BuyerLot, error) {
	return s.buyerLots, nil
}

func (s *memoryLotSource) Bags(ctx context.Context, lotID int64) ([]lots.Bag, error) {
	return s.bags[lotID], nil
}

func (s *memoryLotSource) BagsForBuyer(ctx context.Context, lotID, buyerID int64) ([]lots.Bag, error) {
	var out []lots.Bag
	for _, b := range s.bags[lotID] {
		if b.BuyerID != nil && *b.BuyerID == buyerID {
			out = append(out, b)
		}
	}
	return out, nil
}

func (s *memoryLotSource) MarkBillGenerated(ctx context.Context, tenantID, lotID int64, amountDue float64, at time.Time) error {
	if s.amountDue == nil {
		s.amountDue = make(map[int64]float64)
	}
	s.amountDue[lotID] = amountDue
	return nil
}

func (s *memoryLotSource) MarkBilled(ctx context.Context, tenantID, lotID int64, at time.Time) error {
	s.billed = append(s.billed, lotID)
	return nil
}

type fixedRates struct{}

func (fixedRates) Rates(ctx context.Context, tenantID int64) (tenant.RateSettings, error) {
	return tenant.DefaultRates, nil
}

type recorderSpy struct {
	farmerTxns  []ledger.FarmerBillTxn
	invoiceTxns []ledger.TaxInvoiceTxn
	err         error
}

func (r *recorderSpy) RecordFarmerBillTransaction(ctx context.Context, txn ledger.FarmerBillTxn) ([]ledger.Entry, error) {
	r.farmerTxns = append(r.farmerTxns, txn)
	return nil, r.err
}

func (r *recorderSpy) RecordTaxInvoiceTransaction(ctx context.Context, txn ledger.TaxInvoiceTxn) ([]ledger.Entry, error) {
	r.invoiceTxns = append(r.invoiceTxns, txn)
	return nil, r.err
}

type memoryIdempotency struct {
	keys map[string]struct{}
}

func (m *memoryIdempotency) CheckAndInsert(ctx context.Context, key, module string) error {
	if m.keys == nil {
		m.keys = make(map[string]struct{})
	}
	if _, ok := m.keys[key]; ok {
		return shared.ErrIdempotencyConflict
	}
	m.keys[key] = struct{}{}
	return nil
}

func (m *memoryIdempotency) Delete(ctx context.Context, key string) error {
	delete(m.keys, key)
	return nil
}

func weightPtr(v float64) *float64 { return &v }

// tenLotBags builds 10 bags of 50kg each, 500kg total.
func tenLotBags(lotID int64) []lots.Bag {
	bags := make([]lots.Bag, 0, 10)
	for i := 1; i <= 10; i++ {
		bags = append(bags, lots.Bag{ID: int64(i), LotID: lotID, BagNumber: i, Weight: weightPtr(50)})
	}
	return bags
}

func billingFixture() (*Service, *memoryBillingRepo, *memoryLotSource, *recorderSpy) {
	repo := newMemoryBillingRepo()
	source := &memoryLotSource{bags: map[int64][]lots.Bag{1: tenLotBags(1)}}
	recorder := &recorderSpy{}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	svc := NewService(repo, source, fixedRates{}, recorder, &memoryIdempotency{}, logger)
	svc.WithNow(func() time.Time {
		return time.Date(2024, time.June, 10, 14, 0, 0, 0, time.UTC)
	})
	return svc, repo, source, recorder
}

func TestGenerateFarmerDayBill(t *testing.T) {
	svc, repo, source, recorder := billingFixture()
	source.farmerLots = []lots.Lot{{
		ID: 1, TenantID: 1, LotNumber: "L-101", FarmerID: 7,
		NumberOfBags: 10, LotPrice: 2000, Status: lots.LotStatusCompleted,
	}}

	bill, err := svc.GenerateFarmerDayBill(context.Background(), FarmerBillInput{
		TenantID: 1, FarmerID: 7, UserID: 3,
	})
	require.NoError(t, err)
	require.NotNil(t, bill)

	// 500 kg at 2000/qtl is 10000 gross. Default rates on 10 bags deduct
	// 30 hamali plus 270 folded into other charges.
	require.Equal(t, "PT-20240610-007", bill.PattiNumber)
	require.Equal(t, 10, bill.TotalBags)
	require.Equal(t, 500.0, bill.TotalWeight)
	require.Equal(t, 10000.0, bill.TotalAmount)
	require.Equal(t, 30.0, bill.Hamali)
	require.Equal(t, 270.0, bill.OtherCharges)
	require.Equal(t, 300.0, bill.TotalDeductions)
	require.Equal(t, 9700.0, bill.NetPayable)
	require.Equal(t, bill.NetPayable, bill.TotalAmount-bill.TotalDeductions)

	require.Equal(t, []int64{1}, source.billed)
	require.Len(t, repo.bills, 1)
	require.Len(t, recorder.farmerTxns, 1)
	require.Equal(t, 10000.0, recorder.farmerTxns[0].TotalAmount)
}

func TestGenerateFarmerDayBillOperatorDeductions(t *testing.T) {
	svc, _, source, _ := billingFixture()
	source.farmerLots = []lots.Lot{{
		ID: 1, LotNumber: "L-101", FarmerID: 7, LotPrice: 2000, Status: lots.LotStatusCompleted,
	}}

	bill, err := svc.GenerateFarmerDayBill(context.Background(), FarmerBillInput{
		TenantID: 1, FarmerID: 7,
		VehicleRent: 100, EmptyBagCharges: 40, Advance: 500, Rok: 150, OtherCharges: 10,
	})
	require.NoError(t, err)
	require.Equal(t, 280.0, bill.OtherCharges)
	require.Equal(t, 30.0+100+40+500+150+280, bill.TotalDeductions)
	require.Equal(t, 10000.0-bill.TotalDeductions, bill.NetPayable)
}

func TestGenerateFarmerDayBillNoLots(t *testing.T) {
	svc, _, _, _ := billingFixture()
	bill, err := svc.GenerateFarmerDayBill(context.Background(), FarmerBillInput{TenantID: 1, FarmerID: 7})
	require.NoError(t, err)
	require.Nil(t, bill)
}

func TestGenerateFarmerDayBillRejectsSecondBillForDay(t *testing.T) {
	svc, _, source, _ := billingFixture()
	source.farmerLots = []lots.Lot{{
		ID: 1, LotNumber: "L-101", FarmerID: 7, LotPrice: 2000, Status: lots.LotStatusCompleted,
	}}
	in := FarmerBillInput{TenantID: 1, FarmerID: 7}

	_, err := svc.GenerateFarmerDayBill(context.Background(), in)
	require.NoError(t, err)

	_, err = svc.GenerateFarmerDayBill(context.Background(), in)
	require.ErrorIs(t, err, ErrDuplicateBill)
}

func TestGenerateTaxInvoice(t *testing.T) {
	svc, repo, source, recorder := billingFixture()
	source.buyerLots = []lots.BuyerLot{{
		Lot: lots.Lot{
			ID: 1, TenantID: 1, LotNumber: "L-101", FarmerID: 7,
			NumberOfBags: 10, LotPrice: 2000, Status: lots.LotStatusCompleted,
		},
		Allocation: lots.AllocationSingle,
	}}

	inv, err := svc.GenerateTaxInvoice(context.Background(), 1, 9, time.Time{}, 3)
	require.NoError(t, err)
	require.NotNil(t, inv)

	require.Equal(t, "INV-20240610-009", inv.InvoiceNumber)
	require.Equal(t, 10000.0, inv.BasicAmount)
	require.Equal(t, 50.0, inv.Packaging)
	require.Equal(t, 30.0, inv.Hamali)
	require.Equal(t, 20.0, inv.WeighingCharges)
	require.Equal(t, 200.0, inv.Commission)
	require.Equal(t, 60.0, inv.Cess)
	require.Equal(t, 10360.0, inv.TaxableAmount)
	require.Equal(t, 259.0, inv.SGST)
	require.Equal(t, 259.0, inv.CGST)
	require.Equal(t, 518.0, inv.TotalGST)
	require.Equal(t, 10878.0, inv.TotalAmount)

	// Single lot carries the full invoice value as its due amount.
	require.Equal(t, 10878.0, source.amountDue[1])
	require.Len(t, repo.invoices, 1)
	require.Len(t, recorder.invoiceTxns, 1)
	require.Equal(t, 360.0, recorder.invoiceTxns[0].TotalCharges)
	require.Equal(t, 10878.0, recorder.invoiceTxns[0].TotalAmount)
}

func TestGenerateTaxInvoiceSkipsAlreadyInvoicedLots(t *testing.T) {
	svc, repo, source, _ := billingFixture()
	source.buyerLots = []lots.BuyerLot{{
		Lot: lots.Lot{ID: 1, LotNumber: "L-101", LotPrice: 2000, Status: lots.LotStatusCompleted},
	}}

	first, err := svc.GenerateTaxInvoice(context.Background(), 1, 9, time.Time{}, 3)
	require.NoError(t, err)
	require.NotNil(t, first)

	// Same day, same lots: nothing left to invoice.
	second, err := svc.GenerateTaxInvoice(context.Background(), 1, 9, time.Time{}, 3)
	require.NoError(t, err)
	require.Nil(t, second)
	require.Len(t, repo.invoices, 1)
}

func TestGenerateTaxInvoiceScansLotNumbersOnlyAfterFirstInvoice(t *testing.T) {
	svc, repo, source, _ := billingFixture()
	source.buyerLots = []lots.BuyerLot{{
		Lot: lots.Lot{ID: 1, LotNumber: "L-101", LotPrice: 2000, Status: lots.LotStatusCompleted},
	}}

	first, err := svc.GenerateTaxInvoice(context.Background(), 1, 9, time.Time{}, 3)
	require.NoError(t, err)
	require.NotNil(t, first)
	require.Zero(t, repo.lotNumberScans)

	second, err := svc.GenerateTaxInvoice(context.Background(), 1, 9, time.Time{}, 3)
	require.NoError(t, err)
	require.Nil(t, second)
	require.Equal(t, 1, repo.lotNumberScans)
}

func TestGenerateTaxInvoiceMultiAllocationUsesBuyerBags(t *testing.T) {
	svc, _, source, _ := billingFixture()
	buyerID := int64(9)
	bags := tenLotBags(1)
	for i := range bags {
		if i < 4 {
			bags[i].BuyerID = &buyerID
		}
	}
	source.bags[1] = bags
	source.buyerLots = []lots.BuyerLot{{
		Lot:        lots.Lot{ID: 1, LotNumber: "L-101", LotPrice: 2000, Status: lots.LotStatusCompleted},
		Allocation: lots.AllocationMulti,
	}}

	inv, err := svc.GenerateTaxInvoice(context.Background(), 1, buyerID, time.Time{}, 3)
	require.NoError(t, err)
	require.NotNil(t, inv)
	require.Equal(t, 4, inv.TotalBags)
	require.Equal(t, 200.0, inv.TotalWeight)
	require.Equal(t, 4000.0, inv.BasicAmount)
}

func TestGenerateBuyerDayBillPreview(t *testing.T) {
	svc, repo, source, _ := billingFixture()
	source.buyerLots = []lots.BuyerLot{{
		Lot: lots.Lot{ID: 1, LotNumber: "L-101", LotPrice: 2000, Status: lots.LotStatusCompleted},
	}}

	bill, err := svc.GenerateBuyerDayBill(context.Background(), 1, 9, time.Time{})
	require.NoError(t, err)
	require.NotNil(t, bill)
	require.Equal(t, 10000.0, bill.GrossAmount)
	require.NotZero(t, bill.SGST)
	require.Empty(t, repo.invoices)
	require.Empty(t, repo.bills)
}
