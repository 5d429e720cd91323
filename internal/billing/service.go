package billing

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/mandibook/mandibook/internal/ledger"
	"github.com/mandibook/mandibook/internal/lots"
	"github.com/mandibook/mandibook/internal/shared"
	"github.com/mandibook/mandibook/internal/tenant"
)

// RepositoryPort defines bill/invoice persistence and master data reads.
type RepositoryPort interface {
	GetFarmer(ctx context.Context, tenantID, farmerID int64) (Farmer, error)
	GetBuyer(ctx context.Context, tenantID, buyerID int64) (Buyer, error)
	GetTrader(ctx context.Context, tenantID int64) (Trader, error)
	FarmerBillExistsForDay(ctx context.Context, tenantID, farmerID int64, date time.Time) (bool, error)
	InsertFarmerBill(ctx context.Context, bill *FarmerBill) error
	ListFarmerBills(ctx context.Context, tenantID int64, from, to time.Time) ([]FarmerBill, error)
	TaxInvoiceExistsForDay(ctx context.Context, tenantID, buyerID int64, date time.Time) (bool, error)
	InvoicedLotNumbers(ctx context.Context, tenantID, buyerID int64, date time.Time) (map[string]struct{}, error)
	InsertTaxInvoice(ctx context.Context, inv *TaxInvoice) error
	ListTaxInvoices(ctx context.Context, tenantID int64, from, to time.Time) ([]TaxInvoice, error)
}

// LotsPort defines lot/bag reads and billing flags.
type LotsPort interface {
	CompletedForFarmerOnDate(ctx context.Context, tenantID, farmerID int64, date time.Time) ([]lots.Lot, error)
	CompletedForBuyerOnDate(ctx context.Context, tenantID, buyerID int64, date time.Time) ([]lots.BuyerLot, error)
	Bags(ctx context.Context, lotID int64) ([]lots.Bag, error)
	BagsForBuyer(ctx context.Context, lotID, buyerID int64) ([]lots.Bag, error)
	MarkBillGenerated(ctx context.Context, tenantID, lotID int64, amountDue float64, at time.Time) error
	MarkBilled(ctx context.Context, tenantID, lotID int64, at time.Time) error
}

// RatesPort resolves effective tenant rates.
type RatesPort interface {
	Rates(ctx context.Context, tenantID int64) (tenant.RateSettings, error)
}

// RecorderPort appends the accounting rows for generated documents.
type RecorderPort interface {
	RecordFarmerBillTransaction(ctx context.Context, txn ledger.FarmerBillTxn) ([]ledger.Entry, error)
	RecordTaxInvoiceTransaction(ctx context.Context, txn ledger.TaxInvoiceTxn) ([]ledger.Entry, error)
}

// IdempotencyPort guards generation against concurrent duplicates.
type IdempotencyPort interface {
	CheckAndInsert(ctx context.Context, key, module string) error
	Delete(ctx context.Context, key string) error
}

// CacheBumper invalidates derived report caches after document writes.
type CacheBumper interface {
	Bump(ctx context.Context) error
}

// Service generates farmer bills, buyer day bills, and tax invoices.
type Service struct {
	repo     RepositoryPort
	lots     LotsPort
	rates    RatesPort
	recorder RecorderPort
	idem     IdempotencyPort
	bumper   CacheBumper
	logger   *slog.Logger
	now      func() time.Time
}

// NewService constructs the billing service.
func NewService(repo RepositoryPort, lotsPort LotsPort, rates RatesPort, recorder RecorderPort, idem IdempotencyPort, logger *slog.Logger) *Service {
	return &Service{repo: repo, lots: lotsPort, rates: rates, recorder: recorder, idem: idem, logger: logger, now: time.Now}
}

// WithNow overrides the clock for testing.
func (s *Service) WithNow(now func() time.Time) {
	if now != nil {
		s.now = now
	}
}

// WithCacheBumper attaches a report cache invalidator.
func (s *Service) WithCacheBumper(bumper CacheBumper) {
	s.bumper = bumper
}

func (s *Service) bumpCache(ctx context.Context) {
	if s.bumper == nil {
		return
	}
	if err := s.bumper.Bump(ctx); err != nil {
		s.logger.Warn("bump report cache", slog.Any("error", err))
	}
}

// FarmerBillInput carries operator-entered deductions for a farmer day bill.
type FarmerBillInput struct {
	TenantID        int64
	FarmerID        int64
	Date            time.Time
	VehicleRent     float64
	EmptyBagCharges float64
	Advance         float64
	Rok             float64
	OtherCharges    float64
	UserID          int64
}

func sumBagWeight(bags []lots.Bag) float64 {
	var kg float64
	for _, b := range bags {
		if b.Weight != nil {
			kg += *b.Weight
		}
	}
	return kg
}

// lotLine computes the per-lot breakdown. withGST adds the buyer-side tax
// legs on top of the per-bag charges.
func lotLine(lot lots.Lot, bags []lots.Bag, rates tenant.RateSettings, withGST bool) LotLine {
	bagCount := len(bags)
	weightKg := sumBagWeight(bags)
	qtl := quintals(weightKg)
	gross := round2(qtl * lot.LotPrice)
	line := LotLine{
		LotID:        lot.ID,
		LotNumber:    lot.LotNumber,
		Bags:         bagCount,
		WeightKg:     round2(weightKg),
		Quintals:     round2(qtl),
		PricePerQtl:  lot.LotPrice,
		GrossAmount:  gross,
		UnloadHamali: round2(rates.UnloadHamali * float64(bagCount)),
		Packaging:    round2(rates.Packaging * float64(bagCount)),
		WeighingFee:  round2(rates.WeighingFee * float64(bagCount)),
		Commission:   round2(gross * rates.APMCCommission / 100),
	}
	charges := line.UnloadHamali + line.Packaging + line.WeighingFee + line.Commission
	if withGST {
		line.Cess = round2(gross * rates.Cess / 100)
		taxable := gross + charges + line.Cess
		line.SGST = round2(taxable * rates.SGST / 100)
		line.CGST = round2(taxable * rates.CGST / 100)
		line.NetAmount = round2(taxable + line.SGST + line.CGST)
	} else {
		line.NetAmount = round2(gross - charges)
	}
	return line
}

// GenerateFarmerDayBill builds and persists the farmer's settlement bill for
// the day. Returns nil when the farmer has no completed, priced lots.
func (s *Service) GenerateFarmerDayBill(ctx context.Context, in FarmerBillInput) (*FarmerBill, error) {
	if in.Date.IsZero() {
		in.Date = s.now()
	}
	completed, err := s.lots.CompletedForFarmerOnDate(ctx, in.TenantID, in.FarmerID, in.Date)
	if err != nil {
		return nil, err
	}
	if len(completed) == 0 {
		return nil, nil
	}
	exists, err := s.repo.FarmerBillExistsForDay(ctx, in.TenantID, in.FarmerID, in.Date)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, ErrDuplicateBill
	}
	rates, err := s.rates.Rates(ctx, in.TenantID)
	if err != nil {
		return nil, err
	}
	farmer, err := s.repo.GetFarmer(ctx, in.TenantID, in.FarmerID)
	if err != nil {
		return nil, err
	}

	idemKey := fmt.Sprintf("t:%d:farmer:%d:%s", in.TenantID, in.FarmerID, in.Date.Format("20060102"))
	if s.idem != nil {
		if err := s.idem.CheckAndInsert(ctx, idemKey, "billing.farmer_bill"); err != nil {
			if errors.Is(err, shared.ErrIdempotencyConflict) {
				return nil, ErrDuplicateBill
			}
			return nil, err
		}
	}

	bill := &FarmerBill{
		TenantID:        in.TenantID,
		PattiNumber:     fmt.Sprintf("PT-%s-%03d", in.Date.Format("20060102"), in.FarmerID),
		FarmerID:        in.FarmerID,
		Farmer:          farmer,
		BillDate:        in.Date,
		VehicleRent:     round2(in.VehicleRent),
		EmptyBagCharges: round2(in.EmptyBagCharges),
		Advance:         round2(in.Advance),
		Rok:             round2(in.Rok),
	}
	var otherCharges float64
	for _, lot := range completed {
		bags, err := s.lots.Bags(ctx, lot.ID)
		if err != nil {
			s.idemDelete(ctx, idemKey)
			return nil, err
		}
		line := lotLine(lot, bags, rates, false)
		bill.Lots = append(bill.Lots, line)
		bill.LotIDs = append(bill.LotIDs, lot.ID)
		bill.TotalBags += line.Bags
		bill.TotalWeight += line.WeightKg
		bill.TotalAmount += line.GrossAmount
		bill.Hamali += line.UnloadHamali
		otherCharges += line.Packaging + line.WeighingFee + line.Commission
	}
	bill.TotalWeight = round2(bill.TotalWeight)
	bill.TotalAmount = round2(bill.TotalAmount)
	bill.Hamali = round2(bill.Hamali)
	bill.OtherCharges = round2(in.OtherCharges + otherCharges)
	bill.TotalDeductions = round2(bill.Hamali + bill.VehicleRent + bill.EmptyBagCharges + bill.Advance + bill.Rok + bill.OtherCharges)
	bill.NetPayable = round2(bill.TotalAmount - bill.TotalDeductions)

	if err := s.repo.InsertFarmerBill(ctx, bill); err != nil {
		s.idemDelete(ctx, idemKey)
		return nil, err
	}
	s.bumpCache(ctx)

	for _, lotID := range bill.LotIDs {
		if err := s.lots.MarkBilled(ctx, in.TenantID, lotID, s.now()); err != nil {
			s.logger.Warn("mark lot billed", slog.Int64("lot_id", lotID), slog.Any("error", err))
		}
	}

	// Ledger recording is best-effort: a persisted bill with a missing trail
	// is tolerated over failing the whole operation.
	if s.recorder != nil {
		if _, err := s.recorder.RecordFarmerBillTransaction(ctx, ledger.FarmerBillTxn{
			TenantID:    in.TenantID,
			FarmerID:    in.FarmerID,
			BillID:      bill.ID,
			PattiNumber: bill.PattiNumber,
			TotalAmount: bill.TotalAmount,
			Rok:         bill.Rok,
			Date:        in.Date,
			UserID:      in.UserID,
		}); err != nil {
			s.logger.Error("record farmer bill transaction", slog.String("patti", bill.PattiNumber), slog.Any("error", err))
		}
	}
	return bill, nil
}

// GenerateBuyerDayBill computes the buyer's itemized day summary. It is a
// read-only preview; nothing is persisted. Returns nil when the buyer has no
// completed lots for the day.
func (s *Service) GenerateBuyerDayBill(ctx context.Context, tenantID, buyerID int64, date time.Time) (*BuyerDayBill, error) {
	if date.IsZero() {
		date = s.now()
	}
	buyerLots, err := s.lots.CompletedForBuyerOnDate(ctx, tenantID, buyerID, date)
	if err != nil {
		return nil, err
	}
	if len(buyerLots) == 0 {
		return nil, nil
	}
	rates, err := s.rates.Rates(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	buyer, err := s.repo.GetBuyer(ctx, tenantID, buyerID)
	if err != nil {
		return nil, err
	}
	trader, err := s.repo.GetTrader(ctx, tenantID)
	if err != nil {
		return nil, err
	}

	bill := &BuyerDayBill{BuyerID: buyerID, Buyer: buyer, Trader: trader, BillDate: date}
	for _, bl := range buyerLots {
		bags, err := s.bagsForAllocation(ctx, bl, buyerID)
		if err != nil {
			return nil, err
		}
		line := lotLine(bl.Lot, bags, rates, true)
		bill.Lots = append(bill.Lots, line)
		bill.TotalBags += line.Bags
		bill.TotalWeight += line.WeightKg
		bill.GrossAmount += line.GrossAmount
		bill.UnloadHamali += line.UnloadHamali
		bill.Packaging += line.Packaging
		bill.WeighingFee += line.WeighingFee
		bill.Commission += line.Commission
		bill.SGST += line.SGST
		bill.CGST += line.CGST
		bill.Cess += line.Cess
		bill.TotalAmount += line.NetAmount
	}
	bill.TotalWeight = round2(bill.TotalWeight)
	bill.GrossAmount = round2(bill.GrossAmount)
	bill.UnloadHamali = round2(bill.UnloadHamali)
	bill.Packaging = round2(bill.Packaging)
	bill.WeighingFee = round2(bill.WeighingFee)
	bill.Commission = round2(bill.Commission)
	bill.SGST = round2(bill.SGST)
	bill.CGST = round2(bill.CGST)
	bill.Cess = round2(bill.Cess)
	bill.TotalAmount = round2(bill.TotalAmount)
	return bill, nil
}

func (s *Service) bagsForAllocation(ctx context.Context, bl lots.BuyerLot, buyerID int64) ([]lots.Bag, error) {
	if bl.Allocation == lots.AllocationMulti {
		return s.lots.BagsForBuyer(ctx, bl.Lot.ID, buyerID)
	}
	return s.lots.Bags(ctx, bl.Lot.ID)
}

// GenerateTaxInvoice builds and persists the buyer's GST invoice for the day.
// Lots already referenced by an existing invoice for the buyer and day are
// excluded; when nothing qualifies the result is nil.
func (s *Service) GenerateTaxInvoice(ctx context.Context, tenantID, buyerID int64, date time.Time, userID int64) (*TaxInvoice, error) {
	if date.IsZero() {
		date = s.now()
	}
	buyerLots, err := s.lots.CompletedForBuyerOnDate(ctx, tenantID, buyerID, date)
	if err != nil {
		return nil, err
	}
	// The lot-number scan only matters once an invoice exists for the day;
	// the existence check keeps the common first-invoice path to one query.
	processed := map[string]struct{}{}
	invoiced, err := s.repo.TaxInvoiceExistsForDay(ctx, tenantID, buyerID, date)
	if err != nil {
		return nil, err
	}
	if invoiced {
		processed, err = s.repo.InvoicedLotNumbers(ctx, tenantID, buyerID, date)
		if err != nil {
			return nil, err
		}
	}
	pending := buyerLots[:0]
	for _, bl := range buyerLots {
		if _, ok := processed[bl.Lot.LotNumber]; ok {
			continue
		}
		pending = append(pending, bl)
	}
	if len(pending) == 0 {
		return nil, nil
	}
	rates, err := s.rates.Rates(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	buyer, err := s.repo.GetBuyer(ctx, tenantID, buyerID)
	if err != nil {
		return nil, err
	}
	trader, err := s.repo.GetTrader(ctx, tenantID)
	if err != nil {
		return nil, err
	}

	idemKey := fmt.Sprintf("t:%d:buyer:%d:%s", tenantID, buyerID, date.Format("20060102"))
	if s.idem != nil {
		if err := s.idem.CheckAndInsert(ctx, idemKey, "billing.tax_invoice"); err != nil {
			if errors.Is(err, shared.ErrIdempotencyConflict) {
				return nil, ErrDuplicateInvoice
			}
			return nil, err
		}
	}

	inv := &TaxInvoice{
		TenantID:      tenantID,
		InvoiceNumber: fmt.Sprintf("INV-%s-%03d", date.Format("20060102"), buyerID),
		BuyerID:       buyerID,
		Buyer:         buyer,
		Trader:        trader,
		InvoiceDate:   date,
	}
	lotBasics := make([]float64, 0, len(pending))
	for _, bl := range pending {
		bags, err := s.bagsForAllocation(ctx, bl, buyerID)
		if err != nil {
			s.idemDelete(ctx, idemKey)
			return nil, err
		}
		line := lotLine(bl.Lot, bags, rates, true)
		inv.Lots = append(inv.Lots, line)
		inv.LotIDs = append(inv.LotIDs, bl.Lot.ID)
		inv.LotNumbers = append(inv.LotNumbers, bl.Lot.LotNumber)
		inv.TotalBags += line.Bags
		inv.TotalWeight += line.WeightKg
		inv.BasicAmount += line.GrossAmount
		lotBasics = append(lotBasics, line.GrossAmount)
	}
	inv.TotalWeight = round2(inv.TotalWeight)
	inv.BasicAmount = round2(inv.BasicAmount)
	inv.Packaging = round2(float64(inv.TotalBags) * rates.Packaging)
	inv.Hamali = round2(float64(inv.TotalBags) * rates.UnloadHamali)
	inv.WeighingCharges = round2(float64(inv.TotalBags) * rates.WeighingFee)
	inv.Commission = round2(inv.BasicAmount * rates.APMCCommission / 100)
	inv.Cess = round2(inv.BasicAmount * rates.Cess / 100)
	inv.TaxableAmount = round2(inv.BasicAmount + inv.Packaging + inv.Hamali + inv.WeighingCharges + inv.Commission + inv.Cess)
	inv.SGST = round2(inv.TaxableAmount * rates.SGST / 100)
	inv.CGST = round2(inv.TaxableAmount * rates.CGST / 100)
	inv.TotalGST = round2(inv.SGST + inv.CGST + inv.IGST)
	inv.TotalAmount = round2(inv.TaxableAmount + inv.TotalGST)

	if err := s.repo.InsertTaxInvoice(ctx, inv); err != nil {
		s.idemDelete(ctx, idemKey)
		return nil, err
	}
	s.bumpCache(ctx)

	now := s.now()
	for i, lotID := range inv.LotIDs {
		share := 0.0
		if inv.BasicAmount > 0 {
			share = round2(lotBasics[i] / inv.BasicAmount * inv.TotalAmount)
		}
		if err := s.lots.MarkBillGenerated(ctx, tenantID, lotID, share, now); err != nil {
			s.logger.Warn("mark lot bill generated", slog.Int64("lot_id", lotID), slog.Any("error", err))
		}
	}

	if s.recorder != nil {
		charges := round2(inv.Packaging + inv.Hamali + inv.WeighingCharges + inv.Commission + inv.Cess)
		if _, err := s.recorder.RecordTaxInvoiceTransaction(ctx, ledger.TaxInvoiceTxn{
			TenantID:      tenantID,
			BuyerID:       buyerID,
			InvoiceID:     inv.ID,
			InvoiceNumber: inv.InvoiceNumber,
			BasicAmount:   inv.BasicAmount,
			TotalCharges:  charges,
			TotalAmount:   inv.TotalAmount,
			Date:          date,
			UserID:        userID,
		}); err != nil {
			s.logger.Error("record tax invoice transaction", slog.String("invoice", inv.InvoiceNumber), slog.Any("error", err))
		}
	}
	return inv, nil
}

// ListFarmerBills returns persisted bills in the window.
func (s *Service) ListFarmerBills(ctx context.Context, tenantID int64, from, to time.Time) ([]FarmerBill, error) {
	return s.repo.ListFarmerBills(ctx, tenantID, from, to)
}

// ListTaxInvoices returns persisted invoices in the window.
func (s *Service) ListTaxInvoices(ctx context.Context, tenantID int64, from, to time.Time) ([]TaxInvoice, error) {
	return s.repo.ListTaxInvoices(ctx, tenantID, from, to)
}

func (s *Service) idemDelete(ctx context.Context, key string) {
	if s.idem == nil {
		return
	}
	if err := s.idem.Delete(ctx, key); err != nil {
		s.logger.Warn("release idempotency key", slog.String("key", key), slog.Any("error", err))
	}
}
