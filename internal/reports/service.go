package reports

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/mandibook/mandibook/internal/lots"
	"github.com/mandibook/mandibook/internal/tenant"
)

// LotsPort reads completed lots and their bags.
type LotsPort interface {
	CompletedInRange(ctx context.Context, tenantID int64, from, to time.Time) ([]lots.Lot, error)
	Bags(ctx context.Context, lotID int64) ([]lots.Bag, error)
}

// RatesPort resolves effective tenant rates.
type RatesPort interface {
	Rates(ctx context.Context, tenantID int64) (tenant.RateSettings, error)
}

// Service builds compliance reports by re-deriving per-lot charges from bags.
// It never reads the ledger.
type Service struct {
	lots   LotsPort
	rates  RatesPort
	cache  *Cache
	group  singleflight.Group
	logger *slog.Logger
}

// NewService constructs the report service.
func NewService(lotsPort LotsPort, rates RatesPort, cache *Cache, logger *slog.Logger) *Service {
	return &Service{lots: lotsPort, rates: rates, cache: cache, logger: logger}
}

// GenerateTaxReport builds the full-tax report for the window.
func (s *Service) GenerateTaxReport(ctx context.Context, tenantID int64, start, end time.Time, reportType ReportType) (*Report, error) {
	return s.generate(ctx, KindTax, tenantID, start, end, reportType)
}

// GenerateCessReport builds the cess report for the window.
func (s *Service) GenerateCessReport(ctx context.Context, tenantID int64, start, end time.Time, reportType ReportType) (*Report, error) {
	return s.generate(ctx, KindCess, tenantID, start, end, reportType)
}

// GenerateGSTReport builds the SGST/CGST report for the window.
func (s *Service) GenerateGSTReport(ctx context.Context, tenantID int64, start, end time.Time, reportType ReportType) (*Report, error) {
	return s.generate(ctx, KindGST, tenantID, start, end, reportType)
}

func (s *Service) generate(ctx context.Context, kind ReportKind, tenantID int64, start, end time.Time, reportType ReportType) (*Report, error) {
	key, err := s.cache.BuildKey(ctx, "reports", string(kind), strconv.FormatInt(tenantID, 10),
		start.Format("2006-01-02"), end.Format("2006-01-02"))
	if err != nil {
		return nil, err
	}
	result, err, _ := s.group.Do(key, func() (interface{}, error) {
		var report Report
		err := s.cache.FetchJSON(ctx, key, &report, func(ctx context.Context) (interface{}, error) {
			return s.build(ctx, kind, tenantID, start, end, reportType)
		})
		if err != nil {
			return nil, err
		}
		return &report, nil
	})
	if err != nil {
		return nil, err
	}
	report, ok := result.(*Report)
	if !ok {
		return nil, fmt.Errorf("reports: unexpected cached type %T", result)
	}
	return report, nil
}

func (s *Service) build(ctx context.Context, kind ReportKind, tenantID int64, start, end time.Time, reportType ReportType) (*Report, error) {
	completed, err := s.lots.CompletedInRange(ctx, tenantID, start, end)
	if err != nil {
		return nil, err
	}
	rates, err := s.rates.Rates(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	report := &Report{Kind: kind, Type: reportType, Start: start, End: end, Rows: []Row{}}
	for _, lot := range completed {
		if lot.LotPrice <= 0 {
			continue
		}
		bags, err := s.lots.Bags(ctx, lot.ID)
		if err != nil {
			return nil, err
		}
		row := buildRow(lot, bags, rates)
		report.Rows = append(report.Rows, row)
		sum := &report.Summary
		sum.Lots++
		sum.TotalBags += row.Bags
		sum.TotalWeight += row.WeightKg
		sum.BasicAmount += row.BasicAmount
		sum.Packaging += row.Packaging
		sum.Hamali += row.Hamali
		sum.WeighingFee += row.WeighingFee
		sum.Commission += row.Commission
		sum.Cess += row.Cess
		sum.SGST += row.SGST
		sum.CGST += row.CGST
		sum.TotalAmount += row.TotalAmount
	}
	sum := &report.Summary
	sum.TotalWeight = round2(sum.TotalWeight)
	sum.BasicAmount = round2(sum.BasicAmount)
	sum.Packaging = round2(sum.Packaging)
	sum.Hamali = round2(sum.Hamali)
	sum.WeighingFee = round2(sum.WeighingFee)
	sum.Commission = round2(sum.Commission)
	sum.Cess = round2(sum.Cess)
	sum.SGST = round2(sum.SGST)
	sum.CGST = round2(sum.CGST)
	sum.TotalAmount = round2(sum.TotalAmount)
	switch kind {
	case KindCess:
		sum.TotalTax = sum.Cess
	case KindGST:
		sum.TotalTax = round2(sum.SGST + sum.CGST)
	default:
		sum.TotalTax = round2(sum.SGST + sum.CGST + sum.Cess)
	}
	return report, nil
}

// buildRow re-derives one lot's charges from its bags using the invoice
// formulas.
func buildRow(lot lots.Lot, bags []lots.Bag, rates tenant.RateSettings) Row {
	var weightKg float64
	for _, b := range bags {
		if b.Weight != nil {
			weightKg += *b.Weight
		}
	}
	qtl := weightKg / 100
	basic := round2(qtl * lot.LotPrice)
	row := Row{
		LotID:       lot.ID,
		LotNumber:   lot.LotNumber,
		FarmerID:    lot.FarmerID,
		Date:        lot.CreatedAt,
		Bags:        len(bags),
		WeightKg:    round2(weightKg),
		Quintals:    round2(qtl),
		PricePerQtl: lot.LotPrice,
		BasicAmount: basic,
		Packaging:   round2(float64(len(bags)) * rates.Packaging),
		Hamali:      round2(float64(len(bags)) * rates.UnloadHamali),
		WeighingFee: round2(float64(len(bags)) * rates.WeighingFee),
		Commission:  round2(basic * rates.APMCCommission / 100),
		Cess:        round2(basic * rates.Cess / 100),
	}
	row.Taxable = round2(basic + row.Packaging + row.Hamali + row.WeighingFee + row.Commission + row.Cess)
	row.SGST = round2(row.Taxable * rates.SGST / 100)
	row.CGST = round2(row.Taxable * rates.CGST / 100)
	row.TotalAmount = round2(row.Taxable + row.SGST + row.CGST)
	return row
}
