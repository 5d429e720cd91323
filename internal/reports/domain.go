package reports

import (
	"math"
	"time"
)

// ReportKind names the compliance report being produced.
type ReportKind string

const (
	KindTax  ReportKind = "tax"
	KindCess ReportKind = "cess"
	KindGST  ReportKind = "gst"
)

// Row is one completed lot with the full charge breakdown re-derived from its
// bags, independent of the ledger.
type Row struct {
	LotID       int64     `json:"lotId"`
	LotNumber   string    `json:"lotNumber"`
	FarmerID    int64     `json:"farmerId"`
	Date        time.Time `json:"date"`
	Bags        int       `json:"bags"`
	WeightKg    float64   `json:"weightKg"`
	Quintals    float64   `json:"quintals"`
	PricePerQtl float64   `json:"pricePerQuintal"`
	BasicAmount float64   `json:"basicAmount"`
	Packaging   float64   `json:"packaging"`
	Hamali      float64   `json:"hamali"`
	WeighingFee float64   `json:"weighingFee"`
	Commission  float64   `json:"commission"`
	Cess        float64   `json:"cess"`
	Taxable     float64   `json:"taxableAmount"`
	SGST        float64   `json:"sgst"`
	CGST        float64   `json:"cgst"`
	TotalAmount float64   `json:"totalAmount"`
}

// Summary aggregates the rows of one report.
type Summary struct {
	Lots        int     `json:"lots"`
	TotalBags   int     `json:"totalBags"`
	TotalWeight float64 `json:"totalWeight"`
	BasicAmount float64 `json:"basicAmount"`
	Packaging   float64 `json:"packaging"`
	Hamali      float64 `json:"hamali"`
	WeighingFee float64 `json:"weighingFee"`
	Commission  float64 `json:"commission"`
	Cess        float64 `json:"cess"`
	SGST        float64 `json:"sgst"`
	CGST        float64 `json:"cgst"`
	TotalTax    float64 `json:"totalTax"`
	TotalAmount float64 `json:"totalAmount"`
}

// Report is the transaction list plus summary returned to callers.
type Report struct {
	Kind    ReportKind `json:"kind"`
	Type    ReportType `json:"reportType"`
	Start   time.Time  `json:"startDate"`
	End     time.Time  `json:"endDate"`
	Rows    []Row      `json:"transactions"`
	Summary Summary    `json:"summary"`
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
