package billing

import (
	"errors"
	"math"
	"time"
)

// Money amounts are rupees carried as float64 and rounded to two decimals at
// document boundaries. Weights are kilograms; prices are rupees per quintal.
const kgPerQuintal = 100.0

// Farmer identity block for bill printing.
type Farmer struct {
	ID      int64
	Name    string
	Village string
	Mobile  string
}

// Buyer identity block for invoice printing.
type Buyer struct {
	ID      int64
	Name    string
	Address string
	Mobile  string
	GSTIN   string
}

// Trader identity block (the tenant's own letterhead details).
type Trader struct {
	Name     string
	APMCName string
	Address  string
	Mobile   string
	GSTIN    string
}

// LotLine is the per-lot breakdown carried inside bills and invoices.
type LotLine struct {
	LotID        int64   `json:"lotId"`
	LotNumber    string  `json:"lotNumber"`
	Bags         int     `json:"bags"`
	WeightKg     float64 `json:"weightKg"`
	Quintals     float64 `json:"quintals"`
	PricePerQtl  float64 `json:"pricePerQuintal"`
	GrossAmount  float64 `json:"grossAmount"`
	UnloadHamali float64 `json:"unloadHamali"`
	Packaging    float64 `json:"packaging"`
	WeighingFee  float64 `json:"weighingFee"`
	Commission   float64 `json:"commission"`
	SGST         float64 `json:"sgst,omitempty"`
	CGST         float64 `json:"cgst,omitempty"`
	Cess         float64 `json:"cess,omitempty"`
	NetAmount    float64 `json:"netAmount"`
}

// FarmerBill is the farmer day settlement (patti). Packaging, weighing fee
// and commission charges are folded into OtherCharges so that
// NetPayable == TotalAmount - (Hamali+VehicleRent+EmptyBagCharges+Advance+Rok+OtherCharges).
type FarmerBill struct {
	ID              int64     `json:"id"`
	TenantID        int64     `json:"-"`
	PattiNumber     string    `json:"pattiNumber"`
	FarmerID        int64     `json:"farmerId"`
	Farmer          Farmer    `json:"farmer"`
	BillDate        time.Time `json:"billDate"`
	TotalBags       int       `json:"totalBags"`
	TotalWeight     float64   `json:"totalWeight"`
	TotalAmount     float64   `json:"totalAmount"`
	Hamali          float64   `json:"hamali"`
	VehicleRent     float64   `json:"vehicleRent"`
	EmptyBagCharges float64   `json:"emptyBagCharges"`
	Advance         float64   `json:"advance"`
	Rok             float64   `json:"rok"`
	OtherCharges    float64   `json:"otherCharges"`
	TotalDeductions float64   `json:"totalDeductions"`
	NetPayable      float64   `json:"netPayable"`
	LotIDs          []int64   `json:"lotIds"`
	Lots            []LotLine `json:"lots"`
	CreatedAt       time.Time `json:"createdAt"`
}

// BuyerDayBill is the itemized buyer-side day summary used for printing. It
// is computed on demand and never persisted; the tax invoice is the durable
// artifact.
type BuyerDayBill struct {
	BuyerID      int64     `json:"buyerId"`
	Buyer        Buyer     `json:"buyer"`
	Trader       Trader    `json:"trader"`
	BillDate     time.Time `json:"billDate"`
	Lots         []LotLine `json:"lots"`
	TotalBags    int       `json:"totalBags"`
	TotalWeight  float64   `json:"totalWeight"`
	GrossAmount  float64   `json:"grossAmount"`
	UnloadHamali float64   `json:"unloadHamali"`
	Packaging    float64   `json:"packaging"`
	WeighingFee  float64   `json:"weighingFee"`
	Commission   float64   `json:"commission"`
	SGST         float64   `json:"sgst"`
	CGST         float64   `json:"cgst"`
	Cess         float64   `json:"cess"`
	TotalAmount  float64   `json:"totalAmount"`
}

// TaxInvoice is the buyer-facing GST invoice.
type TaxInvoice struct {
	ID              int64     `json:"id"`
	TenantID        int64     `json:"-"`
	InvoiceNumber   string    `json:"invoiceNumber"`
	BuyerID         int64     `json:"buyerId"`
	Buyer           Buyer     `json:"buyer"`
	Trader          Trader    `json:"trader"`
	InvoiceDate     time.Time `json:"invoiceDate"`
	TotalBags       int       `json:"totalBags"`
	TotalWeight     float64   `json:"totalWeight"`
	BasicAmount     float64   `json:"basicAmount"`
	Packaging       float64   `json:"packaging"`
	Hamali          float64   `json:"hamali"`
	WeighingCharges float64   `json:"weighingCharges"`
	Commission      float64   `json:"commission"`
	Cess            float64   `json:"cess"`
	TaxableAmount   float64   `json:"taxableAmount"`
	SGST            float64   `json:"sgst"`
	CGST            float64   `json:"cgst"`
	IGST            float64   `json:"igst"`
	TotalGST        float64   `json:"totalGst"`
	TotalAmount     float64   `json:"totalAmount"`
	LotIDs          []int64   `json:"lotIds"`
	LotNumbers      []string  `json:"lotNumbers"`
	Lots            []LotLine `json:"lots"`
	CreatedAt       time.Time `json:"createdAt"`
}

var (
	// ErrDuplicateBill indicates a farmer bill already exists for the day.
	ErrDuplicateBill = errors.New("billing: farmer bill already exists for this day")
	// ErrDuplicateInvoice indicates a tax invoice already exists for the day.
	ErrDuplicateInvoice = errors.New("billing: tax invoice already exists for this day")
	// ErrBillNotFound indicates a missing bill or invoice.
	ErrBillNotFound = errors.New("billing: not found")
)

// round2 rounds to two decimals, the resolution of every stored amount.
func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// quintals converts kilograms into quintals.
func quintals(kg float64) float64 {
	return kg / kgPerQuintal
}
