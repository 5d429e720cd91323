package report

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/mandibook/mandibook/internal/billing"
)

func TestFarmerBillHTML(t *testing.T) {
	html, err := FarmerBillHTML(billing.FarmerBill{
		PattiNumber: "PT-20240610-007",
		Farmer:      billing.Farmer{Name: "Ramesh", Village: "Kelwad"},
		BillDate:    time.Date(2024, time.June, 10, 0, 0, 0, 0, time.UTC),
		Lots: []billing.LotLine{
			{LotNumber: "L-101", Bags: 10, WeightKg: 500, PricePerQtl: 2000, GrossAmount: 10000},
		},
		TotalBags:       10,
		TotalWeight:     500,
		TotalAmount:     10000,
		Hamali:          30,
		OtherCharges:    270,
		TotalDeductions: 300,
		NetPayable:      9700,
	})
	require.NoError(t, err)
	require.Contains(t, html, "PT-20240610-007")
	require.Contains(t, html, "9700.00")
	require.Contains(t, html, "L-101")
}

func TestTaxInvoiceHTML(t *testing.T) {
	html, err := TaxInvoiceHTML(billing.TaxInvoice{
		InvoiceNumber: "INV-20240610-009",
		Buyer:         billing.Buyer{Name: "Shree Traders", GSTIN: "27ABCDE1234F1Z5"},
		Trader:        billing.Trader{Name: "Mandi House", APMCName: "Nagpur APMC"},
		InvoiceDate:   time.Date(2024, time.June, 10, 0, 0, 0, 0, time.UTC),
		BasicAmount:   10000,
		TaxableAmount: 10360,
		SGST:          259,
		CGST:          259,
		TotalAmount:   10878,
	})
	require.NoError(t, err)
	require.Contains(t, html, "INV-20240610-009")
	require.Contains(t, html, "10878.00")
	require.Contains(t, html, "27ABCDE1234F1Z5")
	// Zero IGST row stays hidden.
	require.NotContains(t, html, "IGST")
}
