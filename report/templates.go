package report

import (
	"fmt"
	"html/template"
	"strings"

	"github.com/mandibook/mandibook/internal/billing"
)

var tmplFuncs = template.FuncMap{
	"inr": func(v float64) string { return fmt.Sprintf("%.2f", v) },
}

var farmerBillTmpl = template.Must(template.New("farmerBill").Funcs(tmplFuncs).Parse(`<!DOCTYPE html>
<html><head><meta charset="utf-8"><style>
body { font-family: sans-serif; font-size: 12px; margin: 24px; }
h1 { font-size: 16px; margin-bottom: 0; }
table { width: 100%; border-collapse: collapse; margin-top: 12px; }
th, td { border: 1px solid #444; padding: 4px 6px; text-align: right; }
th:first-child, td:first-child { text-align: left; }
.totals td { font-weight: bold; }
</style></head><body>
<h1>Patti {{.PattiNumber}}</h1>
<p>{{.Farmer.Name}}, {{.Farmer.Village}} &middot; {{.BillDate.Format "02 Jan 2006"}}</p>
<table>
<tr><th>Lot</th><th>Bags</th><th>Weight (kg)</th><th>Rate/Qtl</th><th>Amount</th></tr>
{{range .Lots}}<tr><td>{{.LotNumber}}</td><td>{{.Bags}}</td><td>{{inr .WeightKg}}</td><td>{{inr .PricePerQtl}}</td><td>{{inr .GrossAmount}}</td></tr>
{{end}}
<tr class="totals"><td>Total</td><td>{{.TotalBags}}</td><td>{{inr .TotalWeight}}</td><td></td><td>{{inr .TotalAmount}}</td></tr>
</table>
<table>
<tr><td>Hamali</td><td>{{inr .Hamali}}</td></tr>
<tr><td>Vehicle Rent</td><td>{{inr .VehicleRent}}</td></tr>
<tr><td>Empty Bags</td><td>{{inr .EmptyBagCharges}}</td></tr>
<tr><td>Advance</td><td>{{inr .Advance}}</td></tr>
<tr><td>Rok</td><td>{{inr .Rok}}</td></tr>
<tr><td>Other Charges</td><td>{{inr .OtherCharges}}</td></tr>
<tr class="totals"><td>Total Deductions</td><td>{{inr .TotalDeductions}}</td></tr>
<tr class="totals"><td>Net Payable</td><td>{{inr .NetPayable}}</td></tr>
</table>
</body></html>`))

var taxInvoiceTmpl = template.Must(template.New("taxInvoice").Funcs(tmplFuncs).Parse(`<!DOCTYPE html>
<html><head><meta charset="utf-8"><style>
body { font-family: sans-serif; font-size: 12px; margin: 24px; }
h1 { font-size: 16px; margin-bottom: 0; }
table { width: 100%; border-collapse: collapse; margin-top: 12px; }
th, td { border: 1px solid #444; padding: 4px 6px; text-align: right; }
th:first-child, td:first-child { text-align: left; }
.totals td { font-weight: bold; }
</style></head><body>
<h1>Tax Invoice {{.InvoiceNumber}}</h1>
<p>{{.Trader.Name}}, {{.Trader.APMCName}} &middot; GSTIN {{.Trader.GSTIN}}</p>
<p>Buyer: {{.Buyer.Name}}{{if .Buyer.GSTIN}} &middot; GSTIN {{.Buyer.GSTIN}}{{end}} &middot; {{.InvoiceDate.Format "02 Jan 2006"}}</p>
<table>
<tr><th>Lot</th><th>Bags</th><th>Weight (kg)</th><th>Rate/Qtl</th><th>Amount</th></tr>
{{range .Lots}}<tr><td>{{.LotNumber}}</td><td>{{.Bags}}</td><td>{{inr .WeightKg}}</td><td>{{inr .PricePerQtl}}</td><td>{{inr .GrossAmount}}</td></tr>
{{end}}
<tr class="totals"><td>Basic Amount</td><td>{{.TotalBags}}</td><td>{{inr .TotalWeight}}</td><td></td><td>{{inr .BasicAmount}}</td></tr>
</table>
<table>
<tr><td>Packaging</td><td>{{inr .Packaging}}</td></tr>
<tr><td>Hamali</td><td>{{inr .Hamali}}</td></tr>
<tr><td>Weighing Charges</td><td>{{inr .WeighingCharges}}</td></tr>
<tr><td>Commission</td><td>{{inr .Commission}}</td></tr>
<tr><td>Cess</td><td>{{inr .Cess}}</td></tr>
<tr class="totals"><td>Taxable Amount</td><td>{{inr .TaxableAmount}}</td></tr>
<tr><td>SGST</td><td>{{inr .SGST}}</td></tr>
<tr><td>CGST</td><td>{{inr .CGST}}</td></tr>
{{if .IGST}}<tr><td>IGST</td><td>{{inr .IGST}}</td></tr>{{end}}
<tr class="totals"><td>Total</td><td>{{inr .TotalAmount}}</td></tr>
</table>
</body></html>`))

// FarmerBillHTML renders the printable patti.
func FarmerBillHTML(bill billing.FarmerBill) (string, error) {
	var buf strings.Builder
	if err := farmerBillTmpl.Execute(&buf, bill); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// TaxInvoiceHTML renders the printable GST invoice.
func TaxInvoiceHTML(inv billing.TaxInvoice) (string, error) {
	var buf strings.Builder
	if err := taxInvoiceTmpl.Execute(&buf, inv); err != nil {
		return "", err
	}
	return buf.String(), nil
}
