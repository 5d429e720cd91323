package tenant

import (
	"errors"
	"time"
)

// Tenant models one trading firm (APMC shop) served by the platform.
type Tenant struct {
	ID        int64
	Name      string
	APMCName  string
	GSTIN     string
	Address   string
	Mobile    string
	IsActive  bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

// RateSettings holds the per-bag and percentage charge rates applied during
// bill and invoice generation. Per-bag rates are rupees per bag, percentage
// rates are plain percentages (2.5 means 2.5%).
type RateSettings struct {
	Packaging      float64 `json:"packaging"`
	WeighingFee    float64 `json:"weighingFee"`
	UnloadHamali   float64 `json:"unloadHamali"`
	APMCCommission float64 `json:"apmcCommission"`
	SGST           float64 `json:"sgst"`
	CGST           float64 `json:"cgst"`
	Cess           float64 `json:"cess"`
}

// DefaultRates is the single canonical fallback table. Individual fields of a
// tenant's stored settings override it field by field; consumers never carry
// their own fallbacks.
var DefaultRates = RateSettings{
	Packaging:      5,
	WeighingFee:    2,
	UnloadHamali:   3,
	APMCCommission: 2,
	SGST:           2.5,
	CGST:           2.5,
	Cess:           0.6,
}

// ErrTenantNotFound indicates the tenant does not exist or is inactive.
var ErrTenantNotFound = errors.New("tenant: not found")

// Merge overlays stored settings on the canonical defaults. Zero-valued fields
// fall back; a stored zero rate is indistinguishable from unset, matching the
// settings document shape where disabled charges are simply omitted.
func (r RateSettings) Merge(defaults RateSettings) RateSettings {
	out := r
	if out.Packaging == 0 {
		out.Packaging = defaults.Packaging
	}
	if out.WeighingFee == 0 {
		out.WeighingFee = defaults.WeighingFee
	}
	if out.UnloadHamali == 0 {
		out.UnloadHamali = defaults.UnloadHamali
	}
	if out.APMCCommission == 0 {
		out.APMCCommission = defaults.APMCCommission
	}
	if out.SGST == 0 {
		out.SGST = defaults.SGST
	}
	if out.CGST == 0 {
		out.CGST = defaults.CGST
	}
	if out.Cess == 0 {
		out.Cess = defaults.Cess
	}
	return out
}
