package tenant

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

type stubSettings struct {
	raw []byte
	err error
}

func (s stubSettings) GSTSettings(ctx context.Context, tenantID int64) ([]byte, error) {
	return s.raw, s.err
}

func TestRatesFallsBackToDefaults(t *testing.T) {
	rates, err := Rates(context.Background(), stubSettings{raw: nil}, 1)
	require.NoError(t, err)
	require.Equal(t, DefaultRates, rates)
}

func TestRatesOverridesPerField(t *testing.T) {
	raw := []byte(`{"packaging": 7, "sgst": 9}`)
	rates, err := Rates(context.Background(), stubSettings{raw: raw}, 1)
	require.NoError(t, err)
	require.Equal(t, 7.0, rates.Packaging)
	require.Equal(t, 9.0, rates.SGST)
	require.Equal(t, DefaultRates.WeighingFee, rates.WeighingFee)
	require.Equal(t, DefaultRates.UnloadHamali, rates.UnloadHamali)
	require.Equal(t, DefaultRates.CGST, rates.CGST)
	require.Equal(t, DefaultRates.Cess, rates.Cess)
}

func TestMergeKeepsStoredValues(t *testing.T) {
	stored := RateSettings{Packaging: 10, Cess: 1.2}
	merged := stored.Merge(DefaultRates)
	require.Equal(t, 10.0, merged.Packaging)
	require.Equal(t, 1.2, merged.Cess)
	require.Equal(t, DefaultRates.APMCCommission, merged.APMCCommission)
}
