package regress

import (
	"math"
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/hfanalytics/macro-factor-attribution/internal/errors"
	"github.com/hfanalytics/macro-factor-attribution/pkg/timeseries"
)

// noisyData builds a deterministic response driven by two predictors plus noise
func noisyData(n int) (y []float64, x [][]float64) {
	rng := rand.New(rand.NewSource(42))
	y = make([]float64, n)
	x = make([][]float64, n)
	for i := 0; i < n; i++ {
		a := rng.NormFloat64()
		b := rng.NormFloat64()
		x[i] = []float64{a, b}
		y[i] = 0.002 + 0.8*a - 0.3*b + 0.01*rng.NormFloat64()
	}
	return y, x
}

// TestFit_ExactLine recovers a noiseless linear relation exactly
func TestFit_ExactLine(t *testing.T) {
	var y []float64
	var x [][]float64
	for i := 0; i < 24; i++ {
		v := float64(i)*0.01 - 0.1
		x = append(x, []float64{v})
		y = append(y, 0.005+2.0*v)
	}

	m, err := Fit("fund_excess", []string{"mkt_rf"}, y, x)
	require.NoError(t, err)

	c, ok := m.Coefficient("mkt_rf")
	require.True(t, ok)
	assert.InDelta(t, 2.0, c.Estimate, 1e-10)
	assert.InDelta(t, 0.005, m.Alpha(), 1e-10)
	assert.InDelta(t, 1.0, m.R2, 1e-10)
}

// TestFit_ExactFitKeepsCoefficientSign checks a perfect fit reports signed
// infinite t-statistics, negative loading included
func TestFit_ExactFitKeepsCoefficientSign(t *testing.T) {
	var y []float64
	var x [][]float64
	for i := 0; i < 24; i++ {
		v := float64(i)*0.01 - 0.1
		x = append(x, []float64{v})
		y = append(y, 0.005-2.0*v)
	}

	m, err := Fit("fund_excess", []string{"mkt_rf"}, y, x)
	require.NoError(t, err)

	c, ok := m.Coefficient("mkt_rf")
	require.True(t, ok)
	assert.InDelta(t, -2.0, c.Estimate, 1e-10)
	if c.StdErr == 0 {
		assert.True(t, math.IsInf(c.TStat, -1), "t-stat %v", c.TStat)
	} else {
		assert.Negative(t, c.TStat)
	}
	assert.InDelta(t, 0.0, c.PValue, 1e-10)
}

// TestFit_RSquaredBounds checks R² ∈ [0,1] and adjusted R² ≤ R²
func TestFit_RSquaredBounds(t *testing.T) {
	y, x := noisyData(120)

	m, err := Fit("fund_excess", []string{"a", "b"}, y, x)
	require.NoError(t, err)

	assert.GreaterOrEqual(t, m.R2, 0.0)
	assert.LessOrEqual(t, m.R2, 1.0)
	assert.LessOrEqual(t, m.AdjR2, m.R2)
	assert.Equal(t, 120, m.NObs)
}

// TestFit_Deterministic checks identical inputs give bit-identical fits
func TestFit_Deterministic(t *testing.T) {
	y, x := noisyData(90)

	m1, err := Fit("fund_excess", []string{"a", "b"}, y, x)
	require.NoError(t, err)
	m2, err := Fit("fund_excess", []string{"a", "b"}, y, x)
	require.NoError(t, err)

	for i := range m1.Coefficients {
		assert.Equal(t, m1.Coefficients[i].Estimate, m2.Coefficients[i].Estimate)
		assert.Equal(t, m1.Coefficients[i].StdErr, m2.Coefficients[i].StdErr)
	}
	assert.Equal(t, m1.R2, m2.R2)
	assert.Equal(t, m1.AdjR2, m2.AdjR2)
}

// TestFit_StrongPredictorIsSignificant checks t-stats and p-values line up
func TestFit_StrongPredictorIsSignificant(t *testing.T) {
	y, x := noisyData(120)

	m, err := Fit("fund_excess", []string{"a", "b"}, y, x)
	require.NoError(t, err)

	c, _ := m.Coefficient("a")
	assert.Greater(t, math.Abs(c.TStat), 10.0)
	assert.Less(t, c.PValue, 1e-6)
	assert.Greater(t, c.StdErr, 0.0)
}

// TestFit_InsufficientObservations checks the n < p+2 guard
func TestFit_InsufficientObservations(t *testing.T) {
	y := []float64{0.01, 0.02, 0.03}
	x := [][]float64{{0.1, 0.2}, {0.2, 0.1}, {0.3, 0.4}}

	_, err := Fit("fund_excess", []string{"a", "b"}, y, x)
	require.Error(t, err)
	assert.True(t, apperrors.IsModelError(err))
	assert.Contains(t, err.Error(), "insufficient observations")
}

// TestFit_ConstantPredictorRejected checks the degenerate-column guard
func TestFit_ConstantPredictorRejected(t *testing.T) {
	y, x := noisyData(30)
	for i := range x {
		x[i][1] = 0.5
	}

	_, err := Fit("fund_excess", []string{"a", "flat"}, y, x)
	require.Error(t, err)
	assert.True(t, apperrors.IsModelError(err))
	assert.Contains(t, err.Error(), "flat")
}

// TestFit_ConstantResponseRejected checks a flat response cannot be scored
func TestFit_ConstantResponseRejected(t *testing.T) {
	_, x := noisyData(30)
	y := make([]float64, 30)
	for i := range y {
		y[i] = 0.01
	}

	_, err := Fit("fund_excess", []string{"a", "b"}, y, x)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "constant")
}

// TestFitTable_DropsIncompleteMonths checks missing months are excluded
func TestFitTable_DropsIncompleteMonths(t *testing.T) {
	tab := timeseries.NewFactorTable()
	resp := timeseries.NewMonthlySeries("fund_excess")
	pred := timeseries.NewMonthlySeries("mkt_rf")

	m := timeseries.Month{Year: 2020, Mon: time.January}
	for i := 0; i < 40; i++ {
		v := float64(i)*0.001 - 0.02
		resp.Set(m, 0.001+1.5*v)
		if i != 7 { // one month missing on the predictor side
			pred.Set(m, v)
		}
		m = m.Next()
	}
	require.NoError(t, tab.AddColumn(resp))
	require.NoError(t, tab.AddColumn(pred))

	model, err := FitTable(tab, "fund_excess", []string{"mkt_rf"})
	require.NoError(t, err)
	assert.Equal(t, 39, model.NObs)
	assert.Len(t, model.Months, 39)
}

// TestFitTable_UnknownFactor checks a misnamed factor fails descriptively
func TestFitTable_UnknownFactor(t *testing.T) {
	tab := timeseries.NewFactorTable()
	require.NoError(t, tab.AddColumn(timeseries.NewMonthlySeries("fund_excess")))

	_, err := FitTable(tab, "fund_excess", []string{"mkt_rp"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "mkt_rp")
}

// TestModel_AlphaAnnualized checks the (1+α)¹²−1 compounding
func TestModel_AlphaAnnualized(t *testing.T) {
	m := &Model{Coefficients: []Coefficient{{Name: Intercept, Estimate: 0.01}}}
	assert.InDelta(t, math.Pow(1.01, 12)-1.0, m.AlphaAnnualized(), 1e-12)
}
