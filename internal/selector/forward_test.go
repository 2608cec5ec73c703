package selector

import (
	"math"
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hfanalytics/macro-factor-attribution/pkg/timeseries"
)

// syntheticTable builds a response driven by factor_a, with factor_b pure noise
func syntheticTable(t *testing.T, n int) *timeseries.FactorTable {
	t.Helper()
	rng := rand.New(rand.NewSource(7))

	tab := timeseries.NewFactorTable()
	resp := timeseries.NewMonthlySeries("fund_excess")
	fa := timeseries.NewMonthlySeries("factor_a")
	fb := timeseries.NewMonthlySeries("factor_b")

	m := timeseries.Month{Year: 2015, Mon: time.January}
	for i := 0; i < n; i++ {
		a := rng.NormFloat64() * 0.02
		b := rng.NormFloat64() * 0.02
		fa.Set(m, a)
		fb.Set(m, b)
		resp.Set(m, 0.5*a+0.002*rng.NormFloat64())
		m = m.Next()
	}
	require.NoError(t, tab.AddColumn(resp))
	require.NoError(t, tab.AddColumn(fa))
	require.NoError(t, tab.AddColumn(fb))
	return tab
}

// TestForward_PicksDominantPredictor checks K=1 selects the real driver
func TestForward_PicksDominantPredictor(t *testing.T) {
	tab := syntheticTable(t, 120)

	res, err := Forward(tab, "fund_excess", []string{"factor_b", "factor_a"}, Options{
		MaxFactors: 1,
		MinObs:     24,
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"factor_a"}, res.Factors)
}

// TestForward_TraceIsNonDecreasing checks the step-by-step adj-R² trace
func TestForward_TraceIsNonDecreasing(t *testing.T) {
	tab := syntheticTable(t, 120)

	res, err := Forward(tab, "fund_excess", []string{"factor_a", "factor_b"}, Options{
		MaxFactors: 2,
		MinObs:     24,
	})
	require.NoError(t, err)
	require.NotEmpty(t, res.Steps)

	prev := math.Inf(-1)
	for _, step := range res.Steps {
		if step.Padded {
			continue
		}
		assert.Greater(t, step.AdjR2, prev)
		prev = step.AdjR2
	}
}

// TestForward_StopsWhenNoImprovement checks pure noise is not added
func TestForward_StopsWhenNoImprovement(t *testing.T) {
	tab := syntheticTable(t, 120)

	res, err := Forward(tab, "fund_excess", []string{"factor_a", "factor_b"}, Options{
		MaxFactors: 2,
		MinObs:     24,
	})
	require.NoError(t, err)

	// factor_b is noise; it only survives if it genuinely moved adj-R².
	if len(res.Factors) == 2 {
		assert.Greater(t, res.Steps[1].AdjR2, res.Steps[0].AdjR2)
	} else {
		assert.Equal(t, []string{"factor_a"}, res.Factors)
	}
}

// TestForward_TieBreakPrefersPoolOrder checks duplicate columns resolve deterministically
func TestForward_TieBreakPrefersPoolOrder(t *testing.T) {
	tab := syntheticTable(t, 120)
	fa, err := tab.Column("factor_a")
	require.NoError(t, err)
	require.NoError(t, tab.AddColumn(fa.Rename("factor_a_copy")))

	res, err := Forward(tab, "fund_excess", []string{"factor_a_copy", "factor_a"}, Options{
		MaxFactors: 1,
		MinObs:     24,
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"factor_a_copy"}, res.Factors)
}

// TestForward_SkipsSparseCandidates checks the MinObs filter
func TestForward_SkipsSparseCandidates(t *testing.T) {
	tab := syntheticTable(t, 120)
	sparse := timeseries.NewMonthlySeries("sparse")
	sparse.Set(timeseries.Month{Year: 2015, Mon: time.January}, 0.01)
	require.NoError(t, tab.AddColumn(sparse))

	res, err := Forward(tab, "fund_excess", []string{"sparse", "factor_a"}, Options{
		MaxFactors: 1,
		MinObs:     24,
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"factor_a"}, res.Factors)
}

// TestForward_MissingSeedFactor checks the descriptive seed error
func TestForward_MissingSeedFactor(t *testing.T) {
	tab := syntheticTable(t, 120)

	_, err := Forward(tab, "fund_excess", []string{"factor_a"}, Options{
		Seed:       []string{"hy_oas_chg"},
		MaxFactors: 3,
		MinObs:     24,
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "hy_oas_chg")
}

// TestForward_SeedIsKeptFirst checks seed factors lead the selection
func TestForward_SeedIsKeptFirst(t *testing.T) {
	tab := syntheticTable(t, 120)

	res, err := Forward(tab, "fund_excess", []string{"factor_a", "factor_b"}, Options{
		Seed:       []string{"factor_b"},
		MaxFactors: 2,
		MinObs:     24,
	})
	require.NoError(t, err)
	require.NotEmpty(t, res.Factors)
	assert.Equal(t, "factor_b", res.Factors[0])
	assert.Contains(t, res.Factors, "factor_a")
}

// TestForward_PadsToMinFactors checks the pool-order backfill
func TestForward_PadsToMinFactors(t *testing.T) {
	tab := syntheticTable(t, 120)

	res, err := Forward(tab, "fund_excess", []string{"factor_a", "factor_b"}, Options{
		MaxFactors: 2,
		MinFactors: 2,
		MinObs:     24,
	})
	require.NoError(t, err)
	assert.Len(t, res.Factors, 2)
}
