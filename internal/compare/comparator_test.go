package compare

import (
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hfanalytics/macro-factor-attribution/pkg/timeseries"
)

// buildTable builds three factors with staggered native windows
func buildTable(t *testing.T) *timeseries.FactorTable {
	t.Helper()
	rng := rand.New(rand.NewSource(11))

	tab := timeseries.NewFactorTable()
	resp := timeseries.NewMonthlySeries("fund_excess")
	f1 := timeseries.NewMonthlySeries("f1") // full window
	f2 := timeseries.NewMonthlySeries("f2") // starts 12 months late
	f3 := timeseries.NewMonthlySeries("f3") // ends 12 months early

	m := timeseries.Month{Year: 2010, Mon: time.January}
	const n = 120
	for i := 0; i < n; i++ {
		a := rng.NormFloat64() * 0.02
		b := rng.NormFloat64() * 0.02
		c := rng.NormFloat64() * 0.02
		resp.Set(m, 0.4*a+0.2*b+0.003*rng.NormFloat64())
		f1.Set(m, a)
		if i >= 12 {
			f2.Set(m, b)
		}
		if i < n-12 {
			f3.Set(m, c)
		}
		m = m.Next()
	}
	for _, s := range []*timeseries.MonthlySeries{resp, f1, f2, f3} {
		require.NoError(t, tab.AddColumn(s))
	}
	return tab
}

// TestRun_AllRowsShareOneWindow checks n_obs is identical across models
func TestRun_AllRowsShareOneWindow(t *testing.T) {
	tab := buildTable(t)

	cmp, err := Run(tab, "fund_excess", []ModelSpec{
		{Name: "model_f1", Factors: []string{"f1"}},
		{Name: "model_f2", Factors: []string{"f2"}},
		{Name: "model_f3", Factors: []string{"f3"}},
	})
	require.NoError(t, err)
	require.Len(t, cmp.Rows, 3)

	// 120 months minus 12 late-start minus 12 early-end.
	assert.Len(t, cmp.Window, 96)
	for _, row := range cmp.Rows {
		require.NoError(t, row.Err)
		assert.Equal(t, 96, row.NObs)
	}
}

// TestRun_AdjustedR2OrdersModels checks the informative model wins
func TestRun_AdjustedR2OrdersModels(t *testing.T) {
	tab := buildTable(t)

	cmp, err := Run(tab, "fund_excess", []ModelSpec{
		{Name: "signal", Factors: []string{"f1", "f2"}},
		{Name: "noise", Factors: []string{"f3"}},
	})
	require.NoError(t, err)
	assert.Greater(t, cmp.Rows[0].AdjR2, cmp.Rows[1].AdjR2)
}

// TestRun_UnknownFactorStaysLocal checks one bad spec does not stop the batch
func TestRun_UnknownFactorStaysLocal(t *testing.T) {
	tab := buildTable(t)

	cmp, err := Run(tab, "fund_excess", []ModelSpec{
		{Name: "good", Factors: []string{"f1"}},
		{Name: "bad", Factors: []string{"missing_factor"}},
	})
	require.NoError(t, err)

	assert.NoError(t, cmp.Rows[0].Err)
	assert.Greater(t, cmp.Rows[0].NObs, 0)
	require.Error(t, cmp.Rows[1].Err)
	assert.Contains(t, cmp.Rows[1].Err.Error(), "missing_factor")
}

// TestLiveVsBacktest_TracksPerfectly checks the degenerate identical case
func TestLiveVsBacktest_TracksPerfectly(t *testing.T) {
	bt := timeseries.NewMonthlySeries("fund_ret")
	lv := timeseries.NewMonthlySeries("hfgm_ret")

	m := timeseries.Month{Year: 2022, Mon: time.January}
	returns := []float64{0.01, -0.02, 0.03, 0.015, -0.005, 0.02}
	for _, r := range returns {
		bt.Set(m, r)
		lv.Set(m, r)
		m = m.Next()
	}

	stats, err := LiveVsBacktest(bt, lv)
	require.NoError(t, err)
	assert.Equal(t, 6, stats.OverlapMonths)
	assert.InDelta(t, 1.0, stats.Corr, 1e-12)
	assert.InDelta(t, 1.0, stats.Beta, 1e-12)
	assert.InDelta(t, 0.0, stats.TrackingErrAnnual, 1e-12)
}

// TestLiveVsBacktest_RequiresOverlap checks the minimum-overlap guard
func TestLiveVsBacktest_RequiresOverlap(t *testing.T) {
	bt := timeseries.NewMonthlySeries("fund_ret")
	lv := timeseries.NewMonthlySeries("hfgm_ret")

	m := timeseries.Month{Year: 2022, Mon: time.January}
	for i := 0; i < 3; i++ {
		bt.Set(m, 0.01)
		lv.Set(m, 0.02)
		m = m.Next()
	}

	_, err := LiveVsBacktest(bt, lv)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "overlap")
}
