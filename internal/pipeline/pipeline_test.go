package pipeline

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/hfanalytics/macro-factor-attribution/internal/config"
	apperrors "github.com/hfanalytics/macro-factor-attribution/internal/errors"
	"github.com/hfanalytics/macro-factor-attribution/internal/fetch"
	"github.com/hfanalytics/macro-factor-attribution/pkg/timeseries"
)

const testMonths = 72

func startMonth() timeseries.Month {
	return timeseries.Month{Year: 2015, Mon: time.January}
}

// factor patterns with distinct periods so the design matrix stays full rank
func mktAt(i int) float64   { return float64((i*7)%23)/500.0 - 0.02 }
func smbAt(i int) float64   { return float64((i*5)%19)/900.0 - 0.01 }
func hmlAt(i int) float64   { return float64((i*3)%17)/800.0 - 0.01 }
func rmwAt(i int) float64   { return float64((i*11)%13)/1000.0 - 0.006 }
func cmaAt(i int) float64   { return float64((i*2)%11)/1100.0 - 0.005 }
func tsmomAt(i int) float64 { return float64((i*13)%29)/700.0 - 0.02 }
func fundAt(i int) float64  { return 0.002 + 0.0001 + 0.9*mktAt(i) + 0.2*tsmomAt(i) }

// writeFixtures lays out the fund workbook and a CSV benchmark file with one
// trading day per month, so compounding reproduces the monthly values.
func writeFixtures(t *testing.T, dir string) {
	t.Helper()

	f := excelize.NewFile()
	sheet := f.GetSheetName(0)
	require.NoError(t, f.SetSheetRow(sheet, "A1", &[]interface{}{"Date", "Return"}))
	m := startMonth()
	for i := 0; i < testMonths; i++ {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		require.NoError(t, err)
		row := []interface{}{m.EndOfMonth().Format("2006-01-02"), fundAt(i)}
		require.NoError(t, f.SetSheetRow(sheet, cell, &row))
		m = m.Next()
	}
	require.NoError(t, f.SaveAs(filepath.Join(dir, "fund_returns.xlsx")))
	require.NoError(t, f.Close())

	body := "dt,mkt_rf,smb,hml,rmw,cma,rf\n"
	m = startMonth()
	for i := 0; i < testMonths; i++ {
		body += fmt.Sprintf("%d-%02d-15,%g,%g,%g,%g,%g,0.0001\n",
			m.Year, int(m.Mon), mktAt(i), smbAt(i), hmlAt(i), rmwAt(i), cmaAt(i))
		m = m.Next()
	}
	require.NoError(t, os.WriteFile(filepath.Join(dir, "ff5_daily.csv"), []byte(body), 0o644))
}

// stubSource serves the tsmom factor without any network dependency.
func stubSource(t *testing.T) fetch.Source {
	t.Helper()
	return fetch.NewSource("aqr_factors_monthly", func() (*timeseries.FactorTable, error) {
		s := timeseries.NewMonthlySeries("tsmom")
		m := startMonth()
		for i := 0; i < testMonths; i++ {
			s.Set(m, tsmomAt(i))
			m = m.Next()
		}
		tab := timeseries.NewFactorTable()
		if err := tab.AddColumn(s); err != nil {
			return nil, err
		}
		return tab, nil
	})
}

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	dir := t.TempDir()
	writeFixtures(t, dir)

	cfg := config.Default()
	cfg.Data.Dir = dir
	cfg.Data.FF5File = "ff5_daily.csv"
	cfg.Output.Dir = filepath.Join(dir, "out")
	cfg.Fetch.CacheDir = filepath.Join(dir, "cache")
	cfg.Fetch.StartDate = "2014-01"
	cfg.Selection.MaxFactors = 3
	cfg.Selection.MinFactors = 1
	cfg.Selection.MinObs = 12
	return cfg
}

func newTestPipeline(t *testing.T, cfg *config.Config) *Pipeline {
	t.Helper()
	p := New(cfg)
	p.Sources = []fetch.Source{stubSource(t)}
	p.FetchLive = func(symbol, name string, from timeseries.Month) (*timeseries.MonthlySeries, error) {
		live := timeseries.NewMonthlySeries(name)
		m := timeseries.Month{Year: 2020, Mon: time.July}
		for i := 0; i < 6; i++ {
			idx := testMonths - 6 + i
			live.Set(m, fundAt(idx)+0.001)
			m = m.Next()
		}
		return live, nil
	}
	return p
}

// TestAnalyze_FitsAllThreeModels checks one full batch over local fixtures.
func TestAnalyze_FitsAllThreeModels(t *testing.T) {
	p := newTestPipeline(t, testConfig(t))

	res, err := p.Analyze()
	require.NoError(t, err)

	require.NotNil(t, res.FF5Model)
	assert.Equal(t, testMonths, res.FF5Model.NObs)

	require.NotNil(t, res.EconModel)
	assert.Equal(t, []string{"mkt_rf", "tsmom"}, res.EconFactors)

	// fund_excess is an exact function of mkt_rf and tsmom, so greedy finds
	// them in dominance order and stops.
	require.NotNil(t, res.GreedyModel)
	require.NotNil(t, res.Greedy)
	assert.Equal(t, []string{"mkt_rf", "tsmom"}, res.Greedy.Factors)
	assert.InDelta(t, 1.0, res.GreedyModel.AdjR2, 1e-9)

	// factors no source served this run are reported, not fatal
	assert.Contains(t, res.Omitted, "qmj_global")
	assert.Contains(t, res.Omitted, "usd_ret")
	assert.NotContains(t, res.Omitted, "tsmom")
}

// TestAnalyze_ComparisonSharesOneWindow checks no comparison row is fit on a
// different sample than another.
func TestAnalyze_ComparisonSharesOneWindow(t *testing.T) {
	p := newTestPipeline(t, testConfig(t))

	res, err := p.Analyze()
	require.NoError(t, err)
	require.NotNil(t, res.Comparison)
	require.Len(t, res.Comparison.Rows, 3)

	for _, row := range res.Comparison.Rows {
		require.NoError(t, row.Err, row.Name)
		assert.Equal(t, len(res.Comparison.Window), row.NObs, row.Name)
	}
}

// TestAnalyze_LiveTracking checks the live series joins on shared months.
func TestAnalyze_LiveTracking(t *testing.T) {
	p := newTestPipeline(t, testConfig(t))

	res, err := p.Analyze()
	require.NoError(t, err)
	require.NotNil(t, res.LiveStats)
	assert.Equal(t, 6, res.LiveStats.OverlapMonths)
	// live differs from the backtest by a constant, so it tracks perfectly
	assert.InDelta(t, 1.0, res.LiveStats.Corr, 1e-9)
	assert.InDelta(t, 1.0, res.LiveStats.Beta, 1e-9)
	assert.InDelta(t, 0.0, res.LiveStats.TrackingErrAnnual, 1e-9)
}

// TestAnalyze_ThemeColumnCollisionIsNotFatal checks an overlay column that
// clashes with a loaded factor is skipped with the original values kept.
func TestAnalyze_ThemeColumnCollisionIsNotFatal(t *testing.T) {
	cfg := testConfig(t)
	body := "date,mkt_rf,theme_quality\n" +
		"2015-01-31,9.9,0.004\n" +
		"2015-02-28,9.9,0.002\n"
	require.NoError(t, os.WriteFile(filepath.Join(cfg.Data.Dir, cfg.Data.ThemeCSV), []byte(body), 0o644))
	p := newTestPipeline(t, cfg)

	res, err := p.Analyze()
	require.NoError(t, err)

	// the colliding column did not overwrite the benchmark factor
	v, ok := res.Table.ColumnValue("mkt_rf", startMonth())
	require.True(t, ok)
	assert.InDelta(t, mktAt(0), v, 1e-9)

	// the non-colliding overlay column joined the candidate table
	q, ok := res.Table.ColumnValue("theme_quality", startMonth())
	require.True(t, ok)
	assert.InDelta(t, 0.004, q, 1e-12)
}

// TestAnalyze_MissingFundWorkbookIsFatal checks the only hard stop.
func TestAnalyze_MissingFundWorkbookIsFatal(t *testing.T) {
	cfg := testConfig(t)
	cfg.Data.FundWorkbook = "not_there.xlsx"
	p := newTestPipeline(t, cfg)

	_, err := p.Analyze()
	require.Error(t, err)
	assert.True(t, apperrors.IsFatalError(err))
	assert.Contains(t, err.Error(), "not_there.xlsx")
}

// TestRun_WritesArtifacts checks the file outputs of a full run.
func TestRun_WritesArtifacts(t *testing.T) {
	cfg := testConfig(t)
	p := newTestPipeline(t, cfg)

	require.NoError(t, p.Run())

	for _, name := range []string{
		"model_comparison.csv",
		"ff5_coefficients.csv",
		"greedy_coefficients.csv",
		"external_factors_monthly.csv",
		"model_summaries.xlsx",
		"analysis_global_macro.md",
		"live_vs_backtest_stats.csv",
	} {
		_, err := os.Stat(filepath.Join(cfg.Output.Dir, name))
		assert.NoError(t, err, name)
	}
}

// TestRun_ConsoleOnlySkipsFiles checks console-only leaves no output dir.
func TestRun_ConsoleOnlySkipsFiles(t *testing.T) {
	cfg := testConfig(t)
	cfg.Output.ConsoleOnly = true
	p := newTestPipeline(t, cfg)

	require.NoError(t, p.Run())
	_, err := os.Stat(cfg.Output.Dir)
	assert.True(t, os.IsNotExist(err))
}
