package reporting

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/hfanalytics/macro-factor-attribution/internal/compare"
	"github.com/hfanalytics/macro-factor-attribution/internal/regress"
	"github.com/hfanalytics/macro-factor-attribution/pkg/timeseries"
)

func createWithDir(path string) (*os.File, error) {
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, err
		}
	}
	return os.Create(path)
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', 6, 64)
}

// WriteCoefficientsCSV writes one model's coefficient table: factor,
// estimate, standard error, t-statistic and p-value per term.
func WriteCoefficientsCSV(model *regress.Model, path string) error {
	f, err := createWithDir(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	defer w.Flush()

	if err := w.Write([]string{"factor", "coef", "std_err", "t_stat", "p_value"}); err != nil {
		return err
	}
	for _, c := range model.Coefficients {
		row := []string{c.Name, formatFloat(c.Estimate), formatFloat(c.StdErr), formatFloat(c.TStat), formatFloat(c.PValue)}
		if err := w.Write(row); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}

// WriteComparisonCSV writes the model comparison, one row per model. A row
// whose fit failed carries the failure reason in the error column.
func WriteComparisonCSV(cmp *compare.Comparison, path string) error {
	f, err := createWithDir(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	defer w.Flush()

	header := []string{"model", "n_obs", "adj_r2", "alpha_monthly", "alpha_annualized",
		"resid_vol_annualized", "corr_fitted_actual", "error"}
	if err := w.Write(header); err != nil {
		return err
	}
	for _, row := range cmp.Rows {
		record := make([]string, len(header))
		record[0] = row.Name
		if row.Err != nil {
			record[7] = row.Err.Error()
		} else {
			record[1] = strconv.Itoa(row.NObs)
			record[2] = formatFloat(row.AdjR2)
			record[3] = formatFloat(row.AlphaMonthly)
			record[4] = formatFloat(row.AlphaAnnual)
			record[5] = formatFloat(row.ResidVolAnnual)
			record[6] = formatFloat(row.CorrFitted)
		}
		if err := w.Write(record); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}

// WriteFactorTableCSV writes a merged factor table as dated CSV.
func WriteFactorTableCSV(tab *timeseries.FactorTable, path string) error {
	f, err := createWithDir(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return timeseries.WriteCSV(f, tab)
}

// WriteSeriesCSV writes a single monthly series with its name as the value
// header.
func WriteSeriesCSV(series *timeseries.MonthlySeries, path string) error {
	f, err := createWithDir(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	defer w.Flush()

	if err := w.Write([]string{"date", series.Name()}); err != nil {
		return err
	}
	for _, m := range series.Months() {
		v, _ := series.Value(m)
		if err := w.Write([]string{m.EndOfMonth().Format("2006-01-02"), formatFloat(v)}); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}

// WriteLiveStatsCSV writes the live-vs-backtest tracking statistics.
func WriteLiveStatsCSV(stats *compare.LiveStats, path string) error {
	f, err := createWithDir(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	defer w.Flush()

	if err := w.Write([]string{"overlap_months", "corr_live_vs_backtest", "beta_live_on_backtest",
		"tracking_error_ann", "avg_return_diff_ann"}); err != nil {
		return err
	}
	row := []string{
		fmt.Sprintf("%d", stats.OverlapMonths),
		formatFloat(stats.Corr),
		formatFloat(stats.Beta),
		formatFloat(stats.TrackingErrAnnual),
		formatFloat(stats.AvgReturnDiffAnnum),
	}
	if err := w.Write(row); err != nil {
		return err
	}
	w.Flush()
	return w.Error()
}
