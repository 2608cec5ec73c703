// Package compare re-fits factor models on one shared month window so their
// fit statistics are directly comparable.
package compare

import (
	"math"

	"gonum.org/v1/gonum/stat"

	apperrors "github.com/hfanalytics/macro-factor-attribution/internal/errors"
	"github.com/hfanalytics/macro-factor-attribution/internal/regress"
	"github.com/hfanalytics/macro-factor-attribution/pkg/timeseries"
)

// ModelSpec names one model and the factor set it regresses on.
type ModelSpec struct {
	Name    string
	Factors []string
}

// Row is one comparison line. Err is set when the model could not be fit on
// the shared window; the remaining rows are still valid.
type Row struct {
	Name           string
	Factors        []string
	Model          *regress.Model
	Err            error
	NObs           int
	R2             float64
	AdjR2          float64
	AlphaMonthly   float64
	AlphaAnnual    float64
	ResidVolAnnual float64
	CorrFitted     float64
}

// Comparison holds the shared window and one row per requested model.
type Comparison struct {
	Window []timeseries.Month
	Rows   []Row
}

// Run intersects the complete-data months of every spec whose factors exist
// in the table, re-fits each model on exactly that window, and returns one
// row per spec. No two successful rows are fit on different samples.
func Run(tab *timeseries.FactorTable, response string, specs []ModelSpec) (*Comparison, error) {
	if len(specs) == 0 {
		return nil, apperrors.New(apperrors.ErrorCategoryConfig, "compare", response, "no model specs given")
	}

	rows := make([]Row, len(specs))
	var window []timeseries.Month
	windowSet := false

	for i, spec := range specs {
		rows[i] = Row{Name: spec.Name, Factors: spec.Factors}
		cols := append([]string{response}, spec.Factors...)
		months, err := tab.CompleteMonths(cols...)
		if err != nil {
			rows[i].Err = apperrors.Wrap(err, apperrors.ErrorCategoryModel, "compare", spec.Name, "factors unavailable")
			continue
		}
		if !windowSet {
			window = months
			windowSet = true
		} else {
			window = intersect(window, months)
		}
	}
	if !windowSet {
		return nil, apperrors.New(apperrors.ErrorCategoryModel, "compare", response,
			"no model has a complete factor set")
	}

	for i, spec := range specs {
		if rows[i].Err != nil {
			continue
		}
		model, err := fitOn(tab, response, spec.Factors, window)
		if err != nil {
			rows[i].Err = err
			continue
		}
		rows[i].Model = model
		rows[i].NObs = model.NObs
		rows[i].R2 = model.R2
		rows[i].AdjR2 = model.AdjR2
		rows[i].AlphaMonthly = model.Alpha()
		rows[i].AlphaAnnual = model.AlphaAnnualized()
		rows[i].ResidVolAnnual = model.ResidVolAnnual
		rows[i].CorrFitted = model.CorrFitted
	}

	return &Comparison{Window: window, Rows: rows}, nil
}

// fitOn fits a model restricted to the given months.
func fitOn(tab *timeseries.FactorTable, response string, factors []string, months []timeseries.Month) (*regress.Model, error) {
	cols := append([]string{response}, factors...)
	rows, err := tab.Rows(months, cols...)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrorCategoryModel, "compare", response, "shared window")
	}
	y := make([]float64, len(rows))
	x := make([][]float64, len(rows))
	for i, row := range rows {
		y[i] = row[0]
		x[i] = row[1:]
	}
	model, err := regress.Fit(response, factors, y, x)
	if err != nil {
		return nil, err
	}
	model.Months = months
	return model, nil
}

// intersect keeps the months present in both sorted slices.
func intersect(a, b []timeseries.Month) []timeseries.Month {
	inB := make(map[timeseries.Month]bool, len(b))
	for _, m := range b {
		inB[m] = true
	}
	var out []timeseries.Month
	for _, m := range a {
		if inB[m] {
			out = append(out, m)
		}
	}
	return out
}

// LiveStats summarizes how a live traded series tracks the backtest.
type LiveStats struct {
	OverlapMonths      int
	Corr               float64
	Beta               float64
	TrackingErrAnnual  float64
	AvgReturnDiffAnnum float64
}

// minLiveOverlap is the fewest overlapping months worth reporting on.
const minLiveOverlap = 4

// LiveVsBacktest joins the backtest fund returns with a live return series
// on their shared months and reports tracking statistics.
func LiveVsBacktest(backtest, live *timeseries.MonthlySeries) (*LiveStats, error) {
	var bt, lv, spread []float64
	for _, m := range backtest.Months() {
		b, _ := backtest.Value(m)
		if l, ok := live.Value(m); ok {
			bt = append(bt, b)
			lv = append(lv, l)
			spread = append(spread, l-b)
		}
	}
	if len(bt) < minLiveOverlap {
		return nil, apperrors.New(apperrors.ErrorCategoryData, "compare", live.Name(),
			"not enough overlap between live and backtest for robust metrics")
	}

	meanSpread := stat.Mean(spread, nil)
	return &LiveStats{
		OverlapMonths:      len(bt),
		Corr:               stat.Correlation(bt, lv, nil),
		Beta:               stat.Covariance(bt, lv, nil) / stat.Variance(bt, nil),
		TrackingErrAnnual:  stat.StdDev(spread, nil) * math.Sqrt(regress.MonthsPerYear),
		AvgReturnDiffAnnum: math.Pow(1.0+meanSpread, regress.MonthsPerYear) - 1.0,
	}, nil
}
