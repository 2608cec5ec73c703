// Package regress fits ordinary least squares factor models on monthly
// return series. Models are immutable once fitted.
package regress

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distuv"

	apperrors "github.com/hfanalytics/macro-factor-attribution/internal/errors"
	"github.com/hfanalytics/macro-factor-attribution/pkg/timeseries"
)

// Intercept is the coefficient name of the constant term.
const Intercept = "const"

// MonthsPerYear scales monthly moments to annual ones (√12 for volatility).
const MonthsPerYear = 12.0

// Coefficient is one fitted regression term.
type Coefficient struct {
	Name     string
	Estimate float64
	StdErr   float64
	TStat    float64
	PValue   float64
}

// Model is the immutable result of one OLS fit. The intercept is always the
// first coefficient, followed by the predictors in the order they were
// requested.
type Model struct {
	Response     string
	Factors      []string
	Months       []timeseries.Month
	NObs         int
	Coefficients []Coefficient

	R2              float64
	AdjR2           float64
	ResidVolMonthly float64
	ResidVolAnnual  float64
	CorrFitted      float64
}

// Coefficient returns the fitted term with the given name.
func (m *Model) Coefficient(name string) (Coefficient, bool) {
	for _, c := range m.Coefficients {
		if c.Name == name {
			return c, true
		}
	}
	return Coefficient{}, false
}

// Alpha returns the monthly intercept estimate.
func (m *Model) Alpha() float64 {
	c, _ := m.Coefficient(Intercept)
	return c.Estimate
}

// AlphaAnnualized compounds the monthly intercept to an annual rate.
func (m *Model) AlphaAnnualized() float64 {
	return math.Pow(1.0+m.Alpha(), MonthsPerYear) - 1.0
}

// FitTable fits response on the named factor columns of the table. Months
// where the response or any factor is missing are dropped before fitting.
func FitTable(tab *timeseries.FactorTable, response string, factors []string) (*Model, error) {
	if len(factors) == 0 {
		return nil, apperrors.New(apperrors.ErrorCategoryModel, "regress", response, "no predictors given")
	}

	all := append([]string{response}, factors...)
	months, err := tab.CompleteMonths(all...)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrorCategoryModel, "regress", response, "design matrix")
	}
	rows, err := tab.Rows(months, all...)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrorCategoryModel, "regress", response, "design matrix")
	}

	y := make([]float64, len(rows))
	x := make([][]float64, len(rows))
	for i, row := range rows {
		y[i] = row[0]
		x[i] = row[1:]
	}

	model, err := Fit(response, factors, y, x)
	if err != nil {
		return nil, err
	}
	model.Months = months
	return model, nil
}

// Fit runs OLS with an intercept of y on the predictor rows x. Each x[i]
// holds the predictor values for observation i, in factor order.
func Fit(response string, factors []string, y []float64, x [][]float64) (*Model, error) {
	n := len(y)
	p := len(factors)
	k := p + 1 // terms including the intercept

	if n < p+2 {
		return nil, apperrors.New(apperrors.ErrorCategoryModel, "regress", response,
			fmt.Sprintf("insufficient observations: %d months for %d predictors (need at least %d)", n, p, p+2))
	}
	for j := 0; j < p; j++ {
		if constantColumn(x, j) {
			return nil, apperrors.New(apperrors.ErrorCategoryModel, "regress", response,
				fmt.Sprintf("degenerate predictor %q is constant over the %d retained months", factors[j], n))
		}
	}

	design := mat.NewDense(n, k, nil)
	for i := 0; i < n; i++ {
		design.Set(i, 0, 1.0)
		for j := 0; j < p; j++ {
			design.Set(i, j+1, x[i][j])
		}
	}
	yVec := mat.NewDense(n, 1, y)

	var qr mat.QR
	qr.Factorize(design)
	var betaMat mat.Dense
	if err := qr.SolveTo(&betaMat, false, yVec); err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrorCategoryModel, "regress", response, "collinear design matrix")
	}
	beta := make([]float64, k)
	for j := 0; j < k; j++ {
		beta[j] = betaMat.At(j, 0)
	}

	fitted := make([]float64, n)
	resid := make([]float64, n)
	rss := 0.0
	for i := 0; i < n; i++ {
		f := beta[0]
		for j := 0; j < p; j++ {
			f += beta[j+1] * x[i][j]
		}
		fitted[i] = f
		resid[i] = y[i] - f
		rss += resid[i] * resid[i]
	}

	meanY := stat.Mean(y, nil)
	tss := 0.0
	for i := 0; i < n; i++ {
		d := y[i] - meanY
		tss += d * d
	}
	if tss == 0 {
		return nil, apperrors.New(apperrors.ErrorCategoryModel, "regress", response,
			"response is constant over the retained months")
	}

	r2 := 1.0 - rss/tss
	adjR2 := 1.0 - (1.0-r2)*float64(n-1)/float64(n-k)
	sigma2 := rss / float64(n-k)

	// Covariance of the estimates: sigma² (X'X)⁻¹.
	var xtx mat.Dense
	xtx.Mul(design.T(), design)
	var xtxInv mat.Dense
	if err := xtxInv.Inverse(&xtx); err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrorCategoryModel, "regress", response, "collinear design matrix")
	}

	tDist := distuv.StudentsT{Mu: 0, Sigma: 1, Nu: float64(n - k)}
	coefs := make([]Coefficient, k)
	names := append([]string{Intercept}, factors...)
	for j := 0; j < k; j++ {
		se := math.Sqrt(sigma2 * xtxInv.At(j, j))
		tStat := math.Copysign(math.Inf(1), beta[j])
		if se > 0 {
			tStat = beta[j] / se
		}
		coefs[j] = Coefficient{
			Name:     names[j],
			Estimate: beta[j],
			StdErr:   se,
			TStat:    tStat,
			PValue:   2.0 * tDist.CDF(-math.Abs(tStat)),
		}
	}

	residVol := stat.StdDev(resid, nil)
	return &Model{
		Response:        response,
		Factors:         append([]string(nil), factors...),
		NObs:            n,
		Coefficients:    coefs,
		R2:              r2,
		AdjR2:           adjR2,
		ResidVolMonthly: residVol,
		ResidVolAnnual:  residVol * math.Sqrt(MonthsPerYear),
		CorrFitted:      stat.Correlation(y, fitted, nil),
	}, nil
}

// constantColumn reports whether predictor column j never changes value.
func constantColumn(x [][]float64, j int) bool {
	for i := 1; i < len(x); i++ {
		if x[i][j] != x[0][j] {
			return false
		}
	}
	return true
}
