// Package selector implements greedy forward factor selection maximizing
// adjusted R².
package selector

import (
	"fmt"
	"math"

	apperrors "github.com/hfanalytics/macro-factor-attribution/internal/errors"
	"github.com/hfanalytics/macro-factor-attribution/internal/regress"
	"github.com/hfanalytics/macro-factor-attribution/pkg/timeseries"
)

// DefaultEpsilon is the strict-improvement threshold on adjusted R². A
// candidate must beat the incumbent by more than this to be added; ties
// within the threshold go to the earlier pool position, so the selected set
// is reproducible run to run.
const DefaultEpsilon = 1e-9

// Options bound the forward search.
type Options struct {
	Seed       []string // must-include factors, fitted before the search starts
	MaxFactors int      // total selection size cap, seed included
	MinFactors int      // pad from pool order if the search stops short (0 disables)
	MinObs     int      // minimum complete months for a candidate to be considered
	Epsilon    float64  // improvement threshold, DefaultEpsilon when zero
}

// Step records one accepted factor and the adjusted R² after adding it.
// Padded factors carry NaN when the padded set no longer fits.
type Step struct {
	Factor string
	AdjR2  float64
	NObs   int
	Padded bool
}

// Result is the ordered selection with its per-step trace.
type Result struct {
	Factors []string
	Steps   []Step
}

// Forward runs greedy forward selection of response predictors from pool.
// The pool is evaluated in its declared order and is never reordered or
// truncated; candidates absent from the table or too sparse are skipped.
func Forward(tab *timeseries.FactorTable, response string, pool []string, opts Options) (*Result, error) {
	if opts.MaxFactors <= 0 {
		return nil, apperrors.New(apperrors.ErrorCategoryConfig, "selector", response, "max factors must be positive")
	}
	eps := opts.Epsilon
	if eps == 0 {
		eps = DefaultEpsilon
	}

	for _, s := range opts.Seed {
		if !tab.HasColumn(s) {
			return nil, apperrors.New(apperrors.ErrorCategoryModel, "selector", s,
				fmt.Sprintf("seed factor %q is not in the candidate table", s))
		}
	}

	chosen := append([]string(nil), opts.Seed...)
	var steps []Step

	best := math.Inf(-1)
	if len(chosen) > 0 {
		m, err := regress.FitTable(tab, response, chosen)
		if err != nil {
			return nil, apperrors.Wrap(err, apperrors.ErrorCategoryModel, "selector", response, "seed model does not fit")
		}
		best = m.AdjR2
	}

	available := eligible(tab, pool, chosen, opts.MinObs)

	for len(chosen) < opts.MaxFactors {
		bestCandidate := ""
		bestAdj := math.Inf(-1)
		var bestObs int

		for _, c := range available {
			if contains(chosen, c) {
				continue
			}
			m, err := regress.FitTable(tab, response, append(append([]string(nil), chosen...), c))
			if err != nil || m.NObs < opts.MinObs {
				continue
			}
			// Strictly-greater keeps earlier pool entries on exact ties.
			if m.AdjR2 > bestAdj+eps {
				bestCandidate, bestAdj, bestObs = c, m.AdjR2, m.NObs
			}
		}

		if bestCandidate == "" || bestAdj <= best+eps {
			break
		}
		chosen = append(chosen, bestCandidate)
		steps = append(steps, Step{Factor: bestCandidate, AdjR2: bestAdj, NObs: bestObs})
		best = bestAdj
	}

	// Pad thin selections from pool order so a downstream model always has
	// something to explain returns with.
	for _, c := range available {
		if len(chosen) >= opts.MinFactors {
			break
		}
		if contains(chosen, c) {
			continue
		}
		chosen = append(chosen, c)
		step := Step{Factor: c, AdjR2: math.NaN(), Padded: true}
		if m, err := regress.FitTable(tab, response, chosen); err == nil {
			step.AdjR2 = m.AdjR2
			step.NObs = m.NObs
		}
		steps = append(steps, step)
	}

	if len(chosen) == 0 {
		return nil, apperrors.New(apperrors.ErrorCategoryModel, "selector", response,
			"no candidate factor produced a usable fit")
	}
	return &Result{Factors: chosen, Steps: steps}, nil
}

// eligible filters the pool to factors present in the table with enough
// observations, preserving pool order.
func eligible(tab *timeseries.FactorTable, pool, seed []string, minObs int) []string {
	var out []string
	for _, c := range pool {
		if contains(seed, c) {
			continue
		}
		if tab.HasColumn(c) && tab.NonMissing(c) > minObs {
			out = append(out, c)
		}
	}
	return out
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
