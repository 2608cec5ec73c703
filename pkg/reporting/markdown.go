package reporting

import (
	"fmt"
	"strings"

	"github.com/hfanalytics/macro-factor-attribution/internal/compare"
	"github.com/hfanalytics/macro-factor-attribution/internal/regress"
	"github.com/hfanalytics/macro-factor-attribution/internal/selector"
	"github.com/hfanalytics/macro-factor-attribution/pkg/timeseries"
)

// FactorDescriptions maps factor names to the one-line economic story used
// in the narrative report. Factors without an entry fall back to their name.
var FactorDescriptions = map[string]string{
	"mkt_rf":         "Equity market excess return (Fama-French market factor)",
	"smb":            "Size premium (small minus big)",
	"hml":            "Value premium (high minus low book-to-market)",
	"rmw":            "Profitability premium (robust minus weak)",
	"cma":            "Investment premium (conservative minus aggressive)",
	"usd_ret":        "Broad US dollar index return",
	"dgs10_chg":      "Monthly change in the 10-year Treasury yield",
	"hy_oas_chg":     "Monthly change in the high-yield credit spread",
	"cmdty_ret":      "Broad commodity index return (S&P GSCI)",
	"tsmom":          "Time-series momentum across all asset classes (AQR)",
	"tsmom_eq":       "Time-series momentum in equity indices (AQR)",
	"tsmom_fi":       "Time-series momentum in fixed income (AQR)",
	"tsmom_fx":       "Time-series momentum in currencies (AQR)",
	"tsmom_cm":       "Time-series momentum in commodities (AQR)",
	"val_everywhere": "Value applied across asset classes (AQR)",
	"mom_everywhere": "Cross-sectional momentum across asset classes (AQR)",
	"qmj_global":     "Quality minus junk, global (AQR)",
	"bab_global":     "Betting against beta, global (AQR)",
}

func describeFactor(name string) string {
	if d, ok := FactorDescriptions[name]; ok {
		return d
	}
	return name
}

// significanceLevel is the two-sided p-value cutoff used in the narrative.
const significanceLevel = 0.05

// MarkdownReport collects everything the narrative report renders.
type MarkdownReport struct {
	FundName      string
	FundMonths    []timeseries.Month
	FF5Model      *regress.Model
	EconModel     *regress.Model
	EconRationale string
	GreedyResult  *selector.Result
	GreedyModel   *regress.Model
	Comparison    *compare.Comparison
	Omitted       []string
	LiveStats     *compare.LiveStats
	LiveSymbol    string
}

// WriteMarkdown renders the narrative analysis report to path.
func WriteMarkdown(rep *MarkdownReport, path string) error {
	var b strings.Builder

	b.WriteString("# Factor Attribution: Global Macro Strategy\n\n")

	writeDataOverview(&b, rep)
	writeModelSection(&b, "Fama-French Five-Factor Baseline", rep.FF5Model)
	writeModelSection(&b, "Economist Model", rep.EconModel)
	if rep.EconRationale != "" {
		b.WriteString(rep.EconRationale + "\n\n")
	}
	writeGreedySection(&b, rep.GreedyResult, rep.GreedyModel)
	writeComparisonSection(&b, rep.Comparison)
	writeLiveSection(&b, rep)
	writeBottomLine(&b, rep)

	f, err := createWithDir(path)
	if err != nil {
		return err
	}
	defer f.Close()
	_, err = f.WriteString(b.String())
	return err
}

func writeDataOverview(b *strings.Builder, rep *MarkdownReport) {
	b.WriteString("## Data Overview\n\n")
	if n := len(rep.FundMonths); n > 0 {
		b.WriteString(fmt.Sprintf("Fund return history for %s covers %s to %s (%d months).\n\n",
			rep.FundName, rep.FundMonths[0], rep.FundMonths[n-1], n))
	}
	if len(rep.Omitted) > 0 {
		b.WriteString(fmt.Sprintf("Factors omitted for lack of data: %s.\n\n",
			strings.Join(rep.Omitted, ", ")))
	}
}

func writeModelSection(b *strings.Builder, title string, model *regress.Model) {
	b.WriteString("## " + title + "\n\n")
	if model == nil {
		b.WriteString("Model could not be fit.\n\n")
		return
	}

	b.WriteString(fmt.Sprintf("Fit on %d months. R² = %.3f, adjusted R² = %.3f, "+
		"annualized residual volatility = %.2f%%.\n\n",
		model.NObs, model.R2, model.AdjR2, model.ResidVolAnnual*100))

	alpha, _ := model.Coefficient(regress.Intercept)
	if alpha.PValue < significanceLevel {
		b.WriteString(fmt.Sprintf("Alpha of %.2f%% annualized is statistically significant "+
			"(p = %.4f): the factor set does not fully explain the strategy's return.\n\n",
			model.AlphaAnnualized()*100, alpha.PValue))
	} else {
		b.WriteString(fmt.Sprintf("Alpha of %.2f%% annualized is not statistically significant "+
			"(p = %.4f).\n\n", model.AlphaAnnualized()*100, alpha.PValue))
	}

	writeCoefficientTable(b, model)

	var loaded []string
	for _, c := range model.Coefficients {
		if c.Name == regress.Intercept {
			continue
		}
		if c.PValue < significanceLevel {
			loaded = append(loaded, c.Name)
		}
	}
	if len(loaded) > 0 {
		b.WriteString("Significant exposures:\n\n")
		for _, name := range loaded {
			c, _ := model.Coefficient(name)
			b.WriteString(fmt.Sprintf("- **%s** (β = %.3f, t = %.2f): %s\n",
				name, c.Estimate, c.TStat, describeFactor(name)))
		}
		b.WriteString("\n")
	} else {
		b.WriteString("No factor loading is significant at the 5% level.\n\n")
	}
}

func writeCoefficientTable(b *strings.Builder, model *regress.Model) {
	header := []string{"Factor", "Coef", "Std Err", "t-Stat", "p-Value"}
	rows := make([][]string, 0, len(model.Coefficients))
	for _, c := range model.Coefficients {
		rows = append(rows, []string{c.Name,
			fmt.Sprintf("%.4f", c.Estimate),
			fmt.Sprintf("%.4f", c.StdErr),
			fmt.Sprintf("%.2f", c.TStat),
			fmt.Sprintf("%.4f", c.PValue)})
	}
	mdTable(b, header, rows)
}

func writeGreedySection(b *strings.Builder, res *selector.Result, model *regress.Model) {
	b.WriteString("## Greedy Forward Selection\n\n")
	if res == nil {
		b.WriteString("Selection did not produce a model.\n\n")
		return
	}

	b.WriteString("Factors were added one at a time, each step keeping the candidate " +
		"that raised adjusted R² the most:\n\n")
	header := []string{"Step", "Factor Added", "Adj R²", "N"}
	rows := make([][]string, 0, len(res.Steps))
	for i, step := range res.Steps {
		label := step.Factor
		if step.Padded {
			label += " (minimum-size fill)"
		}
		rows = append(rows, []string{fmt.Sprintf("%d", i+1), label,
			fmt.Sprintf("%.4f", step.AdjR2), fmt.Sprintf("%d", step.NObs)})
	}
	mdTable(b, header, rows)

	if model != nil {
		writeModelSection(b, "Selected Model", model)
	}
}

func writeComparisonSection(b *strings.Builder, cmp *compare.Comparison) {
	b.WriteString("## Model Comparison\n\n")
	if cmp == nil {
		b.WriteString("No comparison was run.\n\n")
		return
	}
	if len(cmp.Window) > 0 {
		b.WriteString(fmt.Sprintf("All models re-fit on the shared window %s to %s (%d months).\n\n",
			cmp.Window[0], cmp.Window[len(cmp.Window)-1], len(cmp.Window)))
	}

	header := []string{"Model", "N", "Adj R²", "Alpha (ann)", "Resid Vol (ann)", "Corr"}
	rows := make([][]string, 0, len(cmp.Rows))
	for _, row := range cmp.Rows {
		if row.Err != nil {
			rows = append(rows, []string{row.Name, "-", "-", "-", "-", row.Err.Error()})
			continue
		}
		rows = append(rows, []string{row.Name,
			fmt.Sprintf("%d", row.NObs),
			fmt.Sprintf("%.4f", row.AdjR2),
			fmt.Sprintf("%.2f%%", row.AlphaAnnual*100),
			fmt.Sprintf("%.2f%%", row.ResidVolAnnual*100),
			fmt.Sprintf("%.4f", row.CorrFitted)})
	}
	mdTable(b, header, rows)
}

func writeLiveSection(b *strings.Builder, rep *MarkdownReport) {
	if rep.LiveStats == nil {
		return
	}
	b.WriteString(fmt.Sprintf("## Live Comparison (%s)\n\n", rep.LiveSymbol))
	b.WriteString(fmt.Sprintf("Over %d overlapping months the live series tracks the "+
		"backtest with correlation %.2f and beta %.2f. Annualized tracking error is %.2f%% "+
		"and the live series returned %.2f%% per annum versus the backtest.\n\n",
		rep.LiveStats.OverlapMonths, rep.LiveStats.Corr, rep.LiveStats.Beta,
		rep.LiveStats.TrackingErrAnnual*100, rep.LiveStats.AvgReturnDiffAnnum*100))
}

func writeBottomLine(b *strings.Builder, rep *MarkdownReport) {
	b.WriteString("## Bottom Line\n\n")
	best := bestRow(rep.Comparison)
	if best == nil {
		b.WriteString("No model could be fit on a shared window.\n\n")
		return
	}
	b.WriteString(fmt.Sprintf("The **%s** model explains the strategy best on the shared "+
		"window (adjusted R² = %.3f). ", best.Name, best.AdjR2))
	if best.Model != nil {
		if alpha, ok := best.Model.Coefficient(regress.Intercept); ok && alpha.PValue < significanceLevel {
			b.WriteString(fmt.Sprintf("Its residual alpha of %.2f%% annualized remains "+
				"significant, so part of the return stream is not spanned by the candidate factors.\n",
				best.AlphaAnnual*100))
			return
		}
	}
	b.WriteString("Its residual alpha is indistinguishable from zero, so the factor set " +
		"accounts for the strategy's performance.\n")
}

// bestRow returns the successful comparison row with the highest adjusted R².
func bestRow(cmp *compare.Comparison) *compare.Row {
	if cmp == nil {
		return nil
	}
	var best *compare.Row
	for i := range cmp.Rows {
		row := &cmp.Rows[i]
		if row.Err != nil {
			continue
		}
		if best == nil || row.AdjR2 > best.AdjR2 {
			best = row
		}
	}
	return best
}

// mdTable writes a GitHub-flavored markdown table.
func mdTable(b *strings.Builder, header []string, rows [][]string) {
	b.WriteString("| " + strings.Join(header, " | ") + " |\n")
	sep := make([]string, len(header))
	for i := range sep {
		sep[i] = "---"
	}
	b.WriteString("| " + strings.Join(sep, " | ") + " |\n")
	for _, row := range rows {
		b.WriteString("| " + strings.Join(row, " | ") + " |\n")
	}
	b.WriteString("\n")
}
