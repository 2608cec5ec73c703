package reporting

import (
	"fmt"
	"os"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/hfanalytics/macro-factor-attribution/internal/compare"
	"github.com/hfanalytics/macro-factor-attribution/internal/regress"
)

// ConsoleReporter renders models and comparisons as terminal tables.
type ConsoleReporter struct{}

// NewConsoleReporter creates a console reporter.
func NewConsoleReporter() *ConsoleReporter {
	return &ConsoleReporter{}
}

// PrintModel renders one model's fit summary and coefficient table.
func (r *ConsoleReporter) PrintModel(title string, model *regress.Model) {
	fmt.Println("\n" + strings.Repeat("=", 60))
	fmt.Printf("📈 %s\n", strings.ToUpper(title))
	fmt.Println(strings.Repeat("=", 60))
	fmt.Printf("📊 Observations:     %d\n", model.NObs)
	fmt.Printf("📊 R²:               %.4f (adj %.4f)\n", model.R2, model.AdjR2)
	fmt.Printf("💰 Alpha:            %.4f monthly (%.2f%% annualized)\n",
		model.Alpha(), model.AlphaAnnualized()*100)
	fmt.Printf("📉 Residual Vol:     %.2f%% annualized\n", model.ResidVolAnnual*100)
	fmt.Printf("🔗 Corr(fit,actual): %.4f\n", model.CorrFitted)

	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.SetStyle(table.StyleRounded)
	t.AppendHeader(table.Row{"Factor", "Coef", "Std Err", "t-Stat", "p-Value"})
	for _, c := range model.Coefficients {
		t.AppendRow(table.Row{c.Name,
			fmt.Sprintf("%.4f", c.Estimate),
			fmt.Sprintf("%.4f", c.StdErr),
			fmt.Sprintf("%.2f", c.TStat),
			fmt.Sprintf("%.4f", c.PValue)})
	}
	t.Render()
}

// PrintComparison renders the common-window model comparison.
func (r *ConsoleReporter) PrintComparison(cmp *compare.Comparison) {
	fmt.Println("\n" + strings.Repeat("=", 60))
	fmt.Println("⚖️  MODEL COMPARISON (shared window)")
	fmt.Println(strings.Repeat("=", 60))
	if len(cmp.Window) > 0 {
		fmt.Printf("🗓  Window: %s to %s (%d months)\n",
			cmp.Window[0], cmp.Window[len(cmp.Window)-1], len(cmp.Window))
	}

	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.SetStyle(table.StyleRounded)
	t.AppendHeader(table.Row{"Model", "N", "Adj R²", "Alpha (m)", "Alpha (ann)", "Resid Vol (ann)", "Corr"})
	for _, row := range cmp.Rows {
		if row.Err != nil {
			t.AppendRow(table.Row{row.Name, "-", "-", "-", "-", "-", row.Err.Error()})
			continue
		}
		t.AppendRow(table.Row{row.Name, row.NObs,
			fmt.Sprintf("%.4f", row.AdjR2),
			fmt.Sprintf("%.4f", row.AlphaMonthly),
			fmt.Sprintf("%.2f%%", row.AlphaAnnual*100),
			fmt.Sprintf("%.2f%%", row.ResidVolAnnual*100),
			fmt.Sprintf("%.4f", row.CorrFitted)})
	}
	t.Render()
}

// PrintLiveStats renders the live-vs-backtest tracking summary.
func (r *ConsoleReporter) PrintLiveStats(stats *compare.LiveStats) {
	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.SetStyle(table.StyleRounded)
	t.AppendHeader(table.Row{"Overlap", "Corr", "Beta", "Tracking Err (ann)", "Avg Diff (ann)"})
	t.AppendRow(table.Row{stats.OverlapMonths,
		fmt.Sprintf("%.4f", stats.Corr),
		fmt.Sprintf("%.4f", stats.Beta),
		fmt.Sprintf("%.2f%%", stats.TrackingErrAnnual*100),
		fmt.Sprintf("%.2f%%", stats.AvgReturnDiffAnnum*100)})
	t.Render()
}
