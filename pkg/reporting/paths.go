package reporting

import (
	"os"
	"path/filepath"
)

// DefaultOutputDirName is created under the working directory when no
// output directory is configured.
const DefaultOutputDirName = "output_data"

// OutputPaths resolves every artifact the pipeline writes under one
// directory.
type OutputPaths struct {
	Dir string
}

// NewOutputPaths returns paths rooted at dir, defaulting when empty.
func NewOutputPaths(dir string) OutputPaths {
	if dir == "" {
		dir = DefaultOutputDirName
	}
	return OutputPaths{Dir: dir}
}

// EnsureDir creates the output directory if it does not exist.
func (p OutputPaths) EnsureDir() error {
	return os.MkdirAll(p.Dir, 0755)
}

func (p OutputPaths) join(name string) string {
	return filepath.Join(p.Dir, name)
}

// CoefficientsCSV is the per-model coefficient table path.
func (p OutputPaths) CoefficientsCSV(model string) string {
	return p.join(model + "_coefficients.csv")
}

// ComparisonCSV is the model-comparison table path.
func (p OutputPaths) ComparisonCSV() string {
	return p.join("model_comparison.csv")
}

// ExternalFactorsCSV is the merged external factor table path.
func (p OutputPaths) ExternalFactorsCSV() string {
	return p.join("external_factors_monthly.csv")
}

// LiveReturnsCSV is the fetched live ETF return series path.
func (p OutputPaths) LiveReturnsCSV() string {
	return p.join("hfgm_monthly_returns.csv")
}

// LiveStatsCSV is the live-vs-backtest statistics path.
func (p OutputPaths) LiveStatsCSV() string {
	return p.join("live_vs_backtest_stats.csv")
}

// SummaryWorkbook is the Excel summary path.
func (p OutputPaths) SummaryWorkbook() string {
	return p.join("model_summaries.xlsx")
}

// ReportMarkdown is the narrative report path.
func (p OutputPaths) ReportMarkdown() string {
	return p.join("analysis_global_macro.md")
}
