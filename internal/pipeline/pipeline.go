// Package pipeline runs the full attribution batch: load local inputs, fetch
// external factors with cache fallback, fit the three candidate models,
// compare them on one shared window and write every report artifact.
package pipeline

import (
	"fmt"
	"log"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/hfanalytics/macro-factor-attribution/internal/compare"
	"github.com/hfanalytics/macro-factor-attribution/internal/config"
	apperrors "github.com/hfanalytics/macro-factor-attribution/internal/errors"
	"github.com/hfanalytics/macro-factor-attribution/internal/fetch"
	"github.com/hfanalytics/macro-factor-attribution/internal/regress"
	"github.com/hfanalytics/macro-factor-attribution/internal/selector"
	"github.com/hfanalytics/macro-factor-attribution/pkg/data"
	"github.com/hfanalytics/macro-factor-attribution/pkg/reporting"
	"github.com/hfanalytics/macro-factor-attribution/pkg/timeseries"
)

const (
	// FundReturnName is the raw fund return column.
	FundReturnName = "fund_ret"
	// ResponseName is the regression response: fund return minus the
	// risk-free rate.
	ResponseName = "fund_excess"
	// RiskFreeName is the risk-free column from the benchmark file.
	RiskFreeName = "rf"
)

// FF5Factors is the Fama-French five-factor baseline model.
var FF5Factors = []string{"mkt_rf", "smb", "hml", "rmw", "cma"}

// AllCandidates is the full greedy-selection pool in its fixed evaluation
// order. Ties on adjusted R² resolve to the earlier entry.
var AllCandidates = []string{
	"mkt_rf", "usd_ret", "dgs10_chg", "hy_oas_chg", "cmdty_ret",
	"tsmom", "val_everywhere", "mom_everywhere",
	"tsmom_eq", "tsmom_fi", "tsmom_fx", "tsmom_cm",
	"qmj_global", "bab_global",
}

// EconPriority ranks candidates by economic prior for the hand-picked model:
// a global macro fund should load on market beta, trend, value and macro
// rates before anything else.
var EconPriority = []string{
	"mkt_rf", "tsmom", "val_everywhere", "hy_oas_chg",
	"usd_ret", "dgs10_chg", "mom_everywhere", "cmdty_ret",
}

// Result carries everything one batch produced, for reporting and tests.
type Result struct {
	Fund        *timeseries.MonthlySeries
	Table       *timeseries.FactorTable
	FetchReport *fetch.Report
	Omitted     []string // candidate factors absent from the merged table

	FF5Model    *regress.Model
	EconFactors []string
	EconModel   *regress.Model
	Greedy      *selector.Result
	GreedyModel *regress.Model

	Comparison *compare.Comparison
	Live       *timeseries.MonthlySeries
	LiveStats  *compare.LiveStats
}

// Pipeline wires the batch together. Sources and the live fetch are fields
// so tests can substitute local servers or stubs.
type Pipeline struct {
	cfg     *config.Config
	client  *http.Client
	console *reporting.ConsoleReporter

	// Sources overrides the default remote set when non-nil.
	Sources []fetch.Source
	// FetchLive overrides the default live price fetch when non-nil.
	FetchLive func(symbol, name string, from timeseries.Month) (*timeseries.MonthlySeries, error)
}

// New creates a pipeline over the given settings.
func New(cfg *config.Config) *Pipeline {
	return &Pipeline{
		cfg:     cfg,
		client:  &http.Client{Timeout: cfg.Fetch.HTTPTimeout},
		console: reporting.NewConsoleReporter(),
	}
}

// Run executes the batch and writes the configured outputs.
func (p *Pipeline) Run() error {
	res, err := p.Analyze()
	if err != nil {
		return err
	}
	return p.Report(res)
}

// Analyze executes every stage up to (not including) output writing.
func (p *Pipeline) Analyze() (*Result, error) {
	res := &Result{}

	// Local inputs. These are the only hard stops in the batch.
	fundPath := filepath.Join(p.cfg.Data.Dir, p.cfg.Data.FundWorkbook)
	fund, err := data.LoadFundWorkbook(fundPath, FundReturnName)
	if err != nil {
		return nil, err
	}
	res.Fund = fund
	log.Printf("📊 Loaded %d months of fund returns from %s", fund.Len(), fundPath)

	ff5Path := filepath.Join(p.cfg.Data.Dir, p.cfg.Data.FF5File)
	ff5, err := data.LoadBenchmarkDaily(ff5Path)
	if err != nil {
		return nil, err
	}
	log.Printf("📊 Loaded benchmark factors from %s", ff5Path)

	start, err := timeseries.ParseMonth(p.cfg.Fetch.StartDate)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrorCategoryConfig, "pipeline", p.cfg.Fetch.StartDate, "invalid start date")
	}

	// External factors, degrading to cache and then omission per source.
	cache, err := fetch.NewCache(p.cfg.Fetch.CacheDir)
	if err != nil {
		return nil, err
	}
	sources := p.Sources
	if sources == nil {
		sources = fetch.DefaultSources(p.client, "", "", "", start)
	}
	report, err := fetch.NewFetcher(cache, sources, start, p.cfg.Fetch.Offline).FetchAll()
	if err != nil {
		return nil, err
	}
	res.FetchReport = report

	// One candidate table: benchmark factors, fund return and excess
	// return, externals, then any local theme overlay.
	tab := timeseries.NewFactorTable()
	if err := tab.Merge(ff5); err != nil {
		return nil, err
	}
	if err := tab.AddColumn(fund); err != nil {
		return nil, err
	}
	rf, err := tab.Column(RiskFreeName)
	if err != nil {
		return nil, err
	}
	if err := tab.AddColumn(timeseries.Sub(ResponseName, fund, rf)); err != nil {
		return nil, err
	}
	if err := tab.Merge(report.Table); err != nil {
		return nil, err
	}
	if theme, ok, err := data.LoadThemeCSV(filepath.Join(p.cfg.Data.Dir, p.cfg.Data.ThemeCSV)); err != nil {
		log.Printf("⚠️  Theme factors skipped: %v", err)
	} else if ok {
		// The overlay is optional, so a column colliding with an already
		// loaded factor is a warning, not a stop.
		merged := 0
		for _, name := range theme.Columns() {
			if tab.HasColumn(name) {
				log.Printf("⚠️  Theme factor %s already present; keeping the existing series", name)
				continue
			}
			s, err := theme.Column(name)
			if err != nil {
				return nil, err
			}
			if err := tab.AddColumn(s); err != nil {
				return nil, err
			}
			merged++
		}
		log.Printf("📊 Merged %d local theme factors", merged)
	}
	res.Table = tab

	for _, name := range AllCandidates {
		if !tab.HasColumn(name) {
			res.Omitted = append(res.Omitted, name)
		}
	}
	if len(res.Omitted) > 0 {
		log.Printf("⚠️  Candidates without data this run: %s", strings.Join(res.Omitted, ", "))
	}

	p.fitModels(res)
	p.compareModels(res)
	p.fetchLive(res, fund)

	return res, nil
}

// fitModels fits the three candidate models. Fit failures are local: the
// model is reported as failed and the batch continues.
func (p *Pipeline) fitModels(res *Result) {
	if m, err := regress.FitTable(res.Table, ResponseName, FF5Factors); err != nil {
		log.Printf("❌ Five-factor model failed: %v", err)
	} else {
		res.FF5Model = m
	}

	res.EconFactors = p.pickEconFactors(res.Table)
	if len(res.EconFactors) == 0 {
		log.Printf("❌ Economist model has no usable factors")
	} else if m, err := regress.FitTable(res.Table, ResponseName, res.EconFactors); err != nil {
		log.Printf("❌ Economist model failed: %v", err)
	} else {
		res.EconModel = m
	}

	sel, err := selector.Forward(res.Table, ResponseName, AllCandidates, selector.Options{
		MaxFactors: p.cfg.Selection.MaxFactors,
		MinFactors: p.cfg.Selection.MinFactors,
		MinObs:     p.cfg.Selection.MinObs,
	})
	if err != nil {
		log.Printf("❌ Greedy selection failed: %v", err)
		return
	}
	res.Greedy = sel
	if m, err := regress.FitTable(res.Table, ResponseName, sel.Factors); err != nil {
		log.Printf("❌ Greedy model failed: %v", err)
	} else {
		res.GreedyModel = m
	}
}

// pickEconFactors walks the priority list and keeps the first MaxFactors
// candidates with enough non-missing months.
func (p *Pipeline) pickEconFactors(tab *timeseries.FactorTable) []string {
	var picked []string
	for _, name := range EconPriority {
		if len(picked) >= p.cfg.Selection.MaxFactors {
			break
		}
		if tab.HasColumn(name) && tab.NonMissing(name) > p.cfg.Selection.MinObs {
			picked = append(picked, name)
		}
	}
	return picked
}

// compareModels re-fits every model that produced a factor set on one
// shared month window.
func (p *Pipeline) compareModels(res *Result) {
	specs := []compare.ModelSpec{{Name: "ff5", Factors: FF5Factors}}
	if len(res.EconFactors) > 0 {
		specs = append(specs, compare.ModelSpec{Name: "economist", Factors: res.EconFactors})
	}
	if res.Greedy != nil {
		specs = append(specs, compare.ModelSpec{Name: "greedy", Factors: res.Greedy.Factors})
	}

	cmp, err := compare.Run(res.Table, ResponseName, specs)
	if err != nil {
		log.Printf("❌ Model comparison failed: %v", err)
		return
	}
	res.Comparison = cmp
}

// fetchLive pulls the listed ETF's return history and compares it with the
// backtest. Every failure here is a warning only.
func (p *Pipeline) fetchLive(res *Result, fund *timeseries.MonthlySeries) {
	if p.cfg.Fetch.Offline && p.FetchLive == nil {
		log.Printf("⚠️  Offline run; live comparison skipped")
		return
	}
	from, err := timeseries.ParseMonth(p.cfg.Live.From)
	if err != nil {
		log.Printf("⚠️  Invalid live start %q; live comparison skipped", p.cfg.Live.From)
		return
	}

	fetchLive := p.FetchLive
	if fetchLive == nil {
		yahoo := fetch.NewYahooClient(p.client, "")
		fetchLive = func(symbol, name string, from timeseries.Month) (*timeseries.MonthlySeries, error) {
			return yahoo.MonthlyReturns(symbol, name, from)
		}
	}

	live, err := fetchLive(p.cfg.Live.Symbol, "live_ret", from)
	if err != nil {
		log.Printf("⚠️  Live returns for %s unavailable: %v", p.cfg.Live.Symbol, err)
		return
	}
	res.Live = live

	stats, err := compare.LiveVsBacktest(fund, live)
	if err != nil {
		log.Printf("⚠️  Live comparison skipped: %v", err)
		return
	}
	res.LiveStats = stats
}

// Report renders the console view and, unless console-only, every file
// artifact.
func (p *Pipeline) Report(res *Result) error {
	if res.FF5Model != nil {
		p.console.PrintModel("five-factor baseline", res.FF5Model)
	}
	if res.EconModel != nil {
		p.console.PrintModel("economist model", res.EconModel)
	}
	if res.GreedyModel != nil {
		p.console.PrintModel("greedy model", res.GreedyModel)
	}
	if res.Comparison != nil {
		p.console.PrintComparison(res.Comparison)
	}
	if res.LiveStats != nil {
		fmt.Printf("\n📡 Live tracking (%s):\n", p.cfg.Live.Symbol)
		p.console.PrintLiveStats(res.LiveStats)
	}

	if p.cfg.Output.ConsoleOnly {
		return nil
	}
	return p.writeArtifacts(res)
}

func (p *Pipeline) writeArtifacts(res *Result) error {
	paths := reporting.NewOutputPaths(p.cfg.Output.Dir)
	if err := paths.EnsureDir(); err != nil {
		return apperrors.Wrap(err, apperrors.ErrorCategoryConfig, "pipeline", paths.Dir, "cannot create output directory")
	}

	models := map[string]*regress.Model{
		"ff5":       res.FF5Model,
		"economist": res.EconModel,
		"greedy":    res.GreedyModel,
	}
	order := []string{"ff5", "economist", "greedy"}
	for _, name := range order {
		model := models[name]
		if model == nil {
			continue
		}
		if err := reporting.WriteCoefficientsCSV(model, paths.CoefficientsCSV(name)); err != nil {
			return err
		}
	}

	if res.Comparison != nil {
		if err := reporting.WriteComparisonCSV(res.Comparison, paths.ComparisonCSV()); err != nil {
			return err
		}
	}
	if res.FetchReport != nil && res.FetchReport.Table != nil {
		if err := reporting.WriteFactorTableCSV(res.FetchReport.Table, paths.ExternalFactorsCSV()); err != nil {
			return err
		}
	}
	if res.Live != nil {
		if err := reporting.WriteSeriesCSV(res.Live, paths.LiveReturnsCSV()); err != nil {
			return err
		}
	}
	if res.LiveStats != nil {
		if err := reporting.WriteLiveStatsCSV(res.LiveStats, paths.LiveStatsCSV()); err != nil {
			return err
		}
	}
	if err := reporting.WriteSummaryWorkbook(models, order, res.Comparison, paths.SummaryWorkbook()); err != nil {
		return err
	}

	rep := &reporting.MarkdownReport{
		FundName:      p.cfg.Data.FundWorkbook,
		FundMonths:    res.Fund.Months(),
		FF5Model:      res.FF5Model,
		EconModel:     res.EconModel,
		EconRationale: econRationale(res.EconFactors),
		GreedyResult:  res.Greedy,
		GreedyModel:   res.GreedyModel,
		Comparison:    res.Comparison,
		Omitted:       res.Omitted,
		LiveStats:     res.LiveStats,
		LiveSymbol:    p.cfg.Live.Symbol,
	}
	if err := reporting.WriteMarkdown(rep, paths.ReportMarkdown()); err != nil {
		return err
	}

	log.Printf("📊 Outputs written to %s", paths.Dir)
	return nil
}

// econRationale explains the hand-picked factor set in one sentence.
func econRationale(factors []string) string {
	if len(factors) == 0 {
		return ""
	}
	return fmt.Sprintf("Factors hand-picked on economic priors, in order: %s.",
		strings.Join(factors, ", "))
}
