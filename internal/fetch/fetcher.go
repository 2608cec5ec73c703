package fetch

import (
	"fmt"
	"log"
	"net/http"

	"github.com/hfanalytics/macro-factor-attribution/pkg/timeseries"
)

// CommoditySymbol is the commodity index proxy fetched from the price
// history provider.
const CommoditySymbol = "^SPGSCI"

// Source is one remote factor provider. Key doubles as the cache key.
type Source interface {
	Key() string
	Fetch() (*timeseries.FactorTable, error)
}

type sourceFunc struct {
	key string
	fn  func() (*timeseries.FactorTable, error)
}

func (s sourceFunc) Key() string                             { return s.key }
func (s sourceFunc) Fetch() (*timeseries.FactorTable, error) { return s.fn() }

// NewSource wraps a fetch function as a Source.
func NewSource(key string, fn func() (*timeseries.FactorTable, error)) Source {
	return sourceFunc{key: key, fn: fn}
}

// DefaultSources builds the standard source set: FRED macro proxies, the
// commodity index proxy, and the AQR factor workbooks. Base URLs left empty
// resolve to the public endpoints.
func DefaultSources(httpClient *http.Client, fredURL, yahooURL, aqrURL string, start timeseries.Month) []Source {
	fred := NewFREDClient(httpClient, fredURL)
	yahoo := NewYahooClient(httpClient, yahooURL)
	aqr := NewAQRClient(httpClient, aqrURL)

	return []Source{
		NewSource("fred_factors_monthly", fred.FetchFactors),
		NewSource("cmdty_factor_monthly", func() (*timeseries.FactorTable, error) {
			ret, err := yahoo.MonthlyReturns(CommoditySymbol, "cmdty_ret", start)
			if err != nil {
				return nil, err
			}
			tab := timeseries.NewFactorTable()
			if err := tab.AddColumn(ret); err != nil {
				return nil, err
			}
			return tab, nil
		}),
		NewSource("aqr_factors_monthly", aqr.FetchFactors),
	}
}

// Report is the outcome of one fetch pass: the merged factor table plus the
// degradations that happened along the way.
type Report struct {
	Table    *timeseries.FactorTable
	Warnings []string // cache fallbacks and omissions, human readable
	Omitted  []string // source keys with neither live data nor cache
}

// Fetcher retrieves all sources with cache fallback. It holds no state
// beyond its configuration; the cache handle is explicit.
type Fetcher struct {
	cache   *Cache
	sources []Source
	start   timeseries.Month
	offline bool
}

// NewFetcher creates a fetcher. With offline true no network call is made
// and every source loads from cache.
func NewFetcher(cache *Cache, sources []Source, start timeseries.Month, offline bool) *Fetcher {
	return &Fetcher{cache: cache, sources: sources, start: start, offline: offline}
}

// FetchAll retrieves every source, falling back to the cache on failure and
// omitting sources with no cache. Omission is not fatal here; models that
// require an omitted factor fail later with an error naming it.
func (f *Fetcher) FetchAll() (*Report, error) {
	report := &Report{Table: timeseries.NewFactorTable()}

	for _, src := range f.sources {
		var tab *timeseries.FactorTable
		var err error

		if f.offline {
			err = fmt.Errorf("offline mode")
		} else {
			tab, err = src.Fetch()
		}

		if err == nil {
			if werr := f.cache.Write(src.Key(), tab); werr != nil {
				log.Printf("⚠️  Could not cache %s: %v", src.Key(), werr)
			}
		} else {
			fetchErr := err
			if f.cache.Has(src.Key()) {
				if cached, cerr := f.cache.Read(src.Key()); cerr == nil {
					tab = cached
					warning := fmt.Sprintf("%s fetch skipped (%v); loaded local cache", src.Key(), fetchErr)
					report.Warnings = append(report.Warnings, warning)
					log.Printf("⚠️  %s", warning)
				}
			}
			if tab == nil {
				warning := fmt.Sprintf("%s unavailable (%v) and no cache exists; factors omitted from the candidate pool", src.Key(), fetchErr)
				report.Warnings = append(report.Warnings, warning)
				report.Omitted = append(report.Omitted, src.Key())
				log.Printf("⚠️  %s", warning)
				continue
			}
		}

		for _, name := range tab.Columns() {
			s, _ := tab.Column(name)
			if err := report.Table.AddColumn(s.TrimBefore(f.start)); err != nil {
				return nil, err
			}
		}
	}
	return report, nil
}
