package fetch

import (
	"encoding/csv"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	apperrors "github.com/hfanalytics/macro-factor-attribution/internal/errors"
	"github.com/hfanalytics/macro-factor-attribution/pkg/timeseries"
)

// DefaultFREDBaseURL is the public fredgraph CSV endpoint.
const DefaultFREDBaseURL = "https://fred.stlouisfed.org/graph/fredgraph.csv"

// fredTransform is the declared rule turning a level series into a factor.
type fredTransform int

const (
	transformPctChange fredTransform = iota // monthly return of the level
	transformDiffBps                        // first difference / 100, percent points to fraction
)

// fredSeries binds one FRED series id to its factor name and transform.
type fredSeries struct {
	ID        string
	Factor    string
	Transform fredTransform
}

// fredSeriesSet is the macro proxy set: USD index return, 10y yield change,
// HY OAS change.
var fredSeriesSet = []fredSeries{
	{ID: "DTWEXBGS", Factor: "usd_ret", Transform: transformPctChange},
	{ID: "DGS10", Factor: "dgs10_chg", Transform: transformDiffBps},
	{ID: "BAMLH0A0HYM2", Factor: "hy_oas_chg", Transform: transformDiffBps},
}

// FREDClient downloads series from the FRED graph CSV endpoint.
type FREDClient struct {
	httpClient *http.Client
	baseURL    string
}

// NewFREDClient creates a client; baseURL "" uses the public endpoint.
func NewFREDClient(httpClient *http.Client, baseURL string) *FREDClient {
	if baseURL == "" {
		baseURL = DefaultFREDBaseURL
	}
	return &FREDClient{httpClient: httpClient, baseURL: baseURL}
}

// FetchLevels downloads one series as dated level observations. FRED marks
// missing days with "."; those rows are dropped.
func (c *FREDClient) FetchLevels(seriesID string) ([]time.Time, []float64, error) {
	url := fmt.Sprintf("%s?id=%s", c.baseURL, seriesID)
	resp, err := c.httpClient.Get(url)
	if err != nil {
		return nil, nil, apperrors.Wrap(err, apperrors.ErrorCategoryNetwork, "fred", seriesID, "request failed")
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 256))
		return nil, nil, apperrors.New(apperrors.ErrorCategoryNetwork, "fred", seriesID,
			fmt.Sprintf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(body))))
	}

	reader := csv.NewReader(resp.Body)
	if _, err := reader.Read(); err != nil {
		return nil, nil, apperrors.Wrap(err, apperrors.ErrorCategoryData, "fred", seriesID, "empty response")
	}

	var dates []time.Time
	var levels []float64
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, nil, apperrors.Wrap(err, apperrors.ErrorCategoryData, "fred", seriesID, "malformed CSV")
		}
		if len(record) < 2 {
			continue
		}
		date, err := time.Parse("2006-01-02", strings.TrimSpace(record[0]))
		if err != nil {
			continue
		}
		v, err := strconv.ParseFloat(strings.TrimSpace(record[1]), 64)
		if err != nil {
			continue // "." marks a missing observation
		}
		dates = append(dates, date)
		levels = append(levels, v)
	}
	if len(dates) == 0 {
		return nil, nil, apperrors.New(apperrors.ErrorCategoryData, "fred", seriesID, "no observations returned")
	}
	return dates, levels, nil
}

// FetchFactors downloads every configured FRED series, collapses each to
// month-end levels and applies its declared transform.
func (c *FREDClient) FetchFactors() (*timeseries.FactorTable, error) {
	tab := timeseries.NewFactorTable()
	for _, fs := range fredSeriesSet {
		dates, levels, err := c.FetchLevels(fs.ID)
		if err != nil {
			return nil, err
		}
		monthly := timeseries.MonthEndLast(fs.ID, dates, levels)

		var factor *timeseries.MonthlySeries
		switch fs.Transform {
		case transformPctChange:
			factor = monthly.PctChange(fs.Factor)
		case transformDiffBps:
			factor = monthly.Diff(fs.Factor, 0.01)
		}
		if err := tab.AddColumn(factor); err != nil {
			return nil, err
		}
	}
	return tab, nil
}
