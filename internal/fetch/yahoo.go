package fetch

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	apperrors "github.com/hfanalytics/macro-factor-attribution/internal/errors"
	"github.com/hfanalytics/macro-factor-attribution/pkg/timeseries"
)

// DefaultYahooBaseURL is the public chart API root.
const DefaultYahooBaseURL = "https://query1.finance.yahoo.com/v8/finance/chart"

// YahooClient downloads monthly price history from the chart API. It serves
// the commodity index proxy and the live ETF series.
type YahooClient struct {
	httpClient *http.Client
	baseURL    string
}

// NewYahooClient creates a client; baseURL "" uses the public endpoint.
func NewYahooClient(httpClient *http.Client, baseURL string) *YahooClient {
	if baseURL == "" {
		baseURL = DefaultYahooBaseURL
	}
	return &YahooClient{httpClient: httpClient, baseURL: baseURL}
}

// chartResponse is the subset of the chart payload the pipeline reads.
type chartResponse struct {
	Chart struct {
		Result []struct {
			Timestamp  []int64 `json:"timestamp"`
			Indicators struct {
				Quote []struct {
					Close []*float64 `json:"close"`
				} `json:"quote"`
				AdjClose []struct {
					AdjClose []*float64 `json:"adjclose"`
				} `json:"adjclose"`
			} `json:"indicators"`
		} `json:"result"`
		Error *struct {
			Code        string `json:"code"`
			Description string `json:"description"`
		} `json:"error"`
	} `json:"chart"`
}

// MonthlyCloses downloads the close history since start and reduces it to
// month-end closing levels. Adjusted closes are preferred when present.
func (c *YahooClient) MonthlyCloses(symbol string, start timeseries.Month) (*timeseries.MonthlySeries, error) {
	endpoint := fmt.Sprintf("%s/%s?period1=%d&period2=%d&interval=1d&events=div%%2Csplit",
		c.baseURL, url.PathEscape(symbol),
		time.Date(start.Year, start.Mon, 1, 0, 0, 0, 0, time.UTC).Unix(),
		time.Now().Unix())

	resp, err := c.httpClient.Get(endpoint)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrorCategoryNetwork, "yahoo", symbol, "request failed")
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 256))
		return nil, apperrors.New(apperrors.ErrorCategoryNetwork, "yahoo", symbol,
			fmt.Sprintf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(body))))
	}

	var payload chartResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrorCategoryData, "yahoo", symbol, "malformed chart payload")
	}
	if payload.Chart.Error != nil {
		return nil, apperrors.New(apperrors.ErrorCategoryData, "yahoo", symbol,
			fmt.Sprintf("chart error %s: %s", payload.Chart.Error.Code, payload.Chart.Error.Description))
	}
	if len(payload.Chart.Result) == 0 {
		return nil, apperrors.New(apperrors.ErrorCategoryData, "yahoo", symbol, "empty chart result")
	}

	result := payload.Chart.Result[0]
	var closes []*float64
	if adj := result.Indicators.AdjClose; len(adj) > 0 && len(adj[0].AdjClose) > 0 {
		closes = adj[0].AdjClose
	} else if quote := result.Indicators.Quote; len(quote) > 0 && len(quote[0].Close) > 0 {
		closes = quote[0].Close
	} else {
		return nil, apperrors.New(apperrors.ErrorCategoryData, "yahoo", symbol, "no close prices in payload")
	}

	var dates []time.Time
	var levels []float64
	for i, ts := range result.Timestamp {
		if i >= len(closes) || closes[i] == nil {
			continue
		}
		dates = append(dates, time.Unix(ts, 0).UTC())
		levels = append(levels, *closes[i])
	}
	if len(dates) == 0 {
		return nil, apperrors.New(apperrors.ErrorCategoryData, "yahoo", symbol, "no usable price rows")
	}
	return timeseries.MonthEndLast(symbol, dates, levels), nil
}

// MonthlyReturns converts the month-end closes of symbol into fractional
// monthly returns under the given factor name.
func (c *YahooClient) MonthlyReturns(symbol, factorName string, start timeseries.Month) (*timeseries.MonthlySeries, error) {
	closes, err := c.MonthlyCloses(symbol, start)
	if err != nil {
		return nil, err
	}
	return closes.PctChange(factorName), nil
}
