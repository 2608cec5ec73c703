package fetch

import (
	"bytes"
	"fmt"
	"io"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	apperrors "github.com/hfanalytics/macro-factor-attribution/internal/errors"
	"github.com/hfanalytics/macro-factor-attribution/pkg/timeseries"
)

// DefaultAQRBaseURL is the root of the published AQR dataset workbooks.
const DefaultAQRBaseURL = "https://www.aqr.com/-/media/AQR/Documents/Insights/Data-Sets"

// aqrDataset describes one workbook: which sheet to read, how to recognize
// its header row, and how its columns map onto factor names.
type aqrDataset struct {
	Key      string
	File     string
	Sheet    string
	Requires []string          // upper-cased header cells that mark the header row
	Columns  map[string]string // workbook header -> factor name
}

var aqrDatasets = []aqrDataset{
	{
		Key:      "tsmom",
		File:     "Time-Series-Momentum-Factors-Monthly.xlsx",
		Sheet:    "TSMOM Factors",
		Requires: []string{"TSMOM"},
		Columns: map[string]string{
			"TSMOM":    "tsmom",
			"TSMOM^EQ": "tsmom_eq",
			"TSMOM^FI": "tsmom_fi",
			"TSMOM^FX": "tsmom_fx",
			"TSMOM^CM": "tsmom_cm",
		},
	},
	{
		Key:      "vme",
		File:     "Value-and-Momentum-Everywhere-Factors-Monthly.xlsx",
		Sheet:    "VME Factors",
		Requires: []string{"DATE", "VAL"},
		Columns: map[string]string{
			"VAL": "val_everywhere",
			"MOM": "mom_everywhere",
		},
	},
	{
		Key:      "qmj",
		File:     "Quality-Minus-Junk-Factors-Monthly.xlsx",
		Sheet:    "QMJ Factors",
		Requires: []string{"DATE", "GLOBAL"},
		Columns:  map[string]string{"GLOBAL": "qmj_global"},
	},
	{
		Key:      "bab",
		File:     "Betting-Against-Beta-Equity-Factors-Monthly.xlsx",
		Sheet:    "BAB Factors",
		Requires: []string{"DATE", "GLOBAL"},
		Columns:  map[string]string{"GLOBAL": "bab_global"},
	},
}

// headerScanRows bounds the search for the header row; AQR workbooks carry
// a preamble of 10-20 description rows.
const headerScanRows = 30

// AQRClient downloads and parses the AQR monthly factor workbooks.
type AQRClient struct {
	httpClient *http.Client
	baseURL    string
	maxRetries int
	retryDelay time.Duration
}

// NewAQRClient creates a client; baseURL "" uses the public site.
func NewAQRClient(httpClient *http.Client, baseURL string) *AQRClient {
	if baseURL == "" {
		baseURL = DefaultAQRBaseURL
	}
	return &AQRClient{
		httpClient: httpClient,
		baseURL:    baseURL,
		maxRetries: 2,
		retryDelay: 500 * time.Millisecond,
	}
}

// download fetches one workbook with a small bounded retry for transient
// failures.
func (c *AQRClient) download(file string) ([]byte, error) {
	url := c.baseURL + "/" + file
	var lastErr error
	delay := c.retryDelay
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			time.Sleep(delay)
			delay *= 2
		}
		resp, err := c.httpClient.Get(url)
		if err != nil {
			lastErr = err
			continue
		}
		if resp.StatusCode != http.StatusOK {
			io.Copy(io.Discard, io.LimitReader(resp.Body, 256))
			resp.Body.Close()
			lastErr = fmt.Errorf("status %d", resp.StatusCode)
			if resp.StatusCode >= 400 && resp.StatusCode < 500 {
				break // not transient
			}
			continue
		}
		raw, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			lastErr = err
			continue
		}
		return raw, nil
	}
	return nil, apperrors.Wrap(lastErr, apperrors.ErrorCategoryNetwork, "aqr", file, "download failed")
}

// FetchFactors downloads every AQR workbook and merges the extracted factor
// columns. Individual workbook failures are logged and skipped; only a
// fully empty result is an error, so the caller falls back to cache.
func (c *AQRClient) FetchFactors() (*timeseries.FactorTable, error) {
	tab := timeseries.NewFactorTable()
	fetched := 0
	for _, ds := range aqrDatasets {
		raw, err := c.download(ds.File)
		if err != nil {
			log.Printf("⚠️  AQR %s: %v", ds.Key, err)
			continue
		}
		part, err := parseAQRWorkbook(raw, ds)
		if err != nil {
			log.Printf("⚠️  AQR %s: %v", ds.Key, err)
			continue
		}
		if err := tab.Merge(part); err != nil {
			return nil, err
		}
		fetched++
	}
	if fetched == 0 {
		return nil, apperrors.New(apperrors.ErrorCategoryNetwork, "aqr", "all datasets",
			"no AQR workbook could be fetched")
	}
	return tab, nil
}

// parseAQRWorkbook scans for the header row and extracts the mapped factor
// columns as monthly series.
func parseAQRWorkbook(raw []byte, ds aqrDataset) (*timeseries.FactorTable, error) {
	f, err := excelize.OpenReader(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("not a workbook: %w", err)
	}
	defer f.Close()

	rows, err := f.GetRows(ds.Sheet)
	if err != nil {
		return nil, fmt.Errorf("sheet %q: %w", ds.Sheet, err)
	}

	hdrIdx := -1
	for i := 0; i < len(rows) && i < headerScanRows; i++ {
		if rowHasAll(rows[i], ds.Requires) {
			hdrIdx = i
			break
		}
	}
	if hdrIdx < 0 {
		return nil, fmt.Errorf("could not locate header row in sheet %q", ds.Sheet)
	}

	header := rows[hdrIdx]
	dateCol := 0
	colToFactor := make(map[int]string)
	for j, h := range header {
		cell := strings.ToUpper(strings.TrimSpace(h))
		if cell == "DATE" {
			dateCol = j
			continue
		}
		if factor, ok := ds.Columns[cell]; ok {
			colToFactor[j] = factor
		}
	}
	if len(colToFactor) == 0 {
		return nil, fmt.Errorf("none of the expected columns found in sheet %q", ds.Sheet)
	}

	series := make(map[string]*timeseries.MonthlySeries, len(colToFactor))
	tab := timeseries.NewFactorTable()
	// Declaration order follows the dataset's column order left to right.
	for j := 0; j < len(header); j++ {
		if factor, ok := colToFactor[j]; ok {
			s := timeseries.NewMonthlySeries(factor)
			series[factor] = s
			if err := tab.AddColumn(s); err != nil {
				return nil, err
			}
		}
	}

	for i := hdrIdx + 1; i < len(rows); i++ {
		row := rows[i]
		if len(row) <= dateCol {
			continue
		}
		date, ok := parseAQRDate(row[dateCol])
		if !ok {
			continue
		}
		month := timeseries.MonthOf(date)
		for j, factor := range colToFactor {
			if j >= len(row) {
				continue
			}
			cell := strings.TrimSpace(row[j])
			if cell == "" {
				continue
			}
			trimmed := strings.TrimSuffix(cell, "%")
			v, err := strconv.ParseFloat(trimmed, 64)
			if err != nil {
				continue
			}
			if trimmed != cell {
				// Percent-formatted cell text; store the fractional value.
				v /= 100
			}
			series[factor].Set(month, v)
		}
	}
	return tab, nil
}

// rowHasAll reports whether the row contains every required cell value.
func rowHasAll(row []string, required []string) bool {
	cells := make(map[string]bool, len(row))
	for _, c := range row {
		cells[strings.ToUpper(strings.TrimSpace(c))] = true
	}
	for _, want := range required {
		if !cells[want] {
			return false
		}
	}
	return true
}

// parseAQRDate accepts the date renditions seen across AQR workbooks.
func parseAQRDate(cell string) (time.Time, bool) {
	cell = strings.TrimSpace(cell)
	if cell == "" {
		return time.Time{}, false
	}
	if serial, err := strconv.ParseFloat(cell, 64); err == nil {
		if t, err := excelize.ExcelDateToTime(serial, false); err == nil {
			return t, true
		}
		return time.Time{}, false
	}
	for _, layout := range []string{"1/2/2006", "2006-01-02", "01/02/2006", "2-Jan-2006"} {
		if t, err := time.Parse(layout, cell); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}
