package data

import (
	"encoding/csv"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/parquet-go/parquet-go"

	apperrors "github.com/hfanalytics/macro-factor-attribution/internal/errors"
	"github.com/hfanalytics/macro-factor-attribution/pkg/timeseries"
)

// BenchmarkFactors are the daily benchmark columns, compounded to monthly in
// this order. rf rides along so excess returns can be built downstream.
var BenchmarkFactors = []string{"mkt_rf", "smb", "hml", "rmw", "cma", "rf"}

// benchmarkRow is the expected schema of the daily five-factor file.
type benchmarkRow struct {
	Dt    string  `parquet:"dt"`
	MktRF float64 `parquet:"mkt_rf"`
	SMB   float64 `parquet:"smb"`
	HML   float64 `parquet:"hml"`
	RMW   float64 `parquet:"rmw"`
	CMA   float64 `parquet:"cma"`
	RF    float64 `parquet:"rf"`
}

func (r benchmarkRow) values() []float64 {
	return []float64{r.MktRF, r.SMB, r.HML, r.RMW, r.CMA, r.RF}
}

// LoadBenchmarkDaily reads the daily five-factor file (Parquet or CSV,
// chosen by extension) and compounds every factor to monthly returns as
// Π(1+daily)−1 within each month.
func LoadBenchmarkDaily(path string) (*timeseries.FactorTable, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, apperrors.New(apperrors.ErrorCategoryFatal, "data", path,
			fmt.Sprintf("benchmark factor file not found: %s", path))
	}

	var rows []benchmarkRow
	var err error
	switch strings.ToLower(filepath.Ext(path)) {
	case ".parquet":
		rows, err = parquet.ReadFile[benchmarkRow](path)
	case ".csv":
		rows, err = readBenchmarkCSV(path)
	default:
		return nil, apperrors.New(apperrors.ErrorCategoryFatal, "data", path,
			fmt.Sprintf("unsupported benchmark file type %q", filepath.Ext(path)))
	}
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrorCategoryFatal, "data", path, "failed to read benchmark file")
	}

	daily := make(map[string][]timeseries.DailyPoint, len(BenchmarkFactors))
	skipped := 0
	for _, row := range rows {
		date, ok := parseBenchmarkDate(row.Dt)
		if !ok {
			skipped++
			continue
		}
		for i, name := range BenchmarkFactors {
			daily[name] = append(daily[name], timeseries.DailyPoint{Date: date, Return: row.values()[i]})
		}
	}
	if skipped > 0 {
		log.Printf("⚠️  Skipped %d benchmark rows with unparseable dates", skipped)
	}

	tab := timeseries.NewFactorTable()
	for _, name := range BenchmarkFactors {
		if len(daily[name]) == 0 {
			return nil, apperrors.New(apperrors.ErrorCategoryFatal, "data", path,
				fmt.Sprintf("benchmark file has no usable rows for %q", name))
		}
		if err := tab.AddColumn(timeseries.CompoundMonthly(name, daily[name])); err != nil {
			return nil, err
		}
	}
	log.Printf("📊 Compounded %d daily benchmark rows to %d monthly observations", len(rows), tab.NonMissing("mkt_rf"))
	return tab, nil
}

// readBenchmarkCSV reads the CSV rendition of the five-factor file. The
// header names columns; order does not matter.
func readBenchmarkCSV(path string) ([]benchmarkRow, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	reader := csv.NewReader(f)
	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("missing header: %w", err)
	}
	col := make(map[string]int, len(header))
	for i, h := range header {
		col[strings.ToLower(strings.TrimSpace(h))] = i
	}
	for _, want := range append([]string{"dt"}, BenchmarkFactors...) {
		if _, ok := col[want]; !ok {
			return nil, fmt.Errorf("missing column %q in %v", want, header)
		}
	}

	var rows []benchmarkRow
	line := 1
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		line++

		parse := func(name string) (float64, error) {
			return strconv.ParseFloat(strings.TrimSpace(record[col[name]]), 64)
		}
		row := benchmarkRow{Dt: record[col["dt"]]}
		fields := []*float64{&row.MktRF, &row.SMB, &row.HML, &row.RMW, &row.CMA, &row.RF}
		ok := true
		for i, name := range BenchmarkFactors {
			v, err := parse(name)
			if err != nil {
				log.Printf("⚠️  Line %d: invalid %s %q, skipping", line, name, record[col[name]])
				ok = false
				break
			}
			*fields[i] = v
		}
		if ok {
			rows = append(rows, row)
		}
	}
	return rows, nil
}

func parseBenchmarkDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	for _, layout := range []string{"2006-01-02", "2006-01-02 15:04:05", "20060102"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}
