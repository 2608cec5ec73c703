package data

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	apperrors "github.com/hfanalytics/macro-factor-attribution/internal/errors"
	"github.com/hfanalytics/macro-factor-attribution/pkg/timeseries"
)

// LoadFundWorkbook reads the monthly fund return series from an Excel
// workbook. The first sheet must carry a header row with date and return
// columns (matched case-insensitively); dates snap to their calendar month.
// A missing workbook is fatal for the whole pipeline.
func LoadFundWorkbook(path, seriesName string) (*timeseries.MonthlySeries, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, apperrors.New(apperrors.ErrorCategoryFatal, "data", path,
			fmt.Sprintf("fund return workbook not found: %s", path))
	}

	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrorCategoryFatal, "data", path, "failed to open workbook")
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, apperrors.New(apperrors.ErrorCategoryFatal, "data", path, "workbook has no sheets")
	}

	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrorCategoryFatal, "data", path, "failed to read rows")
	}
	if len(rows) < 2 {
		return nil, apperrors.New(apperrors.ErrorCategoryFatal, "data", path, "workbook has no data rows")
	}

	dateCol, retCol, err := locateColumns(rows[0])
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrorCategoryFatal, "data", path, "bad header row")
	}

	series := timeseries.NewMonthlySeries(seriesName)
	for i := 1; i < len(rows); i++ {
		row := rows[i]
		if len(row) <= dateCol || len(row) <= retCol {
			continue // trailing blank row
		}

		date, ok := parseCellDate(row[dateCol])
		if !ok {
			log.Printf("⚠️  Row %d: invalid date %q, skipping", i+1, row[dateCol])
			continue
		}
		ret, err := strconv.ParseFloat(strings.TrimSpace(row[retCol]), 64)
		if err != nil {
			log.Printf("⚠️  Row %d: invalid return %q, skipping", i+1, row[retCol])
			continue
		}
		series.Set(timeseries.MonthOf(date), ret)
	}

	if series.Len() == 0 {
		return nil, apperrors.New(apperrors.ErrorCategoryFatal, "data", path, "no usable return rows in workbook")
	}
	log.Printf("📊 Loaded %s from %s", series, path)
	return series, nil
}

// locateColumns finds the date and return columns in a header row.
func locateColumns(header []string) (dateCol, retCol int, err error) {
	dateCol, retCol = -1, -1
	for i, h := range header {
		switch strings.ToLower(strings.TrimSpace(h)) {
		case "date":
			dateCol = i
		case "return", "ret", "fund_ret":
			retCol = i
		}
	}
	if dateCol < 0 || retCol < 0 {
		return 0, 0, fmt.Errorf("header must contain date and return columns, got %v", header)
	}
	return dateCol, retCol, nil
}

// parseCellDate accepts Excel serial dates and the common string formats.
func parseCellDate(cell string) (time.Time, bool) {
	cell = strings.TrimSpace(cell)
	if serial, err := strconv.ParseFloat(cell, 64); err == nil {
		if t, err := excelize.ExcelDateToTime(serial, false); err == nil {
			return t, true
		}
		return time.Time{}, false
	}
	for _, layout := range []string{"2006-01-02", "2006-01-02 15:04:05", "1/2/2006", "01-02-06"} {
		if t, err := time.Parse(layout, cell); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}
