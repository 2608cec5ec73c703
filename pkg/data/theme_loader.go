package data

import (
	"encoding/csv"
	"fmt"
	"io"
	"log"
	"os"
	"strconv"
	"strings"

	apperrors "github.com/hfanalytics/macro-factor-attribution/internal/errors"
	"github.com/hfanalytics/macro-factor-attribution/pkg/timeseries"
)

// LoadThemeCSV loads the optional theme-factor override file. When the file
// is absent it returns (nil, false, nil); absence is not an error. When
// present, every non-date column becomes a candidate factor; a missing date
// column is a load error.
func LoadThemeCSV(path string) (*timeseries.FactorTable, bool, error) {
	f, err := os.Open(path)
	if os.IsNotExist(err) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, apperrors.Wrap(err, apperrors.ErrorCategoryData, "data", path, "failed to open theme CSV")
	}
	defer f.Close()

	reader := csv.NewReader(f)
	header, err := reader.Read()
	if err != nil {
		return nil, false, apperrors.Wrap(err, apperrors.ErrorCategoryData, "data", path, "missing header")
	}

	dateCol := -1
	for i, h := range header {
		if strings.ToLower(strings.TrimSpace(h)) == "date" {
			dateCol = i
			break
		}
	}
	if dateCol < 0 {
		return nil, false, apperrors.New(apperrors.ErrorCategoryData, "data", path,
			fmt.Sprintf("theme CSV is missing a date column: %v", header))
	}

	factors := make(map[int]*timeseries.MonthlySeries)
	var order []int
	for i, h := range header {
		if i == dateCol {
			continue
		}
		name := strings.TrimSpace(h)
		if name == "" {
			continue
		}
		factors[i] = timeseries.NewMonthlySeries(name)
		order = append(order, i)
	}

	line := 1
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, false, apperrors.Wrap(err, apperrors.ErrorCategoryData, "data", path,
				fmt.Sprintf("read failed at line %d", line))
		}
		line++

		month, err := timeseries.ParseMonth(strings.TrimSpace(record[dateCol]))
		if err != nil {
			log.Printf("⚠️  Theme CSV line %d: %v, skipping", line, err)
			continue
		}
		for _, i := range order {
			if i >= len(record) {
				continue
			}
			cell := strings.TrimSpace(record[i])
			if cell == "" {
				continue // missing value: month drops out of fits using this factor
			}
			v, err := strconv.ParseFloat(cell, 64)
			if err != nil {
				log.Printf("⚠️  Theme CSV line %d: invalid %s %q, skipping cell", line, factors[i].Name(), cell)
				continue
			}
			factors[i].Set(month, v)
		}
	}

	tab := timeseries.NewFactorTable()
	for _, i := range order {
		if err := tab.AddColumn(factors[i]); err != nil {
			return nil, false, apperrors.Wrap(err, apperrors.ErrorCategoryData, "data", path, "duplicate theme factor")
		}
	}
	log.Printf("📊 Theme override loaded: %d factors from %s", len(order), path)
	return tab, true, nil
}
