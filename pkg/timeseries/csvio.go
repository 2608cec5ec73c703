package timeseries

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// WriteCSV encodes a factor table as dated CSV: a date header plus one
// column per factor, one row per month with the month-end date. Missing
// values stay as empty cells, so a decode round trip is lossless.
func WriteCSV(w io.Writer, tab *FactorTable) error {
	cw := csv.NewWriter(w)
	defer cw.Flush()

	cols := tab.Columns()
	if err := cw.Write(append([]string{"date"}, cols...)); err != nil {
		return err
	}
	for _, m := range tab.Months() {
		row := make([]string, len(cols)+1)
		row[0] = m.EndOfMonth().Format("2006-01-02")
		for i, name := range cols {
			if v, ok := tab.ColumnValue(name, m); ok {
				row[i+1] = strconv.FormatFloat(v, 'g', -1, 64)
			}
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// ReadCSV decodes a factor table written by WriteCSV. Rows with unparseable
// dates are skipped; unparseable cells are treated as missing.
func ReadCSV(r io.Reader) (*FactorTable, error) {
	reader := csv.NewReader(r)
	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("missing header: %w", err)
	}
	if len(header) < 2 || strings.ToLower(strings.TrimSpace(header[0])) != "date" {
		return nil, fmt.Errorf("first column must be date, got %v", header)
	}

	series := make([]*MonthlySeries, len(header)-1)
	for i, name := range header[1:] {
		series[i] = NewMonthlySeries(strings.TrimSpace(name))
	}

	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		month, err := ParseMonth(strings.TrimSpace(record[0]))
		if err != nil {
			continue
		}
		for i := 1; i < len(record) && i < len(header); i++ {
			cell := strings.TrimSpace(record[i])
			if cell == "" {
				continue
			}
			if v, err := strconv.ParseFloat(cell, 64); err == nil {
				series[i-1].Set(month, v)
			}
		}
	}

	tab := NewFactorTable()
	for _, s := range series {
		if err := tab.AddColumn(s); err != nil {
			return nil, err
		}
	}
	return tab, nil
}
