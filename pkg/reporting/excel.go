package reporting

import (
	"fmt"

	"github.com/xuri/excelize/v2"

	"github.com/hfanalytics/macro-factor-attribution/internal/compare"
	"github.com/hfanalytics/macro-factor-attribution/internal/regress"
)

// WriteSummaryWorkbook writes one sheet per fitted model plus a comparison
// sheet. Sheet names are the model names truncated to Excel's 31-char limit.
func WriteSummaryWorkbook(models map[string]*regress.Model, order []string, cmp *compare.Comparison, path string) error {
	f := excelize.NewFile()
	defer f.Close()

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#DDEBF7"}, Pattern: 1},
	})
	if err != nil {
		return err
	}

	for _, name := range order {
		model, ok := models[name]
		if !ok || model == nil {
			continue
		}
		if err := writeModelSheet(f, sheetName(name), model, headerStyle); err != nil {
			return err
		}
	}
	if cmp != nil {
		if err := writeComparisonSheet(f, cmp, headerStyle); err != nil {
			return err
		}
	}

	// Drop the default sheet once real ones exist.
	if f.SheetCount > 1 {
		if err := f.DeleteSheet("Sheet1"); err != nil {
			return err
		}
	}

	return f.SaveAs(path)
}

func sheetName(name string) string {
	if len(name) > 31 {
		return name[:31]
	}
	return name
}

func writeModelSheet(f *excelize.File, sheet string, model *regress.Model, headerStyle int) error {
	if _, err := f.NewSheet(sheet); err != nil {
		return err
	}

	summary := [][]interface{}{
		{"Observations", model.NObs},
		{"R²", model.R2},
		{"Adjusted R²", model.AdjR2},
		{"Alpha (monthly)", model.Alpha()},
		{"Alpha (annualized)", model.AlphaAnnualized()},
		{"Residual vol (annualized)", model.ResidVolAnnual},
		{"Corr(fitted, actual)", model.CorrFitted},
	}
	for i, row := range summary {
		cell := fmt.Sprintf("A%d", i+1)
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return err
		}
	}

	headerRow := len(summary) + 2
	header := []interface{}{"Factor", "Coef", "Std Err", "t-Stat", "p-Value"}
	if err := f.SetSheetRow(sheet, fmt.Sprintf("A%d", headerRow), &header); err != nil {
		return err
	}
	if err := f.SetCellStyle(sheet, fmt.Sprintf("A%d", headerRow), fmt.Sprintf("E%d", headerRow), headerStyle); err != nil {
		return err
	}
	for i, c := range model.Coefficients {
		row := []interface{}{c.Name, c.Estimate, c.StdErr, c.TStat, c.PValue}
		if err := f.SetSheetRow(sheet, fmt.Sprintf("A%d", headerRow+1+i), &row); err != nil {
			return err
		}
	}
	return nil
}

func writeComparisonSheet(f *excelize.File, cmp *compare.Comparison, headerStyle int) error {
	const sheet = "Comparison"
	if _, err := f.NewSheet(sheet); err != nil {
		return err
	}

	header := []interface{}{"Model", "N", "Adj R²", "Alpha (monthly)", "Alpha (annualized)",
		"Resid Vol (annualized)", "Corr", "Error"}
	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		return err
	}
	if err := f.SetCellStyle(sheet, "A1", "H1", headerStyle); err != nil {
		return err
	}
	for i, row := range cmp.Rows {
		var values []interface{}
		if row.Err != nil {
			values = []interface{}{row.Name, nil, nil, nil, nil, nil, nil, row.Err.Error()}
		} else {
			values = []interface{}{row.Name, row.NObs, row.AdjR2, row.AlphaMonthly,
				row.AlphaAnnual, row.ResidVolAnnual, row.CorrFitted, nil}
		}
		if err := f.SetSheetRow(sheet, fmt.Sprintf("A%d", i+2), &values); err != nil {
			return err
		}
	}
	return nil
}
