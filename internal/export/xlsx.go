package export

import (
	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"

	"github.com/ruralhealth-lab/disparity-cli/internal/model"
)

// WriteWorkbook writes both result tables into one workbook: a "long" sheet
// with the full estimate table and a "wide" sheet with the stratum pivot.
func WriteWorkbook(path string, long []model.ResultRow, wide []model.WideRow, models []string) error {
	f := xlsx.NewFile()

	if err := addLongSheet(f, long); err != nil {
		return err
	}
	if err := addWideSheet(f, wide, models); err != nil {
		return err
	}

	if err := f.Save(path); err != nil {
		return eris.Wrap(err, "xlsx: save workbook")
	}
	return nil
}

func addLongSheet(f *xlsx.File, rows []model.ResultRow) error {
	sheet, err := f.AddSheet("long")
	if err != nil {
		return eris.Wrap(err, "xlsx: add long sheet")
	}

	header := sheet.AddRow()
	for _, name := range longHeader {
		header.AddCell().SetString(name)
	}

	for _, row := range rows {
		r := sheet.AddRow()
		r.AddCell().SetInt(row.StratumCode)
		r.AddCell().SetString(row.StratumName)
		r.AddCell().SetString(row.Model)
		r.AddCell().SetString(row.Term)
		r.AddCell().SetFloat(row.Coef)
		r.AddCell().SetFloat(row.OR)
		r.AddCell().SetFloat(row.CILower)
		r.AddCell().SetFloat(row.CIUpper)
		r.AddCell().SetFloat(row.PValue)
		r.AddCell().SetString(row.Sig)
		r.AddCell().SetString(row.ORDisplay)
		r.AddCell().SetString(row.CIDisplay)
		r.AddCell().SetInt(row.N)
	}
	return nil
}

func addWideSheet(f *xlsx.File, rows []model.WideRow, models []string) error {
	sheet, err := f.AddSheet("wide")
	if err != nil {
		return eris.Wrap(err, "xlsx: add wide sheet")
	}

	header := sheet.AddRow()
	for _, name := range WideHeader(models) {
		header.AddCell().SetString(name)
	}

	for _, row := range rows {
		r := sheet.AddRow()
		r.AddCell().SetInt(row.StratumCode)
		r.AddCell().SetString(row.StratumName)
		for _, m := range models {
			setFloatCell(r.AddCell(), row.OR[m])
		}
		for _, m := range models {
			setFloatCell(r.AddCell(), row.PValue[m])
		}
		for _, m := range models {
			if s := row.Sig[m]; s != nil {
				r.AddCell().SetString(*s)
			} else {
				r.AddCell().SetString("")
			}
		}
	}
	return nil
}

func setFloatCell(cell *xlsx.Cell, v *float64) {
	if v == nil {
		cell.SetString("")
		return
	}
	cell.SetFloat(*v)
}
