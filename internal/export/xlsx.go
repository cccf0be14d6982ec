package export

import (
	"io"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"

	"github.com/sells-group/waterfall-cli/internal/sensitivity"
	"github.com/sells-group/waterfall-cli/internal/waterfall"
)

const (
	moneyFormat = "#,##0.00"
	rateFormat  = "0.0%"
	multFormat  = "0.00\"x\""

	SheetWaterfall   = "Waterfall"
	SheetSummary     = "Summary"
	SheetSensitivity = "Sensitivity"
)

// BuildWorkbook lays out a result on a Waterfall and a Summary sheet.
// A non-nil table adds a Sensitivity sheet.
func BuildWorkbook(res *waterfall.Result, table *sensitivity.Table) (*xlsx.File, error) {
	f := xlsx.NewFile()

	if res != nil {
		if err := addWaterfallSheet(f, res); err != nil {
			return nil, err
		}
		if err := addSummarySheet(f, res); err != nil {
			return nil, err
		}
	}
	if table != nil {
		if err := addSensitivitySheet(f, table); err != nil {
			return nil, err
		}
	}
	if len(f.Sheets) == 0 {
		return nil, eris.New("export: workbook has nothing to write")
	}
	return f, nil
}

// WriteXLSX writes the workbook from BuildWorkbook to w.
func WriteXLSX(w io.Writer, res *waterfall.Result, table *sensitivity.Table) error {
	f, err := BuildWorkbook(res, table)
	if err != nil {
		return err
	}
	return eris.Wrap(f.Write(w), "export: write xlsx")
}

func addWaterfallSheet(f *xlsx.File, res *waterfall.Result) error {
	sheet, err := f.AddSheet(SheetWaterfall)
	if err != nil {
		return eris.Wrap(err, "export: add waterfall sheet")
	}

	addStrings(sheet.AddRow(), "Tier", "Name", "Description", "To LPs", "To GP", "Total",
		"Cumulative LPs", "Cumulative GP", "Cumulative Total")
	for _, t := range res.Tiers {
		row := sheet.AddRow()
		row.AddCell().SetInt(t.TierNumber)
		addStrings(row, t.Name, t.Description)
		addMoney(row, t.AmountToLPs, t.AmountToGP, t.TotalAmount,
			t.CumulativeToLPs, t.CumulativeToGP, t.CumulativeTotal)
	}
	row := sheet.AddRow()
	addStrings(row, "", "Total", "")
	addMoney(row, res.TotalToLPs, res.TotalToGP, res.TotalDistributed)
	return nil
}

func addSummarySheet(f *xlsx.File, res *waterfall.Result) error {
	sheet, err := f.AddSheet(SheetSummary)
	if err != nil {
		return eris.Wrap(err, "export: add summary sheet")
	}
	p := res.Parameters

	money := func(label string, v float64) {
		row := sheet.AddRow()
		addStrings(row, label)
		addMoney(row, v)
	}
	rate := func(label string, v float64) {
		row := sheet.AddRow()
		addStrings(row, label)
		row.AddCell().SetFloatWithFormat(v, rateFormat)
	}
	mult := func(label string, v float64) {
		row := sheet.AddRow()
		addStrings(row, label)
		row.AddCell().SetFloatWithFormat(v, multFormat)
	}
	text := func(label, v string) {
		addStrings(sheet.AddRow(), label, v)
	}

	money("Fund size", p.FundSize)
	money("Contributed capital", p.ContributedCapital)
	money("Gross proceeds", p.GrossProceeds)
	text("Waterfall type", string(p.WaterfallType))
	rate("Preferred return rate", p.PreferredReturnRate)
	text("Compounding", string(p.PreferredReturnCompounding))
	rate("Carry rate", p.CarryRate)
	if p.HasCatchUp {
		rate("Catch-up rate", p.CatchUpRate)
	} else {
		text("Catch-up rate", "none")
	}
	rate("GP commitment", p.GPCommitmentPercent)
	money("Preferred return", res.PreferredReturn)
	money("Total to LPs", res.TotalToLPs)
	money("Total to GP", res.TotalToGP)
	mult("LP multiple", res.LPMultiple)
	mult("GP multiple", res.GPMultiple)
	money("Total profit", res.TotalProfit)
	money("LP profit", res.LPProfit)
	money("GP profit", res.GPProfit)
	rate("Effective carry rate", res.EffectiveCarryRate)
	return nil
}

func addSensitivitySheet(f *xlsx.File, t *sensitivity.Table) error {
	sheet, err := f.AddSheet(SheetSensitivity)
	if err != nil {
		return eris.Wrap(err, "export: add sensitivity sheet")
	}

	addStrings(sheet.AddRow(), "Multiple", "Gross Proceeds", string(t.Axis),
		"To LPs", "To GP", "LP Multiple", "GP Profit", "Effective Carry", "Tiers")
	for i := range t.Multiples {
		for _, c := range t.Cells[i] {
			row := sheet.AddRow()
			row.AddCell().SetFloatWithFormat(c.Multiple, multFormat)
			addMoney(row, c.GrossProceeds)
			row.AddCell().SetFloat(c.AxisValue)
			addMoney(row, c.TotalToLPs, c.TotalToGP)
			row.AddCell().SetFloatWithFormat(c.LPMultiple, multFormat)
			addMoney(row, c.GPProfit)
			row.AddCell().SetFloatWithFormat(c.EffectiveCarryRate, rateFormat)
			row.AddCell().SetInt(c.TiersReached)
		}
	}
	return nil
}

func addStrings(row *xlsx.Row, values ...string) {
	for _, v := range values {
		row.AddCell().SetString(v)
	}
}

func addMoney(row *xlsx.Row, values ...float64) {
	for _, v := range values {
		cents, _ := Cents(v).Float64()
		row.AddCell().SetFloatWithFormat(cents, moneyFormat)
	}
}
