package export

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/rotisserie/eris"

	"github.com/sells-group/waterfall-cli/internal/sensitivity"
	"github.com/sells-group/waterfall-cli/internal/waterfall"
)

// WriteTable prints a result as aligned text: terms, tiers, totals and metrics.
func WriteTable(w io.Writer, res *waterfall.Result, f Formatter) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', tabwriter.AlignRight)
	p := res.Parameters

	fmt.Fprintf(tw, "Fund size\t%s\t\n", f.Money(p.FundSize))
	fmt.Fprintf(tw, "Contributed capital\t%s\t\n", f.Money(p.ContributedCapital))
	fmt.Fprintf(tw, "Gross proceeds\t%s\t\n", f.Money(p.GrossProceeds))
	fmt.Fprintf(tw, "Waterfall\t%s\t\n", p.WaterfallType)
	fmt.Fprintf(tw, "Preferred return\t%s %s, %g yrs (%s)\t\n",
		f.Percent(p.PreferredReturnRate), p.PreferredReturnCompounding, p.YearsToExit, f.Money(res.PreferredReturn))
	fmt.Fprintf(tw, "Carry\t%s\t\n", f.Percent(p.CarryRate))
	if p.HasCatchUp {
		fmt.Fprintf(tw, "Catch-up\t%s\t\n", f.Percent(p.CatchUpRate))
	} else {
		fmt.Fprintf(tw, "Catch-up\tnone\t\n")
	}
	fmt.Fprintf(tw, "GP commitment\t%s\t\n", f.Percent(p.GPCommitmentPercent))
	fmt.Fprintln(tw, "\t\t")

	fmt.Fprintln(tw, "Tier\tName\tTo LPs\tTo GP\tTotal\tCum. LPs\tCum. GP\t")
	for _, t := range res.Tiers {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\t%s\t%s\t\n",
			t.TierNumber, t.Name,
			f.Money(t.AmountToLPs), f.Money(t.AmountToGP), f.Money(t.TotalAmount),
			f.Money(t.CumulativeToLPs), f.Money(t.CumulativeToGP))
	}
	fmt.Fprintf(tw, "\tTotal\t%s\t%s\t%s\t\t\t\n",
		f.Money(res.TotalToLPs), f.Money(res.TotalToGP), f.Money(res.TotalDistributed))
	fmt.Fprintln(tw, "\t\t")

	fmt.Fprintf(tw, "LP multiple\t%s\t\n", f.Multiple(res.LPMultiple))
	fmt.Fprintf(tw, "GP multiple\t%s\t\n", f.Multiple(res.GPMultiple))
	fmt.Fprintf(tw, "Total profit\t%s\t\n", f.Money(res.TotalProfit))
	fmt.Fprintf(tw, "LP profit\t%s\t\n", f.Money(res.LPProfit))
	fmt.Fprintf(tw, "GP profit\t%s\t\n", f.Money(res.GPProfit))
	fmt.Fprintf(tw, "Effective carry\t%s\t\n", f.Percent(res.EffectiveCarryRate))

	return eris.Wrap(tw.Flush(), "export: write table")
}

// WriteComparison prints the same terms with and without catch-up side by side.
func WriteComparison(w io.Writer, cmp *sensitivity.Comparison, f Formatter) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', tabwriter.AlignRight)
	a, b := cmp.WithCatchUp, cmp.WithoutCatchUp

	fmt.Fprintln(tw, "\tWith catch-up\tWithout catch-up\t")
	fmt.Fprintf(tw, "Total to LPs\t%s\t%s\t\n", f.Money(a.TotalToLPs), f.Money(b.TotalToLPs))
	fmt.Fprintf(tw, "Total to GP\t%s\t%s\t\n", f.Money(a.TotalToGP), f.Money(b.TotalToGP))
	fmt.Fprintf(tw, "GP profit\t%s\t%s\t\n", f.Money(a.GPProfit), f.Money(b.GPProfit))
	fmt.Fprintf(tw, "LP multiple\t%s\t%s\t\n", f.Multiple(a.LPMultiple), f.Multiple(b.LPMultiple))
	fmt.Fprintf(tw, "Effective carry\t%s\t%s\t\n", f.Percent(a.EffectiveCarryRate), f.Percent(b.EffectiveCarryRate))

	return eris.Wrap(tw.Flush(), "export: write comparison")
}

// WriteSensitivityTable prints effective carry and GP totals as grids,
// one row per proceeds multiple.
func WriteSensitivityTable(w io.Writer, t *sensitivity.Table, f Formatter) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', tabwriter.AlignRight)

	grid := func(title string, cell func(c sensitivity.Cell) string) {
		fmt.Fprintf(tw, "%s\t", title)
		if t.Axis == sensitivity.AxisNone {
			fmt.Fprint(tw, "value\t")
		} else {
			for _, v := range t.Values {
				fmt.Fprintf(tw, "%s=%g\t", t.Axis, v)
			}
		}
		fmt.Fprintln(tw)
		for i, m := range t.Multiples {
			fmt.Fprintf(tw, "%s\t", f.Multiple(m))
			for j := range t.Values {
				fmt.Fprintf(tw, "%s\t", cell(t.Cells[i][j]))
			}
			fmt.Fprintln(tw)
		}
	}

	grid("Effective carry", func(c sensitivity.Cell) string { return f.Percent(c.EffectiveCarryRate) })
	fmt.Fprintln(tw, "\t")
	grid("Total to GP", func(c sensitivity.Cell) string { return f.Money(c.TotalToGP) })
	fmt.Fprintln(tw, "\t")
	grid("LP multiple", func(c sensitivity.Cell) string { return f.Multiple(c.LPMultiple) })

	return eris.Wrap(tw.Flush(), "export: write sensitivity table")
}
