package export

import (
	"encoding/csv"
	"encoding/json"
	"io"
	"strconv"

	"github.com/rotisserie/eris"

	"github.com/sells-group/waterfall-cli/internal/sensitivity"
	"github.com/sells-group/waterfall-cli/internal/waterfall"
)

var tierHeader = []string{
	"tier", "name", "description",
	"to_lps", "to_gp", "total",
	"cumulative_lps", "cumulative_gp", "cumulative_total",
}

// WriteJSON writes v as indented JSON.
func WriteJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return eris.Wrap(enc.Encode(v), "export: write json")
}

// WriteCSV writes one row per tier, a total row, then metric/value rows.
func WriteCSV(w io.Writer, res *waterfall.Result) error {
	cw := csv.NewWriter(w)

	rows := [][]string{tierHeader}
	for _, t := range res.Tiers {
		rows = append(rows, []string{
			strconv.Itoa(t.TierNumber), t.Name, t.Description,
			plain(t.AmountToLPs), plain(t.AmountToGP), plain(t.TotalAmount),
			plain(t.CumulativeToLPs), plain(t.CumulativeToGP), plain(t.CumulativeTotal),
		})
	}
	rows = append(rows, []string{
		"", "Total", "",
		plain(res.TotalToLPs), plain(res.TotalToGP), plain(res.TotalDistributed),
		"", "", "",
	})

	rows = append(rows,
		[]string{},
		[]string{"metric", "value"},
		[]string{"preferred_return", plain(res.PreferredReturn)},
		[]string{"lp_multiple", ratio(res.LPMultiple)},
		[]string{"gp_multiple", ratio(res.GPMultiple)},
		[]string{"total_profit", plain(res.TotalProfit)},
		[]string{"lp_profit", plain(res.LPProfit)},
		[]string{"gp_profit", plain(res.GPProfit)},
		[]string{"effective_carry_rate", ratio(res.EffectiveCarryRate)},
	)

	if err := cw.WriteAll(rows); err != nil {
		return eris.Wrap(err, "export: write csv")
	}
	return nil
}

// WriteSensitivityCSV writes one row per grid cell in grid order.
func WriteSensitivityCSV(w io.Writer, t *sensitivity.Table) error {
	cw := csv.NewWriter(w)

	rows := [][]string{{
		"multiple", "gross_proceeds", string(t.Axis),
		"to_lps", "to_gp", "lp_multiple", "gp_profit", "effective_carry_rate", "tiers_reached",
	}}
	for i := range t.Multiples {
		for _, c := range t.Cells[i] {
			rows = append(rows, []string{
				ratio(c.Multiple), plain(c.GrossProceeds), ratio(c.AxisValue),
				plain(c.TotalToLPs), plain(c.TotalToGP), ratio(c.LPMultiple),
				plain(c.GPProfit), ratio(c.EffectiveCarryRate), strconv.Itoa(c.TiersReached),
			})
		}
	}

	if err := cw.WriteAll(rows); err != nil {
		return eris.Wrap(err, "export: write sensitivity csv")
	}
	return nil
}

func ratio(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
