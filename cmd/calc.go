package main

import (
	"io"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/waterfall-cli/internal/export"
	"github.com/sells-group/waterfall-cli/internal/sensitivity"
	"github.com/sells-group/waterfall-cli/internal/waterfall"
)

var (
	calcParams  *paramFlags
	calcFormat  string
	calcCompare bool
)

var calcCmd = &cobra.Command{
	Use:   "calc",
	Short: "Calculate one distribution waterfall",
	Long: `Calculate one distribution waterfall: return of capital, preferred return,
GP catch-up and the carried interest split.

The default catch-up target is residual: the GP catches up to its carry share of
profits left after the preferred return, which on the default terms yields an
effective carry of 21.68%. Use --catch-up-target cumulative for a catch-up that
lands the GP at exactly its carry rate of all profits (20.00% on the defaults).`,
	Example: `  waterfall calc --proceeds 250000000 --carry 0.2 --pref-rate 0.08
  waterfall calc --scenario-file scenarios.yaml --name downside --format json
  waterfall calc --compare
  waterfall calc --catch-up-target cumulative`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		if err := cfg.Validate("calc"); err != nil {
			return err
		}
		format, err := parseFormat(calcFormat, export.FormatTable, export.FormatJSON, export.FormatCSV)
		if err != nil {
			return err
		}
		p, err := calcParams.resolve(cmd)
		if err != nil {
			return err
		}

		f := export.NewFormatter(cfg.Export.CurrencySymbol)
		out := cmd.OutOrStdout()

		if calcCompare {
			cmp, err := sensitivity.CompareCatchUp(p)
			if err != nil {
				return err
			}
			switch format {
			case export.FormatJSON:
				return export.WriteJSON(out, cmp)
			case export.FormatTable:
				return export.WriteComparison(out, cmp, f)
			default:
				return eris.Errorf("--compare supports table and json output, not %s", format)
			}
		}

		res, err := waterfall.Calculate(p)
		if err != nil {
			return err
		}
		logResult(res)
		return writeResult(out, res, format, f)
	},
}

func writeResult(w io.Writer, res *waterfall.Result, format export.Format, f export.Formatter) error {
	switch format {
	case export.FormatJSON:
		return export.WriteJSON(w, res)
	case export.FormatCSV:
		return export.WriteCSV(w, res)
	default:
		return export.WriteTable(w, res, f)
	}
}

// parseFormat parses name and checks it against the formats a command supports.
func parseFormat(name string, allowed ...export.Format) (export.Format, error) {
	format, ok := export.ParseFormat(name)
	if ok {
		for _, a := range allowed {
			if format == a {
				return format, nil
			}
		}
	}
	return "", eris.Errorf("unsupported format %q (want one of %v)", name, allowed)
}

func logResult(res *waterfall.Result) {
	zap.L().Info("waterfall calculated",
		zap.Float64("gross_proceeds", res.Parameters.GrossProceeds),
		zap.Int("tiers", len(res.Tiers)),
		zap.Float64("total_to_lps", res.TotalToLPs),
		zap.Float64("total_to_gp", res.TotalToGP),
		zap.Float64("effective_carry_rate", res.EffectiveCarryRate),
	)
}

func init() {
	calcParams = addParamFlags(calcCmd)
	calcCmd.Flags().StringVar(&calcFormat, "format", "table", "output format: table, json or csv")
	calcCmd.Flags().BoolVar(&calcCompare, "compare", false, "show the terms with and without GP catch-up side by side")
	rootCmd.AddCommand(calcCmd)
}
