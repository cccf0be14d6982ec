package main

import (
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/waterfall-cli/internal/export"
	"github.com/sells-group/waterfall-cli/internal/sensitivity"
)

var (
	sensParams    *paramFlags
	sensMultiples []float64
	sensAxis      string
	sensValues    []float64
	sensMin       float64
	sensMax       float64
	sensStep      float64
	sensFormat    string
	sensOut       string
)

var sensitivityCmd = &cobra.Command{
	Use:     "sensitivity",
	Aliases: []string{"sens"},
	Short:   "Tabulate outcomes across proceeds multiples and one varying term",
	Example: `  waterfall sensitivity --multiples 1,1.5,2,3 --axis carry_rate --values 0.1,0.2,0.3
  waterfall sensitivity --axis preferred_return_rate --min 0.06 --max 0.10 --step 0.01
  waterfall sensitivity --format xlsx --out sensitivity.xlsx`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		if err := cfg.Validate("calc"); err != nil {
			return err
		}
		format, err := parseFormat(sensFormat, export.FormatTable, export.FormatJSON, export.FormatCSV, export.FormatXLSX)
		if err != nil {
			return err
		}
		base, err := sensParams.resolve(cmd)
		if err != nil {
			return err
		}
		grid, err := sensitivityGrid(cmd)
		if err != nil {
			return err
		}

		runner := sensitivity.NewRunner(cfg.Sensitivity.MaxConcurrency)
		table, err := runner.Run(cmd.Context(), base, grid)
		if err != nil {
			return err
		}

		if format == export.FormatXLSX && (sensOut == "" || sensOut == "-") {
			return eris.New("--out is required for xlsx output")
		}
		w, closeFn, err := openOutput(cmd, sensOut)
		if err != nil {
			return err
		}

		switch format {
		case export.FormatJSON:
			err = export.WriteJSON(w, table)
		case export.FormatCSV:
			err = export.WriteSensitivityCSV(w, table)
		case export.FormatXLSX:
			err = export.WriteXLSX(w, nil, table)
		default:
			err = export.WriteSensitivityTable(w, table, export.NewFormatter(cfg.Export.CurrencySymbol))
		}
		if cerr := closeFn(); err == nil {
			err = cerr
		}
		return err
	},
}

// sensitivityGrid assembles the grid from flags. Multiples default to the
// configured list; axis values come from --values or a --min/--max/--step range.
func sensitivityGrid(cmd *cobra.Command) (sensitivity.Grid, error) {
	axis, err := sensitivity.ParseAxis(sensAxis)
	if err != nil {
		return sensitivity.Grid{}, err
	}

	multiples := sensMultiples
	if !cmd.Flags().Changed("multiples") {
		multiples = cfg.Sensitivity.Multiples
	}

	values := sensValues
	fs := cmd.Flags()
	if fs.Changed("min") || fs.Changed("max") || fs.Changed("step") {
		if fs.Changed("values") {
			return sensitivity.Grid{}, eris.New("use either --values or --min/--max/--step, not both")
		}
		values, err = sensitivity.Range(sensMin, sensMax, sensStep)
		if err != nil {
			return sensitivity.Grid{}, err
		}
	}

	return sensitivity.Grid{Multiples: multiples, Axis: axis, Values: values}, nil
}

func init() {
	sensParams = addParamFlags(sensitivityCmd)
	f := sensitivityCmd.Flags()
	f.Float64SliceVar(&sensMultiples, "multiples", nil, "gross proceeds as multiples of contributed capital (default from config)")
	f.StringVar(&sensAxis, "axis", "none", "term varied across columns: none, carry_rate, preferred_return_rate, catch_up_rate or gp_commitment")
	f.Float64SliceVar(&sensValues, "values", nil, "axis values")
	f.Float64Var(&sensMin, "min", 0, "first axis value of a range")
	f.Float64Var(&sensMax, "max", 0, "last axis value of a range")
	f.Float64Var(&sensStep, "step", 0, "axis value step of a range")
	f.StringVar(&sensFormat, "format", "table", "output format: table, json, csv or xlsx")
	f.StringVar(&sensOut, "out", "", "output file (default stdout)")
	rootCmd.AddCommand(sensitivityCmd)
}
