package main

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/waterfall-cli/internal/export"
	"github.com/sells-group/waterfall-cli/internal/sensitivity"
	"github.com/sells-group/waterfall-cli/internal/waterfall"
)

var (
	exportParams      *paramFlags
	exportFormat      string
	exportOut         string
	exportTitle       string
	exportSensitivity bool
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Write a waterfall report to a file",
	Example: `  waterfall export --format pdf --out fund-ii.pdf --title "Fund II exit"
  waterfall export --format xlsx --out fund-ii.xlsx --with-sensitivity
  waterfall export --format csv --out -`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		if err := cfg.Validate("calc"); err != nil {
			return err
		}
		format, err := parseFormat(exportFormat, export.FormatCSV, export.FormatXLSX, export.FormatPDF, export.FormatJSON)
		if err != nil {
			return err
		}
		p, err := exportParams.resolve(cmd)
		if err != nil {
			return err
		}
		res, err := waterfall.Calculate(p)
		if err != nil {
			return err
		}
		logResult(res)

		var table *sensitivity.Table
		if exportSensitivity && format == export.FormatXLSX {
			table, err = sensitivity.NewRunner(cfg.Sensitivity.MaxConcurrency).Run(cmd.Context(), p,
				sensitivity.Grid{Multiples: cfg.Sensitivity.Multiples, Axis: sensitivity.AxisNone})
			if err != nil {
				return err
			}
		}

		out := exportOut
		if out == "" {
			out = "waterfall." + string(format)
		}
		w, closeFn, err := openOutput(cmd, out)
		if err != nil {
			return err
		}

		f := export.NewFormatter(cfg.Export.CurrencySymbol)
		switch format {
		case export.FormatCSV:
			err = export.WriteCSV(w, res)
		case export.FormatXLSX:
			err = export.WriteXLSX(w, res, table)
		case export.FormatPDF:
			err = export.WritePDF(w, res, f, exportTitle)
		default:
			err = export.WriteJSON(w, res)
		}
		if cerr := closeFn(); err == nil {
			err = cerr
		}
		if err != nil {
			return err
		}

		zap.L().Info("report written", zap.String("format", string(format)), zap.String("out", out))
		return nil
	},
}

func init() {
	exportParams = addParamFlags(exportCmd)
	f := exportCmd.Flags()
	f.StringVar(&exportFormat, "format", "pdf", "report format: csv, xlsx, pdf or json")
	f.StringVar(&exportOut, "out", "", "output file, - for stdout (default waterfall.<format> in export.output_dir)")
	f.StringVar(&exportTitle, "title", "", "PDF report title")
	f.BoolVar(&exportSensitivity, "with-sensitivity", false, "add a sensitivity sheet over the configured multiples (xlsx only)")
	rootCmd.AddCommand(exportCmd)
}
