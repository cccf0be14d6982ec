package main

import (
	"context"
	"errors"
	"fmt"
	"text/tabwriter"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/waterfall-cli/internal/export"
	"github.com/sells-group/waterfall-cli/internal/model"
	"github.com/sells-group/waterfall-cli/internal/store"
	"github.com/sells-group/waterfall-cli/internal/waterfall"
)

var (
	scenarioParams      *paramFlags
	scenarioDescription string
	scenarioLimit       int
	scenarioOffset      int
	scenarioFormat      string
)

var scenarioCmd = &cobra.Command{
	Use:   "scenario",
	Short: "Save, list and run named fund terms",
}

var scenarioSaveCmd = &cobra.Command{
	Use:   "save <name>",
	Short: "Save or replace a named scenario",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		p, err := scenarioParams.resolve(cmd)
		if err != nil {
			return err
		}

		st, err := openScenarioStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		sc := &model.Scenario{Name: args[0], Description: scenarioDescription, Parameters: p}
		if err := st.SaveScenario(ctx, sc); err != nil {
			return err
		}
		zap.L().Info("scenario saved", zap.String("name", sc.Name), zap.String("id", sc.ID))
		fmt.Fprintln(cmd.OutOrStdout(), sc.ID)
		return nil
	},
}

var scenarioListCmd = &cobra.Command{
	Use:   "list",
	Short: "List saved scenarios",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()
		st, err := openScenarioStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		list, err := st.ListScenarios(ctx, scenarioLimit, scenarioOffset)
		if err != nil {
			return err
		}

		f := export.NewFormatter(cfg.Export.CurrencySymbol)
		tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "NAME\tPROCEEDS\tCAPITAL\tCARRY\tUPDATED\tID")
		for _, sc := range list {
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n",
				sc.Name,
				f.Money(sc.Parameters.GrossProceeds),
				f.Money(sc.Parameters.ContributedCapital),
				f.Percent(sc.Parameters.CarryRate),
				sc.UpdatedAt.Format("2006-01-02 15:04"),
				sc.ID,
			)
		}
		return tw.Flush()
	},
}

var scenarioShowCmd = &cobra.Command{
	Use:   "show <name|id>",
	Short: "Print a saved scenario as JSON",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		st, err := openScenarioStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		sc, err := lookupScenario(ctx, st, args[0])
		if err != nil {
			return err
		}
		return export.WriteJSON(cmd.OutOrStdout(), sc)
	},
}

var scenarioDeleteCmd = &cobra.Command{
	Use:   "delete <name|id>",
	Short: "Delete a saved scenario",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		st, err := openScenarioStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		sc, err := lookupScenario(ctx, st, args[0])
		if err != nil {
			return err
		}
		if err := st.DeleteScenario(ctx, sc.ID); err != nil {
			return err
		}
		zap.L().Info("scenario deleted", zap.String("name", sc.Name), zap.String("id", sc.ID))
		return nil
	},
}

var scenarioRunCmd = &cobra.Command{
	Use:   "run <name|id>",
	Short: "Calculate a saved scenario",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		format, err := parseFormat(scenarioFormat, export.FormatTable, export.FormatJSON, export.FormatCSV)
		if err != nil {
			return err
		}
		st, err := openScenarioStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		sc, err := lookupScenario(ctx, st, args[0])
		if err != nil {
			return err
		}
		res, err := waterfall.Calculate(sc.Parameters)
		if err != nil {
			return eris.Wrapf(err, "scenario %q", sc.Name)
		}
		logResult(res)
		return writeResult(cmd.OutOrStdout(), res, format, export.NewFormatter(cfg.Export.CurrencySymbol))
	},
}

var scenarioImportCmd = &cobra.Command{
	Use:   "import <file>",
	Short: "Save every scenario in a YAML scenario file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		loaded, err := waterfall.LoadScenarioFile(args[0])
		if err != nil {
			return err
		}

		st, err := openScenarioStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		scenarios := make([]model.Scenario, 0, len(loaded))
		for _, sc := range loaded {
			scenarios = append(scenarios, model.Scenario{
				Name:        sc.Name,
				Description: sc.Description,
				Parameters:  sc.Parameters,
			})
		}

		n, err := st.ImportScenarios(ctx, scenarios)
		if err != nil {
			return err
		}
		zap.L().Info("scenarios imported", zap.Int64("count", n), zap.String("file", args[0]))
		fmt.Fprintf(cmd.OutOrStdout(), "imported %d scenarios\n", n)
		return nil
	},
}

func openScenarioStore(ctx context.Context) (store.Store, error) {
	if err := cfg.Validate("store"); err != nil {
		return nil, err
	}
	return openStore(ctx)
}

// lookupScenario resolves ref as an id first, then as a name.
func lookupScenario(ctx context.Context, st store.Store, ref string) (*model.Scenario, error) {
	sc, err := st.GetScenario(ctx, ref)
	if err == nil {
		return sc, nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return nil, err
	}
	return st.GetScenarioByName(ctx, ref)
}

func init() {
	scenarioParams = addParamFlags(scenarioSaveCmd)
	scenarioSaveCmd.Flags().StringVar(&scenarioDescription, "description", "", "free-form description")

	scenarioListCmd.Flags().IntVar(&scenarioLimit, "limit", store.DefaultListLimit, "maximum scenarios to list")
	scenarioListCmd.Flags().IntVar(&scenarioOffset, "offset", 0, "scenarios to skip")

	scenarioRunCmd.Flags().StringVar(&scenarioFormat, "format", "table", "output format: table, json or csv")

	scenarioCmd.AddCommand(scenarioSaveCmd, scenarioListCmd, scenarioShowCmd, scenarioDeleteCmd, scenarioRunCmd, scenarioImportCmd)
	rootCmd.AddCommand(scenarioCmd)
}
