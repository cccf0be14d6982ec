package main

import (
	"io"
	"os"
	"path/filepath"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/waterfall-cli/internal/waterfall"
)

// paramFlags holds the fund term flags shared by calc, sensitivity, export
// and scenario save. Only flags the user set override the base terms.
type paramFlags struct {
	fundSize      float64
	contributed   float64
	gross         float64
	prefRate      float64
	carry         float64
	catchUpRate   float64
	years         float64
	gpCommit      float64
	waterfallType string
	compounding   string
	catchUpTarget string
	catchUp       bool
	scenarioFile  string
	scenarioName  string
}

func addParamFlags(cmd *cobra.Command) *paramFlags {
	f := &paramFlags{}
	d := waterfall.DefaultParameters()
	fs := cmd.Flags()

	fs.Float64Var(&f.fundSize, "fund-size", d.FundSize, "committed fund size")
	fs.Float64Var(&f.contributed, "contributed", d.ContributedCapital, "capital contributed by LPs and the GP")
	fs.Float64Var(&f.gross, "proceeds", d.GrossProceeds, "gross proceeds to distribute")
	fs.StringVar(&f.waterfallType, "type", string(d.WaterfallType), "waterfall type: european or american")
	fs.Float64Var(&f.prefRate, "pref-rate", d.PreferredReturnRate, "annual preferred return rate as a fraction")
	fs.StringVar(&f.compounding, "compounding", string(d.PreferredReturnCompounding), "preferred return accrual: simple or compound")
	fs.Float64Var(&f.years, "years", d.YearsToExit, "years from contribution to exit")
	fs.Float64Var(&f.carry, "carry", d.CarryRate, "carried interest rate as a fraction")
	fs.BoolVar(&f.catchUp, "catch-up", d.HasCatchUp, "include the GP catch-up tier")
	fs.Float64Var(&f.catchUpRate, "catch-up-rate", d.CatchUpRate, "share of catch-up distributions paid to the GP")
	fs.StringVar(&f.catchUpTarget, "catch-up-target", string(d.CatchUpTarget), "catch-up target: residual (carry share of profits after the hurdle) or cumulative (exactly the carry rate of all profits)")
	fs.Float64Var(&f.gpCommit, "gp-commit", d.GPCommitmentPercent, "GP share of contributed capital as a fraction")
	fs.StringVar(&f.scenarioFile, "scenario-file", "", "YAML scenario file to take terms from")
	fs.StringVar(&f.scenarioName, "name", "", "scenario to use from --scenario-file")
	return f
}

// resolve builds parameters from the configured defaults, then the scenario
// file if one was given, then any flags set on the command line.
func (f *paramFlags) resolve(cmd *cobra.Command) (waterfall.Parameters, error) {
	p := cfg.Defaults
	if f.scenarioFile != "" {
		sc, err := loadScenario(f.scenarioFile, f.scenarioName)
		if err != nil {
			return p, err
		}
		p = sc.Parameters
	}
	return f.apply(cmd, p)
}

func (f *paramFlags) apply(cmd *cobra.Command, p waterfall.Parameters) (waterfall.Parameters, error) {
	fs := cmd.Flags()

	for _, fl := range []struct {
		name string
		dst  *float64
		v    float64
	}{
		{"fund-size", &p.FundSize, f.fundSize},
		{"contributed", &p.ContributedCapital, f.contributed},
		{"proceeds", &p.GrossProceeds, f.gross},
		{"pref-rate", &p.PreferredReturnRate, f.prefRate},
		{"years", &p.YearsToExit, f.years},
		{"carry", &p.CarryRate, f.carry},
		{"catch-up-rate", &p.CatchUpRate, f.catchUpRate},
		{"gp-commit", &p.GPCommitmentPercent, f.gpCommit},
	} {
		if fs.Changed(fl.name) {
			*fl.dst = fl.v
		}
	}

	if fs.Changed("catch-up") {
		p.HasCatchUp = f.catchUp
	}
	if fs.Changed("type") {
		t, err := waterfall.ParseType(f.waterfallType)
		if err != nil {
			return p, err
		}
		p.WaterfallType = t
	}
	if fs.Changed("compounding") {
		c, err := waterfall.ParseCompounding(f.compounding)
		if err != nil {
			return p, err
		}
		p.PreferredReturnCompounding = c
	}
	if fs.Changed("catch-up-target") {
		t, err := waterfall.ParseCatchUpTarget(f.catchUpTarget)
		if err != nil {
			return p, err
		}
		p.CatchUpTarget = t
	}
	return p, nil
}

// loadScenario picks one scenario from a file. The name may be omitted when
// the file holds a single scenario.
func loadScenario(path, name string) (waterfall.Scenario, error) {
	scenarios, err := waterfall.LoadScenarioFile(path)
	if err != nil {
		return waterfall.Scenario{}, err
	}
	if name == "" {
		if len(scenarios) == 1 {
			return scenarios[0], nil
		}
		return waterfall.Scenario{}, eris.Errorf("--name is required: %s holds %d scenarios", path, len(scenarios))
	}
	return waterfall.FindScenario(scenarios, name)
}

// openOutput returns stdout for "" or "-", otherwise a new file. Relative
// paths are placed under export.output_dir.
func openOutput(cmd *cobra.Command, path string) (io.Writer, func() error, error) {
	if path == "" || path == "-" {
		return cmd.OutOrStdout(), func() error { return nil }, nil
	}
	if !filepath.IsAbs(path) && cfg.Export.OutputDir != "" {
		path = filepath.Join(cfg.Export.OutputDir, path)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, nil, eris.Wrapf(err, "create output dir for %s", path)
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, nil, eris.Wrapf(err, "create %s", path)
	}
	return f, f.Close, nil
}
