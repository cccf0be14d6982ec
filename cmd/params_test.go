package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/waterfall-cli/internal/config"
	"github.com/sells-group/waterfall-cli/internal/waterfall"
)

const scenarioYAML = `
defaults:
  contributed_capital: 50000000
  fund_size: 50000000
scenarios:
  - name: base
    gross_proceeds: 100000000
  - name: downside
    description: below cost
    gross_proceeds: 40000000
`

func withDefaults(t *testing.T, p waterfall.Parameters) {
	t.Helper()
	old := cfg
	cfg = &config.Config{Defaults: p}
	t.Cleanup(func() { cfg = old })
}

func parsedParams(t *testing.T, args ...string) (*cobra.Command, *paramFlags) {
	t.Helper()
	cmd := &cobra.Command{Use: "test"}
	f := addParamFlags(cmd)
	require.NoError(t, cmd.Flags().Parse(args))
	return cmd, f
}

func writeScenarioFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "scenarios.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestParamFlags_DefaultsWithoutFlags(t *testing.T) {
	base := waterfall.DefaultParameters()
	base.CarryRate = 0.30
	withDefaults(t, base)

	cmd, f := parsedParams(t)
	p, err := f.resolve(cmd)
	require.NoError(t, err)
	assert.Equal(t, base, p, "unset flags must not override configured defaults")
}

func TestParamFlags_OverrideOnlyChanged(t *testing.T) {
	withDefaults(t, waterfall.DefaultParameters())

	cmd, f := parsedParams(t,
		"--proceeds", "300000000",
		"--carry", "0.25",
		"--catch-up=false",
		"--type", "American",
		"--compounding", "COMPOUND",
		"--catch-up-target", "cumulative",
	)
	p, err := f.resolve(cmd)
	require.NoError(t, err)

	assert.Equal(t, 300_000_000.0, p.GrossProceeds)
	assert.Equal(t, 0.25, p.CarryRate)
	assert.False(t, p.HasCatchUp)
	assert.Equal(t, waterfall.TypeAmerican, p.WaterfallType)
	assert.Equal(t, waterfall.CompoundingCompound, p.PreferredReturnCompounding)
	assert.Equal(t, waterfall.CatchUpCumulative, p.CatchUpTarget)
	assert.Equal(t, 100_000_000.0, p.ContributedCapital)
	assert.Equal(t, 0.08, p.PreferredReturnRate)
}

func TestParamFlags_InvalidEnums(t *testing.T) {
	withDefaults(t, waterfall.DefaultParameters())

	for _, args := range [][]string{
		{"--type", "asian"},
		{"--compounding", "daily"},
		{"--catch-up-target", "partial"},
	} {
		cmd, f := parsedParams(t, args...)
		_, err := f.resolve(cmd)
		assert.ErrorIs(t, err, waterfall.ErrInvalidParameter, "args %v", args)
	}
}

func TestParamFlags_ScenarioFile(t *testing.T) {
	withDefaults(t, waterfall.DefaultParameters())
	path := writeScenarioFile(t, scenarioYAML)

	cmd, f := parsedParams(t, "--scenario-file", path, "--name", "downside", "--carry", "0.1")
	p, err := f.resolve(cmd)
	require.NoError(t, err)
	assert.Equal(t, 40_000_000.0, p.GrossProceeds)
	assert.Equal(t, 50_000_000.0, p.ContributedCapital)
	assert.Equal(t, 0.1, p.CarryRate, "flags win over the scenario file")
}

func TestLoadScenario(t *testing.T) {
	multi := writeScenarioFile(t, scenarioYAML)

	_, err := loadScenario(multi, "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "--name is required")

	_, err = loadScenario(multi, "upside")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")

	single := writeScenarioFile(t, "scenarios:\n  - name: only\n    gross_proceeds: 5\n")
	sc, err := loadScenario(single, "")
	require.NoError(t, err)
	assert.Equal(t, "only", sc.Name)
}

func TestOpenOutput(t *testing.T) {
	dir := t.TempDir()
	old := cfg
	cfg = &config.Config{Export: config.ExportConfig{OutputDir: dir}}
	defer func() { cfg = old }()

	cmd := &cobra.Command{}
	w, closeFn, err := openOutput(cmd, "-")
	require.NoError(t, err)
	assert.Equal(t, cmd.OutOrStdout(), w)
	require.NoError(t, closeFn())

	w, closeFn, err = openOutput(cmd, filepath.Join("reports", "out.csv"))
	require.NoError(t, err)
	_, err = w.Write([]byte("ok"))
	require.NoError(t, err)
	require.NoError(t, closeFn())

	data, err := os.ReadFile(filepath.Join(dir, "reports", "out.csv"))
	require.NoError(t, err)
	assert.Equal(t, "ok", string(data))
}
