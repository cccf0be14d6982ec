package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/waterfall-cli/internal/model"
	"github.com/sells-group/waterfall-cli/internal/waterfall"
)

var t0 = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func newTestSQLite(t *testing.T) (*SQLiteStore, *clockwork.FakeClock) {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")
	s, err := NewSQLite(dbPath)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() }) //nolint:errcheck
	require.NoError(t, s.Migrate(context.Background()))

	clock := clockwork.NewFakeClockAt(t0)
	s.WithClock(clock)
	return s, clock
}

func scenario(name string, gross float64) model.Scenario {
	p := waterfall.DefaultParameters()
	p.GrossProceeds = gross
	return model.Scenario{Name: name, Parameters: p}
}

func TestSQLite_SaveAndGet(t *testing.T) {
	s, _ := newTestSQLite(t)
	ctx := context.Background()

	sc := scenario("base", 200_000_000)
	sc.Description = "2x exit"
	require.NoError(t, s.SaveScenario(ctx, &sc))
	assert.NotEmpty(t, sc.ID)
	assert.True(t, sc.CreatedAt.Equal(t0))
	assert.True(t, sc.UpdatedAt.Equal(t0))

	got, err := s.GetScenario(ctx, sc.ID)
	require.NoError(t, err)
	assert.Equal(t, "base", got.Name)
	assert.Equal(t, "2x exit", got.Description)
	assert.Equal(t, sc.Parameters, got.Parameters)

	byName, err := s.GetScenarioByName(ctx, "base")
	require.NoError(t, err)
	assert.Equal(t, sc.ID, byName.ID)
}

func TestSQLite_SaveUpsertsByName(t *testing.T) {
	s, clock := newTestSQLite(t)
	ctx := context.Background()

	first := scenario("base", 200_000_000)
	require.NoError(t, s.SaveScenario(ctx, &first))

	clock.Advance(time.Hour)
	second := scenario("base", 300_000_000)
	second.Description = "revised"
	require.NoError(t, s.SaveScenario(ctx, &second))

	assert.Equal(t, first.ID, second.ID)
	assert.True(t, second.CreatedAt.Equal(t0))
	assert.True(t, second.UpdatedAt.Equal(t0.Add(time.Hour)))

	got, err := s.GetScenario(ctx, first.ID)
	require.NoError(t, err)
	assert.InDelta(t, 300_000_000, got.Parameters.GrossProceeds, 1e-6)
	assert.Equal(t, "revised", got.Description)

	all, err := s.ListScenarios(ctx, 0, 0)
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestSQLite_SaveRejectsInvalid(t *testing.T) {
	s, _ := newTestSQLite(t)
	ctx := context.Background()

	sc := scenario("", 1)
	err := s.SaveScenario(ctx, &sc)
	assert.ErrorIs(t, err, waterfall.ErrInvalidParameter)

	sc = scenario("negative", -1)
	err = s.SaveScenario(ctx, &sc)
	assert.ErrorIs(t, err, waterfall.ErrInvalidParameter)
}

func TestSQLite_NotFound(t *testing.T) {
	s, _ := newTestSQLite(t)
	ctx := context.Background()

	_, err := s.GetScenario(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = s.GetScenarioByName(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)

	err = s.DeleteScenario(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSQLite_ListOrderAndPaging(t *testing.T) {
	s, _ := newTestSQLite(t)
	ctx := context.Background()

	for _, name := range []string{"charlie", "alpha", "bravo"} {
		sc := scenario(name, 150_000_000)
		require.NoError(t, s.SaveScenario(ctx, &sc))
	}

	all, err := s.ListScenarios(ctx, 0, 0)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "alpha", all[0].Name)
	assert.Equal(t, "bravo", all[1].Name)
	assert.Equal(t, "charlie", all[2].Name)

	page, err := s.ListScenarios(ctx, 1, 1)
	require.NoError(t, err)
	require.Len(t, page, 1)
	assert.Equal(t, "bravo", page[0].Name)

	none, err := s.ListScenarios(ctx, 10, 5)
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestSQLite_Delete(t *testing.T) {
	s, _ := newTestSQLite(t)
	ctx := context.Background()

	sc := scenario("base", 200_000_000)
	require.NoError(t, s.SaveScenario(ctx, &sc))
	require.NoError(t, s.DeleteScenario(ctx, sc.ID))

	_, err := s.GetScenario(ctx, sc.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSQLite_Import(t *testing.T) {
	s, _ := newTestSQLite(t)
	ctx := context.Background()

	existing := scenario("base", 200_000_000)
	require.NoError(t, s.SaveScenario(ctx, &existing))

	n, err := s.ImportScenarios(ctx, []model.Scenario{
		scenario("base", 250_000_000),
		scenario("downside", 80_000_000),
	})
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	base, err := s.GetScenarioByName(ctx, "base")
	require.NoError(t, err)
	assert.Equal(t, existing.ID, base.ID)
	assert.InDelta(t, 250_000_000, base.Parameters.GrossProceeds, 1e-6)

	all, err := s.ListScenarios(ctx, 0, 0)
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestSQLite_ImportValidation(t *testing.T) {
	s, _ := newTestSQLite(t)
	ctx := context.Background()

	n, err := s.ImportScenarios(ctx, nil)
	require.NoError(t, err)
	assert.Zero(t, n)

	_, err = s.ImportScenarios(ctx, []model.Scenario{scenario("a", 1), scenario("a", 2)})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "duplicate scenario name")

	_, err = s.ImportScenarios(ctx, []model.Scenario{scenario("a", 1), scenario("b", -5)})
	assert.ErrorIs(t, err, waterfall.ErrInvalidParameter)

	all, err := s.ListScenarios(ctx, 0, 0)
	require.NoError(t, err)
	assert.Empty(t, all)
}

func TestSQLite_MigrateIdempotent(t *testing.T) {
	s, _ := newTestSQLite(t)
	assert.NoError(t, s.Migrate(context.Background()))
}

func TestListLimit(t *testing.T) {
	assert.Equal(t, DefaultListLimit, listLimit(0))
	assert.Equal(t, DefaultListLimit, listLimit(-1))
	assert.Equal(t, 5, listLimit(5))
}

// Compile-time interface checks.
var (
	_ Store = (*SQLiteStore)(nil)
	_ Store = (*PostgresStore)(nil)
)
