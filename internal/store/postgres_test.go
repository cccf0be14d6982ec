package store

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jonboulle/clockwork"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/waterfall-cli/internal/model"
	"github.com/sells-group/waterfall-cli/internal/waterfall"
)

var scenarioColumns = []string{"id", "name", "description", "parameters", "created_at", "updated_at"}

// newMockPostgresStore creates a PostgresStore backed by pgxmock for unit testing.
func newMockPostgresStore(t *testing.T) (*PostgresStore, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool(pgxmock.QueryMatcherOption(pgxmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { mock.Close() })

	s := &PostgresStore{pool: mock, clock: clockwork.NewFakeClockAt(t0)}
	return s, mock
}

func paramsJSON(t *testing.T, p waterfall.Parameters) []byte {
	t.Helper()
	data, err := json.Marshal(p)
	require.NoError(t, err)
	return data
}

func TestPostgresStore_Migrate(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec(`CREATE TABLE IF NOT EXISTS scenarios`).
		WillReturnResult(pgxmock.NewResult("CREATE TABLE", 0))

	require.NoError(t, s.Migrate(context.Background()))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_SaveScenario(t *testing.T) {
	s, mock := newMockPostgresStore(t)
	created := t0.Add(-24 * time.Hour)

	mock.ExpectQuery(`(?s)INSERT INTO scenarios .* ON CONFLICT \(name\) DO UPDATE SET .* RETURNING id, created_at, updated_at`).
		WithArgs(pgxmock.AnyArg(), "base", "2x", pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnRows(pgxmock.NewRows([]string{"id", "created_at", "updated_at"}).
			AddRow("existing-id", created, t0))

	sc := scenario("base", 200_000_000)
	sc.Description = "2x"
	require.NoError(t, s.SaveScenario(context.Background(), &sc))

	assert.Equal(t, "existing-id", sc.ID)
	assert.True(t, sc.CreatedAt.Equal(created))
	assert.True(t, sc.UpdatedAt.Equal(t0))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_SaveScenario_Invalid(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	sc := scenario("base", -1)
	err := s.SaveScenario(context.Background(), &sc)
	assert.ErrorIs(t, err, waterfall.ErrInvalidParameter)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_GetScenario(t *testing.T) {
	s, mock := newMockPostgresStore(t)
	p := waterfall.DefaultParameters()

	mock.ExpectQuery(`SELECT id, name, description, parameters, created_at, updated_at FROM scenarios WHERE id = \$1`).
		WithArgs("abc").
		WillReturnRows(pgxmock.NewRows(scenarioColumns).
			AddRow("abc", "base", "", paramsJSON(t, p), t0, t0))

	got, err := s.GetScenario(context.Background(), "abc")
	require.NoError(t, err)
	assert.Equal(t, "base", got.Name)
	assert.Equal(t, p, got.Parameters)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_GetScenario_NotFound(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectQuery(`FROM scenarios WHERE id = \$1`).
		WithArgs("nonexistent").
		WillReturnError(pgx.ErrNoRows)

	_, err := s.GetScenario(context.Background(), "nonexistent")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Contains(t, err.Error(), "get scenario")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_GetScenarioByName_NotFound(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectQuery(`FROM scenarios WHERE name = \$1`).
		WithArgs("upside").
		WillReturnError(pgx.ErrNoRows)

	_, err := s.GetScenarioByName(context.Background(), "upside")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_ListScenarios(t *testing.T) {
	s, mock := newMockPostgresStore(t)
	p := waterfall.DefaultParameters()

	mock.ExpectQuery(`FROM scenarios ORDER BY name LIMIT \$1 OFFSET \$2`).
		WithArgs(DefaultListLimit, 0).
		WillReturnRows(pgxmock.NewRows(scenarioColumns).
			AddRow("1", "alpha", "", paramsJSON(t, p), t0, t0).
			AddRow("2", "bravo", "", paramsJSON(t, p), t0, t0))

	list, err := s.ListScenarios(context.Background(), 0, -3)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "alpha", list[0].Name)
	assert.Equal(t, "bravo", list[1].Name)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_ListScenarios_BadJSON(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectQuery(`FROM scenarios ORDER BY name`).
		WithArgs(10, 0).
		WillReturnRows(pgxmock.NewRows(scenarioColumns).
			AddRow("1", "alpha", "", []byte(`{not json`), t0, t0))

	_, err := s.ListScenarios(context.Background(), 10, 0)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unmarshal parameters")
}

func TestPostgresStore_DeleteScenario(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec(`DELETE FROM scenarios WHERE id = \$1`).
		WithArgs("abc").
		WillReturnResult(pgxmock.NewResult("DELETE", 1))
	mock.ExpectExec(`DELETE FROM scenarios WHERE id = \$1`).
		WithArgs("gone").
		WillReturnResult(pgxmock.NewResult("DELETE", 0))

	require.NoError(t, s.DeleteScenario(context.Background(), "abc"))
	err := s.DeleteScenario(context.Background(), "gone")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_DeleteScenario_Error(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec(`DELETE FROM scenarios`).
		WithArgs("abc").
		WillReturnError(fmt.Errorf("connection reset"))

	err := s.DeleteScenario(context.Background(), "abc")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrNotFound)
	assert.Contains(t, err.Error(), "delete scenario abc")
}

func TestPostgresStore_ImportScenarios(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectBegin()
	mock.ExpectExec(`CREATE TEMP TABLE _scenario_import`).
		WillReturnResult(pgxmock.NewResult("CREATE TABLE", 0))
	mock.ExpectCopyFrom(pgx.Identifier{"_scenario_import"}, scenarioColumns).
		WillReturnResult(2)
	mock.ExpectExec(`ON CONFLICT \(name\) DO UPDATE SET`).
		WillReturnResult(pgxmock.NewResult("INSERT", 2))
	mock.ExpectCommit()

	n, err := s.ImportScenarios(context.Background(), []model.Scenario{
		scenario("base", 200_000_000),
		scenario("downside", 80_000_000),
	})
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_ImportScenarios_Empty(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	n, err := s.ImportScenarios(context.Background(), nil)
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_Close(t *testing.T) {
	closed := false
	s := &PostgresStore{closeFn: func() { closed = true }}
	require.NoError(t, s.Close())
	assert.True(t, closed)
}
