package db

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var savedAt = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func row(id, name string) ScenarioRow {
	return ScenarioRow{
		ID:         id,
		Name:       name,
		Parameters: []byte(`{"carry_rate":0.2}`),
		SavedAt:    savedAt,
	}
}

func newMockPool(t *testing.T) pgxmock.PgxPoolIface {
	t.Helper()
	mock, err := pgxmock.NewPool(pgxmock.QueryMatcherOption(pgxmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { mock.Close() })
	return mock
}

func TestUpsertScenarios_EmptyRows(t *testing.T) {
	n, err := UpsertScenarios(context.TODO(), nil, nil)
	assert.NoError(t, err)
	assert.Equal(t, int64(0), n)
}

func TestUpsertScenarios_Success(t *testing.T) {
	mock := newMockPool(t)

	mock.ExpectBegin()
	mock.ExpectExec(`CREATE TEMP TABLE _scenario_import \(LIKE scenarios INCLUDING DEFAULTS\) ON COMMIT DROP`).
		WillReturnResult(pgxmock.NewResult("CREATE TABLE", 0))
	mock.ExpectCopyFrom(pgx.Identifier{"_scenario_import"}, ScenarioColumns).
		WillReturnResult(2)
	mock.ExpectExec(`ON CONFLICT \(name\) DO UPDATE SET\s+description = EXCLUDED.description,\s+parameters = EXCLUDED.parameters,\s+updated_at = EXCLUDED.updated_at$`).
		WillReturnResult(pgxmock.NewResult("INSERT", 2))
	mock.ExpectCommit()

	n, err := UpsertScenarios(context.Background(), mock, []ScenarioRow{row("1", "base"), row("2", "downside")})
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpsertScenarios_CopyError(t *testing.T) {
	mock := newMockPool(t)

	mock.ExpectBegin()
	mock.ExpectExec(`CREATE TEMP TABLE`).WillReturnResult(pgxmock.NewResult("CREATE TABLE", 0))
	mock.ExpectCopyFrom(pgx.Identifier{"_scenario_import"}, ScenarioColumns).
		WillReturnError(fmt.Errorf("copy failed"))
	mock.ExpectRollback()

	_, err := UpsertScenarios(context.Background(), mock, []ScenarioRow{row("1", "base")})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "COPY 1 rows")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpsertScenarios_MergeError(t *testing.T) {
	mock := newMockPool(t)

	mock.ExpectBegin()
	mock.ExpectExec(`CREATE TEMP TABLE`).WillReturnResult(pgxmock.NewResult("CREATE TABLE", 0))
	mock.ExpectCopyFrom(pgx.Identifier{"_scenario_import"}, ScenarioColumns).WillReturnResult(1)
	mock.ExpectExec(`INSERT INTO scenarios`).WillReturnError(fmt.Errorf("relation \"scenarios\" does not exist"))
	mock.ExpectRollback()

	_, err := UpsertScenarios(context.Background(), mock, []ScenarioRow{row("1", "base")})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "merge")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpsertScenarios_RejectsBadRows(t *testing.T) {
	noParams := row("1", "base")
	noParams.Parameters = []byte("{")

	tests := []struct {
		name string
		rows []ScenarioRow
		want string
	}{
		{"missing id", []ScenarioRow{row("", "base")}, "has no id"},
		{"missing name", []ScenarioRow{row("1", "")}, "has no name"},
		{"bad json", []ScenarioRow{noParams}, "not valid JSON"},
		{"duplicate name", []ScenarioRow{row("1", "base"), row("2", "base")}, `duplicate name "base"`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mock := newMockPool(t)
			_, err := UpsertScenarios(context.Background(), mock, tt.rows)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
			assert.NoError(t, mock.ExpectationsWereMet(), "nothing reaches the database")
		})
	}
}
