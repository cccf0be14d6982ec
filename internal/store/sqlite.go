package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/sells-group/waterfall-cli/internal/model"
	"github.com/sells-group/waterfall-cli/internal/resilience"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db    *sql.DB
	clock clockwork.Clock
	retry resilience.RetryConfig
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	retry := resilience.FromSettings(3, 100)
	retry.OnRetry = resilience.RetryLogger("sqlite", "save scenario")
	return &SQLiteStore{db: db, clock: clockwork.NewRealClock(), retry: retry}, nil
}

// WithClock replaces the clock used for timestamps.
func (s *SQLiteStore) WithClock(c clockwork.Clock) *SQLiteStore {
	s.clock = c
	return s
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS scenarios (
	id          TEXT PRIMARY KEY,
	name        TEXT NOT NULL UNIQUE,
	description TEXT NOT NULL DEFAULT '',
	parameters  TEXT NOT NULL,
	created_at  DATETIME NOT NULL DEFAULT (datetime('now')),
	updated_at  DATETIME NOT NULL DEFAULT (datetime('now'))
);
`

const sqliteUpsert = `INSERT INTO scenarios (id, name, description, parameters, created_at, updated_at)
VALUES (?, ?, ?, ?, ?, ?)
ON CONFLICT(name) DO UPDATE SET
	description = excluded.description,
	parameters = excluded.parameters,
	updated_at = excluded.updated_at`

const sqliteSelect = `SELECT id, name, description, parameters, created_at, updated_at FROM scenarios`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) SaveScenario(ctx context.Context, sc *model.Scenario) error {
	if err := sc.Validate(); err != nil {
		return err
	}
	paramsJSON, err := json.Marshal(sc.Parameters)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal parameters")
	}

	now := s.clock.Now().UTC()
	id := uuid.New().String()
	err = resilience.Do(ctx, s.retry, func(ctx context.Context) error {
		_, err := s.db.ExecContext(ctx, sqliteUpsert,
			id, sc.Name, sc.Description, string(paramsJSON), now, now,
		)
		return err
	})
	if err != nil {
		return eris.Wrapf(err, "sqlite: save scenario %s", sc.Name)
	}

	saved, err := s.GetScenarioByName(ctx, sc.Name)
	if err != nil {
		return err
	}
	*sc = *saved
	return nil
}

func (s *SQLiteStore) ImportScenarios(ctx context.Context, scenarios []model.Scenario) (int64, error) {
	if len(scenarios) == 0 {
		return 0, nil
	}
	if err := validateAll(scenarios); err != nil {
		return 0, err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: begin import")
	}
	defer tx.Rollback() //nolint:errcheck

	stmt, err := tx.PrepareContext(ctx, sqliteUpsert)
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: prepare import")
	}
	defer stmt.Close()

	now := s.clock.Now().UTC()
	var n int64
	for _, sc := range scenarios {
		paramsJSON, err := json.Marshal(sc.Parameters)
		if err != nil {
			return 0, eris.Wrap(err, "sqlite: marshal parameters")
		}
		res, err := stmt.ExecContext(ctx, uuid.New().String(), sc.Name, sc.Description, string(paramsJSON), now, now)
		if err != nil {
			return 0, eris.Wrapf(err, "sqlite: import scenario %s", sc.Name)
		}
		affected, err := res.RowsAffected()
		if err != nil {
			return 0, eris.Wrap(err, "sqlite: rows affected")
		}
		n += affected
	}

	if err := tx.Commit(); err != nil {
		return 0, eris.Wrap(err, "sqlite: commit import")
	}
	return n, nil
}

func (s *SQLiteStore) GetScenario(ctx context.Context, id string) (*model.Scenario, error) {
	row := s.db.QueryRowContext(ctx, sqliteSelect+` WHERE id = ?`, id)
	sc, err := scanScenario(row)
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: get scenario %s", id)
	}
	return sc, nil
}

func (s *SQLiteStore) GetScenarioByName(ctx context.Context, name string) (*model.Scenario, error) {
	row := s.db.QueryRowContext(ctx, sqliteSelect+` WHERE name = ?`, name)
	sc, err := scanScenario(row)
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: get scenario by name %s", name)
	}
	return sc, nil
}

func (s *SQLiteStore) ListScenarios(ctx context.Context, limit, offset int) ([]model.Scenario, error) {
	if offset < 0 {
		offset = 0
	}
	rows, err := s.db.QueryContext(ctx, sqliteSelect+` ORDER BY name LIMIT ? OFFSET ?`, listLimit(limit), offset)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list scenarios")
	}
	defer rows.Close()

	var out []model.Scenario
	for rows.Next() {
		sc, err := scanScenario(rows)
		if err != nil {
			return nil, eris.Wrap(err, "sqlite: list scenarios")
		}
		out = append(out, *sc)
	}
	return out, eris.Wrap(rows.Err(), "sqlite: list scenarios")
}

func (s *SQLiteStore) DeleteScenario(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM scenarios WHERE id = ?`, id)
	if err != nil {
		return eris.Wrapf(err, "sqlite: delete scenario %s", id)
	}
	return checkRowsAffected(res, "scenario", id)
}

func checkRowsAffected(res sql.Result, entity, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return eris.Wrap(err, "rows affected")
	}
	if n == 0 {
		return eris.Wrapf(ErrNotFound, "%s %s", entity, id)
	}
	return nil
}

type scannable interface {
	Scan(dest ...any) error
}

func scanScenario(row scannable) (*model.Scenario, error) {
	var sc model.Scenario
	var paramsJSON string

	err := row.Scan(&sc.ID, &sc.Name, &sc.Description, &paramsJSON, &sc.CreatedAt, &sc.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, eris.Wrap(err, "scan scenario")
	}
	if err := json.Unmarshal([]byte(paramsJSON), &sc.Parameters); err != nil {
		return nil, eris.Wrap(err, "unmarshal parameters")
	}
	return &sc, nil
}
