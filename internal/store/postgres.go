package store

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jonboulle/clockwork"
	"github.com/rotisserie/eris"

	"github.com/sells-group/waterfall-cli/internal/db"
	"github.com/sells-group/waterfall-cli/internal/model"
	"github.com/sells-group/waterfall-cli/internal/resilience"
)

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool    db.Pool
	closeFn func()
	clock   clockwork.Clock
}

// PoolConfig holds optional connection pool tuning parameters.
type PoolConfig struct {
	MaxConns int32 `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns int32 `yaml:"min_conns" mapstructure:"min_conns"`
	// ConnectAttempts and ConnectBackoffMs retry the initial connect while
	// the server refuses connections. Zero keeps the resilience defaults.
	ConnectAttempts  int `yaml:"connect_attempts" mapstructure:"connect_attempts"`
	ConnectBackoffMs int `yaml:"connect_backoff_ms" mapstructure:"connect_backoff_ms"`
}

const (
	pgUpsert = `INSERT INTO scenarios (id, name, description, parameters, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6)
ON CONFLICT (name) DO UPDATE SET
	description = EXCLUDED.description,
	parameters = EXCLUDED.parameters,
	updated_at = EXCLUDED.updated_at
RETURNING id, created_at, updated_at`
	pgSelect = `SELECT id, name, description, parameters, created_at, updated_at FROM scenarios`
)

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string, poolCfg *PoolConfig) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}

	// Apply pool sizing from config with sensible defaults.
	maxConns := int32(10)
	minConns := int32(1)
	if poolCfg != nil {
		if poolCfg.MaxConns > 0 {
			maxConns = poolCfg.MaxConns
		}
		if poolCfg.MinConns > 0 {
			minConns = poolCfg.MinConns
		}
	}
	pgxCfg.MaxConns = maxConns
	pgxCfg.MinConns = minConns
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	retry := resilience.DefaultRetryConfig()
	if poolCfg != nil {
		retry = resilience.FromSettings(poolCfg.ConnectAttempts, poolCfg.ConnectBackoffMs)
	}
	retry.OnRetry = resilience.RetryLogger("postgres", "connect")

	pool, err := resilience.DoVal(ctx, retry, func(ctx context.Context) (*pgxpool.Pool, error) {
		pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
		if err != nil {
			return nil, eris.Wrap(err, "postgres: create pool")
		}
		if err := pool.Ping(ctx); err != nil {
			pool.Close()
			return nil, eris.Wrap(err, "postgres: ping")
		}
		return pool, nil
	})
	if err != nil {
		return nil, err
	}
	return &PostgresStore{pool: pool, closeFn: pool.Close, clock: clockwork.NewRealClock()}, nil
}

// WithClock replaces the clock used for timestamps.
func (s *PostgresStore) WithClock(c clockwork.Clock) *PostgresStore {
	s.clock = c
	return s
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS scenarios (
	id          TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	name        TEXT NOT NULL UNIQUE,
	description TEXT NOT NULL DEFAULT '',
	parameters  JSONB NOT NULL,
	created_at  TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at  TIMESTAMPTZ NOT NULL DEFAULT now()
);
`

func (s *PostgresStore) Ping(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, "SELECT 1")
	return eris.Wrap(err, "postgres: ping")
}

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	if s.closeFn != nil {
		s.closeFn()
	}
	return nil
}

func (s *PostgresStore) now() time.Time {
	if s.clock == nil {
		return time.Now().UTC()
	}
	return s.clock.Now().UTC()
}

func (s *PostgresStore) SaveScenario(ctx context.Context, sc *model.Scenario) error {
	if err := sc.Validate(); err != nil {
		return err
	}
	paramsJSON, err := json.Marshal(sc.Parameters)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal parameters")
	}

	now := s.now()
	var id string
	var createdAt, updatedAt time.Time
	err = s.pool.QueryRow(ctx, pgUpsert,
		uuid.New().String(), sc.Name, sc.Description, paramsJSON, now, now,
	).Scan(&id, &createdAt, &updatedAt)
	if err != nil {
		return eris.Wrapf(err, "postgres: save scenario %s", sc.Name)
	}

	sc.ID = id
	sc.CreatedAt = createdAt
	sc.UpdatedAt = updatedAt
	return nil
}

func (s *PostgresStore) ImportScenarios(ctx context.Context, scenarios []model.Scenario) (int64, error) {
	if len(scenarios) == 0 {
		return 0, nil
	}
	if err := validateAll(scenarios); err != nil {
		return 0, err
	}

	now := s.now()
	rows := make([]db.ScenarioRow, 0, len(scenarios))
	for _, sc := range scenarios {
		paramsJSON, err := json.Marshal(sc.Parameters)
		if err != nil {
			return 0, eris.Wrap(err, "postgres: marshal parameters")
		}
		rows = append(rows, db.ScenarioRow{
			ID:          uuid.New().String(),
			Name:        sc.Name,
			Description: sc.Description,
			Parameters:  paramsJSON,
			SavedAt:     now,
		})
	}

	n, err := db.UpsertScenarios(ctx, s.pool, rows)
	if err != nil {
		return 0, eris.Wrap(err, "postgres: import scenarios")
	}
	return n, nil
}

func (s *PostgresStore) GetScenario(ctx context.Context, id string) (*model.Scenario, error) {
	sc, err := scanPgScenario(s.pool.QueryRow(ctx, pgSelect+` WHERE id = $1`, id))
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: get scenario %s", id)
	}
	return sc, nil
}

func (s *PostgresStore) GetScenarioByName(ctx context.Context, name string) (*model.Scenario, error) {
	sc, err := scanPgScenario(s.pool.QueryRow(ctx, pgSelect+` WHERE name = $1`, name))
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: get scenario by name %s", name)
	}
	return sc, nil
}

func (s *PostgresStore) ListScenarios(ctx context.Context, limit, offset int) ([]model.Scenario, error) {
	if offset < 0 {
		offset = 0
	}
	rows, err := s.pool.Query(ctx, pgSelect+` ORDER BY name LIMIT $1 OFFSET $2`, listLimit(limit), offset)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list scenarios")
	}
	defer rows.Close()

	var out []model.Scenario
	for rows.Next() {
		sc, err := scanPgScenario(rows)
		if err != nil {
			return nil, eris.Wrap(err, "postgres: list scenarios")
		}
		out = append(out, *sc)
	}
	return out, eris.Wrap(rows.Err(), "postgres: list scenarios")
}

func (s *PostgresStore) DeleteScenario(ctx context.Context, id string) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM scenarios WHERE id = $1`, id)
	if err != nil {
		return eris.Wrapf(err, "postgres: delete scenario %s", id)
	}
	if tag.RowsAffected() == 0 {
		return eris.Wrapf(ErrNotFound, "scenario %s", id)
	}
	return nil
}

func scanPgScenario(row pgx.Row) (*model.Scenario, error) {
	var sc model.Scenario
	var paramsJSON []byte

	err := row.Scan(&sc.ID, &sc.Name, &sc.Description, &paramsJSON, &sc.CreatedAt, &sc.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, eris.Wrap(err, "scan scenario")
	}
	if err := json.Unmarshal(paramsJSON, &sc.Parameters); err != nil {
		return nil, eris.Wrap(err, "unmarshal parameters")
	}
	return &sc, nil
}
