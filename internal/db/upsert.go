package db

import (
	"context"
	"encoding/json"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/rotisserie/eris"
)

// ScenarioRow is one scenarios-table row staged by an import.
type ScenarioRow struct {
	ID          string
	Name        string
	Description string
	Parameters  json.RawMessage
	SavedAt     time.Time
}

// ScenarioColumns lists the scenarios columns in COPY order.
var ScenarioColumns = []string{"id", "name", "description", "parameters", "created_at", "updated_at"}

const scenarioStage = "_scenario_import"

const (
	createScenarioStage = `CREATE TEMP TABLE _scenario_import (LIKE scenarios INCLUDING DEFAULTS) ON COMMIT DROP`

	// Existing rows keep their id and created_at.
	mergeScenarioStage = `INSERT INTO scenarios (id, name, description, parameters, created_at, updated_at)
SELECT id, name, description, parameters, created_at, updated_at FROM _scenario_import
ON CONFLICT (name) DO UPDATE SET
	description = EXCLUDED.description,
	parameters = EXCLUDED.parameters,
	updated_at = EXCLUDED.updated_at`
)

// UpsertScenarios COPYs rows into a transaction-scoped staging table and
// merges them into scenarios by name, in one transaction. It returns the
// number of scenarios inserted or updated.
func UpsertScenarios(ctx context.Context, pool Pool, rows []ScenarioRow) (int64, error) {
	if len(rows) == 0 {
		return 0, nil
	}
	if err := checkScenarioRows(rows); err != nil {
		return 0, err
	}

	tx, err := pool.Begin(ctx)
	if err != nil {
		return 0, eris.Wrap(err, "db: upsert scenarios: begin tx")
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	if _, err := tx.Exec(ctx, createScenarioStage); err != nil {
		return 0, eris.Wrap(err, "db: upsert scenarios: create staging table")
	}

	src := pgx.CopyFromSlice(len(rows), func(i int) ([]any, error) {
		r := rows[i]
		return []any{r.ID, r.Name, r.Description, []byte(r.Parameters), r.SavedAt, r.SavedAt}, nil
	})
	if _, err := tx.CopyFrom(ctx, pgx.Identifier{scenarioStage}, ScenarioColumns, src); err != nil {
		return 0, eris.Wrapf(err, "db: upsert scenarios: COPY %d rows", len(rows))
	}

	tag, err := tx.Exec(ctx, mergeScenarioStage)
	if err != nil {
		return 0, eris.Wrap(err, "db: upsert scenarios: merge")
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, eris.Wrap(err, "db: upsert scenarios: commit tx")
	}
	return tag.RowsAffected(), nil
}

// checkScenarioRows rejects rows the merge cannot apply. A name repeated in
// one batch would make ON CONFLICT touch the same row twice.
func checkScenarioRows(rows []ScenarioRow) error {
	seen := make(map[string]bool, len(rows))
	for i, r := range rows {
		switch {
		case r.ID == "":
			return eris.Errorf("db: upsert scenarios: row %d has no id", i)
		case r.Name == "":
			return eris.Errorf("db: upsert scenarios: row %d has no name", i)
		case !json.Valid(r.Parameters):
			return eris.Errorf("db: upsert scenarios: row %d (%s) parameters are not valid JSON", i, r.Name)
		case seen[r.Name]:
			return eris.Errorf("db: upsert scenarios: duplicate name %q", r.Name)
		}
		seen[r.Name] = true
	}
	return nil
}
