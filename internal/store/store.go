package store

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/sells-group/waterfall-cli/internal/model"
)

// ErrNotFound is returned, wrapped, when a scenario does not exist.
var ErrNotFound = eris.New("store: not found")

// DefaultListLimit applies when ListScenarios is called without a limit.
const DefaultListLimit = 100

// Store defines the persistence interface for scenario presets.
type Store interface {
	// SaveScenario inserts s, or updates the scenario with the same name.
	// ID and CreatedAt are kept on update; s is filled in from the saved row.
	SaveScenario(ctx context.Context, s *model.Scenario) error
	// ImportScenarios upserts many scenarios by name and returns how many
	// rows were written.
	ImportScenarios(ctx context.Context, scenarios []model.Scenario) (int64, error)
	GetScenario(ctx context.Context, id string) (*model.Scenario, error)
	GetScenarioByName(ctx context.Context, name string) (*model.Scenario, error)
	// ListScenarios returns scenarios ordered by name.
	ListScenarios(ctx context.Context, limit, offset int) ([]model.Scenario, error)
	DeleteScenario(ctx context.Context, id string) error

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}

func listLimit(limit int) int {
	if limit <= 0 {
		return DefaultListLimit
	}
	return limit
}

func validateAll(scenarios []model.Scenario) error {
	seen := make(map[string]bool, len(scenarios))
	for i := range scenarios {
		if err := scenarios[i].Validate(); err != nil {
			return err
		}
		if seen[scenarios[i].Name] {
			return eris.Errorf("store: duplicate scenario name %q in import", scenarios[i].Name)
		}
		seen[scenarios[i].Name] = true
	}
	return nil
}
