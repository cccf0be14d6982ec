package model

import (
	"strings"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/waterfall-cli/internal/waterfall"
)

// Scenario is a named, saved set of fund terms. Only the inputs are
// persisted; results are recalculated on demand.
type Scenario struct {
	ID          string               `json:"id"`
	Name        string               `json:"name"`
	Description string               `json:"description,omitempty"`
	Parameters  waterfall.Parameters `json:"parameters"`
	CreatedAt   time.Time            `json:"created_at"`
	UpdatedAt   time.Time            `json:"updated_at"`
}

// Validate checks the name and the fund terms.
func (s *Scenario) Validate() error {
	if strings.TrimSpace(s.Name) == "" {
		return eris.Wrap(waterfall.ErrInvalidParameter, "model: scenario name is required")
	}
	if err := s.Parameters.Validate(); err != nil {
		return eris.Wrapf(err, "model: scenario %q", s.Name)
	}
	return nil
}
