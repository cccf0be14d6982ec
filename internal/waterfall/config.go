package waterfall

import (
	"os"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"
)

// Scenario is a named parameter set loaded from a scenario file.
type Scenario struct {
	Name        string     `json:"name" yaml:"name"`
	Description string     `json:"description,omitempty" yaml:"description,omitempty"`
	Parameters  Parameters `json:"parameters" yaml:"parameters"`
}

// LoadScenarioFile reads scenarios from a YAML file.
func LoadScenarioFile(path string) ([]Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "waterfall: read scenario file %s", path)
	}
	return ParseScenarios(data)
}

// ParseScenarios decodes a scenario document:
//
//	defaults:
//	  contributed_capital: 100000000
//	  carry_rate: 0.2
//	scenarios:
//	  - name: base
//	  - name: downside
//	    gross_proceeds: 80000000
//
// Each scenario starts from DefaultParameters overlaid with the defaults
// block, then applies only the keys it sets. Scenarios are not validated
// here; Calculate does that.
func ParseScenarios(data []byte) ([]Scenario, error) {
	var doc struct {
		Defaults  yaml.Node   `yaml:"defaults"`
		Scenarios []yaml.Node `yaml:"scenarios"`
	}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, eris.Wrap(err, "waterfall: parse scenario file")
	}

	defaults := DefaultParameters()
	if !doc.Defaults.IsZero() {
		if err := doc.Defaults.Decode(&defaults); err != nil {
			return nil, eris.Wrap(err, "waterfall: decode defaults")
		}
	}

	if len(doc.Scenarios) == 0 {
		return []Scenario{{Name: "default", Parameters: defaults}}, nil
	}

	seen := make(map[string]bool, len(doc.Scenarios))
	out := make([]Scenario, 0, len(doc.Scenarios))
	for i := range doc.Scenarios {
		node := &doc.Scenarios[i]

		var meta struct {
			Name        string `yaml:"name"`
			Description string `yaml:"description"`
		}
		if err := node.Decode(&meta); err != nil {
			return nil, eris.Wrapf(err, "waterfall: decode scenario %d", i)
		}
		if meta.Name == "" {
			return nil, eris.Errorf("waterfall: scenario %d has no name", i)
		}
		if seen[meta.Name] {
			return nil, eris.Errorf("waterfall: duplicate scenario name %q", meta.Name)
		}
		seen[meta.Name] = true

		p := defaults
		if err := node.Decode(&p); err != nil {
			return nil, eris.Wrapf(err, "waterfall: decode scenario %q", meta.Name)
		}
		out = append(out, Scenario{Name: meta.Name, Description: meta.Description, Parameters: p})
	}
	return out, nil
}

// FindScenario returns the scenario with the given name.
func FindScenario(scenarios []Scenario, name string) (Scenario, error) {
	for _, s := range scenarios {
		if s.Name == name {
			return s, nil
		}
	}
	return Scenario{}, eris.Errorf("waterfall: scenario %q not found", name)
}
