package config

import (
	"fmt"

	"github.com/nvandessel/smesim/internal/params"
	"gopkg.in/yaml.v3"
)

// Scenario is a named policy configuration: a description plus partial
// overrides of the default parameters.
type Scenario struct {
	Name        string      `json:"name" yaml:"-"`
	Description string      `json:"description,omitempty" yaml:"description,omitempty"`
	Overrides   params.Tree `json:"overrides,omitempty" yaml:"-"`
}

// Scenarios is the ordered scenario list. Declaration order matters: it
// fixes each scenario's seed offset.
type Scenarios []Scenario

// UnknownScenarioError reports a requested scenario that is not configured.
type UnknownScenarioError struct {
	Name string
}

func (e *UnknownScenarioError) Error() string {
	return fmt.Sprintf("unknown scenario %q", e.Name)
}

func (e *UnknownScenarioError) Unwrap() error { return params.ErrConfiguration }

// UnmarshalYAML decodes the scenarios mapping while keeping declaration order.
func (s *Scenarios) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.MappingNode {
		return fmt.Errorf("line %d: scenarios must be a mapping of name to overrides", node.Line)
	}

	out := make(Scenarios, 0, len(node.Content)/2)
	seen := make(map[string]bool, len(node.Content)/2)
	for i := 0; i+1 < len(node.Content); i += 2 {
		keyNode, valueNode := node.Content[i], node.Content[i+1]
		name := keyNode.Value
		if name == "" {
			return fmt.Errorf("line %d: scenario name must not be empty", keyNode.Line)
		}
		if seen[name] {
			return fmt.Errorf("line %d: duplicate scenario %q", keyNode.Line, name)
		}
		seen[name] = true

		var body params.Tree
		if err := valueNode.Decode(&body); err != nil {
			return fmt.Errorf("scenario %s: %w", name, err)
		}

		sc := Scenario{Name: name, Overrides: params.Tree{}}
		for k, v := range body {
			if k == "description" {
				desc, ok := v.(string)
				if !ok {
					return fmt.Errorf("scenario %s: description must be a string", name)
				}
				sc.Description = desc
				continue
			}
			sc.Overrides[k] = v
		}
		out = append(out, sc)
	}

	*s = out
	return nil
}

// Names returns scenario names in declaration order.
func (s Scenarios) Names() []string {
	names := make([]string, len(s))
	for i, sc := range s {
		names[i] = sc.Name
	}
	return names
}

// Lookup returns the named scenario and its declaration index.
func (s Scenarios) Lookup(name string) (Scenario, int, error) {
	for i, sc := range s {
		if sc.Name == name {
			return sc, i, nil
		}
	}
	return Scenario{}, -1, &UnknownScenarioError{Name: name}
}
