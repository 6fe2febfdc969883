// Package registry holds the operation catalog advertised to clients.
package registry

import (
	"encoding/json"
	"fmt"
	"sort"

	"github.com/saturnines/newrelic-mcp/pkg/errors"
)

// Descriptor describes one operation: its name, a human description and a
// JSON Schema for its arguments.
type Descriptor struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	InputSchema map[string]any `json:"inputSchema"`
}

// RawSchema returns the input schema as JSON
func (d Descriptor) RawSchema() (json.RawMessage, error) {
	data, err := json.Marshal(d.InputSchema)
	if err != nil {
		return nil, errors.WrapError(err, errors.ErrConfiguration, fmt.Sprintf("encoding schema for %q", d.Name))
	}
	return data, nil
}

// Registry is an immutable, ordered set of descriptors keyed by name.
// It is safe for concurrent reads.
type Registry struct {
	ordered []Descriptor
	byName  map[string]Descriptor
}

// New builds a Registry from descriptor groups in order. Every descriptor
// gains the optional account_id property. Duplicate names are an error.
func New(groups ...[]Descriptor) (*Registry, error) {
	r := &Registry{byName: map[string]Descriptor{}}
	for _, group := range groups {
		for _, d := range group {
			if d.Name == "" {
				return nil, errors.WrapError(
					fmt.Errorf("descriptor has no name"),
					errors.ErrConfiguration,
					"register operation",
				)
			}
			if _, exists := r.byName[d.Name]; exists {
				return nil, errors.WrapError(
					fmt.Errorf("operation %q already registered", d.Name),
					errors.ErrConfiguration,
					"register operation",
				)
			}
			d.InputSchema = withAccountID(d.InputSchema)
			r.byName[d.Name] = d
			r.ordered = append(r.ordered, d)
		}
	}
	return r, nil
}

// Default returns the full catalog
func Default() *Registry {
	r, err := New(Monitoring(), Dashboards(), Alerts())
	if err != nil {
		panic(err)
	}
	return r
}

// Get looks up a descriptor by name
func (r *Registry) Get(name string) (Descriptor, bool) {
	d, ok := r.byName[name]
	return d, ok
}

// List returns descriptors in registration order
func (r *Registry) List() []Descriptor {
	out := make([]Descriptor, len(r.ordered))
	copy(out, r.ordered)
	return out
}

// Names returns a sorted list of operation names
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.byName))
	for name := range r.byName {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Len returns the number of operations
func (r *Registry) Len() int {
	return len(r.ordered)
}

func withAccountID(schema map[string]any) map[string]any {
	out := make(map[string]any, len(schema)+1)
	for k, v := range schema {
		out[k] = v
	}
	if out["type"] == nil {
		out["type"] = "object"
	}

	props, _ := out["properties"].(map[string]any)
	merged := make(map[string]any, len(props)+1)
	for k, v := range props {
		merged[k] = v
	}
	if _, ok := merged["account_id"]; !ok {
		merged["account_id"] = str("New Relic account ID (optional, uses default if not provided)")
	}
	out["properties"] = merged
	return out
}
