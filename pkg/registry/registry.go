// pkg/registry/registry.go
package registry

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/xeipuuv/gojsonschema"
)

func LoadRegistry(path string) (*EventRegistry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return ParseRegistry(data)
}

// ParseRegistry decodes a registry document and compiles its schemas.
func ParseRegistry(data []byte) (*EventRegistry, error) {
	var reg EventRegistry
	if err := json.Unmarshal(data, &reg); err != nil {
		return nil, err
	}
	if err := reg.compile(); err != nil {
		return nil, err
	}
	return &reg, nil
}

func (r *EventRegistry) compile() error {
	r.compiled = make(map[string]*gojsonschema.Schema, len(r.Events))
	for _, event := range r.Events {
		if event.Kind == "" {
			return fmt.Errorf("registry event with empty kind")
		}
		if event.PayloadSchema == nil {
			continue
		}
		schema, err := gojsonschema.NewSchema(gojsonschema.NewGoLoader(event.PayloadSchema))
		if err != nil {
			return fmt.Errorf("compile schema for kind %q: %w", event.Kind, err)
		}
		r.compiled[event.Kind] = schema
	}
	return nil
}

// Known reports whether the kind has a registered contract.
func (r *EventRegistry) Known(kind string) bool {
	for _, event := range r.Events {
		if event.Kind == kind {
			return true
		}
	}
	return false
}

// Validate checks a frame payload against the contract for its kind. Kinds
// without a schema pass; unknown kinds fail.
func (r *EventRegistry) Validate(kind string, payload []byte) error {
	if !r.Known(kind) {
		return fmt.Errorf("unknown event kind %q", kind)
	}
	schema, ok := r.compiled[kind]
	if !ok {
		return nil
	}

	result, err := schema.Validate(gojsonschema.NewBytesLoader(payload))
	if err != nil {
		return fmt.Errorf("validate payload for kind %q: %w", kind, err)
	}
	if !result.Valid() {
		msgs := make([]string, 0, len(result.Errors()))
		for _, resultErr := range result.Errors() {
			msgs = append(msgs, resultErr.String())
		}
		return fmt.Errorf("payload for kind %q failed validation: %v", kind, msgs)
	}
	return nil
}
