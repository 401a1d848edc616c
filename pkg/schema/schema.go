// Package schema derives JSON schemas from the Go models of plugin.json and
// hooks.json and validates raw JSON documents against them. Generation uses
// invopop/jsonschema; validation uses google/jsonschema-go.
package schema

import (
	"encoding/json"

	"github.com/google/jsonschema-go/jsonschema"
	invopop "github.com/invopop/jsonschema"
	"github.com/pkg/errors"
)

func reflector() *invopop.Reflector {
	return &invopop.Reflector{
		Anonymous:                  true,
		DoNotReference:             true,
		AllowAdditionalProperties:  true,
		RequiredFromJSONSchemaTags: true,
	}
}

// Generate returns the indented JSON schema for the type of v.
func Generate(v interface{}) ([]byte, error) {
	s := reflector().Reflect(v)
	out, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return nil, errors.Wrap(err, "failed to marshal schema")
	}
	return out, nil
}

// Validator checks JSON documents against a resolved schema.
type Validator struct {
	resolved *jsonschema.Resolved
}

// For builds a Validator from the schema generated for v's type.
func For(v interface{}) (*Validator, error) {
	raw, err := Generate(v)
	if err != nil {
		return nil, err
	}
	return Compile(raw)
}

// Compile resolves a JSON schema document. The $schema keyword is dropped so
// that the dialect URL emitted by the generator never gates resolution.
func Compile(raw []byte) (*Validator, error) {
	var generic map[string]interface{}
	if err := json.Unmarshal(raw, &generic); err != nil {
		return nil, errors.Wrap(err, "schema is not a JSON object")
	}
	delete(generic, "$schema")
	delete(generic, "$id")

	cleaned, err := json.Marshal(generic)
	if err != nil {
		return nil, errors.Wrap(err, "failed to re-encode schema")
	}

	var s jsonschema.Schema
	if err := json.Unmarshal(cleaned, &s); err != nil {
		return nil, errors.Wrap(err, "failed to decode schema")
	}
	resolved, err := s.Resolve(nil)
	if err != nil {
		return nil, errors.Wrap(err, "failed to resolve schema")
	}
	return &Validator{resolved: resolved}, nil
}

// Validate decodes data and validates it.
func (v *Validator) Validate(data []byte) error {
	var instance interface{}
	if err := json.Unmarshal(data, &instance); err != nil {
		return errors.Wrap(err, "invalid JSON")
	}
	return v.ValidateValue(instance)
}

// ValidateValue validates an already decoded JSON value.
func (v *Validator) ValidateValue(instance interface{}) error {
	if err := v.resolved.Validate(instance); err != nil {
		return errors.Wrap(err, "schema validation failed")
	}
	return nil
}
