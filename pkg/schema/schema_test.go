package schema

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sample struct {
	Name    string            `json:"name" jsonschema:"required,pattern=^[a-z]+$"`
	Count   int               `json:"count,omitempty"`
	Tags    []string          `json:"tags,omitempty"`
	Entries map[string][]item `json:"entries,omitempty"`
}

type item struct {
	Command string `json:"command" jsonschema:"required"`
}

func TestGenerate(t *testing.T) {
	raw, err := Generate(&sample{})
	require.NoError(t, err)

	var doc map[string]interface{}
	require.NoError(t, json.Unmarshal(raw, &doc))
	assert.Equal(t, "object", doc["type"])
	assert.Equal(t, []interface{}{"name"}, doc["required"])

	props, ok := doc["properties"].(map[string]interface{})
	require.True(t, ok)
	assert.Contains(t, props, "name")
	assert.Contains(t, props, "entries")
}

func TestValidator(t *testing.T) {
	v, err := For(&sample{})
	require.NoError(t, err)

	tests := []struct {
		name    string
		doc     string
		wantErr bool
	}{
		{"minimal", `{"name": "abc"}`, false},
		{"extra keys allowed", `{"name": "abc", "author": {"name": "x"}}`, false},
		{"nested entries", `{"name": "abc", "entries": {"SessionStart": [{"command": "run"}]}}`, false},
		{"missing name", `{"count": 1}`, true},
		{"pattern mismatch", `{"name": "ABC"}`, true},
		{"wrong type", `{"name": "abc", "count": "one"}`, true},
		{"nested missing required", `{"name": "abc", "entries": {"Stop": [{}]}}`, true},
		{"not an object", `[1, 2]`, true},
		{"invalid json", `{"name":`, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := v.Validate([]byte(tt.doc))
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestCompile_Invalid(t *testing.T) {
	_, err := Compile([]byte(`not json`))
	assert.Error(t, err)
}
