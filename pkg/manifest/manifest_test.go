package manifest

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeManifest(t *testing.T, content string) string {
	t.Helper()
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, Dir), 0o755))
	path := Path(root)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoad(t *testing.T) {
	path := writeManifest(t, `{
  "name": "workflow-ecosystem",
  "version": "1.2.0",
  "description": "Workflow skills",
  "author": {"name": "Jane"},
  "keywords": ["workflow", "tdd"]
}`)

	doc, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "workflow-ecosystem", doc.Manifest.Name)
	assert.Equal(t, "1.2.0", doc.Manifest.Version)
	require.NotNil(t, doc.Manifest.Author)
	assert.Equal(t, "Jane", doc.Manifest.Author.Name)
	assert.True(t, doc.Has("name"))
	assert.False(t, doc.Has("homepage"))
}

func TestLoad_Errors(t *testing.T) {
	t.Run("missing file", func(t *testing.T) {
		_, err := Load(filepath.Join(t.TempDir(), "plugin.json"))
		assert.Error(t, err)
	})

	t.Run("invalid json", func(t *testing.T) {
		_, err := Load(writeManifest(t, `{"name": `))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "invalid JSON")
	})

	t.Run("array", func(t *testing.T) {
		_, err := Load(writeManifest(t, `["workflow-ecosystem"]`))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "JSON object")
	})
}

func TestLoad_WrongTypesStillLoad(t *testing.T) {
	doc, err := Load(writeManifest(t, `{"name": 12, "version": "1.0.0"}`))
	require.NoError(t, err)
	assert.True(t, doc.Has("name"))
}

func TestValidator(t *testing.T) {
	v, err := Validator()
	require.NoError(t, err)

	assert.NoError(t, v.Validate([]byte(`{"name": "workflow-ecosystem", "version": "0.1.0"}`)))
	assert.NoError(t, v.Validate([]byte(`{"name": "x", "version": "1.0.0-beta.1", "license": "MIT"}`)))
	assert.Error(t, v.Validate([]byte(`{"name": "x"}`)))
	assert.Error(t, v.Validate([]byte(`{"version": "1.0.0"}`)))
	assert.Error(t, v.Validate([]byte(`{"name": "x", "version": "v1"}`)))
	assert.Error(t, v.Validate([]byte(`{"name": "", "version": "1.0.0"}`)))
	assert.Error(t, v.Validate([]byte(`{"name": "x", "version": "1.0.0", "keywords": "tdd"}`)))
}

func TestIsKebabCase(t *testing.T) {
	assert.True(t, IsKebabCase("workflow-ecosystem"))
	assert.True(t, IsKebabCase("plugin2"))
	assert.False(t, IsKebabCase("Workflow-Ecosystem"))
	assert.False(t, IsKebabCase("workflow ecosystem"))
	assert.False(t, IsKebabCase("workflow_ecosystem"))
}

func TestIsSemver(t *testing.T) {
	for _, v := range []string{"0.0.1", "1.2.3", "10.20.30", "1.0.0-rc.1", "2.0.0-alpha"} {
		assert.True(t, IsSemver(v), v)
	}
	for _, v := range []string{"", "1.2", "v1.2.3", "1.2.3+build", "1.2.3-", "1.2.3-beta_1"} {
		assert.False(t, IsSemver(v), v)
	}
}
