// Package manifest models .claude-plugin/plugin.json, the manifest that
// names and versions a plugin bundle.
package manifest

import (
	"encoding/json"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/pkg/errors"

	"github.com/jingkaihe/pluginlint/pkg/schema"
)

// Dir and FileName locate the manifest inside a bundle.
const (
	Dir      = ".claude-plugin"
	FileName = "plugin.json"
)

var semverPattern = regexp.MustCompile(`^\d+\.\d+\.\d+(-[a-zA-Z0-9.]+)?$`)

// Manifest is the decoded plugin.json.
type Manifest struct {
	Name        string   `json:"name" jsonschema:"required,minLength=1,description=Plugin identifier in kebab-case"`
	Version     string   `json:"version" jsonschema:"required,pattern=^[0-9]+\\.[0-9]+\\.[0-9]+(-[a-zA-Z0-9.]+)?$,description=Semantic version"`
	Description string   `json:"description,omitempty"`
	Author      *Author  `json:"author,omitempty"`
	Homepage    string   `json:"homepage,omitempty"`
	Repository  string   `json:"repository,omitempty"`
	License     string   `json:"license,omitempty"`
	Keywords    []string `json:"keywords,omitempty"`
}

// Author identifies the plugin maintainer.
type Author struct {
	Name  string `json:"name,omitempty"`
	Email string `json:"email,omitempty"`
	URL   string `json:"url,omitempty"`
}

// Path returns the manifest location under root.
func Path(root string) string {
	return filepath.Join(root, Dir, FileName)
}

// Document is a manifest as read from disk: the raw bytes, the generic JSON
// value (for key presence checks) and the typed form.
type Document struct {
	Path     string
	Raw      []byte
	Fields   map[string]interface{}
	Manifest Manifest
}

// Load reads and decodes the manifest at path. It fails when the file is
// missing, not JSON, or not a JSON object.
func Load(path string) (*Document, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read %s", path)
	}

	var generic interface{}
	if err := json.Unmarshal(raw, &generic); err != nil {
		return nil, errors.Wrapf(err, "invalid JSON in %s", path)
	}
	fields, ok := generic.(map[string]interface{})
	if !ok {
		return nil, errors.Errorf("%s must contain a JSON object", path)
	}

	doc := &Document{Path: path, Raw: raw, Fields: fields}
	// Typed decoding is best effort: a wrongly typed field is reported by
	// schema validation, not here.
	_ = json.Unmarshal(raw, &doc.Manifest)
	return doc, nil
}

// Has reports whether key is present in the manifest object.
func (d *Document) Has(key string) bool {
	_, ok := d.Fields[key]
	return ok
}

// Validator returns a schema validator for plugin.json.
func Validator() (*schema.Validator, error) {
	return schema.For(&Manifest{})
}

// IsKebabCase reports whether name is lowercase and free of spaces and
// underscores.
func IsKebabCase(name string) bool {
	return name == strings.ToLower(name) &&
		!strings.Contains(name, " ") &&
		!strings.Contains(name, "_")
}

// IsSemver reports whether version is MAJOR.MINOR.PATCH with an optional
// pre-release suffix.
func IsSemver(version string) bool {
	return semverPattern.MatchString(version)
}
