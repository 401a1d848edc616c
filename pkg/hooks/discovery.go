package hooks

import (
	"io/fs"
	"os"
	"path/filepath"
	"sort"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/pkg/errors"
)

// scriptPattern matches the script files directly under the hooks directory.
const scriptPattern = "*.{sh,cmd}"

// Script is a hook script found on disk.
type Script struct {
	Name string      // base name, e.g. session-start.sh
	Path string      // full path
	Mode fs.FileMode // permission bits
}

// Executable reports whether any execute bit is set.
func (s Script) Executable() bool {
	return IsExecutable(s.Mode)
}

// IsExecutable reports whether mode carries any of the user, group or other
// execute bits.
func IsExecutable(mode fs.FileMode) bool {
	return mode&0o111 != 0
}

// DiscoverScripts lists the *.sh and *.cmd files directly inside dir, sorted
// by name. A missing directory yields no scripts and no error.
func DiscoverScripts(dir string) ([]Script, error) {
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		return nil, nil
	}

	matches, err := doublestar.Glob(os.DirFS(dir), scriptPattern)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to list hook scripts in %s", dir)
	}
	sort.Strings(matches)

	scripts := make([]Script, 0, len(matches))
	for _, name := range matches {
		full := filepath.Join(dir, name)
		info, err := os.Stat(full)
		if err != nil {
			return nil, errors.Wrapf(err, "failed to stat %s", full)
		}
		if info.IsDir() {
			continue
		}
		scripts = append(scripts, Script{Name: name, Path: full, Mode: info.Mode().Perm()})
	}
	return scripts, nil
}

// StatScript returns the Script at path, or an error when it does not exist
// or is a directory.
func StatScript(path string) (Script, error) {
	info, err := os.Stat(path)
	if err != nil {
		return Script{}, errors.Wrapf(err, "hook script %s", path)
	}
	if info.IsDir() {
		return Script{}, errors.Errorf("hook script %s is a directory", path)
	}
	return Script{Name: filepath.Base(path), Path: path, Mode: info.Mode().Perm()}, nil
}
