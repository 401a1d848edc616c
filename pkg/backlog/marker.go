// Package backlog implements the TODO:BACKLOG marker lifecycle: parsing an
// implementer dispatch, injecting a task marker into the referenced test file
// and sweeping a working tree for markers that were never resolved.
package backlog

import (
	"bytes"
	"fmt"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
)

// Tag is the literal every marker starts with.
const Tag = "TODO:BACKLOG"

var (
	markerPattern   = regexp.MustCompile(`TODO:BACKLOG\[task-(\d+)\]`)
	encodingPattern = regexp.MustCompile(`^[ \t\f]*#.*?coding[:=][ \t]*[-_.a-zA-Z0-9]+`)
)

// Marker returns the marker for task, e.g. TODO:BACKLOG[task-3].
func Marker(task int) string {
	return fmt.Sprintf("%s[task-%d]", Tag, task)
}

var commentPrefixes = map[string]string{}

func init() {
	for prefix, exts := range map[string][]string{
		"#": {"py", "sh", "bash", "rb", "pl", "r", "yaml", "yml", "toml", "ex", "exs", "nim", "cmake"},
		"//": {"go", "js", "jsx", "ts", "tsx", "mjs", "cjs", "java", "kt", "kts", "scala", "c", "h",
			"cc", "cpp", "hpp", "cs", "rs", "swift", "dart", "php", "groovy"},
		"--": {"sql", "lua", "hs", "elm"},
	} {
		for _, ext := range exts {
			commentPrefixes["."+ext] = prefix
		}
	}
}

// CommentPrefix returns the line-comment prefix for path's extension. Unknown
// extensions get "#".
func CommentPrefix(path string) string {
	if prefix, ok := commentPrefixes[strings.ToLower(filepath.Ext(path))]; ok {
		return prefix
	}
	return "#"
}

// MarkerLine is the comment line inserted for task into path.
func MarkerLine(path string, task int) string {
	return fmt.Sprintf("%s %s: See backlog for requirements", CommentPrefix(path), Marker(task))
}

// HasMarker reports whether content already carries the marker for task.
func HasMarker(content []byte, task int) bool {
	return bytes.Contains(content, []byte(Marker(task)))
}

// FindMarkers returns the task numbers of every marker on line.
func FindMarkers(line []byte) []int {
	var tasks []int
	for _, m := range markerPattern.FindAllSubmatch(line, -1) {
		n, err := strconv.Atoi(string(m[1]))
		if err != nil || n <= 0 {
			continue
		}
		tasks = append(tasks, n)
	}
	return tasks
}

// Insert places line at the top of content, after a leading shebang and a
// source encoding declaration when present.
func Insert(content []byte, line string) []byte {
	offset := 0
	if bytes.HasPrefix(content, []byte("#!")) {
		offset = lineEnd(content, 0)
	}
	if next := content[offset:]; len(next) > 0 && encodingPattern.Match(firstLine(next)) {
		offset = lineEnd(content, offset)
	}

	out := make([]byte, 0, len(content)+len(line)+2)
	out = append(out, content[:offset]...)
	if offset > 0 && content[offset-1] != '\n' {
		out = append(out, '\n')
	}
	out = append(out, line...)
	out = append(out, '\n')
	return append(out, content[offset:]...)
}

// lineEnd returns the index just past the newline ending the line that
// starts at from, or len(content) for a final unterminated line.
func lineEnd(content []byte, from int) int {
	if i := bytes.IndexByte(content[from:], '\n'); i >= 0 {
		return from + i + 1
	}
	return len(content)
}

func firstLine(b []byte) []byte {
	if i := bytes.IndexByte(b, '\n'); i >= 0 {
		return b[:i]
	}
	return b
}
