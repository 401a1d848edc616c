// Package session manages the per-session state files a workflow keeps in its
// session directory: the current phase, the skip flag and the append-only log
// of backlog markers injected into source files.
package session

import (
	"bufio"
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/rogpeppe/go-internal/lockedfile"

	"github.com/jingkaihe/pluginlint/pkg/logger"
)

// State file names inside a session directory.
const (
	PhaseFile = ".workflow_phase"
	SkipFile  = ".workflow_skip"
	TodosFile = ".backlog_todos"
)

// Workflow phases.
const (
	PhaseBrainstorming = "brainstorming"
	PhasePlanning      = "planning"
	PhaseImplementing  = "implementing"
	PhaseVerifying     = "verifying"
)

// Phases lists the workflow phases in order.
var Phases = []string{PhaseBrainstorming, PhasePlanning, PhaseImplementing, PhaseVerifying}

// IsKnownPhase reports whether phase is one of Phases.
func IsKnownPhase(phase string) bool {
	for _, p := range Phases {
		if p == phase {
			return true
		}
	}
	return false
}

// Record is one line of the tracking file: a marker injected for a task.
type Record struct {
	Task int
	Path string
	Time time.Time
}

// Marker returns the task label, e.g. task-3.
func (r Record) Marker() string {
	return fmt.Sprintf("task-%d", r.Task)
}

// String formats the record as it is stored.
func (r Record) String() string {
	return fmt.Sprintf("%s\t%s\t%s", r.Marker(), r.Path, r.Time.UTC().Format(time.RFC3339))
}

// ParseRecord parses one tracking line.
func ParseRecord(line string) (Record, error) {
	fields := strings.Split(line, "\t")
	if len(fields) != 3 {
		return Record{}, errors.Errorf("malformed tracking record %q", line)
	}
	n, err := strconv.Atoi(strings.TrimPrefix(fields[0], "task-"))
	if err != nil || !strings.HasPrefix(fields[0], "task-") || n <= 0 {
		return Record{}, errors.Errorf("malformed task label %q", fields[0])
	}
	ts, err := time.Parse(time.RFC3339, fields[2])
	if err != nil {
		return Record{}, errors.Wrapf(err, "malformed timestamp in %q", line)
	}
	return Record{Task: n, Path: fields[1], Time: ts}, nil
}

// Store reads and writes the state files of one session directory.
type Store struct {
	dir string
	mu  sync.RWMutex
	now func() time.Time
}

// NewStore returns a Store rooted at dir. The directory is not created until
// something is written.
func NewStore(dir string) *Store {
	return &Store{dir: dir, now: time.Now}
}

// Dir returns the session directory.
func (s *Store) Dir() string {
	return s.dir
}

func (s *Store) path(name string) string {
	return filepath.Join(s.dir, name)
}

// Phase returns the trimmed phase, or "" when no phase file exists.
func (s *Store) Phase() (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	data, err := lockedfile.Read(s.path(PhaseFile))
	if os.IsNotExist(err) {
		return "", nil
	}
	if err != nil {
		return "", errors.Wrap(err, "failed to read phase file")
	}
	return strings.TrimSpace(string(data)), nil
}

// SetPhase overwrites the phase file. An empty phase removes it.
func (s *Store) SetPhase(phase string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	phase = strings.TrimSpace(phase)
	if phase == "" {
		return removeIfExists(s.path(PhaseFile))
	}
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return errors.Wrap(err, "failed to create session directory")
	}
	if err := lockedfile.Write(s.path(PhaseFile), strings.NewReader(phase+"\n"), 0o644); err != nil {
		return errors.Wrap(err, "failed to write phase file")
	}
	return nil
}

// Skipped reports whether the skip flag is present.
func (s *Store) Skipped() bool {
	_, err := os.Stat(s.path(SkipFile))
	return err == nil
}

// SetSkip creates or removes the skip flag.
func (s *Store) SetSkip(on bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !on {
		return removeIfExists(s.path(SkipFile))
	}
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return errors.Wrap(err, "failed to create session directory")
	}
	if err := lockedfile.Write(s.path(SkipFile), bytes.NewReader(nil), 0o644); err != nil {
		return errors.Wrap(err, "failed to create skip flag")
	}
	return nil
}

// Track appends a record for task and path, stamped with the current time.
// Existing lines are never rewritten.
func (s *Store) Track(task int, path string) (Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec := Record{Task: task, Path: path, Time: s.now().UTC().Truncate(time.Second)}
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return rec, errors.Wrap(err, "failed to create session directory")
	}

	err := lockedfile.Transform(s.path(TodosFile), func(data []byte) ([]byte, error) {
		out := make([]byte, 0, len(data)+len(rec.String())+2)
		out = append(out, data...)
		if len(out) > 0 && out[len(out)-1] != '\n' {
			out = append(out, '\n')
		}
		out = append(out, rec.String()...)
		return append(out, '\n'), nil
	})
	if err != nil {
		return rec, errors.Wrap(err, "failed to append tracking record")
	}
	return rec, nil
}

// Records returns the tracking records in file order. Malformed lines are
// skipped with a warning.
func (s *Store) Records() ([]Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	data, err := lockedfile.Read(s.path(TodosFile))
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to read tracking file")
	}

	var records []Record
	scanner := bufio.NewScanner(bytes.NewReader(data))
	for scanner.Scan() {
		line := strings.TrimRight(scanner.Text(), "\r")
		if strings.TrimSpace(line) == "" {
			continue
		}
		rec, err := ParseRecord(line)
		if err != nil {
			logger.G(nil).WithError(err).Warn("skipping tracking record")
			continue
		}
		records = append(records, rec)
	}
	if err := scanner.Err(); err != nil {
		return nil, errors.Wrap(err, "failed to scan tracking file")
	}
	return records, nil
}

func removeIfExists(path string) error {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return errors.Wrapf(err, "failed to remove %s", filepath.Base(path))
	}
	return nil
}
