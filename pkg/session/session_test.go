package session

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPhase(t *testing.T) {
	s := NewStore(t.TempDir())

	phase, err := s.Phase()
	require.NoError(t, err)
	assert.Equal(t, "", phase, "absent file means no phase")

	require.NoError(t, s.SetPhase(PhaseImplementing))
	phase, err = s.Phase()
	require.NoError(t, err)
	assert.Equal(t, PhaseImplementing, phase)

	require.NoError(t, s.SetPhase(""))
	_, err = os.Stat(filepath.Join(s.Dir(), PhaseFile))
	assert.True(t, os.IsNotExist(err))
}

func TestPhase_Trimmed(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, PhaseFile), []byte("  verifying \n\n"), 0o644))

	phase, err := NewStore(dir).Phase()
	require.NoError(t, err)
	assert.Equal(t, PhaseVerifying, phase)
}

func TestSetPhase_CreatesDir(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "session")
	require.NoError(t, NewStore(dir).SetPhase(PhasePlanning))

	data, err := os.ReadFile(filepath.Join(dir, PhaseFile))
	require.NoError(t, err)
	assert.Equal(t, "planning\n", string(data))
}

func TestSkip(t *testing.T) {
	s := NewStore(t.TempDir())
	assert.False(t, s.Skipped())

	require.NoError(t, s.SetSkip(true))
	assert.True(t, s.Skipped())
	require.NoError(t, s.SetSkip(true))

	require.NoError(t, s.SetSkip(false))
	assert.False(t, s.Skipped())
	require.NoError(t, s.SetSkip(false))
}

func TestTrack_AppendsOnly(t *testing.T) {
	dir := t.TempDir()
	s := NewStore(dir)
	fixed := time.Date(2026, 3, 1, 12, 30, 45, 999, time.FixedZone("x", 3600))
	s.now = func() time.Time { return fixed }

	rec, err := s.Track(3, "tests/test_example.py")
	require.NoError(t, err)
	assert.Equal(t, "task-3\ttests/test_example.py\t2026-03-01T11:30:45Z", rec.String())

	before, err := os.ReadFile(filepath.Join(dir, TodosFile))
	require.NoError(t, err)

	_, err = s.Track(4, "b.go")
	require.NoError(t, err)
	after, err := os.ReadFile(filepath.Join(dir, TodosFile))
	require.NoError(t, err)
	assert.Equal(t, string(before), string(after[:len(before)]), "existing lines are preserved")

	records, err := s.Records()
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, 3, records[0].Task)
	assert.Equal(t, "task-4", records[1].Marker())
	assert.Equal(t, "b.go", records[1].Path)
	assert.True(t, records[1].Time.Equal(fixed.Truncate(time.Second)))
}

func TestTrack_RepairsMissingNewline(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, TodosFile), []byte("task-1\ta.py\t2026-01-01T00:00:00Z"), 0o644))

	_, err := NewStore(dir).Track(2, "b.py")
	require.NoError(t, err)

	records, err := NewStore(dir).Records()
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "a.py", records[0].Path)
	assert.Equal(t, "b.py", records[1].Path)
}

func TestRecords_SkipsMalformed(t *testing.T) {
	dir := t.TempDir()
	content := "task-1\ta.py\t2026-01-01T00:00:00Z\n" +
		"garbage\n" +
		"\n" +
		"task-x\tb.py\t2026-01-01T00:00:00Z\n" +
		"task-2\tc.py\tyesterday\n" +
		"task-7\td.py\t2026-01-02T00:00:00Z\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, TodosFile), []byte(content), 0o644))

	records, err := NewStore(dir).Records()
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, 1, records[0].Task)
	assert.Equal(t, 7, records[1].Task)
}

func TestRecords_Missing(t *testing.T) {
	records, err := NewStore(t.TempDir()).Records()
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestParseRecord(t *testing.T) {
	rec, err := ParseRecord("task-12\tsrc/app.go\t2026-05-06T07:08:09Z")
	require.NoError(t, err)
	assert.Equal(t, 12, rec.Task)
	assert.Equal(t, "src/app.go", rec.Path)

	for _, bad := range []string{"", "task-1\tx", "task-0\tx\t2026-05-06T07:08:09Z", "12\tx\t2026-05-06T07:08:09Z"} {
		_, err := ParseRecord(bad)
		assert.Error(t, err, bad)
	}
}

func TestIsKnownPhase(t *testing.T) {
	for _, p := range Phases {
		assert.True(t, IsKnownPhase(p), p)
	}
	assert.False(t, IsKnownPhase("shipping"))
	assert.False(t, IsKnownPhase(""))
}
