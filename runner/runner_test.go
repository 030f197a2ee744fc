package runner

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mirage-db/mirage/schema"
	"github.com/mirage-db/mirage/validator"
)

type fakeExec struct {
	executed []string
	failAt   int // 1-based statement index to fail at, 0 = never
}

func (f *fakeExec) Execute(ctx context.Context, stmt string) error {
	if f.failAt > 0 && len(f.executed)+1 == f.failAt {
		return fmt.Errorf("table already exists")
	}
	f.executed = append(f.executed, stmt)
	return nil
}

type fakeIntro struct {
	snapshot *schema.SchemaSnapshot
}

func (f *fakeIntro) Describe(ctx context.Context) (*schema.SchemaSnapshot, error) {
	if f.snapshot == nil {
		return schema.NewSchemaSnapshot(), nil
	}
	return f.snapshot, nil
}

func usersSnapshot() *schema.SchemaSnapshot {
	s := schema.NewSchemaSnapshot()

	users := schema.NewTableSnapshot("users", "DEFINE TABLE users SCHEMAFULL")
	users.AddColumn("id", "DEFINE FIELD id ON TABLE users TYPE string")
	users.AddColumn("name", "DEFINE FIELD name ON TABLE users TYPE string")
	users.AddColumn("email", "DEFINE FIELD email ON TABLE users TYPE string")
	users.AddIndex("idx_email", "DEFINE INDEX idx_email ON TABLE users COLUMNS email")
	s.AddTable(users)

	return s
}

func TestSnapshotRecordsEntryAndIsIdempotent(t *testing.T) {
	r := New(t.TempDir(), nil, nil)

	result, err := r.Snapshot("init", usersSnapshot())
	require.NoError(t, err)
	assert.Equal(t, StatePendingDiff, result.State)
	assert.NotEmpty(t, result.Entry)
	assert.Equal(t, 5, result.Statements)

	// Same schema again, nothing new to record.
	again, err := r.Snapshot("init", usersSnapshot())
	require.NoError(t, err)
	assert.Equal(t, StateClean, again.State)
	assert.Empty(t, again.Entry)

	entries, err := r.History().Entries()
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestSnapshotRejectsNilSchema(t *testing.T) {
	r := New(t.TempDir(), nil, nil)

	_, err := r.Snapshot("init", nil)
	require.Error(t, err)
}

func TestApplyExecutesStatementsAndAdvancesHead(t *testing.T) {
	exec := &fakeExec{}
	r := New(t.TempDir(), exec, &fakeIntro{})

	result, err := r.Snapshot("init", usersSnapshot())
	require.NoError(t, err)

	report, err := r.Apply(context.Background(), result.Entry, false)
	require.NoError(t, err)
	assert.Equal(t, StateApplied, report.State)
	assert.Equal(t, 5, report.Executed)

	require.Len(t, exec.executed, 5)
	assert.Equal(t, "DEFINE TABLE users SCHEMAFULL;", exec.executed[0])

	head, err := r.History().Head()
	require.NoError(t, err)
	assert.Equal(t, result.Entry, head)

	pending, err := r.History().Pending()
	require.NoError(t, err)
	assert.Empty(t, pending)
}

func TestApplyStopsAtFirstFailureAndKeepsHead(t *testing.T) {
	exec := &fakeExec{failAt: 3}
	r := New(t.TempDir(), exec, &fakeIntro{})

	result, err := r.Snapshot("init", usersSnapshot())
	require.NoError(t, err)

	report, err := r.Apply(context.Background(), result.Entry, false)
	require.Error(t, err)
	assert.Equal(t, StateFailed, report.State)
	assert.Equal(t, 2, report.Executed)
	assert.Equal(t, 5, report.Total)

	var exerr *ExecutionError
	require.ErrorAs(t, err, &exerr)
	assert.Equal(t, 3, exerr.Index)
	assert.NotEmpty(t, exerr.Statement)

	// Executed statements stay in place, nothing is auto-reversed.
	assert.Len(t, exec.executed, 2)

	head, err := r.History().Head()
	require.NoError(t, err)
	assert.Empty(t, head)
}

func TestApplyDetectsDrift(t *testing.T) {
	// The live database already has a table the base snapshot does not.
	live := schema.NewSchemaSnapshot()
	live.AddTable(schema.NewTableSnapshot("legacy", "DEFINE TABLE legacy SCHEMALESS"))

	exec := &fakeExec{}
	r := New(t.TempDir(), exec, &fakeIntro{snapshot: live})

	result, err := r.Snapshot("init", usersSnapshot())
	require.NoError(t, err)

	report, err := r.Apply(context.Background(), result.Entry, false)
	require.Error(t, err)
	assert.Equal(t, StateDriftDetected, report.State)
	assert.Empty(t, exec.executed)

	var drift *DriftError
	require.ErrorAs(t, err, &drift)
	assert.Contains(t, drift.Report.Extra, "table legacy")

	// Force pushes through and records the drift in the report.
	report, err = r.Apply(context.Background(), result.Entry, true)
	require.NoError(t, err)
	assert.Equal(t, StateApplied, report.State)
	assert.NotNil(t, report.Drift)
}

func TestApplyRefusesAlreadyAppliedMigration(t *testing.T) {
	exec := &fakeExec{}
	r := New(t.TempDir(), exec, &fakeIntro{})

	result, err := r.Snapshot("init", usersSnapshot())
	require.NoError(t, err)

	_, err = r.Apply(context.Background(), result.Entry, false)
	require.NoError(t, err)

	_, err = r.Apply(context.Background(), result.Entry, false)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already applied")
}

func TestApplyRespectsCancellation(t *testing.T) {
	exec := &fakeExec{}
	r := New(t.TempDir(), exec, &fakeIntro{})

	result, err := r.Snapshot("init", usersSnapshot())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	report, err := r.Apply(ctx, result.Entry, false)
	require.Error(t, err)
	assert.Equal(t, StateFailed, report.State)
	assert.Empty(t, exec.executed)

	head, err := r.History().Head()
	require.NoError(t, err)
	assert.Empty(t, head)
}

func TestRollbackUndoesHeadMigration(t *testing.T) {
	exec := &fakeExec{}
	intro := &fakeIntro{}
	r := New(t.TempDir(), exec, intro)

	result, err := r.Snapshot("init", usersSnapshot())
	require.NoError(t, err)
	_, err = r.Apply(context.Background(), result.Entry, false)
	require.NoError(t, err)

	// The live database now looks like the applied snapshot.
	intro.snapshot = usersSnapshot()
	exec.executed = nil

	report, err := r.Rollback(context.Background(), result.Entry, false)
	require.NoError(t, err)
	assert.Equal(t, StateApplied, report.State)
	assert.Equal(t, 5, report.Executed)
	assert.Contains(t, exec.executed, "REMOVE TABLE users;")

	head, err := r.History().Head()
	require.NoError(t, err)
	assert.Empty(t, head)
}

func TestRollbackRefusesNonHeadMigration(t *testing.T) {
	exec := &fakeExec{}
	intro := &fakeIntro{}
	r := New(t.TempDir(), exec, intro)

	first, err := r.Snapshot("first", usersSnapshot())
	require.NoError(t, err)

	second := usersSnapshot()
	second.AddTable(schema.NewTableSnapshot("orders", "DEFINE TABLE orders SCHEMAFULL"))
	secondResult, err := r.Snapshot("second", second)
	require.NoError(t, err)

	_, err = r.Apply(context.Background(), first.Entry, false)
	require.NoError(t, err)
	intro.snapshot = usersSnapshot()
	_, err = r.Apply(context.Background(), secondResult.Entry, false)
	require.NoError(t, err)

	intro.snapshot = second
	_, err = r.Rollback(context.Background(), first.Entry, false)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not the history head")
}

func TestApplyReturnsErrLockedWhenLockHeld(t *testing.T) {
	dir := t.TempDir()
	r := New(dir, &fakeExec{}, &fakeIntro{})

	result, err := r.Snapshot("init", usersSnapshot())
	require.NoError(t, err)

	lock := filepath.Join(dir, ".mirage.lock")
	require.NoError(t, os.WriteFile(lock, []byte("12345\n"), 0644))

	_, err = r.Apply(context.Background(), result.Entry, false)
	require.ErrorIs(t, err, ErrLocked)

	// Releasing the lock unblocks the run.
	require.NoError(t, os.Remove(lock))
	_, err = r.Apply(context.Background(), result.Entry, false)
	require.NoError(t, err)
}

func TestHistoryFindResolvesReferences(t *testing.T) {
	h := NewHistory(t.TempDir())

	entry, err := h.Save("add users", usersSnapshot())
	require.NoError(t, err)

	byExact, err := h.Find(entry)
	require.NoError(t, err)
	assert.Equal(t, entry, byExact)

	byName, err := h.Find("add_users")
	require.NoError(t, err)
	assert.Equal(t, entry, byName)

	_, err = h.Find("no_such_migration")
	require.Error(t, err)
}

func TestHistoryRoundTripsSnapshots(t *testing.T) {
	h := NewHistory(t.TempDir())
	s := usersSnapshot()
	s.Checksum = s.ComputeChecksum()

	entry, err := h.Save("init", s)
	require.NoError(t, err)

	loaded, err := h.Load(entry)
	require.NoError(t, err)
	assert.Equal(t, s, loaded)
}

func TestHistoryPendingTracksHead(t *testing.T) {
	h := NewHistory(t.TempDir())

	first, err := h.Save("first", usersSnapshot())
	require.NoError(t, err)

	second := usersSnapshot()
	second.AddTable(schema.NewTableSnapshot("orders", "DEFINE TABLE orders SCHEMAFULL"))
	secondEntry, err := h.Save("second", second)
	require.NoError(t, err)

	pending, err := h.Pending()
	require.NoError(t, err)
	assert.Equal(t, []string{first, secondEntry}, pending)

	require.NoError(t, h.SetHead(first))
	pending, err = h.Pending()
	require.NoError(t, err)
	assert.Equal(t, []string{secondEntry}, pending)

	prev, err := h.PreviousOf(secondEntry)
	require.NoError(t, err)
	assert.Equal(t, first, prev)

	require.NoError(t, h.SetHead(""))
	head, err := h.Head()
	require.NoError(t, err)
	assert.Empty(t, head)
}

func TestStatusSplitsAppliedAndPending(t *testing.T) {
	exec := &fakeExec{}
	r := New(t.TempDir(), exec, &fakeIntro{})

	result, err := r.Snapshot("init", usersSnapshot())
	require.NoError(t, err)

	status, err := r.Status()
	require.NoError(t, err)
	assert.Empty(t, status.Head)
	assert.Empty(t, status.Applied)
	assert.Equal(t, []string{result.Entry}, status.Pending)

	_, err = r.Apply(context.Background(), result.Entry, false)
	require.NoError(t, err)

	status, err = r.Status()
	require.NoError(t, err)
	assert.Equal(t, result.Entry, status.Head)
	assert.Equal(t, []string{result.Entry}, status.Applied)
	assert.Empty(t, status.Pending)
}

func TestDriftErrorMessageMentionsForce(t *testing.T) {
	err := &DriftError{Report: &validator.DeviationReport{Missing: []string{"table users"}}}
	assert.Contains(t, err.Error(), "--force")
	assert.Contains(t, err.Error(), "1 deviation(s)")
}
