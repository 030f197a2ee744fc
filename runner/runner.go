package runner

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/mirage-db/mirage/diff"
	"github.com/mirage-db/mirage/generator"
	"github.com/mirage-db/mirage/schema"
	"github.com/mirage-db/mirage/validator"
)

// State is where a migration run ended up.
type State string

const (
	// StateClean: the history already matches the code schema.
	StateClean State = "clean"
	// StatePendingDiff: a new snapshot was generated and awaits apply.
	StatePendingDiff State = "pending"
	// StateApplying: statements are executing against the live database.
	StateApplying State = "applying"
	// StateApplied: all statements ran and the head advanced.
	StateApplied State = "applied"
	// StateFailed: execution halted; the head is unchanged.
	StateFailed State = "failed"
	// StateDriftDetected: the live database does not match the expected
	// prior snapshot and force was not set.
	StateDriftDetected State = "drift"
)

// Executor runs one schema statement against the live database.
type Executor interface {
	Execute(ctx context.Context, stmt string) error
}

// Introspector captures the live database schema.
type Introspector interface {
	Describe(ctx context.Context) (*schema.SchemaSnapshot, error)
}

// ExecutionError reports the exact statement that the database rejected.
// Index is 1-based. Statements already executed are not reversed; recovery
// is an explicit rollback against the last known-good snapshot.
type ExecutionError struct {
	Index     int
	Statement string
	Err       error
}

func (e *ExecutionError) Error() string {
	return fmt.Sprintf("statement %d failed: %v", e.Index, e.Err)
}

func (e *ExecutionError) Unwrap() error {
	return e.Err
}

// DriftError carries the deviation report that aborted a run.
type DriftError struct {
	Report *validator.DeviationReport
}

func (e *DriftError) Error() string {
	n := len(e.Report.Missing) + len(e.Report.Extra) + len(e.Report.Modified)
	return fmt.Sprintf("schema drift detected: %d deviation(s); re-run with --force to override", n)
}

// ErrLocked means another migration run holds the exclusive lock.
var ErrLocked = errors.New("another migration is in progress")

// Runner orchestrates snapshot generation, apply, rollback and validation
// against one target database. Exactly one apply or rollback may run at a
// time; interleaved schema mutations are undefined.
type Runner struct {
	history *History
	exec    Executor
	intro   Introspector
	mu      sync.Mutex
}

func New(dir string, exec Executor, intro Introspector) *Runner {
	return &Runner{
		history: NewHistory(dir),
		exec:    exec,
		intro:   intro,
	}
}

// History exposes the underlying history for status-style commands.
func (r *Runner) History() *History {
	return r.history
}

// SnapshotResult reports what Snapshot did.
type SnapshotResult struct {
	Entry      string
	Statements int
	State      State
}

// Snapshot captures the current code schema as a new history entry. When
// the schema is unchanged against the newest entry, nothing is written:
// generating twice in a row is a no-op.
func (r *Runner) Snapshot(name string, current *schema.SchemaSnapshot) (*SnapshotResult, error) {
	if current == nil {
		return nil, &diff.ConstructionError{Reason: "current schema snapshot is absent"}
	}
	if err := current.Validate(); err != nil {
		return nil, err
	}

	var base *schema.SchemaSnapshot
	latest, err := r.history.Latest()
	if err != nil {
		return nil, err
	}
	if latest != "" {
		if base, err = r.history.Load(latest); err != nil {
			return nil, err
		}
	}

	d, err := diff.Diff(base, current)
	if err != nil {
		return nil, err
	}
	if d.IsEmpty() {
		return &SnapshotResult{State: StateClean}, nil
	}

	stmts, err := generator.Statements(d)
	if err != nil {
		return nil, err
	}

	entry, err := r.history.Save(name, current)
	if err != nil {
		return nil, err
	}
	return &SnapshotResult{Entry: entry, Statements: len(stmts), State: StatePendingDiff}, nil
}

// RunReport describes the outcome of an apply or rollback.
type RunReport struct {
	Entry    string
	State    State
	Executed int
	Total    int
	Drift    *validator.DeviationReport
}

// Apply executes the forward statements of one pending migration. Before
// touching anything it validates the live database against the snapshot
// that preceded the migration; deviations abort with StateDriftDetected
// unless force is set. Statements run strictly in order, one at a time; on
// the first failure the remaining sequence is abandoned, nothing is
// auto-reversed, and the history head stays where it was.
func (r *Runner) Apply(ctx context.Context, ref string, force bool) (*RunReport, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	unlock, err := r.acquireLock()
	if err != nil {
		return nil, err
	}
	defer unlock()

	entry, err := r.history.Find(ref)
	if err != nil {
		return nil, err
	}
	report := &RunReport{Entry: entry}

	head, err := r.history.Head()
	if err != nil {
		return nil, err
	}
	if entry == head {
		report.State = StateClean
		return report, fmt.Errorf("migration %s is already applied", entry)
	}

	target, err := r.history.Load(entry)
	if err != nil {
		return nil, err
	}
	prev, err := r.previousSnapshot(entry)
	if err != nil {
		return nil, err
	}

	if err := r.checkDrift(ctx, report, prev, force); err != nil {
		return report, err
	}

	d, err := diff.Diff(prev, target)
	if err != nil {
		return nil, err
	}
	stmts, err := generator.Statements(d)
	if err != nil {
		return nil, err
	}

	if err := r.execute(ctx, report, stmts); err != nil {
		return report, err
	}

	if err := r.history.SetHead(entry); err != nil {
		return report, err
	}
	report.State = StateApplied
	return report, nil
}

// Rollback undoes the migration at the history head by executing its
// reverse diff, then moves the head backward. The drift check compares the
// live database against the snapshot this migration produced.
func (r *Runner) Rollback(ctx context.Context, ref string, force bool) (*RunReport, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	unlock, err := r.acquireLock()
	if err != nil {
		return nil, err
	}
	defer unlock()

	entry, err := r.history.Find(ref)
	if err != nil {
		return nil, err
	}
	report := &RunReport{Entry: entry}

	head, err := r.history.Head()
	if err != nil {
		return nil, err
	}
	if entry != head {
		return report, fmt.Errorf("migration %s is not the history head; roll back in order", entry)
	}

	target, err := r.history.Load(entry)
	if err != nil {
		return nil, err
	}
	prev, err := r.previousSnapshot(entry)
	if err != nil {
		return nil, err
	}

	if err := r.checkDrift(ctx, report, target, force); err != nil {
		return report, err
	}

	d, err := diff.Diff(prev, target)
	if err != nil {
		return nil, err
	}
	stmts, err := generator.RollbackStatements(d)
	if err != nil {
		return nil, err
	}

	if err := r.execute(ctx, report, stmts); err != nil {
		return report, err
	}

	prevEntry, err := r.history.PreviousOf(entry)
	if err != nil {
		return report, err
	}
	if err := r.history.SetHead(prevEntry); err != nil {
		return report, err
	}
	report.State = StateApplied
	return report, nil
}

// Plan returns the forward statement sequence for a migration without
// executing anything.
func (r *Runner) Plan(ref string) ([]string, error) {
	entry, err := r.history.Find(ref)
	if err != nil {
		return nil, err
	}
	target, err := r.history.Load(entry)
	if err != nil {
		return nil, err
	}
	prev, err := r.previousSnapshot(entry)
	if err != nil {
		return nil, err
	}
	d, err := diff.Diff(prev, target)
	if err != nil {
		return nil, err
	}
	return generator.Statements(d)
}

// RollbackPlan returns the reverse statement sequence for a migration.
func (r *Runner) RollbackPlan(ref string) ([]string, error) {
	entry, err := r.history.Find(ref)
	if err != nil {
		return nil, err
	}
	target, err := r.history.Load(entry)
	if err != nil {
		return nil, err
	}
	prev, err := r.previousSnapshot(entry)
	if err != nil {
		return nil, err
	}
	d, err := diff.Diff(prev, target)
	if err != nil {
		return nil, err
	}
	return generator.RollbackStatements(d)
}

// Status summarizes where the history stands.
type Status struct {
	Head    string
	Applied []string
	Pending []string
}

// Status reports the applied and pending entries without touching the
// live database.
func (r *Runner) Status() (*Status, error) {
	entries, err := r.history.Entries()
	if err != nil {
		return nil, err
	}
	head, err := r.history.Head()
	if err != nil {
		return nil, err
	}
	pending, err := r.history.Pending()
	if err != nil {
		return nil, err
	}
	return &Status{
		Head:    head,
		Applied: entries[:len(entries)-len(pending)],
		Pending: pending,
	}, nil
}

// Validate checks the live database against the current history head.
func (r *Runner) Validate(ctx context.Context) (*validator.DeviationReport, error) {
	if r.intro == nil {
		return nil, fmt.Errorf("no live database configured")
	}
	live, err := r.intro.Describe(ctx)
	if err != nil {
		return nil, err
	}
	expected, err := r.history.HeadSnapshot()
	if err != nil {
		return nil, err
	}
	if expected == nil {
		expected = schema.NewSchemaSnapshot()
	}
	return validator.Validate(live, expected)
}

func (r *Runner) previousSnapshot(entry string) (*schema.SchemaSnapshot, error) {
	prevEntry, err := r.history.PreviousOf(entry)
	if err != nil {
		return nil, err
	}
	if prevEntry == "" {
		return nil, nil
	}
	return r.history.Load(prevEntry)
}

func (r *Runner) checkDrift(ctx context.Context, report *RunReport, expected *schema.SchemaSnapshot, force bool) error {
	if r.intro == nil {
		return nil
	}
	live, err := r.intro.Describe(ctx)
	if err != nil {
		return fmt.Errorf("introspect live database: %v", err)
	}
	if expected == nil {
		expected = schema.NewSchemaSnapshot()
	}
	dev, err := validator.Validate(live, expected)
	if err != nil {
		return err
	}
	if dev.HasIssues() {
		report.Drift = dev
		if !force {
			report.State = StateDriftDetected
			return &DriftError{Report: dev}
		}
	}
	return nil
}

func (r *Runner) execute(ctx context.Context, report *RunReport, stmts []string) error {
	report.Total = len(stmts)
	report.State = StateApplying

	for i, stmt := range stmts {
		// Cancellation stops the sequence between statements; the prefix
		// already executed stays in place and the head does not move.
		if err := ctx.Err(); err != nil {
			report.State = StateFailed
			return fmt.Errorf("canceled after %d of %d statements: %v", report.Executed, report.Total, err)
		}
		if err := r.exec.Execute(ctx, stmt); err != nil {
			report.State = StateFailed
			return &ExecutionError{Index: i + 1, Statement: stmt, Err: err}
		}
		report.Executed++
	}
	return nil
}

func (r *Runner) acquireLock() (func(), error) {
	if err := r.history.Init(); err != nil {
		return nil, err
	}
	path := filepath.Join(r.history.Dir(), ".mirage.lock")
	f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0644)
	if err != nil {
		if os.IsExist(err) {
			return nil, ErrLocked
		}
		return nil, fmt.Errorf("acquire migration lock: %v", err)
	}
	fmt.Fprintf(f, "%d\n", os.Getpid())
	f.Close()
	return func() { os.Remove(path) }, nil
}
