package generator

import (
	"fmt"
	"sort"
	"strings"

	"github.com/mirage-db/mirage/diff"
	"github.com/mirage-db/mirage/schema"
)

// RenderError reports an entity whose canonical definition text is missing,
// so no executable statement can be produced for it. Sequencing never skips
// such an entity silently.
type RenderError struct {
	Kind string
	Name string
}

func (e *RenderError) Error() string {
	return fmt.Sprintf("cannot render %s %q: no canonical definition", e.Kind, e.Name)
}

// Statements turns a schema diff into the ordered statement sequence that
// applies it. Ordering:
//
//  1. added tables: table, then fields, indexes, events
//  2. modified tables: removed events, indexes, fields first, then
//     added/modified fields, indexes, events
//  3. removed edges (before removed tables, so no dangling relations)
//  4. removed tables: events, indexes, fields, then the table
//  5. added edges (after every table exists)
//  6. modified edges, shaped like modified tables
func Statements(d *diff.SchemaDiff) ([]string, error) {
	var stmts []string

	for _, name := range d.AddedTables {
		table, ok := d.Target.Tables[name]
		if !ok {
			return nil, &RenderError{Kind: "table", Name: name}
		}
		block, err := createTableStatements(&table)
		if err != nil {
			return nil, err
		}
		stmts = append(stmts, block...)
	}

	for _, name := range sortedDiffKeys(d.ModifiedTables) {
		block, err := modifyStatements(name, d.ModifiedTables[name])
		if err != nil {
			return nil, err
		}
		stmts = append(stmts, block...)
	}

	for _, name := range d.RemovedEdges {
		if edge, ok := d.Source.Edges[name]; ok {
			stmts = append(stmts, removeSubEntityStatements(name, edge.Columns, edge.Indexes, edge.Events)...)
		}
		stmts = append(stmts, fmt.Sprintf("REMOVE TABLE %s;", name))
	}

	for _, name := range d.RemovedTables {
		if table, ok := d.Source.Tables[name]; ok {
			stmts = append(stmts, removeSubEntityStatements(name, table.Columns, table.Indexes, table.Events)...)
		}
		stmts = append(stmts, fmt.Sprintf("REMOVE TABLE %s;", name))
	}

	for _, name := range d.AddedEdges {
		edge, ok := d.Target.Edges[name]
		if !ok {
			return nil, &RenderError{Kind: "edge", Name: name}
		}
		block, err := createEdgeStatements(&edge)
		if err != nil {
			return nil, err
		}
		stmts = append(stmts, block...)
	}

	for _, name := range sortedDiffKeys(d.ModifiedEdges) {
		ed := d.ModifiedEdges[name]
		block, err := modifyEdgeStatements(name, ed)
		if err != nil {
			return nil, err
		}
		stmts = append(stmts, block...)
	}

	return stmts, nil
}

// RollbackStatements sequences the reverse diff, undoing the transition.
func RollbackStatements(d *diff.SchemaDiff) ([]string, error) {
	return Statements(d.Reverse())
}

func createTableStatements(table *schema.TableSnapshot) ([]string, error) {
	stmt, err := render("table", table.Name, table.Definition)
	if err != nil {
		return nil, err
	}
	stmts := []string{stmt}
	sub, err := createSubEntityStatements(table.Columns, table.Indexes, table.Events)
	if err != nil {
		return nil, err
	}
	return append(stmts, sub...), nil
}

func createEdgeStatements(edge *schema.EdgeSnapshot) ([]string, error) {
	stmt, err := render("edge", edge.Name, edge.Definition)
	if err != nil {
		return nil, err
	}
	stmts := []string{stmt}
	sub, err := createSubEntityStatements(edge.Columns, edge.Indexes, edge.Events)
	if err != nil {
		return nil, err
	}
	return append(stmts, sub...), nil
}

func createSubEntityStatements(
	cols map[string]schema.ColumnSnapshot,
	idxs map[string]schema.IndexSnapshot,
	evts map[string]schema.EventSnapshot,
) ([]string, error) {
	var stmts []string
	for _, name := range schema.SortedColumnNames(cols) {
		stmt, err := render("field", name, cols[name].Definition)
		if err != nil {
			return nil, err
		}
		stmts = append(stmts, stmt)
	}
	for _, name := range schema.SortedIndexNames(idxs) {
		stmt, err := render("index", name, idxs[name].Definition)
		if err != nil {
			return nil, err
		}
		stmts = append(stmts, stmt)
	}
	for _, name := range schema.SortedEventNames(evts) {
		stmt, err := render("event", name, evts[name].Definition)
		if err != nil {
			return nil, err
		}
		stmts = append(stmts, stmt)
	}
	return stmts, nil
}

func removeSubEntityStatements(
	owner string,
	cols map[string]schema.ColumnSnapshot,
	idxs map[string]schema.IndexSnapshot,
	evts map[string]schema.EventSnapshot,
) []string {
	var stmts []string
	for _, name := range schema.SortedEventNames(evts) {
		stmts = append(stmts, fmt.Sprintf("REMOVE EVENT %s ON TABLE %s;", name, owner))
	}
	for _, name := range schema.SortedIndexNames(idxs) {
		stmts = append(stmts, fmt.Sprintf("REMOVE INDEX %s ON TABLE %s;", name, owner))
	}
	for _, name := range schema.SortedColumnNames(cols) {
		stmts = append(stmts, fmt.Sprintf("REMOVE FIELD %s ON TABLE %s;", name, owner))
	}
	return stmts
}

func modifyStatements(name string, td *diff.TableDiff) ([]string, error) {
	var stmts []string

	if td.DefinitionChanged() {
		stmt, err := render("table", name, td.Current.Definition)
		if err != nil {
			return nil, err
		}
		stmts = append(stmts, EnsureOverwrite(stmt))
	}

	stmts = append(stmts, modifyRemovals(name, td.RemovedEvents, td.RemovedIndexes, td.RemovedColumns)...)

	adds, err := modifyAdditions(
		td.AddedColumns, td.ModifiedColumns,
		td.AddedIndexes, td.ModifiedIndexes,
		td.AddedEvents, td.ModifiedEvents,
	)
	if err != nil {
		return nil, err
	}
	return append(stmts, adds...), nil
}

func modifyEdgeStatements(name string, ed *diff.EdgeDiff) ([]string, error) {
	var stmts []string

	if ed.DefinitionChanged() {
		stmt, err := render("edge", name, ed.Current.Definition)
		if err != nil {
			return nil, err
		}
		stmts = append(stmts, EnsureOverwrite(stmt))
	}

	stmts = append(stmts, modifyRemovals(name, ed.RemovedEvents, ed.RemovedIndexes, ed.RemovedColumns)...)

	adds, err := modifyAdditions(
		ed.AddedColumns, ed.ModifiedColumns,
		ed.AddedIndexes, ed.ModifiedIndexes,
		ed.AddedEvents, ed.ModifiedEvents,
	)
	if err != nil {
		return nil, err
	}
	return append(stmts, adds...), nil
}

func modifyRemovals(owner string, events, indexes, columns []string) []string {
	var stmts []string
	for _, name := range events {
		stmts = append(stmts, fmt.Sprintf("REMOVE EVENT %s ON TABLE %s;", name, owner))
	}
	for _, name := range indexes {
		stmts = append(stmts, fmt.Sprintf("REMOVE INDEX %s ON TABLE %s;", name, owner))
	}
	for _, name := range columns {
		stmts = append(stmts, fmt.Sprintf("REMOVE FIELD %s ON TABLE %s;", name, owner))
	}
	return stmts
}

func modifyAdditions(
	addedCols []schema.ColumnSnapshot, modCols map[string]schema.ColumnSnapshot,
	addedIdxs []schema.IndexSnapshot, modIdxs map[string]schema.IndexSnapshot,
	addedEvts []schema.EventSnapshot, modEvts map[string]schema.EventSnapshot,
) ([]string, error) {
	var stmts []string

	for _, col := range addedCols {
		stmt, err := render("field", col.Name, col.Definition)
		if err != nil {
			return nil, err
		}
		stmts = append(stmts, stmt)
	}
	for _, name := range schema.SortedColumnNames(modCols) {
		stmt, err := render("field", name, modCols[name].Definition)
		if err != nil {
			return nil, err
		}
		stmts = append(stmts, EnsureOverwrite(stmt))
	}

	for _, idx := range addedIdxs {
		stmt, err := render("index", idx.Name, idx.Definition)
		if err != nil {
			return nil, err
		}
		stmts = append(stmts, stmt)
	}
	for _, name := range schema.SortedIndexNames(modIdxs) {
		stmt, err := render("index", name, modIdxs[name].Definition)
		if err != nil {
			return nil, err
		}
		stmts = append(stmts, EnsureOverwrite(stmt))
	}

	for _, evt := range addedEvts {
		stmt, err := render("event", evt.Name, evt.Definition)
		if err != nil {
			return nil, err
		}
		stmts = append(stmts, stmt)
	}
	for _, name := range schema.SortedEventNames(modEvts) {
		stmt, err := render("event", name, modEvts[name].Definition)
		if err != nil {
			return nil, err
		}
		stmts = append(stmts, EnsureOverwrite(stmt))
	}

	return stmts, nil
}

// render validates that a definition text exists and normalizes its
// termination.
func render(kind, name, definition string) (string, error) {
	stmt := strings.TrimSpace(definition)
	if stmt == "" {
		return "", &RenderError{Kind: kind, Name: name}
	}
	if !strings.HasSuffix(stmt, ";") {
		stmt += ";"
	}
	return stmt, nil
}

// EnsureOverwrite rewrites a DEFINE statement so re-applying it replaces
// the existing definition instead of failing on a duplicate.
func EnsureOverwrite(stmt string) string {
	stmt = strings.TrimSpace(stmt)
	if strings.Contains(stmt, "IF NOT EXISTS") {
		return strings.Replace(stmt, "IF NOT EXISTS", "OVERWRITE", 1)
	}
	if strings.Contains(stmt, "OVERWRITE") {
		return stmt
	}
	parts := strings.Fields(stmt)
	if len(parts) >= 3 && parts[0] == "DEFINE" {
		return fmt.Sprintf("DEFINE %s OVERWRITE %s", parts[1], strings.Join(parts[2:], " "))
	}
	return stmt
}

func sortedDiffKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
