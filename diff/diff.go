package diff

import (
	"fmt"
	"sort"

	"github.com/mirage-db/mirage/schema"
)

// ConstructionError reports a programming-contract violation: a diff was
// requested for a transition that makes no sense, such as both sides being
// absent or a current state missing without removal semantics.
type ConstructionError struct {
	Entity string
	Reason string
}

func (e *ConstructionError) Error() string {
	if e.Entity == "" {
		return fmt.Sprintf("diff construction: %s", e.Reason)
	}
	return fmt.Sprintf("diff construction for %q: %s", e.Entity, e.Reason)
}

// SchemaDiff is the structural delta between two snapshots. A name appears
// in at most one of added/removed/modified. Source and Target carry the
// full snapshots the diff was computed from; Reverse needs them to
// reconstruct removed entities.
type SchemaDiff struct {
	AddedTables    []string              `json:"added_tables"`
	RemovedTables  []string              `json:"removed_tables"`
	ModifiedTables map[string]*TableDiff `json:"modified_tables"`
	AddedEdges     []string              `json:"added_edges"`
	RemovedEdges   []string              `json:"removed_edges"`
	ModifiedEdges  map[string]*EdgeDiff  `json:"modified_edges"`

	Source *schema.SchemaSnapshot `json:"source"`
	Target *schema.SchemaSnapshot `json:"target"`
}

// Diff computes the delta that transitions previous into current. A nil
// previous means "empty schema": everything in current is added. A nil
// current is a contract violation, not a way to drop a schema.
func Diff(previous, current *schema.SchemaSnapshot) (*SchemaDiff, error) {
	if current == nil {
		if previous == nil {
			return nil, &ConstructionError{Reason: "both snapshots are absent, nothing to diff"}
		}
		return nil, &ConstructionError{Reason: "current snapshot is absent; removals must be explicit in a current snapshot"}
	}
	if previous == nil {
		previous = schema.NewSchemaSnapshot()
	}

	d := &SchemaDiff{
		ModifiedTables: map[string]*TableDiff{},
		ModifiedEdges:  map[string]*EdgeDiff{},
		Source:         previous,
		Target:         current,
	}

	for _, name := range current.TableNames() {
		if _, ok := previous.Tables[name]; !ok {
			d.AddedTables = append(d.AddedTables, name)
		}
	}
	for _, name := range previous.TableNames() {
		if _, ok := current.Tables[name]; !ok {
			d.RemovedTables = append(d.RemovedTables, name)
		}
	}
	for _, name := range current.TableNames() {
		prev, ok := previous.Tables[name]
		if !ok {
			continue
		}
		cur := current.Tables[name]
		td, err := NewTableDiff(&prev, &cur)
		if err != nil {
			return nil, err
		}
		if !td.IsEmpty() {
			d.ModifiedTables[name] = td
		}
	}

	for _, name := range current.EdgeNames() {
		if _, ok := previous.Edges[name]; !ok {
			d.AddedEdges = append(d.AddedEdges, name)
		}
	}
	for _, name := range previous.EdgeNames() {
		if _, ok := current.Edges[name]; !ok {
			d.RemovedEdges = append(d.RemovedEdges, name)
		}
	}
	for _, name := range current.EdgeNames() {
		prev, ok := previous.Edges[name]
		if !ok {
			continue
		}
		cur := current.Edges[name]
		ed, err := NewEdgeDiff(&prev, &cur)
		if err != nil {
			return nil, err
		}
		if !ed.IsEmpty() {
			d.ModifiedEdges[name] = ed
		}
	}

	return d, nil
}

// Reverse yields the diff that undoes the transition: added and removed
// swap, every modified entry swaps its previous and current sides. For all
// well-formed snapshots A and B, Diff(A, B).Reverse() equals Diff(B, A).
func (d *SchemaDiff) Reverse() *SchemaDiff {
	rev := &SchemaDiff{
		AddedTables:    copyNames(d.RemovedTables),
		RemovedTables:  copyNames(d.AddedTables),
		AddedEdges:     copyNames(d.RemovedEdges),
		RemovedEdges:   copyNames(d.AddedEdges),
		ModifiedTables: map[string]*TableDiff{},
		ModifiedEdges:  map[string]*EdgeDiff{},
		Source:         d.Target,
		Target:         d.Source,
	}
	for name, td := range d.ModifiedTables {
		rev.ModifiedTables[name] = td.Reverse()
	}
	for name, ed := range d.ModifiedEdges {
		rev.ModifiedEdges[name] = ed.Reverse()
	}
	return rev
}

// IsEmpty reports whether the diff describes no change at all.
func (d *SchemaDiff) IsEmpty() bool {
	return len(d.AddedTables) == 0 &&
		len(d.RemovedTables) == 0 &&
		len(d.ModifiedTables) == 0 &&
		len(d.AddedEdges) == 0 &&
		len(d.RemovedEdges) == 0 &&
		len(d.ModifiedEdges) == 0
}

func copyNames(names []string) []string {
	if names == nil {
		return nil
	}
	return append([]string{}, names...)
}

// Change detection below is textual: two definitions are equal iff their
// canonical statement texts are byte-equal.

func diffColumns(prev, cur map[string]schema.ColumnSnapshot) (added []schema.ColumnSnapshot, removed []string, modified map[string]schema.ColumnSnapshot) {
	modified = map[string]schema.ColumnSnapshot{}
	for _, name := range schema.SortedColumnNames(cur) {
		old, ok := prev[name]
		if !ok {
			added = append(added, cur[name])
		} else if old.Definition != cur[name].Definition {
			modified[name] = cur[name]
		}
	}
	for _, name := range schema.SortedColumnNames(prev) {
		if _, ok := cur[name]; !ok {
			removed = append(removed, name)
		}
	}
	return added, removed, modified
}

func diffIndexes(prev, cur map[string]schema.IndexSnapshot) (added []schema.IndexSnapshot, removed []string, modified map[string]schema.IndexSnapshot) {
	modified = map[string]schema.IndexSnapshot{}
	for _, name := range schema.SortedIndexNames(cur) {
		old, ok := prev[name]
		if !ok {
			added = append(added, cur[name])
		} else if old.Definition != cur[name].Definition {
			modified[name] = cur[name]
		}
	}
	for _, name := range schema.SortedIndexNames(prev) {
		if _, ok := cur[name]; !ok {
			removed = append(removed, name)
		}
	}
	return added, removed, modified
}

func diffEvents(prev, cur map[string]schema.EventSnapshot) (added []schema.EventSnapshot, removed []string, modified map[string]schema.EventSnapshot) {
	modified = map[string]schema.EventSnapshot{}
	for _, name := range schema.SortedEventNames(cur) {
		old, ok := prev[name]
		if !ok {
			added = append(added, cur[name])
		} else if old.Definition != cur[name].Definition {
			modified[name] = cur[name]
		}
	}
	for _, name := range schema.SortedEventNames(prev) {
		if _, ok := cur[name]; !ok {
			removed = append(removed, name)
		}
	}
	return added, removed, modified
}

func sortColumns(cols []schema.ColumnSnapshot) {
	sort.Slice(cols, func(i, j int) bool { return cols[i].Name < cols[j].Name })
}

func sortIndexes(idxs []schema.IndexSnapshot) {
	sort.Slice(idxs, func(i, j int) bool { return idxs[i].Name < idxs[j].Name })
}

func sortEvents(evts []schema.EventSnapshot) {
	sort.Slice(evts, func(i, j int) bool { return evts[i].Name < evts[j].Name })
}
