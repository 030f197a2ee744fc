package diff

import (
	"github.com/mirage-db/mirage/schema"
)

// EdgeDiff describes the transition of one relation table between two
// snapshots. It mirrors TableDiff; edges differ only in sequencing, which
// the statement generator handles.
type EdgeDiff struct {
	Previous *schema.EdgeSnapshot `json:"previous,omitempty"`
	Current  *schema.EdgeSnapshot `json:"current"`

	AddedColumns    []schema.ColumnSnapshot          `json:"added_columns"`
	RemovedColumns  []string                         `json:"removed_columns"`
	ModifiedColumns map[string]schema.ColumnSnapshot `json:"modified_columns"`

	AddedIndexes    []schema.IndexSnapshot          `json:"added_indexes"`
	RemovedIndexes  []string                        `json:"removed_indexes"`
	ModifiedIndexes map[string]schema.IndexSnapshot `json:"modified_indexes"`

	AddedEvents    []schema.EventSnapshot          `json:"added_events"`
	RemovedEvents  []string                        `json:"removed_events"`
	ModifiedEvents map[string]schema.EventSnapshot `json:"modified_events"`
}

// NewEdgeDiff builds the sub-entity diff between two states of one edge.
// Asking for a diff with no current state is a ConstructionError.
func NewEdgeDiff(previous, current *schema.EdgeSnapshot) (*EdgeDiff, error) {
	if current == nil {
		if previous == nil {
			return nil, &ConstructionError{Reason: "both edge states are absent"}
		}
		return nil, &ConstructionError{Entity: previous.Name, Reason: "current edge state is absent"}
	}

	d := &EdgeDiff{Previous: previous, Current: current}

	var prevCols map[string]schema.ColumnSnapshot
	var prevIdxs map[string]schema.IndexSnapshot
	var prevEvts map[string]schema.EventSnapshot
	if previous != nil {
		prevCols, prevIdxs, prevEvts = previous.Columns, previous.Indexes, previous.Events
	}

	d.AddedColumns, d.RemovedColumns, d.ModifiedColumns = diffColumns(prevCols, current.Columns)
	d.AddedIndexes, d.RemovedIndexes, d.ModifiedIndexes = diffIndexes(prevIdxs, current.Indexes)
	d.AddedEvents, d.RemovedEvents, d.ModifiedEvents = diffEvents(prevEvts, current.Events)
	return d, nil
}

// DefinitionChanged reports whether the edge's own DEFINE statement differs
// between the two sides.
func (d *EdgeDiff) DefinitionChanged() bool {
	return d.Previous == nil || d.Previous.Definition != d.Current.Definition
}

// IsEmpty reports whether nothing about the edge changed.
func (d *EdgeDiff) IsEmpty() bool {
	return !d.DefinitionChanged() &&
		len(d.AddedColumns) == 0 && len(d.RemovedColumns) == 0 && len(d.ModifiedColumns) == 0 &&
		len(d.AddedIndexes) == 0 && len(d.RemovedIndexes) == 0 && len(d.ModifiedIndexes) == 0 &&
		len(d.AddedEvents) == 0 && len(d.RemovedEvents) == 0 && len(d.ModifiedEvents) == 0
}

// Reverse swaps the previous and current sides of the edge diff.
func (d *EdgeDiff) Reverse() *EdgeDiff {
	rev := &EdgeDiff{
		Previous:        d.Current,
		Current:         d.Previous,
		ModifiedColumns: map[string]schema.ColumnSnapshot{},
		ModifiedIndexes: map[string]schema.IndexSnapshot{},
		ModifiedEvents:  map[string]schema.EventSnapshot{},
	}

	for _, name := range d.RemovedColumns {
		rev.AddedColumns = append(rev.AddedColumns, d.Previous.Columns[name])
	}
	sortColumns(rev.AddedColumns)
	for _, col := range d.AddedColumns {
		rev.RemovedColumns = append(rev.RemovedColumns, col.Name)
	}
	for name := range d.ModifiedColumns {
		rev.ModifiedColumns[name] = d.Previous.Columns[name]
	}

	for _, name := range d.RemovedIndexes {
		rev.AddedIndexes = append(rev.AddedIndexes, d.Previous.Indexes[name])
	}
	sortIndexes(rev.AddedIndexes)
	for _, idx := range d.AddedIndexes {
		rev.RemovedIndexes = append(rev.RemovedIndexes, idx.Name)
	}
	for name := range d.ModifiedIndexes {
		rev.ModifiedIndexes[name] = d.Previous.Indexes[name]
	}

	for _, name := range d.RemovedEvents {
		rev.AddedEvents = append(rev.AddedEvents, d.Previous.Events[name])
	}
	sortEvents(rev.AddedEvents)
	for _, evt := range d.AddedEvents {
		rev.RemovedEvents = append(rev.RemovedEvents, evt.Name)
	}
	for name := range d.ModifiedEvents {
		rev.ModifiedEvents[name] = d.Previous.Events[name]
	}

	return rev
}
