package schema

import (
	"crypto/sha256"
	"fmt"
	"sort"
	"strings"
)

// ColumnSnapshot captures one field definition by its canonical statement text.
type ColumnSnapshot struct {
	Name       string `json:"name"`
	Definition string `json:"definition"`
}

// IndexSnapshot captures one index definition.
type IndexSnapshot struct {
	Name       string `json:"name"`
	Definition string `json:"definition"`
}

// EventSnapshot captures one event definition.
type EventSnapshot struct {
	Name       string `json:"name"`
	Definition string `json:"definition"`
}

// TableSnapshot is the state of a single table: its own DEFINE TABLE
// statement plus its fields, indexes and events keyed by name.
type TableSnapshot struct {
	Name       string                    `json:"name"`
	Definition string                    `json:"definition"`
	Columns    map[string]ColumnSnapshot `json:"columns"`
	Indexes    map[string]IndexSnapshot  `json:"indexes"`
	Events     map[string]EventSnapshot  `json:"events"`
}

// EdgeSnapshot is the state of a relation table. From and To hold the
// endpoint table names declared with IN/OUT; they may be empty when the
// live definition did not carry them.
type EdgeSnapshot struct {
	Name       string                    `json:"name"`
	Definition string                    `json:"definition"`
	From       []string                  `json:"from,omitempty"`
	To         []string                  `json:"to,omitempty"`
	Columns    map[string]ColumnSnapshot `json:"columns"`
	Indexes    map[string]IndexSnapshot  `json:"indexes"`
	Events     map[string]EventSnapshot  `json:"events"`
}

// SchemaSnapshot is the full, serializable description of a schema at one
// point in time. Snapshots are value-like: once persisted they are never
// mutated, a new migration always produces a new snapshot.
type SchemaSnapshot struct {
	Version  string                   `json:"version"`
	Checksum string                   `json:"checksum"`
	Tables   map[string]TableSnapshot `json:"tables"`
	Edges    map[string]EdgeSnapshot  `json:"edges"`
}

// NewTableSnapshot creates an empty table snapshot.
func NewTableSnapshot(name, definition string) TableSnapshot {
	return TableSnapshot{
		Name:       name,
		Definition: definition,
		Columns:    map[string]ColumnSnapshot{},
		Indexes:    map[string]IndexSnapshot{},
		Events:     map[string]EventSnapshot{},
	}
}

// NewEdgeSnapshot creates an empty edge snapshot.
func NewEdgeSnapshot(name, definition string) EdgeSnapshot {
	return EdgeSnapshot{
		Name:       name,
		Definition: definition,
		Columns:    map[string]ColumnSnapshot{},
		Indexes:    map[string]IndexSnapshot{},
		Events:     map[string]EventSnapshot{},
	}
}

// NewSchemaSnapshot creates an empty schema snapshot.
func NewSchemaSnapshot() *SchemaSnapshot {
	return &SchemaSnapshot{
		Tables: map[string]TableSnapshot{},
		Edges:  map[string]EdgeSnapshot{},
	}
}

func (t *TableSnapshot) AddColumn(name, definition string) {
	t.Columns[name] = ColumnSnapshot{Name: name, Definition: definition}
}

func (t *TableSnapshot) AddIndex(name, definition string) {
	t.Indexes[name] = IndexSnapshot{Name: name, Definition: definition}
}

func (t *TableSnapshot) AddEvent(name, definition string) {
	t.Events[name] = EventSnapshot{Name: name, Definition: definition}
}

func (e *EdgeSnapshot) AddColumn(name, definition string) {
	e.Columns[name] = ColumnSnapshot{Name: name, Definition: definition}
}

func (e *EdgeSnapshot) AddIndex(name, definition string) {
	e.Indexes[name] = IndexSnapshot{Name: name, Definition: definition}
}

func (e *EdgeSnapshot) AddEvent(name, definition string) {
	e.Events[name] = EventSnapshot{Name: name, Definition: definition}
}

func (s *SchemaSnapshot) AddTable(t TableSnapshot) {
	s.Tables[t.Name] = t
}

func (s *SchemaSnapshot) AddEdge(e EdgeSnapshot) {
	s.Edges[e.Name] = e
}

// TableNames returns table names in sorted order.
func (s *SchemaSnapshot) TableNames() []string {
	return sortedKeys(s.Tables)
}

// EdgeNames returns edge names in sorted order.
func (s *SchemaSnapshot) EdgeNames() []string {
	return sortedKeys(s.Edges)
}

// IsEmpty reports whether the snapshot declares no entities at all.
func (s *SchemaSnapshot) IsEmpty() bool {
	return len(s.Tables) == 0 && len(s.Edges) == 0
}

// Equal reports whether two snapshots render to the same schema, compared
// by canonical definition text.
func (s *SchemaSnapshot) Equal(other *SchemaSnapshot) bool {
	if other == nil {
		return s.IsEmpty()
	}
	return s.ComputeChecksum() == other.ComputeChecksum()
}

// Validate rejects snapshots whose edges point at tables that do not exist
// in the same snapshot. Edges without recorded endpoints are accepted: live
// introspection cannot always recover IN/OUT from the rendered definition.
func (s *SchemaSnapshot) Validate() error {
	for _, name := range s.EdgeNames() {
		edge := s.Edges[name]
		for _, endpoint := range append(append([]string{}, edge.From...), edge.To...) {
			if endpoint == "" {
				continue
			}
			if _, ok := s.Tables[endpoint]; !ok {
				return fmt.Errorf("edge %q references unknown table %q", name, endpoint)
			}
		}
	}
	return nil
}

// ComputeChecksum hashes every canonical definition in name order. Two
// snapshots with the same checksum render to the same schema.
func (s *SchemaSnapshot) ComputeChecksum() string {
	h := sha256.New()
	for _, name := range s.TableNames() {
		table := s.Tables[name]
		h.Write([]byte(table.Definition))
		for _, col := range sortedKeys(table.Columns) {
			h.Write([]byte(table.Columns[col].Definition))
		}
		for _, idx := range sortedKeys(table.Indexes) {
			h.Write([]byte(table.Indexes[idx].Definition))
		}
		for _, evt := range sortedKeys(table.Events) {
			h.Write([]byte(table.Events[evt].Definition))
		}
	}
	for _, name := range s.EdgeNames() {
		edge := s.Edges[name]
		h.Write([]byte(edge.Definition))
		h.Write([]byte(strings.Join(edge.From, ",")))
		h.Write([]byte(strings.Join(edge.To, ",")))
		for _, col := range sortedKeys(edge.Columns) {
			h.Write([]byte(edge.Columns[col].Definition))
		}
		for _, idx := range sortedKeys(edge.Indexes) {
			h.Write([]byte(edge.Indexes[idx].Definition))
		}
		for _, evt := range sortedKeys(edge.Events) {
			h.Write([]byte(edge.Events[evt].Definition))
		}
	}
	return fmt.Sprintf("%x", h.Sum(nil))
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// SortedColumnNames returns the column names of a table or edge in order.
func SortedColumnNames(cols map[string]ColumnSnapshot) []string {
	return sortedKeys(cols)
}

// SortedIndexNames returns index names in order.
func SortedIndexNames(idxs map[string]IndexSnapshot) []string {
	return sortedKeys(idxs)
}

// SortedEventNames returns event names in order.
func SortedEventNames(evts map[string]EventSnapshot) []string {
	return sortedKeys(evts)
}
