package schema

import (
	"fmt"
	"time"
)

// Descriptor is the contract the declaration layer implements for every
// schema sub-entity: a stable name and the canonical statement text that
// defines it. Statement errors abort snapshot construction.
type Descriptor interface {
	Name() string
	Statement() (string, error)
}

// TableDescriptor describes a code-declared table and its sub-entities.
type TableDescriptor interface {
	Descriptor
	Columns() []Descriptor
	Indexes() []Descriptor
	Events() []Descriptor
}

// EdgeDescriptor describes a code-declared relation between tables.
type EdgeDescriptor interface {
	TableDescriptor
	From() []string
	To() []string
}

// Registry collects the entity descriptors known to the application. It is
// built explicitly at startup and passed by reference wherever the current
// code schema is needed; entities never register themselves into ambient
// process state.
type Registry struct {
	tables []TableDescriptor
	edges  []EdgeDescriptor
}

func NewRegistry() *Registry {
	return &Registry{}
}

func (r *Registry) RegisterTable(t TableDescriptor) {
	r.tables = append(r.tables, t)
}

func (r *Registry) RegisterEdge(e EdgeDescriptor) {
	r.edges = append(r.edges, e)
}

// Snapshot renders every registered entity into a SchemaSnapshot. It is
// all-or-nothing: a single failing render aborts the whole build so a
// partially populated snapshot can never leak out.
func (r *Registry) Snapshot() (*SchemaSnapshot, error) {
	s := NewSchemaSnapshot()

	for _, desc := range r.tables {
		def, err := desc.Statement()
		if err != nil {
			return nil, fmt.Errorf("render table %q: %v", desc.Name(), err)
		}
		table := NewTableSnapshot(desc.Name(), def)
		if err := fillSubEntities(&table.Columns, &table.Indexes, &table.Events, desc); err != nil {
			return nil, fmt.Errorf("table %q: %v", desc.Name(), err)
		}
		s.AddTable(table)
	}

	for _, desc := range r.edges {
		def, err := desc.Statement()
		if err != nil {
			return nil, fmt.Errorf("render edge %q: %v", desc.Name(), err)
		}
		edge := NewEdgeSnapshot(desc.Name(), def)
		edge.From = append([]string{}, desc.From()...)
		edge.To = append([]string{}, desc.To()...)
		if err := fillSubEntities(&edge.Columns, &edge.Indexes, &edge.Events, desc); err != nil {
			return nil, fmt.Errorf("edge %q: %v", desc.Name(), err)
		}
		s.AddEdge(edge)
	}

	s.Version = time.Now().UTC().Format(time.RFC3339)
	s.Checksum = s.ComputeChecksum()

	if err := s.Validate(); err != nil {
		return nil, err
	}
	return s, nil
}

func fillSubEntities(
	cols *map[string]ColumnSnapshot,
	idxs *map[string]IndexSnapshot,
	evts *map[string]EventSnapshot,
	desc TableDescriptor,
) error {
	for _, col := range desc.Columns() {
		def, err := col.Statement()
		if err != nil {
			return fmt.Errorf("render field %q: %v", col.Name(), err)
		}
		(*cols)[col.Name()] = ColumnSnapshot{Name: col.Name(), Definition: def}
	}
	for _, idx := range desc.Indexes() {
		def, err := idx.Statement()
		if err != nil {
			return fmt.Errorf("render index %q: %v", idx.Name(), err)
		}
		(*idxs)[idx.Name()] = IndexSnapshot{Name: idx.Name(), Definition: def}
	}
	for _, evt := range desc.Events() {
		def, err := evt.Statement()
		if err != nil {
			return fmt.Errorf("render event %q: %v", evt.Name(), err)
		}
		(*evts)[evt.Name()] = EventSnapshot{Name: evt.Name(), Definition: def}
	}
	return nil
}
