package schema

import (
	"encoding/json"
	"fmt"
	"os"
)

// LoadFile reads a declared schema snapshot from a JSON file, typically
// schema.json produced by a code generator or written by hand.
func LoadFile(path string) (*SchemaSnapshot, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read schema file %s: %v", path, err)
	}

	var s SchemaSnapshot
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("parse schema file %s: %v", path, err)
	}
	s.Normalize()

	if s.Checksum == "" {
		s.Checksum = s.ComputeChecksum()
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return &s, nil
}

// Normalize rebuilds nil maps after JSON decoding so loaded snapshots
// compare equal to freshly built ones.
func (s *SchemaSnapshot) Normalize() {
	if s.Tables == nil {
		s.Tables = map[string]TableSnapshot{}
	}
	if s.Edges == nil {
		s.Edges = map[string]EdgeSnapshot{}
	}
	for name, table := range s.Tables {
		if table.Columns == nil {
			table.Columns = map[string]ColumnSnapshot{}
		}
		if table.Indexes == nil {
			table.Indexes = map[string]IndexSnapshot{}
		}
		if table.Events == nil {
			table.Events = map[string]EventSnapshot{}
		}
		s.Tables[name] = table
	}
	for name, edge := range s.Edges {
		if edge.Columns == nil {
			edge.Columns = map[string]ColumnSnapshot{}
		}
		if edge.Indexes == nil {
			edge.Indexes = map[string]IndexSnapshot{}
		}
		if edge.Events == nil {
			edge.Events = map[string]EventSnapshot{}
		}
		s.Edges[name] = edge
	}
}
