package introspect

import (
	"context"
	"fmt"
	"strings"

	surrealdb "github.com/surrealdb/surrealdb.go"

	"github.com/mirage-db/mirage/schema"
)

// DatabaseInfo is the shape of an INFO FOR DB response: table name to
// rendered definition text. Relation tables appear here too.
type DatabaseInfo struct {
	Tables map[string]string `json:"tables"`
}

// TableInfo is the shape of an INFO FOR TABLE response.
type TableInfo struct {
	Fields  map[string]string `json:"fields"`
	Indexes map[string]string `json:"indexes"`
	Events  map[string]string `json:"events"`
}

// DescribeDatabase fetches the live table catalog.
func DescribeDatabase(ctx context.Context, db *surrealdb.DB) (*DatabaseInfo, error) {
	res, err := surrealdb.Query[DatabaseInfo](ctx, db, "INFO FOR DB", nil)
	if err != nil {
		return nil, fmt.Errorf("info for db: %v", err)
	}
	if res == nil || len(*res) == 0 {
		return nil, fmt.Errorf("info for db: empty response")
	}
	info := (*res)[0].Result
	if info.Tables == nil {
		info.Tables = map[string]string{}
	}
	return &info, nil
}

// DescribeTable fetches the live field, index and event definitions of one
// table or edge.
func DescribeTable(ctx context.Context, db *surrealdb.DB, table string) (*TableInfo, error) {
	res, err := surrealdb.Query[TableInfo](ctx, db, fmt.Sprintf("INFO FOR TABLE %s", table), nil)
	if err != nil {
		return nil, fmt.Errorf("info for table %s: %v", table, err)
	}
	if res == nil || len(*res) == 0 {
		return nil, fmt.Errorf("info for table %s: empty response", table)
	}
	info := (*res)[0].Result
	return &info, nil
}

// Snapshot builds a full schema snapshot from the live database. Tables
// defined with TYPE RELATION become edge snapshots; their IN/OUT endpoints
// are recovered from the definition text when present.
func Snapshot(ctx context.Context, db *surrealdb.DB) (*schema.SchemaSnapshot, error) {
	dbInfo, err := DescribeDatabase(ctx, db)
	if err != nil {
		return nil, err
	}

	snapshot := schema.NewSchemaSnapshot()
	for name, definition := range dbInfo.Tables {
		tableInfo, err := DescribeTable(ctx, db, name)
		if err != nil {
			return nil, err
		}

		if IsRelation(definition) {
			edge := schema.NewEdgeSnapshot(name, definition)
			edge.From, edge.To = RelationEndpoints(definition)
			for field, def := range tableInfo.Fields {
				edge.AddColumn(field, def)
			}
			for index, def := range tableInfo.Indexes {
				edge.AddIndex(index, def)
			}
			for event, def := range tableInfo.Events {
				edge.AddEvent(event, def)
			}
			snapshot.AddEdge(edge)
			continue
		}

		table := schema.NewTableSnapshot(name, definition)
		for field, def := range tableInfo.Fields {
			table.AddColumn(field, def)
		}
		for index, def := range tableInfo.Indexes {
			table.AddIndex(index, def)
		}
		for event, def := range tableInfo.Events {
			table.AddEvent(event, def)
		}
		snapshot.AddTable(table)
	}

	snapshot.Checksum = snapshot.ComputeChecksum()
	return snapshot, nil
}

// IsRelation reports whether a table definition declares a relation table.
func IsRelation(definition string) bool {
	return strings.Contains(strings.ToUpper(definition), "TYPE RELATION")
}

// RelationEndpoints extracts the IN and OUT table names from a relation
// definition. Both lists are empty when the definition omits them.
func RelationEndpoints(definition string) (from, to []string) {
	fields := strings.Fields(definition)
	for i := 0; i < len(fields); i++ {
		switch strings.ToUpper(fields[i]) {
		case "IN":
			from, i = collectEndpoints(fields, i)
		case "OUT":
			to, i = collectEndpoints(fields, i)
		}
	}
	return from, to
}

var clauseKeywords = map[string]bool{
	"IN": true, "OUT": true, "SCHEMAFULL": true, "SCHEMALESS": true,
	"PERMISSIONS": true, "TYPE": true, "ENFORCED": true, "COMMENT": true,
	"CHANGEFEED": true, "DROP": true, "AS": true,
}

func collectEndpoints(fields []string, start int) ([]string, int) {
	var endpoints []string
	i := start + 1
	for ; i < len(fields); i++ {
		token := strings.Trim(fields[i], ";,")
		if token == "|" {
			continue
		}
		if clauseKeywords[strings.ToUpper(token)] {
			break
		}
		for _, part := range strings.Split(token, "|") {
			if part = strings.TrimSpace(part); part != "" {
				endpoints = append(endpoints, part)
			}
		}
	}
	return endpoints, i - 1
}
