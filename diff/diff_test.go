package diff

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mirage-db/mirage/schema"
)

func baseSnapshot() *schema.SchemaSnapshot {
	s := schema.NewSchemaSnapshot()

	users := schema.NewTableSnapshot("users", "DEFINE TABLE users SCHEMAFULL")
	users.AddColumn("id", "DEFINE FIELD id ON TABLE users TYPE string")
	users.AddColumn("name", "DEFINE FIELD name ON TABLE users TYPE string")
	users.AddIndex("idx_name", "DEFINE INDEX idx_name ON TABLE users COLUMNS name")
	s.AddTable(users)

	orders := schema.NewTableSnapshot("orders", "DEFINE TABLE orders SCHEMAFULL")
	orders.AddColumn("total", "DEFINE FIELD total ON TABLE orders TYPE number")
	s.AddTable(orders)

	owns := schema.NewEdgeSnapshot("owns", "DEFINE TABLE owns TYPE RELATION IN users OUT orders")
	owns.From = []string{"users"}
	owns.To = []string{"orders"}
	s.AddEdge(owns)

	return s
}

func TestDiffIdenticalSnapshotsIsEmpty(t *testing.T) {
	a := baseSnapshot()
	b := baseSnapshot()

	d, err := Diff(a, b)
	require.NoError(t, err)
	assert.True(t, d.IsEmpty())
}

func TestDiffNilPreviousAddsEverything(t *testing.T) {
	current := baseSnapshot()

	d, err := Diff(nil, current)
	require.NoError(t, err)
	assert.Equal(t, []string{"orders", "users"}, d.AddedTables)
	assert.Equal(t, []string{"owns"}, d.AddedEdges)
	assert.Empty(t, d.RemovedTables)
	assert.Empty(t, d.ModifiedTables)
}

func TestDiffNilCurrentIsConstructionError(t *testing.T) {
	_, err := Diff(baseSnapshot(), nil)
	require.Error(t, err)
	var cerr *ConstructionError
	require.ErrorAs(t, err, &cerr)

	_, err = Diff(nil, nil)
	require.Error(t, err)
	require.ErrorAs(t, err, &cerr)
}

func TestDiffClassification(t *testing.T) {
	previous := baseSnapshot()

	current := baseSnapshot()
	// users gains a column, orders disappears, products appears, the owns
	// edge loses its endpoint table so it goes too.
	users := current.Tables["users"]
	users.AddColumn("email", "DEFINE FIELD email ON TABLE users TYPE string")
	current.Tables["users"] = users
	delete(current.Tables, "orders")
	delete(current.Edges, "owns")
	current.AddTable(schema.NewTableSnapshot("products", "DEFINE TABLE products SCHEMAFULL"))

	d, err := Diff(previous, current)
	require.NoError(t, err)

	assert.Equal(t, []string{"products"}, d.AddedTables)
	assert.Equal(t, []string{"orders"}, d.RemovedTables)
	assert.Equal(t, []string{"owns"}, d.RemovedEdges)

	require.Contains(t, d.ModifiedTables, "users")
	td := d.ModifiedTables["users"]
	require.Len(t, td.AddedColumns, 1)
	assert.Equal(t, "email", td.AddedColumns[0].Name)
	assert.Empty(t, td.RemovedColumns)
	assert.False(t, td.DefinitionChanged())
}

func TestDiffDetectsModifiedDefinitionText(t *testing.T) {
	previous := baseSnapshot()
	current := baseSnapshot()

	users := current.Tables["users"]
	users.Definition = "DEFINE TABLE users SCHEMALESS"
	current.Tables["users"] = users

	d, err := Diff(previous, current)
	require.NoError(t, err)

	require.Contains(t, d.ModifiedTables, "users")
	assert.True(t, d.ModifiedTables["users"].DefinitionChanged())
}

func TestDiffUnchangedTablesStayOut(t *testing.T) {
	previous := baseSnapshot()
	current := baseSnapshot()

	orders := current.Tables["orders"]
	orders.AddColumn("status", "DEFINE FIELD status ON TABLE orders TYPE string")
	current.Tables["orders"] = orders

	d, err := Diff(previous, current)
	require.NoError(t, err)

	assert.Contains(t, d.ModifiedTables, "orders")
	assert.NotContains(t, d.ModifiedTables, "users")
}

func TestReverseEqualsOppositeDiff(t *testing.T) {
	a := baseSnapshot()

	b := baseSnapshot()
	users := b.Tables["users"]
	users.AddColumn("email", "DEFINE FIELD email ON TABLE users TYPE string")
	delete(users.Columns, "name")
	users.AddIndex("idx_email", "DEFINE INDEX idx_email ON TABLE users COLUMNS email")
	b.Tables["users"] = users
	delete(b.Tables, "orders")
	delete(b.Edges, "owns")
	b.AddTable(schema.NewTableSnapshot("products", "DEFINE TABLE products SCHEMAFULL"))

	forward, err := Diff(a, b)
	require.NoError(t, err)
	backward, err := Diff(b, a)
	require.NoError(t, err)

	assert.Equal(t, backward, forward.Reverse())
}

func TestReverseOfModifiedEdge(t *testing.T) {
	a := baseSnapshot()
	b := baseSnapshot()

	owns := b.Edges["owns"]
	owns.AddColumn("since", "DEFINE FIELD since ON TABLE owns TYPE datetime")
	b.Edges["owns"] = owns

	forward, err := Diff(a, b)
	require.NoError(t, err)
	backward, err := Diff(b, a)
	require.NoError(t, err)

	assert.Equal(t, backward, forward.Reverse())

	rev := forward.Reverse()
	require.Contains(t, rev.ModifiedEdges, "owns")
	assert.Equal(t, []string{"since"}, rev.ModifiedEdges["owns"].RemovedColumns)
}

func TestReverseTwiceIsIdentity(t *testing.T) {
	a := baseSnapshot()
	b := baseSnapshot()
	delete(b.Tables, "orders")
	delete(b.Edges, "owns")

	forward, err := Diff(a, b)
	require.NoError(t, err)

	assert.Equal(t, forward, forward.Reverse().Reverse())
}

func TestNewTableDiffRequiresCurrent(t *testing.T) {
	prev := schema.NewTableSnapshot("users", "DEFINE TABLE users SCHEMAFULL")

	_, err := NewTableDiff(&prev, nil)
	require.Error(t, err)
	var cerr *ConstructionError
	require.ErrorAs(t, err, &cerr)
	assert.Equal(t, "users", cerr.Entity)

	_, err = NewTableDiff(nil, nil)
	require.ErrorAs(t, err, &cerr)
}

func TestNewEdgeDiffRequiresCurrent(t *testing.T) {
	prev := schema.NewEdgeSnapshot("owns", "DEFINE TABLE owns TYPE RELATION")

	_, err := NewEdgeDiff(&prev, nil)
	require.Error(t, err)
	var cerr *ConstructionError
	require.ErrorAs(t, err, &cerr)
	assert.Equal(t, "owns", cerr.Entity)
}
