package validator

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mirage-db/mirage/schema"
)

func expectedSnapshot() *schema.SchemaSnapshot {
	s := schema.NewSchemaSnapshot()

	users := schema.NewTableSnapshot("users", "DEFINE TABLE users SCHEMAFULL")
	users.AddColumn("id", "DEFINE FIELD id ON TABLE users TYPE string")
	users.AddColumn("name", "DEFINE FIELD name ON TABLE users TYPE string")
	users.AddColumn("email", "DEFINE FIELD email ON TABLE users TYPE string")
	s.AddTable(users)

	return s
}

func TestValidateMatchingSchemasHaveNoIssues(t *testing.T) {
	report, err := Validate(expectedSnapshot(), expectedSnapshot())
	require.NoError(t, err)
	assert.False(t, report.HasIssues())
	assert.Empty(t, report.Summary())
}

func TestValidateDetectsMissingColumn(t *testing.T) {
	live := expectedSnapshot()
	users := live.Tables["users"]
	delete(users.Columns, "email")
	live.Tables["users"] = users

	report, err := Validate(live, expectedSnapshot())
	require.NoError(t, err)

	assert.True(t, report.HasIssues())
	require.Contains(t, report.Modified, "users")
	assert.Contains(t, report.Modified["users"], `field "email" is missing`)
	assert.Empty(t, report.Missing)
	assert.Empty(t, report.Extra)
}

func TestValidateDetectsMissingAndExtraTables(t *testing.T) {
	live := schema.NewSchemaSnapshot()
	live.AddTable(schema.NewTableSnapshot("legacy", "DEFINE TABLE legacy SCHEMALESS"))

	report, err := Validate(live, expectedSnapshot())
	require.NoError(t, err)

	assert.Equal(t, []string{"table users"}, report.Missing)
	assert.Equal(t, []string{"table legacy"}, report.Extra)
}

func TestValidateDetectsModifiedDefinitions(t *testing.T) {
	live := expectedSnapshot()
	users := live.Tables["users"]
	users.Definition = "DEFINE TABLE users SCHEMALESS"
	users.AddColumn("name", "DEFINE FIELD name ON TABLE users TYPE option<string>")
	live.Tables["users"] = users

	report, err := Validate(live, expectedSnapshot())
	require.NoError(t, err)

	require.Contains(t, report.Modified, "users")
	details := report.Modified["users"]
	assert.Contains(t, details,
		`table definition mismatch: expected "DEFINE TABLE users SCHEMAFULL", live "DEFINE TABLE users SCHEMALESS"`)
	assert.Contains(t, details,
		`field "name" mismatch: expected "DEFINE FIELD name ON TABLE users TYPE string", live "DEFINE FIELD name ON TABLE users TYPE option<string>"`)
}

func TestValidateDetectsEdgeDeviations(t *testing.T) {
	expected := expectedSnapshot()
	follows := schema.NewEdgeSnapshot("follows", "DEFINE TABLE follows TYPE RELATION IN users OUT users")
	follows.From = []string{"users"}
	follows.To = []string{"users"}
	expected.AddEdge(follows)

	report, err := Validate(expectedSnapshot(), expected)
	require.NoError(t, err)
	assert.Equal(t, []string{"edge follows"}, report.Missing)
}

func TestValidateNilLiveTreatsDatabaseAsEmpty(t *testing.T) {
	report, err := Validate(nil, expectedSnapshot())
	require.NoError(t, err)
	assert.Equal(t, []string{"table users"}, report.Missing)
}
