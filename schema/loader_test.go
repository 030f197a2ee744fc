package schema

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "schema.json")
	content := `{
  "tables": {
    "users": {
      "name": "users",
      "definition": "DEFINE TABLE users SCHEMAFULL",
      "columns": {
        "id": {"name": "id", "definition": "DEFINE FIELD id ON TABLE users TYPE string"}
      }
    }
  }
}`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	s, err := LoadFile(path)
	require.NoError(t, err)

	assert.Equal(t, []string{"users"}, s.TableNames())
	assert.NotEmpty(t, s.Checksum)
	// Omitted maps come back empty, not nil.
	assert.NotNil(t, s.Tables["users"].Indexes)
	assert.NotNil(t, s.Edges)
}

func TestLoadFileRejectsDanglingEdges(t *testing.T) {
	path := filepath.Join(t.TempDir(), "schema.json")
	content := `{
  "edges": {
    "owns": {
      "name": "owns",
      "definition": "DEFINE TABLE owns TYPE RELATION IN users OUT orders",
      "from": ["users"],
      "to": ["orders"]
    }
  }
}`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	_, err := LoadFile(path)
	require.Error(t, err)
}

func TestLoadFileMissing(t *testing.T) {
	_, err := LoadFile(filepath.Join(t.TempDir(), "nope.json"))
	require.Error(t, err)
}
