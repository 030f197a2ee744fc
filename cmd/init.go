package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/mirage-db/mirage/utils"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize a new mirage project",
	Long: `Initialize a new mirage project in the current directory.

Creates:
- mirage.yaml with connection settings
- a migrations directory for generated snapshots
- a schema.json example describing your tables and edges

Examples:
  mirage init
`,
	Run: func(cmd *cobra.Command, args []string) {
		cfg, err := utils.LoadConfig()
		if err != nil {
			fmt.Println("❌ Failed to load configuration:", err)
			os.Exit(1)
		}

		if _, err := os.Stat("mirage.yaml"); err == nil {
			fmt.Println("❌ mirage.yaml already exists!")
			return
		}

		configContent := `# mirage configuration
endpoint: ws://localhost:8000/rpc
namespace: test
database: test
# username: root
# password: root
migrations_dir: migrations
schema_file: schema.json
`
		if err := os.WriteFile("mirage.yaml", []byte(configContent), 0644); err != nil {
			fmt.Println("❌ Error creating mirage.yaml:", err)
			return
		}

		if err := os.MkdirAll(cfg.MigrationsDir, 0755); err != nil {
			fmt.Println("❌ Failed to create migrations directory:", err)
			return
		}

		if _, err := os.Stat(cfg.SchemaFile); err == nil {
			fmt.Println("ℹ️  schema.json already exists, keeping it")
		} else {
			schemaContent := `{
  "tables": {
    "users": {
      "name": "users",
      "definition": "DEFINE TABLE users SCHEMAFULL",
      "columns": {
        "id": {
          "name": "id",
          "definition": "DEFINE FIELD id ON TABLE users TYPE string"
        },
        "name": {
          "name": "name",
          "definition": "DEFINE FIELD name ON TABLE users TYPE string"
        }
      },
      "indexes": {},
      "events": {}
    }
  },
  "edges": {}
}
`
			if err := os.WriteFile(cfg.SchemaFile, []byte(schemaContent), 0644); err != nil {
				fmt.Println("❌ Error creating schema.json:", err)
				return
			}
		}

		fmt.Println("✅ Project initialized successfully!")
		fmt.Println("📁 Migrations directory:", cfg.MigrationsDir)
		fmt.Println("📝 Edit", cfg.SchemaFile, "to describe your tables and edges")
		fmt.Println("🚀 Run 'mirage generate <name>' to create your first migration")
	},
}
