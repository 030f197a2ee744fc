package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/mirage-db/mirage/runner"
)

var generateCmd = &cobra.Command{
	Use:   "generate [name]",
	Short: "Generate a migration from the declared schema",
	Long: `Diff the declared schema against the latest snapshot and record a
new migration when something changed. Generating twice without a schema
change is a no-op.

Examples:
  mirage generate add_users
  mirage generate
`,
	Args: cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		name := "migration"
		if len(args) > 0 {
			name = args[0]
		}

		r, cfg, err := newRunner(context.Background(), false)
		if err != nil {
			fmt.Println("❌ Failed to load configuration:", err)
			os.Exit(1)
		}

		declared, err := loadDeclaredSchema(cfg)
		if err != nil {
			fmt.Println("❌ Error loading schema:", err)
			os.Exit(1)
		}

		result, err := r.Snapshot(name, declared)
		if err != nil {
			fmt.Println("❌ Generate failed:", err)
			os.Exit(1)
		}

		if result.State == runner.StateClean {
			fmt.Println("✅ No schema changes detected, nothing to generate")
			return
		}

		fmt.Println("✅ Created migration:", result.Entry)
		fmt.Printf("📝 %d statement(s) pending\n", result.Statements)
		fmt.Println("🚀 Run 'mirage migrate' to apply it")
	},
}
