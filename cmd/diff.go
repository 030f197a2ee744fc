package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/mirage-db/mirage/diff"
	"github.com/mirage-db/mirage/generator"
	"github.com/mirage-db/mirage/schema"
)

var diffFormat string

var diffCmd = &cobra.Command{
	Use:   "diff",
	Short: "Show differences between the declared schema and the latest snapshot",
	Long: `Diff the declared schema against the newest recorded snapshot and
show what 'mirage generate' would capture.

Examples:
  mirage diff
  mirage diff --format json
  mirage diff --format yaml
`,
	Run: func(cmd *cobra.Command, args []string) {
		r, cfg, err := newRunner(context.Background(), false)
		if err != nil {
			fmt.Println("❌ Diff failed:", err)
			os.Exit(1)
		}

		declared, err := loadDeclaredSchema(cfg)
		if err != nil {
			fmt.Println("❌ Error loading schema:", err)
			os.Exit(1)
		}

		latest, err := r.History().Latest()
		if err != nil {
			fmt.Println("❌ Diff failed:", err)
			os.Exit(1)
		}
		var base *schema.SchemaSnapshot
		if latest != "" {
			if base, err = r.History().Load(latest); err != nil {
				fmt.Println("❌ Diff failed:", err)
				os.Exit(1)
			}
		}

		d, err := diff.Diff(base, declared)
		if err != nil {
			fmt.Println("❌ Diff failed:", err)
			os.Exit(1)
		}

		if d.IsEmpty() {
			fmt.Println("✅ No differences between declared schema and latest snapshot")
			return
		}

		switch diffFormat {
		case "json":
			data, err := json.MarshalIndent(d, "", "  ")
			if err != nil {
				fmt.Println("❌ Diff failed:", err)
				os.Exit(1)
			}
			fmt.Println(string(data))
		case "yaml":
			data, err := yaml.Marshal(d)
			if err != nil {
				fmt.Println("❌ Diff failed:", err)
				os.Exit(1)
			}
			fmt.Print(string(data))
		default:
			showTextDiff(d)
		}
	},
}

func showTextDiff(d *diff.SchemaDiff) {
	green := color.New(color.FgGreen, color.Bold)
	red := color.New(color.FgRed, color.Bold)
	yellow := color.New(color.FgYellow, color.Bold)

	fmt.Println("📋 Schema Changes")

	for _, name := range d.AddedTables {
		green.Printf("  ➕ ADD TABLE %s\n", name)
	}
	for _, name := range d.RemovedTables {
		red.Printf("  ❌ REMOVE TABLE %s\n", name)
	}
	for name := range d.ModifiedTables {
		yellow.Printf("  ⚡ MODIFY TABLE %s\n", name)
	}
	for _, name := range d.AddedEdges {
		green.Printf("  ➕ ADD EDGE %s\n", name)
	}
	for _, name := range d.RemovedEdges {
		red.Printf("  ❌ REMOVE EDGE %s\n", name)
	}
	for name := range d.ModifiedEdges {
		yellow.Printf("  ⚡ MODIFY EDGE %s\n", name)
	}

	stmts, err := generator.Statements(d)
	if err != nil {
		fmt.Println("❌ Diff failed:", err)
		os.Exit(1)
	}
	fmt.Printf("\n📝 Statements (%d):\n", len(stmts))
	for i, stmt := range stmts {
		fmt.Printf("%d. %s\n", i+1, stmt)
	}
}

func init() {
	diffCmd.Flags().StringVar(&diffFormat, "format", "text", "Output format: text, json or yaml")
}
