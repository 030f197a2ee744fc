package cmd

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mirage-db/mirage/schema"
)

var docsOutput string

var docsCmd = &cobra.Command{
	Use:   "docs",
	Short: "Render the declared schema as markdown documentation",
	Long: `Render the declared schema into a markdown document listing every
table, edge, field, index and event with its definition.

Examples:
  mirage docs
  mirage docs --output SCHEMA.md
`,
	Run: func(cmd *cobra.Command, args []string) {
		_, cfg, err := newRunner(context.Background(), false)
		if err != nil {
			fmt.Println("❌ Docs failed:", err)
			os.Exit(1)
		}

		declared, err := loadDeclaredSchema(cfg)
		if err != nil {
			fmt.Println("❌ Error loading schema:", err)
			os.Exit(1)
		}

		doc := renderSchemaDocs(declared)

		if docsOutput == "" {
			fmt.Print(doc)
			return
		}
		if err := os.WriteFile(docsOutput, []byte(doc), 0644); err != nil {
			fmt.Println("❌ Error writing docs:", err)
			os.Exit(1)
		}
		fmt.Println("✅ Wrote schema documentation to", docsOutput)
	},
}

func renderSchemaDocs(s *schema.SchemaSnapshot) string {
	var b strings.Builder

	b.WriteString("# Database Schema\n\n")
	if s.Checksum != "" {
		fmt.Fprintf(&b, "Checksum: `%s`\n\n", s.Checksum)
	}

	if len(s.Tables) > 0 {
		b.WriteString("## Tables\n")
		for _, name := range s.TableNames() {
			table := s.Tables[name]
			fmt.Fprintf(&b, "\n### %s\n\n", name)
			fmt.Fprintf(&b, "```surql\n%s\n```\n", table.Definition)
			renderSubEntityDocs(&b, table.Columns, table.Indexes, table.Events)
		}
	}

	if len(s.Edges) > 0 {
		b.WriteString("\n## Edges\n")
		for _, name := range s.EdgeNames() {
			edge := s.Edges[name]
			fmt.Fprintf(&b, "\n### %s\n\n", name)
			if len(edge.From) > 0 || len(edge.To) > 0 {
				fmt.Fprintf(&b, "Relates `%s` to `%s`.\n\n",
					strings.Join(edge.From, "|"), strings.Join(edge.To, "|"))
			}
			fmt.Fprintf(&b, "```surql\n%s\n```\n", edge.Definition)
			renderSubEntityDocs(&b, edge.Columns, edge.Indexes, edge.Events)
		}
	}

	return b.String()
}

func renderSubEntityDocs(b *strings.Builder,
	cols map[string]schema.ColumnSnapshot,
	idxs map[string]schema.IndexSnapshot,
	evts map[string]schema.EventSnapshot) {

	if len(cols) > 0 {
		b.WriteString("\nFields:\n\n")
		for _, name := range schema.SortedColumnNames(cols) {
			fmt.Fprintf(b, "- `%s`: `%s`\n", name, cols[name].Definition)
		}
	}
	if len(idxs) > 0 {
		b.WriteString("\nIndexes:\n\n")
		for _, name := range schema.SortedIndexNames(idxs) {
			fmt.Fprintf(b, "- `%s`: `%s`\n", name, idxs[name].Definition)
		}
	}
	if len(evts) > 0 {
		b.WriteString("\nEvents:\n\n")
		for _, name := range schema.SortedEventNames(evts) {
			fmt.Fprintf(b, "- `%s`: `%s`\n", name, evts[name].Definition)
		}
	}
}

func init() {
	docsCmd.Flags().StringVarP(&docsOutput, "output", "o", "", "Write documentation to a file instead of stdout")
}
