package cmd

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var historyLimit int

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show recorded migration snapshots",
	Long: `List every recorded snapshot with its checksum and applied state.

Examples:
  mirage history
  mirage history --limit 10
`,
	Run: func(cmd *cobra.Command, args []string) {
		r, _, err := newRunner(context.Background(), false)
		if err != nil {
			fmt.Println("❌ History error:", err)
			os.Exit(1)
		}

		entries, err := r.History().Entries()
		if err != nil {
			fmt.Println("❌ History error:", err)
			os.Exit(1)
		}
		head, err := r.History().Head()
		if err != nil {
			fmt.Println("❌ History error:", err)
			os.Exit(1)
		}

		if len(entries) == 0 {
			fmt.Println("📋 No migration history found")
			return
		}

		pending, err := r.History().Pending()
		if err != nil {
			fmt.Println("❌ History error:", err)
			os.Exit(1)
		}
		isPending := make(map[string]bool, len(pending))
		for _, entry := range pending {
			isPending[entry] = true
		}

		if historyLimit > 0 && len(entries) > historyLimit {
			entries = entries[len(entries)-historyLimit:]
		}

		green := color.New(color.FgGreen, color.Bold)
		yellow := color.New(color.FgYellow, color.Bold)

		fmt.Println("📋 Migration History")
		fmt.Println(strings.Repeat("=", 60))

		for i, entry := range entries {
			snapshot, err := r.History().Load(entry)
			if err != nil {
				fmt.Println("❌ History error:", err)
				os.Exit(1)
			}

			var status string
			if isPending[entry] {
				status = yellow.Sprint("🕒 pending")
			} else {
				status = green.Sprint("✅ applied")
			}
			marker := ""
			if entry == head {
				marker = " (head)"
			}

			checksum := snapshot.Checksum
			if len(checksum) > 8 {
				checksum = checksum[:8] + "..."
			}

			fmt.Printf("%d. %s  %s%s\n", i+1, status, entry, marker)
			fmt.Printf("   🔍 Checksum: %s\n", checksum)
			fmt.Printf("   📊 Tables: %d, Edges: %d\n", len(snapshot.Tables), len(snapshot.Edges))
		}

		if head == "" {
			fmt.Println("\nℹ️  Nothing applied yet, run 'mirage migrate'")
		}
	},
}

func init() {
	historyCmd.Flags().IntVarP(&historyLimit, "limit", "l", 0, "Limit number of entries to show (0 = all)")
}
