package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var (
	rollbackSteps  int
	forceRollback  bool
	dryRunRollback bool
)

var rollbackCmd = &cobra.Command{
	Use:   "rollback",
	Short: "Roll back applied migrations",
	Long: `Undo the most recently applied migration by executing its reverse
statements, then move the history head backward. Use --steps to roll back
several migrations in one run.

Examples:
  mirage rollback
  mirage rollback --steps 2
  mirage rollback --dry-run
`,
	Run: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()

		r, _, err := newRunner(ctx, !dryRunRollback)
		if err != nil {
			fmt.Println("❌ Rollback failed:", err)
			os.Exit(1)
		}

		for step := 0; step < rollbackSteps; step++ {
			head, err := r.History().Head()
			if err != nil {
				fmt.Println("❌ Rollback failed:", err)
				os.Exit(1)
			}
			if head == "" {
				if step == 0 {
					fmt.Println("✅ No applied migrations to roll back")
				} else {
					fmt.Println("ℹ️  History is empty, stopping early")
				}
				return
			}

			if dryRunRollback {
				stmts, err := r.RollbackPlan(head)
				if err != nil {
					fmt.Println("❌ Dry run failed:", err)
					os.Exit(1)
				}
				fmt.Printf("🔍 Would roll back %s (%d statements):\n", head, len(stmts))
				for i, stmt := range stmts {
					fmt.Printf("%d. %s\n", i+1, stmt)
				}
				// Without executing, the head stays put; only one preview
				// per run makes sense.
				return
			}

			report, err := r.Rollback(ctx, head, forceRollback)
			if err != nil {
				reportRunFailure("Rollback", report, err)
				os.Exit(1)
			}
			if report.Drift != nil {
				color.Yellow("⚠️  Drift overridden for %s:", head)
				for _, line := range report.Drift.Summary() {
					fmt.Println("   ", line)
				}
			}
			fmt.Printf("✅ Rolled back %s (%d statements)\n", head, report.Executed)
		}
	},
}

func init() {
	rollbackCmd.Flags().IntVar(&rollbackSteps, "steps", 1, "Number of migrations to roll back")
	rollbackCmd.Flags().BoolVar(&forceRollback, "force", false, "Roll back even when the live database has drifted")
	rollbackCmd.Flags().BoolVar(&dryRunRollback, "dry-run", false, "Preview the statements without executing them")
}
