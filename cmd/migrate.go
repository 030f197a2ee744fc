package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/mirage-db/mirage/runner"
)

var (
	dryRunMigrate bool
	forceMigrate  bool
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply pending migrations",
	Long: `Apply every pending migration in order. Before each migration the
live database is validated against the preceding snapshot; detected drift
aborts the run unless --force is set.

Examples:
  mirage migrate
  mirage migrate --dry-run
  mirage migrate --force
`,
	Run: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()

		r, _, err := newRunner(ctx, !dryRunMigrate)
		if err != nil {
			fmt.Println("❌ Migration failed:", err)
			os.Exit(1)
		}

		pending, err := r.History().Pending()
		if err != nil {
			fmt.Println("❌ Migration failed:", err)
			os.Exit(1)
		}
		if len(pending) == 0 {
			fmt.Println("✅ No pending migrations")
			return
		}

		if dryRunMigrate {
			previewMigrations(r, pending)
			return
		}

		for _, entry := range pending {
			report, err := r.Apply(ctx, entry, forceMigrate)
			if err != nil {
				reportRunFailure("Migration", report, err)
				os.Exit(1)
			}
			if report.Drift != nil {
				color.Yellow("⚠️  Drift overridden for %s:", entry)
				for _, line := range report.Drift.Summary() {
					fmt.Println("   ", line)
				}
			}
			fmt.Printf("✅ Applied %s (%d statements)\n", entry, report.Executed)
		}
	},
}

func previewMigrations(r *runner.Runner, pending []string) {
	fmt.Println("🔍 Dry run, nothing will be executed")
	for _, entry := range pending {
		stmts, err := r.Plan(entry)
		if err != nil {
			fmt.Println("❌ Dry run failed:", err)
			os.Exit(1)
		}
		fmt.Printf("\n📋 %s (%d statements):\n", entry, len(stmts))
		for i, stmt := range stmts {
			fmt.Printf("%d. %s\n", i+1, stmt)
		}
	}
}

func reportRunFailure(verb string, report *runner.RunReport, err error) {
	var drift *runner.DriftError
	if errors.As(err, &drift) {
		color.Red("❌ %s aborted: schema drift detected", verb)
		for _, line := range drift.Report.Summary() {
			fmt.Println("   ", line)
		}
		fmt.Println("ℹ️  Re-run with --force to override")
		return
	}

	var exec *runner.ExecutionError
	if errors.As(err, &exec) {
		color.Red("❌ %s failed at statement %d of %d", verb, exec.Index, report.Total)
		fmt.Println("   ", exec.Statement)
		fmt.Println("   ", exec.Err)
		fmt.Println("ℹ️  The history head was not moved; fix the statement or roll back manually")
		return
	}

	fmt.Printf("❌ %s failed: %v\n", verb, err)
}

func init() {
	migrateCmd.Flags().BoolVar(&dryRunMigrate, "dry-run", false, "Preview the statements that would be executed without applying them")
	migrateCmd.Flags().BoolVar(&forceMigrate, "force", false, "Apply even when the live database has drifted")
}
