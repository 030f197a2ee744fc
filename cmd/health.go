package cmd

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/mirage-db/mirage/database"
)

var healthTimeout time.Duration

var healthCmd = &cobra.Command{
	Use:   "health",
	Short: "Check database connectivity and migration state",
	Long: `Verify the configured SurrealDB endpoint is reachable and report
where the migration history stands.

Examples:
  mirage health
  mirage health --timeout 30s
`,
	Run: func(cmd *cobra.Command, args []string) {
		ctx, cancel := context.WithTimeout(context.Background(), healthTimeout)
		defer cancel()

		r, cfg, err := newRunner(ctx, true)
		if err != nil {
			fmt.Println("❌ Health check failed:", err)
			os.Exit(1)
		}

		session, err := database.Connect(ctx)
		if err != nil {
			fmt.Println("❌ Health check failed:", err)
			os.Exit(1)
		}
		if err := session.Ping(ctx); err != nil {
			fmt.Printf("❌ Cannot reach %s: %v\n", cfg.Endpoint, err)
			os.Exit(1)
		}
		fmt.Printf("✅ Connected to %s (%s/%s)\n", cfg.Endpoint, cfg.Namespace, cfg.Database)

		entries, err := r.History().Entries()
		if err != nil {
			fmt.Println("❌ Health check failed:", err)
			os.Exit(1)
		}
		pending, err := r.History().Pending()
		if err != nil {
			fmt.Println("❌ Health check failed:", err)
			os.Exit(1)
		}
		fmt.Printf("📊 %d snapshot(s) recorded, %d pending\n", len(entries), len(pending))

		report, err := r.Validate(ctx)
		if err != nil {
			fmt.Println("❌ Health check failed:", err)
			os.Exit(1)
		}
		if report.HasIssues() {
			fmt.Println("⚠️  Live schema has drifted, run 'mirage check' for details")
			return
		}
		fmt.Println("✅ Live schema matches the applied snapshot")
	},
}

func init() {
	healthCmd.Flags().DurationVarP(&healthTimeout, "timeout", "t", 10*time.Second, "Timeout for the health check")
}
