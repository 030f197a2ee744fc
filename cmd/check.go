package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

var (
	checkFormat  string
	checkTimeout time.Duration
)

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Check the live database for schema drift",
	Long: `Validate the live database schema against the last applied
snapshot and report every deviation. Exits non-zero when the database has
drifted, so the command works as a CI gate.

Examples:
  mirage check
  mirage check --format json
  mirage check --timeout 30s
`,
	Run: func(cmd *cobra.Command, args []string) {
		ctx, cancel := context.WithTimeout(context.Background(), checkTimeout)
		defer cancel()

		r, _, err := newRunner(ctx, true)
		if err != nil {
			fmt.Println("❌ Check failed:", err)
			os.Exit(1)
		}

		report, err := r.Validate(ctx)
		if err != nil {
			fmt.Println("❌ Check failed:", err)
			os.Exit(1)
		}

		switch checkFormat {
		case "json":
			data, err := json.MarshalIndent(report, "", "  ")
			if err != nil {
				fmt.Println("❌ Check failed:", err)
				os.Exit(1)
			}
			fmt.Println(string(data))
		case "yaml":
			data, err := yaml.Marshal(report)
			if err != nil {
				fmt.Println("❌ Check failed:", err)
				os.Exit(1)
			}
			fmt.Print(string(data))
		default:
			if report.HasIssues() {
				color.Red("❌ Schema drift detected!")
				for _, line := range report.Summary() {
					fmt.Println("   ", line)
				}
			} else {
				color.Green("✅ Live database matches the applied snapshot")
			}
		}

		if report.HasIssues() {
			os.Exit(1)
		}
	},
}

func init() {
	checkCmd.Flags().StringVar(&checkFormat, "format", "text", "Output format: text, json or yaml")
	checkCmd.Flags().DurationVarP(&checkTimeout, "timeout", "t", 10*time.Second, "Timeout for the drift check")
}
