package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show applied and pending migrations",
	Run: func(cmd *cobra.Command, args []string) {
		r, _, err := newRunner(context.Background(), false)
		if err != nil {
			fmt.Println("❌ Status error:", err)
			os.Exit(1)
		}

		status, err := r.Status()
		if err != nil {
			fmt.Println("❌ Status error:", err)
			os.Exit(1)
		}

		if len(status.Applied) == 0 && len(status.Pending) == 0 {
			fmt.Println("📋 No migrations found, run 'mirage generate' first")
			return
		}

		fmt.Println("✅ Applied migrations:")
		if len(status.Applied) == 0 {
			fmt.Println("   (none)")
		}
		for _, f := range status.Applied {
			if f == status.Head {
				fmt.Println("   -", f, "(head)")
			} else {
				fmt.Println("   -", f)
			}
		}

		fmt.Println("\n🕒 Pending migrations:")
		if len(status.Pending) == 0 {
			fmt.Println("   (none)")
		}
		for _, f := range status.Pending {
			fmt.Println("   -", f)
		}
	},
}
