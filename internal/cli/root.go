// internal/cli/root.go
package cli

import (
	"context"
	"os"

	"github.com/spf13/cobra"

	"github.com/campaignpulse/pulse/internal/app"
	"github.com/campaignpulse/pulse/internal/config"
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "pulse",
	Short: "Collect engagement metrics for social media campaign posts",
	Long: `Pulse crawls campaign post URLs across Xiaohongshu, YouTube, Instagram,
Facebook and Dcard, and aggregates likes, comments, shares, favorites and
views into campaign reports.`,
	Version: "0.1.0",
}

// Execute runs the CLI. Called by main.main().
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	config.RegisterFlags(rootCmd)

	// Initialize the application lazily so -h/--help never starts anything.
	rootCmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		if GetApp() != nil {
			return nil
		}
		cfg, err := config.Load(cmd)
		if err != nil {
			return err
		}
		a, err := app.New(context.Background(), cfg)
		if err != nil {
			return err
		}
		SetApp(a)
		return nil
	}
}
