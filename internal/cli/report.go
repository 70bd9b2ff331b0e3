// internal/cli/report.go
package cli

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/campaignpulse/pulse/internal/report"
)

// reportCmd re-renders a previously saved JSON report in another format.
var reportCmd = &cobra.Command{
	Use:   "report <report.json>",
	Short: "Re-render a saved JSON report",
	Long: `Render a report previously saved with "pulse crawl --format json" into
markdown, CSV or an HTML chart page, without crawling again.`,
	Example: `  $ pulse report campaign.json --format html --output campaign.html`,
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a := GetApp()

		f, err := os.Open(args[0])
		if err != nil {
			return fmt.Errorf("failed to open report file: %w", err)
		}
		defer f.Close()

		var rep report.CampaignReport
		if err := json.NewDecoder(f).Decode(&rep); err != nil {
			return fmt.Errorf("failed to parse report file: %w", err)
		}

		out, cleanup, err := openOutput(cmd)
		if err != nil {
			return err
		}
		defer cleanup()

		return writeReport(&rep, outputFormat(cmd, a.Config.OutputFormat), out)
	},
}

func init() {
	rootCmd.AddCommand(reportCmd)
	reportCmd.Flags().String("format", "", "Output format: markdown, json, csv or html")
	reportCmd.Flags().StringP("output", "o", "", "Write the report to a file instead of stdout")
}
