// internal/cli/crawl.go
package cli

import (
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/campaignpulse/pulse/internal/report"
	"github.com/campaignpulse/pulse/internal/urlparse"
	"github.com/campaignpulse/pulse/pkg/models"
)

var (
	crawlFile string
	crawlCSV  string
)

// crawlCmd crawls one or more post URLs and writes a report.
var crawlCmd = &cobra.Command{
	Use:   "crawl [url...]",
	Short: "Crawl engagement metrics for post URLs",
	Long: `Crawl one or more post URLs and report their engagement metrics.

URLs can be given as arguments, read from a text file (one per line,
# comments allowed) or from a CSV with a URL column. Posts are crawled
strictly one at a time, in input order, with a politeness delay between
requests.`,
	Example: `  # Crawl two posts
  $ pulse crawl https://www.dcard.tw/f/mood/p/256688912 https://youtu.be/dQw4w9WgXcQ

  # Crawl a campaign batch from a file, write JSON
  $ pulse crawl --file batch.txt --format json --output report.json`,
	RunE: runCrawl,
}

func init() {
	rootCmd.AddCommand(crawlCmd)
	crawlCmd.Flags().StringVarP(&crawlFile, "file", "f", "", "Read URLs from a text file, one per line")
	crawlCmd.Flags().StringVar(&crawlCSV, "csv", "", "Read URLs from a CSV file")
	crawlCmd.Flags().String("format", "", "Output format: markdown, json, csv or html")
	crawlCmd.Flags().StringP("output", "o", "", "Write the report to a file instead of stdout")
	crawlCmd.Flags().Int("max-comments", 0, "Maximum sampled comments to keep per post")
}

func runCrawl(cmd *cobra.Command, args []string) error {
	a := GetApp()

	refs, skipped, err := collectRefs(args)
	if err != nil {
		return err
	}
	for _, s := range skipped {
		fmt.Fprintf(os.Stderr, "skipping unsupported URL: %s\n", s)
	}
	if len(refs) == 0 {
		return fmt.Errorf("no crawlable URLs given")
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	results := a.Runner.CrawlMany(ctx, refs)
	rep := report.Build(results)

	out, cleanup, err := openOutput(cmd)
	if err != nil {
		return err
	}
	defer cleanup()

	return writeReport(rep, outputFormat(cmd, a.Config.OutputFormat), out)
}

// collectRefs merges URLs from arguments and input files, preserving order:
// file entries first, then CSV entries, then arguments.
func collectRefs(args []string) (refs []models.PostReference, skipped []string, err error) {
	if crawlFile != "" {
		f, err := os.Open(crawlFile)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open URL file: %w", err)
		}
		fileRefs, fileSkipped, perr := urlparse.ParseLines(f)
		f.Close()
		if perr != nil {
			return nil, nil, perr
		}
		refs = append(refs, fileRefs...)
		skipped = append(skipped, fileSkipped...)
	}
	if crawlCSV != "" {
		f, err := os.Open(crawlCSV)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open CSV file: %w", err)
		}
		csvRefs, csvSkipped, perr := urlparse.ParseCSV(f)
		f.Close()
		if perr != nil {
			return nil, nil, perr
		}
		refs = append(refs, csvRefs...)
		skipped = append(skipped, csvSkipped...)
	}
	for _, arg := range args {
		ref, perr := urlparse.Parse(arg)
		if perr != nil {
			skipped = append(skipped, arg)
			continue
		}
		refs = append(refs, ref)
	}
	return refs, skipped, nil
}

func outputFormat(cmd *cobra.Command, fallback string) string {
	if f := cmd.Flags().Lookup("format"); f != nil && f.Changed {
		return strings.ToLower(f.Value.String())
	}
	return fallback
}

func openOutput(cmd *cobra.Command) (io.Writer, func(), error) {
	path := ""
	if f := cmd.Flags().Lookup("output"); f != nil {
		path = f.Value.String()
	}
	if path == "" {
		return os.Stdout, func() {}, nil
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create output file: %w", err)
	}
	return f, func() { f.Close() }, nil
}

func writeReport(rep *report.CampaignReport, format string, w io.Writer) error {
	switch format {
	case "json":
		return rep.WriteJSON(w)
	case "csv":
		return rep.WriteCSV(w)
	case "html":
		return rep.WriteCharts(w)
	case "markdown", "":
		return rep.WriteMarkdown(w)
	}
	return fmt.Errorf("unsupported output format %q", format)
}
