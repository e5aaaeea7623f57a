// Command ytinsight crawls video metadata and historical analytics into
// newline-delimited JSON files.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

var (
	flagConfig      string
	flagMetricsAddr string
)

var rootCmd = &cobra.Command{
	Use:   "ytinsight",
	Short: "ytinsight collects metadata and historical statistics for videos and channels.",
	Long: `ytinsight collects metadata and historical statistics for videos and channels.

Examples:
  ytinsight videos -i video_ids.txt -o videos.json              # Metadata + insights
  ytinsight videos -i video_ids.txt -o videos.json --relevant   # Also related video ids
  ytinsight channels -i channel_ids.txt -o channels.json        # Uploaded video ids
  ytinsight probe -i video_ids.txt --recent-after 2016-12-31    # Statistics availability

Rerunning a command with the same output file skips ids it already holds.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagConfig, "config", "", "Path to a YAML config file (default ./ytinsight.yaml)")
	rootCmd.PersistentFlags().StringVar(&flagMetricsAddr, "metrics-addr", "", "Serve Prometheus metrics on this address, e.g. :9090")
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		stop()
		os.Exit(1)
	}
}
