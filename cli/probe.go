package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"ytinsight/youtube"
)

var (
	probeInput       string
	probeVerified    bool
	probeRecentAfter string
)

func init() {
	probeCmd.Flags().StringVarP(&probeInput, "input", "i", "", "File with one video or channel id per line")
	probeCmd.Flags().BoolVar(&probeVerified, "verified", false, "Treat ids as channels and report the verified badge")
	probeCmd.Flags().StringVar(&probeRecentAfter, "recent-after", "", "Only report videos uploaded after this date (YYYY-MM-DD)")
	rootCmd.AddCommand(probeCmd)
}

var probeCmd = &cobra.Command{
	Use:   "probe -i <ids.txt> [--verified | --recent-after <date>]",
	Short: "Check statistics availability or channel verification by scraping pages.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if probeVerified && probeRecentAfter != "" {
			return fmt.Errorf("--verified and --recent-after are mutually exclusive")
		}
		var after time.Time
		if probeRecentAfter != "" {
			t, err := time.Parse("2006-01-02", probeRecentAfter)
			if err != nil {
				return fmt.Errorf("--recent-after: %w", err)
			}
			after = t
		}

		ids, err := readInput(probeInput)
		if err != nil {
			return err
		}

		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.close()

		ctx := cmd.Context()
		p := youtube.NewProber(a.client, a.cfg.Session.Host, a.logger.WithComponent("probe"))
		out := cmd.OutOrStdout()
		for _, id := range ids {
			if err := ctx.Err(); err != nil {
				return err
			}
			var ok bool
			switch {
			case probeVerified:
				ok = p.IsVerified(ctx, id)
			case !after.IsZero():
				ok = p.IsRecentAvailable(ctx, id, after)
			default:
				ok = p.IsAvailable(ctx, id)
			}
			fmt.Fprintf(out, "%s\t%t\n", id, ok)
		}
		return nil
	},
}
