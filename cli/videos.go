package main

import (
	"github.com/spf13/cobra"

	"ytinsight/crawler"
	"ytinsight/storage"
)

var (
	videosInput    string
	videosOutput   string
	videosRelevant bool
)

func init() {
	videosCmd.Flags().StringVarP(&videosInput, "input", "i", "", "File with one video id per line")
	videosCmd.Flags().StringVarP(&videosOutput, "output", "o", "", "NDJSON output file, appended to and used for resuming")
	videosCmd.Flags().BoolVar(&videosRelevant, "relevant", false, "Add related video ids under relevantVideos")
	rootCmd.AddCommand(videosCmd)
}

var videosCmd = &cobra.Command{
	Use:   "videos -i <ids.txt> -o <out.json> [--relevant]",
	Short: "Fetch metadata and historical statistics for videos.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.close()

		ctx := cmd.Context()
		return a.crawlInto(ctx, videosInput, videosOutput, func(c *crawler.Crawler, ids []string, store storage.RecordStore) (crawler.Summary, error) {
			return c.RunVideos(ctx, ids, store, videosRelevant)
		})
	},
}
