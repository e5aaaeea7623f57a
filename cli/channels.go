package main

import (
	"github.com/spf13/cobra"

	"ytinsight/crawler"
	"ytinsight/storage"
)

var (
	channelsInput  string
	channelsOutput string
)

func init() {
	channelsCmd.Flags().StringVarP(&channelsInput, "input", "i", "", "File with one channel id per line")
	channelsCmd.Flags().StringVarP(&channelsOutput, "output", "o", "", "NDJSON output file, appended to and used for resuming")
	rootCmd.AddCommand(channelsCmd)
}

var channelsCmd = &cobra.Command{
	Use:   "channels -i <ids.txt> -o <out.json>",
	Short: "List the uploaded video ids of channels.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.close()

		ctx := cmd.Context()
		return a.crawlInto(ctx, channelsInput, channelsOutput, func(c *crawler.Crawler, ids []string, store storage.RecordStore) (crawler.Summary, error) {
			return c.RunChannels(ctx, ids, store)
		})
	},
}
