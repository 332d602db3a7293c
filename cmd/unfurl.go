package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/flashmemo/flashmemo/internal/utils"
	"github.com/flashmemo/flashmemo/pkg/unfurl"
)

// newFetcher builds the metadata fetcher from the unfurl.* config keys.
func newFetcher() (*unfurl.Fetcher, error) {
	return unfurl.NewFetcher(unfurl.Config{
		UserAgent:      viper.GetString("unfurl.user_agent"),
		Timeout:        viper.GetDuration("unfurl.timeout"),
		RetryMax:       viper.GetInt("unfurl.retries"),
		Proxy:          viper.GetString("unfurl.proxy"),
		OEmbedEndpoint: viper.GetString("unfurl.oembed_endpoint"),
	})
}

// unfurlCmd enriches links that have no metadata yet.
var unfurlCmd = &cobra.Command{
	Use:   "unfurl",
	Short: "Fetch title, description, thumbnail and reading time for pending links",
	RunE: func(cmd *cobra.Command, args []string) error {
		concurrency, _ := cmd.Flags().GetInt("concurrency")
		if concurrency <= 0 {
			concurrency = viper.GetInt("unfurl.concurrency")
		}
		limit, _ := cmd.Flags().GetInt("limit")

		f, err := newFetcher()
		if err != nil {
			return err
		}
		db, path, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		var summary *unfurl.Summary
		err = withWriteLock(path, func() error {
			var rerr error
			summary, rerr = unfurl.RunPending(context.Background(), db, f, concurrency, limit, utils.Log)
			return rerr
		})
		if err != nil {
			return err
		}

		for _, e := range summary.Errors {
			utils.Log.Debugf("unfurl error: %v", e)
		}
		fmt.Printf("Processed %d links (%d failed)\n", summary.Processed, summary.Failed)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(unfurlCmd)
	unfurlCmd.Flags().IntP("concurrency", "c", 0, "Number of concurrent fetches (default from config 'unfurl.concurrency')")
	unfurlCmd.Flags().Int("limit", 50, "Maximum number of links to process")
}
