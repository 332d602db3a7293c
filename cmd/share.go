package cmd

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/flashmemo/flashmemo/internal/utils"
	"github.com/flashmemo/flashmemo/pkg/intake"
	"github.com/flashmemo/flashmemo/pkg/unfurl"
)

// shareCmd runs the share intake on a string shared by another app.
var shareCmd = &cobra.Command{
	Use:   "share <raw>",
	Short: "Save a shared link",
	Long: `Processes a string shared by another application the same way the share target does:
development URLs are ignored, the link is extracted from url/text parameters, app links are
rewritten to web URLs, and the result is saved for the current user. A bare link (a web URL
or an app link such as instagram://media?id=...) is saved as is.`,
	Example: `  flashmemo share "flashmemo://share?url=https%3A%2F%2Fexample.com%2Farticle"
  flashmemo share "instagram://media?id=CxYz" --unfurl`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		user, err := currentUser()
		if err != nil {
			return err
		}
		tags, _ := cmd.Flags().GetStringSlice("tags")
		fetchNow, _ := cmd.Flags().GetBool("unfurl")

		db, path, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		opts := []intake.Option{intake.WithLogger(utils.Log)}
		if len(tags) > 0 {
			opts = append(opts, intake.WithTags(tags...))
		}
		h := intake.NewHandler(db, opts...)

		var res intake.Result
		err = withWriteLock(path, func() error {
			var herr error
			res, herr = h.Handle(context.Background(), user, intake.PayloadFor(args[0]))
			if herr != nil || !fetchNow {
				return herr
			}
			f, ferr := newFetcher()
			if ferr != nil {
				return ferr
			}
			if perr := unfurl.Process(context.Background(), db, f, res.Link.ID, utils.Log); perr != nil {
				utils.Log.Warnf("Could not fetch metadata: %v", perr)
			}
			return nil
		})

		switch {
		case errors.Is(err, intake.ErrDevelopmentURL):
			utils.Log.Info("Ignored development URL")
			return nil
		case errors.Is(err, intake.ErrNoValidLink):
			return fmt.Errorf("%s in %q", res.Message, args[0])
		case err != nil:
			return err
		}

		fmt.Printf("%s: %s [%s] (%s)\n", res.Message, res.Link.URL, res.App, strings.Join(res.Link.Tags, ","))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(shareCmd)
	shareCmd.Flags().StringSlice("tags", nil, "Tags to attach instead of the default 'shared'")
	shareCmd.Flags().Bool("unfurl", false, "Fetch the page title and metadata right away")
}
