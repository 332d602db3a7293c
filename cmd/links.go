package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/flashmemo/flashmemo/internal/utils"
	"github.com/flashmemo/flashmemo/pkg/linkurl"
	"github.com/flashmemo/flashmemo/pkg/storage"
)

// linksCmd represents the links command
var linksCmd = &cobra.Command{
	Use:   "links",
	Short: "List and manage saved links",
}

var linksListCmd = &cobra.Command{
	Use:   "list",
	Short: "List saved links",
	Example: `  flashmemo links list --unread --app yt
  flashmemo links list -q golang --tag shared --sort readingTime`,
	RunE: func(cmd *cobra.Command, args []string) error {
		user, err := currentUser()
		if err != nil {
			return err
		}
		opts, err := listOptionsFromFlags(cmd)
		if err != nil {
			return err
		}
		asJSON, _ := cmd.Flags().GetBool("json")

		db, _, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		links, err := db.ListLinks(context.Background(), user, opts)
		if err != nil {
			return err
		}

		if asJSON {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(links)
		}
		if len(links) == 0 {
			fmt.Println("No links found.")
			return nil
		}
		return printLinks(os.Stdout, links)
	},
}

func listOptionsFromFlags(cmd *cobra.Command) (storage.ListOptions, error) {
	query, _ := cmd.Flags().GetString("query")
	tags, _ := cmd.Flags().GetStringSlice("tag")
	app, _ := cmd.Flags().GetString("app")
	sortBy, _ := cmd.Flags().GetString("sort")
	limit, _ := cmd.Flags().GetInt("limit")
	read, _ := cmd.Flags().GetBool("read")
	unread, _ := cmd.Flags().GetBool("unread")

	if read && unread {
		return storage.ListOptions{}, fmt.Errorf("--read and --unread are mutually exclusive")
	}
	switch sortBy {
	case "", storage.SortNewest, storage.SortOldest, storage.SortTitle, storage.SortReadingTime:
	default:
		return storage.ListOptions{}, fmt.Errorf("unsupported sort %q. Available: newest, oldest, title, readingTime", sortBy)
	}

	opts := storage.ListOptions{Query: query, Tags: tags, SortBy: sortBy, Limit: limit}
	if app != "" {
		// Accept aliases such as "yt" or "twitter".
		opts.App = linkurl.ParseSourceApp(app).String()
	}
	if read || unread {
		opts.IsRead = &read
	}
	return opts, nil
}

func printLinks(out io.Writer, links []storage.Link) error {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tAPP\tREAD\tMIN\tTITLE\tURL")
	for _, l := range links {
		read := " "
		if l.IsRead {
			read = "x"
		}
		minutes := "-"
		if l.ReadingTime > 0 {
			minutes = fmt.Sprint(l.ReadingTime)
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n", l.ID, l.OriginalApp, read, minutes, truncate(l.Title, 50), l.URL)
	}
	return w.Flush()
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}

// setReadStatus marks each id read or unread.
func setReadStatus(cmd *cobra.Command, ids []string, read bool) error {
	user, err := currentUser()
	if err != nil {
		return err
	}
	db, path, err := openDB()
	if err != nil {
		return err
	}
	defer db.Close()

	return withWriteLock(path, func() error {
		for _, id := range ids {
			l, err := db.SetRead(cmd.Context(), user, id, read)
			if err != nil {
				return fmt.Errorf("%s: %w", id, err)
			}
			utils.Log.Infof("Marked %s as %s", l.URL, readLabel(l.IsRead))
		}
		return nil
	})
}

func readLabel(read bool) string {
	if read {
		return "read"
	}
	return "unread"
}

var linksReadCmd = &cobra.Command{
	Use:   "read <id>...",
	Short: "Mark links as read",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return setReadStatus(cmd, args, true)
	},
}

var linksUnreadCmd = &cobra.Command{
	Use:   "unread <id>...",
	Short: "Mark links as unread",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return setReadStatus(cmd, args, false)
	},
}

var linksToggleCmd = &cobra.Command{
	Use:   "toggle <id>",
	Short: "Flip the read status of a link",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		user, err := currentUser()
		if err != nil {
			return err
		}
		db, path, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		return withWriteLock(path, func() error {
			l, err := db.ToggleRead(cmd.Context(), user, args[0])
			if err != nil {
				return err
			}
			fmt.Printf("%s is now %s\n", l.URL, readLabel(l.IsRead))
			return nil
		})
	},
}

var linksDeleteCmd = &cobra.Command{
	Use:   "delete <id>...",
	Short: "Delete links",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		user, err := currentUser()
		if err != nil {
			return err
		}
		db, path, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		return withWriteLock(path, func() error {
			for _, id := range args {
				if err := db.DeleteLink(cmd.Context(), user, id); err != nil {
					return fmt.Errorf("%s: %w", id, err)
				}
				utils.Log.Infof("Deleted %s", id)
			}
			return nil
		})
	},
}

var linksUntagCmd = &cobra.Command{
	Use:   "untag <id> <tag>",
	Short: "Remove a tag from a link",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		user, err := currentUser()
		if err != nil {
			return err
		}
		db, path, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		return withWriteLock(path, func() error {
			return db.RemoveTag(cmd.Context(), user, args[0], args[1])
		})
	},
}

func init() {
	rootCmd.AddCommand(linksCmd)
	linksCmd.AddCommand(linksListCmd, linksReadCmd, linksUnreadCmd, linksToggleCmd, linksDeleteCmd, linksUntagCmd)

	linksListCmd.Flags().StringP("query", "q", "", "Search title, description and URL")
	linksListCmd.Flags().StringSlice("tag", nil, "Only links with any of these tags")
	linksListCmd.Flags().String("app", "", "Only links from this app (Instagram, X, YouTube, Web, Unknown)")
	linksListCmd.Flags().Bool("read", false, "Only read links")
	linksListCmd.Flags().Bool("unread", false, "Only unread links")
	linksListCmd.Flags().String("sort", storage.SortNewest, "Sort order: newest, oldest, title, readingTime")
	linksListCmd.Flags().Int("limit", 0, "Maximum number of links (0 for all)")
	linksListCmd.Flags().Bool("json", false, "Print links as JSON")
}
