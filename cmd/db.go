package cmd

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/flashmemo/flashmemo/internal/utils"
	"github.com/flashmemo/flashmemo/pkg/storage"
)

// dbCmd represents the db command
var dbCmd = &cobra.Command{
	Use:   "db",
	Short: "Interact with the flashmemo database",
}

// openDB opens the configured database, creating its directory on first use.
func openDB() (*storage.DB, string, error) {
	path, err := utils.EnsureDBDir(viper.GetString("db.path"))
	if err != nil {
		return nil, "", err
	}
	db, err := storage.Open(path)
	if err != nil {
		return nil, "", fmt.Errorf("could not open database %s: %w", path, err)
	}
	return db, path, nil
}

// withWriteLock runs fn holding the database file lock so concurrent CLI
// invocations do not interleave writes.
func withWriteLock(path string, fn func() error) error {
	lock, err := utils.NewDBLock(path)
	if err != nil {
		return err
	}
	if err := lock.Lock(); err != nil {
		return err
	}
	defer func() {
		if err := lock.Unlock(); err != nil {
			utils.Log.Warnf("Could not release database lock: %v", err)
		}
	}()
	return fn()
}

// shellCmd represents the shell command
var shellCmd = &cobra.Command{
	Use:   "shell",
	Short: "Start an interactive shell to the database",
	RunE: func(cmd *cobra.Command, args []string) error {
		dbPath, err := utils.GetAbsDBPath(viper.GetString("db.path"))
		if err != nil {
			return err
		}

		if _, err := os.Stat(dbPath); os.IsNotExist(err) {
			return fmt.Errorf("database file not found: %s", dbPath)
		}

		// Check if sqlite3 is in PATH
		sqlitePath, err := exec.LookPath("sqlite3")
		if err != nil {
			return fmt.Errorf("sqlite3 command not found in your PATH. Please install it to use the db shell")
		}

		// Print schema first
		fmt.Println("--> Database schema:")
		schemaCmd := exec.Command(sqlitePath, dbPath, ".schema")
		schemaCmd.Stdout = os.Stdout
		schemaCmd.Stderr = os.Stderr
		if err := schemaCmd.Run(); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: couldn't retrieve schema: %v\n", err)
		}
		fmt.Println("\n--> Starting interactive shell... (Ctrl+D to exit)")

		c := exec.Command(sqlitePath, dbPath)
		c.Stdin = os.Stdin
		c.Stdout = os.Stdout
		c.Stderr = os.Stderr

		return c.Run()
	},
}

// statsCmd represents the stats command
var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Prints how many links were saved from each app.",
	RunE: func(cmd *cobra.Command, args []string) error {
		user, err := currentUser()
		if err != nil {
			return err
		}
		db, _, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		stats, err := db.GetStats(context.Background(), user)
		if err != nil {
			return err
		}

		if len(stats) == 0 {
			fmt.Println("No links saved yet.")
			return nil
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 3, ' ', tabwriter.AlignRight)
		writeStats(w, stats)
		return w.Flush()
	},
}

func writeStats(w *tabwriter.Writer, stats []storage.AppStats) {
	fmt.Fprintln(w, "APP\tLINKS\tUNREAD\t")

	var total, unread int
	for _, s := range stats {
		fmt.Fprintf(w, "%s\t%d\t%d\t\n", s.App, s.Total, s.Unread)
		total += s.Total
		unread += s.Unread
	}

	fmt.Fprintln(w, " \t \t \t")
	fmt.Fprintf(w, "TOTAL\t%d\t%d\t\n", total, unread)
}

// tagsCmd lists the user's tags
var tagsCmd = &cobra.Command{
	Use:   "tags",
	Short: "Lists tags, most used first",
	RunE: func(cmd *cobra.Command, args []string) error {
		user, err := currentUser()
		if err != nil {
			return err
		}
		db, _, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		tags, err := db.ListTags(context.Background(), user)
		if err != nil {
			return err
		}
		limit, _ := cmd.Flags().GetInt("limit")
		if limit > 0 && len(tags) > limit {
			tags = tags[:limit]
		}
		for _, t := range tags {
			fmt.Printf("%s %d\n", t.Tag, t.Count)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(dbCmd)
	dbCmd.AddCommand(shellCmd)
	dbCmd.AddCommand(statsCmd)
	dbCmd.AddCommand(tagsCmd)
	tagsCmd.Flags().Int("limit", 0, "Only print the N most used tags (0 for all)")
}
