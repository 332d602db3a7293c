package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/flashmemo/flashmemo/internal/server"
	"github.com/flashmemo/flashmemo/internal/utils"
	"github.com/flashmemo/flashmemo/pkg/intake"
	"github.com/flashmemo/flashmemo/pkg/unfurl"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the share and reading list HTTP API",
	RunE: func(cmd *cobra.Command, args []string) error {
		listen, _ := cmd.Flags().GetString("listen")
		if listen == "" {
			listen = viper.GetString("server.listen")
		}
		runUnfurl, _ := cmd.Flags().GetBool("unfurl")

		cfg := server.Config{
			Listen:       listen,
			Users:        viper.GetStringMapString("server.users"),
			DefaultOwner: viper.GetString("server.default_owner"),
		}
		if len(cfg.Users) == 0 && cfg.DefaultOwner == "" {
			cfg.DefaultOwner = viper.GetString("user")
		}

		db, _, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		opts := []intake.Option{intake.WithLogger(utils.Log)}
		if runUnfurl {
			f, err := newFetcher()
			if err != nil {
				return err
			}
			q := unfurl.NewQueue(db, f, unfurl.QueueOptions{
				Concurrency: viper.GetInt("unfurl.concurrency"),
				Log:         utils.Log,
			})
			defer q.Close()
			opts = append(opts, intake.WithEnqueuer(q))
		}

		s, err := server.New(cfg, db, intake.NewHandler(db, opts...))
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		return s.Start(ctx)
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().String("listen", "", "HTTP listen address (default from config 'server.listen')")
	serveCmd.Flags().Bool("unfurl", false, "Fetch link metadata in the background after each share")
}
