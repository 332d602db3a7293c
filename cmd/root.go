package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/flashmemo/flashmemo/internal/utils"

	homedir "github.com/mitchellh/go-homedir"
	"github.com/spf13/viper"
)

var cfgFile string

const (
	LOGO = `	  __ _           _
	 / _| | __ _ ___| |__  _ __ ___   ___ _ __ ___   ___
	| |_| |/ _' / __| '_ \| '_ ' _ \ / _ \ '_ ' _ \ / _ \
	|  _| | (_| \__ \ | | | | | | | |  __/ | | | | | (_) |
	|_| |_|\__,_|___/_| |_|_| |_| |_|\___|_| |_| |_|\___/

`
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "flashmemo",
	Short: "Save links shared from other apps and read them later.",
	Long: LOGO + `flashmemo collects links shared from Instagram, X, YouTube and the web,
turns app links into canonical web URLs, and keeps them in a local reading list.`,
	CompletionOptions: cobra.CompletionOptions{
		DisableDefaultCmd: true,
	},
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.flashmemo.yaml)")

	// Global flags
	rootCmd.PersistentFlags().StringP("proxy", "", "", "HTTP Proxy used when fetching link metadata (Example: http://127.0.0.1:8080)")
	rootCmd.PersistentFlags().StringP("loglevel", "l", "info", "Set log level. Available: debug, info, warn, error, fatal")
	rootCmd.PersistentFlags().StringP("user", "u", "", "Owner of the links (default from config 'user')")
	rootCmd.PersistentFlags().String("dbpath", "", "Path to SQLite DB file (default is ~/.config/flashmemo/flashmemo.sqlite)")

	viper.BindPFlag("user", rootCmd.PersistentFlags().Lookup("user"))
	viper.BindPFlag("db.path", rootCmd.PersistentFlags().Lookup("dbpath"))
	viper.BindPFlag("unfurl.proxy", rootCmd.PersistentFlags().Lookup("proxy"))
}

// initConfig reads in config file and ENV variables if set.
func initConfig() {
	setDefaults()

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := homedir.Dir()
		if err != nil {
			fmt.Println(err)
			os.Exit(1)
		}
		viper.AddConfigPath(home)
		viper.SetConfigName(".flashmemo")
		viper.SetConfigType("yaml")
	}

	viper.SetEnvPrefix("FLASHMEMO")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	// If a config file is found, read it in.
	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			// Config file not found; create it with defaults.
			home, _ := homedir.Dir()
			configPath := filepath.Join(home, ".flashmemo.yaml")
			if err := viper.SafeWriteConfigAs(configPath); err != nil {
				fmt.Printf("Error creating config file: %s", err)
			}
		}
	}

	// Init log library
	levelString, _ := rootCmd.PersistentFlags().GetString("loglevel")
	utils.SetLogLevel(levelString)
	utils.SetLogFile(utils.LogFileOptions{
		Path:       viper.GetString("log.file"),
		MaxSizeMB:  viper.GetInt("log.max_size_mb"),
		MaxBackups: viper.GetInt("log.max_backups"),
		MaxAgeDays: viper.GetInt("log.max_age_days"),
	})
}

func setDefaults() {
	viper.SetDefault("user", defaultUser())
	viper.SetDefault("db.path", "")

	viper.SetDefault("log.file", "")
	viper.SetDefault("log.max_size_mb", 10)
	viper.SetDefault("log.max_backups", 3)
	viper.SetDefault("log.max_age_days", 28)

	viper.SetDefault("server.listen", "127.0.0.1:8080")
	viper.SetDefault("server.default_owner", "")
	viper.SetDefault("server.users", map[string]string{})

	viper.SetDefault("unfurl.concurrency", 4)
	viper.SetDefault("unfurl.timeout", "20s")
	viper.SetDefault("unfurl.retries", 3)
	viper.SetDefault("unfurl.user_agent", "")
	viper.SetDefault("unfurl.oembed_endpoint", "")
}

func defaultUser() string {
	if u := os.Getenv("USER"); u != "" {
		return u
	}
	return "me"
}

// currentUser returns the owner acting from the command line.
func currentUser() (string, error) {
	user := strings.TrimSpace(viper.GetString("user"))
	if user == "" {
		return "", fmt.Errorf("no user configured. Use --user or set 'user' in the config file")
	}
	return user, nil
}
