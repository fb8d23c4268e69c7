package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"json-user-service/internal/config"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:   "api",
	Short: "REST API over a JSON file of users",
	Long: `api serves CRUD endpoints for a collection of users persisted to a
single JSON file. Without a subcommand it behaves like "api serve".`,
	CompletionOptions: cobra.CompletionOptions{
		DisableDefaultCmd: true,
	},
	SilenceUsage: true,
	RunE:         serveCmd.RunE,
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	defaultPath := os.Getenv("CONFIG_PATH")
	if defaultPath == "" {
		defaultPath = "."
	}
	rootCmd.PersistentFlags().StringVar(&configPath, "config", defaultPath, "directory containing app.env")
	rootCmd.SilenceErrors = true

	addServeFlags(rootCmd.Flags())

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(seedCmd)
}

// loadConfig reads configuration with the command's flags taking precedence
// over app.env and the environment. keys maps flag names to config keys.
func loadConfig(cmd *cobra.Command, keys map[string]string) (*config.Config, error) {
	for name, key := range keys {
		if err := viper.BindPFlag(key, cmd.Flags().Lookup(name)); err != nil {
			return nil, fmt.Errorf("failed to bind flag --%s: %w", name, err)
		}
	}

	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return cfg, nil
}

func addServeFlags(fs *pflag.FlagSet) {
	fs.String("port", "3000", "HTTP listen port")
	fs.String("db", "db.json", "path of the JSON store file")
	fs.Bool("watch", false, "reload the store when the file is edited externally")
}
