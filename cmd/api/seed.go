package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"json-user-service/cmd/api/app"
	"json-user-service/internal/seed"
	"json-user-service/pkg/logger"
)

var seedFlagKeys = map[string]string{
	"db":    "STORE_PATH",
	"count": "SEED_COUNT",
	"seed":  "SEED_VALUE",
}

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Overwrite the store file with generated users",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, err := loadConfig(cmd, seedFlagKeys)
		if err != nil {
			return err
		}
		if err := cfg.Validate(); err != nil {
			return err
		}

		l, err := app.InitLogger(cfg)
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		defer func() { _ = logger.Sync(l) }()

		if err := seed.New(cfg.Seed.Value, l).WriteFile(cfg.Store.Path, cfg.Seed.Count); err != nil {
			l.Error("seed failed", zap.String("path", cfg.Store.Path), zap.Error(err))
			return err
		}
		return nil
	},
}

func init() {
	seedCmd.Flags().String("db", "db.json", "path of the JSON store file")
	seedCmd.Flags().Int("count", seed.DefaultCount, "number of users to generate")
	seedCmd.Flags().Uint64("seed", 0, "random seed, 0 picks one")
}
