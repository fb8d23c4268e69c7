package main

import (
	"github.com/spf13/cobra"

	"json-user-service/cmd/api/app"
	"json-user-service/cmd/api/server"
)

var serveFlagKeys = map[string]string{
	"port":  "HTTP_PORT",
	"db":    "STORE_PATH",
	"watch": "STORE_WATCH",
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the users REST API",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, err := loadConfig(cmd, serveFlagKeys)
		if err != nil {
			return err
		}

		a, err := app.New(cmd.Context(), cfg)
		if err != nil {
			return err
		}

		ctx, stop := server.WithSignal(cmd.Context(), a.Logger)
		defer stop()

		return a.Run(ctx)
	},
}

func init() {
	addServeFlags(serveCmd.Flags())
}
