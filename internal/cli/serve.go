package cli

import (
	"github.com/spf13/cobra"

	"github.com/AtRiskMedia/consent-banner-go/internal/application/startup"
	"github.com/AtRiskMedia/consent-banner-go/pkg/config"
)

func newServeCmd() *cobra.Command {
	var port string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the embed and dashboard HTTP API",
		Long: `Serve the loader (/embed.js), the wasm runtime assets, the public embed API and the
authenticated widget API. Configuration comes from the environment and an optional .env file.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			verbose, _ := cmd.Flags().GetBool("verbose")
			loggerFromContext(cmd.Context()).Info("starting server", "port", port, "dataDir", config.DataDir)
			return startup.Initialize(startup.Options{Port: port, Verbose: verbose})
		},
	}

	cmd.Flags().StringVarP(&port, "port", "p", config.Port, "listen port")
	return cmd
}
