package cmd

import (
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/ethpandaops/clickguard/pkg/server"
)

//nolint:gochecknoglobals // Cobra commands are typically global
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the clickguard API server",
	Long:  `Starts the HTTP API with chat, execution, cache and clarification endpoints.`,
	RunE:  runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	// Silence usage on error
	cmd.SilenceUsage = true
	cmd.SilenceErrors = true

	config, err := LoadServerConfig(cfgFile)
	if err != nil {
		return err
	}

	// The config file level applies unless --log-level was given
	if !cmd.Flags().Changed("log-level") {
		level, err := logrus.ParseLevel(config.LoggingLevel)
		if err != nil {
			return err
		}

		logger.SetLevel(level)
	}

	logger.Info("Configuration loaded")

	srv, err := server.NewServer(cmd.Context(), logger, config)
	if err != nil {
		return err
	}

	return srv.Start(cmd.Context())
}
