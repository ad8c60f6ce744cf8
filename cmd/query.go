package cmd

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ethpandaops/clickguard/pkg/answer"
	"github.com/ethpandaops/clickguard/pkg/gateway"
	"github.com/ethpandaops/clickguard/pkg/querycache"
	"github.com/ethpandaops/clickguard/pkg/warehouse"
)

//nolint:gochecknoglobals // Cobra flags are typically global
var (
	executeQuestion string
)

//nolint:gochecknoglobals // Cobra commands are typically global
var (
	executeCmd = &cobra.Command{
		Use:   "execute <sql>",
		Short: "Run SQL through the execution gateway and print the answer",
		Args:  cobra.ExactArgs(1),
		RunE:  runExecute,
	}

	cacheableCmd = &cobra.Command{
		Use:   "cacheable <sql>",
		Short: "Report whether a SQL statement's result may be cached",
		Args:  cobra.ExactArgs(1),
		RunE:  runCacheable,
	}

	previewCmd = &cobra.Command{
		Use:   "preview <table>",
		Short: "Print the first rows of a table",
		Args:  cobra.ExactArgs(1),
		RunE:  runPreview,
	}
)

func init() {
	rootCmd.AddCommand(executeCmd, cacheableCmd, previewCmd)
	executeCmd.Flags().StringVar(&executeQuestion, "question", "", "question the SQL answers, used as the question cache key")
}

// cliGateway builds a gateway over a memory cache from the CLI config
func cliGateway(ctx context.Context) (*gateway.Gateway, *answer.Formatter, func(), error) {
	config, err := LoadCLIConfig(cfgFile)
	if err != nil {
		return nil, nil, nil, err
	}

	if err := config.Validate(); err != nil {
		return nil, nil, nil, err
	}

	client, err := warehouse.NewClient(logger, &config.Warehouse)
	if err != nil {
		return nil, nil, nil, err
	}

	cleanup := func() {
		if err := client.Stop(); err != nil {
			logger.WithError(err).Warn("Failed to stop warehouse client")
		}
	}

	if err := ctx.Err(); err != nil {
		cleanup()

		return nil, nil, nil, err
	}

	cache := querycache.NewMemoryStore(logger, &config.Cache)

	return gateway.New(logger, &config.Gateway, cache, client), answer.New(config.MaxAnswerRows), cleanup, nil
}

func runExecute(cmd *cobra.Command, args []string) error {
	cmd.SilenceUsage = true

	gw, formatter, cleanup, err := cliGateway(cmd.Context())
	if err != nil {
		return err
	}
	defer cleanup()

	res, err := gw.Execute(cmd.Context(), args[0], executeQuestion)
	if err != nil {
		return err
	}

	fmt.Fprintln(cmd.OutOrStdout(), formatter.Format(res))

	return nil
}

func runCacheable(cmd *cobra.Command, args []string) error {
	cacheable, rule := querycache.Explain(args[0])

	verdict := "not cacheable"
	if cacheable {
		verdict = "cacheable"
	}

	fmt.Fprintf(cmd.OutOrStdout(), "%s (rule: %s)\n", verdict, rule)

	return nil
}

func runPreview(cmd *cobra.Command, args []string) error {
	cmd.SilenceUsage = true

	gw, formatter, cleanup, err := cliGateway(cmd.Context())
	if err != nil {
		return err
	}
	defer cleanup()

	res, err := gw.PreviewTable(cmd.Context(), strings.TrimSpace(args[0]))
	if err != nil {
		return err
	}

	fmt.Fprintln(cmd.OutOrStdout(), formatter.Format(res))

	return nil
}
