// File: cmd/serve.go
package cmd

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/xkilldash9x/webnav-mcp/internal/mcp"
	"github.com/xkilldash9x/webnav-mcp/internal/observability"
)

func newServeCmd() *cobra.Command {
	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the MCP server (stdio, or HTTP with streamable and SSE endpoints)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			logger := observability.GetLogger()

			cfg, err := getConfigFromContext(ctx)
			if err != nil {
				return err
			}

			nav, err := newNavigator(cfg, logger)
			if err != nil {
				return fmt.Errorf("failed to initialize navigator: %w", err)
			}
			defer shutdownNavigator(nav, logger)

			server := mcp.NewServer(cfg.Server(), nav, Version, logger)
			logger.Info("Starting WebNavigator",
				zap.String("version", Version),
				zap.String("transport", cfg.Server().Transport),
				zap.String("engine", cfg.Browser().Engine),
				zap.Bool("headless", cfg.Browser().Headless),
			)

			if err := server.Serve(ctx); err != nil && !errors.Is(err, context.Canceled) {
				return err
			}
			logger.Info("WebNavigator stopped.")
			return nil
		},
	}

	serveCmd.Flags().StringP("transport", "t", "", "MCP transport: stdio, http or sse (overrides config/env)")
	serveCmd.Flags().IntP("port", "p", 0, "HTTP port (overrides config/env)")
	serveCmd.Flags().Bool("headless", true, "Run the browser without a window (overrides config/env)")
	serveCmd.Flags().String("engine", "", "Browser driver: playwright or cdp (overrides config/env)")
	return serveCmd
}
