// File: cmd/capture.go
package cmd

import (
	"encoding/base64"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/mitchellh/go-homedir"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/xkilldash9x/webnav-mcp/internal/navigator"
	"github.com/xkilldash9x/webnav-mcp/internal/observability"
)

func newCaptureCmd() *cobra.Command {
	var (
		output string
		html   bool
	)

	captureCmd := &cobra.Command{
		Use:   "capture <url>",
		Short: "Load a page once and save its screenshot (or HTML) to a file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			logger := observability.GetLogger()

			cfg, err := getConfigFromContext(ctx)
			if err != nil {
				return err
			}
			path, err := homedir.Expand(output)
			if err != nil {
				return fmt.Errorf("invalid output path: %w", err)
			}

			nav, err := newNavigator(cfg, logger)
			if err != nil {
				return fmt.Errorf("failed to initialize navigator: %w", err)
			}
			defer shutdownNavigator(nav, logger)

			if res := nav.Navigate(ctx, args[0]); res.Failed() {
				return fmt.Errorf("navigation failed: %w", resultErr(res))
			}

			var data []byte
			if html {
				res := nav.GetPageContent(ctx)
				if res.Failed() {
					return fmt.Errorf("failed to read page content: %w", resultErr(res))
				}
				data = []byte(res.Payload)
			} else {
				res := nav.GetScreenshot(ctx)
				if res.Failed() {
					return fmt.Errorf("failed to capture screenshot: %w", resultErr(res))
				}
				if data, err = base64.StdEncoding.DecodeString(res.Payload); err != nil {
					return fmt.Errorf("failed to decode screenshot: %w", err)
				}
			}

			if dir := filepath.Dir(path); dir != "." {
				if err := os.MkdirAll(dir, 0o755); err != nil {
					return fmt.Errorf("failed to create output directory: %w", err)
				}
			}
			if err := os.WriteFile(path, data, 0o644); err != nil {
				return fmt.Errorf("failed to write %s: %w", path, err)
			}

			logger.Info("Capture written.", zap.String("url", args[0]), zap.String("path", path), zap.Int("bytes", len(data)))
			cmd.Printf("Saved %s (%d bytes)\n", path, len(data))
			return nil
		},
	}

	captureCmd.Flags().StringVarP(&output, "output", "o", "capture.png", "File to write")
	captureCmd.Flags().BoolVar(&html, "html", false, "Save the page HTML instead of a screenshot")
	captureCmd.Flags().Bool("headless", true, "Run the browser without a window (overrides config/env)")
	captureCmd.Flags().String("engine", "", "Browser driver: playwright or cdp (overrides config/env)")
	return captureCmd
}

// resultErr returns the cause carried by a failed result.
func resultErr(res navigator.Result) error {
	if res.Err != nil {
		return res.Err
	}
	return errors.New(string(res.Reason))
}
