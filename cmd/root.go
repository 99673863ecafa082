// File: cmd/root.go
package cmd

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/xkilldash9x/webnav-mcp/internal/config"
	"github.com/xkilldash9x/webnav-mcp/internal/observability"
)

type contextKey string

const configKey contextKey = "config"

var cfgFile string

// NewRootCommand builds the command tree. Each call returns a fresh tree so
// flags never leak between executions.
func NewRootCommand() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "webnav-mcp",
		Short:         "WebNavigator drives a real browser with human-like input over MCP.",
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			v := viper.New()
			config.SetDefaults(v)

			if err := initializeConfig(v); err != nil {
				return fmt.Errorf("failed to initialize configuration: %w", err)
			}
			cfg, err := config.NewConfigFromViper(v)
			if err != nil {
				return fmt.Errorf("failed to load or validate config: %w", err)
			}
			if err := applyFlagOverrides(cmd, cfg); err != nil {
				return err
			}

			// stdio reserves stdout for protocol frames, so the sink depends on
			// the final transport.
			observability.Initialize(cfg.Logger(), observability.ConsoleWriter(cfg.Server().Transport))
			observability.GetLogger().Debug("Configuration loaded.",
				zap.String("version", Version),
				zap.String("engine", cfg.Browser().Engine),
				zap.String("transport", cfg.Server().Transport),
			)

			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			cmd.SetContext(context.WithValue(ctx, configKey, cfg))
			return nil
		},
	}

	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file (default is ./config.yaml)")
	rootCmd.SetVersionTemplate(`{{printf "%s version %s\n" .Name .Version}}`)

	rootCmd.AddCommand(newServeCmd())
	rootCmd.AddCommand(newCaptureCmd())
	rootCmd.AddCommand(newVersionCmd())
	return rootCmd
}

// Execute runs the command tree with a signal-aware context.
func Execute(ctx context.Context) error {
	return ExecuteArgs(ctx, nil)
}

// ExecuteArgs runs the command tree with explicit arguments; nil uses
// os.Args.
func ExecuteArgs(ctx context.Context, args []string) error {
	rootCmd := NewRootCommand()
	if args != nil {
		rootCmd.SetArgs(args)
	}
	defer observability.Sync()

	err := rootCmd.ExecuteContext(ctx)
	if err != nil && !errors.Is(err, context.Canceled) {
		observability.GetLogger().Error("Command execution failed", zap.Error(err))
		rootCmd.PrintErrln("Error:", err)
	}
	return err
}

// initializeConfig reads the config file and WEBNAV_* environment variables.
func initializeConfig(v *viper.Viper) error {
	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.AddConfigPath(".")
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}

	v.SetEnvPrefix("WEBNAV")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return fmt.Errorf("error reading config file: %w", err)
		}
		// No config file; defaults and environment apply.
	}
	return nil
}

// applyFlagOverrides copies explicitly set command flags over the loaded
// configuration. Flags a command does not define are skipped.
func applyFlagOverrides(cmd *cobra.Command, cfg *config.Config) error {
	flags := cmd.Flags()
	if f := flags.Lookup("transport"); f != nil && f.Changed {
		cfg.SetServerTransport(f.Value.String())
	}
	if f := flags.Lookup("port"); f != nil && f.Changed {
		port, err := flags.GetInt("port")
		if err != nil {
			return err
		}
		cfg.SetServerPort(port)
	}
	if f := flags.Lookup("headless"); f != nil && f.Changed {
		headless, err := flags.GetBool("headless")
		if err != nil {
			return err
		}
		cfg.SetBrowserHeadless(headless)
	}
	if f := flags.Lookup("engine"); f != nil && f.Changed {
		cfg.SetBrowserEngine(strings.ToLower(f.Value.String()))
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid flag value: %w", err)
	}
	return nil
}

// getConfigFromContext returns the configuration stored by PersistentPreRunE.
func getConfigFromContext(ctx context.Context) (*config.Config, error) {
	cfg, ok := ctx.Value(configKey).(*config.Config)
	if !ok || cfg == nil {
		return nil, errors.New("configuration not found in context")
	}
	return cfg, nil
}
