// File: cmd/components.go
package cmd

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/xkilldash9x/webnav-mcp/internal/browser"
	"github.com/xkilldash9x/webnav-mcp/internal/browser/cdpdriver"
	"github.com/xkilldash9x/webnav-mcp/internal/browser/humanoid"
	"github.com/xkilldash9x/webnav-mcp/internal/browser/pwdriver"
	"github.com/xkilldash9x/webnav-mcp/internal/browser/stealth"
	"github.com/xkilldash9x/webnav-mcp/internal/config"
	"github.com/xkilldash9x/webnav-mcp/internal/navigator"
)

const shutdownTimeout = 15 * time.Second

// newLauncher picks the automation driver for the configured engine.
func newLauncher(cfg config.BrowserConfig, logger *zap.Logger) (browser.Launcher, error) {
	persona := stealth.FromConfig(cfg.Persona)
	switch cfg.Engine {
	case config.EnginePlaywright:
		return pwdriver.NewLauncher(pwdriver.Options{
			Install:        cfg.Install,
			ExecPath:       cfg.ExecPath,
			Persona:        persona,
			ViewportWidth:  cfg.Viewport.Width,
			ViewportHeight: cfg.Viewport.Height,
		}, logger), nil
	case config.EngineCDP:
		return cdpdriver.NewLauncher(cdpdriver.Options{
			RemoteURL:      cfg.RemoteURL,
			ExecPath:       cfg.ExecPath,
			Persona:        persona,
			ViewportWidth:  cfg.Viewport.Width,
			ViewportHeight: cfg.Viewport.Height,
		}, logger), nil
	}
	return nil, fmt.Errorf("unsupported browser engine %q", cfg.Engine)
}

// newNavigator wires session, humanoid and facade. Nothing is launched until
// the first operation needs a page.
func newNavigator(cfg config.Interface, logger *zap.Logger) (*navigator.Navigator, error) {
	bc := cfg.Browser()
	launcher, err := newLauncher(bc, logger)
	if err != nil {
		return nil, err
	}

	session := browser.NewSession(launcher, browser.LaunchOptions{
		Headless: bc.Headless,
		Args:     bc.Args,
		Timeout:  bc.LaunchTimeout,
	}, logger)

	h := humanoid.New(humanoid.FromSettings(cfg.Humanoid()), logger)
	return navigator.New(session, h, cfg.Navigator(), logger), nil
}

// shutdownNavigator releases the browser with its own deadline, since the
// command context is usually already cancelled.
func shutdownNavigator(nav *navigator.Navigator, logger *zap.Logger) {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := nav.Shutdown(ctx); err != nil {
		logger.Warn("Error during browser shutdown", zap.Error(err))
	}
}
