// internal/browser/pwdriver/launcher.go
package pwdriver

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/playwright-community/playwright-go"
	"go.uber.org/zap"

	"github.com/xkilldash9x/webnav-mcp/internal/browser"
	"github.com/xkilldash9x/webnav-mcp/internal/browser/stealth"
)

const defaultInstallTimeout = 5 * time.Minute

// Options configures the Playwright driver.
type Options struct {
	// Install downloads the Playwright driver and Chromium before the first
	// start. Container images usually ship them preinstalled.
	Install        bool
	InstallTimeout time.Duration
	ExecPath       string
	Persona        stealth.Persona
	ViewportWidth  int
	ViewportHeight int
}

// Launcher starts Playwright driver processes. It implements browser.Launcher.
type Launcher struct {
	opts   Options
	logger *zap.Logger

	installOnce sync.Once
	installErr  error

	// Seams for tests.
	install func(*playwright.RunOptions) error
	run     func(...*playwright.RunOptions) (*playwright.Playwright, error)
}

// NewLauncher creates a launcher. Nothing is started until Start.
func NewLauncher(opts Options, logger *zap.Logger) *Launcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.InstallTimeout <= 0 {
		opts.InstallTimeout = defaultInstallTimeout
	}
	return &Launcher{
		opts:    opts,
		logger:  logger.Named("playwright"),
		install: func(o *playwright.RunOptions) error { return playwright.Install(o) },
		run:     playwright.Run,
	}
}

var _ browser.Launcher = (*Launcher)(nil)

func (l *Launcher) runOptions() *playwright.RunOptions {
	return &playwright.RunOptions{
		Browsers: []string{"chromium"},
		Verbose:  false,
		Stdout:   io.Discard,
		Stderr:   io.Discard,
	}
}

// Start implements browser.Launcher.
func (l *Launcher) Start(ctx context.Context) (browser.Engine, error) {
	if l.opts.Install {
		l.installOnce.Do(func() { l.installErr = l.ensureInstallation(ctx) })
		if l.installErr != nil {
			return nil, l.installErr
		}
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	pw, err := l.run(l.runOptions())
	if err != nil {
		return nil, fmt.Errorf("failed to start playwright driver: %w", err)
	}
	l.logger.Info("Playwright driver started.")
	return &Engine{pw: pw, opts: l.opts, logger: l.logger, ids: newPageIDs()}, nil
}

// ensureInstallation runs the blocking installer under a deadline.
func (l *Launcher) ensureInstallation(ctx context.Context) error {
	l.logger.Info("Verifying Playwright browser installation...")
	installCtx, cancel := context.WithTimeout(ctx, l.opts.InstallTimeout)
	defer cancel()

	errCh := make(chan error, 1)
	go func() {
		if err := l.install(l.runOptions()); err != nil {
			errCh <- fmt.Errorf("failed to install playwright browsers: %w", err)
			return
		}
		errCh <- nil
	}()

	select {
	case err := <-errCh:
		return err
	case <-installCtx.Done():
		return fmt.Errorf("timeout waiting for Playwright installation: %w", installCtx.Err())
	}
}

// Engine is a running Playwright driver process.
type Engine struct {
	pw     *playwright.Playwright
	opts   Options
	logger *zap.Logger
	ids    *pageIDs
}

var _ browser.Engine = (*Engine)(nil)

// launchOptions maps session launch options onto Playwright's.
func launchOptions(lo browser.LaunchOptions, execPath string) playwright.BrowserTypeLaunchOptions {
	opts := playwright.BrowserTypeLaunchOptions{
		Headless: playwright.Bool(lo.Headless),
		Args:     append([]string(nil), lo.Args...),
	}
	if lo.Timeout > 0 {
		opts.Timeout = playwright.Float(float64(lo.Timeout.Milliseconds()))
	}
	if execPath != "" {
		opts.ExecutablePath = playwright.String(execPath)
	}
	return opts
}

// Launch implements browser.Engine.
func (e *Engine) Launch(ctx context.Context, lo browser.LaunchOptions) (browser.Browser, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	b, err := e.pw.Chromium.Launch(launchOptions(lo, e.opts.ExecPath))
	if err != nil {
		return nil, fmt.Errorf("failed to launch chromium: %w", err)
	}
	e.logger.Debug("Chromium launched.", zap.String("version", b.Version()))
	return &Browser{b: b, opts: e.opts, ids: e.ids}, nil
}

// Stop implements browser.Engine.
func (e *Engine) Stop() error {
	if err := e.pw.Stop(); err != nil {
		return fmt.Errorf("failed to stop playwright driver: %w", err)
	}
	return nil
}

// Browser wraps a Playwright browser connection.
type Browser struct {
	b    playwright.Browser
	opts Options
	ids  *pageIDs
}

var _ browser.Browser = (*Browser)(nil)

// contextOptions presents the persona at the context level, where
// Playwright applies it to every page before the first request.
func contextOptions(p stealth.Persona, width, height int) playwright.BrowserNewContextOptions {
	opts := playwright.BrowserNewContextOptions{
		ExtraHttpHeaders: map[string]string{"Accept-Language": p.AcceptLanguage()},
	}
	if p.UserAgent != "" {
		opts.UserAgent = playwright.String(p.UserAgent)
	}
	if p.Locale != "" {
		opts.Locale = playwright.String(p.Locale)
	}
	if p.Timezone != "" {
		opts.TimezoneId = playwright.String(p.Timezone)
	}
	if width > 0 && height > 0 {
		opts.Viewport = &playwright.Size{Width: width, Height: height}
	}
	return opts
}

// IsConnected implements browser.Browser.
func (b *Browser) IsConnected() bool { return b.b.IsConnected() }

// NewContext implements browser.Browser.
func (b *Browser) NewContext(ctx context.Context) (browser.BrowsingContext, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	c, err := b.b.NewContext(contextOptions(b.opts.Persona, b.opts.ViewportWidth, b.opts.ViewportHeight))
	if err != nil {
		return nil, err
	}
	return &Context{c: c, persona: b.opts.Persona, ids: b.ids}, nil
}

// Contexts implements browser.Browser.
func (b *Browser) Contexts() []browser.BrowsingContext {
	raw := b.b.Contexts()
	out := make([]browser.BrowsingContext, 0, len(raw))
	for _, c := range raw {
		out = append(out, &Context{c: c, persona: b.opts.Persona, ids: b.ids})
	}
	return out
}

// Close implements browser.Browser.
func (b *Browser) Close() error { return b.b.Close() }

// Context wraps a Playwright browser context.
type Context struct {
	c       playwright.BrowserContext
	persona stealth.Persona
	ids     *pageIDs
}

var _ browser.BrowsingContext = (*Context)(nil)

// NewPage implements browser.BrowsingContext.
func (c *Context) NewPage(ctx context.Context) (browser.Page, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	p, err := c.c.NewPage()
	if err != nil {
		return nil, err
	}
	return c.wrap(p), nil
}

// Pages implements browser.BrowsingContext.
func (c *Context) Pages() []browser.Page {
	raw := c.c.Pages()
	out := make([]browser.Page, 0, len(raw))
	for _, p := range raw {
		out = append(out, c.wrap(p))
	}
	return out
}

// Close implements browser.BrowsingContext.
func (c *Context) Close() error { return c.c.Close() }

func (c *Context) wrap(p playwright.Page) *Page {
	return &Page{p: p, id: c.ids.idFor(p), persona: c.persona}
}

// pageIDs hands out a stable identifier per Playwright page object.
type pageIDs struct {
	mu  sync.Mutex
	ids map[playwright.Page]string
}

func newPageIDs() *pageIDs {
	return &pageIDs{ids: make(map[playwright.Page]string)}
}

func (r *pageIDs) idFor(p playwright.Page) string {
	r.mu.Lock()
	defer r.mu.Unlock()
	for known := range r.ids {
		if known != p && known.IsClosed() {
			delete(r.ids, known)
		}
	}
	if id, ok := r.ids[p]; ok {
		return id
	}
	id := newPageID()
	r.ids[p] = id
	return id
}
