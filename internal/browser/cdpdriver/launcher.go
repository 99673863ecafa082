// internal/browser/cdpdriver/launcher.go
package cdpdriver

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/target"
	"github.com/chromedp/chromedp"
	"go.uber.org/zap"

	"github.com/xkilldash9x/webnav-mcp/internal/browser"
	"github.com/xkilldash9x/webnav-mcp/internal/browser/stealth"
)

const defaultLaunchTimeout = 60 * time.Second

// Options configures the chromedp driver.
type Options struct {
	// RemoteURL attaches to a running browser's DevTools endpoint instead of
	// spawning a local Chrome.
	RemoteURL      string
	ExecPath       string
	Persona        stealth.Persona
	ViewportWidth  int
	ViewportHeight int
}

// Launcher implements browser.Launcher on top of chromedp. chromedp has no
// separate driver process, so the engine only holds options.
type Launcher struct {
	opts   Options
	logger *zap.Logger
}

// NewLauncher creates a chromedp launcher.
func NewLauncher(opts Options, logger *zap.Logger) *Launcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Launcher{opts: opts, logger: logger.Named("cdp")}
}

var _ browser.Launcher = (*Launcher)(nil)

// Start implements browser.Launcher.
func (l *Launcher) Start(ctx context.Context) (browser.Engine, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return &Engine{opts: l.opts, logger: l.logger}, nil
}

// Engine launches chromedp-controlled browsers.
type Engine struct {
	opts   Options
	logger *zap.Logger
}

var _ browser.Engine = (*Engine)(nil)

// allocatorOptions assembles exec allocator flags: chromedp's defaults plus
// the launch arguments. A false flag is omitted from the command line, which
// is how enable-automation gets switched off.
func allocatorOptions(lo browser.LaunchOptions, opts Options) []chromedp.ExecAllocatorOption {
	out := append([]chromedp.ExecAllocatorOption{}, chromedp.DefaultExecAllocatorOptions[:]...)
	out = append(out,
		chromedp.Flag("enable-automation", false),
		chromedp.Flag("headless", lo.Headless),
	)
	if opts.Persona.UserAgent != "" {
		out = append(out, chromedp.UserAgent(opts.Persona.UserAgent))
	}
	if opts.ViewportWidth > 0 && opts.ViewportHeight > 0 {
		out = append(out, chromedp.WindowSize(opts.ViewportWidth, opts.ViewportHeight))
	}
	if opts.ExecPath != "" {
		out = append(out, chromedp.ExecPath(opts.ExecPath))
	}
	for _, arg := range lo.Args {
		name, value := parseFlag(arg)
		out = append(out, chromedp.Flag(name, value))
	}
	return out
}

// parseFlag turns "--name=value" into (name, "value") and "--name" into
// (name, true).
func parseFlag(arg string) (string, interface{}) {
	parts := strings.SplitN(arg, "=", 2)
	name := strings.TrimLeft(parts[0], "-")
	if len(parts) == 2 {
		return name, parts[1]
	}
	return name, true
}

// Launch implements browser.Engine.
func (e *Engine) Launch(ctx context.Context, lo browser.LaunchOptions) (browser.Browser, error) {
	// The browser must outlive the call that launched it.
	base := Detach(ctx)

	var (
		allocCtx    context.Context
		allocCancel context.CancelFunc
	)
	if e.opts.RemoteURL != "" {
		e.logger.Info("Attaching to remote browser.", zap.String("url", e.opts.RemoteURL))
		allocCtx, allocCancel = chromedp.NewRemoteAllocator(base, e.opts.RemoteURL)
	} else {
		allocCtx, allocCancel = chromedp.NewExecAllocator(base, allocatorOptions(lo, e.opts)...)
	}
	browserCtx, browserCancel := chromedp.NewContext(allocCtx)

	timeout := lo.Timeout
	if timeout <= 0 {
		timeout = defaultLaunchTimeout
	}
	// The first Run allocates the browser and must not carry a deadline,
	// so the timeout is enforced from outside.
	started := make(chan error, 1)
	go func() { started <- chromedp.Run(browserCtx) }()

	select {
	case err := <-started:
		if err != nil {
			browserCancel()
			allocCancel()
			return nil, fmt.Errorf("failed to start chrome: %w", err)
		}
	case <-time.After(timeout):
		browserCancel()
		allocCancel()
		return nil, fmt.Errorf("chrome did not start within %s", timeout)
	case <-ctx.Done():
		browserCancel()
		allocCancel()
		return nil, ctx.Err()
	}

	b := &Browser{
		opts:          e.opts,
		logger:        e.logger,
		browserCtx:    browserCtx,
		browserCancel: browserCancel,
		allocCancel:   allocCancel,
	}
	chromedp.ListenBrowser(browserCtx, b.onBrowserEvent)
	e.logger.Info("Chrome ready.", zap.Bool("remote", e.opts.RemoteURL != ""))
	return b, nil
}

// Stop implements browser.Engine.
func (e *Engine) Stop() error { return nil }

// Browser is a chromedp browser connection.
type Browser struct {
	opts   Options
	logger *zap.Logger

	browserCtx    context.Context
	browserCancel context.CancelFunc
	allocCancel   context.CancelFunc

	mu       sync.Mutex
	contexts []*Context
	closed   bool
}

var _ browser.Browser = (*Browser)(nil)

// exec returns a context whose commands go to the browser endpoint rather
// than a page target.
func (b *Browser) exec(ctx context.Context) (context.Context, context.CancelFunc) {
	combined, cancel := CombineContext(b.browserCtx, ctx)
	c := chromedp.FromContext(b.browserCtx)
	return cdp.WithExecutor(combined, c.Browser), cancel
}

func (b *Browser) onBrowserEvent(ev interface{}) {
	destroyed, ok := ev.(*target.EventTargetDestroyed)
	if !ok {
		return
	}
	var gone []*Page
	b.mu.Lock()
	for _, c := range b.contexts {
		for _, p := range c.pages {
			if p.targetID == destroyed.TargetID {
				gone = append(gone, p)
			}
		}
	}
	b.mu.Unlock()

	// This runs on the connection's read loop. Detaching waits for replies
	// from that same loop, so it must happen elsewhere.
	for _, p := range gone {
		if p.setClosed() {
			go p.cancel()
		}
	}
}

// IsConnected implements browser.Browser.
func (b *Browser) IsConnected() bool {
	b.mu.Lock()
	closed := b.closed
	b.mu.Unlock()
	if closed || b.browserCtx.Err() != nil {
		return false
	}
	c := chromedp.FromContext(b.browserCtx)
	if c == nil || c.Browser == nil {
		return false
	}
	select {
	case <-c.Browser.LostConnection:
		return false
	default:
		return true
	}
}

// NewContext implements browser.Browser.
func (b *Browser) NewContext(ctx context.Context) (browser.BrowsingContext, error) {
	execCtx, cancel := b.exec(ctx)
	defer cancel()

	id, err := target.CreateBrowserContext().WithDisposeOnDetach(true).Do(execCtx)
	if err != nil {
		return nil, fmt.Errorf("failed to create browser context: %w", err)
	}
	c := &Context{b: b, id: id}
	b.mu.Lock()
	b.contexts = append(b.contexts, c)
	b.mu.Unlock()
	return c, nil
}

// Contexts implements browser.Browser.
func (b *Browser) Contexts() []browser.BrowsingContext {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]browser.BrowsingContext, 0, len(b.contexts))
	for _, c := range b.contexts {
		if !c.closed {
			out = append(out, c)
		}
	}
	return out
}

// Close implements browser.Browser.
func (b *Browser) Close() error {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return nil
	}
	b.closed = true
	b.mu.Unlock()

	var err error
	if b.browserCtx.Err() == nil {
		// Cancel closes Chrome gracefully for exec allocators and only
		// detaches from remote ones.
		if cerr := chromedp.Cancel(b.browserCtx); cerr != nil && !errors.Is(cerr, context.Canceled) {
			err = cerr
		}
	}
	b.browserCancel()
	b.allocCancel()
	return err
}

// Context is an isolated CDP browser context.
type Context struct {
	b      *Browser
	id     cdp.BrowserContextID
	pages  []*Page
	closed bool
}

var _ browser.BrowsingContext = (*Context)(nil)

// NewPage implements browser.BrowsingContext.
func (c *Context) NewPage(ctx context.Context) (browser.Page, error) {
	execCtx, cancel := c.b.exec(ctx)
	defer cancel()

	targetID, err := target.CreateTarget("about:blank").WithBrowserContextID(c.id).Do(execCtx)
	if err != nil {
		return nil, fmt.Errorf("failed to create target: %w", err)
	}

	pageCtx, pageCancel := chromedp.NewContext(c.b.browserCtx, chromedp.WithTargetID(targetID))
	// Attach without a deadline; see Launch.
	if err := chromedp.Run(pageCtx); err != nil {
		pageCancel()
		return nil, fmt.Errorf("failed to attach to target: %w", err)
	}

	p := &Page{
		ctx:      c,
		targetID: targetID,
		pageCtx:  pageCtx,
		cancel:   pageCancel,
		logger:   c.b.logger,
	}
	c.b.mu.Lock()
	c.pages = append(c.pages, p)
	c.b.mu.Unlock()
	return p, nil
}

// Pages implements browser.BrowsingContext.
func (c *Context) Pages() []browser.Page {
	c.b.mu.Lock()
	defer c.b.mu.Unlock()
	out := make([]browser.Page, 0, len(c.pages))
	for _, p := range c.pages {
		if !p.IsClosed() {
			out = append(out, p)
		}
	}
	return out
}

// Close implements browser.BrowsingContext.
func (c *Context) Close() error {
	c.b.mu.Lock()
	if c.closed {
		c.b.mu.Unlock()
		return nil
	}
	c.closed = true
	pages := append([]*Page(nil), c.pages...)
	c.b.mu.Unlock()

	for _, p := range pages {
		p.markClosed()
	}
	if !c.b.IsConnected() {
		return nil
	}
	execCtx, cancel := c.b.exec(context.Background())
	defer cancel()
	if err := target.DisposeBrowserContext(c.id).Do(execCtx); err != nil {
		return fmt.Errorf("failed to dispose browser context: %w", err)
	}
	return nil
}
