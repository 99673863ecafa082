// internal/browser/cdpdriver/page.go
package cdpdriver

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/emulation"
	"github.com/chromedp/cdproto/input"
	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/cdproto/target"
	"github.com/chromedp/chromedp"
	"github.com/chromedp/chromedp/kb"
	jsoniter "github.com/json-iterator/go"
	"go.uber.org/zap"

	"github.com/xkilldash9x/webnav-mcp/internal/browser"
	"github.com/xkilldash9x/webnav-mcp/internal/browser/stealth"
)

const urlLookupTimeout = 2 * time.Second

// Page is one CDP page target.
type Page struct {
	ctx      *Context
	targetID target.ID
	pageCtx  context.Context
	cancel   context.CancelFunc
	logger   *zap.Logger

	mu      sync.Mutex
	closed  bool
	lastURL string
}

var _ browser.Page = (*Page)(nil)

// setClosed flips the closed flag and reports whether this call did it.
func (p *Page) setClosed() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return false
	}
	p.closed = true
	return true
}

// markClosed detaches from the target. Cancelling round-trips through the
// browser connection, so it runs without p.mu held.
func (p *Page) markClosed() {
	if p.setClosed() {
		p.cancel()
	}
}

// run executes actions on the page target under the caller's deadline.
func (p *Page) run(ctx context.Context, actions ...chromedp.Action) error {
	if p.IsClosed() {
		return browser.ErrNoActivePage
	}
	runCtx, cancel := CombineContext(p.pageCtx, ctx)
	defer cancel()
	return chromedp.Run(runCtx, actions...)
}

// ID implements browser.Page.
func (p *Page) ID() string { return "cdp-" + string(p.targetID) }

// IsClosed implements browser.Page.
func (p *Page) IsClosed() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.closed || p.pageCtx.Err() != nil
}

// Close implements browser.Page.
func (p *Page) Close(ctx context.Context) error {
	if p.IsClosed() {
		return nil
	}
	execCtx, cancel := p.ctx.b.exec(ctx)
	defer cancel()
	err := target.CloseTarget(p.targetID).Do(execCtx)
	p.markClosed()
	if err != nil {
		return fmt.Errorf("failed to close target: %w", err)
	}
	return nil
}

// BringToFront implements browser.Page.
func (p *Page) BringToFront(ctx context.Context) error {
	return p.run(ctx, page.BringToFront())
}

// ApplyStealth implements browser.Page.
func (p *Page) ApplyStealth(ctx context.Context) error {
	opts := p.ctx.b.opts
	tasks := chromedp.Tasks{stealth.Apply(opts.Persona, p.logger)}
	if opts.ViewportWidth > 0 && opts.ViewportHeight > 0 {
		tasks = append(tasks, emulation.SetDeviceMetricsOverride(int64(opts.ViewportWidth), int64(opts.ViewportHeight), 1, false))
	}
	return p.run(ctx, tasks)
}

// domContentListener signals fired once DOMContentLoaded is seen. It never
// blocks, since target listeners run on the connection's read loop.
func domContentListener(fired chan<- struct{}) func(ev interface{}) {
	return func(ev interface{}) {
		if _, ok := ev.(*page.EventDomContentEventFired); !ok {
			return
		}
		select {
		case fired <- struct{}{}:
		default:
		}
	}
}

// Goto implements browser.Page, waiting for DOMContentLoaded rather than the
// load event chromedp.Navigate waits for.
func (p *Page) Goto(ctx context.Context, url string) error {
	if p.IsClosed() {
		return browser.ErrNoActivePage
	}
	fired := make(chan struct{}, 1)
	listenCtx, stopListening := context.WithCancel(p.pageCtx)
	defer stopListening()
	chromedp.ListenTarget(listenCtx, domContentListener(fired))

	var loaderID cdp.LoaderID
	err := p.run(ctx, chromedp.ActionFunc(func(ctx context.Context) error {
		_, lid, errorText, _, err := page.Navigate(url).Do(ctx)
		if err != nil {
			return err
		}
		if errorText != "" {
			return fmt.Errorf("page load error %s", errorText)
		}
		loaderID = lid
		return nil
	}))
	if err != nil {
		return err
	}

	// Same-document navigations create no loader and fire no DOMContentLoaded.
	if loaderID != "" {
		select {
		case <-fired:
		case <-ctx.Done():
			return ctx.Err()
		case <-p.pageCtx.Done():
			return browser.ErrNoActivePage
		}
	}

	p.mu.Lock()
	p.lastURL = url
	p.mu.Unlock()
	return nil
}

// URL implements browser.Page, falling back to the last navigated URL when
// the target does not answer quickly.
func (p *Page) URL() string {
	ctx, cancel := context.WithTimeout(context.Background(), urlLookupTimeout)
	defer cancel()
	var loc string
	if err := p.run(ctx, chromedp.Location(&loc)); err == nil {
		return loc
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.lastURL == "" {
		return "about:blank"
	}
	return p.lastURL
}

// Title implements browser.Page.
func (p *Page) Title(ctx context.Context) (string, error) {
	var title string
	err := p.run(ctx, chromedp.Title(&title))
	return title, err
}

// matchResult is what matchScript evaluates to.
type matchResult struct {
	Count int          `json:"count"`
	Box   *browser.Box `json:"box"`
}

// matchScript counts selector matches and measures the first one. An
// element that generates no layout boxes has no bounding box.
func matchScript(selector string) (string, error) {
	quoted, err := jsoniter.MarshalToString(selector)
	if err != nil {
		return "", err
	}
	return `(() => {
  const all = document.querySelectorAll(` + quoted + `);
  if (all.length === 0) return { count: 0, box: null };
  const el = all[0];
  if (el.getClientRects().length === 0) return { count: all.length, box: null };
  const r = el.getBoundingClientRect();
  return { count: all.length, box: { X: r.x, Y: r.y, Width: r.width, Height: r.height } };
})()`, nil
}

// FirstMatch implements browser.Page. Selectors are CSS.
func (p *Page) FirstMatch(ctx context.Context, selector string) (int, *browser.Box, error) {
	script, err := matchScript(selector)
	if err != nil {
		return 0, nil, err
	}
	var res matchResult
	if err := p.run(ctx, chromedp.Evaluate(script, &res)); err != nil {
		return 0, nil, fmt.Errorf("failed to query %q: %w", selector, err)
	}
	return res.Count, res.Box, nil
}

// WaitVisible implements browser.Page.
func (p *Page) WaitVisible(ctx context.Context, selector string, timeout time.Duration) error {
	waitCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return p.run(waitCtx, chromedp.WaitVisible(selector, chromedp.ByQuery))
}

// MouseMove implements browser.Page.
func (p *Page) MouseMove(ctx context.Context, x, y float64) error {
	return p.run(ctx, input.DispatchMouseEvent(input.MouseMoved, x, y))
}

func cdpButton(b browser.MouseButton) input.MouseButton {
	switch b {
	case browser.ButtonRight:
		return input.Right
	case browser.ButtonMiddle:
		return input.Middle
	default:
		return input.Left
	}
}

// MouseClick implements browser.Page. A double click is two press/release
// pairs with rising click counts, as browsers report them.
func (p *Page) MouseClick(ctx context.Context, x, y float64, button browser.MouseButton, clickCount int) error {
	if clickCount < 1 {
		clickCount = 1
	}
	btn := cdpButton(button)
	var actions []chromedp.Action
	for i := 1; i <= clickCount; i++ {
		actions = append(actions,
			input.DispatchMouseEvent(input.MousePressed, x, y).WithButton(btn).WithClickCount(int64(i)),
			input.DispatchMouseEvent(input.MouseReleased, x, y).WithButton(btn).WithClickCount(int64(i)),
		)
	}
	return p.run(ctx, actions...)
}

// TypeText implements browser.Page.
func (p *Page) TypeText(ctx context.Context, text string) error {
	return p.run(ctx, chromedp.KeyEvent(text))
}

var namedKeys = map[string]string{
	"Backspace": kb.Backspace,
	"Enter":     kb.Enter,
	"Tab":       kb.Tab,
	"Escape":    kb.Escape,
}

// Press implements browser.Page.
func (p *Page) Press(ctx context.Context, key string) error {
	k, ok := namedKeys[key]
	if !ok {
		return fmt.Errorf("unsupported key %q", key)
	}
	return p.run(ctx, chromedp.KeyEvent(k))
}

// Screenshot implements browser.Page. Quality 100 makes chromedp capture PNG.
func (p *Page) Screenshot(ctx context.Context, fullPage bool) ([]byte, error) {
	var buf []byte
	action := chromedp.CaptureScreenshot(&buf)
	if fullPage {
		action = chromedp.FullScreenshot(&buf, 100)
	}
	if err := p.run(ctx, action); err != nil {
		return nil, err
	}
	return buf, nil
}

// Content implements browser.Page.
func (p *Page) Content(ctx context.Context) (string, error) {
	var html string
	err := p.run(ctx, chromedp.OuterHTML("html", &html, chromedp.ByQuery))
	return html, err
}
