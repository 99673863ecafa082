// File: internal/mocks/browser.go
package mocks

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/xkilldash9x/webnav-mcp/internal/browser"
)

// ErrTargetClosed mimics the driver error for operations on a closed page.
var ErrTargetClosed = errors.New("target page, context or browser has been closed")

// Element is a fake DOM element.
type Element struct {
	// Box is nil for elements that are in the DOM but not rendered.
	Box     *browser.Box
	Visible bool
}

// Site is the fixture a fake page loads when navigated to its URL.
type Site struct {
	Title    string
	HTML     string
	Elements map[string][]Element
}

// Event is one recorded input event.
type Event struct {
	Kind   string // "move", "click", "type", "press"
	X, Y   float64
	Button browser.MouseButton
	Clicks int
	Text   string
}

// Launcher is an in-memory browser.Launcher. Every object it creates is
// reachable from it, so tests can inspect and sabotage the fake browser.
type Launcher struct {
	mu sync.Mutex

	Sites map[string]Site
	// GotoErrs fails navigation to the keyed URLs on every page.
	GotoErrs map[string]error

	StartErr      error
	LaunchErr     error
	NewPageErr    error
	StealthErr    error
	Starts        int
	Launches      int
	Engines       []*Engine
	LastLaunch    browser.LaunchOptions
	ScreenshotPNG []byte
}

// NewLauncher creates a fake launcher with no sites.
func NewLauncher() *Launcher {
	return &Launcher{
		Sites:         map[string]Site{},
		GotoErrs:      map[string]error{},
		ScreenshotPNG: []byte("\x89PNG\r\n\x1a\nfake"),
	}
}

// Start implements browser.Launcher.
func (l *Launcher) Start(ctx context.Context) (browser.Engine, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.Starts++
	if l.StartErr != nil {
		return nil, l.StartErr
	}
	e := &Engine{l: l}
	l.Engines = append(l.Engines, e)
	return e, nil
}

// Browser returns the most recently launched browser, or nil.
func (l *Launcher) Browser() *Browser {
	l.mu.Lock()
	defer l.mu.Unlock()
	for i := len(l.Engines) - 1; i >= 0; i-- {
		if n := len(l.Engines[i].Browsers); n > 0 {
			return l.Engines[i].Browsers[n-1]
		}
	}
	return nil
}

// Engine is a fake automation engine.
type Engine struct {
	l        *Launcher
	Stopped  bool
	Browsers []*Browser
}

// Launch implements browser.Engine.
func (e *Engine) Launch(ctx context.Context, opts browser.LaunchOptions) (browser.Browser, error) {
	e.l.mu.Lock()
	defer e.l.mu.Unlock()
	e.l.Launches++
	e.l.LastLaunch = opts
	if e.l.LaunchErr != nil {
		return nil, e.l.LaunchErr
	}
	b := &Browser{l: e.l, connected: true}
	e.Browsers = append(e.Browsers, b)
	return b, nil
}

// Stop implements browser.Engine.
func (e *Engine) Stop() error {
	e.Stopped = true
	return nil
}

// Browser is a fake browser connection.
type Browser struct {
	l         *Launcher
	mu        sync.Mutex
	connected bool
	contexts  []*Context
}

// Crash drops the connection as if the browser process died.
func (b *Browser) Crash() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.connected = false
	for _, c := range b.contexts {
		c.closeAll()
	}
}

// IsConnected implements browser.Browser.
func (b *Browser) IsConnected() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.connected
}

// NewContext implements browser.Browser.
func (b *Browser) NewContext(ctx context.Context) (browser.BrowsingContext, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.connected {
		return nil, ErrTargetClosed
	}
	c := &Context{b: b}
	b.contexts = append(b.contexts, c)
	return c, nil
}

// Contexts implements browser.Browser.
func (b *Browser) Contexts() []browser.BrowsingContext {
	b.mu.Lock()
	defer b.mu.Unlock()
	var out []browser.BrowsingContext
	for _, c := range b.contexts {
		if !c.closed {
			out = append(out, c)
		}
	}
	return out
}

// FakeContexts returns the live contexts with their concrete type.
func (b *Browser) FakeContexts() []*Context {
	b.mu.Lock()
	defer b.mu.Unlock()
	var out []*Context
	for _, c := range b.contexts {
		if !c.closed {
			out = append(out, c)
		}
	}
	return out
}

// Close implements browser.Browser.
func (b *Browser) Close() error {
	b.Crash()
	return nil
}

// Context is a fake browsing context.
type Context struct {
	b      *Browser
	pages  []*Page
	closed bool
}

// NewPage implements browser.BrowsingContext.
func (c *Context) NewPage(ctx context.Context) (browser.Page, error) {
	p, err := c.AddPage("about:blank")
	if err != nil {
		return nil, err
	}
	return p, nil
}

// AddPage opens a page directly, bypassing the session. Tests use it to lay
// out tabs.
func (c *Context) AddPage(url string) (*Page, error) {
	l := c.b.l
	l.mu.Lock()
	newPageErr := l.NewPageErr
	l.mu.Unlock()
	if newPageErr != nil {
		return nil, newPageErr
	}
	if c.closed {
		return nil, ErrTargetClosed
	}
	p := &Page{ctx: c, id: uuid.NewString(), url: url, Elements: map[string][]Element{}}
	c.pages = append(c.pages, p)
	return p, nil
}

// Pages implements browser.BrowsingContext.
func (c *Context) Pages() []browser.Page {
	var out []browser.Page
	for _, p := range c.FakePages() {
		out = append(out, p)
	}
	return out
}

// FakePages returns the open pages with their concrete type.
func (c *Context) FakePages() []*Page {
	var out []*Page
	for _, p := range c.pages {
		if !p.IsClosed() {
			out = append(out, p)
		}
	}
	return out
}

// Close implements browser.BrowsingContext.
func (c *Context) Close() error {
	c.closeAll()
	c.closed = true
	return nil
}

func (c *Context) closeAll() {
	for _, p := range c.pages {
		p.mu.Lock()
		p.closed = true
		p.mu.Unlock()
	}
}

// Page is a fake tab. Input is recorded in Events and typed text is kept
// in a single field buffer.
type Page struct {
	ctx *Context
	id  string

	mu       sync.Mutex
	closed   bool
	url      string
	title    string
	html     string
	typed    []rune
	Patched  bool
	Fronted  int
	Events   []Event
	Elements map[string][]Element

	GotoErr       error
	ScreenshotErr error
	ContentErr    error
	CloseErr      error
	InputErr      error
}

// ID implements browser.Page.
func (p *Page) ID() string { return p.id }

// IsClosed implements browser.Page.
func (p *Page) IsClosed() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.closed
}

// Close implements browser.Page.
func (p *Page) Close(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.CloseErr != nil {
		return p.CloseErr
	}
	p.closed = true
	return nil
}

// BringToFront implements browser.Page.
func (p *Page) BringToFront(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return ErrTargetClosed
	}
	p.Fronted++
	return nil
}

// ApplyStealth implements browser.Page.
func (p *Page) ApplyStealth(ctx context.Context) error {
	l := p.ctx.b.l
	l.mu.Lock()
	stealthErr := l.StealthErr
	l.mu.Unlock()
	if stealthErr != nil {
		return stealthErr
	}
	p.mu.Lock()
	p.Patched = true
	p.mu.Unlock()
	return nil
}

// Goto implements browser.Page. Known sites populate the page's DOM.
func (p *Page) Goto(ctx context.Context, url string) error {
	l := p.ctx.b.l
	l.mu.Lock()
	site, known := l.Sites[url]
	gotoErr := l.GotoErrs[url]
	l.mu.Unlock()

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return ErrTargetClosed
	}
	if p.GotoErr != nil {
		return p.GotoErr
	}
	if gotoErr != nil {
		return gotoErr
	}
	p.url = url
	p.typed = nil
	if known {
		p.title, p.html = site.Title, site.HTML
		p.Elements = map[string][]Element{}
		for sel, els := range site.Elements {
			p.Elements[sel] = append([]Element(nil), els...)
		}
	}
	return nil
}

// URL implements browser.Page.
func (p *Page) URL() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.url
}

// Title implements browser.Page.
func (p *Page) Title(ctx context.Context) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.title, nil
}

// FirstMatch implements browser.Page.
func (p *Page) FirstMatch(ctx context.Context, selector string) (int, *browser.Box, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return 0, nil, ErrTargetClosed
	}
	els := p.Elements[selector]
	if len(els) == 0 {
		return 0, nil, nil
	}
	if els[0].Box == nil {
		return len(els), nil, nil
	}
	box := *els[0].Box
	return len(els), &box, nil
}

// WaitVisible implements browser.Page. The fake never waits.
func (p *Page) WaitVisible(ctx context.Context, selector string, timeout time.Duration) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	els := p.Elements[selector]
	if len(els) == 0 || !els[0].Visible {
		return fmt.Errorf("timeout %s exceeded waiting for %q to be visible", timeout, selector)
	}
	return nil
}

func (p *Page) recordInput(e Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return ErrTargetClosed
	}
	if p.InputErr != nil {
		return p.InputErr
	}
	p.Events = append(p.Events, e)
	switch e.Kind {
	case "type":
		p.typed = append(p.typed, []rune(e.Text)...)
	case "press":
		if e.Text == "Backspace" && len(p.typed) > 0 {
			p.typed = p.typed[:len(p.typed)-1]
		}
	}
	return nil
}

// MouseMove implements browser.Page.
func (p *Page) MouseMove(ctx context.Context, x, y float64) error {
	return p.recordInput(Event{Kind: "move", X: x, Y: y})
}

// MouseClick implements browser.Page.
func (p *Page) MouseClick(ctx context.Context, x, y float64, button browser.MouseButton, clickCount int) error {
	return p.recordInput(Event{Kind: "click", X: x, Y: y, Button: button, Clicks: clickCount})
}

// TypeText implements browser.Page.
func (p *Page) TypeText(ctx context.Context, text string) error {
	return p.recordInput(Event{Kind: "type", Text: text})
}

// Press implements browser.Page.
func (p *Page) Press(ctx context.Context, key string) error {
	return p.recordInput(Event{Kind: "press", Text: key})
}

// Screenshot implements browser.Page.
func (p *Page) Screenshot(ctx context.Context, fullPage bool) ([]byte, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.ScreenshotErr != nil {
		return nil, p.ScreenshotErr
	}
	l := p.ctx.b.l
	return append([]byte(nil), l.ScreenshotPNG...), nil
}

// Content implements browser.Page.
func (p *Page) Content(ctx context.Context) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.ContentErr != nil {
		return "", p.ContentErr
	}
	if p.html == "" {
		return "<html><head></head><body></body></html>", nil
	}
	return p.html, nil
}

// Typed returns what the page's focused field would contain.
func (p *Page) Typed() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return string(p.typed)
}

// CountEvents counts recorded events of kind.
func (p *Page) CountEvents(kind string) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	n := 0
	for _, e := range p.Events {
		if e.Kind == kind {
			n++
		}
	}
	return n
}

// LastEvent returns the most recent event of kind.
func (p *Page) LastEvent(kind string) (Event, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for i := len(p.Events) - 1; i >= 0; i-- {
		if p.Events[i].Kind == kind {
			return p.Events[i], true
		}
	}
	return Event{}, false
}

var (
	_ browser.Launcher        = (*Launcher)(nil)
	_ browser.Engine          = (*Engine)(nil)
	_ browser.Browser         = (*Browser)(nil)
	_ browser.BrowsingContext = (*Context)(nil)
	_ browser.Page            = (*Page)(nil)
)
