// internal/browser/driver.go
package browser

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrSessionFatal marks engine or browser launch failures. Callers of
	// AcquirePage receive it wrapped and must not swallow it.
	ErrSessionFatal = errors.New("browser: session fatal")
	// ErrNoBrowsingContext is returned by tab operations before any browser
	// context exists.
	ErrNoBrowsingContext = errors.New("browser: no browsing context")
	// ErrTabIndexOutOfRange is returned for tab indices outside [0, count).
	ErrTabIndexOutOfRange = errors.New("browser: tab index out of range")
	// ErrNoActivePage is returned when the active page reference is empty or closed.
	ErrNoActivePage = errors.New("browser: no active page")
	// ErrElementNotFound is returned when a selector matches nothing.
	ErrElementNotFound = errors.New("browser: element not found")
	// ErrNoBoundingBox is returned when the first match is not rendered.
	ErrNoBoundingBox = errors.New("browser: element has no bounding box")
)

// RequiredArgs are always passed to the browser on launch.
var RequiredArgs = []string{
	"--no-sandbox",
	"--disable-dev-shm-usage",
	"--disable-blink-features=AutomationControlled",
}

// MouseButton names a pointer button.
type MouseButton string

const (
	ButtonLeft   MouseButton = "left"
	ButtonRight  MouseButton = "right"
	ButtonMiddle MouseButton = "middle"
)

// Box is an element's bounding box in viewport coordinates.
type Box struct {
	X, Y, Width, Height float64
}

// Center returns the midpoint of the box.
func (b Box) Center() (float64, float64) {
	return b.X + b.Width/2, b.Y + b.Height/2
}

// LaunchOptions configures a browser launch.
type LaunchOptions struct {
	Headless bool
	Args     []string
	Timeout  time.Duration
}

// Launcher starts the automation engine process.
type Launcher interface {
	Start(ctx context.Context) (Engine, error)
}

// Engine is a running automation driver able to launch browsers.
type Engine interface {
	Launch(ctx context.Context, opts LaunchOptions) (Browser, error)
	Stop() error
}

// Browser is one launched browser instance.
type Browser interface {
	IsConnected() bool
	NewContext(ctx context.Context) (BrowsingContext, error)
	// Contexts lists browsing contexts in creation order.
	Contexts() []BrowsingContext
	Close() error
}

// BrowsingContext is an isolated cookie/storage partition holding pages.
type BrowsingContext interface {
	NewPage(ctx context.Context) (Page, error)
	// Pages lists the context's pages in creation order, closed ones excluded.
	Pages() []Page
	Close() error
}

// Page is one open tab.
type Page interface {
	// ID is stable for the life of the page and unique within a process.
	ID() string
	IsClosed() bool
	Close(ctx context.Context) error
	BringToFront(ctx context.Context) error
	// ApplyStealth installs the anti-detection patches on the page.
	ApplyStealth(ctx context.Context) error

	// Goto navigates and waits for DOMContentLoaded.
	Goto(ctx context.Context, url string) error
	URL() string
	Title(ctx context.Context) (string, error)

	// FirstMatch counts the elements matching selector and returns the
	// bounding box of the first one, or nil if it is not rendered.
	FirstMatch(ctx context.Context, selector string) (count int, box *Box, err error)
	// WaitVisible blocks until the first match is visible or timeout elapses.
	WaitVisible(ctx context.Context, selector string, timeout time.Duration) error

	MouseMove(ctx context.Context, x, y float64) error
	MouseClick(ctx context.Context, x, y float64, button MouseButton, clickCount int) error
	// TypeText inserts printable text through keyboard events.
	TypeText(ctx context.Context, text string) error
	// Press presses a named key such as "Backspace" or "Enter".
	Press(ctx context.Context, key string) error

	Screenshot(ctx context.Context, fullPage bool) ([]byte, error)
	Content(ctx context.Context) (string, error)
}
