// internal/browser/pwdriver/page.go
package pwdriver

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/playwright-community/playwright-go"

	"github.com/xkilldash9x/webnav-mcp/internal/browser"
	"github.com/xkilldash9x/webnav-mcp/internal/browser/stealth"
)

// boundingBoxTimeout caps how long Playwright may wait for a matched element
// to become measurable.
const boundingBoxTimeout = 5 * time.Second

func newPageID() string { return "pw-" + uuid.NewString() }

// Page wraps a Playwright page. Playwright calls are not context aware, so
// the context is only checked before each call.
type Page struct {
	p       playwright.Page
	id      string
	persona stealth.Persona
}

var _ browser.Page = (*Page)(nil)

// ID implements browser.Page.
func (p *Page) ID() string { return p.id }

// IsClosed implements browser.Page.
func (p *Page) IsClosed() bool { return p.p.IsClosed() }

// Close implements browser.Page.
func (p *Page) Close(ctx context.Context) error { return p.p.Close() }

// BringToFront implements browser.Page.
func (p *Page) BringToFront(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return p.p.BringToFront()
}

// ApplyStealth implements browser.Page. Identity headers and emulation are
// set on the context; the page gets the evasions init script.
func (p *Page) ApplyStealth(ctx context.Context) error {
	script, err := stealth.Script(p.persona)
	if err != nil {
		return err
	}
	if err := p.p.AddInitScript(playwright.Script{Content: playwright.String(script)}); err != nil {
		return fmt.Errorf("failed to add init script: %w", err)
	}
	return nil
}

// Goto implements browser.Page, waiting for DOMContentLoaded.
func (p *Page) Goto(ctx context.Context, url string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	opts := playwright.PageGotoOptions{WaitUntil: playwright.WaitUntilStateDomcontentloaded}
	if deadline, ok := ctx.Deadline(); ok {
		opts.Timeout = playwright.Float(float64(time.Until(deadline).Milliseconds()))
	}
	_, err := p.p.Goto(url, opts)
	return err
}

// URL implements browser.Page.
func (p *Page) URL() string { return p.p.URL() }

// Title implements browser.Page.
func (p *Page) Title(ctx context.Context) (string, error) { return p.p.Title() }

// FirstMatch implements browser.Page.
func (p *Page) FirstMatch(ctx context.Context, selector string) (int, *browser.Box, error) {
	if err := ctx.Err(); err != nil {
		return 0, nil, err
	}
	loc := p.p.Locator(selector)
	count, err := loc.Count()
	if err != nil {
		return 0, nil, fmt.Errorf("failed to count matches for %q: %w", selector, err)
	}
	if count == 0 {
		return 0, nil, nil
	}
	rect, err := loc.First().BoundingBox(playwright.LocatorBoundingBoxOptions{
		Timeout: playwright.Float(float64(boundingBoxTimeout.Milliseconds())),
	})
	if err != nil {
		if errors.Is(err, playwright.ErrTimeout) {
			return count, nil, nil
		}
		return count, nil, fmt.Errorf("failed to measure %q: %w", selector, err)
	}
	if rect == nil {
		return count, nil, nil
	}
	return count, &browser.Box{X: rect.X, Y: rect.Y, Width: rect.Width, Height: rect.Height}, nil
}

// WaitVisible implements browser.Page.
func (p *Page) WaitVisible(ctx context.Context, selector string, timeout time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return p.p.Locator(selector).First().WaitFor(playwright.LocatorWaitForOptions{
		State:   playwright.WaitForSelectorStateVisible,
		Timeout: playwright.Float(float64(timeout.Milliseconds())),
	})
}

// MouseMove implements browser.Page.
func (p *Page) MouseMove(ctx context.Context, x, y float64) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return p.p.Mouse().Move(x, y)
}

func mouseButton(b browser.MouseButton) *playwright.MouseButton {
	switch b {
	case browser.ButtonRight:
		return playwright.MouseButtonRight
	case browser.ButtonMiddle:
		return playwright.MouseButtonMiddle
	default:
		return playwright.MouseButtonLeft
	}
}

// MouseClick implements browser.Page.
func (p *Page) MouseClick(ctx context.Context, x, y float64, button browser.MouseButton, clickCount int) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if clickCount < 1 {
		clickCount = 1
	}
	return p.p.Mouse().Click(x, y, playwright.MouseClickOptions{
		Button:     mouseButton(button),
		ClickCount: playwright.Int(clickCount),
	})
}

// TypeText implements browser.Page.
func (p *Page) TypeText(ctx context.Context, text string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return p.p.Keyboard().Type(text)
}

// Press implements browser.Page.
func (p *Page) Press(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return p.p.Keyboard().Press(key)
}

// Screenshot implements browser.Page.
func (p *Page) Screenshot(ctx context.Context, fullPage bool) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return p.p.Screenshot(playwright.PageScreenshotOptions{
		FullPage: playwright.Bool(fullPage),
		Type:     playwright.ScreenshotTypePng,
	})
}

// Content implements browser.Page.
func (p *Page) Content(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	return p.p.Content()
}
