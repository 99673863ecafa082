package browser

import (
	"context"
	"time"

	"github.com/xkilldash9x/webnav-mcp/internal/browser/humanoid"
)

// PageExecutor implements the humanoid.Executor interface on top of a Page.
// This adapter decouples the humanoid logic from the specific driver,
// so the interaction engine remains browser agnostic.
type PageExecutor struct {
	page Page
}

// NewPageExecutor creates a new adapter wrapping the page.
func NewPageExecutor(page Page) *PageExecutor {
	return &PageExecutor{page: page}
}

var _ humanoid.Executor = (*PageExecutor)(nil)

// Sleep implements humanoid.Executor. It provides a context aware sleep mechanism.
func (a *PageExecutor) Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// MouseMove implements humanoid.Executor.
func (a *PageExecutor) MouseMove(ctx context.Context, x, y float64) error {
	return a.page.MouseMove(ctx, x, y)
}

// SendKeys implements humanoid.Executor. Control characters are mapped to
// key presses; anything else is typed as text.
func (a *PageExecutor) SendKeys(ctx context.Context, keys string) error {
	if name, ok := humanoid.KeyName(keys); ok {
		return a.page.Press(ctx, name)
	}
	return a.page.TypeText(ctx, keys)
}
