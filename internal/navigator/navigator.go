// internal/navigator/navigator.go
package navigator

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/xkilldash9x/webnav-mcp/internal/browser"
	"github.com/xkilldash9x/webnav-mcp/internal/browser/humanoid"
	"github.com/xkilldash9x/webnav-mcp/internal/config"
)

// Cursor start positions on a page never touched before are drawn from
// [cursorMin, cursorMax) on both axes.
const (
	cursorMin = 50.0
	cursorMax = 400.0
)

// ExecutorFactory adapts a page for the humanoid.
type ExecutorFactory func(p browser.Page) humanoid.Executor

// Option customizes a Navigator.
type Option func(*Navigator)

// WithExecutorFactory replaces the page adapter the humanoid drives.
func WithExecutorFactory(f ExecutorFactory) Option {
	return func(n *Navigator) { n.newExecutor = f }
}

// Navigator is the operation facade. Every exported operation holds mu for
// its whole duration, so at most one runs at a time per process.
type Navigator struct {
	mu       sync.Mutex
	session  *browser.Session
	humanoid *humanoid.Humanoid
	cfg      config.NavigatorConfig
	logger   *zap.Logger

	newExecutor ExecutorFactory
	// cursors remembers where the pointer was left on each page.
	cursors map[string]humanoid.Vector2D
}

// New creates a Navigator over session.
func New(session *browser.Session, h *humanoid.Humanoid, cfg config.NavigatorConfig, logger *zap.Logger, opts ...Option) *Navigator {
	if logger == nil {
		logger = zap.NewNop()
	}
	n := &Navigator{
		session:  session,
		humanoid: h,
		cfg:      cfg,
		logger:   logger.Named("navigator"),
		newExecutor: func(p browser.Page) humanoid.Executor {
			return browser.NewPageExecutor(p)
		},
		cursors: make(map[string]humanoid.Vector2D),
	}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

// run serializes op, bounds it with the operation timeout and logs failures
// with their cause before they are collapsed.
func (n *Navigator) run(ctx context.Context, name string, fields []zap.Field, op func(ctx context.Context, log *zap.Logger) Result) Result {
	n.mu.Lock()
	defer n.mu.Unlock()

	if n.cfg.OperationTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, n.cfg.OperationTimeout)
		defer cancel()
	}

	log := n.logger.With(append([]zap.Field{zap.String("op", name), zap.String("call_id", uuid.NewString())}, fields...)...)
	start := time.Now()
	res := op(ctx, log)
	elapsed := zap.Duration("elapsed", time.Since(start))

	switch {
	case !res.Failed():
		log.Debug("Operation succeeded.", elapsed)
	case res.Reason == ReasonSessionFatal:
		log.Error("Operation aborted: browser session unavailable.", elapsed, zap.Error(res.Err))
	default:
		log.Warn("Operation failed.", elapsed, zap.String("reason", string(res.Reason)), zap.Error(res.Err))
	}
	return res
}

// cursorFor returns the pointer position on p, placing it at random on
// first use.
func (n *Navigator) cursorFor(p browser.Page) humanoid.Vector2D {
	if pos, ok := n.cursors[p.ID()]; ok {
		return pos
	}
	pos := n.humanoid.RandomPoint(cursorMin, cursorMax)
	n.cursors[p.ID()] = pos
	return pos
}

// forgetClosed drops cursor state for pages that no longer exist.
func (n *Navigator) forgetClosed() {
	live := make(map[string]bool)
	for _, id := range n.session.Tabs().IDs() {
		live[id] = true
	}
	for id := range n.cursors {
		if !live[id] {
			delete(n.cursors, id)
		}
	}
}

// locate resolves the first match of selector to its bounding box centre.
func locate(ctx context.Context, p browser.Page, selector string) (humanoid.Vector2D, error) {
	count, box, err := p.FirstMatch(ctx, selector)
	if err != nil {
		return humanoid.Vector2D{}, err
	}
	if count == 0 {
		return humanoid.Vector2D{}, browser.ErrElementNotFound
	}
	if box == nil {
		return humanoid.Vector2D{}, browser.ErrNoBoundingBox
	}
	x, y := box.Center()
	return humanoid.Vector2D{X: x, Y: y}, nil
}

// moveTo glides the pointer from its last position on p to target.
func (n *Navigator) moveTo(ctx context.Context, p browser.Page, exec humanoid.Executor, target humanoid.Vector2D) error {
	from := n.cursorFor(p)
	duration := n.humanoid.MovementDuration(from.Dist(target))
	pos, err := n.humanoid.MoveAlong(ctx, exec, from, target, duration)
	n.cursors[p.ID()] = pos
	return err
}

// click presses at target after a short hold-off, leaving the cursor there.
func (n *Navigator) click(ctx context.Context, p browser.Page, exec humanoid.Executor, target humanoid.Vector2D, button browser.MouseButton, count int) error {
	if err := n.humanoid.Pause(ctx, exec, n.humanoid.Config().ClickHold); err != nil {
		return err
	}
	if err := p.MouseClick(ctx, target.X, target.Y, button, count); err != nil {
		return err
	}
	n.cursors[p.ID()] = target
	return nil
}

// Shutdown tears the browser session down.
func (n *Navigator) Shutdown(ctx context.Context) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.cursors = make(map[string]humanoid.Vector2D)
	return n.session.Shutdown(ctx)
}

func failWith(err error) Result {
	return failure(classify(err), err)
}
