// internal/browser/cdpdriver/context_utils.go
package cdpdriver

import (
	"context"
	"time"
)

// CombineContext returns a context carrying ctx1's values (the chromedp
// target) that is cancelled when either ctx1 or ctx2 (the caller's deadline)
// is done.
func CombineContext(ctx1, ctx2 context.Context) (context.Context, context.CancelFunc) {
	combinedCtx, cancel := context.WithCancel(ctx1)

	go func() {
		select {
		case <-ctx2.Done():
			cancel()
		case <-combinedCtx.Done():
		}
	}()

	return combinedCtx, cancel
}

type valueOnlyContext struct {
	context.Context
}

func (valueOnlyContext) Deadline() (deadline time.Time, ok bool) { return }
func (valueOnlyContext) Done() <-chan struct{}                       { return nil }
func (valueOnlyContext) Err() error                                  { return nil }

// Detach returns a context that keeps ctx's values but never expires. The
// browser allocator hangs off it so a request deadline cannot kill Chrome.
func Detach(ctx context.Context) context.Context {
	return valueOnlyContext{ctx}
}
