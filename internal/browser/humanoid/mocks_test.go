// FILE: ./internal/browser/humanoid/mocks_test.go
package humanoid

import (
	"context"
	"sync"
	"testing"
	"time"
)

// call records one Executor invocation, in order.
type call struct {
	kind  string // "move", "keys" or "sleep"
	pos   Vector2D
	keys  string
	sleep time.Duration
}

// mockExecutor implements Executor for testing.
// This is centralized here to be reusable across all tests in the package.
type mockExecutor struct {
	t     *testing.T
	mu    sync.Mutex
	calls []call

	returnErr  error
	failOnCall int // 1-based; 0 fails every call when returnErr is set
	callCount  int

	// Function overrides for specific behaviors. If set, these replace the
	// default recording behavior.
	MockMouseMove func(ctx context.Context, x, y float64) error
	MockSendKeys  func(ctx context.Context, keys string) error
	MockSleep     func(ctx context.Context, d time.Duration) error
}

func newMockExecutor(t *testing.T) *mockExecutor {
	return &mockExecutor{t: t}
}

func (m *mockExecutor) record(ctx context.Context, c call) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.callCount++
	if m.returnErr != nil && (m.failOnCall == 0 || m.callCount == m.failOnCall) {
		return m.returnErr
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	m.calls = append(m.calls, c)
	return nil
}

func (m *mockExecutor) MouseMove(ctx context.Context, x, y float64) error {
	if m.MockMouseMove != nil {
		return m.MockMouseMove(ctx, x, y)
	}
	return m.record(ctx, call{kind: "move", pos: Vector2D{X: x, Y: y}})
}

func (m *mockExecutor) SendKeys(ctx context.Context, keys string) error {
	if m.MockSendKeys != nil {
		return m.MockSendKeys(ctx, keys)
	}
	return m.record(ctx, call{kind: "keys", keys: keys})
}

func (m *mockExecutor) Sleep(ctx context.Context, d time.Duration) error {
	if m.MockSleep != nil {
		return m.MockSleep(ctx, d)
	}
	return m.record(ctx, call{kind: "sleep", sleep: d})
}

// snapshot returns a copy of the recorded calls (for -race detector).
func (m *mockExecutor) snapshot() []call {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]call, len(m.calls))
	copy(out, m.calls)
	return out
}

func (m *mockExecutor) moves() []Vector2D {
	var out []Vector2D
	for _, c := range m.snapshot() {
		if c.kind == "move" {
			out = append(out, c.pos)
		}
	}
	return out
}

func (m *mockExecutor) keys() []string {
	var out []string
	for _, c := range m.snapshot() {
		if c.kind == "keys" {
			out = append(out, c.keys)
		}
	}
	return out
}

func (m *mockExecutor) sleeps() []time.Duration {
	var out []time.Duration
	for _, c := range m.snapshot() {
		if c.kind == "sleep" {
			out = append(out, c.sleep)
		}
	}
	return out
}
