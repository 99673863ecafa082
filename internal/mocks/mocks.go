// File: internal/mocks/mocks.go
package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/xkilldash9x/webnav-mcp/internal/browser"
)

// -- Launcher Mock --

// MockLauncher mocks browser.Launcher for failure-path tests where the fake
// driver is more than needed.
type MockLauncher struct {
	mock.Mock
}

// Start implements browser.Launcher.
func (m *MockLauncher) Start(ctx context.Context) (browser.Engine, error) {
	args := m.Called(ctx)
	if e := args.Get(0); e != nil {
		return e.(browser.Engine), args.Error(1)
	}
	return nil, args.Error(1)
}

// -- Engine Mock --

// MockEngine mocks browser.Engine.
type MockEngine struct {
	mock.Mock
}

// Launch implements browser.Engine.
func (m *MockEngine) Launch(ctx context.Context, opts browser.LaunchOptions) (browser.Browser, error) {
	args := m.Called(ctx, opts)
	if b := args.Get(0); b != nil {
		return b.(browser.Browser), args.Error(1)
	}
	return nil, args.Error(1)
}

// Stop implements browser.Engine.
func (m *MockEngine) Stop() error {
	args := m.Called()
	return args.Error(0)
}
