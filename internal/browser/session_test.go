// internal/browser/session_test.go
package browser_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/xkilldash9x/webnav-mcp/internal/browser"
	"github.com/xkilldash9x/webnav-mcp/internal/mocks"
)

func newTestSession(t *testing.T) (*browser.Session, *mocks.Launcher) {
	t.Helper()
	launcher := mocks.NewLauncher()
	s := browser.NewSession(launcher, browser.LaunchOptions{Headless: true, Args: []string{"--lang=en-US"}}, zaptest.NewLogger(t))
	return s, launcher
}

func TestAcquirePage_ColdStart(t *testing.T) {
	s, launcher := newTestSession(t)
	ctx := context.Background()

	page, err := s.AcquirePage(ctx)
	require.NoError(t, err)
	require.NotNil(t, page)

	assert.Equal(t, 1, launcher.Starts)
	assert.Equal(t, 1, launcher.Launches)
	assert.True(t, launcher.LastLaunch.Headless)
	assert.Equal(t, append(append([]string{}, browser.RequiredArgs...), "--lang=en-US"), launcher.LastLaunch.Args)

	fake := page.(*mocks.Page)
	assert.True(t, fake.Patched, "new pages must be stealth patched")
	assert.Equal(t, page.ID(), s.ActivePage().ID())
	assert.Equal(t, 1, s.Tabs().Count())
}

func TestAcquirePage_Idempotent(t *testing.T) {
	s, launcher := newTestSession(t)
	ctx := context.Background()

	first, err := s.AcquirePage(ctx)
	require.NoError(t, err)
	for i := 0; i < 5; i++ {
		again, err := s.AcquirePage(ctx)
		require.NoError(t, err)
		assert.Equal(t, first.ID(), again.ID())
	}
	assert.Equal(t, 1, launcher.Starts)
	assert.Equal(t, 1, launcher.Launches)
	assert.Len(t, launcher.Browser().FakeContexts(), 1)
}

func TestAcquirePage_ClosedPageReusesBrowser(t *testing.T) {
	s, launcher := newTestSession(t)
	ctx := context.Background()

	first, err := s.AcquirePage(ctx)
	require.NoError(t, err)
	require.NoError(t, first.Close(ctx))
	assert.Nil(t, s.ActivePage())

	second, err := s.AcquirePage(ctx)
	require.NoError(t, err)
	assert.NotEqual(t, first.ID(), second.ID())
	assert.Equal(t, 1, launcher.Launches, "a live browser must not be relaunched")

	// The emptied context was pruned, so the new one is context 0.
	contexts := launcher.Browser().FakeContexts()
	require.Len(t, contexts, 1)
	assert.Equal(t, 1, s.Tabs().Count())
	assert.True(t, second.(*mocks.Page).Patched)
}

func TestAcquirePage_DeadBrowserSelfHeals(t *testing.T) {
	s, launcher := newTestSession(t)
	ctx := context.Background()

	first, err := s.AcquirePage(ctx)
	require.NoError(t, err)
	dead := launcher.Browser()
	dead.Crash()

	second, err := s.AcquirePage(ctx)
	require.NoError(t, err)
	assert.NotEqual(t, first.ID(), second.ID())
	assert.Equal(t, 1, launcher.Starts, "engine process is reused")
	assert.Equal(t, 2, launcher.Launches)
	assert.NotSame(t, dead, launcher.Browser())
	assert.True(t, launcher.Browser().IsConnected())
}

func TestAcquirePage_LaunchFailureIsFatal(t *testing.T) {
	s, launcher := newTestSession(t)
	launcher.LaunchErr = errors.New("chromium exited with code 127")

	page, err := s.AcquirePage(context.Background())
	require.Error(t, err)
	assert.Nil(t, page)
	assert.ErrorIs(t, err, browser.ErrSessionFatal)
	assert.ErrorIs(t, err, launcher.LaunchErr)
	assert.Equal(t, 1, launcher.Launches, "no internal retry")
	assert.True(t, launcher.Engines[0].Stopped, "engine is discarded after a failed launch")

	// The next call starts over and succeeds once the cause is gone.
	launcher.LaunchErr = nil
	page, err = s.AcquirePage(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, page)
	assert.Equal(t, 2, launcher.Starts)
}

func TestAcquirePage_StealthFailureIsFatal(t *testing.T) {
	s, launcher := newTestSession(t)
	launcher.StealthErr = errors.New("init script rejected")

	_, err := s.AcquirePage(context.Background())
	assert.ErrorIs(t, err, browser.ErrSessionFatal)
	assert.Nil(t, s.ActivePage())
}

func TestAcquirePage_EngineStartFailure(t *testing.T) {
	launcher := new(mocks.MockLauncher)
	startErr := errors.New("driver not installed")
	launcher.On("Start", mock.Anything).Return(nil, startErr).Once()

	s := browser.NewSession(launcher, browser.LaunchOptions{}, nil)
	_, err := s.AcquirePage(context.Background())

	assert.ErrorIs(t, err, browser.ErrSessionFatal)
	assert.ErrorIs(t, err, startErr)
	launcher.AssertExpectations(t)
}

func TestAcquirePage_EngineLaunchReceivesRequiredArgs(t *testing.T) {
	engine := new(mocks.MockEngine)
	launcher := new(mocks.MockLauncher)
	launcher.On("Start", mock.Anything).Return(engine, nil).Once()

	launchErr := errors.New("connection refused")
	engine.On("Launch", mock.Anything, mock.MatchedBy(func(o browser.LaunchOptions) bool {
		return len(o.Args) == len(browser.RequiredArgs) && o.Args[2] == "--disable-blink-features=AutomationControlled"
	})).Return(nil, launchErr).Once()
	engine.On("Stop").Return(nil).Once()

	s := browser.NewSession(launcher, browser.LaunchOptions{Headless: true}, nil)
	_, err := s.AcquirePage(context.Background())

	assert.ErrorIs(t, err, launchErr)
	launcher.AssertExpectations(t)
	engine.AssertExpectations(t)
}

func TestOpenTab(t *testing.T) {
	t.Run("NoBrowser", func(t *testing.T) {
		s, launcher := newTestSession(t)
		_, err := s.OpenTab(context.Background(), "https://example.test")
		assert.ErrorIs(t, err, browser.ErrNoBrowsingContext)
		assert.Zero(t, launcher.Starts, "opening a tab never launches")
	})

	t.Run("OpensInContextZeroAndActivates", func(t *testing.T) {
		s, _ := newTestSession(t)
		ctx := context.Background()
		_, err := s.AcquirePage(ctx)
		require.NoError(t, err)

		tab, err := s.OpenTab(ctx, "https://example.test/second")
		require.NoError(t, err)
		assert.Equal(t, "https://example.test/second", tab.URL())
		assert.Equal(t, tab.ID(), s.ActivePage().ID())
		assert.Equal(t, 2, s.Tabs().Count())
	})

	t.Run("NavigationFailureKeepsTab", func(t *testing.T) {
		s, launcher := newTestSession(t)
		ctx := context.Background()
		_, err := s.AcquirePage(ctx)
		require.NoError(t, err)

		navErr := errors.New("net::ERR_NAME_NOT_RESOLVED")
		launcher.GotoErrs["https://bad.test"] = navErr
		tab, err := s.OpenTab(ctx, "https://bad.test")
		assert.ErrorIs(t, err, navErr)
		require.NotNil(t, tab)
		assert.Equal(t, tab.ID(), s.ActivePage().ID())
		assert.Equal(t, 2, s.Tabs().Count())
	})
}

func TestShutdown(t *testing.T) {
	s, launcher := newTestSession(t)
	ctx := context.Background()

	_, err := s.AcquirePage(ctx)
	require.NoError(t, err)
	b := launcher.Browser()

	require.NoError(t, s.Shutdown(ctx))
	assert.False(t, b.IsConnected())
	assert.True(t, launcher.Engines[0].Stopped)
	assert.Nil(t, s.ActivePage())
	assert.Nil(t, s.Browser())
	assert.Equal(t, 0, s.Tabs().Count())

	// A shut down session cold starts again on demand.
	_, err = s.AcquirePage(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, launcher.Starts)
}
