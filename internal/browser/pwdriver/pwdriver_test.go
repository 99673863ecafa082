// internal/browser/pwdriver/pwdriver_test.go
package pwdriver

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/playwright-community/playwright-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap/zaptest"

	"github.com/xkilldash9x/webnav-mcp/internal/browser"
	"github.com/xkilldash9x/webnav-mcp/internal/browser/stealth"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func TestLaunchOptions(t *testing.T) {
	lo := browser.LaunchOptions{
		Headless: true,
		Args:     append([]string{}, browser.RequiredArgs...),
		Timeout:  45 * time.Second,
	}

	got := launchOptions(lo, "/opt/chromium/chrome")

	require.NotNil(t, got.Headless)
	assert.True(t, *got.Headless)
	assert.Equal(t, browser.RequiredArgs, got.Args)
	require.NotNil(t, got.Timeout)
	assert.Equal(t, 45000.0, *got.Timeout)
	require.NotNil(t, got.ExecutablePath)
	assert.Equal(t, "/opt/chromium/chrome", *got.ExecutablePath)

	bare := launchOptions(browser.LaunchOptions{}, "")
	assert.False(t, *bare.Headless)
	assert.Nil(t, bare.Timeout, "zero timeout leaves Playwright's default")
	assert.Nil(t, bare.ExecutablePath)
}

func TestContextOptions(t *testing.T) {
	got := contextOptions(stealth.DefaultPersona, 1280, 720)

	require.NotNil(t, got.UserAgent)
	assert.Equal(t, stealth.DefaultPersona.UserAgent, *got.UserAgent)
	assert.Equal(t, "en-US", *got.Locale)
	assert.Equal(t, "America/New_York", *got.TimezoneId)
	require.NotNil(t, got.Viewport)
	assert.Equal(t, playwright.Size{Width: 1280, Height: 720}, *got.Viewport)
	assert.Equal(t, "en-US,en;q=0.9", got.ExtraHttpHeaders["Accept-Language"])

	noViewport := contextOptions(stealth.Persona{Locale: "fr-FR"}, 0, 0)
	assert.Nil(t, noViewport.Viewport)
	assert.Nil(t, noViewport.UserAgent)
	assert.Equal(t, "fr-FR", noViewport.ExtraHttpHeaders["Accept-Language"])
}

func TestMouseButton(t *testing.T) {
	assert.Equal(t, playwright.MouseButtonLeft, mouseButton(browser.ButtonLeft))
	assert.Equal(t, playwright.MouseButtonRight, mouseButton(browser.ButtonRight))
	assert.Equal(t, playwright.MouseButtonMiddle, mouseButton(browser.ButtonMiddle))
	assert.Equal(t, playwright.MouseButtonLeft, mouseButton(""))
}

func TestLauncher_Start(t *testing.T) {
	t.Run("driver start failure is wrapped", func(t *testing.T) {
		l := NewLauncher(Options{}, zaptest.NewLogger(t))
		runErr := errors.New("driver binary missing")
		var gotOpts *playwright.RunOptions
		l.run = func(opts ...*playwright.RunOptions) (*playwright.Playwright, error) {
			gotOpts = opts[0]
			return nil, runErr
		}
		l.install = func(*playwright.RunOptions) error {
			t.Fatal("install must not run when disabled")
			return nil
		}

		engine, err := l.Start(context.Background())
		assert.Nil(t, engine)
		assert.ErrorIs(t, err, runErr)
		assert.Contains(t, err.Error(), "failed to start playwright driver")
		assert.Equal(t, []string{"chromium"}, gotOpts.Browsers)
	})

	t.Run("installation runs once and its failure sticks", func(t *testing.T) {
		l := NewLauncher(Options{Install: true}, nil)
		installs := 0
		installErr := errors.New("download failed")
		l.install = func(*playwright.RunOptions) error {
			installs++
			return installErr
		}
		l.run = func(...*playwright.RunOptions) (*playwright.Playwright, error) {
			t.Fatal("driver must not start after a failed install")
			return nil, nil
		}

		for i := 0; i < 3; i++ {
			_, err := l.Start(context.Background())
			assert.ErrorIs(t, err, installErr)
		}
		assert.Equal(t, 1, installs)
	})

	t.Run("installation timeout", func(t *testing.T) {
		l := NewLauncher(Options{Install: true, InstallTimeout: 20 * time.Millisecond}, nil)
		release := make(chan struct{})
		l.install = func(*playwright.RunOptions) error {
			<-release
			return nil
		}
		defer close(release)

		_, err := l.Start(context.Background())
		require.Error(t, err)
		assert.True(t, strings.Contains(err.Error(), "timeout waiting for Playwright installation"))
		assert.ErrorIs(t, err, context.DeadlineExceeded)
	})

	t.Run("cancelled context", func(t *testing.T) {
		l := NewLauncher(Options{}, nil)
		l.run = func(...*playwright.RunOptions) (*playwright.Playwright, error) {
			t.Fatal("driver must not start with a cancelled context")
			return nil, nil
		}
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		_, err := l.Start(ctx)
		assert.ErrorIs(t, err, context.Canceled)
	})
}

func TestNewPageID(t *testing.T) {
	a, b := newPageID(), newPageID()
	assert.True(t, strings.HasPrefix(a, "pw-"))
	assert.NotEqual(t, a, b)
}
