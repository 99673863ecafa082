// internal/navigator/navigator_test.go
package navigator_test

import (
	"context"
	"encoding/base64"
	"errors"
	"math"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	jsoniter "github.com/json-iterator/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap/zaptest"

	"github.com/xkilldash9x/webnav-mcp/internal/browser"
	"github.com/xkilldash9x/webnav-mcp/internal/browser/humanoid"
	"github.com/xkilldash9x/webnav-mcp/internal/config"
	"github.com/xkilldash9x/webnav-mcp/internal/mocks"
	"github.com/xkilldash9x/webnav-mcp/internal/navigator"
)

const shopURL = "https://shop.test/"

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// instantExecutor drives the page without real delays.
type instantExecutor struct {
	*browser.PageExecutor
}

func (instantExecutor) Sleep(ctx context.Context, d time.Duration) error { return ctx.Err() }

func newNavigator(t *testing.T) (*navigator.Navigator, *mocks.Launcher) {
	t.Helper()
	launcher := mocks.NewLauncher()
	launcher.Sites[shopURL] = mocks.Site{
		Title: "Shop",
		HTML:  "<html><body><button id=buy>Buy</button></body></html>",
		Elements: map[string][]mocks.Element{
			"#buy":    {{Box: &browser.Box{X: 100, Y: 200, Width: 80, Height: 30}, Visible: true}},
			"#q":      {{Box: &browser.Box{X: 10, Y: 10, Width: 200, Height: 20}, Visible: true}},
			"#cart":   {{Box: &browser.Box{X: 600, Y: 40, Width: 40, Height: 40}, Visible: true}},
			"#hidden": {{Box: nil}},
			"#ghost":  {{Box: &browser.Box{X: 0, Y: 0, Width: 5, Height: 5}, Visible: false}},
		},
	}
	logger := zaptest.NewLogger(t)
	session := browser.NewSession(launcher, browser.LaunchOptions{Headless: true}, logger)
	nav := navigator.New(session, humanoid.NewTestHumanoid(7), config.NavigatorConfig{
		VisibilityTimeout: time.Second,
		OperationTimeout:  10 * time.Second,
	}, logger, navigator.WithExecutorFactory(func(p browser.Page) humanoid.Executor {
		return instantExecutor{browser.NewPageExecutor(p)}
	}))
	return nav, launcher
}

// openShop navigates to the fixture site and returns its page.
func openShop(t *testing.T, nav *navigator.Navigator, launcher *mocks.Launcher) *mocks.Page {
	t.Helper()
	res := nav.Navigate(context.Background(), shopURL)
	require.Equal(t, navigator.OK, res.String(), "navigate: %v", res.Err)
	return activePage(t, launcher)
}

func activePage(t *testing.T, launcher *mocks.Launcher) *mocks.Page {
	t.Helper()
	pages := launcher.Browser().FakeContexts()[0].FakePages()
	require.NotEmpty(t, pages)
	return pages[len(pages)-1]
}

func within(t *testing.T, want humanoid.Vector2D, x, y, tol float64) {
	t.Helper()
	assert.LessOrEqual(t, math.Abs(x-want.X), tol, "x")
	assert.LessOrEqual(t, math.Abs(y-want.Y), tol, "y")
}

func TestClickElement_MissingSelectorDoesNotMove(t *testing.T) {
	nav, launcher := newNavigator(t)
	page := openShop(t, nav, launcher)

	res := nav.ClickElement(context.Background(), "#missing")

	assert.Equal(t, "ERROR", res.String())
	assert.Equal(t, navigator.ReasonNotFound, res.Reason)
	assert.ErrorIs(t, res.Err, browser.ErrElementNotFound)
	assert.NoError(t, res.Propagate())
	assert.Zero(t, page.CountEvents("move"))
	assert.Zero(t, page.CountEvents("click"))
}

func TestClickElement_UnrenderedElement(t *testing.T) {
	nav, launcher := newNavigator(t)
	page := openShop(t, nav, launcher)

	res := nav.ClickElement(context.Background(), "#hidden")

	assert.Equal(t, "ERROR", res.String())
	assert.Equal(t, navigator.ReasonNoBox, res.Reason)
	assert.Zero(t, page.CountEvents("move"))
}

func TestClickElement_GlidesAndClicksCentre(t *testing.T) {
	nav, launcher := newNavigator(t)
	page := openShop(t, nav, launcher)

	res := nav.ClickElement(context.Background(), "#buy")
	require.Equal(t, "OK", res.String(), "click: %v", res.Err)

	centre := humanoid.Vector2D{X: 140, Y: 215}
	assert.Greater(t, page.CountEvents("move"), 1, "pointer travels along a path")
	lastMove, _ := page.LastEvent("move")
	within(t, centre, lastMove.X, lastMove.Y, 1)

	click, ok := page.LastEvent("click")
	require.True(t, ok)
	assert.Equal(t, mocks.Event{Kind: "click", X: 140, Y: 215, Button: browser.ButtonLeft, Clicks: 1}, click)
}

func TestClickElement_CursorContinuesFromLastTarget(t *testing.T) {
	nav, launcher := newNavigator(t)
	page := openShop(t, nav, launcher)
	ctx := context.Background()

	require.Equal(t, "OK", nav.ClickElement(ctx, "#buy").String())
	require.Equal(t, "OK", nav.ClickElement(ctx, "#cart").String())
	seen := len(page.Events)

	// The next path starts where the previous click left the pointer.
	require.Equal(t, "OK", nav.ClickElement(ctx, "#buy").String())
	first := page.Events[seen]
	require.Equal(t, "move", first.Kind)
	within(t, humanoid.Vector2D{X: 620, Y: 60}, first.X, first.Y, 1)
}

func TestTypeText_FieldReceivesExactText(t *testing.T) {
	nav, launcher := newNavigator(t)
	page := openShop(t, nav, launcher)
	text := "Quick brown foxes jump. Really? Yes!"

	res := nav.TypeText(context.Background(), "#q", text)
	require.Equal(t, "OK", res.String(), "type: %v", res.Err)

	assert.Equal(t, text, page.Typed())
	click, ok := page.LastEvent("click")
	require.True(t, ok, "field is focused by a click")
	assert.Equal(t, 110.0, click.X)
	assert.Equal(t, 20.0, click.Y)
}

func TestTypeText_MissingField(t *testing.T) {
	nav, launcher := newNavigator(t)
	page := openShop(t, nav, launcher)

	res := nav.TypeText(context.Background(), "#nope", "hello")
	assert.Equal(t, "ERROR", res.String())
	assert.Equal(t, navigator.ReasonNotFound, res.Reason)
	assert.Empty(t, page.Typed())
	assert.Zero(t, page.CountEvents("move"))
}

func TestHumanMouseGesture(t *testing.T) {
	tests := []struct {
		action     navigator.GestureAction
		wantClicks int
		wantButton browser.MouseButton
		wantCount  int
	}{
		{navigator.GestureMove, 0, "", 0},
		{navigator.GestureHover, 0, "", 0},
		{navigator.GestureClick, 1, browser.ButtonLeft, 1},
		{navigator.GestureDoubleClick, 1, browser.ButtonLeft, 2},
		{navigator.GestureRightClick, 1, browser.ButtonRight, 1},
	}
	for _, tt := range tests {
		t.Run(string(tt.action), func(t *testing.T) {
			nav, launcher := newNavigator(t)
			page := openShop(t, nav, launcher)

			res := nav.HumanMouseGesture(context.Background(), "#buy", tt.action)
			require.Equal(t, "OK", res.String(), "gesture: %v", res.Err)

			assert.Greater(t, page.CountEvents("move"), 0)
			assert.Equal(t, tt.wantClicks, page.CountEvents("click"))
			if tt.wantClicks > 0 {
				click, _ := page.LastEvent("click")
				assert.Equal(t, tt.wantButton, click.Button)
				assert.Equal(t, tt.wantCount, click.Clicks)
			}
		})
	}
}

func TestHumanMouseGesture_Failures(t *testing.T) {
	t.Run("unknown action never starts a browser", func(t *testing.T) {
		nav, launcher := newNavigator(t)
		res := nav.HumanMouseGesture(context.Background(), "#buy", "wiggle")
		assert.Equal(t, "ERROR", res.String())
		assert.Equal(t, navigator.ReasonBadArgument, res.Reason)
		assert.Zero(t, launcher.Starts)
	})

	t.Run("invisible element", func(t *testing.T) {
		nav, launcher := newNavigator(t)
		page := openShop(t, nav, launcher)
		res := nav.HumanMouseGesture(context.Background(), "#ghost", navigator.GestureClick)
		assert.Equal(t, "ERROR", res.String())
		assert.Equal(t, navigator.ReasonNotFound, res.Reason)
		assert.Zero(t, page.CountEvents("move"))
	})

	t.Run("session failure is collapsed", func(t *testing.T) {
		nav, launcher := newNavigator(t)
		launcher.LaunchErr = errors.New("no chrome")
		res := nav.HumanMouseGesture(context.Background(), "#buy", navigator.GestureMove)
		assert.Equal(t, "ERROR", res.String())
		assert.NoError(t, res.Propagate())
		assert.ErrorIs(t, res.Err, browser.ErrSessionFatal)
	})

	t.Run("input failure", func(t *testing.T) {
		nav, launcher := newNavigator(t)
		page := openShop(t, nav, launcher)
		page.InputErr = errors.New("renderer hung")
		res := nav.HumanMouseGesture(context.Background(), "#buy", navigator.GestureClick)
		assert.Equal(t, "ERROR", res.String())
		assert.Equal(t, navigator.ReasonInternal, res.Reason)
	})
}

func TestNavigate_FailuresPropagate(t *testing.T) {
	t.Run("launch failure", func(t *testing.T) {
		nav, launcher := newNavigator(t)
		launcher.LaunchErr = errors.New("chrome binary not found")

		res := nav.Navigate(context.Background(), shopURL)
		require.True(t, res.Failed())
		assert.Equal(t, navigator.ReasonSessionFatal, res.Reason)
		err := res.Propagate()
		require.Error(t, err)
		assert.ErrorIs(t, err, browser.ErrSessionFatal)
		assert.ErrorIs(t, err, launcher.LaunchErr)
	})

	t.Run("navigation failure", func(t *testing.T) {
		nav, launcher := newNavigator(t)
		gotoErr := errors.New("net::ERR_NAME_NOT_RESOLVED")
		launcher.GotoErrs["https://nowhere.invalid/"] = gotoErr

		res := nav.Navigate(context.Background(), "https://nowhere.invalid/")
		assert.Equal(t, navigator.ReasonNavigation, res.Reason)
		assert.ErrorIs(t, res.Propagate(), gotoErr)
	})
}

func TestNavigate_ReusesActivePage(t *testing.T) {
	nav, launcher := newNavigator(t)
	ctx := context.Background()

	first := openShop(t, nav, launcher)
	require.Equal(t, "OK", nav.Navigate(ctx, "https://other.test/").String())

	assert.Equal(t, 1, launcher.Launches)
	assert.Equal(t, first.ID(), activePage(t, launcher).ID())
	assert.Equal(t, "https://other.test/", first.URL())
}

func TestOpenNewTab_RequiresBrowsingContext(t *testing.T) {
	nav, launcher := newNavigator(t)

	res := nav.OpenNewTab(context.Background(), shopURL)

	assert.Equal(t, "ERROR", res.String())
	assert.Equal(t, navigator.ReasonNoContext, res.Reason)
	assert.Zero(t, launcher.Starts, "opening a tab never launches a browser")
}

func TestTabScenario(t *testing.T) {
	nav, launcher := newNavigator(t)
	ctx := context.Background()

	openShop(t, nav, launcher)
	require.Equal(t, "OK", nav.OpenNewTab(ctx, "https://b.test/").String())
	require.Equal(t, "OK", nav.OpenNewTab(ctx, "https://c.test/").String())
	assert.Equal(t, "3", nav.GetTabCount(ctx).String())

	pages := launcher.Browser().FakeContexts()[0].FakePages()
	a, b, c := pages[0], pages[1], pages[2]

	require.Equal(t, "OK", nav.SwitchToTab(ctx, 1).String())
	require.Equal(t, "OK", nav.CloseTab(ctx, nil).String())
	assert.True(t, b.IsClosed())
	assert.Equal(t, "2", nav.GetTabCount(ctx).String())

	// The last remaining tab took over; content now comes from it.
	launcher.Sites["https://c.test/"] = mocks.Site{HTML: "<p>c</p>"}
	require.NoError(t, c.Goto(ctx, "https://c.test/"))
	assert.Equal(t, "<p>c</p>", nav.GetPageContent(ctx).String())

	require.Equal(t, "OK", nav.SwitchToTab(ctx, 0).String())
	assert.Equal(t, "2", nav.GetTabCount(ctx).String())
	assert.Equal(t, 1, a.Fronted)
}

func TestTabOperations_Failures(t *testing.T) {
	nav, launcher := newNavigator(t)
	ctx := context.Background()

	assert.Equal(t, "0", nav.GetTabCount(ctx).String())
	res := nav.SwitchToTab(ctx, 0)
	assert.Equal(t, "ERROR", res.String())
	assert.Equal(t, navigator.ReasonNoContext, res.Reason)
	assert.Equal(t, navigator.ReasonNoActivePage, nav.CloseTab(ctx, nil).Reason)

	openShop(t, nav, launcher)
	for _, idx := range []int{-1, 1, 99} {
		res := nav.SwitchToTab(ctx, idx)
		assert.Equal(t, "ERROR", res.String())
		assert.Equal(t, navigator.ReasonOutOfRange, res.Reason, "index %d", idx)
	}
	bad := 5
	assert.Equal(t, navigator.ReasonOutOfRange, nav.CloseTab(ctx, &bad).Reason)

	zero := 0
	require.Equal(t, "OK", nav.CloseTab(ctx, &zero).String())
	assert.Equal(t, "0", nav.GetTabCount(ctx).String())
	assert.Equal(t, "ERROR", nav.CloseTab(ctx, nil).String(), "no pages left")
}

func TestGetScreenshot(t *testing.T) {
	nav, launcher := newNavigator(t)
	openShop(t, nav, launcher)

	res := nav.GetScreenshot(context.Background())
	require.Equal(t, navigator.StatusPayload, res.Status)

	raw, err := base64.StdEncoding.DecodeString(res.String())
	require.NoError(t, err)
	assert.Equal(t, launcher.ScreenshotPNG, raw)
}

func TestGetScreenshot_Failure(t *testing.T) {
	nav, launcher := newNavigator(t)
	page := openShop(t, nav, launcher)
	page.ScreenshotErr = errors.New("capture failed")

	res := nav.GetScreenshot(context.Background())
	assert.Equal(t, "ERROR", res.String())
	assert.NoError(t, res.Propagate())
}

func TestGetPageContent(t *testing.T) {
	nav, launcher := newNavigator(t)
	page := openShop(t, nav, launcher)

	assert.Equal(t, launcher.Sites[shopURL].HTML, nav.GetPageContent(context.Background()).String())

	page.ContentErr = errors.New("detached")
	assert.Equal(t, "ERROR", nav.GetPageContent(context.Background()).String())
}

func TestListTabs(t *testing.T) {
	nav, launcher := newNavigator(t)
	ctx := context.Background()
	assert.Equal(t, "[]", nav.ListTabs(ctx).String())

	first := openShop(t, nav, launcher)
	require.Equal(t, "OK", nav.OpenNewTab(ctx, "https://b.test/").String())
	second := activePage(t, launcher)

	var got []browser.TabInfo
	require.NoError(t, jsoniter.UnmarshalFromString(nav.ListTabs(ctx).String(), &got))
	want := []browser.TabInfo{
		{Index: 0, ID: first.ID(), URL: shopURL, Title: "Shop"},
		{Index: 1, ID: second.ID(), URL: "https://b.test/", Active: true},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("ListTabs mismatch (-want +got):\n%s", diff)
	}
}

func TestOperationsAreSerialized(t *testing.T) {
	nav, launcher := newNavigator(t)
	ctx := context.Background()

	var wg sync.WaitGroup
	results := make([]string, 8)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i] = nav.Navigate(ctx, shopURL).String()
		}(i)
	}
	wg.Wait()

	for _, r := range results {
		assert.Equal(t, "OK", r)
	}
	assert.Equal(t, 1, launcher.Launches, "concurrent first calls share one browser")
	assert.Equal(t, "1", nav.GetTabCount(ctx).String())
}

func TestShutdown(t *testing.T) {
	nav, launcher := newNavigator(t)
	page := openShop(t, nav, launcher)

	require.NoError(t, nav.Shutdown(context.Background()))
	assert.True(t, page.IsClosed())
	assert.True(t, launcher.Engines[0].Stopped)

	// The next operation cold starts again.
	require.Equal(t, "OK", nav.Navigate(context.Background(), shopURL).String())
	assert.Equal(t, 2, launcher.Launches)
}
