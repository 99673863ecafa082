// internal/navigator/operations.go
package navigator

import (
	"context"
	"encoding/base64"
	"fmt"
	"strconv"

	jsoniter "github.com/json-iterator/go"
	"go.uber.org/zap"

	"github.com/xkilldash9x/webnav-mcp/internal/browser"
)

// GestureAction is a human_mouse_gesture action.
type GestureAction string

const (
	GestureMove        GestureAction = "move"
	GestureClick       GestureAction = "click"
	GestureDoubleClick GestureAction = "double_click"
	GestureRightClick  GestureAction = "right_click"
	GestureHover       GestureAction = "hover"
)

// Navigate loads url in the active page. Session and navigation failures
// are propagated, not collapsed.
func (n *Navigator) Navigate(ctx context.Context, url string) Result {
	return n.run(ctx, "navigate", []zap.Field{zap.String("url", url)}, func(ctx context.Context, log *zap.Logger) Result {
		p, err := n.session.AcquirePage(ctx)
		if err != nil {
			return failure(ReasonSessionFatal, err)
		}
		if err := p.Goto(ctx, url); err != nil {
			return failure(ReasonNavigation, fmt.Errorf("navigator: navigate to %s: %w", url, err))
		}
		log.Info("Navigated.", zap.String("page_id", p.ID()))
		return ok()
	})
}

// OpenNewTab opens url in a new tab of the current browsing context and
// makes it active. It never starts a browser.
func (n *Navigator) OpenNewTab(ctx context.Context, url string) Result {
	return n.run(ctx, "open_new_tab", []zap.Field{zap.String("url", url)}, func(ctx context.Context, log *zap.Logger) Result {
		if _, err := n.session.OpenTab(ctx, url); err != nil {
			return failWith(err)
		}
		return ok()
	})
}

// ClickElement glides to the first match of selector and left-clicks it.
// Nothing moves when the element is missing or not rendered.
func (n *Navigator) ClickElement(ctx context.Context, selector string) Result {
	return n.run(ctx, "click_element", []zap.Field{zap.String("selector", selector)}, func(ctx context.Context, log *zap.Logger) Result {
		p, err := n.session.AcquirePage(ctx)
		if err != nil {
			return failure(ReasonSessionFatal, err)
		}
		target, err := locate(ctx, p, selector)
		if err != nil {
			return failWith(err)
		}
		exec := n.newExecutor(p)
		if err := n.moveTo(ctx, p, exec, target); err != nil {
			return failWith(err)
		}
		if err := n.click(ctx, p, exec, target, browser.ButtonLeft, 1); err != nil {
			return failWith(err)
		}
		return ok()
	})
}

// TypeText focuses the first match of selector with a click and types text
// with human cadence.
func (n *Navigator) TypeText(ctx context.Context, selector, text string) Result {
	return n.run(ctx, "type_text", []zap.Field{zap.String("selector", selector), zap.Int("length", len([]rune(text)))}, func(ctx context.Context, log *zap.Logger) Result {
		p, err := n.session.AcquirePage(ctx)
		if err != nil {
			return failure(ReasonSessionFatal, err)
		}
		target, err := locate(ctx, p, selector)
		if err != nil {
			return failWith(err)
		}
		exec := n.newExecutor(p)
		if err := n.moveTo(ctx, p, exec, target); err != nil {
			return failWith(err)
		}
		if err := n.click(ctx, p, exec, target, browser.ButtonLeft, 1); err != nil {
			return failWith(err)
		}
		if err := n.humanoid.Type(ctx, exec, text); err != nil {
			return failWith(err)
		}
		return ok()
	})
}

// HumanMouseGesture performs action on the first match of selector after
// waiting for it to become visible. Every failure, including an unusable
// session, is reported as the failure indicator.
func (n *Navigator) HumanMouseGesture(ctx context.Context, selector string, action GestureAction) Result {
	fields := []zap.Field{zap.String("selector", selector), zap.String("action", string(action))}
	return n.run(ctx, "human_mouse_gesture", fields, func(ctx context.Context, log *zap.Logger) Result {
		switch action {
		case GestureMove, GestureClick, GestureDoubleClick, GestureRightClick, GestureHover:
		default:
			return failure(ReasonBadArgument, fmt.Errorf("navigator: unknown gesture %q", action))
		}

		p, err := n.session.AcquirePage(ctx)
		if err != nil {
			return failure(ReasonInternal, err)
		}
		if err := p.WaitVisible(ctx, selector, n.cfg.VisibilityTimeout); err != nil {
			return failure(ReasonNotFound, fmt.Errorf("navigator: %q not visible: %w", selector, err))
		}
		target, err := locate(ctx, p, selector)
		if err != nil {
			return failWith(err)
		}

		exec := n.newExecutor(p)
		if err := n.moveTo(ctx, p, exec, target); err != nil {
			return failWith(err)
		}
		switch action {
		case GestureClick:
			err = n.click(ctx, p, exec, target, browser.ButtonLeft, 1)
		case GestureDoubleClick:
			err = n.click(ctx, p, exec, target, browser.ButtonLeft, 2)
		case GestureRightClick:
			err = n.click(ctx, p, exec, target, browser.ButtonRight, 1)
		case GestureHover:
			err = n.humanoid.Pause(ctx, exec, n.humanoid.Config().HoverDwell)
		}
		if err != nil {
			return failWith(err)
		}
		return ok()
	})
}

// GetTabCount reports the number of open tabs as a decimal string.
func (n *Navigator) GetTabCount(ctx context.Context) Result {
	return n.run(ctx, "get_tab_count", nil, func(ctx context.Context, log *zap.Logger) Result {
		return payload(strconv.Itoa(n.session.Tabs().Count()))
	})
}

// SwitchToTab makes tab index active.
func (n *Navigator) SwitchToTab(ctx context.Context, index int) Result {
	return n.run(ctx, "switch_to_tab", []zap.Field{zap.Int("index", index)}, func(ctx context.Context, log *zap.Logger) Result {
		if err := n.session.Tabs().Switch(ctx, index); err != nil {
			return failWith(err)
		}
		return ok()
	})
}

// CloseTab closes tab *index, or the active tab when index is nil.
func (n *Navigator) CloseTab(ctx context.Context, index *int) Result {
	var fields []zap.Field
	if index != nil {
		fields = append(fields, zap.Int("index", *index))
	}
	return n.run(ctx, "close_tab", fields, func(ctx context.Context, log *zap.Logger) Result {
		tabs := n.session.Tabs()
		var err error
		if index == nil {
			err = tabs.CloseCurrent(ctx)
		} else {
			err = tabs.CloseAt(ctx, *index)
		}
		if err != nil {
			return failWith(err)
		}
		n.forgetClosed()
		return ok()
	})
}

// GetScreenshot captures the full active page as base64-encoded PNG.
func (n *Navigator) GetScreenshot(ctx context.Context) Result {
	return n.run(ctx, "get_screenshot", nil, func(ctx context.Context, log *zap.Logger) Result {
		p, err := n.session.AcquirePage(ctx)
		if err != nil {
			return failure(ReasonSessionFatal, err)
		}
		png, err := p.Screenshot(ctx, true)
		if err != nil {
			return failWith(fmt.Errorf("navigator: screenshot: %w", err))
		}
		log.Debug("Captured screenshot.", zap.Int("bytes", len(png)))
		return payload(base64.StdEncoding.EncodeToString(png))
	})
}

// GetPageContent returns the active page's HTML.
func (n *Navigator) GetPageContent(ctx context.Context) Result {
	return n.run(ctx, "get_page_content", nil, func(ctx context.Context, log *zap.Logger) Result {
		p, err := n.session.AcquirePage(ctx)
		if err != nil {
			return failure(ReasonSessionFatal, err)
		}
		html, err := p.Content(ctx)
		if err != nil {
			return failWith(fmt.Errorf("navigator: page content: %w", err))
		}
		return payload(html)
	})
}

// ListTabs describes the open tabs as a JSON array.
func (n *Navigator) ListTabs(ctx context.Context) Result {
	return n.run(ctx, "list_tabs", nil, func(ctx context.Context, log *zap.Logger) Result {
		data, err := jsoniter.MarshalToString(n.session.Tabs().List(ctx))
		if err != nil {
			return failure(ReasonInternal, err)
		}
		return payload(data)
	})
}
