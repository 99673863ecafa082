// File: internal/mcp/tools.go
package mcp

import (
	"context"
	"fmt"

	"github.com/google/jsonschema-go/jsonschema"
	sdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/xkilldash9x/webnav-mcp/internal/navigator"
)

// toolSpec is one operation exposed both as an MCP tool and as a command of
// the JSON API.
type toolSpec interface {
	name() string
	register(s *sdk.Server, nav Navigator)
	invoke(ctx context.Context, nav Navigator, params map[string]interface{}) (navigator.Result, error)
}

type tool[In any] struct {
	Name        string
	Description string
	Call        func(ctx context.Context, nav Navigator, in In) navigator.Result
}

func (t tool[In]) name() string { return t.Name }

func (t tool[In]) register(s *sdk.Server, nav Navigator) {
	sdk.AddTool(s, &sdk.Tool{Name: t.Name, Description: t.Description},
		func(ctx context.Context, req *sdk.CallToolRequest, in In) (*sdk.CallToolResult, any, error) {
			return toolResult(t.Call(ctx, nav, in)), nil, nil
		})
}

func (t tool[In]) invoke(ctx context.Context, nav Navigator, params map[string]interface{}) (navigator.Result, error) {
	if err := validateParams[In](params); err != nil {
		return navigator.Result{}, fmt.Errorf("invalid parameters for %s: %w", t.Name, err)
	}
	in, err := mapToStruct[In](params)
	if err != nil {
		return navigator.Result{}, fmt.Errorf("invalid parameters for %s: %w", t.Name, err)
	}
	return t.Call(ctx, nav, in), nil
}

// validateParams checks params against the schema inferred for In, the same
// one MCP clients see, so both entry points reject the same requests.
func validateParams[In any](params map[string]interface{}) error {
	schema, err := jsonschema.For[In](nil)
	if err != nil {
		return err
	}
	resolved, err := schema.Resolve(nil)
	if err != nil {
		return err
	}
	if params == nil {
		params = map[string]interface{}{}
	}
	return resolved.Validate(params)
}

// toolResult renders a result as tool output. Propagated failures become
// tool errors carrying the cause; everything else is the plain indicator or
// payload text.
func toolResult(res navigator.Result) *sdk.CallToolResult {
	if err := res.Propagate(); err != nil {
		return &sdk.CallToolResult{
			Content: []sdk.Content{&sdk.TextContent{Text: err.Error()}},
			IsError: true,
		}
	}
	return &sdk.CallToolResult{
		Content: []sdk.Content{&sdk.TextContent{Text: res.String()}},
	}
}

func navigate(ctx context.Context, nav Navigator, in URLArgs) navigator.Result {
	return nav.Navigate(ctx, in.URL)
}

// tools lists every operation in registration order.
var tools = []toolSpec{
	tool[URLArgs]{
		Name:        "navigate",
		Description: `Load a URL in the current tab, starting the browser if needed. Returns "OK".`,
		Call:        navigate,
	},
	tool[URLArgs]{
		Name:        "navigate_to",
		Description: `Alias of navigate.`,
		Call:        navigate,
	},
	tool[URLArgs]{
		Name:        "open_new_tab",
		Description: `Open a URL in a new tab and make it current. Returns "ERROR" when no browser is running yet.`,
		Call: func(ctx context.Context, nav Navigator, in URLArgs) navigator.Result {
			return nav.OpenNewTab(ctx, in.URL)
		},
	},
	tool[SelectorArgs]{
		Name:        "click_element",
		Description: `Move the pointer along a human-like path to the first element matching the selector and click it. Returns "OK" or "ERROR".`,
		Call: func(ctx context.Context, nav Navigator, in SelectorArgs) navigator.Result {
			return nav.ClickElement(ctx, in.Selector)
		},
	},
	tool[TypeTextArgs]{
		Name:        "type_text",
		Description: `Click the first element matching the selector and type text with human cadence, including corrected typos. Returns "OK" or "ERROR".`,
		Call: func(ctx context.Context, nav Navigator, in TypeTextArgs) navigator.Result {
			return nav.TypeText(ctx, in.Selector, in.Text)
		},
	},
	tool[GestureArgs]{
		Name:        "human_mouse_gesture",
		Description: `Perform move, click, double_click, right_click or hover on the first visible element matching the selector. Returns "OK" or "ERROR".`,
		Call: func(ctx context.Context, nav Navigator, in GestureArgs) navigator.Result {
			return nav.HumanMouseGesture(ctx, in.Selector, navigator.GestureAction(in.Action))
		},
	},
	tool[NoArgs]{
		Name:        "get_tab_count",
		Description: `Return the number of open tabs as a decimal string.`,
		Call: func(ctx context.Context, nav Navigator, _ NoArgs) navigator.Result {
			return nav.GetTabCount(ctx)
		},
	},
	tool[TabIndexArgs]{
		Name:        "switch_to_tab",
		Description: `Make the tab at a zero-based index current. Returns "OK" or "ERROR".`,
		Call: func(ctx context.Context, nav Navigator, in TabIndexArgs) navigator.Result {
			return nav.SwitchToTab(ctx, in.Index)
		},
	},
	tool[CloseTabArgs]{
		Name:        "close_tab",
		Description: `Close the tab at an index, or the current tab when no index is given. Returns "OK" or "ERROR".`,
		Call: func(ctx context.Context, nav Navigator, in CloseTabArgs) navigator.Result {
			return nav.CloseTab(ctx, in.Index)
		},
	},
	tool[NoArgs]{
		Name:        "get_screenshot",
		Description: `Capture the whole current page as base64-encoded PNG.`,
		Call: func(ctx context.Context, nav Navigator, _ NoArgs) navigator.Result {
			return nav.GetScreenshot(ctx)
		},
	},
	tool[NoArgs]{
		Name:        "get_page_content",
		Description: `Return the HTML of the current page.`,
		Call: func(ctx context.Context, nav Navigator, _ NoArgs) navigator.Result {
			return nav.GetPageContent(ctx)
		},
	},
	tool[NoArgs]{
		Name:        "list_tabs",
		Description: `Describe the open tabs as a JSON array of {index, id, url, title, active}.`,
		Call: func(ctx context.Context, nav Navigator, _ NoArgs) navigator.Result {
			return nav.ListTabs(ctx)
		},
	},
}

// lookupTool finds a tool by name.
func lookupTool(name string) (toolSpec, bool) {
	for _, t := range tools {
		if t.name() == name {
			return t, true
		}
	}
	return nil, false
}

// NewMCPServer creates the MCP server with every tool registered.
func NewMCPServer(name, version string, nav Navigator) *sdk.Server {
	s := sdk.NewServer(&sdk.Implementation{Name: name, Version: version}, nil)
	for _, t := range tools {
		t.register(s, nav)
	}
	return s
}
