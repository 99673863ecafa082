// File: internal/mcp/types.go
package mcp

import (
	"context"

	"github.com/xkilldash9x/webnav-mcp/internal/navigator"
)

// Navigator is the operation facade the transports call into.
type Navigator interface {
	Navigate(ctx context.Context, url string) navigator.Result
	OpenNewTab(ctx context.Context, url string) navigator.Result
	ClickElement(ctx context.Context, selector string) navigator.Result
	TypeText(ctx context.Context, selector, text string) navigator.Result
	HumanMouseGesture(ctx context.Context, selector string, action navigator.GestureAction) navigator.Result
	GetTabCount(ctx context.Context) navigator.Result
	SwitchToTab(ctx context.Context, index int) navigator.Result
	CloseTab(ctx context.Context, index *int) navigator.Result
	GetScreenshot(ctx context.Context) navigator.Result
	GetPageContent(ctx context.Context) navigator.Result
	ListTabs(ctx context.Context) navigator.Result
}

var _ Navigator = (*navigator.Navigator)(nil)

// CommandRequest is the body of POST /api/v1/command.
type CommandRequest struct {
	Command string                 `json:"command"`
	Params  map[string]interface{} `json:"params"`
}

// CommandResponse is the reply to a command.
type CommandResponse struct {
	Status string      `json:"status"` // "success" or "error"
	Data   interface{} `json:"data,omitempty"`
	Error  string      `json:"error,omitempty"`
}

// URLArgs are the arguments of navigate and open_new_tab.
type URLArgs struct {
	URL string `json:"url" jsonschema:"absolute URL to load"`
}

// SelectorArgs are the arguments of click_element.
type SelectorArgs struct {
	Selector string `json:"selector" jsonschema:"CSS selector; only the first match is used"`
}

// TypeTextArgs are the arguments of type_text.
type TypeTextArgs struct {
	Selector string `json:"selector" jsonschema:"CSS selector of the field to focus"`
	Text     string `json:"text" jsonschema:"text to type"`
}

// GestureArgs are the arguments of human_mouse_gesture.
type GestureArgs struct {
	Selector string `json:"selector" jsonschema:"CSS selector of the target element"`
	Action   string `json:"action" jsonschema:"one of move, click, double_click, right_click, hover"`
}

// TabIndexArgs are the arguments of switch_to_tab.
type TabIndexArgs struct {
	Index int `json:"index" jsonschema:"zero-based tab index"`
}

// CloseTabArgs are the arguments of close_tab.
type CloseTabArgs struct {
	Index *int `json:"index,omitempty" jsonschema:"zero-based tab index; the current tab when omitted"`
}

// NoArgs is the input of argument-less tools.
type NoArgs struct{}
