// internal/browser/humanoid/interface.go
package humanoid

import (
	"context"
	"time"
)

// Executor defines the low-level interface required by the Humanoid controller.
// The browser package adapts a live page to it; tests record the calls.
type Executor interface {
	// MouseMove places the pointer at viewport coordinates without pressing a button.
	MouseMove(ctx context.Context, x, y float64) error
	// SendKeys types a single character, or presses a ControlKey.
	SendKeys(ctx context.Context, keys string) error
	Sleep(ctx context.Context, d time.Duration) error
}

// ControlKey defines constants for common control characters used in SendKeys.
type ControlKey string

const (
	KeyBackspace ControlKey = "\b"   // Backspace
	KeyEnter     ControlKey = "\r"   // Carriage Return (often used for Enter)
	KeyTab       ControlKey = "\t"   // Tab
	KeyEscape    ControlKey = "\x1b" // Escape
)

// KeyName maps a control character to the key name understood by browser
// keyboards. The second return is false for printable text.
func KeyName(keys string) (string, bool) {
	switch ControlKey(keys) {
	case KeyBackspace:
		return "Backspace", true
	case KeyEnter:
		return "Enter", true
	case KeyTab:
		return "Tab", true
	case KeyEscape:
		return "Escape", true
	}
	return "", false
}
