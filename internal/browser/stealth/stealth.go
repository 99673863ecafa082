package stealth

import (
	"context"
	_ "embed"
	"fmt"
	"strings"

	"github.com/chromedp/cdproto/emulation"
	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"
	jsoniter "github.com/json-iterator/go"
	"go.uber.org/zap"

	"github.com/xkilldash9x/webnav-mcp/internal/config"
)

//go:embed evasions.js
var evasionsScript string

// Persona defines the browser characteristics to emulate.
type Persona struct {
	UserAgent string   `json:"userAgent"`
	Platform  string   `json:"platform"`
	Languages []string `json:"languages"`
	Timezone  string   `json:"timezone"`
	Locale    string   `json:"locale"`
}

// DefaultPersona provides a realistic default browser profile.
var DefaultPersona = Persona{
	UserAgent: "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/131.0.0.0 Safari/537.36",
	Platform:  "Win32",
	Languages: []string{"en-US", "en"},
	Timezone:  "America/New_York",
	Locale:    "en-US",
}

// FromConfig builds a persona from settings, falling back to DefaultPersona
// for anything left empty.
func FromConfig(c config.PersonaConfig) Persona {
	p := DefaultPersona
	if c.UserAgent != "" {
		p.UserAgent = c.UserAgent
	}
	if c.Platform != "" {
		p.Platform = c.Platform
	}
	if len(c.Languages) > 0 {
		p.Languages = append([]string(nil), c.Languages...)
	}
	if c.Timezone != "" {
		p.Timezone = c.Timezone
	}
	if c.Locale != "" {
		p.Locale = c.Locale
	}
	return p
}

// AcceptLanguage renders the persona's languages as an Accept-Language value,
// e.g. "en-US,en;q=0.9".
func (p Persona) AcceptLanguage() string {
	if len(p.Languages) == 0 {
		return p.Locale
	}
	var b strings.Builder
	b.WriteString(p.Languages[0])
	q := 0.9
	for _, lang := range p.Languages[1:] {
		fmt.Fprintf(&b, ",%s;q=%.1f", lang, q)
		if q > 0.2 {
			q -= 0.1
		}
	}
	return b.String()
}

// Script returns the init script that patches automation tells for this
// persona. It must run before any page script.
func Script(p Persona) (string, error) {
	payload, err := jsoniter.ConfigCompatibleWithStandardLibrary.Marshal(p)
	if err != nil {
		return "", fmt.Errorf("stealth: failed to encode persona: %w", err)
	}
	return strings.TrimSpace(evasionsScript) + "(" + string(payload) + ");", nil
}

// Apply constructs the DevTools actions that present the persona on a
// chromedp target.
func Apply(p Persona, logger *zap.Logger) chromedp.Tasks {
	logger.Debug("Applying browser stealth persona",
		zap.String("userAgent", p.UserAgent),
		zap.String("platform", p.Platform),
	)

	return chromedp.Tasks{
		emulation.SetUserAgentOverride(p.UserAgent).
			WithAcceptLanguage(p.AcceptLanguage()).
			WithPlatform(p.Platform),

		// AddScriptToEvaluateOnNewDocument returns an identifier as well,
		// so it needs wrapping to satisfy chromedp.Action.
		chromedp.ActionFunc(func(ctx context.Context) error {
			script, err := Script(p)
			if err != nil {
				return err
			}
			if _, err := page.AddScriptToEvaluateOnNewDocument(script).Do(ctx); err != nil {
				return fmt.Errorf("failed to inject evasions script: %w", err)
			}
			return nil
		}),

		emulation.SetTimezoneOverride(p.Timezone),
		emulation.SetLocaleOverride().WithLocale(p.Locale),
		network.SetExtraHTTPHeaders(network.Headers{
			"Accept-Language": p.AcceptLanguage(),
		}),
	}
}
