// internal/browser/session.go
package browser

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"
)

// Session owns the engine process, the browser connection and the active
// page reference. It is not safe for concurrent use: the caller serializes
// every call (the navigator holds one lock per operation).
type Session struct {
	launcher Launcher
	opts     LaunchOptions
	logger   *zap.Logger

	engine  Engine
	browser Browser
	// activeID names the active page; a lookup miss means there is none.
	activeID string
}

// NewSession creates a session. Nothing is started until the first AcquirePage.
func NewSession(launcher Launcher, opts LaunchOptions, logger *zap.Logger) *Session {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Session{
		launcher: launcher,
		opts:     opts,
		logger:   logger.Named("session"),
	}
}

// AcquirePage returns a ready page, creating or repairing whatever is missing:
//  1. a live active page is returned as is;
//  2. with a connected browser, a fresh context and page are opened;
//  3. otherwise the engine and browser are (re)started first.
//
// Failures are wrapped with ErrSessionFatal and are not retried.
func (s *Session) AcquirePage(ctx context.Context) (Page, error) {
	if p := s.ActivePage(); p != nil {
		return p, nil
	}

	if s.browser != nil && s.browser.IsConnected() {
		s.logger.Debug("Active page gone; opening a new context on the live browser.")
		p, err := s.openPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrSessionFatal, err)
		}
		return p, nil
	}

	if err := s.coldStart(ctx); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSessionFatal, err)
	}
	p, err := s.openPage(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSessionFatal, err)
	}
	return p, nil
}

// coldStart brings up the engine if needed and launches a new browser,
// discarding a dead one.
func (s *Session) coldStart(ctx context.Context) error {
	if s.browser != nil {
		s.logger.Warn("Browser connection lost; relaunching.")
		if err := s.browser.Close(); err != nil {
			s.logger.Debug("Closing dead browser failed.", zap.Error(err))
		}
		s.browser = nil
		s.activeID = ""
	}

	if s.engine == nil {
		s.logger.Info("Starting automation engine.")
		engine, err := s.launcher.Start(ctx)
		if err != nil {
			return fmt.Errorf("failed to start automation engine: %w", err)
		}
		s.engine = engine
	}

	opts := s.opts
	opts.Args = append(append([]string{}, RequiredArgs...), s.opts.Args...)
	b, err := s.engine.Launch(ctx, opts)
	if err != nil {
		// The engine may have died with the browser; start it again next time.
		if stopErr := s.engine.Stop(); stopErr != nil {
			s.logger.Debug("Stopping engine after failed launch.", zap.Error(stopErr))
		}
		s.engine = nil
		return fmt.Errorf("failed to launch browser: %w", err)
	}
	s.browser = b
	s.logger.Info("Browser launched.", zap.Bool("headless", opts.Headless), zap.Strings("args", opts.Args))
	return nil
}

// openPage opens a new context with one patched page and makes it active.
// Contexts left without pages are closed first so the new one takes index 0.
func (s *Session) openPage(ctx context.Context) (Page, error) {
	s.pruneContexts()

	bctx, err := s.browser.NewContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create browsing context: %w", err)
	}
	p, err := bctx.NewPage(ctx)
	if err != nil {
		_ = bctx.Close()
		return nil, fmt.Errorf("failed to create page: %w", err)
	}
	if err := p.ApplyStealth(ctx); err != nil {
		_ = bctx.Close()
		return nil, fmt.Errorf("failed to apply stealth patches: %w", err)
	}
	s.activeID = p.ID()
	s.logger.Debug("Page opened.", zap.String("page_id", p.ID()))
	return p, nil
}

func (s *Session) pruneContexts() {
	for _, c := range s.browser.Contexts() {
		if len(c.Pages()) > 0 {
			continue
		}
		if err := c.Close(); err != nil {
			s.logger.Debug("Closing empty browsing context failed.", zap.Error(err))
		}
	}
}

// ActivePage resolves the active page reference without side effects. It
// returns nil if there is none or it has been closed.
func (s *Session) ActivePage() Page {
	if s.activeID == "" || s.browser == nil {
		return nil
	}
	for _, c := range s.browser.Contexts() {
		for _, p := range c.Pages() {
			if p.ID() == s.activeID && !p.IsClosed() {
				return p
			}
		}
	}
	return nil
}

// Browser returns the current browser connection, which may be nil or dead.
func (s *Session) Browser() Browser {
	return s.browser
}

// Tabs returns the tab registry view over browsing context 0.
func (s *Session) Tabs() *Tabs {
	return &Tabs{s: s}
}

// OpenTab opens url in a new page of browsing context 0 and makes it active.
// It never launches a browser.
func (s *Session) OpenTab(ctx context.Context, url string) (Page, error) {
	bctx := s.primaryContext()
	if bctx == nil {
		return nil, ErrNoBrowsingContext
	}
	p, err := bctx.NewPage(ctx)
	if err != nil {
		return nil, fmt.Errorf("browser: failed to open tab: %w", err)
	}
	if err := p.ApplyStealth(ctx); err != nil {
		_ = p.Close(ctx)
		return nil, fmt.Errorf("browser: failed to patch tab: %w", err)
	}
	s.activeID = p.ID()
	if err := p.Goto(ctx, url); err != nil {
		return p, fmt.Errorf("browser: failed to load %s in new tab: %w", url, err)
	}
	return p, nil
}

// primaryContext returns browsing context 0 of a connected browser, or nil.
func (s *Session) primaryContext() BrowsingContext {
	if s.browser == nil || !s.browser.IsConnected() {
		return nil
	}
	contexts := s.browser.Contexts()
	if len(contexts) == 0 {
		return nil
	}
	return contexts[0]
}

// Shutdown closes the browser and stops the engine. The session can be
// reused afterwards; the next AcquirePage cold starts.
func (s *Session) Shutdown(ctx context.Context) error {
	var errs []error
	if s.browser != nil {
		for _, c := range s.browser.Contexts() {
			if err := c.Close(); err != nil {
				errs = append(errs, fmt.Errorf("close context: %w", err))
			}
		}
		if err := s.browser.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close browser: %w", err))
		}
	}
	if s.engine != nil {
		if err := s.engine.Stop(); err != nil {
			errs = append(errs, fmt.Errorf("stop engine: %w", err))
		}
	}
	s.browser, s.engine, s.activeID = nil, nil, ""
	if err := errors.Join(errs...); err != nil {
		s.logger.Warn("Session shutdown finished with errors.", zap.Error(err))
		return err
	}
	s.logger.Info("Session shut down.")
	return nil
}
