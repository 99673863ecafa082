// internal/browser/tabs.go
package browser

import (
	"context"
	"fmt"

	"go.uber.org/zap"
)

// Tabs is the tab registry: the ordered pages of browsing context 0.
type Tabs struct {
	s *Session
}

// TabInfo describes one tab for listing.
type TabInfo struct {
	Index  int    `json:"index"`
	ID     string `json:"id"`
	URL    string `json:"url"`
	Title  string `json:"title"`
	Active bool   `json:"active"`
}

// pages returns the live pages of context 0, or nil without one.
func (t *Tabs) pages() []Page {
	bctx := t.s.primaryContext()
	if bctx == nil {
		return nil
	}
	var live []Page
	for _, p := range bctx.Pages() {
		if !p.IsClosed() {
			live = append(live, p)
		}
	}
	return live
}

// Count returns the number of live pages; 0 when no context exists.
func (t *Tabs) Count() int {
	return len(t.pages())
}

// Switch makes tab index active and brings it to the foreground.
func (t *Tabs) Switch(ctx context.Context, index int) error {
	if t.s.primaryContext() == nil {
		return ErrNoBrowsingContext
	}
	pages := t.pages()
	if index < 0 || index >= len(pages) {
		return fmt.Errorf("%w: %d not in [0, %d)", ErrTabIndexOutOfRange, index, len(pages))
	}
	p := pages[index]
	if err := p.BringToFront(ctx); err != nil {
		return fmt.Errorf("browser: failed to bring tab %d to front: %w", index, err)
	}
	t.s.activeID = p.ID()
	return nil
}

// CloseCurrent closes the active page.
func (t *Tabs) CloseCurrent(ctx context.Context) error {
	active := t.s.ActivePage()
	if active == nil {
		return ErrNoActivePage
	}
	return t.close(ctx, active)
}

// CloseAt closes tab index.
func (t *Tabs) CloseAt(ctx context.Context, index int) error {
	if t.s.primaryContext() == nil {
		return ErrNoBrowsingContext
	}
	pages := t.pages()
	if index < 0 || index >= len(pages) {
		return fmt.Errorf("%w: %d not in [0, %d)", ErrTabIndexOutOfRange, index, len(pages))
	}
	return t.close(ctx, pages[index])
}

// close closes p and, if it was active, hands the active reference to the
// last remaining tab.
func (t *Tabs) close(ctx context.Context, p Page) error {
	wasActive := p.ID() == t.s.activeID
	if err := p.Close(ctx); err != nil {
		return fmt.Errorf("browser: failed to close tab: %w", err)
	}
	if !wasActive {
		return nil
	}

	remaining := t.pages()
	if len(remaining) == 0 {
		t.s.activeID = ""
		t.s.logger.Debug("Closed the last tab; no active page.")
		return nil
	}
	last := remaining[len(remaining)-1]
	t.s.activeID = last.ID()
	if err := last.BringToFront(ctx); err != nil {
		t.s.logger.Warn("Failed to bring new active tab to front.", zap.String("page_id", last.ID()), zap.Error(err))
	}
	return nil
}

// IDs returns the page IDs of every tab in order.
func (t *Tabs) IDs() []string {
	pages := t.pages()
	ids := make([]string, len(pages))
	for i, p := range pages {
		ids[i] = p.ID()
	}
	return ids
}

// List describes every tab in order.
func (t *Tabs) List(ctx context.Context) []TabInfo {
	pages := t.pages()
	infos := make([]TabInfo, 0, len(pages))
	for i, p := range pages {
		title, err := p.Title(ctx)
		if err != nil {
			t.s.logger.Debug("Failed to read tab title.", zap.Int("index", i), zap.Error(err))
		}
		infos = append(infos, TabInfo{
			Index:  i,
			ID:     p.ID(),
			URL:    p.URL(),
			Title:  title,
			Active: p.ID() == t.s.activeID,
		})
	}
	return infos
}
