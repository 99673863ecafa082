package humanoid

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"
)

// -- keyboardNeighbors maps each letter to its adjacent letters on a QWERTY layout --
// Only letters are listed, so a slip always produces another letter.
var keyboardNeighbors = map[rune]string{
	'q': "wa", 'w': "qeas", 'e': "wrsd", 'r': "etdf", 't': "ryfg",
	'y': "tugh", 'u': "yihj", 'i': "uojk", 'o': "ipkl", 'p': "ol",
	'a': "qwsz", 's': "awedxz", 'd': "serfcx", 'f': "drtgvc", 'g': "ftyhbv",
	'h': "gyujnb", 'j': "huikmn", 'k': "jiolm", 'l': "kop",
	'z': "asx", 'x': "zsdc", 'c': "xdfv", 'v': "cfgb", 'b': "vghn", 'n': "bhjm", 'm': "njk",
}

// StepKind distinguishes the entries of a TypingPlan.
type StepKind int

const (
	// StepKey presses the intended character.
	StepKey StepKind = iota
	// StepTypo presses a neighbouring key by mistake.
	StepTypo
	// StepCorrection presses Backspace to undo a typo.
	StepCorrection
	// StepPause waits without touching the keyboard.
	StepPause
)

// Step is one keystroke or one pause in a TypingPlan.
type Step struct {
	Kind  StepKind
	Keys  string
	Delay time.Duration
}

// TypingPlan is the full keystroke schedule for one string.
type TypingPlan struct {
	Text  string
	Steps []Step
}

// Typos counts the mistaken keystrokes in the plan.
func (p TypingPlan) Typos() int {
	n := 0
	for _, s := range p.Steps {
		if s.Kind == StepTypo {
			n++
		}
	}
	return n
}

// Duration sums every pause in the plan.
func (p TypingPlan) Duration() time.Duration {
	var d time.Duration
	for _, s := range p.Steps {
		if s.Kind == StepPause {
			d += s.Delay
		}
	}
	return d
}

// Render replays the keystrokes into an empty field, applying Backspace,
// and returns what the field would contain.
func (p TypingPlan) Render() string {
	var buf []rune
	for _, s := range p.Steps {
		switch s.Kind {
		case StepPause:
		case StepCorrection:
			if len(buf) > 0 {
				buf = buf[:len(buf)-1]
			}
		default:
			buf = append(buf, []rune(s.Keys)...)
		}
	}
	return string(buf)
}

// neighborFor picks a mistaken key for r, matching its case. ok is false for
// characters without an adjacency entry. Caller holds h.mu.
func (h *Humanoid) neighborFor(r rune) (rune, bool) {
	// Some non-ASCII runes (Kelvin sign, dotted I) fold to ASCII letters.
	if r > unicode.MaxASCII {
		return 0, false
	}
	neighbors, found := keyboardNeighbors[unicode.ToLower(r)]
	if !found || neighbors == "" {
		return 0, false
	}
	candidates := []rune(neighbors)
	wrong := candidates[h.rng.Intn(len(candidates))]
	if unicode.IsUpper(r) {
		wrong = unicode.ToUpper(wrong)
	}
	return wrong, true
}

// pauseAfter selects the post-keystroke pause class for r.
func (c Config) pauseAfter(r rune) DelayRange {
	switch {
	case strings.ContainsRune(".!?", r):
		return c.SentencePause
	case r == ' ':
		return c.SpacePause
	default:
		return c.KeyPause
	}
}

// PlanTyping builds the keystroke schedule for text. Each letter with a
// neighbour entry may be preceded by a mistaken neighbour and a Backspace;
// the intended character is always typed afterwards.
func (h *Humanoid) PlanTyping(text string) TypingPlan {
	h.mu.Lock()
	defer h.mu.Unlock()

	cfg := h.cfg
	plan := TypingPlan{Text: text, Steps: make([]Step, 0, utf8.RuneCountInString(text)*2)}
	for _, r := range text {
		if h.rng.Float64() < cfg.TypoRate {
			if wrong, ok := h.neighborFor(r); ok {
				plan.Steps = append(plan.Steps,
					Step{Kind: StepTypo, Keys: string(wrong)},
					Step{Kind: StepPause, Delay: cfg.TypoNoticeDelay.Sample(h.rng)},
					Step{Kind: StepPause, Delay: cfg.TypoRecognitionDelay.Sample(h.rng)},
					Step{Kind: StepCorrection, Keys: string(KeyBackspace)},
					Step{Kind: StepPause, Delay: cfg.TypoCorrectionDelay.Sample(h.rng)},
				)
			}
		}
		plan.Steps = append(plan.Steps,
			Step{Kind: StepKey, Keys: string(r)},
			Step{Kind: StepPause, Delay: cfg.pauseAfter(r).Sample(h.rng)},
		)
	}
	return plan
}

// Type plans and plays back human-cadence typing of text into whatever
// element currently has focus. Empty text is a no-op.
func (h *Humanoid) Type(ctx context.Context, exec Executor, text string) error {
	if text == "" {
		return nil
	}
	return h.PlayTyping(ctx, exec, h.PlanTyping(text))
}

// PlayTyping dispatches a planned keystroke schedule.
func (h *Humanoid) PlayTyping(ctx context.Context, exec Executor, plan TypingPlan) error {
	for _, s := range plan.Steps {
		if err := ctx.Err(); err != nil {
			return err
		}
		if s.Kind == StepPause {
			if err := exec.Sleep(ctx, s.Delay); err != nil {
				return err
			}
			continue
		}
		if err := exec.SendKeys(ctx, s.Keys); err != nil {
			return fmt.Errorf("humanoid: failed to send key %q: %w", s.Keys, err)
		}
	}
	return nil
}
