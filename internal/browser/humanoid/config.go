// internal/browser/humanoid/config.go
package humanoid

import (
	"fmt"
	"math/rand"
	"time"

	"github.com/xkilldash9x/webnav-mcp/internal/config"
)

// DelayRange is a closed interval from which pauses are drawn uniformly.
type DelayRange struct {
	Min time.Duration `json:"min" yaml:"min"`
	Max time.Duration `json:"max" yaml:"max"`
}

// Sample draws a uniform duration from the range. A degenerate or inverted
// range yields Min.
func (r DelayRange) Sample(rng *rand.Rand) time.Duration {
	if r.Max <= r.Min || rng == nil {
		return r.Min
	}
	return r.Min + time.Duration(rng.Int63n(int64(r.Max-r.Min)+1))
}

// Config holds the parameters defining the behavior of the simulation.
type Config struct {
	Rng *rand.Rand

	// Pointer trajectory
	SampleRate     float64 `json:"sample_rate" yaml:"sample_rate"`
	Jitter         float64 `json:"jitter" yaml:"jitter"`
	ControlSpreadX float64 `json:"control_spread_x" yaml:"control_spread_x"`
	ControlSpreadY float64 `json:"control_spread_y" yaml:"control_spread_y"`

	// Fitts's Law parameters, used to pick a duration when the caller has none.
	FittsA          float64       `json:"fitts_a" yaml:"fitts_a"`
	FittsB          float64       `json:"fitts_b" yaml:"fitts_b"`
	FittsWidth      float64       `json:"fitts_width" yaml:"fitts_width"`
	MinMoveDuration time.Duration `json:"min_move_duration" yaml:"min_move_duration"`
	MaxMoveDuration time.Duration `json:"max_move_duration" yaml:"max_move_duration"`

	// Typing
	TypoRate             float64    `json:"typo_rate" yaml:"typo_rate"`
	KeyPause             DelayRange `json:"key_pause" yaml:"key_pause"`
	SpacePause           DelayRange `json:"space_pause" yaml:"space_pause"`
	SentencePause        DelayRange `json:"sentence_pause" yaml:"sentence_pause"`
	TypoNoticeDelay      DelayRange `json:"typo_notice_delay" yaml:"typo_notice_delay"`
	TypoRecognitionDelay DelayRange `json:"typo_recognition_delay" yaml:"typo_recognition_delay"`
	TypoCorrectionDelay  DelayRange `json:"typo_correction_delay" yaml:"typo_correction_delay"`

	// Gestures
	HoverDwell DelayRange `json:"hover_dwell" yaml:"hover_dwell"`
	ClickHold  DelayRange `json:"click_hold" yaml:"click_hold"`
}

// DefaultConfig returns a configuration representing an average user.
func DefaultConfig() Config {
	return Config{
		SampleRate:     60,
		Jitter:         1,
		ControlSpreadX: 50,
		ControlSpreadY: 40,

		FittsA:          100,
		FittsB:          150,
		FittsWidth:      30,
		MinMoveDuration: 150 * time.Millisecond,
		MaxMoveDuration: 1500 * time.Millisecond,

		TypoRate:             0.15,
		KeyPause:             DelayRange{Min: 60 * time.Millisecond, Max: 120 * time.Millisecond},
		SpacePause:           DelayRange{Min: 120 * time.Millisecond, Max: 280 * time.Millisecond},
		SentencePause:        DelayRange{Min: 250 * time.Millisecond, Max: 600 * time.Millisecond},
		TypoNoticeDelay:      DelayRange{Min: 50 * time.Millisecond, Max: 150 * time.Millisecond},
		TypoRecognitionDelay: DelayRange{Min: 150 * time.Millisecond, Max: 400 * time.Millisecond},
		TypoCorrectionDelay:  DelayRange{Min: 40 * time.Millisecond, Max: 100 * time.Millisecond},

		HoverDwell: DelayRange{Min: 300 * time.Millisecond, Max: 800 * time.Millisecond},
		ClickHold:  DelayRange{Min: 50 * time.Millisecond, Max: 120 * time.Millisecond},
	}
}

// FromSettings builds a Config from the loaded application settings.
func FromSettings(h config.HumanoidConfig) Config {
	r := func(d config.DurationRange) DelayRange { return DelayRange{Min: d.Min, Max: d.Max} }
	return Config{
		SampleRate:     h.SampleRate,
		Jitter:         h.Jitter,
		ControlSpreadX: h.ControlSpreadX,
		ControlSpreadY: h.ControlSpreadY,

		FittsA:          h.FittsA,
		FittsB:          h.FittsB,
		FittsWidth:      h.FittsWidth,
		MinMoveDuration: h.MinMoveDuration,
		MaxMoveDuration: h.MaxMoveDuration,

		TypoRate:             h.TypoRate,
		KeyPause:             r(h.KeyPause),
		SpacePause:           r(h.SpacePause),
		SentencePause:        r(h.SentencePause),
		TypoNoticeDelay:      r(h.TypoNoticeDelay),
		TypoRecognitionDelay: r(h.TypoRecognitionDelay),
		TypoCorrectionDelay:  r(h.TypoCorrectionDelay),

		HoverDwell: r(h.HoverDwell),
		ClickHold:  r(h.ClickHold),
	}
}

// Validate reports parameters that would make the simulation meaningless.
func (c Config) Validate() error {
	if c.SampleRate <= 0 {
		return fmt.Errorf("humanoid: sample_rate must be positive, got %v", c.SampleRate)
	}
	if c.Jitter < 0 || c.ControlSpreadX < 0 || c.ControlSpreadY < 0 {
		return fmt.Errorf("humanoid: jitter and control spreads must not be negative")
	}
	if c.TypoRate < 0 || c.TypoRate > 1 {
		return fmt.Errorf("humanoid: typo_rate must be within [0, 1], got %v", c.TypoRate)
	}
	if c.MaxMoveDuration > 0 && c.MaxMoveDuration < c.MinMoveDuration {
		return fmt.Errorf("humanoid: max_move_duration must not be below min_move_duration")
	}
	return nil
}
