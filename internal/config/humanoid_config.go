// File: internal/config/humanoid_config.go
// This file defines the HumanoidConfig struct, which contains the tunable
// parameters for the interaction simulator: pointer trajectory shape, typing
// error rate and the pauses drawn between keystrokes and gestures.
package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// DurationRange is a closed interval of durations, e.g. {min: 60ms, max: 120ms}.
type DurationRange struct {
	Min time.Duration `mapstructure:"min" yaml:"min"`
	Max time.Duration `mapstructure:"max" yaml:"max"`
}

// HumanoidConfig holds the interaction simulator settings.
type HumanoidConfig struct {
	// -- Pointer trajectory --
	SampleRate     float64 `mapstructure:"sample_rate" yaml:"sample_rate"`
	Jitter         float64 `mapstructure:"jitter" yaml:"jitter"`
	ControlSpreadX float64 `mapstructure:"control_spread_x" yaml:"control_spread_x"`
	ControlSpreadY float64 `mapstructure:"control_spread_y" yaml:"control_spread_y"`

	// -- Fitts's Law movement timing --
	FittsA          float64       `mapstructure:"fitts_a" yaml:"fitts_a"`
	FittsB          float64       `mapstructure:"fitts_b" yaml:"fitts_b"`
	FittsWidth      float64       `mapstructure:"fitts_width" yaml:"fitts_width"`
	MinMoveDuration time.Duration `mapstructure:"min_move_duration" yaml:"min_move_duration"`
	MaxMoveDuration time.Duration `mapstructure:"max_move_duration" yaml:"max_move_duration"`

	// -- Typing --
	TypoRate             float64       `mapstructure:"typo_rate" yaml:"typo_rate"`
	KeyPause             DurationRange `mapstructure:"key_pause" yaml:"key_pause"`
	SpacePause           DurationRange `mapstructure:"space_pause" yaml:"space_pause"`
	SentencePause        DurationRange `mapstructure:"sentence_pause" yaml:"sentence_pause"`
	TypoNoticeDelay      DurationRange `mapstructure:"typo_notice_delay" yaml:"typo_notice_delay"`
	TypoRecognitionDelay DurationRange `mapstructure:"typo_recognition_delay" yaml:"typo_recognition_delay"`
	TypoCorrectionDelay  DurationRange `mapstructure:"typo_correction_delay" yaml:"typo_correction_delay"`

	// -- Gestures --
	HoverDwell DurationRange `mapstructure:"hover_dwell" yaml:"hover_dwell"`
	ClickHold  DurationRange `mapstructure:"click_hold" yaml:"click_hold"`
}

func setHumanoidDefaults(v *viper.Viper) {
	v.SetDefault("humanoid.sample_rate", 60.0)
	v.SetDefault("humanoid.jitter", 1.0)
	v.SetDefault("humanoid.control_spread_x", 50.0)
	v.SetDefault("humanoid.control_spread_y", 40.0)

	v.SetDefault("humanoid.fitts_a", 100.0)
	v.SetDefault("humanoid.fitts_b", 150.0)
	v.SetDefault("humanoid.fitts_width", 30.0)
	v.SetDefault("humanoid.min_move_duration", "150ms")
	v.SetDefault("humanoid.max_move_duration", "1500ms")

	v.SetDefault("humanoid.typo_rate", 0.15)
	setRange(v, "humanoid.key_pause", "60ms", "120ms")
	setRange(v, "humanoid.space_pause", "120ms", "280ms")
	setRange(v, "humanoid.sentence_pause", "250ms", "600ms")
	setRange(v, "humanoid.typo_notice_delay", "50ms", "150ms")
	setRange(v, "humanoid.typo_recognition_delay", "150ms", "400ms")
	setRange(v, "humanoid.typo_correction_delay", "40ms", "100ms")

	setRange(v, "humanoid.hover_dwell", "300ms", "800ms")
	setRange(v, "humanoid.click_hold", "50ms", "120ms")
}

func setRange(v *viper.Viper, key, min, max string) {
	v.SetDefault(key+".min", min)
	v.SetDefault(key+".max", max)
}

// Validate checks the humanoid settings.
func (h *HumanoidConfig) Validate() error {
	if h.SampleRate <= 0 {
		return fmt.Errorf("sample_rate must be positive")
	}
	if h.TypoRate < 0 || h.TypoRate > 1 {
		return fmt.Errorf("typo_rate must be between 0.0 and 1.0")
	}
	ranges := map[string]DurationRange{
		"key_pause":              h.KeyPause,
		"space_pause":            h.SpacePause,
		"sentence_pause":         h.SentencePause,
		"typo_notice_delay":      h.TypoNoticeDelay,
		"typo_recognition_delay": h.TypoRecognitionDelay,
		"typo_correction_delay":  h.TypoCorrectionDelay,
		"hover_dwell":            h.HoverDwell,
		"click_hold":             h.ClickHold,
	}
	for name, r := range ranges {
		if r.Min < 0 || r.Max < r.Min {
			return fmt.Errorf("%s must satisfy 0 <= min <= max, got [%s, %s]", name, r.Min, r.Max)
		}
	}
	return nil
}
