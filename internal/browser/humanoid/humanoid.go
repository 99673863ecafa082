// internal/browser/humanoid/humanoid.go
package humanoid

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Humanoid plans and plays back human-like pointer movement and typing.
// It holds no page state: every playback method takes the Executor to drive,
// so one instance serves whichever tab is active.
type Humanoid struct {
	// mu guards rng. Planning draws from it; playback does not hold it while
	// sleeping.
	mu     sync.Mutex
	cfg    Config
	logger *zap.Logger
	rng    *rand.Rand
}

// New creates and initializes a new Humanoid instance.
func New(config Config, logger *zap.Logger) *Humanoid {
	rng := config.Rng
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	config.Rng = rng
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Humanoid{
		cfg:    config,
		logger: logger.Named("humanoid"),
		rng:    rng,
	}
}

// NewTestHumanoid creates a Humanoid instance with deterministic dependencies for testing.
func NewTestHumanoid(seed int64) *Humanoid {
	config := DefaultConfig()
	config.Rng = rand.New(rand.NewSource(seed))
	return New(config, zap.NewNop())
}

// Config returns a copy of the active configuration.
func (h *Humanoid) Config() Config {
	return h.cfg
}

// Pause sleeps for a duration drawn from r.
func (h *Humanoid) Pause(ctx context.Context, exec Executor, r DelayRange) error {
	h.mu.Lock()
	d := r.Sample(h.rng)
	h.mu.Unlock()
	return exec.Sleep(ctx, d)
}

// RandomPoint returns a point with both coordinates uniform in [min, max).
func (h *Humanoid) RandomPoint(min, max float64) Vector2D {
	h.mu.Lock()
	defer h.mu.Unlock()
	return Vector2D{
		X: min + h.rng.Float64()*(max-min),
		Y: min + h.rng.Float64()*(max-min),
	}
}

// uniform returns a value in [-spread, +spread]. Caller holds h.mu.
func (h *Humanoid) uniform(spread float64) float64 {
	if spread <= 0 {
		return 0
	}
	return (h.rng.Float64()*2 - 1) * spread
}
