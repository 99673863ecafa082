package humanoid

import (
	"context"
	"fmt"
	"math"
	"time"

	"go.uber.org/zap"
)

// Trajectory is a planned pointer path, already sampled and jittered.
type Trajectory struct {
	Start, End         Vector2D
	Control1, Control2 Vector2D
	Duration           time.Duration
	// Interval is the pause after each sample; zero for a direct move.
	Interval time.Duration
	Samples  []Vector2D
}

// bezier evaluates the cubic curve at t.
func bezier(p0, p1, p2, p3 Vector2D, t float64) Vector2D {
	omt := 1.0 - t
	omt2 := omt * omt
	omt3 := omt2 * omt
	t2 := t * t
	t3 := t2 * t
	return p0.Mul(omt3).Add(p1.Mul(3 * omt2 * t)).Add(p2.Mul(3 * omt * t2)).Add(p3.Mul(t3))
}

// PlanTrajectory builds the sampled path from start to end. Control points sit
// at 25% and 75% of the straight line, each pushed off it by independent
// uniform noise. A non-positive duration yields a single sample at end.
func (h *Humanoid) PlanTrajectory(start, end Vector2D, duration time.Duration) Trajectory {
	h.mu.Lock()
	defer h.mu.Unlock()

	tr := Trajectory{Start: start, End: end, Duration: duration, Control1: start, Control2: end}
	// A zero-length move keeps its control points on the endpoint so every sample coincides.
	if start.Dist(end) > 1e-9 {
		tr.Control1 = start.Lerp(end, 0.25).Add(Vector2D{X: h.uniform(h.cfg.ControlSpreadX), Y: h.uniform(h.cfg.ControlSpreadY)})
		tr.Control2 = start.Lerp(end, 0.75).Add(Vector2D{X: h.uniform(h.cfg.ControlSpreadX), Y: h.uniform(h.cfg.ControlSpreadY)})
	}

	if duration <= 0 {
		tr.Samples = []Vector2D{h.jitter(end)}
		return tr
	}

	n := int(math.Round(duration.Seconds() * h.cfg.SampleRate))
	if n < 1 {
		n = 1
	}
	tr.Interval = duration / time.Duration(n)
	tr.Samples = make([]Vector2D, n)
	if n == 1 {
		tr.Samples[0] = h.jitter(end)
		return tr
	}
	for i := 0; i < n; i++ {
		t := float64(i) / float64(n-1)
		tr.Samples[i] = h.jitter(bezier(start, tr.Control1, tr.Control2, end, t))
	}
	return tr
}

// jitter applies independent uniform noise per axis. Caller holds h.mu.
func (h *Humanoid) jitter(p Vector2D) Vector2D {
	return Vector2D{X: p.X + h.uniform(h.cfg.Jitter), Y: p.Y + h.uniform(h.cfg.Jitter)}
}

// MoveAlong plans a trajectory and plays it back through exec, pausing
// Interval after every sample so the move takes about duration in total.
// It returns the last position the pointer was moved to.
func (h *Humanoid) MoveAlong(ctx context.Context, exec Executor, start, end Vector2D, duration time.Duration) (Vector2D, error) {
	tr := h.PlanTrajectory(start, end, duration)
	return h.Play(ctx, exec, tr)
}

// Play dispatches a planned trajectory.
func (h *Humanoid) Play(ctx context.Context, exec Executor, tr Trajectory) (Vector2D, error) {
	pos := tr.Start
	for i, p := range tr.Samples {
		if err := ctx.Err(); err != nil {
			return pos, err
		}
		if err := exec.MouseMove(ctx, p.X, p.Y); err != nil {
			if ctx.Err() == nil {
				h.logger.Warn("Failed to dispatch mouse move", zap.Int("sample", i), zap.Error(err))
			}
			return pos, fmt.Errorf("humanoid: mouse move %d/%d failed: %w", i+1, len(tr.Samples), err)
		}
		pos = p
		if tr.Interval > 0 {
			if err := exec.Sleep(ctx, tr.Interval); err != nil {
				return pos, err
			}
		}
	}
	return pos, nil
}

// MovementDuration determines a realistic movement duration based on Fitts's Law,
// randomized by +/-15% and clamped to the configured bounds.
func (h *Humanoid) MovementDuration(distance float64) time.Duration {
	h.mu.Lock()
	defer h.mu.Unlock()

	w := h.cfg.FittsWidth
	if w <= 0 {
		w = 30
	}
	id := math.Log2(1.0 + math.Abs(distance)/w)
	mt := h.cfg.FittsA + h.cfg.FittsB*id
	mt += mt * (h.rng.Float64()*0.3 - 0.15)

	d := time.Duration(mt * float64(time.Millisecond))
	if d < h.cfg.MinMoveDuration {
		d = h.cfg.MinMoveDuration
	}
	if h.cfg.MaxMoveDuration > 0 && d > h.cfg.MaxMoveDuration {
		d = h.cfg.MaxMoveDuration
	}
	return d
}
