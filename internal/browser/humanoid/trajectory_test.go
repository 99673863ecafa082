// FILE: ./internal/browser/humanoid/trajectory_test.go
package humanoid

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func assertWithin(t *testing.T, want, got Vector2D, bound float64) {
	t.Helper()
	assert.LessOrEqual(t, math.Abs(got.X-want.X), bound, "x off: want %v got %v", want, got)
	assert.LessOrEqual(t, math.Abs(got.Y-want.Y), bound, "y off: want %v got %v", want, got)
}

func TestPlanTrajectory_EndpointsAndSampleCount(t *testing.T) {
	cases := []struct {
		name     string
		start    Vector2D
		end      Vector2D
		duration time.Duration
	}{
		{"diagonal", Vector2D{X: 10, Y: 10}, Vector2D{X: 640, Y: 480}, 500 * time.Millisecond},
		{"short", Vector2D{X: 100, Y: 100}, Vector2D{X: 120, Y: 90}, 100 * time.Millisecond},
		{"long", Vector2D{X: 0, Y: 0}, Vector2D{X: 1900, Y: 1000}, 2 * time.Second},
		{"fractional", Vector2D{X: 300, Y: 50}, Vector2D{X: 20, Y: 700}, 725 * time.Millisecond},
	}

	for seed := int64(1); seed <= 20; seed++ {
		h := NewTestHumanoid(seed)
		for _, tc := range cases {
			tr := h.PlanTrajectory(tc.start, tc.end, tc.duration)
			require.NotEmpty(t, tr.Samples, tc.name)

			assertWithin(t, tc.start, tr.Samples[0], 1.0)
			assertWithin(t, tc.end, tr.Samples[len(tr.Samples)-1], 1.0)

			expected := tc.duration.Seconds() * 60
			assert.InDelta(t, expected, float64(len(tr.Samples)), 1.0, tc.name)
		}
	}
}

func TestPlanTrajectory_ControlPointsBounded(t *testing.T) {
	h := NewTestHumanoid(42)
	start := Vector2D{X: 0, Y: 0}
	end := Vector2D{X: 400, Y: 200}

	for i := 0; i < 200; i++ {
		tr := h.PlanTrajectory(start, end, 300*time.Millisecond)
		c1 := start.Lerp(end, 0.25)
		c2 := start.Lerp(end, 0.75)
		assert.LessOrEqual(t, math.Abs(tr.Control1.X-c1.X), 50.0)
		assert.LessOrEqual(t, math.Abs(tr.Control1.Y-c1.Y), 40.0)
		assert.LessOrEqual(t, math.Abs(tr.Control2.X-c2.X), 50.0)
		assert.LessOrEqual(t, math.Abs(tr.Control2.Y-c2.Y), 40.0)
	}
}

func TestPlanTrajectory_RandomizedPerCall(t *testing.T) {
	h := NewTestHumanoid(7)
	a := h.PlanTrajectory(Vector2D{}, Vector2D{X: 500, Y: 500}, time.Second)
	b := h.PlanTrajectory(Vector2D{}, Vector2D{X: 500, Y: 500}, time.Second)
	assert.NotEqual(t, a.Control1, b.Control1)
	assert.NotEqual(t, a.Samples, b.Samples)
}

func TestPlanTrajectory_NonPositiveDuration(t *testing.T) {
	h := NewTestHumanoid(1)
	end := Vector2D{X: 200, Y: 300}

	for _, d := range []time.Duration{0, -time.Second} {
		tr := h.PlanTrajectory(Vector2D{X: 5, Y: 5}, end, d)
		require.Len(t, tr.Samples, 1)
		assertWithin(t, end, tr.Samples[0], 1.0)
		assert.Zero(t, tr.Interval)
	}
}

func TestPlanTrajectory_ZeroLength(t *testing.T) {
	h := NewTestHumanoid(3)
	p := Vector2D{X: 250, Y: 250}
	tr := h.PlanTrajectory(p, p, 500*time.Millisecond)

	assert.Len(t, tr.Samples, 30)
	assert.Equal(t, p, tr.Control1)
	assert.Equal(t, p, tr.Control2)
	for _, s := range tr.Samples {
		assertWithin(t, p, s, 1.0)
	}
}

func TestMoveAlong_DispatchesEverySampleAndPaces(t *testing.T) {
	mock := newMockExecutor(t)
	h := NewTestHumanoid(12345)

	start := Vector2D{X: 100, Y: 100}
	end := Vector2D{X: 500, Y: 400}
	duration := 500 * time.Millisecond

	final, err := h.MoveAlong(context.Background(), mock, start, end, duration)
	require.NoError(t, err)

	moves := mock.moves()
	sleeps := mock.sleeps()
	require.Len(t, moves, 30)
	require.Len(t, sleeps, 30)
	assert.Equal(t, moves[len(moves)-1], final)
	assertWithin(t, end, final, 1.0)

	var total time.Duration
	for _, s := range sleeps {
		assert.Equal(t, duration/30, s)
		total += s
	}
	assert.InDelta(t, float64(duration), float64(total), float64(30*time.Nanosecond))

	// Moves and sleeps alternate.
	calls := mock.snapshot()
	for i := 0; i+1 < len(calls); i += 2 {
		assert.Equal(t, "move", calls[i].kind)
		assert.Equal(t, "sleep", calls[i+1].kind)
	}
}

func TestMoveAlong_DirectMoveDoesNotSleep(t *testing.T) {
	mock := newMockExecutor(t)
	h := NewTestHumanoid(1)

	_, err := h.MoveAlong(context.Background(), mock, Vector2D{}, Vector2D{X: 10, Y: 10}, 0)
	require.NoError(t, err)
	assert.Len(t, mock.moves(), 1)
	assert.Empty(t, mock.sleeps())
}

func TestMoveAlong_ExecutorFailure(t *testing.T) {
	mock := newMockExecutor(t)
	mock.returnErr = errors.New("target closed")
	mock.failOnCall = 5
	h := NewTestHumanoid(1)

	_, err := h.MoveAlong(context.Background(), mock, Vector2D{}, Vector2D{X: 300, Y: 300}, time.Second)
	require.Error(t, err)
	assert.ErrorIs(t, err, mock.returnErr)
}

func TestMoveAlong_ContextCancellation(t *testing.T) {
	mock := newMockExecutor(t)
	h := NewTestHumanoid(1)
	ctx, cancel := context.WithCancel(context.Background())

	moves := 0
	mock.MockMouseMove = func(ctx context.Context, x, y float64) error {
		moves++
		if moves == 3 {
			cancel()
		}
		return nil
	}

	_, err := h.MoveAlong(ctx, mock, Vector2D{}, Vector2D{X: 300, Y: 300}, time.Second)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 3, moves)
}

func TestMovementDuration(t *testing.T) {
	h := NewTestHumanoid(9)
	cfg := h.Config()

	near := h.MovementDuration(5)
	far := h.MovementDuration(1500)

	assert.GreaterOrEqual(t, near, cfg.MinMoveDuration)
	assert.LessOrEqual(t, far, cfg.MaxMoveDuration)
	assert.Greater(t, far, near)
}
