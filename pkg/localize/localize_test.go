package localize

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/strikerbot-team/strikerbot/go-localizer/pkg/angle"
	"github.com/strikerbot-team/strikerbot/go-localizer/pkg/field"
	"github.com/strikerbot-team/strikerbot/go-localizer/pkg/tofsensor"
)

// Walls only; goal geometry added per-test where it matters.
var openField = field.Field{
	LeftX:   -1215,
	RightX:  1215,
	TopY:    910,
	BottomY: -910,
}

var goalField = field.Field{
	LeftX:       -1215,
	RightX:      1215,
	TopY:        910,
	BottomY:     -910,
	GoalTopY:    225,
	GoalBottomY: -225,
	GoalNearX:   1215,
	GoalFarX:    1289,
}

func mustAngle(t *testing.T, f float64) angle.PlusMinusPi {
	a, err := angle.FromFloat(f)
	require.NoError(t, err)
	return a
}

func reading(t *testing.T, mountAngle, offsetMM, distanceMM float64) tofsensor.Reading {
	return tofsensor.Reading{
		Mount:      tofsensor.Mount{OffsetMM: offsetMM, Angle: mustAngle(t, mountAngle)},
		DistanceMM: distanceMM,
	}
}

func readings(rs ...tofsensor.Reading) tofsensor.Readings {
	return tofsensor.Readings{CaptureTime: time.Now(), Readings: rs}
}

func TestNoValidReadings(t *testing.T) {
	e := New(openField)
	est := e.Update(mustAngle(t, 0.5), readings())
	assert.True(t, math.IsInf(est.ErrorMM, 1))
	assert.Equal(t, 0.0, est.Pose.X)
	assert.Equal(t, 0.0, est.Pose.Y)
	assert.InDelta(t, 0.5, est.Pose.Heading.Float(), 1e-9)
	assert.Equal(t, 0, est.SensorsUsed)
}

func TestDegradedKeepsPreviousFix(t *testing.T) {
	e := New(openField)

	// Establish a fix at (0, 0) from three consistent sensors.
	est := e.Update(mustAngle(t, 0), readings(
		reading(t, 0, 100, 1115),       // front: hits right wall
		reading(t, math.Pi/2, 80, 830), // left: hits top wall
		reading(t, math.Pi, 90, 1125),  // rear: hits left wall
	))
	require.False(t, math.IsInf(est.ErrorMM, 1))

	// All sensors fail; position is carried over, heading still updates.
	failed := readings(tofsensor.Reading{
		Mount: tofsensor.Mount{},
		Err:   tofsensor.ErrUnavailable,
	})
	est2 := e.Update(mustAngle(t, 1), failed)
	assert.True(t, math.IsInf(est2.ErrorMM, 1))
	assert.InDelta(t, est.Pose.X, est2.Pose.X, 1e-9)
	assert.InDelta(t, est.Pose.Y, est2.Pose.Y, 1e-9)
	assert.InDelta(t, 1, est2.Pose.Heading.Float(), 1e-9)
	assert.Equal(t, 0, est2.SensorsUsed)
}

func TestSingleReadingIsInsufficient(t *testing.T) {
	e := New(openField)
	est := e.Update(mustAngle(t, 0), readings(reading(t, 0, 100, 1115)))
	assert.True(t, math.IsInf(est.ErrorMM, 1))
	assert.Equal(t, 1, est.SensorsUsed)
}

func TestOneAxisOnlyIsInsufficient(t *testing.T) {
	e := New(openField)
	// Both rays x-dominant: no y candidate, so no fix.
	est := e.Update(mustAngle(t, 0), readings(
		reading(t, 0, 100, 1115),
		reading(t, math.Pi, 90, 1125),
	))
	assert.True(t, math.IsInf(est.ErrorMM, 1))
}

func TestConvergesAtOrigin(t *testing.T) {
	e := New(openField)
	est := e.Update(mustAngle(t, 0), readings(
		reading(t, 0, 100, 1115),
		reading(t, math.Pi/2, 80, 830),
		reading(t, math.Pi, 90, 1125),
	))
	require.False(t, math.IsInf(est.ErrorMM, 1))
	assert.InDelta(t, 0, est.Pose.X, 10)
	assert.InDelta(t, 0, est.Pose.Y, 10)
	assert.Less(t, est.ErrorMM, 10.0)
	assert.Equal(t, 3, est.SensorsUsed)
}

func TestConvergesWithRotatedRobot(t *testing.T) {
	// Robot at (200, -300) facing +y: the front sensor sees the top wall,
	// the right-hand sensor sees the right wall.
	e := New(openField)
	est := e.Update(mustAngle(t, math.Pi/2), readings(
		reading(t, 0, 60, 1150),         // world +y: 910 - (-300) - 60
		reading(t, -math.Pi/2, 60, 955), // world +x: 1215 - 200 - 60
	))
	require.False(t, math.IsInf(est.ErrorMM, 1))
	assert.InDelta(t, 200, est.Pose.X, 10)
	assert.InDelta(t, -300, est.Pose.Y, 10)
}

func TestOutlierRejected(t *testing.T) {
	e := New(openField)
	est := e.Update(mustAngle(t, 0), readings(
		reading(t, 0, 100, 1115),
		reading(t, math.Pi/2, 80, 830),
		reading(t, math.Pi, 90, 1125),
		// Implies a robot nearly 2m outside the field; discarded.
		reading(t, 0, 100, 3000),
	))
	require.False(t, math.IsInf(est.ErrorMM, 1))
	assert.InDelta(t, 0, est.Pose.X, 10)
	assert.InDelta(t, 0, est.Pose.Y, 10)
	assert.Less(t, est.ErrorMM, 10.0)
	assert.Equal(t, 4, est.SensorsUsed)
}

func TestGoalRaysResolveToBackWall(t *testing.T) {
	// Robot at the centre, both end-wall rays pass through the goal
	// mouths, so their true reflections come from the recessed back
	// walls at +/-1289.
	e := New(goalField)
	est := e.Update(mustAngle(t, 0), readings(
		reading(t, 0, 100, 1189),        // 1289 - 100
		reading(t, math.Pi, 90, 1199),   // 1289 - 90
		reading(t, math.Pi/2, 80, 830),  // top wall, outside any goal
		reading(t, -math.Pi/2, 80, 830), // bottom wall
	))
	require.False(t, math.IsInf(est.ErrorMM, 1))
	assert.InDelta(t, 0, est.Pose.X, 10)
	assert.InDelta(t, 0, est.Pose.Y, 10)
	assert.Less(t, est.ErrorMM, 10.0)
}

func TestDegradedCycleKeepsGoalPrior(t *testing.T) {
	e := New(goalField)

	goalReadings := func() tofsensor.Readings {
		return readings(
			reading(t, 0, 100, 1189),        // through the right mouth
			reading(t, math.Pi, 90, 1199),   // through the left mouth
			reading(t, math.Pi/2, 80, 830),  // top wall
			reading(t, -math.Pi/2, 80, 830), // bottom wall
		)
	}
	est := e.Update(mustAngle(t, 0), goalReadings())
	require.False(t, math.IsInf(est.ErrorMM, 1))

	// A degraded cycle carries the position but must not clear the fix
	// used as the goal-classification prior.
	deg := e.Update(mustAngle(t, 0), readings())
	require.True(t, math.IsInf(deg.ErrorMM, 1))
	require.True(t, e.haveFix)
	assert.InDelta(t, est.Pose.X, e.lastFix.X, 1e-9)
	assert.InDelta(t, est.Pose.Y, e.lastFix.Y, 1e-9)

	// The next good cycle classifies its goal rays from that fix on the
	// first pass and converges as before.
	est2 := e.Update(mustAngle(t, 0), goalReadings())
	require.False(t, math.IsInf(est2.ErrorMM, 1))
	assert.InDelta(t, 0, est2.Pose.X, 10)
	assert.InDelta(t, 0, est2.Pose.Y, 10)
	assert.Less(t, est2.ErrorMM, 10.0)
}

func TestGoalMissedOutsideMouth(t *testing.T) {
	// Robot high up the field: the forward ray crosses the goal plane
	// well above the mouth and terminates on the outer wall.
	e := New(goalField)
	est := e.Update(mustAngle(t, 0), readings(
		reading(t, 0, 100, 615),          // 1215 - 500 - 100
		reading(t, math.Pi/2, 80, 330),   // 910 - 500 - 80
		reading(t, -math.Pi/2, 80, 1330), // -910 below
	))
	require.False(t, math.IsInf(est.ErrorMM, 1))
	assert.InDelta(t, 500, est.Pose.X, 10)
	assert.InDelta(t, 500, est.Pose.Y, 10)
}
