// Package localize fuses the range sensor array with the IMU heading to
// estimate the robot's pose on the field.
package localize

import (
	"math"
	"time"

	"gonum.org/v1/gonum/stat"

	"github.com/strikerbot-team/strikerbot/go-localizer/pkg/angle"
	"github.com/strikerbot-team/strikerbot/go-localizer/pkg/field"
	"github.com/strikerbot-team/strikerbot/go-localizer/pkg/tofsensor"
)

const (
	// A candidate that places the robot further than this outside the
	// walls is treated as an outlier (reflection or misclassified wall).
	outlierMarginMM = 150

	// Minimum valid readings for a fix.
	minSensors = 2
)

// Pose is the robot's position and heading in the field frame (mm,
// radians).  Each estimation cycle produces a new snapshot; a Pose is never
// mutated after it is returned.
type Pose struct {
	X, Y    float64
	Heading angle.PlusMinusPi
}

type Estimate struct {
	Pose Pose

	// ErrorMM is the pooled weighted RMS residual of the per-sensor
	// candidates about the fused position.  +Inf means the estimator had
	// too little data this cycle and the position is carried over.
	ErrorMM float64

	Time        time.Time
	SensorsUsed int
}

// Estimator turns a heading plus a set of range readings into a fused pose.
//
// Each valid reading defines a ray from the robot: direction heading +
// mount angle, surface contact at mount offset + measured distance along
// that direction.  The ray is classified by its dominant component onto an
// end wall (x) or side wall (y) of the field; rays crossing a goal mouth
// terminate on the recessed back wall instead.  Each ray then yields a
// candidate for one axis of the robot's position, and the candidates are
// fused per axis by weighted mean, grazing rays carrying less weight.
type Estimator struct {
	field field.Field
	prev  Estimate

	// Last pose with a finite fit error.  Degraded cycles carry the
	// position forward in prev but must not clear this: it stays usable
	// as the goal-classification prior.
	lastFix Pose
	haveFix bool
}

func New(f field.Field) *Estimator {
	return &Estimator{
		field: f,
		prev:  Estimate{ErrorMM: math.Inf(1)},
	}
}

type ray struct {
	dx, dy float64 // unit direction, field frame
	reach  float64 // mount offset + measured distance, mm
}

// Update runs one estimation cycle.  Cost is proportional to the sensor
// count; it never blocks.  With fewer than two valid readings, or without a
// candidate for each axis, it reports the previous position (heading still
// updated) with ErrorMM = +Inf rather than fabricating a fix.
func (e *Estimator) Update(heading angle.PlusMinusPi, readings tofsensor.Readings) Estimate {
	var rays []ray
	for _, r := range readings.Readings {
		if r.Err != nil {
			continue
		}
		theta := heading.Add(r.Mount.Angle).Float()
		rays = append(rays, ray{
			dx:    math.Cos(theta),
			dy:    math.Sin(theta),
			reach: r.Mount.OffsetMM + r.DistanceMM,
		})
	}

	now := readings.CaptureTime
	if now.IsZero() {
		now = time.Now()
	}
	est := Estimate{
		Pose:        Pose{X: e.prev.Pose.X, Y: e.prev.Pose.Y, Heading: heading},
		ErrorMM:     math.Inf(1),
		Time:        now,
		SensorsUsed: len(rays),
	}
	if len(rays) < minSensors {
		e.prev = est
		return est
	}

	// First pass classifies goal-mouth rays against the last finite fix
	// if there was one; the second pass refines with the first pass's own
	// result.
	var prior *Pose
	if e.haveFix {
		p := e.lastFix
		prior = &p
	}
	if x, y, rms, ok := e.fuse(rays, prior); ok {
		refined := Pose{X: x, Y: y}
		if x2, y2, rms2, ok2 := e.fuse(rays, &refined); ok2 {
			x, y, rms = x2, y2, rms2
		}
		est.Pose.X, est.Pose.Y = x, y
		est.ErrorMM = rms
		e.lastFix = est.Pose
		e.haveFix = true
	}
	e.prev = est
	return est
}

func (e *Estimator) fuse(rays []ray, prior *Pose) (x, y, rms float64, ok bool) {
	var xCands, xWeights, yCands, yWeights []float64
	for _, r := range rays {
		if math.Abs(r.dx) >= math.Abs(r.dy) {
			wallX := e.endWallX(r, prior)
			cand := wallX - r.reach*r.dx
			if cand < e.field.LeftX-outlierMarginMM || cand > e.field.RightX+outlierMarginMM {
				continue
			}
			xCands = append(xCands, cand)
			xWeights = append(xWeights, math.Abs(r.dx))
		} else {
			wallY := e.field.SideWallY(r.dy > 0)
			cand := wallY - r.reach*r.dy
			if cand < e.field.BottomY-outlierMarginMM || cand > e.field.TopY+outlierMarginMM {
				continue
			}
			yCands = append(yCands, cand)
			yWeights = append(yWeights, math.Abs(r.dy))
		}
	}
	if len(xCands) == 0 || len(yCands) == 0 {
		return 0, 0, 0, false
	}

	x = stat.Mean(xCands, xWeights)
	y = stat.Mean(yCands, yWeights)

	var sumSq, sumW float64
	for i, v := range xCands {
		sumSq += xWeights[i] * (v - x) * (v - x)
		sumW += xWeights[i]
	}
	for i, v := range yCands {
		sumSq += yWeights[i] * (v - y) * (v - y)
		sumW += yWeights[i]
	}
	return x, y, math.Sqrt(sumSq / sumW), true
}

// endWallX picks the x plane an end-wall ray terminates on.  Without a
// position prior the goal mouth cannot be tested, so the outer wall is
// assumed; with one, the mouth test happens where the ray crosses the goal
// plane.
func (e *Estimator) endWallX(r ray, prior *Pose) float64 {
	rightward := r.dx > 0
	if prior == nil {
		if rightward {
			return e.field.RightX
		}
		return e.field.LeftX
	}
	plane := e.field.GoalNearX
	if !rightward {
		plane = -plane
	}
	t := (plane - prior.X) / r.dx
	yAtPlane := prior.Y + r.dy*t
	return e.field.EndWallX(rightward, yAtPlane)
}
