// Package field describes the playing field: a rectangle with a recessed
// goal cut into each end wall.  All values are mm in the field frame, origin
// at the centre.  Loaded once per deployment and never mutated.
package field

type Field struct {
	LeftX   float64 `yaml:"left_wall"`
	RightX  float64 `yaml:"right_wall"`
	TopY    float64 `yaml:"top_wall"`
	BottomY float64 `yaml:"bottom_wall"`

	// Goal mouth extent in y, shared by both end walls.
	GoalTopY    float64 `yaml:"goal_top"`
	GoalBottomY float64 `yaml:"goal_bottom"`

	// |x| of the goal mouth plane and of the recessed back wall.
	GoalNearX float64 `yaml:"goal_near_x"`
	GoalFarX  float64 `yaml:"goal_far_x"`
}

// Contains reports whether (x, y) lies on the field, allowing marginMM of
// slack outside the walls.
func (f Field) Contains(x, y, marginMM float64) bool {
	return x >= f.LeftX-marginMM && x <= f.RightX+marginMM &&
		y >= f.BottomY-marginMM && y <= f.TopY+marginMM
}

// InGoalMouth reports whether a y coordinate falls within the goal opening.
func (f Field) InGoalMouth(y float64) bool {
	return y >= f.GoalBottomY && y <= f.GoalTopY
}

// EndWallX returns the x plane an end-wall-bound ray terminates on.  A beam
// that crosses the goal mouth passes the opening and reflects off the
// recessed back wall; anything else stops at the outer wall.  yAtGoalPlane
// is where the ray crosses the mouth plane (best available prior).
func (f Field) EndWallX(rightward bool, yAtGoalPlane float64) float64 {
	if f.InGoalMouth(yAtGoalPlane) && f.GoalFarX > 0 {
		if rightward {
			return f.GoalFarX
		}
		return -f.GoalFarX
	}
	if rightward {
		return f.RightX
	}
	return f.LeftX
}

// SideWallY returns the y plane a side-wall-bound ray terminates on.  The
// side walls have no openings.
func (f Field) SideWallY(upward bool) float64 {
	if upward {
		return f.TopY
	}
	return f.BottomY
}
