package field

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

var testField = Field{
	LeftX:       -1215,
	RightX:      1215,
	TopY:        910,
	BottomY:     -910,
	GoalTopY:    225,
	GoalBottomY: -225,
	GoalNearX:   1215,
	GoalFarX:    1289,
}

func TestContains(t *testing.T) {
	assert.True(t, testField.Contains(0, 0, 0))
	assert.True(t, testField.Contains(1215, 910, 0))
	assert.False(t, testField.Contains(1300, 0, 0))
	assert.True(t, testField.Contains(1300, 0, 150))
	assert.False(t, testField.Contains(0, -1100, 150))
}

func TestInGoalMouth(t *testing.T) {
	assert.True(t, testField.InGoalMouth(0))
	assert.True(t, testField.InGoalMouth(225))
	assert.False(t, testField.InGoalMouth(226))
	assert.False(t, testField.InGoalMouth(-500))
}

func TestEndWallX(t *testing.T) {
	// Through the mouth: recessed back wall.
	assert.Equal(t, 1289.0, testField.EndWallX(true, 0))
	assert.Equal(t, -1289.0, testField.EndWallX(false, -100))
	// Outside the mouth: outer wall.
	assert.Equal(t, 1215.0, testField.EndWallX(true, 500))
	assert.Equal(t, -1215.0, testField.EndWallX(false, 500))
}

func TestEndWallXNoGoal(t *testing.T) {
	f := testField
	f.GoalFarX = 0
	assert.Equal(t, 1215.0, f.EndWallX(true, 0))
}

func TestSideWallY(t *testing.T) {
	assert.Equal(t, 910.0, testField.SideWallY(true))
	assert.Equal(t, -910.0, testField.SideWallY(false))
}
