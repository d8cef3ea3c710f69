package imu

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func quatForYaw(yaw float64) Quaternion {
	return Quaternion{K: math.Sin(yaw / 2), W: math.Cos(yaw / 2)}
}

func TestYaw(t *testing.T) {
	for _, tc := range []struct {
		name string
		q    Quaternion
		want float64
	}{
		{"identity", Quaternion{W: 1}, 0},
		{"quarter turn", quatForYaw(math.Pi / 2), math.Pi / 2},
		{"half turn", quatForYaw(math.Pi), math.Pi},
		{"negative quarter", quatForYaw(-math.Pi / 2), -math.Pi / 2},
		{"small", quatForYaw(0.1), 0.1},
	} {
		t.Run(tc.name, func(t *testing.T) {
			got := tc.q.Yaw()
			// Yaw and its half-turn complement describe the same
			// rotation; compare via the angular difference.
			diff := math.Mod(got-tc.want, 2*math.Pi)
			assert.InDelta(t, 0, math.Min(math.Abs(diff), 2*math.Pi-math.Abs(diff)), 1e-12)
		})
	}
}

func TestDummy(t *testing.T) {
	src := Dummy(1.25)
	q, err := src.Quaternion()
	require.NoError(t, err)
	assert.InDelta(t, 1.25, q.Yaw(), 1e-12)
	require.NoError(t, src.Close())
}
