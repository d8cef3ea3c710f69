// Package imu defines the orientation source consumed by the heading
// sensor, plus the quaternion-to-yaw conversion shared by its drivers.
package imu

import (
	"math"

	"github.com/pkg/errors"
)

// ErrUnavailable is returned when the orientation device fails to respond:
// a bus transaction failed outright, or no fresh sample arrived within the
// starvation timeout.
var ErrUnavailable = errors.New("orientation sensor not responding")

type Quaternion struct {
	I, J, K, W float64
}

// Yaw extracts the rotation about the vertical axis, in radians.
//
// Only the k (z) and combined i/j/w cross terms contribute; this is correct
// only while the device sits flat enough that roll and pitch are negligible
// for the 2D estimate.
func (q Quaternion) Yaw() float64 {
	return math.Atan2(2*(q.W*q.K+q.I*q.J), 1-2*(q.J*q.J+q.K*q.K))
}

// Source produces orientation samples.  Quaternion returns a fresh sample,
// blocking at most the sensor's native sample latency; a single read failure
// is surfaced, never retried indefinitely.
type Source interface {
	Quaternion() (Quaternion, error)
	Close() error
}

// Dummy returns a Source pinned at the given yaw, for bench tools and the
// simulated mode.
func Dummy(yaw float64) Source {
	return &dummySource{q: Quaternion{
		K: math.Sin(yaw / 2),
		W: math.Cos(yaw / 2),
	}}
}

type dummySource struct {
	q Quaternion
}

func (d *dummySource) Quaternion() (Quaternion, error) {
	return d.q, nil
}

func (d *dummySource) Close() error {
	return nil
}
