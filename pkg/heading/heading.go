// Package heading turns an orientation source into a zeroable 2D heading.
package heading

import (
	"github.com/pkg/errors"

	"github.com/strikerbot-team/strikerbot/go-localizer/pkg/angle"
	"github.com/strikerbot-team/strikerbot/go-localizer/pkg/imu"
)

// Sensor reports the robot's heading relative to the orientation it had at
// the last Init or ResetHeading call.  The offset is only mutated by those
// two operations; all reads are relative to it.
type Sensor struct {
	src    imu.Source
	offset angle.PlusMinusPi
}

func New(src imu.Source) *Sensor {
	return &Sensor{src: src}
}

// Init zeroes the heading against the robot's current orientation so the
// very next CurrentHeading call reads ~0.  The source has already opened the
// device and enabled reporting; a failure here means the IMU is not
// responding and is fatal to the caller.
func (s *Sensor) Init() error {
	return s.ResetHeading()
}

// ResetHeading re-zeroes: all subsequent CurrentHeading calls are relative
// to the orientation at this moment.
func (s *Sensor) ResetHeading() error {
	yaw, err := s.rawYaw()
	if err != nil {
		return err
	}
	s.offset, err = angle.FromFloat(-yaw.Float())
	return err
}

// CurrentHeading reads a fresh orientation sample and returns the offset
// heading.  Blocks at most the sensor's native sample latency; a read
// failure is surfaced, not masked.
func (s *Sensor) CurrentHeading() (angle.PlusMinusPi, error) {
	yaw, err := s.rawYaw()
	if err != nil {
		return angle.PlusMinusPi{}, err
	}
	return yaw.Add(s.offset), nil
}

func (s *Sensor) rawYaw() (angle.PlusMinusPi, error) {
	q, err := s.src.Quaternion()
	if err != nil {
		return angle.PlusMinusPi{}, errors.Wrap(err, "failed to read orientation")
	}
	// atan2 output is always finite for finite inputs, but a corrupt
	// sample could smuggle NaN through; reject it here.
	return angle.FromFloat(q.Yaw())
}
