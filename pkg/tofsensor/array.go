package tofsensor

import (
	"time"

	"github.com/strikerbot-team/strikerbot/go-localizer/pkg/angle"
)

// Mount describes where a range sensor sits on the chassis: its bus address,
// its offset along its own ray from the robot centre, and the body-frame
// bearing of that ray.  Fixed at configuration time.
type Mount struct {
	Name     string
	Addr     int
	OffsetMM float64
	Angle    angle.PlusMinusPi
}

type Readings struct {
	CaptureTime time.Time

	// In mount configuration order.
	Readings []Reading
}

// Reading is one slot of an array read.  A sensor that failed carries its
// error here instead of aborting the rest of the array.
type Reading struct {
	Mount      Mount
	DistanceMM float64
	Err        error
}

// Valid counts the slots that produced a usable distance.
func (r Readings) Valid() int {
	n := 0
	for _, reading := range r.Readings {
		if reading.Err == nil {
			n++
		}
	}
	return n
}

// Array owns one sensor per mount.  Sensors are read strictly one at a time;
// the bus is a single shared resource and transactions must not interleave.
type Array struct {
	mounts  []Mount
	sensors []Interface
}

// NewArray opens one sensor per mount, in configuration order.  If any open
// fails, sensors already opened are closed again.
func NewArray(open func(Mount) (Interface, error), mounts []Mount) (*Array, error) {
	a := &Array{mounts: mounts}
	for _, m := range mounts {
		s, err := open(m)
		if err != nil {
			a.Close()
			return nil, err
		}
		a.sensors = append(a.sensors, s)
	}
	return a, nil
}

// ReadAll reads every sensor in mount order.  One sensor's failure never
// aborts the others; the failed slot reports its error and the fusion step
// works with whatever subset succeeded.
func (a *Array) ReadAll(wait bool) Readings {
	readings := Readings{
		CaptureTime: time.Now(),
		Readings:    make([]Reading, len(a.sensors)),
	}
	for i, s := range a.sensors {
		mm, err := s.Read(wait)
		readings.Readings[i] = Reading{
			Mount:      a.mounts[i],
			DistanceMM: mm,
			Err:        err,
		}
	}
	return readings
}

func (a *Array) Close() {
	for _, s := range a.sensors {
		_ = s.Close()
	}
	a.sensors = nil
}
