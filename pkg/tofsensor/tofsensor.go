// Package tofsensor reads the time-of-flight range sensors on the robot's
// I2C bus and groups them into the mounted array the localizer consumes.
package tofsensor

import (
	"encoding/binary"
	"time"

	"github.com/pkg/errors"

	"github.com/strikerbot-team/strikerbot/go-localizer/pkg/i2cbus"
)

const (
	// regResult holds the latest measurement: 1 sequence byte followed by
	// the distance in mm as a little-endian uint32.  The sequence byte
	// changes on every fresh hardware sample.
	regResult = 0x10

	resultLen = 5

	pollInterval = 10 * time.Microsecond

	DefaultWaitTimeout = time.Second
)

var (
	// ErrUnavailable: the bus transaction failed outright, or no fresh
	// sample arrived before the wait timeout.
	ErrUnavailable = errors.New("ToF sensor not responding")

	// ErrNoReading: the sensor has not yet produced a single in-range
	// sample, so there is no last-known-good value to fall back on.
	ErrNoReading = errors.New("ToF sensor has no valid reading yet")
)

type Interface interface {
	Read(wait bool) (float64, error)
	Close() error
}

type Sensor struct {
	dev          i2cbus.Device
	minMM, maxMM float64
	waitTimeout  time.Duration

	haveSeq bool
	lastSeq byte

	// Last accepted distance, held over when a sample falls outside the
	// plausible range.  Explicit have flag; no sentinel values.
	haveGood   bool
	lastGoodMM float64
}

var _ Interface = (*Sensor)(nil)

func New(dev i2cbus.Device, minMM, maxMM float64) *Sensor {
	return &Sensor{
		dev:         dev,
		minMM:       minMM,
		maxMM:       maxMM,
		waitTimeout: DefaultWaitTimeout,
	}
}

// Read returns the sensor's current distance in mm.
//
// With wait=true it polls until the sequence byte differs from the last one
// seen, guaranteeing a genuinely fresh sample; if the hardware stops
// producing samples the poll is bounded by a timeout and reports
// ErrUnavailable rather than spinning forever.  With wait=false it returns
// immediately with whatever the latest poll yielded, even if unchanged.
//
// In both modes an out-of-range distance is discarded and the previously
// accepted distance is returned unchanged; the sensor never reports a
// physically impossible reading, at the cost of going stale under sustained
// occlusion.
func (s *Sensor) Read(wait bool) (float64, error) {
	var buf [resultLen]byte
	deadline := time.Now().Add(s.waitTimeout)
	for {
		if err := s.dev.ReadReg(regResult, buf[:]); err != nil {
			return 0, errors.Wrapf(ErrUnavailable, "bus read failed: %v", err)
		}
		if !wait || !s.haveSeq || buf[0] != s.lastSeq {
			break
		}
		if time.Now().After(deadline) {
			return 0, errors.Wrap(ErrUnavailable, "no fresh sample before timeout")
		}
		time.Sleep(pollInterval)
	}
	s.haveSeq = true
	s.lastSeq = buf[0]

	mm := float64(binary.LittleEndian.Uint32(buf[1:resultLen]))
	if mm >= s.minMM && mm <= s.maxMM {
		s.haveGood = true
		s.lastGoodMM = mm
	}
	if !s.haveGood {
		return 0, ErrNoReading
	}
	return s.lastGoodMM, nil
}

func (s *Sensor) Close() error {
	return s.dev.Close()
}

// Dummy returns a sensor that cycles through the given distances, for bench
// tools and the simulated mode.
func Dummy(distances ...float64) Interface {
	return &dummySensor{distances: distances}
}

type dummySensor struct {
	distances []float64
	next      int
}

func (d *dummySensor) Read(wait bool) (float64, error) {
	if len(d.distances) == 0 {
		return 0, ErrNoReading
	}
	mm := d.distances[d.next]
	d.next = (d.next + 1) % len(d.distances)
	return mm, nil
}

func (d *dummySensor) Close() error {
	return nil
}
