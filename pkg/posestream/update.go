// Package posestream carries pose estimates from the robot to a relay hub
// and on to any number of viewers.  Delivery is best-effort and
// most-recent-wins at every hop; no history is queued.
package posestream

import (
	"bytes"
	"math"
	"strconv"

	"github.com/pkg/errors"

	"github.com/strikerbot-team/strikerbot/go-localizer/pkg/localize"
)

// ErrorMM is the estimate's fit error.  JSON has no representation for
// +Inf, so the degraded state marshals as null and null unmarshals back to
// +Inf.
type ErrorMM float64

func (e ErrorMM) MarshalJSON() ([]byte, error) {
	if math.IsInf(float64(e), 1) {
		return []byte("null"), nil
	}
	if math.IsNaN(float64(e)) || math.IsInf(float64(e), -1) {
		return nil, errors.Errorf("cannot marshal error value %v", float64(e))
	}
	return strconv.AppendFloat(nil, float64(e), 'g', -1, 64), nil
}

func (e *ErrorMM) UnmarshalJSON(data []byte) error {
	if bytes.Equal(data, []byte("null")) {
		*e = ErrorMM(math.Inf(1))
		return nil
	}
	f, err := strconv.ParseFloat(string(data), 64)
	if err != nil {
		return errors.Wrap(err, "bad error value")
	}
	*e = ErrorMM(f)
	return nil
}

// Update is the wire message pushed by the robot and fanned out to viewers.
type Update struct {
	Position  [2]float64 `json:"position"`
	Angle     float64    `json:"angle"`
	Error     ErrorMM    `json:"error"`
	Timestamp int64      `json:"timestamp"` // Unix milliseconds
}

func FromEstimate(e localize.Estimate) Update {
	return Update{
		Position:  [2]float64{e.Pose.X, e.Pose.Y},
		Angle:     e.Pose.Heading.Float(),
		Error:     ErrorMM(e.ErrorMM),
		Timestamp: e.Time.UnixMilli(),
	}
}
