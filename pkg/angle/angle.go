package angle

import (
	"math"

	"github.com/pkg/errors"
)

// ErrNotFinite is returned when an angle is constructed from NaN or an
// infinity.  Rejecting those here keeps NaN out of the pose computation.
var ErrNotFinite = errors.New("angle is not finite")

// PlusMinusPi is an angle in radians, stored as a value in range (-pi, pi].
// All operations clamp their output into range.
type PlusMinusPi struct {
	float64
}

func (a PlusMinusPi) Add(b PlusMinusPi) PlusMinusPi {
	return wrap(a.float64 + b.float64)
}

func (a PlusMinusPi) Sub(b PlusMinusPi) PlusMinusPi {
	return wrap(a.float64 - b.float64)
}

// Float returns the angle in radians, range (-pi, pi].
func (a PlusMinusPi) Float() float64 {
	return a.float64
}

// Degrees returns the angle in degrees, for log output.
func (a PlusMinusPi) Degrees() float64 {
	return a.float64 * 180 / math.Pi
}

// FromFloat converts a finite float of any magnitude to a PlusMinusPi by
// calculating f mod 2*pi and shifting into range.
func FromFloat(f float64) (PlusMinusPi, error) {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return PlusMinusPi{}, ErrNotFinite
	}
	return wrap(f), nil
}

// wrap assumes f is finite; FromFloat is the checked entry point.
func wrap(f float64) PlusMinusPi {
	r := math.Mod(f, 2*math.Pi)
	if r <= -math.Pi {
		r += 2 * math.Pi
	} else if r > math.Pi {
		r -= 2 * math.Pi
	}
	return PlusMinusPi{r}
}
