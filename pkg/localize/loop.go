package localize

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/strikerbot-team/strikerbot/go-localizer/pkg/angle"
	"github.com/strikerbot-team/strikerbot/go-localizer/pkg/tofsensor"
)

const DefaultInterval = 50 * time.Millisecond

type HeadingSource interface {
	CurrentHeading() (angle.PlusMinusPi, error)
}

type RangeSource interface {
	ReadAll(wait bool) tofsensor.Readings
}

// PoseSink receives each new estimate.  Send must not block; delivery is
// fire-and-forget from the loop's point of view.
type PoseSink interface {
	Send(Estimate)
}

// Loop is the single control cycle driving localization: read heading, read
// all range sensors, fuse, publish.  It is the only goroutine touching the
// I2C bus, so all bus transactions are naturally serialized.
type Loop struct {
	Heading   HeadingSource
	Sensors   RangeSource
	Estimator *Estimator
	Sink      PoseSink // optional
	Interval  time.Duration
	Log       *zap.SugaredLogger
}

// Run cycles until the context is cancelled.  Non-fatal trouble in a cycle
// (heading read failure, degraded estimate) is logged and the loop simply
// proceeds to the next cycle.
func (l *Loop) Run(ctx context.Context) error {
	interval := l.Interval
	if interval == 0 {
		interval = DefaultInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	var lastLog time.Time
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}

		h, err := l.Heading.CurrentHeading()
		if err != nil {
			l.Log.Warnw("heading read failed; skipping cycle", "error", err)
			continue
		}
		readings := l.Sensors.ReadAll(true)
		est := l.Estimator.Update(h, readings)
		if l.Sink != nil {
			l.Sink.Send(est)
		}

		if time.Since(lastLog) > time.Second {
			l.Log.Infow("pose",
				"x_mm", est.Pose.X,
				"y_mm", est.Pose.Y,
				"heading_deg", est.Pose.Heading.Degrees(),
				"error_mm", est.ErrorMM,
				"sensors", est.SensorsUsed,
			)
			lastLog = time.Now()
		}
	}
}
