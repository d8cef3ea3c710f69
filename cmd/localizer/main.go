// The localizer daemon runs on the robot: it fuses the ToF array and IMU
// heading into a pose every cycle and pushes it to the relay hub.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/pkg/errors"
	"github.com/urfave/cli/v2"
	"go.uber.org/zap"

	"github.com/strikerbot-team/strikerbot/go-localizer/pkg/bno055"
	"github.com/strikerbot-team/strikerbot/go-localizer/pkg/bno08x"
	"github.com/strikerbot-team/strikerbot/go-localizer/pkg/config"
	"github.com/strikerbot-team/strikerbot/go-localizer/pkg/heading"
	"github.com/strikerbot-team/strikerbot/go-localizer/pkg/i2cbus"
	"github.com/strikerbot-team/strikerbot/go-localizer/pkg/imu"
	"github.com/strikerbot-team/strikerbot/go-localizer/pkg/localize"
	"github.com/strikerbot-team/strikerbot/go-localizer/pkg/posestream"
	"github.com/strikerbot-team/strikerbot/go-localizer/pkg/tofsensor"
)

func main() {
	app := &cli.App{
		Name:  "localizer",
		Usage: "robot self-localization daemon",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "config", Value: config.DefaultPath, Usage: "robot configuration file"},
			&cli.StringFlag{Name: "hub", Usage: "hub source URL (overrides config)"},
			&cli.DurationFlag{Name: "interval", Usage: "estimation cycle interval (overrides config)"},
			&cli.BoolFlag{Name: "sim", Usage: "run with simulated sensors, no hardware needed"},
		},
		Action: run,
	}
	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(c *cli.Context) error {
	logger, err := zap.NewDevelopment()
	if err != nil {
		return err
	}
	defer func() {
		_ = logger.Sync()
	}()
	log := logger.Sugar()

	hostname, err := os.Hostname()
	if err != nil {
		return err
	}
	cfg, err := config.Load(c.String("config"))
	if err != nil {
		return err
	}
	robot, err := cfg.ForHost(hostname)
	if err != nil {
		return err
	}
	mounts, err := robot.Mounts()
	if err != nil {
		return err
	}
	log.Infow("configured", "host", hostname, "sensors", len(mounts), "imu", robot.IMU.Source)

	// Our global context, cancelled by Ctrl-C etc. to trigger shutdown.
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	var src imu.Source
	var array *tofsensor.Array
	if c.Bool("sim") {
		src = imu.Dummy(0)
		array, err = tofsensor.NewArray(func(m tofsensor.Mount) (tofsensor.Interface, error) {
			return tofsensor.Dummy(1000, 1010, 990), nil
		}, mounts)
	} else {
		src, err = openIMU(ctx, robot, log)
		if err != nil {
			return errors.Wrap(err, "failed to open IMU")
		}
		array, err = tofsensor.NewArray(func(m tofsensor.Mount) (tofsensor.Interface, error) {
			dev, err := i2cbus.OpenBackend(robot.Bus.Backend, robot.Bus.Device, m.Addr)
			if err != nil {
				return nil, err
			}
			return tofsensor.New(dev, robot.Range.MinMM, robot.Range.MaxMM), nil
		}, mounts)
	}
	if err != nil {
		return errors.Wrap(err, "failed to open range sensors")
	}
	defer array.Close()
	defer func() {
		_ = src.Close()
	}()

	hs := heading.New(src)
	// No fallback heading source: a dead IMU at startup is fatal.
	if err := hs.Init(); err != nil {
		return errors.Wrap(err, "failed to initialise heading sensor")
	}
	log.Info("heading zeroed against current orientation")

	interval := time.Duration(robot.Loop.IntervalMS) * time.Millisecond
	if c.IsSet("interval") {
		interval = c.Duration("interval")
	}
	hubURL := robot.Hub.URL
	if c.IsSet("hub") {
		hubURL = c.String("hub")
	}

	loop := &localize.Loop{
		Heading:   hs,
		Sensors:   array,
		Estimator: localize.New(robot.Field),
		Interval:  interval,
		Log:       log,
	}
	if hubURL != "" {
		pub := posestream.NewPublisher(hubURL, log)
		pub.Start(ctx)
		loop.Sink = pub
	}

	err = loop.Run(ctx)
	if errors.Is(err, context.Canceled) {
		log.Info("shutting down")
		return nil
	}
	return err
}

func openIMU(ctx context.Context, robot *config.Robot, log *zap.SugaredLogger) (imu.Source, error) {
	switch robot.IMU.Source {
	case "bno08x":
		b := bno08x.New(robot.IMU.Port, log)
		b.Start(ctx)
		return b, nil
	case "dummy":
		return imu.Dummy(0), nil
	case "", "bno055":
		dev, err := i2cbus.OpenBackend(robot.Bus.Backend, robot.Bus.Device, robot.IMU.Addr)
		if err != nil {
			return nil, err
		}
		return bno055.New(dev)
	}
	return nil, errors.Errorf("unknown IMU source %q", robot.IMU.Source)
}
