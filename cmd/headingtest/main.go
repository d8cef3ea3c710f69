// headingtest is a bench tool: zero the heading sensor and print the live
// heading at 5Hz.
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
)

func main() {
	app := &cli.App{
		Name:  "headingtest",
		Usage: "print the live heading from the configured IMU",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "config", Value: config.DefaultPath, Usage: "robot configuration file"},
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

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	var src imu.Source
	switch robot.IMU.Source {
	case "bno08x":
		b := bno08x.New(robot.IMU.Port, log)
		b.Start(ctx)
		src = b
	case "dummy":
		src = imu.Dummy(0)
	default:
		dev, err := i2cbus.OpenBackend(robot.Bus.Backend, robot.Bus.Device, robot.IMU.Addr)
		if err != nil {
			return err
		}
		src, err = bno055.New(dev)
		if err != nil {
			return err
		}
	}
	defer func() {
		_ = src.Close()
	}()

	hs := heading.New(src)
	if err := hs.Init(); err != nil {
		return errors.Wrap(err, "failed to initialise heading sensor")
	}
	fmt.Println("Heading zeroed; rotate the robot...")

	ticker := time.NewTicker(200 * time.Millisecond)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
		h, err := hs.CurrentHeading()
		if err != nil {
			fmt.Println("read failed:", err)
			continue
		}
		fmt.Printf("heading: %7.2f deg\n", h.Degrees())
	}
}
