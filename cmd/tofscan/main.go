// tofscan is a bench tool: open every configured range sensor and print a
// reading table once a tick, until interrupted.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/strikerbot-team/strikerbot/go-localizer/pkg/config"
	"github.com/strikerbot-team/strikerbot/go-localizer/pkg/i2cbus"
	"github.com/strikerbot-team/strikerbot/go-localizer/pkg/tofsensor"
)

func main() {
	app := &cli.App{
		Name:  "tofscan",
		Usage: "print live readings from the configured range sensors",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "config", Value: config.DefaultPath, Usage: "robot configuration file"},
			&cli.DurationFlag{Name: "interval", Value: 500 * time.Millisecond, Usage: "time between tables"},
			&cli.BoolFlag{Name: "wait", Usage: "block for a fresh sample on each read"},
		},
		Action: run,
	}
	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(c *cli.Context) error {
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

	array, err := tofsensor.NewArray(func(m tofsensor.Mount) (tofsensor.Interface, error) {
		dev, err := i2cbus.OpenBackend(robot.Bus.Backend, robot.Bus.Device, m.Addr)
		if err != nil {
			return nil, err
		}
		return tofsensor.New(dev, robot.Range.MinMM, robot.Range.MaxMM), nil
	}, mounts)
	if err != nil {
		return err
	}
	defer array.Close()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	ticker := time.NewTicker(c.Duration("interval"))
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
		readings := array.ReadAll(c.Bool("wait"))
		fmt.Println(readings.CaptureTime.Format("15:04:05.000"))
		for _, r := range readings.Readings {
			if r.Err != nil {
				fmt.Printf("  %-8s 0x%02x  ERROR %v\n", r.Mount.Name, r.Mount.Addr, r.Err)
				continue
			}
			fmt.Printf("  %-8s 0x%02x  %6.0f mm\n", r.Mount.Name, r.Mount.Addr, r.DistanceMM)
		}
	}
}
