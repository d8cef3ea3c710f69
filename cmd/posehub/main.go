// posehub is the relay server: the robot pushes pose updates to /source and
// any number of viewers stream them from /view.  With --db it also records
// every pose to SQLite.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/urfave/cli/v2"
	"go.uber.org/zap"

	"github.com/strikerbot-team/strikerbot/go-localizer/pkg/posestream"
)

func main() {
	app := &cli.App{
		Name:  "posehub",
		Usage: "pose relay server for localization viewers",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "listen", Value: ":8090", Usage: "listen address"},
			&cli.StringFlag{Name: "db", Usage: "record poses to this SQLite file"},
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

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	hub := posestream.NewHub(log)

	if path := c.String("db"); path != "" {
		rec, err := posestream.OpenRecorder(path)
		if err != nil {
			return err
		}
		defer rec.Close()
		log.Infow("recording poses", "path", path, "run", rec.RunID())

		// A plain subscriber: recording faults stay isolated from the
		// viewers.
		sub := hub.Subscribe()
		defer sub.Cancel()
		go func() {
			for {
				select {
				case <-ctx.Done():
					return
				case u := <-sub.C:
					if err := rec.Record(u); err != nil {
						log.Warnw("failed to record pose", "error", err)
					}
				}
			}
		}()
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/source", hub.ServeSource)
	mux.HandleFunc("/view", hub.ServeViewer)
	mux.HandleFunc("/latest", hub.ServeLatest)
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintln(w, "ok")
	})

	srv := &http.Server{Addr: c.String("listen"), Handler: mux}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	log.Infow("listening", "addr", c.String("listen"))
	if err := srv.ListenAndServe(); err != http.ErrServerClosed {
		return err
	}
	return nil
}
