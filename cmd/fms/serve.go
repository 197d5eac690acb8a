package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/banshee-data/movement.screen/internal/api"
	"github.com/banshee-data/movement.screen/internal/config"
	"github.com/banshee-data/movement.screen/internal/db"
	"github.com/banshee-data/movement.screen/internal/stereo"
)

func runServe(args []string, stdout, stderr io.Writer) error {
	fs := newFlagSet("serve", stderr)
	listen := fs.String("listen", ":8080", "Listen address")
	dbPath := fs.String("db", "", "SQLite database path (empty keeps results in memory)")
	tuningPath := fs.String("tuning", "", "Tuning configuration JSON file")
	calibPath := fs.String("calib", "", "Stereo calibration JSON enabling /stereo/frames")
	if err := fs.Parse(args); err != nil {
		return err
	}

	opts := api.Options{Tuning: config.EmptyTuningConfig()}
	if *tuningPath != "" {
		var err error
		if opts.Tuning, err = config.LoadTuningConfig(*tuningPath); err != nil {
			return err
		}
	}
	if *calibPath != "" {
		var err error
		if opts.Calibration, err = stereo.LoadCalibration(*calibPath); err != nil {
			return err
		}
	}
	if *dbPath != "" {
		database, err := db.Open(*dbPath)
		if err != nil {
			return err
		}
		defer database.Close()
		opts.Store = db.NewStore(database)
	}

	ln, err := net.Listen("tcp", *listen)
	if err != nil {
		return err
	}
	fmt.Fprintf(stdout, "listening on %s\n", ln.Addr())

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	return serve(ctx, ln, api.LoggingMiddleware(api.NewServer(opts).ServeMux()))
}

// serve runs an HTTP server on ln until ctx is cancelled, then shuts it
// down gracefully.
func serve(ctx context.Context, ln net.Listener, h http.Handler) error {
	server := &http.Server{
		Handler:           h,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		errc <- server.Serve(ln)
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}
	logf("shutting down HTTP server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logf("HTTP server shutdown error: %v", err)
		if err := server.Close(); err != nil {
			logf("HTTP server force close error: %v", err)
		}
	}
	if err := <-errc; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
