package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "pushhub: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	cfg, err := loadConfig(".env", args)
	if err != nil {
		return err
	}
	log, err := newLogger(cfg.DevLog)
	if err != nil {
		return err
	}
	defer log.Sync()

	m := newMetrics(os.Stderr, cfg.MetricsTick)
	h, err := newHub(cfg, log, m)
	if err != nil {
		return err
	}
	m.start()

	// Prepare the stoppable HTTP server
	server := &http.Server{
		Addr:              cfg.Addr,
		Handler:           newHandler(h, cfg),
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	serveErr := make(chan error, 1)
	go func() {
		log.Info("listening", zap.String("addr", cfg.Addr), zap.Bool("autocreate", cfg.AutoCreate))
		serveErr <- server.ListenAndServe()
	}()

	select {
	case err := <-serveErr:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	err = server.Shutdown(shutdownCtx)
	// Shutdown does not wait for hijacked connections.
	h.close()
	m.writeOnce()
	return err
}
