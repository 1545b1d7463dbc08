package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/goliatone/go-webpush/internal/scheduler"
	"github.com/goliatone/go-webpush/internal/web"
	"github.com/goliatone/go-webpush/pkg/interfaces/logger"
)

const shutdownTimeout = 15 * time.Second

// Serve runs the HTTP boundary, the broadcast queue and the scheduler.
type Serve struct {
	global *GlobalOptions
}

func (x *Serve) Execute(args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rt, err := bootstrap(ctx, x.global)
	if err != nil {
		return err
	}
	defer rt.Close()

	reg := rt.Module.Commands()
	sched, err := scheduler.New(rt.Config.Schedule, reg.ScheduledBroadcast, rt.Logger.With(logger.F("component", "scheduler")))
	if err != nil {
		return err
	}
	server, err := web.FromRegistry(reg, rt.Module.PublicKey(), rt.Logger.With(logger.F("component", "http")))
	if err != nil {
		return err
	}

	// Workers outlive the signal so queued broadcasts drain on shutdown.
	rt.Module.Start(context.WithoutCancel(ctx))
	if err := sched.Start(ctx); err != nil {
		return err
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Listen(rt.Config.Server.Addr())
	}()

	select {
	case <-ctx.Done():
		rt.Logger.Info("shutdown requested")
	case err = <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			rt.Logger.Error("http server failed", logger.Err(err))
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if serr := server.Shutdown(shutdownCtx); serr != nil {
		rt.Logger.Warn("http shutdown", logger.Err(serr))
	}
	sched.Stop(shutdownCtx)
	if serr := rt.Module.Stop(shutdownCtx); serr != nil {
		rt.Logger.Warn("dispatcher shutdown", logger.Err(serr))
	}
	return err
}
