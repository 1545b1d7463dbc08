package main

import (
	"context"
	"fmt"
	"os"

	"github.com/goliatone/go-webpush/pkg/config"
	"github.com/goliatone/go-webpush/pkg/interfaces/logger"
	"github.com/goliatone/go-webpush/pkg/notifier"
	"github.com/goliatone/go-webpush/pkg/storage"
)

// runtime is everything a subcommand needs; Close releases the store.
type runtime struct {
	Config config.Config
	Logger logger.Logger
	Store  *storage.Store
	Module *notifier.Module
}

func bootstrap(ctx context.Context, global *GlobalOptions) (*runtime, error) {
	path := ""
	if global != nil {
		path = global.Config
	}
	cfg, err := config.LoadFile(path)
	if err != nil {
		return nil, err
	}
	lgr := logger.NewZerolog(logger.Options{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Output: os.Stderr,
	})

	if err := cfg.RequireVAPID(); err != nil && !cfg.WebPush.DryRun {
		return nil, fmt.Errorf("%w (run `webpush vapid` to generate a key pair)", err)
	}

	st, err := storage.Open(ctx, cfg.Persistence)
	if err != nil {
		return nil, err
	}
	module, err := notifier.NewModule(notifier.ModuleOptions{
		Config:  cfg,
		Storage: st.Providers,
		Logger:  lgr,
	})
	if err != nil {
		st.Close()
		return nil, err
	}
	return &runtime{Config: cfg, Logger: lgr, Store: st, Module: module}, nil
}

func (r *runtime) Close() {
	if r == nil {
		return
	}
	if err := r.Store.Close(); err != nil {
		r.Logger.Warn("close store", logger.Err(err))
	}
}
