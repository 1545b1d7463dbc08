package notifier

import (
	"context"

	"github.com/goliatone/go-webpush/internal/di"
	"github.com/goliatone/go-webpush/pkg/adapters"
	"github.com/goliatone/go-webpush/pkg/broadcast"
	"github.com/goliatone/go-webpush/pkg/commands"
	"github.com/goliatone/go-webpush/pkg/config"
	"github.com/goliatone/go-webpush/pkg/interfaces/logger"
	"github.com/goliatone/go-webpush/pkg/interfaces/queue"
	"github.com/goliatone/go-webpush/pkg/storage"
	"github.com/goliatone/go-webpush/pkg/subscriptions"
)

// ModuleOptions configure the notifier module facade.
type ModuleOptions struct {
	Config  config.Config
	Storage storage.Providers
	Logger  logger.Logger
	Channel adapters.DeliveryChannel
	Queue   queue.Queue
}

// Module bundles the container and exposes high-level accessors.
type Module struct {
	container *di.Container
	commands  *commands.Registry
}

// NewModule assembles repositories, services, the dispatcher pool and commands.
func NewModule(opts ModuleOptions) (*Module, error) {
	container, err := di.New(di.Options{
		Config:  opts.Config,
		Storage: opts.Storage,
		Logger:  opts.Logger,
		Channel: opts.Channel,
		Queue:   opts.Queue,
	})
	if err != nil {
		return nil, err
	}
	return &Module{container: container, commands: commands.New(container.Commands)}, nil
}

// Start launches the dispatcher workers.
func (m *Module) Start(ctx context.Context) {
	if m == nil || m.container == nil {
		return
	}
	m.container.Dispatcher.Start(ctx)
}

// Stop drains queued broadcasts.
func (m *Module) Stop(ctx context.Context) error {
	if m == nil || m.container == nil {
		return nil
	}
	return m.container.Dispatcher.Stop(ctx)
}

// Subscriptions returns the subscription store service.
func (m *Module) Subscriptions() *subscriptions.Service {
	if m == nil || m.container == nil {
		return nil
	}
	return m.container.Subscriptions
}

// Broadcasts returns the broadcast action.
func (m *Module) Broadcasts() *broadcast.Service {
	if m == nil || m.container == nil {
		return nil
	}
	return m.container.Broadcasts
}

// Commands returns the go-command registry.
func (m *Module) Commands() *commands.Registry {
	if m == nil {
		return nil
	}
	return m.commands
}

// PublicKey returns the VAPID application server key handed to browsers.
func (m *Module) PublicKey() string {
	if m == nil || m.container == nil {
		return ""
	}
	return m.container.Config.VAPID.PublicKey
}

// Config returns the effective module configuration.
func (m *Module) Config() config.Config {
	if m == nil || m.container == nil {
		return config.Config{}
	}
	return m.container.Config
}

// Logger returns the module logger.
func (m *Module) Logger() logger.Logger {
	if m == nil || m.container == nil {
		return &logger.Nop{}
	}
	return m.container.Logger
}
