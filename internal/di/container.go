package di

import (
	"reflect"

	"github.com/goliatone/go-webpush/internal/commands"
	"github.com/goliatone/go-webpush/internal/dispatcher"
	"github.com/goliatone/go-webpush/pkg/adapters"
	"github.com/goliatone/go-webpush/pkg/adapters/webpush"
	"github.com/goliatone/go-webpush/pkg/broadcast"
	"github.com/goliatone/go-webpush/pkg/config"
	"github.com/goliatone/go-webpush/pkg/interfaces/logger"
	"github.com/goliatone/go-webpush/pkg/interfaces/queue"
	"github.com/goliatone/go-webpush/pkg/storage"
	"github.com/goliatone/go-webpush/pkg/subscriptions"
)

// Options configure the DI container.
type Options struct {
	Config  config.Config
	Storage storage.Providers
	Logger  logger.Logger
	// Channel replaces the Web Push adapter built from Config.
	Channel adapters.DeliveryChannel
	// Queue replaces the dispatcher pool for deferred broadcasts.
	Queue queue.Queue
}

// Container wires repositories, services, the dispatcher pool and commands.
type Container struct {
	Config        config.Config
	Storage       storage.Providers
	Logger        logger.Logger
	Channel       adapters.DeliveryChannel
	Subscriptions *subscriptions.Service
	Broadcasts    *broadcast.Service
	Dispatcher    *dispatcher.Pool
	Queue         queue.Queue
	Commands      *commands.Catalog
}

func isZeroConfig(cfg config.Config) bool {
	return reflect.ValueOf(cfg).IsZero()
}

// New constructs the container using the supplied options.
func New(opts Options) (*Container, error) {
	cfg := opts.Config
	if isZeroConfig(cfg) {
		cfg = config.Defaults()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	providers := opts.Storage
	if providers.Subscriptions == nil {
		providers = storage.NewMemoryProviders()
	}

	lgr := opts.Logger
	if lgr == nil {
		lgr = &logger.Nop{}
	}

	channel := opts.Channel
	if channel == nil {
		adapter, err := webpush.New(lgr.With(logger.F("adapter", "webpush")), webpush.WithConfig(AdapterConfig(cfg)))
		if err != nil {
			return nil, err
		}
		channel = adapter
	}

	subSvc, err := subscriptions.New(subscriptions.Dependencies{
		Subscribers:   providers.Subscribers,
		Subscriptions: providers.Subscriptions,
		Transaction:   providers.Transaction,
		Logger:        lgr,
	})
	if err != nil {
		return nil, err
	}

	broadcastSvc, err := broadcast.New(broadcast.Dependencies{
		Recipients: subSvc,
		Channel:    channel,
		Remover:    subSvc,
		Logger:     lgr,
		MaxWorkers: cfg.Dispatcher.MaxWorkers,
		PruneGone:  cfg.WebPush.PruneGone,
	})
	if err != nil {
		return nil, err
	}

	pool := dispatcher.New(dispatcher.Config{
		Workers:   cfg.Dispatcher.QueueWorkers,
		QueueSize: cfg.Dispatcher.QueueSize,
	}, lgr.With(logger.F("component", "dispatcher")))
	if err := pool.Handle(commands.JobBroadcast, commands.BroadcastHandler(broadcastSvc)); err != nil {
		return nil, err
	}

	q := opts.Queue
	if q == nil {
		q = pool
	}

	catalog, err := commands.NewCatalog(commands.Dependencies{
		Subscriptions: subSvc,
		Broadcasts:    broadcastSvc,
		Queue:         q,
		Logger:        lgr,
	})
	if err != nil {
		return nil, err
	}

	return &Container{
		Config:        cfg,
		Storage:       providers,
		Logger:        lgr,
		Channel:       channel,
		Subscriptions: subSvc,
		Broadcasts:    broadcastSvc,
		Dispatcher:    pool,
		Queue:         q,
		Commands:      catalog,
	}, nil
}

// AdapterConfig maps service configuration onto the Web Push adapter.
func AdapterConfig(cfg config.Config) webpush.Config {
	return webpush.Config{
		Subject:           cfg.VAPID.Subject,
		VAPIDPublicKey:    cfg.VAPID.PublicKey,
		VAPIDPrivateKey:   cfg.VAPID.PrivateKey,
		PayloadEncryption: cfg.WebPush.PayloadEncryption,
		AutomaticPadding:  cfg.WebPush.AutomaticPadding,
		TTL:               cfg.WebPush.TTL,
		Urgency:           cfg.WebPush.Urgency,
		Timeout:           cfg.WebPush.Timeout,
		Proxy:             cfg.WebPush.Proxy,
		DryRun:            cfg.WebPush.DryRun,
	}
}
