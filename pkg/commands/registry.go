package commands

import (
	command "github.com/goliatone/go-command"
	internalcommands "github.com/goliatone/go-webpush/internal/commands"
)

// Re-export request types so consumers need not import internal packages.
type (
	SubscribeRequest      = internalcommands.SubscribeRequest
	SendRequest           = internalcommands.SendRequest
	SendTestNotifications = internalcommands.SendTestNotifications
	ScheduledBroadcast    = internalcommands.ScheduledBroadcast
	BroadcastRequest      = internalcommands.BroadcastRequest
)

// JobBroadcast is the queue key for deferred broadcasts.
const JobBroadcast = internalcommands.JobBroadcast

// Registry exposes go-command compatible handlers backed by the module services.
type Registry struct {
	Catalog               *internalcommands.Catalog
	Subscribe             command.Commander[SubscribeRequest]
	SendNotification      command.Commander[SendRequest]
	SendTestNotifications command.Commander[SendTestNotifications]
	ScheduledBroadcast    command.Commander[ScheduledBroadcast]
}

// New wraps an assembled catalog.
func New(catalog *internalcommands.Catalog) *Registry {
	if catalog == nil {
		return nil
	}
	return &Registry{
		Catalog:               catalog,
		Subscribe:             catalog.Subscribe,
		SendNotification:      catalog.SendNotification,
		SendTestNotifications: catalog.SendTestNotifications,
		ScheduledBroadcast:    catalog.ScheduledBroadcast,
	}
}
