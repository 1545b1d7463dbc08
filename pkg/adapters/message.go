package adapters

import (
	"context"

	"github.com/goliatone/go-webpush/pkg/domain"
)

// DeliveryChannel delivers one payload to one subscription. Web Push is the only
// channel; failures are reported as *domain.DeliveryError.
type DeliveryChannel interface {
	Name() string
	Send(ctx context.Context, sub domain.PushSubscription, payload domain.NotificationPayload) error
}

// ChannelFunc adapts a function to DeliveryChannel.
type ChannelFunc func(ctx context.Context, sub domain.PushSubscription, payload domain.NotificationPayload) error

func (f ChannelFunc) Name() string { return "func" }

func (f ChannelFunc) Send(ctx context.Context, sub domain.PushSubscription, payload domain.NotificationPayload) error {
	if f == nil {
		return nil
	}
	return f(ctx, sub, payload)
}
