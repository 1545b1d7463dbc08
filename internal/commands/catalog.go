package commands

import (
	"context"
	"errors"
	"fmt"
	"strings"

	command "github.com/goliatone/go-command"
	"github.com/goliatone/go-webpush/pkg/domain"
	"github.com/goliatone/go-webpush/pkg/interfaces/logger"
	"github.com/goliatone/go-webpush/pkg/interfaces/queue"
	"github.com/goliatone/go-webpush/pkg/subscriptions"
	"github.com/google/uuid"
)

// JobBroadcast is the queue key for deferred broadcasts.
const JobBroadcast = "broadcast"

// Catalog exposes go-command compatible handlers for the HTTP and CLI transports.
type Catalog struct {
	Subscribe             command.Commander[SubscribeRequest]
	SendNotification      command.Commander[SendRequest]
	SendTestNotifications command.Commander[SendTestNotifications]
	ScheduledBroadcast    command.Commander[ScheduledBroadcast]
}

type subscriptionService interface {
	Subscribe(ctx context.Context, input subscriptions.SubscribeInput) (uuid.UUID, error)
}

type broadcastService interface {
	Broadcast(ctx context.Context, title, body string) (domain.DeliveryReport, error)
	Demo(ctx context.Context) (domain.DeliveryReport, error)
}

// Dependencies wires services into the command catalog. Queue is optional;
// without it broadcasts run inline.
type Dependencies struct {
	Subscriptions subscriptionService
	Broadcasts    broadcastService
	Queue         queue.Queue
	Logger        logger.Logger
}

var (
	ErrSubscriptionsRequired = errors.New("commands: subscription service is required")
	ErrBroadcastsRequired    = errors.New("commands: broadcast service is required")
	ErrUnexpectedPayload     = errors.New("commands: unexpected broadcast job payload")
)

// NewCatalog builds the command catalog using the supplied dependencies.
func NewCatalog(deps Dependencies) (*Catalog, error) {
	if deps.Subscriptions == nil {
		return nil, ErrSubscriptionsRequired
	}
	if deps.Broadcasts == nil {
		return nil, ErrBroadcastsRequired
	}
	if deps.Logger == nil {
		deps.Logger = &logger.Nop{}
	}

	send := sendCommand{svc: deps.Broadcasts, queue: deps.Queue, log: deps.Logger}
	return &Catalog{
		Subscribe:             subscribeCommand{svc: deps.Subscriptions},
		SendNotification:      send,
		SendTestNotifications: testNotificationsCommand{svc: deps.Broadcasts},
		ScheduledBroadcast:    scheduledCommand{send: send},
	}, nil
}

// SubscribeRequest is the browser subscription posted to /subscribe.
// SubscriberID, when set, receives the identity created for the request.
type SubscribeRequest struct {
	subscriptions.SubscribeInput
	SubscriberID *uuid.UUID `json:"-"`
}

type subscribeCommand struct {
	svc subscriptionService
}

func (c subscribeCommand) Execute(ctx context.Context, msg SubscribeRequest) error {
	id, err := c.svc.Subscribe(ctx, msg.SubscribeInput)
	if err != nil {
		return err
	}
	if msg.SubscriberID != nil {
		*msg.SubscriberID = id
	}
	return nil
}

// SendRequest asks for a broadcast with an operator supplied message.
type SendRequest struct {
	Title string `json:"title" form:"title"`
	Body  string `json:"body" form:"body"`
}

// Validate applies the same rules the service worker relies on.
func (r SendRequest) Validate() error {
	return domain.NotificationPayload{
		Title: strings.TrimSpace(r.Title),
		Body:  strings.TrimSpace(r.Body),
	}.Validate()
}

// BroadcastRequest is the payload carried by JobBroadcast jobs. Blank fields
// fall back to the scheduled defaults.
type BroadcastRequest struct {
	Title string
	Body  string
}

type sendCommand struct {
	svc   broadcastService
	queue queue.Queue
	log   logger.Logger
}

func (c sendCommand) Execute(ctx context.Context, msg SendRequest) error {
	if err := msg.Validate(); err != nil {
		return err
	}
	return c.dispatch(ctx, BroadcastRequest{
		Title: strings.TrimSpace(msg.Title),
		Body:  strings.TrimSpace(msg.Body),
	})
}

func (c sendCommand) dispatch(ctx context.Context, req BroadcastRequest) error {
	if c.queue == nil {
		_, err := c.svc.Broadcast(ctx, req.Title, req.Body)
		return err
	}
	if err := c.queue.Enqueue(ctx, queue.Job{Key: JobBroadcast, Payload: req}); err != nil {
		return fmt.Errorf("commands: enqueue broadcast: %w", err)
	}
	c.log.Debug("broadcast enqueued", logger.F("title", req.Title))
	return nil
}

// SendTestNotifications triggers the demo broadcast. Report, when set, receives
// the delivery counts.
type SendTestNotifications struct {
	Report *domain.DeliveryReport `json:"-"`
}

type testNotificationsCommand struct {
	svc broadcastService
}

func (c testNotificationsCommand) Execute(ctx context.Context, msg SendTestNotifications) error {
	report, err := c.svc.Demo(ctx)
	if err != nil {
		return err
	}
	if msg.Report != nil {
		*msg.Report = report
	}
	return nil
}

// ScheduledBroadcast is fired by the scheduler. The message is left blank so the
// broadcast uses the timestamped default.
type ScheduledBroadcast struct{}

type scheduledCommand struct {
	send sendCommand
}

func (c scheduledCommand) Execute(ctx context.Context, _ ScheduledBroadcast) error {
	return c.send.dispatch(ctx, BroadcastRequest{})
}

// BroadcastHandler consumes JobBroadcast jobs from the dispatcher pool.
func BroadcastHandler(svc broadcastService) queue.Handler {
	return func(ctx context.Context, job queue.Job) error {
		var req BroadcastRequest
		switch p := job.Payload.(type) {
		case BroadcastRequest:
			req = p
		case *BroadcastRequest:
			if p != nil {
				req = *p
			}
		default:
			return fmt.Errorf("%w: %T", ErrUnexpectedPayload, job.Payload)
		}
		_, err := svc.Broadcast(ctx, req.Title, req.Body)
		return err
	}
}
