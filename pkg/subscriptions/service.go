package subscriptions

import (
	"context"
	"errors"
	"strings"

	"github.com/goliatone/go-webpush/pkg/domain"
	"github.com/goliatone/go-webpush/pkg/interfaces/logger"
	"github.com/goliatone/go-webpush/pkg/interfaces/store"
	"github.com/google/uuid"
)

// Keys mirrors the browser PushSubscription.toJSON().keys object.
type Keys struct {
	P256dh string `json:"p256dh" form:"p256dh"`
	Auth   string `json:"auth" form:"auth"`
}

// SubscribeInput is the payload posted by the browser after PushManager.subscribe.
type SubscribeInput struct {
	Endpoint string `json:"endpoint" form:"endpoint"`
	Keys     Keys   `json:"keys" form:"keys"`
}

// Dependencies wires repositories and logging into the service.
type Dependencies struct {
	Subscribers   store.SubscriberRepository
	Subscriptions store.PushSubscriptionRepository
	Transaction   store.TransactionManager
	Logger        logger.Logger
}

// Service owns every persisted subscriber and subscription record.
type Service struct {
	subscribers   store.SubscriberRepository
	subscriptions store.PushSubscriptionRepository
	tx            store.TransactionManager
	log           logger.Logger
}

var (
	ErrSubscribersRequired   = errors.New("subscriptions: subscriber repository is required")
	ErrSubscriptionsRequired = errors.New("subscriptions: subscription repository is required")
)

// New constructs the subscription store service.
func New(deps Dependencies) (*Service, error) {
	if deps.Subscribers == nil {
		return nil, ErrSubscribersRequired
	}
	if deps.Subscriptions == nil {
		return nil, ErrSubscriptionsRequired
	}
	if deps.Transaction == nil {
		deps.Transaction = &store.NopTransactionManager{}
	}
	if deps.Logger == nil {
		deps.Logger = &logger.Nop{}
	}
	return &Service{
		subscribers:   deps.Subscribers,
		subscriptions: deps.Subscriptions,
		tx:            deps.Transaction,
		log:           deps.Logger,
	}, nil
}

// CreateSubscriber allocates and persists a new anonymous identity.
func (s *Service) CreateSubscriber(ctx context.Context) (uuid.UUID, error) {
	subscriber := &domain.Subscriber{}
	if err := s.subscribers.Create(ctx, subscriber); err != nil {
		return uuid.Nil, domain.NewStorageError("create subscriber", err)
	}
	return subscriber.ID, nil
}

// SaveSubscription validates the credential triple and upserts it for the subscriber.
// An endpoint already registered to another subscriber moves to this one.
func (s *Service) SaveSubscription(ctx context.Context, subscriberID uuid.UUID, endpoint, p256dh, auth string) error {
	candidate := domain.PushSubscription{
		SubscriberID: subscriberID,
		Endpoint:     strings.TrimSpace(endpoint),
		P256dh:       strings.TrimSpace(p256dh),
		Auth:         strings.TrimSpace(auth),
	}
	if err := candidate.Validate(); err != nil {
		return err
	}
	if subscriberID == uuid.Nil {
		return domain.NewValidationError("subscriber_id", "subscriber is required")
	}

	return s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		if _, err := s.subscribers.GetByID(ctx, subscriberID); err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return domain.NewValidationError("subscriber_id", "subscriber does not exist")
			}
			return domain.NewStorageError("load subscriber", err)
		}
		return s.upsert(ctx, candidate)
	})
}

func (s *Service) upsert(ctx context.Context, candidate domain.PushSubscription) error {
	current, err := s.subscriptions.GetBySubscriber(ctx, candidate.SubscriberID)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		return domain.NewStorageError("load subscription", err)
	}

	owner, err := s.subscriptions.GetByEndpoint(ctx, candidate.Endpoint)
	switch {
	case errors.Is(err, store.ErrNotFound):
	case err != nil:
		return domain.NewStorageError("load subscription by endpoint", err)
	case current == nil || owner.ID != current.ID:
		if err := s.subscriptions.Delete(ctx, owner.ID); err != nil {
			return domain.NewStorageError("release endpoint", err)
		}
		s.log.Debug("subscription endpoint moved",
			logger.F("from_subscriber", owner.SubscriberID.String()),
			logger.F("to_subscriber", candidate.SubscriberID.String()),
		)
	}

	if current == nil {
		if err := s.subscriptions.Create(ctx, &candidate); err != nil {
			return domain.NewStorageError("create subscription", err)
		}
		return nil
	}

	current.Endpoint = candidate.Endpoint
	current.P256dh = candidate.P256dh
	current.Auth = candidate.Auth
	if err := s.subscriptions.Update(ctx, current); err != nil {
		return domain.NewStorageError("update subscription", err)
	}
	return nil
}

// Subscribe creates a fresh subscriber and stores its subscription atomically.
// Input is validated before anything is written.
func (s *Service) Subscribe(ctx context.Context, input SubscribeInput) (uuid.UUID, error) {
	candidate := domain.PushSubscription{
		Endpoint: strings.TrimSpace(input.Endpoint),
		P256dh:   strings.TrimSpace(input.Keys.P256dh),
		Auth:     strings.TrimSpace(input.Keys.Auth),
	}
	if err := candidate.Validate(); err != nil {
		return uuid.Nil, err
	}

	var subscriberID uuid.UUID
	err := s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		id, err := s.CreateSubscriber(ctx)
		if err != nil {
			return err
		}
		candidate.SubscriberID = id
		if err := s.upsert(ctx, candidate); err != nil {
			return err
		}
		subscriberID = id
		return nil
	})
	if err != nil {
		return uuid.Nil, domain.NewStorageError("subscribe", err)
	}
	s.log.Info("push subscription stored", logger.F("subscriber_id", subscriberID.String()))
	return subscriberID, nil
}

// ListSubscribersWithSubscription returns every subscriber holding a complete subscription.
func (s *Service) ListSubscribersWithSubscription(ctx context.Context) ([]domain.Recipient, error) {
	subs, err := s.subscriptions.ListComplete(ctx)
	if err != nil {
		return nil, domain.NewStorageError("list subscriptions", err)
	}
	if len(subs) == 0 {
		return nil, nil
	}

	ids := make([]uuid.UUID, 0, len(subs))
	for _, sub := range subs {
		ids = append(ids, sub.SubscriberID)
	}
	subscribers, err := s.subscribers.ListByIDs(ctx, ids)
	if err != nil {
		return nil, domain.NewStorageError("list subscribers", err)
	}
	byID := make(map[uuid.UUID]domain.Subscriber, len(subscribers))
	for _, subscriber := range subscribers {
		byID[subscriber.ID] = subscriber
	}

	recipients := make([]domain.Recipient, 0, len(subs))
	for _, sub := range subs {
		subscriber, ok := byID[sub.SubscriberID]
		if !ok || !sub.Complete() {
			continue
		}
		recipients = append(recipients, domain.Recipient{Subscriber: subscriber, Subscription: sub})
	}
	return recipients, nil
}

// Remove deletes a subscription. Missing records are not an error.
func (s *Service) Remove(ctx context.Context, subscriptionID uuid.UUID) error {
	if err := s.subscriptions.Delete(ctx, subscriptionID); err != nil && !errors.Is(err, store.ErrNotFound) {
		return domain.NewStorageError("delete subscription", err)
	}
	return nil
}
