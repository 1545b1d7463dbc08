package subscriptions

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/goliatone/go-webpush/pkg/domain"
	"github.com/goliatone/go-webpush/pkg/interfaces/store"
	"github.com/goliatone/go-webpush/pkg/storage"
	"github.com/google/uuid"
)

func newService(t *testing.T) (*Service, storage.Providers) {
	t.Helper()
	providers := storage.NewMemoryProviders()
	svc, err := New(Dependencies{
		Subscribers:   providers.Subscribers,
		Subscriptions: providers.Subscriptions,
		Transaction:   providers.Transaction,
	})
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	return svc, providers
}

func validInput(endpoint string) SubscribeInput {
	return SubscribeInput{Endpoint: endpoint, Keys: Keys{P256dh: "BPubKey", Auth: "authSecret"}}
}

func TestNewRequiresRepositories(t *testing.T) {
	if _, err := New(Dependencies{}); !errors.Is(err, ErrSubscribersRequired) {
		t.Fatalf("expected ErrSubscribersRequired, got %v", err)
	}
}

func TestSubscribeCreatesSubscriberAndSubscription(t *testing.T) {
	svc, providers := newService(t)
	ctx := context.Background()

	id, err := svc.Subscribe(ctx, validInput("https://push.example.com/1"))
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	if _, err := providers.Subscribers.GetByID(ctx, id); err != nil {
		t.Fatalf("subscriber not stored: %v", err)
	}
	sub, err := providers.Subscriptions.GetBySubscriber(ctx, id)
	if err != nil {
		t.Fatalf("subscription not stored: %v", err)
	}
	if sub.Endpoint != "https://push.example.com/1" || sub.P256dh != "BPubKey" || sub.Auth != "authSecret" {
		t.Fatalf("unexpected subscription %+v", sub)
	}
}

func TestSubscribeRejectsInvalidInputWithoutWriting(t *testing.T) {
	svc, providers := newService(t)
	ctx := context.Background()

	_, err := svc.Subscribe(ctx, SubscribeInput{Endpoint: "https://push.example.com/1", Keys: Keys{P256dh: "k"}})
	if !domain.IsValidationError(err) {
		t.Fatalf("expected validation error, got %v", err)
	}
	subscribers, err := providers.Subscribers.List(ctx, store.ListOptions{})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if subscribers.Total != 0 {
		t.Fatalf("expected no subscriber to be created, got %d", subscribers.Total)
	}
}

func TestSaveSubscriptionUpsertsPerSubscriber(t *testing.T) {
	svc, providers := newService(t)
	ctx := context.Background()

	id, err := svc.CreateSubscriber(ctx)
	if err != nil {
		t.Fatalf("create subscriber: %v", err)
	}
	if err := svc.SaveSubscription(ctx, id, "https://push.example.com/a", "k1", "a1"); err != nil {
		t.Fatalf("first save: %v", err)
	}
	if err := svc.SaveSubscription(ctx, id, "https://push.example.com/b", "k2", "a2"); err != nil {
		t.Fatalf("second save: %v", err)
	}

	all, err := providers.Subscriptions.List(ctx, store.ListOptions{})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if all.Total != 1 {
		t.Fatalf("expected exactly one subscription per subscriber, got %d", all.Total)
	}
	if got := all.Items[0]; got.Endpoint != "https://push.example.com/b" || got.P256dh != "k2" || got.Auth != "a2" {
		t.Fatalf("expected latest credentials, got %+v", got)
	}
}

func TestSaveSubscriptionMovesEndpointBetweenSubscribers(t *testing.T) {
	svc, providers := newService(t)
	ctx := context.Background()

	first, err := svc.Subscribe(ctx, validInput("https://push.example.com/shared"))
	if err != nil {
		t.Fatalf("subscribe first: %v", err)
	}
	second, err := svc.Subscribe(ctx, validInput("https://push.example.com/shared"))
	if err != nil {
		t.Fatalf("subscribe second: %v", err)
	}

	if _, err := providers.Subscriptions.GetBySubscriber(ctx, first); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected first subscriber to lose the endpoint, got %v", err)
	}
	owner, err := providers.Subscriptions.GetByEndpoint(ctx, "https://push.example.com/shared")
	if err != nil {
		t.Fatalf("get by endpoint: %v", err)
	}
	if owner.SubscriberID != second {
		t.Fatalf("expected endpoint to belong to the newest subscriber")
	}
}

func TestSaveSubscriptionRequiresKnownSubscriber(t *testing.T) {
	svc, _ := newService(t)
	err := svc.SaveSubscription(context.Background(), uuid.New(), "https://push.example.com/a", "k", "a")
	var verr *domain.ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if _, ok := verr.Fields["subscriber_id"]; !ok {
		t.Fatalf("expected subscriber_id failure, got %v", verr.Fields)
	}
}

func TestListSubscribersWithSubscription(t *testing.T) {
	svc, providers := newService(t)
	ctx := context.Background()

	if recipients, err := svc.ListSubscribersWithSubscription(ctx); err != nil || len(recipients) != 0 {
		t.Fatalf("expected empty recipients, got %v %v", recipients, err)
	}

	withSub, err := svc.Subscribe(ctx, validInput("https://push.example.com/1"))
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	if _, err := svc.CreateSubscriber(ctx); err != nil {
		t.Fatalf("create bare subscriber: %v", err)
	}
	orphan := uuid.New()
	if err := providers.Subscriptions.Create(ctx, &domain.PushSubscription{SubscriberID: orphan, Endpoint: "https://push.example.com/2", P256dh: "k", Auth: "a"}); err != nil {
		t.Fatalf("create orphan subscription: %v", err)
	}

	recipients, err := svc.ListSubscribersWithSubscription(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(recipients) != 1 {
		t.Fatalf("expected one recipient, got %d", len(recipients))
	}
	if recipients[0].Subscriber.ID != withSub || recipients[0].Subscription.Endpoint != "https://push.example.com/1" {
		t.Fatalf("unexpected recipient %+v", recipients[0])
	}
}

func TestRemoveIgnoresMissing(t *testing.T) {
	svc, providers := newService(t)
	ctx := context.Background()

	id, err := svc.Subscribe(ctx, validInput("https://push.example.com/1"))
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	sub, err := providers.Subscriptions.GetBySubscriber(ctx, id)
	if err != nil {
		t.Fatalf("lookup: %v", err)
	}
	if err := svc.Remove(ctx, sub.ID); err != nil {
		t.Fatalf("remove: %v", err)
	}
	if err := svc.Remove(ctx, sub.ID); err != nil {
		t.Fatalf("second remove must be a no-op, got %v", err)
	}
}

func TestConcurrentSubscribesOnSameEndpointKeepOneSubscription(t *testing.T) {
	svc, providers := newService(t)
	ctx := context.Background()

	const clients = 8
	var wg sync.WaitGroup
	errs := make(chan error, clients)
	for i := 0; i < clients; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := svc.Subscribe(ctx, validInput("https://push.example.com/shared")); err != nil {
				errs <- err
			}
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Fatalf("concurrent subscribe failed: %v", err)
	}

	subs, err := providers.Subscriptions.List(ctx, store.ListOptions{})
	if err != nil {
		t.Fatalf("list subscriptions: %v", err)
	}
	if subs.Total != 1 {
		t.Fatalf("expected a single subscription for the shared endpoint, got %d", subs.Total)
	}
	subscribers, err := providers.Subscribers.List(ctx, store.ListOptions{})
	if err != nil {
		t.Fatalf("list subscribers: %v", err)
	}
	if subscribers.Total != clients {
		t.Fatalf("expected %d subscribers, got %d", clients, subscribers.Total)
	}
}
