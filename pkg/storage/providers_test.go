package storage

import (
	"context"
	"testing"

	"github.com/goliatone/go-webpush/internal/storage/memory"
	"github.com/goliatone/go-webpush/pkg/config"
	"github.com/goliatone/go-webpush/pkg/domain"
)

func TestOpenMemoryDriver(t *testing.T) {
	st, err := Open(context.Background(), config.PersistenceConfig{Driver: "memory"})
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer st.Close()
	if st.DB != nil {
		t.Fatalf("memory driver must not open a database")
	}
	if _, ok := st.Subscriptions.(*memory.PushSubscriptionRepository); !ok {
		t.Fatalf("expected memory subscriptions, got %T", st.Subscriptions)
	}
}

func TestOpenSQLiteCreatesSchema(t *testing.T) {
	ctx := context.Background()
	st, err := Open(ctx, config.PersistenceConfig{
		Driver:    "sqlite",
		DSN:       "file:providers_test?mode=memory&cache=shared",
		TableName: "custom_push_subscriptions",
	})
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer st.Close()

	subscriber := &domain.Subscriber{}
	if err := st.Subscribers.Create(ctx, subscriber); err != nil {
		t.Fatalf("create subscriber: %v", err)
	}
	sub := &domain.PushSubscription{SubscriberID: subscriber.ID, Endpoint: "https://push.example.com/x", P256dh: "p", Auth: "a"}
	if err := st.Subscriptions.Create(ctx, sub); err != nil {
		t.Fatalf("create subscription: %v", err)
	}

	var count int
	if err := st.DB.NewRaw("SELECT COUNT(*) FROM custom_push_subscriptions").Scan(ctx, &count); err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected 1 row in custom table, got %d", count)
	}
}

func TestOpenRejectsUnknownDriver(t *testing.T) {
	if _, err := Open(context.Background(), config.PersistenceConfig{Driver: "oracle"}); err == nil {
		t.Fatalf("expected unsupported driver error")
	}
}
