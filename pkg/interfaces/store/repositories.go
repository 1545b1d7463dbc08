package store

import (
	"context"
	"errors"
	"time"

	"github.com/goliatone/go-webpush/pkg/domain"
	"github.com/google/uuid"
)

// ErrNotFound is returned when a record cannot be located.
var ErrNotFound = errors.New("store: not found")

// ListOptions capture pagination and filtering knobs common to repositories.
type ListOptions struct {
	Limit              int
	Offset             int
	Since              time.Time
	Until              time.Time
	IncludeSoftDeleted bool
}

// ListResult bundles records and totals.
type ListResult[T any] struct {
	Items []T
	Total int
}

// SubscriberRepository persists anonymous identities.
type SubscriberRepository interface {
	Create(ctx context.Context, record *domain.Subscriber) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Subscriber, error)
	ListByIDs(ctx context.Context, ids []uuid.UUID) ([]domain.Subscriber, error)
	List(ctx context.Context, opts ListOptions) (ListResult[domain.Subscriber], error)
	SoftDelete(ctx context.Context, id uuid.UUID) error
}

// PushSubscriptionRepository persists browser credentials, one per subscriber.
type PushSubscriptionRepository interface {
	Create(ctx context.Context, record *domain.PushSubscription) error
	Update(ctx context.Context, record *domain.PushSubscription) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.PushSubscription, error)
	GetBySubscriber(ctx context.Context, subscriberID uuid.UUID) (*domain.PushSubscription, error)
	GetByEndpoint(ctx context.Context, endpoint string) (*domain.PushSubscription, error)
	// ListComplete returns subscriptions whose endpoint and keys are all present.
	ListComplete(ctx context.Context) ([]domain.PushSubscription, error)
	List(ctx context.Context, opts ListOptions) (ListResult[domain.PushSubscription], error)
	Delete(ctx context.Context, id uuid.UUID) error
}
