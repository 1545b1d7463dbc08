package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/goliatone/go-webpush/pkg/domain"
	"github.com/goliatone/go-webpush/pkg/interfaces/store"
	"github.com/google/uuid"
)

// PushSubscriptionRepository keeps subscriptions in maps indexed by id,
// subscriber and endpoint. Both secondary indexes are unique.
type PushSubscriptionRepository struct {
	mu           sync.RWMutex
	records      map[uuid.UUID]domain.PushSubscription
	bySubscriber map[uuid.UUID]uuid.UUID
	byEndpoint   map[string]uuid.UUID
}

var _ store.PushSubscriptionRepository = (*PushSubscriptionRepository)(nil)

func NewPushSubscriptionRepository() *PushSubscriptionRepository {
	return &PushSubscriptionRepository{
		records:      make(map[uuid.UUID]domain.PushSubscription),
		bySubscriber: make(map[uuid.UUID]uuid.UUID),
		byEndpoint:   make(map[string]uuid.UUID),
	}
}

func (r *PushSubscriptionRepository) Create(ctx context.Context, sub *domain.PushSubscription) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.bySubscriber[sub.SubscriberID]; ok {
		return &uniqueViolation{column: "subscriber_id"}
	}
	if _, ok := r.byEndpoint[sub.Endpoint]; ok {
		return &uniqueViolation{column: "endpoint"}
	}
	sub.EnsureID()
	now := time.Now().UTC()
	if sub.CreatedAt.IsZero() {
		sub.CreatedAt = now
	}
	sub.UpdatedAt = now
	if sub.ContentEncoding == "" {
		sub.ContentEncoding = domain.DefaultContentEncoding
	}
	r.index(*sub)

	id := sub.ID
	recordUndo(ctx, func() {
		r.mu.Lock()
		defer r.mu.Unlock()
		if current, ok := r.records[id]; ok {
			r.unindex(current)
		}
	})
	return nil
}

func (r *PushSubscriptionRepository) Update(ctx context.Context, sub *domain.PushSubscription) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	existing, ok := r.records[sub.ID]
	if !ok {
		return store.ErrNotFound
	}
	if id, ok := r.bySubscriber[sub.SubscriberID]; ok && id != sub.ID {
		return &uniqueViolation{column: "subscriber_id"}
	}
	if id, ok := r.byEndpoint[sub.Endpoint]; ok && id != sub.ID {
		return &uniqueViolation{column: "endpoint"}
	}
	r.unindex(existing)
	sub.UpdatedAt = time.Now().UTC()
	r.index(*sub)

	recordUndo(ctx, func() {
		r.mu.Lock()
		defer r.mu.Unlock()
		if current, ok := r.records[existing.ID]; ok {
			r.unindex(current)
		}
		r.index(existing)
	})
	return nil
}

func (r *PushSubscriptionRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.PushSubscription, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.lookup(id)
}

func (r *PushSubscriptionRepository) GetBySubscriber(ctx context.Context, subscriberID uuid.UUID) (*domain.PushSubscription, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	id, ok := r.bySubscriber[subscriberID]
	if !ok {
		return nil, store.ErrNotFound
	}
	return r.lookup(id)
}

func (r *PushSubscriptionRepository) GetByEndpoint(ctx context.Context, endpoint string) (*domain.PushSubscription, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	id, ok := r.byEndpoint[endpoint]
	if !ok {
		return nil, store.ErrNotFound
	}
	return r.lookup(id)
}

func (r *PushSubscriptionRepository) ListComplete(ctx context.Context) ([]domain.PushSubscription, error) {
	result, err := r.List(ctx, store.ListOptions{})
	if err != nil {
		return nil, err
	}
	out := make([]domain.PushSubscription, 0, len(result.Items))
	for _, sub := range result.Items {
		if sub.Complete() {
			out = append(out, sub)
		}
	}
	return out, nil
}

func (r *PushSubscriptionRepository) List(ctx context.Context, opts store.ListOptions) (store.ListResult[domain.PushSubscription], error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	items := make([]domain.PushSubscription, 0, len(r.records))
	for _, sub := range r.records {
		if !opts.Since.IsZero() && sub.CreatedAt.Before(opts.Since) {
			continue
		}
		if !opts.Until.IsZero() && sub.CreatedAt.After(opts.Until) {
			continue
		}
		items = append(items, sub)
	}
	sort.Slice(items, func(i, j int) bool {
		return items[i].CreatedAt.Before(items[j].CreatedAt)
	})
	return paginate(items, opts), nil
}

func (r *PushSubscriptionRepository) Delete(ctx context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	existing, ok := r.records[id]
	if !ok {
		return store.ErrNotFound
	}
	r.unindex(existing)

	recordUndo(ctx, func() {
		r.mu.Lock()
		r.index(existing)
		r.mu.Unlock()
	})
	return nil
}

func (r *PushSubscriptionRepository) lookup(id uuid.UUID) (*domain.PushSubscription, error) {
	sub, ok := r.records[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	copy := sub
	return &copy, nil
}

func (r *PushSubscriptionRepository) index(sub domain.PushSubscription) {
	r.records[sub.ID] = sub
	r.bySubscriber[sub.SubscriberID] = sub.ID
	r.byEndpoint[sub.Endpoint] = sub.ID
}

func (r *PushSubscriptionRepository) unindex(sub domain.PushSubscription) {
	delete(r.records, sub.ID)
	delete(r.bySubscriber, sub.SubscriberID)
	delete(r.byEndpoint, sub.Endpoint)
}

type uniqueViolation struct {
	column string
}

func (e *uniqueViolation) Error() string {
	return "memory: unique constraint failed: push_subscriptions." + e.column
}
