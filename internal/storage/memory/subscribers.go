package memory

import (
	"context"

	"github.com/goliatone/go-webpush/pkg/domain"
	"github.com/goliatone/go-webpush/pkg/interfaces/store"
	"github.com/google/uuid"
)

type SubscriberRepository struct {
	base baseMemoryRepo[domain.Subscriber]
}

var _ store.SubscriberRepository = (*SubscriberRepository)(nil)

func NewSubscriberRepository() *SubscriberRepository {
	return &SubscriberRepository{
		base: newBaseMemoryRepo("subscriber", func(s *domain.Subscriber) *domain.RecordMeta { return &s.RecordMeta }),
	}
}

func (r *SubscriberRepository) Create(ctx context.Context, s *domain.Subscriber) error {
	return r.base.create(ctx, s)
}

func (r *SubscriberRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Subscriber, error) {
	return r.base.getByID(ctx, id, false)
}

func (r *SubscriberRepository) ListByIDs(ctx context.Context, ids []uuid.UUID) ([]domain.Subscriber, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	wanted := make(map[uuid.UUID]struct{}, len(ids))
	for _, id := range ids {
		wanted[id] = struct{}{}
	}
	result, err := r.base.list(ctx, store.ListOptions{}, func(s *domain.Subscriber) bool {
		_, ok := wanted[s.ID]
		return ok
	})
	if err != nil {
		return nil, err
	}
	return result.Items, nil
}

func (r *SubscriberRepository) List(ctx context.Context, opts store.ListOptions) (store.ListResult[domain.Subscriber], error) {
	return r.base.list(ctx, opts, nil)
}

func (r *SubscriberRepository) SoftDelete(ctx context.Context, id uuid.UUID) error {
	return r.base.softDelete(ctx, id)
}
