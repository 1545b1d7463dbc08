package bunrepo

import (
	"context"

	"github.com/goliatone/go-webpush/pkg/domain"
	"github.com/goliatone/go-webpush/pkg/interfaces/store"
	repository "github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

type SubscriberRepository struct {
	base baseRepository[domain.Subscriber]
}

var _ store.SubscriberRepository = (*SubscriberRepository)(nil)

func NewSubscriberRepository(db *bun.DB) *SubscriberRepository {
	handlers := repository.ModelHandlers[*domain.Subscriber]{
		NewRecord:          func() *domain.Subscriber { return &domain.Subscriber{} },
		GetID:              func(s *domain.Subscriber) uuid.UUID { return s.ID },
		SetID:              func(s *domain.Subscriber, id uuid.UUID) { s.ID = id },
		GetIdentifier:      func() string { return "id" },
		GetIdentifierValue: func(s *domain.Subscriber) string { return s.ID.String() },
	}
	return &SubscriberRepository{
		base: newBaseRepository[domain.Subscriber](db, handlers, func(s *domain.Subscriber) *domain.RecordMeta { return &s.RecordMeta }),
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
	result, err := r.base.list(ctx, withIDs(ids), withoutDeleted())
	if err != nil {
		return nil, err
	}
	return result.Items, nil
}

func (r *SubscriberRepository) List(ctx context.Context, opts store.ListOptions) (store.ListResult[domain.Subscriber], error) {
	return r.base.list(ctx, withListOptions(opts))
}

func (r *SubscriberRepository) SoftDelete(ctx context.Context, id uuid.UUID) error {
	return r.base.softDelete(ctx, id)
}
