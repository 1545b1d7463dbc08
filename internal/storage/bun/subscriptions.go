package bunrepo

import (
	"context"
	"strings"
	"time"

	"github.com/goliatone/go-webpush/pkg/domain"
	"github.com/goliatone/go-webpush/pkg/interfaces/store"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// PushSubscriptionRepository stores subscriptions in a configurable table.
type PushSubscriptionRepository struct {
	db    *bun.DB
	table string
}

var _ store.PushSubscriptionRepository = (*PushSubscriptionRepository)(nil)

type SubscriptionOption func(*PushSubscriptionRepository)

// WithTable overrides the push subscription table name.
func WithTable(name string) SubscriptionOption {
	return func(r *PushSubscriptionRepository) {
		if name = strings.TrimSpace(name); name != "" {
			r.table = name
		}
	}
}

func NewPushSubscriptionRepository(db *bun.DB, opts ...SubscriptionOption) *PushSubscriptionRepository {
	repo := &PushSubscriptionRepository{db: db, table: domain.DefaultSubscriptionTable}
	for _, opt := range opts {
		if opt != nil {
			opt(repo)
		}
	}
	return repo
}

// Table returns the effective table name.
func (r *PushSubscriptionRepository) Table() string { return r.table }

// CreateTable creates the subscription table when missing.
func (r *PushSubscriptionRepository) CreateTable(ctx context.Context) error {
	_, err := r.db.NewCreateTable().
		Model((*domain.PushSubscription)(nil)).
		ModelTableExpr("?", bun.Ident(r.table)).
		IfNotExists().
		Exec(ctx)
	return err
}

func (r *PushSubscriptionRepository) tableExpr() (string, bun.Ident) {
	return "? AS ps", bun.Ident(r.table)
}

func (r *PushSubscriptionRepository) Create(ctx context.Context, sub *domain.PushSubscription) error {
	sub.EnsureID()
	now := time.Now().UTC()
	if sub.CreatedAt.IsZero() {
		sub.CreatedAt = now
	}
	sub.UpdatedAt = now
	if sub.ContentEncoding == "" {
		sub.ContentEncoding = domain.DefaultContentEncoding
	}
	expr, table := r.tableExpr()
	_, err := conn(ctx, r.db).NewInsert().
		Model(sub).
		ModelTableExpr(expr, table).
		Exec(ctx)
	return mapError(err)
}

func (r *PushSubscriptionRepository) Update(ctx context.Context, sub *domain.PushSubscription) error {
	if sub.ID == uuid.Nil {
		return store.ErrNotFound
	}
	sub.UpdatedAt = time.Now().UTC()
	expr, table := r.tableExpr()
	res, err := conn(ctx, r.db).NewUpdate().
		Model(sub).
		ModelTableExpr(expr, table).
		Column("subscriber_id", "endpoint", "p256dh", "auth", "content_encoding", "updated_at").
		WherePK().
		Exec(ctx)
	if err != nil {
		return mapError(err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (r *PushSubscriptionRepository) getOne(ctx context.Context, column string, value any) (*domain.PushSubscription, error) {
	sub := new(domain.PushSubscription)
	expr, table := r.tableExpr()
	err := conn(ctx, r.db).NewSelect().
		Model(sub).
		ModelTableExpr(expr, table).
		Where("ps."+column+" = ?", value).
		Limit(1).
		Scan(ctx)
	if err != nil {
		return nil, mapError(err)
	}
	return sub, nil
}

func (r *PushSubscriptionRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.PushSubscription, error) {
	return r.getOne(ctx, "id", id)
}

func (r *PushSubscriptionRepository) GetBySubscriber(ctx context.Context, subscriberID uuid.UUID) (*domain.PushSubscription, error) {
	return r.getOne(ctx, "subscriber_id", subscriberID)
}

func (r *PushSubscriptionRepository) GetByEndpoint(ctx context.Context, endpoint string) (*domain.PushSubscription, error) {
	return r.getOne(ctx, "endpoint", endpoint)
}

func (r *PushSubscriptionRepository) ListComplete(ctx context.Context) ([]domain.PushSubscription, error) {
	var subs []domain.PushSubscription
	expr, table := r.tableExpr()
	err := conn(ctx, r.db).NewSelect().
		Model(&subs).
		ModelTableExpr(expr, table).
		Where("TRIM(ps.endpoint) <> ''").
		Where("TRIM(ps.p256dh) <> ''").
		Where("TRIM(ps.auth) <> ''").
		Order("ps.created_at ASC").
		Scan(ctx)
	if err != nil {
		return nil, mapError(err)
	}
	return subs, nil
}

func (r *PushSubscriptionRepository) List(ctx context.Context, opts store.ListOptions) (store.ListResult[domain.PushSubscription], error) {
	var subs []domain.PushSubscription
	expr, table := r.tableExpr()
	q := conn(ctx, r.db).NewSelect().
		Model(&subs).
		ModelTableExpr(expr, table)
	if !opts.Since.IsZero() {
		q = q.Where("ps.created_at >= ?", opts.Since)
	}
	if !opts.Until.IsZero() {
		q = q.Where("ps.created_at <= ?", opts.Until)
	}
	if opts.Limit > 0 {
		q = q.Limit(opts.Limit)
	}
	if opts.Offset > 0 {
		q = q.Offset(opts.Offset)
	}
	total, err := q.Order("ps.created_at ASC").ScanAndCount(ctx)
	if err != nil {
		return store.ListResult[domain.PushSubscription]{}, mapError(err)
	}
	return store.ListResult[domain.PushSubscription]{Items: subs, Total: total}, nil
}

func (r *PushSubscriptionRepository) Delete(ctx context.Context, id uuid.UUID) error {
	res, err := conn(ctx, r.db).NewDelete().
		TableExpr("?", bun.Ident(r.table)).
		Where("id = ?", id).
		Exec(ctx)
	if err != nil {
		return mapError(err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return store.ErrNotFound
	}
	return nil
}
