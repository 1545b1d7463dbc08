package storage

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	bunrepo "github.com/goliatone/go-webpush/internal/storage/bun"
	"github.com/goliatone/go-webpush/internal/storage/memory"
	"github.com/goliatone/go-webpush/pkg/config"
	"github.com/goliatone/go-webpush/pkg/domain"
	"github.com/goliatone/go-webpush/pkg/interfaces/store"
	persistence "github.com/goliatone/go-persistence-bun"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"
)

// Providers exposes the repositories needed by services.
type Providers struct {
	Subscribers   store.SubscriberRepository
	Subscriptions store.PushSubscriptionRepository
	Transaction   store.TransactionManager
}

type Option func(*Providers)

// WithTransactionManager overrides the transaction manager.
func WithTransactionManager(tx store.TransactionManager) Option {
	return func(p *Providers) {
		if tx != nil {
			p.Transaction = tx
		}
	}
}

// NewMemoryProviders returns repositories backed by in-memory maps.
func NewMemoryProviders(opts ...Option) Providers {
	providers := Providers{
		Subscribers:   memory.NewSubscriberRepository(),
		Subscriptions: memory.NewPushSubscriptionRepository(),
		Transaction:   memory.NewTxManager(),
	}
	for _, opt := range opts {
		opt(&providers)
	}
	return providers
}

// NewBunProviders wires Bun-backed repositories. The caller owns the *bun.DB.
func NewBunProviders(db *bun.DB, table string, opts ...Option) Providers {
	if db == nil {
		panic("storage: bun DB is required")
	}

	// Register models so go-persistence-bun migrations can pick them up.
	persistence.RegisterModel(
		(*domain.Subscriber)(nil),
		(*domain.PushSubscription)(nil),
	)

	providers := Providers{
		Subscribers:   bunrepo.NewSubscriberRepository(db),
		Subscriptions: bunrepo.NewPushSubscriptionRepository(db, bunrepo.WithTable(table)),
		Transaction:   bunrepo.NewTxManager(db),
	}

	for _, opt := range opts {
		opt(&providers)
	}
	return providers
}

// Store bundles providers with the handle that must be closed on shutdown.
type Store struct {
	Providers
	DB *bun.DB
}

// Close releases the underlying database, if any.
func (s *Store) Close() error {
	if s == nil || s.DB == nil {
		return nil
	}
	return s.DB.Close()
}

// Open builds providers from persistence settings. The "memory" driver skips SQL entirely.
func Open(ctx context.Context, cfg config.PersistenceConfig) (*Store, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Driver)) {
	case "memory":
		return &Store{Providers: NewMemoryProviders()}, nil
	case "", "sqlite":
	default:
		return nil, fmt.Errorf("storage: unsupported driver %s", cfg.Driver)
	}

	dsn := strings.TrimSpace(cfg.DSN)
	if dsn == "" {
		dsn = config.Defaults().Persistence.DSN
	}
	if err := ensureSQLiteDir(dsn); err != nil {
		return nil, fmt.Errorf("storage: prepare sqlite dir: %w", err)
	}

	sqldb, err := sql.Open(sqliteshim.DriverName(), dsn)
	if err != nil {
		return nil, fmt.Errorf("storage: open sqlite: %w", err)
	}
	sqldb.SetMaxOpenConns(1)
	db := bun.NewDB(sqldb, sqlitedialect.New())

	if err := EnsureSchema(ctx, db, cfg.TableName); err != nil {
		db.Close()
		return nil, err
	}
	return &Store{Providers: NewBunProviders(db, cfg.TableName), DB: db}, nil
}

// EnsureSchema creates the subscriber and subscription tables when missing.
func EnsureSchema(ctx context.Context, db *bun.DB, table string) error {
	if _, err := db.NewCreateTable().Model((*domain.Subscriber)(nil)).IfNotExists().Exec(ctx); err != nil {
		return fmt.Errorf("storage: create table for %T: %w", (*domain.Subscriber)(nil), err)
	}
	subs := bunrepo.NewPushSubscriptionRepository(db, bunrepo.WithTable(table))
	if err := subs.CreateTable(ctx); err != nil {
		return fmt.Errorf("storage: create table %s: %w", subs.Table(), err)
	}
	return nil
}

func ensureSQLiteDir(dsn string) error {
	if !strings.HasPrefix(dsn, "file:") {
		return nil
	}
	path := strings.TrimPrefix(dsn, "file:")
	if idx := strings.Index(path, "?"); idx >= 0 {
		path = path[:idx]
	}
	if path == "" || path == ":memory:" {
		return nil
	}
	dir := filepath.Dir(path)
	if dir == "" || dir == "." {
		return nil
	}
	return os.MkdirAll(dir, 0o755)
}
