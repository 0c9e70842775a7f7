package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/boddenberg/banca-bfa-go/internal/config"
	"github.com/boddenberg/banca-bfa-go/internal/domain"
	"github.com/boddenberg/banca-bfa-go/internal/infra/cache"
	"github.com/boddenberg/banca-bfa-go/internal/infra/observability"
	"github.com/boddenberg/banca-bfa-go/internal/infra/resilience"
	"github.com/boddenberg/banca-bfa-go/internal/infra/sqlstore"
	"github.com/boddenberg/banca-bfa-go/internal/infra/supabase"
	"github.com/boddenberg/banca-bfa-go/internal/port"
	"github.com/boddenberg/banca-bfa-go/internal/service"

	"go.uber.org/zap"
)

// store is what both backends provide.
type store interface {
	port.LedgerStore
	Ping(ctx context.Context) error
}

// app holds the wired services shared by serve and resumo.
type app struct {
	cfg       *config.Config
	logger    *zap.Logger
	metrics   *observability.Metrics
	cal       domain.Calendar
	store     store
	storeName string
	account   *domain.Account

	ledger    *service.LedgerService
	accounts  *service.AccountService
	dashboard *service.DashboardService

	closers []func() error
}

func newApp(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*app, error) {
	loc, err := cfg.Location()
	if err != nil {
		return nil, err
	}
	a := &app{
		cfg:     cfg,
		logger:  logger,
		metrics: observability.NewMetrics(),
		cal:     domain.NewCalendar(loc),
	}

	if err := a.openStore(ctx); err != nil {
		a.Close()
		return nil, err
	}
	accountCache, err := a.openCache(ctx)
	if err != nil {
		a.Close()
		return nil, err
	}

	a.accounts = service.NewAccountService(a.store, accountCache, a.metrics, logger)
	a.ledger = service.NewLedgerService(a.store, a.cal, a.metrics, logger)
	a.dashboard = service.NewDashboardService(a.store, a.accounts, a.cal, a.metrics, logger)
	if _, ok := a.store.(*supabase.Client); ok && loc.String() != supabase.ViewZone {
		a.dashboard.WithoutViews()
		logger.Warn("supabase views bucket in another zone, aggregating raw rows",
			zap.String("timezone", loc.String()),
			zap.String("view_zone", supabase.ViewZone),
		)
	}

	if a.account, err = a.resolveAccount(ctx); err != nil {
		a.Close()
		return nil, err
	}
	return a, nil
}

func (a *app) openStore(ctx context.Context) error {
	switch a.cfg.StoreBackend {
	case config.StoreSQL:
		db, cleanup, err := sqlstore.Open(ctx, a.cfg.DatabaseURL)
		if err != nil {
			return fmt.Errorf("database open: %w", err)
		}
		a.closers = append(a.closers, cleanup)
		a.store = sqlstore.New(db)
		a.storeName = "sql"
		a.logger.Info("using sql store")
	default:
		guard := resilience.NewGuard("supabase", a.cfg.MaxConcurrency)
		a.store = supabase.NewClient(
			&http.Client{Timeout: a.cfg.HTTPTimeout},
			a.cfg.SupabaseURL,
			a.cfg.SupabaseAnonKey,
			a.cfg.SupabaseServiceKey,
			guard,
			resilience.Config{
				MaxRetries:     a.cfg.MaxRetries,
				InitialBackoff: a.cfg.InitialBackoff,
				MaxConcurrency: a.cfg.MaxConcurrency,
			},
			a.cal,
			a.logger,
		)
		a.storeName = "supabase"
		a.logger.Info("using Supabase store", zap.String("supabase_url", a.cfg.SupabaseURL))
	}
	return nil
}

func (a *app) openCache(ctx context.Context) (port.Cache[*domain.Account], error) {
	switch a.cfg.CacheBackend {
	case config.CacheNone:
		return nil, nil
	case config.CacheRedis:
		client, err := cache.Dial(ctx, a.cfg.RedisAddr, a.cfg.RedisPassword, a.cfg.RedisDB)
		if err != nil {
			return nil, fmt.Errorf("redis: %w", err)
		}
		a.closers = append(a.closers, client.Close)
		a.logger.Info("using redis account cache", zap.String("redis_addr", a.cfg.RedisAddr))
		return cache.NewRedis[*domain.Account](client, "banca:", a.cfg.CacheTTL, a.logger), nil
	default:
		mem := cache.New[*domain.Account](a.cfg.CacheTTL)
		a.closers = append(a.closers, func() error { mem.Close(); return nil })
		return mem, nil
	}
}

// resolveAccount picks the configured banca, or the earliest one. An empty
// sql database gets a fresh banca with zero opening balance.
func (a *app) resolveAccount(ctx context.Context) (*domain.Account, error) {
	acct, err := a.accounts.ResolveActive(ctx, a.cfg.AccountID)
	var notFound *domain.ErrNotFound
	if err == nil || a.cfg.AccountID != "" || !errors.As(err, &notFound) {
		return acct, err
	}
	sql, ok := a.store.(*sqlstore.Store)
	if !ok {
		return nil, fmt.Errorf("no banca found in %s store: %w", a.storeName, err)
	}
	acct, err = sql.CreateAccount(ctx, 0)
	if err != nil {
		return nil, err
	}
	a.logger.Info("created banca", zap.String("account_id", acct.ID))
	return acct, nil
}

// Close releases the store and cache in reverse order.
func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			a.logger.Warn("close failed", zap.Error(err))
		}
	}
	a.closers = nil
}
