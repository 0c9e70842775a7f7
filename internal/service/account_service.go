package service

import (
	"context"
	"time"

	"github.com/boddenberg/banca-bfa-go/internal/domain"
	"github.com/boddenberg/banca-bfa-go/internal/infra/observability"
	"github.com/boddenberg/banca-bfa-go/internal/port"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

var accountTracer = otel.Tracer("service/account")

const accountCacheName = "account"

// AccountService reads the banca and derives its balance.
type AccountService struct {
	store   port.AccountStore
	cache   port.Cache[*domain.Account] // optional
	metrics *observability.Metrics
	logger  *zap.Logger
}

// NewAccountService creates a new account service. cache may be nil.
func NewAccountService(store port.AccountStore, cache port.Cache[*domain.Account], metrics *observability.Metrics, logger *zap.Logger) *AccountService {
	return &AccountService{store: store, cache: cache, metrics: metrics, logger: logger}
}

func accountKey(id string) string { return "account:" + id }

// GetAccount returns the account, served from cache when possible.
func (s *AccountService) GetAccount(ctx context.Context, accountID string) (_ *domain.Account, err error) {
	ctx, span := accountTracer.Start(ctx, "AccountService.GetAccount")
	defer span.End()
	span.SetAttributes(attribute.String("account.id", accountID))

	if s.cache != nil {
		if acct, ok := s.cache.Get(accountKey(accountID)); ok {
			s.metrics.IncrCacheHit(accountCacheName)
			return acct, nil
		}
		s.metrics.IncrCacheMiss(accountCacheName)
	}

	defer observe(s.metrics, "get_account", time.Now(), &err)
	acct, err := s.store.GetAccount(ctx, accountID)
	if err != nil {
		return nil, err
	}
	if s.cache != nil {
		s.cache.Set(accountKey(accountID), acct)
	}
	return acct, nil
}

// ResolveActive returns the configured account, or the earliest-created one
// when accountID is empty. It is meant to run once at startup.
func (s *AccountService) ResolveActive(ctx context.Context, accountID string) (*domain.Account, error) {
	ctx, span := accountTracer.Start(ctx, "AccountService.ResolveActive")
	defer span.End()

	if accountID != "" {
		return s.GetAccount(ctx, accountID)
	}
	acct, err := s.store.FirstAccount(ctx)
	if err != nil {
		return nil, err
	}
	s.logger.Info("no account configured, using earliest banca", zap.String("account_id", acct.ID))
	return acct, nil
}

// GetBalance returns opening, settled total and current balance.
func (s *AccountService) GetBalance(ctx context.Context, accountID string) (_ *domain.Balance, err error) {
	ctx, span := accountTracer.Start(ctx, "AccountService.GetBalance")
	defer span.End()
	span.SetAttributes(attribute.String("account.id", accountID))

	acct, err := s.GetAccount(ctx, accountID)
	if err != nil {
		return nil, err
	}

	defer observe(s.metrics, "sum_settled", time.Now(), &err)
	settled, err := s.store.SumSettled(ctx, accountID)
	if err != nil {
		return nil, err
	}
	return domain.NewBalance(acct, settled), nil
}

// UpdateOpeningBalance parses text as an amount and stores it. Text without
// a number and negative values are rejected.
func (s *AccountService) UpdateOpeningBalance(ctx context.Context, accountID, text string) (_ *domain.Account, err error) {
	ctx, span := accountTracer.Start(ctx, "AccountService.UpdateOpeningBalance")
	defer span.End()
	span.SetAttributes(attribute.String("account.id", accountID))
	defer observe(s.metrics, "update_opening_balance", time.Now(), &err)

	cents, ok := domain.ParseAmountOK(text)
	if !ok || cents < 0 {
		return nil, invalid("opening_balance", "Valor inválido. Use um número maior ou igual a zero.")
	}

	acct, err := s.store.UpdateOpeningBalance(ctx, accountID, cents)
	if err != nil {
		return nil, err
	}
	if s.cache != nil {
		s.cache.Delete(accountKey(accountID))
	}

	s.logger.Info("opening balance updated",
		zap.String("account_id", accountID),
		zap.Int64("opening_balance", cents),
	)
	return acct, nil
}
