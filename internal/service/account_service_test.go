package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/boddenberg/banca-bfa-go/internal/domain"
	"github.com/boddenberg/banca-bfa-go/internal/infra/cache"
	"github.com/boddenberg/banca-bfa-go/internal/infra/observability"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestGetBalance_OpeningPlusSettled(t *testing.T) {
	ledger, store, metrics := newTestLedger(t)
	accounts := NewAccountService(store, nil, metrics, zap.NewNop())
	ctx := context.Background()

	e, err := ledger.CreateSport(ctx, "acc-1", sportInput())
	require.NoError(t, err)
	_, err = ledger.SettleSport(ctx, e.ID, domain.OutcomeProfit, "25,00")
	require.NoError(t, err)

	// Pending entries do not move the balance.
	_, err = ledger.CreateSport(ctx, "acc-1", sportInput())
	require.NoError(t, err)

	bal, err := accounts.GetBalance(ctx, "acc-1")
	require.NoError(t, err)
	assert.Equal(t, int64(10000), bal.Opening)
	assert.Equal(t, int64(2500), bal.Settled)
	assert.Equal(t, int64(12500), bal.Current)
}

func TestUpdateOpeningBalance(t *testing.T) {
	store := newFakeStore()
	store.addAccount("acc-1", 0, fixedNow)
	metrics := observability.NewMetrics()
	c := cache.New[*domain.Account](time.Minute)
	accounts := NewAccountService(store, c, metrics, zap.NewNop())
	ctx := context.Background()

	_, err := accounts.GetAccount(ctx, "acc-1")
	require.NoError(t, err)
	_, err = accounts.GetAccount(ctx, "acc-1")
	require.NoError(t, err)
	assert.InDelta(t, 0.5, metrics.Snapshot().CacheHitRate, 1e-9)

	for _, text := range []string{"-1,00", "abc", "", "R$"} {
		_, err = accounts.UpdateOpeningBalance(ctx, "acc-1", text)
		var ve *domain.ErrValidation
		require.True(t, errors.As(err, &ve), text)
		assert.Equal(t, "opening_balance", ve.Field)
	}

	acct, err := accounts.UpdateOpeningBalance(ctx, "acc-1", "R$ 1.500,00")
	require.NoError(t, err)
	assert.Equal(t, int64(150000), acct.OpeningBalance)

	// The cached row was dropped on edit.
	got, err := accounts.GetAccount(ctx, "acc-1")
	require.NoError(t, err)
	assert.Equal(t, int64(150000), got.OpeningBalance)
}

func TestResolveActive(t *testing.T) {
	store := newFakeStore()
	store.addAccount("newer", 0, fixedNow)
	store.addAccount("older", 0, fixedNow.Add(-time.Hour))
	accounts := NewAccountService(store, nil, observability.NewMetrics(), zap.NewNop())
	ctx := context.Background()

	acct, err := accounts.ResolveActive(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, "older", acct.ID)

	acct, err = accounts.ResolveActive(ctx, "newer")
	require.NoError(t, err)
	assert.Equal(t, "newer", acct.ID)

	_, err = accounts.ResolveActive(ctx, "ghost")
	var nf *domain.ErrNotFound
	assert.True(t, errors.As(err, &nf))

	_, err = NewAccountService(newFakeStore(), nil, observability.NewMetrics(), zap.NewNop()).ResolveActive(ctx, "")
	assert.True(t, errors.As(err, &nf))
}
