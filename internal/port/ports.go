// Package port defines the interfaces (ports) for external dependencies.
// Following hexagonal architecture, these ports decouple the domain/service
// layer from concrete implementations.
package port

import (
	"context"
	"time"

	"github.com/boddenberg/banca-bfa-go/internal/domain"
)

// Cache provides generic caching with TTL.
type Cache[T any] interface {
	Get(key string) (T, bool)
	Set(key string, value T)
	Delete(key string)
}

// AccountStore handles banca rows.
type AccountStore interface {
	GetAccount(ctx context.Context, accountID string) (*domain.Account, error)
	// FirstAccount returns the earliest-created account.
	FirstAccount(ctx context.Context) (*domain.Account, error)
	UpdateOpeningBalance(ctx context.Context, accountID string, cents int64) (*domain.Account, error)
	// SumSettled sums settled amounts over every resolved entry of the account.
	SumSettled(ctx context.Context, accountID string) (int64, error)
}

// EntryStore handles entradas rows.
//
// Every conditional mutation reports how many rows it matched so the caller
// can tell a lost race from a success. Nothing is read-then-written.
type EntryStore interface {
	InsertEntry(ctx context.Context, e *domain.Entry) (*domain.Entry, error)
	GetEntry(ctx context.Context, id string, category domain.Category) (*domain.Entry, error)

	// UpdateEntryFields applies a patch that never touches outcome or amount.
	UpdateEntryFields(ctx context.Context, id string, category domain.Category, patch domain.EntryPatch) (int64, error)

	// SettleEntry resolves an entry only while its outcome is still pendente.
	SettleEntry(ctx context.Context, id string, category domain.Category, s domain.Settlement) (int64, error)

	// ReconcileEntry rewrites outcome and amount of an already resolved entry.
	ReconcileEntry(ctx context.Context, id string, category domain.Category, s domain.Settlement) (int64, error)

	// DeleteEntry removes the entry if it exists with that category.
	DeleteEntry(ctx context.Context, id string, category domain.Category) error

	ListEntries(ctx context.Context, filter domain.EntryFilter) ([]domain.Entry, error)
}

// LedgerStore is the full persistence contract used by the services.
// Implemented by the Supabase adapter and the gorm SQL store.
type LedgerStore interface {
	AccountStore
	EntryStore
}

// PnLViews is optionally implemented by stores that expose precomputed
// daily/monthly P/L views. Keys are "YYYY-MM-DD" for days and "YYYY-MM" for
// months; an empty category means all categories.
type PnLViews interface {
	DailyPnL(ctx context.Context, accountID string, category domain.Category, from, to time.Time) (map[string]int64, error)
	MonthlyPnL(ctx context.Context, accountID string, category domain.Category, from, to time.Time) (map[string]int64, error)
}
