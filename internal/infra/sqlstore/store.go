// Package sqlstore implements the ledger store on a SQL database through
// gorm. Postgres and SQLite are supported.
package sqlstore

import (
	"context"
	"errors"
	"fmt"

	"github.com/boddenberg/banca-bfa-go/internal/domain"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"gorm.io/gorm"
)

var tracer = otel.Tracer("sqlstore")

const (
	errorSubjectAccount = "banca"
	errorSubjectEntry   = "entradas"
	errorCodeGet        = "get"
	errorCodeInsert     = "insert"
	errorCodeUpdate     = "update"
	errorCodeSettle     = "settle"
	errorCodeReconcile  = "reconcile"
	errorCodeDelete     = "delete"
	errorCodeList       = "list"
	errorCodeSum        = "sum_settled"
)

// Store implements port.LedgerStore using GORM.
type Store struct {
	db *gorm.DB
}

// New returns a Store backed by gorm.DB.
func New(db *gorm.DB) *Store {
	return &Store{db: db}
}

type sqlSum struct {
	Total int64
}

func wrapStoreError(subject, code string, err error) error {
	return &domain.ErrExternalService{Service: "sql/" + subject, Err: fmt.Errorf("%s: %w", code, err)}
}

func (store *Store) GetAccount(ctx context.Context, accountID string) (*domain.Account, error) {
	ctx, span := tracer.Start(ctx, "SQLStore.GetAccount")
	defer span.End()
	span.SetAttributes(attribute.String("account.id", accountID))

	var model Banca
	err := store.db.WithContext(ctx).Where("id = ?", accountID).Take(&model).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, &domain.ErrNotFound{Resource: "account", ID: accountID}
		}
		return nil, wrapStoreError(errorSubjectAccount, errorCodeGet, err)
	}
	return model.toDomain(), nil
}

func (store *Store) FirstAccount(ctx context.Context) (*domain.Account, error) {
	ctx, span := tracer.Start(ctx, "SQLStore.FirstAccount")
	defer span.End()

	var model Banca
	err := store.db.WithContext(ctx).Order("created_at asc").Take(&model).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, &domain.ErrNotFound{Resource: "account", ID: "first"}
		}
		return nil, wrapStoreError(errorSubjectAccount, errorCodeGet, err)
	}
	return model.toDomain(), nil
}

// CreateAccount inserts a banca. Used to bootstrap an empty database.
func (store *Store) CreateAccount(ctx context.Context, openingBalance int64) (*domain.Account, error) {
	model := Banca{SaldoInicial: openingBalance, CreatedAt: nowUTC()}
	if err := store.db.WithContext(ctx).Create(&model).Error; err != nil {
		return nil, wrapStoreError(errorSubjectAccount, errorCodeInsert, err)
	}
	return model.toDomain(), nil
}

func (store *Store) UpdateOpeningBalance(ctx context.Context, accountID string, cents int64) (*domain.Account, error) {
	ctx, span := tracer.Start(ctx, "SQLStore.UpdateOpeningBalance")
	defer span.End()
	span.SetAttributes(attribute.String("account.id", accountID))

	result := store.db.WithContext(ctx).
		Model(&Banca{}).
		Where("id = ?", accountID).
		Update("saldo_inicial", cents)
	if result.Error != nil {
		return nil, wrapStoreError(errorSubjectAccount, errorCodeUpdate, result.Error)
	}
	if result.RowsAffected == 0 {
		return nil, &domain.ErrNotFound{Resource: "account", ID: accountID}
	}
	return store.GetAccount(ctx, accountID)
}

func (store *Store) SumSettled(ctx context.Context, accountID string) (int64, error) {
	ctx, span := tracer.Start(ctx, "SQLStore.SumSettled")
	defer span.End()
	span.SetAttributes(attribute.String("account.id", accountID))

	var sum sqlSum
	err := store.db.WithContext(ctx).
		Model(&Entrada{}).
		Select("coalesce(sum(valor_liquidado),0) as total").
		Where("banca_id = ?", accountID).
		Where("resultado <> ?", string(domain.OutcomePending)).
		Scan(&sum).Error
	if err != nil {
		return 0, wrapStoreError(errorSubjectEntry, errorCodeSum, err)
	}
	return sum.Total, nil
}

func (store *Store) InsertEntry(ctx context.Context, e *domain.Entry) (*domain.Entry, error) {
	ctx, span := tracer.Start(ctx, "SQLStore.InsertEntry")
	defer span.End()
	span.SetAttributes(attribute.String("account.id", e.AccountID), attribute.String("entry.category", string(e.Category)))

	model := newEntrada(e)
	if err := store.db.WithContext(ctx).Create(&model).Error; err != nil {
		return nil, wrapStoreError(errorSubjectEntry, errorCodeInsert, err)
	}
	out := model.toDomain()
	return &out, nil
}

func (store *Store) GetEntry(ctx context.Context, id string, category domain.Category) (*domain.Entry, error) {
	ctx, span := tracer.Start(ctx, "SQLStore.GetEntry")
	defer span.End()
	span.SetAttributes(attribute.String("entry.id", id))

	var model Entrada
	err := store.db.WithContext(ctx).
		Where("id = ? AND tipo = ?", id, string(category)).
		Take(&model).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, &domain.ErrNotFound{Resource: "entry", ID: id}
		}
		return nil, wrapStoreError(errorSubjectEntry, errorCodeGet, err)
	}
	out := model.toDomain()
	return &out, nil
}

func (store *Store) entry(ctx context.Context, id string, category domain.Category) *gorm.DB {
	return store.db.WithContext(ctx).
		Model(&Entrada{}).
		Where("id = ? AND tipo = ?", id, string(category))
}

func (store *Store) UpdateEntryFields(ctx context.Context, id string, category domain.Category, patch domain.EntryPatch) (int64, error) {
	ctx, span := tracer.Start(ctx, "SQLStore.UpdateEntryFields")
	defer span.End()
	span.SetAttributes(attribute.String("entry.id", id))

	cols := patchColumns(patch)
	if len(cols) == 0 {
		var n int64
		if err := store.entry(ctx, id, category).Count(&n).Error; err != nil {
			return 0, wrapStoreError(errorSubjectEntry, errorCodeUpdate, err)
		}
		return n, nil
	}
	result := store.entry(ctx, id, category).Updates(cols)
	if result.Error != nil {
		return 0, wrapStoreError(errorSubjectEntry, errorCodeUpdate, result.Error)
	}
	return result.RowsAffected, nil
}

// SettleEntry resolves the entry only while resultado is still pendente.
func (store *Store) SettleEntry(ctx context.Context, id string, category domain.Category, s domain.Settlement) (int64, error) {
	ctx, span := tracer.Start(ctx, "SQLStore.SettleEntry")
	defer span.End()
	span.SetAttributes(attribute.String("entry.id", id), attribute.String("entry.outcome", string(s.Outcome)))

	result := store.entry(ctx, id, category).
		Where("resultado = ?", string(domain.OutcomePending)).
		Updates(settlementColumns(s))
	if result.Error != nil {
		return 0, wrapStoreError(errorSubjectEntry, errorCodeSettle, result.Error)
	}
	return result.RowsAffected, nil
}

// ReconcileEntry rewrites the settlement of an already resolved entry.
func (store *Store) ReconcileEntry(ctx context.Context, id string, category domain.Category, s domain.Settlement) (int64, error) {
	ctx, span := tracer.Start(ctx, "SQLStore.ReconcileEntry")
	defer span.End()
	span.SetAttributes(attribute.String("entry.id", id), attribute.String("entry.outcome", string(s.Outcome)))

	result := store.entry(ctx, id, category).
		Where("resultado <> ?", string(domain.OutcomePending)).
		Updates(settlementColumns(s))
	if result.Error != nil {
		return 0, wrapStoreError(errorSubjectEntry, errorCodeReconcile, result.Error)
	}
	return result.RowsAffected, nil
}

func settlementColumns(s domain.Settlement) map[string]any {
	return map[string]any{
		"resultado":       string(s.Outcome),
		"valor_liquidado": s.Amount,
	}
}

func (store *Store) DeleteEntry(ctx context.Context, id string, category domain.Category) error {
	ctx, span := tracer.Start(ctx, "SQLStore.DeleteEntry")
	defer span.End()
	span.SetAttributes(attribute.String("entry.id", id))

	err := store.db.WithContext(ctx).
		Where("id = ? AND tipo = ?", id, string(category)).
		Delete(&Entrada{}).Error
	if err != nil {
		return wrapStoreError(errorSubjectEntry, errorCodeDelete, err)
	}
	return nil
}

func (store *Store) ListEntries(ctx context.Context, f domain.EntryFilter) ([]domain.Entry, error) {
	ctx, span := tracer.Start(ctx, "SQLStore.ListEntries")
	defer span.End()
	span.SetAttributes(attribute.String("account.id", f.AccountID))

	query := store.db.WithContext(ctx).Where("banca_id = ?", f.AccountID)
	if f.Category != "" {
		query = query.Where("tipo = ?", string(f.Category))
	}
	switch f.Status {
	case domain.StatusPending:
		query = query.Where("resultado = ?", string(domain.OutcomePending))
	case domain.StatusSettled:
		query = query.Where("resultado <> ?", string(domain.OutcomePending))
	}
	if f.From != nil {
		query = query.Where("data >= ?", f.From.UTC())
	}
	if f.To != nil {
		query = query.Where("data <= ?", f.To.UTC())
	}
	if f.Descending {
		query = query.Order("data desc")
	} else {
		query = query.Order("data asc")
	}
	if f.Limit > 0 {
		query = query.Limit(f.Limit)
	}

	var models []Entrada
	if err := query.Find(&models).Error; err != nil {
		return nil, wrapStoreError(errorSubjectEntry, errorCodeList, err)
	}
	out := make([]domain.Entry, 0, len(models))
	for _, model := range models {
		out = append(out, model.toDomain())
	}
	return out, nil
}

// Ping checks database reachability for readiness probes.
func (store *Store) Ping(ctx context.Context) error {
	sqlDB, err := store.db.DB()
	if err != nil {
		return wrapStoreError(errorSubjectAccount, errorCodeGet, err)
	}
	if err := sqlDB.PingContext(ctx); err != nil {
		return wrapStoreError(errorSubjectAccount, errorCodeGet, err)
	}
	return nil
}
