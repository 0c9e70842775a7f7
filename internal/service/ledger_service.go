package service

import (
	"context"
	"time"

	"github.com/boddenberg/banca-bfa-go/internal/domain"
	"github.com/boddenberg/banca-bfa-go/internal/infra/observability"
	"github.com/boddenberg/banca-bfa-go/internal/port"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

var ledgerTracer = otel.Tracer("service/ledger")

// LedgerService creates, edits, settles and deletes entries. Validation
// always runs before the store is touched.
type LedgerService struct {
	store   port.LedgerStore
	cal     domain.Calendar
	metrics *observability.Metrics
	logger  *zap.Logger
	now     Clock
}

// NewLedgerService creates a new ledger service.
func NewLedgerService(store port.LedgerStore, cal domain.Calendar, metrics *observability.Metrics, logger *zap.Logger) *LedgerService {
	return &LedgerService{store: store, cal: cal, metrics: metrics, logger: logger, now: time.Now}
}

// WithClock overrides the wall clock used for default timestamps.
func (s *LedgerService) WithClock(now Clock) *LedgerService {
	s.now = now
	return s
}

// ============================================================
// Sport entries
// ============================================================

// CreateSport records a pending sport bet.
func (s *LedgerService) CreateSport(ctx context.Context, accountID string, in domain.SportInput) (_ *domain.Entry, err error) {
	ctx, span := ledgerTracer.Start(ctx, "LedgerService.CreateSport")
	defer span.End()
	span.SetAttributes(attribute.String("account.id", accountID))
	defer observe(s.metrics, "create_sport", time.Now(), &err)

	f, err := ValidateSport(in, s.cal)
	if err != nil {
		return nil, err
	}
	if _, err = s.store.GetAccount(ctx, accountID); err != nil {
		return nil, err
	}

	odds := f.Odds
	e := &domain.Entry{
		ID:          uuid.NewString(),
		AccountID:   accountID,
		Category:    domain.CategorySport,
		Timestamp:   s.timestamp(f.Timestamp),
		Stake:       f.Stake,
		Outcome:     domain.OutcomePending,
		Description: f.Description,
		Market:      f.Market,
		Odds:        &odds,
	}
	created, err := s.store.InsertEntry(ctx, e)
	if err != nil {
		return nil, err
	}

	s.metrics.IncrEntryMutation(domain.CategorySport, observability.ActionCreate)
	s.logger.Info("sport entry created",
		zap.String("account_id", accountID),
		zap.String("entry_id", created.ID),
		zap.Int64("stake", created.Stake),
	)
	return created, nil
}

// EditSport rewrites the descriptive fields, stake and optionally the
// timestamp of a sport entry. Outcome and settled amount are left alone.
func (s *LedgerService) EditSport(ctx context.Context, entryID string, in domain.SportInput) (_ *domain.Entry, err error) {
	ctx, span := ledgerTracer.Start(ctx, "LedgerService.EditSport")
	defer span.End()
	span.SetAttributes(attribute.String("entry.id", entryID))
	defer observe(s.metrics, "edit_sport", time.Now(), &err)

	f, err := ValidateSport(in, s.cal)
	if err != nil {
		return nil, err
	}
	patch := domain.EntryPatch{
		Description: &f.Description,
		Market:      &f.Market,
		Odds:        &f.Odds,
		Stake:       &f.Stake,
		Timestamp:   f.Timestamp,
	}
	return s.applyPatch(ctx, entryID, domain.CategorySport, patch)
}

// SettleSport resolves a pending sport entry. A blank amount derives the
// payout from stake and odds. Only one settle can win: when the conditional
// update matches nothing the entry was already resolved and ErrConflict is
// returned.
func (s *LedgerService) SettleSport(ctx context.Context, entryID string, outcome domain.Outcome, amountText string) (_ *domain.Entry, err error) {
	ctx, span := ledgerTracer.Start(ctx, "LedgerService.SettleSport")
	defer span.End()
	span.SetAttributes(
		attribute.String("entry.id", entryID),
		attribute.String("entry.outcome", string(outcome)),
	)
	defer observe(s.metrics, "settle_sport", time.Now(), &err)

	if err = ValidateOutcome(outcome); err != nil {
		return nil, err
	}

	amount := ParseOptionalAmount(amountText)
	if amount == nil {
		cur, err := s.store.GetEntry(ctx, entryID, domain.CategorySport)
		if err != nil {
			return nil, err
		}
		if !cur.IsPending() {
			return nil, s.conflict(domain.CategorySport, entryID, "entrada já liquidada")
		}
		derived := DeriveSettledAmount(outcome, cur.Stake, cur.Odds)
		amount = &derived
	}

	st, err := ValidateSettlement(outcome, *amount)
	if err != nil {
		return nil, err
	}

	n, err := s.store.SettleEntry(ctx, entryID, domain.CategorySport, st)
	if err != nil {
		return nil, err
	}
	if n == 0 {
		if _, err := s.store.GetEntry(ctx, entryID, domain.CategorySport); err != nil {
			return nil, err
		}
		return nil, s.conflict(domain.CategorySport, entryID, "entrada já liquidada")
	}

	s.metrics.IncrEntryMutation(domain.CategorySport, observability.ActionSettle)
	s.logger.Info("sport entry settled",
		zap.String("entry_id", entryID),
		zap.String("outcome", string(st.Outcome)),
		zap.Int64("settled_amount", st.Amount),
	)
	return s.store.GetEntry(ctx, entryID, domain.CategorySport)
}

// ============================================================
// Method entries
// ============================================================

// CreateMethod records a method transaction already resolved. A blank
// amount books the stake as gained or lost.
func (s *LedgerService) CreateMethod(ctx context.Context, accountID string, in domain.MethodInput) (_ *domain.Entry, err error) {
	ctx, span := ledgerTracer.Start(ctx, "LedgerService.CreateMethod")
	defer span.End()
	span.SetAttributes(attribute.String("account.id", accountID))
	defer observe(s.metrics, "create_method", time.Now(), &err)

	f, err := ValidateMethod(in, s.cal)
	if err != nil {
		return nil, err
	}
	if err = ValidateOutcome(in.Outcome); err != nil {
		return nil, err
	}
	amount := ParseOptionalAmount(in.SettledAmount)
	if amount == nil {
		derived := DeriveSettledAmount(in.Outcome, f.Stake, nil)
		amount = &derived
	}
	st, err := ValidateSettlement(in.Outcome, *amount)
	if err != nil {
		return nil, err
	}
	if _, err = s.store.GetAccount(ctx, accountID); err != nil {
		return nil, err
	}

	e := &domain.Entry{
		ID:            uuid.NewString(),
		AccountID:     accountID,
		Category:      domain.CategoryMethod,
		Timestamp:     s.timestamp(f.Timestamp),
		Stake:         f.Stake,
		Outcome:       st.Outcome,
		SettledAmount: &st.Amount,
		MethodName:    f.MethodName,
		Platform:      f.Platform,
	}
	created, err := s.store.InsertEntry(ctx, e)
	if err != nil {
		return nil, err
	}

	s.metrics.IncrEntryMutation(domain.CategoryMethod, observability.ActionCreate)
	s.logger.Info("method entry created",
		zap.String("account_id", accountID),
		zap.String("entry_id", created.ID),
		zap.String("outcome", string(st.Outcome)),
	)
	return created, nil
}

// EditMethod rewrites name, platform, stake and optionally the timestamp.
func (s *LedgerService) EditMethod(ctx context.Context, entryID string, in domain.MethodInput) (_ *domain.Entry, err error) {
	ctx, span := ledgerTracer.Start(ctx, "LedgerService.EditMethod")
	defer span.End()
	span.SetAttributes(attribute.String("entry.id", entryID))
	defer observe(s.metrics, "edit_method", time.Now(), &err)

	f, err := ValidateMethod(in, s.cal)
	if err != nil {
		return nil, err
	}
	patch := domain.EntryPatch{
		MethodName: &f.MethodName,
		Platform:   &f.Platform,
		Stake:      &f.Stake,
		Timestamp:  f.Timestamp,
	}
	return s.applyPatch(ctx, entryID, domain.CategoryMethod, patch)
}

// ============================================================
// Both categories
// ============================================================

// ReconcileAmount rewrites outcome and settled amount of a resolved entry,
// always together. Pending entries must go through SettleSport instead.
func (s *LedgerService) ReconcileAmount(ctx context.Context, entryID string, category domain.Category, outcome domain.Outcome, amountText string) (_ *domain.Entry, err error) {
	ctx, span := ledgerTracer.Start(ctx, "LedgerService.ReconcileAmount")
	defer span.End()
	span.SetAttributes(
		attribute.String("entry.id", entryID),
		attribute.String("entry.category", string(category)),
	)
	defer observe(s.metrics, "reconcile", time.Now(), &err)

	if err = ValidateOutcome(outcome); err != nil {
		return nil, err
	}

	cur, err := s.store.GetEntry(ctx, entryID, category)
	if err != nil {
		return nil, err
	}
	if cur.IsPending() {
		return nil, s.conflict(category, entryID, "entrada pendente deve ser liquidada")
	}

	amount := ParseOptionalAmount(amountText)
	if amount == nil {
		derived := DeriveSettledAmount(outcome, cur.Stake, cur.Odds)
		amount = &derived
	}
	st, err := ValidateSettlement(outcome, *amount)
	if err != nil {
		return nil, err
	}

	n, err := s.store.ReconcileEntry(ctx, entryID, category, st)
	if err != nil {
		return nil, err
	}
	if n == 0 {
		return nil, s.conflict(category, entryID, "entrada não está liquidada")
	}

	s.metrics.IncrEntryMutation(category, observability.ActionReconcile)
	s.logger.Info("entry reconciled",
		zap.String("entry_id", entryID),
		zap.String("category", string(category)),
		zap.Int64("settled_amount", st.Amount),
	)
	return s.store.GetEntry(ctx, entryID, category)
}

// Delete removes an entry by id and category. Deleting an absent entry
// succeeds.
func (s *LedgerService) Delete(ctx context.Context, entryID string, category domain.Category) (err error) {
	ctx, span := ledgerTracer.Start(ctx, "LedgerService.Delete")
	defer span.End()
	span.SetAttributes(
		attribute.String("entry.id", entryID),
		attribute.String("entry.category", string(category)),
	)
	defer observe(s.metrics, "delete", time.Now(), &err)

	if !category.Valid() {
		return invalid("category", "Categoria inválida.")
	}
	if err = s.store.DeleteEntry(ctx, entryID, category); err != nil {
		return err
	}

	s.metrics.IncrEntryMutation(category, observability.ActionDelete)
	s.logger.Info("entry deleted", zap.String("entry_id", entryID), zap.String("category", string(category)))
	return nil
}

// ListPending returns pending entries of a category, newest first.
func (s *LedgerService) ListPending(ctx context.Context, accountID string, category domain.Category) ([]domain.Entry, error) {
	ctx, span := ledgerTracer.Start(ctx, "LedgerService.ListPending")
	defer span.End()

	return s.store.ListEntries(ctx, domain.EntryFilter{
		AccountID: accountID,
		Category:   category,
		Status:     domain.StatusPending,
		Descending: true,
	})
}

// ListEntries returns the entries matching filter.
func (s *LedgerService) ListEntries(ctx context.Context, filter domain.EntryFilter) ([]domain.Entry, error) {
	ctx, span := ledgerTracer.Start(ctx, "LedgerService.ListEntries")
	defer span.End()
	span.SetAttributes(attribute.String("account.id", filter.AccountID))

	if filter.Category != "" && !filter.Category.Valid() {
		return nil, invalid("category", "Categoria inválida.")
	}
	if filter.From != nil && filter.To != nil && filter.To.Before(*filter.From) {
		return nil, invalid("to", "Período inválido.")
	}
	return s.store.ListEntries(ctx, filter)
}

// ============================================================
// helpers
// ============================================================

func (s *LedgerService) applyPatch(ctx context.Context, entryID string, category domain.Category, patch domain.EntryPatch) (*domain.Entry, error) {
	n, err := s.store.UpdateEntryFields(ctx, entryID, category, patch)
	if err != nil {
		return nil, err
	}
	if n == 0 {
		return nil, &domain.ErrNotFound{Resource: "entry", ID: entryID}
	}
	s.metrics.IncrEntryMutation(category, observability.ActionEdit)
	s.logger.Info("entry edited", zap.String("entry_id", entryID), zap.String("category", string(category)))
	return s.store.GetEntry(ctx, entryID, category)
}

func (s *LedgerService) conflict(category domain.Category, entryID, msg string) error {
	s.metrics.IncrSettleConflict(category)
	s.logger.Warn("conditional update matched no row",
		zap.String("entry_id", entryID),
		zap.String("category", string(category)),
	)
	return &domain.ErrConflict{Message: msg}
}

func (s *LedgerService) timestamp(t *time.Time) time.Time {
	if t != nil {
		return *t
	}
	return s.now()
}
