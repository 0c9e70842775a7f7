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
	"golang.org/x/sync/errgroup"
)

var dashboardTracer = otel.Tracer("service/dashboard")

// DashboardService builds the overview and per-category dashboards.
// All windows are computed in the calendar's zone.
type DashboardService struct {
	store    port.EntryStore
	views    port.PnLViews // nil when the store has no views
	accounts *AccountService
	cal      domain.Calendar
	metrics  *observability.Metrics
	logger   *zap.Logger
	now      Clock
}

// NewDashboardService creates a new dashboard service. When store also
// implements port.PnLViews the daily and monthly buckets are read from the
// views.
func NewDashboardService(store port.EntryStore, accounts *AccountService, cal domain.Calendar, metrics *observability.Metrics, logger *zap.Logger) *DashboardService {
	s := &DashboardService{
		store:    store,
		accounts: accounts,
		cal:      cal,
		metrics:  metrics,
		logger:   logger,
		now:      time.Now,
	}
	if v, ok := store.(port.PnLViews); ok {
		s.views = v
	}
	return s
}

// WithClock overrides the wall clock that anchors "today".
func (s *DashboardService) WithClock(now Clock) *DashboardService {
	s.now = now
	return s
}

// WithoutViews forces raw-row aggregation.
func (s *DashboardService) WithoutViews() *DashboardService {
	s.views = nil
	return s
}

// UsesViews reports whether buckets come from the store's views.
func (s *DashboardService) UsesViews() bool {
	return s.views != nil
}

// window is the set of bounds shared by both dashboards.
type window struct {
	now        time.Time
	todayStart time.Time
	todayEnd   time.Time
	dailyFrom  time.Time
	monthFrom  time.Time
	days       []string
	months     []string
}

func (s *DashboardService) window(rangeDays int) window {
	now := s.now()
	w := window{
		now:        now,
		todayStart: s.cal.StartOfDay(now),
		todayEnd:   s.cal.EndOfDay(now),
	}
	w.dailyFrom = time.Date(w.todayStart.Year(), w.todayStart.Month(), w.todayStart.Day()-(rangeDays-1), 0, 0, 0, 0, s.cal.Location)
	som := s.cal.StartOfMonth(now)
	w.monthFrom = time.Date(som.Year(), som.Month()-(domain.MonthlyWindowSize-1), 1, 0, 0, 0, 0, s.cal.Location)
	w.days = s.cal.DayRange(w.dailyFrom, now)
	w.months = s.cal.MonthRange(w.monthFrom, now)
	return w
}

// Overview returns the main dashboard across both categories.
func (s *DashboardService) Overview(ctx context.Context, accountID string, rangeDays int, mode domain.SeriesMode) (_ *domain.Overview, err error) {
	ctx, span := dashboardTracer.Start(ctx, "DashboardService.Overview")
	defer span.End()
	span.SetAttributes(attribute.String("account.id", accountID), attribute.Int("range", rangeDays))
	defer observe(s.metrics, "dashboard_overview", time.Now(), &err)

	rangeDays = domain.ParseRange(rangeDays)
	mode = domain.ParseSeriesMode(string(mode))
	w := s.window(rangeDays)

	var (
		balance *domain.Balance
		today   []domain.Entry
		daily   map[string]int64
		monthly map[string]int64
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		balance, err = s.accounts.GetBalance(gctx, accountID)
		return err
	})
	g.Go(func() (err error) {
		today, err = s.store.ListEntries(gctx, domain.EntryFilter{
			AccountID: accountID,
			From:      &w.todayStart,
			To:        &w.todayEnd,
		})
		return err
	})
	g.Go(func() (err error) {
		daily, err = s.dailyPnL(gctx, accountID, "", w.dailyFrom, w.todayEnd)
		return err
	})
	g.Go(func() (err error) {
		monthly, err = s.monthlyPnL(gctx, accountID, "", w.monthFrom, w.todayEnd)
		return err
	})
	if err = g.Wait(); err != nil {
		return nil, err
	}

	counts := map[domain.Category]int{
		domain.CategorySport:  0,
		domain.CategoryMethod: 0,
	}
	for i := range today {
		counts[today[i].Category]++
	}

	return &domain.Overview{
		AccountID:        accountID,
		Range:            rangeDays,
		Mode:             mode,
		Balance:          balance,
		OpeningFormatted: domain.FormatBRL(balance.Opening),
		CurrentFormatted: domain.FormatBRL(balance.Current),
		Today:            NewKPICard(Aggregate(today)),
		Daily:            DailySeries(daily, w.days, mode),
		Monthly:          MonthlySeries(monthly, w.months),
		TodayCounts:      counts,
	}, nil
}

// Category returns the dashboard of one category. Sport dashboards also
// carry every pending bet.
func (s *DashboardService) Category(ctx context.Context, accountID string, category domain.Category, rangeDays int, mode domain.SeriesMode) (_ *domain.CategoryDashboard, err error) {
	ctx, span := dashboardTracer.Start(ctx, "DashboardService.Category")
	defer span.End()
	span.SetAttributes(
		attribute.String("account.id", accountID),
		attribute.String("category", string(category)),
		attribute.Int("range", rangeDays),
	)
	defer observe(s.metrics, "dashboard_category", time.Now(), &err)

	if !category.Valid() {
		return nil, invalid("category", "Categoria inválida.")
	}
	rangeDays = domain.ParseRange(rangeDays)
	mode = domain.ParseSeriesMode(string(mode))
	w := s.window(rangeDays)

	var (
		today   []domain.Entry
		pending []domain.Entry
		daily   map[string]int64
		monthly map[string]int64
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		today, err = s.store.ListEntries(gctx, domain.EntryFilter{
			AccountID:  accountID,
			Category:   category,
			From:       &w.todayStart,
			To:         &w.todayEnd,
			Descending: true,
		})
		return err
	})
	if category == domain.CategorySport {
		g.Go(func() (err error) {
			pending, err = s.store.ListEntries(gctx, domain.EntryFilter{
				AccountID:  accountID,
				Category:   category,
				Status:     domain.StatusPending,
				Descending: true,
			})
			return err
		})
	}
	g.Go(func() (err error) {
		daily, err = s.dailyPnL(gctx, accountID, category, w.dailyFrom, w.todayEnd)
		return err
	})
	g.Go(func() (err error) {
		monthly, err = s.monthlyPnL(gctx, accountID, category, w.monthFrom, w.todayEnd)
		return err
	})
	if err = g.Wait(); err != nil {
		return nil, err
	}

	settledToday := make([]domain.EntryView, 0, len(today))
	for i := range today {
		if !today[i].IsPending() {
			settledToday = append(settledToday, newEntryView(today[i], w.now))
		}
	}
	var pendingViews []domain.EntryView
	for i := range pending {
		pendingViews = append(pendingViews, newEntryView(pending[i], w.now))
	}

	return &domain.CategoryDashboard{
		AccountID: accountID,
		Category:  category,
		Range:     rangeDays,
		Mode:      mode,
		Today:     NewKPICard(Aggregate(today)),
		Daily:     DailySeries(daily, w.days, mode),
		Monthly:   MonthlySeries(monthly, w.months),
		Pending:   pendingViews,
		Entries:   settledToday,
	}, nil
}

// ============================================================
// Buckets
// ============================================================

// dailyPnL returns per-day sums, from the views when available. A view
// failure falls back to raw rows.
func (s *DashboardService) dailyPnL(ctx context.Context, accountID string, category domain.Category, from, to time.Time) (map[string]int64, error) {
	if s.views != nil {
		out, err := s.views.DailyPnL(ctx, accountID, category, from, to)
		if err == nil {
			return out, nil
		}
		s.logger.Warn("daily view unavailable, aggregating raw entries",
			zap.String("account_id", accountID),
			zap.Error(err),
		)
	}
	entries, err := s.settledBetween(ctx, accountID, category, from, to)
	if err != nil {
		return nil, err
	}
	return bucketByDay(s.cal, entries), nil
}

// monthlyPnL returns per-month sums, from the views when available. A view
// failure falls back to summing raw rows per day and rolling them up.
func (s *DashboardService) monthlyPnL(ctx context.Context, accountID string, category domain.Category, from, to time.Time) (map[string]int64, error) {
	if s.views != nil {
		out, err := s.views.MonthlyPnL(ctx, accountID, category, from, to)
		if err == nil {
			return out, nil
		}
		s.logger.Warn("monthly view unavailable, aggregating raw entries",
			zap.String("account_id", accountID),
			zap.Error(err),
		)
	}
	entries, err := s.settledBetween(ctx, accountID, category, from, to)
	if err != nil {
		return nil, err
	}
	return rollUpMonths(bucketByDay(s.cal, entries)), nil
}

func (s *DashboardService) settledBetween(ctx context.Context, accountID string, category domain.Category, from, to time.Time) ([]domain.Entry, error) {
	return s.store.ListEntries(ctx, domain.EntryFilter{
		AccountID: accountID,
		Category:  category,
		Status:    domain.StatusSettled,
		From:      &from,
		To:        &to,
	})
}

func newEntryView(e domain.Entry, now time.Time) domain.EntryView {
	v := domain.EntryView{
		Entry:          e,
		StakeFormatted: domain.FormatBRL(e.Stake),
		Age:            domain.TimeAgo(e.Timestamp, now),
	}
	if e.SettledAmount != nil {
		v.SettledFormatted = domain.FormatBRL(*e.SettledAmount)
	}
	return v
}
