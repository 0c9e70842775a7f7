package service

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/boddenberg/banca-bfa-go/internal/domain"
)

// fakeStore is an in-memory LedgerStore. Conditional updates are evaluated
// under the lock, the same way a database evaluates the WHERE clause.
type fakeStore struct {
	mu       sync.Mutex
	accounts map[string]*domain.Account
	entries  map[string]*domain.Entry
	failWith error
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		accounts: map[string]*domain.Account{},
		entries:  map[string]*domain.Entry{},
	}
}

func (f *fakeStore) addAccount(id string, opening int64, created time.Time) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.accounts[id] = &domain.Account{ID: id, OpeningBalance: opening, CreatedAt: created}
}

func (f *fakeStore) put(e domain.Entry) {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := e
	f.entries[e.ID] = &cp
}

func (f *fakeStore) GetAccount(_ context.Context, id string) (*domain.Account, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failWith != nil {
		return nil, f.failWith
	}
	a, ok := f.accounts[id]
	if !ok {
		return nil, &domain.ErrNotFound{Resource: "account", ID: id}
	}
	cp := *a
	return &cp, nil
}

func (f *fakeStore) FirstAccount(_ context.Context) (*domain.Account, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var first *domain.Account
	for _, a := range f.accounts {
		if first == nil || a.CreatedAt.Before(first.CreatedAt) {
			first = a
		}
	}
	if first == nil {
		return nil, &domain.ErrNotFound{Resource: "account", ID: "first"}
	}
	cp := *first
	return &cp, nil
}

func (f *fakeStore) UpdateOpeningBalance(_ context.Context, id string, cents int64) (*domain.Account, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	a, ok := f.accounts[id]
	if !ok {
		return nil, &domain.ErrNotFound{Resource: "account", ID: id}
	}
	a.OpeningBalance = cents
	cp := *a
	return &cp, nil
}

func (f *fakeStore) SumSettled(_ context.Context, id string) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var sum int64
	for _, e := range f.entries {
		if e.AccountID == id && !e.IsPending() {
			sum += e.Settled()
		}
	}
	return sum, nil
}

func (f *fakeStore) InsertEntry(_ context.Context, e *domain.Entry) (*domain.Entry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failWith != nil {
		return nil, f.failWith
	}
	cp := *e
	f.entries[e.ID] = &cp
	out := cp
	return &out, nil
}

func (f *fakeStore) GetEntry(_ context.Context, id string, c domain.Category) (*domain.Entry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	e, ok := f.entries[id]
	if !ok || e.Category != c {
		return nil, &domain.ErrNotFound{Resource: "entry", ID: id}
	}
	cp := *e
	return &cp, nil
}

func (f *fakeStore) UpdateEntryFields(_ context.Context, id string, c domain.Category, p domain.EntryPatch) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	e, ok := f.entries[id]
	if !ok || e.Category != c {
		return 0, nil
	}
	if p.Description != nil {
		e.Description = *p.Description
	}
	if p.Market != nil {
		e.Market = *p.Market
	}
	if p.Odds != nil {
		o := *p.Odds
		e.Odds = &o
	}
	if p.MethodName != nil {
		e.MethodName = *p.MethodName
	}
	if p.Platform != nil {
		e.Platform = *p.Platform
	}
	if p.Stake != nil {
		e.Stake = *p.Stake
	}
	if p.Timestamp != nil {
		e.Timestamp = *p.Timestamp
	}
	return 1, nil
}

func (f *fakeStore) SettleEntry(_ context.Context, id string, c domain.Category, s domain.Settlement) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	e, ok := f.entries[id]
	if !ok || e.Category != c || e.Outcome != domain.OutcomePending {
		return 0, nil
	}
	e.Outcome = s.Outcome
	amt := s.Amount
	e.SettledAmount = &amt
	return 1, nil
}

func (f *fakeStore) ReconcileEntry(_ context.Context, id string, c domain.Category, s domain.Settlement) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	e, ok := f.entries[id]
	if !ok || e.Category != c || e.Outcome == domain.OutcomePending {
		return 0, nil
	}
	e.Outcome = s.Outcome
	amt := s.Amount
	e.SettledAmount = &amt
	return 1, nil
}

func (f *fakeStore) DeleteEntry(_ context.Context, id string, c domain.Category) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if e, ok := f.entries[id]; ok && e.Category == c {
		delete(f.entries, id)
	}
	return nil
}

func (f *fakeStore) ListEntries(_ context.Context, flt domain.EntryFilter) ([]domain.Entry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failWith != nil {
		return nil, f.failWith
	}
	var out []domain.Entry
	for _, e := range f.entries {
		if e.AccountID != flt.AccountID {
			continue
		}
		if flt.Category != "" && e.Category != flt.Category {
			continue
		}
		if flt.Status == domain.StatusPending && !e.IsPending() {
			continue
		}
		if flt.Status == domain.StatusSettled && e.IsPending() {
			continue
		}
		if flt.From != nil && e.Timestamp.Before(*flt.From) {
			continue
		}
		if flt.To != nil && e.Timestamp.After(*flt.To) {
			continue
		}
		out = append(out, *e)
	}
	sort.Slice(out, func(i, j int) bool {
		if flt.Descending {
			return out[i].Timestamp.After(out[j].Timestamp)
		}
		return out[i].Timestamp.Before(out[j].Timestamp)
	})
	if flt.Limit > 0 && len(out) > flt.Limit {
		out = out[:flt.Limit]
	}
	return out, nil
}

// viewStore adds precomputed P/L views on top of fakeStore. The views bucket
// rows the way the SQL views do: by local date of the timestamp.
type viewStore struct {
	*fakeStore
	cal      domain.Calendar
	viewErr  error
	viewHits int
}

func (v *viewStore) DailyPnL(ctx context.Context, accountID string, c domain.Category, from, to time.Time) (map[string]int64, error) {
	if v.viewErr != nil {
		return nil, v.viewErr
	}
	v.mu.Lock()
	v.viewHits++
	v.mu.Unlock()
	rows, _ := v.ListEntries(ctx, domain.EntryFilter{AccountID: accountID, Category: c, Status: domain.StatusSettled})
	out := map[string]int64{}
	fromKey, toKey := v.cal.DayKey(from), v.cal.DayKey(to)
	for _, e := range rows {
		k := e.Timestamp.In(v.cal.Location).Format(domain.DayKeyLayout)
		if k < fromKey || k > toKey {
			continue
		}
		out[k] += e.Settled()
	}
	return out, nil
}

func (v *viewStore) MonthlyPnL(ctx context.Context, accountID string, c domain.Category, from, to time.Time) (map[string]int64, error) {
	if v.viewErr != nil {
		return nil, v.viewErr
	}
	v.mu.Lock()
	v.viewHits++
	v.mu.Unlock()
	rows, _ := v.ListEntries(ctx, domain.EntryFilter{AccountID: accountID, Category: c, Status: domain.StatusSettled})
	out := map[string]int64{}
	fromKey, toKey := v.cal.MonthKey(from), v.cal.MonthKey(to)
	for _, e := range rows {
		k := e.Timestamp.In(v.cal.Location).Format(domain.MonthKeyLayout)
		if k < fromKey || k > toKey {
			continue
		}
		out[k] += e.Settled()
	}
	return out, nil
}

var errStoreDown = &domain.ErrExternalService{Service: "fake", Err: errors.New("connection refused")}
