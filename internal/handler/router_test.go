package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/boddenberg/banca-bfa-go/internal/domain"
	"github.com/boddenberg/banca-bfa-go/internal/handler"
	"github.com/boddenberg/banca-bfa-go/internal/infra/observability"
	"github.com/boddenberg/banca-bfa-go/internal/infra/sqlstore"
	"github.com/boddenberg/banca-bfa-go/internal/service"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type testEnv struct {
	router    http.Handler
	store     *sqlstore.Store
	accountID string
}

func newTestEnv(t *testing.T, auth *service.OperatorAuth) *testEnv {
	t.Helper()
	ctx := context.Background()
	db, cleanup, err := sqlstore.Open(ctx, filepath.Join(t.TempDir(), "banca.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = cleanup() })

	store := sqlstore.New(db)
	acct, err := store.CreateAccount(ctx, 10000)
	require.NoError(t, err)

	logger := zap.NewNop()
	metrics := observability.NewMetrics()
	cal := domain.NewCalendar(time.UTC)
	accounts := service.NewAccountService(store, nil, metrics, logger)

	router := handler.NewRouter(handler.Services{
		Ledger:    service.NewLedgerService(store, cal, metrics, logger),
		Accounts:  accounts,
		Dashboard: service.NewDashboardService(store, accounts, cal, metrics, logger),
		Auth:      auth,
		Store:     store,
		StoreName: "sql",
		Calendar:  cal,
	}, metrics, logger)

	return &testEnv{router: router, store: store, accountID: acct.ID}
}

func (e *testEnv) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

type entryBody struct {
	ID               string  `json:"id"`
	Outcome          string  `json:"outcome"`
	Stake            int64   `json:"stake"`
	SettledAmount    *int64  `json:"settled_amount"`
	StakeFormatted   string  `json:"stake_formatted"`
	SettledFormatted string  `json:"settled_formatted"`
	Odds             float64 `json:"odds"`
}

type errorBody struct {
	Error string `json:"error"`
	Field string `json:"field"`
}

// ============================================================
// Operational
// ============================================================

func TestHealthz(t *testing.T) {
	env := newTestEnv(t, nil)

	rec := env.do(t, http.MethodGet, "/healthz", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	health := decode[domain.HealthStatus](t, rec)
	assert.Equal(t, "healthy", health.Status)
	require.Len(t, health.Services, 2)
	assert.Equal(t, "sql", health.Services[1].Name)
}

type failingPinger struct{}

func (failingPinger) Ping(context.Context) error { return errors.New("connection refused") }

func TestReadyz(t *testing.T) {
	router := handler.NewRouter(handler.Services{}, observability.NewMetrics(), zap.NewNop())
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	router = handler.NewRouter(handler.Services{Store: failingPinger{}}, observability.NewMetrics(), zap.NewNop())
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestHealthz_DegradedStore(t *testing.T) {
	router := handler.NewRouter(handler.Services{Store: failingPinger{}}, observability.NewMetrics(), zap.NewNop())
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "degraded", decode[domain.HealthStatus](t, rec).Status)
}

func TestMetrics(t *testing.T) {
	env := newTestEnv(t, nil)

	rec := env.do(t, http.MethodGet, "/metrics", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = env.do(t, http.MethodGet, "/v1/metrics/ledger", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestV1_UnavailableWithoutServices(t *testing.T) {
	router := handler.NewRouter(handler.Services{}, observability.NewMetrics(), zap.NewNop())
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/accounts/abc/balance", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

// ============================================================
// Auth
// ============================================================

func TestOperatorAuth(t *testing.T) {
	auth := service.NewOperatorAuth("test-secret", time.Hour)
	env := newTestEnv(t, auth)
	path := "/v1/accounts/" + env.accountID

	rec := env.do(t, http.MethodGet, path, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	req := httptest.NewRequest(http.MethodGet, path, nil)
	req.Header.Set("Authorization", "Token abc")
	rec = httptest.NewRecorder()
	env.router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	token, _, err := auth.Mint("ana")
	require.NoError(t, err)
	req = httptest.NewRequest(http.MethodGet, path, nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec = httptest.NewRecorder()
	env.router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = env.do(t, http.MethodGet, "/healthz", nil)
	assert.Equal(t, http.StatusOK, rec.Code, "probes stay public")
}

// ============================================================
// Banca
// ============================================================

func TestAccountAndOpeningBalance(t *testing.T) {
	env := newTestEnv(t, nil)

	rec := env.do(t, http.MethodGet, "/v1/accounts/"+env.accountID, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "R$ 100,00")

	rec = env.do(t, http.MethodPut, "/v1/accounts/"+env.accountID+"/opening-balance", map[string]any{"opening_balance": "1.250,50"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Contains(t, rec.Body.String(), "R$ 1.250,50")

	rec = env.do(t, http.MethodPut, "/v1/accounts/"+env.accountID+"/opening-balance", map[string]any{"opening_balance": 80.5})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Contains(t, rec.Body.String(), "R$ 80,50")

	rec = env.do(t, http.MethodPut, "/v1/accounts/"+env.accountID+"/opening-balance", map[string]any{"opening_balance": "abc"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	rec = env.do(t, http.MethodGet, "/v1/accounts/"+env.accountID, nil)
	assert.Contains(t, rec.Body.String(), "R$ 80,50", "rejected text keeps the opening balance")

	rec = env.do(t, http.MethodGet, "/v1/accounts/missing", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

// ============================================================
// Entries
// ============================================================

func TestSportLifecycle(t *testing.T) {
	env := newTestEnv(t, nil)

	rec := env.do(t, http.MethodPost, "/v1/accounts/"+env.accountID+"/sports", map[string]any{
		"description": "fla x flu",
		"market":      "over 2.5",
		"odds":        "2,00",
		"stake":       "25,00",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	created := decode[entryBody](t, rec)
	assert.Equal(t, "pendente", created.Outcome)
	assert.Equal(t, int64(2500), created.Stake)
	assert.Nil(t, created.SettledAmount)

	rec = env.do(t, http.MethodGet, "/v1/accounts/"+env.accountID+"/pending", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), created.ID)

	rec = env.do(t, http.MethodPost, "/v1/sports/"+created.ID+"/settle", map[string]any{"outcome": "lucro"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	settled := decode[entryBody](t, rec)
	require.NotNil(t, settled.SettledAmount)
	assert.Equal(t, int64(2500), *settled.SettledAmount)
	assert.Equal(t, "R$ 25,00", settled.SettledFormatted)

	rec = env.do(t, http.MethodPost, "/v1/sports/"+created.ID+"/settle", map[string]any{"outcome": "perda"})
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = env.do(t, http.MethodGet, "/v1/accounts/"+env.accountID+"/balance", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "R$ 125,00")

	rec = env.do(t, http.MethodPost, "/v1/sports/"+created.ID+"/reconcile", map[string]any{"outcome": "perda", "settled_amount": "-25,00"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	reconciled := decode[entryBody](t, rec)
	assert.Equal(t, "perda", reconciled.Outcome)
	assert.Equal(t, int64(-2500), *reconciled.SettledAmount)

	rec = env.do(t, http.MethodDelete, "/v1/sports/"+created.ID, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	rec = env.do(t, http.MethodDelete, "/v1/sports/"+created.ID, nil)
	assert.Equal(t, http.StatusOK, rec.Code, "deleting twice succeeds")

	rec = env.do(t, http.MethodGet, "/v1/accounts/"+env.accountID+"/balance", nil)
	assert.Contains(t, rec.Body.String(), "R$ 100,00")
}

func TestCreateSport_Validation(t *testing.T) {
	env := newTestEnv(t, nil)
	path := "/v1/accounts/" + env.accountID + "/sports"

	tests := []struct {
		name  string
		body  any
		field string
	}{
		{"missing description", map[string]any{"market": "x", "odds": "2", "stake": "10"}, "description"},
		{"low odds", map[string]any{"description": "a", "market": "x", "odds": "1,00", "stake": "10"}, "odds"},
		{"zero stake", map[string]any{"description": "a", "market": "x", "odds": "2", "stake": "0"}, "stake"},
		{"unknown field", map[string]any{"description": "a", "extra": true}, "body"},
		{"too long market", map[string]any{"description": "a", "market": strings.Repeat("m", 121), "odds": "2", "stake": "10"}, "market"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := env.do(t, http.MethodPost, path, tt.body)
			require.Equal(t, http.StatusBadRequest, rec.Code, rec.Body.String())
			assert.Equal(t, tt.field, decode[errorBody](t, rec).Field)
		})
	}

	rec := env.do(t, http.MethodPost, "/v1/accounts/missing/sports", map[string]any{
		"description": "a", "market": "x", "odds": "2", "stake": "10",
	})
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestMethodLifecycle(t *testing.T) {
	env := newTestEnv(t, nil)

	rec := env.do(t, http.MethodPost, "/v1/accounts/"+env.accountID+"/methods", map[string]any{
		"method_name": "scalping",
		"platform":    "betfair",
		"stake":       "40",
		"outcome":     "perda",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	created := decode[entryBody](t, rec)
	assert.Equal(t, "perda", created.Outcome)
	require.NotNil(t, created.SettledAmount)
	assert.Equal(t, int64(-4000), *created.SettledAmount)

	rec = env.do(t, http.MethodPut, "/v1/methods/"+created.ID, map[string]any{
		"method_name": "trading",
		"platform":    "betfair",
		"stake":       "50",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	edited := decode[entryBody](t, rec)
	assert.Equal(t, int64(5000), edited.Stake)
	assert.Equal(t, int64(-4000), *edited.SettledAmount, "edit leaves the settlement alone")

	rec = env.do(t, http.MethodPost, "/v1/methods/"+created.ID+"/reconcile", map[string]any{"outcome": "lucro", "settled_amount": "-10"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = env.do(t, http.MethodPost, "/v1/methods/"+created.ID+"/reconcile", map[string]any{"outcome": "empate"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = env.do(t, http.MethodPut, "/v1/methods/missing", map[string]any{"method_name": "a", "platform": "b", "stake": "1"})
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestListEntries(t *testing.T) {
	env := newTestEnv(t, nil)
	for _, stake := range []string{"10", "20"} {
		rec := env.do(t, http.MethodPost, "/v1/accounts/"+env.accountID+"/methods", map[string]any{
			"method_name": "m", "platform": "p", "stake": stake, "outcome": "lucro",
		})
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	}

	rec := env.do(t, http.MethodGet, "/v1/accounts/"+env.accountID+"/entries?category=metodos&status=settled&order=desc&limit=1", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	list := decode[struct {
		Data  []entryBody `json:"data"`
		Total int         `json:"total"`
	}](t, rec)
	assert.Equal(t, 1, list.Total)

	for _, q := range []string{"status=open", "category=poker", "from=ontem", "limit=x", "order=up"} {
		rec = env.do(t, http.MethodGet, "/v1/accounts/"+env.accountID+"/entries?"+q, nil)
		assert.Equal(t, http.StatusBadRequest, rec.Code, q)
	}
}

// ============================================================
// Dashboards
// ============================================================

func TestDashboards(t *testing.T) {
	env := newTestEnv(t, nil)
	rec := env.do(t, http.MethodPost, "/v1/accounts/"+env.accountID+"/methods", map[string]any{
		"method_name": "m", "platform": "p", "stake": "10", "outcome": "lucro", "settled_amount": "15,00",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = env.do(t, http.MethodGet, "/v1/accounts/"+env.accountID+"/dashboard?range=7&mode=acumulado", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	overview := decode[domain.Overview](t, rec)
	assert.Equal(t, 7, overview.Range)
	assert.Len(t, overview.Daily, 7)
	assert.Len(t, overview.Monthly, domain.MonthlyWindowSize)
	assert.Equal(t, int64(1500), overview.Today.TotalPnL)
	assert.Equal(t, "R$ 115,00", overview.CurrentFormatted)

	rec = env.do(t, http.MethodGet, "/v1/accounts/"+env.accountID+"/dashboard?range=12", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, domain.DefaultRange, decode[domain.Overview](t, rec).Range, "unknown range falls back")

	rec = env.do(t, http.MethodGet, "/v1/accounts/"+env.accountID+"/dashboard/metodos", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	cat := decode[domain.CategoryDashboard](t, rec)
	assert.Equal(t, domain.CategoryMethod, cat.Category)
	assert.Len(t, cat.Entries, 1)

	rec = env.do(t, http.MethodGet, "/v1/accounts/"+env.accountID+"/dashboard/poker", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
