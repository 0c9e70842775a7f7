package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/boddenberg/banca-bfa-go/internal/domain"
	"github.com/boddenberg/banca-bfa-go/internal/infra/observability"
	"github.com/boddenberg/banca-bfa-go/internal/service"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.uber.org/zap"
)

var tracer = otel.Tracer("handler")

// Pinger reports whether the store is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// circuitReporter is implemented by stores guarded by a circuit breaker.
type circuitReporter interface {
	CircuitState() string
}

// Services bundles what the routes call. Nil services leave their routes
// answering 503.
type Services struct {
	Ledger    *service.LedgerService
	Accounts  *service.AccountService
	Dashboard *service.DashboardService
	Auth      *service.OperatorAuth
	Store     Pinger
	StoreName string
	Calendar  domain.Calendar
}

// NewRouter creates the HTTP router with all routes and middleware.
func NewRouter(svc Services, metrics *observability.Metrics, logger *zap.Logger) http.Handler {
	r := chi.NewRouter()

	// --- Middleware ---
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(observability.ZapLoggerMiddleware(logger))
	r.Use(observability.TracingMiddleware)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Heartbeat("/ping"))

	// --- Operational endpoints ---
	r.Get("/healthz", healthzHandler(svc, logger))
	r.Get("/readyz", readyzHandler(svc))
	r.Handle("/metrics", promhttp.HandlerFor(metrics.Registry, promhttp.HandlerOpts{}))

	// --- API v1 ---
	r.Route("/v1", func(r chi.Router) {
		r.Use(OperatorAuthMiddleware(svc.Auth, logger))

		// Counters snapshot
		r.Get("/metrics/ledger", ledgerMetricsHandler(metrics))

		if svc.Ledger == nil || svc.Accounts == nil || svc.Dashboard == nil {
			r.Handle("/*", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				writeError(w, http.StatusServiceUnavailable, "ledger service unavailable: store not configured")
			}))
			return
		}

		// Banca
		r.Get("/accounts/{accountId}", getAccountHandler(svc.Accounts, logger))
		r.Get("/accounts/{accountId}/balance", getBalanceHandler(svc.Accounts, logger))
		r.Put("/accounts/{accountId}/opening-balance", updateOpeningBalanceHandler(svc.Accounts, logger))

		// Dashboards
		r.Get("/accounts/{accountId}/dashboard", overviewHandler(svc.Dashboard, logger))
		r.Get("/accounts/{accountId}/dashboard/{category}", categoryDashboardHandler(svc.Dashboard, logger))

		// Entries
		r.Get("/accounts/{accountId}/entries", listEntriesHandler(svc.Ledger, svc.Calendar, logger))
		r.Get("/accounts/{accountId}/pending", listPendingHandler(svc.Ledger, logger))

		// Esportes
		r.Post("/accounts/{accountId}/sports", createSportHandler(svc.Ledger, logger))
		r.Put("/sports/{entryId}", editSportHandler(svc.Ledger, logger))
		r.Post("/sports/{entryId}/settle", settleSportHandler(svc.Ledger, logger))
		r.Post("/sports/{entryId}/reconcile", reconcileHandler(svc.Ledger, domain.CategorySport, logger))
		r.Delete("/sports/{entryId}", deleteEntryHandler(svc.Ledger, domain.CategorySport, logger))

		// Métodos
		r.Post("/accounts/{accountId}/methods", createMethodHandler(svc.Ledger, logger))
		r.Put("/methods/{entryId}", editMethodHandler(svc.Ledger, logger))
		r.Post("/methods/{entryId}/reconcile", reconcileHandler(svc.Ledger, domain.CategoryMethod, logger))
		r.Delete("/methods/{entryId}", deleteEntryHandler(svc.Ledger, domain.CategoryMethod, logger))
	})

	return r
}

// ============================================================
// Operational
// ============================================================

func healthzHandler(svc Services, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		now := time.Now().Format(time.RFC3339)

		services := []domain.ServiceHealth{
			{Name: "banca-api", Status: "healthy", LatencyMs: 0, LastChecked: now},
		}

		if svc.Store != nil {
			start := time.Now()
			err := svc.Store.Ping(ctx)
			latency := time.Since(start).Milliseconds()
			status := "healthy"
			if err != nil {
				status = "degraded"
				logger.Warn("healthz: store ping failed", zap.Error(err))
			}
			if cr, ok := svc.Store.(circuitReporter); ok && cr.CircuitState() != "closed" {
				status = "degraded"
			}
			name := svc.StoreName
			if name == "" {
				name = "store"
			}
			services = append(services, domain.ServiceHealth{
				Name: name, Status: status, LatencyMs: latency, LastChecked: now,
			})
		}

		overallStatus := "healthy"
		for _, s := range services {
			if s.Status == "degraded" {
				overallStatus = "degraded"
			}
		}

		writeJSON(w, http.StatusOK, domain.HealthStatus{Status: overallStatus, Services: services})
	}
}

func readyzHandler(svc Services) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc.Store != nil {
			ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
			defer cancel()
			if err := svc.Store.Ping(ctx); err != nil {
				writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "not ready", "error": err.Error()})
				return
			}
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
	}
}

func ledgerMetricsHandler(metrics *observability.Metrics) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, metrics.Snapshot())
	}
}
