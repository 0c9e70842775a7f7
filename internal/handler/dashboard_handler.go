package handler

import (
	"net/http"
	"strconv"

	"github.com/boddenberg/banca-bfa-go/internal/domain"
	"github.com/boddenberg/banca-bfa-go/internal/service"

	"github.com/go-chi/chi/v5"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// ============================================================
// Dashboards — GET /v1/accounts/{accountId}/dashboard[/{category}]
// ?range=7|30|90&mode=diario|acumulado
// ============================================================

// chartParams reads range and mode. Unknown values fall back to the
// defaults, as the dashboard selector does.
func chartParams(r *http.Request) (int, domain.SeriesMode) {
	rangeDays, _ := strconv.Atoi(r.URL.Query().Get("range"))
	return domain.ParseRange(rangeDays), domain.ParseSeriesMode(r.URL.Query().Get("mode"))
}

func overviewHandler(svc *service.DashboardService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/accounts/{accountId}/dashboard")
		defer span.End()

		accountID := chi.URLParam(r, "accountId")
		rangeDays, mode := chartParams(r)
		span.SetAttributes(attribute.String("account.id", accountID), attribute.Int("range", rangeDays))

		overview, err := svc.Overview(ctx, accountID, rangeDays, mode)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, overview)
	}
}

func categoryDashboardHandler(svc *service.DashboardService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/accounts/{accountId}/dashboard/{category}")
		defer span.End()

		accountID := chi.URLParam(r, "accountId")
		raw := chi.URLParam(r, "category")
		category, ok := domain.ParseCategory(raw)
		if !ok {
			category = domain.Category(raw)
		}
		rangeDays, mode := chartParams(r)
		span.SetAttributes(
			attribute.String("account.id", accountID),
			attribute.String("category", string(category)),
			attribute.Int("range", rangeDays),
		)

		dash, err := svc.Category(ctx, accountID, category, rangeDays, mode)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, dash)
	}
}
