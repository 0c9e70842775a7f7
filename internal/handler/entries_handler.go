package handler

import (
	"net/http"

	"github.com/boddenberg/banca-bfa-go/internal/domain"
	"github.com/boddenberg/banca-bfa-go/internal/service"

	"github.com/go-chi/chi/v5"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

type entryResponse struct {
	*domain.Entry
	StakeFormatted   string `json:"stake_formatted"`
	SettledFormatted string `json:"settled_formatted,omitempty"`
}

func newEntryResponse(e *domain.Entry) entryResponse {
	resp := entryResponse{Entry: e, StakeFormatted: domain.FormatBRL(e.Stake)}
	if e.SettledAmount != nil {
		resp.SettledFormatted = domain.FormatBRL(*e.SettledAmount)
	}
	return resp
}

type entryListResponse struct {
	Data  []entryResponse `json:"data"`
	Total int             `json:"total"`
}

func newEntryList(entries []domain.Entry) entryListResponse {
	data := make([]entryResponse, 0, len(entries))
	for i := range entries {
		data = append(data, newEntryResponse(&entries[i]))
	}
	return entryListResponse{Data: data, Total: len(data)}
}

// ============================================================
// Listings — GET /v1/accounts/{accountId}/entries
// ?category=&status=pending|settled&from=&to=&order=asc|desc&limit=
// ============================================================

func listEntriesHandler(svc *service.LedgerService, cal domain.Calendar, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/accounts/{accountId}/entries")
		defer span.End()

		accountID := chi.URLParam(r, "accountId")
		span.SetAttributes(attribute.String("account.id", accountID))

		filter, err := entryFilter(r, cal, accountID)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}

		entries, err := svc.ListEntries(ctx, filter)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, newEntryList(entries))
	}
}

func entryFilter(r *http.Request, cal domain.Calendar, accountID string) (domain.EntryFilter, error) {
	q := r.URL.Query()
	filter := domain.EntryFilter{AccountID: accountID}

	if raw := q.Get("category"); raw != "" {
		cat, ok := domain.ParseCategory(raw)
		if !ok {
			return filter, &domain.ErrValidation{Field: "category", Message: "Categoria inválida."}
		}
		filter.Category = cat
	}

	switch status := domain.StatusFilter(q.Get("status")); status {
	case domain.StatusAny, domain.StatusPending, domain.StatusSettled:
		filter.Status = status
	default:
		return filter, &domain.ErrValidation{Field: "status", Message: "Status inválido."}
	}

	switch q.Get("order") {
	case "", "asc":
	case "desc":
		filter.Descending = true
	default:
		return filter, &domain.ErrValidation{Field: "order", Message: "Ordem inválida."}
	}

	var err error
	if filter.From, err = queryTime(r, cal, "from", false); err != nil {
		return filter, err
	}
	if filter.To, err = queryTime(r, cal, "to", true); err != nil {
		return filter, err
	}
	if filter.Limit, err = queryInt(r, "limit"); err != nil {
		return filter, err
	}
	if filter.Limit < 0 {
		return filter, &domain.ErrValidation{Field: "limit", Message: "número inválido"}
	}
	return filter, nil
}

// GET /v1/accounts/{accountId}/pending?category=esporte
func listPendingHandler(svc *service.LedgerService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/accounts/{accountId}/pending")
		defer span.End()

		accountID := chi.URLParam(r, "accountId")
		category := domain.CategorySport
		if raw := r.URL.Query().Get("category"); raw != "" {
			cat, ok := domain.ParseCategory(raw)
			if !ok {
				handleServiceError(w, &domain.ErrValidation{Field: "category", Message: "Categoria inválida."}, logger)
				return
			}
			category = cat
		}
		span.SetAttributes(attribute.String("account.id", accountID), attribute.String("category", string(category)))

		entries, err := svc.ListPending(ctx, accountID, category)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, newEntryList(entries))
	}
}

// ============================================================
// Esportes
// ============================================================

type sportRequest struct {
	Description flexText `json:"description" validate:"max=200"`
	Market      flexText `json:"market" validate:"max=120"`
	Odds        flexText `json:"odds" validate:"max=16"`
	Stake       flexText `json:"stake" validate:"max=32"`
	Date        string   `json:"date,omitempty" validate:"max=40"`
}

func (req sportRequest) input() domain.SportInput {
	return domain.SportInput{
		Description: string(req.Description),
		Market:      string(req.Market),
		Odds:        string(req.Odds),
		Stake:       string(req.Stake),
		Date:        req.Date,
	}
}

type settleRequest struct {
	Outcome       domain.Outcome `json:"outcome" validate:"required,oneof=lucro perda"`
	SettledAmount flexText       `json:"settled_amount,omitempty" validate:"max=32"`
}

// POST /v1/accounts/{accountId}/sports
func createSportHandler(svc *service.LedgerService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/accounts/{accountId}/sports")
		defer span.End()

		accountID := chi.URLParam(r, "accountId")
		span.SetAttributes(attribute.String("account.id", accountID))

		var req sportRequest
		if err := decodeBody(r, &req); err != nil {
			handleServiceError(w, err, logger)
			return
		}

		entry, err := svc.CreateSport(ctx, accountID, req.input())
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusCreated, newEntryResponse(entry))
	}
}

// PUT /v1/sports/{entryId}
func editSportHandler(svc *service.LedgerService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "PUT /v1/sports/{entryId}")
		defer span.End()

		entryID := chi.URLParam(r, "entryId")
		span.SetAttributes(attribute.String("entry.id", entryID))

		var req sportRequest
		if err := decodeBody(r, &req); err != nil {
			handleServiceError(w, err, logger)
			return
		}

		entry, err := svc.EditSport(ctx, entryID, req.input())
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, newEntryResponse(entry))
	}
}

// POST /v1/sports/{entryId}/settle
func settleSportHandler(svc *service.LedgerService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/sports/{entryId}/settle")
		defer span.End()

		entryID := chi.URLParam(r, "entryId")
		span.SetAttributes(attribute.String("entry.id", entryID))

		var req settleRequest
		if err := decodeBody(r, &req); err != nil {
			handleServiceError(w, err, logger)
			return
		}

		entry, err := svc.SettleSport(ctx, entryID, req.Outcome, string(req.SettledAmount))
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, newEntryResponse(entry))
	}
}

// ============================================================
// Métodos
// ============================================================

type methodRequest struct {
	MethodName    flexText       `json:"method_name" validate:"max=120"`
	Platform      flexText       `json:"platform" validate:"max=120"`
	Stake         flexText       `json:"stake" validate:"max=32"`
	Outcome       domain.Outcome `json:"outcome,omitempty" validate:"omitempty,oneof=lucro perda"`
	SettledAmount flexText       `json:"settled_amount,omitempty" validate:"max=32"`
	Date          string         `json:"date,omitempty" validate:"max=40"`
}

func (req methodRequest) input() domain.MethodInput {
	return domain.MethodInput{
		MethodName:    string(req.MethodName),
		Platform:      string(req.Platform),
		Stake:         string(req.Stake),
		Outcome:       req.Outcome,
		SettledAmount: string(req.SettledAmount),
		Date:          req.Date,
	}
}

// POST /v1/accounts/{accountId}/methods
func createMethodHandler(svc *service.LedgerService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/accounts/{accountId}/methods")
		defer span.End()

		accountID := chi.URLParam(r, "accountId")
		span.SetAttributes(attribute.String("account.id", accountID))

		var req methodRequest
		if err := decodeBody(r, &req); err != nil {
			handleServiceError(w, err, logger)
			return
		}

		entry, err := svc.CreateMethod(ctx, accountID, req.input())
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusCreated, newEntryResponse(entry))
	}
}

// PUT /v1/methods/{entryId}
func editMethodHandler(svc *service.LedgerService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "PUT /v1/methods/{entryId}")
		defer span.End()

		entryID := chi.URLParam(r, "entryId")
		span.SetAttributes(attribute.String("entry.id", entryID))

		var req methodRequest
		if err := decodeBody(r, &req); err != nil {
			handleServiceError(w, err, logger)
			return
		}

		entry, err := svc.EditMethod(ctx, entryID, req.input())
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, newEntryResponse(entry))
	}
}

// ============================================================
// Both categories: reconcile and delete
// ============================================================

func routeFor(category domain.Category) string {
	if category == domain.CategoryMethod {
		return "methods"
	}
	return "sports"
}

// POST /v1/{sports|methods}/{entryId}/reconcile
func reconcileHandler(svc *service.LedgerService, category domain.Category, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/"+routeFor(category)+"/{entryId}/reconcile")
		defer span.End()

		entryID := chi.URLParam(r, "entryId")
		span.SetAttributes(attribute.String("entry.id", entryID))

		var req settleRequest
		if err := decodeBody(r, &req); err != nil {
			handleServiceError(w, err, logger)
			return
		}

		entry, err := svc.ReconcileAmount(ctx, entryID, category, req.Outcome, string(req.SettledAmount))
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, newEntryResponse(entry))
	}
}

// DELETE /v1/{sports|methods}/{entryId}
func deleteEntryHandler(svc *service.LedgerService, category domain.Category, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "DELETE /v1/"+routeFor(category)+"/{entryId}")
		defer span.End()

		entryID := chi.URLParam(r, "entryId")
		span.SetAttributes(attribute.String("entry.id", entryID))

		if err := svc.Delete(ctx, entryID, category); err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, domain.SuccessResponse{Message: "entrada removida", ID: entryID})
	}
}
