package handler

import (
	"net/http"

	"github.com/boddenberg/banca-bfa-go/internal/domain"
	"github.com/boddenberg/banca-bfa-go/internal/service"

	"github.com/go-chi/chi/v5"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// ============================================================
// Banca — GET /v1/accounts/{accountId}[/balance]
// ============================================================

type accountResponse struct {
	*domain.Account
	OpeningFormatted string `json:"opening_formatted"`
}

type balanceResponse struct {
	*domain.Balance
	OpeningFormatted string `json:"opening_formatted"`
	CurrentFormatted string `json:"current_formatted"`
}

func getAccountHandler(svc *service.AccountService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/accounts/{accountId}")
		defer span.End()

		accountID := chi.URLParam(r, "accountId")
		span.SetAttributes(attribute.String("account.id", accountID))

		acct, err := svc.GetAccount(ctx, accountID)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, accountResponse{Account: acct, OpeningFormatted: domain.FormatBRL(acct.OpeningBalance)})
	}
}

func getBalanceHandler(svc *service.AccountService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/accounts/{accountId}/balance")
		defer span.End()

		accountID := chi.URLParam(r, "accountId")
		span.SetAttributes(attribute.String("account.id", accountID))

		bal, err := svc.GetBalance(ctx, accountID)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, balanceResponse{
			Balance:          bal,
			OpeningFormatted: domain.FormatBRL(bal.Opening),
			CurrentFormatted: domain.FormatBRL(bal.Current),
		})
	}
}

// ============================================================
// Saldo inicial — PUT /v1/accounts/{accountId}/opening-balance
// ============================================================

type openingBalanceRequest struct {
	OpeningBalance flexText `json:"opening_balance" validate:"required,max=32"`
}

func updateOpeningBalanceHandler(svc *service.AccountService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "PUT /v1/accounts/{accountId}/opening-balance")
		defer span.End()

		accountID := chi.URLParam(r, "accountId")
		span.SetAttributes(attribute.String("account.id", accountID))

		var req openingBalanceRequest
		if err := decodeBody(r, &req); err != nil {
			handleServiceError(w, err, logger)
			return
		}

		acct, err := svc.UpdateOpeningBalance(ctx, accountID, string(req.OpeningBalance))
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, accountResponse{Account: acct, OpeningFormatted: domain.FormatBRL(acct.OpeningBalance)})
	}
}
