package supabase

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"time"

	"github.com/boddenberg/banca-bfa-go/internal/domain"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// ============================================================
// Banca — reads and opening balance edit via PostgREST
// ============================================================

const (
	tableBanca  = "banca"
	viewBalance = "vw_banca_saldo"
)

type bancaRow struct {
	ID           string    `json:"id"`
	SaldoInicial int64     `json:"saldo_inicial"` // cents
	CreatedAt    time.Time `json:"created_at"`
}

func (r bancaRow) toDomain() *domain.Account {
	return &domain.Account{
		ID:             r.ID,
		OpeningBalance: r.SaldoInicial,
		CreatedAt:      r.CreatedAt,
	}
}

func (c *Client) GetAccount(ctx context.Context, accountID string) (*domain.Account, error) {
	ctx, span := tracer.Start(ctx, "Supabase.GetAccount")
	defer span.End()
	span.SetAttributes(attribute.String("account.id", accountID))

	var rows []bancaRow
	q := url.Values{"id": {"eq." + accountID}, "limit": {"1"}}
	if err := c.read(ctx, "supabase.get_account", tableBanca, q, &rows); err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, &domain.ErrNotFound{Resource: "account", ID: accountID}
	}
	return rows[0].toDomain(), nil
}

// FirstAccount returns the earliest-created banca.
func (c *Client) FirstAccount(ctx context.Context) (*domain.Account, error) {
	ctx, span := tracer.Start(ctx, "Supabase.FirstAccount")
	defer span.End()

	var rows []bancaRow
	q := url.Values{"order": {"created_at.asc"}, "limit": {"1"}}
	if err := c.read(ctx, "supabase.first_account", tableBanca, q, &rows); err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, &domain.ErrNotFound{Resource: "account", ID: "first"}
	}
	return rows[0].toDomain(), nil
}

func (c *Client) UpdateOpeningBalance(ctx context.Context, accountID string, cents int64) (*domain.Account, error) {
	ctx, span := tracer.Start(ctx, "Supabase.UpdateOpeningBalance")
	defer span.End()
	span.SetAttributes(attribute.String("account.id", accountID))

	var rows []bancaRow
	path := tableBanca + "?" + url.Values{"id": {"eq." + accountID}}.Encode()
	err := c.write(ctx, "supabase.update_opening_balance", tableBanca, func() error {
		body, err := c.doPatch(ctx, path, map[string]any{"saldo_inicial": cents})
		if err != nil {
			return err
		}
		if len(body) == 0 {
			return nil
		}
		if err := json.Unmarshal(body, &rows); err != nil {
			return fmt.Errorf("decode banca: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, &domain.ErrNotFound{Resource: "account", ID: accountID}
	}

	c.logger.Info("supabase: opening balance updated",
		zap.String("account_id", accountID),
		zap.Int64("opening_balance", cents),
	)
	return rows[0].toDomain(), nil
}

// SumSettled reads the server-side total of valor_liquidado from
// vw_banca_saldo, so the result is not bounded by the PostgREST max-rows cap.
func (c *Client) SumSettled(ctx context.Context, accountID string) (int64, error) {
	ctx, span := tracer.Start(ctx, "Supabase.SumSettled")
	defer span.End()
	span.SetAttributes(attribute.String("account.id", accountID))

	var rows []struct {
		Total int64 `json:"total_liquidado"`
	}
	q := url.Values{
		"select":   {"total_liquidado"},
		"banca_id": {"eq." + accountID},
		"limit":    {"1"},
	}
	if err := c.read(ctx, "supabase.sum_settled", viewBalance, q, &rows); err != nil {
		return 0, err
	}
	if len(rows) == 0 {
		return 0, nil
	}
	return rows[0].Total, nil
}
