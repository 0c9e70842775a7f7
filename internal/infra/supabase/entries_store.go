package supabase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"time"

	"github.com/boddenberg/banca-bfa-go/internal/domain"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// ============================================================
// Entradas — CRUD and conditional settlement via PostgREST
// ============================================================

const tableEntradas = "entradas"

// entradaRow maps the entradas columns. Money columns hold cents.
type entradaRow struct {
	ID             string    `json:"id"`
	BancaID        string    `json:"banca_id"`
	Tipo           string    `json:"tipo"`
	Data           time.Time `json:"data"`
	Descricao      *string   `json:"descricao"`
	Mercado        *string   `json:"mercado"`
	Odd            *float64  `json:"odd"`
	Stake          int64     `json:"stake"`
	Resultado      string    `json:"resultado"`
	ValorLiquidado *int64    `json:"valor_liquidado"`
	Metodo         *string   `json:"metodo"`
	Plataforma     *string   `json:"plataforma"`
}

func (r entradaRow) toDomain() domain.Entry {
	e := domain.Entry{
		ID:            r.ID,
		AccountID:     r.BancaID,
		Category:      domain.Category(r.Tipo),
		Timestamp:     r.Data,
		Stake:         r.Stake,
		Outcome:       domain.Outcome(r.Resultado),
		Odds:          r.Odd,
		SettledAmount: r.ValorLiquidado,
	}
	if r.Descricao != nil {
		e.Description = *r.Descricao
	}
	if r.Mercado != nil {
		e.Market = *r.Mercado
	}
	if r.Metodo != nil {
		e.MethodName = *r.Metodo
	}
	if r.Plataforma != nil {
		e.Platform = *r.Plataforma
	}
	return e
}

func entryToRow(e *domain.Entry) map[string]any {
	row := map[string]any{
		"id":              e.ID,
		"banca_id":        e.AccountID,
		"tipo":            string(e.Category),
		"data":            e.Timestamp.UTC().Format(time.RFC3339Nano),
		"stake":           e.Stake,
		"resultado":       string(e.Outcome),
		"valor_liquidado": e.SettledAmount,
	}
	switch e.Category {
	case domain.CategorySport:
		row["descricao"] = e.Description
		row["mercado"] = e.Market
		if e.Odds != nil {
			row["odd"] = *e.Odds
		}
	case domain.CategoryMethod:
		row["metodo"] = e.MethodName
		row["plataforma"] = e.Platform
	}
	return row
}

func patchToRow(p domain.EntryPatch) map[string]any {
	row := map[string]any{}
	if p.Description != nil {
		row["descricao"] = *p.Description
	}
	if p.Market != nil {
		row["mercado"] = *p.Market
	}
	if p.Odds != nil {
		row["odd"] = *p.Odds
	}
	if p.MethodName != nil {
		row["metodo"] = *p.MethodName
	}
	if p.Platform != nil {
		row["plataforma"] = *p.Platform
	}
	if p.Stake != nil {
		row["stake"] = *p.Stake
	}
	if p.Timestamp != nil {
		row["data"] = p.Timestamp.UTC().Format(time.RFC3339Nano)
	}
	return row
}

func entryKey(id string, category domain.Category) url.Values {
	return url.Values{
		"id":   {"eq." + id},
		"tipo": {"eq." + string(category)},
	}
}

func (c *Client) InsertEntry(ctx context.Context, e *domain.Entry) (*domain.Entry, error) {
	ctx, span := tracer.Start(ctx, "Supabase.InsertEntry")
	defer span.End()
	span.SetAttributes(
		attribute.String("account.id", e.AccountID),
		attribute.String("entry.category", string(e.Category)),
	)

	var rows []entradaRow
	err := c.write(ctx, "supabase.insert_entry", tableEntradas, func() error {
		body, err := c.doPost(ctx, tableEntradas, entryToRow(e))
		if err != nil {
			return err
		}
		if err := json.Unmarshal(body, &rows); err != nil {
			return fmt.Errorf("decode entrada: %w", err)
		}
		if len(rows) == 0 {
			return errors.New("insert returned no rows")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	out := rows[0].toDomain()
	c.logger.Debug("supabase: entry inserted",
		zap.String("entry_id", out.ID),
		zap.String("category", string(out.Category)),
	)
	return &out, nil
}

func (c *Client) GetEntry(ctx context.Context, id string, category domain.Category) (*domain.Entry, error) {
	ctx, span := tracer.Start(ctx, "Supabase.GetEntry")
	defer span.End()
	span.SetAttributes(attribute.String("entry.id", id))

	var rows []entradaRow
	q := entryKey(id, category)
	q.Set("limit", "1")
	if err := c.read(ctx, "supabase.get_entry", tableEntradas, q, &rows); err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, &domain.ErrNotFound{Resource: "entry", ID: id}
	}
	e := rows[0].toDomain()
	return &e, nil
}

func (c *Client) UpdateEntryFields(ctx context.Context, id string, category domain.Category, patch domain.EntryPatch) (int64, error) {
	ctx, span := tracer.Start(ctx, "Supabase.UpdateEntryFields")
	defer span.End()
	span.SetAttributes(attribute.String("entry.id", id))

	row := patchToRow(patch)
	if len(row) == 0 {
		if _, err := c.GetEntry(ctx, id, category); err != nil {
			var nf *domain.ErrNotFound
			if errors.As(err, &nf) {
				return 0, nil
			}
			return 0, err
		}
		return 1, nil
	}
	return c.patchEntries(ctx, "supabase.update_entry", entryKey(id, category), row)
}

// SettleEntry resolves the entry only while resultado is still pendente.
func (c *Client) SettleEntry(ctx context.Context, id string, category domain.Category, s domain.Settlement) (int64, error) {
	ctx, span := tracer.Start(ctx, "Supabase.SettleEntry")
	defer span.End()
	span.SetAttributes(attribute.String("entry.id", id), attribute.String("entry.outcome", string(s.Outcome)))

	q := entryKey(id, category)
	q.Set("resultado", "eq."+string(domain.OutcomePending))
	return c.patchEntries(ctx, "supabase.settle_entry", q, settlementRow(s))
}

// ReconcileEntry rewrites the settlement of an already resolved entry.
func (c *Client) ReconcileEntry(ctx context.Context, id string, category domain.Category, s domain.Settlement) (int64, error) {
	ctx, span := tracer.Start(ctx, "Supabase.ReconcileEntry")
	defer span.End()
	span.SetAttributes(attribute.String("entry.id", id), attribute.String("entry.outcome", string(s.Outcome)))

	q := entryKey(id, category)
	q.Set("resultado", "neq."+string(domain.OutcomePending))
	return c.patchEntries(ctx, "supabase.reconcile_entry", q, settlementRow(s))
}

func settlementRow(s domain.Settlement) map[string]any {
	return map[string]any{
		"resultado":       string(s.Outcome),
		"valor_liquidado": s.Amount,
	}
}

func (c *Client) patchEntries(ctx context.Context, op string, q url.Values, row map[string]any) (int64, error) {
	var n int64
	path := tableEntradas + "?" + q.Encode()
	err := c.write(ctx, op, tableEntradas, func() error {
		body, err := c.doPatch(ctx, path, row)
		if err != nil {
			return err
		}
		n, err = countRows(body)
		return err
	})
	return n, err
}

func (c *Client) DeleteEntry(ctx context.Context, id string, category domain.Category) error {
	ctx, span := tracer.Start(ctx, "Supabase.DeleteEntry")
	defer span.End()
	span.SetAttributes(attribute.String("entry.id", id))

	path := tableEntradas + "?" + entryKey(id, category).Encode()
	return c.write(ctx, "supabase.delete_entry", tableEntradas, func() error {
		return c.doDelete(ctx, path)
	})
}

func (c *Client) ListEntries(ctx context.Context, f domain.EntryFilter) ([]domain.Entry, error) {
	ctx, span := tracer.Start(ctx, "Supabase.ListEntries")
	defer span.End()
	span.SetAttributes(attribute.String("account.id", f.AccountID))

	q := url.Values{"banca_id": {"eq." + f.AccountID}}
	if f.Category != "" {
		q.Set("tipo", "eq."+string(f.Category))
	}
	switch f.Status {
	case domain.StatusPending:
		q.Set("resultado", "eq."+string(domain.OutcomePending))
	case domain.StatusSettled:
		q.Set("resultado", "neq."+string(domain.OutcomePending))
	}
	if f.From != nil {
		q.Add("data", "gte."+f.From.UTC().Format(time.RFC3339Nano))
	}
	if f.To != nil {
		q.Add("data", "lte."+f.To.UTC().Format(time.RFC3339Nano))
	}
	if f.Descending {
		q.Set("order", "data.desc,id.desc")
	} else {
		q.Set("order", "data.asc,id.asc")
	}
	var rows []entradaRow
	for {
		size := c.pageSize
		if f.Limit > 0 && f.Limit-len(rows) < size {
			size = f.Limit - len(rows)
		}
		q.Set("limit", strconv.Itoa(size))
		if len(rows) > 0 {
			q.Set("offset", strconv.Itoa(len(rows)))
		}

		var page []entradaRow
		if err := c.read(ctx, "supabase.list_entries", tableEntradas, q, &page); err != nil {
			return nil, err
		}
		rows = append(rows, page...)
		// PostgREST truncates silently at max-rows, which may be below
		// size, so only an empty page ends the scan.
		if len(page) == 0 || (f.Limit > 0 && len(rows) >= f.Limit) {
			break
		}
	}

	out := make([]domain.Entry, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.toDomain())
	}
	return out, nil
}
