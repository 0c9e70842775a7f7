package supabase

import (
	"context"
	"net/url"
	"time"

	"github.com/boddenberg/banca-bfa-go/internal/domain"

	"go.opentelemetry.io/otel/attribute"
)

// ============================================================
// P/L views — vw_pnl_diario / vw_pnl_mensal
// ============================================================

const (
	viewDaily   = "vw_pnl_diario"
	viewMonthly = "vw_pnl_mensal"
)

// ViewZone is the zone schema.sql buckets the views in. Calendars in any
// other zone must aggregate raw rows instead.
const ViewZone = "America/Sao_Paulo"

// pnlRow is one view bucket. dia and mes are dates; mes is the first day of
// the month. pnl is in cents.
type pnlRow struct {
	Dia string `json:"dia"`
	Mes string `json:"mes"`
	PnL int64  `json:"pnl"`
}

// DailyPnL reads per-day sums keyed "YYYY-MM-DD". The view buckets by local
// date in the database, so the bounds are compared as local day keys.
func (c *Client) DailyPnL(ctx context.Context, accountID string, category domain.Category, from, to time.Time) (map[string]int64, error) {
	ctx, span := tracer.Start(ctx, "Supabase.DailyPnL")
	defer span.End()
	span.SetAttributes(attribute.String("account.id", accountID))

	q := viewQuery(accountID, category, "dia")
	q.Add("dia", "gte."+c.cal.DayKey(from))
	q.Add("dia", "lte."+c.cal.DayKey(to))

	var rows []pnlRow
	if err := c.read(ctx, "supabase.daily_pnl", viewDaily, q, &rows); err != nil {
		return nil, err
	}
	out := make(map[string]int64, len(rows))
	for _, r := range rows {
		out[r.Dia] += r.PnL
	}
	return out, nil
}

// MonthlyPnL reads per-month sums keyed "YYYY-MM".
func (c *Client) MonthlyPnL(ctx context.Context, accountID string, category domain.Category, from, to time.Time) (map[string]int64, error) {
	ctx, span := tracer.Start(ctx, "Supabase.MonthlyPnL")
	defer span.End()
	span.SetAttributes(attribute.String("account.id", accountID))

	q := viewQuery(accountID, category, "mes")
	q.Add("mes", "gte."+c.cal.MonthKey(from)+"-01")
	q.Add("mes", "lte."+c.cal.MonthKey(to)+"-01")

	var rows []pnlRow
	if err := c.read(ctx, "supabase.monthly_pnl", viewMonthly, q, &rows); err != nil {
		return nil, err
	}
	out := make(map[string]int64, len(rows))
	for _, r := range rows {
		if len(r.Mes) < len(domain.MonthKeyLayout) {
			continue
		}
		out[r.Mes[:len(domain.MonthKeyLayout)]] += r.PnL
	}
	return out, nil
}

// viewQuery selects one bucket column. Without a category the view yields a
// row per tipo, summed by the caller.
func viewQuery(accountID string, category domain.Category, bucket string) url.Values {
	q := url.Values{
		"select":   {bucket + ",pnl"},
		"banca_id": {"eq." + accountID},
	}
	if category != "" {
		q.Set("tipo", "eq."+string(category))
	}
	return q
}
