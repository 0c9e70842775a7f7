package service

import (
	"github.com/boddenberg/banca-bfa-go/internal/domain"
)

// SeriesOptions controls how BuildSeries renders its buckets.
type SeriesOptions struct {
	Mode domain.SeriesMode
	// Label renders a bucket key for display. Defaults to the key itself.
	Label func(key string) string
	// DropZero removes exact-zero points after accumulation. Monthly charts
	// set it to hide months without activity; daily charts keep every day.
	DropZero bool
}

// BuildSeries fills the expected bucket keys from sparse observations.
//
// keys must be in ascending order (DayRange/MonthRange output). A key with
// no observation contributes 0. In cumulative mode each point carries the
// running total so far, accumulated in cents.
func BuildSeries(observations map[string]int64, keys []string, opts SeriesOptions) []domain.SeriesPoint {
	label := opts.Label
	if label == nil {
		label = func(k string) string { return k }
	}

	points := make([]domain.SeriesPoint, 0, len(keys))
	var running int64
	for _, k := range keys {
		v := observations[k]
		if opts.Mode == domain.SeriesCumulative {
			running += v
			v = running
		}
		if opts.DropZero && v == 0 {
			continue
		}
		points = append(points, domain.SeriesPoint{
			Key:   k,
			Label: label(k),
			Value: domain.ToMajor(v),
			Cents: v,
		})
	}
	return points
}

// DailySeries is BuildSeries over day keys with "DD/MM" labels.
func DailySeries(observations map[string]int64, days []string, mode domain.SeriesMode) []domain.SeriesPoint {
	return BuildSeries(observations, days, SeriesOptions{Mode: mode, Label: domain.DayLabel})
}

// MonthlySeries is BuildSeries over month keys with "ago/25" labels and
// zero months dropped.
func MonthlySeries(observations map[string]int64, months []string) []domain.SeriesPoint {
	return BuildSeries(observations, months, SeriesOptions{
		Mode:     domain.SeriesDiscrete,
		Label:    domain.MonthLabel,
		DropZero: true,
	})
}

// bucketByDay sums settled amounts per local day key.
func bucketByDay(cal domain.Calendar, entries []domain.Entry) map[string]int64 {
	out := make(map[string]int64)
	for i := range entries {
		if entries[i].IsPending() {
			continue
		}
		out[cal.DayKey(entries[i].Timestamp)] += entries[i].Settled()
	}
	return out
}

// rollUpMonths folds day buckets into month buckets.
func rollUpMonths(days map[string]int64) map[string]int64 {
	out := make(map[string]int64)
	for k, v := range days {
		if len(k) < len(domain.MonthKeyLayout) {
			continue
		}
		out[k[:len(domain.MonthKeyLayout)]] += v
	}
	return out
}
