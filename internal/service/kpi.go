package service

import (
	"fmt"

	"github.com/boddenberg/banca-bfa-go/internal/domain"
)

// Aggregate reduces entries into summary figures. Pending entries are only
// counted in Pending and never contribute to sums. ROI is nil when nothing
// was staked.
func Aggregate(entries []domain.Entry) domain.KPI {
	var k domain.KPI
	for i := range entries {
		e := &entries[i]
		if e.IsPending() {
			k.Pending++
			continue
		}
		k.Count++
		k.TotalPnL += e.Settled()
		k.TotalStake += e.Stake
	}
	if k.TotalStake != 0 {
		roi := float64(k.TotalPnL) / float64(k.TotalStake)
		k.ROI = &roi
	}
	return k
}

// FormatROI renders a ratio as a percentage with one decimal, or "—".
func FormatROI(roi *float64) string {
	if roi == nil {
		return "—"
	}
	return fmt.Sprintf("%.1f%%", *roi*100)
}

// NewKPICard attaches presentation strings to a KPI.
func NewKPICard(k domain.KPI) domain.KPICard {
	return domain.KPICard{
		KPI:          k,
		PnLFormatted: domain.FormatBRL(k.TotalPnL),
		ROIFormatted: FormatROI(k.ROI),
		Profit:       k.IsProfit(),
	}
}
