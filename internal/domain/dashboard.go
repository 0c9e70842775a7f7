package domain

// ============================================================
// Dashboard payloads
// ============================================================

// SeriesMode selects discrete or running-total values.
type SeriesMode string

const (
	SeriesDiscrete   SeriesMode = "diario"
	SeriesCumulative SeriesMode = "acumulado"
)

// ParseSeriesMode defaults to discrete for anything but "acumulado".
func ParseSeriesMode(s string) SeriesMode {
	if s == string(SeriesCumulative) {
		return SeriesCumulative
	}
	return SeriesDiscrete
}

// Ranges offered by the daily chart; DefaultRange applies otherwise.
var Ranges = []int{7, 30, 90}

const (
	DefaultRange      = 7
	MonthlyWindowSize = 12
)

// ParseRange keeps 7, 30 or 90 and falls back to DefaultRange.
func ParseRange(days int) int {
	for _, r := range Ranges {
		if days == r {
			return r
		}
	}
	return DefaultRange
}

// SeriesPoint is one chart bucket.
type SeriesPoint struct {
	Key   string  `json:"key"`
	Label string  `json:"label"`
	Value float64 `json:"value"` // reais
	Cents int64   `json:"cents"`
}

// KPI summarises a filtered set of entries.
// ROI is nil when TotalStake is zero and must render as a placeholder.
type KPI struct {
	Count      int      `json:"count"`
	Pending    int      `json:"pending"`
	TotalPnL   int64    `json:"total_pnl"`
	TotalStake int64    `json:"total_stake"`
	ROI        *float64 `json:"roi"`
}

// IsProfit drives the profit/loss styling: zero counts as profit.
func (k KPI) IsProfit() bool {
	return k.TotalPnL >= 0
}

// KPICard is a KPI with its presentation strings.
type KPICard struct {
	KPI
	PnLFormatted string `json:"pnl_formatted"`
	ROIFormatted string `json:"roi_formatted"`
	Profit       bool   `json:"profit"`
}

// EntryView is an entry prepared for a dashboard list.
type EntryView struct {
	Entry
	StakeFormatted   string `json:"stake_formatted"`
	SettledFormatted string `json:"settled_formatted,omitempty"`
	Age              string `json:"age"`
}

// Overview is the main dashboard (all categories).
type Overview struct {
	AccountID        string           `json:"account_id"`
	Range            int              `json:"range"`
	Mode             SeriesMode       `json:"mode"`
	Balance          *Balance         `json:"balance"`
	OpeningFormatted string           `json:"opening_formatted"`
	CurrentFormatted string           `json:"current_formatted"`
	Today            KPICard          `json:"today"`
	Daily            []SeriesPoint    `json:"daily"`
	Monthly          []SeriesPoint    `json:"monthly"`
	TodayCounts      map[Category]int `json:"today_counts"`
}

// CategoryDashboard is the per-category dashboard (esportes or metodos).
type CategoryDashboard struct {
	AccountID string        `json:"account_id"`
	Category  Category      `json:"category"`
	Range     int           `json:"range"`
	Mode      SeriesMode    `json:"mode"`
	Today     KPICard       `json:"today"`
	Daily     []SeriesPoint `json:"daily"`
	Monthly   []SeriesPoint `json:"monthly"`
	Pending   []EntryView   `json:"pending,omitempty"`
	Entries   []EntryView   `json:"entries"`
}
