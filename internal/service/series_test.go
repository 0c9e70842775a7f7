package service

import (
	"testing"

	"github.com/boddenberg/banca-bfa-go/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func values(points []domain.SeriesPoint) []float64 {
	out := make([]float64, len(points))
	for i, p := range points {
		out[i] = p.Value
	}
	return out
}

func TestBuildSeries_ThreeDayWindow(t *testing.T) {
	days := []string{"2025-08-01", "2025-08-02", "2025-08-03"}
	obs := map[string]int64{"2025-08-01": -1000, "2025-08-03": 500}

	discrete := BuildSeries(obs, days, SeriesOptions{Mode: domain.SeriesDiscrete})
	assert.Equal(t, []float64{-10, 0, 5}, values(discrete))

	cumulative := BuildSeries(obs, days, SeriesOptions{Mode: domain.SeriesCumulative})
	assert.Equal(t, []float64{-10, -10, -5}, values(cumulative))
	assert.Equal(t, int64(-500), cumulative[2].Cents)
}

func TestBuildSeries_MissingBucketIsZero(t *testing.T) {
	points := BuildSeries(map[string]int64{"x": 7}, []string{"a", "b"}, SeriesOptions{})
	require.Len(t, points, 2)
	for _, p := range points {
		assert.Equal(t, 0.0, p.Value)
		assert.Equal(t, int64(0), p.Cents)
	}
}

func TestBuildSeries_CumulativeLastEqualsSum(t *testing.T) {
	keys := []string{"01", "02", "03", "04", "05", "06"}
	obs := map[string]int64{"01": 1999, "02": -333, "04": 10001, "06": -7}

	discrete := BuildSeries(obs, keys, SeriesOptions{Mode: domain.SeriesDiscrete})
	cumulative := BuildSeries(obs, keys, SeriesOptions{Mode: domain.SeriesCumulative})

	var sum int64
	for _, p := range discrete {
		sum += p.Cents
	}
	assert.Equal(t, sum, cumulative[len(cumulative)-1].Cents)
	assert.Equal(t, domain.ToMajor(sum), cumulative[len(cumulative)-1].Value)
}

func TestBuildSeries_DropZero(t *testing.T) {
	months := []string{"2025-06", "2025-07", "2025-08"}
	obs := map[string]int64{"2025-06": 1200, "2025-08": -300}

	points := MonthlySeries(obs, months)
	require.Len(t, points, 2)
	assert.Equal(t, "2025-06", points[0].Key)
	assert.Equal(t, "jun/25", points[0].Label)
	assert.Equal(t, "2025-08", points[1].Key)

	daily := DailySeries(map[string]int64{}, []string{"2025-08-01", "2025-08-02"}, domain.SeriesDiscrete)
	assert.Len(t, daily, 2)
	assert.Equal(t, "01/08", daily[0].Label)
}

func TestBuildSeries_LabelDoesNotAffectOrder(t *testing.T) {
	keys := []string{"2025-01", "2025-02", "2025-03"}
	obs := map[string]int64{"2025-01": 100, "2025-02": 200, "2025-03": 300}

	points := BuildSeries(obs, keys, SeriesOptions{
		Mode:  domain.SeriesCumulative,
		Label: func(string) string { return "same" },
	})
	assert.Equal(t, []float64{1, 3, 6}, values(points))
	for i, p := range points {
		assert.Equal(t, keys[i], p.Key)
	}
}

func TestRollUpMonths(t *testing.T) {
	days := map[string]int64{"2025-07-31": 100, "2025-08-01": 200, "2025-08-15": -50}
	assert.Equal(t, map[string]int64{"2025-07": 100, "2025-08": 150}, rollUpMonths(days))
}
