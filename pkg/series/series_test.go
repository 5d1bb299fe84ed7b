package series_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/naclonts/marketstream/pkg/models"
	"github.com/naclonts/marketstream/pkg/series"
)

var t0 = time.Date(2024, 5, 1, 14, 30, 0, 0, time.UTC)

func tick(i int) time.Time { return t0.Add(time.Duration(i) * 10 * time.Second) }

func TestRolling_IntervalVolume(t *testing.T) {
	r := series.NewRolling(60)

	p := r.Add(tick(0), 150, 1000)
	assert.Equal(t, 0.0, p.IntervalVolume)

	p = r.Add(tick(1), 151, 1500)
	assert.Equal(t, 500.0, p.IntervalVolume)

	// no clamping when the cumulative figure resets
	p = r.Add(tick(2), 151, 200)
	assert.Equal(t, -1300.0, p.IntervalVolume)
}

func TestRolling_EvictsOldest(t *testing.T) {
	r := series.NewRolling(3)
	for i := 0; i < 5; i++ {
		r.Add(tick(i), float64(i), float64(i*10))
	}

	pts := r.Points()
	require.Len(t, pts, 3)
	assert.Equal(t, []float64{2, 3, 4}, []float64{pts[0].Price, pts[1].Price, pts[2].Price})
	assert.Equal(t, tick(2), pts[0].Time)

	last, ok := r.Last()
	require.True(t, ok)
	assert.Equal(t, 4.0, last.Price)
	assert.Equal(t, 10.0, last.IntervalVolume)
}

func TestRolling_Capacity60(t *testing.T) {
	r := series.NewRolling(series.DefaultCapacity)
	for i := 0; i < 61; i++ {
		r.Add(tick(i), float64(i), 0)
	}

	assert.Equal(t, 60, r.Len())
	pts := r.Points()
	assert.Equal(t, 1.0, pts[0].Price)
	assert.Equal(t, 60.0, pts[59].Price)
}

func TestRolling_Empty(t *testing.T) {
	r := series.NewRolling(0)
	assert.Equal(t, series.DefaultCapacity, r.Cap())
	_, ok := r.Last()
	assert.False(t, ok)
	assert.Empty(t, r.Points())
}

func TestPriceDomain(t *testing.T) {
	tests := []struct {
		name   string
		prices []float64
		want   series.Domain
	}{
		{"range", []float64{100, 110}, series.Domain{Lo: 99.5, Hi: 110.5}},
		{"flat", []float64{200, 200}, series.Domain{Lo: 199, Hi: 201}},
		{"flat negative", []float64{-200}, series.Domain{Lo: -201, Hi: -199}},
		{"flat zero", []float64{0, 0}, series.Domain{Lo: -1, Hi: 1}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := series.PriceDomain(tt.prices)
			assert.InDelta(t, tt.want.Lo, got.Lo, 1e-9)
			assert.InDelta(t, tt.want.Hi, got.Hi, 1e-9)
		})
	}
}

func TestVolumeDomain(t *testing.T) {
	tests := []struct {
		name    string
		volumes []float64
		want    series.Domain
	}{
		{"empty", nil, series.Domain{Lo: 0, Hi: 1}},
		{"all zero", []float64{0, 0, 0}, series.Domain{Lo: 0, Hi: 1}},
		{"all negative", []float64{-5, -1}, series.Domain{Lo: 0, Hi: 1}},
		{"flat", []float64{1000, 1000}, series.Domain{Lo: 995, Hi: 1005}},
		{"range clamps at zero", []float64{0, 500}, series.Domain{Lo: 0, Hi: 525}},
		{"range", []float64{100, 200}, series.Domain{Lo: 95, Hi: 205}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := series.VolumeDomain(tt.volumes)
			assert.InDelta(t, tt.want.Lo, got.Lo, 1e-9)
			assert.InDelta(t, tt.want.Hi, got.Hi, 1e-9)
		})
	}
}

func TestTracker_Scenario(t *testing.T) {
	tr := series.NewTracker(60)
	readings := []struct {
		price, volume float64
	}{
		{150.00, 1000},
		{150.00, 1000},
		{151.20, 1500},
	}

	var intervals []float64
	var trends []series.Trend
	for i, r := range readings {
		u := tr.Add("AAPL", tick(i), r.price, r.volume)
		intervals = append(intervals, u.Point.IntervalVolume)
		trends = append(trends, u.Trend)
	}

	assert.Equal(t, []float64{0, 0, 500}, intervals)
	assert.Equal(t, []series.Trend{series.Neutral, series.Neutral, series.Up}, trends)

	u := tr.Add("AAPL", tick(3), 149, 1600)
	assert.Equal(t, series.Down, u.Trend)
	assert.Equal(t, 4, u.Len)
	assert.Equal(t, "down", tr.Trend("AAPL").String())
}

func TestTracker_ApplySkipsUnavailable(t *testing.T) {
	tr := series.NewTracker(30)
	snap := models.Snapshot{
		"AAPL": models.NewQuote(150, 1000),
		"GC=F": models.UnavailableQuote(0),
	}

	got := tr.Apply(tick(0), snap)

	assert.Contains(t, got, "AAPL")
	assert.NotContains(t, got, "GC=F")
	_, ok := tr.Series("GC=F")
	assert.False(t, ok)

	got = tr.Apply(tick(1), models.Snapshot{"GC=F": models.NewQuote(2300, 10)})
	assert.Equal(t, series.Neutral, got["GC=F"].Trend)
	assert.Equal(t, 0.0, got["GC=F"].Point.IntervalVolume)
}
