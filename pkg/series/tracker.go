package series

import (
	"time"

	"github.com/naclonts/marketstream/pkg/models"
)

type Trend int

const (
	Neutral Trend = iota
	Up
	Down
)

func (t Trend) String() string {
	switch t {
	case Up:
		return "up"
	case Down:
		return "down"
	default:
		return "neutral"
	}
}

// TrendOf compares the newest point with the one before it.
func TrendOf(points []Point) Trend {
	if len(points) < 2 {
		return Neutral
	}
	last, prev := points[len(points)-1].Price, points[len(points)-2].Price
	switch {
	case last > prev:
		return Up
	case last < prev:
		return Down
	default:
		return Neutral
	}
}

// Update is what a renderer needs after one accepted reading.
type Update struct {
	Point      Point
	Trend      Trend
	Len        int
	PriceAxis  Domain
	VolumeAxis Domain
}

// Tracker owns one Rolling per symbol and applies snapshots to them.
type Tracker struct {
	capacity int
	series   map[string]*Rolling
	trend    map[string]Trend
}

func NewTracker(capacity int) *Tracker {
	return &Tracker{
		capacity: capacity,
		series:   make(map[string]*Rolling),
		trend:    make(map[string]Trend),
	}
}

// Apply adds every available quote in snap. Unavailable quotes leave the series untouched.
func (t *Tracker) Apply(at time.Time, snap models.Snapshot) map[string]Update {
	out := make(map[string]Update, len(snap))
	for sym, q := range snap {
		if !q.Available {
			continue
		}
		out[sym] = t.Add(sym, at, q.Price, q.Volume)
	}
	return out
}

func (t *Tracker) Add(symbol string, at time.Time, price, cumulativeVolume float64) Update {
	r, ok := t.series[symbol]
	if !ok {
		r = NewRolling(t.capacity)
		t.series[symbol] = r
	}
	p := r.Add(at, price, cumulativeVolume)

	pts := r.Points()
	prices := make([]float64, len(pts))
	vols := make([]float64, len(pts))
	for i, pt := range pts {
		prices[i] = pt.Price
		vols[i] = pt.IntervalVolume
	}

	trend := TrendOf(pts)
	t.trend[symbol] = trend

	return Update{
		Point:      p,
		Trend:      trend,
		Len:        len(pts),
		PriceAxis:  PriceDomain(prices),
		VolumeAxis: VolumeDomain(vols),
	}
}

// Series returns the rolling buffer for symbol, if any reading was accepted.
func (t *Tracker) Series(symbol string) (*Rolling, bool) {
	r, ok := t.series[symbol]
	return r, ok
}

func (t *Tracker) Trend(symbol string) Trend {
	return t.trend[symbol]
}
