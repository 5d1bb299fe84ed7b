// Package series keeps a bounded per-symbol price/volume history and derives the
// chart values (interval volume, axis domains, trend) from it.
package series

import "time"

// DefaultCapacity is the number of points kept per symbol.
const DefaultCapacity = 60

// Point is one accepted reading. IntervalVolume may be negative when the provider's
// cumulative volume goes down.
type Point struct {
	Time             time.Time
	Price            float64
	IntervalVolume   float64
	CumulativeVolume float64
}

// Rolling is a drop-oldest ring of at most cap points. Not safe for concurrent use.
type Rolling struct {
	buf   []Point
	start int
	n     int
	// set after the first Add; the previous cumulative volume survives eviction
	hasPrev bool
	prevCum float64
}

func NewRolling(capacity int) *Rolling {
	if capacity < 1 {
		capacity = DefaultCapacity
	}
	return &Rolling{buf: make([]Point, capacity)}
}

// Add appends a reading and returns the stored point.
func (r *Rolling) Add(t time.Time, price, cumulativeVolume float64) Point {
	p := Point{Time: t, Price: price, CumulativeVolume: cumulativeVolume}
	if r.hasPrev {
		p.IntervalVolume = cumulativeVolume - r.prevCum
	}
	r.hasPrev = true
	r.prevCum = cumulativeVolume

	if r.n < len(r.buf) {
		r.buf[(r.start+r.n)%len(r.buf)] = p
		r.n++
	} else {
		r.buf[r.start] = p
		r.start = (r.start + 1) % len(r.buf)
	}
	return p
}

// Points returns the retained points, oldest first.
func (r *Rolling) Points() []Point {
	out := make([]Point, r.n)
	for i := 0; i < r.n; i++ {
		out[i] = r.buf[(r.start+i)%len(r.buf)]
	}
	return out
}

func (r *Rolling) Len() int { return r.n }
func (r *Rolling) Cap() int { return len(r.buf) }

// Last returns the newest point.
func (r *Rolling) Last() (Point, bool) {
	if r.n == 0 {
		return Point{}, false
	}
	return r.buf[(r.start+r.n-1)%len(r.buf)], true
}
