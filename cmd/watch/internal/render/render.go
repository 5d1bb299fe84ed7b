// Package render prints one status line per symbol after every snapshot.
package render

import (
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/naclonts/marketstream/pkg/models"
	"github.com/naclonts/marketstream/pkg/series"
)

const (
	green = "\x1b[32m"
	red   = "\x1b[31m"
	dim   = "\x1b[2m"
	reset = "\x1b[0m"
)

type Printer struct {
	w        io.Writer
	color    bool
	capacity int
}

// NewPrinter writes to w; color=false drops all escape sequences.
func NewPrinter(w io.Writer, capacity int, color bool) *Printer {
	return &Printer{w: w, color: color, capacity: capacity}
}

// Frame prints every symbol of snap in sorted order. Symbols without an update
// (price "N/A" this cycle) keep their last known trend and window length.
func (p *Printer) Frame(at time.Time, snap models.Snapshot, tr *series.Tracker, updates map[string]series.Update) error {
	symbols := make([]string, 0, len(snap))
	for sym := range snap {
		symbols = append(symbols, sym)
	}
	sort.Strings(symbols)

	if _, err := fmt.Fprintf(p.w, "%s\n", at.Format("15:04:05")); err != nil {
		return err
	}
	for _, sym := range symbols {
		if err := p.line(sym, snap[sym], tr, updates); err != nil {
			return err
		}
	}
	return nil
}

func (p *Printer) line(sym string, q models.Quote, tr *series.Tracker, updates map[string]series.Update) error {
	u, ok := updates[sym]
	if !ok {
		n := 0
		if r, found := tr.Series(sym); found {
			n = r.Len()
		}
		_, err := fmt.Fprintf(p.w, "  %-10s %s  vol %-12s [%d/%d]\n",
			sym, p.paint(dim, fmt.Sprintf("%12s", models.Unavailable)), Price(q.Volume), n, p.capacity)
		return err
	}

	_, err := fmt.Fprintf(p.w, "  %-10s %s  vol %-12s [%d/%d]  axis %s..%s  Δvol %s\n",
		sym,
		p.paint(trendColor(u.Trend), fmt.Sprintf("%12s", Price(u.Point.Price))),
		Price(u.Point.CumulativeVolume),
		u.Len, p.capacity,
		Price(u.PriceAxis.Lo), Price(u.PriceAxis.Hi),
		Price(u.Point.IntervalVolume),
	)
	return err
}

// Price formats v to two decimals, rounding half away from zero.
func Price(v float64) string {
	return decimal.NewFromFloat(v).StringFixed(2)
}

func trendColor(t series.Trend) string {
	switch t {
	case series.Up:
		return green
	case series.Down:
		return red
	default:
		return ""
	}
}

func (p *Printer) paint(code, s string) string {
	if !p.color || code == "" {
		return s
	}
	return code + s + reset
}
