// Package poller runs the periodic best-effort fetch of every catalog symbol.
package poller

import (
	"context"
	"math"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/naclonts/marketstream/pkg/models"
	"github.com/naclonts/marketstream/pkg/provider"
)

const (
	DefaultInterval     = 10 * time.Second
	DefaultFetchTimeout = 5 * time.Second
)

type Options struct {
	Interval       time.Duration
	FetchTimeout   time.Duration
	MaxConcurrency int
	Clock          Clock
}

type Poller struct {
	logger   *zap.Logger
	provider provider.Provider
	symbols  []string
	interval time.Duration
	timeout  time.Duration
	workers  int
	clock    Clock
}

func New(logger *zap.Logger, p provider.Provider, symbols []string, opts Options) *Poller {
	if opts.Clock == nil {
		opts.Clock = RealClock{}
	}
	if opts.MaxConcurrency < 1 {
		opts.MaxConcurrency = 1
	}
	if opts.Interval <= 0 {
		opts.Interval = DefaultInterval
	}
	if opts.FetchTimeout <= 0 {
		opts.FetchTimeout = DefaultFetchTimeout
	}
	syms := make([]string, len(symbols))
	copy(syms, symbols)

	return &Poller{
		logger:   logger,
		provider: p,
		symbols:  syms,
		interval: opts.Interval,
		timeout:  opts.FetchTimeout,
		workers:  opts.MaxConcurrency,
		clock:    opts.Clock,
	}
}

// WithSymbols returns a poller over a different symbol list sharing everything else.
func (p *Poller) WithSymbols(symbols []string) *Poller {
	cp := *p
	cp.symbols = make([]string, len(symbols))
	copy(cp.symbols, symbols)
	return &cp
}

func (p *Poller) Symbols() []string {
	out := make([]string, len(p.symbols))
	copy(out, p.symbols)
	return out
}

// Run cycles, emits and waits until ctx is cancelled or emit fails.
func (p *Poller) Run(ctx context.Context, emit EmitFunc) error {
	p.logger.Info("Poller started",
		zap.Strings("symbols", p.symbols),
		zap.Duration("interval", p.interval),
	)

	for {
		at := p.clock.Now()
		snap := p.Cycle(ctx)
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := emit(ctx, at, snap); err != nil {
			return err
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-p.clock.After(p.interval):
		}
	}
}

// Cycle fetches one Quote per symbol. A failing symbol never aborts the cycle;
// the result always has an entry for every symbol.
func (p *Poller) Cycle(ctx context.Context) models.Snapshot {
	quotes := make([]models.Quote, len(p.symbols))

	if p.workers == 1 {
		for i, sym := range p.symbols {
			quotes[i] = p.fetch(ctx, sym)
		}
	} else {
		sem := make(chan struct{}, p.workers)
		var wg sync.WaitGroup
		for i, sym := range p.symbols {
			wg.Add(1)
			sem <- struct{}{}
			go func(i int, sym string) {
				defer wg.Done()
				defer func() { <-sem }()
				quotes[i] = p.fetch(ctx, sym)
			}(i, sym)
		}
		wg.Wait()
	}

	snap := make(models.Snapshot, len(p.symbols))
	unavailable := 0
	for i, sym := range p.symbols {
		snap[sym] = quotes[i]
		if !quotes[i].Available {
			unavailable++
		}
	}

	p.logger.Info("Poll cycle complete",
		zap.Int("symbols", len(p.symbols)),
		zap.Int("unavailable", unavailable),
	)
	return snap
}

func (p *Poller) fetch(ctx context.Context, symbol string) models.Quote {
	var price, volume *float64

	if fi, err := p.fastInfo(ctx, symbol); err != nil {
		p.logger.Debug("Fast info failed", zap.String("symbol", symbol), zap.Error(err))
	} else {
		price = finite(fi.LastPrice)
		volume = finite(fi.LastVolume)
	}

	// Info is fetched at most once, only when something is missing.
	if price == nil || volume == nil {
		info, err := p.info(ctx, symbol)
		if err != nil {
			p.logger.Debug("Info fallback failed", zap.String("symbol", symbol), zap.Error(err))
		} else {
			if volume == nil {
				volume = finite(info.RegularMarketVolume)
			}
			if price == nil {
				price = finite(info.RegularMarketPrice)
			}
		}
	}

	vol := 0.0
	if volume != nil {
		vol = *volume
	}

	if price == nil {
		p.logger.Warn("Price unavailable", zap.String("symbol", symbol))
		return models.UnavailableQuote(0)
	}

	p.logger.Debug("Quote",
		zap.String("symbol", symbol),
		zap.Float64("price", *price),
		zap.Float64("volume", vol),
	)
	return models.NewQuote(*price, vol)
}

func (p *Poller) fastInfo(ctx context.Context, symbol string) (*provider.FastInfo, error) {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()
	return p.provider.FastInfo(ctx, symbol)
}

func (p *Poller) info(ctx context.Context, symbol string) (*provider.Info, error) {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()
	return p.provider.Info(ctx, symbol)
}

func finite(v *float64) *float64 {
	if v == nil || math.IsNaN(*v) || math.IsInf(*v, 0) {
		return nil
	}
	return v
}
