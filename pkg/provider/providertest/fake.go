// Package providertest provides an in-memory provider.Provider for tests.
package providertest

import (
	"context"
	"sync"
	"time"

	"github.com/naclonts/marketstream/pkg/provider"
)

// Fake answers from fixed tables. Symbols missing from a table fail with provider.ErrNoData.
type Fake struct {
	mu sync.Mutex

	Fast   map[string]*provider.FastInfo
	Infos  map[string]*provider.Info
	Errors map[string]error // forced error for both calls
	Delay  map[string]time.Duration

	FastCalls map[string]int
	InfoCalls map[string]int
}

func NewFake() *Fake {
	return &Fake{
		Fast:      map[string]*provider.FastInfo{},
		Infos:     map[string]*provider.Info{},
		Errors:    map[string]error{},
		Delay:     map[string]time.Duration{},
		FastCalls: map[string]int{},
		InfoCalls: map[string]int{},
	}
}

func (f *Fake) Name() string { return "fake" }

// SetPrice sets the fast-path reading for symbol.
func (f *Fake) SetPrice(symbol string, price, volume float64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Fast[symbol] = &provider.FastInfo{LastPrice: provider.Float(price), LastVolume: provider.Float(volume)}
}

func (f *Fake) FastInfo(ctx context.Context, symbol string) (*provider.FastInfo, error) {
	f.mu.Lock()
	f.FastCalls[symbol]++
	fi, ok := f.Fast[symbol]
	forced := f.Errors[symbol]
	d := f.Delay[symbol]
	f.mu.Unlock()

	if err := wait(ctx, d); err != nil {
		return nil, err
	}
	if forced != nil {
		return nil, forced
	}
	if !ok {
		return nil, provider.ErrNoData
	}
	cp := *fi
	return &cp, nil
}

func (f *Fake) Info(ctx context.Context, symbol string) (*provider.Info, error) {
	f.mu.Lock()
	f.InfoCalls[symbol]++
	info, ok := f.Infos[symbol]
	forced := f.Errors[symbol]
	d := f.Delay[symbol]
	f.mu.Unlock()

	if err := wait(ctx, d); err != nil {
		return nil, err
	}
	if forced != nil {
		return nil, forced
	}
	if !ok {
		return nil, provider.ErrNoData
	}
	cp := *info
	return &cp, nil
}

func (f *Fake) Calls(symbol string) (fast, info int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.FastCalls[symbol], f.InfoCalls[symbol]
}

func wait(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(d):
		return nil
	}
}
