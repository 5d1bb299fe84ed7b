package poller_test

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/naclonts/marketstream/pkg/models"
	"github.com/naclonts/marketstream/pkg/poller"
	"github.com/naclonts/marketstream/pkg/provider"
	"github.com/naclonts/marketstream/pkg/provider/providertest"
)

// instantClock never waits and records requested intervals.
type instantClock struct {
	now   time.Time
	waits []time.Duration
}

func (c *instantClock) Now() time.Time { return c.now }

func (c *instantClock) After(d time.Duration) <-chan time.Time {
	c.waits = append(c.waits, d)
	c.now = c.now.Add(d)
	ch := make(chan time.Time, 1)
	ch <- c.now
	return ch
}

func newPoller(p provider.Provider, symbols []string, workers int) *poller.Poller {
	return poller.New(zap.NewNop(), p, symbols, poller.Options{
		Interval:       10 * time.Second,
		FetchTimeout:   50 * time.Millisecond,
		MaxConcurrency: workers,
		Clock:          &instantClock{now: time.Unix(0, 0)},
	})
}

func TestCycle_FastPath(t *testing.T) {
	fake := providertest.NewFake()
	fake.SetPrice("AAPL", 150.12, 1000)

	snap := newPoller(fake, []string{"AAPL"}, 1).Cycle(context.Background())

	assert.Equal(t, models.NewQuote(150.12, 1000), snap["AAPL"])
	_, infoCalls := fake.Calls("AAPL")
	assert.Equal(t, 0, infoCalls)
}

func TestCycle_VolumeFallsBackToInfo(t *testing.T) {
	fake := providertest.NewFake()
	fake.Fast["EURUSD=X"] = &provider.FastInfo{LastPrice: provider.Float(1.08)}
	fake.Infos["EURUSD=X"] = &provider.Info{RegularMarketVolume: provider.Float(42)}

	snap := newPoller(fake, []string{"EURUSD=X"}, 1).Cycle(context.Background())

	assert.Equal(t, models.NewQuote(1.08, 42), snap["EURUSD=X"])
}

func TestCycle_VolumeDefaultsToZero(t *testing.T) {
	fake := providertest.NewFake()
	fake.Fast["BTC-USD"] = &provider.FastInfo{LastPrice: provider.Float(64000)}

	snap := newPoller(fake, []string{"BTC-USD"}, 1).Cycle(context.Background())

	assert.Equal(t, models.NewQuote(64000, 0), snap["BTC-USD"])
}

func TestCycle_PriceFromInfoFetchedOnce(t *testing.T) {
	fake := providertest.NewFake()
	fake.Infos["^N225"] = &provider.Info{
		RegularMarketPrice:  provider.Float(38000),
		RegularMarketVolume: provider.Float(7),
	}

	snap := newPoller(fake, []string{"^N225"}, 1).Cycle(context.Background())

	assert.Equal(t, models.NewQuote(38000, 7), snap["^N225"])
	fast, info := fake.Calls("^N225")
	assert.Equal(t, 1, fast)
	assert.Equal(t, 1, info)
}

func TestCycle_TotalFailure(t *testing.T) {
	fake := providertest.NewFake()
	fake.SetPrice("AAPL", 150, 1000)
	fake.Errors["GC=F"] = errors.New("connection reset")

	snap := newPoller(fake, []string{"AAPL", "GC=F"}, 1).Cycle(context.Background())

	require.Len(t, snap, 2)
	assert.Equal(t, models.NewQuote(150, 1000), snap["AAPL"])
	assert.Equal(t, models.UnavailableQuote(0), snap["GC=F"])

	b, err := snap.Encode()
	require.NoError(t, err)
	assert.JSONEq(t, `{"AAPL":{"price":150,"volume":1000},"GC=F":{"price":"N/A","volume":0}}`, string(b))
}

func TestCycle_NaNIsAbsent(t *testing.T) {
	fake := providertest.NewFake()
	fake.Fast["X"] = &provider.FastInfo{LastPrice: provider.Float(math.NaN()), LastVolume: provider.Float(math.Inf(1))}

	snap := newPoller(fake, []string{"X"}, 1).Cycle(context.Background())

	assert.False(t, snap["X"].Available)
}

func TestCycle_SlowSymbolTimesOut(t *testing.T) {
	fake := providertest.NewFake()
	fake.SetPrice("AAPL", 1, 1)
	fake.SetPrice("SLOW", 2, 2)
	fake.Delay["SLOW"] = time.Minute

	start := time.Now()
	snap := newPoller(fake, []string{"SLOW", "AAPL"}, 1).Cycle(context.Background())

	assert.Less(t, time.Since(start), 5*time.Second)
	assert.False(t, snap["SLOW"].Available)
	assert.True(t, snap["AAPL"].Available)
}

func TestCycle_ConcurrentMatchesSequential(t *testing.T) {
	fake := providertest.NewFake()
	symbols := []string{"A", "B", "C", "D", "E"}
	for i, s := range symbols {
		fake.SetPrice(s, float64(i+1), float64(10*i))
	}
	fake.Errors["C"] = provider.ErrUnavailable

	seq := newPoller(fake, symbols, 1).Cycle(context.Background())
	par := newPoller(fake, symbols, 3).Cycle(context.Background())

	assert.Equal(t, seq, par)
}

func TestRun_EmitsUntilCancelled(t *testing.T) {
	fake := providertest.NewFake()
	fake.SetPrice("AAPL", 150, 1000)

	clock := &instantClock{now: time.Unix(100, 0)}
	p := poller.New(zap.NewNop(), fake, []string{"AAPL"}, poller.Options{
		Interval: 10 * time.Second,
		Clock:    clock,
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var stamps []time.Time
	err := p.Run(ctx, func(_ context.Context, at time.Time, snap models.Snapshot) error {
		stamps = append(stamps, at)
		assert.Contains(t, snap, "AAPL")
		if len(stamps) == 3 {
			cancel()
		}
		return nil
	})

	assert.ErrorIs(t, err, context.Canceled)
	require.Len(t, stamps, 3)
	assert.Equal(t, 10*time.Second, stamps[1].Sub(stamps[0]))
	for _, w := range clock.waits {
		assert.Equal(t, 10*time.Second, w)
	}
}

func TestRun_StopsOnEmitError(t *testing.T) {
	fake := providertest.NewFake()
	p := newPoller(fake, []string{"AAPL"}, 1)
	sentinel := errors.New("client gone")

	err := p.Run(context.Background(), func(context.Context, time.Time, models.Snapshot) error {
		return sentinel
	})

	assert.ErrorIs(t, err, sentinel)
}

func TestWithSymbols(t *testing.T) {
	fake := providertest.NewFake()
	fake.SetPrice("A", 1, 1)
	fake.SetPrice("B", 2, 2)

	base := newPoller(fake, []string{"A", "B"}, 1)
	sub := base.WithSymbols([]string{"B"})

	assert.Equal(t, []string{"A", "B"}, base.Symbols())
	snap := sub.Cycle(context.Background())
	assert.Len(t, snap, 1)
	assert.Contains(t, snap, "B")
}
