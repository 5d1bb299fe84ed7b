package polygon

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/naclonts/marketstream/pkg/provider"
)

type fakeAPI struct {
	price      float64
	priceErr   error
	bar        bar
	barErr     error
	name, desc string
	detailsErr error

	tickers []string
}

func (f *fakeAPI) LastTradePrice(_ context.Context, ticker string) (float64, error) {
	f.tickers = append(f.tickers, ticker)
	return f.price, f.priceErr
}

func (f *fakeAPI) DayBar(_ context.Context, ticker string, _ time.Time) (bar, error) {
	f.tickers = append(f.tickers, ticker)
	return f.bar, f.barErr
}

func (f *fakeAPI) Details(_ context.Context, ticker string) (string, string, error) {
	f.tickers = append(f.tickers, ticker)
	return f.name, f.desc, f.detailsErr
}

func fixedNow() time.Time { return time.Date(2024, 5, 1, 15, 0, 0, 0, time.UTC) }

func TestFastInfo_TranslatesAlias(t *testing.T) {
	api := &fakeAPI{price: 5300}
	c := newClient(api, nil, fixedNow)

	fi, err := c.FastInfo(context.Background(), "^GSPC")
	require.NoError(t, err)

	assert.Equal(t, []string{"I:SPX"}, api.tickers)
	require.NotNil(t, fi.LastPrice)
	assert.Equal(t, 5300.0, *fi.LastPrice)
	assert.Nil(t, fi.LastVolume)
}

func TestFastInfo_Error(t *testing.T) {
	c := newClient(&fakeAPI{priceErr: errors.New("403")}, nil, fixedNow)

	_, err := c.FastInfo(context.Background(), "AAPL")
	assert.ErrorIs(t, err, provider.ErrUnavailable)
}

func TestInfo_Combines(t *testing.T) {
	api := &fakeAPI{
		bar:  bar{Close: 189.5, Volume: 4200},
		name: "Apple Inc.",
		desc: "Designs phones.",
	}
	c := newClient(api, nil, fixedNow)

	info, err := c.Info(context.Background(), "aapl")
	require.NoError(t, err)

	assert.Equal(t, "AAPL", api.tickers[0])
	assert.Equal(t, "Apple Inc.", info.LongName)
	assert.Equal(t, "Designs phones.", info.BusinessSummary)
	require.NotNil(t, info.RegularMarketVolume)
	assert.Equal(t, 4200.0, *info.RegularMarketVolume)
	assert.Equal(t, 189.5, *info.RegularMarketPrice)
}

func TestInfo_PartialFailure(t *testing.T) {
	c := newClient(&fakeAPI{detailsErr: errors.New("404"), bar: bar{Close: 1, Volume: 2}}, nil, fixedNow)

	info, err := c.Info(context.Background(), "GC=F")
	require.NoError(t, err)
	assert.Empty(t, info.LongName)
	assert.NotNil(t, info.RegularMarketPrice)
}

func TestInfo_BothFail(t *testing.T) {
	c := newClient(&fakeAPI{detailsErr: errors.New("404"), barErr: provider.ErrNoData}, nil, fixedNow)

	_, err := c.Info(context.Background(), "GC=F")
	assert.ErrorIs(t, err, provider.ErrUnavailable)
}
