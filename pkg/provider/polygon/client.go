// Package polygon implements provider.Provider with the Polygon.io REST client.
//
// Yahoo-style symbols used by the default catalog are translated through an alias table
// (indices, crypto and FX use Polygon's prefixed tickers); other symbols pass through unchanged.
package polygon

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	polygonrest "github.com/polygon-io/client-go/rest"
	rmodels "github.com/polygon-io/client-go/rest/models"

	"github.com/naclonts/marketstream/pkg/provider"
)

// Compile-time check to ensure Client implements provider.Provider
var _ provider.Provider = (*Client)(nil)

// DefaultAliases maps catalog symbols to Polygon tickers.
var DefaultAliases = map[string]string{
	"^GSPC":    "I:SPX",
	"^DJI":     "I:DJI",
	"^IXIC":    "I:COMP",
	"^RUT":     "I:RUT",
	"BTC-USD":  "X:BTCUSD",
	"ETH-USD":  "X:ETHUSD",
	"EURUSD=X": "C:EURUSD",
	"USDJPY=X": "C:USDJPY",
}

type Config struct {
	APIKey  string
	Timeout time.Duration
	Aliases map[string]string // nil: DefaultAliases
}

// api is the slice of the Polygon REST surface the adapter needs.
type api interface {
	LastTradePrice(ctx context.Context, ticker string) (float64, error)
	DayBar(ctx context.Context, ticker string, day time.Time) (bar, error)
	Details(ctx context.Context, ticker string) (name, description string, err error)
}

type bar struct {
	Close  float64
	Volume float64
}

type Client struct {
	api     api
	aliases map[string]string
	now     func() time.Time
}

func New(cfg Config) *Client {
	rest := polygonrest.NewWithClient(cfg.APIKey, &http.Client{Timeout: cfg.Timeout})
	return newClient(&restAPI{rest: rest}, cfg.Aliases, time.Now)
}

func newClient(a api, aliases map[string]string, now func() time.Time) *Client {
	if aliases == nil {
		aliases = DefaultAliases
	}
	return &Client{api: a, aliases: aliases, now: now}
}

func (c *Client) Name() string { return "polygon" }

func (c *Client) ticker(symbol string) string {
	if t, ok := c.aliases[symbol]; ok {
		return t
	}
	return strings.ToUpper(symbol)
}

// FastInfo returns the last trade price. Polygon's last trade carries no session volume,
// so LastVolume is left unset and callers fall back to Info.
func (c *Client) FastInfo(ctx context.Context, symbol string) (*provider.FastInfo, error) {
	price, err := c.api.LastTradePrice(ctx, c.ticker(symbol))
	if err != nil {
		return nil, fmt.Errorf("%w: last trade %s: %v", provider.ErrUnavailable, symbol, err)
	}
	return &provider.FastInfo{LastPrice: provider.Float(price)}, nil
}

// Info combines ticker details with today's daily aggregate. It fails only when both lookups fail.
func (c *Client) Info(ctx context.Context, symbol string) (*provider.Info, error) {
	ticker := c.ticker(symbol)
	info := &provider.Info{}

	name, desc, detailsErr := c.api.Details(ctx, ticker)
	if detailsErr == nil {
		info.LongName = name
		info.BusinessSummary = desc
	}

	b, barErr := c.api.DayBar(ctx, ticker, c.now())
	if barErr == nil {
		info.RegularMarketPrice = provider.Float(b.Close)
		info.RegularMarketVolume = provider.Float(b.Volume)
	}

	if detailsErr != nil && barErr != nil {
		return nil, fmt.Errorf("%w: %s: details: %v; aggs: %v", provider.ErrUnavailable, symbol, detailsErr, barErr)
	}
	return info, nil
}

type restAPI struct {
	rest *polygonrest.Client
}

func (r *restAPI) LastTradePrice(ctx context.Context, ticker string) (float64, error) {
	res, err := r.rest.GetLastTrade(ctx, &rmodels.GetLastTradeParams{Ticker: ticker})
	if err != nil {
		return 0, err
	}
	return res.Results.Price, nil
}

func (r *restAPI) DayBar(ctx context.Context, ticker string, day time.Time) (bar, error) {
	start := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, time.UTC)
	params := &rmodels.ListAggsParams{
		Ticker:     ticker,
		Timespan:   rmodels.Day,
		Multiplier: 1,
		From:       rmodels.Millis(start.AddDate(0, 0, -5)),
		To:         rmodels.Millis(start.AddDate(0, 0, 1)),
	}
	desc := rmodels.Desc
	lim := 1
	params.Order = &desc
	params.Limit = &lim

	iter := r.rest.ListAggs(ctx, params)
	var (
		b     bar
		found bool
	)
	for iter.Next() {
		a := iter.Item()
		b = bar{Close: a.Close, Volume: a.Volume}
		found = true
		break
	}
	if err := iter.Err(); err != nil {
		return bar{}, err
	}
	if !found {
		return bar{}, provider.ErrNoData
	}
	return b, nil
}

func (r *restAPI) Details(ctx context.Context, ticker string) (string, string, error) {
	res, err := r.rest.GetTickerDetails(ctx, &rmodels.GetTickerDetailsParams{Ticker: ticker})
	if err != nil {
		return "", "", err
	}
	return res.Results.Name, res.Results.Description, nil
}
