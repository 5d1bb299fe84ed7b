// Package yahoo implements provider.Provider on top of the public Yahoo Finance HTTP endpoints.
package yahoo

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	json "github.com/goccy/go-json"

	"github.com/naclonts/marketstream/pkg/provider"
)

const (
	DefaultBaseURL = "https://query1.finance.yahoo.com"

	chartPath   = "/v8/finance/chart/"
	summaryPath = "/v10/finance/quoteSummary/"

	maxBodySize = 4 << 20
)

// Compile-time check to ensure Client implements provider.Provider
var _ provider.Provider = (*Client)(nil)

type Config struct {
	BaseURL   string
	UserAgent string
	Timeout   time.Duration
	// HTTPClient overrides the client built from Timeout.
	HTTPClient *http.Client
}

type Client struct {
	baseURL   string
	userAgent string
	http      *http.Client
}

func New(cfg Config) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	hc := cfg.HTTPClient
	if hc == nil {
		hc = &http.Client{Timeout: cfg.Timeout}
	}
	return &Client{
		baseURL:   cfg.BaseURL,
		userAgent: cfg.UserAgent,
		http:      hc,
	}
}

func (c *Client) Name() string { return "yahoo" }

type chartResponse struct {
	Chart struct {
		Result []struct {
			Meta struct {
				Symbol              string   `json:"symbol"`
				RegularMarketPrice  *float64 `json:"regularMarketPrice"`
				RegularMarketVolume *float64 `json:"regularMarketVolume"`
			} `json:"meta"`
		} `json:"result"`
		Error *apiError `json:"error"`
	} `json:"chart"`
}

type rawValue struct {
	Raw *float64 `json:"raw"`
}

type summaryResponse struct {
	QuoteSummary struct {
		Result []struct {
			Price struct {
				LongName            string   `json:"longName"`
				ShortName           string   `json:"shortName"`
				RegularMarketPrice  rawValue `json:"regularMarketPrice"`
				RegularMarketVolume rawValue `json:"regularMarketVolume"`
			} `json:"price"`
			AssetProfile struct {
				LongBusinessSummary string `json:"longBusinessSummary"`
			} `json:"assetProfile"`
			SummaryProfile struct {
				LongBusinessSummary string `json:"longBusinessSummary"`
			} `json:"summaryProfile"`
		} `json:"result"`
		Error *apiError `json:"error"`
	} `json:"quoteSummary"`
}

type apiError struct {
	Code        string `json:"code"`
	Description string `json:"description"`
}

// FastInfo reads the last price and the session's cumulative volume from the chart metadata.
func (c *Client) FastInfo(ctx context.Context, symbol string) (*provider.FastInfo, error) {
	q := url.Values{"range": {"1d"}, "interval": {"1d"}}

	var resp chartResponse
	if err := c.get(ctx, chartPath+url.PathEscape(symbol), q, &resp); err != nil {
		return nil, err
	}
	if e := resp.Chart.Error; e != nil {
		return nil, fmt.Errorf("%w: chart %s: %s %s", provider.ErrNoData, symbol, e.Code, e.Description)
	}
	if len(resp.Chart.Result) == 0 {
		return nil, fmt.Errorf("%w: chart %s", provider.ErrNoData, symbol)
	}

	meta := resp.Chart.Result[0].Meta
	return &provider.FastInfo{
		LastPrice:  meta.RegularMarketPrice,
		LastVolume: meta.RegularMarketVolume,
	}, nil
}

// Info reads names, the business summary and regular-market figures from quoteSummary.
func (c *Client) Info(ctx context.Context, symbol string) (*provider.Info, error) {
	q := url.Values{"modules": {"price,assetProfile,summaryProfile"}}

	var resp summaryResponse
	if err := c.get(ctx, summaryPath+url.PathEscape(symbol), q, &resp); err != nil {
		return nil, err
	}
	if e := resp.QuoteSummary.Error; e != nil {
		return nil, fmt.Errorf("%w: quoteSummary %s: %s %s", provider.ErrNoData, symbol, e.Code, e.Description)
	}
	if len(resp.QuoteSummary.Result) == 0 {
		return nil, fmt.Errorf("%w: quoteSummary %s", provider.ErrNoData, symbol)
	}

	r := resp.QuoteSummary.Result[0]
	summary := r.AssetProfile.LongBusinessSummary
	if summary == "" {
		summary = r.SummaryProfile.LongBusinessSummary
	}
	return &provider.Info{
		LongName:            r.Price.LongName,
		ShortName:           r.Price.ShortName,
		BusinessSummary:     summary,
		RegularMarketPrice:  r.Price.RegularMarketPrice.Raw,
		RegularMarketVolume: r.Price.RegularMarketVolume.Raw,
	}, nil
}

func (c *Client) get(ctx context.Context, path string, query url.Values, out interface{}) error {
	endpoint := c.baseURL + path + "?" + query.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}

	res, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", provider.ErrUnavailable, err)
	}
	defer res.Body.Close()

	body, err := io.ReadAll(io.LimitReader(res.Body, maxBodySize))
	if err != nil {
		return fmt.Errorf("%w: read body: %v", provider.ErrUnavailable, err)
	}

	switch {
	case res.StatusCode == http.StatusNotFound:
		// Yahoo still sends the error envelope on 404; decode it for the message.
		if json.Unmarshal(body, out) == nil {
			return nil
		}
		return fmt.Errorf("%w: %s", provider.ErrNoData, path)
	case res.StatusCode != http.StatusOK:
		return fmt.Errorf("%w: %s returned status %d", provider.ErrUnavailable, path, res.StatusCode)
	}

	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}
	return nil
}
