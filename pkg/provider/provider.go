// Package provider defines the port to the remote market-data service.
package provider

import (
	"context"
	"errors"
)

var (
	// ErrNoData means the provider answered but had nothing for the symbol.
	ErrNoData = errors.New("provider returned no data")
	// ErrUnavailable means the provider could not be reached or answered with a failure status.
	ErrUnavailable = errors.New("provider unavailable")
	// ErrUnknownProvider is returned by the factory for an unsupported provider name.
	ErrUnknownProvider = errors.New("unknown provider")
)

// FastInfo is the cheap per-cycle reading. Nil fields were not reported.
type FastInfo struct {
	LastPrice  *float64
	LastVolume *float64
}

// Info is the heavier general-information lookup.
type Info struct {
	LongName            string
	ShortName           string
	BusinessSummary     string
	RegularMarketPrice  *float64
	RegularMarketVolume *float64
}

// Provider is a market-data source queried one symbol at a time.
type Provider interface {
	Name() string
	FastInfo(ctx context.Context, symbol string) (*FastInfo, error)
	Info(ctx context.Context, symbol string) (*Info, error)
}

// Float returns a pointer to v. Adapters use it to mark a field as reported.
func Float(v float64) *float64 {
	return &v
}
