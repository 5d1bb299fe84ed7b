// Package catalog builds the fixed, read-only ticker catalog once at startup.
package catalog

import (
	"context"
	"strings"
	"time"

	json "github.com/goccy/go-json"
	"go.uber.org/zap"

	"github.com/naclonts/marketstream/pkg/models"
	"github.com/naclonts/marketstream/pkg/provider"
)

// NoDescription is used when neither the provider nor the definitions have any text.
const NoDescription = "No description available."

// InfoSource is the part of provider.Provider the catalog needs.
type InfoSource interface {
	Info(ctx context.Context, symbol string) (*provider.Info, error)
}

// Catalog is immutable after Build. Accessors return copies.
type Catalog struct {
	symbols []string
	entries map[string]models.CatalogEntry
}

// Build fetches provider metadata for every definition exactly once. It never fails:
// symbols whose lookup errors get their fallback name and description.
func Build(ctx context.Context, src InfoSource, defs []Definition, timeout time.Duration, logger *zap.Logger) *Catalog {
	c := &Catalog{
		symbols: make([]string, 0, len(defs)),
		entries: make(map[string]models.CatalogEntry, len(defs)),
	}

	for _, d := range defs {
		info := fetchInfo(ctx, src, d.Symbol, timeout, logger)
		c.symbols = append(c.symbols, d.Symbol)
		c.entries[d.Symbol] = resolve(d, info)
	}

	logger.Info("Catalog built", zap.Int("symbols", len(c.symbols)))
	return c
}

// New builds a catalog from already resolved entries, in order.
func New(entries ...models.CatalogEntry) *Catalog {
	c := &Catalog{
		symbols: make([]string, 0, len(entries)),
		entries: make(map[string]models.CatalogEntry, len(entries)),
	}
	for _, e := range entries {
		if _, dup := c.entries[e.Symbol]; dup {
			continue
		}
		c.symbols = append(c.symbols, e.Symbol)
		c.entries[e.Symbol] = resolve(Definition{Symbol: e.Symbol}, &provider.Info{
			LongName:        e.DisplayName,
			BusinessSummary: e.Description,
		})
	}
	return c
}

func fetchInfo(ctx context.Context, src InfoSource, symbol string, timeout time.Duration, logger *zap.Logger) *provider.Info {
	fctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	info, err := src.Info(fctx, symbol)
	if err != nil {
		logger.Warn("Failed to fetch ticker info, using fallback",
			zap.String("symbol", symbol),
			zap.Error(err),
		)
		return nil
	}
	return info
}

func resolve(d Definition, info *provider.Info) models.CatalogEntry {
	e := models.CatalogEntry{Symbol: d.Symbol}

	if info != nil {
		switch {
		case info.LongName != "":
			e.DisplayName = info.LongName
		case info.ShortName != "":
			e.DisplayName = info.ShortName
		}
		if s := strings.TrimSpace(info.BusinessSummary); s != "" {
			e.Description = info.BusinessSummary
		}
	}

	if e.DisplayName == "" {
		e.DisplayName = d.Symbol
	}
	if e.Description == "" {
		e.Description = d.Fallback
	}
	if strings.TrimSpace(e.Description) == "" {
		e.Description = NoDescription
	}
	return e
}

// Symbols returns the configured symbols in display order.
func (c *Catalog) Symbols() []string {
	out := make([]string, len(c.symbols))
	copy(out, c.symbols)
	return out
}

func (c *Catalog) Entry(symbol string) (models.CatalogEntry, bool) {
	e, ok := c.entries[symbol]
	return e, ok
}

func (c *Catalog) Has(symbol string) bool {
	_, ok := c.entries[symbol]
	return ok
}

func (c *Catalog) Len() int { return len(c.symbols) }

// Select returns the catalog symbols named in requested, in catalog order.
// Unknown names are dropped. An empty request selects nothing.
func (c *Catalog) Select(requested []string) []string {
	want := make(map[string]bool, len(requested))
	for _, r := range requested {
		want[Normalize(r)] = true
	}
	var out []string
	for _, s := range c.symbols {
		if want[s] {
			out = append(out, s)
		}
	}
	return out
}

// MarshalJSON encodes the catalog as {symbol: {"longName": ..., "description": ...}}.
func (c *Catalog) MarshalJSON() ([]byte, error) {
	return json.Marshal(c.entries)
}
