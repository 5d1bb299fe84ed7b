package catalog

import (
	_ "embed"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed tickers.yaml
var defaultDefinitions []byte

// Definition is one configured symbol with the text used when the provider has no summary.
type Definition struct {
	Symbol   string `yaml:"symbol"`
	Fallback string `yaml:"fallback"`
}

// Normalize is the single spelling rule for symbols from files, config and clients.
func Normalize(symbol string) string {
	return strings.ToUpper(strings.TrimSpace(symbol))
}

type definitionsFile struct {
	Tickers []Definition `yaml:"tickers"`
}

// LoadDefinitions reads the ordered ticker definitions from path, or the embedded
// defaults when path is empty.
func LoadDefinitions(path string) ([]Definition, error) {
	data := defaultDefinitions
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read catalog file: %w", err)
		}
		data = b
	}
	return ParseDefinitions(data)
}

func ParseDefinitions(data []byte) ([]Definition, error) {
	var f definitionsFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse catalog definitions: %w", err)
	}

	seen := make(map[string]bool, len(f.Tickers))
	defs := make([]Definition, 0, len(f.Tickers))
	for i, d := range f.Tickers {
		d.Symbol = Normalize(d.Symbol)
		if d.Symbol == "" {
			return nil, fmt.Errorf("catalog definition %d: empty symbol", i)
		}
		if seen[d.Symbol] {
			return nil, fmt.Errorf("catalog definition %d: duplicate symbol %q", i, d.Symbol)
		}
		seen[d.Symbol] = true
		defs = append(defs, d)
	}
	if len(defs) == 0 {
		return nil, fmt.Errorf("catalog definitions: no tickers")
	}
	return defs, nil
}

// Restrict keeps the definitions named in symbols, in the order given.
// Symbols without a definition are kept with an empty fallback.
func Restrict(defs []Definition, symbols []string) []Definition {
	if len(symbols) == 0 {
		return defs
	}

	byName := make(map[string]Definition, len(defs))
	for _, d := range defs {
		byName[d.Symbol] = d
	}

	out := make([]Definition, 0, len(symbols))
	seen := make(map[string]bool, len(symbols))
	for _, s := range symbols {
		s = Normalize(s)
		if s == "" || seen[s] {
			continue
		}
		seen[s] = true
		if d, ok := byName[s]; ok {
			out = append(out, d)
		} else {
			out = append(out, Definition{Symbol: s})
		}
	}
	return out
}
