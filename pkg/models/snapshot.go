package models

import (
	"bytes"
	"fmt"

	json "github.com/goccy/go-json"
)

// Unavailable is the wire value sent in place of a price the provider could not supply.
const Unavailable = "N/A"

// Quote is one symbol's reading in a poll cycle.
// On the wire: {"price": 150.12, "volume": 1000} or {"price": "N/A", "volume": 0}.
type Quote struct {
	Price     float64
	Available bool
	Volume    float64
}

// NewQuote returns an available quote.
func NewQuote(price, volume float64) Quote {
	return Quote{Price: price, Available: true, Volume: volume}
}

// UnavailableQuote returns the sentinel quote with the given volume.
func UnavailableQuote(volume float64) Quote {
	return Quote{Volume: volume}
}

type wireQuote struct {
	Price  json.RawMessage `json:"price"`
	Volume float64         `json:"volume"`
}

func (q Quote) MarshalJSON() ([]byte, error) {
	w := wireQuote{Volume: q.Volume}
	if q.Available {
		b, err := json.Marshal(q.Price)
		if err != nil {
			return nil, err
		}
		w.Price = b
	} else {
		w.Price = json.RawMessage(`"` + Unavailable + `"`)
	}
	return json.Marshal(w)
}

func (q *Quote) UnmarshalJSON(data []byte) error {
	var w wireQuote
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	*q = Quote{Volume: w.Volume}

	raw := bytes.TrimSpace(w.Price)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return nil
	}
	if raw[0] == '"' {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return err
		}
		if s != Unavailable {
			return fmt.Errorf("unexpected price string %q", s)
		}
		return nil
	}
	if err := json.Unmarshal(raw, &q.Price); err != nil {
		return fmt.Errorf("price: %w", err)
	}
	q.Available = true
	return nil
}

// Snapshot maps symbol to quote for one poll cycle.
type Snapshot map[string]Quote

// Filter returns the subset of s for the given symbols. Symbols missing from s are skipped.
func (s Snapshot) Filter(symbols map[string]bool) Snapshot {
	out := make(Snapshot, len(symbols))
	for sym := range symbols {
		if q, ok := s[sym]; ok {
			out[sym] = q
		}
	}
	return out
}

// Encode serializes the snapshot as one event payload.
func (s Snapshot) Encode() ([]byte, error) {
	return json.Marshal(s)
}

// DecodeSnapshot parses an event payload.
func DecodeSnapshot(payload []byte) (Snapshot, error) {
	var s Snapshot
	if err := json.Unmarshal(payload, &s); err != nil {
		return nil, fmt.Errorf("decode snapshot: %w", err)
	}
	return s, nil
}
