package models

// CatalogEntry is the descriptive metadata shown for a symbol.
type CatalogEntry struct {
	Symbol      string `json:"-"`
	DisplayName string `json:"longName"`
	Description string `json:"description"`
}
