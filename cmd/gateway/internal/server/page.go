package server

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"io"

	"github.com/naclonts/marketstream/pkg/catalog"
	"github.com/naclonts/marketstream/pkg/series"
)

//go:embed templates/index.html.tmpl
var templates embed.FS

type pageData struct {
	Tickers []string
	Catalog *catalog.Catalog
	Window  int
}

// page is rendered once; the catalog never changes after startup.
type page struct {
	body []byte
}

func newPage(c *catalog.Catalog, window int) (*page, error) {
	if window < 2 {
		window = series.DefaultCapacity
	}

	tmpl, err := template.ParseFS(templates, "templates/index.html.tmpl")
	if err != nil {
		return nil, fmt.Errorf("parse page template: %w", err)
	}

	var buf bytes.Buffer
	data := pageData{Tickers: c.Symbols(), Catalog: c, Window: window}
	if err := tmpl.Execute(&buf, data); err != nil {
		return nil, fmt.Errorf("render page: %w", err)
	}
	return &page{body: buf.Bytes()}, nil
}

func (p *page) render(w io.Writer) error {
	_, err := w.Write(p.body)
	return err
}
