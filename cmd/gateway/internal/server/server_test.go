package server_test

import (
	"bufio"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/naclonts/marketstream/cmd/gateway/internal/hub"
	"github.com/naclonts/marketstream/cmd/gateway/internal/server"
	"github.com/naclonts/marketstream/cmd/gateway/internal/testutils"
	"github.com/naclonts/marketstream/pkg/catalog"
	"github.com/naclonts/marketstream/pkg/models"
	"github.com/naclonts/marketstream/pkg/poller"
	"github.com/naclonts/marketstream/pkg/provider"
	"github.com/naclonts/marketstream/pkg/provider/providertest"
)

func testCatalog() *catalog.Catalog {
	return catalog.New(
		models.CatalogEntry{Symbol: "AAPL", DisplayName: "Apple Inc.", Description: "Designs <phones>."},
		models.CatalogEntry{Symbol: "GC=F", DisplayName: "Gold", Description: "Gold futures."},
	)
}

func perConnectionServer(t *testing.T, fake *providertest.Fake) *httptest.Server {
	cat := testCatalog()
	p := poller.New(zap.NewNop(), fake, cat.Symbols(), poller.Options{
		Interval:     time.Hour,
		FetchTimeout: 100 * time.Millisecond,
	})
	srv, err := server.New(server.Options{Catalog: cat, Poller: p, WindowSize: 60, Logger: zap.NewNop()})
	require.NoError(t, err)

	ts := httptest.NewServer(srv.Routes())
	t.Cleanup(ts.Close)
	return ts
}

// firstEvent reads the stream until the first blank-line terminated event.
func firstEvent(t *testing.T, url string) (*http.Response, string) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	t.Cleanup(cancel)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })

	r := bufio.NewReader(resp.Body)
	line, err := r.ReadString('\n')
	require.NoError(t, err)
	blank, err := r.ReadString('\n')
	require.NoError(t, err)
	assert.Equal(t, "\n", blank)
	return resp, line
}

func TestStream_PerConnection(t *testing.T) {
	fake := providertest.NewFake()
	fake.SetPrice("AAPL", 150.12, 1000)
	fake.Errors["GC=F"] = provider.ErrUnavailable
	ts := perConnectionServer(t, fake)

	resp, line := firstEvent(t, ts.URL+"/stream")

	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))
	assert.Equal(t, "no-cache", resp.Header.Get("Cache-Control"))
	require.True(t, strings.HasPrefix(line, "data: "))

	snap, err := models.DecodeSnapshot([]byte(strings.TrimPrefix(strings.TrimSpace(line), "data: ")))
	require.NoError(t, err)
	assert.Len(t, snap, 2)
	assert.Equal(t, models.NewQuote(150.12, 1000), snap["AAPL"])
	assert.Equal(t, models.UnavailableQuote(0), snap["GC=F"])
}

func TestStream_PerConnection_SymbolsFilter(t *testing.T) {
	fake := providertest.NewFake()
	fake.SetPrice("AAPL", 1, 1)
	fake.SetPrice("GC=F", 2, 2)
	ts := perConnectionServer(t, fake)

	_, line := firstEvent(t, ts.URL+"/stream?symbols=GC%3DF,UNKNOWN")

	assert.Contains(t, line, "GC=F")
	assert.NotContains(t, line, "AAPL")
	fast, _ := fake.Calls("AAPL")
	assert.Equal(t, 0, fast)
}

func TestStream_UnknownSymbolsOnly(t *testing.T) {
	ts := perConnectionServer(t, providertest.NewFake())

	resp, err := http.Get(ts.URL + "/stream?symbols=NOPE")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestIndex(t *testing.T) {
	ts := perConnectionServer(t, providertest.NewFake())

	resp, err := http.Get(ts.URL + "/")
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	page := string(body)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, page, `const TICKERS = ["AAPL","GC=F"]`)
	assert.Contains(t, page, `const WINDOW =  60 `)
	assert.Contains(t, page, "Apple Inc.")
	assert.NotContains(t, page, "<phones>")
	assert.Contains(t, page, "new EventSource('/stream')")
}

func TestIndex_NotFound(t *testing.T) {
	ts := perConnectionServer(t, providertest.NewFake())

	resp, err := http.Get(ts.URL + "/favicon.ico")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestHealthz(t *testing.T) {
	ts := perConnectionServer(t, providertest.NewFake())

	resp, err := http.Get(ts.URL + "/healthz")
	require.NoError(t, err)
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "ok", string(body))
}

func TestWS_NotRoutedPerConnection(t *testing.T) {
	ts := perConnectionServer(t, providertest.NewFake())

	resp, err := http.Get(ts.URL + "/ws")
	require.NoError(t, err)
	resp.Body.Close()
	// falls through to the index handler
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestStream_SharedReplaysLatest(t *testing.T) {
	cat := testCatalog()
	store := testutils.NewMockStore()
	store.SetLatest(`{"AAPL":{"price":150.5,"volume":1000},"GC=F":{"price":"N/A","volume":0}}`)
	h := hub.NewHub(store, cat, zap.NewNop())

	srv, err := server.New(server.Options{Catalog: cat, Hub: h, Logger: zap.NewNop()})
	require.NoError(t, err)
	ts := httptest.NewServer(srv.Routes())
	t.Cleanup(ts.Close)

	_, line := firstEvent(t, ts.URL+"/stream?symbols=AAPL")

	assert.Equal(t, "data: {\"AAPL\":{\"price\":150.5,\"volume\":1000}}\n", line)
}

func TestNew_RequiresSource(t *testing.T) {
	_, err := server.New(server.Options{Catalog: testCatalog(), Logger: zap.NewNop()})
	assert.Error(t, err)
}
