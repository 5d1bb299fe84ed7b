package stream_test

import (
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/naclonts/marketstream/cmd/watch/internal/stream"
	"github.com/naclonts/marketstream/pkg/models"
)

func readAll(t *testing.T, body string) []models.Snapshot {
	t.Helper()
	r := stream.NewReader(strings.NewReader(body), zap.NewNop())

	var out []models.Snapshot
	for {
		snap, err := r.Next()
		if errors.Is(err, io.EOF) {
			return out
		}
		require.NoError(t, err)
		out = append(out, snap)
	}
}

func TestReader_Events(t *testing.T) {
	body := "data: {\"AAPL\":{\"price\":150.1,\"volume\":1000}}\n\n" +
		"data: {\"AAPL\":{\"price\":\"N/A\",\"volume\":0}}\n\n"

	snaps := readAll(t, body)
	require.Len(t, snaps, 2)
	assert.Equal(t, models.NewQuote(150.1, 1000), snaps[0]["AAPL"])
	assert.False(t, snaps[1]["AAPL"].Available)
}

func TestReader_IgnoresCommentsAndOtherFields(t *testing.T) {
	body := ": keepalive\n\n" +
		"event: snapshot\nid: 7\nretry: 1000\ndata:{\"GC=F\":{\"price\":2300.5,\"volume\":12}}\n\n"

	snaps := readAll(t, body)
	require.Len(t, snaps, 1)
	assert.Equal(t, models.NewQuote(2300.5, 12), snaps[0]["GC=F"])
}

func TestReader_MultiLineDataAndCRLF(t *testing.T) {
	body := "data: {\"AAPL\":\r\ndata: {\"price\":1,\"volume\":2}}\r\n\r\n"

	snaps := readAll(t, body)
	require.Len(t, snaps, 1)
	assert.Equal(t, models.NewQuote(1, 2), snaps[0]["AAPL"])
}

func TestReader_SkipsMalformed(t *testing.T) {
	body := "data: {not json\n\n" +
		"data: {\"AAPL\":{\"price\":\"closed\",\"volume\":0}}\n\n" +
		"data: {\"MSFT\":{\"price\":410,\"volume\":5}}\n\n"

	snaps := readAll(t, body)
	require.Len(t, snaps, 1)
	assert.Contains(t, snaps[0], "MSFT")
}

func TestReader_TrailingPartialEventDropped(t *testing.T) {
	snaps := readAll(t, "data: {\"AAPL\":{\"price\":1,\"volume\":0}}")
	assert.Empty(t, snaps)
}
