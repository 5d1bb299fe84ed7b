// Command watch follows a marketstream /stream endpoint in the terminal.
//
// Usage:
//
//	go run ./cmd/watch -url=http://localhost:8080/stream -window=60 -symbols=AAPL,GC=F
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/naclonts/marketstream/cmd/watch/internal/render"
	"github.com/naclonts/marketstream/cmd/watch/internal/stream"
	"github.com/naclonts/marketstream/pkg/config"
	"github.com/naclonts/marketstream/pkg/series"
)

var (
	streamURL = flag.String("url", "http://localhost:8080/stream", "Event stream endpoint")
	window    = flag.Int("window", series.DefaultCapacity, "Points kept per symbol")
	symbols   = flag.String("symbols", "", "Optional comma-separated symbol filter")
	noColor   = flag.Bool("no-color", false, "Disable ANSI colours")
	logLevel  = flag.String("log-level", "warn", "debug, info, warn or error")
)

func main() {
	flag.Parse()

	logger, err := config.NewLogger(config.LoggerConfig{Level: *logLevel, Encoding: "console"})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(2)
	}
	defer logger.Sync()

	if *window < 2 {
		logger.Fatal("window must be at least 2", zap.Int("window", *window))
	}

	target, err := buildURL(*streamURL, *symbols)
	if err != nil {
		logger.Fatal("Invalid url", zap.Error(err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := watch(ctx, logger, target, *window, !*noColor); err != nil && !errors.Is(err, context.Canceled) {
		logger.Fatal("Stream ended", zap.Error(err))
	}
}

func buildURL(raw, filter string) (string, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return "", err
	}
	if filter != "" {
		q := u.Query()
		q.Set("symbols", filter)
		u.RawQuery = q.Encode()
	}
	return u.String(), nil
}

func watch(ctx context.Context, logger *zap.Logger, target string, capacity int, color bool) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "text/event-stream")

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return fmt.Errorf("connect: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("unexpected status %s: %s", resp.Status, body)
	}
	logger.Info("Connected", zap.String("url", target))

	reader := stream.NewReader(resp.Body, logger)
	tracker := series.NewTracker(capacity)
	printer := render.NewPrinter(os.Stdout, capacity, color)

	for {
		snap, err := reader.Next()
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			if errors.Is(err, io.EOF) {
				logger.Info("Stream closed by server")
				return nil
			}
			return err
		}

		now := time.Now()
		if err := printer.Frame(now, snap, tracker, tracker.Apply(now, snap)); err != nil {
			return err
		}
	}
}
