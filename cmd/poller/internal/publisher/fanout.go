// Package publisher delivers each poll cycle's snapshot to the shared-mode sinks.
package publisher

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/naclonts/marketstream/pkg/models"
)

const sinkTimeout = 5 * time.Second

// Fanout encodes a snapshot once and hands it to every sink. Sink errors are
// logged and never stop the poll loop.
type Fanout struct {
	logger *zap.Logger
	sinks  []Sink
}

func NewFanout(logger *zap.Logger, sinks ...Sink) *Fanout {
	return &Fanout{logger: logger, sinks: sinks}
}

// Emit has the shape of poller.EmitFunc.
func (f *Fanout) Emit(ctx context.Context, at time.Time, snap models.Snapshot) error {
	payload, err := snap.Encode()
	if err != nil {
		f.logger.Error("Failed to encode snapshot", zap.Error(err))
		return nil
	}

	for _, s := range f.sinks {
		sctx, cancel := context.WithTimeout(ctx, sinkTimeout)
		err := s.Publish(sctx, at, payload)
		cancel()

		if err != nil {
			f.logger.Error("Sink Error", zap.String("sink", s.Name()), zap.Error(err))
			continue
		}
		f.logger.Debug("Snapshot delivered",
			zap.String("sink", s.Name()),
			zap.Int("bytes", len(payload)),
			zap.Int("symbols", len(snap)),
		)
	}
	return nil
}
