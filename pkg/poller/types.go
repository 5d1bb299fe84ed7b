package poller

import (
	"context"
	"time"

	"github.com/naclonts/marketstream/pkg/models"
)

// for deterministic testing
type Clock interface {
	Now() time.Time
	After(d time.Duration) <-chan time.Time
}

type RealClock struct{}

func (RealClock) Now() time.Time                         { return time.Now() }
func (RealClock) After(d time.Duration) <-chan time.Time { return time.After(d) }

// EmitFunc receives each snapshot. A non-nil error stops Run.
type EmitFunc func(ctx context.Context, at time.Time, snap models.Snapshot) error
