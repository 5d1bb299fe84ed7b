package repository

import (
	"context"
)

// SnapshotStore is the shared-mode source of snapshots written by the poller service.
type SnapshotStore interface {
	// Latest returns the most recent snapshot payload, or "" when none is cached.
	Latest(ctx context.Context) (string, error)
	// RunPubSub blocks, calling onMessage with every published payload until ctx is done.
	RunPubSub(ctx context.Context, onMessage func(payload string)) error
	Close() error
}
