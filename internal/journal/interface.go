package journal

import (
	"context"

	"codeberg.org/mutker/hdsim/internal/relay"
)

// Recorder keeps a history of the event log. It is display history only;
// nothing read back from it is ever re-sent.
type Recorder interface {
	Record(ctx context.Context, entries ...relay.Entry) error
	Recent(ctx context.Context, n int) ([]relay.Entry, error)
	Close() error
}

// Repository defines the interface for journal storage
type Repository interface {
	Append(entries []relay.Entry) error
	Recent(ctx context.Context, n int) ([]relay.Entry, error)
	Close() error
}
