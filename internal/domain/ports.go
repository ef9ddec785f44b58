package domain

import (
	"context"
	"fmt"
	"time"
)

// Composite is one decoded, timestamped snapshot of the full measurement
// grid as published by the data provider.
type Composite struct {
	Values      [][]float64
	NoDataValue float64
	Timestamp   time.Time
	Precision   float64
}

// DecodeError marks a corrupt or unreadable composite file. The importer
// recovers from it per file (zero points, skip) instead of aborting a batch.
type DecodeError struct {
	Path string
	Err  error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode %s: %v", e.Path, e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

// GridDecoder decodes a composite file into values plus metadata. The binary
// format itself is handled outside this module.
type GridDecoder interface {
	Decode(ctx context.Context, path string) (Composite, error)
}

// GridProjector computes the reprojected coordinate grid for a product's
// native dimensions. Called once per product; the projection mathematics are
// external.
type GridProjector interface {
	ProjectGrid(ctx context.Context, rows, cols, epsg int) (Grid, error)
}

// TimedMessage is one entry of the sink's message log.
type TimedMessage struct {
	Timestamp time.Time
	Payload   []byte
}

// Sink durably receives finished observations and can report how far the
// import has previously progressed. Delivery is at-least-once; consumers
// are assumed idempotent.
type Sink interface {
	// Put publishes one observation keyed by the decoded file's timestamp.
	// Implementations retry transient failures and must not drop the
	// observation while the context is alive.
	Put(ctx context.Context, ts time.Time, obs Observation) error

	// LastPublishedTimestamp returns the timestamp of the most recently
	// published observation, or ok=false if nothing was published yet.
	LastPublishedTimestamp(ctx context.Context) (ts time.Time, ok bool, err error)

	// RecentMessages returns up to n of the most recent published messages
	// in publish order, used to seed the classifier history after restart.
	RecentMessages(ctx context.Context, n int) ([]TimedMessage, error)
}
