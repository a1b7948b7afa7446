package regulator

import (
	"context"
	"time"
)

// PageFetcher retrieves a single URL and returns the raw body.
// Implementations own retry and timeout behavior; a returned error means
// retries are exhausted.
type PageFetcher interface {
	Get(ctx context.Context, url string) ([]byte, error)
}

// Sink receives normalized publications for downstream processing.
type Sink interface {
	Publish(ctx context.Context, pub Publication) error
}

// Clock returns the current time (useful for testing).
type Clock interface {
	Now() time.Time
}

// IDGenerator produces run IDs (UUIDs).
type IDGenerator interface {
	NewID() (string, error)
}
