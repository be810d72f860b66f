package out

import (
	"context"
	"time"
)

// HTTPProber sends a single health probe to a URL.
type HTTPProber interface {
	// Probe returns the status code and the response time.
	Probe(ctx context.Context, url string) (int, time.Duration, error)
}
