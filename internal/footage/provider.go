package footage

import (
	"context"
	"fmt"
	"sync"
	"time"

	"shortreel/pkg/models"
)

// Result is one search hit from a stock-media provider, reduced to the
// fields the pipeline needs.
type Result struct {
	ID          int64   `json:"id"`
	DownloadURL string  `json:"download_url"`
	DurationSec float64 `json:"duration_seconds,omitempty"`
	Width       int     `json:"width,omitempty"`
	Height      int     `json:"height,omitempty"`
}

// Provider is a stock-media search backend
type Provider interface {
	// Name identifies the provider in logs and cache keys
	Name() string
	// Available reports whether credentials for the provider exist
	Available() bool
	// Search returns download candidates for a query, best first
	Search(ctx context.Context, query string, kind models.MediaKind, portrait bool) ([]Result, error)
}

// rateLimiter enforces a sliding-window hourly request budget per provider
type rateLimiter struct {
	mu       sync.Mutex
	window   time.Duration
	limit    int
	requests []time.Time
}

func newRateLimiter(limit int) *rateLimiter {
	return &rateLimiter{window: time.Hour, limit: limit}
}

// allow records a request if the budget permits it
func (r *rateLimiter) allow() bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	cutoff := time.Now().Add(-r.window)
	kept := r.requests[:0]
	for _, t := range r.requests {
		if t.After(cutoff) {
			kept = append(kept, t)
		}
	}
	r.requests = kept

	if len(r.requests) >= r.limit {
		return false
	}

	r.requests = append(r.requests, time.Now())
	return true
}

var errRateLimited = fmt.Errorf("provider hourly rate limit reached")
