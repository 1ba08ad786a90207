// Package pace throttles outbound requests per external source class.
package pace

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"golang.org/x/time/rate"
)

// Class identifies an external source class with its own pacing interval.
type Class string

const (
	// Overpass is the geo source interpreter.
	Overpass Class = "overpass"
	// Website covers arbitrary initiative websites scraped for links.
	Website Class = "website"
)

// Pacer enforces a fixed minimum interval between consecutive requests to
// the same source class. It is deliberately not adaptive: call volumes are
// bounded by explicit limits upstream, so a plain interval keeps third
// parties within polite-use limits without extra machinery.
type Pacer struct {
	limiters map[Class]*rate.Limiter
}

// New creates a Pacer with per-class minimum intervals.
func New(intervals map[Class]time.Duration) *Pacer {
	limiters := make(map[Class]*rate.Limiter, len(intervals))
	for class, interval := range intervals {
		if interval <= 0 {
			interval = time.Second
		}
		limiters[class] = rate.NewLimiter(rate.Every(interval), 1)
	}
	return &Pacer{limiters: limiters}
}

// Wait blocks until the class's interval allows another request, or the
// context is cancelled. Unknown classes pass through immediately. The delay
// applies regardless of whether the previous request succeeded.
func (p *Pacer) Wait(ctx context.Context, class Class) error {
	lim, ok := p.limiters[class]
	if !ok {
		return nil
	}
	if err := lim.Wait(ctx); err != nil {
		return eris.Wrapf(err, "pace: wait %s", class)
	}
	return nil
}
