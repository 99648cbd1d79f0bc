package poster

import (
	"context"
	"time"
)

// Delays are the fixed settle times used between page interactions. The site
// re-renders parts of the form after almost every click, and there is no
// reliable "done" signal, so each tier is an empirical upper bound.
type Delays struct {
	Short      time.Duration // focus changes, radio checks
	Medium     time.Duration // dropdown renders, field re-validation
	Long       time.Duration // photo upload registration
	Navigation time.Duration // full page transitions
}

// NewDelays returns the standard tiers. Fast mode roughly halves them, which
// is safe on a warm session but flakier on slow connections.
func NewDelays(fast bool) Delays {
	d := Delays{
		Short:      300 * time.Millisecond,
		Medium:     700 * time.Millisecond,
		Long:       1500 * time.Millisecond,
		Navigation: 3 * time.Second,
	}
	if fast {
		d.Short /= 2
		d.Medium /= 2
		d.Long /= 2
		d.Navigation /= 2
	}
	return d
}

// Sleep waits for the given duration or until ctx is done.
func Sleep(ctx context.Context, d time.Duration) {
	select {
	case <-time.After(d):
	case <-ctx.Done():
	}
}
