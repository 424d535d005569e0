package jobs

import (
	"context"
	"time"

	"github.com/soundstack/soundstack/pkg/logger"
)

// Sweeper drops throttle state idle for longer than maxIdle.
type Sweeper interface {
	Sweep(maxIdle time.Duration) int
}

// Warmer reloads the song catalog cache from the store.
type Warmer interface {
	Warm(ctx context.Context) error
}

// SweepLimiter prunes idle login throttles every 10 minutes.
func SweepLimiter(limiter Sweeper, maxIdle time.Duration, log *logger.Logger) Job {
	return Job{
		Name: "sweep-login-throttle",
		Spec: "@every 10m",
		Run: func(context.Context) error {
			if removed := limiter.Sweep(maxIdle); removed > 0 && log != nil {
				log.WithField("removed", removed).Debug("pruned idle login throttles")
			}
			return nil
		},
	}
}

// WarmCatalog refreshes the cached song list every 5 minutes.
func WarmCatalog(songs Warmer) Job {
	return Job{
		Name: "warm-song-catalog",
		Spec: "@every 5m",
		Run:  songs.Warm,
	}
}
