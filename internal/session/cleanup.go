package session

import (
	"context"
	"fmt"
	"time"

	"github.com/felixgeelhaar/bolt/v3"

	"github.com/kozaktomas/face-compare/internal/constants"
)

// Evicter removes expired entries and reports how many were removed.
type Evicter interface {
	EvictExpired() int
}

// Cleaner periodically evicts expired sessions until its context is cancelled.
type Cleaner struct {
	store    Evicter
	interval time.Duration
	logger   *bolt.Logger
}

// NewCleaner creates a Cleaner. If interval is <= 0, it defaults to one hour.
func NewCleaner(store Evicter, interval time.Duration, logger *bolt.Logger) *Cleaner {
	if interval <= 0 {
		interval = constants.DefaultCleanupInterval
	}
	return &Cleaner{
		store:    store,
		interval: interval,
		logger:   logger,
	}
}

// Run waits one interval, sweeps, and repeats until ctx is cancelled.
// A failing sweep is logged and never stops the loop.
func (c *Cleaner) Run(ctx context.Context) {
	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			removed, err := c.sweep()
			if err != nil {
				c.logger.Error().Err(err).Msg("session cleanup failed")
				continue
			}
			if removed > 0 {
				c.logger.Info().Int("removed", removed).Msg("evicted expired sessions")
			}
		}
	}
}

// sweep runs one eviction pass, converting a panic into an error.
func (c *Cleaner) sweep() (removed int, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic during eviction: %v", r)
		}
	}()
	return c.store.EvictExpired(), nil
}
