package cache

import (
	"context"
	"log/slog"
	"time"
)

// CompactorConfig configures the background delete-marker compactor.
type CompactorConfig struct {
	// Interval is how often the compactor runs.
	// Default: 5 minutes.
	Interval time.Duration

	// OlderThan is the minimum age of a delete marker before it is dropped.
	// Markers let watchers observe deletes, so they are kept for a while.
	// Default: 30 minutes.
	OlderThan time.Duration
}

// Compactor periodically drops old delete markers from the cache buckets.
// Sessions that churn through many raises would otherwise leave one marker
// per lowered or disposed hand behind.
type Compactor struct {
	cache *NATS
	cfg   CompactorConfig

	stop chan struct{}
	done chan struct{}
}

// StartCompactor launches the compactor goroutine. Call Stop to shut it down.
func (n *NATS) StartCompactor(cfg CompactorConfig) *Compactor {
	if cfg.Interval == 0 {
		cfg.Interval = 5 * time.Minute
	}
	if cfg.OlderThan == 0 {
		cfg.OlderThan = 30 * time.Minute
	}

	c := &Compactor{
		cache: n,
		cfg:   cfg,
		stop:  make(chan struct{}),
		done:  make(chan struct{}),
	}
	go c.loop()
	slog.Info("cache: compactor started",
		"interval", cfg.Interval,
		"older_than", cfg.OlderThan)
	return c
}

// Stop shuts down the compactor and waits for it to exit.
func (c *Compactor) Stop() {
	if c == nil || c.stop == nil {
		return
	}
	close(c.stop)
	<-c.done
	c.stop = nil
}

func (c *Compactor) loop() {
	defer close(c.done)

	ticker := time.NewTicker(c.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-c.stop:
			return
		case <-ticker.C:
			c.sweep()
		}
	}
}

func (c *Compactor) sweep() {
	if !c.cache.Healthy() {
		slog.Debug("cache: compactor skipped, store disconnected")
		return
	}
	if err := c.cache.PurgeDeleteMarkers(context.Background(), c.cfg.OlderThan); err != nil {
		slog.Warn("cache: compaction failed", "error", err)
	}
}
