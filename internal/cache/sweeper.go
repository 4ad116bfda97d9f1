package cache

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/robfig/cron/v3"
)

// Sweepable is implemented by stores that keep expired entries until read.
type Sweepable interface {
	Sweep() int
}

// Sweeper periodically removes expired entries from an in-memory store.
type Sweeper struct {
	store  Sweepable
	logger *slog.Logger
	cron   *cron.Cron
}

// NewSweeper validates spec (standard cron syntax or descriptors such as
// "@every 10m") and registers the sweep job.
func NewSweeper(store Sweepable, spec string, logger *slog.Logger) (*Sweeper, error) {
	s := &Sweeper{
		store:  store,
		logger: logger.With("component", "cache_sweeper"),
		cron:   cron.New(),
	}
	if _, err := s.cron.AddFunc(spec, s.sweep); err != nil {
		return nil, fmt.Errorf("schedule cache sweep %q: %w", spec, err)
	}
	return s, nil
}

// Start runs the schedule until ctx is cancelled.
func (s *Sweeper) Start(ctx context.Context) {
	s.cron.Start()
	s.logger.Info("cache sweeper started")

	<-ctx.Done()
	<-s.cron.Stop().Done()
	s.logger.Info("cache sweeper shut down")
}

func (s *Sweeper) sweep() {
	if n := s.store.Sweep(); n > 0 {
		s.logger.Debug("swept expired cache entries", "count", n)
	}
}
