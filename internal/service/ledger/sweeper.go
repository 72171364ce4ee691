package ledger

import (
	"context"
	"time"
)

// Sweeper periodically expires matches stuck in pending. Runs until the
// context is canceled; one failed sweep is logged and retried next tick.
type Sweeper struct {
	svc      *Service
	interval time.Duration
}

func NewSweeper(svc *Service) *Sweeper {
	return &Sweeper{
		svc:      svc,
		interval: svc.appCtx.Config.Match.SweepInterval,
	}
}

// Run blocks, sweeping on every tick. Call in a goroutine.
func (s *Sweeper) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			if _, err := s.svc.ExpireStale(ctx, now); err != nil {
				s.svc.appCtx.Logger.Error("expiry sweep failed", "err", err)
			}
		}
	}
}
