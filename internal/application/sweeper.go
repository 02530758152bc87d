package application

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// Sweeper periodically evicts expired watch list entries so a quiet
// webhook still bounds registry memory. The engine also sweeps after
// every pipeline event; this loop only covers the gaps.
type Sweeper struct {
	log   *zap.Logger
	eng   *Engine
	every time.Duration
}

func NewSweeper(l *zap.Logger, e *Engine, every time.Duration) *Sweeper {
	return &Sweeper{log: l, eng: e, every: every}
}

func (s *Sweeper) Run(ctx context.Context) {
	t := time.NewTicker(s.every)
	defer t.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			s.log.Debug("periodic sweep")
			s.eng.SweepNow(ctx)
		}
	}
}
