package orch

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"
)

// RunIdleReaper ends sessions that sat without a viewer for longer than ttl.
// A non-positive ttl disables it.
func (o *Orchestrator) RunIdleReaper(ctx context.Context, ttl, every time.Duration) {
	if ttl <= 0 {
		return
	}
	if every <= 0 {
		every = ttl / 2
	}
	t := time.NewTicker(every)
	defer t.Stop()
	log.Info().Str("module", "orch.reaper").Dur("ttl", ttl).Dur("every", every).Msg("idle reaper started")
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-t.C:
			o.ReapIdle(now.Add(-ttl))
		}
	}
}

// ReapIdle removes viewer-less sessions not touched since cutoff and
// tells their hosts. It returns how many were removed.
func (o *Orchestrator) ReapIdle(cutoff time.Time) int {
	o.lifecycle.Lock()
	defer o.lifecycle.Unlock()

	removed := o.Sessions.RemoveIdle(cutoff)
	for _, sess := range removed {
		log.Info().Str("module", "orch.reaper").Str("pin", string(sess.PIN)).Msg("idle session reaped")
		o.notifySessionEnded(sess)
	}
	return len(removed)
}
