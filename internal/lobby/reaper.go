package lobby

import (
	"time"

	"go.uber.org/zap"
)

// reapLoop disposes the session once every team has stayed empty for the
// idle window.
func (s *Session) reapLoop() {
	t := time.NewTicker(s.opts.ReapInterval)
	defer t.Stop()

	var emptySince time.Time
	for {
		select {
		case <-s.ctx.Done():
			return
		case now := <-t.C:
			if !s.current.Load().state.IsEmpty() {
				emptySince = time.Time{}
				continue
			}
			if emptySince.IsZero() {
				emptySince = now
			}
			if now.Sub(emptySince) >= s.opts.IdleTimeout {
				s.log.Info("reaping idle lobby", zap.Duration("idle", now.Sub(emptySince)))
				s.Dispose()
				return
			}
		}
	}
}
