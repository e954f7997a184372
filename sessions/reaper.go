package sessions

import (
	"time"

	"github.com/rs/zerolog/log"
)

// DefaultReapInterval is how often the reaper scans for expired sessions.
const DefaultReapInterval = 5 * time.Minute

// StartReaper launches the background sweep. Sessions may outlive their
// expiry by up to one interval. Calling it more than once has no effect.
func (r *InMemoryRepo) StartReaper(interval time.Duration) {
	if interval <= 0 {
		interval = DefaultReapInterval
	}
	r.startOnce.Do(func() {
		r.wg.Add(1)
		go r.reap(interval)
		log.Info().Dur("interval", interval).Msg("Session reaper started")
	})
}

func (r *InMemoryRepo) reap(interval time.Duration) {
	defer r.wg.Done()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-r.stop:
			return
		case <-ticker.C:
			r.Sweep()
		}
	}
}

// Sweep deletes every session expired at the current time, runs the expire
// hook for each, and returns how many were removed.
func (r *InMemoryRepo) Sweep() int {
	expired := r.DeleteExpired(r.now())
	for _, s := range expired {
		log.Info().Str("session_id", s.ID).Time("expires_at", s.ExpiresAt).Msg("Cleaning up expired session")
		if r.onExpire != nil {
			r.onExpire(s)
		}
	}
	if len(expired) > 0 {
		log.Info().Int("count", len(expired)).Msg("Cleaned up expired sessions")
	}
	return len(expired)
}

// Close stops the reaper and waits for an in-flight sweep to finish. It is
// safe to call more than once, and without StartReaper.
func (r *InMemoryRepo) Close() error {
	r.stopOnce.Do(func() {
		close(r.stop)
	})
	r.wg.Wait()
	log.Info().Msg("Session reaper stopped")
	return nil
}
