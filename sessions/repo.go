package sessions

import "time"

// Repo defines the session store operations. Each call is atomic with
// respect to concurrent callers, and returned sessions are copies.
type Repo interface {
	// Create registers a new session in state created. A ttl <= 0 uses DefaultTTL.
	Create(userID string, ttl time.Duration) Session

	// Get retrieves a session by ID and refreshes its last activity
	Get(sessionID string) (Session, error)

	// GetByUser retrieves the session currently indexed for a user
	GetByUser(userID string) (Session, error)

	// Update merges the non-nil fields of u into the session
	Update(sessionID string, u Update) (Session, error)

	// UpdateIf merges u only when match accepts the session's current state,
	// reporting whether it was applied. match runs under the store lock.
	UpdateIf(sessionID string, match func(Session) bool, u Update) (Session, bool, error)

	// Extend moves the session's expiry by d
	Extend(sessionID string, d time.Duration) (Session, error)

	// Delete removes a session, reporting whether one was removed
	Delete(sessionID string) bool

	// List returns a snapshot of every live session
	List() []Session

	// DeleteExpired removes sessions whose expiry is before now and returns them
	DeleteExpired(now time.Time) []Session
}
