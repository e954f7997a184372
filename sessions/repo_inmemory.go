package sessions

import (
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/flexnote/compute-broker/internal/errors"
)

var _ Repo = (*InMemoryRepo)(nil)

// InMemoryRepo is a thread-safe in-memory session store. A single mutex
// guards both the session map and the user index so the two never diverge.
type InMemoryRepo struct {
	mu       sync.Mutex
	sessions map[string]*Session // sessionID -> session
	users    map[string]string   // userID -> sessionID
	nowTime  func() time.Time
	onExpire func(Session)

	stop      chan struct{}
	wg        sync.WaitGroup
	startOnce sync.Once
	stopOnce  sync.Once
}

// Option configures an InMemoryRepo.
type Option func(*InMemoryRepo)

// WithNowTime sets the clock (primarily for testing)
func WithNowTime(nowFunc func() time.Time) Option {
	return func(r *InMemoryRepo) {
		r.nowTime = nowFunc
	}
}

// WithExpireHook registers fn to run for every session the reaper removes.
// It is called outside the store lock, one session at a time.
func WithExpireHook(fn func(Session)) Option {
	return func(r *InMemoryRepo) {
		r.onExpire = fn
	}
}

// NewInMemoryRepo creates an empty session store. Call StartReaper to begin
// sweeping expired sessions and Close to stop it.
func NewInMemoryRepo(opts ...Option) *InMemoryRepo {
	r := &InMemoryRepo{
		sessions: make(map[string]*Session),
		users:    make(map[string]string),
		nowTime:  time.Now,
		stop:     make(chan struct{}),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *InMemoryRepo) now() time.Time {
	return r.nowTime().UTC()
}

// Create registers a new session. Creating a second session for the same
// user replaces the index entry; the older session stays reachable by ID.
func (r *InMemoryRepo) Create(userID string, ttl time.Duration) Session {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	now := r.now()
	s := &Session{
		ID:           uuid.New().String(),
		UserID:       userID,
		Status:       StatusCreated,
		CreatedAt:    now,
		ExpiresAt:    now.Add(ttl),
		LastActivity: now,
	}

	r.mu.Lock()
	r.sessions[s.ID] = s
	if userID != "" {
		r.users[userID] = s.ID
	}
	created := *s
	r.mu.Unlock()

	log.Info().Str("session_id", created.ID).Str("user_id", userID).Dur("ttl", ttl).Msg("Created session")
	return created
}

func (r *InMemoryRepo) Get(sessionID string) (Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.sessions[sessionID]
	if !ok {
		return Session{}, errors.ErrSessionNotFound
	}
	s.LastActivity = r.now()
	return *s, nil
}

func (r *InMemoryRepo) GetByUser(userID string) (Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	sessionID, ok := r.users[userID]
	if !ok {
		return Session{}, errors.ErrSessionNotFound
	}
	s, ok := r.sessions[sessionID]
	if !ok {
		return Session{}, errors.ErrSessionNotFound
	}
	s.LastActivity = r.now()
	return *s, nil
}

func (r *InMemoryRepo) Update(sessionID string, u Update) (Session, error) {
	r.mu.Lock()
	s, ok := r.sessions[sessionID]
	if !ok {
		r.mu.Unlock()
		return Session{}, errors.ErrSessionNotFound
	}
	u.apply(s)
	s.LastActivity = r.now()
	updated := *s
	r.mu.Unlock()

	log.Debug().Str("session_id", sessionID).Str("status", string(updated.Status)).Msg("Updated session")
	return updated, nil
}

func (r *InMemoryRepo) UpdateIf(sessionID string, match func(Session) bool, u Update) (Session, bool, error) {
	r.mu.Lock()
	s, ok := r.sessions[sessionID]
	if !ok {
		r.mu.Unlock()
		return Session{}, false, errors.ErrSessionNotFound
	}
	if !match(*s) {
		current := *s
		r.mu.Unlock()
		return current, false, nil
	}
	u.apply(s)
	s.LastActivity = r.now()
	updated := *s
	r.mu.Unlock()

	log.Debug().Str("session_id", sessionID).Str("status", string(updated.Status)).Msg("Updated session")
	return updated, true, nil
}

// Extend moves ExpiresAt by d. A shift that would put the expiry before the
// creation time is rejected.
func (r *InMemoryRepo) Extend(sessionID string, d time.Duration) (Session, error) {
	r.mu.Lock()
	s, ok := r.sessions[sessionID]
	if !ok {
		r.mu.Unlock()
		return Session{}, errors.ErrSessionNotFound
	}
	expiresAt := s.ExpiresAt.Add(d)
	if expiresAt.Before(s.CreatedAt) {
		r.mu.Unlock()
		return Session{}, errors.Invalidf("extension of %s would expire session before it was created", d)
	}
	s.ExpiresAt = expiresAt
	s.LastActivity = r.now()
	extended := *s
	r.mu.Unlock()

	log.Info().Str("session_id", sessionID).Dur("by", d).Time("expires_at", extended.ExpiresAt).Msg("Extended session")
	return extended, nil
}

func (r *InMemoryRepo) Delete(sessionID string) bool {
	r.mu.Lock()
	removed := r.deleteLocked(sessionID)
	r.mu.Unlock()

	if removed {
		log.Info().Str("session_id", sessionID).Msg("Deleted session")
	}
	return removed
}

// deleteLocked removes a session and its user index entry. r.mu must be held.
func (r *InMemoryRepo) deleteLocked(sessionID string) bool {
	s, ok := r.sessions[sessionID]
	if !ok {
		return false
	}
	// Only drop the index entry if it still points at this session
	if s.UserID != "" && r.users[s.UserID] == sessionID {
		delete(r.users, s.UserID)
	}
	delete(r.sessions, sessionID)
	return true
}

// List returns copies of all sessions ordered by creation time.
func (r *InMemoryRepo) List() []Session {
	r.mu.Lock()
	out := make([]Session, 0, len(r.sessions))
	for _, s := range r.sessions {
		out = append(out, *s)
	}
	r.mu.Unlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out
}

func (r *InMemoryRepo) DeleteExpired(now time.Time) []Session {
	r.mu.Lock()
	defer r.mu.Unlock()

	var expired []Session
	for sessionID, s := range r.sessions {
		if s.Expired(now) {
			expired = append(expired, *s)
			r.deleteLocked(sessionID)
		}
	}
	return expired
}
