package sessions

import "time"

// Status is the lifecycle state of a session's compute allocation.
type Status string

const (
	StatusCreated      Status = "created"
	StatusProvisioning Status = "provisioning"
	StatusActive       Status = "active"
	StatusStopped      Status = "stopped"
)

// DefaultTTL is used when a session is created without an explicit lifetime.
const DefaultTTL = 24 * time.Hour

// Session ties an optional user to at most one provider instance. The
// instance is referenced by id only; its lifecycle belongs to the provider.
type Session struct {
	ID           string    // Unique session identifier (UUID), immutable
	UserID       string    // Optional owner, empty when anonymous
	InstanceID   string    // Provider instance id, empty until provisioned
	GPUType      string    // Requested GPU type
	GPUCount     int       // Requested GPU count
	Status       Status    // created, provisioning, active or stopped
	CreatedAt    time.Time // When the session was created
	ExpiresAt    time.Time // When the reaper may remove the session
	LastActivity time.Time // Refreshed on every read and write
}

// HasInstance reports whether a provider instance has been recorded.
func (s Session) HasInstance() bool {
	return s.InstanceID != ""
}

// Expired reports whether the session's expiry is strictly before now.
func (s Session) Expired(now time.Time) bool {
	return s.ExpiresAt.Before(now)
}

// Update carries the fields to merge into a session. Nil fields are left
// untouched.
type Update struct {
	InstanceID *string
	GPUType    *string
	GPUCount   *int
	Status     *Status
}

func (u Update) apply(s *Session) {
	if u.InstanceID != nil {
		s.InstanceID = *u.InstanceID
	}
	if u.GPUType != nil {
		s.GPUType = *u.GPUType
	}
	if u.GPUCount != nil {
		s.GPUCount = *u.GPUCount
	}
	if u.Status != nil {
		s.Status = *u.Status
	}
}
