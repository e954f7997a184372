package compute

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/flexnote/compute-broker/internal/errors"
	"github.com/flexnote/compute-broker/internal/utils"
	"github.com/flexnote/compute-broker/provider"
	"github.com/flexnote/compute-broker/sessions"
)

// SelectRequest asks for compute to be provisioned against a session. An
// empty SessionID creates a fresh session for UserID.
type SelectRequest struct {
	GPUType   string
	GPUCount  int
	SessionID string
	UserID    string
}

// SelectResult reports the session and instance a selection produced.
type SelectResult struct {
	SessionID  string
	InstanceID string
	Status     sessions.Status
	Message    string
}

// InstanceSummary is a session's view of the instance it references.
type InstanceSummary struct {
	InstanceID string
	SessionID  string
	GPUType    string
	Status     sessions.Status
}

// Service maps user sessions onto provider instances. Session state changes
// go through the store; side effects go through the gateway.
type Service struct {
	sessions   sessions.Repo
	gateway    provider.Gateway
	sessionTTL time.Duration
}

// ServiceOption defines a function type to modify the Service instance.
type ServiceOption func(*Service)

// WithSessionTTL sets the lifetime of sessions created by the service.
func WithSessionTTL(ttl time.Duration) ServiceOption {
	return func(s *Service) {
		s.sessionTTL = ttl
	}
}

func NewService(repo sessions.Repo, gateway provider.Gateway, opts ...ServiceOption) *Service {
	s := &Service{
		sessions:   repo,
		gateway:    gateway,
		sessionTTL: sessions.DefaultTTL,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// SelectCompute resolves or creates a session, records the provisioning
// intent, and provisions an instance. When the provider fails the session is
// left in provisioning for reconciliation.
func (s *Service) SelectCompute(ctx context.Context, req SelectRequest) (SelectResult, error) {
	if req.GPUType == "" {
		return SelectResult{}, errors.Invalidf("gpu_type is required")
	}
	if req.GPUCount == 0 {
		req.GPUCount = provider.DefaultGPUCount
	}
	if req.GPUCount < 0 {
		return SelectResult{}, errors.Invalidf("gpu_count must be positive, got %d", req.GPUCount)
	}

	var session sessions.Session
	if req.SessionID != "" {
		var err error
		if session, err = s.sessions.Get(req.SessionID); err != nil {
			return SelectResult{}, errors.Wrapf(err, "select compute for session %s", req.SessionID)
		}
	} else {
		session = s.sessions.Create(req.UserID, s.sessionTTL)
	}

	// Record intent before the provider call so a failed or interrupted
	// provision stays observable. A session holds at most one instance.
	current, applied, err := s.sessions.UpdateIf(session.ID, withoutInstance, sessions.Update{
		Status:   utils.Ptr(sessions.StatusProvisioning),
		GPUType:  utils.Ptr(req.GPUType),
		GPUCount: utils.Ptr(req.GPUCount),
	})
	if err != nil {
		return SelectResult{}, errors.Wrapf(err, "mark session %s provisioning", session.ID)
	}
	if !applied {
		return SelectResult{}, errors.Invalidf("session %s already has instance %s, delete the session first", session.ID, current.InstanceID)
	}

	logger := log.With().Str("session_id", session.ID).Str("gpu_type", req.GPUType).Int("gpu_count", req.GPUCount).Logger()
	logger.Info().Msg("Provisioning instance")

	inst, err := s.gateway.Provision(ctx, provider.ProvisionRequest{
		GPUType:  req.GPUType,
		GPUCount: req.GPUCount,
		UserID:   session.UserID,
	})
	if err != nil {
		logger.Err(err).Msg("Provisioning failed, session left provisioning")
		return SelectResult{}, errors.Wrapf(err, "provision %s x%d for session %s", req.GPUType, req.GPUCount, session.ID)
	}

	updated, applied, err := s.sessions.UpdateIf(session.ID, withoutInstance, sessions.Update{
		InstanceID: utils.Ptr(inst.InstanceID),
		Status:     utils.Ptr(sessions.StatusActive),
	})
	if err != nil {
		// The session vanished mid-provision (deleted or reaped)
		logger.Err(err).Str("instance_id", inst.InstanceID).Msg("Session gone after provisioning, releasing instance")
		s.releaseOrphan(ctx, inst.InstanceID)
		return SelectResult{}, errors.Wrapf(err, "record instance %s on session %s", inst.InstanceID, session.ID)
	}
	if !applied {
		// A concurrent select recorded its instance first
		logger.Warn().Str("instance_id", inst.InstanceID).Str("recorded_instance_id", updated.InstanceID).Msg("Session already holds an instance, releasing the new one")
		s.releaseOrphan(ctx, inst.InstanceID)
		return SelectResult{}, errors.Invalidf("session %s already has instance %s", session.ID, updated.InstanceID)
	}

	logger.Info().Str("instance_id", inst.InstanceID).Msg("Instance provisioned")
	return SelectResult{
		SessionID:  updated.ID,
		InstanceID: updated.InstanceID,
		Status:     updated.Status,
		Message:    fmt.Sprintf("Successfully provisioned %s x%d", req.GPUType, req.GPUCount),
	}, nil
}

func withoutInstance(s sessions.Session) bool {
	return !s.HasInstance()
}

func (s *Service) releaseOrphan(ctx context.Context, instanceID string) {
	if !s.gateway.Delete(ctx, instanceID) {
		log.Warn().Str("instance_id", instanceID).Msg("Release of orphaned instance failed")
	}
}

// ReleaseExpiredInstance returns a session expire hook that deletes the
// expired session's instance at the provider, best effort.
func ReleaseExpiredInstance(gateway provider.Gateway) func(sessions.Session) {
	return func(session sessions.Session) {
		if !session.HasInstance() {
			return
		}
		logger := log.With().Str("session_id", session.ID).Str("instance_id", session.InstanceID).Logger()
		if !gateway.Delete(context.Background(), session.InstanceID) {
			logger.Warn().Msg("Instance delete failed for expired session")
			return
		}
		logger.Info().Msg("Released instance of expired session")
	}
}

// DeleteSession releases the session's instance, best effort, and then
// removes the session. The instance goes first so a retry can still find its id.
func (s *Service) DeleteSession(ctx context.Context, sessionID string) error {
	session, err := s.sessions.Get(sessionID)
	if err != nil {
		return errors.Wrapf(err, "delete session %s", sessionID)
	}

	if session.HasInstance() {
		if !s.gateway.Delete(ctx, session.InstanceID) {
			log.Warn().Str("session_id", sessionID).Str("instance_id", session.InstanceID).Msg("Instance delete failed, removing session anyway")
		}
	}

	if !s.sessions.Delete(sessionID) {
		// Removed concurrently between the lookup and here
		return errors.Wrapf(errors.ErrSessionNotFound, "delete session %s", sessionID)
	}
	return nil
}

// AvailableGPUTypes returns the provider catalog, or the built in catalog
// when the provider cannot be reached.
func (s *Service) AvailableGPUTypes(ctx context.Context) []provider.GPUType {
	gpus, err := s.gateway.ListGPUTypes(ctx)
	if err != nil {
		log.Warn().Err(err).Msg("GPU catalog unavailable, serving fallback catalog")
		return provider.FallbackGPUTypes()
	}
	return gpus
}

// InstanceStatus queries the provider for an instance's current state.
func (s *Service) InstanceStatus(ctx context.Context, instanceID string) (provider.Instance, error) {
	inst, err := s.gateway.GetStatus(ctx, instanceID)
	if err != nil {
		return provider.Instance{}, errors.Wrapf(err, "status of instance %s", instanceID)
	}
	return inst, nil
}

// StopInstance stops an instance and marks any session referencing it as stopped.
func (s *Service) StopInstance(ctx context.Context, instanceID string) error {
	if !s.gateway.Stop(ctx, instanceID) {
		return fmt.Errorf("%w: failed to stop instance %s", errors.ErrProviderUnavailable, instanceID)
	}
	holdsInstance := func(session sessions.Session) bool {
		return session.InstanceID == instanceID
	}
	for _, session := range s.sessions.List() {
		if !holdsInstance(session) {
			continue
		}
		// Re-checked under the store lock in case the session moved on
		if _, _, err := s.sessions.UpdateIf(session.ID, holdsInstance, sessions.Update{Status: utils.Ptr(sessions.StatusStopped)}); err != nil {
			log.Debug().Err(err).Str("session_id", session.ID).Msg("Session gone while recording stop")
		}
	}
	return nil
}

// CreateSession registers a new session. A ttl <= 0 uses the service default.
func (s *Service) CreateSession(userID string, ttl time.Duration) sessions.Session {
	if ttl <= 0 {
		ttl = s.sessionTTL
	}
	return s.sessions.Create(userID, ttl)
}

func (s *Service) Session(sessionID string) (sessions.Session, error) {
	return s.sessions.Get(sessionID)
}

func (s *Service) UserSession(userID string) (sessions.Session, error) {
	return s.sessions.GetByUser(userID)
}

// ExtendSession pushes a session's expiry out by a whole number of hours.
func (s *Service) ExtendSession(sessionID string, hours int) (sessions.Session, error) {
	if hours <= 0 {
		return sessions.Session{}, errors.Invalidf("hours must be positive, got %d", hours)
	}
	return s.sessions.Extend(sessionID, time.Duration(hours)*time.Hour)
}

// ActiveInstances lists every session that references an instance.
func (s *Service) ActiveInstances() []InstanceSummary {
	var out []InstanceSummary
	for _, session := range s.sessions.List() {
		if !session.HasInstance() {
			continue
		}
		out = append(out, InstanceSummary{
			InstanceID: session.InstanceID,
			SessionID:  session.ID,
			GPUType:    session.GPUType,
			Status:     session.Status,
		})
	}
	return out
}
