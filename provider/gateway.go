package provider

import "context"

// Gateway is the typed boundary to the external compute provider. It holds
// no state; every call is independent.
type Gateway interface {
	// ListGPUTypes returns the provider catalog. Callers wanting continuous
	// operation fall back to FallbackGPUTypes on error.
	ListGPUTypes(ctx context.Context) ([]GPUType, error)

	// Provision allocates a new instance. Failures are always returned.
	Provision(ctx context.Context, req ProvisionRequest) (Instance, error)

	// GetStatus returns the current state of an instance. A missing
	// instance yields errors.ErrInstanceNotFound.
	GetStatus(ctx context.Context, instanceID string) (Instance, error)

	// Stop and Delete report success. Failures are logged, never returned.
	Stop(ctx context.Context, instanceID string) bool
	Delete(ctx context.Context, instanceID string) bool
}
