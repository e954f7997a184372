package server

// Route path constants
// All application routes are defined here to ensure consistency and prevent typos
const (
	// Health
	RouteRoot   = "/{$}"
	RouteHealth = "/health"

	// Compute Routes
	RouteComputeAvailable = "/api/compute/available"
	RouteComputeGPUTypes  = "/api/compute/gpu-types" // alias used by the notebook extension
	RouteComputeSelect    = "/api/compute/select"
	RouteComputeInstances = "/api/compute/instances"
	RouteComputeInstance  = "/api/compute/instance/{id}"
	RouteComputeStop      = "/api/compute/instance/{id}/stop"

	// Session Routes
	RouteSessionCreate = "/api/sessions/create"
	RouteSession       = "/api/sessions/{id}"
	RouteSessionExtend = "/api/sessions/{id}/extend"

	// Preflight
	RouteAPIPreflight = "/api/"
)
