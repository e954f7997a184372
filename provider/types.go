package provider

import (
	"fmt"

	"github.com/flexnote/compute-broker/internal/errors"
)

// GPUType is a catalog entry for a provisionable accelerator.
type GPUType struct {
	ID                string  `json:"id"`
	Name              string  `json:"name"`
	Memory            string  `json:"memory"`             // e.g. "16GB", "40GB"
	ComputeCapability string  `json:"compute_capability"` // e.g. "8.0"
	PricePerHour      float64 `json:"price_per_hour"`
	Available         bool    `json:"available"`
}

func (g GPUType) validate() error {
	if g.ID == "" || g.Name == "" {
		return fmt.Errorf("%w: gpu type record missing id or name", errors.ErrProviderUnavailable)
	}
	return nil
}

// InstanceStatus is the provider side state of a compute instance.
type InstanceStatus string

const (
	InstancePending InstanceStatus = "pending"
	InstanceRunning InstanceStatus = "running"
	InstanceStopped InstanceStatus = "stopped"
)

// Valid reports whether s is one of the known instance states.
func (s InstanceStatus) Valid() bool {
	switch s {
	case InstancePending, InstanceRunning, InstanceStopped:
		return true
	}
	return false
}

// Instance is a provider managed GPU/CPU/RAM bundle.
type Instance struct {
	InstanceID string         `json:"instance_id"`
	GPUType    string         `json:"gpu_type"`
	GPUCount   int            `json:"gpu_count"`
	CPUCores   int            `json:"cpu_cores"`
	RAMGB      int            `json:"ram_gb"`
	Status     InstanceStatus `json:"status"`
	IPAddress  string         `json:"ip_address,omitempty"`
}

func (i Instance) validate() error {
	if i.InstanceID == "" {
		return fmt.Errorf("%w: instance record missing instance_id", errors.ErrProviderUnavailable)
	}
	if !i.Status.Valid() {
		return fmt.Errorf("%w: instance %s has unknown status %q", errors.ErrProviderUnavailable, i.InstanceID, i.Status)
	}
	return nil
}

// Provisioning defaults applied when a request leaves a size at zero.
const (
	DefaultGPUCount = 1
	DefaultCPUCores = 8
	DefaultRAMGB    = 32
)

// ProvisionRequest describes the instance to allocate.
type ProvisionRequest struct {
	GPUType  string `json:"gpu_type"`
	GPUCount int    `json:"gpu_count"`
	CPUCores int    `json:"cpu_cores"`
	RAMGB    int    `json:"ram_gb"`
	UserID   string `json:"user_id,omitempty"`
}

// WithDefaults fills zero sizes with the provisioning defaults.
func (r ProvisionRequest) WithDefaults() ProvisionRequest {
	if r.GPUCount <= 0 {
		r.GPUCount = DefaultGPUCount
	}
	if r.CPUCores <= 0 {
		r.CPUCores = DefaultCPUCores
	}
	if r.RAMGB <= 0 {
		r.RAMGB = DefaultRAMGB
	}
	return r
}
