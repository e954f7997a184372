package providerfake

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/flexnote/compute-broker/internal/errors"
	"github.com/flexnote/compute-broker/provider"
)

var _ provider.Gateway = (*FakeGateway)(nil)

// Catalog is the GPU line-up served by the fake provider.
var Catalog = []provider.GPUType{
	{ID: "nvidia-t4", Name: "NVIDIA Tesla T4", Memory: "16GB", ComputeCapability: "7.5", PricePerHour: 0.35, Available: true},
	{ID: "nvidia-v100", Name: "NVIDIA Tesla V100", Memory: "32GB", ComputeCapability: "7.0", PricePerHour: 2.48, Available: true},
	{ID: "nvidia-a100-40gb", Name: "NVIDIA A100 40GB", Memory: "40GB", ComputeCapability: "8.0", PricePerHour: 3.67, Available: true},
	{ID: "nvidia-a100-80gb", Name: "NVIDIA A100 80GB", Memory: "80GB", ComputeCapability: "8.0", PricePerHour: 4.10, Available: true},
	{ID: "nvidia-h100", Name: "NVIDIA H100", Memory: "80GB", ComputeCapability: "9.0", PricePerHour: 8.00, Available: true},
	{ID: "nvidia-l4", Name: "NVIDIA L4", Memory: "24GB", ComputeCapability: "8.9", PricePerHour: 0.75, Available: true},
}

// FakeGateway is an in-memory compute provider. It backs mock mode and the
// tests of everything above the gateway.
type FakeGateway struct {
	lock      sync.Mutex
	instances map[string]*provider.Instance
	deleted   []string
	stopped   []string
	nextIDs   []string

	// Failure injection
	FailCatalog   error
	FailProvision error
	FailDelete    bool
}

func NewFakeGateway() *FakeGateway {
	return &FakeGateway{
		instances: make(map[string]*provider.Instance),
	}
}

// QueueInstanceIDs makes the next Provision calls hand out the given ids in order.
func (g *FakeGateway) QueueInstanceIDs(ids ...string) {
	g.lock.Lock()
	defer g.lock.Unlock()
	g.nextIDs = append(g.nextIDs, ids...)
}

func (g *FakeGateway) ListGPUTypes(ctx context.Context) ([]provider.GPUType, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", errors.ErrProviderUnavailable, err)
	}
	g.lock.Lock()
	defer g.lock.Unlock()
	if g.FailCatalog != nil {
		return nil, g.FailCatalog
	}
	out := make([]provider.GPUType, len(Catalog))
	copy(out, Catalog)
	return out, nil
}

func (g *FakeGateway) Provision(ctx context.Context, req provider.ProvisionRequest) (provider.Instance, error) {
	if err := ctx.Err(); err != nil {
		return provider.Instance{}, fmt.Errorf("%w: %v", errors.ErrProviderUnavailable, err)
	}
	g.lock.Lock()
	defer g.lock.Unlock()
	if g.FailProvision != nil {
		return provider.Instance{}, g.FailProvision
	}
	if !knownGPUType(req.GPUType) {
		return provider.Instance{}, errors.Invalidf("Invalid GPU type. Available types: %s", strings.Join(catalogIDs(), ", "))
	}

	req = req.WithDefaults()
	inst := &provider.Instance{
		InstanceID: g.nextInstanceID(),
		GPUType:    req.GPUType,
		GPUCount:   req.GPUCount,
		CPUCores:   req.CPUCores,
		RAMGB:      req.RAMGB,
		Status:     provider.InstanceRunning,
		IPAddress:  "192.168.1.100",
	}
	g.instances[inst.InstanceID] = inst
	return *inst, nil
}

// nextInstanceID pops a queued id or mints "inst-<12 hex>". g.lock must be held.
func (g *FakeGateway) nextInstanceID() string {
	if len(g.nextIDs) > 0 {
		id := g.nextIDs[0]
		g.nextIDs = g.nextIDs[1:]
		return id
	}
	return "inst-" + strings.ReplaceAll(uuid.New().String(), "-", "")[:12]
}

func (g *FakeGateway) GetStatus(ctx context.Context, instanceID string) (provider.Instance, error) {
	g.lock.Lock()
	defer g.lock.Unlock()
	inst, ok := g.instances[instanceID]
	if !ok {
		return provider.Instance{}, fmt.Errorf("%w: %s", errors.ErrInstanceNotFound, instanceID)
	}
	return *inst, nil
}

func (g *FakeGateway) Stop(ctx context.Context, instanceID string) bool {
	g.lock.Lock()
	defer g.lock.Unlock()
	inst, ok := g.instances[instanceID]
	if !ok {
		return false
	}
	inst.Status = provider.InstanceStopped
	g.stopped = append(g.stopped, instanceID)
	return true
}

func (g *FakeGateway) Delete(ctx context.Context, instanceID string) bool {
	g.lock.Lock()
	defer g.lock.Unlock()
	g.deleted = append(g.deleted, instanceID)
	if g.FailDelete {
		return false
	}
	if _, ok := g.instances[instanceID]; !ok {
		return false
	}
	delete(g.instances, instanceID)
	return true
}

// DeleteCalls returns every instance id Delete was invoked with, in order.
func (g *FakeGateway) DeleteCalls() []string {
	g.lock.Lock()
	defer g.lock.Unlock()
	return append([]string(nil), g.deleted...)
}

// StopCalls returns every instance id that was successfully stopped.
func (g *FakeGateway) StopCalls() []string {
	g.lock.Lock()
	defer g.lock.Unlock()
	return append([]string(nil), g.stopped...)
}

// Instances returns the ids of live instances, sorted.
func (g *FakeGateway) Instances() []string {
	g.lock.Lock()
	defer g.lock.Unlock()
	ids := make([]string, 0, len(g.instances))
	for id := range g.instances {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

func knownGPUType(id string) bool {
	for _, g := range Catalog {
		if g.ID == id {
			return true
		}
	}
	return false
}

func catalogIDs() []string {
	ids := make([]string, 0, len(Catalog))
	for _, g := range Catalog {
		ids = append(ids, g.ID)
	}
	return ids
}
