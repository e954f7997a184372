package providerfake_test

import (
	"context"
	"regexp"
	"testing"

	"github.com/flexnote/compute-broker/internal/errors"
	"github.com/flexnote/compute-broker/provider"
	"github.com/flexnote/compute-broker/provider/providerfake"
	"github.com/stretchr/testify/require"
)

func TestProvisionLifecycle(t *testing.T) {
	ctx := context.Background()
	g := providerfake.NewFakeGateway()

	inst, err := g.Provision(ctx, provider.ProvisionRequest{GPUType: "nvidia-l4"})
	require.NoError(t, err)
	require.Regexp(t, regexp.MustCompile(`^inst-[0-9a-f]{12}$`), inst.InstanceID)
	require.Equal(t, provider.InstanceRunning, inst.Status)
	require.Equal(t, provider.DefaultGPUCount, inst.GPUCount)
	require.Equal(t, provider.DefaultCPUCores, inst.CPUCores)

	require.True(t, g.Stop(ctx, inst.InstanceID))
	got, err := g.GetStatus(ctx, inst.InstanceID)
	require.NoError(t, err)
	require.Equal(t, provider.InstanceStopped, got.Status)

	require.True(t, g.Delete(ctx, inst.InstanceID))
	require.False(t, g.Delete(ctx, inst.InstanceID))
	require.Equal(t, []string{inst.InstanceID, inst.InstanceID}, g.DeleteCalls())

	_, err = g.GetStatus(ctx, inst.InstanceID)
	require.ErrorIs(t, err, errors.ErrInstanceNotFound)
	require.False(t, g.Stop(ctx, inst.InstanceID))
}

func TestProvisionRejectsUnknownGPUType(t *testing.T) {
	g := providerfake.NewFakeGateway()
	_, err := g.Provision(context.Background(), provider.ProvisionRequest{GPUType: "tpu-v5"})
	require.ErrorIs(t, err, errors.ErrInvalidRequest)
	require.Empty(t, g.Instances())
}

func TestQueuedInstanceIDs(t *testing.T) {
	g := providerfake.NewFakeGateway()
	g.QueueInstanceIDs("inst-001", "inst-002")

	for _, want := range []string{"inst-001", "inst-002"} {
		inst, err := g.Provision(context.Background(), provider.ProvisionRequest{GPUType: "nvidia-t4"})
		require.NoError(t, err)
		require.Equal(t, want, inst.InstanceID)
	}
	require.Equal(t, []string{"inst-001", "inst-002"}, g.Instances())
}

func TestCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	g := providerfake.NewFakeGateway()
	_, err := g.ListGPUTypes(ctx)
	require.ErrorIs(t, err, errors.ErrProviderUnavailable)
	_, err = g.Provision(ctx, provider.ProvisionRequest{GPUType: "nvidia-t4"})
	require.ErrorIs(t, err, errors.ErrProviderUnavailable)
}
