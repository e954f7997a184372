package provider

// fallbackGPUTypes is served when the provider catalog cannot be reached.
var fallbackGPUTypes = []GPUType{
	{ID: "nvidia-t4", Name: "NVIDIA Tesla T4", Memory: "16GB", ComputeCapability: "7.5", PricePerHour: 0.50, Available: true},
	{ID: "nvidia-v100", Name: "NVIDIA Tesla V100", Memory: "32GB", ComputeCapability: "7.0", PricePerHour: 2.00, Available: true},
	{ID: "nvidia-a100", Name: "NVIDIA A100", Memory: "40GB", ComputeCapability: "8.0", PricePerHour: 3.50, Available: true},
	{ID: "nvidia-h100", Name: "NVIDIA H100", Memory: "80GB", ComputeCapability: "9.0", PricePerHour: 5.00, Available: true},
}

// FallbackGPUTypes returns a copy of the built in catalog.
func FallbackGPUTypes() []GPUType {
	out := make([]GPUType, len(fallbackGPUTypes))
	copy(out, fallbackGPUTypes)
	return out
}
