package config

import "time"

type Provider struct{}

var _ ProviderConfig = Provider{}

func (Provider) GetProviderAPIKey() string {
	return GetEnv("FLEXAI_API_KEY", "mock_api_key")
}

func (Provider) GetProviderURL() string {
	return GetEnv("FLEXAI_API_URL", "http://mock-flexai:9000")
}

func (Provider) GetOrganizationID() string {
	return GetEnv("FLEXAI_ORG_ID", "mock_org_id")
}

// GetProviderTimeout bounds catalog, status, stop and delete calls.
func (Provider) GetProviderTimeout() time.Duration {
	return 30 * time.Second
}

func (Provider) GetProvisionTimeout() time.Duration {
	return 60 * time.Second
}
