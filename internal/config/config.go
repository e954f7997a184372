package config

import "time"

type Config interface {
	EnvConfig
	CorsConfig
	ProviderConfig
	SessionConfig
}

type EnvConfig interface {
	GetHost() string
	GetPort() string
	GetAddr() string
	GetAppName() string
	GetEnv() string
	GetLogLevel() string
	IsMockMode() bool
}

type CorsConfig interface {
	GetAllowedOrigins() AllowedOrigins
	GetAllowedMethods() string
	GetAllowedHeaders() string
}

type ProviderConfig interface {
	GetProviderAPIKey() string
	GetProviderURL() string
	GetOrganizationID() string
	GetProviderTimeout() time.Duration
	GetProvisionTimeout() time.Duration
}

type SessionConfig interface {
	GetSessionTTL() time.Duration
	GetReapInterval() time.Duration
}

type mainConfig struct {
	EnvVars
	Cors
	Provider
	Sessions
}

// Option overrides a value that would otherwise come from the environment.
type Option func(*mainConfig)

// WithHost overrides API_HOST.
func WithHost(host string) Option {
	return func(c *mainConfig) { c.EnvVars.host = host }
}

// WithPort overrides API_PORT.
func WithPort(port string) Option {
	return func(c *mainConfig) { c.EnvVars.port = port }
}

// WithMockMode overrides MOCK_MODE.
func WithMockMode(mock bool) Option {
	return func(c *mainConfig) { c.EnvVars.mock = &mock }
}

func New(opts ...Option) Config {
	c := &mainConfig{}
	for _, opt := range opts {
		opt(c)
	}
	return *c
}
