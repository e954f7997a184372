package config

import (
	"net"
	"os"
	"strconv"
	"strings"
	"time"
)

const (
	hostEnvVar     = "API_HOST"
	portEnvVar     = "API_PORT"
	appNameVar     = "APP_NAME"
	logLevelEnvVar = "LOG_LEVEL"
	mockModeEnvVar = "MOCK_MODE"
)

// EnvVars reads process settings from the environment. Non-empty override
// fields win over the environment.
type EnvVars struct {
	host string
	port string
	mock *bool
}

var _ EnvConfig = EnvVars{}

func (e EnvVars) GetHost() string {
	if e.host != "" {
		return e.host
	}
	return GetEnv(hostEnvVar, "0.0.0.0")
}

func (e EnvVars) GetPort() string {
	if e.port != "" {
		return strings.TrimPrefix(e.port, ":")
	}
	return strings.TrimPrefix(GetEnv(portEnvVar, "8000"), ":")
}

// GetAddr returns the listen address in host:port form.
func (e EnvVars) GetAddr() string {
	return net.JoinHostPort(e.GetHost(), e.GetPort())
}

func (EnvVars) GetAppName() string {
	return GetEnv(appNameVar, "Compute Broker")
}

func (EnvVars) GetEnv() string {
	env := os.Getenv("ENV")
	if env == "" {
		return "DEV"
	}
	return env
}

func (EnvVars) GetLogLevel() string {
	return strings.ToLower(GetEnv(logLevelEnvVar, "info"))
}

// IsMockMode reports whether the in-process provider should be used instead
// of the remote compute API.
func (e EnvVars) IsMockMode() bool {
	if e.mock != nil {
		return *e.mock
	}
	return GetBool(mockModeEnvVar, true)
}

func GetEnv(envVar, defaultValue string) string {
	value := os.Getenv(envVar)
	if value == "" {
		return defaultValue
	}
	return value
}

// GetBool parses a boolean env var, falling back on missing or unparsable values.
func GetBool(envVar string, defaultValue bool) bool {
	v, err := strconv.ParseBool(GetEnv(envVar, strconv.FormatBool(defaultValue)))
	if err != nil {
		return defaultValue
	}
	return v
}

// GetDuration parses a Go duration string ("5m", "90s").
func GetDuration(envVar string, defaultValue time.Duration) time.Duration {
	v := os.Getenv(envVar)
	if v == "" {
		return defaultValue
	}
	d, err := time.ParseDuration(v)
	if err != nil || d <= 0 {
		return defaultValue
	}
	return d
}

// GetInt parses a positive integer env var.
func GetInt(envVar string, defaultValue int) int {
	v := os.Getenv(envVar)
	if v == "" {
		return defaultValue
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return defaultValue
	}
	return n
}
