package config

import "time"

type Sessions struct{}

var _ SessionConfig = Sessions{}

func (Sessions) GetSessionTTL() time.Duration {
	return time.Duration(GetInt("SESSION_TTL_HOURS", 24)) * time.Hour
}

func (Sessions) GetReapInterval() time.Duration {
	return GetDuration("SESSION_REAP_INTERVAL", 5*time.Minute)
}
