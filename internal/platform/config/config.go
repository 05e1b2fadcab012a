// Package config reads process configuration from the environment so main
// stays lean.
package config

import (
	"os"
	"strconv"
	"time"
)

// Server captures everything cmd/server needs to wire the process.
type Server struct {
	Addr        string
	DatabaseURL string

	Vault Vault
	Audio Audio
}

// Vault holds credentials and endpoints for the biometric matching engine.
type Vault struct {
	AppID     string
	APIKey    string
	APISecret string
	GroupID   string

	Host      string
	ServiceID string

	ConnectTimeout time.Duration
	ReadTimeout    time.Duration
}

// Endpoint returns the request path for the vault's private API.
func (v Vault) Endpoint() string {
	return "/v1/private/" + v.ServiceID
}

// Audio holds upload validation limits and the canonical target format.
type Audio struct {
	MaxFileSize    int64
	AllowedFormats string // comma-separated extension whitelist

	TargetSampleRate int
	TargetChannels   int
	TargetBitDepth   int
}

// FromEnv builds a Server config from environment variables.
func FromEnv() Server {
	return Server{
		Addr:        envOr("VOICEGATE_ADDR", ":8080"),
		DatabaseURL: os.Getenv("DATABASE_URL"),
		Vault: Vault{
			AppID:          os.Getenv("VAULT_APP_ID"),
			APIKey:         os.Getenv("VAULT_API_KEY"),
			APISecret:      os.Getenv("VAULT_API_SECRET"),
			GroupID:        envOr("VAULT_GROUP_ID", "voicegate"),
			Host:           envOr("VAULT_HOST", "api.xf-yun.com"),
			ServiceID:      envOr("VAULT_SERVICE_ID", "s782b4996"),
			ConnectTimeout: envDuration("VAULT_CONNECT_TIMEOUT", 30*time.Second),
			ReadTimeout:    envDuration("VAULT_READ_TIMEOUT", 60*time.Second),
		},
		Audio: Audio{
			MaxFileSize:      envInt64("AUDIO_MAX_FILE_SIZE", 10<<20),
			AllowedFormats:   envOr("AUDIO_ALLOWED_FORMATS", "mp3,wav,m4a,aac,ogg"),
			TargetSampleRate: 16000,
			TargetChannels:   1,
			TargetBitDepth:   16,
		},
	}
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envDuration(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}

func envInt64(key string, def int64) int64 {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil && n > 0 {
			return n
		}
	}
	return def
}
