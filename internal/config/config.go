// Package config provides configuration helpers for companion commands.
package config

import (
	"os"
)

// Default service endpoints. These match a local docker-compose layout
// where each collaborator service runs on its own port.
const (
	DefaultPort            = "8080"
	DefaultOllamaBaseURL   = "http://localhost:11434"
	DefaultOllamaModel     = "llama3.2:1b"
	DefaultVoiceServiceURL = "http://localhost:8002"
	DefaultTaskServiceURL  = "http://localhost:8003"
)

// Env returns the value of an environment variable, or the provided
// default if it is unset or empty.
func Env(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

// Port returns the HTTP listen port from COMPANION_PORT.
func Port() string {
	return Env("COMPANION_PORT", DefaultPort)
}

// LogLevel returns the log level from COMPANION_LOG_LEVEL.
func LogLevel() string {
	return Env("COMPANION_LOG_LEVEL", "info")
}

// DataDir returns the directory for file-backed persistence.
func DataDir() string {
	return Env("COMPANION_DATA_DIR", "data")
}

// Profile returns the device profile name that scopes persisted state.
// Two processes sharing a profile share one session.
func Profile() string {
	return Env("COMPANION_PROFILE", "default")
}

// RedisURL returns the Redis connection URL, or "" when the JSON file
// store should be used instead.
func RedisURL() string {
	return os.Getenv("COMPANION_REDIS_URL")
}

// OllamaBaseURL returns the dialogue service base URL.
func OllamaBaseURL() string {
	return Env("OLLAMA_BASE_URL", DefaultOllamaBaseURL)
}

// OllamaModel returns the dialogue model name.
func OllamaModel() string {
	return Env("OLLAMA_MODEL", DefaultOllamaModel)
}

// VoiceServiceURL returns the speech service base URL.
func VoiceServiceURL() string {
	return Env("VOICE_SERVICE_URL", DefaultVoiceServiceURL)
}

// TaskServiceURL returns the action-execution service base URL.
func TaskServiceURL() string {
	return Env("TASK_SERVICE_URL", DefaultTaskServiceURL)
}

// EmotionServiceURL returns the remote emotion backend base URL, or ""
// when only the local keyword rules should be used.
func EmotionServiceURL() string {
	return os.Getenv("EMOTION_SERVICE_URL")
}

// Muted reports whether narration output is disabled (COMPANION_MUTE).
func Muted() bool {
	return os.Getenv("COMPANION_MUTE") != ""
}
