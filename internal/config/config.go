// Package config provides configuration types and loading for
// understudy.
package config

import "time"

// Config is the root configuration struct.
type Config struct {
	State     StateConfig     `json:"state"`
	Model     ModelConfig     `json:"model"`
	Store     StoreConfig     `json:"store"`
	Personas  PersonasConfig  `json:"personas"`
	Providers ProvidersConfig `json:"providers"`
	WhatsApp  WhatsAppConfig  `json:"whatsapp"`
}

// StateConfig groups local filesystem state settings.
type StateConfig struct {
	// Dir holds the materialized session and pairing artifacts.
	Dir string `json:"dir" envconfig:"DIR"`
	// SessionMode selects how the session blob is materialized:
	// "file" (stable path under Dir) or "temp" (ephemeral).
	SessionMode string `json:"sessionMode" envconfig:"SESSION_MODE"`
}

// ModelConfig groups generation settings.
type ModelConfig struct {
	// Provider is "gemini" or "openai".
	Provider       string  `json:"provider" envconfig:"PROVIDER"`
	Name           string  `json:"name" envconfig:"NAME"`
	MaxReplyTokens int     `json:"maxReplyTokens" envconfig:"MAX_REPLY_TOKENS"`
	Temperature    float64 `json:"temperature" envconfig:"TEMPERATURE"`
	HistoryLimit   int     `json:"historyLimit" envconfig:"HISTORY_LIMIT"`
}

// StoreConfig selects the conversation/credential store backend.
type StoreConfig struct {
	// Backend is "firestore" or "memory". The memory backend keeps
	// nothing across restarts and exists for local experiments.
	Backend   string `json:"backend" envconfig:"BACKEND"`
	ProjectID string `json:"projectId" envconfig:"PROJECT_ID"`
}

// PersonasConfig points at the static persona table.
type PersonasConfig struct {
	Path string `json:"path" envconfig:"PATH"`
}

// ProvidersConfig contains LLM provider credentials.
type ProvidersConfig struct {
	Gemini GeminiConfig `json:"gemini"`
	OpenAI OpenAIConfig `json:"openai"`
}

// GeminiConfig contains settings for the Gemini API.
type GeminiConfig struct {
	APIKey string `json:"apiKey" envconfig:"API_KEY"`
}

// OpenAIConfig contains settings for an OpenAI-compatible endpoint.
type OpenAIConfig struct {
	APIKey  string `json:"apiKey" envconfig:"API_KEY"`
	APIBase string `json:"apiBase,omitempty" envconfig:"API_BASE"`
}

// WhatsAppConfig tunes the protocol connection.
type WhatsAppConfig struct {
	ReconnectDelay time.Duration `json:"reconnectDelay" envconfig:"RECONNECT_DELAY"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		State: StateConfig{
			Dir:         "~/.understudy",
			SessionMode: "file",
		},
		Model: ModelConfig{
			Provider:       "gemini",
			Name:           "gemini-2.5-flash",
			MaxReplyTokens: 200,
			Temperature:    0.7,
			HistoryLimit:   10,
		},
		Store: StoreConfig{
			Backend: "firestore",
		},
		WhatsApp: WhatsAppConfig{
			ReconnectDelay: 5 * time.Second,
		},
	}
}
