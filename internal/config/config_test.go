package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefaults(t *testing.T) {
	cfg := DefaultConfig()
	if cfg.Model.Provider != "gemini" {
		t.Fatalf("default provider = %s", cfg.Model.Provider)
	}
	if cfg.Model.MaxReplyTokens != 200 {
		t.Fatalf("default reply cap = %d, want 200", cfg.Model.MaxReplyTokens)
	}
	if cfg.Model.HistoryLimit != 10 {
		t.Fatalf("default history limit = %d, want 10", cfg.Model.HistoryLimit)
	}
	if cfg.WhatsApp.ReconnectDelay != 5*time.Second {
		t.Fatalf("default reconnect delay = %v", cfg.WhatsApp.ReconnectDelay)
	}
	if cfg.State.SessionMode != "file" {
		t.Fatalf("default session mode = %s", cfg.State.SessionMode)
	}
}

func TestLoadFileAndEnvPriority(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.json")
	content := `{
		"model": {"provider": "openai", "name": "gpt-4o-mini"},
		"store": {"backend": "memory"}
	}`
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	t.Setenv("UNDERSTUDY_CONFIG", path)
	t.Setenv("UNDERSTUDY_MODEL_NAME", "gpt-4o")
	t.Setenv("UNDERSTUDY_STORE_PROJECT_ID", "my-project")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Model.Provider != "openai" {
		t.Fatalf("file value lost: provider = %s", cfg.Model.Provider)
	}
	if cfg.Model.Name != "gpt-4o" {
		t.Fatalf("env override lost: name = %s", cfg.Model.Name)
	}
	if cfg.Store.Backend != "memory" || cfg.Store.ProjectID != "my-project" {
		t.Fatalf("store = %+v", cfg.Store)
	}
	// Untouched fields keep their defaults.
	if cfg.Model.HistoryLimit != 10 {
		t.Fatalf("history limit = %d", cfg.Model.HistoryLimit)
	}
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	t.Setenv("UNDERSTUDY_CONFIG", filepath.Join(t.TempDir(), "nope.json"))
	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Model.Provider != "gemini" {
		t.Fatalf("defaults not applied: %+v", cfg.Model)
	}
}

func TestGeminiKeyFallback(t *testing.T) {
	t.Setenv("UNDERSTUDY_CONFIG", filepath.Join(t.TempDir(), "nope.json"))
	t.Setenv("GEMINI_API_KEY", "g-key")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Providers.Gemini.APIKey != "g-key" {
		t.Fatalf("gemini key fallback not applied: %q", cfg.Providers.Gemini.APIKey)
	}
}

func TestEnvFileLoading(t *testing.T) {
	dir := t.TempDir()
	envPath := filepath.Join(dir, "env")
	content := "# comment\nexport UNDERSTUDY_TEST_ONLY_KEY=\"quoted value\"\nUNDERSTUDY_TEST_ONLY_OTHER=plain\n"
	if err := os.WriteFile(envPath, []byte(content), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := loadEnvFile(envPath); err != nil {
		t.Fatalf("load env file: %v", err)
	}
	defer os.Unsetenv("UNDERSTUDY_TEST_ONLY_KEY")
	defer os.Unsetenv("UNDERSTUDY_TEST_ONLY_OTHER")

	if got := os.Getenv("UNDERSTUDY_TEST_ONLY_KEY"); got != "quoted value" {
		t.Fatalf("quoted value = %q", got)
	}
	if got := os.Getenv("UNDERSTUDY_TEST_ONLY_OTHER"); got != "plain" {
		t.Fatalf("plain value = %q", got)
	}
}
