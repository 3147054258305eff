package persona

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestResolveConfiguredSender(t *testing.T) {
	table := map[string]Persona{
		"111@s.whatsapp.net": {Name: "Nora", Prompt: "You are Nora."},
		"222":                {Name: "Max", Prompt: "You are Max."},
	}
	r := NewResolver(table)

	if got := r.Resolve("111@s.whatsapp.net"); got.Name != "Nora" {
		t.Fatalf("full-jid lookup = %s, want Nora", got.Name)
	}
	// Bare user part is accepted as a table key.
	if got := r.Resolve("222@s.whatsapp.net"); got.Name != "Max" {
		t.Fatalf("user-part lookup = %s, want Max", got.Name)
	}
}

func TestResolveUnknownSenderGetsDefault(t *testing.T) {
	r := NewResolver(nil)
	got := r.Resolve("123@s.whatsapp.net")
	if got.Name != Default.Name || got.Prompt != Default.Prompt {
		t.Fatalf("unknown sender did not resolve to the default persona: %+v", got)
	}
}

func TestDefaultPersonaConstraints(t *testing.T) {
	// The fallback persona is a scripted character; its prompt must carry
	// the behavioral constraints the responder relies on.
	for _, want := range []string{"stay in character", "never reveal", "short"} {
		if !strings.Contains(strings.ToLower(Default.Prompt), want) {
			t.Fatalf("default persona prompt is missing %q", want)
		}
	}
}

func TestLoadTable(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "personas.json")
	content := `{
		"111@s.whatsapp.net": {"name": "Nora", "prompt": "You are Nora."},
		"222": {"name": "Max", "prompt": "You are Max."}
	}`
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}

	table, err := LoadTable(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(table) != 2 {
		t.Fatalf("len = %d, want 2", len(table))
	}
	if table["222"].Name != "Max" {
		t.Fatalf("entry 222 = %+v", table["222"])
	}
}

func TestLoadTableEmptyPath(t *testing.T) {
	table, err := LoadTable("")
	if err != nil {
		t.Fatalf("empty path should not error, got %v", err)
	}
	if table != nil {
		t.Fatalf("expected nil table, got %v", table)
	}
}

func TestLoadTableRejectsEmptyPrompt(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "personas.json")
	if err := os.WriteFile(path, []byte(`{"111": {"name": "Nora", "prompt": " "}}`), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := LoadTable(path); err == nil {
		t.Fatal("expected error for empty prompt")
	}
}

func TestLoadTableBadJSON(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "personas.json")
	if err := os.WriteFile(path, []byte(`{not json`), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := LoadTable(path); err == nil {
		t.Fatal("expected error for malformed table")
	}
}
