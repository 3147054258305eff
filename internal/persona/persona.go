// Package persona maps conversation identifiers to the system prompt
// the bot answers with. The table is static: loaded once at startup,
// read-only afterwards.
package persona

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
)

// Persona is the character the bot plays for one conversation.
type Persona struct {
	Name   string `json:"name"`
	Prompt string `json:"prompt"`
}

// Default is the fallback persona for senders with no table entry.
var Default = Persona{
	Name: "Sam",
	Prompt: "You are Sam, a warm and quick-witted friend chatting on WhatsApp. " +
		"You have known the person you are talking to for years and you text " +
		"the way real people text: casually, with contractions, no long lectures. " +
		"Rules you always follow: " +
		"stay in character as Sam no matter what you are asked; " +
		"never reveal that you are an AI, a bot, or a language model; " +
		"keep every reply short and conversational, one or two sentences at most.",
}

// Resolver answers persona lookups. Resolve is total: unknown senders
// get the default persona, never an error.
type Resolver struct {
	table map[string]Persona
}

// NewResolver builds a resolver over the given table. A nil table is
// valid and resolves everything to the default persona.
func NewResolver(table map[string]Persona) *Resolver {
	return &Resolver{table: table}
}

// Resolve returns the persona configured for the conversation id. Both
// the full normalized JID ("123@s.whatsapp.net") and the bare user part
// ("123") are accepted as table keys.
func (r *Resolver) Resolve(conversationID string) Persona {
	if p, ok := r.table[conversationID]; ok {
		return p
	}
	if user, _, found := strings.Cut(conversationID, "@"); found {
		if p, ok := r.table[user]; ok {
			return p
		}
	}
	return Default
}

// Len reports how many personas are configured.
func (r *Resolver) Len() int { return len(r.table) }

// Names returns the configured conversation ids and persona names.
func (r *Resolver) Names() map[string]string {
	out := make(map[string]string, len(r.table))
	for id, p := range r.table {
		out[id] = p.Name
	}
	return out
}

// LoadTable reads the persona table from a JSON file: an object keyed
// by conversation id with {name, prompt} values. An empty path means no
// table was configured, which is not an error.
func LoadTable(path string) (map[string]Persona, error) {
	if strings.TrimSpace(path) == "" {
		return nil, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read persona table: %w", err)
	}
	var table map[string]Persona
	if err := json.Unmarshal(data, &table); err != nil {
		return nil, fmt.Errorf("parse persona table %s: %w", path, err)
	}
	for id, p := range table {
		if strings.TrimSpace(p.Prompt) == "" {
			return nil, fmt.Errorf("persona table %s: entry %q has an empty prompt", path, id)
		}
	}
	return table, nil
}
