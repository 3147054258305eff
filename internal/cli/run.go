package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/understudy-bot/understudy/internal/config"
	"github.com/understudy-bot/understudy/internal/persona"
	"github.com/understudy-bot/understudy/internal/provider"
	"github.com/understudy-bot/understudy/internal/responder"
	"github.com/understudy-bot/understudy/internal/session"
	"github.com/understudy-bot/understudy/internal/store"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Connect to WhatsApp and answer messages in persona",
	RunE:  runRun,
}

func runRun(cmd *cobra.Command, args []string) error {
	printHeader("understudy run")

	ctx := context.Background()

	cfg, err := config.Load()
	if err != nil {
		return err
	}

	table, err := persona.LoadTable(cfg.Personas.Path)
	if err != nil {
		return fmt.Errorf("load personas: %w", err)
	}
	resolver := persona.NewResolver(table)
	fmt.Printf("Personas: %d configured, default %q\n", resolver.Len(), persona.Default.Name)

	creds, convs, closeStore, err := buildStores(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeStore()

	prov, err := buildProvider(ctx, cfg)
	if err != nil {
		return err
	}

	blob, err := creds.Load(ctx)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return fmt.Errorf("no WhatsApp credentials in the %s store; run `understudy pair` first", cfg.Store.Backend)
		}
		return fmt.Errorf("load credentials: %w", err)
	}

	sess, err := buildSession(cfg, blob)
	if err != nil {
		return err
	}

	r := responder.New(responder.Deps{
		Session:       sess,
		Credentials:   creds,
		Conversations: convs,
		Personas:      resolver,
		Provider:      prov,
	}, responder.Options{
		Model:          cfg.Model.Name,
		MaxReplyTokens: cfg.Model.MaxReplyTokens,
		Temperature:    cfg.Model.Temperature,
		HistoryLimit:   cfg.Model.HistoryLimit,
		ReconnectDelay: cfg.WhatsApp.ReconnectDelay,
	})

	if err := r.Start(ctx); err != nil {
		sess.Close()
		return fmt.Errorf("start responder: %w", err)
	}
	fmt.Println("Connected. Press Ctrl+C to stop.")

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, os.Interrupt, syscall.SIGTERM)
	<-sigs

	fmt.Println("Shutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	r.Shutdown(shutdownCtx)
	return nil
}

// buildStores constructs the credential and conversation stores for
// the configured backend. The returned func releases the backend.
func buildStores(ctx context.Context, cfg *config.Config) (store.CredentialStore, store.ConversationLog, func(), error) {
	switch cfg.Store.Backend {
	case "firestore", "":
		if cfg.Store.ProjectID == "" {
			return nil, nil, nil, fmt.Errorf("firestore backend needs a project id (UNDERSTUDY_STORE_PROJECT_ID or GOOGLE_CLOUD_PROJECT)")
		}
		fs, err := store.NewFirestoreStore(ctx, cfg.Store.ProjectID)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("connect firestore: %w", err)
		}
		return fs, fs, func() { fs.Close() }, nil
	case "memory":
		mem := store.NewMemoryStore()
		return mem, mem, func() {}, nil
	default:
		return nil, nil, nil, fmt.Errorf("unknown store backend %q", cfg.Store.Backend)
	}
}

func buildProvider(ctx context.Context, cfg *config.Config) (provider.LLMProvider, error) {
	switch cfg.Model.Provider {
	case "gemini", "":
		if cfg.Providers.Gemini.APIKey == "" {
			return nil, fmt.Errorf("gemini provider needs an API key (UNDERSTUDY_GEMINI_API_KEY or GEMINI_API_KEY)")
		}
		return provider.NewGeminiProvider(ctx, cfg.Providers.Gemini.APIKey, cfg.Model.Name)
	case "openai":
		if cfg.Providers.OpenAI.APIKey == "" {
			return nil, fmt.Errorf("openai provider needs an API key (UNDERSTUDY_OPENAI_API_KEY or OPENAI_API_KEY)")
		}
		return provider.NewOpenAIProvider(cfg.Providers.OpenAI.APIKey, cfg.Providers.OpenAI.APIBase, cfg.Model.Name), nil
	default:
		return nil, fmt.Errorf("unknown model provider %q", cfg.Model.Provider)
	}
}

func buildSession(cfg *config.Config, blob []byte) (session.Session, error) {
	switch cfg.State.SessionMode {
	case "temp":
		return session.NewTempSession(blob)
	case "file", "":
		if err := os.MkdirAll(cfg.State.Dir, 0o700); err != nil {
			return nil, err
		}
		return session.NewFileSession(cfg.State.Dir, blob)
	default:
		return nil, fmt.Errorf("unknown session mode %q", cfg.State.SessionMode)
	}
}
