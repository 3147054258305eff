package cli

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/understudy-bot/understudy/internal/config"
	"github.com/understudy-bot/understudy/internal/persona"
)

var personasCmd = &cobra.Command{
	Use:   "personas",
	Short: "List the configured personas",
	RunE:  runPersonas,
}

func runPersonas(cmd *cobra.Command, args []string) error {
	printHeader("understudy personas")

	cfg, err := config.Load()
	if err != nil {
		return err
	}

	table, err := persona.LoadTable(cfg.Personas.Path)
	if err != nil {
		return fmt.Errorf("load personas: %w", err)
	}
	resolver := persona.NewResolver(table)

	fmt.Printf("Default: %s\n", persona.Default.Name)
	if resolver.Len() == 0 {
		fmt.Println("No per-sender personas configured; every chat gets the default.")
		return nil
	}

	names := resolver.Names()
	senders := make([]string, 0, len(names))
	for sender := range names {
		senders = append(senders, sender)
	}
	sort.Strings(senders)

	fmt.Printf("Configured (%d):\n", len(senders))
	for _, sender := range senders {
		fmt.Printf("  %-28s %s\n", sender, names[sender])
	}
	return nil
}
