package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/understudy-bot/understudy/internal/config"
	"github.com/understudy-bot/understudy/internal/store"
)

var (
	historyLimit int
	historyList  bool
)

var historyCmd = &cobra.Command{
	Use:   "history [conversation]",
	Short: "Show recent messages for a conversation",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runHistory,
}

func init() {
	historyCmd.Flags().IntVar(&historyLimit, "limit", 20, "Number of entries to show")
	historyCmd.Flags().BoolVar(&historyList, "list", false, "List known conversations instead")
}

func runHistory(cmd *cobra.Command, args []string) error {
	printHeader("understudy history")

	ctx := context.Background()

	cfg, err := config.Load()
	if err != nil {
		return err
	}

	_, convs, closeStore, err := buildStores(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeStore()

	if historyList {
		lister, ok := convs.(interface {
			Conversations(ctx context.Context) ([]string, error)
		})
		if !ok {
			return fmt.Errorf("the %s backend cannot enumerate conversations", cfg.Store.Backend)
		}
		ids, err := lister.Conversations(ctx)
		if err != nil {
			return fmt.Errorf("list conversations: %w", err)
		}
		if len(ids) == 0 {
			fmt.Println("No conversations recorded yet.")
			return nil
		}
		for _, id := range ids {
			fmt.Println(id)
		}
		return nil
	}

	if len(args) == 0 {
		return fmt.Errorf("pass a conversation JID, or --list to enumerate them")
	}

	entries, err := convs.Recent(ctx, args[0], historyLimit)
	if err != nil {
		return fmt.Errorf("read history: %w", err)
	}
	if len(entries) == 0 {
		fmt.Println("No messages recorded for this conversation.")
		return nil
	}

	for _, e := range entries {
		marker := "<-"
		if e.Direction == store.DirectionOutgoing {
			marker = "->"
		}
		fmt.Printf("%s %s %-4s %s\n", e.Timestamp.Format("2006-01-02 15:04:05"), marker, e.Participant, e.Content)
	}
	return nil
}
