package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/skip2/go-qrcode"
	"github.com/spf13/cobra"
	"go.mau.fi/whatsmeow"
	"go.mau.fi/whatsmeow/store/sqlstore"
	waLog "go.mau.fi/whatsmeow/util/log"

	_ "modernc.org/sqlite"

	"github.com/understudy-bot/understudy/internal/config"
)

var pairCmd = &cobra.Command{
	Use:   "pair",
	Short: "Pair with WhatsApp via QR code and upload the credentials",
	RunE:  runPair,
}

func runPair(cmd *cobra.Command, args []string) error {
	printHeader("understudy pair")

	ctx := context.Background()

	cfg, err := config.Load()
	if err != nil {
		return err
	}

	creds, _, closeStore, err := buildStores(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeStore()

	// Pairing always starts from a blank local session; the result of
	// a successful login is what gets uploaded.
	sess, err := buildSession(cfg, nil)
	if err != nil {
		return err
	}
	defer sess.Close()

	container, err := sqlstore.New(ctx, "sqlite", sess.DSN(), waLog.Stdout("Database", "WARN", true))
	if err != nil {
		return fmt.Errorf("open session db: %w", err)
	}

	device, err := container.GetFirstDevice(ctx)
	if err != nil {
		container.Close()
		return fmt.Errorf("get device: %w", err)
	}

	client := whatsmeow.NewClient(device, waLog.Stdout("Client", "INFO", true))

	if client.Store.ID == nil {
		qrChan, _ := client.GetQRChannel(ctx)
		if err := client.Connect(); err != nil {
			container.Close()
			return fmt.Errorf("connect: %w", err)
		}

		fmt.Println("Scan the QR code with WhatsApp on your phone (Linked devices).")
		for evt := range qrChan {
			switch evt.Event {
			case "code":
				qrPath := filepath.Join(cfg.State.Dir, "pair-qr.png")
				if err := os.MkdirAll(cfg.State.Dir, 0o700); err == nil {
					if err := qrcode.WriteFile(evt.Code, qrcode.Medium, 512, qrPath); err == nil {
						fmt.Printf("QR code written to %s\n", qrPath)
					}
				}
			case "success":
				fmt.Println("Paired.")
			default:
				fmt.Println("Pairing event:", evt.Event)
			}
		}
	} else {
		if err := client.Connect(); err != nil {
			container.Close()
			return fmt.Errorf("connect: %w", err)
		}
		fmt.Printf("Already paired as %s\n", client.Store.ID)
	}

	// Disconnect and close the container so the session db is fully
	// flushed before we snapshot it.
	client.Disconnect()
	container.Close()

	blob, err := sess.Snapshot()
	if err != nil {
		return fmt.Errorf("snapshot session: %w", err)
	}
	if err := creds.Save(ctx, blob); err != nil {
		return fmt.Errorf("save credentials: %w", err)
	}
	fmt.Printf("Credentials uploaded to the %s store (%d bytes).\n", cfg.Store.Backend, len(blob))
	return nil
}
