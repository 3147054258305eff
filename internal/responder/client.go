package responder

import (
	"context"
	"fmt"

	_ "modernc.org/sqlite"

	"go.mau.fi/whatsmeow"
	"go.mau.fi/whatsmeow/store/sqlstore"
	waLog "go.mau.fi/whatsmeow/util/log"
)

// Start opens the device store from the materialized session, builds
// the WhatsApp client and connects. The session must already hold a
// paired device; there is no registration path here — pairing happens
// out-of-band via `understudy pair`.
func (r *Responder) Start(ctx context.Context) error {
	container, err := sqlstore.New(ctx, "sqlite", r.sess.DSN(), waLog.Stdout("Database", "WARN", true))
	if err != nil {
		return fmt.Errorf("open session store: %w", err)
	}
	r.closeStore = func() { _ = container.Close() }

	device, err := container.GetFirstDevice(ctx)
	if err != nil {
		return fmt.Errorf("load device: %w", err)
	}
	if device.ID == nil {
		return fmt.Errorf("session holds no paired device; run `understudy pair` first")
	}

	client := whatsmeow.NewClient(device, waLog.Stdout("Client", "INFO", true))
	// Reconnects are scheduled by the state machine, with a fixed delay
	// and an exit on unrecoverable close reasons.
	client.EnableAutoReconnect = false
	client.GetMessageForRetry = r.resolveRetryMessage
	client.AddEventHandler(r.handleEvent)
	r.client = client

	r.state = StateConnecting
	if err := r.connect(); err != nil {
		return fmt.Errorf("connect: %w", err)
	}
	return nil
}

// Shutdown disconnects, flushes a final credential snapshot, and
// releases the materialized session.
func (r *Responder) Shutdown(ctx context.Context) {
	if r.client != nil {
		r.client.Disconnect()
	}
	if r.closeStore != nil {
		r.closeStore()
	}
	r.flushCredentials(ctx)
	if err := r.sess.Close(); err != nil {
		r.log.Warnf("close session: %v", err)
	}
}
