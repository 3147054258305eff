// Package responder is the orchestration layer: it subscribes to the
// WhatsApp client's events, routes each inbound message through the
// conversation log, persona table and generator, and relays the reply.
package responder

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.mau.fi/whatsmeow"
	"go.mau.fi/whatsmeow/proto/waE2E"
	"go.mau.fi/whatsmeow/types"
	"go.mau.fi/whatsmeow/types/events"
	waLog "go.mau.fi/whatsmeow/util/log"
	"google.golang.org/protobuf/proto"

	"github.com/understudy-bot/understudy/internal/persona"
	"github.com/understudy-bot/understudy/internal/provider"
	"github.com/understudy-bot/understudy/internal/session"
	"github.com/understudy-bot/understudy/internal/store"
)

// ConnState tracks where the responder is in its connection lifecycle.
type ConnState int

const (
	StateDisconnected ConnState = iota
	StateConnecting
	StateAuthenticated
	StateFailed
)

func (s ConnState) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnecting:
		return "connecting"
	case StateAuthenticated:
		return "authenticated"
	case StateFailed:
		return "failed"
	}
	return "unknown"
}

// Apology is sent in place of a reply when generation fails.
// Generation errors are never fatal to message processing.
const Apology = "Sorry, my head is somewhere else right now. Ask me again in a bit?"

// Options tune the responder. Zero values get defaults from
// DefaultOptions.
type Options struct {
	Model          string
	MaxReplyTokens int
	Temperature    float64
	HistoryLimit   int
	ReconnectDelay time.Duration
}

// DefaultOptions fills unset option fields.
func DefaultOptions(opts Options) Options {
	if opts.MaxReplyTokens <= 0 {
		opts.MaxReplyTokens = 200
	}
	if opts.HistoryLimit <= 0 {
		opts.HistoryLimit = 10
	}
	if opts.ReconnectDelay <= 0 {
		opts.ReconnectDelay = 5 * time.Second
	}
	return opts
}

// Deps are the responder's collaborators, injected at construction so
// tests can substitute fakes.
type Deps struct {
	Session       session.Session
	Credentials   store.CredentialStore
	Conversations store.ConversationLog
	Personas      *persona.Resolver
	Provider      provider.LLMProvider
	Log           waLog.Logger
}

// Responder drives the per-message pipeline and the connection state
// machine. One responder owns one WhatsApp connection.
type Responder struct {
	log      waLog.Logger
	client   *whatsmeow.Client
	sess     session.Session
	creds    store.CredentialStore
	convs    store.ConversationLog
	personas *persona.Resolver
	prov     provider.LLMProvider
	opts     Options

	state      ConnState
	closeStore func()

	// Seams for tests; nil means the real implementation.
	sendFn    func(ctx context.Context, to types.JID, id, text string) error
	connectFn func() error
	exitFn    func(code int)
	afterFn   func(d time.Duration, fn func())
	newIDFn   func() string
}

// New builds a responder from its dependencies.
func New(d Deps, opts Options) *Responder {
	log := d.Log
	if log == nil {
		log = waLog.Stdout("Responder", "INFO", true)
	}
	return &Responder{
		log:      log,
		sess:     d.Session,
		creds:    d.Credentials,
		convs:    d.Conversations,
		personas: d.Personas,
		prov:     d.Provider,
		opts:     DefaultOptions(opts),
		state:    StateDisconnected,
		exitFn:   os.Exit,
		afterFn: func(d time.Duration, fn func()) {
			time.AfterFunc(d, fn)
		},
	}
}

// State reports the current connection state.
func (r *Responder) State() ConnState { return r.state }

// handleEvent is the single whatsmeow event handler. Events arrive
// sequentially; each message is fully processed before the next.
func (r *Responder) handleEvent(evt interface{}) {
	switch v := evt.(type) {
	case *events.Connected:
		r.state = StateAuthenticated
		r.log.Infof("connected, listening for messages")
		r.flushCredentials(context.Background())
	case *events.Message:
		r.handleMessage(context.Background(), v)
	case *events.Disconnected:
		// Transport-level close: the one recoverable reason.
		r.state = StateDisconnected
		r.log.Warnf("connection closed, reconnecting in %s", r.opts.ReconnectDelay)
		r.afterFn(r.opts.ReconnectDelay, r.reconnect)
	case *events.LoggedOut:
		r.fail(fmt.Sprintf("logged out by server (reason %v), re-pair with `understudy pair`", v.Reason))
	case *events.StreamReplaced:
		r.fail("session taken over by another connection")
	case *events.ClientOutdated:
		r.fail("client version rejected by server")
	case *events.TemporaryBan:
		r.fail(fmt.Sprintf("temporarily banned: code %v, expires in %v", v.Code, v.Expire))
	}
}

// fail handles unrecoverable session errors: log and exit, recovery is
// an external re-pairing step.
func (r *Responder) fail(reason string) {
	r.state = StateFailed
	r.log.Errorf("unrecoverable session error: %s", reason)
	r.exitFn(1)
}

func (r *Responder) reconnect() {
	if r.state == StateFailed {
		return
	}
	r.state = StateConnecting
	if err := r.connect(); err != nil {
		r.log.Errorf("reconnect failed: %v, retrying in %s", err, r.opts.ReconnectDelay)
		r.afterFn(r.opts.ReconnectDelay, r.reconnect)
	}
}

func (r *Responder) connect() error {
	if r.connectFn != nil {
		return r.connectFn()
	}
	return r.client.Connect()
}

// handleMessage runs the per-message pipeline: filter, log inbound,
// resolve persona, fetch history, generate, send, log outbound.
func (r *Responder) handleMessage(ctx context.Context, evt *events.Message) {
	if evt.Info.IsFromMe || evt.Info.Chat == types.StatusBroadcastJID {
		return
	}

	chat := evt.Info.Chat.ToNonAD().String()
	text := extractText(evt.Message)

	inbound := store.MessageEntry{
		ID:          string(evt.Info.ID),
		Content:     text,
		Participant: store.ParticipantUser,
		Direction:   store.DirectionIncoming,
		Timestamp:   evt.Info.Timestamp,
	}
	if err := r.convs.Append(ctx, chat, inbound); err != nil {
		r.log.Warnf("append inbound for %s: %v", chat, err)
	}

	p := r.personas.Resolve(chat)

	history, err := r.convs.Recent(ctx, chat, r.opts.HistoryLimit)
	if err != nil {
		r.log.Warnf("fetch history for %s: %v", chat, err)
		history = nil
	}
	// The new text rides in the final turn only; drop its log entry.
	history = withoutEntry(history, string(evt.Info.ID))

	reply := r.generate(ctx, p, history, text)
	if reply == "" {
		return
	}

	id := r.newID()
	if err := r.send(ctx, evt.Info.Chat, id, reply); err != nil {
		r.log.Errorf("send reply to %s: %v", chat, err)
		return
	}

	outbound := store.MessageEntry{
		ID:          id,
		Content:     reply,
		Participant: store.ParticipantBot,
		Direction:   store.DirectionOutgoing,
		Timestamp:   time.Now(),
	}
	if err := r.convs.Append(ctx, chat, outbound); err != nil {
		r.log.Warnf("append outbound for %s: %v", chat, err)
	}

	// whatsmeow mutates the device store as it ratchets keys; snapshot
	// after each exchange so a crash never replays a stale session.
	r.flushCredentials(ctx)
}

func (r *Responder) generate(ctx context.Context, p persona.Persona, history []store.MessageEntry, text string) string {
	req := buildChatRequest(p.Prompt, history, text, r.opts)
	resp, err := r.prov.Chat(ctx, req)
	if err != nil {
		r.log.Errorf("generate reply: %v", err)
		return Apology
	}
	return strings.TrimSpace(resp.Content)
}

// buildChatRequest shapes the prompt: stored history re-labeled into
// the two-party role scheme, then one final user turn carrying the
// persona prompt and the new text together.
func buildChatRequest(prompt string, history []store.MessageEntry, text string, opts Options) *provider.ChatRequest {
	msgs := make([]provider.Message, 0, len(history)+1)
	for _, e := range history {
		role := provider.RoleUser
		if e.Direction == store.DirectionOutgoing {
			role = provider.RoleAssistant
		}
		msgs = append(msgs, provider.Message{Role: role, Content: e.Content})
	}
	msgs = append(msgs, provider.Message{Role: provider.RoleUser, Content: prompt + "\n\n" + text})
	return &provider.ChatRequest{
		Messages:    msgs,
		Model:       opts.Model,
		MaxTokens:   opts.MaxReplyTokens,
		Temperature: opts.Temperature,
	}
}

func withoutEntry(entries []store.MessageEntry, id string) []store.MessageEntry {
	out := entries[:0]
	for _, e := range entries {
		if e.ID != id {
			out = append(out, e)
		}
	}
	return out
}

// extractText returns the first non-empty of: extended-text body, plain
// conversation body, image caption, video caption.
func extractText(msg *waE2E.Message) string {
	if msg == nil {
		return ""
	}
	if t := msg.GetExtendedTextMessage().GetText(); t != "" {
		return t
	}
	if t := msg.GetConversation(); t != "" {
		return t
	}
	if t := msg.GetImageMessage().GetCaption(); t != "" {
		return t
	}
	if t := msg.GetVideoMessage().GetCaption(); t != "" {
		return t
	}
	return ""
}

// resolveRetryMessage answers the client's historical message lookups,
// needed to reconstruct quoted-reply context. The reconstruction shape
// is always a plain conversation message built from the stored content;
// nil means unknown, which the client tolerates.
func (r *Responder) resolveRetryMessage(requester, to types.JID, id types.MessageID) *waE2E.Message {
	entry, err := r.convs.Find(context.Background(), to.ToNonAD().String(), string(id))
	if err != nil {
		r.log.Warnf("lookup %s for retry: %v", id, err)
		return nil
	}
	if entry == nil {
		return nil
	}
	return &waE2E.Message{Conversation: proto.String(entry.Content)}
}

// flushCredentials snapshots the session database back to the
// credential store. A failed persist never aborts an in-flight
// exchange; it only leaves the stored blob stale until the next flush.
func (r *Responder) flushCredentials(ctx context.Context) {
	blob, err := r.sess.Snapshot()
	if err != nil {
		r.log.Warnf("snapshot session: %v", err)
		return
	}
	if err := r.creds.Save(ctx, blob); err != nil {
		r.log.Warnf("persist credentials: %v", err)
	}
}

func (r *Responder) newID() string {
	if r.newIDFn != nil {
		return r.newIDFn()
	}
	if r.client != nil {
		return string(r.client.GenerateMessageID())
	}
	return strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", ""))
}

func (r *Responder) send(ctx context.Context, to types.JID, id, text string) error {
	if r.sendFn != nil {
		return r.sendFn(ctx, to, id, text)
	}
	_, err := r.client.SendMessage(ctx, to, &waE2E.Message{
		Conversation: proto.String(text),
	}, whatsmeow.SendRequestExtra{ID: types.MessageID(id)})
	return err
}
