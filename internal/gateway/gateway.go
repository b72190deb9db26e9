// Package gateway connects the moderation handler to Discord. It converts
// gateway events into moderation.InboundMessage values and renders reports as
// embeds; everything else is decided in package moderation.
package gateway

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/bwmarrin/discordgo"

	"github.com/Samoxive/modbot/common/id"
	"github.com/Samoxive/modbot/common/logger"
	"github.com/Samoxive/modbot/internal/moderation"
)

const Intents = discordgo.IntentsGuildMessages |
	discordgo.IntentsGuildMessageReactions |
	discordgo.IntentsMessageContent

// MessageHandler is satisfied by *moderation.Handler.
type MessageHandler interface {
	OnMessage(ctx context.Context, msg moderation.InboundMessage) moderation.Outcome
}

// NewSession builds an unopened bot session with the intents the handler needs.
func NewSession(token string) (*discordgo.Session, error) {
	session, err := discordgo.New("Bot " + token)
	if err != nil {
		return nil, fmt.Errorf("creating discord session: %w", err)
	}
	session.Identify.Intents = Intents
	// each event gets its own goroutine
	session.SyncEvents = false
	return session, nil
}

// Gateway feeds message events from a session into a MessageHandler and
// tracks the handlers still running so shutdown can wait for them.
type Gateway struct {
	session *discordgo.Session
	handler MessageHandler

	baseCtx context.Context
	cancel  context.CancelFunc

	mu       sync.Mutex
	closed   bool
	inflight sync.WaitGroup

	removeHandlers []func()
	closeSession   func() error
}

func New(session *discordgo.Session, handler MessageHandler) *Gateway {
	ctx, cancel := context.WithCancel(context.Background())
	return &Gateway{
		session:      session,
		handler:      handler,
		baseCtx:      ctx,
		cancel:       cancel,
		closeSession: session.Close,
	}
}

// Open registers the event callbacks and connects.
func (g *Gateway) Open(ctx context.Context) error {
	g.removeHandlers = append(g.removeHandlers,
		g.session.AddHandler(func(_ *discordgo.Session, r *discordgo.Ready) {
			slog.InfoContext(ctx, "connected to discord gateway",
				"user_id", r.User.ID,
				"guilds", len(r.Guilds))
		}),
		g.session.AddHandler(func(_ *discordgo.Session, m *discordgo.MessageCreate) {
			g.HandleMessage(m.Message)
		}),
	)

	if err := g.session.Open(); err != nil {
		return fmt.Errorf("opening discord session: %w", err)
	}
	return nil
}

// HandleMessage runs one message event through the handler. It is what the
// MessageCreate callback calls and is a no-op once the gateway is closed.
func (g *Gateway) HandleMessage(m *discordgo.Message) {
	if m == nil {
		return
	}

	g.mu.Lock()
	if g.closed {
		g.mu.Unlock()
		return
	}
	g.inflight.Add(1)
	g.mu.Unlock()
	defer g.inflight.Done()

	msg := ToInbound(m)
	ctx := logger.WithLogFields(g.baseCtx, logger.LogFields{
		EventID:   logger.Ptr(id.New()),
		GuildID:   optional(msg.CommunityID),
		ChannelID: optional(msg.ChannelID),
		MessageID: optional(msg.MessageID),
		AuthorID:  optional(msg.AuthorID),
		Component: "modbot.gateway",
	})

	g.handler.OnMessage(ctx, msg)
}

// Ready reports whether the session has completed its handshake and is
// receiving events.
func (g *Gateway) Ready() bool {
	g.mu.Lock()
	closed := g.closed
	g.mu.Unlock()
	if closed {
		return false
	}

	g.session.RLock()
	defer g.session.RUnlock()
	return g.session.DataReady
}

// Close stops accepting events, disconnects, and waits for in-flight handlers
// until ctx is done. Handlers still running then have their context canceled.
func (g *Gateway) Close(ctx context.Context) error {
	g.mu.Lock()
	if g.closed {
		g.mu.Unlock()
		return nil
	}
	g.closed = true
	g.mu.Unlock()

	for _, remove := range g.removeHandlers {
		remove()
	}

	var closeErr error
	if err := g.closeSession(); err != nil {
		closeErr = fmt.Errorf("closing discord session: %w", err)
	}

	done := make(chan struct{})
	go func() {
		g.inflight.Wait()
		close(done)
	}()

	select {
	case <-done:
		g.cancel()
		return closeErr
	case <-ctx.Done():
		g.cancel()
		slog.WarnContext(ctx, "shutdown timed out waiting for message handlers")
		return errors.Join(closeErr, ctx.Err())
	}
}

// ToInbound converts a gateway message. Messages outside a guild get an empty
// CommunityID and no permalink.
func ToInbound(m *discordgo.Message) moderation.InboundMessage {
	msg := moderation.InboundMessage{
		CommunityID: m.GuildID,
		ChannelID:   m.ChannelID,
		MessageID:   m.ID,
		Text:        m.Content,
	}
	if m.Author != nil {
		msg.AuthorID = m.Author.ID
		msg.AuthorIsBot = m.Author.Bot
	}
	if m.GuildID != "" {
		msg.Permalink = Permalink(m.GuildID, m.ChannelID, m.ID)
	}
	return msg
}

func Permalink(guildID, channelID, messageID string) string {
	return fmt.Sprintf("https://discord.com/channels/%s/%s/%s", guildID, channelID, messageID)
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
