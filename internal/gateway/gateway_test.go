package gateway

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/bwmarrin/discordgo"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/Samoxive/modbot/common/logger"
	"github.com/Samoxive/modbot/internal/moderation"
)

type mockHandler struct {
	mu          sync.Mutex
	onMessageFn func(ctx context.Context, msg moderation.InboundMessage) moderation.Outcome
	received    []moderation.InboundMessage
	fields      []logger.LogFields
}

func (m *mockHandler) OnMessage(ctx context.Context, msg moderation.InboundMessage) moderation.Outcome {
	m.mu.Lock()
	m.received = append(m.received, msg)
	m.fields = append(m.fields, logger.GetLogFields(ctx))
	m.mu.Unlock()
	if m.onMessageFn != nil {
		return m.onMessageFn(ctx, msg)
	}
	return moderation.OutcomeClean
}

type mockEmbedAPI struct {
	sendFn   func(channelID string, embed *discordgo.MessageEmbed) (*discordgo.Message, error)
	channels []string
	embeds   []*discordgo.MessageEmbed
}

func (m *mockEmbedAPI) ChannelMessageSendEmbed(channelID string, embed *discordgo.MessageEmbed, _ ...discordgo.RequestOption) (*discordgo.Message, error) {
	m.channels = append(m.channels, channelID)
	m.embeds = append(m.embeds, embed)
	if m.sendFn != nil {
		return m.sendFn(channelID, embed)
	}
	return &discordgo.Message{}, nil
}

func guildMessage() *discordgo.Message {
	return &discordgo.Message{
		ID:        "1315000000000000003",
		ChannelID: "1315000000000000002",
		GuildID:   "145457131640848384",
		Content:   "hello",
		Author:    &discordgo.User{ID: "42", Bot: false},
	}
}

var _ = Describe("ToInbound", func() {
	It("converts a guild message with its permalink", func() {
		msg := ToInbound(guildMessage())

		Expect(msg).To(Equal(moderation.InboundMessage{
			CommunityID: "145457131640848384",
			ChannelID:   "1315000000000000002",
			MessageID:   "1315000000000000003",
			AuthorID:    "42",
			Text:        "hello",
			Permalink:   "https://discord.com/channels/145457131640848384/1315000000000000002/1315000000000000003",
		}))
	})

	It("leaves community and permalink empty for direct messages", func() {
		m := guildMessage()
		m.GuildID = ""

		msg := ToInbound(m)

		Expect(msg.CommunityID).To(BeEmpty())
		Expect(msg.Permalink).To(BeEmpty())
	})

	It("carries the bot flag and tolerates a missing author", func() {
		m := guildMessage()
		m.Author.Bot = true
		Expect(ToInbound(m).AuthorIsBot).To(BeTrue())

		m.Author = nil
		Expect(ToInbound(m).AuthorID).To(BeEmpty())
	})
})

var _ = Describe("Sender", func() {
	report := moderation.Report{
		DestinationChannelID: "335451227028717568",
		Title:                moderation.ReportTitle,
		Summary:              "Looking for a senior backend engineer",
		SourceLink:           "https://discord.com/channels/1/2/3",
		Elapsed:              1500 * time.Millisecond,
	}

	It("renders the report as an embed", func() {
		embed := RenderEmbed(report)

		Expect(embed.Title).To(Equal("found violating message"))
		Expect(embed.Fields).To(HaveLen(2))
		Expect(*embed.Fields[0]).To(Equal(discordgo.MessageEmbedField{Name: "summary", Value: report.Summary}))
		Expect(*embed.Fields[1]).To(Equal(discordgo.MessageEmbedField{Name: "message link", Value: report.SourceLink}))
		Expect(embed.Footer.Text).To(Equal("took 1.50 seconds"))
	})

	It("posts to the destination channel", func() {
		api := &mockEmbedAPI{}

		Expect(NewSender(api).SendReport(context.Background(), report)).To(Succeed())
		Expect(api.channels).To(Equal([]string{"335451227028717568"}))
	})

	It("wraps delivery errors", func() {
		cause := errors.New("403 Forbidden")
		api := &mockEmbedAPI{sendFn: func(string, *discordgo.MessageEmbed) (*discordgo.Message, error) {
			return nil, cause
		}}

		err := NewSender(api).SendReport(context.Background(), report)

		Expect(err).To(MatchError(cause))
		Expect(err.Error()).To(ContainSubstring("335451227028717568"))
	})
})

var _ = Describe("Gateway", func() {
	var (
		session *discordgo.Session
		handler *mockHandler
		gw      *Gateway
	)

	BeforeEach(func() {
		var err error
		session, err = NewSession("test-token")
		Expect(err).NotTo(HaveOccurred())
		handler = &mockHandler{}
		gw = New(session, handler)
	})

	It("requests the message intents", func() {
		Expect(session.Identify.Intents & discordgo.IntentsMessageContent).NotTo(BeZero())
		Expect(session.Identify.Intents & discordgo.IntentsGuildMessages).NotTo(BeZero())
		Expect(session.Identify.Intents & discordgo.IntentsGuildMessageReactions).NotTo(BeZero())
		Expect(session.Token).To(Equal("Bot test-token"))
	})

	It("is not ready before the session connects", func() {
		Expect(gw.Ready()).To(BeFalse())
	})

	It("dispatches messages with identity log fields", func() {
		gw.HandleMessage(guildMessage())

		Expect(handler.received).To(HaveLen(1))
		fields := handler.fields[0]
		Expect(fields.EventID).NotTo(BeNil())
		Expect(*fields.GuildID).To(Equal("145457131640848384"))
		Expect(*fields.MessageID).To(Equal("1315000000000000003"))
		Expect(*fields.AuthorID).To(Equal("42"))
	})

	It("assigns every event its own id", func() {
		gw.HandleMessage(guildMessage())
		gw.HandleMessage(guildMessage())

		Expect(*handler.fields[0].EventID).NotTo(Equal(*handler.fields[1].EventID))
	})

	It("waits for in-flight handlers on close and drops later events", func() {
		release := make(chan struct{})
		started := make(chan struct{})
		handler.onMessageFn = func(context.Context, moderation.InboundMessage) moderation.Outcome {
			close(started)
			<-release
			return moderation.OutcomeClean
		}

		go gw.HandleMessage(guildMessage())
		Eventually(started).Should(BeClosed())

		closed := make(chan error, 1)
		go func() { closed <- gw.Close(context.Background()) }()
		Consistently(closed, 50*time.Millisecond).ShouldNot(Receive())

		close(release)
		Eventually(closed).Should(Receive(BeNil()))

		gw.HandleMessage(guildMessage())
		Expect(handler.received).To(HaveLen(1))
	})

	It("gives up waiting when the shutdown context ends and cancels handlers", func() {
		canceled := make(chan struct{})
		started := make(chan struct{})
		handler.onMessageFn = func(ctx context.Context, _ moderation.InboundMessage) moderation.Outcome {
			close(started)
			<-ctx.Done()
			close(canceled)
			return moderation.OutcomeInconclusive
		}

		go gw.HandleMessage(guildMessage())
		Eventually(started).Should(BeClosed())

		ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
		defer cancel()
		Expect(gw.Close(ctx)).To(MatchError(context.DeadlineExceeded))
		Eventually(canceled).Should(BeClosed())
	})

	It("reports both the disconnect error and the timeout", func() {
		gw.closeSession = func() error { return errors.New("websocket already closed") }
		started := make(chan struct{})
		handler.onMessageFn = func(ctx context.Context, _ moderation.InboundMessage) moderation.Outcome {
			close(started)
			<-ctx.Done()
			return moderation.OutcomeInconclusive
		}

		go gw.HandleMessage(guildMessage())
		Eventually(started).Should(BeClosed())

		ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
		defer cancel()
		err := gw.Close(ctx)

		Expect(err).To(MatchError(context.DeadlineExceeded))
		Expect(err).To(MatchError(ContainSubstring("websocket already closed")))
	})

	It("returns the disconnect error after handlers drain", func() {
		gw.closeSession = func() error { return errors.New("websocket already closed") }

		Expect(gw.Close(context.Background())).To(MatchError(ContainSubstring("closing discord session")))
	})
})
