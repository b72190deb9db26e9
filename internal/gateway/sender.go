package gateway

import (
	"context"
	"fmt"

	"github.com/bwmarrin/discordgo"

	"github.com/Samoxive/modbot/internal/moderation"
)

// EmbedAPI is the slice of *discordgo.Session the sender uses.
type EmbedAPI interface {
	ChannelMessageSendEmbed(channelID string, embed *discordgo.MessageEmbed, options ...discordgo.RequestOption) (*discordgo.Message, error)
}

// Sender posts reports as embeds. One attempt per report.
type Sender struct {
	api EmbedAPI
}

func NewSender(api EmbedAPI) *Sender {
	return &Sender{api: api}
}

func (s *Sender) SendReport(ctx context.Context, report moderation.Report) error {
	if _, err := s.api.ChannelMessageSendEmbed(report.DestinationChannelID, RenderEmbed(report), discordgo.WithContext(ctx)); err != nil {
		return fmt.Errorf("sending embed to channel %s: %w", report.DestinationChannelID, err)
	}
	return nil
}

func RenderEmbed(report moderation.Report) *discordgo.MessageEmbed {
	return &discordgo.MessageEmbed{
		Title: report.Title,
		Fields: []*discordgo.MessageEmbedField{
			{Name: "summary", Value: report.Summary, Inline: false},
			{Name: "message link", Value: report.SourceLink, Inline: false},
		},
		Footer: &discordgo.MessageEmbedFooter{Text: report.Footer()},
	}
}
