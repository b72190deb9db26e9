package moderation

import (
	"context"
	"fmt"
	"maps"
	"time"
)

// InboundMessage is one chat message as delivered by the gateway. It is never
// stored beyond the handling of its own event.
type InboundMessage struct {
	CommunityID string // empty when the message does not belong to a community (DMs)
	ChannelID   string
	MessageID   string
	AuthorID    string
	AuthorIsBot bool
	Text        string
	Permalink   string
}

const ReportTitle = "found violating message"

// Report is what moderators see for a positive verdict. Built only on a
// violation, sent once, never retried or stored.
type Report struct {
	DestinationChannelID string
	Title                string
	Summary              string // message text cut at a grapheme cluster boundary
	SourceLink           string
	Elapsed              time.Duration // classification wall-clock time
}

func (r Report) Footer() string {
	return fmt.Sprintf("took %.2f seconds", r.Elapsed.Seconds())
}

// ReportSender delivers a report to its destination channel.
type ReportSender interface {
	SendReport(ctx context.Context, report Report) error
}

// Outcome records how one event was disposed of.
type Outcome string

const (
	OutcomeNoCommunity       Outcome = "no_community"
	OutcomeEmptyContent      Outcome = "empty_content"
	OutcomeBotAuthor         Outcome = "bot_author"
	OutcomeSelfAuthor        Outcome = "self_author"
	OutcomeUnmappedCommunity Outcome = "unmapped_community"
	OutcomeClean             Outcome = "clean"
	OutcomeInconclusive      Outcome = "inconclusive"
	OutcomeViolation         Outcome = "violation"
	OutcomeFailed            Outcome = "failed" // handling panicked
)

// Classified reports whether the classifier was consulted for this outcome.
func (o Outcome) Classified() bool {
	switch o {
	case OutcomeClean, OutcomeInconclusive, OutcomeViolation:
		return true
	default:
		return false
	}
}

// ChannelMapping maps a community id to the channel its reports go to.
// Communities without an entry are not moderated. Immutable after construction.
type ChannelMapping struct {
	channels map[string]string
}

func NewChannelMapping(channels map[string]string) ChannelMapping {
	return ChannelMapping{channels: maps.Clone(channels)}
}

func (m ChannelMapping) Lookup(communityID string) (string, bool) {
	channel, ok := m.channels[communityID]
	return channel, ok
}

func (m ChannelMapping) Len() int {
	return len(m.channels)
}
