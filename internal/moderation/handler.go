package moderation

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/Samoxive/modbot/common/logger"
	"github.com/Samoxive/modbot/internal/classifier"
	"github.com/Samoxive/modbot/internal/metrics"
	"go.opentelemetry.io/otel/attribute"
)

const (
	DefaultSummaryLimit  = 512
	DefaultReportTimeout = 10 * time.Second

	// SummaryRuneLimit is the platform's cap on an embed field value.
	SummaryRuneLimit = 1024

	// BlankSummary stands in for text with nothing visible, which the
	// platform refuses as an embed field value.
	BlankSummary = "(message has no visible text)"
)

type Config struct {
	SelfID        string // the bot's own user id; its messages are never classified
	Channels      ChannelMapping
	SummaryLimit  int // grapheme clusters
	ReportTimeout time.Duration
}

// Handler decides what to do with one inbound message and delivers the
// resulting report. It holds only immutable configuration and may serve any
// number of events concurrently.
type Handler struct {
	evaluator classifier.Evaluator
	sender    ReportSender
	cfg       Config
}

func NewHandler(evaluator classifier.Evaluator, sender ReportSender, cfg Config) *Handler {
	if cfg.SummaryLimit <= 0 {
		cfg.SummaryLimit = DefaultSummaryLimit
	}
	if cfg.ReportTimeout <= 0 {
		cfg.ReportTimeout = DefaultReportTimeout
	}
	return &Handler{
		evaluator: evaluator,
		sender:    sender,
		cfg:       cfg,
	}
}

// Handle runs the filters and, for messages that pass them, the classifier.
// A report is returned only for a violation. Nothing is sent.
func (h *Handler) Handle(ctx context.Context, msg InboundMessage) (*Report, Outcome) {
	if msg.CommunityID == "" {
		slog.WarnContext(ctx, "message has no community, skipping")
		return nil, OutcomeNoCommunity
	}

	switch {
	case msg.Text == "":
		return nil, OutcomeEmptyContent
	case msg.AuthorIsBot:
		return nil, OutcomeBotAuthor
	case h.cfg.SelfID != "" && msg.AuthorID == h.cfg.SelfID:
		return nil, OutcomeSelfAuthor
	}

	destination, ok := h.cfg.Channels.Lookup(msg.CommunityID)
	if !ok {
		return nil, OutcomeUnmappedCommunity
	}

	start := time.Now()
	verdict := h.evaluator.Evaluate(ctx, msg.Text)
	elapsed := time.Since(start)

	switch verdict.Kind {
	case classifier.Violates:
	case classifier.Inconclusive:
		return nil, OutcomeInconclusive
	default:
		return nil, OutcomeClean
	}

	return &Report{
		DestinationChannelID: destination,
		Title:                ReportTitle,
		Summary:              h.summary(msg.Text),
		SourceLink:           msg.Permalink,
		Elapsed:              elapsed,
	}, OutcomeViolation
}

func (h *Handler) summary(text string) string {
	summary := Summarize(text, h.cfg.SummaryLimit, SummaryRuneLimit)
	if strings.TrimSpace(summary) == "" {
		return BlankSummary
	}
	return summary
}

// OnMessage handles one event end to end. Failures stay inside the event:
// a panic is recovered, a failed delivery is logged and dropped.
func (h *Handler) OnMessage(ctx context.Context, msg InboundMessage) (outcome Outcome) {
	ctx = logger.WithLogFields(ctx, logger.LogFields{Component: "modbot.handler"})
	sc := logger.StartSpan(ctx, "modbot.handle_message")
	defer sc.End()
	ctx = sc.Context()

	defer func() {
		if r := recover(); r != nil {
			slog.ErrorContext(ctx, "panic recovered in message handling", "panic", r)
			sc.RecordError(fmt.Errorf("panic: %v", r))
			metrics.EventsTotal.WithLabelValues(string(OutcomeFailed)).Inc()
			outcome = OutcomeFailed
		}
	}()

	report, outcome := h.Handle(ctx, msg)
	sc.SetAttributes(attribute.String("modbot.outcome", string(outcome)))
	metrics.EventsTotal.WithLabelValues(string(outcome)).Inc()

	if report == nil {
		if outcome.Classified() {
			slog.DebugContext(ctx, "message handled", "outcome", outcome)
		}
		return outcome
	}

	slog.InfoContext(ctx, "violation found, reporting",
		"destination_channel_id", report.DestinationChannelID,
		"elapsed_ms", report.Elapsed.Milliseconds())

	h.deliver(ctx, *report)
	return outcome
}

func (h *Handler) deliver(ctx context.Context, report Report) {
	ctx, cancel := context.WithTimeout(ctx, h.cfg.ReportTimeout)
	defer cancel()

	if err := h.sender.SendReport(ctx, report); err != nil {
		metrics.ReportsTotal.WithLabelValues("failed").Inc()
		slog.ErrorContext(ctx, "failed to send report",
			"destination_channel_id", report.DestinationChannelID,
			"error", err)
		return
	}
	metrics.ReportsTotal.WithLabelValues("sent").Inc()
}
