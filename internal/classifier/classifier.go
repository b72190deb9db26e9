package classifier

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/Samoxive/modbot/common/llm"
	"github.com/Samoxive/modbot/common/logger"
	"github.com/Samoxive/modbot/internal/metrics"
	"go.opentelemetry.io/otel/attribute"
)

// SystemPrompt states the single rule set. The last sentence keeps the model from
// flagging content that is only loosely associated with hiring.
const SystemPrompt = "You are a moderator for a Discord community. " +
	"In this community users aren't allowed send messages containing job posts. " +
	"Users can't list their skills to attract recruiters. " +
	"You will be provided messages to evaluate whether user breaks these rules and you will respond true if it breaks rules, false if it doesn't. " +
	"Don't try to make indirect connections to rules."

const (
	SchemaName = "moderation_evaluation"
	MaxTokens  = 100

	// logContentLimit bounds how much of a message ends up in error logs.
	logContentLimit = 2000
)

// Temperature is fixed at zero so repeated submissions of the same content
// get the same answer.
const Temperature = 0.0

// Evaluation is the only shape the model may answer with.
type Evaluation struct {
	ViolatesRules bool `json:"violates_rules" jsonschema:"description=true if the message breaks the community rules"`
}

// UnmarshalJSON rejects unknown fields and a missing violates_rules, so a
// malformed answer is an error instead of a silent false.
func (e *Evaluation) UnmarshalJSON(data []byte) error {
	var raw struct {
		ViolatesRules *bool `json:"violates_rules"`
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&raw); err != nil {
		return err
	}
	if dec.More() {
		return errors.New("trailing data after evaluation object")
	}
	if raw.ViolatesRules == nil {
		return errors.New("missing required field violates_rules")
	}
	e.ViolatesRules = *raw.ViolatesRules
	return nil
}

type Config struct {
	Timeout time.Duration // 0 = no bound beyond the caller's context
}

// Classifier asks the model whether a message breaks the rules.
// It holds no mutable state and is safe for concurrent use whenever the
// underlying llm.Client is.
type Classifier struct {
	client llm.Client
	schema any
	cfg    Config
}

func New(client llm.Client, cfg Config) *Classifier {
	return &Classifier{
		client: client,
		schema: llm.GenerateSchema[Evaluation](),
		cfg:    cfg,
	}
}

// Request builds the classification request for content. Built fresh per call.
func (c *Classifier) Request(content string) llm.Request {
	return llm.Request{
		SystemPrompt: SystemPrompt,
		UserPrompt:   content,
		SchemaName:   SchemaName,
		Schema:       c.schema,
		MaxTokens:    MaxTokens,
		Temperature:  llm.Temp(Temperature),
	}
}

// Violates is the boolean contract: true only for a decisive positive verdict.
func (c *Classifier) Violates(ctx context.Context, content string) bool {
	return c.Evaluate(ctx, content).Violates()
}

// Evaluate classifies content. It never panics and never returns an error:
// every failure becomes an Inconclusive verdict and an error log.
func (c *Classifier) Evaluate(ctx context.Context, content string) Verdict {
	ctx = logger.WithLogFields(ctx, logger.LogFields{Component: "modbot.classifier"})
	sc := logger.StartSpan(ctx, "modbot.classify")
	defer sc.End()
	ctx = sc.Context()

	if c.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.cfg.Timeout)
		defer cancel()
	}

	start := time.Now()
	verdict := c.evaluate(ctx, content)
	verdict.Latency = time.Since(start)

	sc.SetAttributes(
		attribute.String("modbot.verdict", verdict.Kind.String()),
		attribute.String("modbot.inconclusive_reason", string(verdict.Reason)),
	)
	metrics.ObserveVerdict(verdict.Kind.String(), string(verdict.Reason), verdict.Latency)

	switch verdict.Kind {
	case Inconclusive:
		sc.RecordError(verdict.Err)
		msg := "llm call failed"
		if llm.IsContractViolation(verdict.Err) {
			msg = "llm response violated contract"
		}
		slog.ErrorContext(ctx, msg,
			"reason", verdict.Reason,
			"content", logger.Truncate(content, logContentLimit),
			"error", verdict.Err,
			"duration_ms", verdict.Latency.Milliseconds())
	default:
		slog.DebugContext(ctx, "message evaluated",
			"verdict", verdict.Kind.String(),
			"duration_ms", verdict.Latency.Milliseconds())
	}

	return verdict
}

func (c *Classifier) evaluate(ctx context.Context, content string) (verdict Verdict) {
	defer func() {
		if r := recover(); r != nil {
			verdict = inconclusive(ReasonCallFailed, fmt.Errorf("panic in llm client: %v", r))
		}
	}()

	var evaluation Evaluation
	if _, err := c.client.Chat(ctx, c.Request(content), &evaluation); err != nil {
		return inconclusive(reasonFor(ctx, err), err)
	}

	if evaluation.ViolatesRules {
		return Verdict{Kind: Violates}
	}
	return Verdict{Kind: DoesNotViolate}
}

func reasonFor(ctx context.Context, err error) Reason {
	switch {
	case errors.Is(err, llm.ErrNoChoices):
		return ReasonNoChoices
	case errors.Is(err, llm.ErrEmptyContent):
		return ReasonEmptyContent
	case errors.Is(err, llm.ErrInvalidResponse):
		return ReasonInvalidResponse
	case errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded):
		return ReasonTimeout
	case errors.Is(err, context.Canceled):
		return ReasonCanceled
	default:
		return ReasonCallFailed
	}
}
