package classifier

import (
	"context"
	"time"
)

// Kind is the outcome class of one classification.
type Kind int

const (
	DoesNotViolate Kind = iota
	Violates
	Inconclusive
)

func (k Kind) String() string {
	switch k {
	case Violates:
		return "violates"
	case DoesNotViolate:
		return "does_not_violate"
	case Inconclusive:
		return "inconclusive"
	default:
		return "unknown"
	}
}

// Reason explains why a verdict is Inconclusive. Empty for decisive verdicts.
type Reason string

const (
	ReasonCallFailed      Reason = "call_failed"
	ReasonNoChoices       Reason = "no_choices"
	ReasonEmptyContent    Reason = "empty_content"
	ReasonInvalidResponse Reason = "invalid_response"
	ReasonTimeout         Reason = "timeout"
	ReasonCanceled        Reason = "canceled"
)

// Verdict is the tagged result of one classification. Inconclusive verdicts carry
// the error that caused them so they can be told apart from genuine negatives.
type Verdict struct {
	Kind    Kind
	Reason  Reason
	Err     error
	Latency time.Duration
}

// Violates collapses the verdict to the boolean moderation decision.
// Only a decisive positive answer counts; inconclusive means "do nothing".
func (v Verdict) Violates() bool {
	return v.Kind == Violates
}

// Evaluator classifies one piece of user content.
type Evaluator interface {
	Evaluate(ctx context.Context, content string) Verdict
}

// EvaluatorFunc adapts a function to Evaluator.
type EvaluatorFunc func(ctx context.Context, content string) Verdict

func (f EvaluatorFunc) Evaluate(ctx context.Context, content string) Verdict {
	return f(ctx, content)
}

func inconclusive(reason Reason, err error) Verdict {
	return Verdict{Kind: Inconclusive, Reason: reason, Err: err}
}
