package logger

import (
	"context"
	"unicode/utf8"
)

type contextKey string

const logFieldsKey contextKey = "log_fields"

// LogFields contains structured fields automatically added to all logs within a context.
// The gateway adapter sets them once per inbound message so that classifier and
// handler logs carry the message identity without threading it through every call.
type LogFields struct {
	EventID   *int64  // Snowflake id assigned to one handled message event
	GuildID   *string // Community the message was posted in
	ChannelID *string // Channel the message was posted in
	MessageID *string // Platform message id
	AuthorID  *string // Platform author id
	Component string  // Component name (OTel semantic convention style, e.g., "modbot.classifier")
}

// WithLogFields enriches context with structured log fields.
// Multiple calls merge fields, with newer non-nil/non-empty values taking precedence.
// Context timeouts and cancellation are preserved.
func WithLogFields(ctx context.Context, fields LogFields) context.Context {
	existing := GetLogFields(ctx)
	merged := mergeFields(existing, fields)
	return context.WithValue(ctx, logFieldsKey, merged)
}

// GetLogFields retrieves log fields from context.
// Returns empty LogFields if none are set.
func GetLogFields(ctx context.Context) LogFields {
	if fields, ok := ctx.Value(logFieldsKey).(LogFields); ok {
		return fields
	}
	return LogFields{}
}

func mergeFields(existing, new LogFields) LogFields {
	result := existing

	if new.EventID != nil {
		result.EventID = new.EventID
	}
	if new.GuildID != nil {
		result.GuildID = new.GuildID
	}
	if new.ChannelID != nil {
		result.ChannelID = new.ChannelID
	}
	if new.MessageID != nil {
		result.MessageID = new.MessageID
	}
	if new.AuthorID != nil {
		result.AuthorID = new.AuthorID
	}
	if new.Component != "" {
		result.Component = new.Component
	}

	return result
}

// Ptr is a helper to create a pointer from a value.
// Useful for setting LogFields inline: logger.WithLogFields(ctx, logger.LogFields{GuildID: logger.Ptr(id)})
func Ptr[T any](v T) *T {
	return &v
}

// Truncate truncates a string to maxLen bytes, appending "..." if truncated.
// The cut is moved back to a rune boundary so log output stays valid UTF-8.
func Truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	cut := maxLen
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut] + "..."
}
