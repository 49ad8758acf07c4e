package logger

import "context"

type contextKey string

const logFieldsKey contextKey = "log_fields"

// LogFields contains structured fields automatically added to all logs
// within a context. Fields flow through context enrichment, so business
// context (conversation, turn, user) is included in every log statement
// without threading it by hand.
type LogFields struct {
	SessionID *string // Conversation session ID
	TurnID    *int64  // Turn ID (the snowflake of the user message that started it)
	MessageID *int64  // Message slot being produced
	UserID    *int64  // Owning user
	Plan      *string // Plan tier
	Component string  // Component name (OTel semantic convention style, e.g. "six.turn.orchestrator")
}

// WithLogFields enriches context with structured log fields.
// Multiple calls merge fields, with newer non-nil/non-empty values
// taking precedence. Context timeouts and cancellation are preserved.
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

func mergeFields(existing, next LogFields) LogFields {
	result := existing

	if next.SessionID != nil {
		result.SessionID = next.SessionID
	}
	if next.TurnID != nil {
		result.TurnID = next.TurnID
	}
	if next.MessageID != nil {
		result.MessageID = next.MessageID
	}
	if next.UserID != nil {
		result.UserID = next.UserID
	}
	if next.Plan != nil {
		result.Plan = next.Plan
	}
	if next.Component != "" {
		result.Component = next.Component
	}

	return result
}

// Ptr is a helper to create a pointer from a value.
// Useful for setting LogFields inline: logger.WithLogFields(ctx, logger.LogFields{TurnID: logger.Ptr(id)})
func Ptr[T any](v T) *T {
	return &v
}

// Truncate truncates a string to maxLen characters, appending "..." if
// truncated. Useful for logging potentially long strings like prompts.
func Truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
