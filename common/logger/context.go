package logger

import "context"

type contextKey string

const logFieldsKey contextKey = "log_fields"

// LogFields contains structured fields automatically added to all logs within a context.
// Fields flow through context enrichment, so the ingress can tag a request once with
// tenant and integration and every service/store log line below it carries them.
type LogFields struct {
	TenantID      *string // Tenant that owns the integration or thread
	IntegrationID *int64  // App integration ID
	ThreadID      *int64  // Conversation thread ID
	MessageID     *int64  // Conversation message ID
	WorkflowID    *string // Workflow instance addressed by the message
	Platform      *string // Platform id (slack, msteams, ...)
	StreamID      *string // Event stream entry ID
	Component     string  // Component name (OTel semantic convention style, e.g., "switchboard.outbound.router")
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

// mergeFields merges two LogFields, preferring non-nil/non-empty values from 'new'.
func mergeFields(existing, new LogFields) LogFields {
	result := existing

	if new.TenantID != nil {
		result.TenantID = new.TenantID
	}
	if new.IntegrationID != nil {
		result.IntegrationID = new.IntegrationID
	}
	if new.ThreadID != nil {
		result.ThreadID = new.ThreadID
	}
	if new.MessageID != nil {
		result.MessageID = new.MessageID
	}
	if new.WorkflowID != nil {
		result.WorkflowID = new.WorkflowID
	}
	if new.Platform != nil {
		result.Platform = new.Platform
	}
	if new.StreamID != nil {
		result.StreamID = new.StreamID
	}
	if new.Component != "" {
		result.Component = new.Component
	}

	return result
}

// Ptr is a helper to create a pointer from a value.
// Useful for setting LogFields inline: logger.WithLogFields(ctx, logger.LogFields{ThreadID: logger.Ptr(id)})
func Ptr[T any](v T) *T {
	return &v
}

// Truncate truncates a string to maxLen characters, appending "..." if truncated.
// Useful for logging message text previews.
func Truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
