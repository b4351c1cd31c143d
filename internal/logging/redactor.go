package logging

import (
	"context"
	"log/slog"
	"regexp"
)

// redactedValue replaces attribute values whose keys look credential-bearing.
const redactedValue = "[REDACTED]"

// credentialKeyPattern matches attribute keys that must never carry their
// value into a log record. Broker code never logs secret material in the
// first place; this handler is the backstop for wrapped errors from
// lower layers.
var credentialKeyPattern = regexp.MustCompile(`(?i)(password|passphrase|secret|token|credential|key)`)

// RedactingHandler is a decorator that redacts sensitive attributes before
// forwarding records to the underlying handler.
type RedactingHandler struct {
	handler slog.Handler
}

// NewRedactingHandler wraps handler with credential redaction.
func NewRedactingHandler(handler slog.Handler) *RedactingHandler {
	return &RedactingHandler{handler: handler}
}

// Enabled reports whether the handler handles records at the given level.
func (r *RedactingHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return r.handler.Enabled(ctx, level)
}

// Handle redacts the record's attributes and forwards it.
func (r *RedactingHandler) Handle(ctx context.Context, record slog.Record) error {
	redacted := slog.NewRecord(record.Time, record.Level, record.Message, record.PC)
	record.Attrs(func(attr slog.Attr) bool {
		redacted.AddAttrs(redactAttr(attr))
		return true
	})
	return r.handler.Handle(ctx, redacted)
}

// WithAttrs returns a handler whose attributes include the given ones,
// redacted.
func (r *RedactingHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	redacted := make([]slog.Attr, len(attrs))
	for i, attr := range attrs {
		redacted[i] = redactAttr(attr)
	}
	return &RedactingHandler{handler: r.handler.WithAttrs(redacted)}
}

// WithGroup returns a handler with the given group name.
func (r *RedactingHandler) WithGroup(name string) slog.Handler {
	return &RedactingHandler{handler: r.handler.WithGroup(name)}
}

func redactAttr(attr slog.Attr) slog.Attr {
	if attr.Value.Kind() == slog.KindGroup {
		members := attr.Value.Group()
		redacted := make([]any, 0, len(members))
		for _, member := range members {
			redacted = append(redacted, redactAttr(member))
		}
		return slog.Group(attr.Key, redacted...)
	}
	if credentialKeyPattern.MatchString(attr.Key) {
		return slog.String(attr.Key, redactedValue)
	}
	return attr
}
