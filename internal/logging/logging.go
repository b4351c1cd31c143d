// Package logging sets up the broker's structured logging. Two channels
// exist: the administrator-facing slog channel (stderr, plus syslog for
// audit records) and the terse user-facing denial message printed by the
// CLI. Diagnostic detail such as policy line numbers or whether a
// principal was enrolled stays on the admin channel; the invoking user
// only ever sees a generic denial, so failures cannot be used to probe
// the policy or enumerate users.
package logging

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/oklog/ulid/v2"
)

// errUnknownLevel is returned for log level strings outside debug, info,
// warn, error.
var errUnknownLevel = fmt.Errorf("unknown log level")

// ParseLevel maps a level string to a slog.Level.
func ParseLevel(level string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return slog.LevelDebug, nil
	case "info", "":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return 0, fmt.Errorf("%w: %q", errUnknownLevel, level)
	}
}

// Setup builds the admin-facing logger: redacted text output on stderr at
// the given level, with the invocation ID attached to every record.
func Setup(level string, invocationID string) (*slog.Logger, error) {
	parsed, err := ParseLevel(level)
	if err != nil {
		return nil, err
	}

	handler := NewRedactingHandler(
		slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: parsed}),
	)
	return slog.New(handler).With("invocation_id", invocationID), nil
}

// NewInvocationID generates a ULID identifying one broker invocation. It
// appears on every log and audit record so an administrator can correlate
// a denial message with its diagnostic detail.
func NewInvocationID() string {
	return ulid.Make().String()
}
