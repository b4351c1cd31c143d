//go:build !windows

package logging

import (
	"fmt"
	"log/slog"
	"log/syslog"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// AuditOutcome classifies the terminal result of one invocation.
type AuditOutcome string

// Audit outcomes.
const (
	OutcomeApproved AuditOutcome = "approved"
	OutcomeDenied   AuditOutcome = "denied"
)

// AuditRecord is one decision of the broker, written to the admin channel
// and forwarded to syslog for external collection. It never carries secret
// material.
type AuditRecord struct {
	InvocationID string
	Outcome      AuditOutcome
	Reason       string
	Principal    string
	RealUID      int
	EffectiveUID int
	Command      string
	Args         []string
	Duration     time.Duration
}

// AuditLogger writes decision records.
type AuditLogger struct {
	logger *slog.Logger
	tag    string
}

// NewAuditLogger creates an audit logger writing through the given slog
// logger and forwarding to syslog under the program name.
func NewAuditLogger(logger *slog.Logger) *AuditLogger {
	if logger == nil {
		logger = slog.Default()
	}
	tag := "execas"
	if executable, err := os.Executable(); err == nil {
		tag = filepath.Base(executable)
	}
	return &AuditLogger{logger: logger, tag: tag}
}

// Log writes one audit record. Syslog delivery is best effort: a missing
// syslog daemon must not turn an otherwise valid decision into a failure.
func (a *AuditLogger) Log(record AuditRecord) {
	attrs := []any{
		"audit", string(record.Outcome),
		"invocation_id", record.InvocationID,
		"reason", record.Reason,
		"principal", record.Principal,
		"real_uid", record.RealUID,
		"effective_uid", record.EffectiveUID,
		"command", record.Command,
		"args", strings.Join(record.Args, " "),
		"pid", os.Getpid(),
		"duration_ms", record.Duration.Milliseconds(),
	}
	if record.Outcome == OutcomeApproved {
		a.logger.Info("escalation approved", attrs...)
	} else {
		a.logger.Warn("escalation denied", attrs...)
	}

	a.forwardToSyslog(record)
}

func (a *AuditLogger) forwardToSyslog(record AuditRecord) {
	priority := syslog.LOG_AUTHPRIV | syslog.LOG_NOTICE
	if record.Outcome == OutcomeDenied {
		priority = syslog.LOG_AUTHPRIV | syslog.LOG_WARNING
	}

	writer, err := syslog.New(priority, a.tag)
	if err != nil {
		a.logger.Debug("syslog unavailable for audit record", "error", err)
		return
	}
	defer writer.Close()

	message := fmt.Sprintf("%s: %s principal=%s uid=%d euid=%d command=%q id=%s",
		record.Outcome, record.Reason, record.Principal,
		record.RealUID, record.EffectiveUID, record.Command, record.InvocationID)
	if err := writer.Info(message); err != nil {
		a.logger.Debug("failed to write audit record to syslog", "error", err)
	}
}
