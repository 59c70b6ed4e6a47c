package logger

import (
	"context"
	"log/slog"
	"strconv"
	"time"
)

// Audit event types
const (
	EventLoginStarted      = "login_started"
	EventCredentialFailure = "credential_failure"
	EventLoginDenied       = "login_denied"
	EventChallengeResolved = "challenge_resolved"
	EventBlockApplied      = "block_applied"
	EventUnblock           = "unblock"
)

// AuditEvent represents a security audit event
type AuditEvent struct {
	EventType     string
	Username      string
	IPAddress     string
	Success       bool
	FailureReason string
	Metadata      map[string]string
}

// AuditLogger writes audit records through slog. Addresses are masked in production.
type AuditLogger struct {
	logger *slog.Logger
	env    string
}

// NewAuditLogger creates a new audit logger
func NewAuditLogger(logger *slog.Logger, env string) *AuditLogger {
	return &AuditLogger{
		logger: logger,
		env:    env,
	}
}

// Log writes one audit record; failures are logged at warn level
func (al *AuditLogger) Log(ctx context.Context, event AuditEvent) {
	attrs := []slog.Attr{
		slog.String("audit_type", "auth"),
		slog.String("event_type", event.EventType),
		slog.Bool("success", event.Success),
		slog.String("timestamp", time.Now().UTC().Format(time.RFC3339)),
	}

	if event.Username != "" {
		attrs = append(attrs, RedactedAttr("username", event.Username, al.env))
	}
	if event.IPAddress != "" {
		attrs = append(attrs, IPAttr("ip_address", event.IPAddress, al.env))
	}
	if event.FailureReason != "" {
		attrs = append(attrs, slog.String("failure_reason", event.FailureReason))
	}
	for key, val := range event.Metadata {
		attrs = append(attrs, slog.String(key, val))
	}

	level := slog.LevelInfo
	if !event.Success {
		level = slog.LevelWarn
	}
	al.logger.LogAttrs(ctx, level, "audit", attrs...)
}

// LogLoginStarted records a challenge being issued
func (al *AuditLogger) LogLoginStarted(ctx context.Context, username, ip, challengeID string) {
	al.Log(ctx, AuditEvent{
		EventType: EventLoginStarted,
		Username:  username,
		IPAddress: ip,
		Success:   true,
		Metadata:  map[string]string{"push_id": challengeID},
	})
}

// LogLoginDenied records a begin-authentication call rejected before credentials were checked
func (al *AuditLogger) LogLoginDenied(ctx context.Context, username, ip, reason string) {
	al.Log(ctx, AuditEvent{
		EventType:     EventLoginDenied,
		Username:      username,
		IPAddress:     ip,
		FailureReason: reason,
	})
}

// LogCredentialFailure records a wrong password or unknown user
func (al *AuditLogger) LogCredentialFailure(ctx context.Context, username, ip string) {
	al.Log(ctx, AuditEvent{
		EventType:     EventCredentialFailure,
		Username:      username,
		IPAddress:     ip,
		FailureReason: "invalid_credentials",
	})
}

// LogChallengeResolved records the outcome and labels of a resolved challenge
func (al *AuditLogger) LogChallengeResolved(ctx context.Context, username, ip, decision, finalLabel string, failedAttempts int) {
	al.Log(ctx, AuditEvent{
		EventType: EventChallengeResolved,
		Username:  username,
		IPAddress: ip,
		Success:   decision == "allow",
		Metadata: map[string]string{
			"decision":        decision,
			"final_risk":      finalLabel,
			"failed_attempts": strconv.Itoa(failedAttempts),
		},
	})
}

// LogBlockApplied records an escalation block
func (al *AuditLogger) LogBlockApplied(ctx context.Context, username, ip, label string, duration time.Duration) {
	al.Log(ctx, AuditEvent{
		EventType:     EventBlockApplied,
		Username:      username,
		IPAddress:     ip,
		FailureReason: "risk_escalation",
		Metadata: map[string]string{
			"risk":     label,
			"duration": duration.String(),
		},
	})
}

// LogUnblock records an administrative unblock
func (al *AuditLogger) LogUnblock(ctx context.Context, actor, ip string, existed bool) {
	al.Log(ctx, AuditEvent{
		EventType: EventUnblock,
		Username:  actor,
		IPAddress: ip,
		Success:   true,
		Metadata:  map[string]string{"was_blocked": strconv.FormatBool(existed)},
	})
}
