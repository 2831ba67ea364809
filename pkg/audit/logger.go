package audit

import (
	"context"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/platinummonkey/teamgate/pkg/observability"
)

// Logger is the interface for audit logging
type Logger interface {
	// Log logs an audit event
	Log(ctx context.Context, event *AuditEvent) error

	// LogAuthorization logs an authorization outcome for an action
	LogAuthorization(ctx context.Context, eventType EventType, userID *int64, orgID *int64, action string, status EventStatus, message string) error

	// LogDataMutation logs a data mutation event
	LogDataMutation(ctx context.Context, eventType EventType, userID *int64, resourceType ResourceType, resourceID string, changes *ChangeDetails, message string) error

	// Close flushes any buffered events
	Close() error
}

type contextKey string

const (
	loggerKey  contextKey = "audit_logger"
	requestKey contextKey = "audit_request"
)

// WithLogger adds an audit logger to the context
func WithLogger(ctx context.Context, logger Logger) context.Context {
	return context.WithValue(ctx, loggerKey, logger)
}

// FromContext retrieves the audit logger from context
func FromContext(ctx context.Context) Logger {
	if logger, ok := ctx.Value(loggerKey).(Logger); ok {
		return logger
	}
	return NoOpLogger{}
}

// WithRequest stores the HTTP request so events can carry its metadata
func WithRequest(ctx context.Context, r *http.Request) context.Context {
	return context.WithValue(ctx, requestKey, r)
}

// NoOpLogger discards every event
type NoOpLogger struct{}

func (NoOpLogger) Log(context.Context, *AuditEvent) error { return nil }
func (NoOpLogger) LogAuthorization(context.Context, EventType, *int64, *int64, string, EventStatus, string) error {
	return nil
}
func (NoOpLogger) LogDataMutation(context.Context, EventType, *int64, ResourceType, string, *ChangeDetails, string) error {
	return nil
}
func (NoOpLogger) Close() error { return nil }

// buildBaseEvent fills timestamp, request ID and HTTP metadata from ctx
func buildBaseEvent(ctx context.Context, eventType EventType, status EventStatus) *AuditEvent {
	event := &AuditEvent{
		Timestamp: time.Now().UTC(),
		EventType: eventType,
		Status:    status,
		RequestID: observability.GetRequestID(ctx),
	}

	if r, ok := ctx.Value(requestKey).(*http.Request); ok && r != nil {
		event.Method = r.Method
		event.Path = r.URL.Path
		event.UserAgent = r.UserAgent()
		event.IPAddress = clientIP(r)
	}

	return event
}

func clientIP(r *http.Request) string {
	if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
		ip, _, _ := strings.Cut(forwarded, ",")
		return strings.TrimSpace(ip)
	}
	if realIP := r.Header.Get("X-Real-IP"); realIP != "" {
		return realIP
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
