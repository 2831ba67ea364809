package audit

import (
	"context"
	"io"
	"os"
	"strconv"

	"github.com/sirupsen/logrus"
)

// LogrusLogger writes audit events as JSON lines through logrus
type LogrusLogger struct {
	logger *logrus.Logger
}

// NewLogrusLogger creates an audit logger writing to w (stdout when nil)
func NewLogrusLogger(w io.Writer) *LogrusLogger {
	if w == nil {
		w = os.Stdout
	}

	logger := logrus.New()
	logger.SetOutput(w)
	logger.SetLevel(logrus.InfoLevel)
	logger.SetFormatter(&logrus.JSONFormatter{
		FieldMap: logrus.FieldMap{
			logrus.FieldKeyMsg: "message",
		},
	})

	return &LogrusLogger{logger: logger}
}

// Log writes the event. Denied and failed events are logged at warn level.
func (l *LogrusLogger) Log(ctx context.Context, event *AuditEvent) error {
	fields := logrus.Fields{
		"audit":      true,
		"event_type": event.EventType,
		"status":     event.Status,
	}
	if event.UserID != nil {
		fields["user_id"] = *event.UserID
	}
	if event.OrganizationID != nil {
		fields["organization_id"] = *event.OrganizationID
	}
	if event.Role != "" {
		fields["role"] = event.Role
	}
	if event.Action != "" {
		fields["action"] = event.Action
	}
	if event.ResourceType != "" {
		fields["resource_type"] = event.ResourceType
		fields["resource_id"] = event.ResourceID
	}
	if event.RequestID != "" {
		fields["request_id"] = event.RequestID
	}
	if event.Method != "" {
		fields["method"] = event.Method
		fields["path"] = event.Path
		fields["ip_address"] = event.IPAddress
		fields["user_agent"] = event.UserAgent
	}
	for k, v := range event.Metadata {
		fields["meta_"+k] = v
	}
	if event.Changes != nil {
		fields["changes"] = event.Changes
	}

	entry := l.logger.WithContext(ctx).WithTime(event.Timestamp).WithFields(fields)
	switch event.Status {
	case EventStatusDenied, EventStatusFailure:
		entry.Warn(event.Message)
	default:
		entry.Info(event.Message)
	}

	return nil
}

// LogAuthorization logs an authorization outcome for an action
func (l *LogrusLogger) LogAuthorization(ctx context.Context, eventType EventType, userID *int64, orgID *int64, action string, status EventStatus, message string) error {
	event := buildBaseEvent(ctx, eventType, status)
	event.UserID = userID
	event.OrganizationID = orgID
	event.Action = action
	event.ResourceType = ResourceTypeOrganization
	event.Message = message
	if orgID != nil {
		event.ResourceID = strconv.FormatInt(*orgID, 10)
	}

	return l.Log(ctx, event)
}

// LogDataMutation logs a data mutation event
func (l *LogrusLogger) LogDataMutation(ctx context.Context, eventType EventType, userID *int64, resourceType ResourceType, resourceID string, changes *ChangeDetails, message string) error {
	event := buildBaseEvent(ctx, eventType, EventStatusSuccess)
	event.UserID = userID
	event.ResourceType = resourceType
	event.ResourceID = resourceID
	event.Changes = changes
	event.Message = message

	return l.Log(ctx, event)
}

// Close is a no-op; logrus writes synchronously
func (l *LogrusLogger) Close() error {
	return nil
}
