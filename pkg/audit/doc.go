// Package audit records security relevant events: denied requests, invalid
// backend selections, organization updates and issued verification codes.
//
// Events are written as JSON lines through logrus:
//
//	auditLogger := audit.NewLogrusLogger(os.Stdout)
//	ctx = audit.WithLogger(ctx, auditLogger)
//	audit.FromContext(ctx).LogAuthorization(ctx, audit.EventTypeAuthzAccessDenied,
//		&userID, &orgID, "organization.update", audit.EventStatusDenied, "insufficient role")
//
// FromContext returns a no-op logger when none is configured.
package audit
