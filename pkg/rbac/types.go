package rbac

import (
	"github.com/platinummonkey/teamgate/pkg/auth"
)

// Action names an operation on the current organization
type Action string

const (
	ActionOrganizationRead                     Action = "organization.read"
	ActionOrganizationUpdate                   Action = "organization.update"
	ActionOrganizationTelegramVerificationCode Action = "organization.telegram_verification_code"
	ActionOrganizationChannelVerificationCode  Action = "organization.channel_verification_code"
)

// String returns the action name
func (a Action) String() string {
	return string(a)
}

// Subject is the actor an authorization decision is made for
type Subject struct {
	UserID int64         `json:"user_id"`
	Role   auth.Role     `json:"role"`
	Tenant auth.TenantID `json:"tenant"`
}

// SubjectFromUser builds a Subject from an authenticated user
func SubjectFromUser(user *auth.User) Subject {
	if user == nil {
		return Subject{}
	}
	return Subject{
		UserID: user.ID,
		Role:   user.Role,
		Tenant: user.OrganizationID,
	}
}

// Decision is the result of an authorization check
type Decision struct {
	Allowed bool   `json:"allowed"`
	Reason  string `json:"reason"`
}

// Decision reasons
const (
	ReasonAllowed          = "role satisfies requirement"
	ReasonTenantMismatch   = "tenant mismatch"
	ReasonInsufficientRole = "insufficient role"
	ReasonUnknownRole      = "unknown role"
	ReasonUnknownAction    = "unknown action"
)

// DecisionAllow returns an allowing decision
func DecisionAllow() Decision {
	return Decision{Allowed: true, Reason: ReasonAllowed}
}

// DecisionDeny returns a denying decision with the given reason
func DecisionDeny(reason string) Decision {
	return Decision{Allowed: false, Reason: reason}
}

// result is the metrics label for the decision
func (d Decision) result() string {
	if d.Allowed {
		return "allow"
	}
	return "deny"
}
