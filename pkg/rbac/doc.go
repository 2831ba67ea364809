// Package rbac decides whether an organization member may perform an action.
//
// # Overview
//
// Authorization is a pure function of four values:
//
//	rbac.Decide(actorRole, actorTenant, resourceTenant, requiredRole)
//
// Tenant isolation is checked first. A member of organization A is denied any action on
// organization B regardless of role. Within a tenant the actor is allowed when its role is
// at least the required role (Viewer < Editor < Admin). RoleUnknown is never allowed.
//
// # Action Table
//
// Every protected operation is declared once in an ActionTable together with its minimum
// role and whether it is scoped to a messaging backend:
//
//	organization.read                        Viewer
//	organization.update                      Admin
//	organization.telegram_verification_code  Admin
//	organization.channel_verification_code   Admin  (backend scoped)
//
// Deployments may build their own table with NewActionTable. Looking up an undeclared
// action yields ErrUnknownAction.
//
// # Engine
//
// Engine wraps Decide for declared actions and records each decision:
//
//	engine := rbac.NewEngine(rbac.DefaultActions(), rbac.NewMetrics(registry))
//	decision, err := engine.Authorize(ctx, rbac.SubjectFromUser(user), rbac.ActionOrganizationUpdate, orgID)
//
// Metrics (teamgate_authz_decisions_total{action,result}) and debug logs are observational
// and never influence the decision.
//
// # Related Packages
//
//   - pkg/auth: Role and TenantID
//   - pkg/gate: Request gate mapping decisions to HTTP responses
package rbac
