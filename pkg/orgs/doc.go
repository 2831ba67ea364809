// Package orgs stores organizations, the tenants of teamgate.
//
// Every user belongs to exactly one organization. The current team API reads and
// updates the caller's own organization through Service:
//
//	svc := orgs.NewPostgresService(db)
//	org, err := svc.GetOrganization(ctx, authCtx.Tenant())
//	if errors.Is(err, orgs.ErrNotFound) {
//		// 404
//	}
//
// Updates are partial. UpdateOrgRequest.Validate rejects blank or oversized names
// with ErrInvalidUpdate.
package orgs
