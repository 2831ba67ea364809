// Package gate puts role based authorization and messaging backend
// resolution in front of HTTP handlers.
//
// Every request ends in exactly one terminal state, checked in order:
//
//	StateUnauthenticated  no actor                         401
//	StateForbidden        engine denies the action         403
//	StateBadRequest       backend unknown or not visible   400
//	StateProceed          the injected handler runs
//
// Evaluate holds the logic and has no HTTP dependency. Handle adapts it to
// net/http:
//
//	g := gate.New(engine, registry, flags, gate.WithMetrics(metrics))
//	router.Handle("/current_team", g.Handle(rbac.ActionOrganizationRead, h.getCurrentTeam))
package gate
