// Package httputil provides the JSON response writers, request decoding and
// middleware shared by the HTTP handlers.
//
// Every error response has the shape {"error": "<message>"}:
//
//	httputil.WriteForbidden(w, "insufficient permissions")
//
// Request bodies are decoded strictly, rejecting unknown fields:
//
//	var req orgs.UpdateOrgRequest
//	if !httputil.ParseJSONOrError(w, r, &req) {
//		return
//	}
//
// Middleware composes with Chain, outermost first:
//
//	handler := httputil.Chain(
//		httputil.LoggerMiddleware(logger),
//		httputil.RequestIDMiddleware,
//		httputil.LoggingMiddleware,
//		httputil.RecoveryMiddleware,
//	)(router)
package httputil
