// Package middleware provides HTTP authentication and Redis backed rate limiting.
//
// AuthMiddleware resolves "Authorization: Bearer <token>" headers into an
// auth.AuthContext stored in the request context:
//
//	authMW := middleware.NewAuthMiddleware(tokenManager, true)
//	router.Use(authMW.Handler)
//
// DistributedRateLimiter counts requests per key in fixed Redis windows and
// is shared by every instance:
//
//	limiter := middleware.NewDistributedRateLimiter(rdb, middleware.VerificationRateLimitConfig(60), "")
//	if allowed, _ := limiter.Allow(ctx, key); !allowed {
//		limiter.WriteLimitExceeded(ctx, w, key)
//	}
package middleware
