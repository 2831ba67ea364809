// Package observability provides structured logging, Prometheus metrics,
// health checks and OpenTelemetry tracing for teamgate.
//
// # Structured Logging
//
//	logger := observability.NewLogger(observability.InfoLevel, os.Stdout)
//	logger.WithField("org_id", orgID).Info("Organization updated")
//
// Request scoped loggers carry the request ID, user ID and trace IDs:
//
//	ctx = observability.WithLogger(ctx, logger)
//	observability.FromContext(ctx).Debug("Evaluating gate")
//
// # Prometheus Metrics
//
//	metrics := observability.NewMetrics(prometheus.DefaultRegisterer)
//	router.Use(observability.HTTPMetricsMiddleware(metrics))
//	metrics.RecordGateOutcome("organization.update", "forbidden")
//
// # Health Checks
//
//	checker := observability.NewHealthChecker(db, redisClient, version)
//	observability.RegisterHealthRoutes(healthMux, checker)
//
// # OpenTelemetry
//
//	providers, err := observability.InitOTel(ctx, observability.OTelConfig{
//		Enabled:     true,
//		Endpoint:    "otel-collector:4317",
//		ServiceName: "teamgate",
//	}, logger)
//	shutdown.Register("otel", providers.Shutdown)
package observability
