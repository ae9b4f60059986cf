// Package observability wires OpenTelemetry tracing and metrics for the
// HTTP client.
//
// Tracing and metrics export over OTLP/HTTP:
//
//	tp, err := observability.InitTracer(ctx, cfg)
//	defer tp.Shutdown(ctx)
//	mp, err := observability.InitMeter(ctx, cfg)
//	defer mp.Shutdown(ctx)
//
// Each client request is wrapped in a RequestScope, which owns a span and
// the in-flight/duration/error instruments of ClientMetrics:
//
//	metrics, err := observability.NewClientMetrics(observability.Meter("futurenet"))
//	ctx, scope := observability.StartRequest(ctx, metrics, "GET", "api.example.com")
//	defer scope.End(ctx, status, code, err)
package observability
