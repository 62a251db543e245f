// Package health serves liveness and readiness probes for beacon run.
//
// Liveness answers 200 whenever the process can serve HTTP. Readiness runs
// every registered check concurrently, each bounded by the check timeout, and
// answers 503 unless all pass:
//
//	checker := health.New(cfg.Telemetry.Health.CheckTimeout)
//	checker.RegisterCheck("catalog", health.CatalogCheck(catalog))
//	checker.RegisterCheck("suppression", health.SuppressionCheck(manager))
//	checker.RegisterCheck("audit", health.AuditCheck(sink))
//	health.Register(mux, checker, cfg.Telemetry.Health, info)
package health
