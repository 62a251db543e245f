package config

import "time"

// Default values for configuration fields.
const (
	// Rules defaults
	DefaultRulesPath     = "./rules"
	DefaultRulesMaxDepth = 5
	DefaultRulesWatch    = false
	DefaultRulesDebounce = 100 * time.Millisecond

	// Suppression defaults
	DefaultSuppressionBackend            = "memory"
	DefaultSuppressionSQLitePath         = "data/suppression.db"
	DefaultSuppressionBusyTimeout        = 5 * time.Second
	DefaultSuppressionCheckpointInterval = 5 * time.Minute
	DefaultSuppressionFailMode           = "fail-closed"
	DefaultSuppressionCompactionSchedule = "*/30 * * * *"
	DefaultSuppressionGracePeriod        = 24 * time.Hour

	// Audit defaults
	DefaultAuditEnabled              = true
	DefaultAuditBackend              = "sqlite"
	DefaultAuditSQLitePath           = "data/audit.db"
	DefaultAuditSQLiteMaxOpenConns   = 10
	DefaultAuditSQLiteMaxIdleConns   = 5
	DefaultAuditSQLiteWALMode        = true
	DefaultAuditSQLiteBusyTimeout    = 5 * time.Second
	DefaultAuditRecorderAsyncBuffer  = 1000
	DefaultAuditRecorderWriteTimeout = 5 * time.Second

	// Dispatch defaults
	DefaultDispatchMinSeverity    = "medium"
	DefaultDispatchWorkers        = 4
	DefaultDispatchNotifier       = "log"
	DefaultDispatchWebhookTimeout = 2 * time.Second

	// Telemetry defaults
	DefaultLoggingLevel         = "info"
	DefaultLoggingFormat        = "json"
	DefaultMetricsEnabled       = true
	DefaultMetricsListenAddress = "127.0.0.1:9090"
	DefaultMetricsPath          = "/metrics"
	DefaultMetricsNamespace     = "beacon"
	DefaultHealthLivenessPath   = "/healthz"
	DefaultHealthReadinessPath  = "/readyz"
	DefaultHealthCheckTimeout   = 2 * time.Second
)

// newConfig returns a Config with the boolean defaults set. YAML is decoded
// on top of it, so a key explicitly set to false in the file stays false.
func newConfig() *Config {
	return &Config{
		Rules: RulesConfig{Watch: DefaultRulesWatch},
		Audit: AuditConfig{
			Enabled: DefaultAuditEnabled,
			SQLite:  AuditSQLiteConfig{WALMode: DefaultAuditSQLiteWALMode},
		},
		Telemetry: TelemetryConfig{
			Metrics: MetricsConfig{Enabled: DefaultMetricsEnabled},
		},
	}
}

// Default returns a complete configuration with every default applied.
func Default() *Config {
	cfg := newConfig()
	ApplyDefaults(cfg)
	return cfg
}

// ApplyDefaults fills every zero-valued non-boolean field with its default.
// It is idempotent.
func ApplyDefaults(cfg *Config) {
	// Rules defaults
	if cfg.Rules.Path == "" {
		cfg.Rules.Path = DefaultRulesPath
	}
	if cfg.Rules.MaxDepth == 0 {
		cfg.Rules.MaxDepth = DefaultRulesMaxDepth
	}
	if cfg.Rules.Debounce == 0 {
		cfg.Rules.Debounce = DefaultRulesDebounce
	}

	// Suppression defaults
	if cfg.Suppression.Backend == "" {
		cfg.Suppression.Backend = DefaultSuppressionBackend
	}
	if cfg.Suppression.SQLite.Path == "" {
		cfg.Suppression.SQLite.Path = DefaultSuppressionSQLitePath
	}
	if cfg.Suppression.SQLite.BusyTimeout == 0 {
		cfg.Suppression.SQLite.BusyTimeout = DefaultSuppressionBusyTimeout
	}
	if cfg.Suppression.SQLite.CheckpointInterval == 0 {
		cfg.Suppression.SQLite.CheckpointInterval = DefaultSuppressionCheckpointInterval
	}
	if cfg.Suppression.FailMode == "" {
		cfg.Suppression.FailMode = DefaultSuppressionFailMode
	}
	if cfg.Suppression.CompactionSchedule == "" {
		cfg.Suppression.CompactionSchedule = DefaultSuppressionCompactionSchedule
	}
	if cfg.Suppression.GracePeriod == 0 {
		cfg.Suppression.GracePeriod = DefaultSuppressionGracePeriod
	}

	// Audit defaults
	if cfg.Audit.Backend == "" {
		cfg.Audit.Backend = DefaultAuditBackend
	}
	if cfg.Audit.SQLite.Path == "" {
		cfg.Audit.SQLite.Path = DefaultAuditSQLitePath
	}
	if cfg.Audit.SQLite.MaxOpenConns == 0 {
		cfg.Audit.SQLite.MaxOpenConns = DefaultAuditSQLiteMaxOpenConns
	}
	if cfg.Audit.SQLite.MaxIdleConns == 0 {
		cfg.Audit.SQLite.MaxIdleConns = DefaultAuditSQLiteMaxIdleConns
	}
	if cfg.Audit.SQLite.BusyTimeout == 0 {
		cfg.Audit.SQLite.BusyTimeout = DefaultAuditSQLiteBusyTimeout
	}
	if cfg.Audit.Recorder.AsyncBuffer == 0 {
		cfg.Audit.Recorder.AsyncBuffer = DefaultAuditRecorderAsyncBuffer
	}
	if cfg.Audit.Recorder.WriteTimeout == 0 {
		cfg.Audit.Recorder.WriteTimeout = DefaultAuditRecorderWriteTimeout
	}

	// Dispatch defaults
	if cfg.Dispatch.MinSeverity == "" {
		cfg.Dispatch.MinSeverity = DefaultDispatchMinSeverity
	}
	if cfg.Dispatch.Workers == 0 {
		cfg.Dispatch.Workers = DefaultDispatchWorkers
	}
	if cfg.Dispatch.Notifier == "" {
		cfg.Dispatch.Notifier = DefaultDispatchNotifier
	}
	if cfg.Dispatch.Webhook.Timeout == 0 {
		cfg.Dispatch.Webhook.Timeout = DefaultDispatchWebhookTimeout
	}

	// Telemetry defaults
	if cfg.Telemetry.Logging.Level == "" {
		cfg.Telemetry.Logging.Level = DefaultLoggingLevel
	}
	if cfg.Telemetry.Logging.Format == "" {
		cfg.Telemetry.Logging.Format = DefaultLoggingFormat
	}
	if cfg.Telemetry.Metrics.ListenAddress == "" {
		cfg.Telemetry.Metrics.ListenAddress = DefaultMetricsListenAddress
	}
	if cfg.Telemetry.Metrics.Path == "" {
		cfg.Telemetry.Metrics.Path = DefaultMetricsPath
	}
	if cfg.Telemetry.Metrics.Namespace == "" {
		cfg.Telemetry.Metrics.Namespace = DefaultMetricsNamespace
	}
	if cfg.Telemetry.Health.LivenessPath == "" {
		cfg.Telemetry.Health.LivenessPath = DefaultHealthLivenessPath
	}
	if cfg.Telemetry.Health.ReadinessPath == "" {
		cfg.Telemetry.Health.ReadinessPath = DefaultHealthReadinessPath
	}
	if cfg.Telemetry.Health.CheckTimeout == 0 {
		cfg.Telemetry.Health.CheckTimeout = DefaultHealthCheckTimeout
	}
}
