package config

import "time"

// Config is the root configuration structure for Beacon.
type Config struct {
	// Rules controls where category schemas are loaded from and how
	// expressions are validated.
	Rules RulesConfig `yaml:"rules"`

	// Suppression configures the cooldown store and its compaction job.
	Suppression SuppressionConfig `yaml:"suppression"`

	// Audit configures the append-only audit log.
	Audit AuditConfig `yaml:"audit"`

	// Dispatch configures alert delivery.
	Dispatch DispatchConfig `yaml:"dispatch"`

	// Telemetry contains logging, metrics and health configuration.
	Telemetry TelemetryConfig `yaml:"telemetry"`
}

// RulesConfig contains configuration for the schema loader.
type RulesConfig struct {
	// Path is a category YAML file or a directory of them.
	// Default: "./rules"
	Path string `yaml:"path"`

	// MaxDepth is the deepest allowed expression nesting.
	// Default: 5
	MaxDepth int `yaml:"max_depth"`

	// Watch reloads the catalog when files under Path change.
	// Default: false
	Watch bool `yaml:"watch"`

	// Debounce delays a reload until file events settle.
	// Default: 100ms
	Debounce time.Duration `yaml:"debounce"`

	// Categories restricts loading to these category IDs. Empty loads all.
	Categories []string `yaml:"categories"`
}

// SuppressionConfig contains configuration for the suppression manager.
type SuppressionConfig struct {
	// Backend selects the record store.
	// Options: "memory", "sqlite"
	// Default: "memory"
	Backend string `yaml:"backend"`

	// SQLite configures the sqlite backend.
	SQLite SuppressionSQLiteConfig `yaml:"sqlite"`

	// FailMode controls routing when the store errors.
	// Options: "fail-closed", "fail-open"
	// Default: "fail-closed"
	FailMode string `yaml:"fail_mode"`

	// CompactionSchedule is the cron expression for expiring stale records.
	// Default: "*/30 * * * *"
	CompactionSchedule string `yaml:"compaction_schedule"`

	// GracePeriod is how long past its cooldown a record is kept.
	// Default: 24h
	GracePeriod time.Duration `yaml:"grace_period"`
}

// SuppressionSQLiteConfig contains SQLite settings for suppression records.
type SuppressionSQLiteConfig struct {
	// Path is the database file path.
	// Default: "data/suppression.db"
	Path string `yaml:"path"`

	// BusyTimeout is how long to wait on a locked database.
	// Default: 5s
	BusyTimeout time.Duration `yaml:"busy_timeout"`

	// CheckpointInterval is how often the WAL is checkpointed.
	// Default: 5m
	CheckpointInterval time.Duration `yaml:"checkpoint_interval"`
}

// AuditConfig contains configuration for the audit log.
type AuditConfig struct {
	// Enabled controls whether audit entries are written.
	// Default: true
	Enabled bool `yaml:"enabled"`

	// Backend selects the sink.
	// Options: "memory", "sqlite"
	// Default: "sqlite"
	Backend string `yaml:"backend"`

	// SQLite configures the sqlite sink.
	SQLite AuditSQLiteConfig `yaml:"sqlite"`

	// Recorder configures the asynchronous write queue.
	Recorder RecorderConfig `yaml:"recorder"`
}

// AuditSQLiteConfig contains SQLite settings for the audit log.
type AuditSQLiteConfig struct {
	// Path is the database file path.
	// Default: "data/audit.db"
	Path string `yaml:"path"`

	// MaxOpenConns is the maximum number of open connections.
	// Default: 10
	MaxOpenConns int `yaml:"max_open_conns"`

	// MaxIdleConns is the maximum number of idle connections.
	// Default: 5
	MaxIdleConns int `yaml:"max_idle_conns"`

	// WALMode enables Write-Ahead Logging.
	// Default: true
	WALMode bool `yaml:"wal_mode"`

	// BusyTimeout is how long to wait on a locked database.
	// Default: 5s
	BusyTimeout time.Duration `yaml:"busy_timeout"`
}

// RecorderConfig contains configuration for the audit recorder.
type RecorderConfig struct {
	// AsyncBuffer is the queue size. A negative value writes synchronously.
	// Default: 1000
	AsyncBuffer int `yaml:"async_buffer"`

	// WriteTimeout bounds each write.
	// Default: 5s
	WriteTimeout time.Duration `yaml:"write_timeout"`
}

// DispatchConfig contains configuration for alert delivery.
type DispatchConfig struct {
	// MinSeverity is the lowest severity sent to the notifier.
	// Options: "low", "medium", "high", "critical"
	// Default: "medium"
	MinSeverity string `yaml:"min_severity"`

	// Workers bounds concurrent deliveries and batch routing.
	// Default: 4
	Workers int `yaml:"workers"`

	// Notifier selects the transport.
	// Options: "log", "webhook"
	// Default: "log"
	Notifier string `yaml:"notifier"`

	// Webhook configures the webhook notifier.
	Webhook WebhookConfig `yaml:"webhook"`
}

// WebhookConfig contains configuration for the webhook notifier.
type WebhookConfig struct {
	// URL receives a JSON POST per alert. Required for the webhook notifier.
	URL string `yaml:"url"`

	// Timeout is the per-request timeout.
	// Default: 2s
	Timeout time.Duration `yaml:"timeout"`

	// Headers are added to every request.
	Headers map[string]string `yaml:"headers"`
}

// TelemetryConfig contains configuration for observability.
type TelemetryConfig struct {
	// Logging contains logging configuration.
	Logging LoggingConfig `yaml:"logging"`

	// Metrics contains metrics configuration.
	Metrics MetricsConfig `yaml:"metrics"`

	// Health contains health check configuration.
	Health HealthConfig `yaml:"health"`
}

// LoggingConfig contains logging configuration.
type LoggingConfig struct {
	// Level is the minimum log level to emit.
	// Options: "debug", "info", "warn", "error"
	// Default: "info"
	Level string `yaml:"level"`

	// Format controls the log output format.
	// Options: "json", "text"
	// Default: "json"
	Format string `yaml:"format"`

	// AddSource includes file and line number in log entries.
	// Default: false
	AddSource bool `yaml:"add_source"`
}

// MetricsConfig contains metrics configuration.
type MetricsConfig struct {
	// Enabled controls whether the metrics endpoint is served.
	// Default: true
	Enabled bool `yaml:"enabled"`

	// ListenAddress is the address the metrics and health server binds.
	// Default: "127.0.0.1:9090"
	ListenAddress string `yaml:"listen_address"`

	// Path is the HTTP path for the Prometheus endpoint.
	// Default: "/metrics"
	Path string `yaml:"path"`

	// Namespace is the metric name prefix.
	// Default: "beacon"
	Namespace string `yaml:"namespace"`
}

// HealthConfig contains health endpoint configuration.
type HealthConfig struct {
	// LivenessPath is the liveness probe path.
	// Default: "/healthz"
	LivenessPath string `yaml:"liveness_path"`

	// ReadinessPath is the readiness probe path.
	// Default: "/readyz"
	ReadinessPath string `yaml:"readiness_path"`

	// CheckTimeout bounds each readiness check.
	// Default: 2s
	CheckTimeout time.Duration `yaml:"check_timeout"`
}
