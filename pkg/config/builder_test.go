package config

import "time"

// ConfigBuilder provides a fluent API for building Config instances in tests.
// It starts with default values and allows selective overrides.
type ConfigBuilder struct {
	cfg Config
}

// NewTestConfig creates a new ConfigBuilder with every default applied. The
// resulting configuration is valid.
func NewTestConfig() *ConfigBuilder {
	return &ConfigBuilder{cfg: *Default()}
}

// Build returns the built Config instance.
func (b *ConfigBuilder) Build() *Config {
	return &b.cfg
}

func (b *ConfigBuilder) WithRulesPath(path string) *ConfigBuilder {
	b.cfg.Rules.Path = path
	return b
}

func (b *ConfigBuilder) WithSuppressionBackend(backend, path string) *ConfigBuilder {
	b.cfg.Suppression.Backend = backend
	b.cfg.Suppression.SQLite.Path = path
	return b
}

func (b *ConfigBuilder) WithFailMode(mode string) *ConfigBuilder {
	b.cfg.Suppression.FailMode = mode
	return b
}

func (b *ConfigBuilder) WithAuditBackend(backend string) *ConfigBuilder {
	b.cfg.Audit.Backend = backend
	return b
}

func (b *ConfigBuilder) WithWebhook(url string, timeout time.Duration) *ConfigBuilder {
	b.cfg.Dispatch.Notifier = "webhook"
	b.cfg.Dispatch.Webhook.URL = url
	b.cfg.Dispatch.Webhook.Timeout = timeout
	return b
}

func (b *ConfigBuilder) WithLoggingLevel(level string) *ConfigBuilder {
	b.cfg.Telemetry.Logging.Level = level
	return b
}
