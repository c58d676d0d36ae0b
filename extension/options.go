package extension

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/xraph/embers"
	"github.com/xraph/embers/observability"
	"github.com/xraph/embers/plugin"
	"github.com/xraph/embers/store"
)

// Option configures the Embers Forge extension.
type Option func(*Extension)

// WithStore sets the store and bypasses Config.Backend.
func WithStore(s store.Store) Option {
	return func(e *Extension) {
		e.store = s
	}
}

// WithEngineOption passes an embers.Option through to the underlying engine.
func WithEngineOption(opt embers.Option) Option {
	return func(e *Extension) {
		e.engineOpts = append(e.engineOpts, opt)
	}
}

// WithPlugin registers an embers plugin.
func WithPlugin(p plugin.Plugin) Option {
	return func(e *Extension) {
		e.engineOpts = append(e.engineOpts, embers.WithPlugin(p))
	}
}

// WithMetrics registers the metrics plugin on reg.
func WithMetrics(reg prometheus.Registerer) Option {
	return func(e *Extension) {
		e.engineOpts = append(e.engineOpts,
			embers.WithPlugin(observability.NewMetricsExtension(observability.NewPrometheusFactory(reg))))
	}
}

// WithConfig sets the Forge extension configuration.
func WithConfig(cfg Config) Option {
	return func(e *Extension) { e.config = cfg }
}

// WithDisableMigrate prevents auto-migration on start.
func WithDisableMigrate() Option {
	return func(e *Extension) { e.config.DisableMigrate = true }
}

// WithBackend selects the store backend and its DSN.
func WithBackend(backend, dsn string) Option {
	return func(e *Extension) {
		e.config.Backend = backend
		e.config.DSN = dsn
	}
}

// WithSlot sets the save slot.
func WithSlot(slot string) Option {
	return func(e *Extension) { e.config.Slot = slot }
}

// WithRequireConfig requires config to be present in YAML files.
// If true and no config is found, Register returns an error.
func WithRequireConfig(require bool) Option {
	return func(e *Extension) { e.config.RequireConfig = require }
}
