package commands

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/systmms/keychain/internal/backends"
	"github.com/systmms/keychain/internal/config"
	"github.com/systmms/keychain/internal/logging"
	"github.com/systmms/keychain/internal/metrics"
	"github.com/systmms/keychain/pkg/keychain"
)

// Runtime is shared by all commands. Flags fill it in before a command
// runs; the vault is created on first use and reused afterwards.
type Runtime struct {
	Config   *config.Config
	Registry *backends.Registry

	// Command line overrides for keychain.yaml.
	Service     string
	AccessGroup string
	Backend     string

	// MetricsTextfile, when set, receives the operation metrics on Flush.
	MetricsTextfile string

	vault    keychain.Vault
	registry *prometheus.Registry
	recorder *metrics.Recorder
}

// NewRuntime creates a runtime with the built-in backends. A config
// without a logger gets a plain stderr logger.
func NewRuntime(cfg *config.Config) *Runtime {
	if cfg.Logger == nil {
		cfg.Logger = logging.New(false, true)
	}
	return &Runtime{
		Config:   cfg,
		Registry: backends.NewRegistry(),
	}
}

// Load reads keychain.yaml and applies the command line overrides.
func (rt *Runtime) Load() error {
	if err := rt.Config.Load(); err != nil {
		return err
	}
	rt.Config.Override(rt.Service, rt.AccessGroup, rt.Backend)
	return rt.Config.Validate(rt.Registry)
}

// Vault returns the configured backend. Load must have succeeded.
func (rt *Runtime) Vault() (keychain.Vault, error) {
	if rt.vault != nil {
		return rt.vault, nil
	}
	name := rt.Config.Definition.Backend
	v, err := rt.Registry.Create(name)
	if err != nil {
		return nil, fmt.Errorf("failed to create backend %q: %w", name, err)
	}
	rt.Config.Logger.Debug("using %s backend", name)
	rt.vault = v
	return v, nil
}

// Client loads the configuration and returns a client bound to its scope.
func (rt *Runtime) Client() (*keychain.Client, error) {
	if err := rt.Load(); err != nil {
		return nil, err
	}
	v, err := rt.Vault()
	if err != nil {
		return nil, err
	}

	var opts []keychain.Option
	if rt.Config.Logger.DebugEnabled() {
		opts = append(opts, keychain.WithLogger(rt.Config.Logger))
	}
	if rt.MetricsTextfile != "" {
		if rt.recorder == nil {
			rt.registry = prometheus.NewRegistry()
			rt.recorder = metrics.New(rt.registry)
		}
		opts = append(opts, keychain.WithRecorder(rt.recorder))
	}
	return keychain.New(v, rt.Config.ClientConfig(), opts...), nil
}

// Flush writes the collected metrics to MetricsTextfile, if any were
// collected.
func (rt *Runtime) Flush() error {
	if rt.MetricsTextfile == "" || rt.registry == nil {
		return nil
	}
	if err := metrics.WriteTextfile(rt.MetricsTextfile, rt.registry); err != nil {
		return fmt.Errorf("failed to write metrics to %s: %w", rt.MetricsTextfile, err)
	}
	return nil
}
