// Copyright © 2024 The ELPS authors

package cmd

import "github.com/luthersystems/lispc/namespace"

// Option configures an exported command factory (AnalyzeCommand,
// VarsCommand).
type Option func(*cmdConfig)

type cmdConfig struct {
	registry *namespace.Registry
	core     []string
}

func newCmdConfig(opts ...Option) *cmdConfig {
	cfg := &cmdConfig{}
	for _, opt := range opts {
		opt(cfg)
	}
	return cfg
}

// WithRegistry injects the global environment that forms are analyzed
// against.  Embedders use it so that their host-provided vars and macros
// resolve.  The registry is used as is: configured core vars are not
// interned into it.
func WithRegistry(reg *namespace.Registry) Option {
	return func(c *cmdConfig) { c.registry = reg }
}

// WithCoreVars adds names to the core namespace of the registry built from
// configuration.
func WithCoreVars(names ...string) Option {
	return func(c *cmdConfig) { c.core = append(c.core, names...) }
}

// resolveRegistry returns the injected registry, or nil when the registry
// should be built from configuration.
func (c *cmdConfig) resolveRegistry() *namespace.Registry {
	return c.registry
}
