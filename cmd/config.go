// Copyright © 2024 The ELPS authors

package cmd

import (
	"fmt"
	"io"
	"os"

	"github.com/luthersystems/lispc/analyzer"
	"github.com/luthersystems/lispc/namespace"
	"github.com/mattn/go-isatty"
	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"
)

// Configuration keys.  Each may be set in the config file or through a
// LISPC_ environment variable, e.g. LISPC_OUTPUT_FORMAT.
const (
	keyLogLevel      = "log.level"
	keyFormat        = "output.format"
	keyNamespace     = "namespace"
	keyCaseThreshold = "case.collision-threshold"
	keyCaseMaxBits   = "case.max-mask-bits"
	keyCoreVars      = "core.vars"
	keyTrace         = "trace"
)

// defaultCoreVars are interned in the core namespace when no core.vars
// setting is present.
var defaultCoreVars = []string{
	"+", "-", "*", "/", "=", "<", ">", "<=", ">=", "not", "inc", "dec",
	"str", "println", "prn", "first", "rest", "next", "cons", "conj",
	"count", "nth", "get", "assoc", "dissoc", "list", "vector", "hash-map",
	"hash-set", "seq", "apply", "identity", "nil?", "zero?", "ex-info",
}

func setDefaults(v *viper.Viper) {
	v.SetDefault(keyLogLevel, logrus.WarnLevel.String())
	v.SetDefault(keyFormat, string(analyzer.FormatText))
	v.SetDefault(keyNamespace, namespace.User)
	v.SetDefault(keyCaseThreshold, 0)
	v.SetDefault(keyCaseMaxBits, analyzer.DefaultMaxMaskBits)
	v.SetDefault(keyCoreVars, defaultCoreVars)
	v.SetDefault(keyTrace, false)
}

// settings is the validated view of the configuration used by commands.
type settings struct {
	LogLevel  logrus.Level
	Format    analyzer.Format
	Namespace string
	Case      analyzer.CaseOptions
	CoreVars  []string
	Trace     bool
}

func loadSettings(v *viper.Viper) (*settings, error) {
	level, err := logrus.ParseLevel(v.GetString(keyLogLevel))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", keyLogLevel, err)
	}
	format, err := analyzer.ParseFormat(v.GetString(keyFormat))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", keyFormat, err)
	}
	s := &settings{
		LogLevel:  level,
		Format:    format,
		Namespace: v.GetString(keyNamespace),
		Case: analyzer.CaseOptions{
			CollisionThreshold: v.GetInt(keyCaseThreshold),
			MaxMaskBits:        v.GetInt(keyCaseMaxBits),
		},
		CoreVars: v.GetStringSlice(keyCoreVars),
		Trace:    v.GetBool(keyTrace),
	}
	if s.Namespace == "" {
		return nil, fmt.Errorf("%s: must not be empty", keyNamespace)
	}
	if s.Case.CollisionThreshold < 0 {
		return nil, fmt.Errorf("%s: must not be negative", keyCaseThreshold)
	}
	if s.Case.MaxMaskBits < 0 || s.Case.MaxMaskBits > 31 {
		return nil, fmt.Errorf("%s: must be between 0 and 31", keyCaseMaxBits)
	}
	return s, nil
}

// newLogger returns a logger writing to w at the configured level.
func (s *settings) newLogger(w io.Writer) *logrus.Logger {
	log := logrus.New()
	log.SetOutput(w)
	log.SetLevel(s.LogLevel)
	if f, ok := w.(*os.File); !ok || !isatty.IsTerminal(f.Fd()) {
		log.SetFormatter(&logrus.TextFormatter{DisableColors: true})
	}
	return log
}

// newRegistry returns a registry with the configured core vars interned and
// the configured namespace current.  An injected registry is used as is.
func (s *settings) newRegistry(cfg *cmdConfig) *namespace.Registry {
	if reg := cfg.resolveRegistry(); reg != nil {
		return reg
	}
	reg := namespace.NewRegistry()
	reg.InternCore(s.CoreVars...)
	reg.InternCore(cfg.core...)
	reg.SetCurrent(s.Namespace)
	return reg
}

// analyzerConfig returns the analyzer options implied by the settings.
func (s *settings) analyzerConfig(log logrus.FieldLogger) []analyzer.Config {
	return []analyzer.Config{
		analyzer.WithLogger(log),
		analyzer.WithCaseOptions(s.Case),
	}
}
