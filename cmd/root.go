// Copyright © 2018 The ELPS authors

package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	cfgFile   string
	colorFlag string
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "lispc",
	Short: "lispc: semantic analyzer for a Clojure-family Lisp",
	Long: `lispc reads Lisp source and turns each top-level form into an analyzed
expression tree: local bindings resolved to frame slots, closure captures
computed, constants and var references lifted, tail positions and boxing
marked, and case* dispatch tables compiled.

Getting started:
  lispc analyze file.lisp         Analyze a file and print its expression trees
  lispc analyze ./...             Analyze every .lisp file below the current directory
  lispc analyze --format json f   Print expression trees as JSON
  lispc repl                      Analyze forms interactively
  lispc vars                      List the vars known to the analyzer

Configuration is read from $HOME/.lispc.yaml (or --config) and from LISPC_*
environment variables:
  log.level                  logrus level for analyzer logs (LISPC_LOG_LEVEL)
  output.format              text, json or yaml (LISPC_OUTPUT_FORMAT)
  namespace                  namespace forms are analyzed in
  case.collision-threshold   avoidable case* collisions accepted
  case.max-mask-bits         widest case* dispatch mask considered
  core.vars                  names interned in the core namespace
  trace                      log an OpenTelemetry span for every form`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&cfgFile, "config", "", "config file (default is $HOME/.lispc.yaml)")
	flags.StringVar(&colorFlag, "color", "auto",
		`Control colored output: "auto", "always", or "never".`)
	flags.String("log-level", "", "Log level: panic, fatal, error, warning, info, debug or trace.")
	flags.String("format", "", "Output format: text, json or yaml.")
	flags.String("namespace", "", "Namespace that forms are analyzed in.")
	flags.Bool("trace", false, "Log an OpenTelemetry span for every analyzed form.")

	bindFlag(keyLogLevel, "log-level")
	bindFlag(keyFormat, "format")
	bindFlag(keyNamespace, "namespace")
	bindFlag(keyTrace, "trace")
	setDefaults(viper.GetViper())
}

func bindFlag(key, name string) {
	if err := viper.BindPFlag(key, rootCmd.PersistentFlags().Lookup(name)); err != nil {
		panic(err)
	}
}

// initConfig reads in config file and ENV variables if set.
func initConfig() {
	if cfgFile != "" {
		// Use config file from the flag.
		viper.SetConfigFile(cfgFile)
	} else if home, err := os.UserHomeDir(); err == nil {
		// Search config in home directory with name ".lispc" (without extension).
		viper.AddConfigPath(home)
		viper.SetConfigName(".lispc")
	}

	viper.SetEnvPrefix("LISPC")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	viper.AutomaticEnv() // read in environment variables that match

	// If a config file is found, read it in.
	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	} else if cfgFile != "" {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
}
