// Copyright © 2024 The ELPS authors

package cmd

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/luthersystems/lispc/analyzer"
	"github.com/luthersystems/lispc/namespace"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var varsCmd = VarsCommand()

// VarsCommand returns the vars command.
func VarsCommand(opts ...Option) *cobra.Command {
	cfg := newCmdConfig(opts...)
	var load []string
	cmd := &cobra.Command{
		Use:   "vars [flags] [namespace]",
		Short: "List the vars known to the analyzer",
		Long: `List the vars known to the analyzer.

The files given with --load are analyzed first so that their definitions are
included. With a namespace argument only vars interned in that namespace are
listed.

Examples:
  lispc vars                               # Core vars
  lispc vars --load src/... user           # Vars defined by a project`,
		Args: cobra.MaximumNArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			code := runVars(ctx, cfg, viper.GetViper(), args, load, cmd.OutOrStdout(), cmd.ErrOrStderr())
			if code != exitOK {
				os.Exit(code)
			}
		},
	}
	cmd.Flags().StringArrayVar(&load, "load", nil,
		"File or ./... pattern to analyze before listing (may be repeated).")
	return cmd
}

func runVars(ctx context.Context, cfg *cmdConfig, v *viper.Viper, args, load []string,
	stdout, stderr io.Writer) int {
	st, err := loadSettings(v)
	if err != nil {
		fmt.Fprintln(stderr, err) //nolint:errcheck // best-effort error display
		return exitInvalid
	}
	s, done := newSession(cfg, st, stderr)
	defer done()

	code := exitOK
	if len(load) > 0 {
		paths, err := expandArgs(load, nil)
		if err != nil {
			fmt.Fprintln(stderr, err) //nolint:errcheck // best-effort error display
			return exitInvalid
		}
		reports, err := s.analyzeFiles(ctx, paths)
		if err != nil {
			fmt.Fprintln(stderr, err) //nolint:errcheck // best-effort error display
			return exitInvalid
		}
		for _, r := range reports {
			for _, err := range r.Errors {
				code = exitFailed
				renderErrors(stderr, err)
			}
		}
	}

	vars := s.reg.Vars()
	if len(args) > 0 {
		ns, ok := s.reg.Get(args[0])
		if !ok {
			fmt.Fprintf(stderr, "unknown namespace: %s\n", args[0]) //nolint:errcheck // best-effort error display
			return exitInvalid
		}
		vars = ns.Vars()
	}
	if err := analyzer.Dump(stdout, varsRecord(vars), st.Format); err != nil {
		fmt.Fprintln(stderr, err) //nolint:errcheck // best-effort error display
		return exitInvalid
	}
	return code
}

func varsRecord(vars []*namespace.Var) analyzer.Record {
	items := make([]interface{}, 0, len(vars))
	for _, v := range vars {
		rec := analyzer.Record{"var": v.Qualified()}
		if v.IsMacro() {
			rec["macro"] = true
		}
		if doc := v.Doc(); doc != "" {
			rec["doc"] = doc
		}
		if v.Source.Known() {
			rec["source"] = v.Source.String()
		}
		items = append(items, rec)
	}
	return analyzer.Record{"vars": items}
}

func init() {
	rootCmd.AddCommand(varsCmd)
}
