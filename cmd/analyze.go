// Copyright © 2024 The ELPS authors

package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"runtime"

	"github.com/luthersystems/lispc/analyzer"
	"github.com/luthersystems/lispc/form"
	"github.com/luthersystems/lispc/namespace"
	"github.com/luthersystems/lispc/parser"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/sync/errgroup"
)

const stdinName = "<stdin>"

// Exit codes shared by analyze and vars.
const (
	exitOK      = 0
	exitFailed  = 1
	exitInvalid = 2
)

var analyzeCmd = AnalyzeCommand()

// AnalyzeCommand returns the analyze command.  Options inject the global
// environment for embedders that provide their own vars.
func AnalyzeCommand(opts ...Option) *cobra.Command {
	cfg := newCmdConfig(opts...)
	var excludes []string
	cmd := &cobra.Command{
		Use:   "analyze [flags] [files...]",
		Short: "Analyze lisp source files and print their expression trees",
		Long: `Analyze lisp source files and print their expression trees.

Each top-level form is read, macroexpanded where a macro expander is
available, and analyzed against a global environment shared by all files.
The printed tree shows every node's kind, its position (statement,
expression or return), whether its value must be boxed, the frames created
by the form with their locals and captures, and the constants and vars
lifted out of the form.

With no files, reads from stdin. Files are analyzed concurrently; forms
within a file are analyzed in order. Vars defined at the top level of any
file are visible to every file. Errors are reported to stderr.

Exit codes:
  0  Every form was analyzed
  1  One or more forms failed to read or analyze
  2  Bad invocation (invalid flags or configuration, unreadable files)

Examples:
  lispc analyze file.lisp                     # Analyze a single file
  lispc analyze --format json file.lisp       # Print trees as JSON
  lispc analyze --exclude='target' ./...      # Skip a directory
  echo '(fn* [x] x)' | lispc analyze          # Analyze stdin`,
		Run: func(cmd *cobra.Command, args []string) {
			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			code := runAnalyze(ctx, cfg, viper.GetViper(), args, excludes,
				cmd.InOrStdin(), cmd.OutOrStdout(), cmd.ErrOrStderr())
			if code != exitOK {
				os.Exit(code)
			}
		},
	}
	cmd.Flags().StringArrayVar(&excludes, "exclude", nil,
		"Glob pattern for files to exclude (may be repeated).")
	return cmd
}

// fileReport is the outcome of analyzing one source file.
type fileReport struct {
	Path    string
	Results []*analyzer.Result
	Errors  []error
}

// Record returns the report's expression trees as a Record.
func (r *fileReport) Record() analyzer.Record {
	forms := make([]interface{}, 0, len(r.Results))
	for _, res := range r.Results {
		forms = append(forms, analyzer.InspectResult(res))
	}
	return analyzer.Record{
		"file":  r.Path,
		"forms": forms,
	}
}

// session analyzes sources against one registry.
type session struct {
	reg  *namespace.Registry
	opts []analyzer.Config
}

// analyzeSource reads src and analyzes its forms in order.  A read error
// stops the file; an analysis error only skips the failing form.
func (s *session) analyzeSource(ctx context.Context, name string, src []byte) *fileReport {
	report, forms := readSource(name, src)
	s.analyzeForms(ctx, report, forms)
	return report
}

// readSource parses src.  The returned report holds the read error, if any.
func readSource(name string, src []byte) (*fileReport, []*form.Form) {
	report := &fileReport{Path: name}
	forms, err := parser.NewReader(parser.WithPath(name)).ReadBytes(name, src)
	if err != nil {
		report.Errors = append(report.Errors, err)
		return report, nil
	}
	return report, forms
}

func (s *session) analyzeForms(ctx context.Context, report *fileReport, forms []*form.Form) {
	opts := make([]analyzer.Config, 0, len(s.opts)+1)
	opts = append(opts, s.opts...)
	a := analyzer.New(s.reg, append(opts, analyzer.WithFile(report.Path))...)
	for _, f := range forms {
		res, err := a.Analyze(ctx, f)
		if err != nil {
			report.Errors = append(report.Errors, err)
			continue
		}
		report.Results = append(report.Results, res)
	}
}

// analyzeFiles reads and analyzes paths concurrently.  Reports are returned
// in the order of paths.  Every file is read before any is analyzed, and the
// vars of all top-level defs are interned first, so a file may refer to a
// var defined by another file regardless of the order of analysis.
func (s *session) analyzeFiles(ctx context.Context, paths []string) ([]*fileReport, error) {
	reports := make([]*fileReport, len(paths))
	forms := make([][]*form.Form, len(paths))
	var read errgroup.Group
	read.SetLimit(runtime.GOMAXPROCS(0))
	for i, path := range paths {
		i, path := i, path
		read.Go(func() error {
			src, err := os.ReadFile(path) //nolint:gosec // CLI tool reads user-specified files
			if err != nil {
				return fmt.Errorf("%s: %w", path, err)
			}
			reports[i], forms[i] = readSource(path, src)
			return nil
		})
	}
	if err := read.Wait(); err != nil {
		return nil, err
	}

	for _, fs := range forms {
		for _, f := range fs {
			analyzer.Declare(s.reg, f)
		}
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.GOMAXPROCS(0))
	for i := range paths {
		i := i
		g.Go(func() error {
			s.analyzeForms(gctx, reports[i], forms[i])
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return reports, nil
}

// newSession builds the registry and analyzer options from configuration.
// The returned function must be called once analysis is complete.
func newSession(cfg *cmdConfig, st *settings, stderr io.Writer) (*session, func()) {
	log := st.newLogger(stderr)
	s := &session{
		reg:  st.newRegistry(cfg),
		opts: st.analyzerConfig(log),
	}
	if !st.Trace {
		return s, func() {}
	}
	tracer, shutdown := newTracer(log)
	s.opts = append(s.opts, analyzer.WithTracer(tracer))
	return s, func() {
		if err := shutdown(context.Background()); err != nil {
			log.WithError(err).Warn("unable to stop tracing")
		}
	}
}

func runAnalyze(ctx context.Context, cfg *cmdConfig, v *viper.Viper, args, excludes []string,
	stdin io.Reader, stdout, stderr io.Writer) int {
	st, err := loadSettings(v)
	if err != nil {
		fmt.Fprintln(stderr, err) //nolint:errcheck // best-effort error display
		return exitInvalid
	}
	s, done := newSession(cfg, st, stderr)
	defer done()

	var reports []*fileReport
	if len(args) == 0 {
		src, err := io.ReadAll(stdin)
		if err != nil {
			fmt.Fprintf(stderr, "reading stdin: %v\n", err) //nolint:errcheck // best-effort error display
			return exitInvalid
		}
		reports = []*fileReport{s.analyzeSource(ctx, stdinName, src)}
	} else {
		paths, err := expandArgs(args, excludes)
		if err != nil {
			fmt.Fprintln(stderr, err) //nolint:errcheck // best-effort error display
			return exitInvalid
		}
		reports, err = s.analyzeFiles(ctx, paths)
		if err != nil {
			fmt.Fprintln(stderr, err) //nolint:errcheck // best-effort error display
			return exitInvalid
		}
	}

	code := exitOK
	var errs []error
	for _, r := range reports {
		if len(r.Errors) > 0 {
			code = exitFailed
			errs = append(errs, r.Errors...)
		}
		if len(r.Results) == 0 {
			continue
		}
		if err := analyzer.Dump(stdout, r.Record(), st.Format); err != nil {
			fmt.Fprintln(stderr, err) //nolint:errcheck // best-effort error display
			return exitInvalid
		}
	}
	if len(errs) > 0 {
		renderErrors(stderr, errors.Join(errs...))
	}
	return code
}

func init() {
	rootCmd.AddCommand(analyzeCmd)
}
