// Copyright © 2018 The ELPS authors

// Package repl implements an interactive loop that analyzes each complete
// form typed by the user and prints its expression tree.
package repl

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/ergochat/readline"
	"github.com/luthersystems/lispc/analyzer"
	"github.com/luthersystems/lispc/namespace"
	"github.com/luthersystems/lispc/parser"
	"github.com/sirupsen/logrus"
)

const inputName = "<repl>"

type config struct {
	stdin       io.ReadCloser
	stdout      io.Writer
	stderr      io.Writer
	format      analyzer.Format
	opts        []analyzer.Config
	history     string
	renderError func(io.Writer, error)
	log         logrus.FieldLogger
}

func newConfig(opts ...Option) *config {
	config := &config{
		stdout:  os.Stdout,
		stderr:  os.Stderr,
		format:  analyzer.FormatText,
		history: historyPath(),
		renderError: func(w io.Writer, err error) {
			fmt.Fprintln(w, err) //nolint:errcheck // best-effort error display
		},
		log: logrus.StandardLogger(),
	}
	for _, opt := range opts {
		opt(config)
	}
	return config
}

// Option configures the REPL.
type Option func(*config)

// WithStdin allows overriding the input to the REPL.
func WithStdin(stdin io.ReadCloser) Option {
	return func(c *config) {
		c.stdin = stdin
	}
}

// WithStdout allows overriding where expression trees are written.
func WithStdout(stdout io.Writer) Option {
	return func(c *config) {
		c.stdout = stdout
	}
}

// WithStderr allows overriding where prompts and errors are written.
func WithStderr(stderr io.Writer) Option {
	return func(c *config) {
		c.stderr = stderr
	}
}

// WithFormat selects the encoding of printed expression trees.
func WithFormat(format analyzer.Format) Option {
	return func(c *config) {
		c.format = format
	}
}

// WithAnalyzerConfig passes options to the analyzer used for each form.
func WithAnalyzerConfig(opts ...analyzer.Config) Option {
	return func(c *config) {
		c.opts = append(c.opts, opts...)
	}
}

// WithHistoryFile sets the readline history file.  An empty path disables
// history.
func WithHistoryFile(path string) Option {
	return func(c *config) {
		c.history = path
	}
}

// WithErrorRenderer sets the function used to display read and analysis
// errors.
func WithErrorRenderer(fn func(io.Writer, error)) Option {
	return func(c *config) {
		c.renderError = fn
	}
}

// WithLogger sets the logger used for REPL housekeeping messages.
func WithLogger(log logrus.FieldLogger) Option {
	return func(c *config) {
		c.log = log
	}
}

// Run reads forms until end of input, analyzing each against reg.  Lines
// are accumulated until every open delimiter is closed.
func Run(ctx context.Context, reg *namespace.Registry, prompt string, opts ...Option) error {
	cfg := newConfig(opts...)
	cont := strings.Repeat(" ", len(prompt)-2) + "> "
	if len(prompt) < 2 {
		cont = prompt
	}

	ensureHistoryFilePermissions(cfg.history)
	rlCfg := &readline.Config{
		Stdout:            cfg.stderr,
		Stderr:            cfg.stderr,
		Prompt:            prompt,
		HistoryFile:       cfg.history,
		HistorySearchFold: true,
		AutoComplete:      &symbolCompleter{reg: reg},
	}
	if cfg.stdin != nil {
		rlCfg.Stdin = cfg.stdin
	}
	rl, err := readline.NewEx(rlCfg)
	if err != nil {
		return fmt.Errorf("initializing readline: %w", err)
	}
	defer rl.Close() //nolint:errcheck // best-effort cleanup

	a := analyzer.New(reg, append([]analyzer.Config{analyzer.WithFile(inputName)}, cfg.opts...)...)
	var pending bytes.Buffer
	for {
		if pending.Len() == 0 {
			rl.SetPrompt(prompt)
		} else {
			rl.SetPrompt(cont)
		}
		line, err := rl.ReadSlice()
		if errors.Is(err, readline.ErrInterrupt) {
			pending.Reset()
			continue
		}
		if err != nil {
			if pending.Len() > 0 {
				evalInput(ctx, cfg, a, pending.Bytes())
			}
			return nil
		}
		if pending.Len() == 0 && len(bytes.TrimSpace(line)) == 0 {
			continue
		}
		pending.Write(line)
		pending.WriteByte('\n')
		if openDepth(pending.Bytes()) > 0 {
			continue
		}
		evalInput(ctx, cfg, a, pending.Bytes())
		pending.Reset()
	}
}

func evalInput(ctx context.Context, cfg *config, a *analyzer.Analyzer, src []byte) {
	forms, err := parser.NewReader().ReadBytes(inputName, src)
	if err != nil {
		cfg.renderError(cfg.stderr, err)
		return
	}
	for _, f := range forms {
		res, err := a.Analyze(ctx, f)
		if err != nil {
			cfg.renderError(cfg.stderr, err)
			continue
		}
		if err := analyzer.Dump(cfg.stdout, analyzer.Inspect(res.Root), cfg.format); err != nil {
			cfg.log.WithError(err).Warn("unable to print expression")
		}
	}
}

// openDepth returns the number of delimiters opened but not closed in src.
// An unterminated string counts as an open delimiter.
func openDepth(src []byte) int {
	depth := 0
	inString := false
	for i := 0; i < len(src); i++ {
		c := src[i]
		switch {
		case inString:
			switch c {
			case '\\':
				i++
			case '"':
				inString = false
			}
		case c == '"':
			inString = true
		case c == ';':
			for i < len(src) && src[i] != '\n' {
				i++
			}
		case c == '\\':
			// Character literal such as \( or \].
			i++
		case c == '(' || c == '[' || c == '{':
			depth++
		case c == ')' || c == ']' || c == '}':
			depth--
		}
	}
	if inString {
		return depth + 1
	}
	return depth
}

func historyPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".lispc_history")
}

// ensureHistoryFilePermissions creates the history file if needed and
// restricts it to the current user.
func ensureHistoryFilePermissions(path string) {
	if path == "" {
		return
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_RDONLY, 0600) //nolint:gosec // path is the user's history file
	if err != nil {
		return
	}
	_ = f.Close()
	_ = os.Chmod(path, 0600)
}
