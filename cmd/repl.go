// Copyright © 2018 The ELPS authors

package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/luthersystems/lispc/repl"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// replCmd represents the repl command
var replCmd = &cobra.Command{
	Use:   "repl",
	Short: "Analyze forms interactively",
	Long: `Start an interactive loop that analyzes each form as it is entered.

A form spanning several lines is analyzed once its delimiters balance.
Definitions made with def persist for the rest of the session, so later
forms can refer to them. Line editing, completion of special forms and
vars, and command history are supported via readline. Use Ctrl-D to exit
and Ctrl-C to discard a partial form.

Example session:
  lispc> (def square (fn* [x] (* x x)))
  def return boxed <repl>:1:1
  ...
  lispc> (square 5)
  call return boxed <repl>:1:1
  ...`,
	Run: func(cmd *cobra.Command, args []string) {
		st, err := loadSettings(viper.GetViper())
		if err != nil {
			fmt.Fprintln(os.Stderr, err) //nolint:errcheck // best-effort error display
			os.Exit(exitInvalid)
		}
		ctx := cmd.Context()
		if ctx == nil {
			ctx = context.Background()
		}
		s, done := newSession(newCmdConfig(), st, os.Stderr)
		defer done()
		err = repl.Run(ctx, s.reg, filepath.Base(os.Args[0])+"> ",
			repl.WithFormat(st.Format),
			repl.WithAnalyzerConfig(s.opts...),
			repl.WithErrorRenderer(renderErrors),
		)
		if err != nil {
			fmt.Fprintln(os.Stderr, err) //nolint:errcheck // best-effort error display
			os.Exit(exitFailed)
		}
	},
}

func init() {
	rootCmd.AddCommand(replCmd)
}
