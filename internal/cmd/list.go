package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/runger/nvpick/internal/picker"
)

var listCmd = &cobra.Command{
	Use:   "list [items...]",
	Short: "Pick one line from a list",
	Long: `Show a read-only picker and print the chosen line.

Items are the arguments, or the lines of stdin when there are none. The
picker draws on /dev/tty, so it works inside $(...).

Keys: j/k or Ctrl+j/Ctrl+k move, Enter picks, q/Esc/Ctrl+e cancel.

Exit status: 0 a line was printed, 1 cancelled, 2 no usable terminal.

Examples:
  git branch --format='%(refname:short)' | nvpick list
  nvpick list build test deploy`,
	GroupID: groupPicker,
	RunE:    runList,
}

func runList(cmd *cobra.Command, args []string) error {
	items, err := readItems(cmd.InOrStdin(), args)
	if err != nil {
		return fallback(err)
	}

	env, err := loadEnv()
	if err != nil {
		return fallback(err)
	}
	defer env.Close()

	cfg, err := env.cfg.Picker.Layout()
	if err != nil {
		return fallback(err)
	}

	var selected *string
	err = runTerminal(env, func(e *picker.Engine) (*picker.Session, error) {
		return e.OpenReadOnly(items, cfg, func(r picker.Result) { selected = &r.Text })
	})
	if err != nil {
		return err
	}
	if selected == nil {
		return errCancelled
	}

	fmt.Fprintln(cmd.OutOrStdout(), *selected)
	return nil
}

// runTerminal is runTerminalPicker; tests replace it.
var runTerminal = runTerminalPicker
