package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/runger/nvpick/internal/picker"
)

var (
	editTitle      string
	editPrintItems bool
)

var editCmd = &cobra.Command{
	Use:   "edit [items...]",
	Short: "Pick a line from a list or type a new one",
	Long: `Show an editable picker: a title, an input line and the list.

Moving through the list copies the row into the input, where it can be
changed before it is committed. Items come from the arguments or stdin.

Keys: Ctrl+j/Ctrl+k or arrows move, Enter commits, Ctrl+e cancels.

Exit status: 0 text was printed, 1 cancelled, 2 no usable terminal.

Examples:
  nvpick edit --title "Branch name" main develop
  nvpick edit --print-items < commands.txt > commands.txt.new`,
	GroupID: groupPicker,
	RunE:    runEdit,
}

func init() {
	editCmd.Flags().StringVarP(&editTitle, "title", "t", "Edit", "Title shown above the input")
	editCmd.Flags().BoolVar(&editPrintItems, "print-items", false, "Print the updated list instead of the committed text")
}

func runEdit(cmd *cobra.Command, args []string) error {
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

	var result *picker.Result
	err = runTerminal(env, func(e *picker.Engine) (*picker.Session, error) {
		return e.OpenEditable(editTitle, items, cfg, func(r picker.Result) { result = &r })
	})
	if err != nil {
		return err
	}
	if result == nil {
		return errCancelled
	}

	out := cmd.OutOrStdout()
	if editPrintItems {
		for _, item := range result.Items {
			fmt.Fprintln(out, item)
		}
		return nil
	}
	fmt.Fprintln(out, result.Text)
	return nil
}
