package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/mattn/go-runewidth"
	"github.com/spf13/cobra"

	"github.com/runger/nvpick/internal/picker"
	"github.com/runger/nvpick/internal/projectcmd"
	"github.com/runger/nvpick/internal/storage"
)

var projectRunsLimit int

var projectCmd = &cobra.Command{
	Use:   "project [dir]",
	Short: "Pick and run a project command",
	Long: `Offer the commands of a project directory (default: the current
directory) in an editable picker and run the chosen one there.

The first time, the list holds the project's ./*.sh scripts. A typed
command is added to the list. The last command run is offered first, and
committing an empty input runs it again.

Exit status: the command's exit status (128+N when it is killed by
signal N), 1 if cancelled, 2 when no terminal is usable or the command
cannot be started. A command that itself exits with 1 or 2 is not told
apart from those cases; "nvpick project runs" shows the recorded status.`,
	GroupID: groupPicker,
	Args:    cobra.MaximumNArgs(1),
	RunE:    runProject,
}

var projectRunsCmd = &cobra.Command{
	Use:   "runs [dir]",
	Short: "Show recently run project commands",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runProjectRuns,
}

var projectListCmd = &cobra.Command{
	Use:   "list",
	Short: "List projects with saved commands",
	Args:  cobra.NoArgs,
	RunE:  runProjectList,
}

var projectForgetCmd = &cobra.Command{
	Use:   "forget [dir]",
	Short: "Forget the saved commands of a project",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runProjectForget,
}

func init() {
	projectRunsCmd.Flags().IntVarP(&projectRunsLimit, "limit", "n", 10, "Number of runs to show")
	projectCmd.AddCommand(projectRunsCmd)
	projectCmd.AddCommand(projectListCmd)
	projectCmd.AddCommand(projectForgetCmd)
}

// projectRoot resolves the optional directory argument to an absolute path.
func projectRoot(args []string) (string, error) {
	dir := "."
	if len(args) > 0 {
		dir = args[0]
	}
	root, err := filepath.Abs(dir)
	if err != nil {
		return "", fmt.Errorf("failed to resolve %s: %w", dir, err)
	}
	fi, err := os.Stat(root)
	if err != nil {
		return "", err
	}
	if !fi.IsDir() {
		return "", fmt.Errorf("%s is not a directory", root)
	}
	return root, nil
}

func runProject(cmd *cobra.Command, args []string) error {
	root, err := projectRoot(args)
	if err != nil {
		return fallback(err)
	}

	env, err := loadEnv()
	if err != nil {
		return fallback(err)
	}
	defer env.Close()

	settings, err := projectcmd.SettingsFromConfig(env.cfg)
	if err != nil {
		return fallback(err)
	}
	store, closeStore := env.openProjectStore()
	defer closeStore()

	ctx := commandContext(cmd)

	var (
		runner *projectcmd.Runner
		chosen string
	)
	err = runTerminal(env, func(e *picker.Engine) (*picker.Session, error) {
		runner = projectcmd.New(e, store,
			projectcmd.WithLogger(env.logger),
			projectcmd.WithSettings(settings),
		)
		return runner.Open(ctx, root, func(c string) { chosen = c })
	})
	if err != nil {
		return err
	}
	if chosen == "" {
		return errCancelled
	}

	rep := runner.Run(ctx, root, chosen)
	out := cmd.OutOrStdout()
	for _, line := range rep.Lines {
		fmt.Fprintln(out, line)
	}

	switch {
	case rep.ExitCode < 0:
		return &exitError{code: exitFallback}
	case rep.ExitCode > 0:
		return &exitError{code: rep.ExitCode}
	}
	return nil
}

func runProjectRuns(cmd *cobra.Command, args []string) error {
	root, err := projectRoot(args)
	if err != nil {
		return err
	}

	env, err := loadEnv()
	if err != nil {
		return err
	}
	defer env.Close()

	db, err := env.openDatabase()
	if err != nil {
		return err
	}
	defer db.Close()

	runs, err := db.RecentRuns(commandContext(cmd), root, projectRunsLimit)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if len(runs) == 0 {
		fmt.Fprintf(out, "No commands run in %s yet.\n", root)
		return nil
	}
	width := terminalWidth()
	for _, r := range runs {
		fmt.Fprintln(out, formatRun(r, width))
	}
	return nil
}

// formatRun renders one run as "time  status  command", cutting the
// command to fit width.
func formatRun(r storage.Run, width int) string {
	when := time.UnixMilli(r.RanAtUnixMs).Format("2006-01-02 15:04")
	status := colorGreen + " ok" + colorReset
	if r.ExitCode != 0 {
		status = fmt.Sprintf("%s%3d%s", colorRed, r.ExitCode, colorReset)
	}
	prefix := when + "  " + status + "  "
	visible := len(when) + 2 + 3 + 2
	command := runewidth.Truncate(r.Command, max(10, width-visible), "…")
	return prefix + command
}

func runProjectList(cmd *cobra.Command, args []string) error {
	env, err := loadEnv()
	if err != nil {
		return err
	}
	defer env.Close()

	db, err := env.openDatabase()
	if err != nil {
		return err
	}
	defer db.Close()

	projects, err := db.ListProjects(commandContext(cmd))
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if len(projects) == 0 {
		fmt.Fprintln(out, "No projects saved yet.")
		return nil
	}
	for _, p := range projects {
		fmt.Fprintf(out, "%s%s%s\n", colorBold, p.Root, colorReset)
		for i, c := range p.Commands {
			marker := "  "
			if i == p.DefaultIndex {
				marker = colorCyan + "* " + colorReset
			}
			fmt.Fprintf(out, "  %s%s\n", marker, c)
		}
	}
	return nil
}

func runProjectForget(cmd *cobra.Command, args []string) error {
	root, err := projectRoot(args)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	if root == "" {
		// The directory may be gone already; forget it by name.
		root, _ = filepath.Abs(args[0])
	}

	env, err := loadEnv()
	if err != nil {
		return err
	}
	defer env.Close()

	db, err := env.openDatabase()
	if err != nil {
		return err
	}
	defer db.Close()

	if err := db.DeleteProject(commandContext(cmd), root); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Forgot %s\n", root)
	return nil
}

// commandContext returns the command's context, or a background one when
// the command runs outside Execute.
func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
