package cmd

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"

	"github.com/runger/nvpick/internal/host/memhost"
	"github.com/runger/nvpick/internal/host/teahost"
	"github.com/runger/nvpick/internal/picker"
)

// minTermWidth is the narrowest terminal a picker is drawn in.
const minTermWidth = 20

// openFunc opens a picker on engine.
type openFunc func(engine *picker.Engine) (*picker.Session, error)

// programRunner runs a Bubble Tea model until it quits.
type programRunner func(m tea.Model) (tea.Model, error)

// checkTERM verifies that the TERM environment variable is not "dumb".
func checkTERM() error {
	if os.Getenv("TERM") == "dumb" {
		return fmt.Errorf("TERM=dumb is not supported")
	}
	return nil
}

// terminalWidth returns the width of stdout, then $COLUMNS, then 80.
func terminalWidth() int {
	if w := getTermWidthIoctl(); w > 0 {
		return w
	}
	if c, err := strconv.Atoi(os.Getenv("COLUMNS")); err == nil && c > 0 {
		return c
	}
	return 80
}

// runTerminalPicker runs a picker on /dev/tty so stdin and stdout stay
// free for data. Failures to set the terminal up are returned as
// fallback errors.
func runTerminalPicker(env *appEnv, open openFunc) error {
	if err := checkTTY(); err != nil {
		return fallback(err)
	}
	if err := checkTERM(); err != nil {
		return fallback(err)
	}

	if err := os.MkdirAll(env.paths.CacheDir, 0o755); err != nil {
		return fallback(fmt.Errorf("failed to create cache directory: %w", err))
	}
	lockFd, err := acquireLock(env.paths.LockFile())
	if err != nil {
		return fallback(err)
	}
	defer releaseLock(lockFd)

	tty, err := os.OpenFile(ttyPath, os.O_RDWR, 0)
	if err != nil {
		return fallback(fmt.Errorf("cannot open %s: %w", ttyPath, err))
	}
	defer tty.Close()

	cols, rows, err := ttySize(tty)
	if err != nil {
		return fallback(err)
	}
	if cols < minTermWidth {
		return fallback(fmt.Errorf("terminal too narrow (%d columns, need at least %d)", cols, minTermWidth))
	}

	// Detect the color profile from the tty: stdout may be a pipe.
	profile := termenv.NewOutput(tty).ColorProfile()
	lipgloss.SetColorProfile(profile)

	run := func(m tea.Model) (tea.Model, error) {
		p := tea.NewProgram(m,
			tea.WithAltScreen(),
			tea.WithInput(tty),
			tea.WithOutput(tty),
		)
		return p.Run()
	}
	return drivePicker(env, memhost.New(cols, rows), open, run, styleOptions(profile)...)
}

// styleOptions picks the teahost palette for a terminal color profile.
func styleOptions(profile termenv.Profile) []teahost.Option {
	if profile == termenv.Ascii {
		return []teahost.Option{teahost.WithStyles(teahost.PlainStyles())}
	}
	return nil
}

// drivePicker opens a picker on h and runs the terminal model until the
// picker closes.
func drivePicker(env *appEnv, h *memhost.Host, open openFunc, run programRunner, opts ...teahost.Option) error {
	engine := picker.NewEngine(h, env.engineOptions()...)
	s, err := open(engine)
	if err != nil {
		return fallback(err)
	}

	cancel := func() { _ = s.Dispatch(picker.Event{Kind: picker.EventCancel}) }
	model := teahost.New(h, append(opts, teahost.WithInterrupt(cancel))...)
	if _, err := run(model); err != nil {
		cancel()
		return fallback(fmt.Errorf("TUI error: %w", err))
	}

	if s.State() != picker.StateClosed {
		env.logger.Warn("terminal closed before the picker", "session", s.ID(), "state", s.State().String())
		cancel()
	}
	return nil
}

// readItems returns args, or the lines of in when there are no args.
// A terminal on stdin yields no items.
func readItems(in io.Reader, args []string) ([]string, error) {
	if len(args) > 0 {
		return args, nil
	}
	if f, ok := in.(*os.File); ok {
		if fi, err := f.Stat(); err == nil && fi.Mode()&os.ModeCharDevice != 0 {
			return nil, nil
		}
	}

	var items []string
	scanner := bufio.NewScanner(in)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		items = append(items, strings.TrimRight(scanner.Text(), "\r"))
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read items: %w", err)
	}
	return items, nil
}
