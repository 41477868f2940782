package cmd

import (
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"reflect"
	"runtime"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/muesli/termenv"

	"github.com/runger/nvpick/internal/config"
	"github.com/runger/nvpick/internal/host/memhost"
	"github.com/runger/nvpick/internal/layout"
	"github.com/runger/nvpick/internal/picker"
	"github.com/runger/nvpick/internal/storage"
)

func TestExitCode(t *testing.T) {
	tests := []struct {
		name          string
		err           error
		wantCode      int
		wantPrintable bool
	}{
		{"nil", nil, exitSuccess, false},
		{"cancelled", errCancelled, exitCancelled, false},
		{"fallback", fallback(errors.New("no tty")), exitFallback, true},
		{"command status", &exitError{code: 3}, 3, false},
		{"plain error", errors.New("boom"), 1, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, printable := exitCode(tt.err)
			if code != tt.wantCode || printable != tt.wantPrintable {
				t.Errorf("exitCode() = %d, %v, want %d, %v", code, printable, tt.wantCode, tt.wantPrintable)
			}
		})
	}
}

func TestReadItems(t *testing.T) {
	got, err := readItems(strings.NewReader("ignored\n"), []string{"a", "b"})
	if err != nil || !reflect.DeepEqual(got, []string{"a", "b"}) {
		t.Errorf("readItems(args) = %v, %v", got, err)
	}

	got, err = readItems(strings.NewReader("one\r\ntwo\n\nthree"), nil)
	if err != nil {
		t.Fatalf("readItems(stdin) error = %v", err)
	}
	if want := []string{"one", "two", "", "three"}; !reflect.DeepEqual(got, want) {
		t.Errorf("readItems(stdin) = %q, want %q", got, want)
	}
}

func TestKeymapFromConfig(t *testing.T) {
	km := keymapFromConfig(config.KeysConfig{Cancel: []string{"<C-c>"}})
	def := picker.DefaultKeymap()
	if !reflect.DeepEqual(km.Down, def.Down) || !reflect.DeepEqual(km.Commit, def.Commit) {
		t.Errorf("unset keys should keep defaults, got %+v", km)
	}
	if !reflect.DeepEqual(km.Cancel, []string{"<C-c>"}) {
		t.Errorf("Cancel = %v, want [<C-c>]", km.Cancel)
	}
}

func TestParseLevel(t *testing.T) {
	for in, want := range map[string]string{"debug": "DEBUG", "WARN": "WARN", "error": "ERROR", "": "INFO", "bogus": "INFO"} {
		if got := parseLevel(in).String(); got != want {
			t.Errorf("parseLevel(%q) = %s, want %s", in, got, want)
		}
	}
}

func TestNewLogger_WritesToConfiguredFile(t *testing.T) {
	dir := t.TempDir()
	cfg := config.DefaultConfig()
	cfg.Log.File = filepath.Join(dir, "logs", "custom.log")
	cfg.Log.Level = "debug"

	logger, closer, err := newLogger(cfg, &config.Paths{DataDir: dir})
	if err != nil {
		t.Fatalf("newLogger() error = %v", err)
	}
	logger.Debug("hello", "k", "v")
	closer.Close()

	data, err := os.ReadFile(cfg.Log.File)
	if err != nil {
		t.Fatalf("read log: %v", err)
	}
	if !strings.Contains(string(data), "msg=hello k=v") {
		t.Errorf("log = %q", data)
	}
}

// --- drivePicker ---

func TestDrivePicker_InterruptCancels(t *testing.T) {
	env := withTestEnv(t, nil)
	var delivered bool
	var s *picker.Session
	err := drivePicker(env, memhost.New(80, 24), func(e *picker.Engine) (*picker.Session, error) {
		var err error
		s, err = e.OpenReadOnly([]string{"a"}, layoutOf(t, env), func(picker.Result) { delivered = true })
		return s, err
	}, feedKeys(key(tea.KeyCtrlC)))
	if err != nil {
		t.Fatalf("drivePicker() error = %v", err)
	}
	if delivered {
		t.Error("ctrl+c must not deliver a selection")
	}
	if s.State() != picker.StateClosed {
		t.Errorf("State() = %s, want closed", s.State())
	}
}

func TestDrivePicker_ProgramErrorCancels(t *testing.T) {
	env := withTestEnv(t, nil)
	var s *picker.Session
	err := drivePicker(env, memhost.New(80, 24), func(e *picker.Engine) (*picker.Session, error) {
		var err error
		s, err = e.OpenReadOnly([]string{"a"}, layoutOf(t, env), nil)
		return s, err
	}, func(m tea.Model) (tea.Model, error) { return m, errors.New("tty lost") })

	if code, _ := exitCode(err); code != exitFallback {
		t.Errorf("exit code = %d, want %d", code, exitFallback)
	}
	if s.State() != picker.StateClosed {
		t.Errorf("State() = %s, want closed", s.State())
	}
}

func TestDrivePicker_OpenErrorIsFallback(t *testing.T) {
	env := withTestEnv(t, nil)
	err := drivePicker(env, memhost.New(80, 24), func(e *picker.Engine) (*picker.Session, error) {
		return nil, picker.ErrInvalidLayout
	}, feedKeys())
	if code, _ := exitCode(err); code != exitFallback || !errors.Is(err, picker.ErrInvalidLayout) {
		t.Errorf("drivePicker() = %v (code %d)", err, code)
	}
}

func TestStyleOptions(t *testing.T) {
	if got := styleOptions(termenv.Ascii); len(got) != 1 {
		t.Errorf("styleOptions(Ascii) = %d options, want the plain palette", len(got))
	}
	if got := styleOptions(termenv.TrueColor); got != nil {
		t.Errorf("styleOptions(TrueColor) = %d options, want none", len(got))
	}
}

func TestDrivePicker_PlainStylesStillCommit(t *testing.T) {
	env := withTestEnv(t, nil)
	var got string
	err := drivePicker(env, memhost.New(80, 24), func(e *picker.Engine) (*picker.Session, error) {
		return e.OpenReadOnly([]string{"a", "b"}, layoutOf(t, env), func(r picker.Result) { got = r.Text })
	}, feedKeys(runes("j"), key(tea.KeyEnter)), styleOptions(termenv.Ascii)...)
	if err != nil || got != "b" {
		t.Errorf("drivePicker() = %v, selection %q", err, got)
	}
}

func layoutOf(t *testing.T, env *appEnv) layout.Config {
	t.Helper()
	cfg, err := env.cfg.Picker.Layout()
	if err != nil {
		t.Fatalf("Layout() error = %v", err)
	}
	return cfg
}

// --- list / edit ---

func TestRunList_PrintsSelection(t *testing.T) {
	withTestEnv(t, nil)
	withKeys(t, runes("j"), key(tea.KeyEnter))

	c, out := newTestCommand("alpha\nbeta\ngamma\n")
	if err := runList(c, nil); err != nil {
		t.Fatalf("runList() error = %v", err)
	}
	if out.String() != "beta\n" {
		t.Errorf("output = %q, want %q", out.String(), "beta\n")
	}
}

func TestRunList_Cancelled(t *testing.T) {
	withTestEnv(t, nil)
	withKeys(t, runes("q"))

	c, out := newTestCommand("")
	err := runList(c, []string{"a", "b"})
	if !errors.Is(err, errCancelled) {
		t.Errorf("runList() error = %v, want errCancelled", err)
	}
	if out.Len() != 0 {
		t.Errorf("output = %q, want nothing", out.String())
	}
}

func TestRunList_CustomCancelKey(t *testing.T) {
	withTestEnv(t, func(c *config.Config) { c.Keys.Cancel = []string{"<C-x>"} })
	withKeys(t, key(tea.KeyCtrlX))

	c, _ := newTestCommand("")
	if err := runList(c, []string{"a"}); !errors.Is(err, errCancelled) {
		t.Errorf("runList() error = %v, want errCancelled", err)
	}
}

func TestRunList_BadLayoutFallsBack(t *testing.T) {
	withTestEnv(t, func(c *config.Config) { c.Picker.Border = "wavy" })
	withKeys(t)

	c, _ := newTestCommand("")
	if code, _ := exitCode(runList(c, []string{"a"})); code != exitFallback {
		t.Errorf("exit code = %d, want %d", code, exitFallback)
	}
}

func TestRunEdit_TypedText(t *testing.T) {
	withTestEnv(t, nil)
	withKeys(t, runes("n"), runes("e"), runes("w"), key(tea.KeyEnter))
	editPrintItems = false

	c, out := newTestCommand("")
	if err := runEdit(c, []string{"old"}); err != nil {
		t.Fatalf("runEdit() error = %v", err)
	}
	if out.String() != "new\n" {
		t.Errorf("output = %q, want %q", out.String(), "new\n")
	}
}

func TestRunEdit_PrintItems(t *testing.T) {
	withTestEnv(t, nil)
	withKeys(t, runes("c"), key(tea.KeyEnter))
	editPrintItems = true
	t.Cleanup(func() { editPrintItems = false })

	c, out := newTestCommand("a\n\nb\n")
	if err := runEdit(c, nil); err != nil {
		t.Fatalf("runEdit() error = %v", err)
	}
	if out.String() != "a\nb\nc\n" {
		t.Errorf("output = %q, want %q", out.String(), "a\nb\nc\n")
	}
}

func TestRunEdit_Cancelled(t *testing.T) {
	withTestEnv(t, nil)
	withKeys(t, key(tea.KeyCtrlE))

	c, _ := newTestCommand("")
	if err := runEdit(c, []string{"a"}); !errors.Is(err, errCancelled) {
		t.Errorf("runEdit() error = %v, want errCancelled", err)
	}
}

// --- project ---

func TestRunProject_RunsAndRemembers(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("POSIX shell scripts only")
	}
	if _, err := exec.LookPath("sh"); err != nil {
		t.Skip("sh not installed")
	}

	env := withTestEnv(t, nil)
	root := t.TempDir()
	for name, body := range map[string]string{
		"a.sh": "#!/bin/sh\necho from-a\n",
		"b.sh": "#!/bin/sh\necho from-b\nexit 4\n",
	} {
		if err := os.WriteFile(filepath.Join(root, name), []byte(body), 0o755); err != nil {
			t.Fatalf("write script: %v", err)
		}
	}

	withKeys(t, key(tea.KeyCtrlJ), key(tea.KeyEnter))
	c, out := newTestCommand("")
	err := runProject(c, []string{root})
	if code, _ := exitCode(err); code != 4 {
		t.Errorf("exit code = %d, want the script's 4 (err %v)", code, err)
	}
	want := "Command: ./b.sh\n" + strings.Repeat("-", 55) + "\n\nfrom-b\n"
	if out.String() != want {
		t.Errorf("output = %q, want %q", out.String(), want)
	}

	db, err := storage.NewSQLiteStore(env.paths.DatabaseFile())
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	defer db.Close()
	p, err := db.GetProject(commandContext(c), root)
	if err != nil {
		t.Fatalf("GetProject() error = %v", err)
	}
	if p.Default() != "./b.sh" {
		t.Errorf("default = %q, want ./b.sh", p.Default())
	}
	runs, err := db.RecentRuns(commandContext(c), root, 5)
	if err != nil || len(runs) != 1 || runs[0].ExitCode != 4 {
		t.Errorf("RecentRuns() = %+v, %v", runs, err)
	}
}

func TestRunProject_SignalledCommand(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("POSIX shell scripts only")
	}
	if _, err := exec.LookPath("sh"); err != nil {
		t.Skip("sh not installed")
	}

	withTestEnv(t, nil)
	root := t.TempDir()
	if err := os.WriteFile(filepath.Join(root, "die.sh"), []byte("#!/bin/sh\nkill -TERM $$\n"), 0o755); err != nil {
		t.Fatal(err)
	}

	withKeys(t, key(tea.KeyEnter))
	c, _ := newTestCommand("")
	if code, _ := exitCode(runProject(c, []string{root})); code != 128+15 {
		t.Errorf("exit code = %d, want %d for a command killed by SIGTERM", code, 128+15)
	}
}

func TestRunProject_Cancelled(t *testing.T) {
	withTestEnv(t, nil)
	withKeys(t, key(tea.KeyCtrlE))

	c, _ := newTestCommand("")
	if err := runProject(c, []string{t.TempDir()}); !errors.Is(err, errCancelled) {
		t.Errorf("runProject() error = %v, want errCancelled", err)
	}
}

func TestRunProject_NotADirectory(t *testing.T) {
	withTestEnv(t, nil)
	file := filepath.Join(t.TempDir(), "f")
	if err := os.WriteFile(file, nil, 0o644); err != nil {
		t.Fatal(err)
	}

	c, _ := newTestCommand("")
	if code, _ := exitCode(runProject(c, []string{file})); code != exitFallback {
		t.Errorf("exit code = %d, want %d", code, exitFallback)
	}
}

func TestProjectSubcommands(t *testing.T) {
	env := withTestEnv(t, nil)
	root := t.TempDir()

	db, err := env.openDatabase()
	if err != nil {
		t.Fatalf("openDatabase() error = %v", err)
	}
	ctx := t.Context()
	if err := db.SaveProject(ctx, &storage.Project{Root: root, Commands: []string{"make", "make test"}, DefaultIndex: 1}); err != nil {
		t.Fatal(err)
	}
	if err := db.RecordRun(ctx, &storage.Run{Root: root, Command: "make test", ExitCode: 2, RanAtUnixMs: 1700000000000}); err != nil {
		t.Fatal(err)
	}
	db.Close()

	disableColors()
	t.Cleanup(applyColorMode)

	c, out := newTestCommand("")
	if err := runProjectList(c, nil); err != nil {
		t.Fatalf("runProjectList() error = %v", err)
	}
	if !strings.Contains(out.String(), root+"\n") || !strings.Contains(out.String(), "* make test") {
		t.Errorf("list output = %q", out.String())
	}

	c, out = newTestCommand("")
	if err := runProjectRuns(c, []string{root}); err != nil {
		t.Fatalf("runProjectRuns() error = %v", err)
	}
	if !strings.Contains(out.String(), "  2  make test") {
		t.Errorf("runs output = %q", out.String())
	}

	c, out = newTestCommand("")
	if err := runProjectForget(c, []string{root}); err != nil {
		t.Fatalf("runProjectForget() error = %v", err)
	}
	c, out = newTestCommand("")
	if err := runProjectList(c, nil); err != nil {
		t.Fatalf("runProjectList() error = %v", err)
	}
	if !strings.Contains(out.String(), "No projects saved yet.") {
		t.Errorf("list after forget = %q", out.String())
	}
}

func TestFormatRun_Truncates(t *testing.T) {
	disableColors()
	t.Cleanup(applyColorMode)

	line := formatRun(storage.Run{Command: strings.Repeat("x", 200), RanAtUnixMs: 0}, 40)
	if !strings.HasSuffix(line, "…") {
		t.Errorf("formatRun() = %q, want a truncated command", line)
	}
	if !strings.Contains(formatRun(storage.Run{Command: "ok", RanAtUnixMs: 0}, 80), "  ok  ok") {
		t.Error("a zero exit status shows as ok")
	}
}

// --- nvim ---

func TestCommandDefs(t *testing.T) {
	defs := commandDefs(7)
	want := []string{
		"command! -nargs=? -complete=dir NvpickProject call rpcnotify(7, 'nvpick_project', <q-args>)",
		"command! -nargs=* NvpickList call rpcnotify(7, 'nvpick_list', [<f-args>])",
	}
	if !reflect.DeepEqual(defs, want) {
		t.Errorf("commandDefs() = %q", defs)
	}
}
