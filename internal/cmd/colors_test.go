package cmd

import (
	"bytes"
	"strings"
	"testing"

	"github.com/runger/nvpick/internal/storage"
)

const escape = "\033["

// runRoot executes the root command with args and returns its output.
func runRoot(t *testing.T, args ...string) string {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs(args)
	t.Cleanup(func() {
		rootCmd.SetOut(nil)
		rootCmd.SetArgs(nil)
		colorMode = "auto"
		enableColors()
	})
	if err := rootCmd.Execute(); err != nil {
		t.Fatalf("nvpick %s: %v", strings.Join(args, " "), err)
	}
	return out.String()
}

// seedFailedRun records one failing run of root.
func seedFailedRun(t *testing.T, env *appEnv, root string) {
	t.Helper()
	db, err := env.openDatabase()
	if err != nil {
		t.Fatalf("openDatabase() error = %v", err)
	}
	defer db.Close()
	run := &storage.Run{Root: root, Command: "make test", ExitCode: 2, RanAtUnixMs: 1700000000000}
	if err := db.RecordRun(t.Context(), run); err != nil {
		t.Fatal(err)
	}
}

func TestColorFlag_ProjectRuns(t *testing.T) {
	tests := []struct {
		mode      string
		wantColor bool
	}{
		{"never", false},
		{"always", true},
	}
	for _, tt := range tests {
		t.Run(tt.mode, func(t *testing.T) {
			env := withTestEnv(t, nil)
			root := t.TempDir()
			seedFailedRun(t, env, root)

			out := runRoot(t, "--color", tt.mode, "project", "runs", root)
			if !strings.Contains(out, "make test") {
				t.Fatalf("runs output = %q", out)
			}
			if got := strings.Contains(out, "\033[0;31m  2"); got != tt.wantColor {
				t.Errorf("red failing status = %v, want %v in %q", got, tt.wantColor, out)
			}
			if !tt.wantColor && strings.Contains(out, escape) {
				t.Errorf("--color never left escapes in %q", out)
			}
		})
	}
}

func TestColorFlag_ConfigNotSet(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())

	if out := runRoot(t, "--color", "always", "config", "log.file"); out != "\033[2m(not set)\033[0m\n" {
		t.Errorf("--color always: %q", out)
	}
	if out := runRoot(t, "--color", "never", "config", "log.file"); out != "(not set)\n" {
		t.Errorf("--color never: %q", out)
	}
}

func TestColorAuto_FollowsEnvironment(t *testing.T) {
	tests := []struct {
		name    string
		noColor string
		term    string
	}{
		{"NO_COLOR", "1", "xterm-256color"},
		{"dumb terminal", "", "dumb"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("NO_COLOR", tt.noColor)
			t.Setenv("TERM", tt.term)
			t.Cleanup(enableColors)

			colorMode = "auto"
			applyColorMode()
			if line := formatRun(storage.Run{Command: "make", ExitCode: 1}, 80); strings.Contains(line, escape) {
				t.Errorf("formatRun() = %q, want plain text", line)
			}
		})
	}
}

func TestTerminalWidth_Columns(t *testing.T) {
	// Under go test stdout is not a terminal, so $COLUMNS decides.
	for columns, want := range map[string]int{"": 80, "132": 132, "wide": 80, "-5": 80} {
		t.Setenv("COLUMNS", columns)
		if got := terminalWidth(); got != want {
			t.Errorf("COLUMNS=%q: terminalWidth() = %d, want %d", columns, got, want)
		}
	}
}
