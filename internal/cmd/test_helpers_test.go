package cmd

import (
	"bytes"
	"log/slog"
	"path/filepath"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/runger/nvpick/internal/config"
	"github.com/runger/nvpick/internal/host/memhost"
)

// withTestEnv points loadEnv at a config and directories under a temp dir.
func withTestEnv(t *testing.T, mutate func(*config.Config)) *appEnv {
	t.Helper()
	dir := t.TempDir()
	cfg := config.DefaultConfig()
	if mutate != nil {
		mutate(cfg)
	}
	env := &appEnv{
		cfg: cfg,
		paths: &config.Paths{
			ConfigDir: filepath.Join(dir, "config"),
			DataDir:   filepath.Join(dir, "data"),
			CacheDir:  filepath.Join(dir, "cache"),
		},
		logger: slog.New(slog.DiscardHandler),
	}

	old := loadEnv
	loadEnv = func() (*appEnv, error) { return env, nil }
	t.Cleanup(func() { loadEnv = old })
	return env
}

// withKeys replaces the terminal with an in-memory host fed keys in
// order.
func withKeys(t *testing.T, keys ...tea.KeyMsg) {
	t.Helper()
	old := runTerminal
	runTerminal = func(env *appEnv, open openFunc) error {
		return drivePicker(env, memhost.New(80, 24), open, feedKeys(keys...))
	}
	t.Cleanup(func() { runTerminal = old })
}

func feedKeys(keys ...tea.KeyMsg) programRunner {
	return func(m tea.Model) (tea.Model, error) {
		for _, k := range keys {
			m, _ = m.Update(k)
		}
		return m, nil
	}
}

func key(t tea.KeyType) tea.KeyMsg { return tea.KeyMsg{Type: t} }

func runes(s string) tea.KeyMsg { return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)} }

// newTestCommand returns a bare command wired to buffers.
func newTestCommand(stdin string) (*cobra.Command, *bytes.Buffer) {
	c := &cobra.Command{}
	var out bytes.Buffer
	c.SetOut(&out)
	c.SetIn(strings.NewReader(stdin))
	return c, &out
}
