package projectcmd

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/runger/nvpick/internal/config"
	"github.com/runger/nvpick/internal/host/memhost"
	"github.com/runger/nvpick/internal/layout"
	"github.com/runger/nvpick/internal/picker"
	"github.com/runger/nvpick/internal/storage"
)

// --- helpers ---

type fakeExecutor struct {
	calls []string
	out   Output
	err   error
}

func (f *fakeExecutor) Execute(_ context.Context, dir, command string) (Output, error) {
	f.calls = append(f.calls, dir+"|"+command)
	return f.out, f.err
}

type failingStore struct {
	*MemoryStore
	getErr  error
	saveErr error
}

func (f failingStore) GetProject(ctx context.Context, root string) (*storage.Project, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	return f.MemoryStore.GetProject(ctx, root)
}

func (f failingStore) SaveProject(ctx context.Context, p *storage.Project) error {
	if f.saveErr != nil {
		return f.saveErr
	}
	return f.MemoryStore.SaveProject(ctx, p)
}

func writeScripts(t *testing.T, names ...string) string {
	t.Helper()
	dir := t.TempDir()
	for _, n := range names {
		require.NoError(t, os.WriteFile(filepath.Join(dir, n), []byte("#!/bin/sh\n"), 0o755))
	}
	return dir
}

func newRunner(store Store, opts ...Option) (*memhost.Host, *Runner) {
	h := memhost.New(120, 40)
	clock := func() time.Time { return time.UnixMilli(1700000000000) }
	r := New(picker.NewEngine(h), store, opts...)
	r.now = clock
	return h, r
}

func openAndCapture(t *testing.T, r *Runner, root string) (*picker.Session, *[]string) {
	t.Helper()
	var got []string
	s, err := r.Open(context.Background(), root, func(cmd string) { got = append(got, cmd) })
	require.NoError(t, err)
	return s, &got
}

func listLines(t *testing.T, h *memhost.Host, s *picker.Session) []string {
	t.Helper()
	snap, ok := h.Snapshot(s.Handles().List)
	require.True(t, ok)
	return snap.Lines
}

// --- opening ---

func TestRunner_SeedsFromScripts(t *testing.T) {
	dir := writeScripts(t, "test.sh", "build.sh", "README.md")
	h, r := newRunner(nil)

	s, _ := openAndCapture(t, r, dir)
	assert.Equal(t, []string{"./build.sh", "./test.sh"}, listLines(t, h, s))
}

func TestRunner_ScriptsDisabled(t *testing.T) {
	dir := writeScripts(t, "build.sh")
	settings := DefaultSettings()
	settings.EnableScripts = false
	h, r := newRunner(nil, WithSettings(settings))

	s, _ := openAndCapture(t, r, dir)
	assert.Equal(t, []string{""}, listLines(t, h, s), "an empty list still renders one blank row")
}

func TestRunner_MissingDirectoryOpensEmpty(t *testing.T) {
	h, r := newRunner(nil)

	s, _ := openAndCapture(t, r, filepath.Join(t.TempDir(), "gone"))
	assert.Equal(t, []string{""}, listLines(t, h, s))
}

func TestRunner_TitleHighlight(t *testing.T) {
	h, r := newRunner(nil)

	s, _ := openAndCapture(t, r, t.TempDir())
	title, ok := h.Snapshot(s.Handles().Title)
	require.True(t, ok)
	assert.Equal(t, []string{config.DefaultProjectTitle}, title.Lines)
	require.Len(t, title.Highlights, 1)
	assert.Equal(t, memhost.Highlight{Row: 0, StartCol: 18, EndCol: 24, Group: "Question"}, title.Highlights[0])
}

func TestRunner_TitleWithoutQuotes(t *testing.T) {
	settings := DefaultSettings()
	settings.Title = "Commands"
	h, r := newRunner(nil, WithSettings(settings))

	s, _ := openAndCapture(t, r, t.TempDir())
	title, ok := h.Snapshot(s.Handles().Title)
	require.True(t, ok)
	assert.Empty(t, title.Highlights)
}

func TestRunner_DefaultShownFirst(t *testing.T) {
	store := NewMemoryStore()
	require.NoError(t, store.SaveProject(context.Background(), &storage.Project{
		Root:         "/p",
		Commands:     []string{"a", "b", "c"},
		DefaultIndex: 2,
	}))
	h, r := newRunner(store)

	s, _ := openAndCapture(t, r, "/p")
	assert.Equal(t, []string{"c", "a", "b"}, listLines(t, h, s))
}

func TestRunner_LoadError(t *testing.T) {
	store := failingStore{MemoryStore: NewMemoryStore(), getErr: errors.New("disk gone")}
	h, r := newRunner(store)

	_, err := r.Open(context.Background(), "/p", nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "disk gone")
	assert.Empty(t, h.Open(), "no surfaces on a failed load")
}

func TestRunner_InvalidLayout(t *testing.T) {
	settings := DefaultSettings()
	settings.Layout = layout.Config{WidthRatio: 2}
	_, r := newRunner(nil, WithSettings(settings))

	_, err := r.Open(context.Background(), t.TempDir(), nil)
	assert.ErrorIs(t, err, layout.ErrInvalidLayout)
}

// --- committing ---

func TestRunner_CommitSelectedScript(t *testing.T) {
	dir := writeScripts(t, "a.sh", "b.sh")
	store := NewMemoryStore()
	h, r := newRunner(store)

	_, got := openAndCapture(t, r, dir)
	require.True(t, h.Press("<C-j>"))
	require.True(t, h.Press("<CR>"))

	assert.Equal(t, []string{"./b.sh"}, *got)
	p, err := store.GetProject(context.Background(), dir)
	require.NoError(t, err)
	assert.Equal(t, []string{"./a.sh", "./b.sh"}, p.Commands)
	assert.Equal(t, 1, p.DefaultIndex)
	assert.Equal(t, int64(1700000000000), p.UpdatedAtUnixMs)

	s, _ := openAndCapture(t, r, dir)
	assert.Equal(t, []string{"./b.sh", "./a.sh"}, listLines(t, h, s), "the last choice is offered first")
}

func TestRunner_CommitTypedCommandAppends(t *testing.T) {
	dir := writeScripts(t, "a.sh")
	store := NewMemoryStore()
	h, r := newRunner(store)

	_, got := openAndCapture(t, r, dir)
	h.Type("make lint")
	h.Press("<CR>")

	assert.Equal(t, []string{"make lint"}, *got)
	p, err := store.GetProject(context.Background(), dir)
	require.NoError(t, err)
	assert.Equal(t, []string{"./a.sh", "make lint"}, p.Commands)
	assert.Equal(t, 1, p.DefaultIndex)
}

func TestRunner_EmptyCommitUsesDefault(t *testing.T) {
	store := NewMemoryStore()
	require.NoError(t, store.SaveProject(context.Background(), &storage.Project{
		Root: "/p", Commands: []string{"a", "b"}, DefaultIndex: 1,
	}))
	h, r := newRunner(store)

	_, got := openAndCapture(t, r, "/p")
	h.Press("<CR>")
	assert.Equal(t, []string{"b"}, *got)
}

func TestRunner_EmptyCommitUsesFirstWithoutDefault(t *testing.T) {
	dir := writeScripts(t, "x.sh", "y.sh")
	store := NewMemoryStore()
	h, r := newRunner(store)

	_, got := openAndCapture(t, r, dir)
	h.Press("<CR>")

	assert.Equal(t, []string{"./x.sh"}, *got)
	p, err := store.GetProject(context.Background(), dir)
	require.NoError(t, err)
	assert.Equal(t, 0, p.DefaultIndex)
}

func TestRunner_EmptyCommitOnEmptyListRunsNothing(t *testing.T) {
	store := NewMemoryStore()
	h, r := newRunner(store)
	dir := t.TempDir()

	s, got := openAndCapture(t, r, dir)
	h.Press("<CR>")

	assert.Empty(t, *got)
	assert.Equal(t, picker.StateClosed, s.State())
	_, err := store.GetProject(context.Background(), dir)
	assert.ErrorIs(t, err, storage.ErrProjectNotFound, "nothing chosen, nothing saved")
}

func TestRunner_CancelRunsNothing(t *testing.T) {
	dir := writeScripts(t, "a.sh")
	store := NewMemoryStore()
	h, r := newRunner(store)

	s, got := openAndCapture(t, r, dir)
	h.Press("<C-e>")

	assert.Empty(t, *got)
	assert.Equal(t, picker.StateClosed, s.State())
	assert.Empty(t, h.Open())
}

func TestRunner_SaveErrorStillRuns(t *testing.T) {
	dir := writeScripts(t, "a.sh")
	store := failingStore{MemoryStore: NewMemoryStore(), saveErr: errors.New("read-only")}
	h, r := newRunner(store)

	_, got := openAndCapture(t, r, dir)
	h.Press("<CR>")
	assert.Equal(t, []string{"./a.sh"}, *got)
}

func TestRunner_NilDone(t *testing.T) {
	dir := writeScripts(t, "a.sh")
	h, r := newRunner(nil)

	_, err := r.Open(context.Background(), dir, nil)
	require.NoError(t, err)
	assert.NotPanics(t, func() { h.Press("<CR>") })
}

// --- running ---

func TestRunner_Run(t *testing.T) {
	exec := &fakeExecutor{out: Output{Text: "ok\ndone\n", ExitCode: 3, Duration: 25 * time.Millisecond}}
	store := NewMemoryStore()
	_, r := newRunner(store, WithExecutor(exec))

	rep := r.Run(context.Background(), "/p", "./build.sh")

	assert.Equal(t, []string{"/p|./build.sh"}, exec.calls)
	assert.Equal(t, 3, rep.ExitCode)
	assert.Equal(t, []string{"Command: ./build.sh", outputSeparator, "", "ok", "done"}, rep.Lines)

	runs := store.Runs()
	require.Len(t, runs, 1)
	assert.Equal(t, storage.Run{
		ID: 1, Root: "/p", Command: "./build.sh", ExitCode: 3, DurationMs: 25, RanAtUnixMs: 1700000000000,
	}, runs[0])
}

func TestRunner_RunStartFailure(t *testing.T) {
	exec := &fakeExecutor{err: errors.New("failed to run nope: not found")}
	store := NewMemoryStore()
	_, r := newRunner(store, WithExecutor(exec))

	rep := r.Run(context.Background(), "/p", "nope")

	assert.Equal(t, -1, rep.ExitCode)
	assert.Equal(t, []string{"failed to run nope: not found"}, rep.Lines)
	require.Len(t, store.Runs(), 1)
	assert.Equal(t, -1, store.Runs()[0].ExitCode)
}

func TestRunner_WithSQLiteStore(t *testing.T) {
	dir := writeScripts(t, "a.sh", "b.sh")
	db, err := storage.NewSQLiteStore(filepath.Join(t.TempDir(), "state.db"))
	require.NoError(t, err)
	defer db.Close()

	h, r := newRunner(db)
	_, got := openAndCapture(t, r, dir)
	h.Press("<Down>")
	h.Press("<CR>")
	require.Equal(t, []string{"./b.sh"}, *got)

	h2, r2 := newRunner(db)
	s, _ := openAndCapture(t, r2, dir)
	assert.Equal(t, []string{"./b.sh", "./a.sh"}, listLines(t, h2, s))
}

// --- pure helpers ---

func TestChoose(t *testing.T) {
	tests := []struct {
		name        string
		commands    []string
		defaultIdx  int
		selected    string
		want        string
		wantOK      bool
		wantList    []string
		wantDefault int
	}{
		{"existing", []string{"a", "b"}, -1, "b", "b", true, []string{"a", "b"}, 1},
		{"new appends", []string{"a"}, 0, "c", "c", true, []string{"a", "c"}, 1},
		{"trimmed", []string{"a"}, -1, "  a ", "a", true, []string{"a"}, 0},
		{"empty uses default", []string{"a", "b"}, 1, "", "b", true, []string{"a", "b"}, 1},
		{"empty uses first", []string{"a", "b"}, -1, "", "a", true, []string{"a", "b"}, 0},
		{"empty on empty", nil, -1, "", "", false, nil, -1},
		{"blanks dropped on append", []string{"", "a"}, -1, "z", "z", true, []string{"a", "z"}, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := &storage.Project{Root: "/p", Commands: tt.commands, DefaultIndex: tt.defaultIdx}
			got, ok := choose(p, tt.selected)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.wantList, p.Commands)
			assert.Equal(t, tt.wantDefault, p.DefaultIndex)
		})
	}
}

func TestDisplayOrder(t *testing.T) {
	assert.Equal(t, []string{"a", "b"}, displayOrder([]string{"a", "b"}, -1))
	assert.Equal(t, []string{"b", "a", "c"}, displayOrder([]string{"a", "b", "c"}, 1))
	assert.Equal(t, []string{"a"}, displayOrder([]string{"a"}, 5))
	assert.Empty(t, displayOrder(nil, -1))
}

func TestQuotedSpan(t *testing.T) {
	start, end, ok := quotedSpan(config.DefaultProjectTitle)
	require.True(t, ok)
	assert.Equal(t, "Ctrl+e", config.DefaultProjectTitle[start:end])

	_, _, ok = quotedSpan("no quotes")
	assert.False(t, ok)
	_, _, ok = quotedSpan("empty '' pair")
	assert.False(t, ok)
	_, _, ok = quotedSpan("dangling 'quote")
	assert.False(t, ok)
}

func TestSettingsFromConfig(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Project.ScriptExt = ".bash"
	cfg.Project.Title = "Run"

	s, err := SettingsFromConfig(cfg)
	require.NoError(t, err)
	assert.Equal(t, ".bash", s.ScriptExt)
	assert.Equal(t, "Run", s.Title)
	assert.True(t, s.EnableScripts)
	assert.True(t, s.Layout.AutoWidth)
	assert.Equal(t, layout.BorderRounded, s.Layout.Border)
}
