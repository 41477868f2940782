// Package projectcmd offers the commands of a project directory in an
// editable picker. The chosen command becomes the project's default, is
// shown first next time, and is run in the project directory.
package projectcmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/runger/nvpick/internal/config"
	"github.com/runger/nvpick/internal/layout"
	"github.com/runger/nvpick/internal/picker"
	"github.com/runger/nvpick/internal/storage"
)

// TitleHighlight is the highlight group of the quoted span in the title.
const TitleHighlight = "Question"

// Store is the part of storage.Store the runner needs.
type Store interface {
	GetProject(ctx context.Context, root string) (*storage.Project, error)
	SaveProject(ctx context.Context, p *storage.Project) error
	RecordRun(ctx context.Context, run *storage.Run) error
}

// Settings shape the picker and the initial command list.
type Settings struct {
	Title         string
	ScriptExt     string
	EnableScripts bool
	Layout        layout.Config
}

// DefaultSettings returns the settings used without a config file.
func DefaultSettings() Settings {
	return Settings{
		Title:         config.DefaultProjectTitle,
		ScriptExt:     ".sh",
		EnableScripts: true,
		Layout:        layout.Config{Border: layout.BorderRounded, AutoWidth: true, AutoHeight: true},
	}
}

// SettingsFromConfig builds Settings from the picker and project sections.
func SettingsFromConfig(cfg *config.Config) (Settings, error) {
	l, err := cfg.Picker.Layout()
	if err != nil {
		return Settings{}, err
	}
	return Settings{
		Title:         cfg.Project.Title,
		ScriptExt:     cfg.Project.ScriptExt,
		EnableScripts: cfg.Project.EnableScripts,
		Layout:        l,
	}, nil
}

// Report is the outcome of Run.
type Report struct {
	// Lines is the formatted output, or the error message when the
	// command could not be started.
	Lines []string
	// ExitCode is -1 when the command could not be started.
	ExitCode int
}

// Runner opens project command pickers and runs the chosen command.
type Runner struct {
	engine   *picker.Engine
	store    Store
	exec     Executor
	settings Settings
	logger   *slog.Logger
	now      func() time.Time
}

// Option configures a Runner.
type Option func(*Runner)

// WithLogger sets the runner's logger.
func WithLogger(l *slog.Logger) Option {
	return func(r *Runner) {
		if l != nil {
			r.logger = l
		}
	}
}

// WithExecutor replaces the default ExecRunner.
func WithExecutor(e Executor) Option {
	return func(r *Runner) { r.exec = e }
}

// WithSettings replaces DefaultSettings.
func WithSettings(s Settings) Option {
	return func(r *Runner) { r.settings = s }
}

// New returns a Runner opening pickers on engine. A nil store keeps state
// in memory only.
func New(engine *picker.Engine, store Store, opts ...Option) *Runner {
	if store == nil {
		store = NewMemoryStore()
	}
	r := &Runner{
		engine:   engine,
		store:    store,
		exec:     ExecRunner{},
		settings: DefaultSettings(),
		logger:   slog.New(slog.DiscardHandler),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Open shows the command picker for root. After a commit the project
// state is saved and done receives the command to run. done is not called
// on cancel, nor when the list is empty and nothing was typed.
func (r *Runner) Open(ctx context.Context, root string, done func(command string)) (*picker.Session, error) {
	p, err := r.load(ctx, root)
	if err != nil {
		return nil, err
	}

	items := displayOrder(p.Commands, p.DefaultIndex)
	s, err := r.engine.OpenEditable(r.settings.Title, items, r.settings.Layout, func(res picker.Result) {
		cmd, ok := choose(p, res.Text)
		if !ok {
			r.logger.Debug("nothing to run", "root", root)
			return
		}
		p.UpdatedAtUnixMs = r.now().UnixMilli()
		if err := r.store.SaveProject(ctx, p); err != nil {
			r.logger.Warn("failed to save project commands", "root", root, "error", err)
		}
		if done != nil {
			done(cmd)
		}
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open project picker: %w", err)
	}

	if start, end, ok := quotedSpan(r.settings.Title); ok {
		s.HighlightTitle(start, end, TitleHighlight)
	}
	return s, nil
}

// Run executes command in root, records the run, and returns what to show
// the user.
func (r *Runner) Run(ctx context.Context, root, command string) Report {
	r.logger.Info("running project command", "root", root, "command", command)

	out, err := r.exec.Execute(ctx, root, command)
	run := &storage.Run{
		Root:        root,
		Command:     command,
		ExitCode:    out.ExitCode,
		DurationMs:  out.Duration.Milliseconds(),
		RanAtUnixMs: r.now().UnixMilli(),
	}

	var rep Report
	if err != nil {
		r.logger.Warn("project command failed to start", "command", command, "error", err)
		run.ExitCode = -1
		rep = Report{Lines: []string{err.Error()}, ExitCode: -1}
	} else {
		rep = Report{Lines: FormatOutput(command, out.Text), ExitCode: out.ExitCode}
	}

	if err := r.store.RecordRun(ctx, run); err != nil {
		r.logger.Warn("failed to record run", "command", command, "error", err)
	}
	return rep
}

// load returns the saved state of root, or a fresh one seeded with the
// scripts found in root.
func (r *Runner) load(ctx context.Context, root string) (*storage.Project, error) {
	p, err := r.store.GetProject(ctx, root)
	if err == nil {
		return p, nil
	}
	if !errors.Is(err, storage.ErrProjectNotFound) {
		return nil, fmt.Errorf("failed to load project %s: %w", root, err)
	}

	p = &storage.Project{Root: root, DefaultIndex: -1}
	if r.settings.EnableScripts {
		scripts, err := DiscoverScripts(root, r.settings.ScriptExt)
		if err != nil {
			r.logger.Warn("script discovery failed", "root", root, "error", err)
		}
		p.Commands = scripts
	}
	return p, nil
}

// choose resolves the committed text against p and makes the result the
// default. Empty text means the current default, or the first command.
func choose(p *storage.Project, selected string) (string, bool) {
	cmd := strings.TrimSpace(selected)
	if cmd == "" {
		if len(p.Commands) == 0 {
			return "", false
		}
		cmd = p.Commands[0]
		if d := p.Default(); d != "" {
			cmd = d
		}
		if cmd == "" {
			return "", false
		}
	}

	if !slices.Contains(p.Commands, cmd) {
		p.Commands = append(p.Commands, cmd)
		p.Commands = slices.DeleteFunc(p.Commands, func(c string) bool { return c == "" })
	}
	p.DefaultIndex = slices.Index(p.Commands, cmd)
	return cmd, true
}
