package cmd

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/runger/nvpick/internal/config"
	"github.com/runger/nvpick/internal/picker"
	"github.com/runger/nvpick/internal/projectcmd"
	"github.com/runger/nvpick/internal/storage"
)

// appEnv is what every picker command starts from.
type appEnv struct {
	cfg    *config.Config
	paths  *config.Paths
	logger *slog.Logger
	closer io.Closer
}

// Close releases the log file.
func (e *appEnv) Close() {
	if e.closer != nil {
		_ = e.closer.Close()
	}
}

// loadEnv builds the command environment. Tests replace it.
var loadEnv = defaultLoadEnv

func defaultLoadEnv() (*appEnv, error) {
	paths := config.DefaultPaths()
	cfg, err := config.LoadFromFile(paths.ConfigFile())
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	env := &appEnv{cfg: cfg, paths: paths}
	logger, closer, err := newLogger(cfg, paths)
	if err != nil {
		// Logging is best effort; pickers still run.
		logger = slog.New(slog.DiscardHandler)
	}
	env.logger = logger
	env.closer = closer
	return env, nil
}

// newLogger opens the log file named by the config, or the default one,
// and returns a text logger writing to it at the configured level.
func newLogger(cfg *config.Config, paths *config.Paths) (*slog.Logger, io.Closer, error) {
	path := cfg.Log.File
	if path == "" {
		path = paths.LogFile()
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, nil, fmt.Errorf("failed to create log directory: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open log file: %w", err)
	}

	handler := slog.NewTextHandler(f, &slog.HandlerOptions{Level: parseLevel(cfg.Log.Level)})
	return slog.New(handler), f, nil
}

func parseLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// keymapFromConfig turns the keys section into picker bindings. Empty
// lists keep the stock keys.
func keymapFromConfig(k config.KeysConfig) picker.Keymap {
	km := picker.DefaultKeymap()
	if len(k.Down) > 0 {
		km.Down = k.Down
	}
	if len(k.Up) > 0 {
		km.Up = k.Up
	}
	if len(k.Commit) > 0 {
		km.Commit = k.Commit
	}
	if len(k.Cancel) > 0 {
		km.Cancel = k.Cancel
	}
	return km
}

// engineOptions returns the engine options every host shares.
func (e *appEnv) engineOptions() []picker.Option {
	return []picker.Option{
		picker.WithLogger(e.logger),
		picker.WithKeymap(keymapFromConfig(e.cfg.Keys)),
	}
}

// openProjectStore opens the state database. When it cannot be opened
// the project picker still works, without memory across runs.
func (e *appEnv) openProjectStore() (projectcmd.Store, func()) {
	db, err := e.openDatabase()
	if err != nil {
		e.logger.Warn("project commands will not persist", "error", err)
		return projectcmd.NewMemoryStore(), func() {}
	}
	return db, func() { _ = db.Close() }
}

func (e *appEnv) openDatabase() (*storage.SQLiteStore, error) {
	if err := e.paths.EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("failed to create directories: %w", err)
	}
	db, err := storage.NewSQLiteStore(e.paths.DatabaseFile(), storage.WithLogger(e.logger))
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	return db, nil
}
