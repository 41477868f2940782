// Package storage provides SQLite-based persistent storage for nvpick.
// It keeps the per-project command lists offered by the project picker
// and a log of the commands it ran.
package storage

import (
	"context"
	"errors"
)

// ErrProjectNotFound is returned when a project has no saved state.
var ErrProjectNotFound = errors.New("project not found")

// Store defines the interface for all storage operations.
type Store interface {
	// Projects
	GetProject(ctx context.Context, root string) (*Project, error)
	SaveProject(ctx context.Context, p *Project) error
	ListProjects(ctx context.Context) ([]Project, error)
	DeleteProject(ctx context.Context, root string) error

	// Runs
	RecordRun(ctx context.Context, run *Run) error
	RecentRuns(ctx context.Context, root string, limit int) ([]Run, error)

	// Lifecycle
	Close() error
}

// Project is the command list remembered for one project directory.
type Project struct {
	Root     string
	Commands []string
	// DefaultIndex points into Commands; -1 means no default.
	DefaultIndex    int
	UpdatedAtUnixMs int64
}

// Default returns the default command, or "" when there is none.
func (p *Project) Default() string {
	if p == nil || p.DefaultIndex < 0 || p.DefaultIndex >= len(p.Commands) {
		return ""
	}
	return p.Commands[p.DefaultIndex]
}

// Run is one executed project command.
type Run struct {
	ID          int64
	Root        string
	Command     string
	ExitCode    int
	DurationMs  int64
	RanAtUnixMs int64
}
